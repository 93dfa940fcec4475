package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
)

// Game holds the tunables of a single game instance. Values mirror the
// classic rules; every one of them can be overridden per deployment.
type Game struct {
	MaxTurns              int           `env:"MAX_TURNS" envDefault:"100"`
	MaxActionsPerSegment  int           `env:"MAX_ACTIONS_PER_SEGMENT" envDefault:"15"`
	MaxInvalidActions     int           `env:"MAX_INVALID_ACTIONS" envDefault:"3"`
	TradeMaxRejections    int           `env:"TRADE_MAX_REJECTIONS" envDefault:"3"`
	TradeInitiationsTurn  int           `env:"TRADE_INITIATIONS_PER_TURN" envDefault:"5"`
	PaymentPollInterval   time.Duration `env:"PAYMENT_POLL_INTERVAL" envDefault:"2s"`
	PaymentTimeout        time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"60s"`
	AgentDecideTimeout    time.Duration `env:"AGENT_DECIDE_TIMEOUT" envDefault:"30s"`
	AuctionReserveFrac    float64       `env:"AUCTION_RESERVE_FRACTION" envDefault:"0"`
	AuctionIncludeDecline bool          `env:"AUCTION_INCLUDE_DECLINER" envDefault:"false"`
	StartingCash          int64         `env:"STARTING_CASH" envDefault:"1500"`
	GoSalary              int64         `env:"GO_SALARY" envDefault:"200"`
	BailAmount            int64         `env:"BAIL_AMOUNT" envDefault:"50"`
	MaxJailRollAttempts   int           `env:"MAX_JAIL_ROLL_ATTEMPTS" envDefault:"3"`
}

// Server holds the process-level configuration.
type Server struct {
	ListenAddr   string `env:"LISTEN_ADDR" envDefault:":4101"`
	SocketAddr   string `env:"SOCKET_ADDR" envDefault:":8000"`
	JWTSecret    string `env:"JWT_SECRET" envDefault:"secret"`
	AllowOrigin  string `env:"ALLOW_ORIGIN" envDefault:"http://localhost:3000"`
	LedgerAddr   string `env:"LEDGER_ADDR"`
	LedgerAPIKey string `env:"LEDGER_API_KEY"`

	Game Game
}

// Load parses the full configuration from the environment. godotenv's
// autoload has already merged .env by the time this runs.
func Load() (*Server, error) {
	cfg := new(Server)
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// DefaultGame returns the game tunables with their defaults applied,
// ignoring the environment. Tests start from this and tighten timeouts.
func DefaultGame() Game {
	return Game{
		MaxTurns:             100,
		MaxActionsPerSegment: 15,
		MaxInvalidActions:    3,
		TradeMaxRejections:   3,
		TradeInitiationsTurn: 5,
		PaymentPollInterval:  2 * time.Second,
		PaymentTimeout:       60 * time.Second,
		AgentDecideTimeout:   30 * time.Second,
		StartingCash:         1500,
		GoSalary:             200,
		BailAmount:           50,
		MaxJailRollAttempts:  3,
	}
}
