// Package engine is the orchestration core: one Game owns one match's
// mutable state exclusively and serializes every external trigger (agent
// decisions, transport actions, payment outcomes) behind its mutex.
// Multiple games run fully independently.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"

	"tycoonsim/platform/board"
	"tycoonsim/platform/config"
	"tycoonsim/platform/ledger"
)

// Publisher receives a state snapshot after every applied action plus
// coarse game events. The socket and cache layers implement it.
type Publisher interface {
	Event(gameID, event string, payload interface{})
	Snapshot(snap *Snapshot)
}

// Seat describes one participant at game creation.
type Seat struct {
	Name    string
	Account string
}

// debtState is an obligation that blocked on insufficient cash and is
// waiting on the debtor's liquidation decision.
type debtState struct {
	Amount   int64
	Creditor int // -1 for the bank
	Reason   string
}

// Game is the aggregate. All fields are guarded by mu.
type Game struct {
	mu sync.Mutex

	ID     string
	cfg    config.Game
	board  *board.Board
	rng    *rand.Rand
	ledger *ledger.Adapter
	log    *logrus.Entry
	pub    Publisher

	// roll produces one dice throw; tests swap it for a fixed script
	roll func() (int, int)

	players []*Participant
	props   map[int]*Property

	current int
	turn    int
	phase   Phase
	dice    [2]int
	doubles int

	actionsInSegment int
	tradeInitiations map[int]int

	pending Decision
	debt    *debtState

	trades         map[int64]*TradeOffer
	lineageRejects map[int64]int
	lineageClosed  map[int64]bool
	nextTradeID    int64

	auction *Auction

	chance *board.Deck
	chest  *board.Deck

	status GameStatus
	result *Result
	events []string
}

// Params wires a new game.
type Params struct {
	ID        string
	Cfg       config.Game
	Board     *board.Board
	Ledger    *ledger.Adapter
	Log       *logrus.Entry
	Publisher Publisher
	Seed      int64
	Seats     []Seat
}

// New builds a game; Start must be called before actions apply.
func New(p Params) (*Game, error) {
	if len(p.Seats) < 2 {
		return nil, fmt.Errorf("engine: need at least 2 participants, got %d", len(p.Seats))
	}
	if p.Board == nil || p.Ledger == nil {
		return nil, fmt.Errorf("engine: board and ledger are required")
	}
	log := p.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	rng := rand.New(rand.NewSource(p.Seed))

	g := &Game{
		ID:               p.ID,
		cfg:              p.Cfg,
		board:            p.Board,
		rng:              rng,
		ledger:           p.Ledger,
		log:              log,
		pub:              p.Publisher,
		props:            make(map[int]*Property),
		tradeInitiations: make(map[int]int),
		trades:           make(map[int64]*TradeOffer),
		lineageRejects:   make(map[int64]int),
		lineageClosed:    make(map[int64]bool),
		chance:           board.NewDeck(board.ChanceCards(), rng),
		chest:            board.NewDeck(board.ChestCards(), rng),
		status:           StatusRunning,
	}
	g.roll = func() (int, int) { return rng.Intn(6) + 1, rng.Intn(6) + 1 }
	for i, seat := range p.Seats {
		account := seat.Account
		if account == "" {
			account = fmt.Sprintf("%s.p%d", p.ID, i)
		}
		g.players = append(g.players, &Participant{
			ID:      i,
			Name:    seat.Name,
			Account: account,
			Cash:    p.Cfg.StartingCash,
			Owned:   make(map[int]bool),
		})
	}
	for _, pos := range p.Board.Purchasables() {
		g.props[pos] = &Property{Pos: pos, Owner: -1}
	}
	return g, nil
}

// Start seats the rotation and emits the first decision.
func (g *Game) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.turn = 1
	g.current = 0
	g.phase = PhasePreRoll
	g.eventf("game started with %d participants", len(g.players))
	g.resumeTurn(context.Background())
	g.publish()
}

// Apply is the single entry point for every action, whether it came from
// an in-process agent or an external transport. It validates the actor
// and the action against the current legal set, then mutates state.
// ValidationError and RateLimitError leave state untouched and the same
// decision pending.
func (g *Game) Apply(ctx context.Context, player int, act Action) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.status {
	case StatusFinished, StatusAborted:
		return validationf(ErrGameOver, "game %s is over", g.ID)
	case StatusStalled:
		return validationf(ErrGameStalled, "game %s is stalled", g.ID)
	}
	if g.pending == nil {
		ierr := &InvariantError{Detail: "no pending decision while running"}
		g.abort(ierr.Detail)
		g.publish()
		return ierr
	}
	if player != g.pending.Actor() {
		return validationf(ErrNotYourTurn, "participant %d acted on participant %d's decision", player, g.pending.Actor())
	}
	legal := g.legalActionsLocked()
	if !containsAction(legal, act.Name) {
		return validationf(ErrIllegalAction, "%s is not in the legal set %v", act.Name, legal)
	}

	err := g.dispatchAction(ctx, player, act)
	if err == nil {
		g.bumpSegment(ctx)
		g.checkGameOver()
	} else {
		var ierr *InvariantError
		if errors.As(err, &ierr) {
			g.abort(ierr.Detail)
		}
	}
	g.publish()
	return err
}

func (g *Game) dispatchAction(ctx context.Context, player int, act Action) error {
	p := g.players[player]
	switch act.Name {
	case ActionRollDice:
		return g.handleRoll(ctx, p)
	case ActionEndTurn:
		g.advanceTurn(ctx)
		return nil
	case ActionResign:
		g.eventf("%s resigns", p.Name)
		g.declareBankrupt(ctx, p, nil)
		return nil
	case ActionBuyProperty:
		return g.handleBuy(ctx, p)
	case ActionDeclineProperty:
		return g.handleDecline(ctx, p)
	case ActionBuildHouse:
		return g.handleBuildHouse(ctx, p, act.Property)
	case ActionSellHouse:
		return g.handleSellHouse(ctx, p, act.Property)
	case ActionMortgage:
		return g.handleMortgage(ctx, p, act.Property)
	case ActionUnmortgage:
		return g.handleUnmortgage(ctx, p, act.Property)
	case ActionProposeTrade:
		return g.handlePropose(p, act.Trade)
	case ActionAcceptTrade:
		return g.handleAcceptTrade(ctx, p, act.TradeID)
	case ActionRejectTrade:
		return g.handleRejectTrade(p, act.TradeID)
	case ActionCounterTrade:
		return g.handleCounterTrade(p, act.TradeID, act.Trade)
	case ActionEndNegotiation:
		g.eventf("%s ends the trade negotiation", p.Name)
		g.resumeTurn(ctx)
		return nil
	case ActionBid:
		return g.handleBid(ctx, p, act.Amount)
	case ActionPassBid:
		return g.handlePass(ctx, p)
	case ActionPayBail:
		return g.handlePayBail(ctx, p)
	case ActionUseJailCard:
		return g.handleUseJailCard(ctx, p)
	case ActionRollForDoubles:
		return g.handleJailRoll(ctx, p)
	case ActionConfirmLiquidation:
		return g.handleConfirmLiquidation(ctx, p)
	case ActionPayMortgageFee:
		return g.handleMortgageFee(ctx, p)
	case ActionLiftMortgageNow:
		return g.handleLiftMortgage(ctx, p)
	}
	return validationf(ErrIllegalAction, "unhandled action %s", act.Name)
}

// bumpSegment enforces the per-turn action budget: once the active
// participant has burned through it, the turn force-ends.
func (g *Game) bumpSegment(ctx context.Context) {
	if g.status != StatusRunning {
		return
	}
	if _, ok := g.pending.(PostRollDecision); !ok {
		return
	}
	g.actionsInSegment++
	if g.actionsInSegment >= g.cfg.MaxActionsPerSegment {
		g.eventf("%s exhausted the action budget, turn ends", g.players[g.current].Name)
		g.advanceTurn(ctx)
	}
}

// resumeTurn recomputes the pending decision for the current participant
// after an interrupt (trade, auction, liquidation) resolved.
func (g *Game) resumeTurn(ctx context.Context) {
	if g.status != StatusRunning {
		g.pending = nil
		return
	}
	p := g.players[g.current]
	if p.Bankrupt {
		g.advanceTurn(ctx)
		return
	}
	if len(p.PendingMortgaged) > 0 {
		pos := p.PendingMortgaged[0]
		sq, _ := g.board.Square(pos)
		g.pending = MortgagedReceivedDecision{
			Player:   p.ID,
			Property: pos,
			Fee:      sq.MortgageValue() / 10,
			LiftCost: sq.MortgageValue() + sq.MortgageValue()/10,
		}
		return
	}
	if g.phase == PhasePreRoll {
		if p.InJail {
			g.setJailDecision(ctx, p)
			return
		}
		g.pending = RollDiceDecision{Player: p.ID}
		return
	}
	g.pending = PostRollDecision{
		Player:       p.ID,
		CanRollAgain: g.doubles > 0 && g.doubles < 3 && !p.InJail,
	}
}

// advanceTurn hands the turn to the next solvent participant.
func (g *Game) advanceTurn(ctx context.Context) {
	if g.checkGameOver() {
		return
	}
	g.doubles = 0
	g.dice = [2]int{}
	g.actionsInSegment = 0
	g.debt = nil
	for i := 1; i <= len(g.players); i++ {
		next := (g.current + i) % len(g.players)
		if !g.players[next].Bankrupt {
			g.current = next
			break
		}
	}
	g.turn++
	if g.turn > g.cfg.MaxTurns {
		g.finish(EndMaxTurns, -1)
		return
	}
	g.phase = PhasePreRoll
	g.tradeInitiations = make(map[int]int)
	g.eventf("turn %d: %s to act", g.turn, g.players[g.current].Name)
	g.resumeTurn(ctx)
}

// checkGameOver finishes the game when at most one solvent participant
// remains. Returns true when the game ended.
func (g *Game) checkGameOver() bool {
	if g.status != StatusRunning {
		return true
	}
	var solvent []*Participant
	for _, p := range g.players {
		if !p.Bankrupt {
			solvent = append(solvent, p)
		}
	}
	if len(solvent) > 1 {
		return false
	}
	winner := -1
	if len(solvent) == 1 {
		winner = solvent[0].ID
	}
	g.finish(EndWinner, winner)
	return true
}

func (g *Game) finish(reason EndReason, winner int) {
	g.status = StatusFinished
	g.pending = nil
	g.result = &Result{Reason: reason, Winner: winner, Turns: g.turn}
	if winner >= 0 {
		g.eventf("game over: %s wins after %d turns", g.players[winner].Name, g.turn)
	} else {
		g.eventf("game over: %s after %d turns", reason, g.turn)
	}
	if g.pub != nil {
		g.pub.Event(g.ID, "game-over", g.result)
	}
}

// stall freezes the game when a payment outcome is unknown. Nothing may
// be applied until an operator reconciles the transaction out of band.
func (g *Game) stall(txID, reason string) {
	g.status = StatusStalled
	g.pending = nil
	g.eventf("game stalled: payment %s outcome unknown (%s)", txID, reason)
	if g.pub != nil {
		g.pub.Event(g.ID, "game-stalled", map[string]string{"tx": txID, "reason": reason})
	}
}

// abort kills the game instance after an invariant violation. The state
// is no longer trustworthy, so nothing may be applied afterwards and the
// result records the abort instead of a winner.
func (g *Game) abort(detail string) {
	if g.status == StatusAborted {
		return
	}
	g.status = StatusAborted
	g.pending = nil
	g.result = &Result{Reason: EndAborted, Winner: -1, Turns: g.turn}
	g.eventf("game aborted: %s", detail)
	if g.pub != nil {
		g.pub.Event(g.ID, "game-aborted", map[string]string{"detail": detail})
	}
}

// Abort is the entry point for invariant breaches detected outside the
// engine's own locked call paths, such as the dispatch loop.
func (g *Game) Abort(detail string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.abort(detail)
	g.publish()
}

// Status reports the lifecycle state.
func (g *Game) Status() GameStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Result returns the terminal result, or nil while running.
func (g *Game) Result() *Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result
}

// PendingDecision returns the current decision, or nil.
func (g *Game) PendingDecision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

func (g *Game) eventf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	g.events = append(g.events, msg)
	if len(g.events) > 200 {
		g.events = g.events[len(g.events)-200:]
	}
	g.log.Info(msg)
}

func (g *Game) publish() {
	if g.pub == nil {
		return
	}
	g.pub.Snapshot(g.snapshotLocked())
}

// --- small ownership queries used by the legal-action computation ---

func (g *Game) solventOpponents(player int) int {
	n := 0
	for _, p := range g.players {
		if p.ID != player && !p.Bankrupt {
			n++
		}
	}
	return n
}

func (g *Game) anyWithHouses(p *Participant) bool {
	for pos := range p.Owned {
		if g.props[pos] != nil && g.props[pos].Houses > 0 {
			return true
		}
	}
	return false
}

func (g *Game) anyMortgageable(p *Participant) bool {
	for pos := range p.Owned {
		pr := g.props[pos]
		if pr != nil && !pr.Mortgaged && pr.Houses == 0 {
			return true
		}
	}
	return false
}

func (g *Game) anyUnmortgageable(p *Participant) bool {
	for pos := range p.Owned {
		pr := g.props[pos]
		if pr == nil || !pr.Mortgaged {
			continue
		}
		sq, _ := g.board.Square(pos)
		if p.Cash >= unmortgageCost(sq) {
			return true
		}
	}
	return false
}

func (g *Game) anyBuildable(p *Participant) bool {
	for pos := range p.Owned {
		if g.canBuildAt(p, pos) == nil {
			return true
		}
	}
	return false
}

// unmortgageCost is the mortgage principal plus 10% interest.
func unmortgageCost(sq board.Square) int64 {
	return sq.MortgageValue() + sq.MortgageValue()/10
}
