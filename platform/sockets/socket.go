// Package socket exposes games over socket.io. Remote players receive
// decision prompts and state snapshots through their game's room and
// answer with action envelopes; every answer flows through the same
// dispatcher path as an in-process agent's.
package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/gomodule/redigo/redis"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"tycoonsim/app/models"
	"tycoonsim/platform/board"
	"tycoonsim/platform/cache"
	"tycoonsim/platform/config"
	"tycoonsim/platform/database"
	"tycoonsim/platform/engine"
	"tycoonsim/platform/ledger"
	"tycoonsim/platform/logging"
	"tycoonsim/platform/queries"
)

// session is one running game and its transport bridges.
type session struct {
	game   *engine.Game
	agents map[int]*engine.ChannelAgent
	users  map[string]int // user_id -> participant id
	cancel context.CancelFunc
}

type sessionTable struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func (t *sessionTable) get(gameID string) *session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[gameID]
}

func (t *sessionTable) put(gameID string, s *session) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.sessions[gameID]; exists {
		return false
	}
	t.sessions[gameID] = s
	return true
}

func (t *sessionTable) remove(gameID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, gameID)
}

// broadcaster publishes snapshots to redis and the game's room.
type broadcaster struct {
	server *socketio.Server
	pool   *redis.Pool
	log    *logrus.Entry
}

func (b *broadcaster) Snapshot(snap *engine.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		b.log.WithError(err).Error("snapshot marshal")
		return
	}
	conn := b.pool.Get()
	defer conn.Close()
	if err := cache.StoreSnapshot(snap.GameID, payload, &conn); err != nil {
		b.log.WithError(err).Warn("snapshot cache write")
	}
	b.server.BroadcastToRoom("/", snap.GameID, "game-state", string(payload))
}

func (b *broadcaster) Event(gameID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	b.server.BroadcastToRoom("/", gameID, event, string(data))
}

type actionEnvelope struct {
	GameID string        `json:"game_id"`
	UserID string        `json:"user_id"`
	Action engine.Action `json:"action"`
}

// CreateSocketIOServer runs the realtime side of the service.
func CreateSocketIOServer(cfg *config.Server) {
	log := logging.ForGame("socket")

	server, err := socketio.NewServer(nil)
	if err != nil {
		log.WithError(err).Fatal("socket.io server")
	}
	db := database.PostgreSQLConnection()
	defer db.Close()

	pool := cache.CreateRedisPool()
	defer pool.Close()

	table := &sessionTable{sessions: make(map[string]*session)}
	pub := &broadcaster{server: server, pool: pool, log: log}

	gameBoard, err := board.LoadClassic()
	if err != nil {
		log.WithError(err).Fatal("board catalog")
	}

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext("")
		return nil
	})

	server.OnEvent("/", "join-game", func(s socketio.Conn, jsonStr string) {
		var result map[string]string
		if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
			s.Emit("error-message", "malformed join request")
			return
		}
		gameID, userID := result["game_id"], result["user_id"]
		if gameID == "" || userID == "" {
			s.Emit("error-message", "game_id and user_id are required")
			return
		}
		if !queries.GameExists(gameID, db) {
			s.Emit("error-message", "invalid game")
			s.Emit("failed")
			return
		}
		user, err := queries.GetUser(userID, db)
		if err != nil {
			s.Emit("error-message", "user not found")
			s.Emit("failed")
			return
		}

		conn := pool.Get()
		defer conn.Close()
		seat, err := cache.SeatCount(gameID, &conn)
		if err != nil {
			seat = 0
		}
		if err := queries.CreatePlayer(models.Player{
			Game_id:  gameID,
			User_id:  userID,
			Username: user.Email,
			Seat:     seat,
		}, db); err != nil {
			s.Emit("error-message", "failed joining game")
			s.Emit("failed")
			return
		}
		if err := cache.AddSeat(gameID, userID, &conn); err != nil {
			s.Emit("error-message", "failed joining game")
			return
		}

		s.Join(gameID)
		server.BroadcastToRoom("/", gameID, "player-join", user.Email)
		log.Infof("%s joined room %s", userID, gameID)
	})

	server.OnEvent("/", "leave-game", func(s socketio.Conn, jsonStr string) {
		var result map[string]string
		if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
			return
		}
		gameID, userID := result["game_id"], result["user_id"]
		s.Leave(gameID)

		if sess := table.get(gameID); sess != nil {
			// leaving a live game is a resignation
			if pid, ok := sess.users[userID]; ok {
				sess.agents[pid].Submit(engine.Action{Name: engine.ActionResign})
			}
			return
		}

		conn := pool.Get()
		defer conn.Close()
		cache.RemoveSeat(gameID, userID, &conn)
		queries.DeletePlayer(userID, gameID, db)
		server.BroadcastToRoom("/", gameID, "player-left", userID)
	})

	server.OnEvent("/", "start-game", func(s socketio.Conn, gameID string) {
		conn := pool.Get()
		seats, err := cache.Seats(gameID, &conn)
		conn.Close()
		if err != nil || len(seats) < 2 {
			s.Emit("error-message", "need at least 2 players to start")
			return
		}
		if table.get(gameID) != nil {
			s.Emit("error-message", "game already started")
			return
		}

		sess, err := buildSession(gameID, seats, cfg, gameBoard, pub, db)
		if err != nil {
			log.WithError(err).Error("start game")
			s.Emit("error-message", "unable to start game")
			return
		}
		if !table.put(gameID, sess) {
			sess.cancel()
			s.Emit("error-message", "game already started")
			return
		}
		queries.SetGameStatus(gameID, "in progress", db)
		server.BroadcastToRoom("/", gameID, "game-start", len(seats))

		go runSession(gameID, sess, cfg, table, pub, db, pool)
	})

	server.OnEvent("/", "action", func(s socketio.Conn, jsonStr string) {
		raw := []byte(jsonStr)
		if err := validateEnvelope(raw); err != nil {
			s.Emit("error-message", "invalid action: "+err.Error())
			return
		}
		var env actionEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.Emit("error-message", "invalid action payload")
			return
		}
		sess := table.get(env.GameID)
		if sess == nil {
			s.Emit("error-message", "game is not running")
			return
		}
		pid, ok := sess.users[env.UserID]
		if !ok {
			s.Emit("error-message", "you are not seated in this game")
			return
		}
		if env.Action.Name == engine.ActionWithdrawTrade {
			if err := sess.game.WithdrawTrade(context.Background(), pid, env.Action.TradeID); err != nil {
				s.Emit("error-message", err.Error())
			}
			return
		}
		sess.agents[pid].Submit(env.Action)
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		log.WithError(e).Warn("socket error")
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		for _, room := range s.Rooms() {
			server.BroadcastToRoom("/", room, "player-left")
		}
		s.LeaveAll()
	})

	go server.Serve()
	defer server.Close()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AllowOrigin},
		AllowCredentials: true,
	})

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", server)
	http.ListenAndServe(cfg.SocketAddr, c.Handler(mux))
}

// buildSession assembles the engine game, its payment adapter and one
// channel agent per seat.
func buildSession(gameID string, userIDs []string, cfg *config.Server, b *board.Board, pub engine.Publisher, db *pg.DB) (*session, error) {
	log := logging.ForGame(gameID)

	var svc ledger.Service
	if cfg.LedgerAddr != "" {
		svc = ledger.NewRemoteService(cfg.LedgerAddr, cfg.LedgerAPIKey)
	} else {
		local := ledger.NewLocalService()
		for _, uid := range userIDs {
			local.Seed(uid, cfg.Game.StartingCash)
		}
		svc = local
	}
	adapter := ledger.NewAdapter(svc, cfg.Game.PaymentPollInterval, cfg.Game.PaymentTimeout, log)

	var seats []engine.Seat
	users := make(map[string]int, len(userIDs))
	for i, uid := range userIDs {
		name := uid
		if u, err := queries.GetUser(uid, db); err == nil {
			name = u.Email
		}
		seats = append(seats, engine.Seat{Name: name, Account: uid})
		users[uid] = i
	}

	game, err := engine.New(engine.Params{
		ID:        gameID,
		Cfg:       cfg.Game,
		Board:     b,
		Ledger:    adapter,
		Log:       log,
		Publisher: pub,
		Seed:      time.Now().UnixNano(),
		Seats:     seats,
	})
	if err != nil {
		return nil, err
	}

	agents := make(map[int]*engine.ChannelAgent, len(seats))
	for i := range seats {
		agents[i] = engine.NewChannelAgent()
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{game: game, agents: agents, users: users, cancel: cancel}

	for pid, agent := range agents {
		go forwardPrompts(ctx, gameID, pid, agent, pub)
	}
	return sess, nil
}

// forwardPrompts relays decision requests for one participant into the
// game's room.
func forwardPrompts(ctx context.Context, gameID string, pid int, agent *engine.ChannelAgent, pub engine.Publisher) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-agent.Prompts():
			pub.Event(gameID, "decision-request", map[string]interface{}{
				"actor":         pid,
				"decision":      p.Snapshot.Decision,
				"legal_actions": p.Legal,
				"turn":          p.Snapshot.Turn,
			})
		}
	}
}

// runSession drives the dispatcher to a terminal state and records it.
func runSession(gameID string, sess *session, cfg *config.Server, table *sessionTable, pub engine.Publisher, db *pg.DB, pool *redis.Pool) {
	log := logging.ForGame(gameID)
	defer sess.cancel()
	defer table.remove(gameID)

	dispatcher := engine.NewDispatcher(sess.game, agentMap(sess.agents), cfg.Game, log)
	result, err := dispatcher.Run(context.Background())
	switch {
	case sess.game.Status() == engine.StatusAborted:
		log.WithError(err).Error("game aborted on an internal fault")
		queries.SetGameStatus(gameID, "aborted", db)
	case err != nil:
		log.WithError(err).Error("game ended abnormally")
		queries.SetGameStatus(gameID, "stalled", db)
	default:
		log.Infof("game finished: %+v", result)
		queries.SetGameStatus(gameID, "finished", db)
	}

	conn := pool.Get()
	defer conn.Close()
	cache.CleanupGame(gameID, &conn)
	queries.DeleteGamePlayers(gameID, db)
}

func agentMap(agents map[int]*engine.ChannelAgent) map[int]engine.Agent {
	out := make(map[int]engine.Agent, len(agents))
	for id, a := range agents {
		out[id] = a
	}
	return out
}
