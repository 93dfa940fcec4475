package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"tycoonsim/platform/config"
)

// Agent chooses one action for the decision described by the snapshot.
// In-process bots and remote socket players implement the same interface
// and flow through the same dispatch path.
type Agent interface {
	Decide(ctx context.Context, snap *Snapshot, legal []ActionName) (Action, error)
}

// Dispatcher drives one game to completion: it prompts the deciding
// agent, applies the choice, and substitutes the forced default when an
// agent times out, errors, or keeps picking illegal actions.
type Dispatcher struct {
	game   *Game
	agents map[int]Agent
	cfg    config.Game
	log    *logrus.Entry
}

func NewDispatcher(g *Game, agents map[int]Agent, cfg config.Game, log *logrus.Entry) *Dispatcher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dispatcher{game: g, agents: agents, cfg: cfg, log: log}
}

// Run starts the game and loops until it reaches a terminal state. A
// stalled game returns ErrGameStalled; the caller decides what operator
// escalation looks like.
func (d *Dispatcher) Run(ctx context.Context) (*Result, error) {
	d.game.Start()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch d.game.Status() {
		case StatusFinished, StatusAborted:
			return d.game.Result(), nil
		case StatusStalled:
			return nil, ErrGameStalled
		}
		dec := d.game.PendingDecision()
		if dec == nil {
			ierr := &InvariantError{Detail: "running game with no pending decision"}
			d.game.Abort(ierr.Detail)
			return nil, ierr
		}
		if err := d.step(ctx, dec); err != nil {
			return nil, err
		}
	}
}

// step resolves one pending decision. Validation failures re-prompt the
// same agent up to the invalid-action budget, then the forced default
// applies.
func (d *Dispatcher) step(ctx context.Context, dec Decision) error {
	actor := dec.Actor()
	agent := d.agents[actor]
	snap := d.game.State()

	invalid := 0
	for {
		act, err := d.decide(ctx, agent, snap)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.log.WithError(err).Warnf("agent %d gave no decision, forcing default", actor)
			return d.applyForced(ctx, actor, dec)
		}

		err = d.game.Apply(ctx, actor, act)
		if err == nil {
			return nil
		}
		if isRecoverable(err) {
			invalid++
			d.log.WithError(err).Warnf("agent %d action rejected (%d/%d)", actor, invalid, d.cfg.MaxInvalidActions)
			if invalid >= d.cfg.MaxInvalidActions {
				return d.applyForced(ctx, actor, dec)
			}
			snap = d.game.State()
			continue
		}
		var perr *PaymentError
		if errors.As(err, &perr) {
			// the game already stalled or recorded the failure; the
			// outer loop reads the status
			return nil
		}
		return err
	}
}

// decide asks the agent under the per-decision timeout. A missing agent
// is treated like a timeout and falls back to the default.
func (d *Dispatcher) decide(ctx context.Context, agent Agent, snap *Snapshot) (Action, error) {
	if agent == nil {
		return Action{}, errors.New("no agent registered")
	}
	dctx, cancel := context.WithTimeout(ctx, d.cfg.AgentDecideTimeout)
	defer cancel()
	return agent.Decide(dctx, snap, snap.LegalActions)
}

func (d *Dispatcher) applyForced(ctx context.Context, actor int, dec Decision) error {
	forced := defaultAction(dec)
	d.log.Infof("forcing %s for participant %d", forced.Name, actor)
	err := d.game.Apply(ctx, actor, forced)
	if err == nil {
		return nil
	}
	var perr *PaymentError
	if errors.As(err, &perr) {
		return nil
	}
	if isRecoverable(err) {
		// the forced default should always be legal
		ierr := &InvariantError{Detail: "forced default rejected: " + err.Error()}
		d.game.Abort(ierr.Detail)
		return ierr
	}
	return err
}

func isRecoverable(err error) bool {
	var verr *ValidationError
	var rerr *RateLimitError
	return errors.As(err, &verr) || errors.As(err, &rerr)
}

// ScriptedAgent plays a fixed action sequence, then reports exhaustion so
// the dispatcher falls back to defaults. Used by bots and tests.
type ScriptedAgent struct {
	mu    sync.Mutex
	queue []Action
}

var errScriptExhausted = errors.New("script exhausted")

func NewScriptedAgent(acts ...Action) *ScriptedAgent {
	return &ScriptedAgent{queue: acts}
}

func (a *ScriptedAgent) Push(acts ...Action) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = append(a.queue, acts...)
}

func (a *ScriptedAgent) Decide(ctx context.Context, snap *Snapshot, legal []ActionName) (Action, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.queue) == 0 {
		return Action{}, errScriptExhausted
	}
	act := a.queue[0]
	a.queue = a.queue[1:]
	return act, nil
}

// Prompt is one outbound decision request for a remote participant.
type Prompt struct {
	Snapshot *Snapshot
	Legal    []ActionName
}

// ChannelAgent bridges an external transport into the agent interface:
// the socket layer forwards Prompts to the client and feeds the chosen
// action back. A slow or absent client hits the decision timeout and the
// forced default applies, exactly as for an in-process agent.
type ChannelAgent struct {
	prompts chan Prompt
	actions chan Action
}

func NewChannelAgent() *ChannelAgent {
	return &ChannelAgent{
		prompts: make(chan Prompt, 1),
		actions: make(chan Action, 1),
	}
}

// Prompts is consumed by the transport to forward decision requests.
func (a *ChannelAgent) Prompts() <-chan Prompt { return a.prompts }

// Submit feeds the client's chosen action back to the waiting Decide.
func (a *ChannelAgent) Submit(act Action) {
	select {
	case a.actions <- act:
	default:
		// no decision pending, drop the stray action
	}
}

func (a *ChannelAgent) Decide(ctx context.Context, snap *Snapshot, legal []ActionName) (Action, error) {
	// drain any stale answer from a previous, already-forced decision
	select {
	case <-a.actions:
	default:
	}
	select {
	case a.prompts <- Prompt{Snapshot: snap, Legal: legal}:
	default:
		<-a.prompts
		a.prompts <- Prompt{Snapshot: snap, Legal: legal}
	}
	select {
	case act := <-a.actions:
		return act, nil
	case <-ctx.Done():
		return Action{}, ctx.Err()
	}
}
