package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tycoonsim/platform/board"
	"tycoonsim/platform/ledger"
)

// postRollGame puts participant 0 on the visiting-jail square so the
// trade flow starts from a clean post-roll decision.
func postRollGame(t *testing.T, players int) (*Game, *tradeFixture) {
	t.Helper()
	g, svc := newTestGame(t, players, testConfig())
	giveProperty(g, 0, 1) // Mediterranean
	giveProperty(g, 1, 3) // Baltic
	scriptRolls(g, [2]int{4, 6})
	g.Start()
	mustApply(t, g, 0, Action{Name: ActionRollDice})
	wantDecision(t, g, KindPostRoll, 0)
	return g, &tradeFixture{svc: svc}
}

type tradeFixture struct {
	svc interface{ Balance(string) int64 }
}

func proposal(to int) *TradeProposal {
	return &TradeProposal{
		To:      to,
		Offer:   TradeItems{Properties: []int{1}, Cash: 100},
		Request: TradeItems{Properties: []int{3}},
	}
}

func TestTradeAcceptMovesEverything(t *testing.T) {
	g, f := postRollGame(t, 2)

	mustApply(t, g, 0, Action{Name: ActionProposeTrade, Trade: proposal(1)})
	wantDecision(t, g, KindRespondTrade, 1)
	id := g.PendingDecision().(RespondTradeDecision).TradeID

	mustApply(t, g, 1, Action{Name: ActionAcceptTrade, TradeID: id})

	if g.props[1].Owner != 1 || g.props[3].Owner != 0 {
		t.Fatalf("owners = %d/%d, want 1/0", g.props[1].Owner, g.props[3].Owner)
	}
	if g.players[0].Cash != 1400 || g.players[1].Cash != 1600 {
		t.Fatalf("cash = %d/%d, want 1400/1600", g.players[0].Cash, g.players[1].Cash)
	}
	if f.svc.Balance(account(1)) != 1600 {
		t.Fatalf("ledger balance = %d, want 1600", f.svc.Balance(account(1)))
	}
	offer, _ := g.Trade(id)
	if offer.Status != TradeAccepted {
		t.Fatalf("status = %s, want accepted", offer.Status)
	}
	wantDecision(t, g, KindPostRoll, 0)
}

func TestTradeRejectionBudgetClosesLineage(t *testing.T) {
	g, _ := postRollGame(t, 2)

	for i := 0; i < 3; i++ {
		mustApply(t, g, 0, Action{Name: ActionProposeTrade, Trade: proposal(1)})
		id := g.PendingDecision().(RespondTradeDecision).TradeID
		mustApply(t, g, 1, Action{Name: ActionRejectTrade, TradeID: id})
	}

	d := g.PendingDecision().(ProposeAfterRejectionDecision)
	if d.Rejections != 3 {
		t.Fatalf("rejections = %d, want 3", d.Rejections)
	}
	if !g.lineageClosed[d.Lineage] {
		t.Fatal("lineage should be closed after the third rejection")
	}
	// only ending the negotiation remains legal
	legal := g.LegalActions()
	if len(legal) != 1 || legal[0] != ActionEndNegotiation {
		t.Fatalf("legal = %v, want [end_negotiation]", legal)
	}
	mustApply(t, g, 0, Action{Name: ActionEndNegotiation})
	wantDecision(t, g, KindPostRoll, 0)
}

func TestCounterSharesLineage(t *testing.T) {
	g, _ := postRollGame(t, 2)

	mustApply(t, g, 0, Action{Name: ActionProposeTrade, Trade: proposal(1)})
	first := g.PendingDecision().(RespondTradeDecision).TradeID

	counter := &TradeProposal{
		Offer:   TradeItems{Properties: []int{3}},
		Request: TradeItems{Properties: []int{1}, Cash: 200},
	}
	mustApply(t, g, 1, Action{Name: ActionCounterTrade, TradeID: first, Trade: counter})
	wantDecision(t, g, KindRespondTrade, 0)
	second := g.PendingDecision().(RespondTradeDecision).TradeID

	a, _ := g.Trade(first)
	b, _ := g.Trade(second)
	if a.Lineage != b.Lineage {
		t.Fatalf("lineages differ: %d vs %d", a.Lineage, b.Lineage)
	}
	if a.Status != TradeCountered {
		t.Fatalf("first status = %s, want countered", a.Status)
	}

	// rejecting the counter burns the shared lineage budget
	mustApply(t, g, 0, Action{Name: ActionRejectTrade, TradeID: second})
	if g.lineageRejects[a.Lineage] != 1 {
		t.Fatalf("lineage rejections = %d, want 1", g.lineageRejects[a.Lineage])
	}
}

func TestTradeValidationNamesBadItems(t *testing.T) {
	g, _ := postRollGame(t, 2)

	// participant 0 does not own Baltic
	bad := &TradeProposal{To: 1, Offer: TradeItems{Properties: []int{3}}}
	err := g.Apply(context.Background(), 0, Action{Name: ActionProposeTrade, Trade: bad})
	var verr *ValidationError
	if !errors.As(err, &verr) || len(verr.Items) == 0 {
		t.Fatalf("err = %v, want ValidationError naming the bad item", err)
	}
	// same decision is still pending, state untouched
	wantDecision(t, g, KindPostRoll, 0)
}

func TestAcceptAutoRejectsStaleOffer(t *testing.T) {
	g, _ := postRollGame(t, 2)

	mustApply(t, g, 0, Action{Name: ActionProposeTrade, Trade: proposal(1)})
	id := g.PendingDecision().(RespondTradeDecision).TradeID

	// the offered property changes hands before the recipient answers
	g.props[1].Owner = -1
	delete(g.players[0].Owned, 1)

	mustApply(t, g, 1, Action{Name: ActionAcceptTrade, TradeID: id})
	offer, _ := g.Trade(id)
	if offer.Status != TradeRejected {
		t.Fatalf("status = %s, want auto-rejected", offer.Status)
	}
	// the budget is not charged for a stale offer
	if g.lineageRejects[offer.Lineage] != 0 {
		t.Fatalf("lineage rejections = %d, want 0", g.lineageRejects[offer.Lineage])
	}
	wantDecision(t, g, KindProposeAfterReject, 0)
}

func TestTradeRateLimit(t *testing.T) {
	g, _ := postRollGame(t, 2)
	g.tradeInitiations[0] = g.cfg.TradeInitiationsTurn

	err := g.handlePropose(g.players[0], proposal(1))
	var rerr *RateLimitError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want RateLimitError", err)
	}
	// the legal action list already hides propose_trade at the cap
	if containsAction(g.LegalActions(), ActionProposeTrade) {
		t.Fatal("propose_trade should not be legal once rate limited")
	}
}

func TestMortgagedPropertyTransferFee(t *testing.T) {
	g, _ := postRollGame(t, 2)
	g.props[3].Mortgaged = true

	mustApply(t, g, 0, Action{Name: ActionProposeTrade, Trade: proposal(1)})
	id := g.PendingDecision().(RespondTradeDecision).TradeID
	mustApply(t, g, 1, Action{Name: ActionAcceptTrade, TradeID: id})

	// Baltic arrived mortgaged: fee-or-lift before anything else
	wantDecision(t, g, KindMortgagedReceived, 0)
	d := g.PendingDecision().(MortgagedReceivedDecision)
	if d.Fee != 3 || d.LiftCost != 33 {
		t.Fatalf("fee=%d lift=%d, want 3/33", d.Fee, d.LiftCost)
	}

	mustApply(t, g, 0, Action{Name: ActionPayMortgageFee})
	if !g.props[3].Mortgaged {
		t.Fatal("mortgage should survive the fee option")
	}
	if g.players[0].Cash != 1397 { // 1500 - 100 trade cash - 3 fee
		t.Fatalf("cash = %d, want 1397", g.players[0].Cash)
	}
	wantDecision(t, g, KindPostRoll, 0)
}

// vetoService rejects every transfer debited from one account and passes
// the rest through to the in-process ledger.
type vetoService struct {
	inner *ledger.LocalService
	from  string
}

func (s *vetoService) Submit(ctx context.Context, req ledger.Request) (string, error) {
	if req.From == s.from {
		return "veto-" + req.Reason, nil
	}
	return s.inner.Submit(ctx, req)
}

func (s *vetoService) PollStatus(ctx context.Context, txID string) (ledger.Status, error) {
	if strings.HasPrefix(txID, "veto-") {
		return ledger.StatusRejected, nil
	}
	return s.inner.PollStatus(ctx, txID)
}

func TestTradeCompensationFailureStallsWithTx(t *testing.T) {
	cfg := testConfig()
	b, err := board.LoadClassic()
	if err != nil {
		t.Fatalf("load board: %v", err)
	}
	svc := ledger.NewLocalService()
	svc.Seed(account(0), cfg.StartingCash)
	svc.Seed(account(1), cfg.StartingCash)
	adapter := ledger.NewAdapter(&vetoService{inner: svc, from: account(1)}, cfg.PaymentPollInterval, cfg.PaymentTimeout, nil)
	g, err := New(Params{
		ID:     "g-comp",
		Cfg:    cfg,
		Board:  b,
		Ledger: adapter,
		Seed:   1,
		Seats:  []Seat{{Name: "p0", Account: account(0)}, {Name: "p1", Account: account(1)}},
	})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	scriptRolls(g, [2]int{4, 6})
	g.Start()
	mustApply(t, g, 0, Action{Name: ActionRollDice})

	// both sides owe cash: the first leg settles, the second is rejected
	// and the compensating transfer is rejected too
	prop := &TradeProposal{To: 1, Offer: TradeItems{Cash: 100}, Request: TradeItems{Cash: 50}}
	mustApply(t, g, 0, Action{Name: ActionProposeTrade, Trade: prop})
	id := g.PendingDecision().(RespondTradeDecision).TradeID

	err = g.Apply(context.Background(), 1, Action{Name: ActionAcceptTrade, TradeID: id})
	var perr *PaymentError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want PaymentError", err)
	}
	if g.Status() != StatusStalled {
		t.Fatalf("status = %s, want stalled after a failed unwind", g.Status())
	}
	// the reconciliation event names the compensating transaction
	g.mu.Lock()
	events := append([]string(nil), g.events...)
	g.mu.Unlock()
	for _, e := range events {
		if strings.Contains(e, "veto-trade_compensation") {
			return
		}
	}
	t.Fatalf("no stall event names the compensating transfer: %v", events)
}

func TestMortgageFeeFailureKeepsObligation(t *testing.T) {
	cfg := testConfig()
	cfg.PaymentPollInterval = 5 * time.Millisecond
	cfg.PaymentTimeout = 30 * time.Millisecond
	b, err := board.LoadClassic()
	if err != nil {
		t.Fatalf("load board: %v", err)
	}
	adapter := ledger.NewAdapter(stuckService{}, cfg.PaymentPollInterval, cfg.PaymentTimeout, nil)
	g, err := New(Params{
		ID:     "g-fee",
		Cfg:    cfg,
		Board:  b,
		Ledger: adapter,
		Seed:   1,
		Seats:  []Seat{{Name: "p0"}, {Name: "p1"}},
	})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	giveProperty(g, 0, 3)
	g.props[3].Mortgaged = true
	g.players[0].PendingMortgaged = []int{3}
	g.Start()
	wantDecision(t, g, KindMortgagedReceived, 0)

	err = g.Apply(context.Background(), 0, Action{Name: ActionPayMortgageFee})
	var perr *PaymentError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want PaymentError", err)
	}
	if g.Status() != StatusStalled {
		t.Fatalf("status = %s, want stalled", g.Status())
	}
	// the fee obligation survives the failed charge
	if len(g.players[0].PendingMortgaged) != 1 || g.players[0].PendingMortgaged[0] != 3 {
		t.Fatalf("pending mortgaged = %v, want the entry kept", g.players[0].PendingMortgaged)
	}
}

func TestWithdrawPendingTrade(t *testing.T) {
	g, _ := postRollGame(t, 2)

	mustApply(t, g, 0, Action{Name: ActionProposeTrade, Trade: proposal(1)})
	id := g.PendingDecision().(RespondTradeDecision).TradeID

	if err := g.WithdrawTrade(context.Background(), 0, id); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	offer, _ := g.Trade(id)
	if offer.Status != TradeWithdrawn {
		t.Fatalf("status = %s, want withdrawn", offer.Status)
	}
	wantDecision(t, g, KindPostRoll, 0)
}
