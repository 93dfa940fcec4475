package engine

import (
	"context"
	"errors"
	"testing"

	"tycoonsim/platform/config"
)

// declineToAuction drives participant 0 onto Baltic and declines it.
func declineToAuction(t *testing.T, players int, cfg config.Game) *Game {
	t.Helper()
	g, _ := newTestGame(t, players, cfg)
	scriptRolls(g, [2]int{1, 2})
	g.Start()
	mustApply(t, g, 0, Action{Name: ActionRollDice})
	wantDecision(t, g, KindBuyOrAuction, 0)
	mustApply(t, g, 0, Action{Name: ActionDeclineProperty})
	return g
}

func TestAuctionExcludesDecliner(t *testing.T) {
	g := declineToAuction(t, 3, testConfig())

	a := g.AuctionState()
	if a == nil {
		t.Fatal("no auction running")
	}
	for _, id := range a.Eligible {
		if id == 0 {
			t.Fatal("decliner must not be eligible")
		}
	}
	wantDecision(t, g, KindAuctionBid, 1)
}

func TestAuctionIncludeDeclinerFlag(t *testing.T) {
	cfg := testConfig()
	cfg.AuctionIncludeDecline = true
	g := declineToAuction(t, 3, cfg)

	found := false
	for _, id := range g.AuctionState().Eligible {
		if id == 0 {
			found = true
		}
	}
	if !found {
		t.Fatal("flag should keep the decliner eligible")
	}
}

func TestAuctionBidPassAward(t *testing.T) {
	g := declineToAuction(t, 3, testConfig())

	mustApply(t, g, 1, Action{Name: ActionBid, Amount: 10})
	wantDecision(t, g, KindAuctionBid, 2)
	mustApply(t, g, 2, Action{Name: ActionBid, Amount: 20})
	wantDecision(t, g, KindAuctionBid, 1)
	mustApply(t, g, 1, Action{Name: ActionPassBid})

	// only the high bidder remains, auction closes and settles
	if g.props[3].Owner != 2 {
		t.Fatalf("owner = %d, want 2", g.props[3].Owner)
	}
	if g.players[2].Cash != 1480 {
		t.Fatalf("winner cash = %d, want 1480", g.players[2].Cash)
	}
	if g.AuctionState() != nil {
		t.Fatal("auction should be cleared")
	}
	wantDecision(t, g, KindPostRoll, 0)
}

func TestAuctionAllPassLeavesUnowned(t *testing.T) {
	g := declineToAuction(t, 3, testConfig())

	mustApply(t, g, 1, Action{Name: ActionPassBid})
	mustApply(t, g, 2, Action{Name: ActionPassBid})

	if g.props[3].Owner != -1 {
		t.Fatalf("owner = %d, want unowned", g.props[3].Owner)
	}
	wantDecision(t, g, KindPostRoll, 0)
}

func TestAuctionBidMustIncrease(t *testing.T) {
	g := declineToAuction(t, 3, testConfig())

	mustApply(t, g, 1, Action{Name: ActionBid, Amount: 10})
	err := g.Apply(context.Background(), 2, Action{Name: ActionBid, Amount: 10})
	if !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("err = %v, want ErrIllegalAction for a non-increasing bid", err)
	}
	// the same bidder is re-polled
	wantDecision(t, g, KindAuctionBid, 2)
}

func TestAuctionBidBeyondCashRejected(t *testing.T) {
	g := declineToAuction(t, 3, testConfig())

	err := g.Apply(context.Background(), 1, Action{Name: ActionBid, Amount: 2000})
	if !errors.Is(err, ErrInsufficientCash) {
		t.Fatalf("err = %v, want ErrInsufficientCash", err)
	}
}

func TestAuctionReserve(t *testing.T) {
	cfg := testConfig()
	cfg.AuctionReserveFrac = 0.5
	g := declineToAuction(t, 3, cfg)

	if r := g.AuctionState().Reserve; r != 30 {
		t.Fatalf("reserve = %d, want 30", r)
	}
	err := g.Apply(context.Background(), 1, Action{Name: ActionBid, Amount: 20})
	if !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("err = %v, want ErrIllegalAction below reserve", err)
	}
	// a bid at the reserve does not exceed it
	err = g.Apply(context.Background(), 1, Action{Name: ActionBid, Amount: 30})
	if !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("err = %v, want ErrIllegalAction at the reserve", err)
	}
	mustApply(t, g, 1, Action{Name: ActionBid, Amount: 31})
}

func TestAuctionTwoPlayers(t *testing.T) {
	g := declineToAuction(t, 2, testConfig())

	// only one eligible bidder; a single bid takes it
	wantDecision(t, g, KindAuctionBid, 1)
	mustApply(t, g, 1, Action{Name: ActionBid, Amount: 5})
	if g.props[3].Owner != 1 {
		t.Fatalf("owner = %d, want 1", g.props[3].Owner)
	}
}
