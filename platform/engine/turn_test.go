package engine

import (
	"context"
	"errors"
	"testing"
)

func TestRollAndBuyProperty(t *testing.T) {
	g, svc := newTestGame(t, 2, testConfig())
	scriptRolls(g, [2]int{1, 2})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice})
	wantDecision(t, g, KindBuyOrAuction, 0)

	mustApply(t, g, 0, Action{Name: ActionBuyProperty})
	if g.props[3].Owner != 0 {
		t.Fatalf("Baltic owner = %d, want 0", g.props[3].Owner)
	}
	if g.players[0].Cash != 1440 {
		t.Fatalf("cash = %d, want 1440", g.players[0].Cash)
	}
	if got := svc.Balance(account(0)); got != 1440 {
		t.Fatalf("ledger balance = %d, want 1440", got)
	}
	wantDecision(t, g, KindPostRoll, 0)

	mustApply(t, g, 0, Action{Name: ActionEndTurn})
	wantDecision(t, g, KindRollDice, 1)
}

func TestRentChargedOnOwnedSquare(t *testing.T) {
	g, svc := newTestGame(t, 2, testConfig())
	giveProperty(g, 1, 3)
	scriptRolls(g, [2]int{1, 2})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice})
	wantDecision(t, g, KindPostRoll, 0)

	if g.players[0].Cash != 1496 || g.players[1].Cash != 1504 {
		t.Fatalf("cash = %d/%d, want 1496/1504", g.players[0].Cash, g.players[1].Cash)
	}
	if svc.Balance(account(1)) != 1504 {
		t.Fatalf("owner ledger balance = %d, want 1504", svc.Balance(account(1)))
	}
}

func TestFullGroupDoublesBaseRent(t *testing.T) {
	g, _ := newTestGame(t, 2, testConfig())
	giveProperty(g, 1, 1)
	giveProperty(g, 1, 3)
	scriptRolls(g, [2]int{1, 2})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice})
	// Baltic base rent 4, doubled for the complete brown group
	if g.players[0].Cash != 1492 {
		t.Fatalf("cash = %d, want 1492", g.players[0].Cash)
	}
}

func TestNoRentOnMortgagedSquare(t *testing.T) {
	g, _ := newTestGame(t, 2, testConfig())
	giveProperty(g, 1, 3)
	g.props[3].Mortgaged = true
	scriptRolls(g, [2]int{1, 2})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice})
	if g.players[0].Cash != 1500 {
		t.Fatalf("cash = %d, want 1500 (no rent on mortgaged)", g.players[0].Cash)
	}
	wantDecision(t, g, KindPostRoll, 0)
}

func TestDoublesGrantAnotherRoll(t *testing.T) {
	g, _ := newTestGame(t, 2, testConfig())
	scriptRolls(g, [2]int{3, 3}, [2]int{1, 3})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice})
	wantDecision(t, g, KindBuyOrAuction, 0) // Oriental at 6
	mustApply(t, g, 0, Action{Name: ActionBuyProperty})

	d := g.PendingDecision().(PostRollDecision)
	if !d.CanRollAgain {
		t.Fatal("double should grant another roll")
	}
	mustApply(t, g, 0, Action{Name: ActionRollDice})
	if g.players[0].Pos != 10 {
		t.Fatalf("pos = %d, want 10", g.players[0].Pos)
	}
	d = g.PendingDecision().(PostRollDecision)
	if d.CanRollAgain {
		t.Fatal("non-double must not grant another roll")
	}
}

func TestThreeConsecutiveDoublesJail(t *testing.T) {
	g, _ := newTestGame(t, 2, testConfig())
	// visiting jail, free parking, then the third double jails without moving
	scriptRolls(g, [2]int{5, 5}, [2]int{5, 5}, [2]int{2, 2})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice}) // -> 10
	mustApply(t, g, 0, Action{Name: ActionRollDice}) // -> 20
	mustApply(t, g, 0, Action{Name: ActionRollDice}) // third double

	if !g.players[0].InJail {
		t.Fatal("three doubles should jail")
	}
	if g.players[0].Pos != 10 {
		t.Fatalf("pos = %d, want 10", g.players[0].Pos)
	}
	wantDecision(t, g, KindRollDice, 1)
}

func TestPassGoPaysSalary(t *testing.T) {
	g, svc := newTestGame(t, 2, testConfig())
	g.players[0].Pos = 34
	scriptRolls(g, [2]int{2, 4})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice})
	if g.players[0].Pos != 0 {
		t.Fatalf("pos = %d, want 0", g.players[0].Pos)
	}
	if g.players[0].Cash != 1700 {
		t.Fatalf("cash = %d, want 1700", g.players[0].Cash)
	}
	if svc.Balance(account(0)) != 1700 {
		t.Fatalf("ledger balance = %d, want 1700", svc.Balance(account(0)))
	}
}

func TestTaxSquareCharges(t *testing.T) {
	g, _ := newTestGame(t, 2, testConfig())
	scriptRolls(g, [2]int{1, 3})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice}) // income tax at 4
	if g.players[0].Cash != 1300 {
		t.Fatalf("cash = %d, want 1300", g.players[0].Cash)
	}
	wantDecision(t, g, KindPostRoll, 0)
}

func TestGoToJailSquare(t *testing.T) {
	g, _ := newTestGame(t, 2, testConfig())
	g.players[0].Pos = 24
	scriptRolls(g, [2]int{2, 4})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice})
	if !g.players[0].InJail || g.players[0].Pos != 10 {
		t.Fatalf("want jailed at 10, got jail=%v pos=%d", g.players[0].InJail, g.players[0].Pos)
	}
	wantDecision(t, g, KindRollDice, 1)
}

func TestActionBudgetForcesEndOfTurn(t *testing.T) {
	cfg := testConfig()
	cfg.MaxActionsPerSegment = 2
	g, _ := newTestGame(t, 2, cfg)
	giveProperty(g, 0, 1)
	giveProperty(g, 0, 3)
	scriptRolls(g, [2]int{4, 6})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice}) // visiting jail, segment action 1
	mustApply(t, g, 0, Action{Name: ActionMortgage, Property: 1})

	wantDecision(t, g, KindRollDice, 1) // budget hit, turn force-ended
}

func TestWrongActorRejected(t *testing.T) {
	g, _ := newTestGame(t, 2, testConfig())
	g.Start()

	err := g.Apply(context.Background(), 1, Action{Name: ActionRollDice})
	if !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("err = %v, want ErrNotYourTurn", err)
	}
	wantDecision(t, g, KindRollDice, 0) // state untouched
}

func TestIllegalActionRejected(t *testing.T) {
	g, _ := newTestGame(t, 2, testConfig())
	g.Start()

	err := g.Apply(context.Background(), 0, Action{Name: ActionBid, Amount: 10})
	if !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("err = %v, want ErrIllegalAction", err)
	}
	wantDecision(t, g, KindRollDice, 0)
}

func TestBuildAndSellHouses(t *testing.T) {
	g, _ := newTestGame(t, 2, testConfig())
	giveProperty(g, 0, 1)
	giveProperty(g, 0, 3)
	scriptRolls(g, [2]int{4, 6})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice})
	mustApply(t, g, 0, Action{Name: ActionBuildHouse, Property: 1})
	if g.props[1].Houses != 1 || g.players[0].Cash != 1450 {
		t.Fatalf("houses=%d cash=%d, want 1/1450", g.props[1].Houses, g.players[0].Cash)
	}

	// uneven second house on the same street is rejected
	err := g.Apply(context.Background(), 0, Action{Name: ActionBuildHouse, Property: 1})
	if !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("err = %v, want ErrIllegalAction (even building)", err)
	}

	mustApply(t, g, 0, Action{Name: ActionSellHouse, Property: 1})
	if g.props[1].Houses != 0 || g.players[0].Cash != 1475 {
		t.Fatalf("houses=%d cash=%d, want 0/1475", g.props[1].Houses, g.players[0].Cash)
	}
}

func TestMortgageAndUnmortgage(t *testing.T) {
	g, _ := newTestGame(t, 2, testConfig())
	giveProperty(g, 0, 39)
	scriptRolls(g, [2]int{4, 6})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice})
	mustApply(t, g, 0, Action{Name: ActionMortgage, Property: 39})
	if !g.props[39].Mortgaged || g.players[0].Cash != 1700 {
		t.Fatalf("mortgaged=%v cash=%d, want true/1700", g.props[39].Mortgaged, g.players[0].Cash)
	}

	// principal 200 plus 10% interest
	mustApply(t, g, 0, Action{Name: ActionUnmortgage, Property: 39})
	if g.props[39].Mortgaged || g.players[0].Cash != 1480 {
		t.Fatalf("mortgaged=%v cash=%d, want false/1480", g.props[39].Mortgaged, g.players[0].Cash)
	}
}

func TestMaxTurnsEndsGame(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTurns = 2
	g, _ := newTestGame(t, 2, cfg)
	scriptRolls(g, [2]int{4, 6})
	g.Start()

	mustApply(t, g, 0, Action{Name: ActionRollDice})
	mustApply(t, g, 0, Action{Name: ActionEndTurn})
	mustApply(t, g, 1, Action{Name: ActionRollDice})
	mustApply(t, g, 1, Action{Name: ActionEndTurn})

	if g.Status() != StatusFinished {
		t.Fatalf("status = %s, want finished", g.Status())
	}
	res := g.Result()
	if res == nil || res.Reason != EndMaxTurns {
		t.Fatalf("result = %+v, want max_turns_reached", res)
	}
}
