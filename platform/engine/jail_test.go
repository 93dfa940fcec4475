package engine

import (
	"testing"
)

func jailedGame(t *testing.T) (*Game, int) {
	t.Helper()
	g, _ := newTestGame(t, 2, testConfig())
	g.players[0].InJail = true
	g.players[0].Pos = 10
	return g, 0
}

func TestJailPayBail(t *testing.T) {
	g, p := jailedGame(t)
	g.Start()
	wantDecision(t, g, KindJailOptions, p)

	mustApply(t, g, p, Action{Name: ActionPayBail})
	if g.players[p].InJail {
		t.Fatal("still in jail after bail")
	}
	if g.players[p].Cash != 1450 {
		t.Fatalf("cash = %d, want 1450", g.players[p].Cash)
	}
	wantDecision(t, g, KindRollDice, p)
}

func TestJailUseCard(t *testing.T) {
	g, p := jailedGame(t)
	g.players[p].JailCards = 1
	g.Start()

	mustApply(t, g, p, Action{Name: ActionUseJailCard})
	if g.players[p].InJail || g.players[p].JailCards != 0 {
		t.Fatalf("jail=%v cards=%d, want free with 0 cards", g.players[p].InJail, g.players[p].JailCards)
	}
	if g.players[p].Cash != 1500 {
		t.Fatalf("cash = %d, want 1500 (card is free)", g.players[p].Cash)
	}
	wantDecision(t, g, KindRollDice, p)
}

func TestJailRollDoublesReleases(t *testing.T) {
	g, p := jailedGame(t)
	scriptRolls(g, [2]int{3, 3})
	g.Start()

	mustApply(t, g, p, Action{Name: ActionRollForDoubles})
	if g.players[p].InJail {
		t.Fatal("doubles should release")
	}
	if g.players[p].Pos != 16 {
		t.Fatalf("pos = %d, want 16", g.players[p].Pos)
	}
	// the release roll never earns a bonus roll
	wantDecision(t, g, KindBuyOrAuction, p)
}

func TestJailRollFailurePassesTurn(t *testing.T) {
	g, p := jailedGame(t)
	scriptRolls(g, [2]int{1, 2})
	g.Start()

	mustApply(t, g, p, Action{Name: ActionRollForDoubles})
	if !g.players[p].InJail || g.players[p].JailRolls != 1 {
		t.Fatalf("jail=%v rolls=%d, want jailed with 1 attempt", g.players[p].InJail, g.players[p].JailRolls)
	}
	wantDecision(t, g, KindRollDice, 1)
}

func TestJailFinalAttemptForcesBail(t *testing.T) {
	g, p := jailedGame(t)
	g.players[p].JailRolls = 2
	scriptRolls(g, [2]int{1, 2})
	g.Start()

	mustApply(t, g, p, Action{Name: ActionRollForDoubles})
	if g.players[p].InJail {
		t.Fatal("final failed attempt should force release via bail")
	}
	if g.players[p].Cash != 1450 {
		t.Fatalf("cash = %d, want 1450 after forced bail", g.players[p].Cash)
	}
	// moves by the rolled total after paying
	if g.players[p].Pos != 13 {
		t.Fatalf("pos = %d, want 13", g.players[p].Pos)
	}
}

func TestJailNoOptionsForcesBailIntoDebt(t *testing.T) {
	g, svc := newTestGame(t, 2, testConfig())
	g.players[0].InJail = true
	g.players[0].Pos = 10
	g.players[0].JailRolls = 3 // attempts spent
	g.players[0].Cash = 10
	svc.Seed(account(0), 10)
	g.Start()

	// bail was forced and cash cannot cover it
	wantDecision(t, g, KindLiquidation, 0)
}
