package engine

import (
	"context"
	"errors"

	"tycoonsim/platform/ledger"
)

// accountOf maps a participant to a ledger account, nil meaning the
// treasury.
func accountOf(p *Participant) string {
	if p == nil {
		return ledger.Treasury
	}
	return p.Account
}

func (g *Game) trace(reason string) map[string]interface{} {
	return map[string]interface{}{
		"game":   g.ID,
		"turn":   g.turn,
		"reason": reason,
	}
}

// pay runs one transfer through the ledger and blocks until a terminal
// outcome. Cash caches move only after the transfer settled, and exactly
// once per transaction. A timeout stalls the whole game: the outcome is
// unknown and nothing downstream may assume either way.
func (g *Game) pay(ctx context.Context, from, to *Participant, amount int64, reason string) error {
	if amount <= 0 {
		return nil
	}
	req := ledger.Request{
		From:   accountOf(from),
		To:     accountOf(to),
		Amount: amount,
		Reason: reason,
		Trace:  g.trace(reason),
	}
	pending := g.ledger.Transfer(ctx, req)
	out, err := pending.Wait(ctx)
	if err != nil {
		if errors.Is(err, ledger.ErrTimeout) {
			g.stall(pending.TxID, "poll timeout")
			return &PaymentError{TxID: pending.TxID, Reason: "outcome unknown after timeout", Err: err}
		}
		return &PaymentError{TxID: pending.TxID, Reason: err.Error(), Err: err}
	}
	if !out.Settled {
		return &PaymentError{TxID: out.TxID, Reason: out.Reason, Err: ErrInsufficientCash}
	}
	if pending.Consume() {
		if from != nil {
			from.Cash -= amount
		}
		if to != nil {
			to.Cash += amount
		}
	}
	return nil
}

// charge collects an obligatory debt (rent, tax, fees). When cash on
// hand cannot cover it, the debtor gets a liquidation decision instead
// of an immediate transfer; the debt is settled or escalates to
// bankruptcy from there.
func (g *Game) charge(ctx context.Context, debtor, creditor *Participant, amount int64, reason string) error {
	if amount <= 0 {
		return nil
	}
	if debtor.Cash < amount {
		g.openDebt(debtor, creditor, amount, reason)
		return nil
	}
	err := g.pay(ctx, debtor, creditor, amount, reason)
	if err == nil {
		return nil
	}
	var perr *PaymentError
	if errors.As(err, &perr) && errors.Is(perr.Err, ErrInsufficientCash) {
		// ledger disagreed with the cache, resolve via liquidation
		g.openDebt(debtor, creditor, amount, reason)
		return nil
	}
	return err
}

func (g *Game) openDebt(debtor, creditor *Participant, amount int64, reason string) {
	creditorID := -1
	name := "the bank"
	if creditor != nil {
		creditorID = creditor.ID
		name = creditor.Name
	}
	g.debt = &debtState{Amount: amount, Creditor: creditorID, Reason: reason}
	g.eventf("%s owes %s %d but holds %d, liquidation required", debtor.Name, name, amount, debtor.Cash)
	g.pending = LiquidationDecision{Player: debtor.ID, Debt: amount, Creditor: creditorID}
}

// settleDebt retries the open debt after liquidation. Falls through to
// bankruptcy when the raise still does not cover it.
func (g *Game) settleDebt(ctx context.Context, debtor *Participant) error {
	debt := g.debt
	if debt == nil {
		return &InvariantError{Detail: "settleDebt with no open debt"}
	}
	var creditor *Participant
	if debt.Creditor >= 0 {
		creditor = g.players[debt.Creditor]
	}

	if debtor.Cash < debt.Amount {
		g.forcedLiquidate(ctx, debtor, debt.Amount)
	}
	if debtor.Cash < debt.Amount {
		g.log.WithError(&InsolvencyError{
			Player:   debtor.ID,
			Debt:     debt.Amount,
			Raised:   debtor.Cash,
			Creditor: debt.Creditor,
		}).Info("liquidation fell short")
		g.eventf("%s cannot cover the debt of %d after liquidation", debtor.Name, debt.Amount)
		g.debt = nil
		g.declareBankrupt(ctx, debtor, creditor)
		return nil
	}

	if err := g.pay(ctx, debtor, creditor, debt.Amount, debt.Reason); err != nil {
		return err
	}
	g.debt = nil
	g.eventf("%s settles the debt of %d", debtor.Name, debt.Amount)
	g.resumeTurn(ctx)
	return nil
}
