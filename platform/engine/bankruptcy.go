package engine

import (
	"context"
)

// handleConfirmLiquidation closes the debtor's voluntary window. Whatever
// is still missing gets raised by forced liquidation; if that falls short
// the debtor goes bankrupt to the creditor.
func (g *Game) handleConfirmLiquidation(ctx context.Context, p *Participant) error {
	return g.settleDebt(ctx, p)
}

// forcedLiquidate raises cash toward need without agent input: houses go
// first (half cost), then mortgages, both in board order. Stops as soon
// as cash covers the need.
func (g *Game) forcedLiquidate(ctx context.Context, p *Participant, need int64) {
	for _, pos := range p.OwnedList() {
		pr := g.props[pos]
		sq, _ := g.board.Square(pos)
		for pr.Houses > 0 && p.Cash < need {
			if err := g.pay(ctx, nil, p, sq.HouseCost/2, "forced_sell_house"); err != nil {
				return
			}
			pr.Houses--
			g.eventf("forced sale: %s sells a house on %s for %d", p.Name, sq.Name, sq.HouseCost/2)
		}
	}
	for _, pos := range p.OwnedList() {
		if p.Cash >= need {
			return
		}
		pr := g.props[pos]
		if pr.Mortgaged || pr.Houses > 0 {
			continue
		}
		sq, _ := g.board.Square(pos)
		if err := g.pay(ctx, nil, p, sq.MortgageValue(), "forced_mortgage"); err != nil {
			return
		}
		pr.Mortgaged = true
		g.eventf("forced mortgage: %s mortgages %s for %d", p.Name, sq.Name, sq.MortgageValue())
	}
}

// chargeNow collects a debt from a participant who is not holding the
// pending decision (card effects hitting third parties). Liquidation is
// forced immediately; a shortfall means bankruptcy on the spot.
func (g *Game) chargeNow(ctx context.Context, debtor, creditor *Participant, amount int64, reason string) error {
	if amount <= 0 || debtor.Bankrupt {
		return nil
	}
	if debtor.Cash < amount {
		g.forcedLiquidate(ctx, debtor, amount)
	}
	if debtor.Cash < amount {
		g.declareBankrupt(ctx, debtor, creditor)
		return nil
	}
	return g.pay(ctx, debtor, creditor, amount, reason)
}

// declareBankrupt removes p from play. Assets go to the creditor when
// there is one, otherwise back to the bank. Remaining cash moves through
// the ledger like any other transfer.
func (g *Game) declareBankrupt(ctx context.Context, p *Participant, creditor *Participant) {
	if p.Bankrupt {
		return
	}
	p.Bankrupt = true
	if creditor != nil {
		g.eventf("%s is bankrupt, assets go to %s", p.Name, creditor.Name)
	} else {
		g.eventf("%s is bankrupt, assets return to the bank", p.Name)
	}

	for _, pos := range p.OwnedList() {
		pr := g.props[pos]
		delete(p.Owned, pos)
		pr.Houses = 0
		if creditor == nil {
			pr.Owner = -1
			pr.Mortgaged = false
			continue
		}
		pr.Owner = creditor.ID
		creditor.Owned[pos] = true
		if pr.Mortgaged {
			creditor.PendingMortgaged = append(creditor.PendingMortgaged, pos)
		}
	}
	if creditor != nil {
		creditor.JailCards += p.JailCards
	}
	p.JailCards = 0
	p.PendingMortgaged = nil
	p.InJail = false

	if p.Cash > 0 {
		if err := g.pay(ctx, p, creditor, p.Cash, "bankruptcy_settlement"); err != nil {
			g.log.WithError(err).Warnf("bankruptcy settlement for %s failed", p.Name)
		}
	}

	g.cancelTradesInvolving(p.ID)
	if g.auction != nil && g.auction.Status == AuctionRunning {
		g.dropBidder(ctx, p.ID)
	}

	if g.checkGameOver() {
		return
	}
	if g.current == p.ID {
		g.advanceTurn(ctx)
	} else if g.pending != nil && g.pending.Actor() == p.ID {
		g.resumeTurn(ctx)
	}
}

// cancelTradesInvolving withdraws every pending offer touching a
// participant who left the game.
func (g *Game) cancelTradesInvolving(player int) {
	for _, t := range g.trades {
		if t.Status == TradePending && (t.Proposer == player || t.Recipient == player) {
			t.Status = TradeWithdrawn
			g.lineageClosed[t.Lineage] = true
		}
	}
}
