package engine

import (
	"context"

	"tycoonsim/platform/board"
)

// drawCard applies one chance or community chest card to the drawer and
// then resumes the turn, unless the card itself redirected the flow
// (movement, jail, or an unpayable debt).
func (g *Game) drawCard(ctx context.Context, p *Participant, deck *board.Deck) error {
	card := deck.Draw()
	g.eventf("%s draws: %s", p.Name, card.Text)

	switch card.Effect {
	case board.CardReceive:
		if err := g.pay(ctx, nil, p, card.Amount, "card_receive"); err != nil {
			return err
		}

	case board.CardPay:
		if err := g.charge(ctx, p, nil, card.Amount, "card_pay"); err != nil {
			return err
		}
		if g.debt != nil {
			return nil
		}

	case board.CardMoveTo:
		return g.moveTo(ctx, p, card.Pos)

	case board.CardGoToJail:
		g.sendToJail(p)
		g.advanceTurn(ctx)
		return nil

	case board.CardJailCard:
		p.JailCards++

	case board.CardCollectEach:
		for _, other := range g.players {
			if other.ID == p.ID || other.Bankrupt {
				continue
			}
			if err := g.chargeNow(ctx, other, p, card.Amount, "card_collect_each"); err != nil {
				return err
			}
		}
		if g.status != StatusRunning {
			return nil
		}

	case board.CardPayEach:
		total := card.Amount * int64(g.solventOpponents(p.ID))
		if p.Cash < total {
			g.forcedLiquidate(ctx, p, total)
		}
		for _, other := range g.players {
			if other.ID == p.ID || other.Bankrupt || p.Bankrupt {
				continue
			}
			if err := g.chargeNow(ctx, p, other, card.Amount, "card_pay_each"); err != nil {
				return err
			}
		}
		if p.Bankrupt || g.status != StatusRunning {
			return nil
		}

	case board.CardRepairs:
		if err := g.charge(ctx, p, nil, g.repairBill(p, card), "card_repairs"); err != nil {
			return err
		}
		if g.debt != nil {
			return nil
		}
	}

	g.resumeTurn(ctx)
	return nil
}

// repairBill charges per house and per hotel across the drawer's estate.
func (g *Game) repairBill(p *Participant, card board.Card) int64 {
	var bill int64
	for pos := range p.Owned {
		pr := g.props[pos]
		switch {
		case pr.Houses == 5:
			bill += card.HotelFee
		case pr.Houses > 0:
			bill += card.Amount * int64(pr.Houses)
		}
	}
	return bill
}
