package engine

import (
	"context"

	"tycoonsim/platform/board"
)

func (g *Game) rollDice() (int, int) {
	return g.roll()
}

// handleRoll rolls for the active participant and resolves movement.
// Doubles grant another roll; a third consecutive double sends the
// roller straight to jail and ends the turn.
func (g *Game) handleRoll(ctx context.Context, p *Participant) error {
	if p.InJail {
		return validationf(ErrIllegalAction, "%s must resolve jail first", p.Name)
	}
	d1, d2 := g.rollDice()
	g.dice = [2]int{d1, d2}
	g.phase = PhasePostRoll
	if d1 == d2 {
		g.doubles++
		g.eventf("%s rolls %d+%d (double #%d)", p.Name, d1, d2, g.doubles)
		if g.doubles >= 3 {
			g.eventf("%s rolled three consecutive doubles and goes to jail", p.Name)
			g.sendToJail(p)
			g.advanceTurn(ctx)
			return nil
		}
	} else {
		g.doubles = 0
		g.eventf("%s rolls %d+%d", p.Name, d1, d2)
	}
	return g.moveBy(ctx, p, d1+d2)
}

// moveBy advances the token and resolves the destination square.
func (g *Game) moveBy(ctx context.Context, p *Participant, steps int) error {
	dest := (p.Pos + steps) % board.Size
	if dest < p.Pos {
		g.payGoSalary(ctx, p)
	}
	p.Pos = dest
	return g.resolveLanding(ctx, p)
}

// moveTo teleports to pos, paying the salary when GO is passed forward.
func (g *Game) moveTo(ctx context.Context, p *Participant, pos int) error {
	if pos < p.Pos {
		g.payGoSalary(ctx, p)
	}
	p.Pos = pos
	return g.resolveLanding(ctx, p)
}

func (g *Game) payGoSalary(ctx context.Context, p *Participant) {
	if err := g.pay(ctx, nil, p, g.cfg.GoSalary, "go_salary"); err != nil {
		g.log.WithError(err).Warnf("GO salary to %s not credited", p.Name)
		return
	}
	g.eventf("%s passes GO and collects %d", p.Name, g.cfg.GoSalary)
}

// resolveLanding applies the landed square's effect and sets the next
// pending decision for the mover.
func (g *Game) resolveLanding(ctx context.Context, p *Participant) error {
	sq, err := g.board.Square(p.Pos)
	if err != nil {
		return &InvariantError{Detail: "landed off the board"}
	}

	switch sq.Kind {
	case board.KindStreet, board.KindRailroad, board.KindUtility:
		return g.resolveOwnable(ctx, p, sq)
	case board.KindTax:
		g.eventf("%s pays %d %s", p.Name, sq.Tax, sq.Name)
		if err := g.charge(ctx, p, nil, sq.Tax, "tax"); err != nil {
			return err
		}
	case board.KindChance:
		return g.drawCard(ctx, p, g.chance)
	case board.KindChest:
		return g.drawCard(ctx, p, g.chest)
	case board.KindGoToJail:
		g.eventf("%s is sent to jail", p.Name)
		g.sendToJail(p)
		g.advanceTurn(ctx)
		return nil
	case board.KindGo, board.KindJail, board.KindFreeParking:
		// nothing to resolve
	}
	g.resumeTurn(ctx)
	return nil
}

func (g *Game) resolveOwnable(ctx context.Context, p *Participant, sq board.Square) error {
	pr := g.props[sq.Pos]
	switch {
	case pr.Owner == -1:
		if p.Cash >= sq.Price {
			g.pending = BuyOrAuctionDecision{Player: p.ID, Property: sq.Pos, Price: sq.Price}
			return nil
		}
		// can't afford it outright, straight to auction
		g.eventf("%s cannot afford %s, it goes to auction", p.Name, sq.Name)
		g.startAuction(ctx, sq.Pos, p.ID)
		return nil
	case pr.Owner == p.ID:
		// own square
	case pr.Mortgaged:
		g.eventf("%s lands on mortgaged %s, no rent due", p.Name, sq.Name)
	default:
		owner := g.players[pr.Owner]
		rent := g.rentFor(sq, pr)
		g.eventf("%s owes %s rent of %d for %s", p.Name, owner.Name, rent, sq.Name)
		if err := g.charge(ctx, p, owner, rent, "rent"); err != nil {
			return err
		}
	}
	g.resumeTurn(ctx)
	return nil
}

// rentFor computes the rent due on sq given its runtime state.
func (g *Game) rentFor(sq board.Square, pr *Property) int64 {
	owner := g.players[pr.Owner]
	switch sq.Kind {
	case board.KindStreet:
		return board.StreetRent(sq, pr.Houses, g.ownsFullGroup(owner, sq.Group))
	case board.KindRailroad:
		return board.RailroadRent(g.countKindOwned(owner, board.KindRailroad))
	case board.KindUtility:
		return board.UtilityRent(g.dice[0]+g.dice[1], g.countKindOwned(owner, board.KindUtility))
	}
	return 0
}

// ownsFullGroup reports whether p owns every street in the color group
// with none of them mortgaged.
func (g *Game) ownsFullGroup(p *Participant, group string) bool {
	members := g.board.Group(group)
	if len(members) == 0 {
		return false
	}
	for _, pos := range members {
		pr := g.props[pos]
		if pr == nil || pr.Owner != p.ID || pr.Mortgaged {
			return false
		}
	}
	return true
}

func (g *Game) countKindOwned(p *Participant, kind board.Kind) int {
	n := 0
	for pos := range p.Owned {
		if sq, err := g.board.Square(pos); err == nil && sq.Kind == kind {
			n++
		}
	}
	return n
}

func (g *Game) sendToJail(p *Participant) {
	p.Pos = board.JailPos
	p.InJail = true
	p.JailRolls = 0
	g.doubles = 0
}

// handleBuy settles the purchase through the ledger before ownership
// moves. A failed payment leaves the property unowned.
func (g *Game) handleBuy(ctx context.Context, p *Participant) error {
	d := g.pending.(BuyOrAuctionDecision)
	sq, _ := g.board.Square(d.Property)
	if err := g.pay(ctx, p, nil, d.Price, "purchase"); err != nil {
		g.eventf("%s's purchase of %s failed, it goes to auction", p.Name, sq.Name)
		g.startAuction(ctx, d.Property, p.ID)
		return err
	}
	g.grantProperty(p, d.Property)
	g.eventf("%s buys %s for %d", p.Name, sq.Name, d.Price)
	g.resumeTurn(ctx)
	return nil
}

func (g *Game) handleDecline(ctx context.Context, p *Participant) error {
	d := g.pending.(BuyOrAuctionDecision)
	sq, _ := g.board.Square(d.Property)
	g.eventf("%s declines %s, it goes to auction", p.Name, sq.Name)
	g.startAuction(ctx, d.Property, p.ID)
	return nil
}

func (g *Game) grantProperty(p *Participant, pos int) {
	pr := g.props[pos]
	pr.Owner = p.ID
	p.Owned[pos] = true
}
