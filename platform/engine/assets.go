package engine

import (
	"context"

	"tycoonsim/platform/board"
)

// canBuildAt checks the street-improvement rules: full unmortgaged group,
// even building, below hotel level, cash for the house.
func (g *Game) canBuildAt(p *Participant, pos int) error {
	sq, err := g.board.Square(pos)
	if err != nil || sq.Kind != board.KindStreet {
		return validationf(ErrIllegalAction, "position %d is not a street", pos)
	}
	pr := g.props[pos]
	if pr.Owner != p.ID {
		return &ValidationError{Reason: "not the owner", Items: []string{sq.Name}, Err: ErrIllegalAction}
	}
	if !g.ownsFullGroup(p, sq.Group) {
		return &ValidationError{Reason: "group incomplete or mortgaged", Items: []string{sq.Group}, Err: ErrIllegalAction}
	}
	if pr.Houses >= 5 {
		return &ValidationError{Reason: "already at hotel level", Items: []string{sq.Name}, Err: ErrIllegalAction}
	}
	for _, other := range g.board.Group(sq.Group) {
		if g.props[other].Houses < pr.Houses {
			return &ValidationError{Reason: "must build evenly across the group", Items: []string{sq.Group}, Err: ErrIllegalAction}
		}
	}
	if p.Cash < sq.HouseCost {
		return validationf(ErrInsufficientCash, "house on %s costs %d, cash is %d", sq.Name, sq.HouseCost, p.Cash)
	}
	return nil
}

func (g *Game) handleBuildHouse(ctx context.Context, p *Participant, pos int) error {
	if err := g.canBuildAt(p, pos); err != nil {
		return err
	}
	sq, _ := g.board.Square(pos)
	if err := g.pay(ctx, p, nil, sq.HouseCost, "build_house"); err != nil {
		return err
	}
	g.props[pos].Houses++
	g.eventf("%s builds on %s (now %d)", p.Name, sq.Name, g.props[pos].Houses)
	return nil
}

// handleSellHouse sells one improvement back to the bank at half cost.
// Selling must stay even across the group.
func (g *Game) handleSellHouse(ctx context.Context, p *Participant, pos int) error {
	sq, err := g.board.Square(pos)
	if err != nil || sq.Kind != board.KindStreet {
		return validationf(ErrIllegalAction, "position %d is not a street", pos)
	}
	pr := g.props[pos]
	if pr.Owner != p.ID || pr.Houses == 0 {
		return &ValidationError{Reason: "no houses to sell", Items: []string{sq.Name}, Err: ErrIllegalAction}
	}
	for _, other := range g.board.Group(sq.Group) {
		if g.props[other].Houses > pr.Houses {
			return &ValidationError{Reason: "must sell evenly across the group", Items: []string{sq.Group}, Err: ErrIllegalAction}
		}
	}
	if err := g.pay(ctx, nil, p, sq.HouseCost/2, "sell_house"); err != nil {
		return err
	}
	pr.Houses--
	g.eventf("%s sells a house on %s for %d", p.Name, sq.Name, sq.HouseCost/2)
	return nil
}

func (g *Game) handleMortgage(ctx context.Context, p *Participant, pos int) error {
	sq, err := g.board.Square(pos)
	if err != nil || !sq.Purchasable() {
		return validationf(ErrIllegalAction, "position %d cannot be mortgaged", pos)
	}
	pr := g.props[pos]
	switch {
	case pr.Owner != p.ID:
		return &ValidationError{Reason: "not the owner", Items: []string{sq.Name}, Err: ErrIllegalAction}
	case pr.Mortgaged:
		return &ValidationError{Reason: "already mortgaged", Items: []string{sq.Name}, Err: ErrIllegalAction}
	case pr.Houses > 0:
		return &ValidationError{Reason: "sell the houses first", Items: []string{sq.Name}, Err: ErrIllegalAction}
	}
	if err := g.pay(ctx, nil, p, sq.MortgageValue(), "mortgage"); err != nil {
		return err
	}
	pr.Mortgaged = true
	g.eventf("%s mortgages %s for %d", p.Name, sq.Name, sq.MortgageValue())
	return nil
}

func (g *Game) handleUnmortgage(ctx context.Context, p *Participant, pos int) error {
	sq, err := g.board.Square(pos)
	if err != nil {
		return validationf(ErrIllegalAction, "unknown position %d", pos)
	}
	pr := g.props[pos]
	if pr == nil || pr.Owner != p.ID || !pr.Mortgaged {
		return &ValidationError{Reason: "not a mortgaged property of yours", Items: []string{sq.Name}, Err: ErrIllegalAction}
	}
	cost := unmortgageCost(sq)
	if p.Cash < cost {
		return validationf(ErrInsufficientCash, "lifting %s costs %d, cash is %d", sq.Name, cost, p.Cash)
	}
	if err := g.pay(ctx, p, nil, cost, "unmortgage"); err != nil {
		return err
	}
	pr.Mortgaged = false
	g.eventf("%s lifts the mortgage on %s for %d", p.Name, sq.Name, cost)
	return nil
}

// handleMortgageFee keeps the mortgage on a property received in a trade
// and pays the 10% interest fee.
func (g *Game) handleMortgageFee(ctx context.Context, p *Participant) error {
	d := g.pending.(MortgagedReceivedDecision)
	sq, _ := g.board.Square(d.Property)
	if err := g.charge(ctx, p, nil, d.Fee, "mortgage_transfer_fee"); err != nil {
		// a failed charge keeps the obligation queued
		return err
	}
	p.PendingMortgaged = p.PendingMortgaged[1:]
	// charge may have opened a liquidation decision instead of paying
	if g.debt != nil {
		return nil
	}
	g.eventf("%s pays the %d transfer fee on %s, mortgage stays", p.Name, d.Fee, sq.Name)
	g.resumeTurn(ctx)
	return nil
}

// handleLiftMortgage lifts the mortgage on a received property right away.
func (g *Game) handleLiftMortgage(ctx context.Context, p *Participant) error {
	d := g.pending.(MortgagedReceivedDecision)
	sq, _ := g.board.Square(d.Property)
	if err := g.pay(ctx, p, nil, d.LiftCost, "unmortgage"); err != nil {
		return err
	}
	g.props[d.Property].Mortgaged = false
	p.PendingMortgaged = p.PendingMortgaged[1:]
	g.eventf("%s lifts the mortgage on %s immediately for %d", p.Name, sq.Name, d.LiftCost)
	g.resumeTurn(ctx)
	return nil
}
