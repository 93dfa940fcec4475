package engine

import (
	"context"
)

// setJailDecision prompts the jailed participant. When every option is
// exhausted (attempts spent, no card, cash short) bail is forced, which
// may cascade into liquidation.
func (g *Game) setJailDecision(ctx context.Context, p *Participant) {
	d := JailDecision{
		Player:  p.ID,
		CanPay:  p.Cash >= g.cfg.BailAmount,
		HasCard: p.JailCards > 0,
		CanRoll: p.JailRolls < g.cfg.MaxJailRollAttempts,
	}
	if !d.CanPay && !d.HasCard && !d.CanRoll {
		g.eventf("%s is out of jail options, bail is forced", p.Name)
		g.forceBail(ctx, p)
		return
	}
	g.pending = d
}

// forceBail charges bail unconditionally after the roll attempts ran out.
func (g *Game) forceBail(ctx context.Context, p *Participant) {
	p.InJail = false
	p.JailRolls = 0
	if err := g.charge(ctx, p, nil, g.cfg.BailAmount, "bail"); err != nil {
		g.log.WithError(err).Warnf("forced bail for %s failed", p.Name)
		return
	}
	if g.debt != nil {
		return
	}
	g.pending = RollDiceDecision{Player: p.ID}
}

func (g *Game) handlePayBail(ctx context.Context, p *Participant) error {
	if !p.InJail {
		return validationf(ErrNotInJail, "%s is not in jail", p.Name)
	}
	if err := g.pay(ctx, p, nil, g.cfg.BailAmount, "bail"); err != nil {
		return err
	}
	p.InJail = false
	p.JailRolls = 0
	g.eventf("%s pays %d bail and is released", p.Name, g.cfg.BailAmount)
	g.pending = RollDiceDecision{Player: p.ID}
	return nil
}

func (g *Game) handleUseJailCard(ctx context.Context, p *Participant) error {
	if !p.InJail {
		return validationf(ErrNotInJail, "%s is not in jail", p.Name)
	}
	if p.JailCards == 0 {
		return validationf(ErrIllegalAction, "%s has no get-out-of-jail card", p.Name)
	}
	p.JailCards--
	p.InJail = false
	p.JailRolls = 0
	g.eventf("%s uses a get-out-of-jail card", p.Name)
	g.pending = RollDiceDecision{Player: p.ID}
	return nil
}

// handleJailRoll rolls for doubles. A double releases and moves without a
// bonus roll. The final failed attempt forces bail and the move proceeds
// with the rolled total, matching the tabletop rule.
func (g *Game) handleJailRoll(ctx context.Context, p *Participant) error {
	if !p.InJail {
		return validationf(ErrNotInJail, "%s is not in jail", p.Name)
	}
	d1, d2 := g.rollDice()
	g.dice = [2]int{d1, d2}
	p.JailRolls++

	if d1 == d2 {
		g.eventf("%s rolls %d+%d, doubles, released from jail", p.Name, d1, d2)
		p.InJail = false
		p.JailRolls = 0
		g.phase = PhasePostRoll
		g.doubles = 0 // release roll does not earn a bonus roll
		return g.moveBy(ctx, p, d1+d2)
	}

	g.eventf("%s rolls %d+%d, no doubles (attempt %d/%d)", p.Name, d1, d2, p.JailRolls, g.cfg.MaxJailRollAttempts)
	if p.JailRolls >= g.cfg.MaxJailRollAttempts {
		g.eventf("%s must pay bail after the final attempt", p.Name)
		p.InJail = false
		p.JailRolls = 0
		if err := g.charge(ctx, p, nil, g.cfg.BailAmount, "bail"); err != nil {
			return err
		}
		if g.debt != nil {
			return nil
		}
		g.phase = PhasePostRoll
		return g.moveBy(ctx, p, d1+d2)
	}
	// stay in jail, turn passes
	g.advanceTurn(ctx)
	return nil
}
