package engine

import (
	"context"
)

// startAuction opens a sequential auction for the property the decliner
// refused. Eligibility excludes the decliner unless configured otherwise;
// they can still reacquire the property later by trade.
func (g *Game) startAuction(ctx context.Context, pos, decliner int) {
	sq, _ := g.board.Square(pos)
	var eligible []int
	for i := 1; i <= len(g.players); i++ {
		id := (decliner + i) % len(g.players)
		if g.players[id].Bankrupt {
			continue
		}
		if id == decliner && !g.cfg.AuctionIncludeDecline {
			continue
		}
		eligible = append(eligible, id)
	}
	reserve := int64(float64(sq.Price) * g.cfg.AuctionReserveFrac)

	if len(eligible) == 0 {
		g.eventf("no eligible bidders for %s, it stays with the bank", sq.Name)
		g.resumeTurn(ctx)
		return
	}

	g.auction = &Auction{
		Property:   pos,
		Reserve:    reserve,
		HighBid:    0,
		HighBidder: -1,
		Eligible:   eligible,
		Status:     AuctionRunning,
	}
	g.eventf("auction opens for %s (reserve %d, %d bidders)", sq.Name, reserve, len(eligible))
	g.promptBidder()
}

func (g *Game) promptBidder() {
	a := g.auction
	bidder := a.currentBidder()
	if bidder < 0 {
		return
	}
	g.pending = AuctionBidDecision{
		Bidder:   bidder,
		Property: a.Property,
		HighBid:  a.HighBid,
		Reserve:  a.Reserve,
	}
}

// handleBid applies a bid that strictly exceeds both the high bid and
// the reserve, within the bidder's cash.
func (g *Game) handleBid(ctx context.Context, p *Participant, amount int64) error {
	a := g.auction
	if a == nil || a.Status != AuctionRunning {
		return validationf(ErrNoAuction, "no auction to bid in")
	}
	switch {
	case amount <= 0:
		return validationf(ErrIllegalAction, "bid must be positive")
	case amount <= a.HighBid:
		return validationf(ErrIllegalAction, "bid %d does not beat the high bid %d", amount, a.HighBid)
	case amount <= a.Reserve:
		return validationf(ErrIllegalAction, "bid %d does not exceed the reserve %d", amount, a.Reserve)
	case amount > p.Cash:
		return validationf(ErrInsufficientCash, "bid %d exceeds %s's cash %d", amount, p.Name, p.Cash)
	}
	a.HighBid = amount
	a.HighBidder = p.ID
	g.eventf("%s bids %d", p.Name, amount)
	a.turnIdx = (a.turnIdx + 1) % len(a.Eligible)
	return g.checkAuctionClose(ctx)
}

// handlePass removes the bidder from the auction permanently. A high
// bidder who passes stays bound by their standing bid.
func (g *Game) handlePass(ctx context.Context, p *Participant) error {
	a := g.auction
	if a == nil || a.Status != AuctionRunning {
		return validationf(ErrNoAuction, "no auction to pass in")
	}
	g.eventf("%s passes", p.Name)
	g.removeBidder(p.ID)
	return g.checkAuctionClose(ctx)
}

func (g *Game) removeBidder(id int) {
	a := g.auction
	for i, b := range a.Eligible {
		if b != id {
			continue
		}
		a.Eligible = append(a.Eligible[:i], a.Eligible[i+1:]...)
		if i < a.turnIdx {
			a.turnIdx--
		}
		if len(a.Eligible) > 0 {
			a.turnIdx %= len(a.Eligible)
		} else {
			a.turnIdx = 0
		}
		return
	}
}

// dropBidder handles a bidder leaving mid-auction (bankruptcy). Their
// standing high bid is voided.
func (g *Game) dropBidder(ctx context.Context, id int) {
	a := g.auction
	if a == nil || a.Status != AuctionRunning {
		return
	}
	g.removeBidder(id)
	if a.HighBidder == id {
		a.HighBid = 0
		a.HighBidder = -1
	}
	if err := g.checkAuctionClose(ctx); err != nil {
		g.log.WithError(err).Warn("auction close after bidder drop")
	}
}

// checkAuctionClose closes the auction when no contest remains: either
// everyone left, or only the standing high bidder is still eligible.
func (g *Game) checkAuctionClose(ctx context.Context) error {
	a := g.auction
	switch {
	case len(a.Eligible) == 0:
		return g.closeAuction(ctx)
	case len(a.Eligible) == 1 && a.Eligible[0] == a.HighBidder:
		return g.closeAuction(ctx)
	}
	g.promptBidder()
	return nil
}

// closeAuction settles the winning bid through the ledger before any
// ownership changes. No winner means the property stays with the bank.
func (g *Game) closeAuction(ctx context.Context) error {
	a := g.auction
	a.Status = AuctionClosed
	sq, _ := g.board.Square(a.Property)

	if a.HighBidder < 0 {
		g.eventf("auction for %s closes with no bids, it stays with the bank", sq.Name)
		g.auction = nil
		g.resumeTurn(ctx)
		return nil
	}

	winner := g.players[a.HighBidder]
	if err := g.pay(ctx, winner, nil, a.HighBid, "auction"); err != nil {
		g.eventf("auction settlement for %s failed, it stays with the bank", sq.Name)
		g.auction = nil
		if g.status == StatusRunning {
			g.resumeTurn(ctx)
		}
		return err
	}
	g.grantProperty(winner, a.Property)
	g.eventf("%s wins the auction for %s at %d", winner.Name, sq.Name, a.HighBid)
	g.auction = nil
	g.resumeTurn(ctx)
	return nil
}

// AuctionState returns a copy of the live auction, or nil.
func (g *Game) AuctionState() *Auction {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.auction == nil {
		return nil
	}
	cp := *g.auction
	cp.Eligible = append([]int(nil), g.auction.Eligible...)
	return &cp
}
