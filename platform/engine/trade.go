package engine

import (
	"context"
	"errors"
	"fmt"
)

// validateTradeSide checks that party actually holds every item on one
// side of an offer. Failures name the exact items so the proposer can
// correct the offer.
func (g *Game) validateTradeSide(party *Participant, items TradeItems) *ValidationError {
	var bad []string
	for _, pos := range items.Properties {
		pr, ok := g.props[pos]
		if !ok || pr.Owner != party.ID {
			bad = append(bad, fmt.Sprintf("property %d", pos))
			continue
		}
		if pr.Houses > 0 {
			bad = append(bad, fmt.Sprintf("property %d has houses", pos))
		}
	}
	if items.Cash < 0 {
		bad = append(bad, "negative cash")
	} else if items.Cash > party.Cash {
		bad = append(bad, fmt.Sprintf("cash %d exceeds balance %d", items.Cash, party.Cash))
	}
	if items.JailCards < 0 || items.JailCards > party.JailCards {
		bad = append(bad, fmt.Sprintf("%d jail cards", items.JailCards))
	}
	if len(bad) > 0 {
		return &ValidationError{Reason: party.Name + " does not hold the listed items", Items: bad, Err: ErrIllegalAction}
	}
	return nil
}

func (g *Game) validateOffer(proposer, recipient *Participant, prop *TradeProposal) error {
	if prop == nil {
		return validationf(ErrIllegalAction, "trade action without a proposal")
	}
	if recipient == nil || recipient.Bankrupt {
		return validationf(ErrIllegalAction, "recipient is not in the game")
	}
	if recipient.ID == proposer.ID {
		return validationf(ErrIllegalAction, "cannot trade with yourself")
	}
	if prop.Offer.empty() && prop.Request.empty() {
		return validationf(ErrIllegalAction, "offer and request are both empty")
	}
	if err := g.validateTradeSide(proposer, prop.Offer); err != nil {
		return err
	}
	if err := g.validateTradeSide(recipient, prop.Request); err != nil {
		return err
	}
	return nil
}

// newOffer registers an offer under a lineage and points the pending
// decision at the recipient.
func (g *Game) newOffer(proposer *Participant, prop *TradeProposal, lineage int64) *TradeOffer {
	g.nextTradeID++
	id := g.nextTradeID
	if lineage == 0 {
		lineage = id
	}
	offer := &TradeOffer{
		ID:        id,
		Lineage:   lineage,
		Proposer:  proposer.ID,
		Recipient: prop.To,
		Offer:     prop.Offer,
		Request:   prop.Request,
		Status:    TradePending,
		Message:   prop.Message,
		Turn:      g.turn,
	}
	g.trades[id] = offer
	g.pending = RespondTradeDecision{Player: prop.To, TradeID: id}
	return offer
}

// handlePropose opens a negotiation, or retries inside an existing
// lineage after a rejection. Trade initiations are rate limited per
// participant per turn.
func (g *Game) handlePropose(p *Participant, prop *TradeProposal) error {
	var lineage int64
	if d, ok := g.pending.(ProposeAfterRejectionDecision); ok {
		if g.lineageClosed[d.Lineage] {
			return validationf(ErrLineageClosed, "negotiation %d has used its rejection budget", d.Lineage)
		}
		if prop != nil && prop.To != d.Recipient {
			return validationf(ErrIllegalAction, "retry must target participant %d", d.Recipient)
		}
		lineage = d.Lineage
	}
	if g.tradeInitiations[p.ID] >= g.cfg.TradeInitiationsTurn {
		return &RateLimitError{Player: p.ID, Limit: g.cfg.TradeInitiationsTurn}
	}
	if err := g.validateOffer(p, g.playerByID(prop), prop); err != nil {
		return err
	}
	g.tradeInitiations[p.ID]++
	offer := g.newOffer(p, prop, lineage)
	g.eventf("%s offers trade #%d to %s", p.Name, offer.ID, g.players[offer.Recipient].Name)
	return nil
}

func (g *Game) playerByID(prop *TradeProposal) *Participant {
	if prop == nil || prop.To < 0 || prop.To >= len(g.players) {
		return nil
	}
	return g.players[prop.To]
}

func (g *Game) pendingOffer(id int64) (*TradeOffer, error) {
	offer, ok := g.trades[id]
	if !ok {
		return nil, validationf(ErrUnknownTrade, "trade %d does not exist", id)
	}
	if offer.Status != TradePending {
		return nil, validationf(ErrUnknownTrade, "trade %d is %s", id, offer.Status)
	}
	return offer, nil
}

// handleAcceptTrade re-validates both sides against current state, then
// executes atomically: cash legs settle through the ledger first, with a
// compensating transfer if the second leg fails, and only then do
// properties and cards move.
func (g *Game) handleAcceptTrade(ctx context.Context, p *Participant, id int64) error {
	offer, err := g.pendingOffer(id)
	if err != nil {
		return err
	}
	if offer.Recipient != p.ID {
		return validationf(ErrNotYourTurn, "trade %d is not addressed to %s", id, p.Name)
	}
	proposer := g.players[offer.Proposer]

	// state may have drifted since the offer was made; a side that no
	// longer holds its items auto-rejects instead of leaving the offer open
	if verr := g.validateTradeSide(proposer, offer.Offer); verr != nil {
		return g.autoReject(offer, verr)
	}
	if verr := g.validateTradeSide(p, offer.Request); verr != nil {
		return g.autoReject(offer, verr)
	}

	if offer.Offer.Cash > 0 {
		if err := g.pay(ctx, proposer, p, offer.Offer.Cash, "trade_cash"); err != nil {
			return err
		}
	}
	if offer.Request.Cash > 0 {
		if err := g.pay(ctx, p, proposer, offer.Request.Cash, "trade_cash"); err != nil {
			if offer.Offer.Cash > 0 && g.status == StatusRunning {
				// unwind the first leg so neither side is half-paid
				if cerr := g.pay(ctx, p, proposer, offer.Offer.Cash, "trade_compensation"); cerr != nil {
					g.log.WithError(cerr).Error("trade compensation failed, cash legs diverged")
					if g.status == StatusRunning {
						var perr *PaymentError
						txID := ""
						if errors.As(cerr, &perr) {
							txID = perr.TxID
						}
						g.stall(txID, "trade compensation failed")
					}
				}
			}
			return err
		}
	}

	g.moveTradeItems(proposer, p, offer.Offer)
	g.moveTradeItems(p, proposer, offer.Request)
	offer.Status = TradeAccepted
	g.lineageClosed[offer.Lineage] = true
	g.eventf("%s accepts trade #%d from %s", p.Name, offer.ID, proposer.Name)
	g.resumeTurn(ctx)
	return nil
}

// moveTradeItems transfers properties and jail cards for one side.
// Mortgaged properties queue the fee-or-lift decision on the receiver.
func (g *Game) moveTradeItems(from, to *Participant, items TradeItems) {
	for _, pos := range items.Properties {
		pr := g.props[pos]
		delete(from.Owned, pos)
		pr.Owner = to.ID
		to.Owned[pos] = true
		if pr.Mortgaged {
			to.PendingMortgaged = append(to.PendingMortgaged, pos)
		}
	}
	from.JailCards -= items.JailCards
	to.JailCards += items.JailCards
}

// autoReject closes an offer whose items stopped validating between
// proposal and acceptance. The lineage's rejection budget is not charged;
// neither party chose this outcome.
func (g *Game) autoReject(offer *TradeOffer, verr *ValidationError) error {
	offer.Status = TradeRejected
	g.eventf("trade #%d auto-rejected: %s %v", offer.ID, verr.Reason, verr.Items)
	g.pending = ProposeAfterRejectionDecision{
		Player:     offer.Proposer,
		Lineage:    offer.Lineage,
		Rejections: g.lineageRejects[offer.Lineage],
		Recipient:  offer.Recipient,
	}
	return nil
}

// handleRejectTrade burns one unit of the lineage's rejection budget.
// Within budget the proposer may retry; at the cap the lineage closes.
func (g *Game) handleRejectTrade(p *Participant, id int64) error {
	offer, err := g.pendingOffer(id)
	if err != nil {
		return err
	}
	if offer.Recipient != p.ID {
		return validationf(ErrNotYourTurn, "trade %d is not addressed to %s", id, p.Name)
	}
	offer.Status = TradeRejected
	g.lineageRejects[offer.Lineage]++
	n := g.lineageRejects[offer.Lineage]
	g.eventf("%s rejects trade #%d (rejection %d/%d in this negotiation)", p.Name, id, n, g.cfg.TradeMaxRejections)

	if n >= g.cfg.TradeMaxRejections {
		g.lineageClosed[offer.Lineage] = true
		g.eventf("negotiation %d is closed after %d rejections", offer.Lineage, n)
	}
	g.pending = ProposeAfterRejectionDecision{
		Player:     offer.Proposer,
		Lineage:    offer.Lineage,
		Rejections: n,
		Recipient:  offer.Recipient,
	}
	return nil
}

// handleCounterTrade flips the roles: the recipient proposes back inside
// the same lineage. Countering counts as a trade initiation for the
// counter-proposer's rate limit.
func (g *Game) handleCounterTrade(p *Participant, id int64, prop *TradeProposal) error {
	offer, err := g.pendingOffer(id)
	if err != nil {
		return err
	}
	if offer.Recipient != p.ID {
		return validationf(ErrNotYourTurn, "trade %d is not addressed to %s", id, p.Name)
	}
	if g.tradeInitiations[p.ID] >= g.cfg.TradeInitiationsTurn {
		return &RateLimitError{Player: p.ID, Limit: g.cfg.TradeInitiationsTurn}
	}
	if prop == nil {
		return validationf(ErrIllegalAction, "counter without a proposal")
	}
	counter := *prop
	counter.To = offer.Proposer
	if err := g.validateOffer(p, g.players[offer.Proposer], &counter); err != nil {
		return err
	}
	offer.Status = TradeCountered
	g.tradeInitiations[p.ID]++
	next := g.newOffer(p, &counter, offer.Lineage)
	g.eventf("%s counters trade #%d with #%d", p.Name, id, next.ID)
	return nil
}

// WithdrawTrade lets the proposer pull a still-pending offer off the
// table. It is a transport-level entry point rather than a decision
// action, since the pending decision belongs to the recipient.
func (g *Game) WithdrawTrade(ctx context.Context, player int, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != StatusRunning {
		return validationf(ErrGameOver, "game %s is not running", g.ID)
	}
	offer, err := g.pendingOffer(id)
	if err != nil {
		return err
	}
	if offer.Proposer != player {
		return validationf(ErrNotYourTurn, "only the proposer may withdraw trade %d", id)
	}
	d, ok := g.pending.(RespondTradeDecision)
	if !ok || d.TradeID != id {
		return validationf(ErrUnknownTrade, "trade %d is not awaiting a response", id)
	}
	offer.Status = TradeWithdrawn
	g.eventf("%s withdraws trade #%d", g.players[player].Name, id)
	g.resumeTurn(ctx)
	g.publish()
	return nil
}

// Trade returns a copy of one offer for transports and tests.
func (g *Game) Trade(id int64) (TradeOffer, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	offer, ok := g.trades[id]
	if !ok {
		return TradeOffer{}, false
	}
	return *offer, true
}
