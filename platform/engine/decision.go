package engine

// DecisionKind names the variants of the pending-decision union.
type DecisionKind string

const (
	KindRollDice           DecisionKind = "roll_dice"
	KindPostRoll           DecisionKind = "post_roll_actions"
	KindBuyOrAuction       DecisionKind = "buy_or_auction_property"
	KindRespondTrade       DecisionKind = "respond_to_trade_offer"
	KindProposeAfterReject DecisionKind = "propose_trade_after_rejection"
	KindAuctionBid         DecisionKind = "auction_bid"
	KindJailOptions        DecisionKind = "jail_options"
	KindLiquidation        DecisionKind = "asset_liquidation_for_debt"
	KindMortgagedReceived  DecisionKind = "handle_received_mortgaged_property"
)

// Decision is the engine's request for the next action: a tagged union
// with one concrete type per kind and a typed context payload.
type Decision interface {
	Kind() DecisionKind
	Actor() int
}

// RollDiceDecision: the active participant must roll.
type RollDiceDecision struct {
	Player int `json:"player"`
}

func (d RollDiceDecision) Kind() DecisionKind { return KindRollDice }
func (d RollDiceDecision) Actor() int         { return d.Player }

// PostRollDecision: asset management after movement resolved.
type PostRollDecision struct {
	Player       int  `json:"player"`
	CanRollAgain bool `json:"can_roll_again"` // doubles grant another pre_roll
}

func (d PostRollDecision) Kind() DecisionKind { return KindPostRoll }
func (d PostRollDecision) Actor() int         { return d.Player }

// BuyOrAuctionDecision: the lander chooses to buy or send to auction.
type BuyOrAuctionDecision struct {
	Player   int   `json:"player"`
	Property int   `json:"property"`
	Price    int64 `json:"price"`
}

func (d BuyOrAuctionDecision) Kind() DecisionKind { return KindBuyOrAuction }
func (d BuyOrAuctionDecision) Actor() int         { return d.Player }

// RespondTradeDecision: the recipient answers a pending offer.
type RespondTradeDecision struct {
	Player  int   `json:"player"`
	TradeID int64 `json:"trade_id"`
}

func (d RespondTradeDecision) Kind() DecisionKind { return KindRespondTrade }
func (d RespondTradeDecision) Actor() int         { return d.Player }

// ProposeAfterRejectionDecision: the proposer may retry within the
// lineage's rejection budget or end the negotiation.
type ProposeAfterRejectionDecision struct {
	Player     int   `json:"player"`
	Lineage    int64 `json:"lineage"`
	Rejections int   `json:"rejections"`
	Recipient  int   `json:"recipient"` // retries must target the same party
}

func (d ProposeAfterRejectionDecision) Kind() DecisionKind { return KindProposeAfterReject }
func (d ProposeAfterRejectionDecision) Actor() int         { return d.Player }

// AuctionBidDecision: the polled bidder bids or passes.
type AuctionBidDecision struct {
	Bidder   int   `json:"bidder"`
	Property int   `json:"property"`
	HighBid  int64 `json:"high_bid"`
	Reserve  int64 `json:"reserve"`
}

func (d AuctionBidDecision) Kind() DecisionKind { return KindAuctionBid }
func (d AuctionBidDecision) Actor() int         { return d.Bidder }

// JailDecision: bail, card, or roll for doubles.
type JailDecision struct {
	Player  int  `json:"player"`
	CanPay  bool `json:"can_pay"`
	HasCard bool `json:"has_card"`
	CanRoll bool `json:"can_roll"`
}

func (d JailDecision) Kind() DecisionKind { return KindJailOptions }
func (d JailDecision) Actor() int         { return d.Player }

// LiquidationDecision: raise cash for an unpayable debt.
type LiquidationDecision struct {
	Player   int   `json:"player"`
	Debt     int64 `json:"debt"`
	Creditor int   `json:"creditor"` // -1 for the bank
}

func (d LiquidationDecision) Kind() DecisionKind { return KindLiquidation }
func (d LiquidationDecision) Actor() int         { return d.Player }

// MortgagedReceivedDecision: a mortgaged property arrived via trade; pay
// the interest fee and keep the mortgage, or lift it immediately.
type MortgagedReceivedDecision struct {
	Player   int   `json:"player"`
	Property int   `json:"property"`
	Fee      int64 `json:"fee"`
	LiftCost int64 `json:"lift_cost"`
}

func (d MortgagedReceivedDecision) Kind() DecisionKind { return KindMortgagedReceived }
func (d MortgagedReceivedDecision) Actor() int         { return d.Player }

// ActionName enumerates every action an agent can choose.
type ActionName string

const (
	ActionRollDice           ActionName = "roll_dice"
	ActionEndTurn            ActionName = "end_turn"
	ActionResign             ActionName = "resign"
	ActionBuyProperty        ActionName = "buy_property"
	ActionDeclineProperty    ActionName = "decline_property"
	ActionBuildHouse         ActionName = "build_house"
	ActionSellHouse          ActionName = "sell_house"
	ActionMortgage           ActionName = "mortgage_property"
	ActionUnmortgage         ActionName = "unmortgage_property"
	ActionProposeTrade       ActionName = "propose_trade"
	ActionAcceptTrade        ActionName = "accept_trade"
	ActionRejectTrade        ActionName = "reject_trade"
	ActionCounterTrade       ActionName = "counter_trade"
	ActionWithdrawTrade      ActionName = "withdraw_trade"
	ActionEndNegotiation     ActionName = "end_negotiation"
	ActionBid                ActionName = "bid"
	ActionPassBid            ActionName = "pass_bid"
	ActionPayBail            ActionName = "pay_bail"
	ActionUseJailCard        ActionName = "use_jail_card"
	ActionRollForDoubles     ActionName = "roll_for_doubles"
	ActionConfirmLiquidation ActionName = "confirm_liquidation"
	ActionPayMortgageFee     ActionName = "pay_mortgage_fee"
	ActionLiftMortgageNow    ActionName = "lift_mortgage_now"
)

// TradeProposal carries the parameters of propose/counter actions.
type TradeProposal struct {
	To      int        `json:"to"`
	Offer   TradeItems `json:"offer"`
	Request TradeItems `json:"request"`
	Message string     `json:"message,omitempty"`
}

// Action is an agent's chosen move plus its parameters.
type Action struct {
	Name     ActionName     `json:"name"`
	Property int            `json:"property,omitempty"`
	Amount   int64          `json:"amount,omitempty"`
	TradeID  int64          `json:"trade_id,omitempty"`
	Trade    *TradeProposal `json:"trade,omitempty"`
}

// LegalActions computes the bounded action list for the current pending
// decision. The dispatcher validates the agent's choice against this same
// list before applying it.
func (g *Game) LegalActions() []ActionName {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.legalActionsLocked()
}

func (g *Game) legalActionsLocked() []ActionName {
	if g.pending == nil || g.status != StatusRunning {
		return nil
	}
	switch d := g.pending.(type) {
	case RollDiceDecision:
		return []ActionName{ActionRollDice, ActionResign}

	case PostRollDecision:
		p := g.players[d.Player]
		var acts []ActionName
		if g.anyBuildable(p) {
			acts = append(acts, ActionBuildHouse)
		}
		if g.anyWithHouses(p) {
			acts = append(acts, ActionSellHouse)
		}
		if g.anyMortgageable(p) {
			acts = append(acts, ActionMortgage)
		}
		if g.anyUnmortgageable(p) {
			acts = append(acts, ActionUnmortgage)
		}
		if g.solventOpponents(d.Player) > 0 && g.tradeInitiations[d.Player] < g.cfg.TradeInitiationsTurn {
			acts = append(acts, ActionProposeTrade)
		}
		if d.CanRollAgain {
			acts = append(acts, ActionRollDice)
		}
		return append(acts, ActionEndTurn, ActionResign)

	case BuyOrAuctionDecision:
		acts := []ActionName{ActionDeclineProperty}
		if g.players[d.Player].Cash >= d.Price {
			acts = append([]ActionName{ActionBuyProperty}, acts...)
		}
		return acts

	case RespondTradeDecision:
		return []ActionName{ActionAcceptTrade, ActionRejectTrade, ActionCounterTrade}

	case ProposeAfterRejectionDecision:
		var acts []ActionName
		if !g.lineageClosed[d.Lineage] && g.tradeInitiations[d.Player] < g.cfg.TradeInitiationsTurn {
			acts = append(acts, ActionProposeTrade)
		}
		return append(acts, ActionEndNegotiation)

	case AuctionBidDecision:
		return []ActionName{ActionBid, ActionPassBid}

	case JailDecision:
		var acts []ActionName
		if d.HasCard {
			acts = append(acts, ActionUseJailCard)
		}
		if d.CanPay {
			acts = append(acts, ActionPayBail)
		}
		if d.CanRoll {
			acts = append(acts, ActionRollForDoubles)
		}
		return acts

	case LiquidationDecision:
		p := g.players[d.Player]
		var acts []ActionName
		if g.anyWithHouses(p) {
			acts = append(acts, ActionSellHouse)
		}
		if g.anyMortgageable(p) {
			acts = append(acts, ActionMortgage)
		}
		return append(acts, ActionConfirmLiquidation)

	case MortgagedReceivedDecision:
		acts := []ActionName{ActionPayMortgageFee}
		if g.players[d.Player].Cash >= d.LiftCost {
			acts = append(acts, ActionLiftMortgageNow)
		}
		return acts
	}
	return nil
}

// defaultAction is the forced fallback applied when an agent times out or
// keeps choosing illegal actions.
func defaultAction(d Decision) Action {
	switch d := d.(type) {
	case RollDiceDecision:
		return Action{Name: ActionRollDice}
	case PostRollDecision:
		return Action{Name: ActionEndTurn}
	case BuyOrAuctionDecision:
		return Action{Name: ActionDeclineProperty}
	case RespondTradeDecision:
		return Action{Name: ActionRejectTrade, TradeID: d.TradeID}
	case ProposeAfterRejectionDecision:
		return Action{Name: ActionEndNegotiation}
	case AuctionBidDecision:
		return Action{Name: ActionPassBid}
	case JailDecision:
		switch {
		case d.CanRoll:
			return Action{Name: ActionRollForDoubles}
		case d.HasCard:
			return Action{Name: ActionUseJailCard}
		default:
			return Action{Name: ActionPayBail}
		}
	case LiquidationDecision:
		return Action{Name: ActionConfirmLiquidation}
	case MortgagedReceivedDecision:
		return Action{Name: ActionPayMortgageFee}
	}
	return Action{Name: ActionEndTurn}
}

func containsAction(list []ActionName, name ActionName) bool {
	for _, a := range list {
		if a == name {
			return true
		}
	}
	return false
}
