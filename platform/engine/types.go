package engine

// Participant is one seat at the table. Cash is a local cache; the
// authoritative balance lives in the external ledger and the cache is
// reconciled on every settled transfer.
type Participant struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	Account   string         `json:"account"`
	Cash      int64          `json:"cash"`
	Pos       int            `json:"pos"`
	InJail    bool           `json:"in_jail"`
	JailRolls int            `json:"jail_rolls"`
	JailCards int            `json:"jail_cards"`
	Bankrupt  bool           `json:"bankrupt"`
	Owned     map[int]bool   `json:"-"`
	// Mortgaged properties received in trades, awaiting the fee-or-lift
	// decision at the start of the receiver's next turn.
	PendingMortgaged []int `json:"pending_mortgaged,omitempty"`
}

// OwnedList returns the owned positions in board order.
func (p *Participant) OwnedList() []int {
	out := make([]int, 0, len(p.Owned))
	for pos := 0; pos < 40; pos++ {
		if p.Owned[pos] {
			out = append(out, pos)
		}
	}
	return out
}

// Property is the runtime state of one purchasable square.
type Property struct {
	Pos       int  `json:"pos"`
	Owner     int  `json:"owner"` // -1 when unowned
	Mortgaged bool `json:"mortgaged"`
	Houses    int  `json:"houses"` // 0..5, 5 is a hotel
}

// Phase is the within-turn phase of the active participant.
type Phase string

const (
	PhasePreRoll  Phase = "pre_roll"
	PhasePostRoll Phase = "post_roll"
)

// GameStatus is the lifecycle of a game instance.
type GameStatus string

const (
	StatusRunning  GameStatus = "running"
	StatusStalled  GameStatus = "stalled" // payment outcome unknown, needs operator
	StatusFinished GameStatus = "finished"
	StatusAborted  GameStatus = "aborted" // invariant violation
)

// EndReason distinguishes the terminal states.
type EndReason string

const (
	EndWinner   EndReason = "winner"
	EndMaxTurns EndReason = "max_turns_reached"
	EndAborted  EndReason = "aborted"
)

// Result is the terminal report of a finished game.
type Result struct {
	Reason EndReason `json:"reason"`
	Winner int       `json:"winner"` // -1 when there is none
	Turns  int       `json:"turns"`
}

// TradeStatus is the lifecycle of one trade offer.
type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeAccepted  TradeStatus = "accepted"
	TradeRejected  TradeStatus = "rejected"
	TradeCountered TradeStatus = "countered"
	TradeWithdrawn TradeStatus = "withdrawn"
)

// TradeItems is one side of an offer.
type TradeItems struct {
	Properties []int `json:"properties,omitempty"`
	Cash       int64 `json:"cash,omitempty"`
	JailCards  int   `json:"jail_cards,omitempty"`
}

func (t TradeItems) empty() bool {
	return len(t.Properties) == 0 && t.Cash == 0 && t.JailCards == 0
}

// TradeOffer is one offer in a negotiation lineage. The rejection budget
// belongs to the lineage (the root offer and every counter descending from
// it), not to the individual offer.
type TradeOffer struct {
	ID        int64       `json:"id"`
	Lineage   int64       `json:"lineage"`
	Proposer  int         `json:"proposer"`
	Recipient int         `json:"recipient"`
	Offer     TradeItems  `json:"offer"`
	Request   TradeItems  `json:"request"`
	Status    TradeStatus `json:"status"`
	Message   string      `json:"message,omitempty"`
	Turn      int         `json:"turn"`
}

// AuctionStatus is the auction lifecycle.
type AuctionStatus string

const (
	AuctionNotRunning AuctionStatus = "not_running"
	AuctionRunning    AuctionStatus = "running"
	AuctionClosed     AuctionStatus = "closed"
)

// Auction is a live auction for one property.
type Auction struct {
	Property   int           `json:"property"`
	Reserve    int64         `json:"reserve"`
	HighBid    int64         `json:"high_bid"`
	HighBidder int           `json:"high_bidder"` // -1 until a bid lands
	Eligible   []int         `json:"eligible"`    // remaining bidders, poll order
	turnIdx    int           // index into Eligible of the bidder being polled
	Status     AuctionStatus `json:"status"`
}

// currentBidder returns the participant being polled, or -1 when closed.
func (a *Auction) currentBidder() int {
	if a.Status != AuctionRunning || len(a.Eligible) == 0 {
		return -1
	}
	return a.Eligible[a.turnIdx%len(a.Eligible)]
}
