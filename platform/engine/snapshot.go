package engine

// Snapshot is the full serializable game view published after every
// applied action. Transports and the cache layer consume it as-is.
type Snapshot struct {
	GameID  string     `json:"game_id"`
	Status  GameStatus `json:"status"`
	Turn    int        `json:"turn"`
	Current int        `json:"current"`
	Phase   Phase      `json:"phase"`
	Dice    [2]int     `json:"dice"`

	Players    []PlayerView `json:"players"`
	Properties []Property   `json:"properties"`
	Auction    *Auction     `json:"auction,omitempty"`
	Result     *Result      `json:"result,omitempty"`

	Decision     DecisionKind `json:"decision,omitempty"`
	Actor        int          `json:"actor"`
	LegalActions []ActionName `json:"legal_actions,omitempty"`

	Events []string `json:"events,omitempty"`
}

// PlayerView is the public projection of one participant.
type PlayerView struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Cash      int64  `json:"cash"`
	Pos       int    `json:"pos"`
	InJail    bool   `json:"in_jail"`
	JailCards int    `json:"jail_cards"`
	Bankrupt  bool   `json:"bankrupt"`
	Owned     []int  `json:"owned"`
}

// State returns a snapshot of the current game state.
func (g *Game) State() *Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		GameID:  g.ID,
		Status:  g.status,
		Turn:    g.turn,
		Current: g.current,
		Phase:   g.phase,
		Dice:    g.dice,
		Result:  g.result,
		Actor:   -1,
	}
	for _, p := range g.players {
		snap.Players = append(snap.Players, PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Cash:      p.Cash,
			Pos:       p.Pos,
			InJail:    p.InJail,
			JailCards: p.JailCards,
			Bankrupt:  p.Bankrupt,
			Owned:     p.OwnedList(),
		})
	}
	for _, pos := range g.board.Purchasables() {
		snap.Properties = append(snap.Properties, *g.props[pos])
	}
	if g.auction != nil {
		cp := *g.auction
		cp.Eligible = append([]int(nil), g.auction.Eligible...)
		snap.Auction = &cp
	}
	if g.pending != nil {
		snap.Decision = g.pending.Kind()
		snap.Actor = g.pending.Actor()
		snap.LegalActions = g.legalActionsLocked()
	}
	if n := len(g.events); n > 0 {
		tail := 10
		if n < tail {
			tail = n
		}
		snap.Events = append([]string(nil), g.events[n-tail:]...)
	}
	return snap
}
