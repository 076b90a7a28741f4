package oldmaid

// PlayerID identifies a player across the room. The transport uses the
// connection's client id.
type PlayerID string

// Player is a seat at the table.
type Player struct {
	ID        PlayerID
	Username  string
	Hand      *Hand
	PairCount int
	// Finished is set once, when the hand empties, and never cleared.
	Finished bool
}

// Departed is what remains of a player who left a game in progress.
type Departed struct {
	ID        PlayerID
	Username  string
	PairCount int
	Cards     []Card
}

// PlayerView is the public part of a player: everything except card faces.
type PlayerView struct {
	ID            PlayerID `json:"id"`
	Username      string   `json:"username"`
	CardCount     int      `json:"cardCount"`
	CardPositions []int    `json:"cardPositions"`
	Pairs         int      `json:"pairs"`
	Finished      bool     `json:"finished"`
}

func (p *Player) view() PlayerView {
	return PlayerView{
		ID:            p.ID,
		Username:      p.Username,
		CardCount:     p.Hand.Len(),
		CardPositions: p.Hand.Positions(),
		Pairs:         p.PairCount,
		Finished:      p.Finished,
	}
}
