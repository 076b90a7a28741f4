package oldmaid

import (
	"fmt"
	"strings"
)

// Status is the lifecycle stage of a room.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

// Game is the authoritative state of one room. It is not safe for concurrent
// use; the owner must serialize calls.
//
// Every action validates its input completely before touching state and
// returns the events the change produced, in emission order. A non-nil error
// means nothing changed and there are no events.
type Game struct {
	code     string
	settings Settings
	rnd      Random

	players     []*Player
	deck        *Deck
	status      Status
	currentTurn int
	winners     []PlayerID
	loser       PlayerID
	endReason   EndReason
	hostID      PlayerID
	rules       Rules
	departed    []Departed

	deckEmptyAnnounced bool
}

// NewGame returns an empty room waiting for players. It fails when settings
// name an unknown rule.
func NewGame(code string, settings Settings, rnd Random) (*Game, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.Aliases == nil {
		settings.Aliases = NewAliases(nil)
	}
	rules := DefaultRules()
	for id, on := range settings.Rules {
		rules[id] = on
	}
	return &Game{
		code:     code,
		settings: settings,
		rnd:      rnd,
		status:   StatusWaiting,
		rules:    rules,
	}, nil
}

func (g *Game) Code() string         { return g.code }
func (g *Game) Status() Status       { return g.status }
func (g *Game) HostID() PlayerID     { return g.hostID }
func (g *Game) PlayerCount() int     { return len(g.players) }
func (g *Game) Loser() PlayerID      { return g.loser }
func (g *Game) EndReason() EndReason { return g.endReason }

// Winners returns the ids of finished players in finishing order.
func (g *Game) Winners() []PlayerID {
	out := make([]PlayerID, len(g.winners))
	copy(out, g.winners)
	return out
}

// CurrentPlayer returns the id of the player holding the turn, or "" when no
// game is in progress.
func (g *Game) CurrentPlayer() PlayerID {
	if g.status != StatusPlaying || len(g.players) == 0 {
		return ""
	}
	return g.players[g.currentTurn].ID
}

func (g *Game) indexOf(id PlayerID) int {
	for i, p := range g.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (g *Game) views() []PlayerView {
	out := make([]PlayerView, len(g.players))
	for i, p := range g.players {
		out[i] = p.view()
	}
	return out
}

// AddPlayer seats a new player. The first player becomes the host.
func (g *Game) AddPlayer(id PlayerID, username string) ([]Envelope, error) {
	if g.status != StatusWaiting {
		return nil, ErrGameAlreadyStarted
	}
	if g.indexOf(id) >= 0 {
		return nil, nil
	}
	if len(g.players) >= g.settings.MaxPlayers {
		return nil, ErrRoomFull
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = fmt.Sprintf("Player %d", len(g.players)+1)
	}
	g.players = append(g.players, &Player{ID: id, Username: username, Hand: NewHand()})
	if len(g.players) == 1 {
		g.hostID = id
	}

	var out outbox
	out.to(id, GameJoined{
		RoomCode: g.code,
		PlayerID: id,
		HostID:   g.hostID,
		Players:  g.views(),
		Rules:    g.rules.Clone(),
	})
	out.except(id, PlayerJoined{ID: id, Username: username, PlayerCount: len(g.players)})
	return out, nil
}

// SetRule toggles a house rule. Only the host may do it, before the game starts.
func (g *Game) SetRule(id PlayerID, rule RuleID, enabled bool) ([]Envelope, error) {
	if g.indexOf(id) < 0 {
		return nil, ErrPlayerNotFound
	}
	if g.status != StatusWaiting {
		return nil, ErrGameAlreadyStarted
	}
	if id != g.hostID {
		return nil, ErrNotRoomHost
	}
	if err := g.rules.Set(rule, enabled); err != nil {
		return nil, err
	}
	var out outbox
	out.all(RulesUpdated{Rules: g.rules.Clone()})
	return out, nil
}

// Start builds and shuffles the deck, deals every player a hand and gives the
// first turn to the first player to join.
func (g *Game) Start(id PlayerID) ([]Envelope, error) {
	if g.indexOf(id) < 0 {
		return nil, ErrPlayerNotFound
	}
	if g.status != StatusWaiting {
		return nil, ErrGameAlreadyStarted
	}
	if id != g.hostID {
		return nil, ErrNotRoomHost
	}
	if len(g.players) < g.settings.MinPlayers {
		return nil, ErrNotEnoughPlayers
	}
	deck, err := BuildDeck(g.settings.Nationalities, g.settings.Aliases)
	if err != nil {
		return nil, err
	}
	deck.Shuffle(g.rnd)

	g.deck = deck
	g.status = StatusPlaying
	g.currentTurn = 0
	for _, p := range g.players {
		for i := 0; i < g.settings.HandSize; i++ {
			card, ok := g.deck.DrawTop()
			if !ok {
				break
			}
			p.Hand.Append(card)
		}
	}

	var out outbox
	out.all(GameStarted{
		CurrentTurn: g.players[0].ID,
		DeckCount:   g.deck.Size(),
		Players:     g.views(),
		Rules:       g.rules.Clone(),
	})
	for _, p := range g.players {
		out.to(p.ID, DealtCards{Cards: p.Hand.Cards()})
	}
	if g.deck.Size() == 0 {
		g.announceDeckEmpty(&out)
	}
	return out, nil
}

// acting returns the player allowed to act now.
func (g *Game) acting(id PlayerID) (*Player, int, error) {
	if g.status != StatusPlaying {
		return nil, -1, ErrGameNotInProgress
	}
	idx := g.indexOf(id)
	if idx < 0 {
		return nil, -1, ErrPlayerNotFound
	}
	p := g.players[idx]
	if p.Finished {
		return nil, -1, ErrPlayerFinished
	}
	if idx != g.currentTurn {
		return nil, -1, ErrNotYourTurn
	}
	return p, idx, nil
}

// DeclarePair lays down two cards from the acting player's hand. Only the ids
// are taken from the client; the cards themselves are looked up in the hand.
//
// A rejected pair does not cost the turn.
func (g *Game) DeclarePair(id PlayerID, cardID1, cardID2 int) ([]Envelope, error) {
	p, _, err := g.acting(id)
	if err != nil {
		return nil, err
	}
	a, ok1 := p.Hand.Find(cardID1)
	b, ok2 := p.Hand.Find(cardID2)
	if !ok1 || !ok2 || cardID1 == cardID2 {
		return nil, ErrCardsNotOwned
	}
	if !isPairWith(g.settings.Aliases, a, b) {
		return nil, ErrInvalidPair
	}
	if _, _, err := p.Hand.RemovePair(cardID1, cardID2); err != nil {
		return nil, err
	}
	p.PairCount++

	finishedNow := false
	if p.Hand.Len() == 0 && !p.Finished {
		p.Finished = true
		finishedNow = true
		g.addWinner(p.ID)
	}

	var out outbox
	out.all(PairDeclared{
		PlayerID:           p.ID,
		Cards:              []Card{a, b},
		Pairs:              p.PairCount,
		RemainingCardCount: p.Hand.Len(),
		Finished:           p.Finished,
	})
	if finishedNow || (g.deck.Size() == 0 && p.Hand.Len() > 0) {
		g.endTurn(&out)
	}
	g.checkGameEnd(&out)
	return out, nil
}

// DrawCard draws from the deck and ends the turn. With an empty deck it
// instead asks the player to pick one of the eligible opponents; the turn is
// kept until they draw from one.
func (g *Game) DrawCard(id PlayerID) ([]Envelope, error) {
	p, idx, err := g.acting(id)
	if err != nil {
		return nil, err
	}
	var out outbox
	if card, ok := g.deck.DrawTop(); ok {
		p.Hand.Append(card)
		out.to(p.ID, CardDrawn{Card: card})
		out.except(p.ID, PlayerDrewCard{PlayerID: p.ID, CardCount: p.Hand.Len()})
		out.all(DeckCountUpdated{DeckCount: g.deck.Size()})
		if g.deck.Size() == 0 {
			g.announceDeckEmpty(&out)
		}
		g.endTurn(&out)
		return out, nil
	}

	targets := g.eligibleTargets(idx)
	if len(targets) == 0 {
		return nil, ErrNoEligibleTarget
	}
	g.announceDeckEmpty(&out)
	views := make([]PlayerView, len(targets))
	for i, t := range targets {
		views[i] = g.players[t].view()
	}
	out.to(p.ID, ChooseTarget{Targets: views})
	return out, nil
}

// DrawCardFromPlayer takes the card at position from an opponent's hand.
// Only allowed once the deck is empty.
func (g *Game) DrawCardFromPlayer(id, from PlayerID, position int) ([]Envelope, error) {
	return g.drawFrom(id, from, &position)
}

// DrawFromPlayer takes a card at a random position from an opponent's hand.
func (g *Game) DrawFromPlayer(id, from PlayerID) ([]Envelope, error) {
	return g.drawFrom(id, from, nil)
}

func (g *Game) drawFrom(id, from PlayerID, position *int) ([]Envelope, error) {
	p, idx, err := g.acting(id)
	if err != nil {
		return nil, err
	}
	if g.deck.Size() > 0 {
		return nil, ErrDeckNotEmpty
	}
	tIdx := g.indexOf(from)
	if tIdx < 0 {
		return nil, ErrPlayerNotFound
	}
	if !containsIndex(g.eligibleTargets(idx), tIdx) {
		return nil, ErrNoEligibleTarget
	}
	target := g.players[tIdx]

	pos := 0
	if position == nil {
		pos = g.rnd.IntN(target.Hand.Len())
	} else {
		pos = *position
	}
	card, err := target.Hand.DrawAt(pos)
	if err != nil {
		return nil, err
	}
	p.Hand.Append(card)

	var out outbox
	out.to(p.ID, CardDrawn{Card: card, FromPlayerID: target.ID, FromPosition: &pos})
	out.to(target.ID, CardTaken{ByPlayerID: p.ID, CardPosition: pos, CardCount: target.Hand.Len()})
	out.all(PlayersCardsInfo{Players: g.views()})
	out.all(PlayerDrewFrom{PlayerID: p.ID, FromPlayerID: target.ID, FromPosition: pos})

	// With nothing left to draw, an emptied hand can never be refilled.
	if target.Hand.Len() == 0 && !target.Finished {
		target.Finished = true
		g.addWinner(target.ID)
		out.all(PlayerFinished{PlayerID: target.ID})
	}
	g.endTurn(&out)
	return out, nil
}

// RearrangeCards reorders the player's own hand. It is not bound to the turn.
func (g *Game) RearrangeCards(id PlayerID, newOrder []int) ([]Envelope, error) {
	if g.status == StatusEnded {
		return nil, ErrGameNotInProgress
	}
	idx := g.indexOf(id)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	p := g.players[idx]
	if err := p.Hand.Reorder(newOrder); err != nil {
		return nil, err
	}
	var out outbox
	out.to(p.ID, CardsRearranged{Cards: p.Hand.Cards()})
	out.except(p.ID, PlayersCardsInfo{Players: g.views()})
	return out, nil
}

// HandSummary reports card counts and positions of every player to id.
func (g *Game) HandSummary(id PlayerID) ([]Envelope, error) {
	if g.indexOf(id) < 0 {
		return nil, ErrPlayerNotFound
	}
	var out outbox
	out.to(id, PlayersCardsInfo{Players: g.views()})
	return out, nil
}

// EligibleTargets returns the players id may draw from right now.
func (g *Game) EligibleTargets(id PlayerID) ([]PlayerID, error) {
	idx := g.indexOf(id)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	targets := g.eligibleTargets(idx)
	out := make([]PlayerID, len(targets))
	for i, t := range targets {
		out[i] = g.players[t].ID
	}
	return out, nil
}

// eligibleTargets lists indexes of opponents idx may draw from: unfinished
// players holding at least one card, narrowed by the active rules.
func (g *Game) eligibleTargets(idx int) []int {
	n := len(g.players)
	var out []int
	for step := 1; step < n; step++ {
		j := (idx + step) % n
		pl := g.players[j]
		if pl.Finished || pl.Hand.Len() == 0 {
			continue
		}
		out = append(out, j)
		if g.rules.Enabled(RuleNextPlayerOnly) {
			break
		}
	}
	return out
}

func containsIndex(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func (g *Game) addWinner(id PlayerID) {
	for _, w := range g.winners {
		if w == id {
			return
		}
	}
	g.winners = append(g.winners, id)
}

func (g *Game) announceDeckEmpty(out *outbox) {
	if g.deckEmptyAnnounced {
		return
	}
	g.deckEmptyAnnounced = true
	out.all(DeckEmpty{})
}

// Snapshot is a read-only view of a room.
type Snapshot struct {
	Code        string       `json:"code"`
	Status      Status       `json:"status"`
	HostID      PlayerID     `json:"hostId"`
	Players     []PlayerView `json:"players"`
	DeckCount   int          `json:"deckCount"`
	CurrentTurn PlayerID     `json:"currentTurn,omitempty"`
	Winners     []PlayerID   `json:"winners"`
	Loser       PlayerID     `json:"loser,omitempty"`
	EndReason   EndReason    `json:"endReason,omitempty"`
	Rules       Rules        `json:"rules"`
}

func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		Code:        g.code,
		Status:      g.status,
		HostID:      g.hostID,
		Players:     g.views(),
		DeckCount:   g.deck.Size(),
		CurrentTurn: g.CurrentPlayer(),
		Winners:     g.Winners(),
		Loser:       g.loser,
		EndReason:   g.endReason,
		Rules:       g.rules.Clone(),
	}
}
