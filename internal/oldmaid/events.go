package oldmaid

// EventType names an outbound event. The transport uses it as the message type.
type EventType string

const (
	EventGameJoined       EventType = "gameJoined"
	EventPlayerJoined     EventType = "playerJoined"
	EventPlayerLeft       EventType = "playerLeft"
	EventRulesUpdated     EventType = "rulesUpdated"
	EventGameStarted      EventType = "gameStarted"
	EventDealtCards       EventType = "dealtCards"
	EventPairDeclared     EventType = "pairDeclared"
	EventCardDrawn        EventType = "cardDrawn"
	EventPlayerDrewCard   EventType = "playerDrewCard"
	EventDeckCountUpdated EventType = "deckCountUpdated"
	EventDeckEmpty        EventType = "deckEmpty"
	EventChooseTarget     EventType = "chooseTarget"
	EventCardTaken        EventType = "cardTaken"
	EventPlayerDrewFrom   EventType = "playerDrawFromPlayer"
	EventPlayerFinished   EventType = "playerFinished"
	EventPlayersCardsInfo EventType = "playersCardsInfo"
	EventCardsRearranged  EventType = "cardsRearranged"
	EventTurnChanged      EventType = "turnChanged"
	EventGameEnded        EventType = "gameEnded"
)

// Event is one of the payload structs below.
type Event interface {
	Type() EventType
}

type GameJoined struct {
	RoomCode string       `json:"roomCode"`
	PlayerID PlayerID     `json:"playerId"`
	HostID   PlayerID     `json:"hostId"`
	Players  []PlayerView `json:"players"`
	Rules    Rules        `json:"rules"`
}

type PlayerJoined struct {
	ID          PlayerID `json:"id"`
	Username    string   `json:"username"`
	PlayerCount int      `json:"playerCount"`
}

type PlayerLeft struct {
	ID       PlayerID `json:"id"`
	Username string   `json:"username"`
	HostID   PlayerID `json:"hostId"`
}

type RulesUpdated struct {
	Rules Rules `json:"rules"`
}

type GameStarted struct {
	CurrentTurn PlayerID     `json:"currentTurn"`
	DeckCount   int          `json:"deckCount"`
	Players     []PlayerView `json:"playersInfo"`
	Rules       Rules        `json:"rules"`
}

type DealtCards struct {
	Cards []Card `json:"cards"`
}

type PairDeclared struct {
	PlayerID           PlayerID `json:"playerId"`
	Cards              []Card   `json:"cards"`
	Pairs              int      `json:"pairs"`
	RemainingCardCount int      `json:"remainingCardCount"`
	Finished           bool     `json:"finished"`
}

// CardDrawn tells the drawing player which card they received. FromPlayerID
// is empty for draws from the deck.
type CardDrawn struct {
	Card         Card     `json:"card"`
	FromPlayerID PlayerID `json:"fromPlayerId,omitempty"`
	FromPosition *int     `json:"fromPosition,omitempty"`
}

type PlayerDrewCard struct {
	PlayerID  PlayerID `json:"playerId"`
	CardCount int      `json:"cardCount"`
}

type DeckCountUpdated struct {
	DeckCount int `json:"deckCount"`
}

type DeckEmpty struct{}

type ChooseTarget struct {
	Targets []PlayerView `json:"targets"`
}

// CardTaken tells a player which of their positions an opponent took.
type CardTaken struct {
	ByPlayerID   PlayerID `json:"byPlayerId"`
	CardPosition int      `json:"cardPosition"`
	CardCount    int      `json:"cardCount"`
}

type PlayerDrewFrom struct {
	PlayerID     PlayerID `json:"playerId"`
	FromPlayerID PlayerID `json:"fromPlayerId"`
	FromPosition int      `json:"fromPosition"`
}

type PlayerFinished struct {
	PlayerID PlayerID `json:"playerId"`
}

type PlayersCardsInfo struct {
	Players []PlayerView `json:"playersInfo"`
}

type CardsRearranged struct {
	Cards []Card `json:"cards"`
}

type TurnChanged struct {
	CurrentTurn PlayerID `json:"currentTurn"`
}

// GameEnded closes the round. Winners are in the order they went out;
// Loser is empty when the round ended without one.
type GameEnded struct {
	Winners []PlayerID `json:"winners"`
	Loser   PlayerID   `json:"loser,omitempty"`
	Reason  EndReason  `json:"reason"`
}

// EndReason explains how a round ended.
type EndReason string

const (
	EndTrickster          EndReason = "trickster"
	EndLastPlayerStanding EndReason = "lastPlayerStanding"
	EndAbandoned          EndReason = "abandoned"
)

func (GameJoined) Type() EventType       { return EventGameJoined }
func (PlayerJoined) Type() EventType     { return EventPlayerJoined }
func (PlayerLeft) Type() EventType       { return EventPlayerLeft }
func (RulesUpdated) Type() EventType     { return EventRulesUpdated }
func (GameStarted) Type() EventType      { return EventGameStarted }
func (DealtCards) Type() EventType       { return EventDealtCards }
func (PairDeclared) Type() EventType     { return EventPairDeclared }
func (CardDrawn) Type() EventType        { return EventCardDrawn }
func (PlayerDrewCard) Type() EventType   { return EventPlayerDrewCard }
func (DeckCountUpdated) Type() EventType { return EventDeckCountUpdated }
func (DeckEmpty) Type() EventType        { return EventDeckEmpty }
func (ChooseTarget) Type() EventType     { return EventChooseTarget }
func (CardTaken) Type() EventType        { return EventCardTaken }
func (PlayerDrewFrom) Type() EventType   { return EventPlayerDrewFrom }
func (PlayerFinished) Type() EventType   { return EventPlayerFinished }
func (PlayersCardsInfo) Type() EventType { return EventPlayersCardsInfo }
func (CardsRearranged) Type() EventType  { return EventCardsRearranged }
func (TurnChanged) Type() EventType      { return EventTurnChanged }
func (GameEnded) Type() EventType        { return EventGameEnded }

// Audience selects who receives an Envelope.
type Audience int

const (
	// AudienceAll is every player in the room.
	AudienceAll Audience = iota
	// AudiencePlayer is only Envelope.PlayerID.
	AudiencePlayer
	// AudienceOthers is everyone except Envelope.PlayerID.
	AudienceOthers
)

// Envelope addresses an Event.
type Envelope struct {
	Audience Audience
	PlayerID PlayerID
	Event    Event
}

type outbox []Envelope

func (o *outbox) all(e Event) {
	*o = append(*o, Envelope{Audience: AudienceAll, Event: e})
}

func (o *outbox) to(id PlayerID, e Event) {
	*o = append(*o, Envelope{Audience: AudiencePlayer, PlayerID: id, Event: e})
}

func (o *outbox) except(id PlayerID, e Event) {
	*o = append(*o, Envelope{Audience: AudienceOthers, PlayerID: id, Event: e})
}
