package oldmaid

// ErrorCode is a short machine readable reason sent back to the client that
// issued a rejected action.
type ErrorCode string

const (
	CodeNotYourTurn        ErrorCode = "notYourTurn"
	CodePlayerFinished     ErrorCode = "playerFinished"
	CodeCardsNotOwned      ErrorCode = "cardsNotOwned"
	CodeInvalidPair        ErrorCode = "invalidPair"
	CodeInvalidPosition    ErrorCode = "invalidPosition"
	CodeInvalidOrder       ErrorCode = "invalidOrder"
	CodeNoEligibleTarget   ErrorCode = "noEligibleTarget"
	CodeRoomNotFound       ErrorCode = "roomNotFound"
	CodePlayerNotFound     ErrorCode = "playerNotFound"
	CodeRoomFull           ErrorCode = "roomFull"
	CodeGameAlreadyStarted ErrorCode = "gameAlreadyStarted"
	CodeNotEnoughPlayers   ErrorCode = "notEnoughPlayers"
	CodeGameNotInProgress  ErrorCode = "gameNotInProgress"
	CodeDeckNotEmpty       ErrorCode = "deckNotEmpty"
	CodeNotRoomHost        ErrorCode = "notRoomHost"
	CodeUnknownRule        ErrorCode = "unknownRule"
	CodeConfig             ErrorCode = "config"
)

// Error is a rejected action. Every Error leaves the game untouched.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrNotYourTurn        = &Error{CodeNotYourTurn, "Not your turn."}
	ErrPlayerFinished     = &Error{CodePlayerFinished, "You have already finished."}
	ErrCardsNotOwned      = &Error{CodeCardsNotOwned, "You do not have these cards."}
	ErrInvalidPair        = &Error{CodeInvalidPair, "Invalid pair."}
	ErrInvalidPosition    = &Error{CodeInvalidPosition, "Invalid card position."}
	ErrInvalidOrder       = &Error{CodeInvalidOrder, "Invalid card order."}
	ErrNoEligibleTarget   = &Error{CodeNoEligibleTarget, "No player to draw from."}
	ErrRoomNotFound       = &Error{CodeRoomNotFound, "Room not found."}
	ErrPlayerNotFound     = &Error{CodePlayerNotFound, "Player not found."}
	ErrRoomFull           = &Error{CodeRoomFull, "Room is full."}
	ErrGameAlreadyStarted = &Error{CodeGameAlreadyStarted, "Game already started."}
	ErrNotEnoughPlayers   = &Error{CodeNotEnoughPlayers, "Not enough players to start."}
	ErrGameNotInProgress  = &Error{CodeGameNotInProgress, "Game is not in progress."}
	ErrDeckNotEmpty       = &Error{CodeDeckNotEmpty, "Deck is not empty yet."}
	ErrNotRoomHost        = &Error{CodeNotRoomHost, "Only the host can do that."}
	ErrUnknownRule        = &Error{CodeUnknownRule, "Unknown rule."}
	ErrConfig             = &Error{CodeConfig, "Invalid game configuration."}
)
