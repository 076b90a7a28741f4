package internal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JDRadatti/oldmaid/internal/oldmaid"
)

type ServerMessageType string
type ServerErrorCode string
type ClientMessageType string

const (
	ServerMessageConnectSuccess ServerMessageType = "connectSuccess"
	ServerMessageRoomCreated    ServerMessageType = "roomCreated"
	ServerMessageRoomLeft       ServerMessageType = "roomLeft"
	ServerMessageRoomClosed     ServerMessageType = "roomClosed"
	ServerMessageError          ServerMessageType = "error"

	// Game events keep the engine's names.
	ServerMessageGameJoined       = ServerMessageType(oldmaid.EventGameJoined)
	ServerMessagePlayerJoined     = ServerMessageType(oldmaid.EventPlayerJoined)
	ServerMessagePlayerLeft       = ServerMessageType(oldmaid.EventPlayerLeft)
	ServerMessageRulesUpdated     = ServerMessageType(oldmaid.EventRulesUpdated)
	ServerMessageGameStarted      = ServerMessageType(oldmaid.EventGameStarted)
	ServerMessageDealtCards       = ServerMessageType(oldmaid.EventDealtCards)
	ServerMessagePairDeclared     = ServerMessageType(oldmaid.EventPairDeclared)
	ServerMessageCardDrawn        = ServerMessageType(oldmaid.EventCardDrawn)
	ServerMessagePlayerDrewCard   = ServerMessageType(oldmaid.EventPlayerDrewCard)
	ServerMessageDeckCountUpdated = ServerMessageType(oldmaid.EventDeckCountUpdated)
	ServerMessageDeckEmpty        = ServerMessageType(oldmaid.EventDeckEmpty)
	ServerMessageChooseTarget     = ServerMessageType(oldmaid.EventChooseTarget)
	ServerMessageCardTaken        = ServerMessageType(oldmaid.EventCardTaken)
	ServerMessagePlayerDrewFrom   = ServerMessageType(oldmaid.EventPlayerDrewFrom)
	ServerMessagePlayerFinished   = ServerMessageType(oldmaid.EventPlayerFinished)
	ServerMessagePlayersCardsInfo = ServerMessageType(oldmaid.EventPlayersCardsInfo)
	ServerMessageCardsRearranged  = ServerMessageType(oldmaid.EventCardsRearranged)
	ServerMessageTurnChanged      = ServerMessageType(oldmaid.EventTurnChanged)
	ServerMessageGameEnded        = ServerMessageType(oldmaid.EventGameEnded)
)

// Transport level error codes. Rejected game actions use the engine's codes,
// see errorCode.
const (
	ErrorCodeInvalidRequest ServerErrorCode = "invalidRequest"
	ErrorCodeAlreadyInRoom  ServerErrorCode = "alreadyInRoom"
	ErrorCodeNotInRoom      ServerErrorCode = "notInRoom"
	ErrorCodeInternal       ServerErrorCode = "internal"

	ErrorCodeRoomNotFound = ServerErrorCode(oldmaid.CodeRoomNotFound)
)

const (
	ClientMessageCreateRoom         ClientMessageType = "createRoom"
	ClientMessageJoinRoom           ClientMessageType = "joinRoom"
	ClientMessageLeaveRoom          ClientMessageType = "leaveRoom"
	ClientMessageSetRule            ClientMessageType = "setRule"
	ClientMessageStartGame          ClientMessageType = "startGame"
	ClientMessageDeclarePair        ClientMessageType = "declarePair"
	ClientMessageDrawCard           ClientMessageType = "drawCard"
	ClientMessageDrawCardFromPlayer ClientMessageType = "drawCardFromPlayer"
	ClientMessageDrawFromPlayer     ClientMessageType = "drawFromPlayer"
	ClientMessageRearrangeCards     ClientMessageType = "rearrangeCards"
	ClientMessageGetHandSummary     ClientMessageType = "getHandSummary"
)

// errorCode maps a rejected action to the code sent to the client.
func errorCode(err error) ServerErrorCode {
	var e *oldmaid.Error
	if errors.As(err, &e) {
		return ServerErrorCode(e.Code)
	}
	return ErrorCodeInternal
}

// ---------------------------------------------------------------------
// Client Messages
// ---------------------------------------------------------------------

type ClientMessage struct {
	Type    ClientMessageType `json:"type"`
	Payload json.RawMessage   `json:"payload"`
}

type ClientMessageCreateRoomPayload struct {
	Username string `json:"username"`
}

type ClientMessageJoinRoomPayload struct {
	RoomCode RoomCode `json:"roomCode"`
	Username string   `json:"username"`
}

type ClientMessageLeaveRoomPayload struct{}

type ClientMessageSetRulePayload struct {
	Rule    oldmaid.RuleID `json:"rule"`
	Enabled bool           `json:"enabled"`
}

type ClientMessageStartGamePayload struct{}

type ClientMessageDeclarePairPayload struct {
	CardID1 int `json:"cardId1"`
	CardID2 int `json:"cardId2"`
}

type ClientMessageDrawCardPayload struct{}

// ClientMessageDrawCardFromPlayerPayload names the position to take. A
// missing cardPosition is rejected rather than read as 0.
type ClientMessageDrawCardFromPlayerPayload struct {
	FromPlayerID oldmaid.PlayerID `json:"fromPlayerId"`
	CardPosition *int             `json:"cardPosition"`
}

type ClientMessageDrawFromPlayerPayload struct {
	FromPlayerID oldmaid.PlayerID `json:"fromPlayerId"`
}

// ClientMessageRearrangeCardsPayload carries the new order as plain JSON
// numbers; they are checked to be a permutation of whole numbers before use.
type ClientMessageRearrangeCardsPayload struct {
	NewOrder []float64 `json:"newOrder"`
}

type ClientMessageGetHandSummaryPayload struct{}

// ---------------------------------------------------------------------
// Server Messages
// ---------------------------------------------------------------------

type ServerMessage struct {
	Type    ServerMessageType `json:"type"`
	Payload json.RawMessage   `json:"payload"`
}

type ServerMessageConnectSuccessPayload struct {
	ClientID ClientID `json:"clientId"`
}

type ServerMessageRoomCreatedPayload struct {
	RoomCode RoomCode         `json:"roomCode"`
	PlayerID oldmaid.PlayerID `json:"playerId"`
}

type ServerMessageRoomLeftPayload struct {
	RoomCode RoomCode `json:"roomCode"`
	Reason   string   `json:"reason"`
}

type ServerMessageRoomClosedPayload struct {
	RoomCode RoomCode `json:"roomCode"`
	Reason   string   `json:"reason"`
}

type ServerMessageErrorPayload struct {
	Code        ServerErrorCode   `json:"code"`
	Message     string            `json:"message"`
	RequestType ClientMessageType `json:"requestType,omitempty"`
}

func decode[T any](raw json.RawMessage) (any, error) {
	var p T
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// UnmarshalServerMessage decodes the Payload of a ServerMessage
// into its corresponding typed payload struct.
//
// Returns (payload, error)
func UnmarshalServerMessage(msg ServerMessage) (any, error) {
	switch msg.Type {
	case ServerMessageConnectSuccess:
		return decode[ServerMessageConnectSuccessPayload](msg.Payload)
	case ServerMessageRoomCreated:
		return decode[ServerMessageRoomCreatedPayload](msg.Payload)
	case ServerMessageRoomLeft:
		return decode[ServerMessageRoomLeftPayload](msg.Payload)
	case ServerMessageRoomClosed:
		return decode[ServerMessageRoomClosedPayload](msg.Payload)
	case ServerMessageError:
		return decode[ServerMessageErrorPayload](msg.Payload)

	case ServerMessageGameJoined:
		return decode[oldmaid.GameJoined](msg.Payload)
	case ServerMessagePlayerJoined:
		return decode[oldmaid.PlayerJoined](msg.Payload)
	case ServerMessagePlayerLeft:
		return decode[oldmaid.PlayerLeft](msg.Payload)
	case ServerMessageRulesUpdated:
		return decode[oldmaid.RulesUpdated](msg.Payload)
	case ServerMessageGameStarted:
		return decode[oldmaid.GameStarted](msg.Payload)
	case ServerMessageDealtCards:
		return decode[oldmaid.DealtCards](msg.Payload)
	case ServerMessagePairDeclared:
		return decode[oldmaid.PairDeclared](msg.Payload)
	case ServerMessageCardDrawn:
		return decode[oldmaid.CardDrawn](msg.Payload)
	case ServerMessagePlayerDrewCard:
		return decode[oldmaid.PlayerDrewCard](msg.Payload)
	case ServerMessageDeckCountUpdated:
		return decode[oldmaid.DeckCountUpdated](msg.Payload)
	case ServerMessageDeckEmpty:
		return decode[oldmaid.DeckEmpty](msg.Payload)
	case ServerMessageChooseTarget:
		return decode[oldmaid.ChooseTarget](msg.Payload)
	case ServerMessageCardTaken:
		return decode[oldmaid.CardTaken](msg.Payload)
	case ServerMessagePlayerDrewFrom:
		return decode[oldmaid.PlayerDrewFrom](msg.Payload)
	case ServerMessagePlayerFinished:
		return decode[oldmaid.PlayerFinished](msg.Payload)
	case ServerMessagePlayersCardsInfo:
		return decode[oldmaid.PlayersCardsInfo](msg.Payload)
	case ServerMessageCardsRearranged:
		return decode[oldmaid.CardsRearranged](msg.Payload)
	case ServerMessageTurnChanged:
		return decode[oldmaid.TurnChanged](msg.Payload)
	case ServerMessageGameEnded:
		return decode[oldmaid.GameEnded](msg.Payload)

	default:
		return nil, fmt.Errorf("unknown server message type: %s", msg.Type)
	}
}

// UnmarshalClientMessage decodes the ClientMessage payload
// into the appropriate typed struct depending on msg.Type.
// A missing payload is read as an empty object.
//
// Returns (payload, error)
func UnmarshalClientMessage(msg ClientMessage) (any, error) {
	switch msg.Type {
	case ClientMessageCreateRoom:
		return decode[ClientMessageCreateRoomPayload](msg.Payload)
	case ClientMessageJoinRoom:
		return decode[ClientMessageJoinRoomPayload](msg.Payload)
	case ClientMessageLeaveRoom:
		return decode[ClientMessageLeaveRoomPayload](msg.Payload)
	case ClientMessageSetRule:
		return decode[ClientMessageSetRulePayload](msg.Payload)
	case ClientMessageStartGame:
		return decode[ClientMessageStartGamePayload](msg.Payload)
	case ClientMessageDeclarePair:
		return decode[ClientMessageDeclarePairPayload](msg.Payload)
	case ClientMessageDrawCard:
		return decode[ClientMessageDrawCardPayload](msg.Payload)
	case ClientMessageDrawCardFromPlayer:
		return decode[ClientMessageDrawCardFromPlayerPayload](msg.Payload)
	case ClientMessageDrawFromPlayer:
		return decode[ClientMessageDrawFromPlayerPayload](msg.Payload)
	case ClientMessageRearrangeCards:
		return decode[ClientMessageRearrangeCardsPayload](msg.Payload)
	case ClientMessageGetHandSummary:
		return decode[ClientMessageGetHandSummaryPayload](msg.Payload)

	default:
		// Unknown or invalid message type
		return nil, fmt.Errorf("unknown client message type: %s", msg.Type)
	}
}
