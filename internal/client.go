package internal

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/JDRadatti/oldmaid/internal/oldmaid"
)

const (
	defaultSendBufferSize = 64
)

// ClientID identifies one websocket connection. It doubles as the player id
// inside a room.
type ClientID string

// NewClientID returns a new randomly generated ClientID.
func NewClientID() ClientID {
	return ClientID(uuid.New().String())
}

func (id ClientID) PlayerID() oldmaid.PlayerID { return oldmaid.PlayerID(id) }

type Client struct {
	ID     ClientID
	conn   *websocket.Conn
	send   chan ServerMessage
	done   chan struct{}
	rm     *RoomManager
	logger *zap.Logger

	mu   sync.Mutex
	room *Room
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// ServeWs is the main entrypoint of a client. It creates the Client object and
// starts the read and write pumps.
func ServeWs(rm *RoomManager, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		rm.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newClient(NewClientID(), conn, rm)
	c.logger.Debug("client connected", zap.String("remote", r.RemoteAddr))

	go c.writePump()
	go c.readPump()

	c.SendMessage(ServerMessageConnectSuccess, ServerMessageConnectSuccessPayload{ClientID: c.ID})
}

func newClient(id ClientID, conn *websocket.Conn, rm *RoomManager) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		send:   make(chan ServerMessage, rm.sendBufferSize),
		done:   make(chan struct{}),
		rm:     rm,
		logger: rm.logger.With(zap.String("client", string(id))),
	}
}

// readPump pumps messages from the websocket connection to the room manager
// and the client's room.
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		close(c.done)
		c.conn.Close()
		c.rm.sendCommandWait(RoomManagerCommand{
			Type:    RoomManagerCommandDisconnect,
			Payload: RoomManagerClientPayload{Client: c},
		})
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Debug("connection closed", zap.Error(err))
			break
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.SendError(ErrorCodeInvalidRequest, "Malformed client message.", "")
			continue
		}

		payload, err := UnmarshalClientMessage(msg)
		if err != nil {
			c.SendError(ErrorCodeInvalidRequest, "Malformed client payload.", msg.Type)
			continue
		}

		switch p := payload.(type) {
		case ClientMessageCreateRoomPayload:
			c.rm.SendCommand(RoomManagerCommand{
				Type:    RoomManagerCommandCreate,
				Payload: RoomManagerCreatePayload{Client: c, Username: p.Username},
			})
		case ClientMessageJoinRoomPayload:
			c.rm.SendCommand(RoomManagerCommand{
				Type:    RoomManagerCommandJoin,
				Payload: RoomManagerJoinPayload{Client: c, RoomCode: p.RoomCode, Username: p.Username},
			})
		case ClientMessageLeaveRoomPayload:
			c.rm.SendCommand(RoomManagerCommand{
				Type:    RoomManagerCommandLeave,
				Payload: RoomManagerClientPayload{Client: c},
			})
		default:
			room := c.currentRoom()
			if room == nil {
				c.SendError(ErrorCodeNotInRoom, "Not in any room.", msg.Type)
				continue
			}
			room.Submit(RoomCommand{
				Type:    RoomCommandAction,
				Client:  c,
				Request: msg.Type,
				Payload: payload,
			})
		}
	}
}

// writePump pumps messages from the RoomManager/Room to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	defer c.Close()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) currentRoom() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) setRoom(r *Room) {
	c.mu.Lock()
	c.room = r
	c.mu.Unlock()
}

// clearRoom drops the room reference only if it still points at r.
func (c *Client) clearRoom(r *Room) {
	c.mu.Lock()
	if c.room == r {
		c.room = nil
	}
	c.mu.Unlock()
}

func (c *Client) SendMessage(msgType ServerMessageType, payload any) {
	bytes, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("failed to marshal payload",
			zap.String("type", string(msgType)), zap.Error(err))
		return
	}
	c.sendRaw(ServerMessage{Type: msgType, Payload: bytes})
}

// sendRaw queues an already encoded message. Messages to a closed connection
// are discarded; when the buffer is full the message is dropped.
func (c *Client) sendRaw(msg ServerMessage) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("send buffer full, dropping message", zap.String("type", string(msg.Type)))
	}
}

func (c *Client) SendError(code ServerErrorCode, message string, reqType ClientMessageType) {
	payload := ServerMessageErrorPayload{
		Code:        code,
		Message:     message,
		RequestType: reqType,
	}
	c.SendMessage(ServerMessageError, payload)
}

// sendActionError reports a rejected action to the client that issued it.
func (c *Client) sendActionError(err error, reqType ClientMessageType) {
	code := errorCode(err)
	msg := err.Error()
	if code == ErrorCodeInternal {
		c.logger.Error("action failed", zap.String("request", string(reqType)), zap.Error(err))
		msg = "Internal error."
	}
	c.SendError(code, msg, reqType)
}

func (c *Client) Close() {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closed"))
	c.conn.Close()
}
