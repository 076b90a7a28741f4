package internal

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JDRadatti/oldmaid/internal/oldmaid"
)

const (
	defaultManagerBufferSize = 64
	defaultCleanupInterval   = 10 * time.Second
	defaultEndedTTL          = 5 * time.Minute

	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RoomManagerCommandType lists all commands sent to the RoomManager.
type RoomManagerCommandType string

const (
	RoomManagerCommandCreate     RoomManagerCommandType = "createRoom"
	RoomManagerCommandJoin       RoomManagerCommandType = "joinRoom"
	RoomManagerCommandLeave      RoomManagerCommandType = "leaveRoom"
	RoomManagerCommandDisconnect RoomManagerCommandType = "clientDisconnected"
	RoomManagerCommandCleanup    RoomManagerCommandType = "cleanUp"
	RoomManagerCommandList       RoomManagerCommandType = "list"
)

// RoomManagerCommand wraps a command and its payload,
// used for communicating with the RoomManager goroutine.
type RoomManagerCommand struct {
	Type    RoomManagerCommandType
	Payload any
}

// RoomManagerCreatePayload is sent when a Client opens a new room.
type RoomManagerCreatePayload struct {
	Client   *Client
	Username string
}

// RoomManagerJoinPayload is sent when a Client wants to join a room by code.
type RoomManagerJoinPayload struct {
	Client   *Client
	RoomCode RoomCode
	Username string
}

// RoomManagerClientPayload is used when a Client leaves its room or
// disconnects.
type RoomManagerClientPayload struct {
	Client *Client
}

// RoomManagerListPayload asks for a snapshot of every live room.
type RoomManagerListPayload struct {
	Reply chan []oldmaid.Snapshot
}

// RoomManagerOptions configures a RoomManager. Zero values get defaults.
type RoomManagerOptions struct {
	Settings        oldmaid.Settings
	SendBuffer      int
	CommandBuffer   int
	CleanupInterval time.Duration
	EndedTTL        time.Duration
	// Rand generates room codes and seeds each room's shuffle. It is only
	// used from the manager goroutine.
	Rand      *rand.Rand
	Publisher Publisher
	Results   ResultStore
	Logger    *zap.Logger
}

// RoomManager owns all Rooms and knows which room each client is in.
//
// It runs as its own goroutine, processing commands through its internal
// `Commands` channel.
type RoomManager struct {
	Rooms   map[RoomCode]*Room
	Members map[ClientID]RoomCode

	Commands chan RoomManagerCommand
	stopped  <-chan struct{}

	CleanupInterval time.Duration
	EndedTTL        time.Duration

	settings          oldmaid.Settings
	rnd               *rand.Rand
	sendBufferSize    int
	commandBufferSize int
	publisher         Publisher
	results           ResultStore
	logger            *zap.Logger
}

// NewRoomManager starts and returns a new RoomManager. Its goroutines stop
// when ctx is cancelled.
func NewRoomManager(ctx context.Context, opts RoomManagerOptions) *RoomManager {
	if opts.Settings.MaxPlayers == 0 {
		opts.Settings = oldmaid.DefaultSettings()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBufferSize
	}
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = defaultRoomCommandBufferSize
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.EndedTTL <= 0 {
		opts.EndedTTL = defaultEndedTTL
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Publisher == nil {
		opts.Publisher = NopPublisher{}
	}
	if opts.Results == nil {
		opts.Results = NewMemoryResults()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	rm := &RoomManager{
		Rooms:             make(map[RoomCode]*Room),
		Members:           make(map[ClientID]RoomCode),
		Commands:          make(chan RoomManagerCommand, defaultManagerBufferSize),
		stopped:           ctx.Done(),
		CleanupInterval:   opts.CleanupInterval,
		EndedTTL:          opts.EndedTTL,
		settings:          opts.Settings,
		rnd:               opts.Rand,
		sendBufferSize:    opts.SendBuffer,
		commandBufferSize: opts.CommandBuffer,
		publisher:         opts.Publisher,
		results:           opts.Results,
		logger:            opts.Logger,
	}
	go rm.Run(ctx)
	go rm.cleanupRooms(ctx)
	return rm
}

// Run is the main loop of the RoomManager.
func (rm *RoomManager) Run(ctx context.Context) {
	for {
		select {
		case cmd := <-rm.Commands:
			rm.handleCommand(cmd)
		case <-ctx.Done():
			rm.shutdown()
			return
		}
	}
}

// handleCommand routes and processes RoomManagerCommands.
// Commands are sent from Clients and from the cleanup ticker.
func (rm *RoomManager) handleCommand(cmd RoomManagerCommand) {
	switch cmd.Type {
	case RoomManagerCommandCreate:
		payload := cmd.Payload.(RoomManagerCreatePayload)
		client := payload.Client

		if code, inRoom := rm.Members[client.ID]; inRoom {
			client.SendError(ErrorCodeAlreadyInRoom, "Already in room "+string(code)+".", ClientMessageCreateRoom)
			return
		}

		code := rm.newRoomCode()
		seed1, seed2 := rm.rnd.Uint64(), rm.rnd.Uint64()
		game, err := oldmaid.NewGame(string(code), rm.settings, rand.New(rand.NewPCG(seed1, seed2)))
		if err != nil {
			client.sendActionError(err, ClientMessageCreateRoom)
			rm.logger.Error("invalid game settings", zap.Error(err))
			return
		}
		room := NewRoom(code, game, rm)
		go room.Run()
		rm.Rooms[code] = room

		client.SendMessage(ServerMessageRoomCreated, ServerMessageRoomCreatedPayload{
			RoomCode: code,
			PlayerID: client.ID.PlayerID(),
		})
		if err := rm.seat(room, client, payload.Username, ClientMessageCreateRoom); err != nil {
			room.Close("createFailed")
			delete(rm.Rooms, code)
			return
		}
		rm.publish(code, EventRoomCreated, ServerMessageRoomCreatedPayload{
			RoomCode: code,
			PlayerID: client.ID.PlayerID(),
		})
		rm.logger.Info("room created",
			zap.String("room", string(code)),
			zap.String("client", string(client.ID)))

	case RoomManagerCommandJoin:
		payload := cmd.Payload.(RoomManagerJoinPayload)
		client := payload.Client
		code := normalizeRoomCode(payload.RoomCode)

		if current, inRoom := rm.Members[client.ID]; inRoom {
			client.SendError(ErrorCodeAlreadyInRoom, "Already in room "+string(current)+".", ClientMessageJoinRoom)
			return
		}
		room, ok := rm.Rooms[code]
		if !ok {
			client.SendError(ErrorCodeRoomNotFound, oldmaid.ErrRoomNotFound.Error(), ClientMessageJoinRoom)
			return
		}
		_ = rm.seat(room, client, payload.Username, ClientMessageJoinRoom)

	case RoomManagerCommandLeave:
		payload := cmd.Payload.(RoomManagerClientPayload)
		rm.removeClientFromRoom(payload.Client, ClientMessageLeaveRoom)

	case RoomManagerCommandDisconnect:
		payload := cmd.Payload.(RoomManagerClientPayload)
		rm.removeClientFromRoom(payload.Client, "")

	case RoomManagerCommandCleanup:
		now := time.Now()
		for code, room := range rm.Rooms {
			info, err := room.Info()
			if err != nil {
				rm.dropRoom(code, nil)
				continue
			}
			if info.EndedAt.IsZero() || now.Sub(info.EndedAt) < rm.EndedTTL {
				continue
			}
			rm.dropRoom(code, room.Close("expired"))
			rm.publish(code, EventRoomClosed, ServerMessageRoomClosedPayload{RoomCode: code, Reason: "expired"})
			rm.logger.Info("ended room reaped", zap.String("room", string(code)))
		}

	case RoomManagerCommandList:
		payload := cmd.Payload.(RoomManagerListPayload)
		snaps := make([]oldmaid.Snapshot, 0, len(rm.Rooms))
		for _, room := range rm.Rooms {
			if info, err := room.Info(); err == nil {
				snaps = append(snaps, info.Snapshot)
			}
		}
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].Code < snaps[j].Code })
		payload.Reply <- snaps

	default:
		rm.logger.Warn("unknown room manager command", zap.String("type", string(cmd.Type)))
	}
}

// seat adds client to room and records the membership. Errors are reported
// to the client.
func (rm *RoomManager) seat(room *Room, client *Client, username string, req ClientMessageType) error {
	if err := room.Join(client, username); err != nil {
		client.sendActionError(err, req)
		return err
	}
	rm.Members[client.ID] = room.Code
	client.setRoom(room)
	return nil
}

// SendCommand safely queues a command for the RoomManager goroutine.
// If the buffer is full, the command is dropped.
func (rm *RoomManager) SendCommand(cmd RoomManagerCommand) {
	select {
	case rm.Commands <- cmd:
	default:
		rm.logger.Warn("room manager command buffer full", zap.String("type", string(cmd.Type)))
	}
}

// sendCommandWait queues cmd, waiting for buffer space. Used for commands
// that must not be lost, like disconnects.
func (rm *RoomManager) sendCommandWait(cmd RoomManagerCommand) {
	select {
	case rm.Commands <- cmd:
	case <-rm.stopped:
	}
}

// List returns a snapshot of every live room.
func (rm *RoomManager) List(ctx context.Context) ([]oldmaid.Snapshot, error) {
	reply := make(chan []oldmaid.Snapshot, 1)
	select {
	case rm.Commands <- RoomManagerCommand{Type: RoomManagerCommandList, Payload: RoomManagerListPayload{Reply: reply}}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case snaps := <-reply:
		return snaps, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// removeClientFromRoom takes a client out of its room. cmt is empty when the
// connection dropped, in which case nothing is sent back.
func (rm *RoomManager) removeClientFromRoom(c *Client, cmt ClientMessageType) {
	code, exists := rm.Members[c.ID]
	if !exists {
		if cmt != "" {
			c.SendError(ErrorCodeNotInRoom, "Not in any room.", cmt)
		}
		return
	}
	delete(rm.Members, c.ID)

	room, exists := rm.Rooms[code]
	if !exists {
		c.setRoom(nil)
		if cmt != "" {
			c.SendError(ErrorCodeRoomNotFound, oldmaid.ErrRoomNotFound.Error(), cmt)
		}
		return
	}

	stopped, err := room.Leave(c)
	c.clearRoom(room)
	if err != nil {
		rm.logger.Warn("leave failed", zap.String("room", string(code)), zap.Error(err))
	}

	// Send the client a confirmation
	if cmt != "" {
		c.SendMessage(ServerMessageRoomLeft, ServerMessageRoomLeftPayload{
			RoomCode: code,
			Reason:   "self-initiated",
		})
	}

	// If no players left, the room stopped itself
	if stopped {
		rm.dropRoom(code, nil)
		rm.publish(code, EventRoomClosed, ServerMessageRoomClosedPayload{RoomCode: code, Reason: "empty"})
		rm.logger.Info("room disbanded", zap.String("room", string(code)))
	}
}

// dropRoom forgets a stopped room and its remaining members.
func (rm *RoomManager) dropRoom(code RoomCode, members []ClientID) {
	delete(rm.Rooms, code)
	for _, id := range members {
		if rm.Members[id] == code {
			delete(rm.Members, id)
		}
	}
}

// newRoomCode draws codes until one is free.
func (rm *RoomManager) newRoomCode() RoomCode {
	for {
		var b strings.Builder
		for range roomCodeLength {
			b.WriteByte(roomCodeAlphabet[rm.rnd.IntN(len(roomCodeAlphabet))])
		}
		code := RoomCode(b.String())
		if _, taken := rm.Rooms[code]; !taken {
			return code
		}
	}
}

func normalizeRoomCode(code RoomCode) RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(string(code))))
}

func (rm *RoomManager) publish(code RoomCode, event string, payload any) {
	if err := rm.publisher.Publish(code, event, payload); err != nil {
		rm.logger.Warn("publish failed",
			zap.String("room", string(code)),
			zap.String("event", event),
			zap.Error(err))
	}
}

// shutdown closes every room when the server stops.
func (rm *RoomManager) shutdown() {
	for code, room := range rm.Rooms {
		rm.dropRoom(code, room.Close("shutdown"))
	}
	rm.logger.Info("room manager stopped")
}

// cleanupRooms is a goroutine that sends a
// RoomManagerCommandCleanup every CleanupInterval
func (rm *RoomManager) cleanupRooms(ctx context.Context) {
	ticker := time.NewTicker(rm.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.SendCommand(RoomManagerCommand{
				Type: RoomManagerCommandCleanup,
			})
		case <-ctx.Done():
			return
		}
	}
}
