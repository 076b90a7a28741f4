package internal

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/JDRadatti/oldmaid/internal/oldmaid"
)

const (
	defaultRoomCommandBufferSize = 64
	archiveTimeout               = 5 * time.Second
)

// RoomCode is the short code players type to join a room.
type RoomCode string

// ---------------------------------------------------------------------
// Communication
// ---------------------------------------------------------------------
//
// Client → Room:
//   Game actions are queued on the Room's `commands` channel straight from
//   the client's readPump and handled one at a time in arrival order.
//
// RoomManager → Room:
//   Membership changes and queries use the same channel but wait for the
//   Room to reply, so the manager's registry never disagrees with the game.
//
// Room → Clients:
//   A Room sends ServerMessages to its members through each Client's
//   `send` channel.
//
// IMPORTANT: the Room never waits on the RoomManager. The oldmaid.Game it
// owns is only touched from the Room goroutine.
// ---------------------------------------------------------------------

// RoomCommandType defines the list of commands that a Room can process.
type RoomCommandType string

const (
	RoomCommandJoin   RoomCommandType = "join"
	RoomCommandLeave  RoomCommandType = "leave"
	RoomCommandAction RoomCommandType = "action"
	RoomCommandInfo   RoomCommandType = "info"
	RoomCommandClose  RoomCommandType = "close"
)

// RoomCommand represents a single instruction sent to a Room through its
// `commands` channel.
type RoomCommand struct {
	Type    RoomCommandType
	Client  *Client
	Request ClientMessageType
	Payload any

	reply chan roomReply
}

type roomReply struct {
	err     error
	info    RoomInfo
	members []ClientID
	stopped bool
}

// RoomInfo is what the RoomManager learns about a room when it asks.
type RoomInfo struct {
	Snapshot oldmaid.Snapshot
	EndedAt  time.Time
}

// ---------------------------------------------------------------------
// Room
// ---------------------------------------------------------------------

// Room runs one game. It owns the oldmaid.Game and the connections of the
// players seated in it, processes RoomCommands on its own goroutine and
// stops once the last player leaves or the RoomManager closes it.
type Room struct {
	Code     RoomCode
	game     *oldmaid.Game
	clients  map[oldmaid.PlayerID]*Client
	commands chan RoomCommand
	done     chan struct{}
	endedAt  time.Time

	publisher Publisher
	results   ResultStore
	logger    *zap.Logger
}

// NewRoom creates a Room around a fresh game. The caller should start it with
// Run().
func NewRoom(code RoomCode, game *oldmaid.Game, rm *RoomManager) *Room {
	return &Room{
		Code:      code,
		game:      game,
		clients:   make(map[oldmaid.PlayerID]*Client),
		commands:  make(chan RoomCommand, rm.commandBufferSize),
		done:      make(chan struct{}),
		publisher: rm.publisher,
		results:   rm.results,
		logger:    rm.logger.With(zap.String("room", string(code))),
	}
}

// Run is the Room's event loop. It returns when the room stops.
func (r *Room) Run() {
	defer close(r.done)
	for cmd := range r.commands {
		if r.handleCommand(cmd) {
			break
		}
	}
	r.logger.Debug("room stopped")
}

// Submit queues a game action. It blocks while the queue is full and reports
// roomNotFound to the client if the room has stopped.
func (r *Room) Submit(cmd RoomCommand) {
	select {
	case r.commands <- cmd:
	case <-r.done:
		cmd.Client.SendError(ErrorCodeRoomNotFound, oldmaid.ErrRoomNotFound.Error(), cmd.Request)
	}
}

// exec runs cmd on the Room goroutine and waits for its reply.
func (r *Room) exec(cmd RoomCommand) roomReply {
	cmd.reply = make(chan roomReply, 1)
	select {
	case r.commands <- cmd:
	case <-r.done:
		return roomReply{err: oldmaid.ErrRoomNotFound, stopped: true}
	}
	select {
	case rep := <-cmd.reply:
		return rep
	case <-r.done:
		return roomReply{err: oldmaid.ErrRoomNotFound, stopped: true}
	}
}

// Join seats c in the game.
func (r *Room) Join(c *Client, username string) error {
	return r.exec(RoomCommand{Type: RoomCommandJoin, Client: c, Payload: username}).err
}

// Leave removes c from the room and reports whether the room stopped because
// it became empty.
func (r *Room) Leave(c *Client) (stopped bool, err error) {
	rep := r.exec(RoomCommand{Type: RoomCommandLeave, Client: c})
	return rep.stopped, rep.err
}

// Info returns a snapshot of the game and when it ended.
func (r *Room) Info() (RoomInfo, error) {
	rep := r.exec(RoomCommand{Type: RoomCommandInfo})
	return rep.info, rep.err
}

// Close notifies every member with roomClosed, stops the room and returns the
// ids of the clients that were seated.
func (r *Room) Close(reason string) []ClientID {
	return r.exec(RoomCommand{Type: RoomCommandClose, Payload: reason}).members
}

// handleCommand executes the given RoomCommand and returns true if the Room
// should stop.
func (r *Room) handleCommand(cmd RoomCommand) bool {
	switch cmd.Type {
	case RoomCommandJoin:
		username, _ := cmd.Payload.(string)
		id := cmd.Client.ID.PlayerID()
		envs, err := r.game.AddPlayer(id, username)
		if err == nil {
			r.clients[id] = cmd.Client
			r.deliver(envs)
			r.logger.Info("player joined",
				zap.String("client", string(cmd.Client.ID)),
				zap.Int("players", r.game.PlayerCount()))
		}
		cmd.reply <- roomReply{err: err}

	case RoomCommandLeave:
		id := cmd.Client.ID.PlayerID()
		envs, err := r.game.Leave(id)
		if err != nil {
			cmd.reply <- roomReply{err: err}
			return false
		}
		delete(r.clients, id)
		r.deliver(envs)
		r.afterAction(envs)
		r.logger.Info("player left",
			zap.String("client", string(cmd.Client.ID)),
			zap.Int("players", r.game.PlayerCount()))
		stop := len(r.clients) == 0
		cmd.reply <- roomReply{stopped: stop}
		return stop

	case RoomCommandAction:
		envs, err := r.handleAction(cmd)
		if err != nil {
			cmd.Client.sendActionError(err, cmd.Request)
			return false
		}
		r.deliver(envs)
		r.afterAction(envs)

	case RoomCommandInfo:
		cmd.reply <- roomReply{info: RoomInfo{Snapshot: r.game.Snapshot(), EndedAt: r.endedAt}}

	case RoomCommandClose:
		reason, _ := cmd.Payload.(string)
		members := make([]ClientID, 0, len(r.clients))
		for _, c := range r.clients {
			c.SendMessage(ServerMessageRoomClosed, ServerMessageRoomClosedPayload{
				RoomCode: r.Code,
				Reason:   reason,
			})
			c.clearRoom(r)
			members = append(members, c.ID)
		}
		r.clients = map[oldmaid.PlayerID]*Client{}
		r.logger.Info("room closed", zap.String("reason", reason))
		cmd.reply <- roomReply{members: members, stopped: true}
		return true

	default:
		r.logger.Warn("unknown room command", zap.String("type", string(cmd.Type)))
	}
	return false
}

// handleAction dispatches a client's game action to the engine.
func (r *Room) handleAction(cmd RoomCommand) ([]oldmaid.Envelope, error) {
	id := cmd.Client.ID.PlayerID()
	if _, seated := r.clients[id]; !seated {
		return nil, oldmaid.ErrPlayerNotFound
	}
	switch p := cmd.Payload.(type) {
	case ClientMessageSetRulePayload:
		return r.game.SetRule(id, p.Rule, p.Enabled)
	case ClientMessageStartGamePayload:
		return r.game.Start(id)
	case ClientMessageDeclarePairPayload:
		return r.game.DeclarePair(id, p.CardID1, p.CardID2)
	case ClientMessageDrawCardPayload:
		return r.game.DrawCard(id)
	case ClientMessageDrawCardFromPlayerPayload:
		if p.CardPosition == nil {
			return nil, oldmaid.ErrInvalidPosition
		}
		return r.game.DrawCardFromPlayer(id, p.FromPlayerID, *p.CardPosition)
	case ClientMessageDrawFromPlayerPayload:
		return r.game.DrawFromPlayer(id, p.FromPlayerID)
	case ClientMessageRearrangeCardsPayload:
		order, err := oldmaid.OrderFromNumbers(p.NewOrder)
		if err != nil {
			return nil, err
		}
		return r.game.RearrangeCards(id, order)
	case ClientMessageGetHandSummaryPayload:
		return r.game.HandSummary(id)
	default:
		cmd.Client.SendError(ErrorCodeInvalidRequest, "Unknown request.", cmd.Request)
		return nil, nil
	}
}

// deliver encodes each envelope once and sends it to its audience.
func (r *Room) deliver(envs []oldmaid.Envelope) {
	for _, env := range envs {
		payload, err := json.Marshal(env.Event)
		if err != nil {
			r.logger.Error("failed to marshal event",
				zap.String("type", string(env.Event.Type())), zap.Error(err))
			continue
		}
		msg := ServerMessage{Type: ServerMessageType(env.Event.Type()), Payload: payload}
		switch env.Audience {
		case oldmaid.AudienceAll:
			for _, c := range r.clients {
				c.sendRaw(msg)
			}
		case oldmaid.AudiencePlayer:
			if c, ok := r.clients[env.PlayerID]; ok {
				c.sendRaw(msg)
			}
		case oldmaid.AudienceOthers:
			for id, c := range r.clients {
				if id != env.PlayerID {
					c.sendRaw(msg)
				}
			}
		}
	}
}

// afterAction handles the lifecycle events of a successful action.
func (r *Room) afterAction(envs []oldmaid.Envelope) {
	for _, env := range envs {
		switch ev := env.Event.(type) {
		case oldmaid.PairDeclared:
			r.logger.Debug("pair declared",
				zap.String("player", string(ev.PlayerID)),
				zap.String("card", oldmaid.NormalizeName(ev.Cards[0].Name)))
		case oldmaid.GameStarted:
			r.logger.Info("game started", zap.Int("deck", ev.DeckCount))
			r.publish(EventGameStarted, r.game.Snapshot())
		case oldmaid.GameEnded:
			r.endedAt = time.Now()
			r.logger.Info("game ended",
				zap.String("loser", string(ev.Loser)),
				zap.String("reason", string(ev.Reason)))
			result := NewGameResult(r.game.Snapshot(), r.endedAt)
			r.publish(EventGameEnded, result)
			go r.archive(result)
		}
	}
	// Everybody left mid game without the engine announcing an end.
	if r.endedAt.IsZero() && r.game.Status() == oldmaid.StatusEnded {
		r.endedAt = time.Now()
	}
}

func (r *Room) publish(event string, payload any) {
	if err := r.publisher.Publish(r.Code, event, payload); err != nil {
		r.logger.Warn("publish failed", zap.String("event", event), zap.Error(err))
	}
}

func (r *Room) archive(result GameResult) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := r.results.Save(ctx, result); err != nil {
		r.logger.Error("failed to archive game result", zap.Error(err))
	}
}
