package internal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Lifecycle events published for each room.
const (
	EventRoomCreated = "roomCreated"
	EventGameStarted = "gameStarted"
	EventGameEnded   = "gameEnded"
	EventRoomClosed  = "roomClosed"
)

const subjectPrefix = "oldmaid.room"

// Publisher announces room lifecycle events to the outside world. It is
// called from room and manager goroutines and must be safe for concurrent
// use.
type Publisher interface {
	Publish(code RoomCode, event string, payload any) error
	Close()
}

// Subject returns the subject a room event is published on.
func Subject(code RoomCode, event string) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, code, event)
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(RoomCode, string, any) error { return nil }
func (NopPublisher) Close()                              {}

// NATSPublisher publishes JSON encoded events on a NATS connection.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// BrokerConnect opens a NATS connection with reconnects enabled.
func BrokerConnect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("oldmaid-server"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
	}
	return nats.Connect(url, opts...)
}

// NewNATSPublisher connects to the broker at url.
func NewNATSPublisher(url string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := BrokerConnect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	logger.Info("connected to nats", zap.String("url", nc.ConnectedUrl()))
	return &NATSPublisher{nc: nc, logger: logger}, nil
}

func (p *NATSPublisher) Publish(code RoomCode, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	return p.nc.Publish(Subject(code, event), data)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("nats drain failed", zap.Error(err))
		p.nc.Close()
	}
}
