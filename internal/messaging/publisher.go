package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/playware/inventory-service/internal/logger"
)

// GrantEvent is the notification published after a grant commits
type GrantEvent struct {
	PlayerID      int64     `json:"player_id"`
	ItemCode      string    `json:"item_code"`
	InventoryType string    `json:"inventory_type"`
	Amount        int64     `json:"amount"`
	NewAmount     int64     `json:"new_amount"`
	ExtTrxID      *string   `json:"ext_trx_id,omitempty"`
	EventTime     time.Time `json:"event_time"`
}

// Publisher publishes grant events for downstream consumers
type Publisher interface {
	// PublishGrant publishes one committed grant
	PublishGrant(ctx context.Context, event *GrantEvent) error
	// Close drains the underlying connection
	Close()
}

// Config holds the JetStream connection configuration
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type jetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
}

// GrantSubject derives the publish subject from the stream name,
// e.g. PLAYER_EVENTS -> player_events.inventory_granted.
func GrantSubject(streamName string) string {
	return fmt.Sprintf("%s.inventory_granted", toSubjectToken(streamName))
}

func toSubjectToken(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'A' && c <= 'Z':
			b[i] = c + ('a' - 'A')
		case c == '.' || c == ' ' || c == '*' || c == '>':
			b[i] = '_'
		}
	}
	return string(b)
}

// NewJetStreamPublisher connects to NATS and creates a JetStream publisher
func NewJetStreamPublisher(cfg Config) (Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &jetStreamPublisher{
		nc:      nc,
		js:      js,
		subject: GrantSubject(cfg.StreamName),
	}, nil
}

func (p *jetStreamPublisher) PublishGrant(ctx context.Context, event *GrantEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal grant event: %w", err)
	}

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("failed to publish grant event: %w", err)
	}
	return nil
}

func (p *jetStreamPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
