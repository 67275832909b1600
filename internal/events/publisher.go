package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/DoyleJ11/fearless-draft/internal/engine"
)

const DefaultSubjectPrefix = "draft.events"

type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: DefaultSubjectPrefix,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Envelope is the JSON body of every published message.
type Envelope struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	SeriesID  string       `json:"series_id"`
	Version   int          `json:"version"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   EventPayload `json:"payload"`
}

type EventPayload struct {
	Side   string `json:"side,omitempty"`
	ItemID string `json:"item_id,omitempty"`
	Game   int    `json:"game"`
	Turn   int    `json:"turn"`
	Slot   int    `json:"slot"`
}

// Subject returns <prefix>.<series>.<event type>. Dots and wildcards in the
// series id are replaced so it stays a single token.
func Subject(prefix, seriesID string, eventType engine.EventType) string {
	token := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(seriesID)
	return fmt.Sprintf("%s.%s.%s", prefix, token, eventType)
}

func NewEnvelope(seriesID string, version int, e engine.Event, at time.Time) Envelope {
	return Envelope{
		EventID:   uuid.NewString(),
		EventType: string(e.Type),
		SeriesID:  seriesID,
		Version:   version,
		Timestamp: at.UTC(),
		Payload: EventPayload{
			Side:   string(e.Side),
			ItemID: string(e.ItemID),
			Game:   e.Game,
			Turn:   e.Turn,
			Slot:   e.Slot,
		},
	}
}

func NewMsg(prefix string, env Envelope) (*nats.Msg, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return &nats.Msg{
		Subject: Subject(prefix, env.SeriesID, engine.EventType(env.EventType)),
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{env.EventType},
			"Series-ID":  []string{env.SeriesID},
			"Event-ID":   []string{env.EventID},
		},
	}, nil
}

// NATSPublisher publishes draft events on core NATS subjects.
type NATSPublisher struct {
	nc     *nats.Conn
	config Config
	clock  clockwork.Clock
	log    *zap.Logger
}

func NewNATSPublisher(cfg Config, log *zap.Logger) (*NATSPublisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}

	opts := []nats.Option{
		nats.Name("fearless-draft"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{nc: nc, config: cfg, clock: clockwork.NewRealClock(), log: log}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, seriesID string, version int, events []engine.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := p.clock.Now()
	for _, e := range events {
		msg, err := NewMsg(p.config.SubjectPrefix, NewEnvelope(seriesID, version, e, now))
		if err != nil {
			return err
		}
		if err := p.nc.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish %s: %w", msg.Subject, err)
		}
		p.log.Debug("published event", zap.String("subject", msg.Subject), zap.Int("version", version))
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, int, []engine.Event) error { return nil }
