// Package events mirrors orchestrator state changes and notifications onto NATS
// so other services can follow the dashboard without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kickoff-ai/core/pkg/logger"
	"github.com/kickoff-ai/core/pkg/models"
	"github.com/kickoff-ai/core/pkg/orchestrator"
)

// Conn is the part of *nats.Conn the publisher needs
type Conn interface {
	PublishMsg(msg *nats.Msg) error
	Flush() error
	Close()
}

type Config struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConfig(url string) Config {
	return Config{
		URL:           url,
		Subject:       "kickoff.state",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Envelope is the JSON body of every published message
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type Publisher struct {
	conn    Conn
	subject string
	logger  *logger.Logger
}

// Connect dials NATS with reconnect handlers that log through log
func Connect(cfg Config, log *logger.Logger) (*Publisher, error) {
	if log == nil {
		log = logger.New("events")
	}

	opts := []nats.Option{
		nats.Name("kickoff-core"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Str("action", "nats_disconnected").Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("action", "nats_reconnected").Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return NewPublisher(nc, cfg.Subject, log), nil
}

func NewPublisher(conn Conn, subject string, log *logger.Logger) *Publisher {
	if subject == "" {
		subject = "kickoff.state"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{conn: conn, subject: subject, logger: log}
}

// PublishState sends change on <subject>.<reason>. Countdown ticks are
// dropped; subscribers can derive them from refreshCountdown.
func (p *Publisher) PublishState(change orchestrator.StateChange) error {
	if change.Reason == orchestrator.ReasonCountdown {
		return nil
	}
	return p.publish(string(change.Reason), change.State)
}

// PublishNotification sends n on <subject>.notification
func (p *Publisher) PublishNotification(n models.AppNotification) error {
	return p.publish("notification", n)
}

func (p *Publisher) publish(kind string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}

	data, err := json.Marshal(Envelope{
		Type:      kind,
		Timestamp: time.Now().UTC(),
		Payload:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	subject := p.subject + "." + kind
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{"Event-Type": []string{kind}},
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Error().Err(err).
			Str("action", "event_publish_failed").
			Str("subject", subject).
			Msg("Failed to publish event")
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Debug().
		Str("action", "event_published").
		Str("subject", subject).
		Int("bytes", len(data)).
		Msg("Published event")
	return nil
}

// Run forwards changes until ctx is done or the channel closes
func (p *Publisher) Run(ctx context.Context, changes <-chan orchestrator.StateChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			_ = p.PublishState(change)
		}
	}
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() {
	if err := p.conn.Flush(); err != nil {
		p.logger.Warn().Err(err).Str("action", "nats_flush_failed").Msg("Failed to flush NATS connection")
	}
	p.conn.Close()
}
