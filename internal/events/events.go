// Package events publishes security events to a message broker.
//
// Events are advisory: publishing is fire-and-forget and must never fail the
// request that produced them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/identikit/apiserver/config"
)

// Event types emitted by the authentication flows.
const (
	TypeSignup          = "user.signup"
	TypeLogin           = "user.login"
	TypePasswordChanged = "user.password_changed"
)

// Event is the payload published for every security-relevant action.
type Event struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	UserID int64     `json:"user_id"`
	At     time.Time `json:"at"`
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the publisher.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// NewBackend selects a broker backend from config. An empty backend name
// yields nil, nil: the event stream is disabled.
func NewBackend(ctx context.Context, cfg config.EventsConfig) (Backend, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		return NewRabbitMQBackend(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubBackend(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// Publisher emits security events to a fixed channel on a backend.
type Publisher struct {
	backend Backend
	channel string
}

// NewPublisher constructs a Publisher for the given backend and channel.
func NewPublisher(backend Backend, channel string) *Publisher {
	return &Publisher{backend: backend, channel: channel}
}

// Emit publishes a security event of the given type for the user. The event
// id is generated here; the broker message id is discarded.
func (p *Publisher) Emit(ctx context.Context, eventType string, userID int64) error {
	event := Event{
		ID:     uuid.NewString(),
		Type:   eventType,
		UserID: userID,
		At:     time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	attrs := map[string]string{
		"type":    event.Type,
		"user_id": strconv.FormatInt(event.UserID, 10),
	}
	_, err = p.backend.Publish(ctx, p.channel, data, attrs)
	return err
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}

// Consumer drains security events from a channel and writes them to the
// audit log.
type Consumer struct {
	backend Backend
	channel string
	logger  *slog.Logger
}

// NewConsumer constructs a Consumer for the given backend and channel.
func NewConsumer(backend Backend, channel string, logger *slog.Logger) *Consumer {
	return &Consumer{backend: backend, channel: channel, logger: logger}
}

// Run subscribes and logs every event until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.backend.Subscribe(ctx, c.channel, c.handle)
}

// handle logs one event. Malformed payloads are logged and acked, never
// requeued.
func (c *Consumer) handle(_ context.Context, msg Message) error {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.Warn("malformed security event",
			"message_id", msg.ID, "error", err)
		return nil
	}
	c.logger.Info("security event",
		"id", event.ID,
		"type", event.Type,
		"user_id", event.UserID,
		"at", event.At,
	)
	return nil
}
