// Package notify delivers push notifications to device tokens.
// Delivery is fire-and-forget from the caller's point of view.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingKey is the topic push payloads are published under
const RoutingKey = "push.notification"

// Pusher delivers a payload to a device
type Pusher interface {
	Push(ctx context.Context, p models.PushPayload) error
}

// amqpChannel is the part of *amqp.Channel the pusher needs
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPusher publishes payloads to an exchange consumed by the push gateway
type AMQPPusher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
}

// NewAMQPPusher connects to RabbitMQ and declares the exchange
func NewAMQPPusher(url, exchange string) (*AMQPPusher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPPusher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Push publishes p as a persistent JSON message
func (a *AMQPPusher) Push(ctx context.Context, p models.PushPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	err = a.channel.PublishWithContext(ctx, a.exchange, RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish push payload: %w", err)
	}
	return nil
}

// Close closes the channel and connection
func (a *AMQPPusher) Close() {
	if a.channel != nil {
		a.channel.Close()
	}
	if a.conn != nil {
		a.conn.Close()
	}
}

// LogPusher only logs payloads; used when no broker is configured
type LogPusher struct{}

// Push logs p
func (LogPusher) Push(_ context.Context, p models.PushPayload) error {
	logging.Info().Str("title", p.Title).Str("body", p.Body).Msg("push notification (not delivered, no broker)")
	return nil
}

// RecordingPusher keeps every payload in memory
type RecordingPusher struct {
	mu       sync.Mutex
	payloads []models.PushPayload
	Err      error
}

// Push records p and returns r.Err
func (r *RecordingPusher) Push(_ context.Context, p models.PushPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return r.Err
}

// Payloads returns a copy of the recorded payloads
func (r *RecordingPusher) Payloads() []models.PushPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.PushPayload(nil), r.payloads...)
}
