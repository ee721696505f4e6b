// Package events publishes booking, job and invoice domain events to a
// RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/common/metrics"
)

var ErrPublishFailed = errors.New("EVENT_PUBLISH_FAILED")

const (
	BookingApproved   = "booking.approved"
	BookingDeclined   = "booking.declined"
	BookingInProgress = "booking.in_progress"
	BookingCompleted  = "booking.completed"
	InvoiceIssued     = "invoice.issued"
	InvoiceStatus     = "invoice.status_changed"
	JobPaid           = "job.paid"
	ClientDeleted     = "client.deleted"
)

// BookingKey is the routing key announcing a booking entering status.
func BookingKey(status string) string {
	return "booking." + status
}

type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	log      logger.Logger
	now      func() time.Time
}

func NewAMQPPublisher(url, exchange string, log logger.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, log: log, now: time.Now}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(routingKey, "error").Inc()
		return fmt.Errorf("%w: marshal payload: %v", ErrPublishFailed, err)
	}

	env := Envelope{
		ID:         uuid.New().String(),
		Type:       routingKey,
		OccurredAt: p.now().UTC(),
		Payload:    body,
	}
	msg, err := json.Marshal(env)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(routingKey, "error").Inc()
		return fmt.Errorf("%w: marshal envelope: %v", ErrPublishFailed, err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Timestamp:    env.OccurredAt,
		Type:         routingKey,
		Body:         msg,
	})
	if err != nil {
		metrics.EventsPublished.WithLabelValues(routingKey, "error").Inc()
		p.log.Error("Failed to publish event", map[string]interface{}{
			"routingKey": routingKey,
			"error":      err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	metrics.EventsPublished.WithLabelValues(routingKey, "ok").Inc()
	p.log.Debug("Event published", map[string]interface{}{
		"routingKey": routingKey,
		"eventId":    env.ID,
	})
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NopPublisher drops events. Used when messaging is not configured.
type NopPublisher struct {
	Log logger.Logger
}

func (n NopPublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	if n.Log != nil {
		n.Log.Debug("Messaging disabled, event dropped", map[string]interface{}{"routingKey": routingKey})
	}
	return nil
}
