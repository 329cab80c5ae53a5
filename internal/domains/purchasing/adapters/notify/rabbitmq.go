// Package notify delivers purchase order notifications to RabbitMQ or the process log.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

// DefaultExchange receives every purchasing event, routed by event name.
const DefaultExchange = "purchasing.events"

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher writes notifications as persistent JSON messages to a topic exchange.
type Publisher struct {
	ch       Channel
	exchange string
}

var _ ports.Notifier = (*Publisher)(nil)

// NewPublisher declares the durable topic exchange and returns a publisher bound to it.
func NewPublisher(ch Channel, exchange string) (*Publisher, error) {
	if ch == nil {
		return nil, errors.New("rabbitmq channel is nil")
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange}, nil
}

// Notify publishes n with the event name as routing key. The active trace context travels
// in the message headers.
func (p *Publisher) Notify(ctx context.Context, n ports.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	headers := amqp.Table{"order_id": n.OrderID, "level": string(n.Level)}
	otel.GetTextMapPropagator().Inject(ctx, tableCarrier(headers))
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    n.OccurredAt,
		Type:         n.Event,
		Headers:      headers,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, n.Event, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", n.Event, err)
	}
	return nil
}

// tableCarrier adapts AMQP headers to the otel propagation carrier.
type tableCarrier amqp.Table

var _ propagation.TextMapCarrier = tableCarrier{}

func (t tableCarrier) Get(key string) string {
	if v, ok := t[key].(string); ok {
		return v
	}
	return ""
}

func (t tableCarrier) Set(key, value string) { t[key] = value }

func (t tableCarrier) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	return keys
}
