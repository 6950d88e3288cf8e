package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/kuromall/api/internal/services"
)

// envelope is the wire format for every published event.
type envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// messageWriter is the slice of kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher delivers order, payment and stock events to one topic,
// keyed by aggregate so consumers see per-aggregate ordering.
type KafkaPublisher struct {
	writer messageWriter
	newID  func() string
}

// NewKafkaPublisher connects a writer to the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &KafkaPublisher{
		writer: writer,
		newID:  func() string { return uuid.NewString() },
	}
}

// Close flushes and releases the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// PublishOrderEvent implements services.OrderEventPublisher.
func (p *KafkaPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEventMessage) error {
	return p.publish(ctx, event.Type, event.OrderID, event.OccurredAt, event)
}

// PublishPaymentEvent implements services.PaymentEventPublisher.
func (p *KafkaPublisher) PublishPaymentEvent(ctx context.Context, event services.PaymentEventMessage) error {
	return p.publish(ctx, event.Type, event.OrderID, event.OccurredAt, event)
}

// PublishStockEvent implements services.StockEventPublisher.
func (p *KafkaPublisher) PublishStockEvent(ctx context.Context, event services.StockEventMessage) error {
	return p.publish(ctx, event.Type, event.SkuID, event.OccurredAt, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType, key string, occurredAt time.Time, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal %s payload: %w", eventType, err)
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(envelope{
		ID:         p.newID(),
		Type:       eventType,
		OccurredAt: occurredAt,
		Payload:    body,
	})
	if err != nil {
		return fmt.Errorf("events: marshal %s envelope: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  occurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: publish %s: %w", eventType, err)
	}
	return nil
}

// NopPublisher satisfies the publisher interfaces when no brokers are
// configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, services.OrderEventMessage) error {
	return nil
}

func (NopPublisher) PublishPaymentEvent(context.Context, services.PaymentEventMessage) error {
	return nil
}

func (NopPublisher) PublishStockEvent(context.Context, services.StockEventMessage) error {
	return nil
}
