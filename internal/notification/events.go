package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher sends domain events to Kafka. Publishing is
// fire-and-forget from the core's perspective: callers log failures
// and move on.
type EventPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewEventPublisher creates a publisher for the given brokers and topic
func NewEventPublisher(brokers []string, topic string, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

// envelope wraps every published event with its type and emission time.
type envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Publish sends one event keyed by the owning entity's id
func (p *EventPublisher) Publish(ctx context.Context, key, eventType string, payload interface{}) error {
	data, err := json.Marshal(envelope{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}

	p.logger.Debug("Published event", zap.String("type", eventType), zap.String("key", key))
	return nil
}

// Close closes the underlying Kafka writer
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}

// Event types emitted by the advisory core.
const (
	EventResponseCompleted = "questionnaire.response_completed"
	EventOfferCreated      = "offer.created"
	EventAdviceCreated     = "advice.created"
)

// ResponseCompletedEvent is published when a customer finishes a questionnaire.
type ResponseCompletedEvent struct {
	ResponseID int64      `json:"response_id"`
	MandateID  int64      `json:"mandate_id"`
	Category   string     `json:"category"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// OfferCreatedEvent is published when offer automation produced an offer.
type OfferCreatedEvent struct {
	OfferID       int64 `json:"offer_id"`
	OpportunityID int64 `json:"opportunity_id"`
	MandateID     int64 `json:"mandate_id"`
	OptionCount   int   `json:"option_count"`
}

// AdviceCreatedEvent is published when a new advice record is written.
type AdviceCreatedEvent struct {
	AdviceID  int64  `json:"advice_id"`
	MandateID int64  `json:"mandate_id"`
	ProductID int64  `json:"product_id"`
	RuleID    string `json:"rule_id"`
}
