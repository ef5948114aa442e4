// Package bus wraps Kafka publish/consume for domain events.
//
// Grounded on manifold's internal/tools/kafka producer pattern and
// original_source/app/infra/kafka.py's canonical-JSON envelope encoding.
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/regulation-registry/core/internal/canonjson"
	"github.com/regulation-registry/core/internal/events"
)

// Producer publishes domain events to a topic using canonical JSON so that
// event bytes are reproducible for hashing/logging.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer builds a Producer writing to topic across the given brokers.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
		topic: topic,
	}
}

// Publish writes ev keyed by its entity id, assigning an EventID and an At
// timestamp when they are empty.
func (p *Producer) Publish(ctx context.Context, ev events.DomainEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := canonjson.Marshal(ev)
	if err != nil {
		return fmt.Errorf("bus: marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.EntityID),
		Value: body,
	})
}

// Close releases the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
