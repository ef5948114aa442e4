package bus

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/regulation-registry/core/internal/events"
)

// Handler processes one domain event. A returned error is classified as
// transient (retried up to maxAttempts) or terminal (sent to the DLQ
// immediately), following the string-matching heuristic from
// internal/orchestrator/kafka.go's HandleCommandMessage callers.
type Handler func(ctx context.Context, ev events.DomainEvent) error

const (
	maxAttempts  = 3
	fetchRetryDelay = 500 * time.Millisecond
)

// Consumer runs a bounded worker pool over a single Kafka topic, committing
// each message once handling ends, whatever the outcome: after success,
// after a DLQ publish, and also when the DLQ publish itself fails.
// Grounded on manifold's internal/orchestrator/kafka.go::StartKafkaConsumer.
type Consumer struct {
	reader   *kafka.Reader
	dlq      *kafka.Writer
	handler  Handler
	workers  int
	log      zerolog.Logger
}

// NewConsumer builds a Consumer for topic under groupID, with workers
// concurrent goroutines draining the internal jobs queue.
func NewConsumer(brokers []string, groupID, topic string, workers int, handler Handler, log zerolog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		dlq: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic + ".dlq",
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
		handler: handler,
		workers: workers,
		log:     log.With().Str("topic", topic).Logger(),
	}
}

// Run blocks, fetching and dispatching messages until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	defer c.dlq.Close()

	jobs := make(chan kafka.Message, maxInt(64, c.workers*4))

	var wg sync.WaitGroup
	wg.Add(c.workers)
	for i := 0; i < c.workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			for msg := range jobs {
				c.process(ctx, msg)
			}
		}(i)
	}

	go func() {
		defer close(jobs)
		for {
			if ctx.Err() != nil {
				return
			}
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				c.log.Error().Err(err).Msg("fetch error")
				t := time.NewTimer(fetchRetryDelay)
				select {
				case <-t.C:
				case <-ctx.Done():
					if !t.Stop() {
						<-t.C
					}
					return
				}
				continue
			}
			select {
			case jobs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return ctx.Err()
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	var ev events.DomainEvent
	decodeErr := json.Unmarshal(msg.Value, &ev)

	var lastErr error
	if decodeErr != nil {
		lastErr = decodeErr
	} else {
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := c.handler(ctx, ev)
			if err == nil {
				lastErr = nil
				break
			}
			lastErr = err
			if !isTransient(err) || attempt == maxAttempts || ctx.Err() != nil {
				break
			}
			backoff := time.Duration(200*(1<<uint(attempt-1))) * time.Millisecond
			c.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("transient handler error, retrying")
			sleepCtx, cancel := context.WithTimeout(ctx, backoff)
			<-sleepCtx.Done()
			cancel()
		}
	}

	if lastErr != nil {
		c.publishDLQ(ctx, msg, lastErr)
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.Error().Err(err).Msg("commit failed")
	}
}

func (c *Consumer) publishDLQ(ctx context.Context, msg kafka.Message, cause error) {
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers, kafka.Header{
			Key:   "dlq_reason",
			Value: []byte(cause.Error()),
		}),
	})
	if err != nil {
		c.log.Error().Err(err).Str("key", string(msg.Key)).Msg("failed to publish to dlq")
		return
	}
	c.log.Warn().Str("key", string(msg.Key)).Err(cause).Msg("published to dlq")
}

// isTransient classifies an error by substring match, grounded on the same
// heuristic manifold's orchestrator uses for retriable command failures.
func isTransient(err error) bool {
	s := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "temporary", "transient", "retry", "too many requests"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
