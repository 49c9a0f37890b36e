// Package producer publishes accepted log events to Kafka.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	kafkautil "github.com/vanamuthuV/logsy/pkg/kafka"
	"github.com/vanamuthuV/logsy/pkg/retry"
)

// LogPublisher defines the interface for publishing log events.
type LogPublisher interface {
	// Publish writes a single event.
	Publish(ctx context.Context, env Envelope) error

	// PublishBatch writes all events in one request.
	PublishBatch(ctx context.Context, envs []Envelope) error

	// Close releases the underlying writer.
	Close() error
}

// messageWriter is the subset of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps a synchronous Kafka writer.
type Producer struct {
	writer messageWriter
	topic  string
	retry  retry.Config
}

var _ LogPublisher = (*Producer)(nil)

// New creates a producer for topic. Writes wait for the leader ack.
func New(brokers string, topic string) (*Producer, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)
	slog.Info("Initializing Kafka producer",
		"brokers", brokerList,
		"topic", topic,
	)

	writer := kafkautil.NewWriter(brokerList, topic)

	slog.Info("Kafka producer configured",
		"write_timeout", kafkautil.WriteTimeout,
		"required_acks", "RequireOne",
		"async", false,
		"partition_key", "event_id",
	)

	return &Producer{writer: writer, topic: topic, retry: retry.PublishConfig()}, nil
}

// newWithWriter is used by tests to inject a fake writer.
func newWithWriter(w messageWriter, topic string, cfg retry.Config) *Producer {
	return &Producer{writer: w, topic: topic, retry: cfg}
}

// Publish encodes env and writes it to Kafka.
func (p *Producer) Publish(ctx context.Context, env Envelope) error {
	return p.PublishBatch(ctx, []Envelope{env})
}

// PublishBatch encodes every envelope and writes them in a single call.
// Transient broker errors such as a topic that is still being created are
// retried with backoff.
func (p *Producer) PublishBatch(ctx context.Context, envs []Envelope) error {
	if len(envs) == 0 {
		return nil
	}

	msgs, err := encodeEnvelopes(envs)
	if err != nil {
		return fmt.Errorf("failed to encode log event: %w", err)
	}

	err = retry.Do(ctx, p.retry, "kafka_publish", func() error {
		return p.writer.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		slog.Error("Failed to write messages to Kafka",
			"topic", p.topic,
			"count", len(msgs),
			"first_event_id", envs[0].ID,
			"error", err,
		)
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	slog.Debug("Published log events", "topic", p.topic, "count", len(msgs))
	return nil
}

// Close gracefully closes the Kafka writer and releases resources.
func (p *Producer) Close() error {
	slog.Info("Closing Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing Kafka producer", "error", err)
		return err
	}
	slog.Info("Kafka producer closed successfully")
	return nil
}
