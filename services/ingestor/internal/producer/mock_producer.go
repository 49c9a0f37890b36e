package producer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vanamuthuV/logsy/pkg/events"
)

// MockProducer logs events instead of publishing them. Useful for running the
// gateway without a Kafka instance.
type MockProducer struct {
	topic string
}

var _ LogPublisher = (*MockProducer)(nil)

// NewMock creates a new mock producer.
func NewMock(topic string) *MockProducer {
	slog.Info("Using mock producer (no Kafka connection)",
		"topic", topic,
		"note", "Events will be logged but not published to Kafka",
	)
	return &MockProducer{topic: topic}
}

// Publish logs the encoded event.
func (p *MockProducer) Publish(ctx context.Context, env Envelope) error {
	payload, err := events.Encode(env.Event)
	if err != nil {
		return fmt.Errorf("failed to encode log event: %w", err)
	}
	slog.Info("Mock publish (event logged, not sent to Kafka)",
		"topic", p.topic,
		"event_id", env.ID,
		"level", env.Event.Level,
		"service", env.Event.Service,
		"event_json", string(payload),
	)
	return nil
}

// PublishBatch logs every event in the batch.
func (p *MockProducer) PublishBatch(ctx context.Context, envs []Envelope) error {
	for _, env := range envs {
		if err := p.Publish(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op for the mock producer.
func (p *MockProducer) Close() error {
	slog.Info("Mock producer closed", "topic", p.topic)
	return nil
}
