package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Consumer wraps a group reader. It hands out raw messages so the caller can
// decide whether a payload is processable, and commits only on request.
type Consumer struct {
	reader  *kafka.Reader
	topic   string
	groupID string
}

// NewConsumer creates a consumer that joins groupID on topic.
func NewConsumer(brokers, topic, groupID string) (*Consumer, error) {
	if err := ValidateConsumerParams(brokers, topic, groupID); err != nil {
		return nil, err
	}

	brokerList := ParseBrokers(brokers)
	slog.Info("Initializing Kafka consumer",
		"brokers", brokerList,
		"topic", topic,
		"group_id", groupID,
	)

	cfg := NewReaderConfig(brokerList, topic, groupID)
	reader := kafka.NewReader(cfg)
	LogReaderConfig(cfg)

	return &Consumer{reader: reader, topic: topic, groupID: groupID}, nil
}

// FetchMessage blocks until the next message is available. It never commits.
func (c *Consumer) FetchMessage(ctx context.Context) (kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to fetch message from Kafka: %w", err)
	}
	return msg, nil
}

// CommitMessage commits the offset of msg for this consumer's group.
func (c *Consumer) CommitMessage(ctx context.Context, msg kafka.Message) error {
	return c.reader.CommitMessages(ctx, msg)
}

// Close leaves the group and releases the reader.
func (c *Consumer) Close() error {
	slog.Info("Closing Kafka consumer", "topic", c.topic, "group_id", c.groupID)
	if err := c.reader.Close(); err != nil {
		slog.Error("Error closing Kafka consumer", "error", err)
		return err
	}
	slog.Info("Kafka consumer closed successfully", "group_id", c.groupID)
	return nil
}
