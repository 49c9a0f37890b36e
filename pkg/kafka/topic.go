package kafka

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// EnsureTopic creates topic on the cluster when it does not exist yet.
// Failures are returned but callers treat them as advisory: the broker may
// auto-create topics, or an operator may create them out of band.
func EnsureTopic(broker, topic string, partitions int) error {
	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker %s: %w", broker, err)
	}
	defer conn.Close()

	if existing, err := conn.ReadPartitions(topic); err == nil && len(existing) > 0 {
		slog.Info("Topic already exists", "topic", topic, "partitions", len(existing))
		return nil
	}

	// Topic creation has to go through the controller broker.
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to look up kafka controller: %w", err)
	}
	ctrlConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer ctrlConn.Close()

	if partitions <= 0 {
		partitions = DefaultPartitions
	}
	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", topic, err)
	}

	// Creation is asynchronous on the broker side.
	for i := 0; i < 5; i++ {
		if existing, err := conn.ReadPartitions(topic); err == nil && len(existing) > 0 {
			slog.Info("Created topic", "topic", topic, "partitions", len(existing))
			return nil
		}
		time.Sleep(time.Second)
	}

	slog.Warn("Topic created but not yet visible",
		"topic", topic,
		"note", "Producers retry on Unknown Topic Or Partition",
	)
	return nil
}
