package producer

import (
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vanamuthuV/logsy/pkg/events"
	kafkautil "github.com/vanamuthuV/logsy/pkg/kafka"
)

// Envelope pairs an event with the id and receive time assigned at the
// gateway.
type Envelope struct {
	ID         string
	Event      *events.LogEvent
	ReceivedAt time.Time
}

// buildKafkaMessage creates a Kafka message for an encoded event. The event id
// is the key, so the Hash balancer spreads events evenly across partitions.
// The record time is the receive time; the client's timestamp stays in the
// payload and never drives broker retention.
func buildKafkaMessage(env Envelope, payload []byte) kafka.Message {
	received := env.ReceivedAt
	if received.IsZero() {
		received = time.Now()
	}
	return kafka.Message{
		Key:   []byte(env.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: kafkautil.HeaderContentType, Value: []byte("application/json")},
			{Key: kafkautil.HeaderSchemaVersion, Value: []byte(strconv.Itoa(events.SchemaVersion))},
			{Key: kafkautil.HeaderLevel, Value: []byte(env.Event.Level)},
			{Key: kafkautil.HeaderEventID, Value: []byte(env.ID)},
		},
		Time: received.UTC(),
	}
}

// encodeEnvelopes serializes every envelope, failing on the first error so a
// batch is published whole or not at all.
func encodeEnvelopes(envs []Envelope) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(envs))
	for _, env := range envs {
		payload, err := events.Encode(env.Event)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, buildKafkaMessage(env, payload))
	}
	return msgs, nil
}
