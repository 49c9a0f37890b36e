// Package processor persists log events consumed from the bus.
package processor

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/vanamuthuV/logsy/pkg/events"
)

// MessageReader fetches raw messages and commits them on request.
type MessageReader interface {
	// FetchMessage blocks until the next message is available. It does not commit.
	FetchMessage(ctx context.Context) (kafka.Message, error)

	// CommitMessage commits the offset for the given message.
	CommitMessage(ctx context.Context, msg kafka.Message) error

	// Close closes the reader and releases resources.
	Close() error
}

// LogStorage persists log events.
type LogStorage interface {
	// InsertLog stores the event and returns the assigned id.
	InsertLog(ctx context.Context, e *events.LogEvent) (int64, error)

	// InsertLogIdempotent stores the event keyed by its fingerprint. It returns
	// nil when an identical event was already stored.
	InsertLogIdempotent(ctx context.Context, e *events.LogEvent) (*int64, error)
}
