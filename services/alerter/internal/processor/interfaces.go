// Package processor turns alerting log events into notifications.
package processor

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/vanamuthuV/logsy/services/alerter/internal/identity"
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier"
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

// RecipientResolver returns the current effective recipient list.
type RecipientResolver interface {
	Resolve(ctx context.Context) ([]string, error)
}

// AlertDispatcher delivers a rendered alert.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, alert notifier.Alert) error
}

// SenderIdentity exposes the resolved sender without doing I/O.
type SenderIdentity interface {
	Cached() (identity.Identity, bool)
}
