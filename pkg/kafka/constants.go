package kafka

import "time"

const (
	// MaxPollWait bounds how long a fetch blocks waiting for new data.
	MaxPollWait = 500 * time.Millisecond
	// MaxFetchBytes caps a single fetch response.
	MaxFetchBytes = 10e6
	// CommitInterval of zero makes CommitMessages synchronous.
	CommitInterval = 0
	// WriteTimeout bounds a single produce request.
	WriteTimeout = 10 * time.Second
	// DefaultPartitions is used when the topic has to be created.
	DefaultPartitions = 3
)

// Header keys attached to every published log event.
const (
	HeaderContentType   = "content-type"
	HeaderSchemaVersion = "schema_version"
	HeaderLevel         = "level"
	HeaderEventID       = "event_id"
)
