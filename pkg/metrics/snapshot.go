// Package metrics publishes per-service pipeline counters to Redis under
// metrics:<service> and reads them back for the gateway's combined view.
package metrics

import "time"

const (
	// KeyPrefix is prepended to the service name to form the Redis key.
	KeyPrefix = "metrics:"
	// TTL bounds how long a snapshot survives without a refresh.
	TTL = 2 * time.Minute
	// DefaultInterval is how often a Collector flushes.
	DefaultInterval = 30 * time.Second
)

// Snapshot is one service's counters at UpdatedAt. Counters are totals since
// StartedAt; PerSecond covers the last flush interval.
type Snapshot struct {
	Service   string    `json:"service"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Stale     bool      `json:"stale"`

	Received  uint64 `json:"received"`
	Processed uint64 `json:"processed"`
	Published uint64 `json:"published"`
	Errors    uint64 `json:"errors"`

	PerSecond    float64 `json:"per_second"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`

	Counters map[string]uint64 `json:"counters,omitempty"`
}

// Key returns the Redis key for service.
func Key(service string) string {
	return KeyPrefix + service
}
