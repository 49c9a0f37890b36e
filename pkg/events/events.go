// Package events defines the canonical log event exchanged between the
// ingestion gateway and the consumer groups.
package events

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SchemaVersion is sent as a message header so consumers can detect payloads
// from a newer producer.
const SchemaVersion = 1

// Level is the severity of a log event.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelFatal Level = "FATAL"
)

// Levels lists every accepted level, lowest severity first.
var Levels = []Level{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal}

// ParseLevel converts s to a Level. Matching is case-insensitive.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", fmt.Errorf("invalid level %q: must be one of DEBUG, INFO, WARN, ERROR, FATAL", s)
	}
	return l, nil
}

// ParseLevels parses a comma-separated list of levels, e.g. "ERROR,FATAL".
func ParseLevels(csv string) ([]Level, error) {
	var out []Level
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		l, err := ParseLevel(part)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("level list cannot be empty")
	}
	return out, nil
}

// IsValid reports whether l is one of the known levels.
func (l Level) IsValid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
		return true
	}
	return false
}

// IsAlerting reports whether events at this level are unresolved incidents.
func (l Level) IsAlerting() bool {
	return l == LevelError || l == LevelFatal
}

func (l Level) String() string { return string(l) }

// UnmarshalJSON normalizes the level and rejects unknown labels.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("level must be a string: %w", err)
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Timestamp is the time an event occurred. It is always held in UTC and
// encoded as RFC 3339 with nanoseconds. Decoding also accepts a JSON number of
// epoch seconds (fractional allowed), milliseconds, microseconds or
// nanoseconds, told apart by magnitude.
type Timestamp struct {
	time.Time
}

// NewTimestamp returns t as a UTC Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// Epoch magnitude boundaries. 1e11 seconds, 1e14 milliseconds and 1e17
// microseconds are all around the year 5138.
const (
	epochMillisThreshold = 1e11
	epochMicrosThreshold = 1e14
	epochNanosThreshold  = 1e17
)

// RFC 3339 has four year digits.
const (
	minYear = 0
	maxYear = 9999
)

// MarshalJSON encodes the timestamp as an RFC 3339 string, or null when unset.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	if !t.encodable() {
		return nil, fmt.Errorf("timestamp year %d outside %d-%d", t.Year(), minYear, maxYear)
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts an RFC 3339 string or a numeric epoch.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}

	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", str, err)
		}
		t.Time = parsed.UTC()
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return fmt.Errorf("invalid timestamp %s: must be RFC 3339 or a non-negative epoch", s)
	}

	var parsed time.Time
	switch {
	case f < epochMillisThreshold:
		sec, frac := math.Modf(f)
		parsed = time.Unix(int64(sec), int64(math.Round(frac*1e9)))
	case f < epochMicrosThreshold:
		parsed = time.UnixMilli(epochInt(s, f))
	case f < epochNanosThreshold:
		parsed = time.UnixMicro(epochInt(s, f))
	default:
		parsed = time.Unix(0, epochInt(s, f))
	}
	ts := Timestamp{Time: parsed.UTC()}
	if !ts.encodable() {
		return fmt.Errorf("invalid timestamp %s: year %d outside %d-%d", s, ts.Year(), minYear, maxYear)
	}
	*t = ts
	return nil
}

// epochInt prefers the exact integer over the float when s has no fraction.
func epochInt(s string, f float64) int64 {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return int64(f)
}

func (t Timestamp) encodable() bool {
	y := t.UTC().Year()
	return y >= minYear && y <= maxYear
}

// LogEvent is one application log occurrence.
type LogEvent struct {
	Timestamp  Timestamp      `json:"timestamp"`
	Level      Level          `json:"level"`
	Message    string         `json:"message"`
	Service    string         `json:"service"`
	InstanceID string         `json:"instanceId,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	TraceID    string         `json:"traceId,omitempty"`
	StackTrace string         `json:"stackTrace,omitempty"`
}

// Validate checks the required fields.
func (e *LogEvent) Validate() error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if !e.Timestamp.encodable() {
		return fmt.Errorf("timestamp year %d outside %d-%d", e.Timestamp.Year(), minYear, maxYear)
	}
	if e.Level == "" {
		return fmt.Errorf("level is required")
	}
	if !e.Level.IsValid() {
		return fmt.Errorf("invalid level %q", e.Level)
	}
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Errorf("message is required")
	}
	if strings.TrimSpace(e.Service) == "" {
		return fmt.Errorf("service is required")
	}
	return nil
}

// IsAlerting reports whether the event is ERROR or FATAL.
func (e *LogEvent) IsAlerting() bool {
	return e.Level.IsAlerting()
}

// LogAttrs returns the identifying fields used in log lines.
func (e *LogEvent) LogAttrs() []any {
	return []any{
		"service", e.Service,
		"level", e.Level,
		"instance_id", e.InstanceID,
		"trace_id", e.TraceID,
	}
}
