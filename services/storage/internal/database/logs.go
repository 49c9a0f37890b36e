package database

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/vanamuthuV/logsy/pkg/events"
	"github.com/vanamuthuV/logsy/pkg/retry"
)

// ErrNotFound is returned when a log record does not exist.
var ErrNotFound = errors.New("log record not found")

// LogRecord is a stored log event.
type LogRecord struct {
	ID int64 `json:"id"`
	events.LogEvent
	// Resolved is false for ERROR and FATAL records and nil otherwise.
	Resolved *bool     `json:"resolved,omitempty"`
	StoredAt time.Time `json:"storedAt"`
}

// LogFilter narrows ListLogs. Zero values mean "no constraint".
type LogFilter struct {
	Service  string
	Levels   []events.Level
	Resolved *bool
	Since    time.Time
	Limit    int
	Offset   int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

const insertLogQuery = `
	INSERT INTO logs (event_time, level, message, service, instance_id, metadata, trace_id, stack_trace, resolved, fingerprint)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Fingerprint derives a natural key from the fields that identify a logical
// event, so a redelivered message maps to the same key.
func Fingerprint(e *events.LogEvent) string {
	h := sha256.New()
	h.Write([]byte(e.Timestamp.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte{0})
	h.Write([]byte(e.Service))
	h.Write([]byte{0})
	h.Write([]byte(e.Message))
	h.Write([]byte{0})
	h.Write([]byte(e.TraceID))
	return hex.EncodeToString(h.Sum(nil))
}

// resolvedFor returns false for alerting levels and NULL for everything else.
func resolvedFor(level events.Level) sql.NullBool {
	return sql.NullBool{Bool: false, Valid: level.IsAlerting()}
}

func nullString(s string) sql.NullString {
	s = stripNUL(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// stripNUL removes NUL bytes, which Postgres refuses in TEXT and JSONB.
func stripNUL(s string) string {
	if strings.IndexByte(s, 0) < 0 {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// stripNULValue applies stripNUL to every string and key in a decoded JSON
// value.
func stripNULValue(v any) any {
	switch t := v.(type) {
	case string:
		return stripNUL(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[stripNUL(k)] = stripNULValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = stripNULValue(val)
		}
		return out
	default:
		return v
	}
}

// classify marks Postgres data exceptions (class 22) and integrity
// violations (class 23) permanent: the same row would be refused again.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "23":
			return retry.Permanent(err)
		}
	}
	return err
}

// marshalMetadataToJSONB serializes metadata for JSONB storage.
// Empty metadata is stored as NULL.
func marshalMetadataToJSONB(metadata map[string]any) (sql.NullString, error) {
	if len(metadata) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(stripNULValue(metadata))
	if err != nil {
		return sql.NullString{}, retry.Permanent(fmt.Errorf("failed to marshal metadata: %w", err))
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func insertArgs(e *events.LogEvent, fingerprint sql.NullString) ([]any, error) {
	metadata, err := marshalMetadataToJSONB(e.Metadata)
	if err != nil {
		return nil, err
	}
	return []any{
		e.Timestamp.UTC(),
		string(e.Level),
		stripNUL(e.Message),
		stripNUL(e.Service),
		nullString(e.InstanceID),
		metadata,
		nullString(e.TraceID),
		nullString(e.StackTrace),
		resolvedFor(e.Level),
		fingerprint,
	}, nil
}

// InsertLog stores e as a new record and returns the assigned id. Every call
// creates a row, including for redelivered duplicates. Errors Postgres would
// repeat for the same row are marked with retry.Permanent.
func (db *DB) InsertLog(ctx context.Context, e *events.LogEvent) (int64, error) {
	args, err := insertArgs(e, sql.NullString{})
	if err != nil {
		return 0, err
	}

	var id int64
	if err := db.conn.QueryRowContext(ctx, insertLogQuery+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, classify(fmt.Errorf("failed to insert log: %w", err))
	}

	slog.Debug("Inserted log record", "id", id, "service", e.Service, "level", e.Level)
	return id, nil
}

// InsertLogIdempotent stores e keyed by its fingerprint. It returns the new id,
// or nil when a record with the same fingerprint already exists.
func (db *DB) InsertLogIdempotent(ctx context.Context, e *events.LogEvent) (*int64, error) {
	args, err := insertArgs(e, nullString(Fingerprint(e)))
	if err != nil {
		return nil, err
	}

	query := insertLogQuery + `
	ON CONFLICT (fingerprint) WHERE fingerprint IS NOT NULL DO NOTHING
	RETURNING id`

	var id int64
	err = db.conn.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("Log record already exists, skipping",
				"service", e.Service,
				"trace_id", e.TraceID,
			)
			return nil, nil
		}
		return nil, classify(fmt.Errorf("failed to insert log: %w", err))
	}

	return &id, nil
}

const selectLogColumns = `SELECT id, event_time, level, message, service, instance_id, metadata, trace_id, stack_trace, resolved, stored_at FROM logs`

// buildListQuery renders the filtered, paginated select.
func buildListQuery(f LogFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if f.Service != "" {
		add("service = ?", f.Service)
	}
	if len(f.Levels) > 0 {
		levels := make([]string, len(f.Levels))
		for i, l := range f.Levels {
			levels[i] = string(l)
		}
		add("level = ANY(?)", pq.Array(levels))
	}
	if f.Resolved != nil {
		add("resolved = ?", *f.Resolved)
	}
	if !f.Since.IsZero() {
		add("event_time >= ?", f.Since.UTC())
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var b strings.Builder
	b.WriteString(selectLogColumns)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, limit, offset)
	fmt.Fprintf(&b, " ORDER BY event_time DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

// ListLogs returns stored records matching f, newest first.
func (db *DB) ListLogs(ctx context.Context, f LogFilter) ([]LogRecord, error) {
	query, args := buildListQuery(f)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	records := make([]LogRecord, 0)
	for rows.Next() {
		rec, err := scanLogRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate logs: %w", err)
	}
	return records, nil
}

// GetLog returns the record with the given id.
func (db *DB) GetLog(ctx context.Context, id int64) (*LogRecord, error) {
	row := db.conn.QueryRowContext(ctx, selectLogColumns+" WHERE id = $1", id)
	rec, err := scanLogRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLogRecord(s scanner) (*LogRecord, error) {
	var (
		rec        LogRecord
		eventTime  time.Time
		level      string
		instanceID sql.NullString
		metadata   sql.NullString
		traceID    sql.NullString
		stackTrace sql.NullString
		resolved   sql.NullBool
	)

	err := s.Scan(
		&rec.ID,
		&eventTime,
		&level,
		&rec.Message,
		&rec.Service,
		&instanceID,
		&metadata,
		&traceID,
		&stackTrace,
		&resolved,
		&rec.StoredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan log record: %w", err)
	}

	rec.Timestamp = events.NewTimestamp(eventTime)
	rec.Level = events.Level(level)
	rec.InstanceID = instanceID.String
	rec.TraceID = traceID.String
	rec.StackTrace = stackTrace.String
	if resolved.Valid {
		v := resolved.Bool
		rec.Resolved = &v
	}
	if metadata.Valid && metadata.String != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(metadata.String)))
		dec.UseNumber()
		if err := dec.Decode(&rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for log %d: %w", rec.ID, err)
		}
	}
	return &rec, nil
}
