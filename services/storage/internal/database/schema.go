package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schemaStatements create the logs table. resolved is NULL for non-error
// levels; fingerprint is only populated when dedupe is enabled.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS logs (
		id          BIGSERIAL PRIMARY KEY,
		event_time  TIMESTAMPTZ NOT NULL,
		level       TEXT NOT NULL,
		message     TEXT NOT NULL,
		service     TEXT NOT NULL,
		instance_id TEXT,
		metadata    JSONB,
		trace_id    TEXT,
		stack_trace TEXT,
		resolved    BOOLEAN,
		fingerprint TEXT,
		stored_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS logs_fingerprint_key ON logs (fingerprint) WHERE fingerprint IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS logs_service_event_time_idx ON logs (service, event_time DESC)`,
	`CREATE INDEX IF NOT EXISTS logs_unresolved_idx ON logs (event_time DESC) WHERE resolved = false`,
}

// EnsureSchema creates the logs table and its indexes if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	slog.Info("Database schema is up to date", "table", "logs")
	return nil
}
