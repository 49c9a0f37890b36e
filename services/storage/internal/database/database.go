// Package database stores log records in PostgreSQL and serves the query API.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

const (
	connectTimeout  = 5 * time.Second
	connMaxLifetime = 30 * time.Minute
)

// DB is the log record store.
type DB struct {
	conn *sql.DB
}

// Open connects to dsn with at most maxConns open connections and pings it
// before returning.
func Open(ctx context.Context, dsn string, maxConns int) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	maxConns = max(maxConns, 1)
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(max(maxConns/2, 1))
	conn.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{conn: conn}, nil
}

// NewWithConn wraps an open pool. Tests use it with sqlmock.
func NewWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Ping reports whether the database answers.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close releases the pool. A DB without a pool closes cleanly.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	slog.Info("Closing database connection pool")
	return db.conn.Close()
}
