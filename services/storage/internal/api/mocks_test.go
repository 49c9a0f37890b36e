package api

import (
	"context"

	"github.com/vanamuthuV/logsy/services/storage/internal/database"
)

// mockReader implements LogReader for testing.
type mockReader struct {
	ListLogsFn func(ctx context.Context, f database.LogFilter) ([]database.LogRecord, error)
	GetLogFn   func(ctx context.Context, id int64) (*database.LogRecord, error)
	PingErr    error

	LastFilter database.LogFilter
}

func (m *mockReader) ListLogs(ctx context.Context, f database.LogFilter) ([]database.LogRecord, error) {
	m.LastFilter = f
	if m.ListLogsFn != nil {
		return m.ListLogsFn(ctx, f)
	}
	return []database.LogRecord{}, nil
}

func (m *mockReader) GetLog(ctx context.Context, id int64) (*database.LogRecord, error) {
	if m.GetLogFn != nil {
		return m.GetLogFn(ctx, id)
	}
	return nil, database.ErrNotFound
}

func (m *mockReader) Ping(ctx context.Context) error {
	return m.PingErr
}
