// Package api provides the read-only HTTP API over stored log records.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vanamuthuV/logsy/pkg/events"
	"github.com/vanamuthuV/logsy/services/storage/internal/database"
)

// LogReader defines the read operations the API needs.
type LogReader interface {
	ListLogs(ctx context.Context, f database.LogFilter) ([]database.LogRecord, error)
	GetLog(ctx context.Context, id int64) (*database.LogRecord, error)
	Ping(ctx context.Context) error
}

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	db LogReader
}

// NewHandlers creates a new handlers instance.
func NewHandlers(db LogReader) *Handlers {
	return &Handlers{db: db}
}

// ListLogsResponse is returned by ListLogs.
type ListLogsResponse struct {
	Logs   []database.LogRecord `json:"logs"`
	Count  int                  `json:"count"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// ListLogs returns stored records, newest first.
func (h *Handlers) ListLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLogFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.db.ListLogs(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to list logs", "error", err, "service", filter.Service)
		http.Error(w, "Failed to list logs", http.StatusInternalServerError)
		return
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = database.DefaultListLimit
	}
	if limit > database.MaxListLimit {
		limit = database.MaxListLimit
	}

	writeJSON(w, http.StatusOK, ListLogsResponse{
		Logs:   records,
		Count:  len(records),
		Limit:  limit,
		Offset: filter.Offset,
	})
}

// GetLog returns a single record by id.
func (h *Handlers) GetLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "id must be a positive integer", http.StatusBadRequest)
		return
	}

	record, err := h.db.GetLog(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Log not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get log", "error", err, "id", id)
		http.Error(w, "Failed to get log", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// Health reports whether the database is reachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		slog.Warn("Health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// parseLogFilter reads service, level, resolved, since, limit and offset
// from the query string. level may be a comma separated list.
func parseLogFilter(r *http.Request) (database.LogFilter, error) {
	q := r.URL.Query()
	f := database.LogFilter{Service: q.Get("service")}

	if v := q.Get("level"); v != "" {
		levels, err := events.ParseLevels(v)
		if err != nil {
			return f, err
		}
		f.Levels = levels
	}
	if v := q.Get("resolved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("resolved must be true or false")
		}
		f.Resolved = &b
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return f, errors.New("since must be an RFC 3339 timestamp")
		}
		f.Since = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
