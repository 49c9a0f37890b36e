package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vanamuthuV/logsy/pkg/metrics"
)

// ServicesMetricsHandler serves metric snapshots written by every pipeline service.
type ServicesMetricsHandler struct {
	reader MetricsReader
}

// NewServicesMetricsHandler creates the handler. A nil reader makes every
// request return 503.
func NewServicesMetricsHandler(reader MetricsReader) *ServicesMetricsHandler {
	return &ServicesMetricsHandler{reader: reader}
}

// ServeHTTP returns all snapshots, or one when ?service= is given.
func (h *ServicesMetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		http.Error(w, "Metrics store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if name := r.URL.Query().Get("service"); name != "" {
		m, err := h.reader.Service(r.Context(), name)
		if errors.Is(err, metrics.ErrNotFound) {
			http.Error(w, "No metrics for service "+name, http.StatusNotFound)
			return
		}
		if err != nil {
			slog.Error("Failed to get service metrics", "service", name, "error", err)
			http.Error(w, "Failed to get service metrics", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(m)
		return
	}

	all, err := h.reader.All(r.Context())
	if err != nil {
		slog.Error("Failed to get service metrics", "error", err)
		http.Error(w, "Failed to get service metrics", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(all)
}
