// Package api serves the alerter's subscriber admin endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vanamuthuV/logsy/services/alerter/internal/subscribers"
)

const maxBodyBytes = 1 << 20

// SubscriberStore is the store the admin API reads and replaces.
type SubscriberStore interface {
	Load(ctx context.Context) ([]subscribers.Subscriber, error)
	Save(ctx context.Context, list []subscribers.Subscriber) error
}

// Status reports runtime state for the health endpoint.
type Status interface {
	Ping(ctx context.Context) error
	IdentityResolved() bool
	Notifiers() []string
}

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	store  SubscriberStore
	status Status
}

// NewHandlers creates a new handlers instance.
func NewHandlers(store SubscriberStore, status Status) *Handlers {
	return &Handlers{store: store, status: status}
}

// SubscribersResponse is returned by GetSubscribers.
type SubscribersResponse struct {
	Subscribers []subscribers.Subscriber `json:"subscribers"`
	Effective   []string                 `json:"effective"`
}

// HealthResponse is returned by Health.
type HealthResponse struct {
	Status           string   `json:"status"`
	IdentityResolved bool     `json:"identity_resolved"`
	Notifiers        []string `json:"notifiers"`
}

// GetSubscribers returns the stored list and the addresses that receive alerts.
func (h *Handlers) GetSubscribers(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.Load(r.Context())
	if err != nil {
		slog.Error("Failed to load subscribers", "error", err)
		http.Error(w, "Subscriber store unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, SubscribersResponse{
		Subscribers: list,
		Effective:   subscribers.Effective(list),
	})
}

// PutSubscribers replaces the stored list with the JSON array in the body.
func (h *Handlers) PutSubscribers(w http.ResponseWriter, r *http.Request) {
	var list []subscribers.Subscriber
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&list); err != nil {
		http.Error(w, "Invalid subscriber list: "+err.Error(), http.StatusBadRequest)
		return
	}
	if list == nil {
		list = []subscribers.Subscriber{}
	}

	if err := h.store.Save(r.Context(), list); err != nil {
		if errors.Is(err, subscribers.ErrInvalidSubscriber) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to save subscribers", "error", err)
		http.Error(w, "Subscriber store unavailable", http.StatusServiceUnavailable)
		return
	}

	slog.Info("Subscriber list replaced", "count", len(list), "effective", len(subscribers.Effective(list)))
	writeJSON(w, http.StatusOK, SubscribersResponse{
		Subscribers: list,
		Effective:   subscribers.Effective(list),
	})
}

// Health reports whether Redis is reachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:           "ok",
		IdentityResolved: h.status.IdentityResolved(),
		Notifiers:        h.status.Notifiers(),
	}
	if err := h.status.Ping(ctx); err != nil {
		resp.Status = "redis unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
