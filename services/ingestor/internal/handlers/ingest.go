package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vanamuthuV/logsy/pkg/events"
	"github.com/vanamuthuV/logsy/services/ingestor/internal/producer"
	"github.com/vanamuthuV/logsy/services/ingestor/internal/telemetry"
)

// IngestResponse is returned when events are accepted.
type IngestResponse struct {
	Status   string   `json:"status"`
	EventIDs []string `json:"event_ids"`
}

// IngestHandler validates submitted events and publishes them to the bus.
type IngestHandler struct {
	publisher      producer.LogPublisher
	prom           *telemetry.IngestMetrics
	pipeline       PipelineMetrics
	maxEventSize   int64
	publishTimeout time.Duration
	now            func() time.Time
	newID          func() string
}

// IngestOption configures an IngestHandler.
type IngestOption func(*IngestHandler)

// WithPipelineMetrics reports counts to the shared Redis collector.
func WithPipelineMetrics(m PipelineMetrics) IngestOption {
	return func(h *IngestHandler) {
		if m != nil {
			h.pipeline = m
		}
	}
}

// WithPublishTimeout bounds each publish call.
func WithPublishTimeout(d time.Duration) IngestOption {
	return func(h *IngestHandler) {
		if d > 0 {
			h.publishTimeout = d
		}
	}
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(pub producer.LogPublisher, prom *telemetry.IngestMetrics, maxEventSize int64, opts ...IngestOption) *IngestHandler {
	h := &IngestHandler{
		publisher:      pub,
		prom:           prom,
		pipeline:       NoOpMetrics{},
		maxEventSize:   maxEventSize,
		publishTimeout: 10 * time.Second,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP accepts one JSON event or an NDJSON batch.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mt, err := mediaType(r)
	if err != nil {
		h.prom.EventsTotal.WithLabelValues(telemetry.StatusErrorMediaType).Inc()
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxEventSize)
	body, err := readBody(r, h.maxEventSize)
	if err != nil {
		switch {
		case errors.Is(err, errPayloadTooLarge):
			h.prom.EventsTotal.WithLabelValues(telemetry.StatusErrorSize).Inc()
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, errUnsupportedMediaType):
			h.prom.EventsTotal.WithLabelValues(telemetry.StatusErrorMediaType).Inc()
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		default:
			h.prom.EventsTotal.WithLabelValues(telemetry.StatusErrorParse).Inc()
			http.Error(w, "Bad request: "+err.Error(), http.StatusBadRequest)
		}
		return
	}
	h.prom.BytesTotal.Add(float64(len(body)))

	receivedAt := h.now().UTC()
	var batch []*events.LogEvent
	if mt == contentTypeNDJSON {
		batch, err = parseBatch(body, receivedAt)
	} else {
		var e *events.LogEvent
		if e, err = parseEvent(body, receivedAt); err == nil {
			batch = []*events.LogEvent{e}
		}
	}
	if err != nil {
		h.prom.EventsTotal.WithLabelValues(telemetry.StatusErrorParse).Inc()
		slog.Warn("Rejected invalid log submission", "error", err, "remote_addr", r.RemoteAddr)
		http.Error(w, "Invalid log event: "+err.Error(), http.StatusBadRequest)
		return
	}

	envs := make([]producer.Envelope, len(batch))
	ids := make([]string, len(batch))
	for i, e := range batch {
		ids[i] = h.newID()
		envs[i] = producer.Envelope{ID: ids[i], Event: e, ReceivedAt: receivedAt}
		h.pipeline.RecordReceived()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.publishTimeout)
	defer cancel()

	start := time.Now()
	err = h.publisher.PublishBatch(ctx, envs)
	h.prom.PublishDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		h.prom.EventsTotal.WithLabelValues(telemetry.StatusErrorPublish).Add(float64(len(envs)))
		h.pipeline.RecordError()
		slog.Error("Failed to publish log events",
			"count", len(envs),
			"service", batch[0].Service,
			"error", err,
		)
		http.Error(w, "Failed to submit log events", http.StatusServiceUnavailable)
		return
	}

	h.prom.EventsTotal.WithLabelValues(telemetry.StatusAccepted).Add(float64(len(envs)))
	for _, e := range batch {
		h.pipeline.RecordPublished()
		h.pipeline.IncrementCustom("events_" + string(e.Level))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(IngestResponse{Status: "accepted", EventIDs: ids}); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
