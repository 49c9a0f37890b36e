// Package telemetry holds the Prometheus metrics exposed by the ingestor.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event outcome labels for EventsTotal.
const (
	StatusAccepted       = "accepted"
	StatusErrorParse     = "error_parse"
	StatusErrorSize      = "error_size"
	StatusErrorMediaType = "error_media_type"
	StatusErrorPublish   = "error_publish"
)

// IngestMetrics holds all Prometheus metrics for the ingest path.
type IngestMetrics struct {
	EventsTotal       *prometheus.CounterVec
	BytesTotal        prometheus.Counter
	PublishDuration   prometheus.Histogram
	APIKeyCacheHits   prometheus.Counter
	APIKeyCacheMisses prometheus.Counter
}

// NewIngestMetrics creates the metrics and registers them with reg.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	factory := promauto.With(reg)
	return &IngestMetrics{
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logsy",
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Total number of submitted events by outcome.",
		}, []string{"status"}),
		BytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logsy",
			Subsystem: "ingest",
			Name:      "bytes_total",
			Help:      "Total number of request body bytes read after decompression.",
		}),
		PublishDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "logsy",
			Subsystem: "ingest",
			Name:      "publish_duration_seconds",
			Help:      "Time spent publishing a request's events to Kafka.",
			Buckets:   prometheus.DefBuckets,
		}),
		APIKeyCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logsy",
			Subsystem: "auth",
			Name:      "api_key_cache_hits_total",
			Help:      "Total number of API key cache hits.",
		}),
		APIKeyCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "logsy",
			Subsystem: "auth",
			Name:      "api_key_cache_misses_total",
			Help:      "Total number of API key cache misses.",
		}),
	}
}
