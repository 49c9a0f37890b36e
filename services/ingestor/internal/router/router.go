// Package router wires the gateway's HTTP routes and middleware.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanamuthuV/logsy/services/ingestor/internal/handlers"
)

const welcomeMessage = "Hello, welcome to logsy your log monitoring system for your SAAS product"

// Deps groups everything the router serves.
type Deps struct {
	Ingest   *handlers.IngestHandler
	Services *handlers.ServicesMetricsHandler
	APIKey   *APIKeyVerifier
	Gatherer prometheus.Gatherer
}

// NewRouter creates a chi router with all routes configured.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(welcomeMessage))
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(apiKeyMiddleware(d.APIKey))
		r.Method(http.MethodPost, "/api/v1/logs", d.Ingest)
		r.Method(http.MethodPost, "/logs", d.Ingest)
	})

	if d.Services != nil {
		r.Method(http.MethodGet, "/api/v1/services/metrics", d.Services)
	}
	return r
}

// NewServer creates a new HTTP server with the router configured.
func NewServer(port string, d Deps) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(d),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
