package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	kafkautil "github.com/vanamuthuV/logsy/pkg/kafka"
	"github.com/vanamuthuV/logsy/pkg/metrics"
	"github.com/vanamuthuV/logsy/pkg/shared"
	"github.com/vanamuthuV/logsy/services/ingestor/internal/config"
	"github.com/vanamuthuV/logsy/services/ingestor/internal/handlers"
	"github.com/vanamuthuV/logsy/services/ingestor/internal/producer"
	"github.com/vanamuthuV/logsy/services/ingestor/internal/router"
	"github.com/vanamuthuV/logsy/services/ingestor/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Kafka broker addresses (comma-separated)")
	flag.StringVar(&cfg.Topic, "topic", cfg.Topic, "Kafka topic for accepted log events")
	flag.StringVar(&cfg.HTTPPort, "http-port", cfg.HTTPPort, "HTTP port for the gateway")
	flag.Int64Var(&cfg.MaxEventSizeBytes, "max-event-size", cfg.MaxEventSizeBytes, "Maximum decompressed request body size in bytes")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis server address for pipeline metrics")
	flag.BoolVar(&cfg.MockProducer, "mock", cfg.MockProducer, "Use mock producer (no Kafka required, logs events instead)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	shared.SetupLogging(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting ingestor",
		"kafka_brokers", cfg.KafkaBrokers,
		"topic", cfg.Topic,
		"http_port", cfg.HTTPPort,
		"max_event_size_bytes", cfg.MaxEventSizeBytes,
		"redis_addr", cfg.RedisAddr,
		"api_key_required", cfg.APIKeyHash != "",
		"mock", cfg.MockProducer,
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	var publisher producer.LogPublisher
	if cfg.MockProducer {
		slog.Info("Using mock mode - events will be logged but not sent to Kafka")
		publisher = producer.NewMock(cfg.Topic)
	} else {
		if brokers := kafkautil.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
			if err := kafkautil.EnsureTopic(brokers[0], cfg.Topic, cfg.TopicPartitions); err != nil {
				slog.Warn("Could not verify topic, relying on broker auto-creation", "topic", cfg.Topic, "error", err)
			}
		}
		kafkaProd, err := producer.New(cfg.KafkaBrokers, cfg.Topic)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "error", err)
			slog.Info("Tip: Start Kafka with 'docker compose up -d kafka' or use --mock flag to test without Kafka")
			os.Exit(1)
		}
		publisher = kafkaProd
	}
	defer publisher.Close()

	// Pipeline metrics are optional; without Redis the collector only counts locally.
	var metricsReader handlers.MetricsReader
	redisClient, err := shared.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
	if err != nil {
		slog.Warn("Redis unavailable, pipeline metrics disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		metricsReader = metrics.NewReader(redisClient)
	}
	metricsCollector := metrics.NewCollector("ingestor", redisClient)
	metricsCollector.Start(ctx)
	defer metricsCollector.Stop()

	prom := telemetry.NewIngestMetrics(prometheus.DefaultRegisterer)

	ingest := handlers.NewIngestHandler(publisher, prom, cfg.MaxEventSizeBytes,
		handlers.WithPipelineMetrics(metricsCollector),
		handlers.WithPublishTimeout(cfg.PublishTimeout),
	)

	server := router.NewServer(cfg.HTTPPort, router.Deps{
		Ingest:   ingest,
		Services: handlers.NewServicesMetricsHandler(metricsReader),
		APIKey:   router.NewAPIKeyVerifier(cfg.APIKeyHash, prom),
		Gatherer: prometheus.DefaultGatherer,
	})
	if cfg.APIKeyHash == "" {
		slog.Warn("INGEST_API_KEY_HASH not set, ingestion endpoints are unauthenticated")
	}

	go func() {
		slog.Info("Gateway listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Gateway server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down gateway", "error", err)
	}

	slog.Info("Ingestor stopped")
}
