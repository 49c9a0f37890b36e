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
	"sync"
	"syscall"
	"time"

	kafkautil "github.com/vanamuthuV/logsy/pkg/kafka"
	"github.com/vanamuthuV/logsy/pkg/metrics"
	"github.com/vanamuthuV/logsy/pkg/shared"
	"github.com/vanamuthuV/logsy/services/storage/internal/api"
	"github.com/vanamuthuV/logsy/services/storage/internal/config"
	"github.com/vanamuthuV/logsy/services/storage/internal/database"
	"github.com/vanamuthuV/logsy/services/storage/internal/processor"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags override the environment
	flag.StringVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Kafka broker addresses (comma-separated)")
	flag.StringVar(&cfg.Topic, "topic", cfg.Topic, "Kafka topic carrying log events")
	flag.StringVar(&cfg.ConsumerGroupID, "consumer-group-id", cfg.ConsumerGroupID, "Kafka consumer group ID")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of readers joining the consumer group")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis server address for metrics")
	flag.StringVar(&cfg.HTTPPort, "http-port", cfg.HTTPPort, "Port for the log query API")
	flag.BoolVar(&cfg.Dedupe, "dedupe", cfg.Dedupe, "Skip events whose fingerprint is already stored")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	shared.SetupLogging(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting storage service",
		"kafka_brokers", cfg.KafkaBrokers,
		"topic", cfg.Topic,
		"consumer_group_id", cfg.ConsumerGroupID,
		"workers", cfg.Workers,
		"postgres_dsn", shared.MaskDSN(cfg.PostgresDSN),
		"redis_addr", cfg.RedisAddr,
		"http_port", cfg.HTTPPort,
		"dedupe", cfg.Dedupe,
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	slog.Info("Connecting to PostgreSQL database")
	db, err := database.Open(ctx, cfg.PostgresDSN, cfg.PostgresConns)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		slog.Info("Tip: Start Postgres with 'docker compose up -d postgres' or ensure Postgres is running")
		os.Exit(1)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("Failed to prepare database schema", "error", err)
		os.Exit(1)
	}
	slog.Info("Successfully connected to PostgreSQL database")

	// Metrics are optional; without Redis the collector only counts locally.
	redisClient, err := shared.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, 0)
	if err != nil {
		slog.Warn("Redis unavailable, metrics will not be published", "error", err)
		slog.Info("Tip: Start Redis with 'docker compose up -d redis'")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}
	metricsCollector := metrics.NewCollector("storage", redisClient)
	metricsCollector.Start(ctx)
	defer metricsCollector.Stop()

	if brokers := kafkautil.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		if err := kafkautil.EnsureTopic(brokers[0], cfg.Topic, kafkautil.DefaultPartitions); err != nil {
			slog.Warn("Could not verify topic, relying on broker auto-creation", "topic", cfg.Topic, "error", err)
		}
	}

	server := api.NewServer(cfg.HTTPPort, api.NewHandlers(db))
	go func() {
		slog.Info("Log query API listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Log query API failed", "error", err)
			cancel()
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		consumer, err := kafkautil.NewConsumer(cfg.KafkaBrokers, cfg.Topic, cfg.ConsumerGroupID)
		if err != nil {
			slog.Error("Failed to create Kafka consumer", "error", err)
			slog.Info("Tip: Start Kafka with 'docker compose up -d kafka'")
			cancel()
			break
		}

		proc := processor.NewProcessor(consumer, db,
			processor.WithMetrics(metricsCollector),
			processor.WithDedupe(cfg.Dedupe),
			processor.WithStoreTimeout(cfg.StoreTimeout),
		)

		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			defer consumer.Close()
			if err := proc.ProcessLogs(ctx); err != nil {
				slog.Error("Log storage worker failed", "worker", worker, "error", err)
				cancel()
			}
		}(i)
	}

	<-ctx.Done()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down log query API", "error", err)
	}

	slog.Info("Storage service stopped")
}
