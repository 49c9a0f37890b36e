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
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	kafkautil "github.com/vanamuthuV/logsy/pkg/kafka"
	"github.com/vanamuthuV/logsy/pkg/metrics"
	"github.com/vanamuthuV/logsy/pkg/shared"
	"github.com/vanamuthuV/logsy/services/alerter/internal/api"
	"github.com/vanamuthuV/logsy/services/alerter/internal/config"
	"github.com/vanamuthuV/logsy/services/alerter/internal/identity"
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier"
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier/email"
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier/email/provider"
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier/slack"
	"github.com/vanamuthuV/logsy/services/alerter/internal/processor"
	"github.com/vanamuthuV/logsy/services/alerter/internal/subscribers"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Kafka broker addresses (comma-separated)")
	flag.StringVar(&cfg.Topic, "topic", cfg.Topic, "Kafka topic carrying log events")
	flag.StringVar(&cfg.ConsumerGroupID, "consumer-group-id", cfg.ConsumerGroupID, "Kafka consumer group ID")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of readers joining the consumer group")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis server address for subscribers and sender identity")
	flag.StringVar(&cfg.AlertLevels, "alert-levels", cfg.AlertLevels, "Comma-separated levels that trigger alerts")
	flag.BoolVar(&cfg.AckOnFailure, "ack-on-failure", cfg.AckOnFailure, "Commit messages whose alert could not be sent")
	flag.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Attempts per message before it is dropped (0 = until it succeeds)")
	flag.StringVar(&cfg.EmailProvider, "email-provider", cfg.EmailProvider, "Primary email provider (smtp, ses, resend)")
	flag.StringVar(&cfg.HTTPPort, "http-port", cfg.HTTPPort, "Port for the subscriber admin API")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	shared.SetupLogging(cfg.LogLevel, cfg.LogFormat)

	slog.Info("Starting alerter",
		"kafka_brokers", cfg.KafkaBrokers,
		"topic", cfg.Topic,
		"consumer_group_id", cfg.ConsumerGroupID,
		"workers", cfg.Workers,
		"redis_addr", cfg.RedisAddr,
		"alert_levels", cfg.AlertLevels,
		"ack_on_failure", cfg.AckOnFailure,
		"max_attempts", cfg.MaxAttempts,
		"smtp", cfg.SMTPHost+":"+cfg.SMTPPort,
		"email_provider", cfg.EmailProvider,
		"email_fallbacks", cfg.FallbackProviders(),
		"slack", cfg.SlackWebhookURL != "",
		"http_port", cfg.HTTPPort,
	)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	levels, _ := cfg.Levels()
	smtpPort, _ := cfg.SMTPPortNumber()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	// Redis holds the subscriber list and the sender identity, so it is required.
	redisClient, err := shared.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		slog.Info("Tip: Start Redis with 'docker compose up -d redis'")
		os.Exit(1)
	}
	defer redisClient.Close()

	sender := identity.NewCell(redisClient)
	resolveCtx, resolveCancel := context.WithTimeout(ctx, cfg.DependencyTimeout)
	id, err := sender.Resolve(resolveCtx)
	resolveCancel()
	if err != nil {
		slog.Error("Failed to resolve sender identity", "error", err)
		if errors.Is(err, identity.ErrUnresolved) {
			slog.Info("Tip: set " + identity.EmailKey + " and " + identity.PasswordKey + " in Redis")
		}
		os.Exit(1)
	}
	slog.Info("Sender identity resolved", "identity", id)

	// SIGHUP re-reads the sender credentials after a rotation.
	hupChan := make(chan os.Signal, 1)
	signal.Notify(hupChan, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hupChan:
				refreshCtx, refreshCancel := context.WithTimeout(ctx, cfg.DependencyTimeout)
				if _, err := sender.Refresh(refreshCtx); err != nil {
					slog.Warn("Failed to refresh sender identity, keeping cached value", "error", err)
				}
				refreshCancel()
			}
		}
	}()

	dispatcher, err := buildDispatcher(ctx, cfg, smtpPort, sender)
	if err != nil {
		slog.Error("Failed to configure notifiers", "error", err)
		os.Exit(1)
	}
	slog.Info("Notifiers configured", "notifiers", dispatcher.Names())

	metricsCollector := metrics.NewCollector("alerter", redisClient)
	metricsCollector.Start(ctx)
	defer metricsCollector.Stop()

	if brokers := kafkautil.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		if err := kafkautil.EnsureTopic(brokers[0], cfg.Topic, kafkautil.DefaultPartitions); err != nil {
			slog.Warn("Could not verify topic, relying on broker auto-creation", "topic", cfg.Topic, "error", err)
		}
	}

	store := subscribers.NewStore(redisClient)

	server := api.NewServer(cfg.HTTPPort, api.NewHandlers(store, &status{
		redis:      redisClient,
		sender:     sender,
		dispatcher: dispatcher,
	}))
	go func() {
		slog.Info("Subscriber admin API listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Subscriber admin API failed", "error", err)
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

		proc := processor.NewProcessor(consumer, store, dispatcher,
			processor.WithMetrics(metricsCollector),
			processor.WithLevels(levels),
			processor.WithIdentity(sender),
			processor.WithDefaultFrom(cfg.SMTPFromDefault),
			processor.WithAckOnFailure(cfg.AckOnFailure),
			processor.WithMaxAttempts(cfg.MaxAttempts),
			processor.WithDependencyTimeout(cfg.DependencyTimeout),
		)

		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			defer consumer.Close()
			if err := proc.ProcessAlerts(ctx); err != nil {
				slog.Error("Alert worker failed", "worker", worker, "error", err)
				cancel()
			}
		}(i)
	}

	<-ctx.Done()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down subscriber admin API", "error", err)
	}

	slog.Info("Alerter stopped")
}

// buildDispatcher chains the email providers from cfg and adds Slack when a
// webhook URL is set.
func buildDispatcher(ctx context.Context, cfg *config.Config, smtpPort int, creds provider.Credentials) (*notifier.Dispatcher, error) {
	registry, err := provider.NewRegistry(
		strings.ToLower(strings.TrimSpace(cfg.EmailProvider)),
		cfg.FallbackProviders(),
		provider.NewSMTP(cfg.SMTPHost, smtpPort, creds),
		provider.NewSES(ctx, cfg.AWSRegion),
		provider.NewResend(cfg.ResendAPIKey),
	)
	if err != nil {
		return nil, err
	}
	slog.Info("Email provider chain", "order", registry.Names())

	notifiers := []notifier.Notifier{email.New(registry, cfg.EmailRatePerSec, cfg.EmailBurst)}
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, slack.New(cfg.SlackWebhookURL))
	}
	return notifier.NewDispatcher(notifiers...), nil
}

// status backs the admin health endpoint.
type status struct {
	redis      *redis.Client
	sender     *identity.Cell
	dispatcher *notifier.Dispatcher
}

func (s *status) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *status) IdentityResolved() bool {
	_, ok := s.sender.Cached()
	return ok
}

func (s *status) Notifiers() []string {
	return s.dispatcher.Names()
}
