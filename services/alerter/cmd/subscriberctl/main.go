// Command subscriberctl writes the alert subscriber list from a YAML file to
// Redis, optionally keeping it in sync as the file changes.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanamuthuV/logsy/pkg/shared"
	"github.com/vanamuthuV/logsy/services/alerter/internal/subscribers"
)

const saveTimeout = 5 * time.Second

func main() {
	file := flag.String("file", "subscribers.yaml", "Subscriber YAML file")
	redisAddr := flag.String("redis-addr", shared.GetEnvOrDefault("REDIS_ADDR", "localhost:6379"), "Redis server address")
	redisPassword := flag.String("redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password")
	watch := flag.Bool("watch", false, "Keep running and re-sync when the file changes")
	logLevel := flag.String("log-level", shared.GetEnvOrDefault("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	flag.Parse()

	shared.SetupLogging(*logLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := shared.ConnectRedis(ctx, *redisAddr, *redisPassword, 0)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer client.Close()
	store := subscribers.NewStore(client)

	list, err := subscribers.LoadFile(*file)
	if err != nil {
		slog.Error("Failed to load subscriber file", "path", *file, "error", err)
		os.Exit(1)
	}
	if err := save(ctx, store, list); err != nil {
		slog.Error("Failed to write subscribers", "error", err)
		os.Exit(1)
	}

	if !*watch {
		return
	}

	err = subscribers.Watch(ctx, *file, func(list []subscribers.Subscriber) {
		if err := save(ctx, store, list); err != nil {
			slog.Error("Failed to write subscribers", "error", err)
		}
	})
	if err != nil {
		slog.Error("Subscriber file watch failed", "path", *file, "error", err)
		os.Exit(1)
	}
}

func save(ctx context.Context, store *subscribers.Store, list []subscribers.Subscriber) error {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()
	if err := store.Save(ctx, list); err != nil {
		return err
	}
	slog.Info("Subscribers written", "key", subscribers.Key, "count", len(list), "effective", len(subscribers.Effective(list)))
	return nil
}
