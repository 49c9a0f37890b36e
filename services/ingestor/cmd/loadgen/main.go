// Command loadgen submits synthetic log events to the ingestor gateway.
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
	"github.com/vanamuthuV/logsy/services/ingestor/internal/generator"
)

func main() {
	shared.SetupLogging(shared.GetEnvOrDefault("LOG_LEVEL", "info"), shared.GetEnvOrDefault("LOG_FORMAT", "json"))

	var (
		genCfg    generator.Config
		senderCfg generator.SenderConfig
	)
	flag.StringVar(&senderCfg.URL, "url", shared.GetEnvOrDefault("INGESTOR_URL", "http://localhost:8080/api/v1/logs"), "Gateway ingestion endpoint")
	flag.StringVar(&senderCfg.APIKey, "api-key", os.Getenv("INGEST_API_KEY"), "Value sent in the X-API-Key header")
	flag.Float64Var(&senderCfg.RPS, "rps", 10.0, "Events per second")
	flag.DurationVar(&senderCfg.Duration, "duration", 60*time.Second, "Duration to run (0 = until -total or interrupted)")
	flag.IntVar(&senderCfg.Total, "total", 0, "Stop after N events (0 = no limit)")
	flag.IntVar(&senderCfg.BatchSize, "batch", 1, "Events per request; >1 sends NDJSON")
	flag.Int64Var(&genCfg.Seed, "seed", 0, "Random seed for deterministic generation (0 = random)")
	flag.StringVar(&genCfg.LevelDist, "level-dist", generator.DefaultLevelDist, "Level distribution (format: LEVEL:percent,...)")
	flag.StringVar(&genCfg.ServiceDist, "service-dist", generator.DefaultServiceDist, "Service distribution (format: service:percent,...)")
	flag.Parse()

	gen, err := generator.New(genCfg)
	if err != nil {
		slog.Error("Invalid generator configuration", "error", err)
		os.Exit(1)
	}
	sender, err := generator.NewSender(senderCfg, gen, nil)
	if err != nil {
		slog.Error("Invalid sender configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting load generation",
		"url", senderCfg.URL,
		"rps", senderCfg.RPS,
		"duration", senderCfg.Duration,
		"total", senderCfg.Total,
		"batch", senderCfg.BatchSize,
		"seed", genCfg.Seed,
	)

	stats, err := sender.Run(ctx)
	if err != nil {
		slog.Error("Load generation failed", "error", err)
		os.Exit(1)
	}

	rate := 0.0
	if stats.Elapsed > 0 {
		rate = float64(stats.Sent) / stats.Elapsed.Seconds()
	}
	slog.Info("Load generation completed",
		"sent", stats.Sent,
		"failed", stats.Failed,
		"requests", stats.Requests,
		"elapsed", stats.Elapsed.Round(time.Millisecond),
		"actual_rate", rate,
	)
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
