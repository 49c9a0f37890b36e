package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vanamuthuV/logsy/pkg/events"
)

// SenderConfig controls how generated events reach the gateway.
type SenderConfig struct {
	URL       string
	APIKey    string
	RPS       float64
	BatchSize int
	Duration  time.Duration
	Total     int
}

// Stats summarizes a run.
type Stats struct {
	Sent     int
	Failed   int
	Requests int
	Elapsed  time.Duration
}

// Sender posts generated events at a bounded rate.
type Sender struct {
	cfg     SenderConfig
	gen     *Generator
	client  *http.Client
	limiter *rate.Limiter
}

// NewSender creates a sender. RPS limits events, not requests; a batch of
// N events waits for N tokens.
func NewSender(cfg SenderConfig, gen *Generator, client *http.Client) (*Sender, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url cannot be empty")
	}
	if cfg.RPS <= 0 {
		return nil, fmt.Errorf("rps must be > 0")
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	burst := cfg.BatchSize
	if int(cfg.RPS) > burst {
		burst = int(cfg.RPS)
	}
	return &Sender{
		cfg:     cfg,
		gen:     gen,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst),
	}, nil
}

// Run sends events until Total events were attempted, Duration elapsed, or
// ctx is cancelled. A zero Total or Duration means no limit on that axis.
func (s *Sender) Run(ctx context.Context) (Stats, error) {
	if s.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Duration)
		defer cancel()
	}

	start := time.Now()
	var stats Stats
	lastLog := time.Now()

	for s.cfg.Total == 0 || stats.Sent+stats.Failed < s.cfg.Total {
		n := s.cfg.BatchSize
		if s.cfg.Total > 0 && s.cfg.Total-(stats.Sent+stats.Failed) < n {
			n = s.cfg.Total - (stats.Sent + stats.Failed)
		}
		if err := s.limiter.WaitN(ctx, n); err != nil {
			break
		}

		batch := make([]*events.LogEvent, n)
		for i := range batch {
			batch[i] = s.gen.Generate()
		}

		stats.Requests++
		if err := s.post(ctx, batch); err != nil {
			if ctx.Err() != nil {
				break
			}
			stats.Failed += n
			slog.Warn("Failed to submit events", "count", n, "error", err)
		} else {
			stats.Sent += n
		}

		if time.Since(lastLog) >= 5*time.Second {
			slog.Info("Load generation progress", "sent", stats.Sent, "failed", stats.Failed)
			lastLog = time.Now()
		}
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}

func (s *Sender) post(ctx context.Context, batch []*events.LogEvent) error {
	var (
		body        bytes.Buffer
		contentType = "application/json"
	)
	if len(batch) == 1 {
		data, err := events.Encode(batch[0])
		if err != nil {
			return err
		}
		body.Write(data)
	} else {
		contentType = "application/x-ndjson"
		enc := json.NewEncoder(&body)
		for _, e := range batch {
			if err := enc.Encode(e); err != nil {
				return fmt.Errorf("failed to encode event: %w", err)
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, &body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
