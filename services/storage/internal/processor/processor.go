package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vanamuthuV/logsy/pkg/events"
	"github.com/vanamuthuV/logsy/pkg/retry"
)

// ErrDependency marks a transient failure of the database. The message stays
// uncommitted and is attempted again.
var ErrDependency = errors.New("dependency failure")

const (
	defaultStoreTimeout  = 10 * time.Second
	defaultCommitTimeout = 5 * time.Second
	fetchErrorBackoff    = time.Second
)

// Processor stores every consumed log event, one message at a time.
type Processor struct {
	reader        MessageReader
	storage       LogStorage
	metrics       MetricsRecorder
	dedupe        bool
	storeTimeout  time.Duration
	commitTimeout time.Duration
	redelivery    retry.Config
}

// Option configures a Processor.
type Option func(*Processor)

// WithMetrics sets the metrics recorder. A nil recorder is ignored.
func WithMetrics(m MetricsRecorder) Option {
	return func(p *Processor) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithDedupe switches inserts to the fingerprint-keyed variant.
func WithDedupe(enabled bool) Option {
	return func(p *Processor) { p.dedupe = enabled }
}

// WithStoreTimeout bounds each database call.
func WithStoreTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.storeTimeout = d
		}
	}
}

// WithRedelivery sets the backoff used between attempts on the same message.
func WithRedelivery(cfg retry.Config) Option {
	return func(p *Processor) { p.redelivery = cfg }
}

// NewProcessor creates a processor reading from reader and writing to storage.
func NewProcessor(reader MessageReader, storage LogStorage, opts ...Option) *Processor {
	p := &Processor{
		reader:        reader,
		storage:       storage,
		metrics:       &NoOpMetrics{},
		storeTimeout:  defaultStoreTimeout,
		commitTimeout: defaultCommitTimeout,
		redelivery:    retry.RedeliveryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessLogs fetches messages until ctx is cancelled. Each message is
// committed only once it has been stored, classified as poison, or rejected
// by the database.
func (p *Processor) ProcessLogs(ctx context.Context) error {
	slog.Info("Starting log storage loop", "dedupe", p.dedupe)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Log storage loop stopped")
			return nil
		default:
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Log storage loop stopped")
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("reader closed: %w", err)
			}
			slog.Error("Failed to fetch log message", "error", err)
			if retry.Sleep(ctx, fetchErrorBackoff) != nil {
				return nil
			}
			continue
		}

		p.metrics.RecordReceived()
		p.handleMessage(ctx, msg)
	}
}

// handleMessage processes msg until it succeeds, then commits it. If ctx is
// cancelled between attempts the message is left uncommitted for redelivery.
func (p *Processor) handleMessage(ctx context.Context, msg kafka.Message) {
	for attempt := 0; ; attempt++ {
		err := p.processMessage(ctx, msg)
		if err == nil {
			break
		}

		wait := retry.Backoff(p.redelivery, attempt)
		slog.Warn("Log message not stored, re-attempting",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"attempt", attempt+1,
			"backoff", wait,
			"error", err,
		)
		if retry.Sleep(ctx, wait) != nil {
			slog.Info("Shutdown while re-attempting, leaving message uncommitted",
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			return
		}
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.commitTimeout)
	defer cancel()
	if err := p.reader.CommitMessage(commitCtx, msg); err != nil {
		slog.Error("Failed to commit offset",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}

// processMessage returns nil when msg needs no further work, and an error
// wrapping ErrDependency when it must be attempted again.
func (p *Processor) processMessage(ctx context.Context, msg kafka.Message) error {
	start := time.Now()

	event, err := events.Decode(msg.Value)
	if err != nil {
		slog.Error("Skipping undecodable log message",
			"stage", "decode",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		p.metrics.IncrementCustom(metricPoison)
		return nil
	}

	// The in-flight insert finishes even if shutdown starts mid-call.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.storeTimeout)
	defer cancel()

	id, stored, err := p.store(storeCtx, event)
	if err != nil {
		attrs := append(event.LogAttrs(),
			"stage", "store",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		p.metrics.RecordError()
		if retry.IsPermanent(err) {
			// The database refuses this row itself; it would never be stored.
			slog.Error("Log event rejected by database, skipping", attrs...)
			p.metrics.IncrementCustom(metricRejected)
			return nil
		}
		slog.Error("Failed to store log event", attrs...)
		p.metrics.IncrementCustom(metricStoreFailures)
		return fmt.Errorf("%w: %v", ErrDependency, err)
	}

	if !stored {
		p.metrics.IncrementCustom(metricDuplicate)
		slog.Debug("Log event already stored", event.LogAttrs()...)
		p.metrics.RecordProcessed(time.Since(start))
		return nil
	}

	p.metrics.IncrementCustom(metricStored)
	if event.IsAlerting() {
		p.metrics.IncrementCustom(metricUnresolved)
	}
	p.metrics.RecordProcessed(time.Since(start))

	slog.Debug("Stored log event", append(event.LogAttrs(), "id", id, "offset", msg.Offset)...)
	return nil
}

func (p *Processor) store(ctx context.Context, event *events.LogEvent) (int64, bool, error) {
	if !p.dedupe {
		id, err := p.storage.InsertLog(ctx, event)
		if err != nil {
			return 0, false, err
		}
		return id, true, nil
	}

	id, err := p.storage.InsertLogIdempotent(ctx, event)
	if err != nil {
		return 0, false, err
	}
	if id == nil {
		return 0, false, nil
	}
	return *id, true, nil
}
