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
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier"
	"github.com/vanamuthuV/logsy/services/alerter/internal/render"
)

// ErrDependency marks a transient failure of Redis or the mail transport. The
// message stays uncommitted and is attempted again.
var ErrDependency = errors.New("dependency failure")

const (
	defaultDependencyTimeout = 10 * time.Second
	defaultCommitTimeout     = 5 * time.Second
	defaultFrom              = "alerts@logsy.local"
	fetchErrorBackoff        = time.Second
)

// Processor dispatches one alert per qualifying log event.
type Processor struct {
	reader        MessageReader
	recipients    RecipientResolver
	dispatcher    AlertDispatcher
	identity      SenderIdentity
	metrics       MetricsRecorder
	levels        map[events.Level]bool
	defaultFrom   string
	ackOnFailure  bool
	maxAttempts   int
	depTimeout    time.Duration
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

// WithLevels sets which levels produce alerts. An empty list is ignored.
func WithLevels(levels []events.Level) Option {
	return func(p *Processor) {
		if len(levels) == 0 {
			return
		}
		p.levels = make(map[events.Level]bool, len(levels))
		for _, l := range levels {
			p.levels[l] = true
		}
	}
}

// WithIdentity sets where the From address comes from once resolved.
func WithIdentity(id SenderIdentity) Option {
	return func(p *Processor) { p.identity = id }
}

// WithDefaultFrom sets the From address used while the identity is unresolved.
func WithDefaultFrom(from string) Option {
	return func(p *Processor) {
		if from != "" {
			p.defaultFrom = from
		}
	}
}

// WithAckOnFailure commits messages whose alert could not be sent instead of
// re-attempting them.
func WithAckOnFailure(enabled bool) Option {
	return func(p *Processor) { p.ackOnFailure = enabled }
}

// WithMaxAttempts drops a message after n failed attempts. Zero keeps
// re-attempting until the message succeeds or the processor stops.
func WithMaxAttempts(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.maxAttempts = n
		}
	}
}

// WithDependencyTimeout bounds each Redis or transport call.
func WithDependencyTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.depTimeout = d
		}
	}
}

// WithRedelivery sets the backoff used between attempts on the same message.
func WithRedelivery(cfg retry.Config) Option {
	return func(p *Processor) { p.redelivery = cfg }
}

// NewProcessor creates a processor. By default ERROR and FATAL events alert.
func NewProcessor(reader MessageReader, recipients RecipientResolver, dispatcher AlertDispatcher, opts ...Option) *Processor {
	p := &Processor{
		reader:        reader,
		recipients:    recipients,
		dispatcher:    dispatcher,
		metrics:       &NoOpMetrics{},
		levels:        map[events.Level]bool{events.LevelError: true, events.LevelFatal: true},
		defaultFrom:   defaultFrom,
		depTimeout:    defaultDependencyTimeout,
		commitTimeout: defaultCommitTimeout,
		redelivery:    retry.RedeliveryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessAlerts fetches messages until ctx is cancelled. Each message is
// committed once its outcome is final: sent, skipped, poison, or rejected.
func (p *Processor) ProcessAlerts(ctx context.Context) error {
	slog.Info("Starting alert dispatch loop", "ack_on_failure", p.ackOnFailure)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Alert dispatch loop stopped")
			return nil
		default:
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Alert dispatch loop stopped")
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

// handleMessage processes msg until its outcome is final, then commits it. If
// ctx is cancelled between attempts the message is left uncommitted.
func (p *Processor) handleMessage(ctx context.Context, msg kafka.Message) {
	for attempt := 0; ; attempt++ {
		err := p.processMessage(ctx, msg)
		if err == nil {
			break
		}
		if p.maxAttempts > 0 && attempt+1 >= p.maxAttempts {
			slog.Error("Giving up on log message, committing without alert",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"attempts", attempt+1,
				"error", err,
			)
			p.metrics.IncrementCustom(metricDropped)
			break
		}

		wait := retry.Backoff(p.redelivery, attempt)
		slog.Warn("Alert not dispatched, re-attempting",
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

	level, err := events.PeekLevel(msg.Value)
	if err != nil {
		p.poison(msg, "peek", err)
		return nil
	}
	if !p.levels[level] {
		p.metrics.IncrementCustom(metricSkippedLevel)
		return nil
	}

	event, err := events.Decode(msg.Value)
	if err != nil {
		p.poison(msg, "decode", err)
		return nil
	}
	attrs := append(event.LogAttrs(), "partition", msg.Partition, "offset", msg.Offset)

	// In-flight dependency calls finish even if shutdown starts mid-call.
	base := context.WithoutCancel(ctx)

	resolveCtx, cancel := context.WithTimeout(base, p.depTimeout)
	recipients, err := p.recipients.Resolve(resolveCtx)
	cancel()
	if err != nil {
		slog.Error("Failed to resolve recipients", append(attrs, "stage", "resolve", "error", err)...)
		p.metrics.RecordError()
		return fmt.Errorf("%w: %v", ErrDependency, err)
	}
	if len(recipients) == 0 {
		slog.Info("No active subscribers, alert not sent", attrs...)
		p.metrics.IncrementCustom(metricNoRecipients)
		p.metrics.RecordProcessed(time.Since(start))
		return nil
	}

	html, err := render.HTML(event)
	if err != nil {
		p.poison(msg, "render", err)
		return nil
	}

	alert := notifier.Alert{
		Event:      event,
		Recipients: recipients,
		Subject:    render.Subject(event),
		HTML:       html,
		From:       p.from(),
	}

	sendCtx, cancel := context.WithTimeout(base, p.depTimeout)
	err = p.dispatcher.Dispatch(sendCtx, alert)
	cancel()
	if err != nil {
		p.metrics.RecordError()
		p.metrics.IncrementCustom(metricSendFailed)
		attrs = append(attrs, "stage", "dispatch", "recipients", len(recipients), "error", err)
		switch {
		case retry.IsPermanent(err):
			// Another attempt would be rejected the same way.
			slog.Error("Alert rejected by transport, dropping", attrs...)
			p.metrics.IncrementCustom(metricDropped)
			return nil
		case p.ackOnFailure:
			slog.Error("Failed to send alert, dropping", attrs...)
			p.metrics.IncrementCustom(metricDropped)
			return nil
		}
		slog.Error("Failed to send alert", attrs...)
		return fmt.Errorf("%w: %v", ErrDependency, err)
	}

	p.metrics.IncrementCustom(metricSent)
	p.metrics.RecordPublished()
	p.metrics.RecordProcessed(time.Since(start))
	slog.Info("Alert sent", append(attrs, "recipients", len(recipients), "from", alert.From)...)
	return nil
}

func (p *Processor) from() string {
	if p.identity != nil {
		if id, ok := p.identity.Cached(); ok {
			return id.Email
		}
	}
	return p.defaultFrom
}

func (p *Processor) poison(msg kafka.Message, stage string, err error) {
	slog.Error("Skipping undecodable log message",
		"stage", stage,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"error", err,
	)
	p.metrics.IncrementCustom(metricPoison)
}
