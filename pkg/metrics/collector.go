package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

type snapshotWriter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Option configures a Collector.
type Option func(*Collector)

// WithInterval sets the flush interval.
func WithInterval(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.interval = d
		}
	}
}

// Collector counts pipeline events for one service and flushes a Snapshot
// to Redis every interval. Without Redis it only counts.
type Collector struct {
	service   string
	writer    snapshotWriter
	interval  time.Duration
	startedAt time.Time
	now       func() time.Time

	received  atomic.Uint64
	processed atomic.Uint64
	published atomic.Uint64
	errors    atomic.Uint64
	latencyNs atomic.Uint64
	custom    sync.Map // name -> *atomic.Uint64

	mu            sync.Mutex
	lastFlush     time.Time
	lastProcessed uint64
	perSecond     float64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCollector creates a collector for service. client may be nil.
func NewCollector(service string, client *redis.Client, opts ...Option) *Collector {
	c := &Collector{
		service:  service,
		interval: DefaultInterval,
		now:      func() time.Time { return time.Now().UTC() },
		stop:     make(chan struct{}),
	}
	if client != nil {
		c.writer = client
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startedAt = c.now()
	c.lastFlush = c.startedAt
	return c
}

// Start flushes every interval until ctx is done or Stop is called, with a
// final flush on the way out.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.flush(context.Background())
				return
			case <-c.stop:
				c.flush(context.Background())
				return
			case <-ticker.C:
				c.flush(ctx)
			}
		}
	}()
}

// Stop ends the flush loop and waits for the final flush. Safe to call twice.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	c.wg.Wait()
}

// RecordReceived counts a message taken off the wire.
func (c *Collector) RecordReceived() { c.received.Add(1) }

// RecordProcessed counts a finished message and its handling time.
func (c *Collector) RecordProcessed(latency time.Duration) {
	c.processed.Add(1)
	if latency > 0 {
		c.latencyNs.Add(uint64(latency))
	}
}

// RecordPublished counts a message handed downstream.
func (c *Collector) RecordPublished() { c.published.Add(1) }

// RecordError counts a failed message.
func (c *Collector) RecordError() { c.errors.Add(1) }

// IncrementCustom adds one to the named counter.
func (c *Collector) IncrementCustom(name string) { c.Add(name, 1) }

// Add adds n to the named counter, creating it on first use.
func (c *Collector) Add(name string, n uint64) {
	v, ok := c.custom.Load(name)
	if !ok {
		v, _ = c.custom.LoadOrStore(name, new(atomic.Uint64))
	}
	v.(*atomic.Uint64).Add(n)
}

// Snapshot returns the current counters without touching Redis.
func (c *Collector) Snapshot() Snapshot {
	processed := c.processed.Load()
	s := Snapshot{
		Service:   c.service,
		StartedAt: c.startedAt,
		UpdatedAt: c.now(),
		Received:  c.received.Load(),
		Processed: processed,
		Published: c.published.Load(),
		Errors:    c.errors.Load(),
	}
	if processed > 0 {
		s.AvgLatencyMs = float64(c.latencyNs.Load()) / float64(processed) / float64(time.Millisecond)
	}

	c.mu.Lock()
	s.PerSecond = c.perSecond
	c.mu.Unlock()

	c.custom.Range(func(k, v any) bool {
		if s.Counters == nil {
			s.Counters = make(map[string]uint64)
		}
		s.Counters[k.(string)] = v.(*atomic.Uint64).Load()
		return true
	})
	return s
}

func (c *Collector) flush(ctx context.Context) {
	now := c.now()
	processed := c.processed.Load()

	c.mu.Lock()
	if elapsed := now.Sub(c.lastFlush).Seconds(); elapsed > 0 && processed >= c.lastProcessed {
		c.perSecond = float64(processed-c.lastProcessed) / elapsed
	}
	c.lastFlush = now
	c.lastProcessed = processed
	c.mu.Unlock()

	if c.writer == nil {
		return
	}

	data, err := json.Marshal(c.Snapshot())
	if err != nil {
		slog.Error("Failed to marshal metrics", "service", c.service, "error", err)
		return
	}
	if err := c.writer.Set(ctx, Key(c.service), data, TTL).Err(); err != nil {
		slog.Error("Failed to write metrics to Redis", "service", c.service, "error", err)
		return
	}
	slog.Debug("Metrics flushed", "service", c.service)
}
