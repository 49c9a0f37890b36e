package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound means no snapshot exists for the service, either because it
// never reported or because its key expired.
var ErrNotFound = errors.New("no metrics for service")

const scanCount = 100

type snapshotStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Reader reads snapshots written by Collectors.
type Reader struct {
	store snapshotStore
	now   func() time.Time
}

// NewReader creates a reader over client.
func NewReader(client *redis.Client) *Reader {
	return newReader(client)
}

func newReader(store snapshotStore) *Reader {
	return &Reader{store: store, now: time.Now}
}

// Service returns the snapshot for one service.
func (r *Reader) Service(ctx context.Context, service string) (*Snapshot, error) {
	data, err := r.store.Get(ctx, Key(service)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w %q", ErrNotFound, service)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	return r.decode(data)
}

// All returns every stored snapshot keyed by service name. Entries that
// fail to decode are skipped.
func (r *Reader) All(ctx context.Context) (map[string]*Snapshot, error) {
	var keys []string
	var cursor uint64
	for {
		page, next, err := r.store.Scan(ctx, cursor, KeyPrefix+"*", scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list metrics keys: %w", err)
		}
		keys = append(keys, page...)
		if next == 0 {
			break
		}
		cursor = next
	}

	out := make(map[string]*Snapshot, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := r.store.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	for i, v := range values {
		service := strings.TrimPrefix(keys[i], KeyPrefix)
		raw, ok := v.(string)
		if !ok {
			// Expired between SCAN and MGET.
			continue
		}
		snap, err := r.decode([]byte(raw))
		if err != nil {
			slog.Warn("Skipping unreadable metrics snapshot", "service", service, "error", err)
			continue
		}
		out[service] = snap
	}
	return out, nil
}

func (r *Reader) decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}
	if r.now().Sub(s.UpdatedAt) > TTL {
		s.Stale = true
	}
	return &s, nil
}
