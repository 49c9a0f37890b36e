// Package identity resolves the account alerts are sent from.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Redis keys holding the sender credentials.
const (
	EmailKey    = "dispatcher_email"
	PasswordKey = "dispatcher_app_password"
)

// ErrUnresolved means the sender credentials are missing or empty.
var ErrUnresolved = errors.New("sender identity unresolved")

// Identity is the sending account.
type Identity struct {
	Email    string
	Password string
}

// LogValue keeps the password out of logs.
func (i Identity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", i.Email),
		slog.Int("password_len", len(i.Password)),
	)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Cell resolves the identity once and caches it. Failed resolutions are not
// cached, so a later Resolve tries again.
type Cell struct {
	client getter
	mu     sync.Mutex
	value  atomic.Pointer[Identity]
}

// NewCell creates an unresolved cell backed by client.
func NewCell(client getter) *Cell {
	return &Cell{client: client}
}

// Resolve returns the cached identity or reads it from Redis.
func (c *Cell) Resolve(ctx context.Context) (Identity, error) {
	if id := c.value.Load(); id != nil {
		return *id, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id := c.value.Load(); id != nil {
		return *id, nil
	}

	id, err := c.load(ctx)
	if err != nil {
		return Identity{}, err
	}
	c.value.Store(id)
	slog.Info("Resolved sender identity", "identity", *id)
	return *id, nil
}

// Refresh re-reads the identity and replaces the cached value. On failure the
// previously cached identity stays in place.
func (c *Cell) Refresh(ctx context.Context) (Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.load(ctx)
	if err != nil {
		return Identity{}, err
	}
	c.value.Store(id)
	slog.Info("Refreshed sender identity", "identity", *id)
	return *id, nil
}

func (c *Cell) load(ctx context.Context) (*Identity, error) {
	email, err := c.read(ctx, EmailKey)
	if err != nil {
		return nil, err
	}
	password, err := c.read(ctx, PasswordKey)
	if err != nil {
		return nil, err
	}
	return &Identity{Email: email, Password: password}, nil
}

// Cached returns the identity if it has been resolved. It never does I/O.
func (c *Cell) Cached() (Identity, bool) {
	if id := c.value.Load(); id != nil {
		return *id, true
	}
	return Identity{}, false
}

func (c *Cell) read(ctx context.Context, key string) (string, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s is not set", ErrUnresolved, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	v := Sanitize(raw)
	if v == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrUnresolved, key)
	}
	return v, nil
}

// Sanitize trims v, strips one pair of wrapping double quotes, and trims again.
func Sanitize(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = v[1 : len(v)-1]
	}
	return strings.TrimSpace(v)
}
