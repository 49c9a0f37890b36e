// Package subscribers reads and writes the alert recipient list kept in Redis.
//
// The list is written by more than one client. Some store it as a JSON array,
// others JSON-encode that array a second time, so reads accept both forms.
package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key is the Redis key holding the subscriber list.
const Key = "email_subscribers"

// ErrInvalidSubscriber is returned by Save when an entry fails validation.
var ErrInvalidSubscriber = errors.New("invalid subscriber")

// Subscriber is one entry of the stored list. ID and Name are informational.
type Subscriber struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Email  string `json:"email" yaml:"email"`
	Active bool   `json:"active" yaml:"active"`
}

// DecodeList decodes a stored value. It tries a JSON array first, then a JSON
// string whose contents are an array. Anything else yields an empty list.
func DecodeList(raw []byte) []Subscriber {
	var list []Subscriber
	if err := json.Unmarshal(raw, &list); err != nil {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return []Subscriber{}
		}
		if err := json.Unmarshal([]byte(inner), &list); err != nil {
			return []Subscriber{}
		}
	}
	if list == nil {
		return []Subscriber{}
	}
	return list
}

// Effective returns the addresses that should receive alerts: active entries
// with a non-blank email, trimmed, de-duplicated case-sensitively, in the
// order they first appear.
func Effective(list []Subscriber) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if !s.Active {
			continue
		}
		email := strings.TrimSpace(s.Email)
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

// Validate checks the entries a writer is about to store.
func Validate(list []Subscriber) error {
	for i, s := range list {
		email := strings.TrimSpace(s.Email)
		if email == "" {
			return fmt.Errorf("%w: entry %d has no email", ErrInvalidSubscriber, i)
		}
		if !strings.Contains(email, "@") {
			return fmt.Errorf("%w: %q is missing @", ErrInvalidSubscriber, email)
		}
	}
	return nil
}

// redisClient is the subset of *redis.Client the store needs.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Store reads the list from Redis on every call. Nothing is cached.
type Store struct {
	client redisClient
	key    string
}

// NewStore creates a store over the given Redis client.
func NewStore(client redisClient) *Store {
	return &Store{client: client, key: Key}
}

// Load returns the stored list. A missing key is an empty list; any other
// Redis failure is returned.
func (s *Store) Load(ctx context.Context) ([]Subscriber, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Subscriber{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	return DecodeList(raw), nil
}

// Resolve returns the effective recipient addresses.
func (s *Store) Resolve(ctx context.Context) ([]string, error) {
	list, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Effective(list), nil
}

// Save validates and replaces the stored list. The value is written as a
// single-encoded JSON array.
func (s *Store) Save(ctx context.Context, list []Subscriber) error {
	if err := Validate(list); err != nil {
		return err
	}
	if list == nil {
		list = []Subscriber{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode subscribers: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key, err)
	}
	return nil
}
