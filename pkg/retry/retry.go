// Package retry re-runs operations that fail with transient broker, network
// or dependency errors.
package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"strings"
	"syscall"
	"time"
)

// Config is an exponential backoff policy.
type Config struct {
	// Attempts is the total number of tries including the first. Values
	// below 1 mean a single try. Redelivery loops ignore it.
	Attempts   int
	Base       time.Duration
	Cap        time.Duration
	Multiplier float64
}

// PublishConfig is the policy for Kafka produce calls.
func PublishConfig() Config {
	return Config{Attempts: 4, Base: 100 * time.Millisecond, Cap: 5 * time.Second, Multiplier: 2}
}

// RedeliveryConfig paces a consumer re-attempting an uncommitted message
// until it succeeds or the consumer shuts down.
func RedeliveryConfig() Config {
	return Config{Base: 500 * time.Millisecond, Cap: 30 * time.Second, Multiplier: 2}
}

// kafka.Error and most net errors implement this.
type temporary interface {
	Temporary() bool
}

// Broker messages that arrive as plain text once wrapped by a client.
var transientText = []string{
	"unknown topic or partition",
	"leader not available",
	"not leader for partition",
	"i/o timeout",
	"connection refused",
	"connection reset",
}

// PermanentError marks a failure that another attempt cannot fix, such as a
// mail server rejecting a recipient.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as permanent. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or an error it wraps through a single
// Unwrap chain, is marked permanent. Joined errors are not searched: whoever
// joins them decides, see Join.
func IsPermanent(err error) bool {
	for err != nil {
		if _, ok := err.(*PermanentError); ok {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Join joins errs like errors.Join and marks the result permanent when every
// non-nil error is.
func Join(errs ...error) error {
	joined := errors.Join(errs...)
	if joined == nil {
		return nil
	}
	for _, err := range errs {
		if err != nil && !IsPermanent(err) {
			return joined
		}
	}
	return Permanent(joined)
}

// IsRetryable reports whether err is worth another attempt. Cancellation is
// never retryable; deadlines, refused or reset connections and errors that
// declare themselves temporary are.
func IsRetryable(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled), IsPermanent(err):
		return false
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var tmp temporary
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}

	msg := strings.ToLower(err.Error())
	for _, s := range transientText {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Do runs fn until it succeeds, fails with a non-retryable error, runs out
// of attempts or ctx is done.
func Do(ctx context.Context, cfg Config, op string, fn func() error) error {
	attempts := max(cfg.Attempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(); err == nil {
			if attempt > 0 {
				slog.Info("Operation succeeded after retry", "operation", op, "attempt", attempt+1)
			}
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		wait := Backoff(cfg, attempt)
		slog.Warn("Operation failed, retrying",
			"operation", op,
			"attempt", attempt+1,
			"of", attempts,
			"backoff", wait,
			"error", err,
		)
		if serr := Sleep(ctx, wait); serr != nil {
			return serr
		}
	}

	slog.Warn("Operation failed, attempts exhausted", "operation", op, "attempts", attempts, "error", err)
	return err
}

// Backoff returns the wait before retry number attempt (zero based):
// Base*Multiplier^attempt capped at Cap, with ±25% jitter.
func Backoff(cfg Config, attempt int) time.Duration {
	m := math.Max(cfg.Multiplier, 1)
	d := math.Min(float64(cfg.Base)*math.Pow(m, float64(attempt)), float64(cfg.Cap))
	return time.Duration(d * (0.75 + rand.Float64()*0.5))
}

// Sleep waits for d, returning ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
