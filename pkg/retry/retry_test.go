package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "read deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: fmt.Errorf("fetch: %w", context.Canceled), want: false},
		{name: "deadline", err: fmt.Errorf("redis get: %w", context.DeadlineExceeded), want: true},
		{name: "refused errno", err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, want: true},
		{name: "reset errno", err: fmt.Errorf("write: %w", syscall.ECONNRESET), want: true},
		{name: "net timeout", err: fmt.Errorf("read: %w", timeoutErr{}), want: true},
		{name: "kafka leader election", err: fmt.Errorf("produce: %w", kafka.LeaderNotAvailable), want: true},
		{name: "kafka unknown topic", err: kafka.UnknownTopicOrPartition, want: true},
		{name: "kafka message too large", err: kafka.MessageSizeTooLarge, want: false},
		{name: "plain text from broker", err: errors.New("[3] Unknown Topic Or Partition: the request is for a topic or partition that does not exist"), want: true},
		{name: "generic", err: errors.New("some random error"), want: false},
		{name: "permanent deadline", err: Permanent(context.DeadlineExceeded), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func fastConfig(attempts int) Config {
	return Config{Attempts: attempts, Base: time.Millisecond, Cap: 2 * time.Millisecond, Multiplier: 2}
}

func TestIsPermanent(t *testing.T) {
	rejected := errors.New("550 mailbox unavailable")
	transient := errors.New("421 try again later")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: rejected, want: false},
		{name: "marked", err: Permanent(rejected), want: true},
		{name: "wrapped marked", err: fmt.Errorf("smtp: %w", Permanent(rejected)), want: true},
		{name: "join of permanent", err: Join(Permanent(rejected), fmt.Errorf("ses: %w", Permanent(rejected))), want: true},
		{name: "join with transient", err: Join(Permanent(rejected), transient), want: false},
		{name: "raw errors.Join not searched", err: errors.Join(Permanent(rejected), transient), want: false},
		{name: "join skips nil", err: Join(nil, Permanent(rejected)), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	if Permanent(nil) != nil || Join(nil, nil) != nil {
		t.Error("Permanent(nil) and Join(nil, nil) should be nil")
	}
	if !errors.Is(Permanent(rejected), rejected) {
		t.Error("Permanent should keep the wrapped error visible to errors.Is")
	}
}

func TestDo(t *testing.T) {
	refused := fmt.Errorf("dial: %w", syscall.ECONNREFUSED)

	tests := []struct {
		name      string
		attempts  int
		errs      []error
		wantErr   bool
		wantCalls int
	}{
		{name: "success first try", attempts: 3, wantCalls: 1},
		{name: "success after transient", attempts: 3, errs: []error{refused, refused}, wantCalls: 3},
		{name: "permanent error", attempts: 3, errs: []error{kafka.MessageSizeTooLarge}, wantErr: true, wantCalls: 1},
		{name: "attempts exhausted", attempts: 3, errs: []error{refused, refused, refused, refused}, wantErr: true, wantCalls: 3},
		{name: "zero attempts means one", attempts: 0, errs: []error{refused}, wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fastConfig(tt.attempts), "test", func() error {
				calls++
				if calls <= len(tt.errs) {
					return tt.errs[calls-1]
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Do() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("Do() called fn %d times, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{Attempts: 3, Base: time.Second, Cap: time.Second, Multiplier: 1}
	err := Do(ctx, cfg, "test", func() error { return context.DeadlineExceeded })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}

func TestBackoff(t *testing.T) {
	cfg := Config{Base: 100 * time.Millisecond, Cap: time.Second, Multiplier: 2}

	for attempt := 0; attempt < 10; attempt++ {
		got := Backoff(cfg, attempt)
		if got < 0 || got > 1250*time.Millisecond {
			t.Errorf("Backoff(%d) = %v, outside [0, 1.25s]", attempt, got)
		}
	}

	first := Backoff(cfg, 0)
	if first < 75*time.Millisecond || first > 125*time.Millisecond {
		t.Errorf("Backoff(0) = %v, want 100ms ±25%%", first)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep() = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() = %v, want context.Canceled", err)
	}
}
