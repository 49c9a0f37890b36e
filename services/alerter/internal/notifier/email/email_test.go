package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vanamuthuV/logsy/pkg/events"
	"github.com/vanamuthuV/logsy/pkg/retry"
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier"
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier/email/provider"
)

type fakeSender struct {
	reqs []*provider.EmailRequest
	err  error
}

func (f *fakeSender) Send(ctx context.Context, req *provider.EmailRequest) error {
	f.reqs = append(f.reqs, req)
	return f.err
}

func testAlert() notifier.Alert {
	return notifier.Alert{
		Event: &events.LogEvent{
			Timestamp: events.NewTimestamp(time.Now()),
			Level:     events.LevelFatal,
			Message:   "out of memory",
			Service:   "search",
		},
		Recipients: []string{"ops@example.com", "dev@example.com"},
		Subject:    "FATAL: From search Service",
		HTML:       "<html>oom</html>",
		From:       "alerts@example.com",
	}
}

func TestNotifier_Notify(t *testing.T) {
	fake := &fakeSender{}
	n := New(fake, 100, 1)

	if err := n.Notify(context.Background(), testAlert()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(fake.reqs) != 1 {
		t.Fatalf("sends = %d, want 1", len(fake.reqs))
	}
	req := fake.reqs[0]
	if req.From != "alerts@example.com" || req.Subject != "FATAL: From search Service" || req.HTML != "<html>oom</html>" {
		t.Errorf("request = %+v", req)
	}
	if len(req.To) != 2 {
		t.Errorf("To = %v, want both recipients in one message", req.To)
	}
}

func TestNotifier_PropagatesError(t *testing.T) {
	fake := &fakeSender{err: provider.ErrNoProvider}
	n := New(fake, 100, 1)
	if err := n.Notify(context.Background(), testAlert()); !errors.Is(err, provider.ErrNoProvider) {
		t.Errorf("Notify() error = %v, want ErrNoProvider", err)
	}
}

func TestNotifier_NoRecipients(t *testing.T) {
	fake := &fakeSender{}
	alert := testAlert()
	alert.Recipients = nil
	err := New(fake, 100, 1).Notify(context.Background(), alert)
	if !errors.Is(err, provider.ErrNoRecipients) {
		t.Errorf("Notify() error = %v, want ErrNoRecipients", err)
	}
	if !retry.IsPermanent(err) {
		t.Error("empty recipients should not be re-attempted")
	}
	if len(fake.reqs) != 0 {
		t.Error("Notify() sent without recipients")
	}
}

func TestNotifier_RateLimitHonorsContext(t *testing.T) {
	fake := &fakeSender{}
	n := New(fake, 0.001, 1)

	if err := n.Notify(context.Background(), testAlert()); err != nil {
		t.Fatalf("first Notify() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := n.Notify(ctx, testAlert()); err == nil {
		t.Error("second Notify() should fail waiting for the limiter")
	}
	if len(fake.reqs) != 1 {
		t.Errorf("sends = %d, want 1", len(fake.reqs))
	}
}
