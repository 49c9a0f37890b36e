// Package email delivers alerts by email through the provider registry.
package email

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/vanamuthuV/logsy/pkg/retry"
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier"
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier/email/provider"
)

// Sender sends one email; *provider.Registry implements it.
type Sender interface {
	Send(ctx context.Context, req *provider.EmailRequest) error
}

// Notifier sends one email per alert to all recipients, rate limited.
type Notifier struct {
	sender  Sender
	limiter *rate.Limiter
}

// New creates an email notifier allowing ratePerSec sends with the given burst.
func New(sender Sender, ratePerSec float64, burst int) *Notifier {
	if burst < 1 {
		burst = 1
	}
	return &Notifier{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// Name returns the channel name.
func (n *Notifier) Name() string {
	return "email"
}

// Notify waits for the rate limiter, then sends the alert.
func (n *Notifier) Notify(ctx context.Context, alert notifier.Alert) error {
	if len(alert.Recipients) == 0 {
		return retry.Permanent(provider.ErrNoRecipients)
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limit wait: %w", err)
	}
	return n.sender.Send(ctx, &provider.EmailRequest{
		From:    alert.From,
		To:      alert.Recipients,
		Subject: alert.Subject,
		HTML:    alert.HTML,
	})
}
