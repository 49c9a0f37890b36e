// Package notifier fans a rendered alert out to every configured channel.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vanamuthuV/logsy/pkg/events"
	"github.com/vanamuthuV/logsy/pkg/retry"
)

// ErrAllFailed is returned when no notifier delivered the alert.
var ErrAllFailed = errors.New("all notifiers failed")

// Alert is one rendered alert ready for delivery.
type Alert struct {
	Event      *events.LogEvent
	Recipients []string
	Subject    string
	HTML       string
	From       string
}

// Notifier delivers an alert over one channel.
type Notifier interface {
	// Name returns the channel name (e.g., "email", "slack").
	Name() string

	// Notify delivers the alert.
	Notify(ctx context.Context, alert Alert) error
}

// Dispatcher sends each alert to all registered notifiers.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a dispatcher over the given notifiers, skipping nils.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	d := &Dispatcher{}
	for _, n := range notifiers {
		if n != nil {
			d.notifiers = append(d.notifiers, n)
		}
	}
	return d
}

// Names returns the registered channel names in dispatch order.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.notifiers))
	for i, n := range d.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Dispatch delivers alert to every notifier. It fails only when all of them
// fail; a partial failure is logged. The error is permanent when every
// notifier failed permanently.
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert) error {
	if len(d.notifiers) == 0 {
		return fmt.Errorf("%w: no notifiers registered", ErrAllFailed)
	}

	var failures []string
	var errs []error
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %s", n.Name(), err))
			errs = append(errs, err)
		}
	}

	if len(errs) == len(d.notifiers) {
		joined := retry.Join(errs...)
		err := fmt.Errorf("%w: %w", ErrAllFailed, joined)
		if retry.IsPermanent(joined) {
			return retry.Permanent(err)
		}
		return err
	}
	if len(errs) > 0 {
		var attrs []any
		if alert.Event != nil {
			attrs = alert.Event.LogAttrs()
		}
		attrs = append(attrs,
			"successful", len(d.notifiers)-len(errs),
			"failed", len(errs),
			"errors", strings.Join(failures, "; "),
		)
		slog.Warn("Some notifiers failed", attrs...)
	}
	return nil
}
