// Package provider holds the email backends the alerter can send through
// and the chain that picks between them.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vanamuthuV/logsy/pkg/retry"
)

var (
	// ErrNoProvider means no provider in the chain is configured right now.
	ErrNoProvider = errors.New("no configured email provider available")
	// ErrNoRecipients is returned by every provider for an empty To list.
	ErrNoRecipients = errors.New("no recipients specified")
)

// EmailRequest is one HTML email.
type EmailRequest struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Provider is an email backend.
type Provider interface {
	Name() string
	Send(ctx context.Context, req *EmailRequest) error
	// IsConfigured reports whether the provider can send right now.
	IsConfigured() bool
}

// Registry sends through the primary provider and falls back in order.
// Providers that are not configured at send time are skipped.
type Registry struct {
	chain []Provider
}

// NewRegistry orders providers as primary, then fallbacks, then every other
// provider by registration order. Unknown names are an error.
func NewRegistry(primary string, fallbacks []string, providers ...Provider) (*Registry, error) {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
		slog.Info("Registered email provider", "name", p.Name(), "configured", p.IsConfigured())
	}

	r := &Registry{}
	used := make(map[string]bool, len(providers))
	for _, name := range append([]string{primary}, fallbacks...) {
		p, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("email provider %q not registered", name)
		}
		if !used[name] {
			used[name] = true
			r.chain = append(r.chain, p)
		}
	}
	for _, p := range providers {
		if !used[p.Name()] {
			used[p.Name()] = true
			r.chain = append(r.chain, p)
		}
	}
	return r, nil
}

// Names returns the provider names in the order they are tried.
func (r *Registry) Names() []string {
	names := make([]string, len(r.chain))
	for i, p := range r.chain {
		names[i] = p.Name()
	}
	return names
}

// Send tries each configured provider until one succeeds. If all fail the
// returned error wraps every provider error, and is permanent only when every
// provider rejected the request permanently.
func (r *Registry) Send(ctx context.Context, req *EmailRequest) error {
	var errs []error
	for _, p := range r.chain {
		if !p.IsConfigured() {
			continue
		}
		err := p.Send(ctx, req)
		if err == nil {
			if len(errs) > 0 {
				slog.Warn("Email sent via fallback provider", "provider", p.Name(), "failed", len(errs))
			}
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
		slog.Warn("Email provider failed", "provider", p.Name(), "error", err)
	}
	if len(errs) == 0 {
		return ErrNoProvider
	}
	return retry.Join(errs...)
}
