package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

type resendEmails interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Resend sends through the Resend HTTP API.
type Resend struct {
	emails resendEmails
}

// NewResend creates the provider. Without an API key it stays unconfigured.
func NewResend(apiKey string) *Resend {
	if apiKey == "" {
		return &Resend{}
	}
	return &Resend{emails: resend.NewClient(apiKey).Emails}
}

func (p *Resend) Name() string       { return "resend" }
func (p *Resend) IsConfigured() bool { return p.emails != nil }

// Send posts req. The client takes no context, so ctx is only checked first.
func (p *Resend) Send(ctx context.Context, req *EmailRequest) error {
	if p.emails == nil {
		return ErrNoProvider
	}
	if len(req.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := p.emails.Send(&resend.SendEmailRequest{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	slog.Info("Alert email sent", "provider", "resend", "email_id", resp.Id, "recipients", len(req.To))
	return nil
}
