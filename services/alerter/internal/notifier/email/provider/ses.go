package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/vanamuthuV/logsy/pkg/retry"
)

const charset = "UTF-8"

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES sends through the AWS SES v2 API.
type SES struct {
	client sesAPI
	region string
}

// NewSES loads the default AWS credential chain for region. If that fails
// the provider stays unconfigured and the chain skips it.
func NewSES(ctx context.Context, region string) *SES {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		slog.Warn("AWS config unavailable, SES disabled", "region", region, "error", err)
		return &SES{region: region}
	}
	return &SES{client: sesv2.NewFromConfig(cfg), region: region}
}

func (p *SES) Name() string       { return "ses" }
func (p *SES) IsConfigured() bool { return p.client != nil }

func (p *SES) Send(ctx context.Context, req *EmailRequest) error {
	if p.client == nil {
		return ErrNoProvider
	}
	if len(req.To) == 0 {
		return ErrNoRecipients
	}

	out, err := p.client.SendEmail(ctx, sesInput(req))
	if err != nil {
		err = fmt.Errorf("ses send: %w", err)
		if sesRejected(err) {
			return retry.Permanent(err)
		}
		return err
	}
	slog.Info("Alert email sent", "provider", "ses", "message_id", aws.ToString(out.MessageId), "recipients", len(req.To))
	return nil
}

// sesRejected reports errors SES returns for the request itself, which a
// resend of the same request cannot fix.
func sesRejected(err error) bool {
	var (
		rejected   *types.MessageRejected
		badRequest *types.BadRequestException
		notFound   *types.NotFoundException
		mailFrom   *types.MailFromDomainNotVerifiedException
	)
	return errors.As(err, &rejected) || errors.As(err, &badRequest) ||
		errors.As(err, &notFound) || errors.As(err, &mailFrom)
}

func sesInput(req *EmailRequest) *sesv2.SendEmailInput {
	content := func(s string) *types.Content {
		return &types.Content{Data: aws.String(s), Charset: aws.String(charset)}
	}
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(req.From),
		Destination:      &types.Destination{ToAddresses: req.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: content(req.Subject),
				Body:    &types.Body{Html: content(req.HTML)},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("source"), Value: aws.String("logsy-alerter")},
		},
	}
}
