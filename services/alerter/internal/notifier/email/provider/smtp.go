package provider

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/vanamuthuV/logsy/pkg/retry"
	"github.com/vanamuthuV/logsy/services/alerter/internal/identity"
)

// Credentials supplies the SMTP login. It must not block.
type Credentials interface {
	Cached() (identity.Identity, bool)
}

// SMTP sends mail over SMTP. Port 465 uses implicit TLS, any other port
// upgrades with STARTTLS when the server offers it.
type SMTP struct {
	host  string
	port  int
	creds Credentials
	now   func() time.Time
	tls   *tls.Config
}

// NewSMTP creates an SMTP provider for host:port.
func NewSMTP(host string, port int, creds Credentials) *SMTP {
	return &SMTP{
		host:  host,
		port:  port,
		creds: creds,
		now:   time.Now,
		tls:   &tls.Config{ServerName: host},
	}
}

func (p *SMTP) Name() string { return "smtp" }

// IsConfigured returns true once a host is set and credentials are resolved.
func (p *SMTP) IsConfigured() bool {
	if p.host == "" || p.port <= 0 || p.creds == nil {
		return false
	}
	_, ok := p.creds.Cached()
	return ok
}

// Send sends req over a single SMTP session.
func (p *SMTP) Send(ctx context.Context, req *EmailRequest) error {
	if len(req.To) == 0 {
		return ErrNoRecipients
	}
	id, ok := p.creds.Cached()
	if !ok {
		return fmt.Errorf("smtp credentials not resolved")
	}

	addr := net.JoinHostPort(p.host, strconv.Itoa(p.port))
	conn, err := p.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, p.host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if p.port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(p.tls); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", id.Email, id.Password, p.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(req.From); err != nil {
		return classifyReply(fmt.Errorf("failed to set sender %s: %w", req.From, err))
	}

	// A recipient the server refuses for good is skipped so the others still
	// get the mail.
	var accepted int
	var rejected []error
	for _, rcpt := range req.To {
		err := client.Rcpt(rcpt)
		if err == nil {
			accepted++
			continue
		}
		err = classifyReply(fmt.Errorf("failed to set recipient %s: %w", rcpt, err))
		if !retry.IsPermanent(err) {
			return err
		}
		rejected = append(rejected, err)
	}
	if accepted == 0 {
		return retry.Join(rejected...)
	}
	if len(rejected) > 0 {
		slog.Warn("SMTP server rejected recipients", "rejected", len(rejected), "accepted", accepted, "error", errors.Join(rejected...))
	}

	w, err := client.Data()
	if err != nil {
		return classifyReply(fmt.Errorf("failed to open data writer: %w", err))
	}
	if _, err := w.Write(buildMessage(req, p.now())); err != nil {
		w.Close()
		return fmt.Errorf("failed to write email data: %w", err)
	}
	if err := w.Close(); err != nil {
		return classifyReply(fmt.Errorf("failed to close data writer: %w", err))
	}

	if err := client.Quit(); err != nil {
		slog.Warn("Error during SMTP QUIT", "error", err)
	}

	slog.Info("Email sent via SMTP", "server", addr, "from", req.From, "recipients", accepted, "subject", req.Subject)
	return nil
}

// classifyReply marks 5xx server replies permanent. 4xx replies and transport
// errors stay retryable.
func classifyReply(err error) error {
	var reply *textproto.Error
	if errors.As(err, &reply) && reply.Code >= 500 {
		return retry.Permanent(err)
	}
	return err
}

func (p *SMTP) dial(ctx context.Context, addr string) (net.Conn, error) {
	if p.port == 465 {
		d := &tls.Dialer{Config: p.tls}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SMTP server with TLS: %w", err)
		}
		return conn, nil
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	return conn, nil
}
