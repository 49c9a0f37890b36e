// Package slack posts alert summaries to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vanamuthuV/logsy/pkg/events"
	"github.com/vanamuthuV/logsy/services/alerter/internal/notifier"
)

const maxMessageLen = 2900

// Payload is the webhook request body.
type Payload struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

// Block is a Slack Block Kit block.
type Block struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text,omitempty"`
	Fields   []Text `json:"fields,omitempty"`
	Elements []Text `json:"elements,omitempty"`
}

// Text is a Block Kit text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notifier posts to one webhook URL.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// New creates a Slack notifier for webhookURL.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the channel name.
func (n *Notifier) Name() string {
	return "slack"
}

// Notify posts a summary of the alert.
func (n *Notifier) Notify(ctx context.Context, alert notifier.Alert) error {
	body, err := json.Marshal(BuildPayload(alert))
	if err != nil {
		return fmt.Errorf("failed to marshal Slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack notification to %s: %w", maskURL(n.webhookURL), err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	slog.Debug("Sent Slack notification", alert.Event.LogAttrs()...)
	return nil
}

// BuildPayload builds the webhook body for alert.
func BuildPayload(alert notifier.Alert) Payload {
	e := alert.Event
	instance := e.InstanceID
	if instance == "" {
		instance = "-"
	}
	trace := e.TraceID
	if trace == "" {
		trace = "-"
	}

	message := e.Message
	if r := []rune(message); len(r) > maxMessageLen {
		message = string(r[:maxMessageLen]) + "…"
	}

	return Payload{
		Text: alert.Subject,
		Blocks: []Block{
			{Type: "header", Text: &Text{Type: "plain_text", Text: levelIcon(e.Level) + " " + alert.Subject}},
			{Type: "section", Fields: []Text{
				{Type: "mrkdwn", Text: "*Service:*\n" + e.Service},
				{Type: "mrkdwn", Text: "*Level:*\n" + string(e.Level)},
				{Type: "mrkdwn", Text: "*Time:*\n" + e.Timestamp.UTC().Format(time.RFC3339)},
				{Type: "mrkdwn", Text: "*Instance:*\n" + instance},
			}},
			{Type: "section", Text: &Text{Type: "mrkdwn", Text: "```" + message + "```"}},
			{Type: "context", Elements: []Text{{Type: "mrkdwn", Text: "Trace ID: " + trace}}},
		},
	}
}

func levelIcon(level events.Level) string {
	if level == events.LevelFatal {
		return "🔥"
	}
	return "🚨"
}

// maskURL hides the webhook token in logs and errors.
func maskURL(url string) string {
	if len(url) > 50 {
		return url[:30] + "..." + url[len(url)-10:]
	}
	return url
}
