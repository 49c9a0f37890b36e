// Package render builds the alert email body and subject for a log event.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/vanamuthuV/logsy/pkg/events"
)

const (
	colorError   = "#d9534f"
	colorFatal   = "#f0ad4e"
	colorDefault = "#999999"
)

var alertTemplate = template.Must(template.New("alert").Parse(`<html>
  <body style="margin:0;padding:0;font-family:Arial,sans-serif;background-color:#f4f4f4;">
    <div style="max-width:600px;margin:30px auto;background:#fff;padding:24px;border-radius:12px;box-shadow:0 4px 10px rgba(0,0,0,0.07);">
      <h2 style="color:{{.Color}};margin-top:0;">🔔 {{.Level}} Alert</h2>
      <table style="width:100%;border-collapse:collapse;margin-top:16px;">
        <tr>
          <td style="padding:8px 0;"><strong>📅 Time:</strong></td>
          <td style="padding:8px 0;">{{.Time}}</td>
        </tr>
        <tr>
          <td style="padding:8px 0;"><strong>🛠 Service:</strong></td>
          <td style="padding:8px 0;">{{.Service}}</td>
        </tr>
        <tr>
          <td style="padding:8px 0;"><strong>📌 Instance:</strong></td>
          <td style="padding:8px 0;">{{.Instance}}</td>
        </tr>
        <tr>
          <td style="padding:8px 0;"><strong>🧾 Message:</strong></td>
          <td style="padding:8px 0;">{{.Message}}</td>
        </tr>
{{- if .Metadata}}
        <tr>
          <td style="padding:8px 0;vertical-align:top;"><strong>🧩 Metadata:</strong></td>
          <td style="padding:8px 0;"><pre style="background:#f8f8f8;padding:10px;border-radius:6px;font-size:13px;">{{.Metadata}}</pre></td>
        </tr>
{{- end}}
{{- if .StackTrace}}
        <tr>
          <td style="padding:8px 0;vertical-align:top;"><strong>💥 Stack Trace:</strong></td>
          <td style="padding:8px 0;"><pre style="background:#fff5f5;color:#d9534f;padding:10px;border-left:4px solid #d9534f;border-radius:6px;font-size:13px;">{{.StackTrace}}</pre></td>
        </tr>
{{- end}}
      </table>
      <p style="text-align:center;color:#999;font-size:12px;margin-top:24px;">
        Log Monitoring System • Trace ID: {{.TraceID}}
      </p>
    </div>
  </body>
</html>
`))

type view struct {
	Color      template.CSS
	Level      string
	Time       string
	Service    string
	Instance   string
	Message    string
	Metadata   string
	StackTrace string
	TraceID    string
}

// AccentColor returns the header color for level.
func AccentColor(level events.Level) string {
	switch level {
	case events.LevelError:
		return colorError
	case events.LevelFatal:
		return colorFatal
	default:
		return colorDefault
	}
}

// Subject returns the email subject line for e.
func Subject(e *events.LogEvent) string {
	return fmt.Sprintf("%s: From %s Service", e.Level, e.Service)
}

// HTML renders e. Output depends only on e; event text is escaped.
func HTML(e *events.LogEvent) (string, error) {
	if e == nil {
		return "", fmt.Errorf("event is nil")
	}

	v := view{
		Color:    template.CSS(AccentColor(e.Level)),
		Level:    string(e.Level),
		Time:     e.Timestamp.UTC().Format(time.RFC3339),
		Service:  e.Service,
		Instance: orDash(e.InstanceID),
		Message:  e.Message,
		TraceID:  orDash(e.TraceID),
	}
	if strings.TrimSpace(e.StackTrace) != "" {
		v.StackTrace = e.StackTrace
	}
	if len(e.Metadata) > 0 {
		// Map keys are emitted sorted.
		data, err := json.MarshalIndent(e.Metadata, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode metadata: %w", err)
		}
		v.Metadata = string(data)
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("failed to render alert: %w", err)
	}
	return buf.String(), nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
