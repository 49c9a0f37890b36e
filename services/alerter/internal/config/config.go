// Package config provides configuration loading and validation for the alerter service.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/vanamuthuV/logsy/pkg/events"
)

// Email provider names accepted by EMAIL_PROVIDER and EMAIL_FALLBACK_PROVIDERS.
const (
	ProviderSMTP   = "smtp"
	ProviderSES    = "ses"
	ProviderResend = "resend"
)

// Config holds all configuration parameters for the alerter service.
type Config struct {
	KafkaBrokers    string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	Topic           string `env:"KAFKA_TOPIC" envDefault:"logs"`
	ConsumerGroupID string `env:"ALERTER_CONSUMER_GROUP" envDefault:"alerting"`
	Workers         int    `env:"CONSUMER_WORKERS" envDefault:"1"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AlertLevels       string        `env:"ALERT_LEVELS" envDefault:"ERROR,FATAL"`
	AckOnFailure      bool          `env:"ALERT_ACK_ON_FAILURE" envDefault:"false"`
	MaxAttempts       int           `env:"ALERT_MAX_ATTEMPTS" envDefault:"0"`
	DependencyTimeout time.Duration `env:"DEPENDENCY_TIMEOUT" envDefault:"10s"`

	SMTPHost        string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort        string `env:"SMTP_PORT" envDefault:"587"`
	SMTPFromDefault string `env:"SMTP_FROM_DEFAULT" envDefault:"alerts@logsy.local"`

	EmailProvider          string  `env:"EMAIL_PROVIDER" envDefault:"smtp"`
	EmailFallbackProviders string  `env:"EMAIL_FALLBACK_PROVIDERS"`
	EmailRatePerSec        float64 `env:"EMAIL_RATE_PER_SEC" envDefault:"5"`
	EmailBurst             int     `env:"EMAIL_BURST" envDefault:"5"`
	ResendAPIKey           string  `env:"RESEND_API_KEY"`
	AWSRegion              string  `env:"AWS_REGION" envDefault:"us-east-1"`

	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`

	HTTPPort  string `env:"ALERTER_HTTP_PORT" envDefault:"8083"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from the environment, after loading a local .env
// file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Levels returns the parsed ALERT_LEVELS.
func (c *Config) Levels() ([]events.Level, error) {
	return events.ParseLevels(c.AlertLevels)
}

// FallbackProviders returns the fallback provider names in order.
func (c *Config) FallbackProviders() []string {
	var names []string
	for _, name := range strings.Split(c.EmailFallbackProviders, ",") {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Validate checks that all required configuration fields are set and have valid values.
func (c *Config) Validate() error {
	if c.KafkaBrokers == "" {
		return fmt.Errorf("kafka-brokers cannot be empty")
	}
	if c.Topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	if c.ConsumerGroupID == "" {
		return fmt.Errorf("consumer-group-id cannot be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("redis-addr cannot be empty")
	}
	if _, err := c.Levels(); err != nil {
		return fmt.Errorf("alert-levels: %w", err)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("max attempts must be >= 0")
	}
	if c.DependencyTimeout <= 0 {
		return fmt.Errorf("dependency timeout must be > 0")
	}
	if _, err := c.SMTPPortNumber(); err != nil {
		return err
	}
	if !isKnownProvider(c.EmailProvider) {
		return fmt.Errorf("unknown email provider %q", c.EmailProvider)
	}
	for _, name := range c.FallbackProviders() {
		if !isKnownProvider(name) {
			return fmt.Errorf("unknown fallback email provider %q", name)
		}
	}
	if c.EmailRatePerSec <= 0 {
		return fmt.Errorf("email rate must be > 0")
	}
	if c.EmailBurst < 1 {
		return fmt.Errorf("email burst must be >= 1")
	}
	if c.SlackWebhookURL != "" && !strings.HasPrefix(c.SlackWebhookURL, "https://") && !strings.HasPrefix(c.SlackWebhookURL, "http://") {
		return fmt.Errorf("slack webhook url must be an http(s) URL")
	}
	return nil
}

// SMTPPortNumber parses SMTPPort.
func (c *Config) SMTPPortNumber() (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(c.SMTPPort))
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid smtp port %q", c.SMTPPort)
	}
	return port, nil
}

func isKnownProvider(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderSMTP, ProviderSES, ProviderResend:
		return true
	}
	return false
}
