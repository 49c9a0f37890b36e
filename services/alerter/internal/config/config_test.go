package config

import (
	"testing"
	"time"

	"github.com/vanamuthuV/logsy/pkg/events"
)

func validConfig() Config {
	return Config{
		KafkaBrokers:      "localhost:9092",
		Topic:             "logs",
		ConsumerGroupID:   "alerting",
		Workers:           1,
		RedisAddr:         "localhost:6379",
		AlertLevels:       "ERROR,FATAL",
		DependencyTimeout: 10 * time.Second,
		SMTPPort:          "587",
		EmailProvider:     "smtp",
		EmailRatePerSec:   5,
		EmailBurst:        5,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "valid with fallbacks and slack", mutate: func(c *Config) {
			c.EmailFallbackProviders = "ses, resend"
			c.SlackWebhookURL = "https://hooks.slack.com/services/x/y/z"
		}},
		{name: "empty brokers", mutate: func(c *Config) { c.KafkaBrokers = "" }, wantErr: true, errMsg: "kafka-brokers cannot be empty"},
		{name: "empty group", mutate: func(c *Config) { c.ConsumerGroupID = "" }, wantErr: true, errMsg: "consumer-group-id cannot be empty"},
		{name: "negative max attempts", mutate: func(c *Config) { c.MaxAttempts = -1 }, wantErr: true, errMsg: "max attempts must be >= 0"},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: true, errMsg: "workers must be >= 1"},
		{name: "empty redis", mutate: func(c *Config) { c.RedisAddr = "" }, wantErr: true, errMsg: "redis-addr cannot be empty"},
		{name: "empty levels", mutate: func(c *Config) { c.AlertLevels = " , " }, wantErr: true, errMsg: "alert-levels: level list cannot be empty"},
		{name: "bad level", mutate: func(c *Config) { c.AlertLevels = "ERROR,LOUD" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.DependencyTimeout = 0 }, wantErr: true, errMsg: "dependency timeout must be > 0"},
		{name: "non-numeric smtp port", mutate: func(c *Config) { c.SMTPPort = "smtp" }, wantErr: true, errMsg: `invalid smtp port "smtp"`},
		{name: "smtp port out of range", mutate: func(c *Config) { c.SMTPPort = "70000" }, wantErr: true, errMsg: `invalid smtp port "70000"`},
		{name: "unknown provider", mutate: func(c *Config) { c.EmailProvider = "pigeon" }, wantErr: true, errMsg: `unknown email provider "pigeon"`},
		{name: "unknown fallback", mutate: func(c *Config) { c.EmailFallbackProviders = "ses,fax" }, wantErr: true, errMsg: `unknown fallback email provider "fax"`},
		{name: "zero rate", mutate: func(c *Config) { c.EmailRatePerSec = 0 }, wantErr: true, errMsg: "email rate must be > 0"},
		{name: "zero burst", mutate: func(c *Config) { c.EmailBurst = 0 }, wantErr: true, errMsg: "email burst must be >= 1"},
		{name: "slack channel name", mutate: func(c *Config) { c.SlackWebhookURL = "#alerts" }, wantErr: true, errMsg: "slack webhook url must be an http(s) URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errMsg != "" && err.Error() != tt.errMsg {
				t.Errorf("Validate() error = %q, want %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestConfig_Levels(t *testing.T) {
	cfg := validConfig()
	cfg.AlertLevels = "warn, error"
	levels, err := cfg.Levels()
	if err != nil {
		t.Fatalf("Levels() error = %v", err)
	}
	if len(levels) != 2 || levels[0] != events.LevelWarn || levels[1] != events.LevelError {
		t.Errorf("Levels() = %v, want [WARN ERROR]", levels)
	}
}

func TestConfig_FallbackProviders(t *testing.T) {
	cfg := validConfig()
	cfg.EmailFallbackProviders = " SES ,, resend "
	got := cfg.FallbackProviders()
	if len(got) != 2 || got[0] != "ses" || got[1] != "resend" {
		t.Errorf("FallbackProviders() = %v, want [ses resend]", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ALERT_ACK_ON_FAILURE", "true")
	t.Setenv("EMAIL_RATE_PER_SEC", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConsumerGroupID != "alerting" {
		t.Errorf("ConsumerGroupID = %q, want alerting", cfg.ConsumerGroupID)
	}
	if cfg.AlertLevels != "ERROR,FATAL" {
		t.Errorf("AlertLevels = %q, want ERROR,FATAL", cfg.AlertLevels)
	}
	if !cfg.AckOnFailure {
		t.Error("AckOnFailure should be true")
	}
	if cfg.EmailRatePerSec != 2.5 {
		t.Errorf("EmailRatePerSec = %v, want 2.5", cfg.EmailRatePerSec)
	}
	if cfg.MaxAttempts != 0 {
		t.Errorf("MaxAttempts = %d, want 0 (unbounded)", cfg.MaxAttempts)
	}
	if cfg.DependencyTimeout != 10*time.Second {
		t.Errorf("DependencyTimeout = %v, want 10s", cfg.DependencyTimeout)
	}
}
