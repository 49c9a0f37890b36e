// Package config provides configuration loading and validation for the ingestor service.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration parameters for the ingestor service.
type Config struct {
	KafkaBrokers      string        `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	Topic             string        `env:"KAFKA_TOPIC" envDefault:"logs"`
	TopicPartitions   int           `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
	HTTPPort          string        `env:"INGESTOR_HTTP_PORT" envDefault:"8080"`
	MaxEventSizeBytes int64         `env:"MAX_EVENT_SIZE_BYTES" envDefault:"1048576"`
	APIKeyHash        string        `env:"INGEST_API_KEY_HASH"`
	PublishTimeout    time.Duration `env:"DEPENDENCY_TIMEOUT" envDefault:"10s"`
	MockProducer      bool          `env:"MOCK_PRODUCER" envDefault:"false"`
	RedisAddr         string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string        `env:"LOG_FORMAT" envDefault:"text"`
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

// Validate checks that all required configuration fields are set and have valid values.
func (c *Config) Validate() error {
	if c.KafkaBrokers == "" && !c.MockProducer {
		return fmt.Errorf("kafka-brokers cannot be empty")
	}
	if c.Topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("http-port cannot be empty")
	}
	if c.MaxEventSizeBytes <= 0 {
		return fmt.Errorf("max-event-size-bytes must be > 0")
	}
	if c.TopicPartitions < 1 {
		return fmt.Errorf("topic-partitions must be >= 1")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("publish timeout must be > 0")
	}
	return nil
}
