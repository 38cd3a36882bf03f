package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the evaluation service.
type Config struct {
	// Log level: trace, debug, info, warn, error
	LogLevel string

	// Node identifier used in alert envelopes; hostname when empty
	NodeID string

	HTTP   HTTPConfig
	Kafka  KafkaConfig
	Worker WorkerConfig
	Auth   AuthConfig

	// Threshold rules evaluated against incoming samples
	Rules []RuleConfig
}

// HTTPConfig configures the ingest/metrics HTTP server.
type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodySize  int64
}

// KafkaConfig configures the alert producer and the optional sample
// consumer.
type KafkaConfig struct {
	Brokers     []string
	AlertsTopic string

	// Sample consumption from Kafka; disabled unless a topic is set
	SamplesTopic  string
	ConsumerGroup string

	Producer ProducerConfig
}

// ProducerConfig tunes the Kafka producer pool.
type ProducerConfig struct {
	PoolSize     int
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequiredAcks int
	Compression  string
	MaxRetries   int
	RetryBackoff time.Duration
}

// WorkerConfig tunes the alert publishing worker pool.
type WorkerConfig struct {
	Workers      int
	QueueSize    int
	BatchSize    int
	BatchTimeout time.Duration
}

// AuthConfig configures API-key auth; an empty key disables it.
type AuthConfig struct {
	APIKey string
}

// RuleConfig is the textual form of a threshold rule. Warning and
// Critical are Nagios range expressions; either may be empty.
type RuleConfig struct {
	Name     string
	Metric   string
	Warning  string
	Critical string
}

// Default returns a sensible default config for local dev.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodySize:  10 * 1024 * 1024, // 10MB
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			AlertsTopic:   "threshd.alerts",
			ConsumerGroup: "threshd",
			Producer: ProducerConfig{
				PoolSize:     4,
				BatchSize:    100,
				BatchTimeout: 100 * time.Millisecond,
				WriteTimeout: 10 * time.Second,
				RequiredAcks: -1, // all
				Compression:  "snappy",
				MaxRetries:   3,
				RetryBackoff: 100 * time.Millisecond,
			},
		},
		Worker: WorkerConfig{
			Workers:      4,
			QueueSize:    1000,
			BatchSize:    100,
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

// FromEnv returns the default config with THRESHD_* environment
// overrides applied.
func FromEnv() (*Config, error) {
	cfg := Default()

	cfg.LogLevel = envString("THRESHD_LOG_LEVEL", cfg.LogLevel)
	cfg.NodeID = envString("THRESHD_NODE_ID", cfg.NodeID)

	cfg.HTTP.Addr = envString("THRESHD_HTTP_ADDR", cfg.HTTP.Addr)

	if v := os.Getenv("THRESHD_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitCSV(v)
	}
	cfg.Kafka.AlertsTopic = envString("THRESHD_ALERTS_TOPIC", cfg.Kafka.AlertsTopic)
	cfg.Kafka.SamplesTopic = envString("THRESHD_SAMPLES_TOPIC", cfg.Kafka.SamplesTopic)
	cfg.Kafka.ConsumerGroup = envString("THRESHD_CONSUMER_GROUP", cfg.Kafka.ConsumerGroup)
	cfg.Kafka.Producer.Compression = envString("THRESHD_KAFKA_COMPRESSION", cfg.Kafka.Producer.Compression)

	var err error
	if cfg.Kafka.Producer.PoolSize, err = envInt("THRESHD_PRODUCER_POOL", cfg.Kafka.Producer.PoolSize); err != nil {
		return nil, err
	}
	if cfg.Worker.Workers, err = envInt("THRESHD_WORKERS", cfg.Worker.Workers); err != nil {
		return nil, err
	}
	if cfg.Worker.QueueSize, err = envInt("THRESHD_QUEUE_SIZE", cfg.Worker.QueueSize); err != nil {
		return nil, err
	}

	cfg.Auth.APIKey = envString("THRESHD_API_KEY", cfg.Auth.APIKey)

	if v := os.Getenv("THRESHD_RULES"); v != "" {
		rules, err := ParseRules(v)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}

	return cfg, nil
}

// ParseRules parses rule definitions of the form
// "name=metric=warning=critical" separated by semicolons. Warning or
// critical may be left empty, e.g. "cpu_band=cpu==@10:20".
func ParseRules(spec string) ([]RuleConfig, error) {
	var rules []RuleConfig
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "=")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid rule definition %q: want name=metric=warning=critical", entry)
		}
		rules = append(rules, RuleConfig{
			Name:     parts[0],
			Metric:   parts[1],
			Warning:  parts[2],
			Critical: parts[3],
		})
	}
	return rules, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
