// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/reviewdesk/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory reply queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of extraction workers.
	WorkerCount int `koanf:"worker_count"`

	// BatchConcurrency bounds concurrent submissions within one batch.
	BatchConcurrency int `koanf:"batch_concurrency"`

	// Schema names the record schema replies are validated against.
	Schema string `koanf:"schema"`

	// SchemasFile is an optional YAML file with extra schema definitions.
	SchemasFile string `koanf:"schemas_file"`

	// MaxReplyBytes caps the size of one agent reply.
	MaxReplyBytes int64 `koanf:"max_reply_bytes"`

	// TopLimit caps GET /top?limit.
	TopLimit int `koanf:"top_limit"`

	// MetricsNamespace and MetricsSubsystem lead every metric name. Empty
	// values keep the built-in names.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsPrefix is prepended to each metric name after the subsystem.
	MetricsPrefix string `koanf:"metrics_prefix"`

	// MetricsRefreshInterval sets how often system gauges are polled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`

	// MetricsLabels are constant labels attached to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsBuckets replaces the default latency histogram buckets.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		QueueSize:        1024,
		WorkerCount:      runtime.NumCPU(),
		BatchConcurrency: 4,
		Schema:           model.SchemaEvaluation,
		MaxReplyBytes:    1 << 20,
		TopLimit:         100,

		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.BatchConcurrency < 1:
		return fmt.Errorf("%w: batch_concurrency must be positive, got %d", ErrInvalidConfig, c.BatchConcurrency)
	case c.MaxReplyBytes < 1:
		return fmt.Errorf("%w: max_reply_bytes must be positive, got %d", ErrInvalidConfig, c.MaxReplyBytes)
	case c.TopLimit < 1:
		return fmt.Errorf("%w: top_limit must be positive, got %d", ErrInvalidConfig, c.TopLimit)
	case strings.TrimSpace(c.Schema) == "":
		return fmt.Errorf("%w: schema must not be empty", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive, got %s", ErrInvalidConfig, c.MetricsRefreshInterval)
	}
	for i := 1; i < len(c.MetricsBuckets); i++ {
		if c.MetricsBuckets[i] <= c.MetricsBuckets[i-1] {
			return fmt.Errorf("%w: metrics_buckets must be increasing", ErrInvalidConfig)
		}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
