package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/voxflow/voxflow/emr"
	"github.com/voxflow/voxflow/internal/session"
	"github.com/voxflow/voxflow/orchestrator"
)

// Config is the complete VoxFlow configuration.
type Config struct {
	// Server holds the HTTP server settings.
	Server ServerConfig `yaml:"server"`

	// Engine holds classification and dispatch settings.
	Engine orchestrator.Config `yaml:"engine"`

	// EMR holds the collaborator connection settings. An empty base URL
	// selects the built-in fake, which is only useful for development.
	EMR emr.Config `yaml:"emr"`

	// Session holds session continuity settings.
	Session session.Config `yaml:"session"`

	// Metrics holds Prometheus settings.
	Metrics MetricsConfig `yaml:"metrics"`

	// Log holds logging settings.
	Log LogConfig `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
	// ReadTimeout bounds reading a request.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout bounds writing a response. Streaming endpoints use
	// their own deadlines.
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is json or console.
	Format string `yaml:"format"`
	// OutputPaths lists zap output sinks.
	OutputPaths []string `yaml:"output_paths"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Engine: orchestrator.DefaultConfig(),
		EMR: emr.Config{
			Timeout: 15 * time.Second,
		},
		Session: session.DefaultConfig(),
		Metrics: MetricsConfig{
			Namespace: "voxflow",
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server addr must not be empty")
	}
	if c.Engine.Dispatch.MaxConcurrency <= 0 {
		errs = append(errs, "dispatch max_concurrency must be positive")
	}
	if c.Engine.Dispatch.StepTimeout <= 0 {
		errs = append(errs, "dispatch step_timeout must be positive")
	}
	if c.Engine.Intent.MinConfidence <= 0 || c.Engine.Intent.MinConfidence > 1 {
		errs = append(errs, "intent min_confidence must be in (0, 1]")
	}
	if c.Engine.Intent.MinTranscriptionConfidence < 0 || c.Engine.Intent.MinTranscriptionConfidence > 1 {
		errs = append(errs, "intent min_transcription_confidence must be in [0, 1]")
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, "session ttl must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
