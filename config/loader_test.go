package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader().WithEnvPrefix("VOXFLOW_TEST_DEFAULTS").Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Engine.Dispatch.MaxConcurrency)
	assert.Equal(t, 10*time.Second, cfg.Engine.Dispatch.StepTimeout)
	assert.Equal(t, 0.60, cfg.Engine.Intent.MinConfidence)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "voxflow", cfg.Metrics.Namespace)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "voxflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
engine:
  dispatch:
    max_concurrency: 8
    step_timeout: 3s
  intent:
    min_confidence: 0.75
emr:
  base_url: https://emr.example.com/fhir
  api_key: secret
log:
  level: debug
  format: console
`), 0o600))

	cfg, err := NewLoader().
		WithConfigPath(path).
		WithEnvPrefix("VOXFLOW_TEST_YAML").
		Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Engine.Dispatch.MaxConcurrency)
	assert.Equal(t, 3*time.Second, cfg.Engine.Dispatch.StepTimeout)
	assert.Equal(t, 0.75, cfg.Engine.Intent.MinConfidence)
	assert.Equal(t, "https://emr.example.com/fhir", cfg.EMR.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 0.50, cfg.Engine.Intent.MinTranscriptionConfidence)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  dispatch:
    max_concurrency: 8
`), 0o600))

	t.Setenv("VOXFLOW_TEST_ENV_ENGINE_DISPATCH_MAX_CONCURRENCY", "2")
	t.Setenv("VOXFLOW_TEST_ENV_SESSION_ADDR", "redis:6379")
	t.Setenv("VOXFLOW_TEST_ENV_SESSION_TTL", "5m")
	t.Setenv("VOXFLOW_TEST_ENV_LOG_OUTPUT_PATHS", "stdout, /var/log/voxflow.log")

	cfg, err := NewLoader().
		WithConfigPath(path).
		WithEnvPrefix("VOXFLOW_TEST_ENV").
		Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.Dispatch.MaxConcurrency)
	assert.Equal(t, "redis:6379", cfg.Session.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.Equal(t, []string{"stdout", "/var/log/voxflow.log"}, cfg.Log.OutputPaths)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).
		WithEnvPrefix("VOXFLOW_TEST_MISSING").
		Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_MalformedYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "voxflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a mapping"), 0o600))

	_, err := NewLoader().
		WithConfigPath(path).
		WithEnvPrefix("VOXFLOW_TEST_BAD").
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "zero concurrency",
			mutate: func(c *Config) { c.Engine.Dispatch.MaxConcurrency = 0 },
			want:   "max_concurrency",
		},
		{
			name:   "confidence above one",
			mutate: func(c *Config) { c.Engine.Intent.MinConfidence = 1.5 },
			want:   "min_confidence",
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Log.Level = "verbose" },
			want:   "log level",
		},
		{
			name:   "empty addr",
			mutate: func(c *Config) { c.Server.Addr = "" },
			want:   "addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ExtraValidator(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().
		WithEnvPrefix("VOXFLOW_TEST_EXTRA").
		WithValidator(func(c *Config) error {
			if c.EMR.BaseURL == "" {
				return assert.AnError
			}
			return nil
		}).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
