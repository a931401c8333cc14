package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults verifies the values used when nothing is configured.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/tasks.db", cfg.Database.Path)
	assert.Equal(t, []string{DevOrigin}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.CORS.AllowCredentials)
	assert.Zero(t, cfg.RateLimit.RPS)
	assert.Equal(t, "none", cfg.Auth.Mode)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TASKS_SERVER_ADDR", ":9090")
	t.Setenv("TASKS_SERVER_LOG_LEVEL", "debug")
	t.Setenv("TASKS_SERVER_REQUEST_TIMEOUT", "3s")
	t.Setenv("TASKS_DATABASE_DRIVER", "memory")
	t.Setenv("TASKS_CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("TASKS_RATELIMIT_RPS", "2.5")
	t.Setenv("TASKS_AUTH_MODE", "apikey")
	t.Setenv("TASKS_AUTH_API_KEY", "secret123")
	t.Setenv("TASKS_METRICS_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.InDelta(t, 2.5, cfg.RateLimit.RPS, 0.0001)
	assert.Equal(t, "apikey", cfg.Auth.Mode)
	assert.Equal(t, "secret123", cfg.Auth.APIKey)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile_EnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	content := `
server:
  addr: ":7070"
database:
  path: /tmp/from-file.db
tracing:
  exporter: stdout
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("TASKS_SERVER_ADDR", ":6060")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":6060", cfg.Server.Addr, "env should override file")
	assert.Equal(t, "/tmp/from-file.db", cfg.Database.Path)
	assert.Equal(t, "stdout", cfg.Tracing.Exporter)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "apikey mode without key",
			env:  map[string]string{"TASKS_AUTH_MODE": "apikey"},
			want: "Config.Auth.APIKey",
		},
		{
			name: "bearer mode without token",
			env:  map[string]string{"TASKS_AUTH_MODE": "bearer"},
			want: "Config.Auth.BearerToken",
		},
		{
			name: "unknown driver",
			env:  map[string]string{"TASKS_DATABASE_DRIVER": "postgres"},
			want: "Config.Database.Driver",
		},
		{
			name: "unknown exporter",
			env:  map[string]string{"TASKS_TRACING_EXPORTER": "zipkin"},
			want: "Config.Tracing.Exporter",
		},
		{
			name: "bad log level",
			env:  map[string]string{"TASKS_SERVER_LOG_LEVEL": "loud"},
			want: "Config.Server.LogLevel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
