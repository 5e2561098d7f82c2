package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 40.7128, cfg.Map.DefaultLat)
	assert.Equal(t, -74.006, cfg.Map.DefaultLng)
	assert.Equal(t, 5*time.Second, cfg.Map.LocationTimeout)
	assert.Equal(t, 1, cfg.Chat.Generative.MaxAttempts)
	assert.False(t, cfg.Chat.Generative.Enabled)
	assert.Equal(t, []string{"en"}, cfg.I18n.Languages)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
chat:
  session_ttl: 30m
  max_history: 10
map:
  default_lat: 51.5
  default_lng: -0.12
rate_limit:
  requests_per_minute: 5
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Chat.SessionTTL)
	assert.Equal(t, 10, cfg.Chat.MaxHistory)
	assert.Equal(t, 51.5, cfg.Map.DefaultLat)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerMinute)
	// untouched keys keep their defaults
	assert.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("STORAGE_TYPE", "redis")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PASSWORD", "secret")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "cache.internal:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, "secret", cfg.Storage.Redis.Password)
}

func TestLoadConfigValidation(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "storage:\n  type: postgres\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "chat:\n  generative:\n    enabled: true\n"))
	assert.Error(t, err)

	t.Setenv("GENERATIVE_API_KEY", "key")
	cfg, err := LoadConfig(writeConfig(t, "chat:\n  generative:\n    enabled: true\n    max_attempts: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, "key", cfg.Chat.Generative.APIKey)
	assert.Equal(t, 1, cfg.Chat.Generative.MaxAttempts)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
