package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://localhost/attribution_test"

redis:
  addr: "localhost:6380"

keap:
  base_url: "https://keap.example.com/crm/rest/v1"
  hook_relay_url: "https://hooks.example.com"
  timeout_seconds: 45

facebook:
  access_token: "test-token"
  concurrency: 8

attribution:
  customer_workers: 6
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "postgres://localhost/attribution_test", cfg.Database.URL)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	assert.Equal(t, "https://keap.example.com/crm/rest/v1", cfg.Keap.BaseURL)
	assert.Equal(t, 45, cfg.Keap.TimeoutSeconds)
	assert.Equal(t, "test-token", cfg.Facebook.AccessToken)
	assert.Equal(t, 8, cfg.Facebook.Concurrency)
	assert.Equal(t, 6, cfg.Attribution.CustomerWorkers)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte("server: {}\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "https://api.infusionsoft.com/crm/rest/v1", cfg.Keap.BaseURL)
	assert.Equal(t, 60, cfg.Keap.TimeoutSeconds)
	assert.Equal(t, 4, cfg.Facebook.Concurrency)
	assert.Equal(t, 4, cfg.Attribution.CustomerWorkers)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: {}\n"), 0644))

	t.Setenv("DATABASE_URL", "postgres://env-host/attribution")
	t.Setenv("REDIS_ADDR", "redis-env:6379")
	t.Setenv("FB_ACCESS_TOKEN", "env-token")
	t.Setenv("ARCHIVE_S3_BUCKET", "attribution-reports")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-host/attribution", cfg.Database.URL)
	assert.Equal(t, "redis-env:6379", cfg.Redis.Addr)
	assert.Equal(t, "env-token", cfg.Facebook.AccessToken)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, "attribution-reports", cfg.Archive.S3Bucket)
}
