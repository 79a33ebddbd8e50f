package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

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

klaviyo:
  base_url: "https://a.klaviyo.com/api"
  revision: "2024-10-15"
  timeout_seconds: 20

database:
  url: "postgres://localhost/bridge_test"

redis:
  addr: "localhost:6380"
  db: 2

logging:
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "https://a.klaviyo.com/api", cfg.Klaviyo.BaseURL)
	assert.Equal(t, "2024-10-15", cfg.Klaviyo.Revision)
	assert.Equal(t, 20, cfg.Klaviyo.TimeoutSeconds)
	assert.Equal(t, 20*time.Second, cfg.Klaviyo.Timeout())

	assert.Equal(t, "postgres://localhost/bridge_test", cfg.Database.URL)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("server:\n  port: 0\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "https://a.klaviyo.com/api", cfg.Klaviyo.BaseURL)
	assert.Equal(t, "2024-10-15", cfg.Klaviyo.Revision)
	assert.Equal(t, 15, cfg.Klaviyo.TimeoutSeconds)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("klaviyo:\n  timeout_seconds: 15\n"), 0644)
	require.NoError(t, err)

	t.Setenv("KLAVIYO_BASE_URL", "http://stub.local/api")
	t.Setenv("KLAVIYO_API_KEY", "pk_test_seed")
	t.Setenv("DATABASE_URL", "postgres://env/bridge")
	t.Setenv("REDIS_ADDR", "redis.env:6379")
	t.Setenv("PORT", "9999")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://stub.local/api", cfg.Klaviyo.BaseURL)
	assert.Equal(t, "pk_test_seed", cfg.Klaviyo.SeedAPIKey)
	assert.Equal(t, "postgres://env/bridge", cfg.Database.URL)
	assert.Equal(t, "redis.env:6379", cfg.Redis.Addr)
	assert.Equal(t, 9999, cfg.Server.Port)
}
