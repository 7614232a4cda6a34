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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8787", cfg.Addr())
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
allowed_origins: ["https://shop.example"]
ai:
  enabled: false
  providers: [ollama]
  ollama_url: http://ollama:11434
  timeout: 5s
cache:
  redis_address: redis:6379
  ttl: 1m
`), 0o600))

	t.Setenv("PORT", "9100")
	t.Setenv("AI_PROVIDERS", "glm, openai,,")
	t.Setenv("AI_RATE_PER_SEC", "0.5")
	t.Setenv("AI_CONCURRENCY", "not-a-number")
	t.Setenv("PARSE_CACHE_TTL", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, []string{"https://shop.example"}, cfg.AllowedOrigins)
	assert.False(t, cfg.AI.Enabled)
	assert.Equal(t, []string{"glm", "openai"}, cfg.AI.Providers)
	assert.Equal(t, "http://ollama:11434", cfg.AI.OllamaURL)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 0.5, cfg.AI.RatePerSec)
	assert.Equal(t, 4, cfg.AI.Concurrency)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddress)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("port: [1, 2"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv("PORT", "70000")
	_, err = Load("")
	assert.Error(t, err)
}
