package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8015, cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Graph.Timeout)
	assert.Equal(t, 3, cfg.Graph.MaxRetries)
	assert.Equal(t, 1*time.Second, cfg.Graph.RetryBase)
	assert.Equal(t, uint32(5), cfg.Graph.BreakerFailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Graph.BreakerOpenDuration)
	assert.Equal(t, 1000, cfg.Cache.MemoryCapacity)
	assert.Equal(t, 600*time.Second, cfg.Cache.MemoryTTL)
	assert.Equal(t, 3600*time.Second, cfg.Cache.ActiveCaseTTL)
	assert.Equal(t, 86400*time.Second, cfg.Cache.ClosedCaseTTL)
	assert.Equal(t, 30*time.Second, cfg.Build.OverallDeadline)
	assert.Equal(t, 50, cfg.Build.MaxBatchSize)
	assert.True(t, cfg.Cache.EnableMemory)
	assert.False(t, cfg.Cache.EnablePersistent)
	assert.Equal(t, "none", cfg.Auth.Provider)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Run("BadPort", func(t *testing.T) {
		cfg := Default()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("MissingGraphEndpoint", func(t *testing.T) {
		cfg := Default()
		cfg.Graph.Endpoint = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("ZeroCacheCapacity", func(t *testing.T) {
		cfg := Default()
		cfg.Cache.MemoryCapacity = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("NegativeTTL", func(t *testing.T) {
		cfg := Default()
		cfg.Cache.MemoryTTL = -time.Second
		assert.Error(t, cfg.Validate())
	})

	t.Run("JWTProviderWithoutSecret", func(t *testing.T) {
		cfg := Default()
		cfg.Auth.Provider = "jwt"
		assert.Error(t, cfg.Validate())

		cfg.Auth.JWTSecret = "secret"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("UnknownAuthProvider", func(t *testing.T) {
		cfg := Default()
		cfg.Auth.Provider = "ldap"
		assert.Error(t, cfg.Validate())
	})
}

func TestLoaderFileOverlay(t *testing.T) {
	dir := t.TempDir()
	base := `
server:
  port: 9100
cache:
  memory_capacity: 250
  memory_ttl: 120s
graph:
  endpoint: http://graphrag:8010
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0o644))

	cfg, err := NewLoader(dir, Production).Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Cache.MemoryCapacity)
	assert.Equal(t, 120*time.Second, cfg.Cache.MemoryTTL)
	assert.Equal(t, "http://graphrag:8010", cfg.Graph.Endpoint)
	// Untouched settings keep their defaults.
	assert.Equal(t, 3, cfg.Graph.MaxRetries)
	assert.Contains(t, cfg.LoadedFrom, filepath.Join(dir, "base.yaml"))
}

func TestLoaderEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	base := "server:\n  port: 9100\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0o644))

	t.Setenv("CE_SERVER_PORT", "9200")
	t.Setenv("CE_GRAPH_ENDPOINT", "http://override:9999")
	t.Setenv("CE_CACHE_MEMORY_TTL", "45s")
	t.Setenv("CE_LOG_LEVEL", "debug")

	cfg, err := NewLoader(dir, Production).Load()
	require.NoError(t, err)

	// Environment variables beat file values.
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "http://override:9999", cfg.Graph.Endpoint)
	assert.Equal(t, 45*time.Second, cfg.Cache.MemoryTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, parseDuration("90s"))
	assert.Equal(t, 600*time.Second, parseDuration("600"))
	assert.Equal(t, time.Duration(0), parseDuration("not-a-duration"))
}

func TestLoaderMissingFilesFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader(t.TempDir(), Production).Load()
	require.NoError(t, err)
	assert.Equal(t, 8015, cfg.Server.Port)
}

func TestLoaderJSONFile(t *testing.T) {
	dir := t.TempDir()
	base := `{"server": {"port": 9300, "read_timeout": "45s"}, "cache": {"active_case_ttl": 7200}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.json"), []byte(base), 0o644))

	cfg, err := NewLoader(dir, Production).Load()
	require.NoError(t, err)

	assert.Equal(t, 9300, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	// Bare numbers read as seconds.
	assert.Equal(t, 7200*time.Second, cfg.Cache.ActiveCaseTTL)
}

func TestLoaderRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("cache:\n  memory_ttl: soon\n"), 0o644))

	_, err := NewLoader(dir, Production).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration")
}
