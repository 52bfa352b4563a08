package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_AppliesEnvOverrides(t *testing.T) {
	t.Setenv("AGENTDRAIN_HTTP_ADDR", ":9090")
	t.Setenv("AGENTDRAIN_DRAIN_DEADLINE", "45s")

	cfg := Default()

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 45*time.Second, cfg.DrainDeadline)
}

func TestLoad_ExpandsEnvVarsInFile(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6379")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "drain_deadline: 10s\nstore_backend: redis\nredis:\n  addr: ${TEST_REDIS_ADDR}\n  db: ${TEST_REDIS_DB:-2}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.DrainDeadline)
	assert.Equal(t, StoreBackendRedis, cfg.StoreBackend)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoad_EnvOverrideWinsOverFileValue(t *testing.T) {
	t.Setenv("AGENTDRAIN_HTTP_ADDR", ":7000")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":8080\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTPAddr)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestClone_IsIndependentCopy(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.HTTPAddr = ":1111"

	assert.NotEqual(t, cfg.HTTPAddr, clone.HTTPAddr)
}
