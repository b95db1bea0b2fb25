package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.False(t, cfg.StateStorage.Enabled)
	assert.Equal(t, "localhost:6379", cfg.StateStorage.Addr())
	assert.Equal(t, 30*time.Minute, cfg.StateStorage.TTL())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Engine.Headless)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STATE_STORAGE_ENABLED", "true")
	t.Setenv("STATE_STORAGE_VALKEY_HOST", "valkey.internal")
	t.Setenv("STATE_STORAGE_VALKEY_PORT", "7000")
	t.Setenv("STATE_STORAGE_TTL", "60")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.StateStorage.Enabled)
	assert.Equal(t, "valkey.internal:7000", cfg.StateStorage.Addr())
	assert.Equal(t, time.Minute, cfg.StateStorage.TTL())
	assert.Equal(t, "debug", cfg.Logging.Level)
}
