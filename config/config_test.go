package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "valey")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "valey")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 10, cfg.DB.MaxSize)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 168*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Storage.Enabled())
}

func TestLoadConfigCollectsAllErrors(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")

	_, err := LoadConfig()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "DB_USER")
	assert.Contains(t, msg, "DB_PASSWORD")
	assert.Contains(t, msg, "DB_NAME")
	assert.Contains(t, msg, "JWT_SECRET")
	assert.Contains(t, msg, "DB_PORT")
	assert.GreaterOrEqual(t, strings.Count(msg, "\n- "), 4, "every problem is reported at once")
}

func TestLoadConfigClampsPoolSize(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_POOL_SIZE", "1000")

	_, err := LoadConfig()
	// Clamping is reported as a configuration error rather than silently
	// rewriting the operator's value.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_POOL_SIZE")
}

func TestLoadConfigOptionalStores(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("STORAGE_ENDPOINT", "http://127.0.0.1:9000")
	t.Setenv("STORAGE_BUCKET", "avatars")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Storage.Enabled())
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
}

func TestLoadConfigDurationOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_ACCESS_TOKEN_DURATION", "30m")
	t.Setenv("JWT_REFRESH_TOKEN_DURATION", "24h")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTokenDuration)
}
