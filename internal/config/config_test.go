package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, JWTConfig{Secret: "s3cret"}, cfg.JWT, "token lifetime is not configurable")
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "https://api.airtable.com/v0", cfg.Airtable.BaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AIRTABLE_CACHE_TTL", "30s")
	t.Setenv("WORKER_ENABLED", "false")
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Airtable.CacheTTL)
	assert.False(t, cfg.Worker.Enabled)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	cfg := LoadTestConfig()
	require.NoError(t, cfg.Validate())

	cfg.JWT.Secret = " "
	cfg.Store.Driver = "sqlite"
	cfg.Airtable.RefreshCron = "every now and then"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "STORE_DRIVER")
	assert.Contains(t, err.Error(), "AIRTABLE_REFRESH_CRON")
}

func TestResolveSecrets(t *testing.T) {
	cfg := LoadTestConfig()
	cfg.JWT.Secret = "enc:abc"
	cfg.Airtable.APIKey = "plain"

	require.True(t, cfg.HasEncryptedSecrets())

	err := cfg.ResolveSecrets(func(s string) (string, error) {
		return strings.ToUpper(s), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ABC", cfg.JWT.Secret)
	assert.Equal(t, "plain", cfg.Airtable.APIKey)
	assert.False(t, cfg.HasEncryptedSecrets())

	cfg.Redis.Password = "enc:broken"
	err = cfg.ResolveSecrets(func(string) (string, error) { return "", errors.New("bad key") })
	assert.Error(t, err)
}
