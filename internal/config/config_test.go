package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, 24, cfg.Auth.ExpirationHours)
	assert.Equal(t, 120, cfg.RateLimit.PerMinute)
	assert.Equal(t, 60, cfg.Sensor.AlertDelaySeconds)
	assert.Equal(t, 30, cfg.Billing.DueDays)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("BILLING_DUE_DAYS", "14")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 14, cfg.Billing.DueDays)
}

func TestLoad_YamlFileWithEnvWinning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
  env: production
auth:
  jwt_secret: yaml-secret
rate_limit:
  per_minute: 50
`), 0o600))
	t.Setenv("SERVER_PORT", "7001")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7001", cfg.Server.Port, "environment beats yaml")
	assert.Equal(t, "production", cfg.Server.Env)
	assert.Equal(t, "yaml-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 50, cfg.RateLimit.PerMinute)
}

func TestLoad_MissingYamlFileErrors(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoad_PortEnvAliasWins(t *testing.T) {
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("PORT", "8081")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8081", cfg.Server.Port)
}

func TestAddr(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
}
