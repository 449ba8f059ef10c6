package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	viper.Reset()
	t.Cleanup(viper.Reset)
	return dir
}

func TestLoadConfigAppliesUnitsAndDefaults(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	dir := writeConfig(t, `
server:
  port: "9090"
jwt:
  secret: test-secret
  expire_hours: 2
redis:
  cache_ttl_seconds: 30
storage:
  type: local
  local_path: `+uploads+`
mock:
  latency_ms: 200
  jitter_ms: 50
  failure_rate: 0.25
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 200*time.Millisecond, cfg.Mock.Latency())
	assert.Equal(t, 50*time.Millisecond, cfg.Mock.Jitter())
	assert.Equal(t, 0.25, cfg.Mock.FailureRate)
	assert.Equal(t, 1, cfg.Assessment.TickSeconds)
	assert.True(t, cfg.Auth.DemoLogin)
	assert.Equal(t, "@every 5m", cfg.Scheduler.SessionSweepCron)

	assert.DirExists(t, uploads)
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: oracle
storage:
  type: minio
`)

	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestLoadConfigMissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Mode: "debug"},
			Database:   DatabaseConfig{Driver: "sqlite"},
			JWT:        JWTConfig{Secret: "short"},
			Assessment: AssessmentConfig{TickSeconds: 1},
		}
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Server.Mode = "release"
	assert.ErrorContains(t, cfg.Validate(), "JWT secret is too short")

	cfg = valid()
	cfg.Mock.FailureRate = 1.5
	assert.ErrorContains(t, cfg.Validate(), "failure_rate")

	cfg = valid()
	cfg.Assessment.TickSeconds = 0
	assert.ErrorContains(t, cfg.Validate(), "tick_seconds")
}
