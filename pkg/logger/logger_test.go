package logger

import (
	"os"
	"path/filepath"
	"testing"

	"corp_learning_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelSelection(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, level(&config.Config{Server: config.ServerConfig{Mode: "debug"}}))
	assert.Equal(t, zapcore.InfoLevel, level(&config.Config{Server: config.ServerConfig{Mode: "release"}}))

	cfg := &config.Config{Server: config.ServerConfig{Mode: "debug"}, Log: config.LogConfig{Level: "warn"}}
	assert.Equal(t, zapcore.WarnLevel, level(cfg))

	cfg.Log.Level = "shouting"
	assert.Equal(t, zapcore.DebugLevel, level(cfg))
}

func TestInitLoggerWritesJSONFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	file := filepath.Join(t.TempDir(), "app.log")
	InitLogger(&config.Config{
		Server: config.ServerConfig{Mode: "release"},
		Log:    config.LogConfig{File: file, MaxSizeMB: 1},
	})
	Log.Debug("hidden")
	Log.Info("Attempt finalized", zap.String("attemptId", "attempt-9"))
	_ = Log.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Attempt finalized"`)
	assert.Contains(t, string(data), `"attemptId":"attempt-9"`)
	assert.Contains(t, string(data), `"service":"corp-learning"`)
	assert.NotContains(t, string(data), "hidden")
}
