package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sensaur-hub/internal/config"
)

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hub.log")
	logger, err := NewLogger(&config.LoggingConfig{Level: "info", Format: "json", Output: path, MaxSize: 1})
	require.NoError(t, err)

	logger.Info("hello", zap.String("hub_id", "h1"))
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"hub_id":"h1"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	_, err := NewLogger(&config.LoggingConfig{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestServiceLoggerAPIRequestLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sl := NewServiceLogger(zap.New(core), "api")

	sl.LogAPIRequest("GET", "/health", "test", "127.0.0.1", 200, time.Millisecond)
	sl.LogAPIRequest("GET", "/api/v1/devices/x", "test", "127.0.0.1", 404, time.Millisecond)
	sl.LogAPIRequest("POST", "/api/v1/hub/config", "test", "127.0.0.1", 500, time.Millisecond)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "api", entries[0].ContextMap()["service"])
}

func TestDeviceLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dl := NewDeviceLogger(zap.New(core), "/dev/ttyUSB0", "SERIAL")

	dl.LogConnection("open", nil)
	dl.LogConnection("open", errors.New("busy"))
	dl.LogIdentity("a1b2", "1.0")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "/dev/ttyUSB0", entries[0].ContextMap()["port"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "a1b2", entries[2].ContextMap()["device_id"])
}
