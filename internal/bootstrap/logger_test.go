package bootstrap

import (
	"testing"
	"webdriver-bridge/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(&config.Config{AppConfig: &config.AppConfig{LogLevel: "warn"}})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := newLogger(&config.Config{AppConfig: &config.AppConfig{LogLevel: "loud"}})
	require.Error(t, err)
}
