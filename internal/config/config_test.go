package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDefaults(t *testing.T) {
	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", conf.AppConfig.LogLevel)
	assert.Equal(t, "http://localhost:4444", conf.WebDriverConfig.URL)
	assert.Equal(t, "chrome", conf.SessionConfig.BrowserName)
	assert.True(t, conf.SessionConfig.Async)
	assert.Zero(t, conf.WebDriverConfig.HTTPTimeout())
	assert.Empty(t, conf.MetricsConfig.Addr)
	assert.Equal(t, "none", conf.TracingConfig.Exporter)
	assert.InDelta(t, 1.0, conf.TracingConfig.SampleRatio, 0)
}

func TestGetConfigFromEnv(t *testing.T) {
	t.Setenv("WEBDRIVER_URL", "http://grid:4444/wd/hub")
	t.Setenv("WEBDRIVER_TIMEOUT", "1500")
	t.Setenv("SESSION_ASYNC", "false")
	t.Setenv("WEBDRIVER_SESSION_ID", "abc")
	t.Setenv("TRACE_EXPORTER", "stdout")
	t.Setenv("TRACE_SAMPLE_RATIO", "0.25")

	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://grid:4444/wd/hub", conf.WebDriverConfig.URL)
	assert.Equal(t, 1500*time.Millisecond, conf.WebDriverConfig.HTTPTimeout())
	assert.False(t, conf.SessionConfig.Async)
	assert.Equal(t, "abc", conf.SessionConfig.SessionID)
	assert.Equal(t, "stdout", conf.TracingConfig.Exporter)
	assert.InDelta(t, 0.25, conf.TracingConfig.SampleRatio, 1e-9)
}

func TestGetConfigRejectsMalformedValues(t *testing.T) {
	t.Setenv("WEBDRIVER_TIMEOUT", "soon")

	_, err := GetConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config from env vars")
}
