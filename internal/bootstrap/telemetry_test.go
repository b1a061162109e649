package bootstrap

import (
	"context"
	"testing"
	"webdriver-bridge/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNewSpanExporter(t *testing.T) {
	exporter, err := newSpanExporter("none")
	require.NoError(t, err)
	assert.Nil(t, exporter)

	exporter, err = newSpanExporter("stdout")
	require.NoError(t, err)
	require.NotNil(t, exporter)
	require.NoError(t, exporter.Shutdown(context.Background()))

	_, err = newSpanExporter("jaeger")
	require.ErrorContains(t, err, `unknown trace exporter "jaeger"`)
}

func TestNewTraceProviderSamplesByRatio(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := &config.Config{
		WebDriverConfig: &config.WebDriverConfig{URL: "http://localhost:4444"},
		TracingConfig:   &config.TracingConfig{Exporter: "none", SampleRatio: 0},
	}

	tp, err := newTraceProvider(lc, cfg, zap.NewNop())
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "never sampled")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()

	lc.RequireStart().RequireStop()
}

func TestNewTraceProviderRejectsUnknownExporter(t *testing.T) {
	cfg := &config.Config{
		WebDriverConfig: &config.WebDriverConfig{URL: "http://localhost:4444"},
		TracingConfig:   &config.TracingConfig{Exporter: "zipkin", SampleRatio: 1},
	}

	_, err := newTraceProvider(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	require.Error(t, err)
}
