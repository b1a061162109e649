package tracing

import (
	"context"
	"errors"
	"testing"
	"webdriver-bridge/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()

	return rec, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
}

func TestEndWithoutError(t *testing.T) {
	rec, tp := newRecorder()

	_, span := StartSpan(context.Background(), tp.Tracer("test"), zap.NewNop(), "title",
		attribute.String("command.name", "title"))
	span.AddEvent("sent")
	span.End(nil)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "title", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.String("command.name", "title"))
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "sent", ended[0].Events()[0].Name)
}

func TestEndRecordsErrorCode(t *testing.T) {
	rec, tp := newRecorder()

	_, span := StartSpan(context.Background(), tp.Tracer("test"), zap.NewNop(), "click")
	span.End(apperr.Wrap("Click", apperr.CodeStaleWindow, errors.New("no such window"), nil))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.String(AttrErrorCode, apperr.CodeStaleWindow))
	require.NotEmpty(t, ended[0].Events(), "the error is recorded as an event")
}

func TestEndPlainErrorHasNoCode(t *testing.T) {
	rec, tp := newRecorder()

	_, span := StartSpan(context.Background(), tp.Tracer("test"), zap.NewNop(), "title")
	span.End(errors.New("boom"))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	for _, kv := range ended[0].Attributes() {
		assert.NotEqual(t, attribute.Key(AttrErrorCode), kv.Key)
	}
}
