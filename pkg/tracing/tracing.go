package tracing

import (
	"context"
	"webdriver-bridge/pkg/apperr"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const AttrErrorCode = "error.code"

// Span pairs an OpenTelemetry span with the logger of the operation it traces.
type Span struct {
	span   trace.Span
	logger *zap.Logger
	name   string
}

func StartSpan(ctx context.Context, tracer trace.Tracer, logger *zap.Logger, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	return ctx, &Span{
		span:   span,
		logger: logger,
		name:   name,
	}
}

// End closes the span. A non-nil err marks it failed and, when err carries an
// apperr code, records that code under error.code.
func (s *Span) End(err error) {
	if err == nil {
		s.span.SetStatus(codes.Ok, "")
		s.span.End()

		return
	}

	code := apperr.CodeOf(err)
	if code != "" {
		s.span.SetAttributes(attribute.String(AttrErrorCode, code))
	}

	s.span.SetStatus(codes.Error, err.Error())
	s.span.RecordError(err)
	s.span.End()

	s.logger.Debug("Span failed",
		zap.String("span", s.name),
		zap.String(AttrErrorCode, code),
		zap.Error(err))
}

func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}
