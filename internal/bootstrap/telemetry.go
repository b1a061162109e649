package bootstrap

import (
	"context"
	"fmt"
	"os"
	"webdriver-bridge/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	serviceName = "webdriver-bridge"

	exporterNone   = "none"
	exporterStdout = "stdout"
)

func newTraceProvider(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*sdktrace.TracerProvider, error) {
	tracing := cfg.TracingConfig
	if tracing == nil {
		tracing = &config.TracingConfig{Exporter: exporterNone, SampleRatio: 1}
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			attribute.String("webdriver.url", cfg.WebDriverConfig.URL),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tracing.SampleRatio))),
	}

	exporter, err := newSpanExporter(tracing.Exporter)
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	logger.Debug("Tracer provider installed",
		zap.String("exporter", tracing.Exporter),
		zap.Float64("sample_ratio", tracing.SampleRatio))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	return tp, nil
}

// newSpanExporter returns nil for "none"; spans are still created but never exported.
func newSpanExporter(name string) (sdktrace.SpanExporter, error) {
	switch name {
	case "", exporterNone:
		return nil, nil
	case exporterStdout:
		// stdout belongs to the console
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(os.Stderr),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}

		return exporter, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", name)
	}
}
