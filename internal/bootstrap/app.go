package bootstrap

import (
	"time"
	"webdriver-bridge/internal/config"
	"webdriver-bridge/internal/console"
	"webdriver-bridge/internal/element"
	"webdriver-bridge/internal/ports"
	"webdriver-bridge/internal/queue"
	"webdriver-bridge/internal/session"
	"webdriver-bridge/internal/transport/webdriver"
	"webdriver-bridge/internal/usecase"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

func NewApp() *fx.App {
	return fx.New(options())
}

func options() fx.Option {
	return fx.Options(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,
			newRegistry,
			newMetrics,

			fx.Annotate(webdriver.NewProtocol, fx.As(new(ports.Protocol))),
			fx.Annotate(element.NewResolver, fx.As(new(ports.SelectorResolver))),
			queue.New,
			session.New,
			asHost,

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.Invoke(
			func(*sdktrace.TracerProvider) {},
			runMetricsServer,
			runQueue,
			runSession,
			runConsole,
		),

		fx.WithLogger(newEventLogger),
		fx.StartTimeout(10*time.Second),
	)
}
