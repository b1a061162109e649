package bootstrap

import (
	"context"
	"webdriver-bridge/internal/apiloader"
	"webdriver-bridge/internal/commands"
	"webdriver-bridge/internal/queue"
	"webdriver-bridge/internal/session"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func asHost(s *session.Session) apiloader.Host {
	return s
}

func runQueue(lc fx.Lifecycle, q *queue.Queue) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			q.Start(context.Background())

			return nil
		},
		OnStop: func(context.Context) error {
			q.Stop()

			return nil
		},
	})
}

func runSession(lc fx.Lifecycle, s *session.Session, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Load(commands.All()...); err != nil {
				logger.Error("Failed to load commands", zap.Error(err))

				return err
			}

			logger.Info("Opening WebDriver session...")

			if err := s.Open(ctx); err != nil {
				logger.Error("Failed to open session", zap.Error(err))

				return err
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := s.Close(ctx); err != nil {
				logger.Error("Failed to close session", zap.Error(err))
			}

			return nil
		},
	})
}
