package usecase

import (
	"webdriver-bridge/internal/apiloader"
	"webdriver-bridge/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Script adapters.ScriptService
}

type Params struct {
	fx.In

	Logger *zap.Logger
	Host   apiloader.Host
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Script: factory.CreateScriptService(),
	}
}
