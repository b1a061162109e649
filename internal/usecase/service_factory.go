package usecase

import (
	"webdriver-bridge/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateScriptService() adapters.ScriptService {
	return NewScriptService(ScriptServiceParams{
		Host:   f.deps.Host,
		Logger: f.deps.Logger,
	})
}
