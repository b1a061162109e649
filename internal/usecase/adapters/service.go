package adapters

import (
	"context"
	"webdriver-bridge/internal/entity"
)

type ScriptService interface {
	Execute(ctx context.Context, line string) (*entity.Step, error)
	Commands() []string
	Stop()
}
