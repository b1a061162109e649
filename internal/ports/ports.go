package ports

import (
	"context"
	"encoding/json"
	"webdriver-bridge/internal/entity"
)

type Protocol interface {
	RunProtocolAction(ctx context.Context, opts entity.RequestOptions) (json.RawMessage, error)
}

type Queue interface {
	Add(item entity.WorkItem) *entity.Node
	Schedule(fn func()) bool
}

// SelectorResolver returns the value to substitute at argument zero, or nil
// when no substitution is needed.
type SelectorResolver interface {
	Resolve(ctx context.Context, sessionID string, args []any) (any, error)
}
