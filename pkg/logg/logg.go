// Package logg holds the zap field names shared by every layer.
package logg

const (
	Layer      = "layer"
	Operation  = "operation"
	Command    = "command"
	Namespace  = "namespace"
	WorkItemID = "work_item_id"
	SessionID  = "session_id"
	Method     = "method"
	Path       = "path"
	StatusCode = "status_code"
	Selector   = "selector"
	Input      = "input"
)
