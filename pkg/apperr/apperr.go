package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason    = "reason"
	MetaStage     = "stage"
	MetaField     = "field"
	MetaCommand   = "command"
	MetaNamespace = "namespace"
	MetaSessionID = "session_id"
	MetaWorkItem  = "work_item_id"
	MetaMethod    = "method"
	MetaPath      = "path"
	MetaSelector  = "selector"

	StageRegistration = "registration"
	StageResolution   = "resolution"
	StageExecution    = "execution"
	StageTransport    = "transport"
	StageProtocol     = "protocol"
	StageSession      = "session"
	StageQueue        = "queue"

	CodeInternal          = "internal"
	CodeInvalidArgument   = "invalid_argument"
	CodeNotFound          = "not_found"
	CodeUnavailable       = "unavailable"
	CodeMissingInterface  = "missing_interface"
	CodeDuplicateCommand  = "duplicate_command"
	CodeSelectorFailed    = "selector_failed"
	CodeCommandFailed     = "command_failed"
	CodeProtocolError     = "protocol_error"
	CodeSessionNotStarted = "session_not_started"
	CodeQueueClosed       = "queue_closed"
	CodeStaleWindow       = "stale_window"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
	Stack    []Frame
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithStack attaches the call site the failing operation was requested from.
func (e *Error) WithStack(stack []Frame) *Error {
	e.Stack = stack

	return e
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	return wrap(op, code, err, metadata)
}

func wrap(op, code string, err error, metadata map[string]any) *Error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

// WrapWithStack is Wrap for failures that must point back at the caller's original call site.
func WrapWithStack(op, code string, err error, stack []Frame, metadata map[string]any) error {
	return wrap(op, code, err, metadata).WithStack(stack)
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// CodeOf returns the code of the outermost *Error in the chain, or "".
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return ""
}

// StackOf returns the first captured call-site stack found in the chain.
func StackOf(err error) []Frame {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return nil
		}

		if len(appErr.Stack) > 0 {
			return appErr.Stack
		}

		err = appErr.Err
	}

	return nil
}
