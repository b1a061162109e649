package entity

import (
	"context"
	"time"
	"webdriver-bridge/pkg/apperr"

	"github.com/google/uuid"
)

// RequestOptions describes one protocol action against the remote end.
type RequestOptions struct {
	Method  string
	Path    string
	Data    any
	Headers map[string]string
}

// Completion is the single-fire outcome signal of a running command instance.
type Completion interface {
	Done() <-chan struct{}
	Result() (any, error)
	String() string
}

// CommandFunc runs one queued invocation and returns the instance executing it.
type CommandFunc func(ctx context.Context, stackTrace []apperr.Frame, args []any) Completion

type WorkItem struct {
	ID                 uuid.UUID
	CommandName        string
	CommandFn          CommandFunc
	Args               []any
	OriginalStackTrace []apperr.Frame
	Namespace          []string
	Deferred           *Deferred
	IsES6Async         bool
}

// Node is the queue's handle for a submitted work item.
type Node struct {
	ID       uuid.UUID
	Item     WorkItem
	Deferred *Deferred
}

type CommandState string

const (
	CommandStatePending   CommandState = "pending"
	CommandStateCompleted CommandState = "completed"
	CommandStateErrored   CommandState = "errored"
)

// Step is one script line run through the session API.
type Step struct {
	ID        uuid.UUID
	Line      string
	Command   string
	Args      []any
	Status    StepStatus
	Value     any
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

type StepStatus string

const (
	StepStatusQueued    StepStatus = "queued"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)
