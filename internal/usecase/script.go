package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"webdriver-bridge/internal/apiloader"
	"webdriver-bridge/internal/entity"
	"webdriver-bridge/pkg/apperr"
	"webdriver-bridge/pkg/logg"
	"webdriver-bridge/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	scriptServiceName = "ScriptService"
	scriptTracer      = "usecase.script"
)

var ErrStopped = errors.New("script stopped")

// ScriptService runs script lines, one command per line, through the session API.
type ScriptService struct {
	host   apiloader.Host
	logger *zap.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	stopped chan struct{}
}

type ScriptServiceParams struct {
	fx.In

	Host   apiloader.Host
	Logger *zap.Logger
}

func NewScriptService(params ScriptServiceParams) *ScriptService {
	return &ScriptService{
		host:    params.Host,
		logger:  params.Logger.With(zap.String(logg.Layer, scriptServiceName)),
		tracer:  otel.Tracer(scriptTracer),
		stopped: make(chan struct{}),
	}
}

// Execute queues the command on line. Awaitable sessions wait for the result;
// chain-mode sessions return as soon as the command is queued.
func (s *ScriptService) Execute(ctx context.Context, line string) (resp *entity.Step, err error) {
	const op = "Execute"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Input, line))

	ctx, span := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("script.line", line))
	defer func() {
		span.End(err)
	}()

	name, args, err := ParseLine(line)
	if err != nil {
		return nil, apperr.InvalidReqError(op, "line", err)
	}

	step := &entity.Step{
		ID:        uuid.New(),
		Line:      line,
		Command:   name,
		Args:      args,
		StartedAt: time.Now(),
	}

	logger = logger.With(zap.String(logg.Command, name), zap.String("step_id", step.ID.String()))
	span.SetAttributes(attribute.String("command.name", name))

	call := s.host.API().Call(name, args...)
	if call.Err != nil {
		s.fail(step, call.Err)

		if errors.Is(call.Err, apiloader.ErrUnknownCommand) {
			return step, apperr.NotFoundError(op, call.Err)
		}

		return step, apperr.Wrap(op, apperr.CodeInternal, call.Err, map[string]any{
			apperr.MetaCommand: name,
		})
	}

	if !s.host.IsAsync() {
		step.Status = entity.StepStatusQueued
		logger.Debug("Command queued")

		return step, nil
	}

	value, err := s.await(ctx, call)
	if err != nil {
		s.fail(step, err)
		logger.Debug("Command failed", zap.Error(err))

		return step, err
	}

	step.Status = entity.StepStatusCompleted
	step.Value = value
	step.Duration = time.Since(step.StartedAt)

	logger.Debug("Command completed", zap.Duration("duration", step.Duration))

	return step, nil
}

// Commands lists every bound command, namespaced ones in dotted form.
func (s *ScriptService) Commands() []string {
	return collect(s.host.API(), "")
}

// Stop abandons any wait in progress; commands already queued still run.
func (s *ScriptService) Stop() {
	const op = "Stop"

	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopped:
	default:
		s.logger.Info("Stopping script service", zap.String(logg.Operation, op))
		close(s.stopped)
	}
}

func (s *ScriptService) await(ctx context.Context, call apiloader.Call) (any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()

	go func() {
		select {
		case <-stopped:
			cancel()
		case <-ctx.Done():
		}
	}()

	value, err := call.Await(ctx)
	if err != nil && errors.Is(err, context.Canceled) {
		select {
		case <-stopped:
			return nil, ErrStopped
		default:
		}
	}

	return value, err
}

func (s *ScriptService) fail(step *entity.Step, err error) {
	step.Status = entity.StepStatusFailed
	step.Error = err.Error()
	step.Duration = time.Since(step.StartedAt)
}

func collect(api *apiloader.API, prefix string) []string {
	var names []string

	for _, name := range api.Names() {
		names = append(names, prefix+name)
	}

	for _, ns := range api.Namespaces() {
		names = append(names, collect(api.Namespace(ns), fmt.Sprintf("%s%s.", prefix, ns))...)
	}

	return names
}

// Describe renders a step's outcome for display.
func Describe(step *entity.Step) string {
	switch step.Status {
	case entity.StepStatusFailed:
		return fmt.Sprintf("%s failed: %s", step.Command, step.Error)
	case entity.StepStatusQueued:
		return fmt.Sprintf("%s queued", step.Command)
	default:
		if step.Value == nil {
			return fmt.Sprintf("%s done in %s", step.Command, step.Duration.Round(time.Millisecond))
		}

		return fmt.Sprintf("%s = %v", step.Command, strings.TrimSpace(fmt.Sprint(step.Value)))
	}
}
