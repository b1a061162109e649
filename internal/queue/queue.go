// Package queue executes submitted work items strictly one at a time, in
// submission order. An item starts only after the previous item's command
// instance has completed or failed.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"webdriver-bridge/internal/entity"
	"webdriver-bridge/internal/metrics"
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
	queueName   = "CommandQueue"
	queueTracer = "queue"
)

var ErrQueueClosed = errors.New("execution queue closed")

// ErrorHandler receives failures of chain-style work items, whose callers
// hold no deferred to observe them through.
type ErrorHandler func(node *entity.Node, err error)

type Queue struct {
	scheduler *Scheduler
	logger    *zap.Logger
	tracer    trace.Tracer
	metrics   *metrics.Metrics

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	pending []*entity.Node
	current *entity.Node
	closed  bool
	onError ErrorHandler
}

type Params struct {
	fx.In

	Logger  *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func New(params Params) *Queue {
	logger := params.Logger.With(zap.String(logg.Layer, queueName))

	q := &Queue{
		scheduler: NewScheduler(logger),
		logger:    logger,
		tracer:    otel.Tracer(queueTracer),
		metrics:   params.Metrics,
		ctx:       context.Background(),
	}
	q.onError = q.logError

	return q
}

// Start runs the scheduler until ctx is done or Stop is called. Either way
// the queue ends up closed through Stop.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	q.ctx, q.cancel = context.WithCancel(ctx)
	runCtx := q.ctx
	q.mu.Unlock()

	go q.scheduler.Run(runCtx)

	go func() {
		<-runCtx.Done()
		q.Stop()
	}()
}

// Stop halts execution and rejects every item that has not settled.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()

		return
	}

	q.closed = true
	unsettled := q.pending
	if q.current != nil {
		unsettled = append([]*entity.Node{q.current}, unsettled...)
	}
	q.pending = nil
	q.current = nil
	cancel := q.cancel
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.scheduler.Stop()

	for _, node := range unsettled {
		node.Deferred.Reject(closedError("Stop", node))
	}

	q.metrics.SetQueueDepth(0)
}

func closedError(op string, node *entity.Node) error {
	return apperr.Wrap(op, apperr.CodeQueueClosed, ErrQueueClosed, map[string]any{
		apperr.MetaCommand:  node.Item.CommandName,
		apperr.MetaWorkItem: node.ID.String(),
	})
}

// OnError replaces the handler for chain-style failures.
func (q *Queue) OnError(handler ErrorHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.onError = handler
}

// Add appends item to the queue and returns its node. The node's deferred
// settles once the item's command instance completes or fails.
func (q *Queue) Add(item entity.WorkItem) *entity.Node {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Deferred == nil {
		item.Deferred = entity.NewDeferred()
	}

	node := &entity.Node{
		ID:       item.ID,
		Item:     item,
		Deferred: item.Deferred,
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		node.Deferred.Reject(closedError("Add", node))

		return node
	}
	q.pending = append(q.pending, node)
	depth := len(q.pending)
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	q.logger.Debug("Work item queued",
		zap.String(logg.Command, item.CommandName),
		zap.String(logg.WorkItemID, node.ID.String()))

	if !q.scheduler.Post(q.advance) {
		// scheduler already gone, the queue must not keep the node
		q.Stop()
	}

	return node
}

// Schedule runs fn on the queue's scheduler after every task already posted.
func (q *Queue) Schedule(fn func()) bool {
	return q.scheduler.Post(fn)
}

// Len returns the number of items not yet started.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

func (q *Queue) advance() {
	q.mu.Lock()
	if q.closed || q.current != nil || len(q.pending) == 0 {
		q.mu.Unlock()

		return
	}

	node := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.current = node
	depth := len(q.pending)
	ctx := q.ctx
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	q.execute(ctx, node)
}

func (q *Queue) execute(ctx context.Context, node *entity.Node) {
	const op = "execute"
	logger := q.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Command, node.Item.CommandName),
		zap.String(logg.WorkItemID, node.ID.String()),
	)

	ctx, step := tracing.StartSpan(ctx, q.tracer, logger, node.Item.CommandName,
		attribute.String("command.name", node.Item.CommandName),
		attribute.String("work_item.id", node.ID.String()),
		attribute.Bool("command.awaitable", node.Item.IsES6Async))

	start := time.Now()
	completion := q.invoke(ctx, node)

	logger.Debug("Command started", zap.Stringer("instance", completion))

	go func() {
		select {
		case <-completion.Done():
		case <-ctx.Done():
			step.End(ctx.Err())

			return
		}

		q.scheduler.Post(func() {
			_, err := completion.Result()
			step.End(err)
			q.metrics.RecordCommand(node.Item.CommandName, err, time.Since(start))
			q.settle(node, completion)
		})
	}()
}

func (q *Queue) invoke(ctx context.Context, node *entity.Node) (completion entity.Completion) {
	if node.Item.CommandFn == nil {
		return failed(node.Item.CommandName, fmt.Errorf("command %q has no executable function", node.Item.CommandName))
	}

	defer func() {
		if r := recover(); r != nil {
			completion = failed(node.Item.CommandName, fmt.Errorf("command %q panicked: %v", node.Item.CommandName, r))
		}
	}()

	return node.Item.CommandFn(ctx, node.Item.OriginalStackTrace, node.Item.Args)
}

func (q *Queue) settle(node *entity.Node, completion entity.Completion) {
	const op = "settle"

	value, err := completion.Result()
	if err != nil {
		err = apperr.WrapWithStack(op, apperr.CodeCommandFailed, err, node.Item.OriginalStackTrace, map[string]any{
			apperr.MetaCommand:   node.Item.CommandName,
			apperr.MetaNamespace: node.Item.Namespace,
			apperr.MetaWorkItem:  node.ID.String(),
			apperr.MetaStage:     apperr.StageExecution,
		})

		node.Deferred.Reject(err)

		if !node.Item.IsES6Async {
			q.mu.Lock()
			handler := q.onError
			q.mu.Unlock()

			if handler != nil {
				handler(node, err)
			}
		}
	} else {
		node.Deferred.Resolve(value)
	}

	q.mu.Lock()
	if q.current == node {
		q.current = nil
	}
	q.mu.Unlock()

	q.advance()
}

func (q *Queue) logError(node *entity.Node, err error) {
	q.logger.Error("Command failed",
		zap.String(logg.Command, node.Item.CommandName),
		zap.String(logg.WorkItemID, node.ID.String()),
		zap.Error(err),
		zap.String("stack", apperr.FormatStack(node.Item.OriginalStackTrace)))
}

type failedCompletion struct {
	name string
	err  error
	done chan struct{}
}

func failed(name string, err error) *failedCompletion {
	done := make(chan struct{})
	close(done)

	return &failedCompletion{name: name, err: err, done: done}
}

func (f *failedCompletion) Done() <-chan struct{} {
	return f.done
}

func (f *failedCompletion) Result() (any, error) {
	return nil, f.err
}

func (f *failedCompletion) String() string {
	return fmt.Sprintf("FailedCommand [name=%s]", f.name)
}
