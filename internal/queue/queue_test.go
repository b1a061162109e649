package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"webdriver-bridge/internal/entity"
	"webdriver-bridge/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCompletion struct {
	*entity.Deferred
}

func (s stubCompletion) Result() (any, error) {
	return s.Wait(context.Background())
}

func (s stubCompletion) String() string {
	return "StubCommand"
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.events...)
}

func startQueue(t *testing.T) *Queue {
	t.Helper()

	q := New(Params{Logger: zap.NewNop()})
	q.Start(context.Background())
	t.Cleanup(q.Stop)

	return q
}

func waitFor(t *testing.T, d *entity.Deferred) (any, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	value, err := d.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)

	return value, err
}

func TestQueueRunsItemsInSubmissionOrder(t *testing.T) {
	q := startQueue(t)
	rec := &recorder{}

	slow := func(ctx context.Context, _ []apperr.Frame, _ []any) entity.Completion {
		rec.add("A start")
		d := entity.NewDeferred()
		go func() {
			time.Sleep(30 * time.Millisecond)
			rec.add("A end")
			d.Resolve("a")
		}()

		return stubCompletion{d}
	}
	fast := func(ctx context.Context, _ []apperr.Frame, _ []any) entity.Completion {
		rec.add("B start")
		d := entity.NewDeferred()
		d.Resolve("b")

		return stubCompletion{d}
	}

	a := q.Add(entity.WorkItem{CommandName: "a", CommandFn: slow, IsES6Async: true})
	b := q.Add(entity.WorkItem{CommandName: "b", CommandFn: fast, IsES6Async: true})

	value, err := waitFor(t, b.Deferred)
	require.NoError(t, err)
	assert.Equal(t, "b", value)

	value, err = waitFor(t, a.Deferred)
	require.NoError(t, err)
	assert.Equal(t, "a", value)

	assert.Equal(t, []string{"A start", "A end", "B start"}, rec.snapshot())
}

func TestQueueRejectsWithCallSiteStack(t *testing.T) {
	q := startQueue(t)
	cause := errors.New("element not found")
	stack := []apperr.Frame{{Function: "main.TestScript", File: "script.go", Line: 12}}

	node := q.Add(entity.WorkItem{
		CommandName: "click",
		CommandFn: func(context.Context, []apperr.Frame, []any) entity.Completion {
			d := entity.NewDeferred()
			d.Reject(cause)

			return stubCompletion{d}
		},
		OriginalStackTrace: stack,
		IsES6Async:         true,
	})

	_, err := waitFor(t, node.Deferred)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, apperr.CodeCommandFailed, apperr.CodeOf(err))
	assert.Equal(t, stack, apperr.StackOf(err))
}

func TestQueuePassesArgsAndStackToCommand(t *testing.T) {
	q := startQueue(t)
	stack := []apperr.Frame{{Function: "caller"}}

	var gotArgs []any
	var gotStack []apperr.Frame

	node := q.Add(entity.WorkItem{
		CommandName: "url",
		Args:        []any{"https://example.com"},
		CommandFn: func(_ context.Context, st []apperr.Frame, args []any) entity.Completion {
			gotArgs, gotStack = args, st
			d := entity.NewDeferred()
			d.Resolve(nil)

			return stubCompletion{d}
		},
		OriginalStackTrace: stack,
	})

	_, err := waitFor(t, node.Deferred)
	require.NoError(t, err)
	assert.Equal(t, []any{"https://example.com"}, gotArgs)
	assert.Equal(t, stack, gotStack)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", node.ID.String())
}

func TestQueueChainStyleFailureGoesToErrorHandler(t *testing.T) {
	q := startQueue(t)

	handled := make(chan error, 1)
	q.OnError(func(_ *entity.Node, err error) {
		handled <- err
	})

	node := q.Add(entity.WorkItem{
		CommandName: "title",
		CommandFn: func(context.Context, []apperr.Frame, []any) entity.Completion {
			panic("boom")
		},
	})

	select {
	case err := <-handled:
		assert.Contains(t, err.Error(), "panicked")
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not called")
	}

	_, err := waitFor(t, node.Deferred)
	require.Error(t, err)
}

func TestQueueContinuesAfterFailure(t *testing.T) {
	q := startQueue(t)

	q.Add(entity.WorkItem{CommandName: "broken", IsES6Async: true})
	next := q.Add(entity.WorkItem{
		CommandName: "ok",
		CommandFn: func(context.Context, []apperr.Frame, []any) entity.Completion {
			d := entity.NewDeferred()
			d.Resolve(true)

			return stubCompletion{d}
		},
		IsES6Async: true,
	})

	value, err := waitFor(t, next.Deferred)
	require.NoError(t, err)
	assert.Equal(t, true, value)
}

func TestQueueStopRejectsPending(t *testing.T) {
	q := New(Params{Logger: zap.NewNop()})

	node := q.Add(entity.WorkItem{CommandName: "never"})
	q.Stop()

	_, err := waitFor(t, node.Deferred)
	require.ErrorIs(t, err, ErrQueueClosed)

	late := q.Add(entity.WorkItem{CommandName: "late"})
	_, err = waitFor(t, late.Deferred)
	require.ErrorIs(t, err, ErrQueueClosed)
	assert.Zero(t, q.Len())
}

func TestQueueClosesWhenStartContextIsCancelled(t *testing.T) {
	q := New(Params{Logger: zap.NewNop()})
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	t.Cleanup(q.Stop)

	started := make(chan struct{})
	running := q.Add(entity.WorkItem{
		CommandName: "hang",
		CommandFn: func(context.Context, []apperr.Frame, []any) entity.Completion {
			close(started)

			return stubCompletion{entity.NewDeferred()}
		},
		IsES6Async: true,
	})
	waiting := q.Add(entity.WorkItem{CommandName: "next", IsES6Async: true})

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first item never started")
	}

	cancel()

	_, err := waitFor(t, running.Deferred)
	require.ErrorIs(t, err, ErrQueueClosed)

	_, err = waitFor(t, waiting.Deferred)
	require.ErrorIs(t, err, ErrQueueClosed)

	late := q.Add(entity.WorkItem{CommandName: "late", IsES6Async: true})
	_, err = waitFor(t, late.Deferred)
	require.ErrorIs(t, err, ErrQueueClosed)
	assert.Equal(t, apperr.CodeQueueClosed, apperr.CodeOf(err))
	assert.Zero(t, q.Len())
}

func TestScheduleRunsAfterQueuedTasks(t *testing.T) {
	q := startQueue(t)
	rec := &recorder{}
	done := make(chan struct{})

	require.True(t, q.Schedule(func() {
		rec.add("first")
		q.Schedule(func() {
			rec.add("third")
			close(done)
		})
		rec.add("second")
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task did not run")
	}

	assert.Equal(t, []string{"first", "second", "third"}, rec.snapshot())
}
