package queue

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Scheduler runs posted tasks one at a time, in posting order, on a single goroutine.
// Post never blocks, so tasks may post follow-up tasks.
type Scheduler struct {
	mu      sync.Mutex
	tasks   []func()
	wake    chan struct{}
	stopped chan struct{}
	closed  bool
	logger  *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Post appends fn to the task list. It reports false once the scheduler is stopped.
func (s *Scheduler) Post(fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return false
	}
	s.tasks = append(s.tasks, fn)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}

	return true
}

// Run drains tasks until ctx is done or Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.stopped)

	for {
		for {
			task, ok := s.next()
			if !ok {
				break
			}

			s.run(task)
		}

		select {
		case <-ctx.Done():
			s.close()

			return
		case <-s.wake:
			if s.isClosed() {
				return
			}
		}
	}
}

// Stop rejects further posts and makes Run return once the current task finishes.
// Tasks still waiting are dropped.
func (s *Scheduler) Stop() {
	s.close()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stopped is closed after Run returns.
func (s *Scheduler) Stopped() <-chan struct{} {
	return s.stopped
}

func (s *Scheduler) next() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.tasks) == 0 {
		return nil, false
	}

	task := s.tasks[0]
	s.tasks[0] = nil
	s.tasks = s.tasks[1:]

	return task, true
}

func (s *Scheduler) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled task panicked", zap.Any("panic", r))
		}
	}()

	task()
}

func (s *Scheduler) close() {
	s.mu.Lock()
	s.closed = true
	s.tasks = nil
	s.mu.Unlock()
}

func (s *Scheduler) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
