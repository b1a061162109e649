package entity

import (
	"context"
	"sync"
)

// Deferred is a result handle settled exactly once with a value or an error.
type Deferred struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolve settles the handle with v. It reports false if it was already settled.
func (d *Deferred) Resolve(v any) bool {
	return d.settle(v, nil)
}

// Reject settles the handle with err. It reports false if it was already settled.
func (d *Deferred) Reject(err error) bool {
	return d.settle(nil, err)
}

func (d *Deferred) settle(v any, err error) bool {
	settled := false

	d.once.Do(func() {
		d.value = v
		d.err = err
		settled = true
		close(d.done)
	})

	return settled
}

func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Settled reports whether Resolve or Reject has happened.
func (d *Deferred) Settled() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the handle settles or ctx is done.
func (d *Deferred) Wait(ctx context.Context) (any, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
