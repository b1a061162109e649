package apiloader

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"webdriver-bridge/internal/entity"
	"webdriver-bridge/internal/ports"
	"webdriver-bridge/pkg/apperr"
)

var (
	ErrMissingInterface = errors.New("command must implement method .command()")
	ErrNotScheduled     = errors.New("command body could not be scheduled")
)

// Host is the automation session a command runs against.
type Host interface {
	API() *API
	Queue() ports.Queue
	IsAsync() bool
	SessionID() string
	Resolver() ports.SelectorResolver
}

// Command is the modern authoring style. The returned value completes the
// instance through Complete; a returned error fails it.
//
// The queue runs one command at a time, so a call made through inv.API()
// from inside Command is queued behind the running command. Awaiting it
// there never returns before ctx is done; return its Deferred instead, or
// talk to the remote end through API.Protocol directly.
type Command interface {
	Command(ctx context.Context, inv *Instance, args ...any) (any, error)
}

// Completer lets a modern command take over completion. Its Complete must
// eventually call inv.EmitComplete or inv.EmitError.
type Completer interface {
	Complete(inv *Instance, value any)
}

// Factory builds a fresh modern command for every invocation.
type Factory func() Command

// LegacyCommand is the plain-object authoring style: a bare function run with
// the session API as its receiver. It never returns a value to the caller.
type LegacyCommand struct {
	Command func(api *API, args ...any) error
}

type style int

const (
	styleModern style = iota
	styleLegacy
)

// adapted is a command module classified once, at registration.
type adapted struct {
	style      style
	legacy     func(api *API, args ...any) error
	newCommand func() Command
}

// IsLegacyCommandStyle reports whether module is a plain object with a callable command.
func IsLegacyCommandStyle(module any) bool {
	switch m := module.(type) {
	case LegacyCommand:
		return m.Command != nil
	case *LegacyCommand:
		return m != nil && m.Command != nil
	default:
		return false
	}
}

func adapt(module any) (*adapted, error) {
	if IsLegacyCommandStyle(module) {
		var fn func(api *API, args ...any) error
		if m, ok := module.(*LegacyCommand); ok {
			fn = m.Command
		} else {
			fn = module.(LegacyCommand).Command
		}

		return &adapted{style: styleLegacy, legacy: fn}, nil
	}

	var newCommand func() Command

	switch m := module.(type) {
	case Factory:
		newCommand = m
	case func() Command:
		newCommand = m
	case Command:
		newCommand = func() Command { return m }
	}

	if newCommand == nil {
		return nil, ErrMissingInterface
	}

	sample := newCommand()
	if isNil(sample) {
		return nil, ErrMissingInterface
	}

	return &adapted{style: styleModern, newCommand: newCommand}, nil
}

type InstanceOptions struct {
	StackTrace  []apperr.Frame
	CommandName string
}

// CreateInstance adapts module and builds one instance of it for host.
func CreateInstance(host Host, module any, opts InstanceOptions) (*Instance, error) {
	a, err := adapt(module)
	if err != nil {
		return nil, err
	}

	return a.instance(host, opts)
}

func (a *adapted) instance(host Host, opts InstanceOptions) (*Instance, error) {
	inv := newInstance(host, opts)
	inv.NeedsPromise = a.style == styleLegacy

	if a.style == styleLegacy {
		inv.legacy = a.legacy

		return inv, nil
	}

	cmd := a.newCommand()
	if isNil(cmd) {
		return nil, ErrMissingInterface
	}
	inv.command = cmd

	return inv, nil
}

// Instance is one in-flight execution of a command. It settles exactly once,
// either completed with a value or errored.
type Instance struct {
	StackTrace   []apperr.Frame
	NeedsPromise bool

	name    string
	host    Host
	command Command
	legacy  func(api *API, args ...any) error

	once  sync.Once
	done  chan struct{}
	mu    sync.Mutex
	state entity.CommandState
	value any
	err   error
}

func newInstance(host Host, opts InstanceOptions) *Instance {
	return &Instance{
		StackTrace: opts.StackTrace,
		name:       opts.CommandName,
		host:       host,
		done:       make(chan struct{}),
		state:      entity.CommandStatePending,
	}
}

// API returns the session surface. Calls made through it from a running
// command start only after that command settles.
func (i *Instance) API() *API {
	return i.host.API()
}

// Client returns the raw session.
//
// Deprecated: use API.
func (i *Instance) Client() Host {
	return i.host
}

func (i *Instance) Name() string {
	return i.name
}

// String renders every instance the same way regardless of authoring style.
func (i *Instance) String() string {
	return fmt.Sprintf("CommandInstance [name=%s]", i.name)
}

// Command runs the command body with args. Legacy bodies are scheduled to run
// after the current call stack and the API is returned for chaining; modern
// bodies run in place and their value is returned.
func (i *Instance) Command(ctx context.Context, args ...any) (result any, err error) {
	if i.legacy != nil {
		api := i.host.API()

		scheduled := i.host.Queue().Schedule(func() {
			i.runLegacy(api, args)
		})
		if !scheduled {
			i.EmitError(ErrNotScheduled)

			return nil, ErrNotScheduled
		}

		return api, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", i, r)
			i.EmitError(err)
		}
	}()

	value, err := i.command.Command(ctx, i, args...)
	if err != nil {
		i.EmitError(err)

		return nil, err
	}

	i.Complete(value)

	return value, nil
}

func (i *Instance) runLegacy(api *API, args []any) {
	defer func() {
		if r := recover(); r != nil {
			i.EmitError(fmt.Errorf("%s panicked: %v", i, r))
		}
	}()

	if err := i.legacy(api, args...); err != nil {
		i.EmitError(err)

		return
	}

	i.Complete(nil)
}

// Complete is the completion hook. It defers to the command's own Completer
// when there is one, otherwise it emits completion with value.
func (i *Instance) Complete(value any) {
	if completer, ok := i.command.(Completer); ok {
		completer.Complete(i, value)

		return
	}

	i.EmitComplete(value)
}

// EmitComplete settles the instance as completed. It reports false if it had already settled.
func (i *Instance) EmitComplete(value any) bool {
	return i.settle(entity.CommandStateCompleted, value, nil)
}

// EmitError settles the instance as errored. It reports false if it had already settled.
func (i *Instance) EmitError(err error) bool {
	if err == nil {
		err = errors.New("command failed without an error")
	}

	return i.settle(entity.CommandStateErrored, nil, err)
}

func (i *Instance) settle(state entity.CommandState, value any, err error) bool {
	settled := false

	i.once.Do(func() {
		i.mu.Lock()
		i.state = state
		i.value = value
		i.err = err
		i.mu.Unlock()

		settled = true
		close(i.done)
	})

	return settled
}

func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// Result returns the settled value or error; only meaningful once Done is closed.
func (i *Instance) Result() (any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.value, i.err
}

func (i *Instance) State() entity.CommandState {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.state
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
