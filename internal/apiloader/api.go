package apiloader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"webdriver-bridge/internal/entity"
	"webdriver-bridge/internal/ports"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotAwaitable   = errors.New("call was queued in chain mode and has no deferred result")
)

// Method is a command bound into the API surface.
type Method func(args ...any) Call

// Call is what a bound method returns. Sessions in awaitable mode fill
// Deferred; chain-mode sessions fill API so calls can be chained.
type Call struct {
	API      *API
	Deferred *entity.Deferred
	Err      error
}

// Await blocks until the queued command settles. Called from inside a
// running command it waits on a call queued behind that command, so it only
// returns once ctx is done.
func (c Call) Await(ctx context.Context) (any, error) {
	if c.Err != nil {
		return nil, c.Err
	}

	if c.Deferred == nil {
		return nil, ErrNotAwaitable
	}

	return c.Deferred.Wait(ctx)
}

// API is the session's public surface: every registered command is reachable
// through it, optionally under a namespace.
type API struct {
	mu         sync.RWMutex
	path       []string
	methods    map[string]Method
	namespaces map[string]*API
	sessionID  func() string
	protocol   ports.Protocol
}

func NewAPI(sessionID func() string, protocol ports.Protocol) *API {
	return &API{
		methods:    make(map[string]Method),
		namespaces: make(map[string]*API),
		sessionID:  sessionID,
		protocol:   protocol,
	}
}

func (a *API) SessionID() string {
	if a.sessionID == nil {
		return ""
	}

	return a.sessionID()
}

func (a *API) Protocol() ports.Protocol {
	return a.protocol
}

// Path is the namespace path of this surface; empty for the root.
func (a *API) Path() []string {
	return append([]string(nil), a.path...)
}

// Call invokes the method bound under name. Dotted names walk namespaces.
func (a *API) Call(name string, args ...any) Call {
	method, ok := a.Method(name)
	if !ok {
		return Call{Err: fmt.Errorf("%w: %s", ErrUnknownCommand, name)}
	}

	return method(args...)
}

// Method looks up a bound method; dotted names walk namespaces.
func (a *API) Method(name string) (Method, bool) {
	parts := strings.Split(name, ".")
	target := a

	for _, part := range parts[:len(parts)-1] {
		target = target.child(part)
		if target == nil {
			return nil, false
		}
	}

	target.mu.RLock()
	defer target.mu.RUnlock()

	method, ok := target.methods[parts[len(parts)-1]]

	return method, ok
}

func (a *API) Has(name string) bool {
	_, ok := a.Method(name)

	return ok
}

// Names lists the methods bound directly on this surface.
func (a *API) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.methods))
	for name := range a.methods {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Namespaces lists the namespaces directly under this surface.
func (a *API) Namespaces() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.namespaces))
	for name := range a.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Namespace returns the surface at path, creating missing levels.
func (a *API) Namespace(path ...string) *API {
	target := a

	for _, part := range path {
		target.mu.Lock()
		next, ok := target.namespaces[part]
		if !ok {
			next = &API{
				path:       append(target.Path(), part),
				methods:    make(map[string]Method),
				namespaces: make(map[string]*API),
				sessionID:  target.sessionID,
				protocol:   target.protocol,
			}
			target.namespaces[part] = next
		}
		target.mu.Unlock()

		target = next
	}

	return target
}

func (a *API) child(name string) *API {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.namespaces[name]
}

func (a *API) bound(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, isMethod := a.methods[name]
	_, isNamespace := a.namespaces[name]

	return isMethod || isNamespace
}

func (a *API) set(name string, method Method) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.methods[name] = method
}
