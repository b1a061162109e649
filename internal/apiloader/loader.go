package apiloader

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"webdriver-bridge/internal/entity"
	"webdriver-bridge/pkg/apperr"
	"webdriver-bridge/pkg/logg"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrDuplicateCommand = errors.New("command name is reserved or already defined")

// Reserved names can never be bound as commands.
var Reserved = map[string]struct{}{
	"sessionId":    {},
	"capabilities": {},
	"globals":      {},
	"options":      {},
	"launchUrl":    {},
	"launch_url":   {},
	"currentTest":  {},
	"assert":       {},
	"expect":       {},
	"verify":       {},
	"page":         {},
}

var pkgPath = reflect.TypeOf(CommandLoader{}).PkgPath()

// Definition is a named command as registered. It is not modified once loaded.
type Definition struct {
	Name      string
	AliasName string
	Namespace []string
	Module    any
}

// CommandLoader turns one Definition into a method on the session API.
type CommandLoader struct {
	host      Host
	def       Definition
	logger    *zap.Logger
	adapted   *adapted
	commandFn entity.CommandFunc
	namespace []string
}

func NewCommandLoader(host Host, def Definition, logger *zap.Logger) *CommandLoader {
	return &CommandLoader{
		host:   host,
		def:    def,
		logger: logger.With(zap.String(logg.Command, def.Name)),
	}
}

func (l *CommandLoader) CommandName() string {
	return l.def.Name
}

// CommandFn is the invocation closure built by CreateWrapper, nil for inert definitions.
func (l *CommandLoader) CommandFn() entity.CommandFunc {
	return l.commandFn
}

// CreateWrapper classifies the module and builds the invocation closure.
// A definition without a module stays inert.
func (l *CommandLoader) CreateWrapper() (*CommandLoader, error) {
	const op = "CreateWrapper"

	if l.def.Module == nil {
		return l, nil
	}

	if l.def.Name == "" {
		return l, apperr.InvalidReqError(op, "name", errors.New("command name cannot be empty"))
	}

	a, err := adapt(l.def.Module)
	if err != nil {
		return l, apperr.Wrap(op, apperr.CodeMissingInterface, fmt.Errorf("%w: %s", err, l.def.Name), map[string]any{
			apperr.MetaCommand: l.def.Name,
			apperr.MetaStage:   apperr.StageRegistration,
			"module_type":      fmt.Sprintf("%T", l.def.Module),
		})
	}

	l.adapted = a
	l.commandFn = l.invoke

	return l, nil
}

func (l *CommandLoader) invoke(ctx context.Context, stackTrace []apperr.Frame, args []any) entity.Completion {
	opts := InstanceOptions{
		StackTrace:  stackTrace,
		CommandName: l.def.Name,
	}

	inv, err := l.adapted.instance(l.host, opts)
	if err != nil {
		inv = newInstance(l.host, opts)
		inv.EmitError(err)

		return inv
	}

	go l.run(ctx, inv, append([]any(nil), args...))

	return inv
}

func (l *CommandLoader) run(ctx context.Context, inv *Instance, args []any) {
	const op = "run"

	defer func() {
		if r := recover(); r != nil {
			inv.EmitError(fmt.Errorf("%s panicked: %v", inv, r))
		}
	}()

	resolved, err := l.resolveElementSelector(ctx, args)
	if err != nil {
		inv.EmitError(apperr.Wrap(op, apperr.CodeSelectorFailed, err, map[string]any{
			apperr.MetaCommand: l.def.Name,
			apperr.MetaStage:   apperr.StageResolution,
		}))

		return
	}

	if resolved != nil {
		args[0] = resolved
	}

	if _, err := inv.Command(ctx, args...); err != nil {
		l.logger.Debug("Command returned error", zap.Stringer("instance", inv), zap.Error(err))
	}
}

func (l *CommandLoader) resolveElementSelector(ctx context.Context, args []any) (any, error) {
	resolver := l.host.Resolver()
	if resolver == nil || len(args) == 0 {
		return nil, nil
	}

	return resolver.Resolve(ctx, l.host.SessionID(), args)
}

// Define binds the command, and its alias, on the API under parent plus the
// definition's own namespace. The namespace is fixed here for every invocation.
func (l *CommandLoader) Define(parent ...string) error {
	const op = "Define"

	if l.commandFn == nil {
		return nil
	}

	l.namespace = append(append([]string(nil), parent...), l.def.Namespace...)
	target := l.host.API().Namespace(l.namespace...)

	names := []string{l.def.Name}
	if l.def.AliasName != "" {
		names = append(names, l.def.AliasName)
	}

	for i, name := range names {
		if err := l.validateMethod(target, name, names[:i]); err != nil {
			return apperr.Wrap(op, apperr.CodeDuplicateCommand, err, map[string]any{
				apperr.MetaCommand:   name,
				apperr.MetaNamespace: strings.Join(l.namespace, "."),
				apperr.MetaStage:     apperr.StageRegistration,
			})
		}
	}

	method := l.bind()
	for _, name := range names {
		target.set(name, method)
	}

	l.logger.Debug("Command defined",
		zap.Strings("names", names),
		zap.String(logg.Namespace, strings.Join(l.namespace, ".")),
		zap.Bool("legacy", l.adapted.style == styleLegacy))

	return nil
}

func (l *CommandLoader) validateMethod(target *API, name string, pending []string) error {
	if _, reserved := Reserved[name]; reserved {
		return fmt.Errorf("%w: %q is reserved", ErrDuplicateCommand, name)
	}

	if target.bound(name) {
		return fmt.Errorf("%w: %q", ErrDuplicateCommand, name)
	}

	for _, other := range pending {
		if other == name {
			return fmt.Errorf("%w: alias %q repeats the command name", ErrDuplicateCommand, name)
		}
	}

	return nil
}

func (l *CommandLoader) bind() Method {
	commandName := l.def.Name
	namespace := l.namespace

	return func(args ...any) Call {
		stackTrace := apperr.TrimPackage(apperr.CaptureStack(0), pkgPath)
		deferred := entity.NewDeferred()
		async := l.host.IsAsync()

		node := l.host.Queue().Add(entity.WorkItem{
			ID:                 uuid.New(),
			CommandName:        commandName,
			CommandFn:          l.commandFn,
			Args:               args,
			OriginalStackTrace: stackTrace,
			Namespace:          namespace,
			Deferred:           deferred,
			IsES6Async:         async,
		})

		if async {
			return Call{Deferred: node.Deferred}
		}

		return Call{API: l.host.API()}
	}
}
