// Package commands holds the built-in commands every session loads.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"webdriver-bridge/internal/apiloader"
	"webdriver-bridge/internal/element"
	"webdriver-bridge/internal/entity"
	"webdriver-bridge/internal/transport/webdriver"
	"webdriver-bridge/pkg/apperr"

	"github.com/tidwall/gjson"
)

var (
	ErrNotAnElement = errors.New("argument is not a resolved element")
	ErrStaleWindow  = errors.New("current window handle is no longer valid")
)

// All returns the built-in definitions in registration order.
func All() []apiloader.Definition {
	return []apiloader.Definition{
		{Name: "url", Module: apiloader.Factory(func() apiloader.Command { return &URL{} })},
		{Name: "title", Module: Title{}},
		{Name: "click", Module: Click{}},
		{Name: "setValue", Module: SetValue{}},
		{Name: "getText", AliasName: "text", Module: GetText{}},
		{Name: "windowHandle", AliasName: "handle", Namespace: []string{"window"}, Module: WindowHandle{}},
		{Name: "findElement", Module: FindElement{}},
		{Name: "pause", Module: Pause},
		{Name: "clickAndPause", Module: ClickAndPause},
	}
}

// URL navigates when given an address and reports the current one otherwise.
type URL struct {
	navigatedTo string
}

func (c *URL) Command(ctx context.Context, inv *apiloader.Instance, args ...any) (any, error) {
	const op = "URL.Command"

	api := inv.API()

	if len(args) == 0 {
		value, err := run(ctx, api, http.MethodGet, "url", nil)
		if err != nil {
			return nil, err
		}

		return gjson.ParseBytes(value).String(), nil
	}

	address, ok := args[0].(string)
	if !ok || address == "" {
		return nil, apperr.InvalidReqError(op, "url", fmt.Errorf("expected a non-empty string, got %T", args[0]))
	}

	if _, err := run(ctx, api, http.MethodPost, "url", map[string]string{"url": address}); err != nil {
		return nil, err
	}
	c.navigatedTo = address

	return address, nil
}

// Complete reports the address navigated to.
func (c *URL) Complete(inv *apiloader.Instance, value any) {
	if c.navigatedTo != "" {
		inv.EmitComplete(c.navigatedTo)

		return
	}

	inv.EmitComplete(value)
}

type Title struct{}

func (Title) Command(ctx context.Context, inv *apiloader.Instance, _ ...any) (any, error) {
	value, err := run(ctx, inv.API(), http.MethodGet, "title", nil)
	if err != nil {
		return nil, err
	}

	return gjson.ParseBytes(value).String(), nil
}

type Click struct{}

func (Click) Command(ctx context.Context, inv *apiloader.Instance, args ...any) (any, error) {
	ref, err := reference("Click.Command", args)
	if err != nil {
		return nil, err
	}

	_, err = run(ctx, inv.API(), http.MethodPost, "element/"+ref.ID+"/click", nil)

	return nil, err
}

type SetValue struct{}

func (SetValue) Command(ctx context.Context, inv *apiloader.Instance, args ...any) (any, error) {
	const op = "SetValue.Command"

	ref, err := reference(op, args)
	if err != nil {
		return nil, err
	}

	if len(args) < 2 {
		return nil, apperr.InvalidReqError(op, "text", errors.New("missing value to type"))
	}

	_, err = run(ctx, inv.API(), http.MethodPost, "element/"+ref.ID+"/value", map[string]string{
		"text": fmt.Sprint(args[1]),
	})

	return nil, err
}

type GetText struct{}

func (GetText) Command(ctx context.Context, inv *apiloader.Instance, args ...any) (any, error) {
	ref, err := reference("GetText.Command", args)
	if err != nil {
		return nil, err
	}

	value, err := run(ctx, inv.API(), http.MethodGet, "element/"+ref.ID+"/text", nil)
	if err != nil {
		return nil, err
	}

	return gjson.ParseBytes(value).String(), nil
}

// WindowHandle reports the handle of the current window. A closed window
// fails with ErrStaleWindow, keeping the protocol error in the chain.
type WindowHandle struct{}

func (WindowHandle) Command(ctx context.Context, inv *apiloader.Instance, _ ...any) (any, error) {
	const op = "WindowHandle.Command"

	api := inv.API()

	value, err := run(ctx, api, http.MethodGet, "window", nil)
	if webdriver.IsInvalidWindowReference(err) {
		return nil, apperr.Wrap(op, apperr.CodeStaleWindow, fmt.Errorf("%w: %w", ErrStaleWindow, err), map[string]any{
			apperr.MetaSessionID: api.SessionID(),
		})
	}
	if err != nil {
		return nil, err
	}

	return gjson.ParseBytes(value).String(), nil
}

// FindElement returns the reference its locator argument resolved to.
type FindElement struct{}

func (FindElement) Command(_ context.Context, _ *apiloader.Instance, args ...any) (any, error) {
	ref, err := reference("FindElement.Command", args)
	if err != nil {
		return nil, err
	}

	return ref, nil
}

// Pause waits for the given number of milliseconds.
var Pause = apiloader.LegacyCommand{
	Command: func(_ *apiloader.API, args ...any) error {
		time.Sleep(duration(args))

		return nil
	},
}

// ClickAndPause clicks an element, then waits.
var ClickAndPause = apiloader.LegacyCommand{
	Command: func(api *apiloader.API, args ...any) error {
		ref, err := reference("ClickAndPause", args)
		if err != nil {
			return err
		}

		if _, err := run(context.Background(), api, http.MethodPost, "element/"+ref.ID+"/click", nil); err != nil {
			return err
		}

		time.Sleep(duration(args[1:]))

		return nil
	},
}

func run(ctx context.Context, api *apiloader.API, method, path string, data any) (json.RawMessage, error) {
	return api.Protocol().RunProtocolAction(ctx, entity.RequestOptions{
		Method: method,
		Path:   webdriver.SessionPath(api.SessionID(), path),
		Data:   data,
	})
}

func reference(op string, args []any) (element.Reference, error) {
	if len(args) > 0 {
		switch ref := args[0].(type) {
		case element.Reference:
			return ref, nil
		case *element.Reference:
			if ref != nil {
				return *ref, nil
			}
		}
	}

	return element.Reference{}, apperr.InvalidReqError(op, "element", ErrNotAnElement)
}

func duration(args []any) time.Duration {
	if len(args) == 0 {
		return 0
	}

	switch ms := args[0].(type) {
	case int:
		return time.Duration(ms) * time.Millisecond
	case int64:
		return time.Duration(ms) * time.Millisecond
	case float64:
		return time.Duration(ms * float64(time.Millisecond))
	case time.Duration:
		return ms
	default:
		return 0
	}
}
