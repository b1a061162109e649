// Package element turns symbolic element locators into element references.
package element

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"webdriver-bridge/internal/entity"
	"webdriver-bridge/internal/ports"
	"webdriver-bridge/internal/transport/webdriver"
	"webdriver-bridge/pkg/apperr"
	"webdriver-bridge/pkg/logg"
	"webdriver-bridge/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	resolverName   = "ElementResolver"
	resolverTracer = "element.resolver"
)

// Locator strategies defined by the W3C WebDriver specification.
const (
	UsingCSS             = "css selector"
	UsingXPath           = "xpath"
	UsingLinkText        = "link text"
	UsingPartialLinkText = "partial link text"
	UsingTagName         = "tag name"
)

var ErrNoElementReference = errors.New("response carried no element reference")

// Locator is a symbolic element selector.
type Locator struct {
	Using string `json:"using"`
	Value string `json:"value"`
}

func CSS(selector string) Locator {
	return Locator{Using: UsingCSS, Value: selector}
}

func XPath(expr string) Locator {
	return Locator{Using: UsingXPath, Value: expr}
}

func LinkText(text string) Locator {
	return Locator{Using: UsingLinkText, Value: text}
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Using, l.Value)
}

// Reference is a resolved element.
type Reference struct {
	ID string
}

// JSON form expected by the remote end when an element is passed as an argument.
func (r Reference) WebElement() map[string]string {
	return map[string]string{webdriver.WebElementID: r.ID}
}

type Resolver struct {
	protocol ports.Protocol
	logger   *zap.Logger
	tracer   trace.Tracer
}

type Params struct {
	fx.In

	Protocol ports.Protocol
	Logger   *zap.Logger
}

func NewResolver(params Params) *Resolver {
	return &Resolver{
		protocol: params.Protocol,
		logger:   params.Logger.With(zap.String(logg.Layer, resolverName)),
		tracer:   otel.Tracer(resolverTracer),
	}
}

// Resolve finds the element a Locator at args[0] points to. Any other first
// argument needs no substitution and yields nil.
func (r *Resolver) Resolve(ctx context.Context, sessionID string, args []any) (any, error) {
	if len(args) == 0 {
		return nil, nil
	}

	var locator Locator

	switch arg := args[0].(type) {
	case Locator:
		locator = arg
	case *Locator:
		if arg == nil {
			return nil, nil
		}
		locator = *arg
	default:
		return nil, nil
	}

	return r.Find(ctx, sessionID, locator)
}

// Find locates a single element.
func (r *Resolver) Find(ctx context.Context, sessionID string, locator Locator) (ref Reference, err error) {
	const op = "Find"
	logger := r.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.SessionID, sessionID),
		zap.Stringer(logg.Selector, locator),
	)

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op,
		attribute.String("locator.using", locator.Using),
		attribute.String("locator.value", locator.Value))
	defer func() {
		step.End(err)
	}()

	if sessionID == "" {
		return Reference{}, apperr.WrapErrorWithReason(op, apperr.CodeSessionNotStarted, "session_not_started")
	}

	value, err := r.protocol.RunProtocolAction(ctx, entity.RequestOptions{
		Method: http.MethodPost,
		Path:   webdriver.SessionPath(sessionID, "element"),
		Data:   locator,
	})
	if err != nil {
		return Reference{}, err
	}

	id := webdriver.GetElementID(value)
	if id == "" {
		return Reference{}, apperr.Wrap(op, apperr.CodeProtocolError, ErrNoElementReference, map[string]any{
			apperr.MetaSelector: locator.String(),
			apperr.MetaStage:    apperr.StageResolution,
		})
	}

	logger.Debug("Element resolved", zap.String("element_id", id))

	return Reference{ID: id}, nil
}
