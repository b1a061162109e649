package webdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"webdriver-bridge/internal/config"
	"webdriver-bridge/internal/entity"
	"webdriver-bridge/internal/metrics"
	"webdriver-bridge/pkg/logg"
	"webdriver-bridge/pkg/tracing"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	protocolName   = "WebdriverProtocol"
	protocolTracer = "transport.webdriver"
	contentType    = "application/json; charset=utf-8"
)

type Protocol struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	tracer     trace.Tracer
	metrics    *metrics.Metrics
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func NewProtocol(params Params) *Protocol {
	return &Protocol{
		baseURL: strings.TrimRight(params.Config.WebDriverConfig.URL, "/"),
		httpClient: &http.Client{
			Timeout: params.Config.WebDriverConfig.HTTPTimeout(),
		},
		logger:  params.Logger.With(zap.String(logg.Layer, protocolName)),
		tracer:  otel.Tracer(protocolTracer),
		metrics: params.Metrics,
	}
}

// SessionPath builds the endpoint path of a session-scoped command.
func SessionPath(sessionID string, parts ...string) string {
	segments := make([]string, 0, len(parts)+2)
	segments = append(segments, "session", url.PathEscape(sessionID))
	segments = append(segments, parts...)

	return "/" + strings.Join(segments, "/")
}

// RunProtocolAction issues exactly one HTTP request and returns the raw
// response value. Every failure is returned as a *ProtocolError.
func (p *Protocol) RunProtocolAction(ctx context.Context, opts entity.RequestOptions) (value json.RawMessage, err error) {
	const op = "RunProtocolAction"

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	logger := p.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Method, method),
		zap.String(logg.Path, opts.Path),
	)

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op,
		attribute.String("http.method", method),
		attribute.String("webdriver.path", opts.Path))

	start := time.Now()
	defer func() {
		step.End(err)
		p.metrics.RecordProtocolRequest(method, err, time.Since(start))
	}()

	req, err := p.newRequest(ctx, method, opts)
	if err != nil {
		return nil, p.fail(logger, nil, 0, err)
	}

	step.AddEvent("sending HTTP request")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, p.fail(logger, nil, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.fail(logger, nil, resp.StatusCode, err)
	}

	step.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest || !IsResultSuccess(body) {
		return nil, p.fail(logger, body, resp.StatusCode, nil)
	}

	logger.Debug("Protocol action succeeded", zap.Int(logg.StatusCode, resp.StatusCode))

	return json.RawMessage(gjson.GetBytes(body, "value").Raw), nil
}

func (p *Protocol) newRequest(ctx context.Context, method string, opts entity.RequestOptions) (*http.Request, error) {
	var body io.Reader

	if opts.Data != nil {
		payload, err := json.Marshal(opts.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal request data: %w", err)
		}

		body = bytes.NewReader(payload)
	} else if method == http.MethodPost {
		body = strings.NewReader("{}")
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+opts.Path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

func (p *Protocol) fail(logger *zap.Logger, body []byte, statusCode int, cause error) *ProtocolError {
	protoErr := HandleProtocolError(body, statusCode)
	protoErr.Err = cause

	fields := []zap.Field{
		zap.Int(logg.StatusCode, statusCode),
		zap.String("message", protoErr.Message),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}

	logger.Debug("Protocol action failed", fields...)

	return protoErr
}
