// Package session ties the command API, the execution queue and the wire
// protocol together into one automation session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"webdriver-bridge/internal/apiloader"
	"webdriver-bridge/internal/config"
	"webdriver-bridge/internal/entity"
	"webdriver-bridge/internal/ports"
	"webdriver-bridge/internal/queue"
	"webdriver-bridge/internal/transport/webdriver"
	"webdriver-bridge/pkg/apperr"
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
	sessionName   = "Session"
	sessionTracer = "session"
)

var ErrNoSessionID = errors.New("new session response carried no session id")

type Session struct {
	api      *apiloader.API
	queue    *queue.Queue
	protocol ports.Protocol
	resolver ports.SelectorResolver
	cfg      *config.SessionConfig
	logger   *zap.Logger
	tracer   trace.Tracer

	mu           sync.RWMutex
	id           string
	capabilities json.RawMessage
	owned        bool
}

type Params struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Protocol ports.Protocol
	Queue    *queue.Queue
	Resolver ports.SelectorResolver `optional:"true"`
}

func New(params Params) *Session {
	s := &Session{
		queue:    params.Queue,
		protocol: params.Protocol,
		resolver: params.Resolver,
		cfg:      params.Config.SessionConfig,
		logger:   params.Logger.With(zap.String(logg.Layer, sessionName)),
		tracer:   otel.Tracer(sessionTracer),
	}
	s.api = apiloader.NewAPI(s.SessionID, params.Protocol)

	return s
}

func (s *Session) API() *apiloader.API {
	return s.api
}

func (s *Session) Queue() ports.Queue {
	return s.queue
}

func (s *Session) IsAsync() bool {
	return s.cfg.Async
}

func (s *Session) Resolver() ports.SelectorResolver {
	return s.resolver
}

func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.id
}

// Capabilities returns what the remote end reported when the session was created.
func (s *Session) Capabilities() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.capabilities
}

// Load registers every definition on the session API. The first registration
// error aborts loading.
func (s *Session) Load(defs ...apiloader.Definition) error {
	const op = "Load"
	logger := s.logger.With(zap.String(logg.Operation, op))

	for _, def := range defs {
		loader, err := apiloader.NewCommandLoader(s, def, s.logger).CreateWrapper()
		if err != nil {
			return err
		}

		if err := loader.Define(); err != nil {
			return err
		}
	}

	logger.Info("Commands loaded", zap.Int("count", len(defs)), zap.Strings("root", s.api.Names()))

	return nil
}

// Open starts a remote session, or adopts the configured one.
func (s *Session) Open(ctx context.Context) (err error) {
	const op = "Open"
	logger := s.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("browser.name", s.cfg.BrowserName))
	defer func() {
		step.End(err)
	}()

	if s.cfg.SessionID != "" {
		s.mu.Lock()
		s.id = s.cfg.SessionID
		s.owned = false
		s.mu.Unlock()

		logger.Info("Reusing existing session", zap.String(logg.SessionID, s.cfg.SessionID))

		return nil
	}

	value, err := s.protocol.RunProtocolAction(ctx, entity.RequestOptions{
		Method: http.MethodPost,
		Path:   "/session",
		Data: map[string]any{
			"capabilities": map[string]any{
				"alwaysMatch": map[string]any{
					"browserName": s.cfg.BrowserName,
				},
			},
		},
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeSessionNotStarted, err, map[string]any{
			apperr.MetaStage: apperr.StageSession,
		})
	}

	id := gjson.GetBytes(value, "sessionId").String()
	if id == "" {
		return apperr.Wrap(op, apperr.CodeSessionNotStarted, ErrNoSessionID, map[string]any{
			apperr.MetaStage: apperr.StageSession,
		})
	}

	s.mu.Lock()
	s.id = id
	s.owned = true
	if caps := gjson.GetBytes(value, "capabilities"); caps.Exists() {
		s.capabilities = json.RawMessage(caps.Raw)
	}
	s.mu.Unlock()

	logger.Info("Session started", zap.String(logg.SessionID, id))

	return nil
}

// Close deletes a session this process started. Adopted sessions are only
// forgotten.
func (s *Session) Close(ctx context.Context) (err error) {
	const op = "Close"

	s.mu.Lock()
	id, owned := s.id, s.owned
	s.id, s.owned, s.capabilities = "", false, nil
	s.mu.Unlock()

	if id == "" || !owned {
		return nil
	}

	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.SessionID, id))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if _, err = s.protocol.RunProtocolAction(ctx, entity.RequestOptions{
		Method: http.MethodDelete,
		Path:   webdriver.SessionPath(id),
	}); err != nil {
		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaSessionID: id,
			apperr.MetaStage:     apperr.StageSession,
		})
	}

	logger.Info("Session deleted")

	return nil
}
