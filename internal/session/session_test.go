package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	"webdriver-bridge/internal/apiloader"
	"webdriver-bridge/internal/commands"
	"webdriver-bridge/internal/config"
	"webdriver-bridge/internal/element"
	"webdriver-bridge/internal/queue"
	"webdriver-bridge/internal/session"
	"webdriver-bridge/internal/transport/webdriver"
	"webdriver-bridge/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type remote struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func (r *remote) record(req *http.Request) string {
	body, _ := io.ReadAll(req.Body)
	key := req.Method + " " + req.URL.Path

	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, key)
	r.bodies[key] = string(body)

	return string(body)
}

func (r *remote) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.requests...)
}

func (r *remote) body(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.bodies[key]
}

func reply(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newRemote(t *testing.T) (*remote, *httptest.Server) {
	t.Helper()

	r := &remote{bodies: make(map[string]string)}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /session", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		reply(w, http.StatusOK, `{"value":{"sessionId":"abc","capabilities":{"browserName":"chrome"}}}`)
	})
	mux.HandleFunc("DELETE /session/{id}", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		reply(w, http.StatusOK, `{"value":null}`)
	})
	mux.HandleFunc("/session/abc/url", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		if req.Method == http.MethodPost {
			reply(w, http.StatusOK, `{"value":null}`)

			return
		}
		reply(w, http.StatusOK, `{"value":"https://example.com/"}`)
	})
	mux.HandleFunc("GET /session/abc/title", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		reply(w, http.StatusOK, `{"value":"Example Domain"}`)
	})
	mux.HandleFunc("GET /session/abc/window", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		reply(w, http.StatusOK, `{"value":"CDwindow-1"}`)
	})
	mux.HandleFunc("POST /session/abc/element", func(w http.ResponseWriter, req *http.Request) {
		body := r.record(req)
		if gjson.Get(body, "value").String() == "#missing" {
			reply(w, http.StatusNotFound, `{"value":{"error":"no such element","message":"Unable to locate #missing"}}`)

			return
		}
		reply(w, http.StatusOK, `{"value":{"element-6066-11e4-a52e-4f735466cecf":"el-1"}}`)
	})
	mux.HandleFunc("GET /session/abc/element/el-1/text", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		reply(w, http.StatusOK, `{"value":"Hello"}`)
	})
	mux.HandleFunc("POST /session/abc/element/el-1/click", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		reply(w, http.StatusOK, `{"value":null}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return r, srv
}

func newSession(t *testing.T, url string, sessionCfg config.SessionConfig) *session.Session {
	t.Helper()

	cfg := &config.Config{
		WebDriverConfig: &config.WebDriverConfig{URL: url},
		SessionConfig:   &sessionCfg,
	}
	logger := zap.NewNop()

	protocol := webdriver.NewProtocol(webdriver.Params{Config: cfg, Logger: logger})

	q := queue.New(queue.Params{Logger: logger})
	q.Start(context.Background())
	t.Cleanup(q.Stop)

	return session.New(session.Params{
		Config:   cfg,
		Logger:   logger,
		Protocol: protocol,
		Queue:    q,
		Resolver: element.NewResolver(element.Params{Protocol: protocol, Logger: logger}),
	})
}

func await(t *testing.T, call apiloader.Call) (any, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return call.Await(ctx)
}

func TestOpenStartsAndCloseDeletesSession(t *testing.T) {
	r, srv := newRemote(t)
	s := newSession(t, srv.URL, config.SessionConfig{BrowserName: "firefox", Async: true})

	require.NoError(t, s.Open(context.Background()))
	assert.Equal(t, "abc", s.SessionID())
	assert.Equal(t, "chrome", gjson.GetBytes(s.Capabilities(), "browserName").String())
	assert.Equal(t, "firefox", gjson.Get(r.body("POST /session"), "capabilities.alwaysMatch.browserName").String())

	require.NoError(t, s.Close(context.Background()))
	assert.Empty(t, s.SessionID())
	assert.Equal(t, []string{"POST /session", "DELETE /session/abc"}, r.seen())
}

func TestOpenReusesConfiguredSession(t *testing.T) {
	r, srv := newRemote(t)
	s := newSession(t, srv.URL, config.SessionConfig{SessionID: "abc", Async: true})

	require.NoError(t, s.Open(context.Background()))
	assert.Equal(t, "abc", s.SessionID())

	require.NoError(t, s.Close(context.Background()))
	assert.Empty(t, r.seen(), "adopted sessions are neither created nor deleted")
}

func TestOpenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusInternalServerError, `{"value":{"error":"session not created","message":"no chrome binary"}}`)
	}))
	t.Cleanup(srv.Close)

	s := newSession(t, srv.URL, config.SessionConfig{BrowserName: "chrome"})

	err := s.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeSessionNotStarted, apperr.CodeOf(err))

	var protoErr *webdriver.ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.Equal(t, "no chrome binary", protoErr.Message)
	assert.Empty(t, s.SessionID())
}

func TestOpenWithoutSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, `{"value":{"capabilities":{}}}`)
	}))
	t.Cleanup(srv.Close)

	err := newSession(t, srv.URL, config.SessionConfig{}).Open(context.Background())
	require.ErrorIs(t, err, session.ErrNoSessionID)
}

func TestBuiltInCommandsAgainstRemote(t *testing.T) {
	r, srv := newRemote(t)
	s := newSession(t, srv.URL, config.SessionConfig{Async: true})
	require.NoError(t, s.Load(commands.All()...))
	require.NoError(t, s.Open(context.Background()))

	api := s.API()

	navigated, err := await(t, api.Call("url", "https://example.com/"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", navigated)
	assert.Equal(t, "https://example.com/", gjson.Get(r.body("POST /session/abc/url"), "url").String())

	current, err := await(t, api.Call("url"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", current)

	title, err := await(t, api.Call("title"))
	require.NoError(t, err)
	assert.Equal(t, "Example Domain", title)

	text, err := await(t, api.Call("getText", element.CSS("#greeting")))
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, element.UsingCSS, gjson.Get(r.body("POST /session/abc/element"), "using").String())

	alias, err := await(t, api.Call("text", element.CSS("#greeting")))
	require.NoError(t, err)
	assert.Equal(t, text, alias)

	handle, err := await(t, api.Namespace("window").Call("handle"))
	require.NoError(t, err)
	assert.Equal(t, "CDwindow-1", handle)

	ref, err := await(t, api.Call("findElement", element.XPath("//h1")))
	require.NoError(t, err)
	assert.Equal(t, element.Reference{ID: "el-1"}, ref)

	_, err = await(t, api.Call("clickAndPause", element.CSS("#greeting"), 1))
	require.NoError(t, err)
	assert.Contains(t, r.seen(), "POST /session/abc/element/el-1/click")
}

func TestWindowHandleOfClosedWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet && req.URL.Path == "/session/abc/window" {
			reply(w, http.StatusNotFound, `{"value":{"error":"no such window","message":"browsing context has been discarded"}}`)

			return
		}
		reply(w, http.StatusOK, `{"value":"Example Domain"}`)
	}))
	t.Cleanup(srv.Close)

	s := newSession(t, srv.URL, config.SessionConfig{SessionID: "abc", Async: true})
	require.NoError(t, s.Load(commands.All()...))
	require.NoError(t, s.Open(context.Background()))

	_, err := await(t, s.API().Namespace("window").Call("handle"))
	require.ErrorIs(t, err, commands.ErrStaleWindow)
	assert.True(t, webdriver.IsInvalidWindowReference(err))

	var protoErr *webdriver.ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.Equal(t, "browsing context has been discarded", protoErr.Message)

	title, err := await(t, s.API().Call("title"))
	require.NoError(t, err)
	assert.Equal(t, "Example Domain", title)
}

func TestMissingElementRejectsCall(t *testing.T) {
	_, srv := newRemote(t)
	s := newSession(t, srv.URL, config.SessionConfig{Async: true})
	require.NoError(t, s.Load(commands.All()...))
	require.NoError(t, s.Open(context.Background()))

	_, err := await(t, s.API().Call("click", element.CSS("#missing")))
	require.Error(t, err)

	var protoErr *webdriver.ProtocolError
	require.True(t, errors.As(err, &protoErr))
	assert.Equal(t, "Unable to locate #missing", protoErr.Message)
	assert.NotEmpty(t, apperr.StackOf(err))

	title, err := await(t, s.API().Call("title"))
	require.NoError(t, err, "the queue keeps going after a failure")
	assert.Equal(t, "Example Domain", title)
}

func TestChainModeReturnsAPI(t *testing.T) {
	r, srv := newRemote(t)
	s := newSession(t, srv.URL, config.SessionConfig{Async: false})
	require.NoError(t, s.Load(commands.All()...))
	require.NoError(t, s.Open(context.Background()))

	call := s.API().Call("url", "https://example.com/")
	require.NoError(t, call.Err)
	require.NotNil(t, call.API)

	next := call.API.Call("title")
	require.NotNil(t, next.API)

	assert.Eventually(t, func() bool {
		seen := r.seen()

		return len(seen) == 3 && seen[2] == "GET /session/abc/title"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoadRejectsDuplicateDefinitions(t *testing.T) {
	_, srv := newRemote(t)
	s := newSession(t, srv.URL, config.SessionConfig{Async: true})
	require.NoError(t, s.Load(commands.All()...))

	err := s.Load(commands.All()...)
	require.ErrorIs(t, err, apiloader.ErrDuplicateCommand)
}

func TestCommandsRequireResolvedElement(t *testing.T) {
	_, srv := newRemote(t)
	s := newSession(t, srv.URL, config.SessionConfig{Async: true})
	require.NoError(t, s.Load(commands.All()...))
	require.NoError(t, s.Open(context.Background()))

	_, err := await(t, s.API().Call("click", "#not-a-locator"))
	require.ErrorIs(t, err, commands.ErrNotAnElement)
}

func TestCapabilitiesAreRaw(t *testing.T) {
	_, srv := newRemote(t)
	s := newSession(t, srv.URL, config.SessionConfig{})
	require.NoError(t, s.Open(context.Background()))

	var caps map[string]any
	require.NoError(t, json.Unmarshal(s.Capabilities(), &caps))
	assert.Equal(t, "chrome", caps["browserName"])
}
