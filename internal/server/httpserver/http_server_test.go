package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/lobserver/internal/bootstrap"
	"git.home.luguber.info/inful/lobserver/internal/config"
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
	"git.home.luguber.info/inful/lobserver/internal/statestore"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.ServerConfig {
	t.Helper()
	cfg := config.Default().Server
	cfg.Addr = "127.0.0.1:0"
	return cfg
}

func newStore(t *testing.T) *bootstrap.Bootstrapper {
	t.Helper()
	b := bootstrap.New(statestore.OpenMemory(statestore.NewMemoryBackend()), nil, bootstrap.WithLogger(quietLogger()))
	_, err := b.Initialize(context.Background())
	require.NoError(t, err)
	return b
}

func TestRoutes(t *testing.T) {
	srv := New(testConfig(t), Deps{
		Store:   newStore(t),
		Logger:  quietLogger(),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "metrics") }),
	})
	h := srv.Handler()

	cases := []struct {
		method, path, body string
		code               int
	}{
		{http.MethodGet, "/db", "", http.StatusOK},
		{http.MethodPost, "/update", `{"x":1}`, http.StatusOK},
		{http.MethodPost, "/update", `nope`, http.StatusBadRequest},
		{http.MethodGet, "/update", "", http.StatusMethodNotAllowed},
		{http.MethodPost, "/db", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/elsewhere", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestMetricsDisabled(t *testing.T) {
	h := New(testConfig(t), Deps{Store: newStore(t), Logger: quietLogger()}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreflightUpdate(t *testing.T) {
	h := New(testConfig(t), Deps{Store: newStore(t), Logger: quietLogger()}).Handler()
	req := httptest.NewRequest(http.MethodOptions, "/update", nil)
	req.Header.Set("Origin", "https://lob.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStartServeStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConnections = 4
	srv := New(cfg, Deps{Store: newStore(t), Logger: quietLogger()})
	assert.Nil(t, srv.Addr())

	require.NoError(t, srv.Start(context.Background()))
	addr := srv.Addr()
	require.NotNil(t, addr)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post("http://"+addr.String()+"/update", "application/json", strings.NewReader(`{"admin":{"lobs":3}}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get("http://" + addr.String() + "/db")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.JSONEq(t, `{"admin":{"lobs":3}}`, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	_, open := <-srv.Errors()
	assert.False(t, open)
}

func TestStartTwice(t *testing.T) {
	srv := New(testConfig(t), Deps{Store: newStore(t), Logger: quietLogger()})
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryInternal, derrors.GetCategory(err))
}

func TestStartBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	cfg := testConfig(t)
	cfg.Addr = ln.Addr().String()
	srv := New(cfg, Deps{Store: newStore(t), Logger: quietLogger()})

	err = srv.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, derrors.CategoryConfig, derrors.GetCategory(err))
}

func TestStopBeforeStart(t *testing.T) {
	srv := New(testConfig(t), Deps{Store: newStore(t), Logger: quietLogger()})
	assert.NoError(t, srv.Stop(context.Background()))
}
