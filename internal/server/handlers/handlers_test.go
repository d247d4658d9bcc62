package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
	"git.home.luguber.info/inful/lobserver/internal/bootstrap"
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
	"git.home.luguber.info/inful/lobserver/internal/server/responses"
	"git.home.luguber.info/inful/lobserver/internal/statestore"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readyBootstrapper(t *testing.T, backend *statestore.MemoryBackend) *bootstrap.Bootstrapper {
	t.Helper()
	b := bootstrap.New(statestore.OpenMemory(backend), nil, bootstrap.WithLogger(quietLogger()))
	_, err := b.Initialize(context.Background())
	require.NoError(t, err)
	return b
}

func decodeError(t *testing.T, body io.Reader) derrors.HTTPErrorResponse {
	t.Helper()
	var resp derrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestGetDBReturnsStoredDocument(t *testing.T) {
	doc := appstate.MustParse(`{"admin":{"lobs":7},"users":[]}`)
	h := NewStateHandlers(readyBootstrapper(t, statestore.NewMemoryBackendWith(doc)), 0, quietLogger())

	rec := httptest.NewRecorder()
	h.HandleGetDB(rec, httptest.NewRequest(http.MethodGet, "/db", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"admin":{"lobs":7},"users":[]}`, rec.Body.String())
}

func TestGetDBNotReady(t *testing.T) {
	b := bootstrap.New(statestore.OpenMemory(statestore.NewMemoryBackend()), nil, bootstrap.WithLogger(quietLogger()))
	h := NewStateHandlers(b, 0, quietLogger())

	rec := httptest.NewRecorder()
	h.HandleGetDB(rec, httptest.NewRequest(http.MethodGet, "/db", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeError(t, rec.Body)
	assert.False(t, resp.Success)
	assert.Equal(t, string(derrors.CategoryNotReady), resp.Code)
}

func TestUpdateThenRead(t *testing.T) {
	backend := statestore.NewMemoryBackend()
	h := NewStateHandlers(readyBootstrapper(t, backend), 0, quietLogger())

	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(`{"admin":{"lobs":42}}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.HandleGetDB(rec, httptest.NewRequest(http.MethodGet, "/db", nil))
	assert.JSONEq(t, `{"admin":{"lobs":42}}`, rec.Body.String())
	assert.JSONEq(t, `{"admin":{"lobs":42}}`, string(backend.Stored().Bytes()))
}

func TestUpdateIgnoresContentType(t *testing.T) {
	h := NewStateHandlers(readyBootstrapper(t, statestore.NewMemoryBackend()), 0, quietLogger())

	req := httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateRejectsInvalidBodies(t *testing.T) {
	backend := statestore.NewMemoryBackend()
	b := readyBootstrapper(t, backend)
	before, err := b.State()
	require.NoError(t, err)
	h := NewStateHandlers(b, 0, quietLogger())

	for name, body := range map[string]string{
		"not json": `hello`,
		"array":    `[1,2]`,
		"string":   `"hello"`,
		"empty":    ``,
		"null":     `null`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleUpdate(rec, httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec.Body)
			assert.False(t, resp.Success)
			assert.Equal(t, string(derrors.CategoryValidation), resp.Code)
		})
	}

	after, err := b.State()
	require.NoError(t, err)
	assert.True(t, before.Equal(after))
}

func TestUpdateBodyTooLarge(t *testing.T) {
	h := NewStateHandlers(readyBootstrapper(t, statestore.NewMemoryBackend()), 16, quietLogger())

	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, httptest.NewRequest(http.MethodPost, "/update",
		strings.NewReader(`{"padding":"`+strings.Repeat("x", 64)+`"}`)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "request body too large", decodeError(t, rec.Body).Message)
}

func TestUpdatePersistenceFailureKeepsCache(t *testing.T) {
	backend := statestore.NewMemoryBackend()
	b := readyBootstrapper(t, backend)
	backend.FailSave = errors.New("disk full")
	h := NewStateHandlers(b, 0, quietLogger())

	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(`{"v":2}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec.Body)
	assert.Equal(t, string(derrors.CategoryPersistence), resp.Code)
	assert.True(t, resp.Retryable)

	rec = httptest.NewRecorder()
	h.HandleGetDB(rec, httptest.NewRequest(http.MethodGet, "/db", nil))
	assert.JSONEq(t, `{"v":2}`, rec.Body.String())
}

func TestUpdateNotReady(t *testing.T) {
	b := bootstrap.New(statestore.OpenMemory(statestore.NewMemoryBackend()), nil, bootstrap.WithLogger(quietLogger()))
	h := NewStateHandlers(b, 0, quietLogger())

	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type staticStatus bootstrap.Status

func (s staticStatus) Status() bootstrap.Status { return bootstrap.Status(s) }

func TestHealth(t *testing.T) {
	cases := []struct {
		name   string
		status bootstrap.Status
		code   int
		want   string
	}{
		{"starting", bootstrap.Status{}, http.StatusServiceUnavailable, responses.HealthStarting},
		{"ready", bootstrap.Status{Ready: true, Mode: bootstrap.ModeNormal, Backend: "file"}, http.StatusOK, responses.HealthOK},
		{"degraded", bootstrap.Status{Ready: true, Mode: bootstrap.ModeMemory, Backend: "memory"}, http.StatusOK, responses.HealthDegraded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewMonitoringHandlers(staticStatus(tc.status))
			rec := httptest.NewRecorder()
			h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tc.code, rec.Code)
			var resp responses.HealthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.want, resp.Status)
			assert.Equal(t, tc.status.Backend, resp.State.Backend)
		})
	}
}

func TestHomepage(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(page, []byte("<h1>lob</h1>"), 0o600))

	h := NewHomepageHandler(page, quietLogger())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>lob</h1>")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHomepageMissingFile(t *testing.T) {
	h := NewHomepageHandler(filepath.Join(t.TempDir(), "nope.html"), quietLogger())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(derrors.CategoryNotFound), decodeError(t, rec.Body).Code)
}
