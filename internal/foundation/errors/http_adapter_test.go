package errors

import (
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation", ValidationError("body must be an object").Build(), http.StatusBadRequest},
		{"not ready", NotReadyError("warming up").Build(), http.StatusServiceUnavailable},
		{"backend unavailable", BackendUnavailableError("offline").Build(), http.StatusServiceUnavailable},
		{"persistence failed", PersistenceError("save failed").Build(), http.StatusInternalServerError},
		{"not found", NotFoundError("missing").Build(), http.StatusNotFound},
		{"unclassified", stdErrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.StatusCodeFor(tt.err); got != tt.expected {
				t.Errorf("StatusCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())
	req := httptest.NewRequest(http.MethodPost, "/update", nil)
	rec := httptest.NewRecorder()

	adapter.WriteErrorResponse(rec, req, PersistenceError("Speichern fehlgeschlagen.").Build())

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body["success"])
	}
	if body["message"] != "Speichern fehlgeschlagen." {
		t.Errorf("unexpected message %v", body["message"])
	}
	if body["code"] != string(CategoryPersistence) {
		t.Errorf("unexpected code %v", body["code"])
	}
}

func TestHTTPErrorAdapter_WriteErrorResponseWithStatus(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())
	req := httptest.NewRequest(http.MethodPost, "/update", nil)
	rec := httptest.NewRecorder()

	adapter.WriteErrorResponseWithStatus(rec, req, http.StatusRequestEntityTooLarge, ValidationError("too large").Build())

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}
