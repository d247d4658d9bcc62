package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
	"git.home.luguber.info/inful/lobserver/internal/server/responses"
)

// DefaultMaxBodyBytes matches the historical 5 MiB request limit.
const DefaultMaxBodyBytes = 5 << 20

// StateStore is the subset of the bootstrapper used by the state endpoints.
type StateStore interface {
	State() (appstate.Document, error)
	Replace(ctx context.Context, doc appstate.Document) error
}

// StateHandlers serves GET /db and POST /update.
type StateHandlers struct {
	store        StateStore
	errorAdapter *derrors.HTTPErrorAdapter
	maxBodyBytes int64
}

// NewStateHandlers creates the state endpoints. maxBodyBytes <= 0 uses DefaultMaxBodyBytes.
func NewStateHandlers(store StateStore, maxBodyBytes int64, logger *slog.Logger) *StateHandlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &StateHandlers{
		store:        store,
		errorAdapter: derrors.NewHTTPErrorAdapter(logger),
		maxBodyBytes: maxBodyBytes,
	}
}

// HandleGetDB returns the cached document exactly as stored.
func (h *StateHandlers) HandleGetDB(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.State()
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, doc.Bytes())
}

// HandleUpdate replaces the whole document with the request body. The body
// is parsed as JSON regardless of Content-Type.
func (h *StateHandlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorAdapter.WriteErrorResponseWithStatus(w, r, http.StatusRequestEntityTooLarge,
				derrors.ValidationError("request body too large").
					WithContext("limit", tooLarge.Limit).
					Build())
			return
		}
		h.errorAdapter.WriteErrorResponse(w, r,
			derrors.ValidationError("failed to read request body").WithCause(err).Build())
		return
	}

	doc, err := appstate.Parse(data)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			derrors.ValidationError("request body must be a JSON object").WithCause(err).Build())
		return
	}

	if err := h.store.Replace(r.Context(), doc); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	_ = writeJSON(w, http.StatusOK, responses.UpdateResponse{Success: true})
}
