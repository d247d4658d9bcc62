package handlers

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
	"git.home.luguber.info/inful/lobserver/internal/logfields"
)

// HomepageHandler serves one static file at "/" and 404 for every other
// path that reaches it.
type HomepageHandler struct {
	path         string
	logger       *slog.Logger
	errorAdapter *derrors.HTTPErrorAdapter
}

func NewHomepageHandler(path string, logger *slog.Logger) *HomepageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HomepageHandler{path: path, logger: logger, errorAdapter: derrors.NewHTTPErrorAdapter(logger)}
}

func (h *HomepageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || h.path == "" {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.NotFoundError("not found").Build())
		return
	}
	info, err := os.Stat(h.path)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			h.logger.Warn("Homepage not readable", logfields.Path(h.path), logfields.Error(err))
		}
		h.errorAdapter.WriteErrorResponse(w, r, derrors.NotFoundError("homepage not found").Build())
		return
	}
	http.ServeFile(w, r, h.path)
}
