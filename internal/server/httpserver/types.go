// Package httpserver wires the lobserver handlers into one HTTP server.
package httpserver

import (
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/lobserver/internal/server/handlers"
)

// Store is what the server needs from the bootstrapper.
type Store interface {
	handlers.StateStore
	handlers.StatusProvider
}

// Deps groups collaborators that are not plain configuration.
type Deps struct {
	Store  Store
	Logger *slog.Logger
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
}
