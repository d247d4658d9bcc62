package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"git.home.luguber.info/inful/lobserver/internal/config"
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
	"git.home.luguber.info/inful/lobserver/internal/logfields"
	"git.home.luguber.info/inful/lobserver/internal/server/handlers"
	"git.home.luguber.info/inful/lobserver/internal/server/middleware"
)

// Server owns the listener and the http.Server serving the state API.
type Server struct {
	cfg     config.ServerConfig
	logger  *slog.Logger
	handler http.Handler

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	errCh    chan error
}

// New builds the routing table; nothing listens until Start.
func New(cfg config.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: logger, errCh: make(chan error, 1)}
	s.handler = s.routes(deps)
	return s
}

func (s *Server) routes(deps Deps) http.Handler {
	adapter := derrors.NewHTTPErrorAdapter(s.logger)
	state := handlers.NewStateHandlers(deps.Store, s.cfg.MaxBodyBytes, s.logger)
	monitoring := handlers.NewMonitoringHandlers(deps.Store)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /db", state.HandleGetDB)
	mux.HandleFunc("POST /update", state.HandleUpdate)
	mux.HandleFunc("GET /healthz", monitoring.HandleHealth)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}
	mux.Handle("GET /{$}", handlers.NewHomepageHandler(s.cfg.Homepage, s.logger))

	chain := middleware.Chain(s.logger, adapter)
	return chain(middleware.CORS(s.cfg.CORSOrigins)(mux))
}

// Handler exposes the full middleware-wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Start binds the listener synchronously, so address errors surface here,
// and then serves in the background. Serve errors arrive on Errors.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return derrors.InternalError("http server already started").Build()
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return derrors.ConfigError(fmt.Sprintf("failed to bind %s", s.cfg.Addr)).
			WithCause(err).
			WithContext("addr", s.cfg.Addr).
			Build()
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout(s.cfg.ReadTimeout),
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	srv := s.srv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped unexpectedly", logfields.Error(err))
			s.errCh <- err
		}
		close(s.errCh)
	}()

	s.logger.Info("HTTP server listening",
		slog.String("addr", ln.Addr().String()),
		slog.Int("max_connections", s.cfg.MaxConnections))
	return nil
}

// Errors yields at most one fatal serve error and is closed when serving ends.
func (s *Server) Errors() <-chan error { return s.errCh }

// Addr is the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop drains in-flight requests until ctx expires, then closes what remains.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func readHeaderTimeout(read time.Duration) time.Duration {
	if read <= 0 || read > 10*time.Second {
		return 10 * time.Second
	}
	return read
}
