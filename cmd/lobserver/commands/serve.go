package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/lobserver/internal/bootstrap"
	"git.home.luguber.info/inful/lobserver/internal/config"
	"git.home.luguber.info/inful/lobserver/internal/history"
	"git.home.luguber.info/inful/lobserver/internal/logfields"
	"git.home.luguber.info/inful/lobserver/internal/metrics"
	"git.home.luguber.info/inful/lobserver/internal/server/httpserver"
	"git.home.luguber.info/inful/lobserver/internal/statestore"
	"git.home.luguber.info/inful/lobserver/internal/watch"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr string `help:"Listen address, overrides server.addr and PORT" placeholder:":3000"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return RunServer(ctx, cfg, g.Logger, nil)
}

// RunServer bootstraps the state, starts the HTTP server and background
// jobs, and blocks until ctx is cancelled or the server fails. When ready
// is non-nil it receives the server once it is listening.
func RunServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, ready func(*httpserver.Server)) (err error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		recorder       metrics.Recorder = metrics.NoopRecorder{}
		metricsHandler http.Handler
	)
	if cfg.Server.Metrics {
		reg := metrics.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		metricsHandler = metrics.HTTPHandler(reg)
	}
	opts := []bootstrap.Option{bootstrap.WithRecorder(recorder)}

	var archive *history.SQLiteStore
	if cfg.History.Enabled {
		archive, err = history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := archive.Close(); cerr != nil {
				logger.Warn("Failed to close history store", logfields.Error(cerr))
			}
		}()
		opts = append(opts,
			bootstrap.WithArchive(archive, cfg.History.RecordUpdates),
			bootstrap.WithHistoryKeep(cfg.History.Keep))
	}

	b := newBootstrapper(cfg, logger, opts...)
	defer func() {
		if cerr := b.Close(); cerr != nil {
			logger.Warn("Failed to close state backend", logfields.Error(cerr))
		}
	}()

	status, err := b.Initialize(ctx)
	if err != nil {
		return err
	}
	if status.Degraded() {
		logger.Warn("Serving in degraded mode",
			logfields.Mode(string(status.Mode)),
			logfields.Backend(status.Backend),
			logfields.Reason(status.Reason))
	}

	if archive != nil && cfg.History.SnapshotInterval > 0 {
		snap, serr := history.NewSnapshotter(archive, b, cfg.History.Keep, logger)
		if serr != nil {
			return serr
		}
		if _, serr := snap.Schedule(cfg.History.SnapshotInterval); serr != nil {
			return serr
		}
		snap.Start()
		defer func() {
			if serr := snap.Stop(); serr != nil {
				logger.Warn("Failed to stop snapshotter", logfields.Error(serr))
			}
		}()
	}

	if cfg.Watch.Enabled {
		if fb, ok := b.ActiveBackend().(*statestore.FileBackend); ok {
			w, werr := watch.NewFileWatcher(fb.Path(), b, cfg.Watch.Debounce, logger)
			if werr != nil {
				return werr
			}
			if werr := w.Start(ctx); werr != nil {
				return werr
			}
			defer func() { _ = w.Stop() }()
		} else {
			logger.Warn("File watching requested but the active backend is not a file",
				logfields.Backend(status.Backend))
		}
	}

	srv := httpserver.New(cfg.Server, httpserver.Deps{Store: b, Logger: logger, Metrics: metricsHandler})
	if err := srv.Start(ctx); err != nil {
		return err
	}
	if ready != nil {
		ready(srv)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping server")
	case e, ok := <-srv.Errors():
		if ok && e != nil {
			serveErr = fmt.Errorf("http server: %w", e)
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		serveErr = errors.Join(serveErr, err)
	}
	return serveErr
}
