package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/lobserver/internal/bootstrap"
	"git.home.luguber.info/inful/lobserver/internal/config"
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
	"git.home.luguber.info/inful/lobserver/internal/history"
	"git.home.luguber.info/inful/lobserver/internal/logfields"
	"git.home.luguber.info/inful/lobserver/internal/statestore"
)

// Global is shared state handed to every command's Run.
type Global struct {
	Logger *slog.Logger
	// Out receives command output (documents, tables). Logs go to stderr.
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"lobserver.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Run the HTTP state server (default)"`
	Dump    DumpCmd    `cmd:"" help:"Print the stored document"`
	Seed    SeedCmd    `cmd:"" help:"Write the built-in default document"`
	Check   CheckCmd   `cmd:"" help:"Probe the configured state backends"`
	History HistoryCmd `cmd:"" help:"Inspect archived revisions"`
}

// AfterApply runs after flag parsing and installs a provisional logger.
// loadConfig replaces it once the logging section is known.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig loads the configuration and configures logging from it.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	g.Logger = newLogger(os.Stderr, cfg.Logging, c.Verbose)
	slog.SetDefault(g.Logger)
	if g.Out == nil {
		g.Out = os.Stdout
	}
	return cfg, nil
}

func newLogger(w io.Writer, lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := lc.LevelValue().SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if lc.FormatValue() == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newBootstrapper builds a bootstrapper for the configured backends.
func newBootstrapper(cfg *config.Config, logger *slog.Logger, extra ...bootstrap.Option) *bootstrap.Bootstrapper {
	sel := cfg.Storage.Selection()
	primary, fallback := statestore.Openers(sel)
	opts := []bootstrap.Option{
		bootstrap.WithLogger(logger),
		bootstrap.WithLoadTimeout(cfg.Storage.LoadTimeout),
		bootstrap.WithSaveTimeout(cfg.Storage.SaveTimeout),
		bootstrap.WithSaveRetry(cfg.Storage.SaveRetry()),
		bootstrap.WithCorruptPolicy(cfg.Storage.Policy()),
		bootstrap.WithPreferred(string(sel.Preferred())),
	}
	return bootstrap.New(primary, fallback, append(opts, extra...)...)
}

// openHistory opens the revision archive, refusing when history is disabled.
func openHistory(cfg *config.Config) (*history.SQLiteStore, error) {
	if !cfg.History.Enabled {
		return nil, derrors.ConfigError("history is disabled").
			WithContext("hint", "set history.enabled or "+config.EnvHistoryPath).
			Build()
	}
	return history.NewSQLiteStore(cfg.History.Path)
}

// firstAvailable probes primary, then fallback, and returns the first
// usable backend. Later backends are not consulted once one answers.
func firstAvailable(ctx context.Context, cfg *config.Config, logger *slog.Logger) (statestore.Backend, error) {
	primary, fallback := statestore.Openers(cfg.Storage.Selection())
	var reasons []string
	for _, open := range []statestore.Opener{primary, fallback} {
		if open == nil {
			continue
		}
		res := bootstrap.Probe(ctx, open, cfg.Storage.LoadTimeout)
		if res.Available {
			return res.Backend, nil
		}
		logger.Debug("Backend unavailable", logfields.Reason(res.Reason))
		reasons = append(reasons, res.Reason)
	}
	return nil, derrors.BackendUnavailableError("no state backend available").
		WithContext("reasons", reasons).
		Build()
}
