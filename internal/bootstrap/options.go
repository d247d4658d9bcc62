package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
	"git.home.luguber.info/inful/lobserver/internal/history"
	"git.home.luguber.info/inful/lobserver/internal/metrics"
	"git.home.luguber.info/inful/lobserver/internal/retry"
)

const (
	DefaultLoadTimeout = 10 * time.Second
	DefaultSaveTimeout = 10 * time.Second
)

// Archive receives revisions worth keeping. *history.SQLiteStore satisfies it.
type Archive interface {
	Record(ctx context.Context, rev history.Revision) (history.Revision, error)
}

// Pruner is implemented by archives that can drop old revisions.
type Pruner interface {
	Prune(ctx context.Context, keep int) (int, error)
}

// Option configures a Bootstrapper.
type Option func(*options)

type options struct {
	logger        *slog.Logger
	recorder      metrics.Recorder
	archive       Archive
	recordUpdates bool
	historyKeep   int
	loadTimeout   time.Duration
	saveTimeout   time.Duration
	saveRetry     retry.Policy
	policy        CorruptPolicy
	preferred     string
	defaults      func() (appstate.Document, error)
	now           func() time.Time
}

func defaultOptions() options {
	return options{
		logger:      slog.Default(),
		recorder:    metrics.NoopRecorder{},
		loadTimeout: DefaultLoadTimeout,
		saveTimeout: DefaultSaveTimeout,
		saveRetry:   retry.None(),
		policy:      PolicyQuarantine,
		defaults:    appstate.Default,
		now:         time.Now,
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithArchive enables history. recordUpdates also archives every successful Replace.
func WithArchive(a Archive, recordUpdates bool) Option {
	return func(o *options) {
		o.archive = a
		o.recordUpdates = recordUpdates
	}
}

// WithHistoryKeep prunes the archive to the newest keep revisions after
// every recorded revision. keep <= 0 keeps everything.
func WithHistoryKeep(keep int) Option {
	return func(o *options) {
		o.historyKeep = keep
	}
}

// WithLoadTimeout bounds each probe and load.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.loadTimeout = d
		}
	}
}

// WithSaveTimeout bounds each save issued by Replace.
func WithSaveTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.saveTimeout = d
		}
	}
}

func WithCorruptPolicy(p CorruptPolicy) Option {
	return func(o *options) {
		if p != "" {
			o.policy = p
		}
	}
}

// WithPreferred names the preferred backend for status and logs.
func WithPreferred(name string) Option {
	return func(o *options) { o.preferred = name }
}

// WithDefault overrides the built-in default document.
func WithDefault(f func() (appstate.Document, error)) Option {
	return func(o *options) {
		if f != nil {
			o.defaults = f
		}
	}
}

// WithSaveRetry retries Replace saves that fail with ErrBackendUnavailable.
// All attempts share the save timeout.
func WithSaveRetry(p retry.Policy) Option {
	return func(o *options) {
		if p.Validate() == nil {
			o.saveRetry = p
		}
	}
}
