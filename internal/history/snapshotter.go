package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
	"git.home.luguber.info/inful/lobserver/internal/logfields"
)

// Source exposes the cached document and its generation counter.
type Source interface {
	Snapshot() (doc appstate.Document, revision uint64, backend string, err error)
}

// Snapshotter periodically archives the cached document when it changed
// since the last snapshot, then prunes old revisions.
type Snapshotter struct {
	scheduler gocron.Scheduler
	store     Store
	source    Source
	keep      int
	logger    *slog.Logger

	mu   sync.Mutex
	last uint64
	seen bool
}

// NewSnapshotter creates a snapshotter backed by a gocron scheduler.
func NewSnapshotter(store Store, source Source, keep int, logger *slog.Logger) (*Snapshotter, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{
		scheduler: s,
		store:     store,
		source:    source,
		keep:      keep,
		logger:    logger,
	}, nil
}

// Schedule registers the periodic snapshot job and returns its id.
func (s *Snapshotter) Schedule(interval time.Duration) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run),
		gocron.WithName("state-snapshot"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Snapshotter) Start() {
	s.logger.Info("Starting snapshot scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Snapshotter) Stop() error {
	s.logger.Info("Stopping snapshot scheduler")
	return s.scheduler.Shutdown()
}

func (s *Snapshotter) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.SnapshotNow(ctx); err != nil {
		s.logger.Warn("Snapshot failed", logfields.Error(err))
	}
}

// SnapshotNow records a snapshot revision if the document generation moved
// since the previous snapshot. It reports whether a revision was written.
func (s *Snapshotter) SnapshotNow(ctx context.Context) (bool, error) {
	doc, gen, backend, err := s.source.Snapshot()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen && gen == s.last {
		return false, nil
	}

	rev, err := s.store.Record(ctx, NewRevision(ReasonSnapshot, backend, doc.Bytes(), true))
	if err != nil {
		return false, err
	}
	s.last, s.seen = gen, true
	s.logger.Debug("Recorded snapshot", logfields.Revision(rev.ID), logfields.Bytes(rev.Size))

	if removed, err := s.store.Prune(ctx, s.keep); err != nil {
		s.logger.Warn("Failed to prune history", logfields.Error(err))
	} else if removed > 0 {
		s.logger.Debug("Pruned history", slog.Int("removed", removed), slog.Int("keep", s.keep))
	}
	return true, nil
}
