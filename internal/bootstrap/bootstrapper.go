package bootstrap

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
	"git.home.luguber.info/inful/lobserver/internal/history"
	"git.home.luguber.info/inful/lobserver/internal/logfields"
	"git.home.luguber.info/inful/lobserver/internal/metrics"
	"git.home.luguber.info/inful/lobserver/internal/statestore"
)

// Bootstrapper selects the active backend once and then serves the cached
// document. Writers are serialized; readers never wait on backend I/O.
type Bootstrapper struct {
	primary  statestore.Opener
	fallback statestore.Opener
	opts     options

	initMu      sync.Mutex
	initialized bool

	// writeMu orders Replace and Reload so that arrival order, cache order
	// and persist order are the same.
	writeMu sync.Mutex

	mu      sync.RWMutex
	doc     appstate.Document
	status  Status
	backend statestore.Backend
	closed  bool
	// dirty is set while the cache holds a write the backend has not accepted.
	dirty bool
	// pending is non-nil while a corrupt document that could not be
	// quarantined at startup still sits in the backend.
	pending *pendingQuarantine
}

// pendingQuarantine remembers the mode and reason to restore once the
// corrupt document is finally moved aside.
type pendingQuarantine struct {
	mode   Mode
	reason string
}

// New creates a bootstrapper. fallback may be nil, in which case an
// unavailable primary drops straight to the in-memory backend.
func New(primary, fallback statestore.Opener, opts ...Option) *Bootstrapper {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Bootstrapper{primary: primary, fallback: fallback, opts: o}
}

// outcome is the result of backend selection, turned into Status by ready.
type outcome struct {
	backend     statestore.Backend
	mode        Mode
	preferred   string
	reason      string
	doc         appstate.Document
	seeded      bool
	persisted   bool
	quarantined string
	pending     *pendingQuarantine
}

// Initialize selects a backend, loads or seeds the document and marks the
// bootstrapper Ready. It returns an error only when the built-in default is
// unusable; every backend failure is absorbed by falling back.
func (b *Bootstrapper) Initialize(ctx context.Context) (Status, error) {
	b.initMu.Lock()
	defer b.initMu.Unlock()
	if b.initialized {
		return b.Status(), ErrAlreadyInitialized
	}
	b.initialized = true

	def, err := b.opts.defaults()
	if err == nil && def.IsZero() {
		err = appstate.ErrNotObject
	}
	if err != nil {
		return Status{}, derrors.InternalError(ErrInvalidDefault.Message()).WithCause(err).Build()
	}

	preferred := b.opts.preferred
	res := Probe(ctx, b.primary, b.opts.loadTimeout)
	if preferred == "" && res.Available {
		preferred = res.Backend.Name()
	}
	if preferred == "" {
		preferred = "preferred"
	}
	b.opts.recorder.ObserveBackendOp(preferred, "probe", res.Duration, probeResult(res))

	if res.Available {
		doc, loadErr := b.load(ctx, res.Backend)
		if !isUnavailable(loadErr) {
			return b.settle(ctx, outcome{backend: res.Backend, mode: ModeNormal, preferred: preferred, doc: doc}, loadErr, def)
		}
		_ = res.Backend.Close()
		res = Unavailable(loadErr.Error(), loadErr)
	}

	reason := res.Reason
	b.opts.logger.Warn("Preferred state backend unavailable, falling back",
		logfields.Preferred(preferred),
		logfields.Reason(reason))

	if b.fallback != nil {
		fb := Probe(ctx, b.fallback, b.opts.loadTimeout)
		if fb.Available {
			name := fb.Backend.Name()
			b.opts.recorder.ObserveBackendOp(name, "probe", fb.Duration, metrics.ResultSuccess)
			b.opts.recorder.IncFallback(preferred, name)

			doc, loadErr := b.load(ctx, fb.Backend)
			o := outcome{backend: fb.Backend, mode: ModeDegraded, preferred: preferred, reason: reason, doc: doc}
			if isUnavailable(loadErr) {
				b.opts.logger.Warn("Fallback backend cannot load state, serving default without persisting it",
					logfields.Backend(name),
					logfields.Error(loadErr))
				o.doc, o.seeded = def, true
				o.reason = joinReason(reason, "fallback load: "+loadErr.Error())
				return b.ready(o), nil
			}
			return b.settle(ctx, o, loadErr, def)
		}
		reason = joinReason(reason, "fallback: "+fb.Reason)
	}

	mem := statestore.NewMemoryBackend()
	b.opts.recorder.IncFallback(preferred, mem.Name())
	_ = mem.Save(ctx, def)
	b.opts.logger.Error("No durable state backend available, changes will be lost on restart",
		logfields.Preferred(preferred),
		logfields.Reason(reason))
	return b.ready(outcome{
		backend:   mem,
		mode:      ModeMemory,
		preferred: preferred,
		reason:    reason,
		doc:       def,
		seeded:    true,
	}), nil
}

// settle finishes selection once a backend answered Load with success,
// NotFound or a parse error.
func (b *Bootstrapper) settle(ctx context.Context, o outcome, loadErr error, def appstate.Document) (Status, error) {
	switch {
	case loadErr == nil:
		return b.ready(o), nil

	case statestore.IsNotFound(loadErr):
		b.opts.logger.Info("No stored state found, seeding default", logfields.Backend(o.backend.Name()))
		o.doc, o.seeded = def, true
		o.persisted = b.seed(ctx, o.backend, def)
		return b.ready(o), nil

	default:
		return b.recoverCorrupt(ctx, o, loadErr, def), nil
	}
}

func (b *Bootstrapper) recoverCorrupt(ctx context.Context, o outcome, loadErr error, def appstate.Document) Status {
	name := o.backend.Name()
	b.opts.logger.Error("Stored state is corrupt",
		logfields.Backend(name),
		logfields.Category(string(derrors.CategoryParse)),
		logfields.Error(loadErr))
	o.doc, o.seeded = def, true

	if b.opts.policy == PolicyOverwrite {
		b.opts.logger.Warn("Overwriting corrupt state with default", logfields.Backend(name))
		o.persisted = b.seed(ctx, o.backend, def)
		return b.ready(o)
	}

	q, ok := o.backend.(statestore.Quarantiner)
	if !ok {
		o.mode = ModeDegraded
		o.reason = joinReason(o.reason, "corrupt state left in place, backend cannot quarantine")
		b.opts.logger.Warn("Serving default state from memory, stored document left untouched",
			logfields.Backend(name))
		return b.ready(o)
	}

	qctx, cancel := context.WithTimeout(ctx, b.opts.loadTimeout)
	defer cancel()
	start := b.opts.now()
	moved, err := q.Quarantine(qctx)
	b.observe(name, "quarantine", start, err)
	if err != nil {
		o.pending = &pendingQuarantine{mode: o.mode, reason: o.reason}
		o.mode = ModeDegraded
		o.reason = joinReason(o.reason, "quarantine failed: "+err.Error())
		b.opts.logger.Error("Failed to quarantine corrupt state, serving default from memory",
			logfields.Backend(name),
			logfields.Error(err))
		return b.ready(o)
	}

	o.quarantined = moved.Location
	b.opts.logger.Warn("Quarantined corrupt state",
		logfields.Backend(name),
		logfields.Path(moved.Location),
		logfields.Bytes(len(moved.Raw)))
	b.archive(ctx, history.NewRevision(history.ReasonQuarantine, name, moved.Raw, false))

	o.persisted = b.seed(ctx, o.backend, def)
	return b.ready(o)
}

// seed saves the default document and reports whether it was persisted.
func (b *Bootstrapper) seed(ctx context.Context, backend statestore.Backend, def appstate.Document) bool {
	sctx, cancel := context.WithTimeout(ctx, b.opts.saveTimeout)
	defer cancel()
	start := b.opts.now()
	err := backend.Save(sctx, def)
	b.observe(backend.Name(), "save", start, err)
	if err != nil {
		b.opts.logger.Error("Failed to persist default state, serving it from memory",
			logfields.Backend(backend.Name()),
			logfields.Error(err))
		return false
	}
	b.archive(ctx, history.NewRevision(history.ReasonSeed, backend.Name(), def.Bytes(), true))
	return true
}

func (b *Bootstrapper) ready(o outcome) Status {
	b.mu.Lock()
	b.backend = o.backend
	b.doc = o.doc
	b.pending = o.pending
	b.status = Status{
		Ready:         true,
		Mode:          o.mode,
		Backend:       o.backend.Name(),
		Preferred:     o.preferred,
		Reason:        o.reason,
		Seeded:        o.seeded,
		SeedPersisted: o.seeded && o.persisted,
		Quarantined:   o.quarantined,
		ReadyAt:       b.opts.now().UTC(),
		Revision:      1,
	}
	st := b.status
	b.mu.Unlock()

	b.opts.recorder.SetDegraded(o.mode != ModeNormal)
	b.opts.recorder.SetDocumentBytes(o.doc.Len())
	b.opts.logger.Info("State ready",
		logfields.Backend(st.Backend),
		logfields.Preferred(st.Preferred),
		logfields.Mode(string(st.Mode)),
		logfields.Bytes(o.doc.Len()))
	return st
}

// State returns the cached document. It never touches the backend.
func (b *Bootstrapper) State() (appstate.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.status.Ready {
		return appstate.Document{}, ErrNotReady
	}
	return b.doc, nil
}

// Replace swaps the cached document and persists it synchronously. When the
// save fails the cache keeps doc and ErrPersistenceFailed is returned.
func (b *Bootstrapper) Replace(ctx context.Context, doc appstate.Document) error {
	if doc.IsZero() {
		return ErrEmptyDocument
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.mu.Lock()
	if !b.status.Ready {
		b.mu.Unlock()
		return ErrNotReady
	}
	b.doc = doc
	b.status.Revision++
	backend := b.backend
	pending := b.pending
	b.mu.Unlock()
	b.opts.recorder.SetDocumentBytes(doc.Len())

	// The save outlives a disconnecting client; the cache already changed.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.opts.saveTimeout)
	defer cancel()

	var err error
	if pending != nil {
		err = b.quarantinePending(sctx, backend, pending)
	}
	if err == nil {
		var attempts int
		attempts, err = b.opts.saveRetry.Do(sctx, statestore.IsUnavailable, func(ctx context.Context) error {
			start := b.opts.now()
			err := backend.Save(ctx, doc)
			b.observe(backend.Name(), "save", start, err)
			return err
		})
		if attempts > 1 {
			b.opts.logger.Warn("State save needed retries",
				logfields.Backend(backend.Name()),
				slog.Int("attempts", attempts))
		}
	}

	b.mu.Lock()
	b.dirty = err != nil
	if err != nil {
		b.status.LastPersistError = err.Error()
	} else {
		b.status.LastPersistError = ""
	}
	b.mu.Unlock()

	if err != nil {
		b.opts.recorder.IncUpdate(metrics.ResultError)
		b.opts.logger.Error("Failed to persist state",
			logfields.Backend(backend.Name()),
			logfields.Error(err))
		perr := derrors.PersistenceError(ErrPersistenceFailed.Message()).WithCause(err)
		if cause, ok := derrors.AsClassified(err); ok {
			perr = perr.WithContextMap(cause.Context())
		}
		return perr.WithContext("backend", backend.Name()).Build()
	}

	b.opts.recorder.IncUpdate(metrics.ResultSuccess)
	attrs := []any{logfields.Backend(backend.Name()), logfields.Bytes(doc.Len())}
	if lobs, ok := doc.AdminLobs(); ok {
		attrs = append(attrs, logfields.AdminLobs(lobs.String()))
	}
	b.opts.logger.Info("State saved", attrs...)

	if b.opts.recordUpdates {
		b.archive(context.WithoutCancel(ctx), history.NewRevision(history.ReasonUpdate, backend.Name(), doc.Bytes(), true))
	}
	return nil
}

// quarantinePending retries moving a corrupt document aside before the
// first save overwrites it. The save must not run while this fails.
func (b *Bootstrapper) quarantinePending(ctx context.Context, backend statestore.Backend, p *pendingQuarantine) error {
	q, ok := backend.(statestore.Quarantiner)
	if !ok {
		return nil
	}
	name := backend.Name()
	start := b.opts.now()
	moved, err := q.Quarantine(ctx)
	b.observe(name, "quarantine", start, err)
	switch {
	case statestore.IsNotFound(err):
		b.opts.logger.Info("Corrupt state is gone, nothing left to quarantine", logfields.Backend(name))
	case err != nil:
		b.opts.logger.Error("Corrupt state still cannot be quarantined, refusing to overwrite it",
			logfields.Backend(name),
			logfields.Error(err))
		return err
	default:
		b.opts.logger.Warn("Quarantined corrupt state",
			logfields.Backend(name),
			logfields.Path(moved.Location),
			logfields.Bytes(len(moved.Raw)))
		b.archive(ctx, history.NewRevision(history.ReasonQuarantine, name, moved.Raw, false))
	}

	b.mu.Lock()
	b.pending = nil
	b.status.Mode = p.mode
	b.status.Reason = p.reason
	if err == nil {
		b.status.Quarantined = moved.Location
	}
	b.mu.Unlock()
	b.opts.recorder.SetDegraded(p.mode != ModeNormal)
	return nil
}

// Reload re-reads the active backend and swaps the cache when the stored
// document differs structurally. It never saves.
func (b *Bootstrapper) Reload(ctx context.Context) (bool, error) {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.mu.RLock()
	ready, backend, current, dirty := b.status.Ready, b.backend, b.doc, b.dirty
	b.mu.RUnlock()
	if !ready {
		return false, ErrNotReady
	}
	if dirty {
		b.opts.recorder.IncReload(metrics.ResultSkipped)
		b.opts.logger.Warn("Cached state has unsaved changes, ignoring stored document",
			logfields.Backend(backend.Name()))
		return false, nil
	}

	doc, err := b.load(ctx, backend)
	if err != nil {
		b.opts.recorder.IncReload(metrics.ResultError)
		b.opts.logger.Warn("Reload failed, keeping cached state",
			logfields.Backend(backend.Name()),
			logfields.Error(err))
		return false, err
	}
	if doc.Equal(current) {
		b.opts.recorder.IncReload(metrics.ResultUnchanged)
		return false, nil
	}

	b.mu.Lock()
	b.doc = doc
	b.status.Revision++
	if b.pending != nil {
		// A readable document replaced the corrupt one.
		b.status.Mode, b.status.Reason = b.pending.mode, b.pending.reason
		b.pending = nil
	}
	b.mu.Unlock()

	b.opts.recorder.IncReload(metrics.ResultChanged)
	b.opts.recorder.SetDocumentBytes(doc.Len())
	b.opts.logger.Info("Reloaded state from backend",
		logfields.Backend(backend.Name()),
		logfields.Bytes(doc.Len()))
	b.archive(ctx, history.NewRevision(history.ReasonReload, backend.Name(), doc.Bytes(), true))
	return true, nil
}

// Snapshot returns the cached document with its generation counter.
func (b *Bootstrapper) Snapshot() (appstate.Document, uint64, string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.status.Ready {
		return appstate.Document{}, 0, "", ErrNotReady
	}
	return b.doc, b.status.Revision, b.status.Backend, nil
}

// Status returns a copy of the current status.
func (b *Bootstrapper) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// ActiveBackend returns the backend in use, or nil before Ready.
func (b *Bootstrapper) ActiveBackend() statestore.Backend {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.backend
}

// Close releases the active backend. The cache stays readable.
func (b *Bootstrapper) Close() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.backend == nil {
		return nil
	}
	b.closed = true
	return b.backend.Close()
}

func (b *Bootstrapper) load(ctx context.Context, backend statestore.Backend) (appstate.Document, error) {
	lctx, cancel := context.WithTimeout(ctx, b.opts.loadTimeout)
	defer cancel()
	start := b.opts.now()
	doc, err := backend.Load(lctx)
	b.observe(backend.Name(), "load", start, err)
	return doc, err
}

func (b *Bootstrapper) archive(ctx context.Context, rev history.Revision) {
	if b.opts.archive == nil {
		return
	}
	if _, err := b.opts.archive.Record(ctx, rev); err != nil {
		b.opts.logger.Warn("Failed to record history revision",
			logfields.Reason(string(rev.Reason)),
			logfields.Error(err))
		return
	}
	p, ok := b.opts.archive.(Pruner)
	if !ok || b.opts.historyKeep <= 0 {
		return
	}
	if _, err := p.Prune(ctx, b.opts.historyKeep); err != nil {
		b.opts.logger.Warn("Failed to prune history", logfields.Error(err))
	}
}

func (b *Bootstrapper) observe(backend, op string, start time.Time, err error) {
	b.opts.recorder.ObserveBackendOp(backend, op, b.opts.now().Sub(start), resultFor(err))
}

func resultFor(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case statestore.IsNotFound(err):
		return metrics.ResultNotFound
	case statestore.IsParse(err):
		return metrics.ResultCorrupt
	default:
		return metrics.ResultError
	}
}

func probeResult(r ProbeResult) metrics.ResultLabel {
	if r.Available {
		return metrics.ResultSuccess
	}
	return metrics.ResultError
}

// isUnavailable treats anything other than success, NotFound and a parse
// error as the backend being unusable.
func isUnavailable(err error) bool {
	return err != nil && !statestore.IsNotFound(err) && !statestore.IsParse(err)
}

func joinReason(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
