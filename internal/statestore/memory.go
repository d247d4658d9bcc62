package statestore

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
)

// MemoryBackend holds the document in process memory. It is the last-resort
// backend and doubles as a test fake.
type MemoryBackend struct {
	mu    sync.Mutex
	doc   appstate.Document
	raw   []byte
	loads int
	saves int

	// FailLoad and FailSave, when set, are returned (wrapped as
	// ErrBackendUnavailable unless already classified) by Load and Save.
	FailLoad error
	FailSave error
}

// NewMemoryBackend returns an empty memory backend.
func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

// NewMemoryBackendWith returns a memory backend that already holds doc.
func NewMemoryBackendWith(doc appstate.Document) *MemoryBackend {
	return &MemoryBackend{doc: doc}
}

// NewCorruptMemoryBackend returns a backend whose stored bytes fail to parse.
func NewCorruptMemoryBackend(raw []byte) *MemoryBackend {
	return &MemoryBackend{raw: append([]byte(nil), raw...)}
}

// OpenMemory returns an Opener that always yields b.
func OpenMemory(b *MemoryBackend) Opener {
	return func(ctx context.Context) (Backend, error) { return b, nil }
}

func (m *MemoryBackend) Name() string { return string(KindMemory) }

func (m *MemoryBackend) Load(ctx context.Context) (appstate.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++

	if m.FailLoad != nil {
		return appstate.Document{}, m.classify(m.FailLoad)
	}
	if m.raw != nil {
		return decode(m.Name(), m.raw)
	}
	if m.doc.IsZero() {
		return appstate.Document{}, notFound(m.Name()).Build()
	}
	return m.doc, nil
}

func (m *MemoryBackend) Save(ctx context.Context, doc appstate.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++

	if m.FailSave != nil {
		return m.classify(m.FailSave)
	}
	m.doc = doc
	m.raw = nil
	return nil
}

// SetCorrupt replaces the stored value with unparseable bytes.
func (m *MemoryBackend) SetCorrupt(raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append([]byte(nil), raw...)
	m.doc = appstate.Document{}
}

// Stored returns the last successfully saved document.
func (m *MemoryBackend) Stored() appstate.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc
}

// Saves reports how many Save calls were made.
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Loads reports how many Load calls were made.
func (m *MemoryBackend) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

func (m *MemoryBackend) Close() error { return nil }

func (m *MemoryBackend) classify(err error) error {
	if derrors.IsClassified(err) {
		return err
	}
	return unavailable(m.Name(), err).Build()
}
