package statestore

import (
	"context"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
	"git.home.luguber.info/inful/lobserver/internal/foundation/normalization"
)

// Backend persists one whole AppState document.
type Backend interface {
	// Name identifies the backend kind in logs, metrics and status output.
	Name() string
	// Load returns the persisted document, ErrNotFound, ErrBackendUnavailable or ErrParse.
	Load(ctx context.Context) (appstate.Document, error)
	// Save replaces the persisted document wholesale.
	Save(ctx context.Context, doc appstate.Document) error
	Close() error
}

// Prober is implemented by backends that can check their own health
// without reading the document.
type Prober interface {
	Probe(ctx context.Context) error
}

// Quarantined describes a corrupt document moved out of the way.
type Quarantined struct {
	// Location is where the corrupt bytes now live.
	Location string
	// Raw holds the corrupt bytes.
	Raw []byte
}

// Quarantiner is implemented by backends that can set a corrupt document
// aside before it is overwritten.
type Quarantiner interface {
	Quarantine(ctx context.Context) (Quarantined, error)
}

// Opener constructs a backend. Construction failures must be ErrBackendUnavailable.
type Opener func(ctx context.Context) (Backend, error)

// Kind selects a backend implementation.
type Kind string

const (
	KindAuto   Kind = "auto"
	KindRemote Kind = "remote"
	KindFile   Kind = "file"
	KindBolt   Kind = "bolt"
	KindMemory Kind = "memory"
)

var kindNormalizer = normalization.NewNormalizer("backend", map[string]Kind{
	"auto":   KindAuto,
	"remote": KindRemote,
	"nats":   KindRemote,
	"file":   KindFile,
	"local":  KindFile,
	"bolt":   KindBolt,
	"memory": KindMemory,
}, KindAuto)

// ParseKind normalizes a backend name. Empty input means KindAuto.
func ParseKind(raw string) (Kind, error) {
	return kindNormalizer.Parse(raw)
}
