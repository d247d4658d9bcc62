package statestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
)

// DefaultFilePath is the historical location of the local database file.
const DefaultFilePath = "db.json"

// FileConfig configures the local-file backend.
type FileConfig struct {
	Path string
}

// FileBackend stores the document as one indented JSON file.
type FileBackend struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileBackend creates a file backend. The file itself is not touched
// until the first Load or Save.
func NewFileBackend(cfg FileConfig) *FileBackend {
	path := cfg.Path
	if path == "" {
		path = DefaultFilePath
	}
	return &FileBackend{path: filepath.Clean(path), now: time.Now}
}

// OpenFile returns an Opener for the file backend.
func OpenFile(cfg FileConfig) Opener {
	return func(ctx context.Context) (Backend, error) {
		return NewFileBackend(cfg), nil
	}
}

func (b *FileBackend) Name() string { return string(KindFile) }

// Path returns the document file location.
func (b *FileBackend) Path() string { return b.path }

// Probe checks that the parent directory exists (creating it if needed) and is writable.
func (b *FileBackend) Probe(ctx context.Context) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return unavailable(b.Name(), describePathErr("create data directory", err)).
			WithContext("path", b.path).Build()
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return unavailable(b.Name(), describePathErr("write probe", err)).
			WithContext("path", b.path).Build()
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}

// Load reads and validates the document file.
func (b *FileBackend) Load(ctx context.Context) (appstate.Document, error) {
	if err := ctx.Err(); err != nil {
		return appstate.Document{}, unavailable(b.Name(), err).Build()
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return appstate.Document{}, notFound(b.Name()).WithContext("path", b.path).Build()
		}
		return appstate.Document{}, unavailable(b.Name(), describePathErr("read state file", err)).
			WithContext("path", b.path).Build()
	}

	doc, err := appstate.Parse(data)
	if err != nil {
		return appstate.Document{}, parseFailure(b.Name(), err).WithContext("path", b.path).Build()
	}
	return doc, nil
}

// Save writes the document atomically using a temporary file and rename.
func (b *FileBackend) Save(ctx context.Context, doc appstate.Document) error {
	if err := ctx.Err(); err != nil {
		return unavailable(b.Name(), err).Build()
	}
	data, err := doc.Indent()
	if err != nil {
		return unavailable(b.Name(), fmt.Errorf("encode document: %w", err)).Build()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return unavailable(b.Name(), describePathErr("create data directory", err)).
			WithContext("path", b.path).Build()
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return unavailable(b.Name(), describePathErr("create temporary state file", err)).
			WithContext("path", b.path).Build()
	}
	tempPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tempPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return unavailable(b.Name(), describePathErr("write temporary state file", err)).
			WithContext("path", b.path).Build()
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return unavailable(b.Name(), describePathErr("sync temporary state file", err)).
			WithContext("path", b.path).Build()
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return unavailable(b.Name(), describePathErr("close temporary state file", err)).
			WithContext("path", b.path).Build()
	}
	if err := os.Chmod(tempPath, 0o644); err != nil {
		cleanup()
		return unavailable(b.Name(), describePathErr("chmod temporary state file", err)).
			WithContext("path", b.path).Build()
	}
	if err := os.Rename(tempPath, b.path); err != nil {
		cleanup()
		return unavailable(b.Name(), describePathErr("replace state file", err)).
			WithContext("path", b.path).Build()
	}
	return nil
}

// Quarantine renames the current file to <path>.corrupt-<timestamp> and
// returns its bytes, so a following Save cannot destroy them.
func (b *FileBackend) Quarantine(ctx context.Context) (Quarantined, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	raw, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Quarantined{}, notFound(b.Name()).WithContext("path", b.path).Build()
		}
		return Quarantined{}, unavailable(b.Name(), describePathErr("read corrupt state file", err)).
			WithContext("path", b.path).Build()
	}

	target := fmt.Sprintf("%s.corrupt-%s", b.path, b.now().UTC().Format("20060102T150405.000000000Z"))
	if err := os.Rename(b.path, target); err != nil {
		return Quarantined{}, unavailable(b.Name(), describePathErr("move corrupt state file", err)).
			WithContext("path", b.path).Build()
	}
	return Quarantined{Location: target, Raw: raw}, nil
}

func (b *FileBackend) Close() error { return nil }
