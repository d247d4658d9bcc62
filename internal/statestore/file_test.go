package statestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
	derrors "git.home.luguber.info/inful/lobserver/internal/foundation/errors"
)

func TestFileBackendLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	b := NewFileBackend(FileConfig{Path: path})

	_, err := b.Load(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	ce, ok := derrors.AsClassified(err)
	require.True(t, ok)
	got, _ := ce.Context().GetString("path")
	assert.Equal(t, path, got)
}

func TestFileBackendLoadCorrupt(t *testing.T) {
	for name, content := range map[string]string{
		"truncated": `{"users":{`,
		"array":     `[1,2,3]`,
		"null":      `null`,
		"empty":     ``,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := NewFileBackend(FileConfig{Path: path}).Load(context.Background())
			require.Error(t, err)
			assert.True(t, IsParse(err), "got %v", err)
			assert.False(t, IsUnavailable(err))
		})
	}
}

func TestFileBackendLoadUnreadable(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be cannot be read as a file.
	path := filepath.Join(dir, "db.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err := NewFileBackend(FileConfig{Path: path}).Load(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestFileBackendSaveWritesIndentedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db.json")
	b := NewFileBackend(FileConfig{Path: path})

	require.NoError(t, b.Save(context.Background(), appstate.MustParse(`{"logs":[],"users":{"Emil":{"lastSeenScore":3}}}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"logs\": [],\n  \"users\": {\n    \"Emil\": {\n      \"lastSeenScore\": 3\n    }\n  }\n}", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileBackendSaveRejectsZeroDocument(t *testing.T) {
	b := NewFileBackend(FileConfig{Path: filepath.Join(t.TempDir(), "db.json")})
	err := b.Save(context.Background(), appstate.Document{})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestFileBackendQuarantine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users":`), 0o644))

	b := NewFileBackend(FileConfig{Path: path})
	b.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	q, err := b.Quarantine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"users":`), q.Raw)
	assert.Equal(t, path+".corrupt-20240301T120000.000000000Z", q.Location)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	kept, err := os.ReadFile(q.Location)
	require.NoError(t, err)
	assert.Equal(t, q.Raw, kept)

	_, err = b.Quarantine(context.Background())
	assert.True(t, IsNotFound(err))
}

func TestFileBackendProbe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "db.json")
	b := NewFileBackend(FileConfig{Path: path})
	require.NoError(t, b.Probe(context.Background()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".probe-"), "probe file left behind")
	}
}

func TestFileBackendCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewFileBackend(FileConfig{Path: filepath.Join(t.TempDir(), "db.json")})
	_, err := b.Load(ctx)
	assert.True(t, IsUnavailable(err))
	assert.True(t, IsUnavailable(b.Save(ctx, appstate.MustParse(`{}`))))
}
