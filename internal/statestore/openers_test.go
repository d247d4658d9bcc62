package statestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestSelectionPreferred(t *testing.T) {
	assert.Equal(t, KindFile, Selection{}.Preferred())
	assert.Equal(t, KindFile, Selection{Kind: KindAuto, Credentials: []byte("  ")}.Preferred())
	assert.Equal(t, KindRemote, Selection{Kind: KindAuto, Credentials: []byte(`{"url":"nats://h:1"}`)}.Preferred())
	assert.Equal(t, KindBolt, Selection{Kind: KindBolt, Credentials: []byte(`{"url":"nats://h:1"}`)}.Preferred())
}

func TestOpenersFallbackIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	primary, fallback := Openers(Selection{Kind: KindRemote, File: FileConfig{Path: path}})
	require.NotNil(t, primary)
	require.NotNil(t, fallback)

	_, err := primary(context.Background())
	assert.True(t, IsUnavailable(err), "remote without credentials must be unavailable")

	b, err := fallback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "file", b.Name())
	assert.Equal(t, path, b.(*FileBackend).Path())
}

func TestOpenersFileHasNoFallback(t *testing.T) {
	primary, fallback := Openers(Selection{Kind: KindFile})
	assert.NotNil(t, primary)
	assert.Nil(t, fallback)

	_, fallback = Openers(Selection{Kind: KindMemory})
	assert.Nil(t, fallback)
}
