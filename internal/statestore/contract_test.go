package statestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/lobserver/internal/appstate"
)

// Every backend must satisfy save-then-load identity and report NotFound
// before the first write.
func TestBackendContract(t *testing.T) {
	factories := map[string]func(t *testing.T) Backend{
		"file": func(t *testing.T) Backend {
			return NewFileBackend(FileConfig{Path: filepath.Join(t.TempDir(), "db.json")})
		},
		"bolt": func(t *testing.T) Backend {
			b, err := OpenBolt(BoltConfig{Path: filepath.Join(t.TempDir(), "state.db")})
			require.NoError(t, err)
			return b
		},
		"remote": func(t *testing.T) Backend {
			return newRemoteBackend(RemoteConfig{}, newFakeKV())
		},
		"memory": func(t *testing.T) Backend {
			return NewMemoryBackend()
		},
	}

	docs := []appstate.Document{
		appstate.MustParse(`{}`),
		appstate.MustParse(`{"users":{"Emil":{"password":"x","extra":[1,2.50,{"n":null}]}},"logs":[],"rewards":[]}`),
		appstate.MustParse(`{"big":12345678901234567890,"unicode":"Æøå 🎉"}`),
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			defer func() { _ = b.Close() }()

			_, err := b.Load(ctx)
			require.Error(t, err)
			assert.True(t, IsNotFound(err), "want not found, got %v", err)

			for _, doc := range docs {
				require.NoError(t, b.Save(ctx, doc))
				got, err := b.Load(ctx)
				require.NoError(t, err)
				assert.True(t, doc.Equal(got), "round trip changed %s into %s", doc.Bytes(), got.Bytes())
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"":       KindAuto,
		"auto":   KindAuto,
		"REMOTE": KindRemote,
		"nats":   KindRemote,
		" file ": KindFile,
		"local":  KindFile,
		"bolt":   KindBolt,
		"memory": KindMemory,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("mongo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid options: auto, bolt, file, local, memory, nats, remote")
}

func TestMemoryBackendFailureInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()
	m.FailSave = assert.AnError

	err := m.Save(ctx, appstate.MustParse(`{"a":1}`))
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, m.Stored().IsZero())

	m.FailSave = nil
	m.SetCorrupt([]byte("not json"))
	_, err = m.Load(ctx)
	assert.True(t, IsParse(err))
}
