package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreRecordAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rev, err := s.Record(ctx, NewRevision(ReasonSeed, "file", []byte(`{"users":{}}`), true))
	require.NoError(t, err)
	assert.NotEmpty(t, rev.ID)
	assert.Equal(t, 12, rev.Size)

	got, err := s.Get(ctx, rev.ID)
	require.NoError(t, err)
	assert.Equal(t, rev.ID, got.ID)
	assert.Equal(t, ReasonSeed, got.Reason)
	assert.Equal(t, "file", got.Backend)
	assert.True(t, got.Valid)
	assert.Equal(t, []byte(`{"users":{}}`), got.Payload)
	assert.WithinDuration(t, rev.CreatedAt, got.CreatedAt, time.Microsecond)
}

func TestSQLiteStoreFillsMissingFields(t *testing.T) {
	s := newTestStore(t)
	rev, err := s.Record(context.Background(), Revision{Reason: ReasonQuarantine, Backend: "file", Payload: []byte("{bro")})
	require.NoError(t, err)
	assert.NotEmpty(t, rev.ID)
	assert.False(t, rev.CreatedAt.IsZero())
	assert.Equal(t, 4, rev.Size)

	got, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, got.Valid)
	assert.Equal(t, ReasonQuarantine, got.Reason)
}

func TestSQLiteStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Latest(ctx)
	assert.True(t, errors.Is(err, ErrRevisionNotFound))

	_, err = s.Get(ctx, "does-not-exist")
	assert.True(t, errors.Is(err, ErrRevisionNotFound))
}

func TestSQLiteStoreListAndPrune(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		rev, err := s.Record(ctx, NewRevision(ReasonUpdate, "remote", []byte(`{}`), true))
		require.NoError(t, err)
		ids = append(ids, rev.ID)
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, ids[4], all[0].ID, "newest first")
	assert.Nil(t, all[0].Payload, "list does not load payloads")

	two, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	removed, err := s.Prune(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	left, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, left, 3)
	assert.Equal(t, []string{ids[4], ids[3], ids[2]}, []string{left[0].ID, left[1].ID, left[2].ID})

	removed, err = s.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	rev, err := s.Record(context.Background(), NewRevision(ReasonSnapshot, "bolt", []byte(`{"a":1}`), true))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.Get(context.Background(), rev.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got.Payload)
}

func TestSQLiteStoreListByReason(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Record(ctx, NewRevision(ReasonSeed, "file", []byte(`{}`), true))
	require.NoError(t, err)
	upd, err := s.Record(ctx, NewRevision(ReasonUpdate, "file", []byte(`{"a":1}`), true))
	require.NoError(t, err)
	_, err = s.Record(ctx, NewRevision(ReasonSnapshot, "file", []byte(`{"a":1}`), true))
	require.NoError(t, err)

	got, err := s.ListByReason(ctx, ReasonUpdate, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, upd.ID, got[0].ID)

	all, err := s.ListByReason(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestParseReason(t *testing.T) {
	r, err := ParseReason(" Update ")
	require.NoError(t, err)
	assert.Equal(t, ReasonUpdate, r)

	r, err = ParseReason("")
	require.NoError(t, err)
	assert.Empty(t, r)

	_, err = ParseReason("backup")
	assert.Error(t, err)
}
