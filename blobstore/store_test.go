package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract exercises the behavior every Store implementation shares.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PutGet", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "a", []byte("alpha")))

		data, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("alpha"), data)
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "a", []byte("alpha")))
		require.NoError(t, s.Put(ctx, "a", []byte("beta")))

		data, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("beta"), data)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "snap-2", nil))
		require.NoError(t, s.Put(ctx, "snap-1", nil))
		require.NoError(t, s.Put(ctx, "other", nil))

		names, err := s.List(ctx, "snap-")
		require.NoError(t, err)
		assert.Equal(t, []string{"snap-1", "snap-2"}, names)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "gone", []byte("x")))
		require.NoError(t, s.Delete(ctx, "gone"))

		_, err := s.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)

		// Idempotent.
		assert.NoError(t, s.Delete(ctx, "gone"))
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	storeContract(t, s)

	t.Run("RejectsNestedNames", func(t *testing.T) {
		ctx := context.Background()
		assert.Error(t, s.Put(ctx, "../escape", nil))
		assert.Error(t, s.Put(ctx, "a/b", nil))
		assert.Error(t, s.Put(ctx, "", nil))
	})
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data := []byte("mutable")
	require.NoError(t, s.Put(ctx, "a", data))
	data[0] = 'X'

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), got)

	// Mutating the returned slice must not affect the stored blob.
	got[0] = 'Y'
	again, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("mutable"), again)
}
