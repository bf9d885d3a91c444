package feather

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feather-store/feather/blobstore"
)

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	db, _ := openTestDB(t, 3)
	require.NoError(t, db.Add(1, []float32{1, 2, 3}))
	require.NoError(t, db.Add(2, []float32{4, 5, 6}))
	db.Link(1, 2)

	require.NoError(t, db.Snapshot(ctx, store, "backup-1"))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"backup-1"}, names)

	restored, err := Restore(ctx, store, "backup-1", filepath.Join(t.TempDir(), "restored.db"))
	require.NoError(t, err)
	defer restored.Close()

	assert.Equal(t, 3, restored.Dim())
	assert.Equal(t, 2, restored.Len())
	assert.Equal(t, []uint64{2}, restored.LinksFrom(1))

	vec, ok := restored.Vector(1, "")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, vec)
}

func TestRestoreMissing(t *testing.T) {
	_, err := Restore(context.Background(), blobstore.NewMemoryStore(), "nope",
		filepath.Join(t.TempDir(), "x.db"))
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestRestoreCorruptBlob(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "bad", []byte("not a snapshot")))

	path := filepath.Join(t.TempDir(), "x.db")
	_, err := Restore(ctx, store, "bad", path)
	require.ErrorIs(t, err, ErrCorruptData)

	// The corrupt blob never reaches the filesystem.
	_, statErr := filepath.Glob(path)
	require.NoError(t, statErr)
	assert.NoFileExists(t, path)
}

func TestSnapshotDimensionConflictOnRestore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	db, _ := openTestDB(t, 3)
	require.NoError(t, db.Snapshot(ctx, store, "snap"))

	_, err := Restore(ctx, store, "snap", filepath.Join(t.TempDir(), "y.db"),
		WithDimension(8))
	require.ErrorIs(t, err, ErrDimensionConflict)
}
