package flat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feather-store/feather/distance"
	"github.com/feather-store/feather/index"
	"github.com/feather-store/feather/metadata"
)

func newTestIndex(t *testing.T) *Flat {
	t.Helper()
	fn, err := distance.Provider(distance.MetricEuclidean)
	require.NoError(t, err)
	return New(3, fn)
}

func TestFlat(t *testing.T) {
	t.Run("Upsert", func(t *testing.T) {
		f := newTestIndex(t)

		require.NoError(t, f.Upsert(1, []float32{1, 2, 3}, metadata.Default()))
		assert.Equal(t, 1, f.Len())

		// Dimension mismatch leaves the index unchanged.
		err := f.Upsert(2, []float32{1, 2}, metadata.Default())
		require.Error(t, err)
		assert.IsType(t, &index.ErrDimensionMismatch{}, err)
		assert.Equal(t, 1, f.Len())
	})

	t.Run("OverwriteLastWriteWins", func(t *testing.T) {
		f := newTestIndex(t)

		require.NoError(t, f.Upsert(5, []float32{1, 0, 0}, metadata.Default()))
		require.NoError(t, f.Upsert(5, []float32{0, 1, 0}, metadata.Metadata{Importance: 2, ContextType: 3}))

		assert.Equal(t, 1, f.Len())
		vec, ok := f.Vector(5)
		require.True(t, ok)
		assert.Equal(t, []float32{0, 1, 0}, vec)

		meta, ok := f.Meta(5)
		require.True(t, ok)
		assert.Equal(t, uint8(3), meta.ContextType)
	})

	t.Run("SearchOrdering", func(t *testing.T) {
		f := newTestIndex(t)
		require.NoError(t, f.Upsert(1, []float32{1, 2, 3}, metadata.Default()))
		require.NoError(t, f.Upsert(2, []float32{4, 5, 6}, metadata.Default()))
		require.NoError(t, f.Upsert(3, []float32{7, 8, 9}, metadata.Default()))

		got, err := f.Search([]float32{0, 0, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, uint64(1), got[0].ID)
		assert.Equal(t, uint64(2), got[1].ID)
		assert.Less(t, got[0].Distance, got[1].Distance)
	})

	t.Run("SearchTieBreak", func(t *testing.T) {
		f := newTestIndex(t)
		// ids 3 and 1 at identical distance, id 2 further away.
		require.NoError(t, f.Upsert(3, []float32{1, 0, 0}, metadata.Default()))
		require.NoError(t, f.Upsert(1, []float32{0, 1, 0}, metadata.Default()))
		require.NoError(t, f.Upsert(2, []float32{3, 0, 0}, metadata.Default()))

		got, err := f.Search([]float32{0, 0, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, uint64(1), got[0].ID)
		assert.Equal(t, uint64(3), got[1].ID)
	})

	t.Run("SearchDimensionMismatch", func(t *testing.T) {
		f := newTestIndex(t)
		_, err := f.Search([]float32{0, 0}, 1, nil)
		require.Error(t, err)
		assert.IsType(t, &index.ErrDimensionMismatch{}, err)
	})

	t.Run("KLargerThanCandidates", func(t *testing.T) {
		f := newTestIndex(t)
		require.NoError(t, f.Upsert(1, []float32{1, 0, 0}, metadata.Default()))

		got, err := f.Search([]float32{0, 0, 0}, 10, nil)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("ZeroK", func(t *testing.T) {
		f := newTestIndex(t)
		require.NoError(t, f.Upsert(1, []float32{1, 0, 0}, metadata.Default()))

		got, err := f.Search([]float32{0, 0, 0}, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("TypedFilterUsesBitmap", func(t *testing.T) {
		f := newTestIndex(t)
		require.NoError(t, f.Upsert(1, []float32{1, 0, 0}, metadata.Metadata{ContextType: 1}))
		require.NoError(t, f.Upsert(2, []float32{0, 1, 0}, metadata.Metadata{ContextType: 2}))
		require.NoError(t, f.Upsert(3, []float32{0, 0, 1}, metadata.Metadata{ContextType: 2}))

		got, err := f.Search([]float32{0, 0, 0}, 10, &metadata.Filter{ContextType: metadata.Uint8(2)})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, uint64(2), got[0].ID)
		assert.Equal(t, uint64(3), got[1].ID)

		// Overwriting with a new type moves the row between bitmaps.
		require.NoError(t, f.Upsert(2, []float32{0, 1, 0}, metadata.Metadata{ContextType: 1}))
		got, err = f.Search([]float32{0, 0, 0}, 10, &metadata.Filter{ContextType: metadata.Uint8(2)})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint64(3), got[0].ID)
	})

	t.Run("FilterConjunction", func(t *testing.T) {
		f := newTestIndex(t)
		web := metadata.String("web")
		require.NoError(t, f.Upsert(1, []float32{1, 0, 0}, metadata.Metadata{ContextType: 2, Source: web}))

		// Type matches, source does not: excluded.
		got, err := f.Search([]float32{0, 0, 0}, 5, &metadata.Filter{
			ContextType: metadata.Uint8(2),
			Source:      metadata.String("cli"),
		})
		require.NoError(t, err)
		assert.Empty(t, got)

		// Both match: included.
		got, err = f.Search([]float32{0, 0, 0}, 5, &metadata.Filter{
			ContextType: metadata.Uint8(2),
			Source:      metadata.String("web"),
		})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("IDsSorted", func(t *testing.T) {
		f := newTestIndex(t)
		require.NoError(t, f.Upsert(9, []float32{1, 0, 0}, metadata.Default()))
		require.NoError(t, f.Upsert(3, []float32{0, 1, 0}, metadata.Default()))
		require.NoError(t, f.Upsert(7, []float32{0, 0, 1}, metadata.Default()))

		assert.Equal(t, []uint64{3, 7, 9}, f.IDs())
	})

	t.Run("UpdateMeta", func(t *testing.T) {
		f := newTestIndex(t)
		require.NoError(t, f.Upsert(1, []float32{1, 0, 0}, metadata.Default()))

		ok := f.UpdateMeta(1, func(m *metadata.Metadata) {
			m.RecallCount++
			m.ContextType = 4
		})
		require.True(t, ok)

		meta, _ := f.Meta(1)
		assert.Equal(t, uint32(1), meta.RecallCount)

		// The type bitmap follows the metadata mutation.
		got, err := f.Search([]float32{0, 0, 0}, 1, &metadata.Filter{ContextType: metadata.Uint8(4)})
		require.NoError(t, err)
		assert.Len(t, got, 1)

		assert.False(t, f.UpdateMeta(99, func(*metadata.Metadata) {}))
	})
}

func TestFlatParallelScanMatchesSerial(t *testing.T) {
	fn, err := distance.Provider(distance.MetricEuclidean)
	require.NoError(t, err)
	f := New(4, fn)

	// Enough rows to cross the parallel threshold, with deliberate distance
	// collisions so tie-breaking is exercised.
	n := parallelScanThreshold + 512
	for i := 0; i < n; i++ {
		v := float32(i % 17)
		require.NoError(t, f.Upsert(uint64(i+1), []float32{v, 0, 0, 0}, metadata.Default()))
	}

	query := []float32{0, 0, 0, 0}
	parallel, err := f.Search(query, 25, nil)
	require.NoError(t, err)

	serial := f.scanRange(query, 25, nil, 0, f.Len())
	require.Len(t, parallel, 25)
	require.Len(t, serial, 25)
	for i := range serial {
		assert.Equal(t, serial[i].ID, parallel[i].ID)
		assert.Equal(t, serial[i].Distance, parallel[i].Distance)
	}
}
