package queue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKBest(t *testing.T) {
	t.Run("KeepsBestK", func(t *testing.T) {
		q := NewKBest(2)
		q.Push(1, 3.0)
		q.Push(2, 1.0)
		q.Push(3, 2.0)
		q.Push(4, 0.5)

		got := q.Results()
		require.Len(t, got, 2)
		assert.Equal(t, Item{ID: 4, Distance: 0.5}, got[0])
		assert.Equal(t, Item{ID: 2, Distance: 1.0}, got[1])
	})

	t.Run("TieBrokenByAscendingID", func(t *testing.T) {
		// Candidates at distances [0, 0, 1] for ids [3, 1, 2]: top-2 must be
		// (1, 0) then (3, 0) regardless of insertion order.
		q := NewKBest(2)
		q.Push(3, 0.0)
		q.Push(1, 0.0)
		q.Push(2, 1.0)

		got := q.Results()
		require.Len(t, got, 2)
		assert.Equal(t, uint64(1), got[0].ID)
		assert.Equal(t, uint64(3), got[1].ID)
	})

	t.Run("FewerThanK", func(t *testing.T) {
		q := NewKBest(5)
		q.Push(7, 1.0)
		got := q.Results()
		require.Len(t, got, 1)
		assert.Equal(t, uint64(7), got[0].ID)
	})

	t.Run("ZeroK", func(t *testing.T) {
		q := NewKBest(0)
		q.Push(1, 1.0)
		assert.Empty(t, q.Results())
	})

	t.Run("MatchesFullSort", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		items := make([]Item, 200)
		for i := range items {
			// Coarse distances force plenty of ties.
			items[i] = Item{ID: uint64(i + 1), Distance: float32(rng.Intn(10))}
		}

		q := NewKBest(16)
		for _, it := range items {
			q.Push(it.ID, it.Distance)
		}

		want := append([]Item(nil), items...)
		sort.Slice(want, func(i, j int) bool {
			if want[i].Distance != want[j].Distance {
				return want[i].Distance < want[j].Distance
			}
			return want[i].ID < want[j].ID
		})

		assert.Equal(t, want[:16], q.Results())
	})
}
