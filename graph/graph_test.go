package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph(t *testing.T) {
	t.Run("LinkIdempotent", func(t *testing.T) {
		g := New()
		assert.True(t, g.Link(1, 2))
		assert.False(t, g.Link(1, 2))

		assert.Equal(t, []uint64{2}, g.LinksFrom(1))
		assert.Equal(t, 1, g.Len())
	})

	t.Run("TypedEdgesDistinct", func(t *testing.T) {
		g := New()
		assert.True(t, g.LinkTyped(1, 2, "cites", 0.5))
		assert.True(t, g.LinkTyped(1, 2, "refutes", 0.9))
		assert.False(t, g.LinkTyped(1, 2, "cites", 0.7))

		assert.Equal(t, 2, g.Len())
		// Distinct targets stay deduplicated regardless of edge count.
		assert.Equal(t, []uint64{2}, g.LinksFrom(1))
	})

	t.Run("ReverseLookup", func(t *testing.T) {
		g := New()
		g.Link(1, 5)
		g.Link(3, 5)
		g.Link(2, 5)

		assert.Equal(t, []uint64{1, 2, 3}, g.LinksTo(5))
		assert.Empty(t, g.LinksTo(1))
	})

	t.Run("DanglingIDsAllowed", func(t *testing.T) {
		// Edges may reference ids that exist in no partition.
		g := New()
		assert.True(t, g.Link(100, 200))
		assert.True(t, g.HasLink(100, 200))
		assert.False(t, g.HasLink(200, 100))
	})

	t.Run("AllDeterministic", func(t *testing.T) {
		g := New()
		g.LinkTyped(2, 1, "b", 1)
		g.LinkTyped(1, 2, "b", 1)
		g.LinkTyped(1, 2, "a", 1)
		g.Link(1, 1)

		all := g.All()
		require.Len(t, all, 4)
		assert.Equal(t, Edge{From: 1, To: 1, RelType: DefaultRelType, Weight: 1}, all[0])
		assert.Equal(t, "a", all[1].RelType)
		assert.Equal(t, "b", all[2].RelType)
		assert.Equal(t, uint64(2), all[3].From)
	})

	t.Run("EdgesAndIncoming", func(t *testing.T) {
		g := New()
		g.LinkTyped(1, 2, "cites", 0.5)

		out := g.Edges(1)
		require.Len(t, out, 1)
		assert.Equal(t, Edge{From: 1, To: 2, RelType: "cites", Weight: 0.5}, out[0])

		in := g.Incoming(2)
		require.Len(t, in, 1)
		assert.Equal(t, out[0], in[0])
	})
}

func TestExportJSON(t *testing.T) {
	g := New()
	g.Link(1, 2)
	g.Link(2, 3) // 3 is not exported: edge must be dropped

	data, err := g.ExportJSON([]ExportNode{
		{ID: 2, Label: "second"},
		{ID: 1, Label: "first"},
	})
	require.NoError(t, err)

	var doc Export
	require.NoError(t, json.Unmarshal(data, &doc))

	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, uint64(1), doc.Nodes[0].ID)
	assert.Equal(t, uint64(2), doc.Nodes[1].ID)

	require.Len(t, doc.Edges, 1)
	assert.Equal(t, uint64(1), doc.Edges[0].Source)
	assert.Equal(t, uint64(2), doc.Edges[0].Target)
	assert.Equal(t, DefaultRelType, doc.Edges[0].RelType)
}
