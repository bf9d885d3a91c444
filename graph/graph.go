// Package graph implements the directed link graph between entry identifiers.
//
// Edges are associative: they reference ids that need not exist in any vector
// partition, and they survive independent of entry lifecycle. An edge is a set
// member keyed by (from, to, relation type); re-linking the same triple is a
// no-op.
package graph

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// DefaultRelType is the relation type used by untyped links.
const DefaultRelType = "related_to"

// Edge is a directed, typed, weighted association between two entry ids.
type Edge struct {
	From    uint64
	To      uint64
	RelType string
	Weight  float32
}

// Graph holds the edge set with forward and reverse adjacency.
type Graph struct {
	out map[uint64][]Edge
	in  map[uint64][]Edge

	// outSet mirrors out as target-id bitmaps for cheap membership checks
	// and sorted neighbor iteration.
	outSet map[uint64]*roaring64.Bitmap
	inSet  map[uint64]*roaring64.Bitmap

	size int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		out:    make(map[uint64][]Edge),
		in:     make(map[uint64][]Edge),
		outSet: make(map[uint64]*roaring64.Bitmap),
		inSet:  make(map[uint64]*roaring64.Bitmap),
	}
}

// Link inserts the edge (from, to) with the default relation type and weight 1.
// It reports whether a new edge was created.
func (g *Graph) Link(from, to uint64) bool {
	return g.LinkTyped(from, to, DefaultRelType, 1)
}

// LinkTyped inserts a typed, weighted edge. Inserting an edge whose
// (from, to, relType) triple already exists is a no-op, regardless of weight.
// It reports whether a new edge was created.
func (g *Graph) LinkTyped(from, to uint64, relType string, weight float32) bool {
	if set, ok := g.outSet[from]; ok && set.Contains(to) {
		// Same target already linked; only a new relation type adds an edge.
		for _, e := range g.out[from] {
			if e.To == to && e.RelType == relType {
				return false
			}
		}
	}

	e := Edge{From: from, To: to, RelType: relType, Weight: weight}
	g.out[from] = append(g.out[from], e)
	g.in[to] = append(g.in[to], e)
	g.bitmap(g.outSet, from).Add(to)
	g.bitmap(g.inSet, to).Add(from)
	g.size++
	return true
}

// LinksFrom returns the distinct target ids linked from id, ascending.
func (g *Graph) LinksFrom(id uint64) []uint64 {
	return bitmapSlice(g.outSet[id])
}

// LinksTo returns the distinct source ids linking to id, ascending.
func (g *Graph) LinksTo(id uint64) []uint64 {
	return bitmapSlice(g.inSet[id])
}

// Edges returns the outgoing edges of id in insertion order.
func (g *Graph) Edges(id uint64) []Edge {
	return append([]Edge(nil), g.out[id]...)
}

// Incoming returns the incoming edges of id in insertion order.
func (g *Graph) Incoming(id uint64) []Edge {
	return append([]Edge(nil), g.in[id]...)
}

// HasLink reports whether any edge from -> to exists.
func (g *Graph) HasLink(from, to uint64) bool {
	set, ok := g.outSet[from]
	return ok && set.Contains(to)
}

// Len returns the total number of edges.
func (g *Graph) Len() int { return g.size }

// All returns every edge ordered by (from, to, relType) for deterministic
// serialization and export.
func (g *Graph) All() []Edge {
	edges := make([]Edge, 0, g.size)
	for _, out := range g.out {
		edges = append(edges, out...)
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.RelType < b.RelType
	})
	return edges
}

func (g *Graph) bitmap(m map[uint64]*roaring64.Bitmap, id uint64) *roaring64.Bitmap {
	bm, ok := m[id]
	if !ok {
		bm = roaring64.New()
		m[id] = bm
	}
	return bm
}

func bitmapSlice(bm *roaring64.Bitmap) []uint64 {
	if bm == nil || bm.IsEmpty() {
		return nil
	}
	out := make([]uint64, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, it.Next())
	}
	return out
}
