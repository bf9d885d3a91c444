package feather

import (
	"math"
	"sort"

	"github.com/feather-store/feather/distance"
	"github.com/feather-store/feather/graph"
	"github.com/feather-store/feather/metadata"
)

// ContextNode is one entry reached by ContextChain.
type ContextNode struct {
	ID uint64

	// Hop is the link distance from the nearest seed; seeds are hop 0.
	Hop int

	// Similarity is the query similarity for seed nodes, zero for
	// nodes reached only through links.
	Similarity float32

	// Score combines the base relevance with the entry's importance
	// and recall history.
	Score float32

	Meta metadata.Metadata
}

// ContextChainResult holds the nodes and edges of a context chain
// walk. Nodes are ordered by descending score, edges by (from, to,
// relType).
type ContextChainResult struct {
	Nodes []ContextNode
	Edges []graph.Edge
}

// ContextChain searches the given modality partition for the k nearest
// entries to query, then expands the result through the link graph up
// to hops levels, following edges in both directions. Each node is
// scored
//
//	base * importance * (1 + ln(1 + recalls))
//
// where base is the query similarity for seeds and 1/(1+hop) for
// expanded nodes.
func (db *DB) ContextChain(query []float32, k, hops int, modality string) (*ContextChainResult, error) {
	if modality == "" {
		modality = DefaultModality
	}
	if hops < 0 {
		hops = 0
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}

	res := &ContextChainResult{}

	part, ok := db.parts[modality]
	if !ok || k <= 0 {
		return res, nil
	}

	hits, err := part.Search(query, k, nil)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return res, nil
	}

	// visited maps id to the hop it was first reached at.
	visited := make(map[uint64]int, len(hits))
	similarity := make(map[uint64]float32, len(hits))
	frontier := make([]uint64, 0, len(hits))

	for _, h := range hits {
		visited[h.ID] = 0
		similarity[h.ID] = distance.Similarity(h.Distance)
		frontier = append(frontier, h.ID)
	}

	for hop := 1; hop <= hops && len(frontier) > 0; hop++ {
		var next []uint64
		for _, id := range frontier {
			for _, nb := range db.neighbors(id) {
				if _, seen := visited[nb]; seen {
					continue
				}
				visited[nb] = hop
				next = append(next, nb)
			}
		}
		frontier = next
	}

	res.Nodes = make([]ContextNode, 0, len(visited))
	for id, hop := range visited {
		meta, ok := part.Meta(id)
		if !ok {
			// Reached through a link from another partition or a
			// dangling edge; score it with default metadata.
			meta = metadata.Default()
		}

		base := similarity[id]
		if hop > 0 {
			base = 1 / float32(1+hop)
		}

		stickiness := 1 + float32(math.Log1p(float64(meta.RecallCount)))
		res.Nodes = append(res.Nodes, ContextNode{
			ID:         id,
			Hop:        hop,
			Similarity: similarity[id],
			Score:      base * meta.Importance * stickiness,
			Meta:       meta,
		})
	}

	sort.Slice(res.Nodes, func(i, j int) bool {
		if res.Nodes[i].Score != res.Nodes[j].Score {
			return res.Nodes[i].Score > res.Nodes[j].Score
		}
		return res.Nodes[i].ID < res.Nodes[j].ID
	})

	res.Edges = db.chainEdges(visited)

	return res, nil
}

// neighbors returns the ids adjacent to id over either edge direction.
func (db *DB) neighbors(id uint64) []uint64 {
	out := db.links.LinksFrom(id)
	in := db.links.LinksTo(id)
	if len(in) == 0 {
		return out
	}
	if len(out) == 0 {
		return in
	}

	merged := make([]uint64, 0, len(out)+len(in))
	merged = append(merged, out...)
	merged = append(merged, in...)
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })

	// Drop duplicates from bidirectional pairs.
	dedup := merged[:1]
	for _, v := range merged[1:] {
		if v != dedup[len(dedup)-1] {
			dedup = append(dedup, v)
		}
	}

	return dedup
}

// chainEdges returns the edges with both endpoints in the visited set,
// sorted by (from, to, relType).
func (db *DB) chainEdges(visited map[uint64]int) []graph.Edge {
	var edges []graph.Edge
	for id := range visited {
		for _, e := range db.links.Edges(id) {
			if _, ok := visited[e.To]; ok {
				edges = append(edges, e)
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].RelType < edges[j].RelType
	})

	return edges
}
