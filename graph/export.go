package graph

import (
	"encoding/json"
	"sort"
)

// ExportNode is one node in a graph export, shaped for D3/Cytoscape
// consumers.
type ExportNode struct {
	ID          uint64            `json:"id"`
	Label       string            `json:"label"`
	Namespace   string            `json:"namespace_id"`
	Entity      string            `json:"entity_id"`
	Type        uint8             `json:"type"`
	Source      string            `json:"source"`
	Importance  float32           `json:"importance"`
	RecallCount uint32            `json:"recall_count"`
	Timestamp   int64             `json:"timestamp"`
	Attributes  map[string]string `json:"attributes"`
}

// ExportEdge is one edge in a graph export.
type ExportEdge struct {
	Source  uint64  `json:"source"`
	Target  uint64  `json:"target"`
	RelType string  `json:"rel_type"`
	Weight  float32 `json:"weight"`
}

// Export is the JSON document produced by ExportJSON.
type Export struct {
	Nodes []ExportNode `json:"nodes"`
	Edges []ExportEdge `json:"edges"`
}

// ExportJSON marshals the given nodes together with every edge whose both
// endpoints appear in the node set. Dangling edges are dropped so the
// document is always self-contained. Nodes are emitted in ascending id
// order, edges in (from, to, relType) order.
func (g *Graph) ExportJSON(nodes []ExportNode) ([]byte, error) {
	sorted := append([]ExportNode(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	exported := make(map[uint64]struct{}, len(sorted))
	for _, n := range sorted {
		exported[n.ID] = struct{}{}
	}

	edges := make([]ExportEdge, 0)
	for _, e := range g.All() {
		if _, ok := exported[e.From]; !ok {
			continue
		}
		if _, ok := exported[e.To]; !ok {
			continue
		}
		edges = append(edges, ExportEdge{Source: e.From, Target: e.To, RelType: e.RelType, Weight: e.Weight})
	}

	return json.Marshal(Export{Nodes: sorted, Edges: edges})
}
