package feather

import (
	"github.com/feather-store/feather/graph"
	"github.com/feather-store/feather/metadata"
)

// maxExportLabel caps node labels at a display-friendly length.
const maxExportLabel = 60

// ExportGraph renders the link graph as a JSON document of nodes and
// edges, suitable for D3 or Cytoscape. Nodes come from every partition;
// non-empty namespace or entity arguments restrict the node set, and
// edges with an endpoint outside it are dropped.
func (db *DB) ExportGraph(namespace, entity string) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}

	var nodes []graph.ExportNode
	for _, name := range db.modalityNames() {
		db.parts[name].Iterate(func(id uint64, _ []float32, meta metadata.Metadata) bool {
			if namespace != "" && meta.Namespace != namespace {
				return true
			}
			if entity != "" && meta.Entity != entity {
				return true
			}
			nodes = append(nodes, exportNode(id, meta))
			return true
		})
	}

	return db.links.ExportJSON(nodes)
}

func exportNode(id uint64, meta metadata.Metadata) graph.ExportNode {
	n := graph.ExportNode{
		ID:          id,
		Namespace:   meta.Namespace,
		Entity:      meta.Entity,
		Type:        meta.ContextType,
		Importance:  meta.Importance,
		RecallCount: meta.RecallCount,
		Timestamp:   meta.Timestamp,
		Attributes:  meta.Attributes,
	}
	if meta.Source != nil {
		n.Source = *meta.Source
	}
	if meta.Content != nil {
		n.Label = label(*meta.Content)
	}

	return n
}

// label truncates content for display without splitting a rune.
func label(content string) string {
	if len(content) <= maxExportLabel {
		return content
	}

	cut := maxExportLabel
	for cut > 0 && content[cut]&0xC0 == 0x80 {
		cut--
	}

	return content[:cut]
}
