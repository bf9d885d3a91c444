// Package metadata defines the structured metadata attached to every stored
// entry and the search-time filter predicate evaluated against it.
package metadata

// Metadata is the structured payload stored alongside an embedding.
//
// Source and Content are pointers so that "absent" and "present but empty"
// remain distinguishable end-to-end, including across persistence.
type Metadata struct {
	// Timestamp is the creation time in epoch seconds. Zero means unset.
	Timestamp int64

	// Importance weights an entry during context-chain scoring.
	Importance float32

	// ContextType is an application-defined small enum. Zero is the default type.
	ContextType uint8

	Source  *string
	Content *string

	// Tags are free-form labels attached to the entry.
	Tags []string

	// RecallCount and LastRecalledAt track explicit Touch calls.
	RecallCount    uint32
	LastRecalledAt int64

	// Namespace and Entity scope an entry for graph export.
	Namespace string
	Entity    string

	// Attributes holds arbitrary string key/value pairs.
	Attributes map[string]string
}

// Default returns the metadata used by the bare add path: unset timestamp,
// importance 1.0, context type 0 and no source/content.
func Default() Metadata {
	return Metadata{Importance: 1.0}
}

// Clone returns a deep copy of m. The zero value is safe to clone.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Source != nil {
		s := *m.Source
		out.Source = &s
	}
	if m.Content != nil {
		c := *m.Content
		out.Content = &c
	}
	if m.Tags != nil {
		out.Tags = make([]string, len(m.Tags))
		copy(out.Tags, m.Tags)
	}
	if m.Attributes != nil {
		out.Attributes = make(map[string]string, len(m.Attributes))
		for k, v := range m.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

// String returns a pointer to s. Convenience for optional fields.
func String(s string) *string { return &s }

// Uint8 returns a pointer to v. Convenience for optional filter fields.
func Uint8(v uint8) *uint8 { return &v }

// Int64 returns a pointer to v. Convenience for optional filter fields.
func Int64(v int64) *int64 { return &v }

// Float32 returns a pointer to v. Convenience for optional filter fields.
func Float32(v float32) *float32 { return &v }
