package metadata

import "strings"

// NoTypeFilter is the wire-level sentinel meaning "no context type filter".
// It exists only for compatibility at the outermost boundary; internally a
// nil ContextType expresses the absence of a filter.
const NoTypeFilter uint8 = 255

// Filter is a conjunctive search-time predicate. Nil fields are not applied;
// an entry is a candidate only if every non-nil field matches.
type Filter struct {
	// ContextType must equal the entry's context type exactly.
	ContextType *uint8

	// Source must equal the entry's source exactly. An entry with an absent
	// source never matches, even against an explicitly empty filter string.
	Source *string

	// SourcePrefix requires the entry's source to start with the given prefix.
	SourcePrefix *string

	// After and Before bound the entry timestamp (inclusive).
	After  *int64
	Before *int64

	// MinImportance requires importance >= the given value.
	MinImportance *float32

	// Tags requires every listed tag to be present on the entry.
	Tags []string
}

// FromSentinel builds a Filter from the boundary representation, mapping the
// NoTypeFilter sentinel to an absent type predicate.
func FromSentinel(typeFilter uint8, sourceFilter *string) *Filter {
	f := &Filter{Source: sourceFilter}
	if typeFilter != NoTypeFilter {
		t := typeFilter
		f.ContextType = &t
	}
	return f
}

// Matches reports whether m satisfies every predicate in f.
// A nil filter matches everything.
func (f *Filter) Matches(m Metadata) bool {
	if f == nil {
		return true
	}

	if f.ContextType != nil && m.ContextType != *f.ContextType {
		return false
	}

	if f.Source != nil {
		if m.Source == nil || *m.Source != *f.Source {
			return false
		}
	}

	if f.SourcePrefix != nil {
		if m.Source == nil || !strings.HasPrefix(*m.Source, *f.SourcePrefix) {
			return false
		}
	}

	if f.After != nil && m.Timestamp < *f.After {
		return false
	}

	if f.Before != nil && m.Timestamp > *f.Before {
		return false
	}

	if f.MinImportance != nil && m.Importance < *f.MinImportance {
		return false
	}

	for _, want := range f.Tags {
		if !hasTag(m.Tags, want) {
			return false
		}
	}

	return true
}

// Empty reports whether f applies no predicates at all.
func (f *Filter) Empty() bool {
	if f == nil {
		return true
	}
	return f.ContextType == nil && f.Source == nil && f.SourcePrefix == nil &&
		f.After == nil && f.Before == nil && f.MinImportance == nil && len(f.Tags) == 0
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
