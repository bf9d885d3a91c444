// Package index defines types shared by vector index implementations.
package index

import "fmt"

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// SearchResult represents a single ranked match.
type SearchResult struct {
	// ID is the identifier of the matched entry.
	ID uint64

	// Distance is the distance between the query vector and the entry vector.
	Distance float32
}
