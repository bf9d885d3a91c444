// Package blobstore abstracts the storage used for database snapshots.
//
// A Store moves whole serialized databases between the engine and a backing
// medium: a local directory, process memory (tests), or S3-compatible object
// storage. Snapshots are immutable blobs, so the interface is deliberately
// coarse: whole-blob put and get, no partial writes.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named blob does not exist.
// Implementations return errors satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blob not found")

// Store is a named blob container.
type Store interface {
	// Put writes a blob atomically, replacing any existing blob of that name.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads a whole blob. Missing blobs fail with ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
