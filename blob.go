package feather

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/feather-store/feather/blobstore"
	"github.com/feather-store/feather/persistence"
)

// Snapshot encodes the database and uploads it to the blob store under
// name. The upload uses the same file format as Save, so a stored
// snapshot can be restored on any machine.
func (db *DB) Snapshot(ctx context.Context, store blobstore.Store, name string) error {
	db.mu.RLock()
	snap := db.snapshot()
	compression := db.opts.Compression
	closed := db.closed
	db.mu.RUnlock()

	if closed {
		return ErrClosed
	}

	var buf bytes.Buffer
	if err := persistence.Encode(&buf, snap, compression); err != nil {
		return fmt.Errorf("snapshot %s: %w", name, err)
	}

	if err := store.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("snapshot %s: %w", name, err)
	}

	return nil
}

// Restore downloads the snapshot name from the blob store, writes it
// to path, and opens it. The snapshot is validated before the file is
// written; a corrupt blob fails with an error wrapping ErrCorruptData
// and leaves any existing file at path untouched.
func Restore(ctx context.Context, store blobstore.Store, name, path string, optFns ...func(*Options)) (*DB, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", name, err)
	}

	if _, err := persistence.Decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("restore %s: %w", name, err)
	}

	err = persistence.SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", name, err)
	}

	return Open(path, optFns...)
}
