// Package fs provides the advisory file lock guarding a database against a
// second writer process.
package fs

import (
	"errors"
	"fmt"
	"os"
)

// ErrLocked is returned when another process already holds the lock.
var ErrLocked = errors.New("database is locked by another process")

// FileLock is an exclusive advisory lock on a sidecar lock file.
type FileLock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive, non-blocking lock on path, creating the file
// if needed. On platforms without flock support the lock degrades to file
// creation only.
func Acquire(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}

	if err := flock(f); err != nil {
		_ = f.Close()
		if errors.Is(err, errWouldBlock) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, err
	}

	return &FileLock{file: f, path: path}, nil
}

// Release drops the lock and removes the lock file. Safe to call on a nil
// receiver and idempotent.
func (l *FileLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := funlock(l.file)
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	_ = os.Remove(l.path)
	l.file = nil
	return err
}
