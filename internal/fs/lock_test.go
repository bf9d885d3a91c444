package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.lock")

	l, err := Acquire(path)
	require.NoError(t, err)

	require.NoError(t, l.Release())

	// Lock file is cleaned up on release.
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Reacquirable after release, idempotent release.
	l2, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
	require.NoError(t, l2.Release())

	var nilLock *FileLock
	assert.NoError(t, nilLock.Release())
}
