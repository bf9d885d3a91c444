package feather

import (
	"errors"

	"github.com/feather-store/feather/persistence"
)

var (
	// ErrClosed is returned by operations on a database after Close.
	ErrClosed = errors.New("database is closed")

	// ErrDimensionRequired is returned by Open when the file does not exist
	// and no dimension was supplied to create a new database.
	ErrDimensionRequired = errors.New("dimension is required to create a new database")

	// ErrDimensionConflict is returned by Open when an explicitly supplied
	// dimension disagrees with the dimension stored in the file.
	ErrDimensionConflict = errors.New("declared dimension conflicts with stored dimension")

	// ErrCorruptData reports that a database file failed structural or
	// checksum validation. It is the root of the corruption error chain;
	// match with errors.Is.
	ErrCorruptData = persistence.ErrCorruptData
)
