package persistence

import (
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies feather database files (ASCII: "FEAT").
	MagicNumber = 0x46454154
	// Version is the current file format version.
	Version = 0x00010000
)

// CompressionType selects the codec applied to the file payload.
type CompressionType uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone CompressionType = 0
	// CompressionZSTD compresses the payload with zstd (the default).
	CompressionZSTD CompressionType = 1
	// CompressionLZ4 compresses the payload with LZ4 (faster, lower ratio).
	CompressionLZ4 CompressionType = 2
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZSTD:
		return "ZSTD"
	case CompressionLZ4:
		return "LZ4"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

var (
	// ErrCorruptData is returned when persisted bytes are truncated or
	// malformed. All decode failures wrap it.
	ErrCorruptData = errors.New("corrupt data")

	ErrInvalidMagic   = fmt.Errorf("%w: invalid magic number", ErrCorruptData)
	ErrInvalidVersion = fmt.Errorf("%w: unsupported version", ErrCorruptData)
)

// FileHeader is the fixed-size header at the start of every database file.
// The payload that follows is compressed according to Compression and
// covered by Checksum.
type FileHeader struct {
	Magic          uint32
	Version        uint32
	Compression    uint8
	Metric         uint8
	Padding1       [2]byte
	Dimension      uint32
	PartitionCount uint32
	EntryCount     uint64
	EdgeCount      uint64
	PayloadSize    uint64
	Checksum       uint32 // CRC32 (IEEE) of the stored payload bytes
	Padding2       [4]byte
}

// ChecksumMismatchError is returned when payload verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// Unwrap makes the error match ErrCorruptData.
func (e *ChecksumMismatchError) Unwrap() error { return ErrCorruptData }
