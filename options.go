package feather

import (
	"github.com/feather-store/feather/distance"
	"github.com/feather-store/feather/persistence"
)

// Options configures a database opened with Open or Restore.
type Options struct {
	// Dimension is the vector dimension. Required when creating a new
	// database; when opening an existing file zero means "adopt the
	// stored dimension", and any non-zero value must match it.
	Dimension int

	// Metric selects the distance function used for search. Only applied
	// when creating a new database; existing files carry their metric.
	Metric distance.Metric

	// Compression selects the on-disk payload codec used by Save.
	Compression persistence.CompressionType

	// NoFileLock disables the advisory file lock guarding the database
	// file against concurrent writer processes.
	NoFileLock bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		Metric:      distance.MetricEuclidean,
		Compression: persistence.CompressionZSTD,
	}
}

// WithDimension sets the vector dimension.
func WithDimension(dim int) func(*Options) {
	return func(o *Options) {
		o.Dimension = dim
	}
}

// WithMetric sets the distance metric for a newly created database.
func WithMetric(m distance.Metric) func(*Options) {
	return func(o *Options) {
		o.Metric = m
	}
}

// WithCompression sets the on-disk payload compression codec.
func WithCompression(c persistence.CompressionType) func(*Options) {
	return func(o *Options) {
		o.Compression = c
	}
}

// WithoutFileLock disables the advisory file lock.
func WithoutFileLock() func(*Options) {
	return func(o *Options) {
		o.NoFileLock = true
	}
}
