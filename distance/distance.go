// Package distance provides the distance metrics used for ranking.
//
// The baseline metric is the Euclidean (L2) distance: lower values mean more
// similar vectors, and the raw distance is both the ranking key and the score
// returned to callers. Kernels are backed by github.com/viant/vec, which uses
// SIMD acceleration where the platform supports it.
package distance

import (
	"fmt"

	"github.com/viant/vec/search"
)

// Euclidean returns the L2 distance between a and b.
// Vectors must be the same length (caller's responsibility).
func Euclidean(a, b []float32) float32 {
	return search.Float32s(a).EuclideanDistance(b)
}

// Cosine returns the cosine distance (1 - cosine similarity) between a and b.
// Vectors must be the same length. A zero vector yields a distance of 1.
func Cosine(a, b []float32) float32 {
	va := search.Float32s(a)
	ma := va.Magnitude()
	mb := search.Float32s(b).Magnitude()
	if ma == 0 || mb == 0 {
		return 1
	}
	return va.CosineDistanceWithMagnitude(b, ma, mb)
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float32 {
	return search.Float32s(v).Magnitude()
}

// Metric identifies the distance metric used for vector comparison.
type Metric uint8

const (
	// MetricEuclidean is the default metric: L2 distance, ascending = better.
	MetricEuclidean Metric = iota
	// MetricCosine is cosine distance, ascending = better.
	MetricCosine
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "Euclidean"
	case MetricCosine:
		return "Cosine"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// Func calculates the distance between two equal-length vectors.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricEuclidean:
		return Euclidean, nil
	case MetricCosine:
		return Cosine, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}

// Similarity converts a distance into the bounded (0, 1] similarity used by
// auto-linking and context-chain scoring.
func Similarity(dist float32) float32 {
	return 1 / (1 + dist)
}
