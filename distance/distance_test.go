package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEuclidean(t *testing.T) {
	assert.InDelta(t, 0.0, Euclidean([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-6)
	assert.InDelta(t, 5.0, Euclidean([]float32{0, 0}, []float32{3, 4}), 1e-5)
}

func TestCosine(t *testing.T) {
	// Identical direction: distance 0.
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-6)

	// Orthogonal: distance 1.
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)

	// Zero vector: defined as 1.
	assert.InDelta(t, 1.0, Cosine([]float32{0, 0}, []float32{1, 0}), 1e-6)
}

func TestProvider(t *testing.T) {
	for _, m := range []Metric{MetricEuclidean, MetricCosine} {
		fn, err := Provider(m)
		require.NoError(t, err, m.String())
		require.NotNil(t, fn)
	}

	_, err := Provider(Metric(42))
	assert.Error(t, err)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity(0), 1e-6)
	assert.InDelta(t, 0.5, Similarity(1), 1e-6)
	assert.Less(t, Similarity(10), Similarity(1))
}
