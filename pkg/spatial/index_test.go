package spatial

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointfit/pkg/pointset"
)

func randomPoints(rng *rand.Rand, n int) []r3.Vector {
	points := make([]r3.Vector, n)
	for i := range points {
		points[i] = r3.Vector{X: rng.Float64() * 20, Y: rng.Float64() * 20, Z: rng.Float64() * 20}
	}
	return points
}

func bruteForce(data []r3.Vector, q r3.Vector) float64 {
	best := math.Inf(1)
	for _, p := range data {
		if d := p.Distance(q); d < best {
			best = d
		}
	}
	return best
}

// TestBuildEmpty verifies that an empty point set is rejected
func TestBuildEmpty(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, pointset.ErrEmptyPointSet)
}

// TestQueryMatchesBruteForce verifies kd-tree distances against an exhaustive search
func TestQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := randomPoints(rng, 500)
	queries := randomPoints(rng, 200)

	ix, err := Build(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), ix.Len())

	got := ix.Query(queries)
	require.Len(t, got, len(queries))
	for i, q := range queries {
		assert.InDelta(t, bruteForce(data, q), got[i], 1e-12, "query %d", i)
	}
}

// TestQueryDistancesAreNotSquared verifies the Euclidean distance convention
func TestQueryDistancesAreNotSquared(t *testing.T) {
	ix, err := Build([]r3.Vector{{X: 0, Y: 0, Z: 0}})
	require.NoError(t, err)

	d := ix.Query([]r3.Vector{{X: 3, Y: 4, Z: 0}})
	assert.InDelta(t, 5.0, d[0], 1e-12)
}

// TestParallelQueryPreservesOrder verifies worker fan-out gives identical results
func TestParallelQueryPreservesOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := randomPoints(rng, 300)
	queries := randomPoints(rng, 5000)

	serial, err := Build(data)
	require.NoError(t, err)
	parallel, err := Build(data)
	require.NoError(t, err)
	parallel.WithWorkers(4)

	assert.Equal(t, serial.Query(queries), parallel.Query(queries))
}

func TestBuildDoesNotReorderInput(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := randomPoints(rng, 100)
	original := pointset.Clone(data)

	_, err := Build(data)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestNearest(t *testing.T) {
	data := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 0}, {X: 0, Y: 10, Z: 0}}
	ix, err := Build(data)
	require.NoError(t, err)

	p, d := ix.Nearest(r3.Vector{X: 9, Y: 1, Z: 0})
	assert.Equal(t, r3.Vector{X: 10, Y: 0, Z: 0}, p)
	assert.InDelta(t, math.Sqrt2, d, 1e-12)
}

func TestQueryIntoLengthMismatchPanics(t *testing.T) {
	ix, err := Build([]r3.Vector{{}})
	require.NoError(t, err)
	assert.Panics(t, func() { ix.QueryInto(make([]float64, 1), nil) })
}
