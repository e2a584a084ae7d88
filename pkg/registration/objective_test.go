package registration

import (
	"sync"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointfit/pkg/transform"
)

func TestObjectiveResidualsAreSquaredDistances(t *testing.T) {
	moving := []r3.Vector{{X: 0}, {X: 1}, {X: 2}}
	fixed := []r3.Vector{{X: 0, Y: 3}, {X: 10, Y: 10}}

	obj, err := NewObjective(moving, fixed, transform.Translate, Forward, 1)
	require.NoError(t, err)
	require.Equal(t, 3, obj.NumResiduals())

	x := []float64{0, 0, 0}
	d := obj.Distances(x)
	r := make([]float64, 3)
	obj.Residuals(r, x)

	assert.InDelta(t, 3.0, d[0], 1e-12)
	for i := range r {
		assert.InDelta(t, d[i]*d[i], r[i], 1e-12)
	}

	// Shifting up by 3 puts the first point exactly on a fixed point.
	obj.Residuals(r, []float64{0, 3, 0})
	assert.Equal(t, 0.0, r[0])
}

// TestReverseObjectiveQueriesFixedPoints verifies the residual count and that moving is re-indexed per evaluation
func TestReverseObjectiveQueriesFixedPoints(t *testing.T) {
	moving := []r3.Vector{{X: 0}, {X: 1}}
	fixed := []r3.Vector{{X: 5}, {X: 6}, {X: 7}}

	obj, err := NewObjective(moving, fixed, transform.Translate, Reverse, 1)
	require.NoError(t, err)
	require.Equal(t, 3, obj.NumResiduals())

	assert.InDeltaSlice(t, []float64{4, 5, 6}, obj.Distances([]float64{0, 0, 0}), 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0, 1}, obj.Distances([]float64{5, 0, 0}), 1e-12)
}

func TestObjectiveConcurrentEvaluation(t *testing.T) {
	moving := cloud(200)
	fixed := transform.ApplyTranslation(moving, r3.Vector{X: 0.5})

	obj, err := NewObjective(moving, fixed, transform.RigidScale, Forward, 4)
	require.NoError(t, err)

	x := obj.Stages().Initial()
	want := obj.Distances(x)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, obj.Distances(x))
		}()
	}
	wg.Wait()
}

func TestNewObjectiveErrors(t *testing.T) {
	pts := cloud(3)
	_, err := NewObjective(nil, pts, transform.Rigid, Forward, 1)
	assert.Error(t, err)
	_, err = NewObjective(pts, nil, transform.Rigid, Reverse, 1)
	assert.Error(t, err)
	_, err = NewObjective(pts, pts, transform.Stages(0x80), Forward, 1)
	assert.ErrorIs(t, err, transform.ErrInvalidStages)
}
