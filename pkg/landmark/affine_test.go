package landmark

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"pointfit/pkg/pointset"
)

func knownAffine() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1.2, 0.1, -0.2, 3,
		0.05, 0.9, 0.3, -1,
		-0.1, 0.2, 1.1, 2,
		0, 0, 0, 1,
	})
}

// TestFitAffineExact verifies exact recovery from four non-coplanar pairs
func TestFitAffineExact(t *testing.T) {
	source := []r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
	}
	want := knownAffine()
	target := Apply(want, source)

	got, err := FitAffine(source, target)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-9), "got\n%v", mat.Formatted(got))

	res, err := Residual(got, source, target)
	require.NoError(t, err)
	assert.Less(t, res, 1e-18)
}

// TestFitAffineLeastSquares verifies that no small perturbation of the fit lowers the residual
func TestFitAffineLeastSquares(t *testing.T) {
	source := make([]r3.Vector, 10)
	for i := range source {
		f := float64(i)
		source[i] = r3.Vector{X: 5 * math.Sin(1.3*f), Y: 5 * math.Cos(0.7*f+0.2), Z: 3 * math.Sin(2.1*f+1)}
	}
	target := Apply(knownAffine(), source)
	for i := range target {
		f := float64(i)
		target[i] = target[i].Add(r3.Vector{X: 0.01 * math.Sin(7*f), Y: 0.01 * math.Cos(5*f), Z: 0.01 * math.Sin(3*f+2)})
	}

	fit, err := FitAffine(source, target)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 1}, mat.Row(nil, 3, fit))
	assert.True(t, mat.EqualApprox(knownAffine(), fit, 0.05))

	best, err := Residual(fit, source, target)
	require.NoError(t, err)

	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			for _, delta := range []float64{-1e-3, 1e-3} {
				var p mat.Dense
				p.CloneFrom(fit)
				p.Set(r, c, p.At(r, c)+delta)
				res, err := Residual(&p, source, target)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, res, best, "perturbing (%d,%d) by %g", r, c, delta)
			}
		}
	}
}

func TestFitAffineErrors(t *testing.T) {
	three := []r3.Vector{{X: 0}, {X: 1}, {Y: 1}}
	_, err := FitAffine(three, three)
	assert.ErrorIs(t, err, pointset.ErrInsufficientLandmarks)

	four := []r3.Vector{{X: 0}, {X: 1}, {Y: 1}, {Z: 1}}
	_, err = FitAffine(four, three)
	assert.ErrorIs(t, err, pointset.ErrDimensionMismatch)

	_, err = Residual(mat.NewDense(4, 4, nil), four, three)
	assert.ErrorIs(t, err, pointset.ErrDimensionMismatch)

	coplanar := []r3.Vector{{X: 0}, {X: 1}, {Y: 1}, {X: 1, Y: 1}}
	_, err = FitAffine(coplanar, coplanar)
	assert.ErrorIs(t, err, ErrDegenerate)

	collinear := []r3.Vector{{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 4}}
	_, err = FitAffine(collinear, collinear)
	assert.ErrorIs(t, err, ErrDegenerate)
}
