// Package landmark estimates affine transforms from known point
// correspondences such as fiducial markers.
package landmark

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"pointfit/pkg/pointset"
	"pointfit/pkg/transform"
)

// MinLandmarks is the number of pairs needed to determine a 3-D affine map.
const MinLandmarks = 4

// ErrDegenerate is returned when the source landmarks do not span 3-D space,
// for example when they are coplanar.
var ErrDegenerate = errors.New("degenerate landmark configuration")

// FitAffine returns the 4×4 affine matrix M minimising Σ‖M·s_i - t_i‖² over
// homogeneous coordinates, where source[i] corresponds to target[i]. The
// bottom row of M is [0 0 0 1].
//
// Degenerate configurations give a singular or ill-conditioned normal
// matrix and an error wrapping ErrDegenerate.
func FitAffine(source, target []r3.Vector) (*mat.Dense, error) {
	if len(source) != len(target) {
		return nil, fmt.Errorf("%w: %d source and %d target landmarks",
			pointset.ErrDimensionMismatch, len(source), len(target))
	}
	if len(source) < MinLandmarks {
		return nil, fmt.Errorf("%w: got %d", pointset.ErrInsufficientLandmarks, len(source))
	}

	// normal = Σ s_i s_iᵀ and cross = Σ t_i s_iᵀ, both over [x y z 1].
	normal := mat.NewDense(4, 4, nil)
	cross := mat.NewDense(4, 4, nil)
	for i := range source {
		s := homogeneous(source[i])
		t := homogeneous(target[i])
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				normal.Set(r, c, normal.At(r, c)+s[r]*s[c])
				cross.Set(r, c, cross.At(r, c)+t[r]*s[c])
			}
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(normal); err != nil {
		// mat reports both exact and near singularity as a mat.Condition.
		return nil, fmt.Errorf("%w: normal matrix: %v", ErrDegenerate, err)
	}

	m := mat.NewDense(4, 4, nil)
	m.Mul(cross, &inv)
	m.SetRow(3, []float64{0, 0, 0, 1})
	return m, nil
}

// Apply maps points through the affine matrix m.
func Apply(m mat.Matrix, points []r3.Vector) []r3.Vector {
	return transform.ApplyHomogeneous(m, points)
}

// Residual returns Σ‖m·source_i - target_i‖².
func Residual(m mat.Matrix, source, target []r3.Vector) (float64, error) {
	if len(source) != len(target) {
		return 0, fmt.Errorf("%w: %d source and %d target landmarks",
			pointset.ErrDimensionMismatch, len(source), len(target))
	}
	sum := 0.0
	for i, p := range Apply(m, source) {
		sum += p.Sub(target[i]).Norm2()
	}
	return sum, nil
}

func homogeneous(p r3.Vector) [4]float64 {
	return [4]float64{p.X, p.Y, p.Z, 1}
}
