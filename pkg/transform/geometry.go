package transform

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"pointfit/pkg/pointset"
)

// ErrNotInvertible is returned when parameters cannot be inverted or
// composed within the rigid-plus-uniform-scale family.
var ErrNotInvertible = errors.New("transform is not invertible as rigid plus uniform scale")

// MatchCentroid translates moving so that its centroid coincides with the
// centroid of fixed. It returns the applied offset, mean(fixed)-mean(moving).
func MatchCentroid(fixed, moving []r3.Vector) (r3.Vector, []r3.Vector) {
	delta := pointset.Centroid(fixed).Sub(pointset.Centroid(moving))
	return delta, ApplyTranslation(moving, delta)
}

// BoundingBox returns the per-axis minimum and maximum of points.
func BoundingBox(points []r3.Vector) (min, max r3.Vector) {
	if len(points) == 0 {
		return r3.Vector{}, r3.Vector{}
	}
	xs, ys, zs := pointset.Columns(points)
	min = r3.Vector{X: floats.Min(xs), Y: floats.Min(ys), Z: floats.Min(zs)}
	max = r3.Vector{X: floats.Max(xs), Y: floats.Max(ys), Z: floats.Max(zs)}
	return min, max
}

// Mirror reflects points in the plane normal to axis (0: yz, 1: xz, 2: xy).
// When aboutCentroid is set the plane passes through the centroid of the
// points, otherwise through the origin.
func Mirror(points []r3.Vector, axis int, aboutCentroid bool) ([]r3.Vector, error) {
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("mirror axis %d out of range [0, 2]", axis)
	}

	var centroid r3.Vector
	if aboutCentroid {
		centroid = pointset.Centroid(points)
	}

	out := make([]r3.Vector, len(points))
	for i, p := range points {
		q := p.Sub(centroid)
		switch axis {
		case 0:
			q.X = -q.X
		case 1:
			q.Y = -q.Y
		case 2:
			q.Z = -q.Z
		}
		out[i] = q.Add(centroid)
	}
	return out, nil
}

// Inverse returns the parameters that undo p, so that applying p and then
// the result leaves points unchanged. Only uniform, non-zero scales can be
// inverted in this parameterisation.
func Inverse(p Params) (Params, error) {
	if !p.UniformScale() || p.Scale.X == 0 {
		return Params{}, ErrNotInvertible
	}
	s := p.Scale.X

	var rt mat.Dense
	rt.CloneFrom(RotationMatrix(p.Rotation).T())

	// s(R·x + t) = y  =>  x = (1/s)(Rᵀ·y - s·Rᵀ·t)
	t := mulVec3(&rt, p.Translation).Mul(-s)
	return Params{
		Translation: t,
		Rotation:    EulerXYZ(&rt),
		Scale:       r3.Vector{X: 1 / s, Y: 1 / s, Z: 1 / s},
	}, nil
}

// Compose returns the parameters equivalent to applying first and then
// second. Both must carry a uniform scale.
func Compose(first, second Params) (Params, error) {
	if !first.UniformScale() || !second.UniformScale() || first.Scale.X == 0 {
		return Params{}, ErrNotInvertible
	}
	s1, s2 := first.Scale.X, second.Scale.X
	r2 := RotationMatrix(second.Rotation)

	var rot mat.Dense
	rot.Mul(r2, RotationMatrix(first.Rotation))

	// s2(R2·s1(R1·x + t1) + t2) = s1·s2(R2·R1·x + R2·t1 + t2/s1)
	t := mulVec3(r2, first.Translation).Add(second.Translation.Mul(1 / s1))
	s := s1 * s2
	return Params{
		Translation: t,
		Rotation:    EulerXYZ(&rot),
		Scale:       r3.Vector{X: s, Y: s, Z: s},
	}, nil
}
