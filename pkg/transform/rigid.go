// Package transform implements the parameterised rigid motion plus scaling
// used by point-set registration.
//
// All operations return new point slices; inputs are never modified.
// Rotations compose elementary rotations about X, then Y, then Z
// (R = Rx·Ry·Rz, right-handed, radians) and are applied as R·p.
package transform

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// RowConvention selects the last row of a 4x4 rigid matrix.
type RowConvention int

const (
	// Homogeneous uses the standard [0 0 0 1] last row.
	Homogeneous RowConvention = iota

	// LegacyRow reproduces the [1 1 1 1] last row written by earlier
	// versions of the fitting tools. Transformed points are identical
	// because the fourth output row is always discarded, but matrices
	// built this way cannot be composed.
	LegacyRow
)

// RotationX returns the elementary rotation about the X axis.
func RotationX(a float64) *mat.Dense {
	c, s := math.Cos(a), math.Sin(a)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

// RotationY returns the elementary rotation about the Y axis.
func RotationY(a float64) *mat.Dense {
	c, s := math.Cos(a), math.Sin(a)
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

// RotationZ returns the elementary rotation about the Z axis.
func RotationZ(a float64) *mat.Dense {
	c, s := math.Cos(a), math.Sin(a)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

// RotationMatrix returns R = Rx(r.X)·Ry(r.Y)·Rz(r.Z).
func RotationMatrix(r r3.Vector) *mat.Dense {
	var rxy, rot mat.Dense
	rxy.Mul(RotationX(r.X), RotationY(r.Y))
	rot.Mul(&rxy, RotationZ(r.Z))
	return &rot
}

// RigidMatrix builds the 4x4 matrix with rotation block R and translation
// column t. The last row follows the given convention.
func RigidMatrix(t, r r3.Vector, row RowConvention) *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	m.Slice(0, 3, 0, 3).(*mat.Dense).Copy(RotationMatrix(r))
	m.Set(0, 3, t.X)
	m.Set(1, 3, t.Y)
	m.Set(2, 3, t.Z)

	switch row {
	case LegacyRow:
		m.SetRow(3, []float64{1, 1, 1, 1})
	default:
		m.SetRow(3, []float64{0, 0, 0, 1})
	}
	return m
}

// ApplyTranslation adds t to every point.
func ApplyTranslation(points []r3.Vector, t r3.Vector) []r3.Vector {
	out := make([]r3.Vector, len(points))
	for i, p := range points {
		out[i] = p.Add(t)
	}
	return out
}

// ApplyRotation rotates every point about the origin by the Euler angles r.
func ApplyRotation(points []r3.Vector, r r3.Vector) []r3.Vector {
	rot := RotationMatrix(r)
	out := make([]r3.Vector, len(points))
	for i, p := range points {
		out[i] = mulVec3(rot, p)
	}
	return out
}

// ApplyRigid rotates by r and then translates by t using a single
// homogeneous matrix applied to the points in homogeneous coordinates.
func ApplyRigid(points []r3.Vector, t, r r3.Vector) []r3.Vector {
	return ApplyHomogeneous(RigidMatrix(t, r, Homogeneous), points)
}

// ApplyScale multiplies every point elementwise by s.
func ApplyScale(points []r3.Vector, s r3.Vector) []r3.Vector {
	out := make([]r3.Vector, len(points))
	for i, p := range points {
		out[i] = r3.Vector{X: p.X * s.X, Y: p.Y * s.Y, Z: p.Z * s.Z}
	}
	return out
}

// ApplyHomogeneous multiplies the 4xN homogeneous coordinate matrix of
// points by m and returns the first three rows as points.
func ApplyHomogeneous(m mat.Matrix, points []r3.Vector) []r3.Vector {
	n := len(points)
	if n == 0 {
		return []r3.Vector{}
	}

	h := mat.NewDense(4, n, nil)
	for j, p := range points {
		h.Set(0, j, p.X)
		h.Set(1, j, p.Y)
		h.Set(2, j, p.Z)
		h.Set(3, j, 1)
	}

	var res mat.Dense
	res.Mul(m, h)

	out := make([]r3.Vector, n)
	for j := range out {
		out[j] = r3.Vector{X: res.At(0, j), Y: res.At(1, j), Z: res.At(2, j)}
	}
	return out
}

// EulerXYZ recovers the angles (rx, ry, rz) of a rotation matrix built as
// Rx·Ry·Rz. ry is returned in [-π/2, π/2]; at gimbal lock rz is set to 0.
func EulerXYZ(rot mat.Matrix) r3.Vector {
	sy := math.Max(-1, math.Min(1, rot.At(0, 2)))
	ry := math.Asin(sy)
	if math.Abs(math.Cos(ry)) > 1e-9 {
		return r3.Vector{
			X: math.Atan2(-rot.At(1, 2), rot.At(2, 2)),
			Y: ry,
			Z: math.Atan2(-rot.At(0, 1), rot.At(0, 0)),
		}
	}
	return r3.Vector{X: math.Atan2(rot.At(2, 1), rot.At(1, 1)), Y: ry}
}

func mulVec3(m *mat.Dense, p r3.Vector) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2)*p.Z,
		Y: m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2)*p.Z,
		Z: m.At(2, 0)*p.X + m.At(2, 1)*p.Y + m.At(2, 2)*p.Z,
	}
}
