package transform

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Params holds one rigid-plus-scale transform. A point p maps to
// Scale ⊙ (R·p + Translation) where R = Rx·Ry·Rz is built from the Euler
// angles stored in Rotation (X, Y, Z components are rx, ry, rz in radians).
type Params struct {
	Translation r3.Vector
	Rotation    r3.Vector
	Scale       r3.Vector
}

// Identity returns the transform that leaves every point unchanged.
func Identity() Params {
	return Params{Scale: r3.Vector{X: 1, Y: 1, Z: 1}}
}

// UniformScale reports whether all three scale factors are equal.
func (p Params) UniformScale() bool {
	return p.Scale.X == p.Scale.Y && p.Scale.Y == p.Scale.Z
}

// Vector returns the flat parameter layout for the given stages:
// [tx ty tz rx ry rz], followed by s for a uniform scale or sx sy sz for
// an anisotropic one.
func (p Params) Vector(stages Stages) []float64 {
	v := []float64{
		p.Translation.X, p.Translation.Y, p.Translation.Z,
		p.Rotation.X, p.Rotation.Y, p.Rotation.Z,
	}
	switch stages.VectorLen() {
	case 7:
		v = append(v, p.Scale.X)
	case 9:
		v = append(v, p.Scale.X, p.Scale.Y, p.Scale.Z)
	}
	return v
}

// ParamsFromVector parses a 6, 7 or 9 element parameter vector.
func ParamsFromVector(v []float64) (Params, error) {
	p := Identity()
	switch len(v) {
	case 6, 7, 9:
	default:
		return p, fmt.Errorf("parameter vector has %d values, want 6, 7 or 9", len(v))
	}
	p.Translation = r3.Vector{X: v[0], Y: v[1], Z: v[2]}
	p.Rotation = r3.Vector{X: v[3], Y: v[4], Z: v[5]}
	switch len(v) {
	case 7:
		p.Scale = r3.Vector{X: v[6], Y: v[6], Z: v[6]}
	case 9:
		p.Scale = r3.Vector{X: v[6], Y: v[7], Z: v[8]}
	}
	return p, nil
}

// Matrix returns the full 4x4 matrix of p, scale included.
func (p Params) Matrix(row RowConvention) *mat.Dense {
	m := RigidMatrix(p.Translation, p.Rotation, row)
	s := [3]float64{p.Scale.X, p.Scale.Y, p.Scale.Z}
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			m.Set(i, j, m.At(i, j)*s[i])
		}
	}
	return m
}

func (p Params) String() string {
	return fmt.Sprintf("t=(%.6g, %.6g, %.6g) r=(%.6g, %.6g, %.6g) s=(%.6g, %.6g, %.6g)",
		p.Translation.X, p.Translation.Y, p.Translation.Z,
		p.Rotation.X, p.Rotation.Y, p.Rotation.Z,
		p.Scale.X, p.Scale.Y, p.Scale.Z)
}
