package transform

import (
	"errors"
	"fmt"
	"strings"
)

// Stages is a bit set selecting which components of a transform are active.
// Inactive components are frozen at their identity values and are not
// exposed to the optimiser.
type Stages uint8

const (
	// Translate enables the tx, ty, tz components.
	Translate Stages = 1 << iota

	// Rotate enables the rx, ry, rz Euler angles.
	Rotate

	// Scale enables a single uniform scale factor.
	Scale

	// AnisotropicScale enables independent sx, sy, sz scale factors.
	AnisotropicScale
)

// Common stage combinations.
const (
	Rigid            = Translate | Rotate
	RigidScale       = Translate | Rotate | Scale
	RigidAnisotropic = Translate | Rotate | AnisotropicScale
)

// ErrInvalidStages is returned for stage sets that cannot be evaluated.
var ErrInvalidStages = errors.New("invalid transform stages")

// Has reports whether every stage in other is enabled in s.
func (s Stages) Has(other Stages) bool {
	return s&other == other
}

// Validate rejects uniform and anisotropic scale being enabled together.
func (s Stages) Validate() error {
	if s.Has(Scale | AnisotropicScale) {
		return fmt.Errorf("%w: uniform and anisotropic scale are exclusive", ErrInvalidStages)
	}
	if s&^(Translate|Rotate|Scale|AnisotropicScale) != 0 {
		return fmt.Errorf("%w: unknown stage bits %#x", ErrInvalidStages, uint8(s))
	}
	return nil
}

// NumParams returns the number of free variables the stages expose.
func (s Stages) NumParams() int {
	n := 0
	if s.Has(Translate) {
		n += 3
	}
	if s.Has(Rotate) {
		n += 3
	}
	if s.Has(Scale) {
		n++
	}
	if s.Has(AnisotropicScale) {
		n += 3
	}
	return n
}

// VectorLen returns the length of the reported parameter vector:
// 6 for rigid layouts, 7 with a uniform scale and 9 with per-axis scale.
func (s Stages) VectorLen() int {
	switch {
	case s.Has(AnisotropicScale):
		return 9
	case s.Has(Scale):
		return 7
	default:
		return 6
	}
}

// Pack extracts the free variables of p for the active stages, in the order
// translation, rotation, scale.
func (s Stages) Pack(p Params) []float64 {
	x := make([]float64, 0, s.NumParams())
	if s.Has(Translate) {
		x = append(x, p.Translation.X, p.Translation.Y, p.Translation.Z)
	}
	if s.Has(Rotate) {
		x = append(x, p.Rotation.X, p.Rotation.Y, p.Rotation.Z)
	}
	if s.Has(Scale) {
		x = append(x, p.Scale.X)
	}
	if s.Has(AnisotropicScale) {
		x = append(x, p.Scale.X, p.Scale.Y, p.Scale.Z)
	}
	return x
}

// Unpack is the inverse of Pack. Components of inactive stages take their
// identity values. x must hold NumParams values.
func (s Stages) Unpack(x []float64) Params {
	p := Identity()
	i := 0
	if s.Has(Translate) {
		p.Translation.X, p.Translation.Y, p.Translation.Z = x[i], x[i+1], x[i+2]
		i += 3
	}
	if s.Has(Rotate) {
		p.Rotation.X, p.Rotation.Y, p.Rotation.Z = x[i], x[i+1], x[i+2]
		i += 3
	}
	if s.Has(Scale) {
		p.Scale.X, p.Scale.Y, p.Scale.Z = x[i], x[i], x[i]
		i++
	}
	if s.Has(AnisotropicScale) {
		p.Scale.X, p.Scale.Y, p.Scale.Z = x[i], x[i+1], x[i+2]
	}
	return p
}

// Initial returns the packed identity transform: t=0, r=0, s=1.
func (s Stages) Initial() []float64 {
	return s.Pack(Identity())
}

func (s Stages) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	if s.Has(Translate) {
		names = append(names, "translate")
	}
	if s.Has(Rotate) {
		names = append(names, "rotate")
	}
	if s.Has(Scale) {
		names = append(names, "scale")
	}
	if s.Has(AnisotropicScale) {
		names = append(names, "anisotropic-scale")
	}
	return strings.Join(names, "+")
}

// FromFlags builds a stage set from the translate/rotate/scale switches used
// throughout the command line and configuration.
func FromFlags(translate, rotate, scale bool) Stages {
	var s Stages
	if translate {
		s |= Translate
	}
	if rotate {
		s |= Rotate
	}
	if scale {
		s |= Scale
	}
	return s
}
