package transform

import "github.com/golang/geo/r3"

// PreTranslate returns parameters that first translate points by d and then
// apply p. Because translation happens before rotation and scale,
//
//	S ⊙ (R·(x + d) + t) = S ⊙ (R·x + (R·d + t))
//
// so only the translation changes.
func (p Params) PreTranslate(d r3.Vector) Params {
	out := p
	out.Translation = mulVec3(RotationMatrix(p.Rotation), d).Add(p.Translation)
	return out
}
