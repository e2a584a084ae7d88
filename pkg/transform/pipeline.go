package transform

import "github.com/golang/geo/r3"

// stageFunc applies one transform stage and returns a new point slice.
type stageFunc func(points []r3.Vector, p Params) []r3.Vector

// Pipeline is the ordered list of stage functions selected by a Stages
// value: the rigid part (rotation, translation or both) first, scale last.
type Pipeline struct {
	stages Stages
	funcs  []stageFunc
}

// NewPipeline assembles the stage functions for stages.
func NewPipeline(stages Stages) Pipeline {
	pl := Pipeline{stages: stages}

	switch {
	case stages.Has(Translate | Rotate):
		pl.funcs = append(pl.funcs, func(points []r3.Vector, p Params) []r3.Vector {
			return ApplyRigid(points, p.Translation, p.Rotation)
		})
	case stages.Has(Translate):
		pl.funcs = append(pl.funcs, func(points []r3.Vector, p Params) []r3.Vector {
			return ApplyTranslation(points, p.Translation)
		})
	case stages.Has(Rotate):
		pl.funcs = append(pl.funcs, func(points []r3.Vector, p Params) []r3.Vector {
			return ApplyRotation(points, p.Rotation)
		})
	}

	// Uniform and anisotropic scale share the stage; Unpack decides whether
	// the three factors are tied.
	if stages.Has(Scale) || stages.Has(AnisotropicScale) {
		pl.funcs = append(pl.funcs, func(points []r3.Vector, p Params) []r3.Vector {
			return ApplyScale(points, p.Scale)
		})
	}
	return pl
}

// Stages returns the stage set the pipeline was built from.
func (pl Pipeline) Stages() Stages {
	return pl.stages
}

// Apply runs every stage over points. With no active stage the result is
// a copy of points.
func (pl Pipeline) Apply(points []r3.Vector, p Params) []r3.Vector {
	if len(pl.funcs) == 0 {
		out := make([]r3.Vector, len(points))
		copy(out, points)
		return out
	}
	out := points
	for _, f := range pl.funcs {
		out = f(out, p)
	}
	return out
}

// ApplyVector unpacks the free variables x and applies the pipeline.
func (pl Pipeline) ApplyVector(points []r3.Vector, x []float64) []r3.Vector {
	return pl.Apply(points, pl.stages.Unpack(x))
}
