// Package registration aligns a moving point set to a fixed point set by
// minimising squared nearest-neighbour distances over a rigid transform
// with optional uniform or per-axis scale.
package registration

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"

	"pointfit/pkg/pointset"
	"pointfit/pkg/solver"
	"pointfit/pkg/transform"
)

// Variant names a preset stage combination.
type Variant int

const (
	// Full optimises translation, rotation and a uniform scale.
	Full Variant = iota
	// Rigid optimises translation and rotation.
	Rigid
	// RigidScale optimises the subset of translation, rotation and uniform
	// scale selected by flags.
	RigidScale
	// Anisotropic optimises translation, rotation and per-axis scale.
	Anisotropic
)

var variantNames = []string{"full", "rigid", "rigid-scale", "anisotropic"}

// ParseVariant resolves a variant by name.
func ParseVariant(name string) (Variant, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range variantNames {
		if n == name {
			return Variant(i), nil
		}
	}
	return 0, fmt.Errorf("unknown registration variant %q", name)
}

// Stages returns the transform stages the variant optimises. The flags
// only apply to RigidScale.
func (v Variant) Stages(translate, rotate, scale bool) transform.Stages {
	switch v {
	case Rigid:
		return transform.Rigid
	case RigidScale:
		return transform.FromFlags(translate, rotate, scale)
	case Anisotropic:
		return transform.RigidAnisotropic
	default:
		return transform.RigidScale
	}
}

func (v Variant) String() string {
	if v >= 0 && int(v) < len(variantNames) {
		return variantNames[v]
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ProgressCallback reports solver progress after every accepted step.
type ProgressCallback func(iteration, evaluations int, cost float64)

// Options controls a registration.
type Options struct {
	// Stages selects the optimised transform components.
	Stages transform.Stages

	// Direction selects which set supplies the query points.
	Direction Direction

	// Solver holds the Levenberg-Marquardt termination settings.
	Solver solver.Settings

	// Workers bounds the goroutines used per nearest-neighbour query.
	// Values below one use every CPU.
	Workers int

	// MatchCentroid pre-translates the moving set onto the centroid of the
	// fixed set. The offset is folded into the returned parameters.
	MatchCentroid bool

	// Progress, when set, overrides Solver.Recorder.
	Progress ProgressCallback
}

// DefaultOptions returns forward rigid plus uniform scale registration.
func DefaultOptions() Options {
	return Options{
		Stages:    transform.RigidScale,
		Direction: Forward,
		Workers:   1,
	}
}

// Result holds the outcome of a registration.
type Result struct {
	// Params maps the caller's moving set onto the fixed set.
	Params transform.Params

	// Stages are the components that were optimised.
	Stages transform.Stages

	// Points is the moving set after applying Params.
	Points []r3.Vector

	// Metrics compares the fit before and after registration.
	Metrics Metrics

	// Solver reports the optimiser's termination.
	Solver solver.Result
}

// Vector returns the full parameter vector for the optimised stages, laid
// out as [tx ty tz rx ry rz] followed by the scale component(s).
func (r *Result) Vector() []float64 {
	return r.Params.Vector(r.Stages)
}

// Register aligns moving to fixed. Inputs are not modified.
//
// Slow convergence is not an error: the best parameters found are returned
// and Result.Solver.Status records why the optimiser stopped.
func Register(moving, fixed []r3.Vector, opts Options) (*Result, error) {
	if err := pointset.Validate(moving); err != nil {
		return nil, fmt.Errorf("moving points: %w", err)
	}
	if err := pointset.Validate(fixed); err != nil {
		return nil, fmt.Errorf("fixed points: %w", err)
	}

	start := moving
	var offset r3.Vector
	if opts.MatchCentroid {
		offset, start = transform.MatchCentroid(fixed, moving)
	}

	obj, err := NewObjective(start, fixed, opts.Stages, opts.Direction, opts.Workers)
	if err != nil {
		return nil, err
	}

	x0 := opts.Stages.Initial()
	initial := obj.Distances(x0)
	startCost := 0.0
	for _, d := range initial {
		startCost += d * d * d * d
	}
	if opts.MatchCentroid {
		// The caller's starting error is measured before the centroid shift.
		unshifted, err := NewObjective(moving, fixed, opts.Stages, opts.Direction, opts.Workers)
		if err != nil {
			return nil, err
		}
		initial = unshifted.Distances(x0)
	}

	var sr solver.Result
	if len(x0) == 0 {
		// Nothing to optimise: the cost cannot change.
		sr = solver.Result{X: x0, Cost: startCost, Evaluations: 1, Status: solver.GradientConvergence}
	} else {
		settings := opts.Solver
		if opts.Progress != nil {
			settings.Recorder = solver.Recorder(opts.Progress)
		}
		res, err := solver.Minimize(obj.Residuals, obj.NumResiduals(), x0, &settings)
		if err != nil {
			return nil, fmt.Errorf("minimise: %w", err)
		}
		sr = *res
	}

	params := opts.Stages.Unpack(sr.X)
	points := transform.NewPipeline(opts.Stages).Apply(start, params)
	if opts.MatchCentroid {
		params = params.PreTranslate(offset)
	}

	return &Result{
		Params:  params,
		Stages:  opts.Stages,
		Points:  points,
		Metrics: computeMetrics(initial, obj.Distances(sr.X)),
		Solver:  sr,
	}, nil
}

// RegisterTwoStage first solves for translation alone and then runs the
// requested stages from the translated set. The returned parameters map the
// original moving set in one step, and the returned solver result and
// initial RMSE cover both stages.
func RegisterTwoStage(moving, fixed []r3.Vector, opts Options) (*Result, error) {
	coarse := opts
	coarse.Stages = transform.Translate
	first, err := Register(moving, fixed, coarse)
	if err != nil {
		return nil, fmt.Errorf("translation stage: %w", err)
	}

	fine := opts
	fine.MatchCentroid = false
	second, err := Register(first.Points, fixed, fine)
	if err != nil {
		return nil, fmt.Errorf("refinement stage: %w", err)
	}

	second.Params = second.Params.PreTranslate(first.Params.Translation)
	second.Metrics.InitialRMSE = first.Metrics.InitialRMSE
	second.Solver.Iterations += first.Solver.Iterations
	second.Solver.Evaluations += first.Solver.Evaluations
	return second, nil
}
