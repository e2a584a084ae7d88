package registration

import (
	"fmt"

	"github.com/golang/geo/r3"

	"pointfit/pkg/pointset"
	"pointfit/pkg/spatial"
	"pointfit/pkg/transform"
)

// Direction selects which set supplies the query points.
type Direction int

const (
	// Forward measures from every transformed moving point to its nearest
	// fixed point. The fixed set is indexed once.
	Forward Direction = iota

	// Reverse measures from every fixed point to its nearest transformed
	// moving point. The transformed moving set is re-indexed on every
	// evaluation.
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// Objective maps packed transform parameters to squared nearest-neighbour
// distances. It holds no mutable state, so one Objective may be evaluated
// from several goroutines.
type Objective struct {
	moving    []r3.Vector
	fixed     []r3.Vector
	index     *spatial.Index
	pipeline  transform.Pipeline
	direction Direction
	workers   int
}

// NewObjective prepares an objective for the given stages and direction.
// workers is forwarded to the spatial index (see spatial.Index.WithWorkers).
func NewObjective(moving, fixed []r3.Vector, stages transform.Stages, direction Direction, workers int) (Objective, error) {
	if err := pointset.Validate(moving); err != nil {
		return Objective{}, fmt.Errorf("moving points: %w", err)
	}
	if err := pointset.Validate(fixed); err != nil {
		return Objective{}, fmt.Errorf("fixed points: %w", err)
	}
	if err := stages.Validate(); err != nil {
		return Objective{}, err
	}

	o := Objective{
		moving:    moving,
		fixed:     fixed,
		pipeline:  transform.NewPipeline(stages),
		direction: direction,
		workers:   workers,
	}
	if direction == Forward {
		ix, err := spatial.Build(fixed)
		if err != nil {
			return Objective{}, err
		}
		o.index = ix.WithWorkers(workers)
	}
	return o, nil
}

// NumResiduals returns the length of the residual vector.
func (o Objective) NumResiduals() int {
	if o.direction == Reverse {
		return len(o.fixed)
	}
	return len(o.moving)
}

// Stages returns the active transform stages.
func (o Objective) Stages() transform.Stages {
	return o.pipeline.Stages()
}

// Distances returns the Euclidean nearest-neighbour distances at x.
func (o Objective) Distances(x []float64) []float64 {
	d := make([]float64, o.NumResiduals())
	o.distancesInto(d, x)
	return d
}

// Residuals writes the squared nearest-neighbour distances at x into dst.
// It has the signature expected by solver.Minimize.
func (o Objective) Residuals(dst, x []float64) {
	o.distancesInto(dst, x)
	for i, d := range dst {
		dst[i] = d * d
	}
}

func (o Objective) distancesInto(dst, x []float64) {
	moved := o.pipeline.ApplyVector(o.moving, x)

	if o.direction == Forward {
		o.index.QueryInto(dst, moved)
		return
	}

	ix, err := spatial.Build(moved)
	if err != nil {
		// moved has the length of the validated moving set
		panic(err)
	}
	ix.WithWorkers(o.workers).QueryInto(dst, o.fixed)
}
