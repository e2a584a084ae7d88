package registration

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics summarises the nearest-neighbour distances before and after a
// registration, measured in the registration's own direction.
type Metrics struct {
	// RMSE is the root mean square nearest-neighbour distance after
	// registration.
	RMSE float64

	// MeanDistance is the mean nearest-neighbour distance after registration.
	MeanDistance float64

	// MaxDistance is the largest nearest-neighbour distance after
	// registration.
	MaxDistance float64

	// InitialRMSE is the RMSE of the caller's moving set before any
	// transform, including the centroid shift.
	InitialRMSE float64

	// SumSquares is the minimised objective, Σ d_i⁴.
	SumSquares float64
}

// Improvement returns the relative RMSE reduction in [0, 1]; a negative
// value means the registration made the fit worse.
func (m Metrics) Improvement() float64 {
	if m.InitialRMSE == 0 {
		return 0
	}
	return 1 - m.RMSE/m.InitialRMSE
}

func computeMetrics(initial, final []float64) Metrics {
	m := Metrics{
		RMSE:         rmse(final),
		InitialRMSE:  rmse(initial),
		MeanDistance: stat.Mean(final, nil),
		MaxDistance:  floats.Max(final),
	}
	for _, d := range final {
		d2 := d * d
		m.SumSquares += d2 * d2
	}
	return m
}

func rmse(d []float64) float64 {
	return math.Sqrt(floats.Dot(d, d) / float64(len(d)))
}
