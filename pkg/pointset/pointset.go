// Package pointset holds the small helpers shared by every stage of the
// registration pipeline: validation, conversion to and from raw rows, and
// centroids. A point set is an ordered []r3.Vector; order is significant
// because it maps back to mesh node identifiers, so nothing in this module
// reorders or mutates a caller's slice.
package pointset

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"
)

// Dims is the dimensionality of every point handled by this module.
const Dims = 3

// Validate checks that points is usable as a registration input.
func Validate(points []r3.Vector) error {
	if len(points) == 0 {
		return ErrEmptyPointSet
	}
	return nil
}

// FromRows converts raw coordinate rows into points. Every row must hold
// exactly three values.
func FromRows(rows [][]float64) ([]r3.Vector, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyPointSet
	}
	points := make([]r3.Vector, len(rows))
	for i, row := range rows {
		if len(row) != Dims {
			return nil, fmt.Errorf("row %d has %d values: %w", i, len(row), ErrDimensionMismatch)
		}
		points[i] = r3.Vector{X: row[0], Y: row[1], Z: row[2]}
	}
	return points, nil
}

// ToRows converts points into [x y z] rows.
func ToRows(points []r3.Vector) [][]float64 {
	rows := make([][]float64, len(points))
	for i, p := range points {
		rows[i] = []float64{p.X, p.Y, p.Z}
	}
	return rows
}

// Clone returns a copy of points.
func Clone(points []r3.Vector) []r3.Vector {
	out := make([]r3.Vector, len(points))
	copy(out, points)
	return out
}

// Centroid returns the per-axis mean of points. The centroid of an empty
// set is the origin.
func Centroid(points []r3.Vector) r3.Vector {
	if len(points) == 0 {
		return r3.Vector{}
	}
	xs, ys, zs := Columns(points)
	return r3.Vector{
		X: stat.Mean(xs, nil),
		Y: stat.Mean(ys, nil),
		Z: stat.Mean(zs, nil),
	}
}

// Columns splits points into per-axis coordinate slices.
func Columns(points []r3.Vector) (xs, ys, zs []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	zs = make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	return xs, ys, zs
}
