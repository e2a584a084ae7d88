package pointset

import "errors"

var (
	// ErrEmptyPointSet is returned when an operation needs at least one point.
	ErrEmptyPointSet = errors.New("point set is empty")

	// ErrDimensionMismatch is returned when point rows are not 3 wide or
	// when paired point lists differ in length.
	ErrDimensionMismatch = errors.New("point dimension mismatch")

	// ErrInsufficientLandmarks is returned when an affine fit is given fewer
	// than four landmark pairs.
	ErrInsufficientLandmarks = errors.New("at least 4 landmark pairs are required")
)
