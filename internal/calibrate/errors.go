package calibrate

import (
	"errors"
	"fmt"
)

// ErrInsufficientPoints is returned when fewer than four correspondences are supplied.
var ErrInsufficientPoints = errors.New("at least 4 point correspondences are required")

// DegenerateInputError reports a singular normal matrix (collinear or
// coincident camera points).
type DegenerateInputError struct {
	Determinant float64
	Points      int
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate calibration input: determinant %.3g over %d points", e.Determinant, e.Points)
}

// TransformNotReadyError is returned by Apply before ComputeTransform succeeded.
type TransformNotReadyError struct {
	Correspondences int
}

func (e *TransformNotReadyError) Error() string {
	return fmt.Sprintf("calibration transform not computed (%d correspondences recorded)", e.Correspondences)
}

// InvalidTransformError reports a non-finite transformed coordinate.
type InvalidTransformError struct {
	X, Y float64
}

func (e *InvalidTransformError) Error() string {
	return fmt.Sprintf("transform produced non-finite point (%v, %v)", e.X, e.Y)
}
