package calibrate

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// DegenerateDeterminant is the absolute determinant below which the normal
// matrix is considered singular.
const DegenerateDeterminant = 1e-10

// AffineTransform maps camera coordinates to output coordinates:
//
//	x' = A·x + B·y + C
//	y' = D·x + E·y + F
type AffineTransform struct {
	A float64 `json:"a" yaml:"a"`
	B float64 `json:"b" yaml:"b"`
	C float64 `json:"c" yaml:"c"`
	D float64 `json:"d" yaml:"d"`
	E float64 `json:"e" yaml:"e"`
	F float64 `json:"f" yaml:"f"`
}

// Identity returns the identity transform.
func Identity() AffineTransform { return AffineTransform{A: 1, E: 1} }

// Apply transforms p. The result may be non-finite for corrupted coefficients;
// callers that need a guarantee use Calibration.Apply.
func (t AffineTransform) Apply(p utils.Point) utils.Point {
	return utils.Point{
		X: t.A*p.X + t.B*p.Y + t.C,
		Y: t.D*p.X + t.E*p.Y + t.F,
	}
}

// IsFinite reports whether all coefficients are finite.
func (t AffineTransform) IsFinite() bool {
	for _, v := range [6]float64{t.A, t.B, t.C, t.D, t.E, t.F} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SolveAffine computes the least-squares affine transform mapping src[i] onto
// dst[i]. Both axes share the same 3×3 normal matrix, so it is solved twice by
// Cramer's rule with different right-hand sides.
func SolveAffine(src, dst []utils.Point) (AffineTransform, error) {
	if len(src) != len(dst) {
		return AffineTransform{}, fmt.Errorf("point count mismatch: %d source vs %d destination", len(src), len(dst))
	}
	if len(src) < 4 {
		return AffineTransform{}, ErrInsufficientPoints
	}

	var sxx, sxy, sx, syy, sy, n float64
	var bx, by [3]float64
	for i, p := range src {
		q := dst[i]
		sxx += p.X * p.X
		sxy += p.X * p.Y
		sx += p.X
		syy += p.Y * p.Y
		sy += p.Y
		n++

		bx[0] += p.X * q.X
		bx[1] += p.Y * q.X
		bx[2] += q.X
		by[0] += p.X * q.Y
		by[1] += p.Y * q.Y
		by[2] += q.Y
	}

	m := [3][3]float64{
		{sxx, sxy, sx},
		{sxy, syy, sy},
		{sx, sy, n},
	}
	det := det3(m)
	if math.Abs(det) < DegenerateDeterminant {
		return AffineTransform{}, &DegenerateInputError{Determinant: det, Points: len(src)}
	}

	abc := cramer(m, bx, det)
	def := cramer(m, by, det)
	return AffineTransform{
		A: abc[0], B: abc[1], C: abc[2],
		D: def[0], E: def[1], F: def[2],
	}, nil
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// cramer solves m·x = b given det(m).
func cramer(m [3][3]float64, b [3]float64, det float64) [3]float64 {
	var x [3]float64
	for col := range 3 {
		mc := m
		for row := range 3 {
			mc[row][col] = b[row]
		}
		x[col] = det3(mc) / det
	}
	return x
}
