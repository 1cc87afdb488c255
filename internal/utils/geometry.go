package utils

import (
	"image"
	"math"
)

// Point represents a 2D coordinate in float space. It is used for both camera
// pixel coordinates and output-space coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p scaled by s on both axes.
func (p Point) Scale(s float64) Point { return Point{X: p.X * s, Y: p.Y * s} }

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Lerp interpolates between p and q; t=0 yields p, t=1 yields q.
func Lerp(p, q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

// ImagePoint rounds p to the nearest integer pixel.
func (p Point) ImagePoint() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// RectCorners returns the corners of r in clockwise order starting top-left:
// TL, TR, BR, BL.
func RectCorners(r image.Rectangle) [4]Point {
	return [4]Point{
		{X: float64(r.Min.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Max.Y)},
		{X: float64(r.Min.X), Y: float64(r.Max.Y)},
	}
}

// CenteredSquare returns the size×size square centered on c.
func CenteredSquare(c Point, size int) image.Rectangle {
	half := size / 2
	cx := int(math.Round(c.X))
	cy := int(math.Round(c.Y))
	return image.Rect(cx-half, cy-half, cx-half+size, cy-half+size)
}

// Spacings returns the distances between consecutive points.
func Spacings(pts []Point) []float64 {
	if len(pts) < 2 {
		return nil
	}
	out := make([]float64, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		out[i-1] = pts[i].Distance(pts[i-1])
	}
	return out
}

// PathLength returns the total length of the open polyline through pts.
func PathLength(pts []Point) float64 {
	var total float64
	for _, d := range Spacings(pts) {
		total += d
	}
	return total
}
