// Package normalize post-processes an ordered LED point sequence: moving
// average smoothing followed by arc-length respacing.
package normalize

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// ErrTooFewPoints is returned for sequences shorter than three points.
var ErrTooFewPoints = errors.New("normalize: at least 3 points are required")

// ErrSpacingTooSmall is returned when a fixed spacing would place more than
// MaxRespaceFactor points per input point along the path.
var ErrSpacingTooSmall = errors.New("normalize: spacing too small for path length")

// MaxRespaceFactor bounds the respaced point count relative to the input.
const MaxRespaceFactor = 100

// Options toggles the two passes. Smoothing always runs first.
type Options struct {
	Smooth  bool    `json:"smooth"  yaml:"smooth"`
	Window  int     `json:"window"  yaml:"window"`  // Centered moving-average window (default: 5)
	Respace bool    `json:"respace" yaml:"respace"`
	Spacing float64 `json:"spacing" yaml:"spacing"` // Target spacing; 0 keeps the point count (uniform)
}

// DefaultOptions enables both passes with a window of 5 and uniform spacing.
func DefaultOptions() Options {
	return Options{Smooth: true, Window: 5, Respace: true}
}

// Result carries the normalized points and the spacing quality signal.
type Result struct {
	Points           []utils.Point `json:"points"             yaml:"points"`
	SpacingStdBefore float64       `json:"spacing_std_before" yaml:"spacing_std_before"`
	SpacingStdAfter  float64       `json:"spacing_std_after"  yaml:"spacing_std_after"`
	PathLength       float64       `json:"path_length"        yaml:"path_length"`
	MeanSpacing      float64       `json:"mean_spacing"       yaml:"mean_spacing"`
}

// Normalize applies the enabled passes to points, which must follow the
// physical wiring order.
func Normalize(points []utils.Point, opts Options) (Result, error) {
	if len(points) < 3 {
		return Result{}, ErrTooFewPoints
	}
	for i, p := range points {
		if !p.IsFinite() {
			return Result{}, fmt.Errorf("normalize: point %d is not finite", i)
		}
	}
	if opts.Spacing < 0 {
		return Result{}, fmt.Errorf("normalize: negative spacing %v", opts.Spacing)
	}

	out := make([]utils.Point, len(points))
	copy(out, points)
	if opts.Smooth {
		out = Smooth(out, opts.Window)
	}
	if opts.Respace {
		if opts.Spacing > 0 {
			if limit := respaceLimit(len(out)); utils.PathLength(out)/opts.Spacing >= float64(limit) {
				return Result{}, fmt.Errorf("%w: spacing %g over length %.2f exceeds %d points",
					ErrSpacingTooSmall, opts.Spacing, utils.PathLength(out), limit)
			}
		}
		out = Respace(out, opts.Spacing)
	}
	return Result{
		Points:           out,
		SpacingStdBefore: SpacingStd(points),
		SpacingStdAfter:  SpacingStd(out),
		PathLength:       utils.PathLength(out),
		MeanSpacing:      MeanSpacing(out),
	}, nil
}

// Smooth applies a centered moving average. Near the ends the window is
// truncated to the available neighbours, so the endpoints stay close to
// their originals.
func Smooth(points []utils.Point, window int) []utils.Point {
	out := make([]utils.Point, len(points))
	if window <= 1 {
		copy(out, points)
		return out
	}
	half := window / 2
	for i := range points {
		lo := max(i-half, 0)
		hi := min(i+half, len(points)-1)
		var sum utils.Point
		for j := lo; j <= hi; j++ {
			sum = sum.Add(points[j])
		}
		out[i] = sum.Scale(1 / float64(hi-lo+1))
	}
	return out
}

// Respace redistributes points at equal arc length along the polyline.
// With spacing 0 the point count is kept and both endpoints are preserved;
// otherwise points are placed every spacing units from the start, capped at
// MaxRespaceFactor points per input point.
func Respace(points []utils.Point, spacing float64) []utils.Point {
	if len(points) < 2 {
		return append([]utils.Point(nil), points...)
	}
	cum := make([]float64, len(points))
	for i, d := range utils.Spacings(points) {
		cum[i+1] = cum[i] + d
	}
	total := cum[len(cum)-1]
	if total == 0 {
		return append([]utils.Point(nil), points...)
	}

	n := len(points)
	uniform := spacing <= 0
	if uniform {
		spacing = total / float64(n-1)
	} else {
		n = int(min(total/spacing, float64(respaceLimit(len(points))-1))) + 1
	}

	out := make([]utils.Point, n)
	for k := range n {
		target := min(float64(k)*spacing, total)
		out[k] = pointAt(points, cum, target)
	}
	if uniform {
		out[n-1] = points[len(points)-1]
	}
	return out
}

func respaceLimit(n int) int { return MaxRespaceFactor * n }

// pointAt interpolates the position at arc length s.
func pointAt(points []utils.Point, cum []float64, s float64) utils.Point {
	// first vertex whose cumulative length is >= s
	i := sort.SearchFloat64s(cum, s)
	if i == 0 {
		return points[0]
	}
	if i >= len(cum) {
		return points[len(points)-1]
	}
	seg := cum[i] - cum[i-1]
	if seg == 0 {
		return points[i]
	}
	return utils.Lerp(points[i-1], points[i], (s-cum[i-1])/seg)
}

// SpacingStd is the standard deviation of consecutive point distances;
// 0 for fewer than two spacings.
func SpacingStd(points []utils.Point) float64 {
	d := utils.Spacings(points)
	if len(d) < 2 {
		return 0
	}
	return stat.StdDev(d, nil)
}

// MeanSpacing is the average distance between consecutive points.
func MeanSpacing(points []utils.Point) float64 {
	d := utils.Spacings(points)
	if len(d) == 0 {
		return 0
	}
	return floats.Sum(d) / float64(len(d))
}
