package detector

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// TemporalFilter suppresses per-frame jitter with a sliding-window median.
// History belongs to a single light and is reset between lights.
type TemporalFilter struct {
	size       int
	minSamples int
	history    []utils.Point
	xs, ys     []float64
}

// NewTemporalFilter keeps up to size positions and starts filtering once
// minSamples are present.
func NewTemporalFilter(size, minSamples int) *TemporalFilter {
	size = max(size, 1)
	minSamples = min(max(minSamples, 1), size)
	return &TemporalFilter{
		size:       size,
		minSamples: minSamples,
		history:    make([]utils.Point, 0, size),
		xs:         make([]float64, 0, size),
		ys:         make([]float64, 0, size),
	}
}

// Add records p, evicting the oldest entry when full, and returns the
// filtered position.
func (f *TemporalFilter) Add(p utils.Point) utils.Point {
	if len(f.history) == f.size {
		copy(f.history, f.history[1:])
		f.history = f.history[:f.size-1]
	}
	f.history = append(f.history, p)
	pos, _ := f.Position()
	return pos
}

// Position returns the filtered position: the per-axis median once enough
// samples exist, the latest raw sample before that. ok is false when empty.
func (f *TemporalFilter) Position() (utils.Point, bool) {
	n := len(f.history)
	if n == 0 {
		return utils.Point{}, false
	}
	if n < f.minSamples {
		return f.history[n-1], true
	}
	f.xs = f.xs[:0]
	f.ys = f.ys[:0]
	for _, p := range f.history {
		f.xs = append(f.xs, p.X)
		f.ys = append(f.ys, p.Y)
	}
	sort.Float64s(f.xs)
	sort.Float64s(f.ys)
	return utils.Point{
		X: stat.Quantile(0.5, stat.Empirical, f.xs, nil),
		Y: stat.Quantile(0.5, stat.Empirical, f.ys, nil),
	}, true
}

// Len returns the number of samples in the history.
func (f *TemporalFilter) Len() int { return len(f.history) }

// Reset clears the history.
func (f *TemporalFilter) Reset() { f.history = f.history[:0] }
