package mapping

import (
	"sort"
	"time"

	"github.com/MeKo-Tech/ledmap/internal/normalize"
	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// MappedPosition is a detected LED in both coordinate spaces.
type MappedPosition struct {
	Index      int         `json:"index"      yaml:"index"`
	Output     utils.Point `json:"output"     yaml:"output"`
	Camera     utils.Point `json:"camera"     yaml:"camera"`
	Confidence float64     `json:"confidence" yaml:"confidence"`
	Samples    int         `json:"samples"    yaml:"samples"`
	Refined    bool        `json:"refined"    yaml:"refined"`
}

// Result is the outcome of a completed session.
type Result struct {
	SessionID   string                 `json:"session_id"   yaml:"session_id"`
	Total       int                    `json:"total"        yaml:"total"`
	Positions   map[int]MappedPosition `json:"positions"    yaml:"positions"`
	Failed      []int                  `json:"failed"       yaml:"failed"`
	SuccessRate float64                `json:"success_rate" yaml:"success_rate"`
	StartedAt   time.Time              `json:"started_at"   yaml:"started_at"`
	FinishedAt  time.Time              `json:"finished_at"  yaml:"finished_at"`

	// Normalized is set when normalization ran on completion.
	Normalized *normalize.Result `json:"normalized,omitempty" yaml:"normalized,omitempty"`
}

func newResult(id string, total int) *Result {
	return &Result{
		SessionID: id,
		Total:     total,
		Positions: make(map[int]MappedPosition, total),
		Failed:    []int{},
		StartedAt: time.Now(),
	}
}

// Ordered returns the mapped positions sorted by LED index.
func (r *Result) Ordered() []MappedPosition {
	out := make([]MappedPosition, 0, len(r.Positions))
	for _, p := range r.Positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// OutputPoints returns the output-space points in index order.
func (r *Result) OutputPoints() []utils.Point {
	ordered := r.Ordered()
	pts := make([]utils.Point, len(ordered))
	for i, p := range ordered {
		pts[i] = p.Output
	}
	return pts
}

// Duration is the wall time of the session.
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Result) has(index int) bool {
	if _, ok := r.Positions[index]; ok {
		return true
	}
	for _, f := range r.Failed {
		if f == index {
			return true
		}
	}
	return false
}

func (r *Result) processed() int { return len(r.Positions) + len(r.Failed) }

// rollingRate is the success rate over the lights handled so far.
func (r *Result) rollingRate() float64 {
	if n := r.processed(); n > 0 {
		return float64(len(r.Positions)) / float64(n)
	}
	return 0
}
