package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/MeKo-Tech/ledmap/internal/capture"
	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// Mode identifies how a hit was found.
type Mode string

const (
	// ModeDifferential compares against the ambient baseline.
	ModeDifferential Mode = "differential"
	// ModeAbsolute picks the brightest pixel above a floor; used without a baseline.
	ModeAbsolute Mode = "absolute"
)

// State of the detector for the light currently being searched.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateFound
	StateTimedOut
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateFound:
		return "found"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is a camera-space detection for one light.
type Result struct {
	X          float64 `json:"x"          yaml:"x"`
	Y          float64 `json:"y"          yaml:"y"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Samples    int     `json:"samples"    yaml:"samples"`
	Mode       Mode    `json:"mode"       yaml:"mode"`
	// Refined is false when any sample fell back to the seed pixel because
	// no pixel in the centroid window qualified.
	Refined bool `json:"refined" yaml:"refined"`
}

// Point returns the detected position.
func (r Result) Point() utils.Point { return utils.Point{X: r.X, Y: r.Y} }

// Hit is a single-frame detection.
type Hit struct {
	Position   utils.Point
	Seed       image.Point
	Confidence float64
	Strength   float64
	Mode       Mode
	Refined    bool
}

// Detector owns the baseline, rolling window, temporal filter and ROI of a
// mapping session. It is driven by a single goroutine.
type Detector struct {
	cfg    Config
	src    capture.FrameSource
	logger *slog.Logger

	baseline *Baseline
	window   *RollingWindow
	filter   *TemporalFilter
	roi      *ROIRefiner
	state    State
}

// New creates a detector reading from src. A nil logger uses slog.Default().
func New(src capture.FrameSource, cfg Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		cfg:    cfg,
		src:    src,
		logger: logger,
		window: NewRollingWindow(cfg.RollingFrames),
		filter: NewTemporalFilter(cfg.HistorySize, cfg.MinSamples),
		roi:    NewROIRefiner(image.Rectangle{}, cfg.ROISize),
	}
}

// Config returns the detector configuration.
func (d *Detector) Config() Config { return d.cfg }

// ROI exposes the refiner so the session can set the initial ROI.
func (d *Detector) ROI() *ROIRefiner { return d.roi }

// State returns the state of the last detection attempt.
func (d *Detector) State() State { return d.state }

// Baseline returns the current baseline, or nil for absolute mode.
func (d *Detector) Baseline() *Baseline { return d.baseline }

// SetBaseline installs b, releasing any previous baseline. Passing nil
// switches to absolute mode.
func (d *Detector) SetBaseline(b *Baseline) {
	if d.baseline != nil && d.baseline != b {
		d.baseline.Release()
	}
	d.baseline = b
}

// CaptureBaseline captures a new baseline over the initial ROI.
func (d *Detector) CaptureBaseline(ctx context.Context) error {
	b, err := CaptureBaseline(ctx, d.src, d.roi.Initial(), d.cfg)
	if err != nil {
		return err
	}
	d.SetBaseline(b)
	d.logger.Info("baseline captured",
		"mean", b.Mean,
		"threshold", b.Threshold,
		"frames", b.Frames)
	return nil
}

// Detect searches for the currently lit light until cfg.SamplesPerLight hits
// were collected or timeout elapses. With at least one hit at the deadline the
// filtered position of those hits is returned; with none the error is a
// *DetectionTimeoutError. Cancellation of ctx returns ctx.Err().
func (d *Detector) Detect(ctx context.Context, timeout time.Duration) (Result, error) {
	d.state = StateSearching
	d.filter.Reset()
	d.window.Reset()

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		frames  int
		hits    int
		confSum float64
		refined = true
		mode    Mode
	)
	for hits < d.cfg.SamplesPerLight && dctx.Err() == nil {
		g, err := nextGray(dctx, d.src)
		if err != nil {
			if dctx.Err() != nil {
				break
			}
			d.state = StateIdle
			return Result{}, err
		}
		frames++

		hit, ok, err := d.Observe(g)
		if err != nil {
			d.window.Reset()
			d.state = StateIdle
			return Result{}, err
		}
		if !ok {
			continue
		}
		hits++
		confSum += hit.Confidence
		refined = refined && hit.Refined
		mode = hit.Mode
		d.filter.Add(hit.Position)
		d.logger.Debug("detection hit",
			"x", hit.Position.X, "y", hit.Position.Y,
			"confidence", hit.Confidence,
			"mode", string(hit.Mode),
			"refined", hit.Refined)
	}
	d.window.Reset()

	if err := ctx.Err(); err != nil {
		d.state = StateCancelled
		return Result{}, err
	}
	if hits == 0 {
		d.state = StateTimedOut
		if d.cfg.ResetOnMiss {
			d.roi.Reset()
		}
		return Result{}, &DetectionTimeoutError{Timeout: timeout, Frames: frames}
	}

	pos, _ := d.filter.Position()
	d.state = StateFound
	if !d.roi.Update(pos) {
		d.logger.Debug("roi refinement skipped", "x", pos.X, "y", pos.Y)
	}
	return Result{
		X:          pos.X,
		Y:          pos.Y,
		Confidence: confSum / float64(hits),
		Samples:    hits,
		Mode:       mode,
		Refined:    refined,
	}, nil
}

// Observe pushes a frame into the rolling window and analyses the average.
// The detector takes ownership of g. A frame whose size no longer matches the
// baseline is a *capture.CaptureUnavailableError.
func (d *Detector) Observe(g *capture.GrayFrame) (Hit, bool, error) {
	d.window.Push(g)
	return d.analyze()
}

// searchArea is the active ROI clipped to the frame, or the whole frame when
// no ROI is set.
func (d *Detector) searchArea(frame image.Rectangle) image.Rectangle {
	active := d.roi.Active()
	if active.Empty() {
		return frame
	}
	return active.Intersect(frame)
}

func (d *Detector) analyze() (Hit, bool, error) {
	sum := d.window.Sum()
	if sum == nil {
		return Hit{}, false, nil
	}
	if d.baseline == nil || d.baseline.Frame == nil {
		hit, ok := d.analyzeAbsolute(sum)
		return hit, ok, nil
	}
	if d.baseline.Frame.Rect != sum.Rect {
		return Hit{}, false, &capture.CaptureUnavailableError{
			Source: "camera",
			Err:    fmt.Errorf("frame size %v differs from baseline %v", sum.Rect, d.baseline.Frame.Rect),
		}
	}
	hit, ok := d.analyzeDifferential(sum)
	return hit, ok, nil
}

func (d *Detector) analyzeDifferential(sum *capture.GrayFrame) (Hit, bool) {
	base := d.baseline.Frame
	threshold := d.baseline.Threshold
	area := d.searchArea(sum.Rect)

	delta := func(x, y int) float64 {
		i := sum.Index(x, y)
		return d.window.Value(i) - base.Pix[i]
	}

	seed, maxDelta, ok := argmax(area, delta, threshold)
	if !ok {
		return Hit{}, false
	}

	win := centroidWindow(seed, d.cfg.CentroidWindow, sum.Rect)
	pos, refined := weightedCentroid(win, func(x, y int) float64 {
		if v := delta(x, y); v > threshold {
			return v
		}
		return 0
	})
	if !refined {
		pos = utils.Point{X: float64(seed.X), Y: float64(seed.Y)}
	}
	return Hit{
		Position:   pos,
		Seed:       seed,
		Confidence: math.Min(maxDelta/d.cfg.ConfidenceScale, 1),
		Strength:   maxDelta,
		Mode:       ModeDifferential,
		Refined:    refined,
	}, true
}

func (d *Detector) analyzeAbsolute(sum *capture.GrayFrame) (Hit, bool) {
	floor := d.cfg.AbsoluteFloor
	area := d.searchArea(sum.Rect)

	bright := func(x, y int) float64 { return d.window.Value(sum.Index(x, y)) }

	seed, peak, ok := argmax(area, bright, floor)
	if !ok {
		return Hit{}, false
	}

	win := centroidWindow(seed, d.cfg.CentroidWindow, sum.Rect)
	pos, refined := weightedCentroid(win, func(x, y int) float64 {
		return bright(x, y) - floor
	})
	if !refined {
		pos = utils.Point{X: float64(seed.X), Y: float64(seed.Y)}
	}
	return Hit{
		Position:   pos,
		Seed:       seed,
		Confidence: math.Min(peak/255, 1),
		Strength:   peak,
		Mode:       ModeAbsolute,
		Refined:    refined,
	}, true
}

// argmax finds the pixel in area with the largest value strictly above floor.
func argmax(area image.Rectangle, value func(x, y int) float64, floor float64) (image.Point, float64, bool) {
	best := floor
	var at image.Point
	found := false
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if v := value(x, y); v > best {
				best = v
				at = image.Pt(x, y)
				found = true
			}
		}
	}
	return at, best, found
}

// ResetLight clears per-light state: history and rolling frames.
func (d *Detector) ResetLight() {
	d.filter.Reset()
	d.window.Reset()
	d.state = StateIdle
}

// Reset returns the detector to a clean slate: baseline released, history and
// rolling frames cleared, ROI restored to its initial bound.
func (d *Detector) Reset() {
	d.SetBaseline(nil)
	d.ResetLight()
	d.roi.Reset()
}

// IsTimeout reports whether err is a per-light detection timeout.
func IsTimeout(err error) bool {
	var te *DetectionTimeoutError
	return errors.As(err, &te)
}
