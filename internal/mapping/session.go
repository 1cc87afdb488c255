// Package mapping runs a mapping session: it drives the activation sequence,
// detects each LED in turn and assembles the output-space point set.
package mapping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/ledmap/internal/calibrate"
	"github.com/MeKo-Tech/ledmap/internal/capture"
	"github.com/MeKo-Tech/ledmap/internal/common"
	"github.com/MeKo-Tech/ledmap/internal/detector"
	"github.com/MeKo-Tech/ledmap/internal/normalize"
	"github.com/MeKo-Tech/ledmap/internal/sequencer"
)

// State of a mapping session.
type State int

const (
	StateIdle State = iota
	StateBaselineCapture
	StateActive
	StateComplete
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBaselineCapture:
		return "baseline_capture"
	case StateActive:
		return "active"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed || s == StateCancelled
}

// ErrSessionUsed is returned when Run is called twice on one session.
var ErrSessionUsed = errors.New("mapping session already run")

// Snapshot is a consistent view of session progress.
type Snapshot struct {
	ID          string  `json:"id"`
	State       string  `json:"state"`
	Current     int     `json:"current"`
	Total       int     `json:"total"`
	Mapped      int     `json:"mapped"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	Threshold   float64 `json:"threshold,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProgress adds a progress listener.
func WithProgress(l ProgressListener) Option {
	return func(s *Session) {
		if l != nil {
			s.progress = append(s.progress, l)
		}
	}
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// Session maps one LED strip. It is created once calibration is confirmed,
// run once, and discarded afterwards.
type Session struct {
	id       string
	cfg      Config
	calib    *calibrate.Calibration
	src      capture.FrameSource
	seq      sequencer.Sequencer
	det      *detector.Detector
	logger   *slog.Logger
	progress multiProgress

	stopOnce sync.Once
	done     chan struct{}

	mu        sync.Mutex
	state     State
	started   bool
	cancelled bool
	cancel    context.CancelFunc
	current   int
	threshold float64
	result    *Result
	err       error
}

// NewSession creates a session. calib must hold a computed transform by the
// time Run is called; it is only read.
func NewSession(cfg Config, calib *calibrate.Calibration, src capture.FrameSource, seq sequencer.Sequencer, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if calib == nil || src == nil || seq == nil {
		return nil, errors.New("mapping session needs a calibration, a frame source and a sequencer")
	}
	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		calib:   calib,
		src:     src,
		seq:     seq,
		logger:  slog.Default(),
		done:    make(chan struct{}),
		current: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)
	s.det = detector.New(src, cfg.Detector, s.logger)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that failed the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Result returns the result of a completed session, or nil.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateComplete {
		return nil
	}
	return s.result
}

// Snapshot returns the current progress counters.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:        s.id,
		State:     s.state.String(),
		Current:   s.current,
		Total:     s.cfg.LEDCount,
		Threshold: s.threshold,
	}
	if s.result != nil {
		snap.Mapped = len(s.result.Positions)
		snap.Failed = len(s.result.Failed)
		snap.SuccessRate = s.result.rollingRate()
		if s.state == StateComplete {
			snap.SuccessRate = s.result.SuccessRate
		}
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

// Cancel abandons the session. It is safe to call at any time and from any
// goroutine; a running Run returns promptly with context.Canceled and the
// in-progress result is discarded.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes the session to a terminal state. Per-light misses are recorded
// in the result; calibration, capture and sequence errors end the session.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, ErrSessionUsed
	}
	s.started = true
	defer close(s.done)
	if s.cancelled {
		s.state = StateCancelled
		s.mu.Unlock()
		sessionsTotal.WithLabelValues(StateCancelled.String()).Inc()
		return nil, context.Canceled
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.result = newResult(s.id, s.cfg.LEDCount)
	s.mu.Unlock()
	defer cancel()

	res, err := s.run(runCtx)
	return s.finish(runCtx, res, err)
}

func (s *Session) run(ctx context.Context) (*Result, error) {
	if _, ok := s.calib.Transform(); !ok {
		return nil, &calibrate.TransformNotReadyError{Correspondences: len(s.calib.Correspondences())}
	}

	roi := s.det.ROI()
	roi.SetInitial(s.calib.Rectangle())
	roi.Reset()

	s.setState(StateBaselineCapture)
	timer := common.NewStageTimer("baseline", baselineDuration)
	if err := s.det.CaptureBaseline(ctx); err != nil {
		return nil, err
	}
	s.logger.Debug("baseline captured", "duration", timer.Stop())
	s.mu.Lock()
	s.threshold = s.det.Baseline().Threshold
	s.mu.Unlock()

	s.setState(StateActive)
	events, err := s.seq.Start(ctx, s.cfg.sequencerConfig())
	if err != nil {
		var se *sequencer.SequenceError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &sequencer.SequenceError{Message: "start sequence", Err: err}
	}
	defer s.stopSequencer()
	s.progress.OnStart(s.cfg.LEDCount)
	s.logger.Info("mapping started", "leds", s.cfg.LEDCount, "initial_roi", roi.Initial().String())

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return nil, &sequencer.SequenceError{Message: "event stream closed before completion"}
			}
			switch ev.Type {
			case sequencer.EventLEDActive:
				if err := s.handleLight(ctx, ev); err != nil {
					return nil, err
				}
			case sequencer.EventSequenceComplete:
				return s.complete(), nil
			case sequencer.EventError:
				return nil, &sequencer.SequenceError{Message: ev.Message}
			default:
				s.logger.Warn("ignoring unknown sequencer event", "type", string(ev.Type))
			}
		}
	}
}

func (s *Session) handleLight(ctx context.Context, ev sequencer.Event) error {
	idx := ev.Index
	if idx < 0 || idx >= s.cfg.LEDCount {
		s.logger.Warn("activation index out of range", "index", idx, "total", s.cfg.LEDCount)
		return nil
	}
	s.mu.Lock()
	dup := s.result.has(idx)
	s.current = idx
	s.mu.Unlock()
	if dup {
		s.logger.Warn("duplicate activation ignored", "index", idx)
		return nil
	}
	if ev.Total != 0 && ev.Total != s.cfg.LEDCount {
		s.logger.Debug("sequencer total differs from configured count", "event_total", ev.Total, "configured", s.cfg.LEDCount)
	}

	if err := sleepCtx(ctx, s.cfg.SettleDelay); err != nil {
		return err
	}

	timer := common.NewStageTimer("detect", detectionDuration)
	det, err := s.det.Detect(ctx, s.cfg.LightTimeout)
	timer.Stop()
	if err != nil {
		if detector.IsTimeout(err) {
			s.logger.Info("led not detected", "index", idx, "error", err)
			s.recordFailure(idx, "timeout")
			return nil
		}
		return err
	}

	out, err := s.calib.Apply(det.Point())
	if err != nil {
		s.logger.Warn("transform failed for detection", "index", idx, "x", det.X, "y", det.Y, "error", err)
		s.recordFailure(idx, "error")
		return nil
	}

	pos := MappedPosition{
		Index:      idx,
		Output:     out,
		Camera:     det.Point(),
		Confidence: det.Confidence,
		Samples:    det.Samples,
		Refined:    det.Refined,
	}
	s.mu.Lock()
	s.result.Positions[idx] = pos
	s.mu.Unlock()
	ledsTotal.WithLabelValues("mapped").Inc()
	s.logger.Debug("led mapped",
		"index", idx,
		"x", out.X, "y", out.Y,
		"confidence", det.Confidence,
		"samples", det.Samples,
		"duration", timer.Duration())
	s.progress.OnLight(idx, s.cfg.LEDCount, &pos)
	return nil
}

func (s *Session) recordFailure(idx int, reason string) {
	s.mu.Lock()
	s.result.Failed = append(s.result.Failed, idx)
	s.mu.Unlock()
	ledsTotal.WithLabelValues(reason).Inc()
	s.progress.OnLight(idx, s.cfg.LEDCount, nil)
}

// complete finalizes the result: lights never announced count as failed.
func (s *Session) complete() *Result {
	s.mu.Lock()
	res := s.result
	for i := range s.cfg.LEDCount {
		if !res.has(i) {
			res.Failed = append(res.Failed, i)
			s.logger.Warn("led never activated", "index", i)
		}
	}
	sort.Ints(res.Failed)
	res.SuccessRate = float64(len(res.Positions)) / float64(s.cfg.LEDCount)
	res.FinishedAt = time.Now()
	s.mu.Unlock()

	if s.cfg.NormalizeOnComplete {
		norm, err := normalize.Normalize(res.OutputPoints(), s.cfg.Normalize)
		if err != nil {
			s.logger.Warn("normalization skipped", "error", err)
		} else {
			s.mu.Lock()
			res.Normalized = &norm
			s.mu.Unlock()
		}
	}
	return res
}

func (s *Session) finish(ctx context.Context, res *Result, err error) (*Result, error) {
	s.stopSequencer()

	var capErr *capture.CaptureUnavailableError
	capFailed := errors.As(err, &capErr)
	if capFailed {
		if cerr := s.src.Close(); cerr != nil {
			s.logger.Warn("closing frame source failed", "error", cerr)
		}
	}
	s.det.Reset()

	s.mu.Lock()
	switch {
	case err == nil:
		s.state = StateComplete
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		s.state = StateCancelled
		s.result = nil
		err = context.Canceled
	default:
		s.state = StateFailed
		s.err = err
	}
	state := s.state
	s.mu.Unlock()

	sessionsTotal.WithLabelValues(state.String()).Inc()
	switch state {
	case StateComplete:
		sessionSuccessRatio.Set(res.SuccessRate)
		s.logger.Info("mapping complete",
			"mapped", len(res.Positions),
			"failed", res.Failed,
			"success_rate", res.SuccessRate,
			"duration", res.Duration())
		s.progress.OnComplete(res)
		return res, nil
	case StateCancelled:
		s.logger.Info("mapping cancelled")
		s.progress.OnError(err)
		return nil, err
	default:
		s.logger.Error("mapping failed", "error", err, "capture_failure", capFailed)
		s.progress.OnError(err)
		return nil, err
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.logger.Debug("session state", "state", st.String())
}

// stopSequencer detaches from the hardware exactly once.
func (s *Session) stopSequencer() {
	s.stopOnce.Do(func() {
		if err := s.seq.Stop(); err != nil {
			s.logger.Warn("stopping sequencer failed", "error", err)
		}
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
