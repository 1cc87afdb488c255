package cmd

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/ledmap/internal/capture"
	"github.com/MeKo-Tech/ledmap/internal/config"
	"github.com/MeKo-Tech/ledmap/internal/sequencer"
)

// hardwareFactory opens frame sources and sequencers described by the
// configuration. A synthetic camera simulates a strip laid across rect and
// is switched by the simulated sequencer.
type hardwareFactory struct {
	cfg    *config.Config
	rect   image.Rectangle
	dead   []int
	logger *slog.Logger
}

func (h hardwareFactory) open(ledCount int) (capture.FrameSource, sequencer.Sequencer, error) {
	opts := h.cfg.ToSequencerOptions()

	var src capture.FrameSource
	if h.cfg.Camera.Source == capture.KindSynthetic {
		scene := capture.NewSyntheticScene(capture.SceneConfig{
			Width:         h.cfg.Camera.Width,
			Height:        h.cfg.Camera.Height,
			Positions:     capture.StripPositions(h.rect, ledCount),
			Background:    25,
			Noise:         4,
			Radius:        3,
			Peak:          180,
			Jitter:        0.3,
			FrameInterval: h.cfg.Camera.FrameInterval,
			Seed:          uint64(time.Now().UnixNano()), //nolint:gosec // G115: seed only
		})
		scene.SetDead(h.dead...)
		opts.Lighter = scene
		src = scene
	} else {
		if len(h.dead) > 0 {
			h.logger.Warn("dead LEDs only apply to the synthetic camera", "dead", h.dead)
		}
		s, err := capture.Open(h.cfg.ToCaptureOptions())
		if err != nil {
			return nil, nil, err
		}
		src = s
	}

	seq, err := sequencer.Open(opts, h.logger)
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("failed to open sequencer: %w", err)
	}
	return src, seq, nil
}
