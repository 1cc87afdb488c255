package detector

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/MeKo-Tech/ledmap/internal/capture"
)

// Baseline is the ambient reference frame with its derived threshold.
type Baseline struct {
	Frame     *capture.GrayFrame
	Mean      float64
	Threshold float64
	Frames    int
}

// Release returns the baseline plane to the buffer pool.
func (b *Baseline) Release() {
	if b == nil {
		return
	}
	b.Frame.Release()
	b.Frame = nil
}

// CaptureBaseline averages cfg.BaselineFrames frames pixel-wise, spaced by
// cfg.BaselineInterval, and derives the threshold from the mean brightness
// inside roi (the whole frame when roi is empty).
func CaptureBaseline(ctx context.Context, src capture.FrameSource, roi image.Rectangle, cfg Config) (*Baseline, error) {
	frames := max(cfg.BaselineFrames, 1)
	var acc *capture.GrayFrame

	for i := range frames {
		if i > 0 && cfg.BaselineInterval > 0 {
			if err := sleepCtx(ctx, cfg.BaselineInterval); err != nil {
				acc.Release()
				return nil, err
			}
		}
		g, err := nextGray(ctx, src)
		if err != nil {
			acc.Release()
			return nil, err
		}
		if acc == nil {
			acc = capture.NewGrayFrame(g.Rect)
		}
		if g.Rect != acc.Rect {
			g.Release()
			acc.Release()
			return nil, &capture.CaptureUnavailableError{
				Source: "camera",
				Err:    fmt.Errorf("frame size changed during baseline: %v vs %v", g.Rect, acc.Rect),
			}
		}
		for j, v := range g.Pix {
			acc.Pix[j] += v
		}
		g.Release()
	}

	inv := 1 / float64(frames)
	for j := range acc.Pix {
		acc.Pix[j] *= inv
	}
	mean := acc.Mean(roi)
	return &Baseline{
		Frame:     acc,
		Mean:      mean,
		Threshold: cfg.Bands.Threshold(mean),
		Frames:    frames,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
