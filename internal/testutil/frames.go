package testutil

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// UniformFrame returns a w×h frame filled with a single gray level.
func UniformFrame(w, h int, level uint8) *image.NRGBA {
	return imaging.New(w, h, color.NRGBA{R: level, G: level, B: level, A: 255})
}

// SpotFrame returns a uniform frame with a bright square blob of side size
// centred on (cx, cy).
func SpotFrame(w, h int, background, spot uint8, cx, cy, size int) *image.NRGBA {
	img := UniformFrame(w, h, background)
	half := size / 2
	for y := cy - half; y < cy-half+size; y++ {
		for x := cx - half; x < cx-half+size; x++ {
			if image.Pt(x, y).In(img.Bounds()) {
				img.SetNRGBA(x, y, color.NRGBA{R: spot, G: spot, B: spot, A: 255})
			}
		}
	}
	return img
}

// GaussianSpotFrame adds a smooth bump of the given peak centred on (cx, cy).
func GaussianSpotFrame(w, h int, background uint8, peak, cx, cy, sigma float64) *image.NRGBA {
	img := UniformFrame(w, h, background)
	for y := range h {
		for x := range w {
			dx, dy := float64(x)-cx, float64(y)-cy
			v := float64(background) + peak*math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
			g := uint8(math.Min(255, v))
			img.SetNRGBA(x, y, color.NRGBA{R: g, G: g, B: g, A: 255})
		}
	}
	return img
}

// SaveFrames writes frames as numbered PNGs into dir.
func SaveFrames(t *testing.T, dir string, frames ...image.Image) []string {
	t.Helper()
	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i))
		require.NoError(t, imaging.Save(f, paths[i]))
	}
	return paths
}

// ScriptedSource is an in-memory frame source. Frame n is produced by Next(n).
// An error from Next is returned as-is. It satisfies capture.FrameSource.
type ScriptedSource struct {
	Rect image.Rectangle
	Next func(n int) (image.Image, error)

	mu     sync.Mutex
	n      int
	closed bool
}

// NewScriptedSource builds a source of w×h frames.
func NewScriptedSource(w, h int, next func(n int) (image.Image, error)) *ScriptedSource {
	return &ScriptedSource{Rect: image.Rect(0, 0, w, h), Next: next}
}

// NextFrame returns the next scripted frame.
func (s *ScriptedSource) NextFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	n := s.n
	s.n++
	s.mu.Unlock()
	return s.Next(n)
}

// Bounds returns the frame rectangle.
func (s *ScriptedSource) Bounds() image.Rectangle { return s.Rect }

// Close marks the source closed.
func (s *ScriptedSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Frames returns how many frames were requested.
func (s *ScriptedSource) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Closed reports whether Close was called.
func (s *ScriptedSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
