package capture

import (
	"context"
	"errors"
	"image"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// SceneConfig describes a simulated LED strip in front of a camera.
type SceneConfig struct {
	Width, Height int
	// Positions holds the camera-space position of every LED, by index.
	Positions []utils.Point
	// Background is the ambient brightness (0-255).
	Background uint8
	// Noise is the maximum per-pixel brightness deviation.
	Noise uint8
	// Radius of the lit spot in pixels.
	Radius float64
	// Peak brightness added at the centre of a lit LED.
	Peak float64
	// Jitter is the maximum per-frame position wobble in pixels.
	Jitter float64
	// FrameInterval paces NextFrame; zero delivers frames immediately.
	FrameInterval time.Duration
	Seed          uint64
}

// SyntheticScene renders frames of a simulated strip where at most one LED is
// lit at a time. It implements FrameSource and is driven by a sequencer
// through SetActive / ClearActive.
type SyntheticScene struct {
	cfg SceneConfig

	mu     sync.Mutex
	rng    *rand.Rand
	active int
	dead   map[int]bool
	closed bool
}

// NewSyntheticScene creates a dark scene with no LED lit.
func NewSyntheticScene(cfg SceneConfig) *SyntheticScene {
	if cfg.Radius <= 0 {
		cfg.Radius = 4
	}
	if cfg.Peak <= 0 {
		cfg.Peak = 200
	}
	return &SyntheticScene{
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		active: -1,
		dead:   map[int]bool{},
	}
}

// SetDead marks LEDs that never light up, simulating broken pixels.
func (s *SyntheticScene) SetDead(indices ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range indices {
		s.dead[i] = true
	}
}

// SetActive lights LED index and turns every other LED off.
func (s *SyntheticScene) SetActive(index int) {
	s.mu.Lock()
	s.active = index
	s.mu.Unlock()
}

// ClearActive turns all LEDs off.
func (s *SyntheticScene) ClearActive() { s.SetActive(-1) }

// Positions returns the configured LED positions.
func (s *SyntheticScene) Positions() []utils.Point { return s.cfg.Positions }

func (s *SyntheticScene) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.cfg.Width, s.cfg.Height)
}

func (s *SyntheticScene) NextFrame(ctx context.Context) (image.Image, error) {
	if err := waitInterval(ctx, s.cfg.FrameInterval); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &CaptureUnavailableError{Source: "synthetic", Err: errors.New("scene closed")}
	}

	img := image.NewNRGBA(s.Bounds())
	for i := 0; i < len(img.Pix); i += 4 {
		v := float64(s.cfg.Background)
		if s.cfg.Noise > 0 {
			v += float64(s.rng.IntN(int(s.cfg.Noise)*2+1) - int(s.cfg.Noise))
		}
		g := clampByte(v)
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = g, g, g, 255
	}

	if s.active >= 0 && s.active < len(s.cfg.Positions) && !s.dead[s.active] {
		c := s.cfg.Positions[s.active]
		if s.cfg.Jitter > 0 {
			c.X += (s.rng.Float64()*2 - 1) * s.cfg.Jitter
			c.Y += (s.rng.Float64()*2 - 1) * s.cfg.Jitter
		}
		s.drawSpot(img, c)
	}
	return img, nil
}

// drawSpot adds a Gaussian brightness bump centred on c.
func (s *SyntheticScene) drawSpot(img *image.NRGBA, c utils.Point) {
	r := s.cfg.Radius
	sigma2 := 2 * (r / 2) * (r / 2)
	reach := int(math.Ceil(r * 2))
	cx, cy := int(math.Round(c.X)), int(math.Round(c.Y))
	b := img.Bounds()
	for y := cy - reach; y <= cy+reach; y++ {
		for x := cx - reach; x <= cx+reach; x++ {
			if !image.Pt(x, y).In(b) {
				continue
			}
			dx, dy := float64(x)-c.X, float64(y)-c.Y
			add := s.cfg.Peak * math.Exp(-(dx*dx+dy*dy)/sigma2)
			o := img.PixOffset(x, y)
			for ch := range 3 {
				img.Pix[o+ch] = clampByte(float64(img.Pix[o+ch]) + add)
			}
		}
	}
}

func (s *SyntheticScene) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// StripPositions lays n LEDs along a gentle wave across rect, leaving a 10%
// margin on each side. It gives synthetic scenes a plausible strip shape.
func StripPositions(rect image.Rectangle, n int) []utils.Point {
	if n <= 0 {
		return nil
	}
	rect = rect.Canon()
	margin := float64(rect.Dx()) / 10
	x0 := float64(rect.Min.X) + margin
	x1 := float64(rect.Max.X) - margin
	cy := float64(rect.Min.Y+rect.Max.Y) / 2
	amp := float64(rect.Dy()) / 4

	pts := make([]utils.Point, n)
	for i := range pts {
		t := 0.5
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		pts[i] = utils.Pt(x0+t*(x1-x0), cy+amp*math.Sin(2*math.Pi*t))
	}
	return pts
}
