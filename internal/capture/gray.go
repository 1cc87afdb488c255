package capture

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/ledmap/internal/mempool"
)

// GrayFrame is a single-channel brightness plane in [0,255], indexed
// row-major from Rect.Min. Pix comes from the shared buffer pool; call
// Release once the frame is no longer referenced.
type GrayFrame struct {
	Rect image.Rectangle
	Pix  []float64
}

// NewGrayFrame allocates a zeroed plane covering rect.
func NewGrayFrame(rect image.Rectangle) *GrayFrame {
	return &GrayFrame{Rect: rect, Pix: mempool.GetFloat64Zeroed(rect.Dx() * rect.Dy())}
}

// Width of the plane in pixels.
func (g *GrayFrame) Width() int { return g.Rect.Dx() }

// Height of the plane in pixels.
func (g *GrayFrame) Height() int { return g.Rect.Dy() }

// Index returns the Pix offset of absolute pixel (x, y). The caller ensures
// the point lies inside Rect.
func (g *GrayFrame) Index(x, y int) int {
	return (y-g.Rect.Min.Y)*g.Rect.Dx() + (x - g.Rect.Min.X)
}

// At returns the brightness at absolute pixel (x, y), or 0 outside Rect.
func (g *GrayFrame) At(x, y int) float64 {
	if !image.Pt(x, y).In(g.Rect) {
		return 0
	}
	return g.Pix[g.Index(x, y)]
}

// Mean returns the average brightness over roi ∩ Rect, or the whole plane
// when roi is empty.
func (g *GrayFrame) Mean(roi image.Rectangle) float64 {
	r := g.Rect
	if !roi.Empty() {
		r = roi.Intersect(g.Rect)
	}
	if r.Empty() {
		return 0
	}
	var sum float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := g.Index(r.Min.X, y)
		for _, v := range g.Pix[row : row+r.Dx()] {
			sum += v
		}
	}
	return sum / float64(r.Dx()*r.Dy())
}

// Release returns Pix to the pool. The frame must not be used afterwards.
func (g *GrayFrame) Release() {
	if g == nil || g.Pix == nil {
		return
	}
	mempool.PutFloat64(g.Pix)
	g.Pix = nil
}

// ToGray converts img to brightness using the plain mean of R, G and B.
func ToGray(img image.Image) *GrayFrame {
	b := img.Bounds()
	out := &GrayFrame{Rect: b, Pix: mempool.GetFloat64(b.Dx() * b.Dy())}

	var nrgba *image.NRGBA
	if n, ok := img.(*image.NRGBA); ok {
		nrgba = n
	} else {
		// imaging.Clone rebases to (0,0)
		nrgba = imaging.Clone(img)
	}
	w := b.Dx()
	for y := range b.Dy() {
		src := nrgba.Pix[y*nrgba.Stride:]
		dst := out.Pix[y*w : (y+1)*w]
		for x := range w {
			o := x * 4
			dst[x] = (float64(src[o]) + float64(src[o+1]) + float64(src[o+2])) / 3
		}
	}
	return out
}
