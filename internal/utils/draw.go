package utils

import (
	"image"
	"image/color"
)

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.NRGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, rect.Min.Y+t, col)
			dst.Set(x, rect.Max.Y-1-t, col)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(rect.Min.X+t, y, col)
			dst.Set(rect.Max.X-1-t, y, col)
		}
	}
}

// DrawCross marks p with a small plus sign of the given arm length.
func DrawCross(dst *image.NRGBA, p Point, arm int, col color.Color) {
	c := p.ImagePoint()
	b := dst.Bounds()
	for d := -arm; d <= arm; d++ {
		if q := image.Pt(c.X+d, c.Y); q.In(b) {
			dst.Set(q.X, q.Y, col)
		}
		if q := image.Pt(c.X, c.Y+d); q.In(b) {
			dst.Set(q.X, q.Y, col)
		}
	}
}
