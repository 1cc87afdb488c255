package mapping

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

var (
	overlayRect   = color.NRGBA{R: 0, G: 200, B: 255, A: 255}
	overlayPoint  = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	overlayWeak   = color.NRGBA{R: 255, G: 200, B: 0, A: 255}
	overlayCanvas = color.NRGBA{A: 255}
)

// RenderOverlay draws the calibration rectangle and every detected camera
// position onto a copy of background (or a black canvas of bounds when
// background is nil). Low-confidence points are drawn in amber.
func RenderOverlay(background image.Image, bounds image.Rectangle, rect image.Rectangle, res *Result) *image.NRGBA {
	var dst *image.NRGBA
	if background != nil {
		dst = imaging.Clone(background)
	} else {
		dst = imaging.New(bounds.Dx(), bounds.Dy(), overlayCanvas)
	}
	if !rect.Empty() {
		utils.DrawRect(dst, rect, overlayRect, 2)
	}
	if res == nil {
		return dst
	}
	for _, p := range res.Ordered() {
		col := overlayPoint
		if p.Confidence < 0.5 {
			col = overlayWeak
		}
		utils.DrawCross(dst, p.Camera, 4, col)
	}
	return dst
}
