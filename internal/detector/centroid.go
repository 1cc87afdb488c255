package detector

import (
	"image"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// centroidWindow returns the window×window square around seed clamped to
// bounds. The square spans [seed-window/2, seed-window/2+window).
func centroidWindow(seed image.Point, window int, bounds image.Rectangle) image.Rectangle {
	half := window / 2
	r := image.Rect(seed.X-half, seed.Y-half, seed.X-half+window, seed.Y-half+window)
	return r.Intersect(bounds)
}

// weightedCentroid averages pixel coordinates in rect weighted by weight(x,y).
// Pixels with non-positive weight are ignored. ok is false when nothing
// qualified, in which case the caller falls back to the seed.
func weightedCentroid(rect image.Rectangle, weight func(x, y int) float64) (utils.Point, bool) {
	var sw, sx, sy float64
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			w := weight(x, y)
			if w <= 0 {
				continue
			}
			sw += w
			sx += w * float64(x)
			sy += w * float64(y)
		}
	}
	if sw == 0 {
		return utils.Point{}, false
	}
	return utils.Point{X: sx / sw, Y: sy / sw}, true
}
