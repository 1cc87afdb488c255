package detector

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCentroidWindow_Clamped(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 80)
	assert.Equal(t, image.Rect(40, 30, 60, 50), centroidWindow(image.Pt(50, 40), 20, bounds))
	assert.Equal(t, image.Rect(0, 0, 13, 12), centroidWindow(image.Pt(3, 2), 20, bounds))
	assert.Equal(t, image.Rect(88, 68, 100, 80), centroidWindow(image.Pt(98, 78), 20, bounds))
}

func TestWeightedCentroid(t *testing.T) {
	rect := image.Rect(0, 0, 10, 10)
	// Two equal weights at (2,2) and (6,4).
	got, ok := weightedCentroid(rect, func(x, y int) float64 {
		if (x == 2 && y == 2) || (x == 6 && y == 4) {
			return 5
		}
		return 0
	})
	assert.True(t, ok)
	assert.InDelta(t, 4.0, got.X, 1e-9)
	assert.InDelta(t, 3.0, got.Y, 1e-9)
}

func TestWeightedCentroid_NoQualifyingPixel(t *testing.T) {
	_, ok := weightedCentroid(image.Rect(0, 0, 5, 5), func(int, int) float64 { return -1 })
	assert.False(t, ok)
}
