package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

var red = color.NRGBA{R: 255, A: 255}

func TestDrawRect(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	DrawRect(dst, image.Rect(5, 5, 15, 15), red, 1)

	assert.Equal(t, red, dst.NRGBAAt(5, 5))
	assert.Equal(t, red, dst.NRGBAAt(14, 10))
	assert.Equal(t, red, dst.NRGBAAt(10, 14))
	assert.Equal(t, color.NRGBA{}, dst.NRGBAAt(10, 10))
	assert.Equal(t, color.NRGBA{}, dst.NRGBAAt(4, 4))
}

func TestDrawRect_ClippedToBounds(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	assert.NotPanics(t, func() { DrawRect(dst, image.Rect(-5, -5, 30, 30), red, 0) })
	assert.Equal(t, red, dst.NRGBAAt(0, 0))

	DrawRect(dst, image.Rect(50, 50, 60, 60), red, 1)
}

func TestDrawCross(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	DrawCross(dst, Pt(1, 5), 3, red)

	assert.Equal(t, red, dst.NRGBAAt(1, 5))
	assert.Equal(t, red, dst.NRGBAAt(4, 5))
	assert.Equal(t, red, dst.NRGBAAt(1, 2))
	assert.Equal(t, color.NRGBA{}, dst.NRGBAAt(2, 6))
}
