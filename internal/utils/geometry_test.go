package utils

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointArithmetic(t *testing.T) {
	p := Pt(3, 4)
	assert.Equal(t, Pt(4, 6), p.Add(Pt(1, 2)))
	assert.Equal(t, Pt(2, 2), p.Sub(Pt(1, 2)))
	assert.Equal(t, Pt(6, 8), p.Scale(2))
	assert.InDelta(t, 5.0, p.Distance(Pt(0, 0)), 1e-12)
	assert.Equal(t, Pt(1.5, 2), Lerp(Pt(0, 0), p, 0.5))
	assert.Equal(t, image.Pt(3, 5), Pt(2.6, 4.5).ImagePoint())
}

func TestPointIsFinite(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"finite", Pt(1, -1), true},
		{"nan x", Pt(math.NaN(), 0), false},
		{"inf y", Pt(0, math.Inf(-1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.IsFinite())
		})
	}
}

func TestRectCorners(t *testing.T) {
	c := RectCorners(image.Rect(10, 20, 110, 70))
	assert.Equal(t, [4]Point{{10, 20}, {110, 20}, {110, 70}, {10, 70}}, c)
}

func TestCenteredSquare(t *testing.T) {
	r := CenteredSquare(Pt(100.4, 50.6), 150)
	assert.Equal(t, 150, r.Dx())
	assert.Equal(t, 150, r.Dy())
	assert.Equal(t, image.Pt(25, -24), r.Min)

	odd := CenteredSquare(Pt(10, 10), 5)
	assert.Equal(t, image.Rect(8, 8, 13, 13), odd)
}

func TestSpacingsAndPathLength(t *testing.T) {
	pts := []Point{{0, 0}, {3, 4}, {3, 14}}
	assert.Equal(t, []float64{5, 10}, Spacings(pts))
	assert.InDelta(t, 15.0, PathLength(pts), 1e-12)

	assert.Nil(t, Spacings([]Point{{1, 1}}))
	assert.Zero(t, PathLength(nil))
}
