package detector

import (
	"image"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

func TestROIRefiner_Update(t *testing.T) {
	r := NewROIRefiner(image.Rect(100, 50, 1100, 750), 150)
	assert.Equal(t, r.Initial(), r.Active())

	assert.True(t, r.Update(utils.Pt(600, 400)))
	assert.Equal(t, image.Rect(525, 325, 675, 475), r.Active())

	// Near a corner the square is clipped to the initial ROI.
	assert.True(t, r.Update(utils.Pt(110, 60)))
	assert.Equal(t, image.Rect(100, 50, 185, 135), r.Active())
}

func TestROIRefiner_SkipEmptyIntersection(t *testing.T) {
	r := NewROIRefiner(image.Rect(0, 0, 100, 100), 150)
	r.Update(utils.Pt(50, 50))
	before := r.Active()

	assert.False(t, r.Update(utils.Pt(1000, 1000)))
	assert.Equal(t, before, r.Active())
}

func TestROIRefiner_Reset(t *testing.T) {
	r := NewROIRefiner(image.Rect(0, 0, 640, 480), 150)
	r.Update(utils.Pt(320, 240))
	assert.NotEqual(t, r.Initial(), r.Active())
	r.Reset()
	assert.Equal(t, image.Rect(0, 0, 640, 480), r.Active())
}

func TestROIRefiner_NoInitialNeverNarrows(t *testing.T) {
	r := NewROIRefiner(image.Rectangle{}, 150)
	assert.False(t, r.Update(utils.Pt(10, 10)))
	assert.True(t, r.Active().Empty())
}

// TestROIRefiner_ContainmentProperty: after any sequence of 100 updates at
// random positions the active ROI stays inside the initial ROI.
func TestROIRefiner_ContainmentProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("active ROI is always within initial ROI", prop.ForAll(
		func(xs, ys []float64) bool {
			initial := image.Rect(100, 50, 1100, 750)
			r := NewROIRefiner(initial, 150)
			n := min(len(xs), len(ys))
			for i := range n {
				r.Update(utils.Pt(xs[i], ys[i]))
				if !r.Active().In(initial) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(100, gen.Float64Range(-500, 2000)),
		gen.SliceOfN(100, gen.Float64Range(-500, 2000)),
	))

	properties.TestingRun(t)
}
