package detector

import (
	"image"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// ROIRefiner narrows the search area around the last hit. The active ROI is
// always contained in the initial ROI.
type ROIRefiner struct {
	initial image.Rectangle
	active  image.Rectangle
	size    int
}

// NewROIRefiner starts with active == initial.
func NewROIRefiner(initial image.Rectangle, size int) *ROIRefiner {
	initial = initial.Canon()
	return &ROIRefiner{initial: initial, active: initial, size: size}
}

// SetInitial replaces the initial ROI and resets the active ROI to it.
func (r *ROIRefiner) SetInitial(rect image.Rectangle) {
	r.initial = rect.Canon()
	r.active = r.initial
}

// Initial returns the fixed outer bound.
func (r *ROIRefiner) Initial() image.Rectangle { return r.initial }

// Active returns the current search area. Empty means unrestricted.
func (r *ROIRefiner) Active() image.Rectangle { return r.active }

// Update centres a size×size square on p and intersects it with the initial
// ROI. An empty intersection leaves the active ROI untouched and returns false.
func (r *ROIRefiner) Update(p utils.Point) bool {
	if !p.IsFinite() {
		return false
	}
	next := utils.CenteredSquare(p, r.size).Intersect(r.initial)
	if next.Empty() {
		return false
	}
	r.active = next
	return true
}

// Reset restores the initial ROI.
func (r *ROIRefiner) Reset() { r.active = r.initial }
