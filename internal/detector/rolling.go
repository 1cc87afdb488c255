package detector

import "github.com/MeKo-Tech/ledmap/internal/capture"

// RollingWindow keeps the most recent K grayscale frames in a ring and a
// running per-pixel sum over them.
type RollingWindow struct {
	size   int
	frames []*capture.GrayFrame
	next   int
	count  int
	sum    *capture.GrayFrame
}

// NewRollingWindow creates an empty window holding up to size frames.
func NewRollingWindow(size int) *RollingWindow {
	size = max(size, 1)
	return &RollingWindow{size: size, frames: make([]*capture.GrayFrame, size)}
}

// Push adds f to the window, taking ownership of it. The oldest frame is
// evicted and released once the window is full. A frame with different
// bounds restarts the window.
func (w *RollingWindow) Push(f *capture.GrayFrame) {
	if w.sum != nil && w.sum.Rect != f.Rect {
		w.Reset()
	}
	if w.sum == nil {
		w.sum = capture.NewGrayFrame(f.Rect)
	}
	if old := w.frames[w.next]; old != nil {
		for i, v := range old.Pix {
			w.sum.Pix[i] -= v
		}
		old.Release()
	} else {
		w.count++
	}
	for i, v := range f.Pix {
		w.sum.Pix[i] += v
	}
	w.frames[w.next] = f
	w.next = (w.next + 1) % w.size
}

// Len returns the number of frames in the window.
func (w *RollingWindow) Len() int { return w.count }

// Value returns the averaged brightness at Pix offset i.
func (w *RollingWindow) Value(i int) float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum.Pix[i] / float64(w.count)
}

// Sum exposes the running sum plane; nil when empty.
func (w *RollingWindow) Sum() *capture.GrayFrame { return w.sum }

// Reset releases every frame and the sum.
func (w *RollingWindow) Reset() {
	for i, f := range w.frames {
		f.Release()
		w.frames[i] = nil
	}
	w.sum.Release()
	w.sum = nil
	w.next = 0
	w.count = 0
}
