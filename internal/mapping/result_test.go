package mapping

import (
	"bytes"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

func TestResult_Ordered(t *testing.T) {
	r := newResult("x", 4)
	r.Positions[2] = MappedPosition{Index: 2, Output: utils.Pt(2, 2)}
	r.Positions[0] = MappedPosition{Index: 0, Output: utils.Pt(0, 0)}
	r.Positions[3] = MappedPosition{Index: 3, Output: utils.Pt(3, 3)}
	r.Failed = append(r.Failed, 1)

	want := []utils.Point{{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	if diff := cmp.Diff(want, r.OutputPoints()); diff != "" {
		t.Errorf("OutputPoints mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, r.has(1))
	assert.False(t, r.has(4))
	assert.InDelta(t, 0.75, r.rollingRate(), 1e-9)
}

func TestRenderOverlay(t *testing.T) {
	r := newResult("x", 1)
	r.Positions[0] = MappedPosition{Index: 0, Camera: utils.Pt(20, 20), Confidence: 0.9}

	img := RenderOverlay(nil, image.Rect(0, 0, 40, 40), image.Rect(5, 5, 35, 35), r)
	assert.Equal(t, overlayPoint, img.NRGBAAt(20, 20))
	assert.Equal(t, overlayRect, img.NRGBAAt(5, 10))
	assert.Equal(t, overlayCanvas, img.NRGBAAt(30, 20))
}

func TestConsoleProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsoleProgress(&buf, "> ")
	p.OnStart(2)
	p.OnLight(0, 2, &MappedPosition{Index: 0, Output: utils.Pt(1, 2), Confidence: 0.9})
	p.OnLight(1, 2, nil)
	assert.Contains(t, buf.String(), "> mapping 2 LEDs")
	assert.Contains(t, buf.String(), "LED 0 at (1.0, 2.0)")
	assert.Contains(t, buf.String(), "LED 1 not found")
}
