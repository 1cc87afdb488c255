package calibrate

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

func TestSolveAffine_Identity(t *testing.T) {
	pts := []utils.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	tr, err := SolveAffine(pts, pts)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, tr.A, 1e-9)
	assert.InDelta(t, 0.0, tr.B, 1e-9)
	assert.InDelta(t, 0.0, tr.C, 1e-9)
	assert.InDelta(t, 0.0, tr.D, 1e-9)
	assert.InDelta(t, 1.0, tr.E, 1e-9)
	assert.InDelta(t, 0.0, tr.F, 1e-9)
}

func TestSolveAffine_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  []utils.Point
		dst  []utils.Point
		want func(t *testing.T, err error)
	}{
		{
			name: "too few points",
			src:  []utils.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}},
			dst:  []utils.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}},
			want: func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInsufficientPoints) },
		},
		{
			name: "length mismatch",
			src:  []utils.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}},
			dst:  []utils.Point{{X: 0, Y: 0}},
			want: func(t *testing.T, err error) { assert.Error(t, err) },
		},
		{
			name: "collinear",
			src:  []utils.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}},
			dst:  []utils.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}},
			want: func(t *testing.T, err error) {
				var de *DegenerateInputError
				require.True(t, errors.As(err, &de))
				assert.Equal(t, 4, de.Points)
			},
		},
		{
			name: "coincident",
			src:  []utils.Point{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: 5}},
			dst:  []utils.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}},
			want: func(t *testing.T, err error) {
				var de *DegenerateInputError
				assert.ErrorAs(t, err, &de)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SolveAffine(tt.src, tt.dst)
			tt.want(t, err)
		})
	}
}

func TestSolveAffine_OverDetermined(t *testing.T) {
	want := AffineTransform{A: 1.5, B: 0.2, C: -30, D: -0.1, E: 2.0, F: 12}
	var src, dst []utils.Point
	for x := 0.0; x <= 400; x += 100 {
		for y := 0.0; y <= 300; y += 150 {
			p := utils.Pt(x, y)
			src = append(src, p)
			dst = append(dst, want.Apply(p))
		}
	}
	got, err := SolveAffine(src, dst)
	require.NoError(t, err)
	assert.InDelta(t, want.A, got.A, 1e-6)
	assert.InDelta(t, want.B, got.B, 1e-6)
	assert.InDelta(t, want.C, got.C, 1e-6)
	assert.InDelta(t, want.D, got.D, 1e-6)
	assert.InDelta(t, want.E, got.E, 1e-6)
	assert.InDelta(t, want.F, got.F, 1e-6)
}

// TestSolveAffine_RoundTripProperty: a random non-degenerate affine map applied
// to four rectangle corners is recovered to within 1e-6 at every corner.
func TestSolveAffine_RoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("corners round-trip through solved transform", prop.ForAll(
		func(a, b, d, e, c, f float64) bool {
			tr := AffineTransform{A: a, B: b, C: c, D: d, E: e, F: f}
			if math.Abs(a*e-b*d) < 0.05 {
				return true
			}
			src := []utils.Point{{X: 10, Y: 5}, {X: 210, Y: 5}, {X: 210, Y: 155}, {X: 10, Y: 155}}
			dst := make([]utils.Point, len(src))
			for i, p := range src {
				dst[i] = tr.Apply(p)
			}
			got, err := SolveAffine(src, dst)
			if err != nil {
				return false
			}
			for i, p := range src {
				if got.Apply(p).Distance(dst[i]) > 1e-6 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(-3, 3),
		gen.Float64Range(-3, 3),
		gen.Float64Range(-3, 3),
		gen.Float64Range(-3, 3),
		gen.Float64Range(-500, 500),
		gen.Float64Range(-500, 500),
	))

	properties.TestingRun(t)
}

func TestAffineTransform_IsFinite(t *testing.T) {
	assert.True(t, Identity().IsFinite())
	assert.False(t, AffineTransform{A: math.NaN()}.IsFinite())
	assert.False(t, AffineTransform{F: math.Inf(1)}.IsFinite())
}
