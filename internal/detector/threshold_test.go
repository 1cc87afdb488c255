package detector

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestThresholdBands_Threshold(t *testing.T) {
	bands := DefaultThresholdBands()
	tests := []struct {
		mean float64
		want float64
	}{
		{mean: 0, want: 30},
		{mean: 10, want: 30},
		{mean: 29.9, want: 30},
		{mean: 30, want: 60},
		{mean: 90, want: 60},
		{mean: 150, want: 60},
		{mean: 150.1, want: 100},
		{mean: 200, want: 100},
		{mean: 255, want: 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bands.Threshold(tt.mean), "mean=%v", tt.mean)
	}
}

func TestThresholdBands_Tunable(t *testing.T) {
	bands := ThresholdBands{DarkBelow: 10, BrightAbove: 50, Dark: 5, Normal: 15, Bright: 40}
	assert.Equal(t, 5.0, bands.Threshold(9))
	assert.Equal(t, 15.0, bands.Threshold(30))
	assert.Equal(t, 40.0, bands.Threshold(51))
}

func TestThresholdBands_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholdBands().Validate())
	assert.Error(t, ThresholdBands{DarkBelow: 100, BrightAbove: 50, Dark: 1, Normal: 1, Bright: 1}.Validate())
	assert.Error(t, ThresholdBands{DarkBelow: 10, BrightAbove: 50, Dark: 0, Normal: 1, Bright: 1}.Validate())
}

// TestThresholdBands_MonotoneProperty: a brighter ambient never yields a lower
// threshold with the default bands.
func TestThresholdBands_MonotoneProperty(t *testing.T) {
	bands := DefaultThresholdBands()
	properties := gopter.NewProperties(nil)

	properties.Property("threshold is non-decreasing in mean", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			return bands.Threshold(a) <= bands.Threshold(b)
		},
		gen.Float64Range(0, 255),
		gen.Float64Range(0, 255),
	))

	properties.Property("threshold is one of the three bands", prop.ForAll(
		func(m float64) bool {
			v := bands.Threshold(m)
			return v == bands.Dark || v == bands.Normal || v == bands.Bright
		},
		gen.Float64Range(0, 255),
	))

	properties.TestingRun(t)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.SamplesPerLight = 0
	cfg.MinSamples = 9
	cfg.ConfidenceScale = 0
	err := cfg.Validate()
	assert.ErrorContains(t, err, "samples per light")
	assert.ErrorContains(t, err, "min samples")
	assert.ErrorContains(t, err, "confidence scale")
}
