package detector

import "fmt"

// ThresholdBands maps the ambient mean brightness to a change threshold.
// Dark rooms get a low threshold, bright rooms a high one.
type ThresholdBands struct {
	DarkBelow   float64 `json:"dark_below"   yaml:"dark_below"`   // Mean below this is a dark scene (default: 30)
	BrightAbove float64 `json:"bright_above" yaml:"bright_above"` // Mean above this is a bright scene (default: 150)
	Dark        float64 `json:"dark"         yaml:"dark"`         // Threshold for dark scenes (default: 30)
	Normal      float64 `json:"normal"       yaml:"normal"`       // Threshold otherwise (default: 60)
	Bright      float64 `json:"bright"       yaml:"bright"`       // Threshold for bright scenes (default: 100)
}

// DefaultThresholdBands returns the standard three-band mapping.
func DefaultThresholdBands() ThresholdBands {
	return ThresholdBands{
		DarkBelow:   30,
		BrightAbove: 150,
		Dark:        30,
		Normal:      60,
		Bright:      100,
	}
}

// Threshold returns the change threshold for an ambient mean brightness.
func (b ThresholdBands) Threshold(mean float64) float64 {
	switch {
	case mean < b.DarkBelow:
		return b.Dark
	case mean > b.BrightAbove:
		return b.Bright
	default:
		return b.Normal
	}
}

// Validate checks that the band edges are ordered.
func (b ThresholdBands) Validate() error {
	if b.DarkBelow > b.BrightAbove {
		return fmt.Errorf("threshold bands: dark_below (%v) must not exceed bright_above (%v)", b.DarkBelow, b.BrightAbove)
	}
	if b.Dark <= 0 || b.Normal <= 0 || b.Bright <= 0 {
		return fmt.Errorf("threshold bands: thresholds must be positive (dark=%v normal=%v bright=%v)", b.Dark, b.Normal, b.Bright)
	}
	return nil
}
