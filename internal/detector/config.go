// Package detector locates a single newly lit LED in camera frames by
// differencing against an ambient baseline.
package detector

import (
	"errors"
	"fmt"
	"time"
)

// Config holds every tunable of baseline capture and per-light detection.
type Config struct {
	BaselineFrames   int            // Frames averaged into the baseline (default: 3)
	BaselineInterval time.Duration  // Delay between baseline frames (default: 100ms)
	Bands            ThresholdBands // Brightness bands mapping ambient mean to threshold
	RollingFrames    int            // Frames in the rolling average during search (default: 3)
	CentroidWindow   int            // Side of the centroid refinement square in px (default: 20)
	ConfidenceScale  float64        // Delta that maps to confidence 1.0 (default: 200)
	AbsoluteFloor    float64        // Minimum brightness without a baseline (default: 200)
	SamplesPerLight  int            // Hits collected before a light completes (default: 3)
	HistorySize      int            // Temporal filter history (default: 5)
	MinSamples       int            // Samples before the median kicks in (default: 3)
	ROISize          int            // Side of the refined ROI square in px (default: 150)
	ResetOnMiss      bool           // Restore the initial ROI after a failed light (default: true)
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		BaselineFrames:   3,
		BaselineInterval: 100 * time.Millisecond,
		Bands:            DefaultThresholdBands(),
		RollingFrames:    3,
		CentroidWindow:   20,
		ConfidenceScale:  200,
		AbsoluteFloor:    200,
		SamplesPerLight:  3,
		HistorySize:      5,
		MinSamples:       3,
		ROISize:          150,
		ResetOnMiss:      true,
	}
}

// Validate checks the configuration for values the detector cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.BaselineFrames < 1 {
		errs = append(errs, fmt.Errorf("baseline frames must be >= 1, got %d", c.BaselineFrames))
	}
	if c.BaselineInterval < 0 {
		errs = append(errs, fmt.Errorf("baseline interval must not be negative, got %v", c.BaselineInterval))
	}
	if c.RollingFrames < 1 {
		errs = append(errs, fmt.Errorf("rolling frames must be >= 1, got %d", c.RollingFrames))
	}
	if c.CentroidWindow < 1 {
		errs = append(errs, fmt.Errorf("centroid window must be >= 1, got %d", c.CentroidWindow))
	}
	if c.ConfidenceScale <= 0 {
		errs = append(errs, fmt.Errorf("confidence scale must be > 0, got %v", c.ConfidenceScale))
	}
	if c.AbsoluteFloor < 0 || c.AbsoluteFloor >= 255 {
		errs = append(errs, fmt.Errorf("absolute floor must be in [0,255), got %v", c.AbsoluteFloor))
	}
	if c.SamplesPerLight < 1 {
		errs = append(errs, fmt.Errorf("samples per light must be >= 1, got %d", c.SamplesPerLight))
	}
	if c.HistorySize < 1 {
		errs = append(errs, fmt.Errorf("history size must be >= 1, got %d", c.HistorySize))
	}
	if c.MinSamples < 1 || c.MinSamples > c.HistorySize {
		errs = append(errs, fmt.Errorf("min samples must be in [1,%d], got %d", c.HistorySize, c.MinSamples))
	}
	if c.ROISize < 1 {
		errs = append(errs, fmt.Errorf("roi size must be >= 1, got %d", c.ROISize))
	}
	if err := c.Bands.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
