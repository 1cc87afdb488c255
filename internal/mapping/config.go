package mapping

import (
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/ledmap/internal/detector"
	"github.com/MeKo-Tech/ledmap/internal/normalize"
	"github.com/MeKo-Tech/ledmap/internal/sequencer"
)

// Config holds the parameters of one mapping run.
type Config struct {
	LEDCount     int           // Expected number of LEDs in the sequence
	SettleDelay  time.Duration // Wait after an activation before detecting (default: 300ms)
	LightTimeout time.Duration // Per-light detection deadline (default: 1500ms)

	Sequencer sequencer.Config // Activation parameters; LEDCount is taken from the field above
	Detector  detector.Config

	// NormalizeOnComplete runs the normalizer over the ordered output points
	// once the sequence completes.
	NormalizeOnComplete bool
	Normalize           normalize.Options
}

// DefaultConfig returns the session defaults for ledCount LEDs.
func DefaultConfig(ledCount int) Config {
	return Config{
		LEDCount:     ledCount,
		SettleDelay:  300 * time.Millisecond,
		LightTimeout: 1500 * time.Millisecond,
		Sequencer: sequencer.Config{
			LEDCount:      ledCount,
			PerLightDelay: 2 * time.Second,
			Brightness:    255,
		},
		Detector:            detector.DefaultConfig(),
		NormalizeOnComplete: false,
		Normalize:           normalize.DefaultOptions(),
	}
}

// Validate checks the session configuration.
func (c Config) Validate() error {
	var errs []error
	if c.LEDCount < 1 {
		errs = append(errs, fmt.Errorf("led count must be >= 1, got %d", c.LEDCount))
	}
	if c.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("settle delay must not be negative, got %v", c.SettleDelay))
	}
	if c.LightTimeout <= 0 {
		errs = append(errs, fmt.Errorf("light timeout must be positive, got %v", c.LightTimeout))
	}
	if err := c.Detector.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}
	return errors.Join(errs...)
}

func (c Config) sequencerConfig() sequencer.Config {
	sc := c.Sequencer
	sc.LEDCount = c.LEDCount
	return sc
}
