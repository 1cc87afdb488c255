// Package support holds the godog step definitions for the mapping
// integration suite.
package support

import (
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/ledmap/internal/calibrate"
	"github.com/MeKo-Tech/ledmap/internal/capture"
	"github.com/MeKo-Tech/ledmap/internal/mapping"
	"github.com/MeKo-Tech/ledmap/internal/sequencer"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	Logger *slog.Logger

	// Calibration state
	CanvasWidth  float64
	CanvasHeight float64
	Calibration  *calibrate.Calibration
	CalibErr     error

	// Simulated hardware
	Scene    *capture.SyntheticScene
	LEDCount int

	// Session configuration and outcome
	Config  mapping.Config
	Session *mapping.Session
	Result  *mapping.Result
	RunErr  error
	Timeout time.Duration
}

// NewTestContext creates a context with quiet logging and fast timings.
func NewTestContext() *TestContext {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &TestContext{
		Logger:       logger,
		CanvasWidth:  1920,
		CanvasHeight: 1080,
		Calibration:  calibrate.New(logger),
		Timeout:      30 * time.Second,
	}
}

func (testCtx *TestContext) newScene(rect image.Rectangle, leds, width, height int) {
	testCtx.LEDCount = leds
	testCtx.Scene = capture.NewSyntheticScene(capture.SceneConfig{
		Width:      width,
		Height:     height,
		Positions:  capture.StripPositions(rect, leds),
		Background: 25,
		Noise:      4,
		Radius:     3,
		Peak:       180,
		Jitter:     0.3,
		Seed:       11,
	})

	cfg := mapping.DefaultConfig(leds)
	cfg.SettleDelay = 10 * time.Millisecond
	cfg.LightTimeout = 250 * time.Millisecond
	cfg.Sequencer.PerLightDelay = 0
	cfg.Detector.BaselineInterval = 0
	testCtx.Config = cfg
}

func (testCtx *TestContext) sequencer() sequencer.Sequencer {
	return sequencer.NewSimSequencer(testCtx.Scene)
}

// Cleanup releases the simulated hardware.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.Session != nil {
		testCtx.Session.Cancel()
	}
	if testCtx.Scene != nil {
		return testCtx.Scene.Close()
	}
	return nil
}
