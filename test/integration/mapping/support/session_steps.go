package support

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/ledmap/internal/calibrate"
	"github.com/MeKo-Tech/ledmap/internal/mapping"
)

// RegisterSessionSteps registers the mapping session step definitions.
func (testCtx *TestContext) RegisterSessionSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a simulated strip of (\d+) LEDs across the camera rectangle "([^"]*)" in a (\d+) by (\d+) frame$`, testCtx.aSimulatedStrip)
	sc.Step(`^LEDs "([^"]*)" never light$`, testCtx.ledsNeverLight)
	sc.Step(`^normalization runs when the session completes$`, testCtx.normalizationRunsOnComplete)
	sc.Step(`^the mapping session runs$`, testCtx.theMappingSessionRuns)
	sc.Step(`^the session state is "([^"]*)"$`, testCtx.theSessionStateIs)
	sc.Step(`^(\d+) LEDs are mapped$`, testCtx.ledsAreMapped)
	sc.Step(`^no LEDs failed$`, testCtx.noLEDsFailed)
	sc.Step(`^the failed LEDs are "([^"]*)"$`, testCtx.theFailedLEDsAre)
	sc.Step(`^the success rate is ([\d.]+)$`, testCtx.theSuccessRateIs)
	sc.Step(`^every mapped LED lies inside the canvas$`, testCtx.everyMappedLEDLiesInsideTheCanvas)
	sc.Step(`^every mapped LED is within (\d+) pixels of its true camera position$`, testCtx.everyMappedLEDIsWithin)
	sc.Step(`^the result carries (\d+) normalized points$`, testCtx.theResultCarriesNormalizedPoints)
	sc.Step(`^the session fails because the transform is not ready$`, testCtx.theSessionFailsNotReady)
}

func (testCtx *TestContext) aSimulatedStrip(leds int, rect string, width, height int) error {
	r, err := parseRect(rect)
	if err != nil {
		return err
	}
	testCtx.newScene(r, leds, width, height)
	return nil
}

func (testCtx *TestContext) ledsNeverLight(list string) error {
	dead, err := parseInts(list)
	if err != nil {
		return err
	}
	testCtx.Scene.SetDead(dead...)
	return nil
}

func (testCtx *TestContext) normalizationRunsOnComplete() error {
	testCtx.Config.NormalizeOnComplete = true
	return nil
}

func (testCtx *TestContext) theMappingSessionRuns() error {
	if testCtx.Scene == nil {
		return errors.New("no simulated strip configured")
	}
	sess, err := mapping.NewSession(testCtx.Config, testCtx.Calibration, testCtx.Scene, testCtx.sequencer(),
		mapping.WithLogger(testCtx.Logger))
	if err != nil {
		return err
	}
	testCtx.Session = sess

	ctx, cancel := context.WithTimeout(context.Background(), testCtx.Timeout)
	defer cancel()
	testCtx.Result, testCtx.RunErr = sess.Run(ctx)
	return nil
}

func (testCtx *TestContext) requireResult() error {
	if testCtx.RunErr != nil {
		return fmt.Errorf("session failed: %w", testCtx.RunErr)
	}
	if testCtx.Result == nil {
		return errors.New("session returned no result")
	}
	return nil
}

func (testCtx *TestContext) theSessionStateIs(state string) error {
	if got := testCtx.Session.State().String(); got != state {
		return fmt.Errorf("session state is %q, expected %q (err: %v)", got, state, testCtx.RunErr)
	}
	return nil
}

func (testCtx *TestContext) ledsAreMapped(n int) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if len(testCtx.Result.Positions) != n {
		return fmt.Errorf("%d LEDs mapped, expected %d (failed: %v)", len(testCtx.Result.Positions), n, testCtx.Result.Failed)
	}
	return nil
}

func (testCtx *TestContext) noLEDsFailed() error {
	return testCtx.theFailedLEDsAre("")
}

func (testCtx *TestContext) theFailedLEDsAre(list string) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	want, err := parseInts(list)
	if err != nil {
		return err
	}
	got := slices.Clone(testCtx.Result.Failed)
	slices.Sort(got)
	if !slices.Equal(got, want) {
		return fmt.Errorf("failed LEDs are %v, expected %v", got, want)
	}
	return nil
}

func (testCtx *TestContext) theSuccessRateIs(rate float64) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if math.Abs(testCtx.Result.SuccessRate-rate) > 1e-9 {
		return fmt.Errorf("success rate is %v, expected %v", testCtx.Result.SuccessRate, rate)
	}
	return nil
}

func (testCtx *TestContext) everyMappedLEDLiesInsideTheCanvas() error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	for idx, p := range testCtx.Result.Positions {
		if p.Output.X < 0 || p.Output.X > testCtx.CanvasWidth || p.Output.Y < 0 || p.Output.Y > testCtx.CanvasHeight {
			return fmt.Errorf("LED %d at (%.1f, %.1f) lies outside the %vx%v canvas",
				idx, p.Output.X, p.Output.Y, testCtx.CanvasWidth, testCtx.CanvasHeight)
		}
	}
	return nil
}

func (testCtx *TestContext) everyMappedLEDIsWithin(pixels int) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	truth := testCtx.Scene.Positions()
	for idx, p := range testCtx.Result.Positions {
		if d := p.Camera.Distance(truth[idx]); d > float64(pixels) {
			return fmt.Errorf("LED %d detected %.2fpx from its true position", idx, d)
		}
	}
	return nil
}

func (testCtx *TestContext) theResultCarriesNormalizedPoints(n int) error {
	if err := testCtx.requireResult(); err != nil {
		return err
	}
	if testCtx.Result.Normalized == nil {
		return errors.New("result carries no normalization")
	}
	if got := len(testCtx.Result.Normalized.Points); got != n {
		return fmt.Errorf("%d normalized points, expected %d", got, n)
	}
	return nil
}

func (testCtx *TestContext) theSessionFailsNotReady() error {
	var notReady *calibrate.TransformNotReadyError
	if !errors.As(testCtx.RunErr, &notReady) {
		return fmt.Errorf("expected a not-ready error, got %v", testCtx.RunErr)
	}
	if st := testCtx.Session.State(); st != mapping.StateFailed {
		return fmt.Errorf("session state is %s, expected failed", st)
	}
	return nil
}
