package support

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/ledmap/internal/calibrate"
	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// RegisterCalibrationSteps registers the calibration step definitions.
func (testCtx *TestContext) RegisterCalibrationSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an output canvas of (\d+) by (\d+)$`, testCtx.anOutputCanvasOf)
	sc.Step(`^I calibrate with the camera rectangle "([^"]*)"$`, testCtx.iCalibrateWithTheCameraRectangle)
	sc.Step(`^I calibrate with the correspondences:$`, testCtx.iCalibrateWithTheCorrespondences)
	sc.Step(`^the calibration succeeds$`, testCtx.theCalibrationSucceeds)
	sc.Step(`^the camera point "([^"]*)" maps to "([^"]*)"$`, testCtx.theCameraPointMapsTo)
	sc.Step(`^the maximum calibration error is below ([\d.]+)$`, testCtx.theMaximumCalibrationErrorIsBelow)
	sc.Step(`^the calibration fails as degenerate$`, testCtx.theCalibrationFailsAsDegenerate)
	sc.Step(`^the calibration fails with "([^"]*)"$`, testCtx.theCalibrationFailsWith)
	sc.Step(`^mapping a camera point reports that the transform is not ready$`, testCtx.mappingReportsNotReady)
	sc.Step(`^the calibration is reset$`, testCtx.theCalibrationIsReset)
}

func (testCtx *TestContext) anOutputCanvasOf(w, h int) error {
	testCtx.CanvasWidth = float64(w)
	testCtx.CanvasHeight = float64(h)
	return nil
}

func (testCtx *TestContext) iCalibrateWithTheCameraRectangle(rect string) error {
	r, err := parseRect(rect)
	if err != nil {
		return err
	}
	_, testCtx.CalibErr = testCtx.Calibration.FromRectangle(r, testCtx.CanvasWidth, testCtx.CanvasHeight)
	return nil
}

func (testCtx *TestContext) iCalibrateWithTheCorrespondences(table *godog.Table) error {
	testCtx.Calibration.Reset()
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		if len(row.Cells) != 4 {
			return fmt.Errorf("row %d: expected 4 cells, got %d", i, len(row.Cells))
		}
		var v [4]float64
		for j, cell := range row.Cells {
			f, err := strconv.ParseFloat(strings.TrimSpace(cell.Value), 64)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			v[j] = f
		}
		testCtx.Calibration.AddCorrespondence(utils.Pt(v[2], v[3]), utils.Pt(v[0], v[1]))
	}
	_, testCtx.CalibErr = testCtx.Calibration.ComputeTransform()
	return nil
}

func (testCtx *TestContext) theCalibrationSucceeds() error {
	if testCtx.CalibErr != nil {
		return fmt.Errorf("calibration failed: %w", testCtx.CalibErr)
	}
	return nil
}

func (testCtx *TestContext) theCameraPointMapsTo(camera, output string) error {
	cx, cy, err := parsePair(camera)
	if err != nil {
		return err
	}
	ox, oy, err := parsePair(output)
	if err != nil {
		return err
	}
	got, err := testCtx.Calibration.Apply(utils.Pt(cx, cy))
	if err != nil {
		return err
	}
	if math.Abs(got.X-ox) > 1 || math.Abs(got.Y-oy) > 1 {
		return fmt.Errorf("camera point (%v, %v) mapped to (%.2f, %.2f), expected (%v, %v)", cx, cy, got.X, got.Y, ox, oy)
	}
	return nil
}

func (testCtx *TestContext) theMaximumCalibrationErrorIsBelow(limit float64) error {
	v := testCtx.Calibration.Verification()
	if v == nil {
		return errors.New("no verification recorded")
	}
	if v.MaxError >= limit {
		return fmt.Errorf("max error %g is not below %g", v.MaxError, limit)
	}
	return nil
}

func (testCtx *TestContext) theCalibrationFailsAsDegenerate() error {
	var degenerate *calibrate.DegenerateInputError
	if !errors.As(testCtx.CalibErr, &degenerate) {
		return fmt.Errorf("expected a degenerate input error, got %v", testCtx.CalibErr)
	}
	return nil
}

func (testCtx *TestContext) theCalibrationFailsWith(fragment string) error {
	if testCtx.CalibErr == nil {
		return errors.New("expected calibration to fail")
	}
	if !strings.Contains(testCtx.CalibErr.Error(), fragment) {
		return fmt.Errorf("error %q does not contain %q", testCtx.CalibErr, fragment)
	}
	return nil
}

func (testCtx *TestContext) mappingReportsNotReady() error {
	_, err := testCtx.Calibration.Apply(utils.Pt(1, 1))
	var notReady *calibrate.TransformNotReadyError
	if !errors.As(err, &notReady) {
		return fmt.Errorf("expected a not-ready error, got %v", err)
	}
	return nil
}

func (testCtx *TestContext) theCalibrationIsReset() error {
	testCtx.Calibration.Reset()
	return nil
}
