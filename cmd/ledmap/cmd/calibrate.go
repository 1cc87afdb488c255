package cmd

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/ledmap/internal/calibrate"
	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// calibrationFile is the persisted form of a confirmed calibration.
type calibrationFile struct {
	Rect         [4]int                     `json:"rect"          yaml:"rect"`
	CanvasWidth  float64                    `json:"canvas_width"  yaml:"canvas_width"`
	CanvasHeight float64                    `json:"canvas_height" yaml:"canvas_height"`
	Transform    calibrate.AffineTransform  `json:"transform"     yaml:"transform"`
	Verification *calibrate.Verification    `json:"verification"  yaml:"verification"`
	Mapped       []calibrate.Correspondence `json:"mapped,omitempty" yaml:"mapped,omitempty"`
}

func (f calibrationFile) rectangle() image.Rectangle {
	return image.Rect(f.Rect[0], f.Rect[1], f.Rect[2], f.Rect[3])
}

// calibrateCmd solves the camera-to-output transform for a rectangle.
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Compute the camera-to-output transform from a calibration rectangle",
	Long: `Compute the affine transform that maps the confirmed camera rectangle onto
the output canvas, and report the re-projection error of every corner.

Camera points given with --point are mapped through the transform.

Examples:
  ledmap calibrate --rect 100,50,1100,750
  ledmap calibrate --rect 100,50,1100,750 --canvas-width 1920 --canvas-height 1080 --point 600,400
  ledmap calibrate --rect 100,50,1100,750 --save calibration.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		rectStr, _ := cmd.Flags().GetString("rect")
		if rectStr == "" {
			return errors.New("--rect is required")
		}
		rect, err := parseRect(rectStr)
		if err != nil {
			return err
		}
		if err := checkRect(rect, cfg.Calibration.MinRectSize); err != nil {
			return err
		}

		file, err := solveCalibration(rect, cfg.Calibration.CanvasWidth, cfg.Calibration.CanvasHeight)
		if err != nil {
			return err
		}

		points, _ := cmd.Flags().GetStringArray("point")
		for _, p := range points {
			x, y, err := parsePoint(p)
			if err != nil {
				return err
			}
			cam := utils.Pt(x, y)
			file.Mapped = append(file.Mapped, calibrate.Correspondence{Camera: cam, Output: file.Transform.Apply(cam)})
		}

		if save, _ := cmd.Flags().GetString("save"); save != "" {
			if err := writeOutput(cmd, outputFormatYAML, save, file, nil); err != nil {
				return err
			}
			slog.Info("calibration saved", "file", save)
		}

		return writeOutput(cmd, cfg.Output.Format, cfg.Output.File, file, func(w io.Writer) {
			writeCalibrationText(w, file)
		})
	},
}

func solveCalibration(rect image.Rectangle, canvasW, canvasH float64) (calibrationFile, error) {
	calib := calibrate.New(slog.Default())
	t, err := calib.FromRectangle(rect, canvasW, canvasH)
	if err != nil {
		return calibrationFile{}, fmt.Errorf("calibration failed: %w", err)
	}
	r := calib.Rectangle()
	return calibrationFile{
		Rect:         [4]int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y},
		CanvasWidth:  canvasW,
		CanvasHeight: canvasH,
		Transform:    t,
		Verification: calib.Verification(),
	}, nil
}

// loadCalibration rebuilds a Calibration from a saved file.
func loadCalibration(path string) (*calibrate.Calibration, calibrationFile, error) {
	var file calibrationFile
	if err := readStructured(path, &file); err != nil {
		return nil, file, fmt.Errorf("failed to read calibration %s: %w", path, err)
	}
	calib := calibrate.New(slog.Default())
	if _, err := calib.FromRectangle(file.rectangle(), file.CanvasWidth, file.CanvasHeight); err != nil {
		return nil, file, fmt.Errorf("calibration %s: %w", path, err)
	}
	return calib, file, nil
}

func writeCalibrationText(w io.Writer, f calibrationFile) {
	t := f.Transform
	_, _ = fmt.Fprintf(w, "Rectangle: (%d,%d)-(%d,%d)\n", f.Rect[0], f.Rect[1], f.Rect[2], f.Rect[3])
	_, _ = fmt.Fprintf(w, "Canvas:    %.0fx%.0f\n", f.CanvasWidth, f.CanvasHeight)
	_, _ = fmt.Fprintf(w, "Transform: x' = %.6f*x + %.6f*y + %.4f\n", t.A, t.B, t.C)
	_, _ = fmt.Fprintf(w, "           y' = %.6f*x + %.6f*y + %.4f\n", t.D, t.E, t.F)
	if f.Verification != nil {
		_, _ = fmt.Fprintf(w, "Error:     mean %.2e  max %.2e\n", f.Verification.MeanError, f.Verification.MaxError)
	}
	for _, m := range f.Mapped {
		_, _ = fmt.Fprintf(w, "(%.1f, %.1f) -> (%.2f, %.2f)\n", m.Camera.X, m.Camera.Y, m.Output.X, m.Output.Y)
	}
}

func init() {
	rootCmd.AddCommand(calibrateCmd)

	calibrateCmd.Flags().String("rect", "", "camera rectangle x0,y0,x1,y1")
	calibrateCmd.Flags().Float64("canvas-width", 1920, "output canvas width")
	calibrateCmd.Flags().Float64("canvas-height", 1080, "output canvas height")
	calibrateCmd.Flags().StringArray("point", nil, "camera point x,y to map (repeatable)")
	calibrateCmd.Flags().String("save", "", "write the calibration to a YAML file")
	calibrateCmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml)")
	calibrateCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	registerBindings(calibrateCmd,
		flagBinding{"calibration.canvas_width", "canvas-width"},
		flagBinding{"calibration.canvas_height", "canvas-height"},
		flagBinding{"output.format", "format"},
		flagBinding{"output.file", "output"},
	)
}
