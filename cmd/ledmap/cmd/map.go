package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/ledmap/internal/calibrate"
	"github.com/MeKo-Tech/ledmap/internal/capture"
	"github.com/MeKo-Tech/ledmap/internal/mapping"
	"github.com/MeKo-Tech/ledmap/internal/utils"
)

// mapCmd runs one mapping session.
var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Map LED positions with a camera",
	Long: `Run a mapping session: capture an ambient baseline, light every LED in turn
and locate it in the camera image, then report the output-space positions.

The calibration comes from --rect or from a file written by "ledmap calibrate --save".
The camera may be a webcam (built with -tags gocv), a directory of captured frames
or a synthetic scene; LEDs are driven by the simulated, serial or websocket sequencer.

Examples:
  ledmap map --leds 50 --rect 100,50,1100,750 --source synthetic --dead 3,7
  ledmap map --leds 144 --calibration calibration.yaml --sequencer serial --port /dev/ttyUSB0
  ledmap map --leds 60 --rect 0,0,640,480 --format json --output strip.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		logger := slog.Default()

		if cfg.Session.LEDCount < 1 {
			return errors.New("--leds must be at least 1")
		}

		calib, rect, err := mapCalibration(cmd, cfg.Calibration.MinRectSize, cfg.Calibration.CanvasWidth, cfg.Calibration.CanvasHeight)
		if err != nil {
			return err
		}

		dead, _ := cmd.Flags().GetIntSlice("dead")
		hw := hardwareFactory{cfg: cfg, rect: rect, dead: dead, logger: logger}
		src, seq, err := hw.open(cfg.Session.LEDCount)
		if err != nil {
			return err
		}
		defer func() { _ = src.Close() }()

		var progress mapping.ProgressListener = mapping.NoOpProgress{}
		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			progress = mapping.NewConsoleProgress(cmd.ErrOrStderr(), "")
		}

		sess, err := mapping.NewSession(cfg.ToSessionConfig(), calib, src, seq,
			mapping.WithLogger(logger),
			mapping.WithProgress(progress))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		res, err := sess.Run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return errors.New("mapping cancelled")
			}
			return fmt.Errorf("mapping failed: %w", err)
		}

		if cfg.Output.OverlayDir != "" {
			if err := writeOverlay(ctx, cfg.Output.OverlayDir, src, rect, res); err != nil {
				logger.Warn("overlay not written", "error", err)
			}
		}

		return writeOutput(cmd, cfg.Output.Format, cfg.Output.File, res, func(w io.Writer) {
			writeResultText(w, res)
		})
	},
}

// mapCalibration builds the calibration from --calibration or --rect.
func mapCalibration(cmd *cobra.Command, minRect int, canvasW, canvasH float64) (*calibrate.Calibration, image.Rectangle, error) {
	if path, _ := cmd.Flags().GetString("calibration"); path != "" {
		calib, file, err := loadCalibration(path)
		if err != nil {
			return nil, image.Rectangle{}, err
		}
		return calib, file.rectangle(), nil
	}

	rectStr, _ := cmd.Flags().GetString("rect")
	if rectStr == "" {
		return nil, image.Rectangle{}, errors.New("either --rect or --calibration is required")
	}
	rect, err := parseRect(rectStr)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	if err := checkRect(rect, minRect); err != nil {
		return nil, image.Rectangle{}, err
	}
	calib := calibrate.New(slog.Default())
	if _, err := calib.FromRectangle(rect, canvasW, canvasH); err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("calibration failed: %w", err)
	}
	return calib, calib.Rectangle(), nil
}

// writeOverlay grabs one more frame and draws the detections onto it.
func writeOverlay(ctx context.Context, dir string, src capture.FrameSource, rect image.Rectangle, res *mapping.Result) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	frame, err := src.NextFrame(ctx)
	if err != nil {
		slog.Debug("no background frame for overlay", "error", err)
		frame = nil
	}
	img := mapping.RenderOverlay(frame, src.Bounds(), rect, res)
	path := filepath.Join(dir, fmt.Sprintf("ledmap-%s.png", res.SessionID))
	if err := utils.SavePNG(img, path); err != nil {
		return err
	}
	slog.Info("overlay written", "file", path)
	return nil
}

func writeResultText(w io.Writer, res *mapping.Result) {
	_, _ = fmt.Fprintf(w, "Session: %s\n", res.SessionID)
	_, _ = fmt.Fprintf(w, "Mapped:  %d/%d (%.1f%%)\n", len(res.Positions), res.Total, res.SuccessRate*100)
	if len(res.Failed) > 0 {
		_, _ = fmt.Fprintf(w, "Failed:  %v\n", res.Failed)
	}
	for _, p := range res.Ordered() {
		_, _ = fmt.Fprintf(w, "%4d  %9.2f %9.2f  conf %.2f\n", p.Index, p.Output.X, p.Output.Y, p.Confidence)
	}
	if res.Normalized != nil {
		_, _ = fmt.Fprintf(w, "Normalized: %d points, spacing std %.2f -> %.2f\n",
			len(res.Normalized.Points), res.Normalized.SpacingStdBefore, res.Normalized.SpacingStdAfter)
	}
}

func init() {
	rootCmd.AddCommand(mapCmd)

	f := mapCmd.Flags()
	f.IntP("leds", "n", 50, "number of LEDs on the strip")
	f.String("rect", "", "camera rectangle x0,y0,x1,y1")
	f.String("calibration", "", "calibration file written by 'ledmap calibrate --save'")
	f.Float64("canvas-width", 1920, "output canvas width")
	f.Float64("canvas-height", 1080, "output canvas height")
	f.String("source", "webcam", "camera source (webcam, directory, synthetic)")
	f.String("device", "0", "webcam device id or path")
	f.String("frames-dir", "", "directory of captured frames for --source directory")
	f.Int("width", 1280, "camera frame width")
	f.Int("height", 720, "camera frame height")
	f.String("sequencer", "sim", "LED sequencer (sim, serial, websocket)")
	f.String("port", "", "serial port for --sequencer serial")
	f.String("url", "", "controller URL for --sequencer websocket")
	f.Duration("settle", 0, "delay after each activation before detection (default from config)")
	f.Duration("timeout", 0, "per-light detection timeout (default from config)")
	f.Duration("delay", 0, "per-light delay requested from the sequencer (default from config)")
	f.Bool("normalize", false, "normalize the mapped geometry on completion")
	f.IntSlice("dead", nil, "LED indices that never light (synthetic camera only)")
	f.Bool("quiet", false, "suppress per-light progress output")
	f.String("overlay-dir", "", "directory to write a detection overlay PNG")
	f.StringP("format", "f", "text", "output format (text, json, yaml)")
	f.StringP("output", "o", "", "output file (default: stdout)")

	registerBindings(mapCmd,
		flagBinding{"session.led_count", "leds"},
		flagBinding{"calibration.canvas_width", "canvas-width"},
		flagBinding{"calibration.canvas_height", "canvas-height"},
		flagBinding{"camera.source", "source"},
		flagBinding{"camera.device", "device"},
		flagBinding{"camera.directory", "frames-dir"},
		flagBinding{"camera.width", "width"},
		flagBinding{"camera.height", "height"},
		flagBinding{"sequencer.kind", "sequencer"},
		flagBinding{"sequencer.port", "port"},
		flagBinding{"sequencer.url", "url"},
		flagBinding{"session.settle_delay", "settle"},
		flagBinding{"session.light_timeout", "timeout"},
		flagBinding{"sequencer.per_light_delay", "delay"},
		flagBinding{"session.normalize_on_complete", "normalize"},
		flagBinding{"output.overlay_dir", "overlay-dir"},
		flagBinding{"output.format", "format"},
		flagBinding{"output.file", "output"},
	)
}
