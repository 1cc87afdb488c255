package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/ledmap/internal/capture"
	"github.com/MeKo-Tech/ledmap/internal/detector"
	"github.com/MeKo-Tech/ledmap/internal/mapping"
	"github.com/MeKo-Tech/ledmap/internal/normalize"
	"github.com/MeKo-Tech/ledmap/internal/sequencer"
)

// Config represents the complete configuration for the ledmap application.
// It covers every command (calibrate, map, normalize, serve) and is loaded
// from configuration files, environment variables and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Camera      CameraConfig      `mapstructure:"camera" yaml:"camera" json:"camera"`
	Calibration CalibrationConfig `mapstructure:"calibration" yaml:"calibration" json:"calibration"`
	Detector    DetectorConfig    `mapstructure:"detector" yaml:"detector" json:"detector"`
	Session     SessionConfig     `mapstructure:"session" yaml:"session" json:"session"`
	Normalize   NormalizeConfig   `mapstructure:"normalize" yaml:"normalize" json:"normalize"`
	Sequencer   SequencerConfig   `mapstructure:"sequencer" yaml:"sequencer" json:"sequencer"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server" json:"server"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output" json:"output"`
}

// CameraConfig selects and parameterizes the frame source.
type CameraConfig struct {
	Source        string        `mapstructure:"source" yaml:"source" json:"source"`
	Device        string        `mapstructure:"device" yaml:"device" json:"device"`
	Directory     string        `mapstructure:"directory" yaml:"directory" json:"directory"`
	Loop          bool          `mapstructure:"loop" yaml:"loop" json:"loop"`
	Width         int           `mapstructure:"width" yaml:"width" json:"width"`
	Height        int           `mapstructure:"height" yaml:"height" json:"height"`
	FrameInterval time.Duration `mapstructure:"frame_interval" yaml:"frame_interval" json:"frame_interval"`
}

// CalibrationConfig contains the output canvas and rectangle constraints.
type CalibrationConfig struct {
	MinRectSize  int     `mapstructure:"min_rect_size" yaml:"min_rect_size" json:"min_rect_size"`
	CanvasWidth  float64 `mapstructure:"canvas_width" yaml:"canvas_width" json:"canvas_width"`
	CanvasHeight float64 `mapstructure:"canvas_height" yaml:"canvas_height" json:"canvas_height"`
}

// DetectorConfig contains baseline and per-light detection settings.
type DetectorConfig struct {
	BaselineFrames   int           `mapstructure:"baseline_frames" yaml:"baseline_frames" json:"baseline_frames"`
	BaselineInterval time.Duration `mapstructure:"baseline_interval" yaml:"baseline_interval" json:"baseline_interval"`
	DarkBelow        float64       `mapstructure:"dark_below" yaml:"dark_below" json:"dark_below"`
	BrightAbove      float64       `mapstructure:"bright_above" yaml:"bright_above" json:"bright_above"`
	ThresholdDark    float64       `mapstructure:"threshold_dark" yaml:"threshold_dark" json:"threshold_dark"`
	ThresholdNormal  float64       `mapstructure:"threshold_normal" yaml:"threshold_normal" json:"threshold_normal"`
	ThresholdBright  float64       `mapstructure:"threshold_bright" yaml:"threshold_bright" json:"threshold_bright"`
	RollingFrames    int           `mapstructure:"rolling_frames" yaml:"rolling_frames" json:"rolling_frames"`
	CentroidWindow   int           `mapstructure:"centroid_window" yaml:"centroid_window" json:"centroid_window"`
	ConfidenceScale  float64       `mapstructure:"confidence_scale" yaml:"confidence_scale" json:"confidence_scale"`
	AbsoluteFloor    float64       `mapstructure:"absolute_floor" yaml:"absolute_floor" json:"absolute_floor"`
	SamplesPerLight  int           `mapstructure:"samples_per_light" yaml:"samples_per_light" json:"samples_per_light"`
	HistorySize      int           `mapstructure:"history_size" yaml:"history_size" json:"history_size"`
	MinSamples       int           `mapstructure:"min_samples" yaml:"min_samples" json:"min_samples"`
	ROISize          int           `mapstructure:"roi_size" yaml:"roi_size" json:"roi_size"`
	ResetOnMiss      bool          `mapstructure:"reset_on_miss" yaml:"reset_on_miss" json:"reset_on_miss"`
}

// SessionConfig contains mapping session timing.
type SessionConfig struct {
	LEDCount            int           `mapstructure:"led_count" yaml:"led_count" json:"led_count"`
	SettleDelay         time.Duration `mapstructure:"settle_delay" yaml:"settle_delay" json:"settle_delay"`
	LightTimeout        time.Duration `mapstructure:"light_timeout" yaml:"light_timeout" json:"light_timeout"`
	NormalizeOnComplete bool          `mapstructure:"normalize_on_complete" yaml:"normalize_on_complete" json:"normalize_on_complete"`
}

// NormalizeConfig contains geometry post-processing settings.
type NormalizeConfig struct {
	Smooth  bool    `mapstructure:"smooth" yaml:"smooth" json:"smooth"`
	Window  int     `mapstructure:"window" yaml:"window" json:"window"`
	Respace bool    `mapstructure:"respace" yaml:"respace" json:"respace"`
	Spacing float64 `mapstructure:"spacing" yaml:"spacing" json:"spacing"`
}

// SequencerConfig selects the activation transport and its run parameters.
type SequencerConfig struct {
	Kind          string        `mapstructure:"kind" yaml:"kind" json:"kind"`
	Port          string        `mapstructure:"port" yaml:"port" json:"port"`
	BaudRate      int           `mapstructure:"baud_rate" yaml:"baud_rate" json:"baud_rate"`
	DataBits      int           `mapstructure:"data_bits" yaml:"data_bits" json:"data_bits"`
	StopBits      int           `mapstructure:"stop_bits" yaml:"stop_bits" json:"stop_bits"`
	Parity        string        `mapstructure:"parity" yaml:"parity" json:"parity"`
	URL           string        `mapstructure:"url" yaml:"url" json:"url"`
	PerLightDelay time.Duration `mapstructure:"per_light_delay" yaml:"per_light_delay" json:"per_light_delay"`
	Protocol      string        `mapstructure:"protocol" yaml:"protocol" json:"protocol"`
	StartAddress  int           `mapstructure:"start_address" yaml:"start_address" json:"start_address"`
	Brightness    int           `mapstructure:"brightness" yaml:"brightness" json:"brightness"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// OutputConfig contains result formatting settings.
type OutputConfig struct {
	Format     string `mapstructure:"format" yaml:"format" json:"format"`
	File       string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayDir string `mapstructure:"overlay_dir" yaml:"overlay_dir" json:"overlay_dir"`
}

var (
	validLogLevels     = []string{"debug", "info", "warn", "error"}
	validFormats       = []string{"text", "json", "yaml"}
	validCameraSources = []string{capture.KindWebcam, capture.KindDirectory, capture.KindSynthetic}
	validSequencers    = []string{sequencer.KindSim, sequencer.KindSerial, sequencer.KindWebSocket}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	session := mapping.DefaultConfig(0)
	norm := normalize.DefaultOptions()

	return Config{
		LogLevel: "info",
		Verbose:  false,
		Camera: CameraConfig{
			Source:        capture.KindWebcam,
			Device:        "0",
			Width:         1280,
			Height:        720,
			FrameInterval: 33 * time.Millisecond,
		},
		Calibration: CalibrationConfig{
			MinRectSize:  50,
			CanvasWidth:  1920,
			CanvasHeight: 1080,
		},
		Detector: DetectorConfig{
			BaselineFrames:   det.BaselineFrames,
			BaselineInterval: det.BaselineInterval,
			DarkBelow:        det.Bands.DarkBelow,
			BrightAbove:      det.Bands.BrightAbove,
			ThresholdDark:    det.Bands.Dark,
			ThresholdNormal:  det.Bands.Normal,
			ThresholdBright:  det.Bands.Bright,
			RollingFrames:    det.RollingFrames,
			CentroidWindow:   det.CentroidWindow,
			ConfidenceScale:  det.ConfidenceScale,
			AbsoluteFloor:    det.AbsoluteFloor,
			SamplesPerLight:  det.SamplesPerLight,
			HistorySize:      det.HistorySize,
			MinSamples:       det.MinSamples,
			ROISize:          det.ROISize,
			ResetOnMiss:      det.ResetOnMiss,
		},
		Session: SessionConfig{
			LEDCount:            50,
			SettleDelay:         session.SettleDelay,
			LightTimeout:        session.LightTimeout,
			NormalizeOnComplete: session.NormalizeOnComplete,
		},
		Normalize: NormalizeConfig{
			Smooth:  norm.Smooth,
			Window:  norm.Window,
			Respace: norm.Respace,
			Spacing: norm.Spacing,
		},
		Sequencer: SequencerConfig{
			Kind:          sequencer.KindSim,
			BaudRate:      115200,
			DataBits:      8,
			StopBits:      1,
			Parity:        "none",
			PerLightDelay: session.Sequencer.PerLightDelay,
			Protocol:      "ws2812",
			StartAddress:  0,
			Brightness:    session.Sequencer.Brightness,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			ShutdownTimeout: 10,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if !slices.Contains(validCameraSources, c.Camera.Source) {
		return fmt.Errorf("invalid camera source: %s (must be one of: %s)", c.Camera.Source, strings.Join(validCameraSources, ", "))
	}
	if !slices.Contains(validSequencers, c.Sequencer.Kind) {
		return fmt.Errorf("invalid sequencer kind: %s (must be one of: %s)", c.Sequencer.Kind, strings.Join(validSequencers, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Calibration.MinRectSize <= 0 {
		return fmt.Errorf("invalid calibration min rect size: %d (must be positive)", c.Calibration.MinRectSize)
	}
	if c.Calibration.CanvasWidth <= 0 || c.Calibration.CanvasHeight <= 0 {
		return fmt.Errorf("invalid canvas size: %vx%v (must be positive)", c.Calibration.CanvasWidth, c.Calibration.CanvasHeight)
	}
	if c.Sequencer.Brightness < 0 || c.Sequencer.Brightness > 255 {
		return fmt.Errorf("invalid sequencer brightness: %d (must be between 0 and 255)", c.Sequencer.Brightness)
	}
	if c.Normalize.Window < 1 {
		return fmt.Errorf("invalid normalize window: %d (must be positive)", c.Normalize.Window)
	}
	if c.Normalize.Spacing < 0 {
		return fmt.Errorf("invalid normalize spacing: %v (must not be negative)", c.Normalize.Spacing)
	}

	if err := c.ToDetectorConfig().Validate(); err != nil {
		return fmt.Errorf("invalid detector configuration: %w", err)
	}
	if c.Session.LEDCount > 0 {
		if err := c.ToSessionConfig().Validate(); err != nil {
			return fmt.Errorf("invalid session configuration: %w", err)
		}
	}

	return nil
}

// ToDetectorConfig converts the config to the detector's configuration.
func (c *Config) ToDetectorConfig() detector.Config {
	d := c.Detector
	return detector.Config{
		BaselineFrames:   d.BaselineFrames,
		BaselineInterval: d.BaselineInterval,
		Bands: detector.ThresholdBands{
			DarkBelow:   d.DarkBelow,
			BrightAbove: d.BrightAbove,
			Dark:        d.ThresholdDark,
			Normal:      d.ThresholdNormal,
			Bright:      d.ThresholdBright,
		},
		RollingFrames:   d.RollingFrames,
		CentroidWindow:  d.CentroidWindow,
		ConfidenceScale: d.ConfidenceScale,
		AbsoluteFloor:   d.AbsoluteFloor,
		SamplesPerLight: d.SamplesPerLight,
		HistorySize:     d.HistorySize,
		MinSamples:      d.MinSamples,
		ROISize:         d.ROISize,
		ResetOnMiss:     d.ResetOnMiss,
	}
}

// ToNormalizeOptions converts the config to normalizer options.
func (c *Config) ToNormalizeOptions() normalize.Options {
	return normalize.Options{
		Smooth:  c.Normalize.Smooth,
		Window:  c.Normalize.Window,
		Respace: c.Normalize.Respace,
		Spacing: c.Normalize.Spacing,
	}
}

// ToSequencerConfig converts the config to the activation run parameters.
func (c *Config) ToSequencerConfig() sequencer.Config {
	return sequencer.Config{
		LEDCount:      c.Session.LEDCount,
		PerLightDelay: c.Sequencer.PerLightDelay,
		Protocol:      c.Sequencer.Protocol,
		StartAddress:  c.Sequencer.StartAddress,
		Brightness:    c.Sequencer.Brightness,
	}
}

// ToSessionConfig converts the config to a mapping session configuration.
func (c *Config) ToSessionConfig() mapping.Config {
	cfg := mapping.DefaultConfig(c.Session.LEDCount)
	cfg.SettleDelay = c.Session.SettleDelay
	cfg.LightTimeout = c.Session.LightTimeout
	cfg.Sequencer = c.ToSequencerConfig()
	cfg.Detector = c.ToDetectorConfig()
	cfg.NormalizeOnComplete = c.Session.NormalizeOnComplete
	cfg.Normalize = c.ToNormalizeOptions()
	return cfg
}

// ToCaptureOptions converts the camera section to frame source options.
func (c *Config) ToCaptureOptions() capture.Options {
	return capture.Options{
		Kind:          c.Camera.Source,
		Device:        c.Camera.Device,
		Directory:     c.Camera.Directory,
		Loop:          c.Camera.Loop,
		Width:         c.Camera.Width,
		Height:        c.Camera.Height,
		FrameInterval: c.Camera.FrameInterval,
	}
}

// ToSequencerOptions converts the sequencer section to transport options.
// The simulated transport's lighter is left to the caller.
func (c *Config) ToSequencerOptions() sequencer.Options {
	return sequencer.Options{
		Kind: c.Sequencer.Kind,
		Port: c.Sequencer.Port,
		Serial: sequencer.PortOptions{
			BaudRate: c.Sequencer.BaudRate,
			DataBits: c.Sequencer.DataBits,
			StopBits: c.Sequencer.StopBits,
			Parity:   c.Sequencer.Parity,
		},
		URL: c.Sequencer.URL,
	}
}
