package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "ledmap"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "LEDMAP"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so that flag
// bindings made by the CLI are visible.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWithViper creates a loader on an isolated viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load loads configuration from files, environment variables and defaults,
// then validates it.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without the final Validate call.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path. An empty path
// falls back to the search paths.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation loads a specific file without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		if configFile != "" {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		// A missing file is fine; defaults and env vars still apply.
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// LEDMAP_DETECTOR_ROI_SIZE -> detector.roi_size
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so that AutomaticEnv can resolve it
// during Unmarshal. Durations are stored as strings to keep generated
// files readable.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("camera.source", d.Camera.Source)
	l.v.SetDefault("camera.device", d.Camera.Device)
	l.v.SetDefault("camera.directory", d.Camera.Directory)
	l.v.SetDefault("camera.loop", d.Camera.Loop)
	l.v.SetDefault("camera.width", d.Camera.Width)
	l.v.SetDefault("camera.height", d.Camera.Height)
	l.v.SetDefault("camera.frame_interval", d.Camera.FrameInterval.String())

	l.v.SetDefault("calibration.min_rect_size", d.Calibration.MinRectSize)
	l.v.SetDefault("calibration.canvas_width", d.Calibration.CanvasWidth)
	l.v.SetDefault("calibration.canvas_height", d.Calibration.CanvasHeight)

	l.v.SetDefault("detector.baseline_frames", d.Detector.BaselineFrames)
	l.v.SetDefault("detector.baseline_interval", d.Detector.BaselineInterval.String())
	l.v.SetDefault("detector.dark_below", d.Detector.DarkBelow)
	l.v.SetDefault("detector.bright_above", d.Detector.BrightAbove)
	l.v.SetDefault("detector.threshold_dark", d.Detector.ThresholdDark)
	l.v.SetDefault("detector.threshold_normal", d.Detector.ThresholdNormal)
	l.v.SetDefault("detector.threshold_bright", d.Detector.ThresholdBright)
	l.v.SetDefault("detector.rolling_frames", d.Detector.RollingFrames)
	l.v.SetDefault("detector.centroid_window", d.Detector.CentroidWindow)
	l.v.SetDefault("detector.confidence_scale", d.Detector.ConfidenceScale)
	l.v.SetDefault("detector.absolute_floor", d.Detector.AbsoluteFloor)
	l.v.SetDefault("detector.samples_per_light", d.Detector.SamplesPerLight)
	l.v.SetDefault("detector.history_size", d.Detector.HistorySize)
	l.v.SetDefault("detector.min_samples", d.Detector.MinSamples)
	l.v.SetDefault("detector.roi_size", d.Detector.ROISize)
	l.v.SetDefault("detector.reset_on_miss", d.Detector.ResetOnMiss)

	l.v.SetDefault("session.led_count", d.Session.LEDCount)
	l.v.SetDefault("session.settle_delay", d.Session.SettleDelay.String())
	l.v.SetDefault("session.light_timeout", d.Session.LightTimeout.String())
	l.v.SetDefault("session.normalize_on_complete", d.Session.NormalizeOnComplete)

	l.v.SetDefault("normalize.smooth", d.Normalize.Smooth)
	l.v.SetDefault("normalize.window", d.Normalize.Window)
	l.v.SetDefault("normalize.respace", d.Normalize.Respace)
	l.v.SetDefault("normalize.spacing", d.Normalize.Spacing)

	l.v.SetDefault("sequencer.kind", d.Sequencer.Kind)
	l.v.SetDefault("sequencer.port", d.Sequencer.Port)
	l.v.SetDefault("sequencer.baud_rate", d.Sequencer.BaudRate)
	l.v.SetDefault("sequencer.data_bits", d.Sequencer.DataBits)
	l.v.SetDefault("sequencer.stop_bits", d.Sequencer.StopBits)
	l.v.SetDefault("sequencer.parity", d.Sequencer.Parity)
	l.v.SetDefault("sequencer.url", d.Sequencer.URL)
	l.v.SetDefault("sequencer.per_light_delay", d.Sequencer.PerLightDelay.String())
	l.v.SetDefault("sequencer.protocol", d.Sequencer.Protocol)
	l.v.SetDefault("sequencer.start_address", d.Sequencer.StartAddress)
	l.v.SetDefault("sequencer.brightness", d.Sequencer.Brightness)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)
	l.v.SetDefault("output.overlay_dir", d.Output.OverlayDir)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile writes a configuration file holding every default.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWithViper(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}

	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if homeErr == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}

	return append(paths, "/etc/"+ConfigFileName)
}
