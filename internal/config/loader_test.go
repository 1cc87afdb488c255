package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	// Run in an empty directory so a developer's ledmap.yaml is not picked up.
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	return NewLoaderWithViper(viper.New())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader() returned nil")
	}
	if loader.GetViper() != viper.GetViper() {
		t.Error("NewLoader() should use the global viper instance")
	}
}

func TestLoadWithNoConfigFile(t *testing.T) {
	loader := newTestLoader(t)

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	defaults := DefaultConfig()
	if cfg.Detector.ROISize != defaults.Detector.ROISize {
		t.Errorf("ROISize = %d, want %d", cfg.Detector.ROISize, defaults.Detector.ROISize)
	}
	if cfg.Session.LightTimeout != defaults.Session.LightTimeout {
		t.Errorf("LightTimeout = %v, want %v", cfg.Session.LightTimeout, defaults.Session.LightTimeout)
	}
	if loader.GetConfigFileUsed() != "" {
		t.Errorf("expected no config file, got %s", loader.GetConfigFileUsed())
	}
}

func TestLoadFromSearchPath(t *testing.T) {
	loader := newTestLoader(t)
	writeFile(t, ".", "ledmap.yaml", `
session:
  led_count: 144
  settle_delay: 120ms
detector:
  roi_size: 80
  reset_on_miss: false
output:
  format: yaml
`)

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Session.LEDCount != 144 {
		t.Errorf("LEDCount = %d, want 144", cfg.Session.LEDCount)
	}
	if cfg.Session.SettleDelay != 120*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 120ms", cfg.Session.SettleDelay)
	}
	if cfg.Detector.ROISize != 80 {
		t.Errorf("ROISize = %d, want 80", cfg.Detector.ROISize)
	}
	if cfg.Detector.ResetOnMiss {
		t.Error("ResetOnMiss should be false")
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("Format = %s, want yaml", cfg.Output.Format)
	}
	// Untouched keys keep their defaults.
	if cfg.Detector.CentroidWindow != 20 {
		t.Errorf("CentroidWindow = %d, want 20", cfg.Detector.CentroidWindow)
	}
}

func TestLoadWithFile(t *testing.T) {
	loader := newTestLoader(t)
	path := writeFile(t, t.TempDir(), "custom.yaml", `
sequencer:
  kind: websocket
  url: ws://controller.local/ws
`)

	cfg, err := loader.LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() unexpected error: %v", err)
	}
	if cfg.Sequencer.Kind != "websocket" || cfg.Sequencer.URL != "ws://controller.local/ws" {
		t.Errorf("unexpected sequencer section: %+v", cfg.Sequencer)
	}
	if loader.GetConfigFileUsed() != path {
		t.Errorf("GetConfigFileUsed() = %s, want %s", loader.GetConfigFileUsed(), path)
	}
}

func TestLoadWithNonExistentFile(t *testing.T) {
	loader := newTestLoader(t)
	if _, err := loader.LoadWithFile("/nonexistent/ledmap.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadWithInvalidYAMLFile(t *testing.T) {
	loader := newTestLoader(t)
	path := writeFile(t, t.TempDir(), "broken.yaml", "detector: [roi_size: 1\n")
	if _, err := loader.LoadWithFile(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "log_level: chatty\n")

	if _, err := newTestLoader(t).LoadWithFile(path); err == nil {
		t.Error("LoadWithFile() should fail validation")
	}

	cfg, err := newTestLoader(t).LoadWithFileWithoutValidation(path)
	if err != nil {
		t.Fatalf("LoadWithFileWithoutValidation() unexpected error: %v", err)
	}
	if cfg.LogLevel != "chatty" {
		t.Errorf("LogLevel = %s, want chatty", cfg.LogLevel)
	}
}

func TestEnvironmentVariableOverride(t *testing.T) {
	loader := newTestLoader(t)
	t.Setenv("LEDMAP_SESSION_LED_COUNT", "30")
	t.Setenv("LEDMAP_DETECTOR_ROI_SIZE", "64")
	t.Setenv("LEDMAP_SESSION_LIGHT_TIMEOUT", "2s")
	t.Setenv("LEDMAP_SEQUENCER_KIND", "serial")

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Session.LEDCount != 30 {
		t.Errorf("LEDCount = %d, want 30", cfg.Session.LEDCount)
	}
	if cfg.Detector.ROISize != 64 {
		t.Errorf("ROISize = %d, want 64", cfg.Detector.ROISize)
	}
	if cfg.Session.LightTimeout != 2*time.Second {
		t.Errorf("LightTimeout = %v, want 2s", cfg.Session.LightTimeout)
	}
	if cfg.Sequencer.Kind != "serial" {
		t.Errorf("Kind = %s, want serial", cfg.Sequencer.Kind)
	}
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledmap.yaml")
	if err := GenerateDefaultConfigFile(path); err != nil {
		t.Fatalf("GenerateDefaultConfigFile() unexpected error: %v", err)
	}

	cfg, err := newTestLoader(t).LoadWithFile(path)
	if err != nil {
		t.Fatalf("loading generated file: %v", err)
	}
	if cfg.Detector.BaselineInterval != 100*time.Millisecond {
		t.Errorf("BaselineInterval = %v, want 100ms", cfg.Detector.BaselineInterval)
	}
	if cfg.Calibration.MinRectSize != 50 {
		t.Errorf("MinRectSize = %d, want 50", cfg.Calibration.MinRectSize)
	}
}

func TestGetConfigSearchPaths(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	paths := GetConfigSearchPaths()
	if paths[0] != "." {
		t.Errorf("first search path = %s, want .", paths[0])
	}
	want := map[string]bool{filepath.Join(xdg, "ledmap"): false, "/etc/ledmap": false}
	for _, p := range paths {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for p, seen := range want {
		if !seen {
			t.Errorf("search paths %v missing %s", paths, p)
		}
	}
}
