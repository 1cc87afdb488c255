package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/ledmap/internal/mapping"
	"github.com/MeKo-Tech/ledmap/internal/normalize"
)

// execute runs the root command in an empty working directory and returns
// its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	resetFlags(rootCmd)

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default; cobra keeps parsed values
// between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "ledmap", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, expected := range []string{"calibrate", "map", "normalize", "serve", "config"} {
		assert.True(t, names[expected], "expected subcommand %q", expected)
	}
}

func TestRootCommandVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "ledmap version")
}

func TestParseRect(t *testing.T) {
	r, err := parseRect("150, 110, 10,10")
	require.NoError(t, err)
	assert.Equal(t, 10, r.Min.X)
	assert.Equal(t, 140, r.Dx())

	_, err = parseRect("1,2,3")
	assert.Error(t, err)
	_, err = parseRect("a,b,c,d")
	assert.Error(t, err)

	assert.Error(t, checkRect(r, 120))
	assert.NoError(t, checkRect(r, 50))
}

func TestCalibrateCommand(t *testing.T) {
	out, err := execute(t, "calibrate", "--rect", "100,50,1100,750", "--point", "600,400", "--format", "json")
	require.NoError(t, err)

	var file calibrationFile
	require.NoError(t, json.Unmarshal([]byte(out), &file))
	assert.Equal(t, [4]int{100, 50, 1100, 750}, file.Rect)
	require.Len(t, file.Mapped, 1)
	assert.InDelta(t, 960.0, file.Mapped[0].Output.X, 1.0)
	assert.InDelta(t, 540.0, file.Mapped[0].Output.Y, 1.0)
	require.NotNil(t, file.Verification)
	assert.Less(t, file.Verification.MaxError, 1e-6)
}

func TestCalibrateCommand_RepeatedPoints(t *testing.T) {
	out, err := execute(t, "calibrate", "--rect", "100,50,1100,750",
		"--point", "100,50", "--point", "1100, 750", "--point", "600,400", "--format", "json")
	require.NoError(t, err)

	var file calibrationFile
	require.NoError(t, json.Unmarshal([]byte(out), &file))
	require.Len(t, file.Mapped, 3)
	assert.InDelta(t, 0.0, file.Mapped[0].Output.X, 1e-6)
	assert.InDelta(t, 1920.0, file.Mapped[1].Output.X, 1e-6)
	assert.InDelta(t, 1080.0, file.Mapped[1].Output.Y, 1e-6)
	assert.InDelta(t, 960.0, file.Mapped[2].Output.X, 1e-6)
}

func TestCalibrateCommand_RejectsSmallRect(t *testing.T) {
	_, err := execute(t, "calibrate", "--rect", "0,0,40,400", "--point", "1,1", "--format", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smaller than")
}

func TestCalibrateSaveAndMap(t *testing.T) {
	dir := t.TempDir()
	calFile := filepath.Join(dir, "cal.yaml")
	resultFile := filepath.Join(dir, "result.json")

	_, err := execute(t, "calibrate", "--rect", "20,20,300,220", "--point", "1,1",
		"--canvas-width", "1000", "--canvas-height", "500", "--save", calFile, "--format", "text")
	require.NoError(t, err)
	require.FileExists(t, calFile)

	_, err = execute(t, "map",
		"--leds", "10",
		"--calibration", calFile,
		"--source", "synthetic",
		"--width", "320", "--height", "240",
		"--sequencer", "sim",
		"--dead", "3,7",
		"--settle", "20ms",
		"--timeout", "300ms",
		"--delay", "0s",
		"--quiet",
		"--format", "json",
		"--output", resultFile,
	)
	require.NoError(t, err)

	data, err := os.ReadFile(resultFile)
	require.NoError(t, err)
	var res mapping.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Len(t, res.Positions, 8)
	assert.Equal(t, []int{3, 7}, res.Failed)
	assert.InDelta(t, 0.8, res.SuccessRate, 1e-9)
	for _, p := range res.Positions {
		assert.True(t, p.Output.X >= 0 && p.Output.X <= 1000, "x %v outside canvas", p.Output.X)
		assert.True(t, p.Output.Y >= 0 && p.Output.Y <= 500, "y %v outside canvas", p.Output.Y)
	}

	out, err := execute(t, "normalize", resultFile, "--format", "json", "--output", "")
	require.NoError(t, err)
	var norm normalize.Result
	require.NoError(t, json.Unmarshal([]byte(out), &norm))
	assert.Len(t, norm.Points, 8)
	assert.Greater(t, norm.PathLength, 0.0)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledmap.yaml")
	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	assert.FileExists(t, path)
}
