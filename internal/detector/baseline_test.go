package detector

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/ledmap/internal/capture"
	"github.com/MeKo-Tech/ledmap/internal/testutil"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.BaselineInterval = 0
	return cfg
}

func TestCaptureBaseline_AveragesFrames(t *testing.T) {
	levels := []uint8{10, 20, 30}
	src := testutil.NewScriptedSource(16, 16, func(n int) (image.Image, error) {
		return testutil.UniformFrame(16, 16, levels[n%3]), nil
	})

	b, err := CaptureBaseline(context.Background(), src, image.Rectangle{}, fastConfig())
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, 3, b.Frames)
	assert.Equal(t, 3, src.Frames())
	assert.InDelta(t, 20.0, b.Mean, 1e-9)
	assert.InDelta(t, 20.0, b.Frame.At(5, 5), 1e-9)
	assert.Equal(t, 30.0, b.Threshold)
}

func TestCaptureBaseline_ThresholdBands(t *testing.T) {
	tests := []struct {
		name  string
		level uint8
		want  float64
	}{
		{name: "dark", level: 10, want: 30},
		{name: "normal", level: 90, want: 60},
		{name: "bright", level: 200, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testutil.NewScriptedSource(8, 8, func(int) (image.Image, error) {
				return testutil.UniformFrame(8, 8, tt.level), nil
			})
			b, err := CaptureBaseline(context.Background(), src, image.Rectangle{}, fastConfig())
			require.NoError(t, err)
			defer b.Release()
			assert.Equal(t, tt.want, b.Threshold)
		})
	}
}

func TestCaptureBaseline_MeanOverROI(t *testing.T) {
	// Bright spot outside the ROI must not raise the threshold.
	src := testutil.NewScriptedSource(40, 40, func(int) (image.Image, error) {
		return testutil.SpotFrame(40, 40, 10, 255, 35, 35, 10), nil
	})
	b, err := CaptureBaseline(context.Background(), src, image.Rect(0, 0, 20, 20), fastConfig())
	require.NoError(t, err)
	defer b.Release()
	assert.InDelta(t, 10.0, b.Mean, 1e-9)
}

func TestCaptureBaseline_CaptureError(t *testing.T) {
	src := testutil.NewScriptedSource(8, 8, func(int) (image.Image, error) {
		return nil, errors.New("usb unplugged")
	})
	_, err := CaptureBaseline(context.Background(), src, image.Rectangle{}, fastConfig())
	var cue *capture.CaptureUnavailableError
	assert.ErrorAs(t, err, &cue)
}

func TestCaptureBaseline_Cancelled(t *testing.T) {
	src := testutil.NewScriptedSource(8, 8, func(int) (image.Image, error) {
		return testutil.UniformFrame(8, 8, 10), nil
	})
	cfg := DefaultConfig()
	cfg.BaselineInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := CaptureBaseline(ctx, src, image.Rectangle{}, cfg)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, src.Frames())
}
