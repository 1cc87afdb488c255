package calibrate

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/ledmap/internal/utils"
)

func TestCalibration_FromRectangleMapsCenter(t *testing.T) {
	c := New(nil)
	_, err := c.FromRectangle(image.Rect(100, 50, 1100, 750), 1920, 1080)
	require.NoError(t, err)

	got, err := c.Apply(utils.Pt(600, 400))
	require.NoError(t, err)
	assert.InDelta(t, 960, got.X, 1)
	assert.InDelta(t, 540, got.Y, 1)

	assert.Equal(t, image.Rect(100, 50, 1100, 750), c.Rectangle())
	assert.Len(t, c.Correspondences(), 4)
}

func TestCalibration_Verification(t *testing.T) {
	c := New(nil)
	_, err := c.FromRectangle(image.Rect(0, 0, 640, 480), 640, 480)
	require.NoError(t, err)

	v := c.Verification()
	require.NotNil(t, v)
	assert.Len(t, v.PointErrors, 4)
	assert.Less(t, v.MaxError, 1e-6)
	assert.LessOrEqual(t, v.MeanError, v.MaxError)
}

func TestCalibration_ApplyBeforeCompute(t *testing.T) {
	c := New(nil)
	c.AddCorrespondence(utils.Pt(0, 0), utils.Pt(0, 0))
	assert.False(t, c.IsComplete())

	_, err := c.Apply(utils.Pt(1, 1))
	var nre *TransformNotReadyError
	require.True(t, errors.As(err, &nre))
	assert.Equal(t, 1, nre.Correspondences)
}

func TestCalibration_ApplyNonFinite(t *testing.T) {
	c := New(nil)
	_, err := c.FromRectangle(image.Rect(0, 0, 100, 100), 100, 100)
	require.NoError(t, err)

	_, err = c.Apply(utils.Pt(math.Inf(1), 0))
	var ite *InvalidTransformError
	assert.ErrorAs(t, err, &ite)
}

func TestCalibration_Reset(t *testing.T) {
	c := New(nil)
	_, err := c.FromRectangle(image.Rect(0, 0, 100, 100), 200, 200)
	require.NoError(t, err)

	c.Reset()
	_, ok := c.Transform()
	assert.False(t, ok)
	assert.Nil(t, c.Verification())
	assert.True(t, c.Rectangle().Empty())
	assert.Empty(t, c.Correspondences())
}

func TestCalibration_DegenerateClearsTransform(t *testing.T) {
	c := New(nil)
	for i := range 4 {
		f := float64(i)
		c.AddCorrespondence(utils.Pt(f, 0), utils.Pt(f, f))
	}
	require.True(t, c.IsComplete())
	_, err := c.ComputeTransform()
	var de *DegenerateInputError
	require.ErrorAs(t, err, &de)
	_, ok := c.Transform()
	assert.False(t, ok)
}
