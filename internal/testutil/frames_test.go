package testutil

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.FileExists(t, root+"/go.mod")
}

func TestSpotFrame(t *testing.T) {
	img := SpotFrame(40, 30, 10, 250, 20, 15, 4)
	assert.Equal(t, uint8(250), img.NRGBAAt(20, 15).R)
	assert.Equal(t, uint8(10), img.NRGBAAt(0, 0).R)
}

func TestScriptedSource(t *testing.T) {
	src := NewScriptedSource(8, 8, func(n int) (image.Image, error) {
		return UniformFrame(8, 8, uint8(n)), nil
	})
	for want := range 3 {
		img, err := src.NextFrame(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint8(want), img.(*image.NRGBA).NRGBAAt(0, 0).R)
	}
	assert.Equal(t, 3, src.Frames())
	require.NoError(t, src.Close())
	assert.True(t, src.Closed())
}
