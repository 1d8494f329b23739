package fontrender

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoreFontRendererRendersNonEmptyBitmap(t *testing.T) {
	r := NewCoreFontRenderer()
	require.True(t, r.RequiresDirectRendering())

	img, baseline, err := r.Render("Picard", color.RGBA{R: 255, G: 255, B: 255, A: 255})
	require.NoError(t, err)
	require.Greater(t, img.Bounds().Dx(), 0)
	require.Greater(t, img.Bounds().Dy(), 0)
	require.Greater(t, baseline, 0)
}

func TestCoreFontRendererEmptyStringYieldsEmptyImage(t *testing.T) {
	r := NewCoreFontRenderer()
	img, baseline, err := r.Render("", color.RGBA{})
	require.NoError(t, err)
	require.Equal(t, 0, img.Bounds().Dx())
	require.Equal(t, 0, baseline)
}
