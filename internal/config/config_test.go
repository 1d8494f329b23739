package config

import (
	"testing"

	"github.com/h0lylag/evepreviewd/internal/geom"
	"github.com/stretchr/testify/require"
)

func TestDefaultThumbnailSizeScalesToScreen(t *testing.T) {
	p := Profile{
		ScreenScaleReference: geom.Dimensions{Width: 1920, Height: 1080},
		DefaultDimensions:    geom.Dimensions{Width: 320, Height: 180},
	}

	got := p.DefaultThumbnailSize(geom.Dimensions{Width: 3840, Height: 2160})
	require.EqualValues(t, 640, got.Width)
	require.EqualValues(t, 360, got.Height)
}

func TestDefaultThumbnailSizeFallsBackWithoutReference(t *testing.T) {
	p := Profile{DefaultDimensions: geom.Dimensions{Width: 320, Height: 180}}
	got := p.DefaultThumbnailSize(geom.Dimensions{Width: 3840, Height: 2160})
	require.Equal(t, p.DefaultDimensions, got)
}

func TestHasOwnGeometry(t *testing.T) {
	require.False(t, CharacterSettings{}.HasOwnGeometry())
	require.True(t, CharacterSettings{Dimensions: geom.Dimensions{Width: 300, Height: 200}}.HasOwnGeometry())
}

func TestIsSkipped(t *testing.T) {
	var nilProfile Profile
	require.False(t, nilProfile.IsSkipped("alice"), "nil SkippedIdentities map must read as not-skipped")

	p := Profile{SkippedIdentities: map[string]bool{"bob": true}}
	require.True(t, p.IsSkipped("bob"))
	require.False(t, p.IsSkipped("alice"))
}
