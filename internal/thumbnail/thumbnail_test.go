package thumbnail

import (
	"testing"

	"github.com/BurntSushi/xgb/render"
	"github.com/h0lylag/evepreviewd/internal/geom"
	"github.com/h0lylag/evepreviewd/internal/x11"
	"github.com/stretchr/testify/require"
)

func TestIsHovered(t *testing.T) {
	th := &Thumbnail{
		Position:   geom.Position{X: 100, Y: 100},
		Dimensions: geom.Dimensions{Width: 300, Height: 200},
	}

	require.True(t, th.IsHovered(150, 150))
	require.True(t, th.IsHovered(100, 100))
	require.False(t, th.IsHovered(400, 150))
	require.False(t, th.IsHovered(150, 300))
}

func TestScaleTransformIdentityAtEqualSize(t *testing.T) {
	tr := scaleTransform(300, 200, 300, 200)
	require.EqualValues(t, x11.ToFixed(1), tr.Matrix11)
	require.EqualValues(t, x11.ToFixed(1), tr.Matrix22)
	require.EqualValues(t, x11.ToFixed(1), tr.Matrix33)
	require.EqualValues(t, render.Fixed(0), tr.Matrix12)
}

func TestScaleTransformHalvesSourceCoordinatesWhenUpscaling(t *testing.T) {
	// A 300x200 source mirrored into a 600x400 overlay: since RENDER
	// transforms map destination pixels back to source pixels, the
	// per-destination-pixel source step must be 0.5.
	tr := scaleTransform(300, 200, 600, 400)
	require.EqualValues(t, x11.ToFixed(0.5), tr.Matrix11)
	require.EqualValues(t, x11.ToFixed(0.5), tr.Matrix22)
}

func TestPendingCommitReflectsFlag(t *testing.T) {
	th := &Thumbnail{Dimensions: geom.Dimensions{Width: 300, Height: 200}}
	require.False(t, th.PendingCommit())
	th.pendingCommit = true
	require.True(t, th.PendingCommit())
}

func TestBorderColorForSkippedWinsOverFocused(t *testing.T) {
	require.Equal(t, skippedBorderColor, borderColorFor(true, true))
	require.Equal(t, skippedBorderColor, borderColorFor(false, true))
}

func TestBorderColorForFocusedWhenNotSkipped(t *testing.T) {
	require.Equal(t, focusBorderColor, borderColorFor(true, false))
}

func TestBorderColorForDefaultOtherwise(t *testing.T) {
	require.Equal(t, idleBorderColor, borderColorFor(false, false))
}
