package geom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRectEdges(t *testing.T) {
	r := Rect{Position: Position{X: 10, Y: 20}, Dimensions: Dimensions{Width: 300, Height: 150}}

	require.EqualValues(t, 10, r.Left())
	require.EqualValues(t, 20, r.Top())
	require.EqualValues(t, 310, r.Right())
	require.EqualValues(t, 170, r.Bottom())
}

func TestRectContains(t *testing.T) {
	r := Rect{Position: Position{X: 10, Y: 20}, Dimensions: Dimensions{Width: 300, Height: 150}}

	require.True(t, r.Contains(10, 20))
	require.True(t, r.Contains(309, 169))
	require.False(t, r.Contains(310, 20), "Right() is exclusive")
	require.False(t, r.Contains(10, 170), "Bottom() is exclusive")
	require.False(t, r.Contains(9, 20))
	require.False(t, r.Contains(10, 19))
}

func TestRectWithPosition(t *testing.T) {
	r := Rect{Position: Position{X: 10, Y: 20}, Dimensions: Dimensions{Width: 300, Height: 150}}
	moved := r.WithPosition(Position{X: 0, Y: 0})

	require.Equal(t, Position{X: 0, Y: 0}, moved.Position)
	require.Equal(t, r.Dimensions, moved.Dimensions)
	require.Equal(t, Position{X: 10, Y: 20}, r.Position, "WithPosition must not mutate the receiver")
}
