package snap

import (
	"testing"

	"github.com/h0lylag/evepreviewd/internal/geom"
	"github.com/stretchr/testify/require"
)

func rect(x, y int16, w, h uint16) geom.Rect {
	return geom.Rect{Position: geom.Position{X: x, Y: y}, Dimensions: geom.Dimensions{Width: w, Height: h}}
}

func TestSolveScenarioS2RightDragSnapsX(t *testing.T) {
	// W1 at (100,100) 300x200, W2 at (405,100) 300x200. Right-press at
	// (150,150), motion to (155,155): win_start (100,100) + delta (5,5).
	dragged := rect(105, 105, 300, 200)
	neighbors := []geom.Rect{rect(405, 100, 300, 200)}

	pos, ok := Solve(dragged, neighbors, 10)
	require.True(t, ok)
	require.EqualValues(t, 105, pos.X)
	require.EqualValues(t, 105, pos.Y)
}

func TestSolveNoSnapOutsideThreshold(t *testing.T) {
	dragged := rect(105, 105, 300, 200)
	neighbors := []geom.Rect{rect(500, 500, 100, 100)}

	pos, ok := Solve(dragged, neighbors, 10)
	require.False(t, ok)
	require.Equal(t, dragged.Position, pos)
}

func TestSolveZeroThresholdNeverSnaps(t *testing.T) {
	dragged := rect(400, 100, 300, 200)
	neighbors := []geom.Rect{rect(700, 100, 300, 200)}

	pos, ok := Solve(dragged, neighbors, 0)
	require.False(t, ok)
	require.Equal(t, dragged.Position, pos)
}

func TestSolveAxisIndependenceAndSwapSymmetry(t *testing.T) {
	dragged := rect(105, 205, 300, 200)
	neighbors := []geom.Rect{rect(405, 600, 300, 200)}

	pos, ok := Solve(dragged, neighbors, 10)
	require.True(t, ok)

	swappedDragged := rect(205, 105, 200, 300)
	swappedNeighbors := []geom.Rect{rect(600, 405, 200, 300)}
	swappedPos, swappedOK := Solve(swappedDragged, swappedNeighbors, 10)
	require.Equal(t, ok, swappedOK)
	require.EqualValues(t, pos.X, swappedPos.Y)
	require.EqualValues(t, pos.Y, swappedPos.X)
}

func TestSolveCornerCoincidence(t *testing.T) {
	// Neighbor placed diagonally so both axes snap at once: a true corner.
	dragged := rect(195, 195, 100, 100)
	neighbors := []geom.Rect{rect(300, 300, 100, 100)}

	pos, ok := Solve(dragged, neighbors, 10)
	require.True(t, ok)
	require.EqualValues(t, 200, pos.X)
	require.EqualValues(t, 200, pos.Y)
}

func TestSolvePicksClosestCandidate(t *testing.T) {
	dragged := rect(202, 100, 100, 100)
	neighbors := []geom.Rect{
		rect(300, 100, 100, 100), // facing edge 2px away
		rect(100, 100, 95, 100),  // facing edge 7px away
	}

	pos, ok := Solve(dragged, neighbors, 10)
	require.True(t, ok)
	require.EqualValues(t, 200, pos.X)
}
