// Package snap implements the drag-to-snap solver: given a dragged rectangle
// and a frozen list of neighbor rectangles, it decides whether either axis of
// the drag should lock onto a neighbor's edge.
//
// The solver is a pure function. It reads nothing but its arguments and
// allocates nothing observable; the dispatcher is responsible for capturing
// the neighbor rects atomically at drag-start (see internal/dispatcher).
package snap

import "github.com/h0lylag/evepreviewd/internal/geom"

// axisResult is the outcome of solving one axis: whether a neighbor edge
// pulled the dragged rectangle's near edge into coincidence, and how close.
type axisResult struct {
	snapped bool
	value   int32 // absolute coordinate the dragged rect's near edge should move to
	dist    int32
}

// Solve returns the snapped position for dragged, given threshold t (in
// pixels) and the neighbors captured at drag-start. ok is false when neither
// axis snapped, in which case the caller should use dragged's own position
// unchanged. The X and Y axes are solved entirely independently, so the
// result may snap only X, only Y, both, or neither (a neither-axis snap on
// both is reported via ok=false, matching the "no candidate within T"
// contract).
//
// Only opposite (facing) edges are considered for a snap: the dragged
// rect's left edge against a neighbor's right edge and vice versa, and
// symmetrically top against bottom for the vertical axis. This is what
// makes two rectangles come to rest flush against each other; it
// deliberately does not pull same-side edges (e.g. two left edges) into
// alignment, since neighbors sharing an axis range is incidental, not a
// drag target.
func Solve(dragged geom.Rect, neighbors []geom.Rect, t int32) (pos geom.Position, ok bool) {
	pos = dragged.Position
	if t <= 0 {
		return pos, false
	}

	var bestX, bestY axisResult
	for _, n := range neighbors {
		if x, snapped := solveAxis(dragged.Left(), dragged.Right(), n.Left(), n.Right(), t); snapped {
			bestX = takeBest(bestX, x)
		}
		if y, snapped := solveAxis(dragged.Top(), dragged.Bottom(), n.Top(), n.Bottom(), t); snapped {
			bestY = takeBest(bestY, y)
		}
	}

	snappedAny := false
	if bestX.snapped {
		pos.X = int16(int32(dragged.X) + (bestX.value - dragged.Left()))
		snappedAny = true
	}
	if bestY.snapped {
		pos.Y = int16(int32(dragged.Y) + (bestY.value - dragged.Top()))
		snappedAny = true
	}
	return pos, snappedAny
}

// solveAxis checks the two facing-edge pairings along one axis: dragged's
// near edge against the neighbor's far edge (dragged approaches from the far
// side) and dragged's far edge against the neighbor's near edge (dragged
// approaches from the near side). It returns the closer of the two,
// expressed as the absolute coordinate the dragged rect's near edge should
// land on to make the facing edges coincide.
func solveAxis(draggedNear, draggedFar, neighborNear, neighborFar, t int32) (axisResult, bool) {
	best := axisResult{}
	found := false
	span := draggedFar - draggedNear

	consider := func(draggedEdge, neighborEdge int32, nearTarget int32) {
		dist := draggedEdge - neighborEdge
		if dist < 0 {
			dist = -dist
		}
		if dist > t {
			return
		}
		if !found || dist < best.dist {
			best = axisResult{snapped: true, value: nearTarget, dist: dist}
			found = true
		}
	}

	// Dragged's near edge meets the neighbor's far edge: near edge lands on neighborFar.
	consider(draggedNear, neighborFar, neighborFar)
	// Dragged's far edge meets the neighbor's near edge: near edge lands just before it.
	consider(draggedFar, neighborNear, neighborNear-span)

	return best, found
}

func takeBest(cur, candidate axisResult) axisResult {
	if !cur.snapped || candidate.dist < cur.dist {
		return candidate
	}
	return cur
}
