// Package geom holds the small value types the rest of the daemon is keyed
// on: screen positions, window dimensions, and rectangles built from them.
package geom

// Position is a point in root-window coordinates. X11 window coordinates are
// signed 16-bit, so we mirror that range rather than widen it.
type Position struct {
	X int16
	Y int16
}

// Dimensions is a window's width/height. X11 dimensions are unsigned 16-bit.
type Dimensions struct {
	Width  uint16
	Height uint16
}

// Rect is a position plus dimensions: the rectangle a window or thumbnail
// occupies in root-window coordinates.
type Rect struct {
	Position
	Dimensions
}

// Left, Top, Right, Bottom are the four edges of the rectangle. Right and
// Bottom are exclusive (one past the last covered pixel), matching the
// geometry X11 itself reports.
func (r Rect) Left() int32   { return int32(r.X) }
func (r Rect) Top() int32    { return int32(r.Y) }
func (r Rect) Right() int32  { return int32(r.X) + int32(r.Width) }
func (r Rect) Bottom() int32 { return int32(r.Y) + int32(r.Height) }

// Contains reports whether the point (x, y) falls within the rectangle.
func (r Rect) Contains(x, y int32) bool {
	return x >= r.Left() && x < r.Right() && y >= r.Top() && y < r.Bottom()
}

// WithPosition returns a copy of r moved to the given position.
func (r Rect) WithPosition(p Position) Rect {
	r.Position = p
	return r
}
