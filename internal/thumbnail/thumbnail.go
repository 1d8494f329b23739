// Package thumbnail implements the per-client overlay window: an
// override-redirect, ARGB-visual window that mirrors a source window's
// live pixels via the RENDER extension, then composites a border ring and
// an optional text label over it.
package thumbnail

import (
	"fmt"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/h0lylag/evepreviewd/internal/geom"
	"github.com/h0lylag/evepreviewd/internal/x11"
)

// State is the visual state of a thumbnail: normal (possibly focused),
// minimized, or hidden.
type State int

const (
	StateNormal State = iota
	StateMinimized
	StateHidden
)

// InputState tracks an in-flight drag. SnapTargets is captured once at
// ButtonPress and never mutated until ButtonRelease: snap against where
// neighbors were when the drag started, not where they end up.
type InputState struct {
	Dragging    bool
	DragStart   geom.Position
	WinStart    geom.Position
	SnapTargets []geom.Rect
}

// Thumbnail is one tracked source window's live preview overlay.
type Thumbnail struct {
	disp *x11.Display

	Src     xproto.Window
	Overlay xproto.Window

	CharacterName string
	Position      geom.Position
	Dimensions    geom.Dimensions

	state State

	Input InputState

	srcPicture     render.Picture
	overlayPicture render.Picture
	pendingCommit  bool

	borderColor render.Color
	labelText   string
	label       *LabelBitmap
}

// LabelBitmap is a pre-rendered ARGB text bitmap plus the picture it has
// been uploaded into, produced by internal/fontrender and cached until
// the label text changes.
type LabelBitmap struct {
	Picture render.Picture
	Width   uint16
	Height  uint16
}

// New creates the overlay window and its RENDER pictures for a
// newly-classified source window. pos/dims are the resolved geometry
// (already accounting for saved settings, swap inheritance, or the
// profile default).
func New(disp *x11.Display, src xproto.Window, characterName string, pos geom.Position, dims geom.Dimensions) (*Thumbnail, error) {
	overlay, err := createOverlayWindow(disp, pos, dims)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: create overlay: %w", err)
	}

	overlayPicture, err := render.NewPictureId(disp.XU.Conn())
	if err != nil {
		return nil, fmt.Errorf("thumbnail: new overlay picture id: %w", err)
	}
	if err := render.CreatePictureChecked(disp.XU.Conn(), overlayPicture, xproto.Drawable(overlay), disp.Formats.ARGB, 0, nil).Check(); err != nil {
		return nil, fmt.Errorf("thumbnail: create overlay picture: %w", err)
	}

	srcPicture, err := render.NewPictureId(disp.XU.Conn())
	if err != nil {
		return nil, fmt.Errorf("thumbnail: new source picture id: %w", err)
	}
	if err := render.CreatePictureChecked(disp.XU.Conn(), srcPicture, xproto.Drawable(src), disp.Formats.RGB, 0, nil).Check(); err != nil {
		return nil, fmt.Errorf("thumbnail: create source picture: %w", err)
	}

	return &Thumbnail{
		disp:           disp,
		Src:            src,
		Overlay:        overlay,
		CharacterName:  characterName,
		Position:       pos,
		Dimensions:     dims,
		srcPicture:     srcPicture,
		overlayPicture: overlayPicture,
	}, nil
}

const (
	eventMask = xproto.EventMaskExposure | xproto.EventMaskButtonPress |
		xproto.EventMaskButtonRelease | xproto.EventMaskPointerMotion
)

func createOverlayWindow(disp *x11.Display, pos geom.Position, dims geom.Dimensions) (xproto.Window, error) {
	conn := disp.XU.Conn()
	win, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}

	root := disp.RootWindow()
	screen := disp.XU.Screen()

	visual, err := findARGBVisual(screen)
	if err != nil {
		return 0, err
	}

	cmap, err := xproto.NewColormapId(conn)
	if err != nil {
		return 0, err
	}
	if err := xproto.CreateColormapChecked(conn, xproto.ColormapAllocNone, cmap, root, visual).Check(); err != nil {
		return 0, err
	}

	valueMask := uint32(xproto.CwBackPixel | xproto.CwBorderPixel | xproto.CwOverrideRedirect |
		xproto.CwEventMask | xproto.CwColormap)
	values := []uint32{0, 0, 1, uint32(eventMask), uint32(cmap)}

	err = xproto.CreateWindowChecked(
		conn,
		32, // ARGB visual depth
		win, root,
		pos.X, pos.Y, dims.Width, dims.Height, 0,
		xproto.WindowClassInputOutput,
		visual,
		valueMask, values,
	).Check()
	if err != nil {
		return 0, err
	}

	if err := xproto.MapWindowChecked(conn, win).Check(); err != nil {
		return 0, err
	}
	return win, nil
}

// findARGBVisual locates the screen's 32-bit-depth TrueColor visual, the
// one matching the ARGB picture format cached in internal/x11.
func findARGBVisual(screen *xproto.ScreenInfo) (xproto.Visualid, error) {
	for _, d := range screen.AllowedDepths {
		if d.Depth != 32 {
			continue
		}
		for _, v := range d.Visuals {
			return v.VisualId, nil
		}
	}
	return 0, fmt.Errorf("thumbnail: no 32-bit-depth visual on screen")
}

// Destroy frees the overlay's RENDER pictures and destroys the overlay
// window. Thumbnails own their overlay: drop implies destroy.
func (t *Thumbnail) Destroy() {
	render.FreePicture(t.disp.XU.Conn(), t.srcPicture)
	render.FreePicture(t.disp.XU.Conn(), t.overlayPicture)
	if t.label != nil {
		render.FreePicture(t.disp.XU.Conn(), t.label.Picture)
	}
	xproto.DestroyWindow(t.disp.XU.Conn(), t.Overlay)
}

// Reposition moves the overlay to a new position without resizing.
func (t *Thumbnail) Reposition(pos geom.Position) error {
	t.Position = pos
	mask := uint16(xproto.ConfigWindowX | xproto.ConfigWindowY)
	values := []uint32{uint32(uint16(pos.X)), uint32(uint16(pos.Y))}
	if err := xproto.ConfigureWindowChecked(t.disp.XU.Conn(), t.Overlay, mask, values).Check(); err != nil {
		return fmt.Errorf("thumbnail: reposition: %w", err)
	}
	return nil
}

// Resize changes the overlay's dimensions, e.g. on a manual resize drag.
func (t *Thumbnail) Resize(dims geom.Dimensions) error {
	t.Dimensions = dims
	mask := uint16(xproto.ConfigWindowWidth | xproto.ConfigWindowHeight)
	values := []uint32{uint32(dims.Width), uint32(dims.Height)}
	if err := xproto.ConfigureWindowChecked(t.disp.XU.Conn(), t.Overlay, mask, values).Check(); err != nil {
		return fmt.Errorf("thumbnail: resize: %w", err)
	}
	// The overlay's dimensions changed underneath the mirror transform; the
	// next repaint must recompute it rather than reuse a stale scale.
	t.pendingCommit = true
	return nil
}

// PendingCommit reports whether a repaint is owed before the overlay's
// on-screen contents match its current geometry, e.g. right after Resize.
func (t *Thumbnail) PendingCommit() bool {
	return t.pendingCommit
}

// Focus sets the Normal state and asks the source window to activate,
// forwarding the originating input event's timestamp as EWMH requires.
// Whether this thumbnail's border paints as focused is decided by the
// caller's next Update/Border/Minimized call, not by any state Focus
// itself records — the dispatcher is the only place that knows which
// single window is "the" focused one across a repaint of every tracked
// window.
func (t *Thumbnail) Focus(timestamp xproto.Timestamp) error {
	t.state = StateNormal
	return t.disp.Activate(t.Src, timestamp)
}

// Visibility maps or unmaps the overlay window.
func (t *Thumbnail) Visibility(visible bool) error {
	conn := t.disp.XU.Conn()
	var err error
	if visible {
		t.state = StateNormal
		err = xproto.MapWindowChecked(conn, t.Overlay).Check()
	} else {
		t.state = StateHidden
		err = xproto.UnmapWindowChecked(conn, t.Overlay).Check()
	}
	if err != nil {
		return fmt.Errorf("thumbnail: visibility(%v): %w", visible, err)
	}
	return nil
}

// IsHovered reports whether (x, y), in root coordinates, falls within the
// overlay's current bounds.
func (t *Thumbnail) IsHovered(x, y int32) bool {
	rect := geom.Rect{Position: t.Position, Dimensions: t.Dimensions}
	return rect.Contains(x, y)
}

// SetLabel replaces the cached text-label picture, freeing the previous
// one. Update composites whatever label is cached on every repaint.
func (t *Thumbnail) SetLabel(label *LabelBitmap) {
	if t.label != nil {
		render.FreePicture(t.disp.XU.Conn(), t.label.Picture)
	}
	t.label = label
}

// Update repaints the overlay: scales the mirrored source capture to fit
// the overlay's current dimensions, draws the border using the
// focused/skipped color, and composites the label if set. Every request is
// sent checked, so the overlay is painted before Update returns. While the
// thumbnail is minimized and its source window still carries the hidden
// state, the minimized fill is repainted instead; once the source is no
// longer hidden, the thumbnail returns to the normal state.
// focused/skipped are decided by the caller (the dispatcher owns which
// single tracked window is the focused one and which identities are in
// the hotkey skip-set), never read off internal state here.
func (t *Thumbnail) Update(focused, skipped bool) error {
	if t.state == StateMinimized {
		if hidden, _ := t.disp.IsMinimized(t.Src); hidden {
			return t.paintMinimized(skipped)
		}
		t.state = StateNormal
	}

	conn := t.disp.XU.Conn()

	srcW, srcH, err := t.sourceSize()
	if err != nil {
		return fmt.Errorf("thumbnail: update: %w", err)
	}

	transform := scaleTransform(srcW, srcH, t.Dimensions.Width, t.Dimensions.Height)
	if err := render.SetPictureTransformChecked(conn, t.srcPicture, transform).Check(); err != nil {
		return fmt.Errorf("thumbnail: set transform: %w", err)
	}

	err = render.CompositeChecked(
		conn, render.PictOpSrc,
		t.srcPicture, 0, t.overlayPicture,
		0, 0, 0, 0, 0, 0,
		t.Dimensions.Width, t.Dimensions.Height,
	).Check()
	if err != nil {
		return fmt.Errorf("thumbnail: composite mirror: %w", err)
	}

	if err := t.paintBorder(focused, skipped); err != nil {
		return err
	}

	if t.label != nil {
		offsetX := int16(4)
		offsetY := int16(t.Dimensions.Height) - int16(t.label.Height) - 4
		err = render.CompositeChecked(
			conn, render.PictOpOver,
			t.label.Picture, 0, t.overlayPicture,
			0, 0, 0, 0, offsetX, offsetY,
			t.label.Width, t.label.Height,
		).Check()
		if err != nil {
			return fmt.Errorf("thumbnail: composite label: %w", err)
		}
	}

	// The Checked composite calls above already round-tripped for errors,
	// which is this package's flush point: the overlay is guaranteed
	// painted before Update returns.
	t.pendingCommit = false
	return nil
}

// Border repaints only the border ring, for the focus-change fast path
// where the mirrored capture hasn't changed.
func (t *Thumbnail) Border(focused, skipped bool) error {
	return t.paintBorder(focused, skipped)
}

// borderColorFor implements the three-way derivation: skipped always wins
// (so a user can see skip status even on the focused window), then
// focused, then the default idle color.
func borderColorFor(focused, skipped bool) render.Color {
	switch {
	case skipped:
		return skippedBorderColor
	case focused:
		return focusBorderColor
	default:
		return idleBorderColor
	}
}

func (t *Thumbnail) paintBorder(focused, skipped bool) error {
	const thickness = 2
	color := borderColorFor(focused, skipped)

	w, h := t.Dimensions.Width, t.Dimensions.Height
	rects := []xproto.Rectangle{
		{X: 0, Y: 0, Width: w, Height: thickness},
		{X: 0, Y: int16(h) - thickness, Width: w, Height: thickness},
		{X: 0, Y: 0, Width: thickness, Height: h},
		{X: int16(w) - thickness, Y: 0, Width: thickness, Height: h},
	}
	err := render.FillRectanglesChecked(t.disp.XU.Conn(), render.PictOpOver, t.overlayPicture, color, rects).Check()
	if err != nil {
		return fmt.Errorf("thumbnail: paint border: %w", err)
	}
	return nil
}

var (
	focusBorderColor   = render.Color{Red: 0xffff, Green: 0xcc00, Blue: 0x2200, Alpha: 0xffff}
	idleBorderColor    = render.Color{Red: 0x4444, Green: 0x4444, Blue: 0x4444, Alpha: 0xffff}
	skippedBorderColor = render.Color{Red: 0x6666, Green: 0x1111, Blue: 0x8888, Alpha: 0xffff}
	minimizedFill      = render.Color{Red: 0x1111, Green: 0x1111, Blue: 0x1111, Alpha: 0xffff}
)

// Minimized paints a solid fill and the border in place of the live
// mirror, since the source window has no presentable pixmap while
// iconified. No text is drawn over the fill. A minimized thumbnail is never the one shown as focused (the
// thumbnail getting attention is unminimized by definition), so its border
// only distinguishes skipped vs default.
func (t *Thumbnail) Minimized(skipped bool) error {
	t.state = StateMinimized
	return t.paintMinimized(skipped)
}

func (t *Thumbnail) paintMinimized(skipped bool) error {
	w, h := t.Dimensions.Width, t.Dimensions.Height
	rect := []xproto.Rectangle{{X: 0, Y: 0, Width: w, Height: h}}
	err := render.FillRectanglesChecked(t.disp.XU.Conn(), render.PictOpSrc, t.overlayPicture, minimizedFill, rect).Check()
	if err != nil {
		return fmt.Errorf("thumbnail: paint minimized fill: %w", err)
	}
	return t.paintBorder(false, skipped)
}

func (t *Thumbnail) sourceSize() (uint16, uint16, error) {
	geomReply, err := xproto.GetGeometry(t.disp.XU.Conn(), xproto.Drawable(t.Src)).Reply()
	if err != nil {
		return 0, 0, err
	}
	return geomReply.Width, geomReply.Height, nil
}

// scaleTransform builds the RENDER Transform that scales a srcW x srcH
// picture to fill a dstW x dstH destination, via internal/x11's 16.16
// fixed-point conversion.
func scaleTransform(srcW, srcH, dstW, dstH uint16) render.Transform {
	sx := x11.ToFixed(float64(srcW) / float64(dstW))
	sy := x11.ToFixed(float64(srcH) / float64(dstH))
	one := x11.ToFixed(1)
	zero := x11.ToFixed(0)

	// RENDER transforms map destination space to source space, so
	// scaling *up* the destination requires dividing, not multiplying —
	// sx/sy above are already source-per-destination-pixel ratios.
	return render.Transform{
		Matrix11: render.Fixed(sx), Matrix12: render.Fixed(zero), Matrix13: render.Fixed(zero),
		Matrix21: render.Fixed(zero), Matrix22: render.Fixed(sy), Matrix23: render.Fixed(zero),
		Matrix31: render.Fixed(zero), Matrix32: render.Fixed(zero), Matrix33: render.Fixed(one),
	}
}
