package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// ErrWindowGone is returned (wrapped) by any query that fails because the
// window was destroyed between being listed and being queried. Every
// caller that walks a window list must tolerate this on each individual
// lookup without aborting the walk.
var ErrWindowGone = errors.New("x11: window no longer exists")

// wrapIfGone turns an X11 BadWindow or BadDrawable protocol error into
// ErrWindowGone so callers can use errors.Is instead of matching on xgb's
// concrete error types.
func wrapIfGone(err error) error {
	if err == nil {
		return nil
	}
	var badWindow xproto.BadWindowError
	if errors.As(err, &badWindow) {
		return ErrWindowGone
	}
	var badDrawable xproto.BadDrawableError
	if errors.As(err, &badDrawable) {
		return ErrWindowGone
	}
	return err
}

// WindowClass returns a window's WM_CLASS class string, e.g.
// "exefile.exe". EVE's class is stable across logged-in and logged-out
// states, so this alone never distinguishes character identity.
func (d *Display) WindowClass(win xproto.Window) (string, error) {
	class, err := icccm.WmClassGet(d.XU, win)
	if err != nil {
		return "", wrapIfGone(err)
	}
	return class.Class, nil
}

// WindowTitle returns a window's WM_NAME/_NET_WM_NAME, or ok=false if the
// window no longer exists. Unlike the other queries this does not return
// an error for a missing window: title reads happen on a hot path (every
// PropertyNotify) where "window gone" is routine, not exceptional.
func (d *Display) WindowTitle(win xproto.Window) (title string, ok bool) {
	name, err := ewmh.WmNameGet(d.XU, win)
	if err != nil || name == "" {
		name, err = icccm.WmNameGet(d.XU, win)
		if err != nil {
			return "", false
		}
	}
	return name, true
}

// WindowPID returns the PID behind a window via _NET_WM_PID, and ok=false
// if the window manager never set that property (common inside certain
// Steam Linux Runtime containers, where the classifier falls back to the
// class-only gate).
func (d *Display) WindowPID(win xproto.Window) (pid uint32, ok bool) {
	p, err := ewmh.WmPidGet(d.XU, win)
	if err != nil {
		return 0, false
	}
	return uint32(p), true
}

// ClientList returns every top-level window the window manager tracks, via
// _NET_CLIENT_LIST on the root window.
func (d *Display) ClientList() ([]xproto.Window, error) {
	wins, err := ewmh.ClientListGet(d.XU)
	if err != nil {
		return nil, fmt.Errorf("x11: client list: %w", err)
	}
	return wins, nil
}

// IsMinimized reports whether a window currently carries
// _NET_WM_STATE_HIDDEN.
func (d *Display) IsMinimized(win xproto.Window) (bool, error) {
	states, err := ewmh.WmStateGet(d.XU, win)
	if err != nil {
		return false, wrapIfGone(err)
	}
	for _, s := range states {
		if s == "_NET_WM_STATE_HIDDEN" {
			return true, nil
		}
	}
	return false, nil
}

// ActiveWindow returns the window manager's current _NET_ACTIVE_WINDOW, or
// ok=false if none is set (e.g. focus is on the root window).
func (d *Display) ActiveWindow() (win xproto.Window, ok bool) {
	w, err := ewmh.ActiveWindowGet(d.XU)
	if err != nil || w == 0 {
		return 0, false
	}
	return w, true
}

// Geometry returns a window's position and size relative to the root.
func (d *Display) Geometry(win xproto.Window) (x, y int16, w, h uint16, err error) {
	geom, err := xproto.GetGeometry(d.XU.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, 0, 0, 0, wrapIfGone(err)
	}
	// GetGeometry reports coordinates relative to the window's parent, not
	// the root; translate through the root to match every other query's
	// frame of reference.
	translated, err := xproto.TranslateCoordinates(d.XU.Conn(), win, d.RootWindow(), 0, 0).Reply()
	if err != nil {
		return 0, 0, 0, 0, wrapIfGone(err)
	}
	return translated.DstX, translated.DstY, geom.Width, geom.Height, nil
}
