// Package x11 wraps the BurntSushi/xgbutil connection and the raw
// BurntSushi/xgb RENDER extension with the atom cache, picture-format cache,
// and window queries/commands the daemon needs. internal/thumbnail and
// internal/dispatcher also import xgb's protocol packages for window
// handles, events and RENDER requests; the remaining packages use plain Go
// types only.
package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// Display holds the connection and the state cached once at startup:
// interned atoms and RENDER picture formats. Re-querying either on every
// event would mean a round trip per property read, which is the one thing
// the dispatcher loop cannot afford.
type Display struct {
	XU *xgbutil.XUtil

	Atoms   Atoms
	Formats Formats
}

// Atoms are the X atoms the daemon reads or writes, interned once at
// startup. Field names mirror their X11 atom names.
type Atoms struct {
	WMName                 xproto.Atom
	WMClass                xproto.Atom
	WMState                xproto.Atom
	WMChangeState          xproto.Atom
	NetWMPid               xproto.Atom
	NetWMState             xproto.Atom
	NetWMStateHidden       xproto.Atom
	NetWMStateAbove        xproto.Atom
	NetActiveWindow        xproto.Atom
	NetClientList          xproto.Atom
	NetWMWindowOpacity     xproto.Atom
}

// Formats are the RGB and ARGB RENDER picture formats used to composite
// thumbnails, resolved once from the RENDER extension's format list.
type Formats struct {
	RGB  render.Pictformat
	ARGB render.Pictformat
}

// atomNames lists every atom Atoms needs, in field-assignment order.
var atomNames = []string{
	"WM_NAME",
	"WM_CLASS",
	"WM_STATE",
	"WM_CHANGE_STATE",
	"_NET_WM_PID",
	"_NET_WM_STATE",
	"_NET_WM_STATE_HIDDEN",
	"_NET_WM_STATE_ABOVE",
	"_NET_ACTIVE_WINDOW",
	"_NET_CLIENT_LIST",
	"_NET_WM_WINDOW_OPACITY",
}

// Open connects to the X display named by $DISPLAY, interns every atom the
// daemon uses, and resolves the RGB/ARGB RENDER picture formats for the
// default screen's root visual depth.
func Open() (*Display, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("x11: connect: %w", err)
	}

	atoms, err := internAtoms(xu)
	if err != nil {
		xu.Conn().Close()
		return nil, err
	}

	formats, err := queryFormats(xu, xu.Screen().RootDepth)
	if err != nil {
		xu.Conn().Close()
		return nil, err
	}

	return &Display{XU: xu, Atoms: atoms, Formats: formats}, nil
}

// Close releases the underlying connection.
func (d *Display) Close() {
	d.XU.Conn().Close()
}

func internAtoms(xu *xgbutil.XUtil) (Atoms, error) {
	resolved := make(map[string]xproto.Atom, len(atomNames))
	for _, name := range atomNames {
		reply, err := xproto.InternAtom(xu.Conn(), false, uint16(len(name)), name).Reply()
		if err != nil {
			return Atoms{}, fmt.Errorf("x11: intern atom %s: %w", name, err)
		}
		resolved[name] = reply.Atom
	}
	return Atoms{
		WMName:             resolved["WM_NAME"],
		WMClass:            resolved["WM_CLASS"],
		WMState:            resolved["WM_STATE"],
		WMChangeState:      resolved["WM_CHANGE_STATE"],
		NetWMPid:           resolved["_NET_WM_PID"],
		NetWMState:         resolved["_NET_WM_STATE"],
		NetWMStateHidden:   resolved["_NET_WM_STATE_HIDDEN"],
		NetWMStateAbove:    resolved["_NET_WM_STATE_ABOVE"],
		NetActiveWindow:    resolved["_NET_ACTIVE_WINDOW"],
		NetClientList:      resolved["_NET_CLIENT_LIST"],
		NetWMWindowOpacity: resolved["_NET_WM_WINDOW_OPACITY"],
	}, nil
}

// argbDepth is the visual depth RGBA compositing requires; X11 servers
// advertise it as a second, alpha-carrying RENDER format alongside the
// screen's native (usually depth-24) RGB format.
const argbDepth = 32

func queryFormats(xu *xgbutil.XUtil, rootDepth byte) (Formats, error) {
	reply, err := render.QueryPictFormats(xu.Conn()).Reply()
	if err != nil {
		return Formats{}, fmt.Errorf("x11: query pict formats: %w", err)
	}

	var rgb, argb render.Pictformat
	var haveRGB, haveARGB bool
	for _, f := range reply.Formats {
		if f.Depth == rootDepth && f.Direct.AlphaMask == 0 && !haveRGB {
			rgb = f.Id
			haveRGB = true
		}
		if f.Depth == argbDepth && f.Direct.AlphaMask != 0 && !haveARGB {
			argb = f.Id
			haveARGB = true
		}
	}
	if !haveRGB {
		return Formats{}, fmt.Errorf("x11: no RGB picture format for depth %d", rootDepth)
	}
	if !haveARGB {
		return Formats{}, fmt.Errorf("x11: no ARGB picture format for depth %d", argbDepth)
	}
	return Formats{RGB: rgb, ARGB: argb}, nil
}

// RootWindow returns the default screen's root window.
func (d *Display) RootWindow() xproto.Window {
	return xproto.Window(d.XU.RootWin())
}

// ScreenSize returns the default screen's pixel dimensions, used to scale
// default thumbnail sizes proportionally across different monitors.
func (d *Display) ScreenSize() (width, height uint16) {
	screen := d.XU.Screen()
	return screen.WidthInPixels, screen.HeightInPixels
}
