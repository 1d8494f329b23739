package x11

import (
	"errors"

	"github.com/BurntSushi/xgb/xproto"
)

// RootEventMask is selected on the root window once at startup so the
// dispatcher learns about every top-level window's lifecycle.
const RootEventMask = xproto.EventMaskSubstructureNotify | xproto.EventMaskPropertyChange

// TrackedWindowEventMask is selected on a source window once it has been
// classified as tracked: property changes catch title/class/state changes
// after the fact, and focus changes drive the auto-hide hysteresis.
const TrackedWindowEventMask = xproto.EventMaskPropertyChange | xproto.EventMaskFocusChange

// WatchRoot arms RootEventMask on the root window.
func (d *Display) WatchRoot() error {
	return d.selectInput(d.RootWindow(), RootEventMask)
}

// WatchWindow arms TrackedWindowEventMask on win, called once a window has
// been confirmed as a tracked client.
func (d *Display) WatchWindow(win xproto.Window) error {
	return d.selectInput(win, TrackedWindowEventMask)
}

func (d *Display) selectInput(win xproto.Window, mask uint32) error {
	err := xproto.ChangeWindowAttributesChecked(d.XU.Conn(), win, xproto.CwEventMask, []uint32{mask}).Check()
	if err != nil {
		return wrapIfGone(err)
	}
	return nil
}

// Pump blocks reading events off the connection and forwards each one to
// out, translating every concrete xgb event type dispatcher.handleXEvent
// understands. It returns an error when the connection is closed (display
// server gone), and nil once stop has been closed (checked before each
// wait for the next event).
func (d *Display) Pump(out chan<- any, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		ev, err := d.XU.Conn().WaitForEvent()
		if ev == nil && err == nil {
			return errors.New("x11: connection closed")
		}
		if err != nil {
			// An X protocol error reply to an unchecked request (e.g. one
			// aimed at a window that has since gone), not a lost connection.
			continue
		}
		switch e := ev.(type) {
		case xproto.CreateNotifyEvent:
			send(out, stop, e)
		case xproto.MapNotifyEvent:
			send(out, stop, e)
		case xproto.DestroyNotifyEvent:
			send(out, stop, e)
		case xproto.UnmapNotifyEvent:
			send(out, stop, e)
		case xproto.PropertyNotifyEvent:
			send(out, stop, e)
		case xproto.ConfigureNotifyEvent:
			send(out, stop, e)
		case xproto.ExposeEvent:
			send(out, stop, e)
		case xproto.ButtonPressEvent:
			send(out, stop, e)
		case xproto.MotionNotifyEvent:
			send(out, stop, e)
		case xproto.ButtonReleaseEvent:
			send(out, stop, e)
		case xproto.FocusInEvent:
			send(out, stop, e)
		case xproto.FocusOutEvent:
			send(out, stop, e)
		}
	}
}

func send(out chan<- any, stop <-chan struct{}, ev any) {
	select {
	case out <- ev:
	case <-stop:
	}
}
