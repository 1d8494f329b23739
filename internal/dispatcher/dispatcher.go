// Package dispatcher implements the daemon's single cooperative event
// loop: one goroutine owns every piece of mutable state (known windows,
// thumbnails, session state) and is the only reader of three channels fed
// by dedicated pump goroutines — display-server events, IPC messages, and
// hotkey commands. This is the idiomatic-Go substitute for the original's
// single-threaded poll() loop: no lock is needed inside Run because
// nothing outside it ever touches that state; the pumps only ever send.
package dispatcher

import (
	"errors"
	"log"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/h0lylag/evepreviewd/internal/classify"
	"github.com/h0lylag/evepreviewd/internal/config"
	"github.com/h0lylag/evepreviewd/internal/geom"
	"github.com/h0lylag/evepreviewd/internal/hotkey"
	"github.com/h0lylag/evepreviewd/internal/ipc"
	"github.com/h0lylag/evepreviewd/internal/session"
	"github.com/h0lylag/evepreviewd/internal/snap"
	"github.com/h0lylag/evepreviewd/internal/thumbnail"
	"github.com/h0lylag/evepreviewd/internal/x11"
)

// trackedWindow bundles a Thumbnail with the classifier kind that
// produced it, so ButtonRelease's save step knows whether to persist into
// character_thumbnails or custom_source_thumbnails.
type trackedWindow struct {
	thumb *thumbnail.Thumbnail
	kind  classify.Kind
	alias string // set when kind == KindCustomSource
}

// Dispatcher holds every piece of state the core owns, reached only from
// Run's goroutine.
type Dispatcher struct {
	disp      *x11.Display
	classifier *classify.Classifier
	session   *session.State
	cfg       *config.DaemonConfig
	outbound  chan<- ipc.Outbound

	windows map[xproto.Window]*trackedWindow

	allHidden bool
}

// New builds a Dispatcher ready to Run. cfg is the initial configuration
// snapshot; the IPC listener delivers replacements via ReloadConfig.
// outbound receives notifications (PositionChanged, status) for whichever
// GUI connection is currently live; it may be nil, in which case
// notifications are silently dropped.
func New(disp *x11.Display, cfg *config.DaemonConfig, selfPID uint32, outbound chan<- ipc.Outbound) *Dispatcher {
	rules := make([]classify.Rule, 0, len(cfg.Profile.CustomWindows))
	for _, r := range cfg.Profile.CustomWindows {
		rules = append(rules, classify.Rule{
			Alias:               r.Alias,
			ClassPattern:        r.ClassPattern,
			TitlePattern:        r.TitlePattern,
			LimitSingleInstance: r.LimitSingleInstance,
		})
	}

	return &Dispatcher{
		disp:       disp,
		classifier: classify.New(selfPID, rules),
		session:    session.New(),
		cfg:        cfg,
		outbound:   outbound,
		windows:    make(map[xproto.Window]*trackedWindow),
	}
}

// emitOutbound sends a notification without blocking the dispatcher loop:
// a GUI that isn't currently connected (or isn't draining fast enough)
// just misses it, rather than stalling every other tracked window.
func (d *Dispatcher) emitOutbound(msg ipc.Outbound) {
	if d.outbound == nil {
		return
	}
	select {
	case d.outbound <- msg:
	default:
	}
}

// Run enters the cooperative loop. It blocks until ctx-equivalent
// shutdown (an IPC Shutdown message) or a fatal connection error.
func (d *Dispatcher) Run(xEvents <-chan any, inbound <-chan ipc.Inbound, hotkeys hotkey.Channel) error {
	if err := d.initialScan(); err != nil {
		log.Printf("dispatcher: initial scan: %v\n", err)
	}

	for {
		// (1) elapsed deadlines first.
		if d.session.DeadlineElapsed(time.Now()) {
			d.hideAllThumbnails()
		}

		timer := d.idleTimer()

		select {
		case msg, ok := <-inbound:
			timer.Stop()
			if !ok {
				continue
			}
			if d.handleInbound(msg) {
				return nil // Shutdown requested
			}

		case cmd, ok := <-hotkeys:
			timer.Stop()
			if !ok {
				continue
			}
			d.handleHotkey(cmd)

		case ev, ok := <-xEvents:
			timer.Stop()
			if !ok {
				return errors.New("dispatcher: display-server event stream closed")
			}
			d.handleXEvent(ev)
			d.drainXEvents(xEvents)

		case <-timer.C:
		}
	}
}

// idleTimer bounds the select's wait by the nearest deadline (currently
// only the auto-hide deadline), so a pending deadline is never missed by
// more than its own grace period even with no other activity.
func (d *Dispatcher) idleTimer() *time.Timer {
	if deadline, ok := d.session.AutoHideDeadline(); ok {
		if wait := time.Until(deadline); wait > 0 {
			return time.NewTimer(wait)
		}
		return time.NewTimer(0)
	}
	return time.NewTimer(250 * time.Millisecond)
}

// drainXEvents services every already-queued display-server event before
// the next loop iteration. IPC and hotkeys still get serviced between
// drains of a burst because this only drains what's already buffered on
// the channel.
func (d *Dispatcher) drainXEvents(xEvents <-chan any) {
	for {
		select {
		case ev, ok := <-xEvents:
			if !ok {
				return
			}
			d.handleXEvent(ev)
		default:
			return
		}
	}
}

// hideAllThumbnails implements the auto-hide deadline: every tracked
// thumbnail is hidden except identities whose settings set
// OverrideRenderPreview, which stay visible regardless of focus.
func (d *Dispatcher) hideAllThumbnails() {
	for _, w := range d.windows {
		settings, _ := d.lookupSettings(classify.Result{Kind: w.kind, CharacterName: w.thumb.CharacterName, Alias: w.alias})
		if settings.OverrideRenderPreview != nil && *settings.OverrideRenderPreview {
			continue
		}
		if err := w.thumb.Visibility(false); err != nil {
			log.Printf("dispatcher: auto-hide: %v\n", err)
		}
	}
}

// initialScan walks _NET_CLIENT_LIST once at startup, classifying every
// existing top-level window, mirroring scan_eve_windows.
func (d *Dispatcher) initialScan() error {
	wins, err := d.disp.ClientList()
	if err != nil {
		return err
	}
	for _, w := range wins {
		d.considerWindow(w)
	}
	return nil
}

// considerWindow runs the classifier against w and, if accepted and not
// already tracked, creates its thumbnail.
func (d *Dispatcher) considerWindow(w xproto.Window) {
	if _, tracked := d.windows[w]; tracked {
		return
	}

	class, err := d.disp.WindowClass(w)
	if err != nil {
		return
	}
	pid, hasPID := d.disp.WindowPID(w)

	result := d.classifier.Classify(classify.WindowProps{
		Class:  class,
		PID:    pid,
		HasPID: hasPID,
		Title:  func() (string, bool) { return d.disp.WindowTitle(w) },
	})
	if !result.Tracked() {
		return
	}

	identity := result.Identity()
	d.session.RecordIdentity(session.WindowID(w), identity)

	settings, hasSettings := d.lookupSettings(result)
	pos, dims := d.resolveGeometry(session.WindowID(w), identity, settings, hasSettings)

	thumb, err := thumbnail.New(d.disp, w, identity, pos, dims)
	if err != nil {
		log.Printf("dispatcher: create thumbnail for %s: %v\n", identity, err)
		return
	}
	if err := d.disp.WatchWindow(w); err != nil {
		log.Printf("dispatcher: watch window for %s: %v\n", identity, err)
	}
	d.windows[w] = &trackedWindow{thumb: thumb, kind: result.Kind, alias: result.Alias}

	focused, skipped := d.focusState(identity)
	if minimized, _ := d.disp.IsMinimized(w); minimized {
		_ = thumb.Minimized(skipped)
	} else {
		_ = thumb.Update(focused, skipped)
	}
}

// focusState reports the two booleans every Thumbnail paint call needs:
// whether identity is the single currently-focused one, and whether it's
// in the hotkey-cycle skip set.
func (d *Dispatcher) focusState(identity string) (focused, skipped bool) {
	return identity == d.session.Current(), d.cfg.Profile.IsSkipped(identity)
}

func (d *Dispatcher) lookupSettings(r classify.Result) (config.CharacterSettings, bool) {
	switch r.Kind {
	case classify.KindCustomSource:
		s, ok := d.cfg.Profile.CustomSourceThumbnails[r.Alias]
		return s, ok
	default:
		s, ok := d.cfg.Profile.CharacterThumbnails[r.CharacterName]
		return s, ok
	}
}

func (d *Dispatcher) resolveGeometry(w session.WindowID, identity string, settings config.CharacterSettings, hasSettings bool) (geom.Position, geom.Dimensions) {
	screenW, screenH := d.disp.ScreenSize()
	dims := d.cfg.Profile.DefaultThumbnailSize(geom.Dimensions{Width: screenW, Height: screenH})

	if hasSettings && settings.HasOwnGeometry() {
		d.session.RecordSavedPosition(identity, settings.Position)
		return settings.Position, settings.Dimensions
	}

	if pos, ok := d.session.InheritPosition(w, identity, hasSettings, d.cfg.ThumbnailPreservePositionOnSwap); ok {
		return pos, dims
	}

	return geom.Position{}, dims
}

// removeWindow drops tracking for w, destroying its thumbnail and
// clearing the cycle anchor if it pointed at w's identity.
func (d *Dispatcher) removeWindow(w xproto.Window) {
	tw, ok := d.windows[w]
	if !ok {
		return
	}
	identity, _ := d.session.LastIdentity(session.WindowID(w))
	d.session.ClearCurrentIfMatches(identity)
	d.session.ForgetWindow(session.WindowID(w))
	if tw.kind == classify.KindCustomSource {
		d.classifier.Forget(tw.alias)
	}
	tw.thumb.Destroy()
	delete(d.windows, w)
}

func (d *Dispatcher) handleInbound(msg ipc.Inbound) (shutdown bool) {
	switch msg.Kind {
	case ipc.InboundReloadConfig:
		if msg.Config != nil {
			d.cfg = msg.Config
		}
	case ipc.InboundSetCharacterSetting:
		if msg.Character != nil {
			d.cfg.Profile.CharacterThumbnails[msg.Identity] = *msg.Character
		}
	case ipc.InboundSetSkipped:
		d.setSkipped(msg.Identity, msg.Skipped)
	case ipc.InboundToggleVisibility:
		d.toggleAllVisibility()
	case ipc.InboundSaveNow:
		// Persistence is owned by the external config layer; the core
		// has nothing further to do locally.
	case ipc.InboundShutdown:
		return true
	}
	return false
}

func (d *Dispatcher) toggleAllVisibility() {
	d.allHidden = !d.allHidden
	for _, w := range d.windows {
		if err := w.thumb.Visibility(!d.allHidden); err != nil {
			log.Printf("dispatcher: toggle visibility: %v\n", err)
		}
	}
}

func (d *Dispatcher) handleHotkey(cmd hotkey.Command) {
	switch cmd.Kind {
	case hotkey.KindForward, hotkey.KindBackward:
		forward := cmd.Kind == hotkey.KindForward
		group := d.cfg.Profile.HotkeyCycleGroup
		identity, ok := d.session.Cycle(group, forward, d.isSkipped)
		if !ok {
			return
		}
		d.activateIdentity(identity, xproto.Timestamp(cmd.Timestamp))
	case hotkey.KindCharacter, hotkey.KindProfile:
		d.activateIdentity(cmd.Binding, xproto.Timestamp(cmd.Timestamp))
	case hotkey.KindToggleSkip:
		d.toggleSkipped(cmd.Binding)
	}
}

func (d *Dispatcher) isSkipped(identity string) bool {
	return d.cfg.Profile.IsSkipped(identity)
}

// setSkipped mutates the skip set and repaints identity's border if it's
// currently tracked, so the skipped-border color takes effect immediately
// rather than waiting for the next unrelated repaint.
func (d *Dispatcher) setSkipped(identity string, skipped bool) {
	if d.cfg.Profile.SkippedIdentities == nil {
		d.cfg.Profile.SkippedIdentities = make(map[string]bool)
	}
	if skipped {
		d.cfg.Profile.SkippedIdentities[identity] = true
	} else {
		delete(d.cfg.Profile.SkippedIdentities, identity)
	}
	d.repaintIdentityBorder(identity)
}

func (d *Dispatcher) toggleSkipped(identity string) {
	d.setSkipped(identity, !d.cfg.Profile.IsSkipped(identity))
}

// repaintIdentityBorder repaints a single tracked window's border/label
// using its current focus and skip state, without touching any other
// window the way repaintAllBorders does.
func (d *Dispatcher) repaintIdentityBorder(identity string) {
	for w, tw := range d.windows {
		if tw.thumb.CharacterName != identity {
			continue
		}
		focused, skipped := d.focusState(identity)
		var err error
		if isMinimized, _ := d.disp.IsMinimized(w); isMinimized {
			err = tw.thumb.Minimized(skipped)
		} else {
			err = tw.thumb.Border(focused, skipped)
		}
		if err != nil {
			log.Printf("dispatcher: repaint border for %s: %v\n", identity, err)
		}
		return
	}
}

func (d *Dispatcher) activateIdentity(identity string, ts xproto.Timestamp) {
	for w, tw := range d.windows {
		if tw.thumb.CharacterName == identity {
			if err := tw.thumb.Focus(ts); err != nil {
				log.Printf("dispatcher: activate %s: %v\n", identity, err)
			}
			d.session.SetCurrentByWindow(session.WindowID(w))
			d.repaintAllBorders(w)
			return
		}
	}
}

// repaintAllBorders repaints every tracked window's border, computing
// focused/skipped fresh per window rather than trusting any state a
// thumbnail might have cached from an earlier call: focusedWin is the one
// and only window that paints as focused, everyone else paints unfocused,
// and skip status always comes from the live skip set.
func (d *Dispatcher) repaintAllBorders(focusedWin xproto.Window) {
	for w, tw := range d.windows {
		focused := w == focusedWin
		skipped := d.cfg.Profile.IsSkipped(tw.thumb.CharacterName)

		var err error
		if isMinimized, _ := d.disp.IsMinimized(w); isMinimized {
			err = tw.thumb.Minimized(skipped)
		} else {
			err = tw.thumb.Border(focused, skipped)
		}
		if err != nil {
			log.Printf("dispatcher: repaint border for %s: %v\n", tw.thumb.CharacterName, err)
		}
	}

	if d.cfg.ClientMinimizeOnSwitch {
		d.minimizeOthersExcept(focusedWin)
	}
}

// minimizeOthersExcept implements minimize-on-switch: every other tracked
// window not exempt from minimize is minimized, with its overlay border
// cleared first so a stale border can never survive the unmap.
func (d *Dispatcher) minimizeOthersExcept(keep xproto.Window) {
	for w, tw := range d.windows {
		if w == keep {
			continue
		}
		settings, _ := d.lookupSettings(classify.Result{Kind: tw.kind, CharacterName: tw.thumb.CharacterName, Alias: tw.alias})
		if settings.ExemptFromMinimize {
			continue
		}
		skipped := d.cfg.Profile.IsSkipped(tw.thumb.CharacterName)
		if err := tw.thumb.Border(false, skipped); err != nil {
			log.Printf("dispatcher: clear border before minimize: %v\n", err)
		}
		if err := d.disp.Minimize(w); err != nil {
			log.Printf("dispatcher: minimize %s: %v\n", tw.thumb.CharacterName, err)
		}
	}
}

// snapNeighbors returns the thumbnail geometries of every other tracked
// window (exclude is the dragged source window), frozen at drag-start per
// the ordering guarantee that snap_targets must not change mid-drag.
// Hidden thumbnails are included; visibility is not checked.
func (d *Dispatcher) snapNeighbors(exclude xproto.Window) []geom.Rect {
	rects := make([]geom.Rect, 0, len(d.windows))
	for w, tw := range d.windows {
		if w == exclude {
			continue
		}
		rects = append(rects, geom.Rect{Position: tw.thumb.Position, Dimensions: tw.thumb.Dimensions})
	}
	return rects
}

// solveSnap runs the shared solver with the configured threshold.
func (d *Dispatcher) solveSnap(dragged geom.Rect, neighbors []geom.Rect) (geom.Position, bool) {
	return snap.Solve(dragged, neighbors, d.cfg.ThumbnailSnapThreshold)
}

// handleXEvent routes one raw display-server event to its handler. ev is
// whatever conn.WaitForEvent returned, boxed by the X11 pump goroutine
// feeding Run's channel.
func (d *Dispatcher) handleXEvent(ev any) {
	switch e := ev.(type) {
	case xproto.CreateNotifyEvent:
		d.considerWindow(e.Window)
	case xproto.MapNotifyEvent:
		d.considerWindow(e.Window)
	case xproto.DestroyNotifyEvent:
		d.removeWindow(e.Window)
	case xproto.UnmapNotifyEvent:
		d.removeWindow(e.Window)
	case xproto.PropertyNotifyEvent:
		d.handlePropertyNotify(e)
	case xproto.ConfigureNotifyEvent:
		if tw, ok := d.windows[e.Window]; ok {
			_ = tw.thumb.Update(d.focusState(tw.thumb.CharacterName))
		}
	case xproto.ExposeEvent:
		if tw, ok := d.overlayOwner(e.Window); ok {
			_ = tw.thumb.Update(d.focusState(tw.thumb.CharacterName))
		}
	case xproto.ButtonPressEvent:
		d.handleButtonPress(e)
	case xproto.MotionNotifyEvent:
		d.handleMotion(e)
	case xproto.ButtonReleaseEvent:
		d.handleButtonRelease(e)
	case xproto.FocusInEvent:
		d.handleFocusIn(e)
	case xproto.FocusOutEvent:
		d.handleFocusOut(e)
	}
}

// overlayOwner finds the tracked window whose overlay handle is win, used
// by events (Expose, ButtonPress, MotionNotify) that arrive addressed to
// the overlay rather than the source window.
func (d *Dispatcher) overlayOwner(win xproto.Window) (*trackedWindow, bool) {
	for _, tw := range d.windows {
		if tw.thumb.Overlay == win {
			return tw, true
		}
	}
	return nil, false
}

func (d *Dispatcher) handlePropertyNotify(e xproto.PropertyNotifyEvent) {
	tw, tracked := d.windows[e.Window]
	switch e.Atom {
	case d.disp.Atoms.NetWMState:
		if !tracked {
			return
		}
		focused, skipped := d.focusState(tw.thumb.CharacterName)
		if hidden, _ := d.disp.IsMinimized(e.Window); hidden {
			_ = tw.thumb.Minimized(skipped)
		} else {
			_ = tw.thumb.Update(focused, skipped)
		}
	case d.disp.Atoms.WMName, d.disp.Atoms.WMClass:
		// Identity may have changed (character swap); drop and
		// reclassify rather than try to patch the existing thumbnail.
		if tracked {
			d.removeWindow(e.Window)
		}
		d.considerWindow(e.Window)
	}
}

func (d *Dispatcher) handleButtonPress(e xproto.ButtonPressEvent) {
	tw, ok := d.overlayOwner(e.Event)
	if !ok {
		return
	}
	tw.thumb.Input.DragStart = geom.Position{X: e.RootX, Y: e.RootY}
	tw.thumb.Input.WinStart = tw.thumb.Position

	const buttonLeft = 1
	const buttonRight = 3
	switch e.Detail {
	case buttonRight:
		tw.thumb.Input.SnapTargets = d.snapNeighbors(tw.thumb.Src)
		tw.thumb.Input.Dragging = true
	case buttonLeft:
		d.session.SetCurrent(tw.thumb.CharacterName)
	}
}

func (d *Dispatcher) handleMotion(e xproto.MotionNotifyEvent) {
	tw, ok := d.overlayOwner(e.Event)
	if !ok || !tw.thumb.Input.Dragging {
		return
	}

	delta := geom.Position{
		X: e.RootX - tw.thumb.Input.DragStart.X,
		Y: e.RootY - tw.thumb.Input.DragStart.Y,
	}
	candidate := geom.Position{
		X: tw.thumb.Input.WinStart.X + delta.X,
		Y: tw.thumb.Input.WinStart.Y + delta.Y,
	}

	dragged := geom.Rect{Position: candidate, Dimensions: tw.thumb.Dimensions}
	if pos, snapped := d.solveSnap(dragged, tw.thumb.Input.SnapTargets); snapped {
		candidate = pos
	}

	if err := tw.thumb.Reposition(candidate); err != nil {
		log.Printf("dispatcher: reposition during drag: %v\n", err)
	}
}

func (d *Dispatcher) handleButtonRelease(e xproto.ButtonReleaseEvent) {
	tw, ok := d.overlayOwner(e.Event)
	if !ok {
		return
	}

	const buttonLeft = 1
	switch {
	case e.Detail == buttonLeft:
		if err := tw.thumb.Focus(e.Time); err != nil {
			log.Printf("dispatcher: activate on release: %v\n", err)
		}
		d.session.SetCurrent(tw.thumb.CharacterName)
		d.repaintAllBorders(tw.thumb.Src)

	case tw.thumb.Input.Dragging:
		tw.thumb.Input.Dragging = false
		tw.thumb.Input.SnapTargets = nil

		identity := tw.thumb.CharacterName
		d.session.RecordSavedPosition(identity, tw.thumb.Position)

		settings := config.CharacterSettings{Position: tw.thumb.Position, Dimensions: tw.thumb.Dimensions}
		isCustom := tw.kind == classify.KindCustomSource
		if isCustom {
			d.cfg.Profile.CustomSourceThumbnails[tw.alias] = settings
		} else {
			d.cfg.Profile.CharacterThumbnails[identity] = settings
		}

		d.emitOutbound(ipc.Outbound{
			Kind:     ipc.OutboundPositionChanged,
			Identity: identity,
			Position: &settings,
			IsCustom: isCustom,
		})
	}
}

// handleFocusIn handles a real focus transition onto a tracked window,
// e.g. an alt-tab back to it that never went through the thumbnail click
// path. Ungrab-mode notifications are the tail end of a keyboard/pointer
// grab releasing (the window manager's own alt-tab grab, or one of this
// daemon's own grabs during a drag) rather than an actual focus change, so
// they're not a real transition and must be ignored.
func (d *Dispatcher) handleFocusIn(e xproto.FocusInEvent) {
	if e.Mode == xproto.NotifyModeUngrab {
		return
	}
	if _, ok := d.windows[e.Event]; !ok {
		return
	}
	d.session.CancelAutoHide()
	d.session.SetCurrentByWindow(session.WindowID(e.Event))
	if d.cfg.ThumbnailHideNotFocused {
		for _, w := range d.windows {
			_ = w.thumb.Visibility(true)
		}
	}
	d.repaintAllBorders(e.Event)
}

// handleFocusOut mirrors handleFocusIn's grab filtering: grab-mode
// notifications precede a grab taking over focus, not a real loss of
// focus, so they're ignored rather than starting the auto-hide deadline.
func (d *Dispatcher) handleFocusOut(e xproto.FocusOutEvent) {
	if e.Mode == xproto.NotifyModeGrab {
		return
	}
	tw, ok := d.windows[e.Event]
	if !ok {
		return
	}
	if d.cfg.ThumbnailHideNotFocused && d.session.Current() == tw.thumb.CharacterName {
		d.session.ScheduleAutoHide(time.Now())
	}
}
