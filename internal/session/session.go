// Package session owns the per-daemon-run state that outlives any single
// window: last-known identity per window (for swap inheritance), the
// auto-hide deadline, and the cycle anchor used by hotkey cycling.
package session

import (
	"time"

	"github.com/h0lylag/evepreviewd/internal/geom"
)

// AutoHideDelay is the fixed grace period between losing focus on the
// tracked window and thumbnails auto-hiding, per spec.
const AutoHideDelay = 100 * time.Millisecond

// WindowID is the display-server window handle. Kept as a plain uint32
// (X11's XID width) so this package never imports an X11 binding.
type WindowID uint32

// State is the daemon's session-scoped memory. It is not safe for
// concurrent use; the dispatcher is its only caller.
type State struct {
	lastCharacterByWindow map[WindowID]string
	savedPositions        map[string]geom.Position

	focusLossDeadline   *time.Time
	currentCycleIdentity string
}

// New returns an empty session state.
func New() *State {
	return &State{
		lastCharacterByWindow: make(map[WindowID]string),
		savedPositions:        make(map[string]geom.Position),
	}
}

// RecordIdentity remembers that window w was last observed carrying the
// given identity. Called by the classifier whenever classification succeeds,
// so a later swap on the same window can inherit position.
func (s *State) RecordIdentity(w WindowID, identity string) {
	s.lastCharacterByWindow[w] = identity
}

// LastIdentity returns the identity last observed on window w, if any.
func (s *State) LastIdentity(w WindowID) (string, bool) {
	id, ok := s.lastCharacterByWindow[w]
	return id, ok
}

// ForgetWindow drops w's bookkeeping, e.g. on DestroyNotify.
func (s *State) ForgetWindow(w WindowID) {
	delete(s.lastCharacterByWindow, w)
}

// RecordSavedPosition caches identity's last persisted position, mirroring
// the config layer for cache locality.
func (s *State) RecordSavedPosition(identity string, pos geom.Position) {
	s.savedPositions[identity] = pos
}

// SavedPosition returns the cached last-persisted position for identity.
func (s *State) SavedPosition(identity string) (geom.Position, bool) {
	pos, ok := s.savedPositions[identity]
	return pos, ok
}

// InheritPosition implements the position-inheritance rule: if identity has
// no settings of its own but window w's previously observed identity does
// have a saved position, and swap-inheritance is enabled, return that
// position. hasOwnSettings should report whether identity already has
// persisted CharacterSettings (in which case inheritance never applies —
// the caller should use those settings instead).
func (s *State) InheritPosition(w WindowID, identity string, hasOwnSettings bool, preserveOnSwap bool) (geom.Position, bool) {
	if hasOwnSettings || !preserveOnSwap {
		return geom.Position{}, false
	}
	prevIdentity, ok := s.LastIdentity(w)
	if !ok || prevIdentity == identity {
		return geom.Position{}, false
	}
	return s.SavedPosition(prevIdentity)
}

// ScheduleAutoHide arms the auto-hide deadline AutoHideDelay from now, per
// the focus-loss hysteresis rule. now is passed in rather than read from
// time.Now so callers (and tests) control the clock.
func (s *State) ScheduleAutoHide(now time.Time) {
	deadline := now.Add(AutoHideDelay)
	s.focusLossDeadline = &deadline
}

// CancelAutoHide clears any pending auto-hide deadline, e.g. on FocusIn.
func (s *State) CancelAutoHide() {
	s.focusLossDeadline = nil
}

// HasPendingAutoHide reports whether a deadline is currently armed.
func (s *State) HasPendingAutoHide() bool {
	return s.focusLossDeadline != nil
}

// AutoHideDeadline returns the armed deadline, if any. The dispatcher uses
// this to bound its idle wait.
func (s *State) AutoHideDeadline() (time.Time, bool) {
	if s.focusLossDeadline == nil {
		return time.Time{}, false
	}
	return *s.focusLossDeadline, true
}

// DeadlineElapsed reports whether an armed deadline has passed as of now,
// and clears it if so. The dispatcher calls this at the top of each loop
// iteration; a true return means thumbnails should be hidden.
func (s *State) DeadlineElapsed(now time.Time) bool {
	if s.focusLossDeadline == nil {
		return false
	}
	if now.Before(*s.focusLossDeadline) {
		return false
	}
	s.focusLossDeadline = nil
	return true
}

// SetCurrent sets the cycle anchor directly, e.g. on a left-click.
func (s *State) SetCurrent(identity string) {
	s.currentCycleIdentity = identity
}

// SetCurrentByWindow updates the cycle anchor to whichever identity window w
// last carried, used when OS-level focus lands on a tracked window.
func (s *State) SetCurrentByWindow(w WindowID) {
	if id, ok := s.LastIdentity(w); ok {
		s.currentCycleIdentity = id
	}
}

// Current returns the cycle anchor identity, which may be empty if nothing
// has been focused/clicked yet.
func (s *State) Current() string {
	return s.currentCycleIdentity
}

// ClearCurrentIfMatches clears the anchor if it currently points at
// identity — used when the anchor's window is destroyed.
func (s *State) ClearCurrentIfMatches(identity string) {
	if s.currentCycleIdentity == identity {
		s.currentCycleIdentity = ""
	}
}

// Cycle walks group from the current anchor in the given direction,
// skipping any identity for which skip reports true, and wraps at either
// end. It returns the selected identity and true, or "" and false if group
// is empty or every entry is skipped.
func (s *State) Cycle(group []string, forward bool, skip func(string) bool) (string, bool) {
	if len(group) == 0 {
		return "", false
	}

	start := indexOf(group, s.currentCycleIdentity)
	n := len(group)
	step := 1
	if !forward {
		step = -1
	}

	// start == -1 (anchor not in group) begins the walk from just before
	// index 0 for forward, or just after the last index for backward, so the
	// first candidate tried is the group's natural start/end.
	cur := start
	if start == -1 && !forward {
		cur = n
	}
	for i := 0; i < n; i++ {
		cur = ((cur+step)%n + n) % n
		candidate := group[cur]
		if !skip(candidate) {
			s.currentCycleIdentity = candidate
			return candidate, true
		}
	}
	return "", false
}

func indexOf(group []string, identity string) int {
	for i, g := range group {
		if g == identity {
			return i
		}
	}
	return -1
}
