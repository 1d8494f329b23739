package session

import (
	"testing"
	"time"

	"github.com/h0lylag/evepreviewd/internal/geom"
	"github.com/stretchr/testify/require"
)

func TestAutoHideHysteresisCancelsWithin100ms(t *testing.T) {
	s := New()
	t0 := time.Unix(0, 0)
	s.ScheduleAutoHide(t0)
	require.True(t, s.HasPendingAutoHide())

	// FocusIn arrives 50ms later.
	s.CancelAutoHide()
	require.False(t, s.HasPendingAutoHide())
	require.False(t, s.DeadlineElapsed(t0.Add(200*time.Millisecond)))
}

func TestAutoHideCompletesAfter100ms(t *testing.T) {
	s := New()
	t0 := time.Unix(0, 0)
	s.ScheduleAutoHide(t0)

	require.False(t, s.DeadlineElapsed(t0.Add(99*time.Millisecond)))
	require.True(t, s.DeadlineElapsed(t0.Add(101*time.Millisecond)))
	// Elapsing clears the deadline so it does not fire twice.
	require.False(t, s.HasPendingAutoHide())
}

func TestCycleForwardWithSkip(t *testing.T) {
	s := New()
	s.SetCurrent("A")
	group := []string{"A", "B", "C"}
	skip := func(id string) bool { return id == "B" }

	next, ok := s.Cycle(group, true, skip)
	require.True(t, ok)
	require.Equal(t, "C", next)

	next, ok = s.Cycle(group, true, skip)
	require.True(t, ok)
	require.Equal(t, "A", next)
}

func TestCycleBackwardWraps(t *testing.T) {
	s := New()
	s.SetCurrent("A")
	group := []string{"A", "B", "C"}
	next, ok := s.Cycle(group, false, func(string) bool { return false })
	require.True(t, ok)
	require.Equal(t, "C", next)
}

func TestCycleAllSkippedReturnsFalse(t *testing.T) {
	s := New()
	s.SetCurrent("A")
	group := []string{"A", "B"}
	_, ok := s.Cycle(group, true, func(string) bool { return true })
	require.False(t, ok)
}

func TestPositionInheritanceOnSwap(t *testing.T) {
	s := New()
	const w = WindowID(42)

	// Alice was logged in at (200,300) and is now gone; Bob appears.
	s.RecordIdentity(w, "Alice")
	s.RecordSavedPosition("Alice", geom.Position{X: 200, Y: 300})

	pos, ok := s.InheritPosition(w, "Bob", false, true)
	require.True(t, ok)
	require.Equal(t, geom.Position{X: 200, Y: 300}, pos)
}

func TestPositionInheritanceDisabledWithoutFlag(t *testing.T) {
	s := New()
	const w = WindowID(42)
	s.RecordIdentity(w, "Alice")
	s.RecordSavedPosition("Alice", geom.Position{X: 200, Y: 300})

	_, ok := s.InheritPosition(w, "Bob", false, false)
	require.False(t, ok)
}

func TestPositionInheritanceSkippedWhenOwnSettingsExist(t *testing.T) {
	s := New()
	const w = WindowID(42)
	s.RecordIdentity(w, "Alice")
	s.RecordSavedPosition("Alice", geom.Position{X: 200, Y: 300})

	_, ok := s.InheritPosition(w, "Bob", true, true)
	require.False(t, ok)
}

func TestCycleAnchorClearedOnWindowDestroy(t *testing.T) {
	s := New()
	s.SetCurrent("Alice")
	s.ClearCurrentIfMatches("Alice")
	require.Equal(t, "", s.Current())
}
