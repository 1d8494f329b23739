package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	exe     string
	exeErr  error
	cmdline string
	environ string
}

func (f fakeInspector) Exe(uint32) (string, error) {
	if f.exeErr != nil {
		return "", f.exeErr
	}
	return f.exe, nil
}

func (f fakeInspector) Cmdline(uint32) (string, error) { return f.cmdline, nil }
func (f fakeInspector) Environ(uint32) (string, error) { return f.environ, nil }

func titleOf(s string) func() (string, bool) {
	return func() (string, bool) { return s, true }
}

func goneWindow() (string, bool) { return "", false }

func TestClassifyLoggedIn(t *testing.T) {
	c := New(1, nil)
	c.Inspector = fakeInspector{exe: "/home/user/.wine/drive_c/Games/eve/exefile.exe"}

	r := c.Classify(WindowProps{
		Class: "exefile.exe",
		PID:   500,
		HasPID: true,
		Title:  titleOf("EVE - Jean-Luc Picard"),
	})

	require.Equal(t, KindLoggedIn, r.Kind)
	require.Equal(t, "Jean-Luc Picard", r.CharacterName)
	require.Equal(t, "Jean-Luc Picard", r.Identity())
	require.True(t, r.Tracked())
}

func TestClassifyLoggedOut(t *testing.T) {
	c := New(1, nil)
	c.Inspector = fakeInspector{exe: "/usr/bin/wine64"}

	r := c.Classify(WindowProps{
		Class: "exefile.exe",
		PID:   500,
		HasPID: true,
		Title:  titleOf(LoggedOutTitle),
	})

	require.Equal(t, KindLoggedOut, r.Kind)
	require.Equal(t, "", r.Identity())
	require.True(t, r.Tracked())
}

func TestClassifyRejectsSteamContainerTitle(t *testing.T) {
	c := New(1, nil)
	c.Inspector = fakeInspector{exe: "/usr/bin/wine64"}

	r := c.Classify(WindowProps{
		Class: "exefile.exe",
		PID:   500,
		HasPID: true,
		Title:  titleOf("EVE - steam_app_8500"),
	})

	require.False(t, r.Tracked())
}

func TestClassifySkipsSelfProcess(t *testing.T) {
	c := New(42, nil)
	c.Inspector = fakeInspector{exe: "/usr/bin/wine64"}

	r := c.Classify(WindowProps{
		Class: "exefile.exe",
		PID:   42,
		HasPID: true,
		Title:  titleOf("EVE - Picard"),
	})

	require.False(t, r.Tracked())
}

func TestClassifyRejectsUnknownClassAndProcess(t *testing.T) {
	c := New(1, nil)
	c.Inspector = fakeInspector{exe: "/usr/bin/some-other-app", exeErr: nil}

	r := c.Classify(WindowProps{
		Class: "firefox",
		PID:   500,
		HasPID: true,
		Title:  titleOf("EVE - Picard"),
	})

	require.False(t, r.Tracked())
}

func TestClassifyProcessGateFallsBackToCmdline(t *testing.T) {
	c := New(1, nil)
	// exe readlink fails (permission denied under a sandboxed container),
	// but cmdline still carries the game's exe name.
	c.Inspector = fakeInspector{exeErr: errors.New("permission denied"), cmdline: "Z:\\game\\exefile.exe\x00"}

	r := c.Classify(WindowProps{
		Class: "exefile.exe",
		PID:   500,
		HasPID: true,
		Title:  titleOf("EVE - Picard"),
	})

	require.Equal(t, KindLoggedIn, r.Kind)
}

func TestClassifyProcessGateFallsBackToEnviron(t *testing.T) {
	c := New(1, nil)
	c.Inspector = fakeInspector{exeErr: errors.New("permission denied"), environ: "WINEPREFIX=/home/user/.wine\x00"}

	r := c.Classify(WindowProps{
		Class: "exefile.exe",
		PID:   500,
		HasPID: true,
		Title:  titleOf("EVE - Picard"),
	})

	require.Equal(t, KindLoggedIn, r.Kind)
}

func TestClassifyWindowGoneDuringTitleRead(t *testing.T) {
	c := New(1, nil)
	c.Inspector = fakeInspector{exe: "/usr/bin/wine64"}

	r := c.Classify(WindowProps{
		Class: "exefile.exe",
		PID:   500,
		HasPID: true,
		Title:  goneWindow,
	})

	require.False(t, r.Tracked())
}

func TestClassifyCustomSourceRule(t *testing.T) {
	c := New(1, []Rule{{Alias: "overview-popout", TitlePattern: "Overview"}})

	r := c.Classify(WindowProps{
		Class: "firefox",
		PID:   500,
		HasPID: true,
		Title:  titleOf("Overview - Scanner"),
	})

	require.Equal(t, KindCustomSource, r.Kind)
	require.Equal(t, "overview-popout", r.Alias)
	require.Equal(t, "overview-popout", r.Identity())
}

func TestClassifyCustomSourceSingleInstanceLimit(t *testing.T) {
	c := New(1, []Rule{{Alias: "popout", TitlePattern: "Popout", LimitSingleInstance: true}})

	p := WindowProps{Class: "x", PID: 1, HasPID: true, Title: titleOf("Popout 1")}
	r1 := c.Classify(p)
	require.Equal(t, KindCustomSource, r1.Kind)

	r2 := c.Classify(p)
	require.False(t, r2.Tracked())

	c.Forget("popout")
	r3 := c.Classify(p)
	require.Equal(t, KindCustomSource, r3.Kind)
}

func TestClassifyNoPidFallsBackToClassOnly(t *testing.T) {
	c := New(1, nil)

	r := c.Classify(WindowProps{
		Class:  "exefile.exe",
		HasPID: false,
		Title:  titleOf("EVE - Picard"),
	})

	require.Equal(t, KindLoggedIn, r.Kind)
}
