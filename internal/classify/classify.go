// Package classify implements the window classification pipeline: deciding
// whether a top-level window is a trackable client and, if so, which
// identity it carries.
//
// The pipeline is deliberately cheap-first: class and process gates run
// before the title is ever read, since title reads are the one query that
// must tolerate "window destroyed mid-round-trip" on every call.
package classify

import (
	"os"
	"strings"
)

// Kind tags the variant of a classified window.
type Kind int

const (
	// KindNone means the window was not accepted by any gate.
	KindNone Kind = iota
	// KindLoggedIn is a tracked client with a known character name.
	KindLoggedIn
	// KindLoggedOut is a tracked client showing the logged-out title.
	KindLoggedOut
	// KindCustomSource is a window matched against a CustomWindowRule.
	KindCustomSource
)

// Result is the outcome of classifying one window.
type Result struct {
	Kind          Kind
	CharacterName string // non-empty only for KindLoggedIn
	Alias         string // non-empty only for KindCustomSource
}

// Identity returns the string identity downstream state is keyed on: the
// character name for LoggedIn, the rule alias for CustomSource, and "" for
// LoggedOut (the reserved logged-out identity).
func (r Result) Identity() string {
	switch r.Kind {
	case KindLoggedIn:
		return r.CharacterName
	case KindCustomSource:
		return r.Alias
	default:
		return ""
	}
}

// Tracked reports whether the window should get a thumbnail.
func (r Result) Tracked() bool {
	return r.Kind != KindNone
}

// KnownClientClasses are the WM_CLASS values the class gate accepts. The
// game ships a single Wine/Proton-wrapped binary whose WM_CLASS is stable
// across logged-in and logged-out states.
var KnownClientClasses = []string{"exefile.exe", "EVE"}

// WindowTitlePrefix is the exact prefix a logged-in client's title carries;
// the suffix after it is the character name.
const WindowTitlePrefix = "EVE - "

// LoggedOutTitle is the exact title a logged-out client window shows.
const LoggedOutTitle = "EVE - Login"

// containerMarker is rejected even when it follows WindowTitlePrefix: Steam
// renames the window to its sandboxed app-container title before the real
// client has set its own, and that transient title must never be read as a
// character name.
const containerMarker = "steam_app_"

// eveExeName is the Wine-side executable name, checked in /proc/<pid>/exe
// and /proc/<pid>/cmdline when the process gate can't resolve a Wine marker
// directly (e.g. a custom Wine build without "wine" in its own path).
const eveExeName = "exefile.exe"

// wineProcessMarkers are substrings of /proc/<pid>/exe that indicate the
// process is running under Wine or Proton.
var wineProcessMarkers = []string{"wine64", "wineserver", "/proton/", "/steamapps/common/Proton"}

// wineEnvVars are environment variable names (without "=") whose presence
// in /proc/<pid>/environ indicates a Wine/Proton/Steam launch.
var wineEnvVars = []string{"WINEPREFIX", "SteamGameId", "SteamAppId"}

// ProcessInspector reads the three /proc files the process gate needs. It
// is an interface so classifier tests can fake a process without touching
// the real filesystem.
type ProcessInspector interface {
	Exe(pid uint32) (string, error)
	Cmdline(pid uint32) (string, error)
	Environ(pid uint32) (string, error)
}

// procFSInspector is the real ProcessInspector, reading /proc/<pid>/*.
type procFSInspector struct{}

// DefaultInspector reads the real /proc filesystem.
var DefaultInspector ProcessInspector = procFSInspector{}

func (procFSInspector) Exe(pid uint32) (string, error) {
	return readLink(procPath(pid, "exe"))
}

func (procFSInspector) Cmdline(pid uint32) (string, error) {
	return readFile(procPath(pid, "cmdline"))
}

func (procFSInspector) Environ(pid uint32) (string, error) {
	return readFile(procPath(pid, "environ"))
}

func procPath(pid uint32, leaf string) string {
	return "/proc/" + itoa(pid) + "/" + leaf
}

func readLink(path string) (string, error) {
	return os.Readlink(path)
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func itoa(pid uint32) string {
	if pid == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for pid > 0 {
		i--
		buf[i] = byte('0' + pid%10)
		pid /= 10
	}
	return string(buf[i:])
}

// Rule is a static custom-source matching rule.
type Rule struct {
	Alias               string
	ClassPattern        string // empty means "don't match on class"
	TitlePattern        string // empty means "don't match on title"
	LimitSingleInstance bool
}

// Matches reports whether the rule accepts a window with the given class
// and title. A rule must have at least one non-empty pattern and every
// non-empty pattern present must match (substring match, matching the
// simple style of the class/title gates below).
func (r Rule) Matches(class, title string) bool {
	matchedAny := false
	if r.ClassPattern != "" {
		if !strings.Contains(class, r.ClassPattern) {
			return false
		}
		matchedAny = true
	}
	if r.TitlePattern != "" {
		if !strings.Contains(title, r.TitlePattern) {
			return false
		}
		matchedAny = true
	}
	return matchedAny
}

// Classifier runs the gate pipeline against live window property readers
// supplied by the caller (internal/x11 in production, fakes in tests).
type Classifier struct {
	SelfPID   uint32
	Inspector ProcessInspector
	Rules     []Rule

	// customSourceSeen tracks which single-instance-limited rule aliases
	// already have a tracked window, so later matches are rejected.
	customSourceSeen map[string]bool
}

// New returns a Classifier for the given self-PID (skipped by the process
// gate) and custom-source rules.
func New(selfPID uint32, rules []Rule) *Classifier {
	return &Classifier{
		SelfPID:          selfPID,
		Inspector:        DefaultInspector,
		Rules:            rules,
		customSourceSeen: make(map[string]bool),
	}
}

// WindowProps is the minimal set of properties the classifier needs,
// queried once by the caller up front (class and PID are cheap; title is
// read only after both gates pass).
type WindowProps struct {
	Class string
	PID   uint32
	HasPID bool
	Title func() (string, bool) // lazily queries WM_NAME; false = window gone
}

// Classify runs the three-gate pipeline (class, process, title) and, if
// those fail, the custom-source rule match. It never errors: any property
// read that fails (window destroyed mid-pipeline) simply yields KindNone.
func (c *Classifier) Classify(p WindowProps) Result {
	if r, ok := c.classifyClient(p); ok {
		return r
	}
	return c.classifyCustomSource(p)
}

func (c *Classifier) classifyClient(p WindowProps) (Result, bool) {
	classMatches := isKnownClass(p.Class)

	shouldInspectTitle := false
	switch {
	case !p.HasPID:
		// No PID available at all; fall back to the class match alone.
		shouldInspectTitle = classMatches
	case p.PID == c.SelfPID:
		return Result{}, false
	case c.isWineProcess(p.PID):
		shouldInspectTitle = true
	case classMatches:
		// Class matched but PID verification failed: accept as a
		// container/sandbox-namespacing fallback.
		shouldInspectTitle = true
	}

	if !shouldInspectTitle {
		return Result{}, false
	}

	title, ok := p.Title()
	if !ok {
		return Result{}, false
	}

	if name, isLoggedIn := strings.CutPrefix(title, WindowTitlePrefix); isLoggedIn {
		if strings.Contains(name, containerMarker) {
			return Result{}, false
		}
		return Result{Kind: KindLoggedIn, CharacterName: name}, true
	}
	if title == LoggedOutTitle {
		return Result{Kind: KindLoggedOut}, true
	}
	return Result{}, false
}

func (c *Classifier) classifyCustomSource(p WindowProps) Result {
	title, _ := p.Title()
	for _, rule := range c.Rules {
		if !rule.Matches(p.Class, title) {
			continue
		}
		if rule.LimitSingleInstance {
			if c.customSourceSeen[rule.Alias] {
				continue
			}
			c.customSourceSeen[rule.Alias] = true
		}
		return Result{Kind: KindCustomSource, Alias: rule.Alias}
	}
	return Result{}
}

// Forget releases a single-instance custom-source slot, e.g. on
// DestroyNotify, so a future window may claim it again.
func (c *Classifier) Forget(alias string) {
	delete(c.customSourceSeen, alias)
}

func isKnownClass(class string) bool {
	for _, k := range KnownClientClasses {
		if class == k {
			return true
		}
	}
	return false
}

func (c *Classifier) isWineProcess(pid uint32) bool {
	insp := c.Inspector
	if insp == nil {
		insp = DefaultInspector
	}

	if exe, err := insp.Exe(pid); err == nil {
		for _, marker := range wineProcessMarkers {
			if strings.Contains(exe, marker) {
				return true
			}
		}
		if strings.HasSuffix(exe, eveExeName) {
			return true
		}
	}

	if cmdline, err := insp.Cmdline(pid); err == nil && strings.Contains(cmdline, eveExeName) {
		return true
	}

	if environ, err := insp.Environ(pid); err == nil {
		for _, v := range wineEnvVars {
			if strings.Contains(environ, v+"=") {
				return true
			}
		}
	}

	return false
}
