// Package ipc implements the daemon's single transport to the external
// configuration GUI: a Unix domain socket carrying length-prefixed JSON
// records. Spec calls for "length-prefixed, tagged records" rather than a
// line-delimited protocol, so framing uses a 4-byte big-endian length
// prefix ahead of each JSON body.
package ipc

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"

	"github.com/h0lylag/evepreviewd/internal/config"
)

// maxFrameSize bounds a single message body; the GUI only ever sends
// config-sized payloads, so anything past this is a malformed peer, not a
// legitimate large message.
const maxFrameSize = 8 << 20

// InboundKind discriminates the six inbound message kinds.
type InboundKind string

const (
	InboundReloadConfig       InboundKind = "ReloadConfig"
	InboundSetCharacterSetting InboundKind = "SetCharacterSetting"
	InboundSetSkipped         InboundKind = "SetSkipped"
	InboundToggleVisibility   InboundKind = "ToggleVisibility"
	InboundSaveNow            InboundKind = "SaveNow"
	InboundShutdown           InboundKind = "Shutdown"
)

// Inbound is one message received from the GUI. Only the fields relevant
// to Kind are populated.
type Inbound struct {
	Kind InboundKind `json:"type"`

	Config    *config.DaemonConfig        `json:"config,omitempty"`
	Identity  string                      `json:"identity,omitempty"`
	Character *config.CharacterSettings   `json:"character,omitempty"`
	Skipped   bool                        `json:"skipped,omitempty"`
}

// OutboundKind discriminates the three outbound message kinds.
type OutboundKind string

const (
	OutboundPositionChanged  OutboundKind = "PositionChanged"
	OutboundDetectedWindows  OutboundKind = "DetectedWindows"
	OutboundStatus           OutboundKind = "Status"
)

// DetectedWindow is one entry in an OutboundDetectedWindows message, for
// the GUI's "add custom source" picker.
type DetectedWindow struct {
	Class string `json:"class"`
	Title string `json:"title"`
}

// Outbound is one message sent to the GUI. Only the fields relevant to
// Kind are populated.
type Outbound struct {
	Kind OutboundKind `json:"type"`

	Identity string                 `json:"identity,omitempty"`
	Position *config.CharacterSettings `json:"position,omitempty"`
	IsCustom bool                   `json:"is_custom,omitempty"`

	Windows []DetectedWindow `json:"windows,omitempty"`

	Severity string `json:"severity,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Listener accepts exactly one GUI connection at a time on a Unix domain
// socket.
type Listener struct {
	socketPath string
	listener   net.Listener
}

// Listen removes any stale socket file, creates the socket directory if
// needed, and binds a new listener at path with group-readable
// permissions — the same stale-socket-then-chmod sequence the pack's unix
// socket server uses.
func Listen(path string) (*Listener, error) {
	_ = os.Remove(path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("ipc: create socket dir %s: %w", dir, err)
		}
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0660); err != nil {
		l.Close()
		return nil, fmt.Errorf("ipc: chmod %s: %w", path, err)
	}

	return &Listener{socketPath: path, listener: l}, nil
}

// Close closes the listener and removes the socket file.
func (l *Listener) Close() error {
	err := l.listener.Close()
	_ = os.Remove(l.socketPath)
	return err
}

// Accept blocks for the next GUI connection. The caller calls this once at
// startup and again whenever the previous connection drops.
func (l *Listener) Accept() (*Conn, error) {
	c, err := l.listener.Accept()
	if err != nil {
		return nil, fmt.Errorf("ipc: accept: %w", err)
	}
	return &Conn{raw: c, r: bufio.NewReader(c)}, nil
}

// Conn is one accepted connection, framed with the length-prefixed JSON
// protocol.
type Conn struct {
	raw net.Conn
	r   *bufio.Reader
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.raw.Close() }

// ReadInbound blocks for the next framed message. io.EOF (possibly
// wrapped) indicates the GUI disconnected; the caller should call
// Listener.Accept again in that case, not treat it as fatal.
func (c *Conn) ReadInbound() (Inbound, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.r, lenBuf[:]); err != nil {
		return Inbound{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return Inbound{}, fmt.Errorf("ipc: frame of %d bytes exceeds limit", n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return Inbound{}, fmt.Errorf("ipc: read frame body: %w", err)
	}

	var msg Inbound
	if err := json.Unmarshal(body, &msg); err != nil {
		return Inbound{}, fmt.Errorf("ipc: decode frame: %w", err)
	}
	return msg, nil
}

// WriteOutbound encodes and sends one message, length-prefixed.
func (c *Conn) WriteOutbound(msg Outbound) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ipc: encode frame: %w", err)
	}
	if len(body) > maxFrameSize {
		return fmt.Errorf("ipc: outbound frame of %d bytes exceeds limit", len(body))
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))

	if _, err := c.raw.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("ipc: write frame length: %w", err)
	}
	if _, err := c.raw.Write(body); err != nil {
		return fmt.Errorf("ipc: write frame body: %w", err)
	}
	return nil
}

// LogStatus is a convenience wrapper building and sending an
// OutboundStatus message, used by callers that just want to surface a
// log line to the GUI without constructing the struct by hand.
func (c *Conn) LogStatus(severity, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if err := c.WriteOutbound(Outbound{Kind: OutboundStatus, Severity: severity, Message: msg}); err != nil {
		log.Printf("ipc: failed to deliver status notification: %v\n", err)
	}
}
