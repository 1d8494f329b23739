package ipc

import (
	"encoding/binary"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenAcceptRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evepreviewd.sock")

	l, err := Listen(path)
	require.NoError(t, err)
	defer l.Close()

	clientDone := make(chan error, 1)
	go func() {
		conn, err := net.Dial("unix", path)
		if err != nil {
			clientDone <- err
			return
		}
		defer conn.Close()

		body, _ := json.Marshal(Inbound{Kind: InboundToggleVisibility})
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
		if _, err := conn.Write(lenBuf[:]); err != nil {
			clientDone <- err
			return
		}
		if _, err := conn.Write(body); err != nil {
			clientDone <- err
			return
		}

		// Read the server's reply frame.
		var replyLen [4]byte
		if _, err := conn.Read(replyLen[:]); err != nil {
			clientDone <- err
			return
		}
		reply := make([]byte, binary.BigEndian.Uint32(replyLen[:]))
		if _, err := conn.Read(reply); err != nil {
			clientDone <- err
			return
		}
		var out Outbound
		clientDone <- json.Unmarshal(reply, &out)
	}()

	conn, err := l.Accept()
	require.NoError(t, err)
	defer conn.Close()

	msg, err := conn.ReadInbound()
	require.NoError(t, err)
	require.Equal(t, InboundToggleVisibility, msg.Kind)

	require.NoError(t, conn.WriteOutbound(Outbound{Kind: OutboundStatus, Severity: "info", Message: "ok"}))
	require.NoError(t, <-clientDone)
}

func TestReadInboundRejectsOversizedFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evepreviewd.sock")
	l, err := Listen(path)
	require.NoError(t, err)
	defer l.Close()

	go func() {
		conn, err := net.Dial("unix", path)
		if err != nil {
			return
		}
		defer conn.Close()
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], maxFrameSize+1)
		conn.Write(lenBuf[:])
	}()

	conn, err := l.Accept()
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ReadInbound()
	require.Error(t, err)
}
