package server

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/chatfiles/limits"
	"github.com/opd-ai/chatfiles/wire"
)

// startServer runs a server on a loopback port with a private store
// directory and tears it down with the test.
func startServer(t *testing.T) (*Server, string, string) {
	t.Helper()

	store := t.TempDir()
	srv, err := New("127.0.0.1:0", store)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run()
	}()
	t.Cleanup(func() {
		srv.Stop()
		<-done
	})

	return srv, srv.Addr().String(), store
}

// testPeer is a raw protocol speaker used to drive the server from tests.
type testPeer struct {
	conn    net.Conn
	scanner *wire.Scanner
	writer  *wire.Writer
}

func dialPeer(t *testing.T, addr string) *testPeer {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testPeer{
		conn:    conn,
		scanner: wire.NewScanner(conn),
		writer:  wire.NewWriter(conn),
	}
}

func (p *testPeer) send(t *testing.T, m wire.ClientMessage) {
	t.Helper()
	doc, err := wire.EncodeClientMessage(m)
	require.NoError(t, err)
	require.NoError(t, p.writer.Write(doc))

	deadline := time.Now().Add(2 * time.Second)
	for p.writer.Pending() && time.Now().Before(deadline) {
		_, err := p.writer.Flush()
		require.NoError(t, err)
	}
	require.False(t, p.writer.Pending(), "frame not drained")
}

// await scans until a message matching the predicate arrives, skipping
// unrelated room traffic.
func (p *testPeer) await(t *testing.T, what string, match func(wire.ServerMessage) bool) wire.ServerMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := p.scanner.Scan()
		if err == wire.ErrWouldBlock {
			continue
		}
		require.NoError(t, err)

		m, err := wire.DecodeServerMessage(doc)
		require.NoError(t, err)
		if match(m) {
			return m
		}
	}
	t.Fatalf("timed out waiting for %s", what)
	return nil
}

func isSupport(m wire.ServerMessage) bool {
	_, ok := m.(*wire.Support)
	return ok
}

func TestJoinIsGreeted(t *testing.T) {
	_, addr, _ := startServer(t)

	peer := dialPeer(t, addr)
	m := peer.await(t, "welcome", isSupport)
	require.Equal(t, welcomeText, m.(*wire.Support).Text)
}

func TestTextIsEchoedToEveryone(t *testing.T) {
	_, addr, _ := startServer(t)

	a := dialPeer(t, addr)
	b := dialPeer(t, addr)
	a.await(t, "welcome", isSupport)
	b.await(t, "welcome", isSupport)

	b.send(t, &wire.Rename{NewName: "Bob"})
	b.await(t, "rename ack", func(m wire.ServerMessage) bool {
		r, ok := m.(*wire.UserRenamed)
		return ok && r.NewName == "Bob"
	})

	a.send(t, &wire.Text{Text: "hi"})

	for _, peer := range []*testPeer{a, b} {
		m := peer.await(t, "room text", func(m wire.ServerMessage) bool {
			_, ok := m.(*wire.ServerText)
			return ok
		})
		text := m.(*wire.ServerText)
		require.Equal(t, "hi", text.Text)
		// A never renamed, so the text is attributed to its address.
		require.Equal(t, a.conn.LocalAddr().String(), text.Name)
	}
}

func TestRenameCollisionGetsSupport(t *testing.T) {
	_, addr, _ := startServer(t)

	a := dialPeer(t, addr)
	b := dialPeer(t, addr)
	a.await(t, "welcome", isSupport)
	b.await(t, "welcome", isSupport)

	a.send(t, &wire.Rename{NewName: "Alice"})
	a.await(t, "rename ack", func(m wire.ServerMessage) bool {
		_, ok := m.(*wire.UserRenamed)
		return ok
	})

	b.send(t, &wire.Rename{NewName: "Alice"})
	m := b.await(t, "rejection", isSupport)
	require.Contains(t, m.(*wire.Support).Text, "already been taken")

	// B still talks under its address.
	b.send(t, &wire.Text{Text: "still me"})
	echoed := b.await(t, "own echo", func(m wire.ServerMessage) bool {
		_, ok := m.(*wire.ServerText)
		return ok
	})
	require.Equal(t, b.conn.LocalAddr().String(), echoed.(*wire.ServerText).Name)
}

func TestForbiddenNameGetsSupport(t *testing.T) {
	_, addr, _ := startServer(t)

	a := dialPeer(t, addr)
	a.await(t, "welcome", isSupport)

	a.send(t, &wire.Rename{NewName: "a.b"})
	m := a.await(t, "rejection", isSupport)
	require.Contains(t, m.(*wire.Support).Text, "can't contain")
}

func TestUploadRoundTrip(t *testing.T) {
	_, addr, store := startServer(t)

	a := dialPeer(t, addr)
	a.await(t, "welcome", isSupport)

	content := bytes.Repeat([]byte{0x5a}, 250)

	a.send(t, &wire.RequestFileUpload{Name: "out.bin", Size: 250, ID: 0})
	a.await(t, "upload agreement", func(m wire.ServerMessage) bool {
		agree, ok := m.(*wire.AgreeFileUpload)
		return ok && agree.ID == 0
	})

	for off := 0; off < len(content); off += limits.ChunkSize {
		end := off + limits.ChunkSize
		if end > len(content) {
			end = len(content)
		}
		a.send(t, &wire.Chunk{Data: content[off:end], ID: 0})
	}

	m := a.await(t, "new file broadcast", func(m wire.ServerMessage) bool {
		_, ok := m.(*wire.NewFile)
		return ok
	})
	require.Equal(t, "out.bin", m.(*wire.NewFile).Name)

	saved, err := os.ReadFile(filepath.Join(store, "out.bin"))
	require.NoError(t, err)
	require.Equal(t, content, saved)
}

func TestUploadOfExistingFileIsDeclined(t *testing.T) {
	_, addr, store := startServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(store, "taken.bin"), []byte("x"), 0o644))

	a := dialPeer(t, addr)
	a.await(t, "welcome", isSupport)

	a.send(t, &wire.RequestFileUpload{Name: "taken.bin", Size: 1, ID: 4})
	m := a.await(t, "decline", func(m wire.ServerMessage) bool {
		_, ok := m.(*wire.DeclineFileUpload)
		return ok
	})
	require.Equal(t, int64(4), m.(*wire.DeclineFileUpload).ID)
}

func TestDownloadRoundTrip(t *testing.T) {
	_, addr, store := startServer(t)

	content := bytes.Repeat([]byte{0x7b}, 250)
	require.NoError(t, os.WriteFile(filepath.Join(store, "out.bin"), content, 0o644))

	b := dialPeer(t, addr)
	b.await(t, "welcome", isSupport)

	b.send(t, &wire.RequestFileDownload{Name: "out.bin"})
	offer := b.await(t, "download offer", func(m wire.ServerMessage) bool {
		_, ok := m.(*wire.ServerAgreeFileDownload)
		return ok
	}).(*wire.ServerAgreeFileDownload)
	require.Equal(t, "out.bin", offer.Name)
	require.Equal(t, int64(250), offer.Size)

	b.send(t, &wire.AgreeFileDownload{ID: offer.ID})

	var got []byte
	for int64(len(got)) < offer.Size {
		m := b.await(t, "chunk", func(m wire.ServerMessage) bool {
			_, ok := m.(*wire.Chunk)
			return ok
		}).(*wire.Chunk)
		require.Equal(t, offer.ID, m.ID)
		got = append(got, m.Data...)
	}
	require.Equal(t, content, got)
}

func TestMissingDownloadIsDeclined(t *testing.T) {
	_, addr, _ := startServer(t)

	b := dialPeer(t, addr)
	b.await(t, "welcome", isSupport)

	b.send(t, &wire.RequestFileDownload{Name: "nope.bin"})
	m := b.await(t, "decline", func(m wire.ServerMessage) bool {
		_, ok := m.(*wire.ServerDeclineFileDownload)
		return ok
	})
	require.Equal(t, "nope.bin", m.(*wire.ServerDeclineFileDownload).Name)
}

func TestOversizedTextInterruptsSession(t *testing.T) {
	srv, addr, _ := startServer(t)

	a := dialPeer(t, addr)
	b := dialPeer(t, addr)
	a.await(t, "welcome", isSupport)
	b.await(t, "welcome", isSupport)

	a.send(t, &wire.Text{Text: strings.Repeat("x", limits.MaxText+1)})

	m := b.await(t, "interrupt", func(m wire.ServerMessage) bool {
		_, ok := m.(*wire.Interrupt)
		return ok
	})
	require.Equal(t, a.conn.LocalAddr().String(), m.(*wire.Interrupt).Name)

	// The offender is no longer part of the room.
	require.Eventually(t, func() bool {
		return srv.dir.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAbruptDisconnectBroadcastsInterrupt(t *testing.T) {
	_, addr, _ := startServer(t)

	a := dialPeer(t, addr)
	b := dialPeer(t, addr)
	a.await(t, "welcome", isSupport)
	b.await(t, "welcome", isSupport)

	bAddr := b.conn.LocalAddr().String()
	require.NoError(t, b.conn.Close())

	m := a.await(t, "interrupt", func(m wire.ServerMessage) bool {
		_, ok := m.(*wire.Interrupt)
		return ok
	})
	require.Equal(t, bAddr, m.(*wire.Interrupt).Name)
}

func TestOversizedAnnouncementDisconnects(t *testing.T) {
	_, addr, _ := startServer(t)

	a := dialPeer(t, addr)
	b := dialPeer(t, addr)
	a.await(t, "welcome", isSupport)
	b.await(t, "welcome", isSupport)

	// A hand-rolled header announcing more than the frame ceiling.
	header := []byte{0xff, 0xff, 0x00, 0x00, 0, 0, 0, 0}
	_, err := b.conn.Write(header)
	require.NoError(t, err)

	a.await(t, "interrupt", func(m wire.ServerMessage) bool {
		_, ok := m.(*wire.Interrupt)
		return ok
	})
}

func TestLeaveIsAnnounced(t *testing.T) {
	_, addr, _ := startServer(t)

	a := dialPeer(t, addr)
	b := dialPeer(t, addr)
	a.await(t, "welcome", isSupport)
	b.await(t, "welcome", isSupport)

	b.send(t, &wire.Rename{NewName: "Bob"})
	b.await(t, "rename ack", func(m wire.ServerMessage) bool {
		_, ok := m.(*wire.UserRenamed)
		return ok
	})
	b.send(t, &wire.Leave{})

	m := a.await(t, "leave broadcast", func(m wire.ServerMessage) bool {
		_, ok := m.(*wire.UserLeaves)
		return ok
	})
	require.Equal(t, "Bob", m.(*wire.UserLeaves).Name)
}
