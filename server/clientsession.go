package server

import (
	"net"

	"github.com/opd-ai/chatfiles/session"
	"github.com/opd-ai/chatfiles/wire"
)

// clientSession bundles one accepted connection with its framing ends and
// per-connection transfer state. It is the server's handle for everything
// that concerns a single client.
type clientSession struct {
	addr    string
	conn    net.Conn
	scanner *wire.Scanner
	writer  *wire.Writer
	state   *session.Session
}

func newClientSession(conn net.Conn) *clientSession {
	return &clientSession{
		addr:    conn.RemoteAddr().String(),
		conn:    conn,
		scanner: wire.NewScanner(conn),
		writer:  wire.NewWriter(conn),
		state:   session.New(),
	}
}

// Deliver implements chat.Peer. The document is queued whole; a slow
// client grows backlog instead of stalling the caller.
func (c *clientSession) Deliver(m wire.ServerMessage) error {
	doc, err := wire.EncodeServerMessage(m)
	if err != nil {
		return err
	}
	return c.writer.Write(doc)
}

// TryWriteChunk implements session.ChunkWriter for the transfer pump.
func (c *clientSession) TryWriteChunk(data []byte, id int64) error {
	doc, err := wire.EncodeServerMessage(&wire.Chunk{Data: data, ID: id})
	if err != nil {
		return err
	}
	return c.writer.TryWrite(doc)
}

// teardown drops every resource the session owns. In-flight transfers are
// abandoned; their handles are released.
func (c *clientSession) teardown() {
	c.state.Abort()
	c.conn.Close()
}
