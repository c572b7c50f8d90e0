package client

import (
	"net"

	"github.com/pkg/errors"

	"github.com/opd-ai/chatfiles/session"
	"github.com/opd-ai/chatfiles/wire"
)

// connection is the client's active link to a server: the socket, its
// framing ends and the transfer state riding on it.
type connection struct {
	conn    net.Conn
	scanner *wire.Scanner
	writer  *wire.Writer
	state   *session.Session
}

func dial(address string) (*connection, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", address)
	}
	return &connection{
		conn:    conn,
		scanner: wire.NewScanner(conn),
		writer:  wire.NewWriter(conn),
		state:   session.New(),
	}, nil
}

func (c *connection) send(m wire.ClientMessage) error {
	doc, err := wire.EncodeClientMessage(m)
	if err != nil {
		return err
	}
	return c.writer.Write(doc)
}

// TryWriteChunk implements session.ChunkWriter for the transfer pump.
func (c *connection) TryWriteChunk(data []byte, id int64) error {
	doc, err := wire.EncodeClientMessage(&wire.Chunk{Data: data, ID: id})
	if err != nil {
		return err
	}
	return c.writer.TryWrite(doc)
}

func (c *connection) close() {
	c.state.Abort()
	c.conn.Close()
}
