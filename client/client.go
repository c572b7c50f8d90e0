// Package client implements the interactive chat client: a console
// command channel, a server-message poll and the sending side of file
// transfers, all driven by one cooperative loop.
package client

import (
	"bufio"
	"errors"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chatfiles/limits"
	"github.com/opd-ai/chatfiles/session"
	"github.com/opd-ai/chatfiles/wire"
)

// Client runs the interactive session. Console input is read by a
// dedicated goroutine (reading stdin blocks) and handed over through a
// channel; everything else happens on the goroutine that calls Run.
type Client struct {
	in       io.Reader
	out      io.Writer
	commands chan Command
	conn     *connection
}

// New builds a client reading commands from in and rendering to out.
func New(in io.Reader, out io.Writer) *Client {
	return &Client{
		in:       in,
		out:      out,
		commands: make(chan Command),
	}
}

// Run drives the loop until the user quits or the server goes away. Each
// tick takes at most one command, one server message and one pump pass,
// and sleeps only when none of those did anything.
func (c *Client) Run() error {
	go c.readCommands()

	defer func() {
		if c.conn != nil {
			c.sayGoodbye()
			c.conn.close()
			c.conn = nil
		}
	}()

	for {
		progressed := false

		select {
		case cmd, ok := <-c.commands:
			if !ok {
				return nil
			}
			progressed = true
			if stop := c.perform(cmd); stop {
				return nil
			}
		default:
		}

		if c.conn != nil {
			status, didWork := c.pollServer()
			progressed = progressed || didWork
			if status == session.Stop {
				return nil
			}

			if c.conn.state.PumpSending(c.conn) {
				progressed = true
			}
			n, err := c.conn.writer.Flush()
			if n > 0 {
				progressed = true
			}
			if err != nil {
				c.printf("(Server) Connection lost > %v", err)
				return nil
			}
		}

		if !progressed {
			time.Sleep(limits.IdleWait)
		}
	}
}

// readCommands feeds parsed console lines into the command channel. It
// owns the blocking read on stdin so the main loop never waits on it.
func (c *Client) readCommands() {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		cmd, hint := ParseLine(scanner.Text())
		if hint != "" {
			c.printf("(Console) %s", hint)
		}
		if cmd.Kind == CommandNothing {
			continue
		}
		c.commands <- cmd
	}
	close(c.commands)
}

// pollServer performs a single read attempt on the connection.
func (c *Client) pollServer() (session.Status, bool) {
	doc, err := c.conn.scanner.Scan()
	if err != nil {
		switch {
		case errors.Is(err, wire.ErrWouldBlock):
			return session.Idle, false
		case errors.Is(err, wire.ErrNothingToRead):
			c.printf("(Server) The server is gone")
			return session.Stop, true
		default:
			c.printf("(Server) Error > %v", err)
			return session.Stop, true
		}
	}

	m, err := wire.DecodeServerMessage(doc)
	if err != nil {
		c.printf("(Server) Error > %v", err)
		return session.Stop, true
	}

	return c.handleServerMessage(m), true
}

// perform executes one console command. It reports whether the client
// should stop.
func (c *Client) perform(cmd Command) bool {
	switch cmd.Kind {
	case CommandEnd:
		return true
	case CommandConnect:
		c.connect(cmd.Address)
		return false
	case CommandNothing:
		return false
	}

	if c.conn == nil {
		c.printf("(Console) Easy now! We should first establish a connection, all right? Go on, use /connect")
		return false
	}

	var err error
	switch cmd.Kind {
	case CommandText:
		err = c.conn.send(&wire.Text{Text: cmd.Text})
	case CommandRename:
		err = c.conn.send(&wire.Rename{NewName: cmd.Name})
	case CommandUpload:
		err = c.startUpload(cmd.Name, cmd.Path)
	case CommandDownload:
		err = c.startDownload(cmd.Name, cmd.Path)
	}

	if err != nil {
		c.printf("(Console) That didn't work out > %v", err)
	}
	return false
}

func (c *Client) connect(address string) {
	conn, err := dial(address)
	if err != nil {
		c.printf("(Console) Can't reach %s > %v", address, err)
		return
	}
	if c.conn != nil {
		c.conn.close()
	}
	c.conn = conn

	logrus.WithField("address", address).Info("Connected")
}

// startUpload opens the local file and asks the server to receive it. The
// sharer sits prepared and promoted until the server agrees.
func (c *Client) startUpload(name, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	id := c.conn.state.FreeID()
	c.conn.state.PrepareSharer(path, file, name)
	c.conn.state.PromoteSharer(name, info.Size(), id)

	return c.conn.send(&wire.RequestFileUpload{Name: name, Size: info.Size(), ID: id})
}

// startDownload creates the local target and asks for the remote file.
// The sharer stays keyed by name until the server's offer promotes it.
func (c *Client) startDownload(name, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	c.conn.state.PrepareSharer(path, file, name)

	return c.conn.send(&wire.RequestFileDownload{Name: name})
}

// sayGoodbye sends Leave and gives the writer a moment to drain it.
func (c *Client) sayGoodbye() {
	if err := c.conn.send(&wire.Leave{}); err != nil {
		return
	}
	deadline := time.Now().Add(250 * time.Millisecond)
	for c.conn.writer.Pending() && time.Now().Before(deadline) {
		if _, err := c.conn.writer.Flush(); err != nil {
			return
		}
	}
}
