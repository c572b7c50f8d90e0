package client

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chatfiles/session"
	"github.com/opd-ai/chatfiles/wire"
)

// handleServerMessage reacts to one decoded server message. Transfer
// control messages drive the sharer table; everything else is rendered to
// the console.
func (c *Client) handleServerMessage(m wire.ServerMessage) session.Status {
	conn := c.conn

	switch v := m.(type) {
	case *wire.Chunk:
		done, err := conn.state.AcceptChunk(v.Data, v.ID)
		if err != nil {
			logrus.WithField("error", err.Error()).Warn("Dropped incoming transfer")
			return session.Proceed
		}
		if done {
			if sharer := conn.state.RemoveSharer(v.ID); sharer != nil {
				sharer.Close()
				c.printf("(Console) Downloaded %s and saved to %s", sharer.Name, sharer.Path)
			}
		}
		return session.Proceed

	case *wire.AgreeFileUpload:
		if sharer := conn.state.RemoveSharer(v.ID); sharer != nil {
			conn.state.EnqueueSending(sharer)
		}
		return session.Proceed

	case *wire.DeclineFileUpload:
		if sharer := conn.state.RemoveSharer(v.ID); sharer != nil {
			sharer.Close()
			c.printf("(Server) Nah, wait with your #%s. %s", sharer.Name, v.Reason)
		}
		return session.Proceed

	case *wire.ServerAgreeFileDownload:
		conn.state.PromoteSharer(v.Name, v.Size, v.ID)
		if err := conn.send(&wire.AgreeFileDownload{ID: v.ID}); err != nil {
			logrus.WithField("error", err.Error()).Warn("Cannot confirm download")
			return session.Stop
		}
		return session.Proceed

	case *wire.ServerDeclineFileDownload:
		if sharer := conn.state.RemoveUnpromotedSharer(v.Name); sharer != nil {
			sharer.Close()
		}
		c.printf("(Server) Nah, I won't give you %s. %s", v.Name, v.Reason)
		return session.Proceed

	default:
		c.render(m)
		return session.Proceed
	}
}

// render prints a chat event the way the console presents server state.
func (c *Client) render(m wire.ServerMessage) {
	switch v := m.(type) {
	case *wire.ServerText:
		c.printf("<%s> %s > %s", v.Time.Local().Format("15:04:05"), v.Name, v.Text)
	case *wire.NewUser:
		c.printf("<%s> New User > %s", v.Time.Local().Format("15:04:05"), v.Name)
	case *wire.UserLeaves:
		c.printf("<%s> User Leaves > %s", v.Time.Local().Format("15:04:05"), v.Name)
	case *wire.Interrupt:
		c.printf("<%s> Interrupted > %s", v.Time.Local().Format("15:04:05"), v.Name)
	case *wire.Support:
		c.printf("(Server) %s", v.Text)
	case *wire.UserRenamed:
		c.printf("(Server) %s is now known as %s", v.OldName, v.NewName)
	case *wire.NewFile:
		c.printf("(Server) New file available > %s", v.Name)
	default:
		c.printf("(Server) %v", m)
	}
}

func (c *Client) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format+"\n", args...)
}
