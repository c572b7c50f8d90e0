// Package server implements the chat service: a single cooperative poll
// loop that accepts connections, dispatches client messages, fans out
// broadcasts and drives outgoing file transfers.
package server

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chatfiles/chat"
	"github.com/opd-ai/chatfiles/limits"
	"github.com/opd-ai/chatfiles/session"
	"github.com/opd-ai/chatfiles/wire"
)

// acceptTimeout bounds a single accept attempt inside a loop tick.
const acceptTimeout = time.Millisecond

// Server is the chat service. One Server owns one listener, the room
// directory and every client session; everything runs on the goroutine
// that calls Run.
type Server struct {
	listener *net.TCPListener
	dir      *chat.Directory
	sessions map[string]*clientSession
	storeDir string
	quit     chan struct{}
}

// New binds the listener and prepares an empty room. storeDir is where
// uploaded files land and downloads are served from; an empty value means
// the working directory.
func New(listenAddr, storeDir string) (*Server, error) {
	addr, err := net.ResolveTCPAddr("tcp", listenAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", listenAddr)
	}

	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", listenAddr)
	}

	if storeDir == "" {
		storeDir = "."
	}

	return &Server{
		listener: listener,
		dir:      chat.NewDirectory(listener.Addr().String()),
		sessions: make(map[string]*clientSession),
		storeDir: storeDir,
		quit:     make(chan struct{}),
	}, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop makes Run return after its current tick.
func (s *Server) Stop() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
}

// Run drives the poll loop until Stop is called. Each tick performs one
// accept attempt, one read attempt per session, one pump pass per
// session, and sleeps only when nothing at all progressed.
func (s *Server) Run() error {
	defer s.shutdown()

	logrus.WithField("listen", s.listener.Addr().String()).Info("Server running")

	for {
		select {
		case <-s.quit:
			return nil
		default:
		}

		progressed := s.acceptOne()

		dead := make(map[string]bool)
		for addr, c := range s.sessions {
			status, didWork := s.serveOne(c)
			progressed = progressed || didWork
			if status == session.Stop {
				dead[addr] = true
			}
		}

		for addr, c := range s.sessions {
			if dead[addr] {
				continue
			}
			if c.state.PumpSending(c) {
				progressed = true
			}
			n, err := c.writer.Flush()
			if n > 0 {
				progressed = true
			}
			if err != nil {
				s.interrupt(c)
				dead[addr] = true
			}
		}

		// Sessions are collected only after the pass so that iteration
		// stays safe and broadcasts see a consistent room.
		for addr := range dead {
			if c, ok := s.sessions[addr]; ok {
				c.teardown()
				delete(s.sessions, addr)
			}
		}

		if !progressed {
			time.Sleep(limits.IdleWait)
		}
	}
}

// acceptOne performs a single bounded accept attempt and greets the new
// client if one arrived.
func (s *Server) acceptOne() bool {
	if err := s.listener.SetDeadline(time.Now().Add(acceptTimeout)); err != nil {
		return false
	}

	conn, err := s.listener.AcceptTCP()
	if err != nil {
		// A timeout just means nobody is knocking.
		return false
	}

	c := newClientSession(conn)
	s.sessions[c.addr] = c
	s.dir.AddClient(c.addr, c)

	logrus.WithField("peer", c.addr).Info("New user")

	s.broadcast(&wire.NewUser{Name: s.dir.Name(c.addr), Time: time.Now()})
	c.Deliver(&wire.Support{Text: welcomeText})

	return true
}

// serveOne performs a single read attempt on the session and dispatches
// whatever arrived. The second result reports whether anything happened.
func (s *Server) serveOne(c *clientSession) (session.Status, bool) {
	doc, err := c.scanner.Scan()
	if err != nil {
		switch {
		case errors.Is(err, wire.ErrWouldBlock):
			return session.Idle, false
		default:
			// Peer closed, oversized announcement, or garbage on the
			// wire: all take the interrupt path.
			logrus.WithFields(logrus.Fields{
				"peer":  c.addr,
				"name":  s.dir.Name(c.addr),
				"error": err.Error(),
			}).Warn("Session read failed")
			s.interrupt(c)
			return session.Stop, true
		}
	}

	m, err := wire.DecodeClientMessage(doc)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"peer":  c.addr,
			"error": err.Error(),
		}).Warn("Undecodable client message")
		s.interrupt(c)
		return session.Stop, true
	}

	return s.handleMessage(c, m), true
}

// interrupt removes the session from the room and tells everyone left.
// The removal happens first so the interrupted peer is not counted in the
// fan-out that announces it.
func (s *Server) interrupt(c *clientSession) {
	name := s.dir.Name(c.addr)
	s.dir.RemoveClient(c.addr)
	s.broadcast(&wire.Interrupt{Name: name, Time: time.Now()})
}

// broadcast fans a message out to the room. A failed recipient is dropped
// from the room right away; its writer failure is sticky, so the session
// takes the interrupt path on its next flush or read attempt.
func (s *Server) broadcast(m wire.ServerMessage) {
	for _, addr := range s.dir.Broadcast(m) {
		s.dir.RemoveClient(addr)
	}
}

func (s *Server) shutdown() {
	s.listener.Close()
	for addr, c := range s.sessions {
		c.teardown()
		delete(s.sessions, addr)
	}
	logrus.Info("Server stopped")
}
