package server

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chatfiles/chat"
	"github.com/opd-ai/chatfiles/limits"
	"github.com/opd-ai/chatfiles/session"
	"github.com/opd-ai/chatfiles/wire"
)

// Rejection wordings are part of the user-visible protocol surface.
const (
	reasonNameForbidden = "Your name can't contain '.'s or ':'s"
	reasonNameTaken     = "This name has already been taken, choose another one"
	reasonFileExists    = "A file with this name already exists"
	reasonNoSuchFile    = "There is no such file in the store"
	welcomeText         = "Welcome to the club, mate"
)

// handleMessage dispatches one decoded client message. The returned status
// tells the loop whether the session survives the message.
func (s *Server) handleMessage(c *clientSession, m wire.ClientMessage) session.Status {
	switch v := m.(type) {
	case *wire.Text:
		return s.handleText(c, v)
	case *wire.Leave:
		return s.handleLeave(c)
	case *wire.Rename:
		return s.handleRename(c, v)
	case *wire.RequestFileUpload:
		return s.handleUploadRequest(c, v)
	case *wire.RequestFileDownload:
		return s.handleDownloadRequest(c, v)
	case *wire.AgreeFileDownload:
		if sharer := c.state.RemoveSharer(v.ID); sharer != nil {
			c.state.EnqueueSending(sharer)
		}
		return session.Proceed
	case *wire.DeclineFileDownload:
		if sharer := c.state.RemoveSharer(v.ID); sharer != nil {
			sharer.Close()
		}
		return session.Proceed
	case *wire.Chunk:
		return s.handleChunk(c, v)
	default:
		logrus.WithField("peer", c.addr).Warn("Ignoring unexpected client message")
		return session.Proceed
	}
}

func (s *Server) handleText(c *clientSession, m *wire.Text) session.Status {
	name := s.dir.Name(c.addr)

	if err := limits.ValidateText(m.Text); err != nil {
		return s.punishViolation(c, name, err)
	}

	logrus.WithFields(logrus.Fields{
		"peer": c.addr,
		"name": name,
		"text": m.Text,
	}).Info("Message")

	s.broadcast(&wire.ServerText{Text: m.Text, Name: name, Time: time.Now()})
	return session.Proceed
}

func (s *Server) handleLeave(c *clientSession) session.Status {
	name := s.dir.Name(c.addr)
	s.dir.RemoveClient(c.addr)

	logrus.WithFields(logrus.Fields{
		"peer": c.addr,
		"name": name,
	}).Info("User leaves")

	s.broadcast(&wire.UserLeaves{Name: name, Time: time.Now()})
	return session.Stop
}

func (s *Server) handleRename(c *clientSession, m *wire.Rename) session.Status {
	name := s.dir.Name(c.addr)

	if err := limits.ValidateName(m.NewName); err != nil {
		return s.punishViolation(c, name, err)
	}

	oldName, err := s.dir.Rename(c.addr, m.NewName)
	if err != nil {
		reason := reasonNameForbidden
		if errors.Is(err, chat.ErrNameTaken) {
			reason = reasonNameTaken
		}
		c.Deliver(&wire.Support{Text: reason})
		return session.Proceed
	}

	logrus.WithFields(logrus.Fields{
		"peer": c.addr,
		"old":  oldName,
		"new":  m.NewName,
	}).Info("User renamed")

	s.broadcast(&wire.UserRenamed{OldName: oldName, NewName: m.NewName})
	return session.Proceed
}

func (s *Server) handleUploadRequest(c *clientSession, m *wire.RequestFileUpload) session.Status {
	name := s.dir.Name(c.addr)

	if err := limits.ValidateFileName(m.Name); err != nil {
		return s.punishViolation(c, name, err)
	}

	path := s.storePath(m.Name)
	if _, err := os.Stat(path); err == nil {
		c.Deliver(&wire.DeclineFileUpload{ID: m.ID, Reason: reasonFileExists})
		return session.Proceed
	}

	file, err := os.Create(path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"peer":  c.addr,
			"file":  m.Name,
			"error": err.Error(),
		}).Warn("Cannot create upload target")
		c.Deliver(&wire.DeclineFileUpload{ID: m.ID, Reason: err.Error()})
		return session.Proceed
	}

	c.state.PrepareSharer(path, file, m.Name)
	c.state.PromoteSharer(m.Name, m.Size, m.ID)
	c.Deliver(&wire.AgreeFileUpload{ID: m.ID})

	logrus.WithFields(logrus.Fields{
		"peer": c.addr,
		"name": name,
		"file": m.Name,
		"size": m.Size,
	}).Info("Upload accepted")

	return session.Proceed
}

func (s *Server) handleDownloadRequest(c *clientSession, m *wire.RequestFileDownload) session.Status {
	name := s.dir.Name(c.addr)

	if err := limits.ValidateFileName(m.Name); err != nil {
		return s.punishViolation(c, name, err)
	}

	path := s.storePath(m.Name)
	info, err := os.Stat(path)
	if err != nil {
		c.Deliver(&wire.ServerDeclineFileDownload{Name: m.Name, Reason: reasonNoSuchFile})
		return session.Proceed
	}

	file, err := os.Open(path)
	if err != nil {
		c.Deliver(&wire.ServerDeclineFileDownload{Name: m.Name, Reason: err.Error()})
		return session.Proceed
	}

	id := c.state.FreeID()
	c.state.PrepareSharer(path, file, m.Name)
	c.state.PromoteSharer(m.Name, info.Size(), id)
	c.Deliver(&wire.ServerAgreeFileDownload{Name: m.Name, Size: info.Size(), ID: id})

	logrus.WithFields(logrus.Fields{
		"peer": c.addr,
		"name": name,
		"file": m.Name,
		"size": info.Size(),
	}).Info("Download offered")

	return session.Proceed
}

func (s *Server) handleChunk(c *clientSession, m *wire.Chunk) session.Status {
	done, err := c.state.AcceptChunk(m.Data, m.ID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"peer":  c.addr,
			"error": err.Error(),
		}).Warn("Dropped incoming transfer")
		return session.Proceed
	}
	if !done {
		return session.Proceed
	}

	sharer := c.state.RemoveSharer(m.ID)
	if sharer == nil {
		return session.Proceed
	}
	sharer.Close()

	logrus.WithFields(logrus.Fields{
		"peer": c.addr,
		"file": sharer.Name,
	}).Info("Upload finished")

	s.broadcast(&wire.NewFile{Name: sharer.Name})
	return session.Proceed
}

// punishViolation handles a size-bound violation: the offender is removed
// from the room, the violation is logged and the room sees an interrupt.
func (s *Server) punishViolation(c *clientSession, name string, err error) session.Status {
	s.dir.RemoveClient(c.addr)

	logrus.WithFields(logrus.Fields{
		"peer":  c.addr,
		"name":  name,
		"error": err.Error(),
	}).Warn("Terminating session: size bound violated")

	s.broadcast(&wire.Interrupt{Name: name, Time: time.Now()})
	return session.Stop
}

// storePath maps a wire file name onto the server's store directory. The
// name is used as the client supplied it, which keeps the store layout
// compatible with the original protocol; callers on hostile networks
// should run the server in a dedicated directory.
func (s *Server) storePath(name string) string {
	return filepath.Join(s.storeDir, name)
}
