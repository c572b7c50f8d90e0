package session

import (
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chatfiles/limits"
	"github.com/opd-ai/chatfiles/wire"
)

// ChunkWriter places one transfer chunk on the connection, wrapped for
// whichever direction the owner speaks. It must report wire.ErrWouldBlock
// instead of queueing when the connection has backlog.
type ChunkWriter interface {
	TryWriteChunk(data []byte, id int64) error
}

// progressInterval spaces the per-transfer progress log lines.
const progressInterval = time.Second

// PumpSending advances every queued outgoing transfer by at most one
// chunk. A would-block on the connection rewinds the file to the last
// confirmed offset so the next attempt resends exactly the same bytes;
// interleaving one chunk per transfer per tick keeps concurrent transfers
// and chat traffic free of head-of-line blocking.
//
// It reports whether any transfer made progress. Completed and failed
// transfers are removed after the pass.
func (s *Session) PumpSending(cw ChunkWriter) bool {
	if len(s.sending) == 0 {
		return false
	}

	progressed := false
	kept := s.sending[:0]

	for _, sharer := range s.sending {
		buf := make([]byte, limits.ChunkSize)
		n, err := sharer.File.Read(buf)
		if err != nil && err != io.EOF {
			logrus.WithFields(logrus.Fields{
				"transfer": sharer.ID,
				"file":     sharer.Path,
				"error":    err.Error(),
			}).Warn("Dropping transfer after read failure")
			sharer.Close()
			continue
		}
		if n == 0 {
			if sharer.Done() {
				sharer.Close()
				progressed = true
				continue
			}
			// The file ended short of the advertised size; nothing
			// sensible can follow, drop the transfer.
			logrus.WithFields(logrus.Fields{
				"transfer": sharer.ID,
				"file":     sharer.Path,
				"written":  sharer.Written,
				"size":     sharer.Size,
			}).Warn("Dropping transfer: file ended early")
			sharer.Close()
			continue
		}

		werr := cw.TryWriteChunk(buf[:n], sharer.ID)
		if errors.Is(werr, wire.ErrWouldBlock) {
			// Rewind so the next chunk starts exactly where the last
			// confirmed one ended.
			if _, serr := sharer.File.Seek(sharer.Written, io.SeekStart); serr != nil {
				logrus.WithFields(logrus.Fields{
					"transfer": sharer.ID,
					"file":     sharer.Path,
					"error":    serr.Error(),
				}).Warn("Dropping transfer after seek failure")
				sharer.Close()
				continue
			}
			kept = append(kept, sharer)
			continue
		}
		if werr != nil {
			logrus.WithFields(logrus.Fields{
				"transfer": sharer.ID,
				"file":     sharer.Path,
				"error":    werr.Error(),
			}).Warn("Dropping transfer after write failure")
			sharer.Close()
			continue
		}

		sharer.Written += int64(n)
		progressed = true
		s.reportProgress(sharer)

		if sharer.Done() {
			sharer.Close()
			logrus.WithFields(logrus.Fields{
				"transfer": sharer.ID,
				"file":     sharer.Path,
			}).Info("Transfer sent")
			continue
		}
		kept = append(kept, sharer)
	}

	// Truncate in place; removal is deferred to here to keep the pass
	// over the queue stable.
	for i := len(kept); i < len(s.sending); i++ {
		s.sending[i] = nil
	}
	s.sending = kept

	return progressed
}

func (s *Session) reportProgress(sharer *FileSharer) {
	now := time.Now()
	if now.Sub(sharer.lastReport) < progressInterval {
		return
	}
	sharer.lastReport = now

	logrus.WithFields(logrus.Fields{
		"transfer": sharer.ID,
		"percent":  sharer.Percent(),
	}).Info("Transfer progress")
}
