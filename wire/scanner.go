package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/opd-ai/chatfiles/limits"
)

// pollTimeout bounds a single read or write attempt inside a loop tick.
// It must stay well under limits.IdleWait so a slow peer cannot stall
// the loop noticeably.
const pollTimeout = time.Millisecond

// headerSize is the width of the little-endian size prefix. The prefix
// counts itself, so the announced size always includes these bytes plus
// the body that follows.
const headerSize = 4

// minDocumentSize is the smallest valid BSON document: the prefix plus a
// terminating zero byte.
const minDocumentSize = 5

// Scanner reads framed documents from a connection without ever blocking
// past pollTimeout. It owns a buffer of exactly limits.MaxMessage bytes;
// each Scan call performs at most one read into the unused space, then
// tries to cut a complete document out of the front of the buffer.
//
// A Scanner is owned by its session's loop tick and is not safe for
// concurrent use.
type Scanner struct {
	conn   net.Conn
	buf    [limits.MaxMessage]byte
	filled int
	closed bool
}

// NewScanner wraps a connection in a bounded-buffer frame scanner.
func NewScanner(conn net.Conn) *Scanner {
	return &Scanner{conn: conn}
}

// Scan returns the next complete document, ErrWouldBlock when the stream
// has no new bytes and no buffered document is ready, ErrNothingToRead
// once the peer has closed, or ErrMessageTooBig for an announced size over
// limits.MaxMessage.
func (s *Scanner) Scan() (bson.Raw, error) {
	if !s.closed && s.filled < len(s.buf) {
		if err := s.conn.SetReadDeadline(time.Now().Add(pollTimeout)); err != nil {
			s.closed = true
		} else {
			n, err := s.conn.Read(s.buf[s.filled:])
			s.filled += n
			if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
				if isPeerGone(err) {
					s.closed = true
				} else {
					return nil, fmt.Errorf("read: %w", err)
				}
			}
		}
	}

	return s.extract()
}

// extract cuts one document off the front of the buffer, if complete.
func (s *Scanner) extract() (bson.Raw, error) {
	if s.filled < headerSize {
		return nil, s.starved()
	}

	size := int(binary.LittleEndian.Uint32(s.buf[:headerSize]))
	if size > limits.MaxMessage {
		return nil, ErrMessageTooBig
	}
	if size < minDocumentSize {
		return nil, fmt.Errorf("%w: announced size %d", ErrMalformedMessage, size)
	}
	if s.filled < size {
		return nil, s.starved()
	}

	doc := make(bson.Raw, size)
	copy(doc, s.buf[:size])
	copy(s.buf[:], s.buf[size:s.filled])
	s.filled -= size

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return doc, nil
}

// starved distinguishes "try again later" from "the peer is gone". Bytes
// of an unfinished document left behind by a closing peer are discarded.
func (s *Scanner) starved() error {
	if s.closed {
		return ErrNothingToRead
	}
	return ErrWouldBlock
}

func isPeerGone(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
