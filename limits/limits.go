// Package limits provides centralized size limits for the chat protocol.
// This ensures consistent validation across the server, the client and the
// wire codec.
package limits

import (
	"errors"
	"time"
)

const (
	// MaxMessage is the hard ceiling for a single framed document on the
	// wire. The frame scanner refuses any document whose announced size
	// exceeds it, which bounds per-connection buffer memory.
	MaxMessage = 1024

	// TextEnvelope is the framing overhead of a server Text document
	// (variant key, field keys, name and timestamp fields). Found
	// empirically against the wire encoding.
	TextEnvelope = 52

	// MaxText is the longest chat text accepted from a client. Half of
	// the remaining budget is reserved for the sender's display name.
	MaxText = (MaxMessage - TextEnvelope) / 2

	// MaxName is the longest display name a client may take.
	MaxName = MaxText

	// UploadEnvelope is the framing overhead of a RequestFileUpload
	// document around its name field.
	UploadEnvelope = 66

	// MaxFileName is the longest file name accepted in transfer requests.
	MaxFileName = MaxMessage - UploadEnvelope

	// ChunkSize is the payload size of one transfer chunk. It is a
	// protocol constant: changing it changes wire behavior.
	ChunkSize = 100

	// DefaultPort is the TCP port the server binds when none is given.
	DefaultPort = 6969

	// IdleWait is how long an event loop sleeps after a tick in which
	// nothing progressed.
	IdleWait = 16 * time.Millisecond
)

var (
	// ErrTextTooLong indicates a chat text over MaxText bytes.
	ErrTextTooLong = errors.New("text exceeds maximum length")

	// ErrNameTooLong indicates a display name over MaxName bytes.
	ErrNameTooLong = errors.New("name exceeds maximum length")

	// ErrFileNameTooLong indicates a file name over MaxFileName bytes.
	ErrFileNameTooLong = errors.New("file name exceeds maximum length")
)

// ValidateText validates a chat text against MaxText.
func ValidateText(text string) error {
	if len(text) > MaxText {
		return ErrTextTooLong
	}
	return nil
}

// ValidateName validates a display name against MaxName.
func ValidateName(name string) error {
	if len(name) > MaxName {
		return ErrNameTooLong
	}
	return nil
}

// ValidateFileName validates a transfer file name against MaxFileName.
func ValidateFileName(name string) error {
	if len(name) > MaxFileName {
		return ErrFileNameTooLong
	}
	return nil
}
