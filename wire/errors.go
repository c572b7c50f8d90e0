package wire

import "errors"

var (
	// ErrWouldBlock indicates that no complete document is available right
	// now. It is normal flow control, never a failure.
	ErrWouldBlock = errors.New("operation would block")

	// ErrNothingToRead indicates that the peer closed the connection,
	// orderly or not, and no further documents will arrive.
	ErrNothingToRead = errors.New("nothing to read: peer closed the connection")

	// ErrMessageTooBig indicates a size prefix over MaxMessage. The
	// document is never delivered; the connection must be dropped.
	ErrMessageTooBig = errors.New("message size exceeds the per-frame ceiling")

	// ErrMalformedMessage indicates a document that carries a valid size
	// prefix but cannot be decoded into a known message.
	ErrMalformedMessage = errors.New("malformed message")
)
