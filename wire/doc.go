// Package wire implements the framed-document protocol spoken between the
// chat server and its clients.
//
// Every message is a single BSON document: a 32-bit little-endian size
// prefix covering the whole document, followed by the document body. The
// prefix doubles as the frame header, so the stream is self-delimiting and
// each document can be parsed independently.
//
// Reading is non-blocking. Scanner keeps an internal buffer of MaxMessage
// bytes, performs at most one short read per call and surfaces
// ErrWouldBlock as a control-flow signal rather than an error condition.
// A peer announcing a document larger than MaxMessage is fatal for the
// connection (ErrMessageTooBig).
//
// Writing is atomic at the message level. Writer either places the whole
// document on the wire or keeps it in an unbounded backlog that is flushed
// opportunistically; partial frames are never observable by the peer
// between messages. TryWrite refuses new documents with ErrWouldBlock while
// a backlog exists, which gives file transfers backpressure without ever
// blocking chat traffic.
package wire
