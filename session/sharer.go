// Package session holds the per-connection state shared by the server and
// the client: the transfer id counter, the file-sharer table and the
// sending queue, together with the chunk pump that drives outgoing
// transfers without blocking the owning event loop.
package session

import (
	"os"
	"time"
)

// FileSharer is the bookkeeping record for one in-flight file transfer on
// one connection. It owns its file handle; every removal path must end in
// Close.
//
// A sharer starts prepared (keyed by file name, size and id unset), is
// promoted once the size and transfer id are known (re-keyed by the
// stringified id) and disappears when the last byte has been written or
// sent, or when the transfer is declined.
type FileSharer struct {
	// Name is the transfer's display name: the file name used on the wire.
	Name string
	// Path is where the bytes live or arrive on the local filesystem.
	Path string
	// File is the open handle, readable for outgoing transfers and
	// writable for incoming ones.
	File *os.File
	// Size is the total byte count of the transfer, fixed at promotion.
	Size int64
	// ID is the transfer id, 0 until promotion.
	ID int64
	// Written counts the bytes accumulated (incoming) or sent (outgoing).
	Written int64

	lastReport time.Time
}

// Rest returns how many bytes the transfer still needs.
func (s *FileSharer) Rest() int64 {
	return s.Size - s.Written
}

// Percent returns the transfer progress in whole percent.
func (s *FileSharer) Percent() int64 {
	if s.Size == 0 {
		return 100
	}
	return s.Written * 100 / s.Size
}

// Done reports whether every byte has been accounted for.
func (s *FileSharer) Done() bool {
	return s.Written >= s.Size
}

// Close releases the file handle.
func (s *FileSharer) Close() error {
	if s.File == nil {
		return nil
	}
	return s.File.Close()
}
