package session

import (
	"fmt"
	"os"
	"strconv"
)

// Status tells the outer event loop what to do after a handler ran.
type Status int

const (
	// Proceed means the tick made progress; loop again immediately.
	Proceed Status = iota
	// Idle means nothing happened; the loop may sleep before retrying.
	Idle
	// Stop means the session is finished and must be torn down.
	Stop
)

// Session is the per-connection transfer state. The reading map holds
// sharers keyed by file name while prepared and by stringified transfer id
// once promoted; the sending queue holds sharers whose counterpart agreed
// to receive them.
//
// A Session is owned by its connection's loop tick and needs no lock.
type Session struct {
	nextID  int64
	reading map[string]*FileSharer
	sending []*FileSharer
}

// New returns an empty session state.
func New() *Session {
	return &Session{reading: make(map[string]*FileSharer)}
}

// FreeID hands out the next transfer id. Ids are monotonic per connection
// and never reused.
func (s *Session) FreeID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// PrepareSharer registers a transfer under its file name, before the size
// and id are known. The handle is owned by the sharer from this point on.
func (s *Session) PrepareSharer(path string, file *os.File, name string) {
	s.reading[name] = &FileSharer{
		Name: name,
		Path: path,
		File: file,
	}
}

// PromoteSharer re-keys the named transfer under its id and fixes its
// size. A missing name is a no-op: the counterpart may have declined the
// transfer already.
func (s *Session) PromoteSharer(name string, size, id int64) {
	sharer, ok := s.reading[name]
	if !ok {
		return
	}
	delete(s.reading, name)

	sharer.Size = size
	sharer.ID = id
	s.reading[sharerKey(id)] = sharer
}

// AcceptChunk writes an incoming fragment to the transfer's file,
// truncating against the remaining byte budget so a peer can never write
// past the advertised size. It reports whether the transfer is complete.
// An unknown id is a no-op: chunks may trail a declined transfer.
func (s *Session) AcceptChunk(data []byte, id int64) (bool, error) {
	sharer, ok := s.reading[sharerKey(id)]
	if !ok {
		return false, nil
	}

	count := int64(len(data))
	if rest := sharer.Rest(); count > rest {
		count = rest
	}

	if _, err := sharer.File.Write(data[:count]); err != nil {
		delete(s.reading, sharerKey(id))
		sharer.Close()
		return false, fmt.Errorf("transfer %d: %w", id, err)
	}
	sharer.Written += count

	return sharer.Done(), nil
}

// RemoveUnpromotedSharer removes and returns the transfer still keyed by
// its file name, or nil.
func (s *Session) RemoveUnpromotedSharer(name string) *FileSharer {
	sharer, ok := s.reading[name]
	if !ok {
		return nil
	}
	delete(s.reading, name)
	return sharer
}

// RemoveSharer removes and returns the promoted transfer, or nil.
func (s *Session) RemoveSharer(id int64) *FileSharer {
	sharer, ok := s.reading[sharerKey(id)]
	if !ok {
		return nil
	}
	delete(s.reading, sharerKey(id))
	return sharer
}

// EnqueueSending appends a transfer to the send queue.
func (s *Session) EnqueueSending(sharer *FileSharer) {
	s.sending = append(s.sending, sharer)
}

// SendingCount returns the number of queued outgoing transfers.
func (s *Session) SendingCount() int {
	return len(s.sending)
}

// Abort releases every handle the session still holds. Called on teardown;
// in-flight transfers on a dead connection are simply dropped.
func (s *Session) Abort() {
	for key, sharer := range s.reading {
		sharer.Close()
		delete(s.reading, key)
	}
	for _, sharer := range s.sending {
		sharer.Close()
	}
	s.sending = nil
}

func sharerKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
