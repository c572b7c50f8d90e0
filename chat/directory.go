// Package chat maintains the server-wide room state: who is connected,
// what they are called, and how to reach them for a broadcast.
package chat

import (
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chatfiles/wire"
)

var (
	// ErrNameForbidden indicates a display name with characters the
	// protocol reserves for addresses and file paths.
	ErrNameForbidden = errors.New("name contains forbidden characters")

	// ErrNameTaken indicates a display name another client already holds.
	ErrNameTaken = errors.New("name already taken")
)

// Peer is the write side of a connected client, as seen by the fan-out.
type Peer interface {
	// Deliver queues a message for the client. It must not block; a
	// slow client accumulates backlog until it drains or is reaped.
	Deliver(m wire.ServerMessage) error
}

// Directory is the chat room's shared state. Both maps are keyed by the
// peer address. Critical sections are kept short: callers read or clone
// what they need under the lock and act after releasing it, so a session
// write can never deadlock against a broadcast.
type Directory struct {
	mu      sync.RWMutex
	names   map[string]string
	clients map[string]Peer
}

// NewDirectory builds an empty room. The listener address is seeded into
// the names map so messages attributed to the server itself carry a
// proper label.
func NewDirectory(listenAddr string) *Directory {
	return &Directory{
		names:   map[string]string{listenAddr: "Server"},
		clients: make(map[string]Peer),
	}
}

// Name resolves the display name for an address, falling back to the
// address itself while the client has not chosen one.
func (d *Directory) Name(addr string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if name, ok := d.names[addr]; ok {
		return name
	}
	return addr
}

// AddClient registers a connected client for broadcast delivery.
func (d *Directory) AddClient(addr string, peer Peer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients[addr] = peer
}

// RemoveClient forgets a client and its chosen name. Removing an unknown
// address is a no-op.
func (d *Directory) RemoveClient(addr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.clients, addr)
	delete(d.names, addr)
}

// ClientCount returns the number of registered clients.
func (d *Directory) ClientCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.clients)
}

// Rename validates and records a new display name for addr, returning the
// name the client was known by before. Names may not contain '.' or ':'
// (they would be ambiguous against addresses and file names) and must be
// unique across the room.
func (d *Directory) Rename(addr, newName string) (string, error) {
	if strings.ContainsAny(newName, ".:") {
		return "", ErrNameForbidden
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for owner, name := range d.names {
		if name == newName && owner != addr {
			return "", ErrNameTaken
		}
	}

	oldName, ok := d.names[addr]
	if !ok {
		oldName = addr
	}
	d.names[addr] = newName

	return oldName, nil
}

// Broadcast delivers a message to every registered client and returns the
// addresses whose delivery failed, for the caller to reap. The client set
// is cloned under the read lock and delivery happens outside it.
func (d *Directory) Broadcast(m wire.ServerMessage) []string {
	d.mu.RLock()
	peers := make(map[string]Peer, len(d.clients))
	for addr, peer := range d.clients {
		peers[addr] = peer
	}
	d.mu.RUnlock()

	var failed []string
	for addr, peer := range peers {
		if err := peer.Deliver(m); err != nil {
			logrus.WithFields(logrus.Fields{
				"peer":  addr,
				"error": err.Error(),
			}).Warn("Broadcast delivery failed")
			failed = append(failed, addr)
		}
	}
	return failed
}
