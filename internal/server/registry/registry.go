// Package registry tracks the authenticated sessions that are currently
// connected, keyed by user identity.
package registry

import (
	"errors"
	"sync"
)

// ErrOffline is returned by SendTo when nobody is registered under the email.
var ErrOffline = errors.New("user offline")

// Peer is the part of a session the registry needs: a way to push a line.
// Push runs under the registry read lock, so it must be bounded by a short
// deadline.
type Peer interface {
	Push(line string) error
}

type Registry struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

func New() *Registry {
	return &Registry{peers: make(map[string]Peer)}
}

// Register stores p under email and returns the peer it displaced, if any.
func (r *Registry) Register(email string, p Peer) (replaced Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	replaced = r.peers[email]
	r.peers[email] = p
	if replaced == p {
		return nil
	}
	return replaced
}

// Deregister removes email only while it still maps to p, so a displaced
// session cannot remove its successor.
func (r *Registry) Deregister(email string, p Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.peers[email]; ok && cur == p {
		delete(r.peers, email)
		return true
	}
	return false
}

// SendTo pushes line to the peer registered under email. The lookup and the
// send happen under the read lock, so the peer cannot be swapped in between.
// A stalled receiver holds the read lock until its push deadline expires,
// which also delays a pending Register or Deregister.
func (r *Registry) SendTo(email, line string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.peers[email]
	if !ok {
		return ErrOffline
	}
	return p.Push(line)
}

func (r *Registry) IsOnline(email string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.peers[email]
	return ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.peers)
}
