package proxy

import (
	"net"
	"sync"
)

// registry is the set of live client connections for one listener.
//
// The lock is never held while closing a connection.
type registry struct {
	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

func newRegistry() *registry {
	return &registry{conns: make(map[net.Conn]struct{})}
}

// Add registers c. It reports false once CloseAll has run, in which case the
// caller owns closing c.
func (r *registry) Add(c net.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.conns[c] = struct{}{}
	return true
}

func (r *registry) Remove(c net.Conn) {
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
}

func (r *registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll closes every registered connection and refuses later Adds.
// Handlers may be closing the same connections concurrently; errors from
// Close are ignored.
func (r *registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[net.Conn]struct{})
	r.closed = true
	r.mu.Unlock()

	for c := range conns {
		_ = c.Close()
	}
}
