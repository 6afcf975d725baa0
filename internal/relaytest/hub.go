package relaytest

import (
	"slices"
	"sync"
)

// peer is one connected client with its outbound queue.
type peer struct {
	conn     *conn
	username string
	outgoing chan []byte

	mu     sync.Mutex
	closed bool
}

// send queues data without blocking. It reports false when the queue is full
// or the peer has gone away.
func (p *peer) send(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.outgoing <- data:
		return true
	default:
		return false
	}
}

func (p *peer) shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.outgoing)
	}
}

// hub tracks connected peers by username.
type hub struct {
	mu    sync.RWMutex
	peers map[string][]*peer
	dials map[string]int
}

func newHub() *hub {
	return &hub{
		peers: make(map[string][]*peer),
		dials: make(map[string]int),
	}
}

func (h *hub) register(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p.username] = append(h.peers[p.username], p)
	h.dials[p.username]++
}

func (h *hub) unregister(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p.username] = slices.DeleteFunc(h.peers[p.username], func(q *peer) bool { return q == p })
	if len(h.peers[p.username]) == 0 {
		delete(h.peers, p.username)
	}
}

// lookup returns a snapshot of the peers for username.
func (h *hub) lookup(username string) []*peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.peers[username])
}

func (h *hub) dialCount(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dials[username]
}

func (h *hub) all() []*peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*peer
	for _, ps := range h.peers {
		out = append(out, ps...)
	}
	return out
}
