package peer_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"royalletters/internal/peer"
	"royalletters/internal/protocol"
)

type frame struct {
	from, to string
	env      protocol.Envelope
}

// loopNet queues every frame and delivers it only when pumped, so handlers
// never run inside each other's locks.
type loopNet struct {
	mu    sync.Mutex
	queue []frame
	nodes map[string]peer.Handler
	down  map[string]bool
}

func newLoopNet() *loopNet {
	return &loopNet{nodes: map[string]peer.Handler{}, down: map[string]bool{}}
}

func (n *loopNet) attach(id string, h peer.Handler) { n.nodes[id] = h }

func (n *loopNet) end(id string) peer.Transport { return loopEnd{net: n, id: id} }

// drop disconnects a peer and tells everyone else.
func (n *loopNet) drop(id string) {
	n.mu.Lock()
	n.down[id] = true
	n.mu.Unlock()
	for other, h := range n.nodes {
		if other != id {
			h.HandleDisconnect(id)
		}
	}
}

// reconnect brings a dropped peer back with a fresh handler.
func (n *loopNet) reconnect(id string, h peer.Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.down, id)
	n.nodes[id] = h
}

func (n *loopNet) pump(t *testing.T) {
	t.Helper()
	for i := 0; ; i++ {
		if i > 200000 {
			t.Fatal("message storm")
		}
		n.mu.Lock()
		if len(n.queue) == 0 {
			n.mu.Unlock()
			return
		}
		f := n.queue[0]
		n.queue = n.queue[1:]
		h := n.nodes[f.to]
		n.mu.Unlock()
		if h != nil {
			h.HandleMessage(f.from, f.env)
		}
	}
}

type loopEnd struct {
	net *loopNet
	id  string
}

// Send round-trips the envelope through its wire form like a socket would.
func (e loopEnd) Send(to string, env protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	parsed, err := protocol.Parse(data)
	if err != nil {
		return err
	}
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	if e.net.down[to] || e.net.down[e.id] {
		return errors.New("connection closed")
	}
	e.net.queue = append(e.net.queue, frame{from: e.id, to: to, env: parsed})
	return nil
}
