package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"royalletters/internal/peer"
	"royalletters/internal/protocol"
)

var (
	ErrUnknownPeer = errors.New("unknown peer")
	ErrSlowPeer    = errors.New("peer send buffer full")
)

// Hub carries the websocket traffic of one room. It delivers frames to the
// room's handler from a single goroutine and implements peer.Transport for
// the way back.
type Hub struct {
	mu         sync.Mutex
	roomID     string
	handler    peer.Handler
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	incoming   chan IncomingMessage
	done       chan struct{}
	log        *zap.Logger
}

func NewHub(roomID string, log *zap.Logger) *Hub {
	return &Hub{
		roomID:     roomID,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		incoming:   make(chan IncomingMessage, 256),
		done:       make(chan struct{}),
		log:        log.With(zap.String("room", roomID)),
	}
}

// SetHandler must be called before Run.
func (h *Hub) SetHandler(handler peer.Handler) {
	h.handler = handler
}

// Run dispatches until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.PeerID]; ok {
				h.log.Info("replacing connection", zap.String("peer", c.PeerID))
				close(old.send)
			}
			h.clients[c.PeerID] = c
			h.mu.Unlock()
			h.handler.HandleConnect(c.PeerID)

		case c := <-h.unregister:
			h.mu.Lock()
			current := h.clients[c.PeerID] == c
			if current {
				delete(h.clients, c.PeerID)
				close(c.send)
			}
			h.mu.Unlock()
			if current {
				h.handler.HandleDisconnect(c.PeerID)
			}

		case msg := <-h.incoming:
			h.handler.HandleMessage(msg.Client.PeerID, msg.Envelope)

		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Attach hands a new client to the run loop. It reports false once the hub
// has stopped.
func (h *Hub) Attach(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Send queues an envelope for a connected peer without blocking.
func (h *Hub) Send(peerID string, env protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Type, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[peerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, peerID)
	}
	select {
	case c.send <- data:
		return nil
	default:
		h.log.Warn("send buffer full, dropping message", zap.String("peer", peerID), zap.String("type", env.Type))
		return fmt.Errorf("%w: %s", ErrSlowPeer, peerID)
	}
}

// Connected lists the peers with an open connection.
func (h *Hub) Connected() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
