// Package peer implements host-authoritative replication of a game between
// peers. The Host owns the only engine whose state is trusted; every Mirror
// submits candidate actions to it and adopts what it broadcasts.
package peer

import "royalletters/internal/protocol"

//go:generate go tool mockgen -destination=./mocks/transport_mock.go -package=mocks . Transport

// Transport delivers envelopes to connected peers. Delivery within one
// connection is FIFO.
type Transport interface {
	Send(peerID string, env protocol.Envelope) error
}

// Handler receives what a transport reads. Transports call it from a single
// goroutine per connection.
type Handler interface {
	HandleConnect(peerID string)
	HandleMessage(from string, env protocol.Envelope)
	HandleDisconnect(peerID string)
}
