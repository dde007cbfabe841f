package server

import "github.com/google/uuid"

// NewPeerID creates a unique peer ID for a guest that brings none.
func NewPeerID() string {
	return uuid.NewString()
}
