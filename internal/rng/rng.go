// Package rng provides the seeded pseudo-random stream shared by every peer.
//
// The stream is built from 32-bit integer arithmetic only: the seed string is
// folded with FNV-1a and advanced with mulberry32. Floats are produced by a
// single exact division by 2^32, so every platform yields the same sequence.
package rng

import (
	"hash/fnv"
	"strconv"

	"github.com/google/uuid"
)

const twoPow32 = 4294967296.0

// Stream is a deterministic random stream. It is owned by its caller and is
// never shared through package state.
type Stream struct {
	state uint32
}

// New creates a stream from a string seed.
func New(seed string) *Stream {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return &Stream{state: h.Sum32()}
}

// Uint32 advances the stream and returns the next 32-bit value.
func (s *Stream) Uint32() uint32 {
	s.state += 0x6D2B79F5
	t := s.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Next returns a float in [0,1).
func (s *Stream) Next() float64 {
	return float64(s.Uint32()) / twoPow32
}

// Intn returns an int in [0,n). It is equal to floor(Next()*n) but computed
// with integers only.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int((uint64(s.Uint32()) * uint64(n)) >> 32)
}

// Shuffle returns a permuted copy of items using a Fisher-Yates pass.
func Shuffle[T any](s *Stream, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := s.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Derive returns the seed used for a given round of a game.
func Derive(gameSeed string, round int) string {
	return gameSeed + "#" + strconv.Itoa(round)
}

// NewSeed returns a fresh, high-entropy game seed.
func NewSeed() string {
	return uuid.NewString()
}
