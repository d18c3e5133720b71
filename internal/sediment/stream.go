package sediment

import "github.com/nvandessel/geomood/internal/models"

const (
	fnvOffset = 0x811c9dc5
	fnvPrime  = 0x01000193

	mixA = 2246822507
	mixB = 3266489909

	twoPow32 = 4294967296.0
)

// Stream is a per-entry pseudo-random sequence. The zero value always draws
// 0; use NewStream.
type Stream struct {
	state uint32
}

// NewStream seeds a stream by folding the UTF-16 code units of seed into an
// FNV-1a accumulator.
func NewStream(seed string) Stream {
	h := uint32(fnvOffset)
	for _, c := range models.CodeUnits(seed) {
		h ^= uint32(c)
		h *= fnvPrime
	}
	return Stream{state: h}
}

// State returns the current 32-bit state.
func (s *Stream) State() uint32 {
	return s.state
}

// Float64 advances the stream and returns a value in [0,1).
func (s *Stream) Float64() float64 {
	h := s.state
	h = (h ^ (h >> 16)) * mixA
	h = (h ^ (h >> 13)) * mixB
	s.state = h
	return float64(h) / twoPow32
}

// Intn advances the stream and returns a value in [0,n). n must be positive.
func (s *Stream) Intn(n int) int {
	return int(s.Float64() * float64(n))
}
