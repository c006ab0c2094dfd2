package dst

import (
	"encoding/binary"
	"math/rand/v2"
)

// Rng is the capability interface for simulation randomness — Buggify's
// fault draws and cmd/simdriver's command stream — so a DST run can use a
// seeded source and get byte-identical draws across platforms.
type Rng interface {
	Uint64() uint64
	Float64() float64
	IntN(n int) int
}

// SeededRng wraps math/rand/v2's ChaCha8 source. The spec names this exact
// generator ("a ChaCha8-style PRNG seeded from a u64. Same seed => same
// execution, cross-platform"); rand/v2 ships it as the standard library's
// own cryptographically-seedable-but-deterministic source, which is why
// this package reaches for the standard library here instead of a
// third-party generator — see DESIGN.md.
type SeededRng struct {
	r *rand.Rand
}

// NewSeededRng expands a u64 seed into the 32-byte key ChaCha8 needs and
// returns a ready-to-use Rng. The expansion is itself deterministic (a
// fixed splitmix64-style mix), so the same seed always yields the same
// 32-byte key and therefore the same stream.
func NewSeededRng(seed uint64) *SeededRng {
	var key [32]byte
	state := seed
	for i := 0; i < 4; i++ {
		state += 0x9E3779B97F4A7C15
		z := state
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		z = z ^ (z >> 31)
		binary.LittleEndian.PutUint64(key[i*8:(i+1)*8], z)
	}
	src := rand.NewChaCha8(key)
	return &SeededRng{r: rand.New(src)}
}

// Uint64 returns the next raw 64 bits from the stream.
func (s *SeededRng) Uint64() uint64 { return s.r.Uint64() }

// Float64 returns a uniform value in [0,1), used by Buggify's probability
// draws.
func (s *SeededRng) Float64() float64 { return s.r.Float64() }

// IntN returns a uniform value in [0,n), used by cmd/simdriver to pick
// keys and commands.
func (s *SeededRng) IntN(n int) int { return s.r.IntN(n) }
