// Package random provides the die and coin generators used by the tracker's
// randomizer tools.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
)

// Source is the randomness provider for rolls and flips.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n). n must be > 0.
	Intn(n int) int
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// NewSource returns a deterministic Source for the given seed.
func NewSource(seed int64) Source {
	return &lockedSource{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))}
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewSeededSource returns a Source seeded from crypto/rand. If the system
// entropy source fails it falls back to the runtime-seeded generator.
func NewSeededSource() Source {
	seed, err := NewSeed()
	if err != nil {
		return &lockedSource{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return NewSource(seed)
}

// DieFaces lists the dice the randomizer offers.
var DieFaces = []int{4, 6, 8, 10, 12, 20}

// ErrInvalidDie indicates a die size outside DieFaces.
var ErrInvalidDie = errors.New("die must have 4, 6, 8, 10, 12 or 20 faces")

// ValidDie reports whether faces is one of DieFaces.
func ValidDie(faces int) bool {
	return slices.Contains(DieFaces, faces)
}

// Coin is the result of a coin flip.
type Coin string

const (
	Heads Coin = "Heads"
	Tails Coin = "Tails"
)

func (c Coin) String() string {
	return string(c)
}

// Roller produces uniformly distributed die and coin results.
type Roller struct {
	src Source
}

// NewRoller creates a roller over src. A nil src uses a crypto-seeded source.
func NewRoller(src Source) *Roller {
	if src == nil {
		src = NewSeededSource()
	}
	return &Roller{src: src}
}

// RollDie returns a value in [1, faces].
func (r *Roller) RollDie(faces int) (int, error) {
	if !ValidDie(faces) {
		return 0, ErrInvalidDie
	}
	return r.src.Intn(faces) + 1, nil
}

// FlipCoin returns Heads or Tails with equal probability.
func (r *Roller) FlipCoin() Coin {
	if r.src.Intn(2) == 0 {
		return Heads
	}
	return Tails
}

// Source exposes the underlying randomness, used for cosmetic frames.
func (r *Roller) Source() Source {
	return r.src
}
