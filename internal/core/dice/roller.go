// Package dice provides the random draws used by raid resolution.
package dice

//go:generate go tool mockgen -destination=./mocks/roller_mock.go -package=mocks . Roller

import (
	"fmt"
	mrand "math/rand/v2"

	"github.com/louisbranch/throne-of-dust/internal/random"
)

// Roller draws random values.
//
// Float returns a value in [0, 1). Between returns an integer in the
// inclusive range [lo, hi]. Intn returns an integer in [0, n).
type Roller interface {
	Float() float64
	Between(lo, hi int) int
	Intn(n int) int
}

// Seeded is a Roller fully determined by its seed.
//
// Given the same seed and the same sequence of calls, a Seeded roller
// always produces the same draws, so a recorded seed reproduces a
// resolution exactly.
type Seeded struct {
	seed int64
	rng  *mrand.Rand
}

// NewSeeded returns a roller for seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{seed: seed, rng: random.New(seed)}
}

// NewUnpredictable returns a roller seeded from crypto/rand.
func NewUnpredictable() (*Seeded, error) {
	seed, err := random.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("seed roller: %w", err)
	}
	return NewSeeded(seed), nil
}

// Seed reports the seed this roller was created with.
func (s *Seeded) Seed() int64 {
	return s.seed
}

// Float implements Roller.
func (s *Seeded) Float() float64 {
	return s.rng.Float64()
}

// Between implements Roller. An inverted range returns lo.
func (s *Seeded) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.IntN(hi-lo+1)
}

// Intn implements Roller. n <= 0 returns 0.
func (s *Seeded) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.IntN(n)
}

// Chance reports whether a draw from r falls under probability p, along
// with the draw itself.
func Chance(r Roller, p float64) (bool, float64) {
	roll := r.Float()
	return roll < p, roll
}
