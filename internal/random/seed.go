// Package random provides seed generation and seeded generators for
// resolutions that must be reproducible from a recorded seed.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand/v2"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// New returns a PCG-backed generator fully determined by seed.
func New(seed int64) *mrand.Rand {
	s := uint64(seed)
	return mrand.New(mrand.NewPCG(s, s^0x9e3779b97f4a7c15))
}
