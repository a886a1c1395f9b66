// Package minhash builds fixed-size MinHash signatures that estimate the
// Jaccard similarity of token sets.
//
// Each of the NumPerm slots keeps the minimum of
//
//	((a·h + b) mod (2^61 − 1)) & (2^32 − 1)
//
// over the 32-bit xxhash h of every token, where a and b are drawn once per
// slot from a PCG generator seeded with the caller's seed. Two signatures are
// comparable only if they share both the seed and the slot count.
//
// A signature that never saw a token is empty. Two empty signatures have
// similarity 1; an empty and a non-empty signature have similarity 0.
package minhash

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

const (
	DefaultNumPerm = 128

	mersennePrime = (1 << 61) - 1
	maxHash       = (1 << 32) - 1
)

var ErrIncompatible = errors.New("minhash signatures are not comparable")

// Permutations holds the per-slot coefficients for a given seed. It is
// read-only after construction and can be shared by every signature of a run.
type Permutations struct {
	seed int64
	a    []uint64
	b    []uint64
}

func NewPermutations(numPerm int, seed int64) *Permutations {
	if numPerm <= 0 {
		numPerm = DefaultNumPerm
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(numPerm)))
	p := &Permutations{
		seed: seed,
		a:    make([]uint64, numPerm),
		b:    make([]uint64, numPerm),
	}
	for i := 0; i < numPerm; i++ {
		p.a[i] = 1 + rng.Uint64N(mersennePrime-1)
		p.b[i] = rng.Uint64N(mersennePrime)
	}
	return p
}

func (p *Permutations) NumPerm() int {
	return len(p.a)
}

func (p *Permutations) Seed() int64 {
	return p.seed
}

type Signature struct {
	seed   int64
	values []uint32
	empty  bool
}

// New returns an empty signature.
func New(perms *Permutations) *Signature {
	values := make([]uint32, perms.NumPerm())
	for i := range values {
		values[i] = maxHash
	}
	return &Signature{seed: perms.seed, values: values, empty: true}
}

// FromTokens builds a signature over the set of tokens.
func FromTokens(perms *Permutations, tokens []string) *Signature {
	s := New(perms)
	s.UpdateBatch(perms, tokens)
	return s
}

func (s *Signature) Update(perms *Permutations, token string) {
	h := uint64(uint32(xxhash.Sum64String(token)))
	for i := range s.values {
		hi, lo := bits.Mul64(perms.a[i], h)
		v := (bits.Rem64(hi, lo, mersennePrime) + perms.b[i]) % mersennePrime
		if pv := uint32(v & maxHash); pv < s.values[i] {
			s.values[i] = pv
		}
	}
	s.empty = false
}

func (s *Signature) UpdateBatch(perms *Permutations, tokens []string) {
	for _, t := range tokens {
		s.Update(perms, t)
	}
}

func (s *Signature) IsEmpty() bool {
	return s.empty
}

func (s *Signature) NumPerm() int {
	return len(s.values)
}

// Compatible reports whether two signatures may be compared.
func (s *Signature) Compatible(other *Signature) bool {
	return s.seed == other.seed && len(s.values) == len(other.values)
}

// Matches counts the slots on which the two signatures agree. Two empty
// signatures agree on every slot; an empty and a non-empty one on none.
func (s *Signature) Matches(other *Signature) (int, error) {
	if !s.Compatible(other) {
		return 0, fmt.Errorf("%w: seed %d/%d, num_perm %d/%d",
			ErrIncompatible, s.seed, other.seed, len(s.values), len(other.values))
	}
	switch {
	case s.empty && other.empty:
		return len(s.values), nil
	case s.empty || other.empty:
		return 0, nil
	}

	equal := 0
	for i, v := range s.values {
		if v == other.values[i] {
			equal++
		}
	}
	return equal, nil
}

// Jaccard estimates the Jaccard similarity of the two underlying token sets
// as the fraction of slots holding the same minimum.
func (s *Signature) Jaccard(other *Signature) (float64, error) {
	equal, err := s.Matches(other)
	if err != nil {
		return 0, err
	}
	return float64(equal) / float64(len(s.values)), nil
}
