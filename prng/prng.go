//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package prng implements the deterministic pseudo-random source
// used by the dealer and the dataset generator. The source expands a
// seed into a ChaCha20 keystream; runs started from the same seed
// draw identical preprocessing material, which makes protocol runs
// reproducible.
package prng

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"

	"github.com/markkurossi/obliv/ring"
)

// Source is a random source. A seeded Source is a deterministic
// ChaCha20 keystream; an unseeded Source reads the operating system
// entropy. Source implements io.Reader.
type Source struct {
	cipher *chacha20.Cipher
	system io.Reader
}

// NewSource creates a deterministic Source from the argument seed
// material. The seed is expanded with BLAKE2b into a ChaCha20 key so
// that seeds of any length select independent streams.
func NewSource(seed []byte) *Source {
	key := blake2b.Sum256(seed)
	var nonce [chacha20.NonceSize]byte
	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		// The key and nonce sizes are correct by construction.
		panic(err)
	}
	return &Source{
		cipher: cipher,
	}
}

// NewSourceUint64 creates a deterministic Source from a numeric seed.
func NewSourceUint64(seed uint64) *Source {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seed)
	return NewSource(buf[:])
}

// NewSystemSource creates a Source that reads the operating system
// entropy.
func NewSystemSource() *Source {
	return &Source{
		system: rand.Reader,
	}
}

// Read fills the argument buffer with random bytes. It implements
// io.Reader and always fills the buffer fully.
func (s *Source) Read(p []byte) (int, error) {
	if s.system != nil {
		return io.ReadFull(s.system, p)
	}
	for i := range p {
		p[i] = 0
	}
	s.cipher.XORKeyStream(p, p)
	return len(p), nil
}

// Uint64 returns a random 64-bit value.
func (s *Source) Uint64() uint64 {
	var buf [8]byte
	if _, err := s.Read(buf[:]); err != nil {
		panic(err)
	}
	return binary.BigEndian.Uint64(buf[:])
}

// Elem returns a uniform ring element.
func (s *Source) Elem() ring.Elem {
	return ring.Elem(s.Uint64())
}

// Vec returns a vector of n uniform ring elements.
func (s *Source) Vec(n int) ring.Vec {
	v := make(ring.Vec, n)
	for i := range v {
		v[i] = s.Elem()
	}
	return v
}

// Int63n returns a uniform value in [0, n). It panics if n is not
// positive.
func (s *Source) Int63n(n int64) int64 {
	if n <= 0 {
		panic("prng: Int63n bound must be positive")
	}
	// Reject the low 2^64 mod n values so that the modulus is
	// unbiased.
	min := -uint64(n) % uint64(n)
	for {
		v := s.Uint64()
		if v >= min {
			return int64(v % uint64(n))
		}
	}
}
