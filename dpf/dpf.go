//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package dpf implements a distributed point function over the ring
// Z/2^64 Z. Gen creates two keys for a point function that is beta at
// alpha and zero elsewhere; evaluating both keys at x and adding the
// results reconstructs the function value, while either key alone
// reveals nothing about alpha or beta. The evaluation shares make the
// oblivious item-matrix update possible: a party can add a secret
// multiple of the indicator vector of a secret row without learning
// either.
package dpf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/markkurossi/obliv/ring"
)

// CW is a per-level correction word. Both keys of a pair carry
// identical correction words.
type CW struct {
	DSL uint64
	DSR uint64
	DTL bool
	DTR bool
}

// Key is one party's evaluation key: the root seed and control bit,
// the per-level correction words, and the final output correction.
// Key 0 has T0 false and emits positive leaf values; key 1 has T0
// true and emits negated leaf values so that off-path outputs cancel.
type Key struct {
	S0    uint64
	T0    bool
	CWs   []CW
	CWOut uint64
}

// Levels returns the tree depth for a domain of n points: zero for a
// single-point domain, otherwise ceil(log2(n)).
func Levels(n uint64) int {
	if n <= 1 {
		return 0
	}
	return bits.Len64(n - 1)
}

// Gen creates a key pair for the point function over the domain
// [0, n) that is beta at alpha and zero elsewhere. The root seeds are
// drawn from rand.
func Gen(rand io.Reader, n, alpha uint64, beta ring.Elem) (
	*Key, *Key, error) {

	if n == 0 {
		return nil, nil, fmt.Errorf("dpf: empty domain")
	}
	if alpha >= n {
		return nil, nil, fmt.Errorf("dpf: point %d outside domain [0,%d)",
			alpha, n)
	}
	levels := Levels(n)

	for {
		sA, err := randUint64(rand)
		if err != nil {
			return nil, nil, err
		}
		sB, err := randUint64(rand)
		if err != nil {
			return nil, nil, err
		}
		key0 := &Key{
			S0:  sA,
			CWs: make([]CW, 0, levels),
		}
		key1 := &Key{
			S0: sB,
			T0: true,
		}

		// Walk the alpha path on both sides, deriving the
		// correction words.
		tA := false
		tB := true
		for i := 0; i < levels; i++ {
			aBit := bitAt(alpha, i, levels)

			sAL, sAR, tAL, tAR := expand(sA)
			sBL, sBR, tBL, tBR := expand(sB)

			cw := CW{
				DSL: sAL ^ sBL,
				DSR: sAR ^ sBR,
				DTL: tAL != tBL,
				DTR: tAR != tBR,
			}
			// Flip the path-side t-delta: the corrected
			// control bits stay complementary along the
			// alpha path and equal off it.
			if aBit == 0 {
				cw.DTL = !cw.DTL
			} else {
				cw.DTR = !cw.DTR
			}
			key0.CWs = append(key0.CWs, cw)

			sA, tA = step(sA, tA, cw, aBit)
			sB, tB = step(sB, tB, cw, aBit)
		}
		if !tB {
			// The leaf correction must land on key 1:
			// resample the roots until its leaf control
			// bit is set.
			continue
		}
		key0.CWOut = sA - sB - uint64(beta)
		key1.CWs = key0.CWs
		key1.CWOut = key0.CWOut
		return key0, key1, nil
	}
}

// Eval computes the key's output share at point x.
func (k *Key) Eval(x uint64) ring.Elem {
	s := k.S0
	t := k.T0
	levels := len(k.CWs)
	for i := 0; i < levels; i++ {
		s, t = step(s, t, k.CWs[i], bitAt(x, i, levels))
	}
	return k.leaf(s, t)
}

// EvalFull evaluates the key over the full domain [0, n). The tree
// walk shares interior PRG expansions between neighbouring points, so
// the work is linear in n.
func (k *Key) EvalFull(n uint64) ring.Vec {
	out := make(ring.Vec, n)
	if n > 0 {
		k.walk(0, k.S0, k.T0, 0, out)
	}
	return out
}

// walk evaluates the subtree at the given level whose leftmost leaf
// is base, filling the covered slots of out.
func (k *Key) walk(level int, s uint64, t bool, base uint64, out ring.Vec) {
	if base >= uint64(len(out)) {
		return
	}
	if level == len(k.CWs) {
		out[base] = k.leaf(s, t)
		return
	}
	sL, sR, tL, tR := expand(s)
	if t {
		cw := k.CWs[level]
		sL ^= cw.DSL
		tL = tL != cw.DTL
		sR ^= cw.DSR
		tR = tR != cw.DTR
	}
	span := uint64(1) << (len(k.CWs) - level - 1)
	k.walk(level+1, sL, tL, base, out)
	k.walk(level+1, sR, tR, base+span, out)
}

// step advances one tree level: expand the seed, apply the level
// correction if the control bit is set, and descend into the branch
// selected by bit.
func step(s uint64, t bool, cw CW, bit int) (uint64, bool) {
	sL, sR, tL, tR := expand(s)
	if t {
		sL ^= cw.DSL
		tL = tL != cw.DTL
		sR ^= cw.DSR
		tR = tR != cw.DTR
	}
	if bit == 0 {
		return sL, tL
	}
	return sR, tR
}

// leaf converts a leaf state into the key's output share: the final
// correction is a wrapping add, applied by the party whose control
// bit is set, and key 1 negates so that off-path shares cancel.
func (k *Key) leaf(s uint64, t bool) ring.Elem {
	if t {
		s += k.CWOut
	}
	y := ring.Elem(s)
	if k.T0 {
		y = -y
	}
	return y
}

// bitAt returns bit i of the nbits-wide value x, counting from the
// most significant bit.
func bitAt(x uint64, i, nbits int) int {
	return int((x >> (nbits - 1 - i)) & 1)
}

func randUint64(rand io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
