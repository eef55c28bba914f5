//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package share

import (
	"fmt"

	"github.com/markkurossi/obliv/p2p"
	"github.com/markkurossi/obliv/prng"
	"github.com/markkurossi/obliv/ring"
)

// Triple is one party's half of a Beaver multiplication triple. The
// dealer balances the z halves so that z0+z1 = x0*y1 + x1*y0, the
// cross term the Mul combiner cancels. Triples are single-use.
type Triple struct {
	X ring.Elem
	Y ring.Elem
	Z ring.Elem
}

// GenTriple creates one dealer-balanced triple pair.
func GenTriple(rng *prng.Source) (Triple, Triple) {
	x0 := rng.Elem()
	x1 := rng.Elem()
	y0 := rng.Elem()
	y1 := rng.Elem()
	mask := rng.Elem()

	t0 := Triple{
		X: x0,
		Y: y0,
		Z: x0*y1 + mask,
	}
	t1 := Triple{
		X: x1,
		Y: y1,
		Z: x1*y0 - mask,
	}
	return t0, t1
}

// Mul multiplies two shared values with a Beaver triple. Both
// parties exchange their masked operands (a+x, b+y) and combine:
//
//	c = a*(b + my') - y*mx' + z
//
// where mx', my' are the peer's masked operands. The halves of c
// reconstruct to the product of the reconstructed operands.
func Mul(conn *p2p.Conn, role int, a, b ring.Elem, t Triple) (
	ring.Elem, error) {

	peer, err := exchange(conn, role, ring.Vec{a + t.X, b + t.Y})
	if err != nil {
		return 0, fmt.Errorf("share: mul: %w", err)
	}
	return a*(b+peer[1]) - t.Y*peer[0] + t.Z, nil
}

// DotBeaver computes a dot-product share with one Beaver triple per
// coordinate: the per-element products are computed in one batched
// exchange and summed locally.
func DotBeaver(conn *p2p.Conn, role int, u, v ring.Vec,
	triples []Triple) (ring.Elem, error) {

	k := len(u)
	if len(v) != k || len(triples) < k {
		return 0, fmt.Errorf("share: dot: %d/%d values, %d triples",
			len(u), len(v), len(triples))
	}
	masked := make(ring.Vec, 0, 2*k)
	for i := 0; i < k; i++ {
		masked = append(masked, u[i]+triples[i].X, v[i]+triples[i].Y)
	}
	peer, err := exchange(conn, role, masked)
	if err != nil {
		return 0, fmt.Errorf("share: dot: %w", err)
	}
	var sum ring.Elem
	for i := 0; i < k; i++ {
		sum += u[i]*(v[i]+peer[2*i+1]) - triples[i].Y*peer[2*i] +
			triples[i].Z
	}
	return sum, nil
}
