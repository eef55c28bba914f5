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

// Corr is one party's half of a Du-Atallah dot-product correlation:
// two length-k mask vectors and a scalar. The dealer balances the z
// halves so that z0+z1 = X0.Y1 + X1.Y0. Correlations are single-use.
type Corr struct {
	X ring.Vec
	Y ring.Vec
	Z ring.Elem
}

// GenCorr creates one dealer-balanced correlation pair for length-k
// dot products.
func GenCorr(rng *prng.Source, k int) (Corr, Corr) {
	x0 := rng.Vec(k)
	x1 := rng.Vec(k)
	y0 := rng.Vec(k)
	y1 := rng.Vec(k)
	mask := rng.Elem()

	c0 := Corr{
		X: x0,
		Y: y0,
		Z: x0.Dot(y1) + mask,
	}
	c1 := Corr{
		X: x1,
		Y: y1,
		Z: x1.Dot(y0) - mask,
	}
	return c0, c1
}

// DotDA computes a dot-product share with one Du-Atallah correlation:
// the parties exchange the masked vectors u+X and v+Y and combine
//
//	delta = u.(v + my') - Y.mx' + z
//
// where mx', my' are the peer's masked vectors. The delta halves
// reconstruct to the dot product of the reconstructed vectors.
func DotDA(conn *p2p.Conn, role int, u, v ring.Vec, c Corr) (
	ring.Elem, error) {

	k := len(u)
	if len(v) != k || len(c.X) != k || len(c.Y) != k {
		return 0, fmt.Errorf(
			"share: dot: %d/%d values, correlation %d/%d",
			len(u), len(v), len(c.X), len(c.Y))
	}
	masked := make(ring.Vec, 0, 2*k)
	masked = append(masked, u.Add(c.X)...)
	masked = append(masked, v.Add(c.Y)...)

	peer, err := exchange(conn, role, masked)
	if err != nil {
		return 0, fmt.Errorf("share: dot: %w", err)
	}
	mx := peer[:k]
	my := peer[k:]

	return u.Dot(v.Add(my)) - c.Y.Dot(mx) + c.Z, nil
}
