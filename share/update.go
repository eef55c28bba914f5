//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package share

import (
	"fmt"

	"github.com/markkurossi/obliv/dpf"
	"github.com/markkurossi/obliv/p2p"
	"github.com/markkurossi/obliv/ring"
)

// UserUpdate runs the user-row step of one query. It computes the
// relevance delta = u.v with the query's correlation, scales both the
// item vector and the user row by 1-delta with the query's 2k
// triples, and returns the updated user row u + v(1-delta) together
// with the scaled pre-update row u(1-delta) for the item-matrix
// step.
func UserUpdate(conn *p2p.Conn, role int, u, v ring.Vec, corr Corr,
	triples []Triple) (next, scaled ring.Vec, err error) {

	k := len(u)
	if len(v) != k {
		return nil, nil, fmt.Errorf(
			"share: user update: vector length %d, row length %d",
			len(v), k)
	}
	if len(triples) != 2*k {
		return nil, nil, fmt.Errorf(
			"share: user update: %d triples, expected %d",
			len(triples), 2*k)
	}

	delta, err := DotDA(conn, role, u, v, corr)
	if err != nil {
		return nil, nil, fmt.Errorf("share: user update: %w", err)
	}
	oneMinus := OneMinus(role, delta)

	mv := make(ring.Vec, k)
	for i := 0; i < k; i++ {
		mv[i], err = Mul(conn, role, v[i], oneMinus, triples[i])
		if err != nil {
			return nil, nil, fmt.Errorf("share: user update: %w", err)
		}
	}
	scaled = make(ring.Vec, k)
	for i := 0; i < k; i++ {
		scaled[i], err = Mul(conn, role, u[i], oneMinus, triples[k+i])
		if err != nil {
			return nil, nil, fmt.Errorf("share: user update: %w", err)
		}
	}
	return u.Add(mv), scaled, nil
}

// ItemUpdate adds the shared vector m obliviously into the rows of
// the V share: the row selected inside the key gains m while every
// other row is unchanged, and neither party learns which row that
// is. The key pair must target the zero function; per coordinate the
// parties exchange their correction offset and retarget the output
// correction word to the coordinate's share sum.
func ItemUpdate(conn *p2p.Conn, role int, key *dpf.Key, m ring.Vec,
	rows []ring.Vec) error {

	n := uint64(len(rows))
	if len(key.CWs) != dpf.Levels(n) {
		return fmt.Errorf("share: item update: key depth %d for %d rows",
			len(key.CWs), n)
	}
	for i, row := range rows {
		if len(row) != len(m) {
			return fmt.Errorf(
				"share: item update: row %d length %d, expected %d",
				i, len(row), len(m))
		}
	}

	for d, md := range m {
		diff := md - ring.Elem(key.CWOut)
		peer, err := exchange(conn, role, ring.Vec{diff})
		if err != nil {
			return fmt.Errorf("share: item update: %w", err)
		}
		// Both parties recover the coordinate's target value
		// and retarget the shared correction word; off-path
		// leaves still cancel because both keys patch alike.
		beta := diff + peer[0] + 2*ring.Elem(key.CWOut)
		patched := *key
		patched.CWOut = key.CWOut - uint64(beta)

		w := patched.EvalFull(n)
		for i := range rows {
			rows[i][d] += w[i]
		}
	}
	return nil
}
