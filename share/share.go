//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package share implements the two-party secure operations over
// additive shares in Z/2^64 Z: opening, Beaver multiplication, dot
// products over dealer correlations, and the query update steps. All
// peer exchanges follow the same asymmetric schedule - party 0 writes
// then reads, party 1 reads then writes - so that both parties stay
// in lockstep without deadlocks.
package share

import (
	"fmt"

	"github.com/markkurossi/obliv/p2p"
	"github.com/markkurossi/obliv/ring"
)

// exchange sends the party's values to the peer and receives the
// peer's values, party 0 writing first.
func exchange(conn *p2p.Conn, role int, vals ring.Vec) (ring.Vec, error) {
	peer := make(ring.Vec, len(vals))
	if role == 0 {
		if err := sendVec(conn, vals); err != nil {
			return nil, err
		}
		if err := recvVec(conn, peer); err != nil {
			return nil, err
		}
	} else {
		if err := recvVec(conn, peer); err != nil {
			return nil, err
		}
		if err := sendVec(conn, vals); err != nil {
			return nil, err
		}
	}
	return peer, nil
}

func sendVec(conn *p2p.Conn, vals ring.Vec) error {
	for _, v := range vals {
		if err := conn.SendUint64(uint64(v)); err != nil {
			return err
		}
	}
	return conn.Flush()
}

func recvVec(conn *p2p.Conn, into ring.Vec) error {
	for i := range into {
		v, err := conn.ReceiveUint64()
		if err != nil {
			return err
		}
		into[i] = ring.Elem(v)
	}
	return nil
}

// Open reconstructs a shared value: both parties learn x0+x1.
func Open(conn *p2p.Conn, role int, x ring.Elem) (ring.Elem, error) {
	peer, err := exchange(conn, role, ring.Vec{x})
	if err != nil {
		return 0, fmt.Errorf("share: open: %w", err)
	}
	return x + peer[0], nil
}

// OneMinus returns the party's share of 1-x. Public constants are
// held by party 0, so party 1 only negates its share.
func OneMinus(role int, x ring.Elem) ring.Elem {
	if role == 0 {
		return 1 - x
	}
	return -x
}
