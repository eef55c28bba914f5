//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package party

import (
	"fmt"
	"strings"

	"github.com/markkurossi/obliv/dpf"
	"github.com/markkurossi/obliv/p2p"
	"github.com/markkurossi/obliv/ring"
	"github.com/markkurossi/obliv/share"
)

func recvLine(conn *p2p.Conn, block string) (string, error) {
	line, err := conn.ReceiveLine()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrWire, block, err)
	}
	return line, nil
}

// recvCorrs reads the dot-product correlation block: the X, Y, and z
// lines of each query, terminated by OK.
func (p *Party) recvCorrs(conn *p2p.Conn) error {
	var corrs []share.Corr
	for {
		line, err := recvLine(conn, "shares")
		if err != nil {
			return err
		}
		if len(line) == 0 {
			continue
		}
		if line == "OK" {
			break
		}
		var corr share.Corr
		corr.X, err = ring.ParseVec(line)
		if err != nil {
			return fmt.Errorf("%w: share %d: %v", ErrWire, len(corrs), err)
		}
		line, err = recvLine(conn, "shares")
		if err != nil {
			return err
		}
		corr.Y, err = ring.ParseVec(line)
		if err != nil {
			return fmt.Errorf("%w: share %d: %v", ErrWire, len(corrs), err)
		}
		line, err = recvLine(conn, "shares")
		if err != nil {
			return err
		}
		corr.Z, err = ring.ParseElem(line)
		if err != nil {
			return fmt.Errorf("%w: share %d: %v", ErrWire, len(corrs), err)
		}
		if len(corr.X) != p.params.K || len(corr.Y) != p.params.K {
			return fmt.Errorf("%w: share %d: dimension %d, expected %d",
				ErrWire, len(corrs), len(corr.X), p.params.K)
		}
		corrs = append(corrs, corr)
	}
	if len(corrs) != p.params.Q {
		return fmt.Errorf("%w: %d shares, expected %d",
			ErrWire, len(corrs), p.params.Q)
	}
	p.corrs = corrs
	return nil
}

// recvTriples reads the multiplication triple block: the TRPL header,
// 2k triples per query, and the TOK terminator.
func (p *Party) recvTriples(conn *p2p.Conn) error {
	line, err := recvLine(conn, "TRPL header")
	if err != nil {
		return err
	}
	var q, count int
	if _, err := fmt.Sscanf(line, "TRPL %d %d", &q, &count); err != nil {
		return fmt.Errorf("%w: TRPL header %q", ErrWire, line)
	}
	if q != p.params.Q || count != 2*p.params.K {
		return fmt.Errorf("%w: TRPL %d %d, expected %d %d",
			ErrWire, q, count, p.params.Q, 2*p.params.K)
	}
	triples := make([][]share.Triple, q)
	for i := 0; i < q; i++ {
		batch := make([]share.Triple, count)
		for j := 0; j < count; j++ {
			line, err := recvLine(conn, "triples")
			if err != nil {
				return err
			}
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return fmt.Errorf("%w: triple %q", ErrWire, line)
			}
			batch[j].X, err = ring.ParseElem(fields[0])
			if err != nil {
				return fmt.Errorf("%w: triple %q: %v", ErrWire, line, err)
			}
			batch[j].Y, err = ring.ParseElem(fields[1])
			if err != nil {
				return fmt.Errorf("%w: triple %q: %v", ErrWire, line, err)
			}
			batch[j].Z, err = ring.ParseElem(fields[2])
			if err != nil {
				return fmt.Errorf("%w: triple %q: %v", ErrWire, line, err)
			}
		}
		triples[i] = batch
	}
	line, err = recvLine(conn, "triples")
	if err != nil {
		return err
	}
	if line != "TOK" {
		return fmt.Errorf("%w: triple terminator %q", ErrWire, line)
	}
	p.triples = triples
	return nil
}

// recvKeys reads the point-function keys, one per query.
func (p *Party) recvKeys(conn *p2p.Conn) error {
	levels := dpf.Levels(uint64(p.params.N))
	keys := make([]*dpf.Key, 0, p.params.Q)
	for i := 0; i < p.params.Q; i++ {
		key, err := dpf.Receive(conn)
		if err != nil {
			return fmt.Errorf("%w: key %d: %v", ErrWire, i, err)
		}
		if len(key.CWs) != levels {
			return fmt.Errorf("%w: key %d depth %d, expected %d",
				ErrWire, i, len(key.CWs), levels)
		}
		keys = append(keys, key)
	}
	p.keys = keys
	return nil
}
