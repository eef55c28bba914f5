//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package dealer implements the trusted preprocessing party. The
// dealer knows the cleartext queries and generates the correlated
// randomness the compute parties consume: one dot-product correlation,
// 2k multiplication triples, and one point-function key pair per
// query. The material is streamed to each party over its own
// connection before the online phase starts.
package dealer

import (
	"fmt"
	"log"
	"net"

	"github.com/markkurossi/obliv/dpf"
	"github.com/markkurossi/obliv/p2p"
	"github.com/markkurossi/obliv/prng"
	"github.com/markkurossi/obliv/share"
	"github.com/markkurossi/obliv/store"
)

// Config specifies dealer options. A nil Rand selects the operating
// system entropy source.
type Config struct {
	Rand    *prng.Source
	Verbose bool
}

func (c *Config) random() *prng.Source {
	if c.Rand != nil {
		return c.Rand
	}
	return prng.NewSystemSource()
}

// Dealer holds the model parameters and the cleartext query batch of
// one preprocessing session.
type Dealer struct {
	config  *Config
	params  *store.Params
	queries []store.Query
}

// New creates a dealer for the parameters and queries. The config can
// be nil for defaults.
func New(params *store.Params, queries []store.Query, config *Config) (
	*Dealer, error) {

	if len(queries) != params.Q {
		return nil, fmt.Errorf("dealer: %d queries, parameters say %d",
			len(queries), params.Q)
	}
	if config == nil {
		config = &Config{}
	}
	return &Dealer{
		config:  config,
		params:  params,
		queries: queries,
	}, nil
}

// material holds the correlated randomness of one session, halved per
// party.
type material struct {
	corrs   [2][]share.Corr
	triples [2][][]share.Triple
	keys    [2][]*dpf.Key
}

// generate creates the session material. The per-query order is
// fixed: correlation, triples, key, so that a seeded random source
// gives reproducible sessions.
func (d *Dealer) generate() (*material, error) {
	rng := d.config.random()
	mat := new(material)

	for idx, q := range d.queries {
		c0, c1 := share.GenCorr(rng, d.params.K)
		mat.corrs[0] = append(mat.corrs[0], c0)
		mat.corrs[1] = append(mat.corrs[1], c1)

		t0 := make([]share.Triple, 2*d.params.K)
		t1 := make([]share.Triple, 2*d.params.K)
		for i := range t0 {
			t0[i], t1[i] = share.GenTriple(rng)
		}
		mat.triples[0] = append(mat.triples[0], t0)
		mat.triples[1] = append(mat.triples[1], t1)

		// The keys target the queried row with a zero payload. The
		// parties retarget the output correction word online once
		// they know their update shares.
		k0, k1, err := dpf.Gen(rng, uint64(d.params.N), uint64(q.Item), 0)
		if err != nil {
			return nil, fmt.Errorf("dealer: query %d: %w", idx, err)
		}
		mat.keys[0] = append(mat.keys[0], k0)
		mat.keys[1] = append(mat.keys[1], k1)

		if d.config.Verbose {
			log.Printf("dealer: query %d: user %d, item %d",
				idx, q.User, q.Item)
		}
	}
	return mat, nil
}

// Serve generates the session material and streams each party its
// half. The connections are not closed.
func (d *Dealer) Serve(conn0, conn1 *p2p.Conn) error {
	mat, err := d.generate()
	if err != nil {
		return err
	}
	for party, conn := range []*p2p.Conn{conn0, conn1} {
		if err := d.stream(conn, party, mat); err != nil {
			return fmt.Errorf("dealer: party %d: %w", party, err)
		}
	}
	return nil
}

// stream sends one party's half of the material: the correlation
// block, the triple block, and the point-function keys.
func (d *Dealer) stream(conn *p2p.Conn, party int, mat *material) error {
	for _, corr := range mat.corrs[party] {
		if err := conn.SendLine(corr.X.String()); err != nil {
			return err
		}
		if err := conn.SendLine(corr.Y.String()); err != nil {
			return err
		}
		if err := conn.SendLine(corr.Z.String()); err != nil {
			return err
		}
		if err := conn.SendLine(""); err != nil {
			return err
		}
	}
	if err := conn.SendLine("OK"); err != nil {
		return err
	}

	err := conn.SendLine(fmt.Sprintf("TRPL %d %d", d.params.Q, 2*d.params.K))
	if err != nil {
		return err
	}
	for _, triples := range mat.triples[party] {
		for _, t := range triples {
			err := conn.SendLine(fmt.Sprintf("%s %s %s", t.X, t.Y, t.Z))
			if err != nil {
				return err
			}
		}
	}
	if err := conn.SendLine("TOK"); err != nil {
		return err
	}

	for _, key := range mat.keys[party] {
		if err := key.Send(conn); err != nil {
			return err
		}
	}
	return conn.Flush()
}

// ListenAndServe accepts the two compute parties from the listener,
// party 0 first, and serves one preprocessing session.
func (d *Dealer) ListenAndServe(lis net.Listener) error {
	log.Printf("dealer: listening for compute parties at %s", lis.Addr())

	nc0, err := lis.Accept()
	if err != nil {
		return fmt.Errorf("dealer: accept: %w", err)
	}
	log.Printf("dealer: party 0 connected from %s", nc0.RemoteAddr())
	conn0 := p2p.NewConn(nc0)
	defer conn0.Close()

	nc1, err := lis.Accept()
	if err != nil {
		return fmt.Errorf("dealer: accept: %w", err)
	}
	log.Printf("dealer: party 1 connected from %s", nc1.RemoteAddr())
	conn1 := p2p.NewConn(nc1)
	defer conn1.Close()

	return d.Serve(conn0, conn1)
}
