//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/markkurossi/obliv/prng"
	"github.com/markkurossi/obliv/ring"
	"github.com/markkurossi/obliv/store"
)

// shareMax bounds the share magnitudes so that the share files stay
// readable in reconstruction traces.
const shareMax = 1000000

func main() {
	m := flag.Int("m", 4, "number of users")
	n := flag.Int("n", 8, "number of items")
	k := flag.Int("k", 4, "latent dimension")
	q := flag.Int("q", 2, "number of queries")
	seed := flag.Uint64("seed", 0, "randomness seed (0 for system entropy)")
	dir := flag.String("dir", ".", "output directory")
	max := flag.Int64("max", 10, "model value magnitude bound")
	flag.Parse()

	if *m < 1 || *n < 1 || *k < 1 || *q < 0 || *max < 0 {
		fmt.Printf("Invalid dimensions\n")
		os.Exit(1)
	}

	var rng *prng.Source
	if *seed != 0 {
		rng = prng.NewSourceUint64(*seed)
	} else {
		rng = prng.NewSystemSource()
	}

	params := &store.Params{
		M: *m,
		N: *n,
		K: *k,
		Q: *q,
	}
	if err := params.Write(filepath.Join(*dir, "params.txt")); err != nil {
		log.Fatal(err)
	}

	users := randomMatrix(rng, *m, *k, *max)
	items := randomMatrix(rng, *n, *k, *max)

	// Each query requests an existing item: the query vector is the
	// item's current row.
	var queries []store.Query
	for i := 0; i < *q; i++ {
		item := int(rng.Int63n(int64(*n)))
		queries = append(queries, store.Query{
			User: int(rng.Int63n(int64(*m))),
			Item: item,
			V:    items.Row(item).Clone(),
		})
	}
	err := store.WriteQueries(filepath.Join(*dir, "queries.txt"), queries, *k)
	if err != nil {
		log.Fatal(err)
	}

	if err := writeShares(rng, users, *dir, "u"); err != nil {
		log.Fatal(err)
	}
	if err := writeShares(rng, items, *dir, "v"); err != nil {
		log.Fatal(err)
	}

	// Query shares: the indices stay cleartext, the vector is split.
	shares := splitQueries(rng, queries)
	for role, qs := range shares {
		path := filepath.Join(*dir, fmt.Sprintf("queries%d.txt", role))
		if err := store.WriteQueries(path, qs, *k); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Printf("Parameters: %s\n", params)
	fmt.Printf("Wrote model and query shares to %s\n", *dir)
}

func signed(rng *prng.Source, max int64) ring.Elem {
	return ring.Elem(rng.Int63n(2*max+1) - max)
}

func randomMatrix(rng *prng.Source, rows, cols int, max int64) *store.Matrix {
	m := store.NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		row := make(ring.Vec, cols)
		for j := range row {
			row[j] = signed(rng, max)
		}
		m.SetRow(i, row)
	}
	return m
}

func splitVec(rng *prng.Source, v ring.Vec) (ring.Vec, ring.Vec) {
	v0 := make(ring.Vec, len(v))
	v1 := make(ring.Vec, len(v))
	for i, val := range v {
		v0[i] = signed(rng, shareMax)
		v1[i] = val - v0[i]
	}
	return v0, v1
}

func splitQueries(rng *prng.Source, queries []store.Query) [2][]store.Query {
	var shares [2][]store.Query
	for _, query := range queries {
		v0, v1 := splitVec(rng, query.V)
		shares[0] = append(shares[0], store.Query{
			User: query.User,
			Item: query.Item,
			V:    v0,
		})
		shares[1] = append(shares[1], store.Query{
			User: query.User,
			Item: query.Item,
			V:    v1,
		})
	}
	return shares
}

// writeShares splits a cleartext matrix into two additive shares and
// stores each with a pristine copy for the checker.
func writeShares(rng *prng.Source, m *store.Matrix, dir, name string) error {
	m0 := store.NewMatrix(m.Rows, m.Cols)
	m1 := store.NewMatrix(m.Rows, m.Cols)
	for i, row := range m.Data {
		r0, r1 := splitVec(rng, row)
		m0.SetRow(i, r0)
		m1.SetRow(i, r1)
	}
	for role, share := range []*store.Matrix{m0, m1} {
		base := fmt.Sprintf("%s%d", name, role)
		if err := share.Write(filepath.Join(dir, base+".txt")); err != nil {
			return err
		}
		err := share.Write(filepath.Join(dir, base+".init.txt"))
		if err != nil {
			return err
		}
	}
	return nil
}
