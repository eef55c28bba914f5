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

	"github.com/markkurossi/obliv/store"
	"github.com/markkurossi/tabulate"
)

func main() {
	dir := flag.String("dir", ".", "data directory")
	flag.Parse()

	params, err := store.ReadParams(filepath.Join(*dir, "params.txt"))
	if err != nil {
		log.Fatal(err)
	}
	queries, err := readQueryShares(*dir, params)
	if err != nil {
		log.Fatal(err)
	}

	uInit, err := sumShares(*dir, "u", ".init.txt")
	if err != nil {
		log.Fatal(err)
	}
	vInit, err := sumShares(*dir, "v", ".init.txt")
	if err != nil {
		log.Fatal(err)
	}
	uFinal, err := sumShares(*dir, "u", ".txt")
	if err != nil {
		log.Fatal(err)
	}
	vFinal, err := sumShares(*dir, "v", ".txt")
	if err != nil {
		log.Fatal(err)
	}
	if uInit.Rows != params.M || uInit.Cols != params.K {
		log.Fatalf("u shares are %dx%d, parameters say %dx%d",
			uInit.Rows, uInit.Cols, params.M, params.K)
	}
	if vInit.Rows != params.N || vInit.Cols != params.K {
		log.Fatalf("v shares are %dx%d, parameters say %dx%d",
			vInit.Rows, vInit.Cols, params.N, params.K)
	}

	// Replay the batch on the reconstructed initial model: for each
	// query u' = u + v(1-u.v) and V[item] += u_pre(1-u.v).
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Query").SetAlign(tabulate.MR)
	tab.Header("User").SetAlign(tabulate.MR)
	tab.Header("Item").SetAlign(tabulate.MR)
	tab.Header("Scale").SetAlign(tabulate.MR)
	tab.Header("User row").SetAlign(tabulate.ML)

	for i, query := range queries {
		row := uInit.Data[query.User]
		one := 1 - row.Dot(query.V)
		pre := row.Clone()
		for j := range row {
			row[j] += query.V[j] * one
		}
		for j, val := range pre {
			vInit.Data[query.Item][j] += val * one
		}

		r := tab.Row()
		r.Column(fmt.Sprintf("%d", i))
		r.Column(fmt.Sprintf("%d", query.User))
		r.Column(fmt.Sprintf("%d", query.Item))
		r.Column(one.String())
		r.Column(row.String())
	}
	tab.Print(os.Stdout)

	ok := compare("U", uFinal, uInit)
	if !compare("V", vFinal, vInit) {
		ok = false
	}
	if !ok {
		os.Exit(1)
	}
	fmt.Printf("OK\n")
}

// readQueryShares reconstructs the cleartext queries from the two
// parties' share files.
func readQueryShares(dir string, params *store.Params) ([]store.Query, error) {
	q0, err := store.ReadQueries(filepath.Join(dir, "queries0.txt"), params)
	if err != nil {
		return nil, err
	}
	q1, err := store.ReadQueries(filepath.Join(dir, "queries1.txt"), params)
	if err != nil {
		return nil, err
	}
	queries := make([]store.Query, len(q0))
	for i, query := range q0 {
		if query.User != q1[i].User || query.Item != q1[i].Item {
			return nil, fmt.Errorf("query %d: share indices disagree", i)
		}
		queries[i] = store.Query{
			User: query.User,
			Item: query.Item,
			V:    query.V.Add(q1[i].V),
		}
	}
	return queries, nil
}

// sumShares reconstructs a matrix from the two parties' share files.
func sumShares(dir, name, suffix string) (*store.Matrix, error) {
	m0, err := store.ReadMatrix(filepath.Join(dir, name+"0"+suffix))
	if err != nil {
		return nil, err
	}
	m1, err := store.ReadMatrix(filepath.Join(dir, name+"1"+suffix))
	if err != nil {
		return nil, err
	}
	if m0.Rows != m1.Rows || m0.Cols != m1.Cols {
		return nil, fmt.Errorf("%s shares are %dx%d and %dx%d",
			name, m0.Rows, m0.Cols, m1.Rows, m1.Cols)
	}
	sum := store.NewMatrix(m0.Rows, m0.Cols)
	for i := range m0.Data {
		sum.SetRow(i, m0.Data[i].Add(m1.Data[i]))
	}
	return sum, nil
}

// compare reports the differences between the reconstructed final
// state and the replayed model.
func compare(name string, got, expected *store.Matrix) bool {
	if got.Rows != expected.Rows || got.Cols != expected.Cols {
		fmt.Printf("%s: %dx%d, expected %dx%d\n",
			name, got.Rows, got.Cols, expected.Rows, expected.Cols)
		return false
	}
	ok := true
	for i := range expected.Data {
		for j, val := range expected.Data[i] {
			if got.Data[i][j] != val {
				fmt.Printf("%s[%d][%d] = %s, expected %s\n",
					name, i, j, got.Data[i][j], val)
				ok = false
			}
		}
	}
	if ok {
		fmt.Printf("%s: OK\n", name)
	}
	return ok
}
