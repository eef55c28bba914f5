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
	"net"
	"os"

	"github.com/markkurossi/obliv/p2p"
	"github.com/markkurossi/obliv/party"
	"github.com/markkurossi/obliv/store"
)

func main() {
	role := flag.Int("role", 0, "compute party role (0 or 1)")
	dealerAddr := flag.String("dealer", "localhost:9002", "dealer address")
	peerAddr := flag.String("peer", "localhost:9001",
		"peer address (role 0 dials)")
	listen := flag.String("listen", ":9001",
		"peer listen address (role 1 listens)")
	uFile := flag.String("u", "", "user matrix share file")
	vFile := flag.String("v", "", "item matrix share file")
	queriesFile := flag.String("queries", "", "query share file")
	verbose := flag.Bool("verbose", false, "verbose output")
	flag.Parse()

	if len(*uFile) == 0 || len(*vFile) == 0 || len(*queriesFile) == 0 {
		fmt.Printf("No share files\n")
		os.Exit(1)
	}

	// The model dimensions come from the party's own inputs: the
	// matrix shares give m, n, and k, the query file header gives q.
	users, err := store.ReadMatrix(*uFile)
	if err != nil {
		log.Fatal(err)
	}
	items, err := store.ReadMatrix(*vFile)
	if err != nil {
		log.Fatal(err)
	}
	if users.Cols != items.Cols {
		log.Fatalf("share dimensions disagree: %s is %dx%d, %s is %dx%d",
			*uFile, users.Rows, users.Cols, *vFile, items.Rows, items.Cols)
	}
	q, err := store.NumQueries(*queriesFile)
	if err != nil {
		log.Fatal(err)
	}
	params := &store.Params{
		M: users.Rows,
		N: items.Rows,
		K: users.Cols,
		Q: q,
	}
	queries, err := store.ReadQueries(*queriesFile, params)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Parameters: %s\n", params)

	p, err := party.New(*role, params, queries, *uFile, *vFile, *verbose)
	if err != nil {
		log.Fatal(err)
	}

	// Role 1 binds the peer listener before the preprocessing so that
	// role 0 can dial as soon as both are done with the dealer.
	var lis net.Listener
	if *role == 1 {
		lis, err = net.Listen("tcp", *listen)
		if err != nil {
			log.Fatal(err)
		}
		defer lis.Close()
	}

	dealerConn, err := p2p.Dial(*dealerAddr)
	if err != nil {
		log.Fatal(err)
	}

	connectPeer := func() (*p2p.Conn, error) {
		if *role == 0 {
			return p2p.Dial(*peerAddr)
		}
		nc, err := lis.Accept()
		if err != nil {
			return nil, err
		}
		return p2p.NewConn(nc), nil
	}

	if err := p.Run(dealerConn, connectPeer); err != nil {
		log.Fatal(err)
	}
	p.Report()
}
