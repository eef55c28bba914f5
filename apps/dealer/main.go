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

	"github.com/markkurossi/obliv/dealer"
	"github.com/markkurossi/obliv/prng"
	"github.com/markkurossi/obliv/store"
)

func main() {
	listen := flag.String("listen", ":9002", "listen address for the parties")
	paramsFile := flag.String("params", "params.txt", "model parameters file")
	queriesFile := flag.String("queries", "queries.txt",
		"cleartext queries file")
	seed := flag.Uint64("seed", 0, "randomness seed (0 for system entropy)")
	verbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	params, err := store.ReadParams(*paramsFile)
	if err != nil {
		log.Fatal(err)
	}
	queries, err := store.ReadQueries(*queriesFile, params)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Parameters: %s\n", params)

	config := &dealer.Config{
		Verbose: *verbose,
	}
	if *seed != 0 {
		config.Rand = prng.NewSourceUint64(*seed)
	}
	d, err := dealer.New(params, queries, config)
	if err != nil {
		log.Fatal(err)
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Fatal(err)
	}
	defer lis.Close()

	if err := d.ListenAndServe(lis); err != nil {
		log.Fatal(err)
	}
}
