//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package store

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/markkurossi/obliv/ring"
)

// Query is one update request: the user row, the item row, and a
// length-k item vector. In a per-party file the vector is the party's
// additive share of the item row at generation time; in the dealer's
// cleartext file it is the true vector.
type Query struct {
	User int
	Item int
	V    ring.Vec
}

// ReadQueries reads a query file and validates it against the model
// parameters: the header must match the configured query count and
// latent dimension, and every index must address a model row.
func ReadQueries(path string, params *Params) ([]Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := nonEmptyLines(string(data))
	if len(lines) == 0 {
		return nil, fmt.Errorf("store: %s: missing header: %w",
			path, ErrConfig)
	}
	var q, k int
	if _, err := fmt.Sscanf(lines[0], "%d %d", &q, &k); err != nil {
		return nil, fmt.Errorf("store: %s: header %q: %w",
			path, lines[0], ErrConfig)
	}
	if q != params.Q || k != params.K {
		return nil, fmt.Errorf(
			"store: %s: header %dx%d, parameters say %dx%d: %w",
			path, q, k, params.Q, params.K, ErrConfig)
	}
	if len(lines) != 1+q {
		return nil, fmt.Errorf("store: %s: %d queries, header says %d: %w",
			path, len(lines)-1, q, ErrConfig)
	}
	queries := make([]Query, 0, q)
	for i := 0; i < q; i++ {
		fields := strings.Fields(lines[1+i])
		if len(fields) != 2+k {
			return nil, fmt.Errorf(
				"store: %s: query %d has %d fields, expected %d: %w",
				path, i, len(fields), 2+k, ErrConfig)
		}
		user, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("store: %s: query %d: user %q: %w",
				path, i, fields[0], ErrConfig)
		}
		item, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("store: %s: query %d: item %q: %w",
				path, i, fields[1], ErrConfig)
		}
		if user < 0 || user >= params.M {
			return nil, fmt.Errorf("store: %s: query %d: user %d: %w",
				path, i, user, ErrRange)
		}
		if item < 0 || item >= params.N {
			return nil, fmt.Errorf("store: %s: query %d: item %d: %w",
				path, i, item, ErrRange)
		}
		v := make(ring.Vec, k)
		for j, f := range fields[2:] {
			e, err := ring.ParseElem(f)
			if err != nil {
				return nil, fmt.Errorf("store: %s: query %d: %w",
					path, i, err)
			}
			v[j] = e
		}
		queries = append(queries, Query{
			User: user,
			Item: item,
			V:    v,
		})
	}
	return queries, nil
}

// NumQueries returns the query count from a query file header. The
// compute parties size the batch from their own inputs; the header is
// the authoritative count.
func NumQueries(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	lines := nonEmptyLines(string(data))
	if len(lines) == 0 {
		return 0, fmt.Errorf("store: %s: missing header: %w", path, ErrConfig)
	}
	var q, k int
	if _, err := fmt.Sscanf(lines[0], "%d %d", &q, &k); err != nil {
		return 0, fmt.Errorf("store: %s: header %q: %w",
			path, lines[0], ErrConfig)
	}
	if q < 0 {
		return 0, fmt.Errorf("store: %s: query count %d: %w",
			path, q, ErrConfig)
	}
	return q, nil
}

// WriteQueries stores a query file.
func WriteQueries(path string, queries []Query, k int) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%d %d\n", len(queries), k)
	for _, query := range queries {
		fmt.Fprintf(w, "%d %d %s\n", query.User, query.Item,
			query.V.String())
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
