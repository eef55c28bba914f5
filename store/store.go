//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package store implements the file formats shared by the dealer,
// the compute parties, and the dataset tools: the parameter file, the
// per-party query-share files, and the matrix-share files. All files
// are whitespace-separated signed decimals. Matrix updates go through
// a temporary file and an atomic rename so that a crashed run never
// leaves a torn share on disk.
package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrConfig indicates a malformed parameter, query, or matrix
	// file.
	ErrConfig = errors.New("invalid configuration")

	// ErrRange indicates an index or dimension outside the
	// configured model.
	ErrRange = errors.New("value out of range")
)

// Params holds the model dimensions and the query count: m users, n
// items, k latent dimensions, q queries.
type Params struct {
	M int
	N int
	K int
	Q int
}

// ReadParams reads and validates a parameter file.
func ReadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(string(data))
	if len(fields) != 4 {
		return nil, fmt.Errorf("store: %s: %d parameters: %w",
			path, len(fields), ErrConfig)
	}
	var values [4]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("store: %s: parameter %q: %w",
				path, f, ErrConfig)
		}
		values[i] = v
	}
	params := &Params{
		M: values[0],
		N: values[1],
		K: values[2],
		Q: values[3],
	}
	if params.M < 1 || params.N < 1 || params.K < 1 || params.Q < 0 {
		return nil, fmt.Errorf("store: %s: dimensions %v: %w",
			path, values, ErrConfig)
	}
	return params, nil
}

// Write stores the parameter file.
func (p *Params) Write(path string) error {
	data := fmt.Sprintf("%d %d %d %d\n", p.M, p.N, p.K, p.Q)
	return writeAtomic(path, []byte(data))
}

func (p *Params) String() string {
	return fmt.Sprintf("m=%d n=%d k=%d q=%d", p.M, p.N, p.K, p.Q)
}

// writeAtomic writes data into a temporary file and renames it over
// path.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
