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
	"strings"

	"github.com/markkurossi/obliv/ring"
)

// Matrix is one party's additive share of a factor matrix.
type Matrix struct {
	Rows int
	Cols int
	Data []ring.Vec
}

// NewMatrix creates a zero matrix.
func NewMatrix(rows, cols int) *Matrix {
	m := &Matrix{
		Rows: rows,
		Cols: cols,
		Data: make([]ring.Vec, rows),
	}
	for i := range m.Data {
		m.Data[i] = ring.NewVec(cols)
	}
	return m
}

// Row returns row i. The returned vector aliases the matrix.
func (m *Matrix) Row(i int) ring.Vec {
	return m.Data[i]
}

// SetRow replaces row i.
func (m *Matrix) SetRow(i int, v ring.Vec) {
	if len(v) != m.Cols {
		panic("store: row length mismatch")
	}
	m.Data[i] = v
}

// ReadMatrix reads a matrix-share file: a `rows cols` header followed
// by rows lines of cols decimals.
func ReadMatrix(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := nonEmptyLines(string(data))
	if len(lines) == 0 {
		return nil, fmt.Errorf("store: %s: missing header: %w",
			path, ErrConfig)
	}
	var rows, cols int
	if _, err := fmt.Sscanf(lines[0], "%d %d", &rows, &cols); err != nil {
		return nil, fmt.Errorf("store: %s: header %q: %w",
			path, lines[0], ErrConfig)
	}
	if rows < 0 || cols < 1 {
		return nil, fmt.Errorf("store: %s: dimensions %dx%d: %w",
			path, rows, cols, ErrConfig)
	}
	if len(lines) != 1+rows {
		return nil, fmt.Errorf("store: %s: %d rows, header says %d: %w",
			path, len(lines)-1, rows, ErrConfig)
	}
	m := &Matrix{
		Rows: rows,
		Cols: cols,
		Data: make([]ring.Vec, rows),
	}
	for i := 0; i < rows; i++ {
		v, err := ring.ParseVec(lines[1+i])
		if err != nil {
			return nil, fmt.Errorf("store: %s: row %d: %w", path, i, err)
		}
		if len(v) != cols {
			return nil, fmt.Errorf(
				"store: %s: row %d has %d columns, expected %d: %w",
				path, i, len(v), cols, ErrConfig)
		}
		m.Data[i] = v
	}
	return m, nil
}

// Write stores the matrix atomically: the content is written to a
// temporary file which is renamed over path.
func (m *Matrix) Write(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%d %d\n", m.Rows, m.Cols)
	for _, row := range m.Data {
		fmt.Fprintln(w, row.String())
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

// UpdateRow rewrites one row of the matrix-share file at path,
// atomically replacing the file.
func UpdateRow(path string, i int, v ring.Vec) error {
	m, err := ReadMatrix(path)
	if err != nil {
		return err
	}
	if i < 0 || i >= m.Rows {
		return fmt.Errorf("store: %s: row %d of %d: %w",
			path, i, m.Rows, ErrRange)
	}
	if len(v) != m.Cols {
		return fmt.Errorf("store: %s: row length %d, expected %d: %w",
			path, len(v), m.Cols, ErrRange)
	}
	m.Data[i] = v
	return m.Write(path)
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}
