//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package party

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/markkurossi/obliv/dealer"
	"github.com/markkurossi/obliv/p2p"
	"github.com/markkurossi/obliv/prng"
	"github.com/markkurossi/obliv/ring"
	"github.com/markkurossi/obliv/store"
)

func mat(rows ...ring.Vec) *store.Matrix {
	m := store.NewMatrix(len(rows), len(rows[0]))
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

func cloneMatrix(m *store.Matrix) *store.Matrix {
	clone := store.NewMatrix(m.Rows, m.Cols)
	for i, row := range m.Data {
		clone.SetRow(i, row.Clone())
	}
	return clone
}

func splitMatrix(rng *prng.Source, m *store.Matrix) (
	*store.Matrix, *store.Matrix) {

	m0 := store.NewMatrix(m.Rows, m.Cols)
	m1 := store.NewMatrix(m.Rows, m.Cols)
	for i, row := range m.Data {
		r0 := rng.Vec(m.Cols)
		m0.SetRow(i, r0)
		m1.SetRow(i, row.Sub(r0))
	}
	return m0, m1
}

func splitQueries(rng *prng.Source, queries []store.Query) [2][]store.Query {
	var shares [2][]store.Query
	for _, q := range queries {
		v0 := rng.Vec(len(q.V))
		shares[0] = append(shares[0], store.Query{
			User: q.User,
			Item: q.Item,
			V:    v0,
		})
		shares[1] = append(shares[1], store.Query{
			User: q.User,
			Item: q.Item,
			V:    q.V.Sub(v0),
		})
	}
	return shares
}

// plaintext applies the query batch to cleartext matrices: for each
// query u' = u + v(1-u.v) and V[item] += u_pre(1-u.v).
func plaintext(u, v *store.Matrix, queries []store.Query) {
	for _, q := range queries {
		row := u.Data[q.User]
		one := 1 - row.Dot(q.V)
		pre := row.Clone()
		for i := range row {
			row[i] += q.V[i] * one
		}
		for i, val := range pre {
			v.Data[q.Item][i] += val * one
		}
	}
}

// world holds the shared files and parties of one test run.
type world struct {
	params  *store.Params
	clear   []store.Query
	uPaths  [2]string
	vPaths  [2]string
	parties [2]*Party
}

func makeWorld(t *testing.T, params *store.Params, u, v *store.Matrix,
	queries []store.Query, seed uint64) *world {

	t.Helper()
	dir := t.TempDir()
	rng := prng.NewSourceUint64(seed)

	w := &world{
		params: params,
		clear:  queries,
	}
	u0, u1 := splitMatrix(rng, u)
	v0, v1 := splitMatrix(rng, v)
	shares := splitQueries(rng, queries)

	for role, m := range []*store.Matrix{u0, u1} {
		path := filepath.Join(dir, fmt.Sprintf("u%d.txt", role))
		if err := m.Write(path); err != nil {
			t.Fatalf("Write: %v", err)
		}
		w.uPaths[role] = path
	}
	for role, m := range []*store.Matrix{v0, v1} {
		path := filepath.Join(dir, fmt.Sprintf("v%d.txt", role))
		if err := m.Write(path); err != nil {
			t.Fatalf("Write: %v", err)
		}
		w.vPaths[role] = path
	}
	for role := 0; role < 2; role++ {
		p, err := New(role, params, shares[role], w.uPaths[role],
			w.vPaths[role], false)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		w.parties[role] = p
	}
	return w
}

// run executes one full session over in-memory pipes and returns the
// peer connections for transcript inspection.
func (w *world) run(t *testing.T, seed uint64) [2]*p2p.Conn {
	t.Helper()

	d, err := dealer.New(w.params, w.clear, &dealer.Config{
		Rand: prng.NewSourceUint64(seed),
	})
	if err != nil {
		t.Fatalf("dealer.New: %v", err)
	}

	d0, pd0 := p2p.Pipe()
	d1, pd1 := p2p.Pipe()
	peer0, peer1 := p2p.Pipe()

	errs := make(chan error, 3)
	go func() {
		errs <- d.Serve(d0, d1)
	}()
	go func() {
		errs <- w.parties[0].Run(pd0, func() (*p2p.Conn, error) {
			return peer0, nil
		})
	}()
	go func() {
		errs <- w.parties[1].Run(pd1, func() (*p2p.Conn, error) {
			return peer1, nil
		})
	}()
	for i := 0; i < 3; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("session: %v", err)
		}
	}
	return [2]*p2p.Conn{peer0, peer1}
}

func sumShares(t *testing.T, paths [2]string) *store.Matrix {
	t.Helper()
	m0, err := store.ReadMatrix(paths[0])
	if err != nil {
		t.Fatalf("ReadMatrix: %v", err)
	}
	m1, err := store.ReadMatrix(paths[1])
	if err != nil {
		t.Fatalf("ReadMatrix: %v", err)
	}
	sum := store.NewMatrix(m0.Rows, m0.Cols)
	for i := range m0.Data {
		sum.SetRow(i, m0.Data[i].Add(m1.Data[i]))
	}
	return sum
}

func checkMatrix(t *testing.T, name string, got, expected *store.Matrix) {
	t.Helper()
	if got.Rows != expected.Rows || got.Cols != expected.Cols {
		t.Fatalf("%s is %dx%d, expected %dx%d",
			name, got.Rows, got.Cols, expected.Rows, expected.Cols)
	}
	for i := range expected.Data {
		for j, val := range expected.Data[i] {
			if got.Data[i][j] != val {
				t.Errorf("%s[%d][%d] = %v, expected %v",
					name, i, j, got.Data[i][j], val)
			}
		}
	}
}

func TestUnitDeltaKeepsModel(t *testing.T) {
	params := &store.Params{M: 2, N: 2, K: 2, Q: 1}
	u := mat(ring.Vec{1, 2}, ring.Vec{3, 4})
	v := mat(ring.Vec{0, 1}, ring.Vec{1, 0})
	queries := []store.Query{
		{User: 0, Item: 1, V: ring.Vec{1, 0}},
	}

	w := makeWorld(t, params, u, v, queries, 1)
	w.run(t, 2)

	checkMatrix(t, "U", sumShares(t, w.uPaths),
		mat(ring.Vec{1, 2}, ring.Vec{3, 4}))
	checkMatrix(t, "V", sumShares(t, w.vPaths),
		mat(ring.Vec{0, 1}, ring.Vec{1, 0}))
}

func TestZeroDeltaUpdate(t *testing.T) {
	params := &store.Params{M: 2, N: 2, K: 2, Q: 1}
	u := mat(ring.Vec{0, 0}, ring.Vec{0, 0})
	v := mat(ring.Vec{1, 0}, ring.Vec{0, 1})
	queries := []store.Query{
		{User: 0, Item: 0, V: ring.Vec{1, 0}},
	}

	w := makeWorld(t, params, u, v, queries, 3)
	w.run(t, 4)

	checkMatrix(t, "U", sumShares(t, w.uPaths),
		mat(ring.Vec{1, 0}, ring.Vec{0, 0}))
	checkMatrix(t, "V", sumShares(t, w.vPaths),
		mat(ring.Vec{1, 0}, ring.Vec{0, 1}))
}

func TestSequentialQueries(t *testing.T) {
	params := &store.Params{M: 2, N: 2, K: 2, Q: 2}
	u := mat(ring.Vec{0, 0}, ring.Vec{0, 0})
	v := mat(ring.Vec{1, 0}, ring.Vec{0, 1})
	queries := []store.Query{
		{User: 0, Item: 0, V: ring.Vec{1, 0}},
		{User: 0, Item: 1, V: ring.Vec{0, 1}},
	}

	expectedU := cloneMatrix(u)
	expectedV := cloneMatrix(v)
	plaintext(expectedU, expectedV, queries)

	w := makeWorld(t, params, u, v, queries, 5)
	w.run(t, 6)

	checkMatrix(t, "U", sumShares(t, w.uPaths), expectedU)
	checkMatrix(t, "V", sumShares(t, w.vPaths), expectedV)

	// The second query sees the first query's updates.
	checkMatrix(t, "U", expectedU, mat(ring.Vec{1, 1}, ring.Vec{0, 0}))
	checkMatrix(t, "V", expectedV, mat(ring.Vec{1, 0}, ring.Vec{1, 1}))
}

func TestRandomQueries(t *testing.T) {
	params := &store.Params{M: 5, N: 7, K: 3, Q: 4}
	rng := prng.NewSourceUint64(42)

	u := store.NewMatrix(params.M, params.K)
	for i := 0; i < params.M; i++ {
		u.SetRow(i, rng.Vec(params.K))
	}
	v := store.NewMatrix(params.N, params.K)
	for i := 0; i < params.N; i++ {
		v.SetRow(i, rng.Vec(params.K))
	}
	var queries []store.Query
	for i := 0; i < params.Q; i++ {
		queries = append(queries, store.Query{
			User: int(rng.Int63n(int64(params.M))),
			Item: int(rng.Int63n(int64(params.N))),
			V:    rng.Vec(params.K),
		})
	}

	expectedU := cloneMatrix(u)
	expectedV := cloneMatrix(v)
	plaintext(expectedU, expectedV, queries)

	w := makeWorld(t, params, u, v, queries, 7)
	w.run(t, 8)

	checkMatrix(t, "U", sumShares(t, w.uPaths), expectedU)
	checkMatrix(t, "V", sumShares(t, w.vPaths), expectedV)

	// Three preprocessing phases, connect, and one sample per query.
	p := w.parties[0]
	if len(p.timing.Samples) != 4+params.Q {
		t.Errorf("got %d timing samples, expected %d",
			len(p.timing.Samples), 4+params.Q)
	}
	if p.stats.Sum() == 0 {
		t.Error("no transfer recorded")
	}
}

func TestEmptyBatch(t *testing.T) {
	params := &store.Params{M: 2, N: 2, K: 2, Q: 0}
	u := mat(ring.Vec{1, 2}, ring.Vec{3, 4})
	v := mat(ring.Vec{5, 6}, ring.Vec{7, 8})

	w := makeWorld(t, params, u, v, nil, 9)
	w.run(t, 10)

	checkMatrix(t, "U", sumShares(t, w.uPaths),
		mat(ring.Vec{1, 2}, ring.Vec{3, 4}))
	checkMatrix(t, "V", sumShares(t, w.vPaths),
		mat(ring.Vec{5, 6}, ring.Vec{7, 8}))
}

func TestTruncatedDealerStream(t *testing.T) {
	params := &store.Params{M: 2, N: 2, K: 2, Q: 1}
	u := mat(ring.Vec{1, 2}, ring.Vec{3, 4})
	v := mat(ring.Vec{0, 1}, ring.Vec{1, 0})
	queries := []store.Query{
		{User: 0, Item: 1, V: ring.Vec{1, 0}},
	}
	w := makeWorld(t, params, u, v, queries, 11)

	uBefore, err := os.ReadFile(w.uPaths[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	vBefore, err := os.ReadFile(w.vPaths[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	dc, pc := p2p.Pipe()
	fault := make(chan error, 1)
	go func() {
		fault <- func() error {
			// A dealer that dies after the share block.
			for _, line := range []string{"1 2", "3 4", "5", "", "OK"} {
				if err := dc.SendLine(line); err != nil {
					return err
				}
			}
			return dc.Close()
		}()
	}()

	err = w.parties[0].Run(pc, func() (*p2p.Conn, error) {
		return nil, errors.New("no peer")
	})
	if err == nil {
		t.Fatal("truncated dealer stream not detected")
	}
	if !errors.Is(err, ErrWire) {
		t.Errorf("error %v, expected a wire error", err)
	}
	if !strings.Contains(err.Error(), "TRPL") {
		t.Errorf("error %q does not name the missing header", err)
	}
	if err := <-fault; err != nil {
		t.Fatalf("dealer: %v", err)
	}

	// The share files are untouched.
	uAfter, err := os.ReadFile(w.uPaths[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	vAfter, err := os.ReadFile(w.vPaths[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(uBefore, uAfter) || !bytes.Equal(vBefore, vAfter) {
		t.Error("share files modified on a failed run")
	}
}

func TestBarrierMismatch(t *testing.T) {
	c0, c1 := p2p.Pipe()
	p0 := &Party{role: 0}
	p1 := &Party{role: 1}

	errs := make(chan error, 2)
	go func() {
		errs <- p0.barrier(c0, barrierQuery, 0)
	}()
	go func() {
		errs <- p1.barrier(c1, barrierQuery, 1)
	}()
	for i := 0; i < 2; i++ {
		err := <-errs
		if err == nil {
			t.Error("barrier mismatch not detected")
		} else if !errors.Is(err, ErrProtocol) {
			t.Errorf("error %v, expected a protocol error", err)
		}
	}
}

// TestPeerTrafficOblivious runs the same session with two different
// queried items and verifies that the peer transcripts have identical
// shapes: the traffic must not depend on the hidden index.
func TestPeerTrafficOblivious(t *testing.T) {
	var stats [2][2][3]uint64

	for run, item := range []int{0, 7} {
		params := &store.Params{M: 2, N: 8, K: 2, Q: 1}
		u := mat(ring.Vec{1, 2}, ring.Vec{3, 4})
		v := store.NewMatrix(params.N, params.K)
		rng := prng.NewSourceUint64(13)
		for i := 0; i < params.N; i++ {
			v.SetRow(i, rng.Vec(params.K))
		}
		queries := []store.Query{
			{User: 1, Item: item, V: ring.Vec{9, 11}},
		}
		w := makeWorld(t, params, u, v, queries, 14)
		peers := w.run(t, 15)

		for role, conn := range peers {
			stats[run][role] = [3]uint64{
				conn.Stats.Sent.Load(),
				conn.Stats.Recvd.Load(),
				conn.Stats.Flushed.Load(),
			}
		}
	}
	for role := 0; role < 2; role++ {
		if stats[0][role] != stats[1][role] {
			t.Errorf("party %d transcript depends on the queried item: "+
				"%v vs %v", role, stats[0][role], stats[1][role])
		}
	}
}

func TestNewValidation(t *testing.T) {
	params := &store.Params{M: 1, N: 1, K: 1, Q: 0}
	if _, err := New(2, params, nil, "u", "v", false); err == nil {
		t.Error("invalid role not detected")
	}
	if _, err := New(0, params, make([]store.Query, 1), "u", "v",
		false); err == nil {
		t.Error("query count mismatch not detected")
	}
}
