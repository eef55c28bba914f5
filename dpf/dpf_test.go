//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package dpf

import (
	"testing"

	"github.com/markkurossi/obliv/prng"
	"github.com/markkurossi/obliv/ring"
)

var levelsTests = []struct {
	n      uint64
	levels int
}{
	{1, 0},
	{2, 1},
	{3, 2},
	{4, 2},
	{5, 3},
	{8, 3},
	{9, 4},
	{1 << 20, 20},
}

func TestLevels(t *testing.T) {
	for _, test := range levelsTests {
		if got := Levels(test.n); got != test.levels {
			t.Errorf("Levels(%d)=%d, expected %d",
				test.n, got, test.levels)
		}
	}
}

func TestGenEval(t *testing.T) {
	rng := prng.NewSourceUint64(42)

	domains := []uint64{1, 2, 3, 4, 5, 8, 13, 64, 100}
	betas := []ring.Elem{0, 1, 7, 42, 0xffffffffffffffff}

	for _, n := range domains {
		for _, alpha := range []uint64{0, n / 2, n - 1} {
			for _, beta := range betas {
				key0, key1, err := Gen(rng, n, alpha, beta)
				if err != nil {
					t.Fatalf("Gen(%d,%d): %v", n, alpha, err)
				}
				verifyPair(t, key0, key1, n, alpha, beta)
			}
		}
	}
}

func verifyPair(t *testing.T, key0, key1 *Key, n, alpha uint64,
	beta ring.Elem) {
	t.Helper()

	if key0.T0 {
		t.Error("key0 root control bit set")
	}
	if !key1.T0 {
		t.Error("key1 root control bit clear")
	}
	if len(key0.CWs) != Levels(n) || len(key1.CWs) != Levels(n) {
		t.Errorf("cw count %d/%d, expected %d",
			len(key0.CWs), len(key1.CWs), Levels(n))
	}
	for i, cw := range key0.CWs {
		if cw != key1.CWs[i] {
			t.Errorf("correction words differ at level %d", i)
		}
	}
	if key0.CWOut != key1.CWOut {
		t.Error("output corrections differ")
	}

	full0 := key0.EvalFull(n)
	full1 := key1.EvalFull(n)
	for x := uint64(0); x < n; x++ {
		sum := full0[x] + full1[x]
		var expected ring.Elem
		if x == alpha {
			expected = beta
		}
		if sum != expected {
			t.Errorf("n=%d alpha=%d beta=%v: sum(%d)=%v, expected %v",
				n, alpha, beta, x, sum, expected)
		}
		if y := key0.Eval(x); y != full0[x] {
			t.Errorf("Eval(%d)=%v, EvalFull=%v", x, y, full0[x])
		}
		if y := key1.Eval(x); y != full1[x] {
			t.Errorf("Eval(%d)=%v, EvalFull=%v", x, y, full1[x])
		}
	}
}

// Four points, unit spike in the middle.
func TestPointFunction(t *testing.T) {
	rng := prng.NewSourceUint64(1)

	key0, key1, err := Gen(rng, 4, 2, 7)
	if err != nil {
		t.Fatal(err)
	}
	sums := key0.EvalFull(4).Add(key1.EvalFull(4))
	expected := ring.Vec{0, 0, 7, 0}
	for i, e := range sums {
		if e != expected[i] {
			t.Errorf("sum[%d]=%v, expected %v", i, e, expected[i])
		}
	}
}

// Single-point domain: no tree levels, the correction word alone
// programs the output.
func TestSinglePoint(t *testing.T) {
	rng := prng.NewSourceUint64(2)

	key0, key1, err := Gen(rng, 1, 0, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(key0.CWs) != 0 {
		t.Errorf("cw count %d, expected 0", len(key0.CWs))
	}
	if sum := key0.Eval(0) + key1.Eval(0); sum != 42 {
		t.Errorf("sum=%v, expected 42", sum)
	}
}

func TestGenErrors(t *testing.T) {
	rng := prng.NewSourceUint64(3)

	if _, _, err := Gen(rng, 0, 0, 1); err == nil {
		t.Error("Gen accepted an empty domain")
	}
	if _, _, err := Gen(rng, 8, 8, 1); err == nil {
		t.Error("Gen accepted an out-of-domain point")
	}
	if _, _, err := Gen(rng, 8, 0xffffffffffffffff, 1); err == nil {
		t.Error("Gen accepted an out-of-domain point")
	}
}

func TestGenDeterministic(t *testing.T) {
	a0, a1, err := Gen(prng.NewSourceUint64(99), 16, 5, 11)
	if err != nil {
		t.Fatal(err)
	}
	b0, b1, err := Gen(prng.NewSourceUint64(99), 16, 5, 11)
	if err != nil {
		t.Fatal(err)
	}
	if a0.S0 != b0.S0 || a1.S0 != b1.S0 || a0.CWOut != b0.CWOut {
		t.Error("equal seeds produced different keys")
	}
	for i := range a0.CWs {
		if a0.CWs[i] != b0.CWs[i] {
			t.Errorf("correction words differ at level %d", i)
		}
	}
}

func BenchmarkEvalFull(b *testing.B) {
	rng := prng.NewSourceUint64(4)
	key0, _, err := Gen(rng, 1024, 313, 1)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key0.EvalFull(1024)
	}
}
