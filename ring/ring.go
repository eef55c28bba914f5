//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package ring implements arithmetic over the ring Z/2^64 Z. All
// protocol values - matrix entries, additive shares, Beaver triples,
// and point-function outputs - are ring elements, and all arithmetic
// wraps modulo 2^64.
package ring

import (
	"fmt"
	"strconv"
	"strings"
)

// Elem is a ring element. Addition, subtraction, and multiplication
// are the native uint64 operations; overflow is reduction modulo
// 2^64.
type Elem uint64

// String returns the element in the signed decimal form used in
// share files and on the dealer wire. Elements with the high bit set
// print as negative numbers.
func (e Elem) String() string {
	return strconv.FormatInt(int64(e), 10)
}

// ParseElem parses a decimal ring element. Negative numbers decode
// to their two's complement ring value so that formatting and
// parsing round-trip for all elements.
func ParseElem(s string) (Elem, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Elem(i), nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Elem(u), nil
	}
	return 0, fmt.Errorf("ring: invalid element %q", s)
}

// Vec is a vector of ring elements.
type Vec []Elem

// NewVec creates a zero vector of n elements.
func NewVec(n int) Vec {
	return make(Vec, n)
}

// Clone returns a copy of the vector.
func (v Vec) Clone() Vec {
	n := make(Vec, len(v))
	copy(n, v)
	return n
}

// Add returns the element-wise sum v+o.
func (v Vec) Add(o Vec) Vec {
	if len(v) != len(o) {
		panic("ring: vector length mismatch")
	}
	result := make(Vec, len(v))
	for i, e := range v {
		result[i] = e + o[i]
	}
	return result
}

// Sub returns the element-wise difference v-o.
func (v Vec) Sub(o Vec) Vec {
	if len(v) != len(o) {
		panic("ring: vector length mismatch")
	}
	result := make(Vec, len(v))
	for i, e := range v {
		result[i] = e - o[i]
	}
	return result
}

// Dot returns the inner product of v and o.
func (v Vec) Dot(o Vec) Elem {
	if len(v) != len(o) {
		panic("ring: vector length mismatch")
	}
	var sum Elem
	for i, e := range v {
		sum += e * o[i]
	}
	return sum
}

// String returns the vector as space-separated signed decimals, the
// row format of matrix and query files.
func (v Vec) String() string {
	var sb strings.Builder
	for i, e := range v {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(e.String())
	}
	return sb.String()
}

// ParseVec parses a whitespace-separated vector of ring elements.
func ParseVec(s string) (Vec, error) {
	fields := strings.Fields(s)
	v := make(Vec, 0, len(fields))
	for _, f := range fields {
		e, err := ParseElem(f)
		if err != nil {
			return nil, err
		}
		v = append(v, e)
	}
	return v, nil
}
