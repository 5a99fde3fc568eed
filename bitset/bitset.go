// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bitset provides fixed-capacity sets of transaction positions.
//
// Sets are small value types: every operation returns a new set and never
// mutates its receiver, so sets can be copied, stored in slices and compared
// with == freely.  Two implementations are provided:
//
//   - Set64 packs up to 64 positions into a single machine word.
//   - Set512 packs up to 512 positions into eight machine words.
//
// Code that works on sets of any capacity is written against the Bits
// constraint:
//
//	func count[S bitset.Bits[S]](s S) int {
//	    return s.Count()
//	}
//
// Positions outside [0, Capacity) are precondition violations and panic.
package bitset

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// Bits is the constraint satisfied by every set implementation in this
// package.  S is the concrete set type itself, which allows operations to
// return values of the same type without boxing.
type Bits[S any] interface {
	comparable

	// Capacity returns the number of positions the set type can hold.
	Capacity() int

	// Has reports whether position i is in the set.
	Has(i int) bool

	// With returns a copy of the set with position i added.
	With(i int) S

	// Without returns a copy of the set with position i removed.
	Without(i int) S

	// Union returns the positions present in either set.
	Union(o S) S

	// Intersect returns the positions present in both sets.
	Intersect(o S) S

	// Difference returns the positions of the receiver that are not in o.
	Difference(o S) S

	// Count returns the number of positions in the set.
	Count() int

	// Any reports whether the set is non-empty.
	Any() bool

	// None reports whether the set is empty.
	None() bool

	// First returns the lowest position in the set.  It panics on an
	// empty set.
	First() int

	// Last returns the highest position in the set.  It panics on an
	// empty set.
	Last() int

	// Overlaps reports whether the sets share at least one position.
	Overlaps(o S) bool

	// IsSubsetOf reports whether every position of the receiver is in o.
	IsSubsetOf(o S) bool

	// IsSupersetOf reports whether every position of o is in the
	// receiver.
	IsSupersetOf(o S) bool

	// Singleton returns a set holding only position i.
	Singleton(i int) S

	// Fill returns a set holding positions 0 through n-1.
	Fill(n int) S

	// All iterates over the positions of the set in ascending order.
	All() iter.Seq[int]
}

// Singleton returns the set of type S holding only position i.
func Singleton[S Bits[S]](i int) S {
	var zero S
	return zero.Singleton(i)
}

// Fill returns the set of type S holding positions 0 through n-1.
func Fill[S Bits[S]](n int) S {
	var zero S
	return zero.Fill(n)
}

// FromSlice returns the set of type S holding the given positions.
func FromSlice[S Bits[S]](positions ...int) S {
	var s S
	for _, pos := range positions {
		s = s.With(pos)
	}
	return s
}

// ToSlice returns the positions of s in ascending order.
func ToSlice[S Bits[S]](s S) []int {
	out := make([]int, 0, s.Count())
	for pos := range s.All() {
		out = append(out, pos)
	}
	return out
}

// Capacity returns the capacity of set type S.
func Capacity[S Bits[S]]() int {
	var zero S
	return zero.Capacity()
}

// assertBits only exists so implementations can be checked against the Bits
// constraint at compile time.
func assertBits[S Bits[S]]() {}

// checkPos panics when pos is not a valid position for a set of the given
// capacity.
func checkPos(pos, capacity int) {
	if pos < 0 || pos >= capacity {
		panic(fmt.Sprintf("bitset: position %d out of range [0, %d)",
			pos, capacity))
	}
}

// checkFill panics when n is not a valid fill count for a set of the given
// capacity.
func checkFill(n, capacity int) {
	if n < 0 || n > capacity {
		panic(fmt.Sprintf("bitset: fill count %d out of range [0, %d]",
			n, capacity))
	}
}

// format renders positions as {a,b,c}.
func format(positions iter.Seq[int]) string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for pos := range positions {
		if !first {
			sb.WriteByte(',')
		}
		first = false
		sb.WriteString(strconv.Itoa(pos))
	}
	sb.WriteByte('}')
	return sb.String()
}
