// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitset

import (
	"iter"
	"math/bits"
)

// set64Capacity is the number of positions a Set64 can hold.
const set64Capacity = 64

// Set64 is a set of up to 64 positions packed into a single word.  The zero
// value is the empty set.
type Set64 uint64

// Ensure Set64 satisfies the Bits constraint.
var _ = assertBits[Set64]

// Capacity returns 64.
func (s Set64) Capacity() int {
	return set64Capacity
}

// Has reports whether position i is in the set.
func (s Set64) Has(i int) bool {
	checkPos(i, set64Capacity)
	return (s>>uint(i))&1 != 0
}

// With returns a copy of the set with position i added.
func (s Set64) With(i int) Set64 {
	checkPos(i, set64Capacity)
	return s | 1<<uint(i)
}

// Without returns a copy of the set with position i removed.
func (s Set64) Without(i int) Set64 {
	checkPos(i, set64Capacity)
	return s &^ (1 << uint(i))
}

// Union returns s | o.
func (s Set64) Union(o Set64) Set64 {
	return s | o
}

// Intersect returns s & o.
func (s Set64) Intersect(o Set64) Set64 {
	return s & o
}

// Difference returns s minus o.
func (s Set64) Difference(o Set64) Set64 {
	return s &^ o
}

// Count returns the number of positions in the set.
func (s Set64) Count() int {
	return bits.OnesCount64(uint64(s))
}

// Any reports whether the set is non-empty.
func (s Set64) Any() bool {
	return s != 0
}

// None reports whether the set is empty.
func (s Set64) None() bool {
	return s == 0
}

// First returns the lowest position in the set.
func (s Set64) First() int {
	if s == 0 {
		panic("bitset: First called on empty set")
	}
	return bits.TrailingZeros64(uint64(s))
}

// Last returns the highest position in the set.
func (s Set64) Last() int {
	if s == 0 {
		panic("bitset: Last called on empty set")
	}
	return set64Capacity - 1 - bits.LeadingZeros64(uint64(s))
}

// Overlaps reports whether s and o share a position.
func (s Set64) Overlaps(o Set64) bool {
	return s&o != 0
}

// IsSubsetOf reports whether s is contained in o.
func (s Set64) IsSubsetOf(o Set64) bool {
	return s&^o == 0
}

// IsSupersetOf reports whether s contains o.
func (s Set64) IsSupersetOf(o Set64) bool {
	return o&^s == 0
}

// Singleton returns the set holding only position i.
func (Set64) Singleton(i int) Set64 {
	checkPos(i, set64Capacity)
	return 1 << uint(i)
}

// Fill returns the set holding positions 0 through n-1.
func (Set64) Fill(n int) Set64 {
	checkFill(n, set64Capacity)
	if n == set64Capacity {
		return ^Set64(0)
	}
	return 1<<uint(n) - 1
}

// All iterates over the positions of the set in ascending order.
func (s Set64) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		for v := uint64(s); v != 0; v &= v - 1 {
			if !yield(bits.TrailingZeros64(v)) {
				return
			}
		}
	}
}

// String returns the positions of the set as {a,b,c}.
func (s Set64) String() string {
	return format(s.All())
}
