// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bitset

import (
	"iter"
	"math/bits"
)

const (
	// set512Words is the number of 64-bit words backing a Set512.
	set512Words = 8

	// set512Capacity is the number of positions a Set512 can hold.
	set512Capacity = set512Words * 64
)

// Set512 is a set of up to 512 positions packed into eight words.  The zero
// value is the empty set.  Position i lives in word i/64, bit i%64.
type Set512 [set512Words]uint64

// Ensure Set512 satisfies the Bits constraint.
var _ = assertBits[Set512]

// Capacity returns 512.
func (s Set512) Capacity() int {
	return set512Capacity
}

// Has reports whether position i is in the set.
func (s Set512) Has(i int) bool {
	checkPos(i, set512Capacity)
	return (s[i>>6]>>(uint(i)&63))&1 != 0
}

// With returns a copy of the set with position i added.
func (s Set512) With(i int) Set512 {
	checkPos(i, set512Capacity)
	s[i>>6] |= 1 << (uint(i) & 63)
	return s
}

// Without returns a copy of the set with position i removed.
func (s Set512) Without(i int) Set512 {
	checkPos(i, set512Capacity)
	s[i>>6] &^= 1 << (uint(i) & 63)
	return s
}

// Union returns s | o.
func (s Set512) Union(o Set512) Set512 {
	for w := range s {
		s[w] |= o[w]
	}
	return s
}

// Intersect returns s & o.
func (s Set512) Intersect(o Set512) Set512 {
	for w := range s {
		s[w] &= o[w]
	}
	return s
}

// Difference returns s minus o.
func (s Set512) Difference(o Set512) Set512 {
	for w := range s {
		s[w] &^= o[w]
	}
	return s
}

// Count returns the number of positions in the set.
func (s Set512) Count() int {
	var n int
	for _, word := range s {
		n += bits.OnesCount64(word)
	}
	return n
}

// Any reports whether the set is non-empty.
func (s Set512) Any() bool {
	return s != Set512{}
}

// None reports whether the set is empty.
func (s Set512) None() bool {
	return s == Set512{}
}

// First returns the lowest position in the set.
func (s Set512) First() int {
	for w, word := range s {
		if word != 0 {
			return w*64 + bits.TrailingZeros64(word)
		}
	}
	panic("bitset: First called on empty set")
}

// Last returns the highest position in the set.
func (s Set512) Last() int {
	for w := set512Words - 1; w >= 0; w-- {
		if s[w] != 0 {
			return w*64 + 63 - bits.LeadingZeros64(s[w])
		}
	}
	panic("bitset: Last called on empty set")
}

// Overlaps reports whether s and o share a position.
func (s Set512) Overlaps(o Set512) bool {
	for w := range s {
		if s[w]&o[w] != 0 {
			return true
		}
	}
	return false
}

// IsSubsetOf reports whether s is contained in o.
func (s Set512) IsSubsetOf(o Set512) bool {
	for w := range s {
		if s[w]&^o[w] != 0 {
			return false
		}
	}
	return true
}

// IsSupersetOf reports whether s contains o.
func (s Set512) IsSupersetOf(o Set512) bool {
	return o.IsSubsetOf(s)
}

// Singleton returns the set holding only position i.
func (Set512) Singleton(i int) Set512 {
	return Set512{}.With(i)
}

// Fill returns the set holding positions 0 through n-1.
func (Set512) Fill(n int) Set512 {
	checkFill(n, set512Capacity)

	var s Set512
	full := n >> 6
	for w := 0; w < full; w++ {
		s[w] = ^uint64(0)
	}
	if rem := uint(n) & 63; rem != 0 {
		s[full] = 1<<rem - 1
	}
	return s
}

// All iterates over the positions of the set in ascending order.
func (s Set512) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		for w, word := range s {
			for v := word; v != 0; v &= v - 1 {
				if !yield(w*64 + bits.TrailingZeros64(v)) {
					return
				}
			}
		}
	}
}

// String returns the positions of the set as {a,b,c}.
func (s Set512) String() string {
	return format(s.All())
}
