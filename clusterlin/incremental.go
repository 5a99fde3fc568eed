// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package clusterlin

import (
	"slices"

	"github.com/btcsuite/clusterlin/bitset"
)

// FixLinearization reorders lin in place so that every transaction comes
// after its ancestors within lin.  Walking from the back, each transaction
// is moved forward just past its last ancestor; orders that are already
// topological are left untouched.
func FixLinearization[S bitset.Bits[S]](d *DepGraph[S], lin []int) {
	n := len(lin)
	var done S

	// i counts from the back of lin.
	for i := 0; i < n; i++ {
		elem := lin[n-1-i]

		// j is where elem goes, again counting from the back.  Elements
		// between its old and new spot shift one towards the front.
		j := i
		placeBefore := done.Intersect(d.Ancestors(elem))
		for placeBefore.Any() {
			toSwap := lin[n-j]
			placeBefore = placeBefore.Without(toSwap)
			lin[n-1-j] = toSwap
			j--
		}
		lin[n-1-j] = elem
		done = done.With(elem)
	}
}

// TrimLinearization returns lin without the positions in remove, keeping
// the relative order of the rest.  lin is not modified.
func TrimLinearization[S bitset.Bits[S]](lin []int, remove S) []int {
	trimmed := make([]int, 0, len(lin))
	for _, pos := range lin {
		if !remove.Has(pos) {
			trimmed = append(trimmed, pos)
		}
	}
	return trimmed
}

// completeLinearization returns lin restricted to target, without
// duplicates, followed by the members of target it lacks, and fixed up to
// be topological.
func completeLinearization[S bitset.Bits[S]](d *DepGraph[S], lin []int,
	target S) []int {

	out := make([]int, 0, target.Count())
	var seen S
	for _, pos := range lin {
		if !target.Has(pos) || seen.Has(pos) {
			continue
		}
		seen = seen.With(pos)
		out = append(out, pos)
	}
	out = d.AppendTopo(out, target.Difference(seen))
	FixLinearization(d, out)
	return out
}

// MergeLinearizations combines two orderings of transactions of d into one
// ordering of their union.  The inputs may cover different, overlapping
// subsets.  Each is first completed to the union, by appending what it lacks
// and fixing the order, and the two are then merged by repeatedly taking the
// better of their first chunks, intersected with the prefixes of the other.
// The result is at least as good as both completed inputs.
//
// Positions that do not hold a transaction in d are ignored.
func MergeLinearizations[S bitset.Bits[S]](d *DepGraph[S], a, b []int) []int {
	var union S
	for _, pos := range slices.Concat(a, b) {
		if pos >= 0 && pos < d.PositionRange() && d.Positions().Has(pos) {
			union = union.With(pos)
		}
	}

	merged := make([]int, 0, union.Count())
	if union.None() {
		return merged
	}

	chunksA := NewLinearizationChunking(d, completeLinearization(d, a, union))
	chunksB := NewLinearizationChunking(d, completeLinearization(d, b, union))
	for {
		firstA := chunksA.GetChunk(0)
		firstB := chunksB.GetChunk(0)

		// Take the higher of the two first chunks and improve it with
		// the prefixes of the other linearization.
		var best SetInfo[S]
		if firstB.FeeRate.Higher(firstA.FeeRate) {
			best = chunksA.IntersectPrefixes(firstB)
		} else {
			best = chunksB.IntersectPrefixes(firstA)
		}

		merged = d.AppendTopo(merged, best.Transactions)

		chunksA.MarkDone(best.Transactions)
		if chunksA.NumChunksLeft() == 0 {
			break
		}
		chunksB.MarkDone(best.Transactions)
	}

	log.Tracef("Merged linearizations of %d and %d into %d transactions",
		len(a), len(b), len(merged))

	return merged
}
