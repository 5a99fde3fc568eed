// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package clusterlin

import (
	"github.com/btcsuite/clusterlin/bitset"
	"github.com/btcsuite/clusterlin/feefrac"
)

// absorbs reports whether a chunk with feerate next must be merged into the
// chunk before it.  Merging on equal feerate keeps chunk feerates strictly
// decreasing.
func absorbs(next, prev feefrac.FeeFrac) bool {
	return !next.Lower(prev)
}

// ChunkLinearization splits lin into chunks whose feerates strictly decrease
// from one chunk to the next.  Each transaction starts out as its own chunk
// and is merged into its predecessor while its feerate is at least the
// predecessor's.
func ChunkLinearization[S bitset.Bits[S]](d *DepGraph[S], lin []int) []SetInfo[S] {
	chunks := make([]SetInfo[S], 0, len(lin))
	for _, pos := range lin {
		add := SingletonInfo(d, pos)
		for len(chunks) > 0 && absorbs(add.FeeRate, chunks[len(chunks)-1].FeeRate) {
			add = add.Merge(chunks[len(chunks)-1])
			chunks = chunks[:len(chunks)-1]
		}
		chunks = append(chunks, add)
	}
	return chunks
}

// ChunkFeeRates returns only the fee fractions of the chunks of lin.
func ChunkFeeRates[S bitset.Bits[S]](d *DepGraph[S], lin []int) []feefrac.FeeFrac {
	chunks := ChunkLinearization(d, lin)
	rates := make([]feefrac.FeeFrac, len(chunks))
	for i, chunk := range chunks {
		rates[i] = chunk.FeeRate
	}
	return rates
}

// CompareLinearizations compares the feerate diagrams of two linearizations
// of the same graph, from the perspective of a.
func CompareLinearizations[S bitset.Bits[S]](d *DepGraph[S], a, b []int) feefrac.Ordering {
	return feefrac.CompareChunks(ChunkFeeRates(d, a), ChunkFeeRates(d, b))
}

// LinearizationChunking maintains the chunking of what remains of a
// linearization as subsets of it are marked done.
type LinearizationChunking[S bitset.Bits[S]] struct {
	d   *DepGraph[S]
	lin []int

	// chunks holds the chunking of the remaining transactions.  The first
	// skip entries were consumed by MarkDone and are no longer valid.
	chunks []SetInfo[S]
	skip   int

	todo S
}

// NewLinearizationChunking returns the chunking of lin, which must be a
// topologically valid ordering of a subset of d.
func NewLinearizationChunking[S bitset.Bits[S]](d *DepGraph[S], lin []int) *LinearizationChunking[S] {
	c := &LinearizationChunking[S]{
		d:   d,
		lin: lin,
	}
	for _, pos := range lin {
		c.todo = c.todo.With(pos)
	}
	c.build()
	return c
}

// build recomputes the chunks from the transactions still to do.
func (c *LinearizationChunking[S]) build() {
	c.chunks = c.chunks[:0]
	c.skip = 0

	// Drop the leading transactions that are already done.
	for len(c.lin) > 0 && !c.todo.Has(c.lin[0]) {
		c.lin = c.lin[1:]
	}

	for _, pos := range c.lin {
		if !c.todo.Has(pos) {
			continue
		}
		add := SingletonInfo(c.d, pos)
		for len(c.chunks) > 0 &&
			absorbs(add.FeeRate, c.chunks[len(c.chunks)-1].FeeRate) {

			add = add.Merge(c.chunks[len(c.chunks)-1])
			c.chunks = c.chunks[:len(c.chunks)-1]
		}
		c.chunks = append(c.chunks, add)
	}
}

// NumChunksLeft returns the number of chunks of the remaining transactions.
func (c *LinearizationChunking[S]) NumChunksLeft() int {
	return len(c.chunks) - c.skip
}

// GetChunk returns chunk n of the remaining transactions.
func (c *LinearizationChunking[S]) GetChunk(n int) SetInfo[S] {
	return c.chunks[c.skip+n]
}

// NumTxLeft returns the number of remaining transactions.
func (c *LinearizationChunking[S]) NumTxLeft() int {
	return c.todo.Count()
}

// MarkDone removes subset, which must consist of remaining transactions,
// from the chunking.  Removing exactly the first chunk is cheap; anything
// else rebuilds the chunking.
func (c *LinearizationChunking[S]) MarkDone(subset S) {
	c.todo = c.todo.Difference(subset)
	if c.NumChunksLeft() > 0 && c.GetChunk(0).Transactions == subset {
		// The first chunk spans at least as many linearization entries
		// as it has transactions, so this only drops entries that are
		// done.
		c.lin = c.lin[subset.Count():]
		c.skip++
		return
	}
	c.build()
}

// IntersectPrefixes finds the first prefix of the remaining chunks whose
// intersection with subset has a feerate at least that of subset, and
// returns that intersection.  The result is never worse than subset, and
// when subset is topologically closed within the remaining transactions so
// is the result.
func (c *LinearizationChunking[S]) IntersectPrefixes(subset SetInfo[S]) SetInfo[S] {
	var acc SetInfo[S]
	for i := 0; i < c.NumChunksLeft(); i++ {
		toAdd := c.GetChunk(i).Transactions.Intersect(subset.Transactions)
		if toAdd.None() {
			continue
		}
		acc.Transactions = acc.Transactions.Union(toAdd)
		if acc.Transactions == subset.Transactions {
			break
		}
		acc.FeeRate = acc.FeeRate.Add(c.d.FeeRate(toAdd))
		if !acc.FeeRate.Lower(subset.FeeRate) {
			return acc
		}
	}
	return subset
}
