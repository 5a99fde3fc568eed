// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package clusterlin

import (
	"github.com/btcsuite/clusterlin/bitset"
	"github.com/btcsuite/clusterlin/feefrac"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// set is shorthand for a Set64 holding the given positions.
func set(positions ...int) bitset.Set64 {
	return bitset.FromSlice[bitset.Set64](positions...)
}

// mustGraph builds a graph from a cluster and fails the test on error.
func mustGraph(t require.TestingT, cluster Cluster[bitset.Set64]) *DepGraph[bitset.Set64] {
	d, err := NewDepGraphFromCluster(cluster)
	require.NoError(t, err)
	return d
}

// genCluster draws an acyclic cluster of up to maxTx transactions.  Edges
// are first drawn from lower to higher indices and the positions are then
// shuffled, so parents may sit at any position.
func genCluster(t *rapid.T, maxTx int) Cluster[bitset.Set64] {
	n := rapid.IntRange(0, maxTx).Draw(t, "numTxs")
	if n == 0 {
		return Cluster[bitset.Set64]{}
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	perm := rapid.Permutation(indices).Draw(t, "perm")

	density := rapid.IntRange(0, 100).Draw(t, "density")
	cluster := make(Cluster[bitset.Set64], n)
	for i := 0; i < n; i++ {
		entry := &cluster[perm[i]]
		entry.FeeRate = feefrac.New(
			rapid.Int64Range(0, 1000).Draw(t, "fee"),
			rapid.Int32Range(1, 100).Draw(t, "size"),
		)
		for j := 0; j < i; j++ {
			if rapid.IntRange(0, 99).Draw(t, "edge") < density {
				entry.Parents = entry.Parents.With(perm[j])
			}
		}
	}
	return cluster
}

// genGraph draws a graph via genCluster.
func genGraph(t *rapid.T, maxTx int) *DepGraph[bitset.Set64] {
	return mustGraph(t, genCluster(t, maxTx))
}

// genOrder draws a topologically valid ordering of all transactions of d by
// fixing up a random permutation.
func genOrder(t *rapid.T, d *DepGraph[bitset.Set64], label string) []int {
	positions := bitset.ToSlice(d.Positions())
	if len(positions) == 0 {
		return []int{}
	}
	lin := rapid.Permutation(positions).Draw(t, label)
	FixLinearization(d, lin)
	return lin
}

// isClosedWithin reports whether every member of s has all its ancestors
// within todo inside s.
func isClosedWithin[S bitset.Bits[S]](d *DepGraph[S], s, todo S) bool {
	for pos := range s.All() {
		if !d.Ancestors(pos).Intersect(todo).IsSubsetOf(s) {
			return false
		}
	}
	return true
}

// bruteForceBest returns the highest feerate of any non-empty topologically
// closed subset of todo by enumerating all subsets.
func bruteForceBest(d *DepGraph[bitset.Set64], todo bitset.Set64) feefrac.FeeFrac {
	positions := bitset.ToSlice(todo)
	var best feefrac.FeeFrac
	for mask := 1; mask < 1<<len(positions); mask++ {
		var s bitset.Set64
		for i, pos := range positions {
			if mask&(1<<i) != 0 {
				s = s.With(pos)
			}
		}
		if !isClosedWithin(d, s, todo) {
			continue
		}
		feerate := d.FeeRate(s)
		if best.IsEmpty() || feerate.Higher(best) {
			best = feerate
		}
	}
	return best
}

// bruteForceLinearize builds an optimal linearization by repeatedly taking
// a highest feerate closed subset found by enumeration.
func bruteForceLinearize(d *DepGraph[bitset.Set64]) []int {
	todo := d.Positions()
	lin := make([]int, 0, todo.Count())
	for todo.Any() {
		target := bruteForceBest(d, todo)
		positions := bitset.ToSlice(todo)
		var chosen bitset.Set64
		for mask := 1; mask < 1<<len(positions); mask++ {
			var s bitset.Set64
			for i, pos := range positions {
				if mask&(1<<i) != 0 {
					s = s.With(pos)
				}
			}
			if isClosedWithin(d, s, todo) &&
				feefrac.FeeRateCompare(d.FeeRate(s), target) == 0 {

				chosen = s
				break
			}
		}
		lin = d.AppendTopo(lin, chosen)
		todo = todo.Difference(chosen)
	}
	return lin
}

// requireValidLinearization fails unless lin is a linearization of d.
func requireValidLinearization[S bitset.Bits[S]](t require.TestingT, d *DepGraph[S], lin []int) {
	require.NoError(t, d.CheckLinearization(lin))
}

// requireNotWorse fails if a has a worse or incomparable diagram than b.
func requireNotWorse[S bitset.Bits[S]](t require.TestingT, d *DepGraph[S], a, b []int) {
	got := CompareLinearizations(d, a, b)
	require.Contains(t, []feefrac.Ordering{feefrac.Better, feefrac.Equal},
		got, "a=%v b=%v", a, b)
}

// chainCluster returns a chain in which transaction i spends i-1.
func chainCluster(feerates ...feefrac.FeeFrac) Cluster[bitset.Set64] {
	cluster := make(Cluster[bitset.Set64], len(feerates))
	for i, feerate := range feerates {
		cluster[i].FeeRate = feerate
		if i > 0 {
			cluster[i].Parents = set(i - 1)
		}
	}
	return cluster
}
