// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package clusterlin orders the transactions of a mempool cluster for mining.

A cluster is a set of unconfirmed transactions connected by spends.  A
linearization is an order of its transactions in which every transaction
follows all of its ancestors.  Cutting a linearization into chunks of
strictly decreasing feerate yields its feerate diagram, and a linearization
is better than another when its diagram is nowhere below the other's.  This
package finds linearizations with the best diagram it can within a budget.

# Dependency Graphs

DepGraph stores, for every position, the fee and size of the transaction
along with its full ancestor and descendant sets.  It is generic over the
set type, so small clusters use a single machine word per set:

	cluster := clusterlin.Cluster[bitset.Set64]{
	    {FeeRate: feefrac.New(100, 100)},
	    {FeeRate: feefrac.New(500, 100), Parents: bitset.Set64(0).With(0)},
	}
	d, err := clusterlin.NewDepGraphFromCluster(cluster)

Positions are stable.  RemoveTransactions leaves holes, so Positions and
PositionRange may differ from 0..TxCount()-1.

# Linearization

Linearize repeatedly picks the best next chunk.  The AncestorCandidateFinder
supplies a cheap candidate, and the SearchCandidateFinder improves it with an
exact branch and bound search over topologically closed subsets:

	res := clusterlin.Linearize(d, clusterlin.IterationBudget(10000), nil)
	clusterlin.PostLinearize(d, res.Linearization)
	chunks := clusterlin.ChunkLinearization(d, res.Linearization)

The search is deterministic.  Only the optional deadline of a Budget reads the
clock, and running out of budget yields a valid but possibly suboptimal
result, reported through SearchResult.State and LinearizeResult.Optimal.

# Incremental Updates

MergeLinearizations combines two linearizations into one at least as good as
either, FixLinearization repairs an order that is not topological, and
TrimLinearization drops removed transactions from an existing order.

# Concurrency

Nothing in this package locks.  A DepGraph may be read by concurrent
searches but must not be mutated while in use.
*/
package clusterlin
