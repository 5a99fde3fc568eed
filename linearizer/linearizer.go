// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package linearizer provides a cluster linearization service on top of
// package clusterlin.  It accepts clusters in a plain index based form,
// picks the set representation from the cluster size, applies the
// configured budget and post-processing, and remembers which clusters it
// has already linearized optimally.
package linearizer

import (
	"fmt"
	"slices"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/clusterlin/bitset"
	"github.com/btcsuite/clusterlin/clusterlin"
	"github.com/btcsuite/clusterlin/feefrac"
	"github.com/decred/dcrd/lru"
)

// Chunk is a group of transactions of a linearization that is mined
// together.
type Chunk struct {
	// Txs lists the cluster indices of the chunk in linearization order.
	Txs []int

	// FeeRate is the combined fee and size of the chunk.
	FeeRate feefrac.FeeFrac
}

// Result is a linearization of a cluster together with its chunking.
type Result struct {
	// Linearization lists cluster indices in mining order.
	Linearization []int

	// Chunks holds the chunking of Linearization.  Chunk feerates
	// strictly decrease.
	Chunks []Chunk

	// Optimal reports whether the linearization is known to be optimal.
	Optimal bool

	// Cached reports whether optimality was known from an earlier
	// request, so no search was done.
	Cached bool

	// Iterations is the number of search steps spent.
	Iterations uint64

	// Fingerprint identifies the cluster together with Linearization.
	Fingerprint chainhash.Hash
}

// ChunkFeeRates returns the fee fractions of the chunks.
func (r *Result) ChunkFeeRates() []feefrac.FeeFrac {
	rates := make([]feefrac.FeeFrac, len(r.Chunks))
	for i, chunk := range r.Chunks {
		rates[i] = chunk.FeeRate
	}
	return rates
}

// Linearizer linearizes clusters within a configured budget.  It is safe for
// concurrent use.
type Linearizer struct {
	cfg Config

	// optimal holds the fingerprints of cluster and linearization pairs
	// known to be optimal.  It is nil when caching is disabled.
	optimal *lru.Cache

	now func() time.Time
}

// New returns a Linearizer using cfg, or DefaultConfig when cfg is nil.
func New(cfg *Config) *Linearizer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Linearizer{
		cfg: *cfg,
		now: time.Now,
	}
	if cfg.CacheSize > 0 {
		cache := lru.NewCache(cfg.CacheSize)
		l.optimal = &cache
	}
	return l
}

// dispatch runs the Set64 variant of an operation for clusters of up to 64
// transactions and the Set512 variant for clusters of up to
// MaxClusterSize.
func dispatch(n int, small func() (*Result, error),
	large func() (*Result, error)) (*Result, error) {

	switch {
	case n <= bitset.Capacity[bitset.Set64]():
		return small()
	case n <= MaxClusterSize:
		return large()
	default:
		return nil, fmt.Errorf("%w: %d transactions, max %d",
			ErrClusterTooLarge, n, MaxClusterSize)
	}
}

// Linearize computes a linearization of cluster from scratch.
func (l *Linearizer) Linearize(cluster Cluster) (*Result, error) {
	return l.Relinearize(cluster, nil)
}

// Relinearize improves current, an existing linearization of cluster.  The
// result is never worse than current.  When current is already known to be
// optimal it is returned without searching.  current may be nil.
func (l *Linearizer) Relinearize(cluster Cluster, current []int) (*Result, error) {
	return dispatch(len(cluster),
		func() (*Result, error) {
			return relinearize[bitset.Set64](l, cluster, current)
		},
		func() (*Result, error) {
			return relinearize[bitset.Set512](l, cluster, current)
		},
	)
}

// Merge combines two orderings of transactions of cluster into one that is
// at least as good as both.  The orderings may cover different subsets of
// the cluster; the result covers their union.
func (l *Linearizer) Merge(cluster Cluster, a, b []int) (*Result, error) {
	return dispatch(len(cluster),
		func() (*Result, error) {
			return merge[bitset.Set64](l, cluster, a, b)
		},
		func() (*Result, error) {
			return merge[bitset.Set512](l, cluster, a, b)
		},
	)
}

// Remove drops the removed transactions from lin, a linearization of
// cluster, and improves what remains.  The result refers to the surviving
// transactions by their original indices.
func (l *Linearizer) Remove(cluster Cluster, lin, removed []int) (*Result, error) {
	return dispatch(len(cluster),
		func() (*Result, error) {
			return remove[bitset.Set64](l, cluster, lin, removed)
		},
		func() (*Result, error) {
			return remove[bitset.Set512](l, cluster, lin, removed)
		},
	)
}

// isOptimal reports whether fp is cached as optimal.
func (l *Linearizer) isOptimal(fp chainhash.Hash) bool {
	return l.optimal != nil && l.optimal.Contains(fp)
}

// markOptimal caches fp as optimal.
func (l *Linearizer) markOptimal(fp chainhash.Hash) {
	if l.optimal != nil {
		l.optimal.Add(fp)
	}
}

// checkLinearization validates a full linearization of d.
func checkLinearization[S bitset.Bits[S]](d *clusterlin.DepGraph[S], lin []int) error {
	if err := d.CheckLinearization(lin); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLinearization, err)
	}
	return nil
}

func relinearize[S bitset.Bits[S]](l *Linearizer, cluster Cluster,
	current []int) (*Result, error) {

	d, err := buildGraph[S](cluster)
	if err != nil {
		return nil, err
	}

	if current != nil {
		if err := checkLinearization(d, current); err != nil {
			return nil, err
		}

		fp := Fingerprint(cluster, current)
		if l.isOptimal(fp) {
			log.Tracef("Cluster %v already optimal", fp)
			res := newResult(d, slices.Clone(current), fp)
			res.Optimal = true
			res.Cached = true
			return res, nil
		}
	}

	lin := clusterlin.Linearize(d, l.cfg.budget(l.now()), current)
	if l.cfg.PostLinearize {
		clusterlin.PostLinearize(d, lin.Linearization)
	}

	fp := Fingerprint(cluster, lin.Linearization)
	if lin.Optimal {
		l.markOptimal(fp)
	}

	log.Debugf("Linearized cluster of %d transactions in %d iterations "+
		"(optimal=%v)", len(cluster), lin.Iterations, lin.Optimal)

	res := newResult(d, lin.Linearization, fp)
	res.Optimal = lin.Optimal
	res.Iterations = lin.Iterations
	return res, nil
}

func merge[S bitset.Bits[S]](l *Linearizer, cluster Cluster,
	a, b []int) (*Result, error) {

	d, err := buildGraph[S](cluster)
	if err != nil {
		return nil, err
	}
	if _, err := toSet[S](len(cluster), a); err != nil {
		return nil, err
	}
	if _, err := toSet[S](len(cluster), b); err != nil {
		return nil, err
	}

	merged := clusterlin.MergeLinearizations(d, a, b)
	if l.cfg.PostLinearize {
		clusterlin.PostLinearize(d, merged)
	}

	fp := Fingerprint(cluster, merged)
	res := newResult(d, merged, fp)
	res.Optimal = len(merged) == len(cluster) && l.isOptimal(fp)

	log.Debugf("Merged orderings of %d and %d transactions into %d",
		len(a), len(b), len(merged))

	return res, nil
}

func remove[S bitset.Bits[S]](l *Linearizer, cluster Cluster,
	lin, removed []int) (*Result, error) {

	d, err := buildGraph[S](cluster)
	if err != nil {
		return nil, err
	}
	if err := checkLinearization(d, lin); err != nil {
		return nil, err
	}
	del, err := toSet[S](len(cluster), removed)
	if err != nil {
		return nil, err
	}

	d.RemoveTransactions(del)
	trimmed := clusterlin.TrimLinearization(lin, del)

	improved := clusterlin.Linearize(d, l.cfg.budget(l.now()), trimmed)
	if l.cfg.PostLinearize {
		clusterlin.PostLinearize(d, improved.Linearization)
	}

	log.Debugf("Removed %d of %d transactions in %d iterations "+
		"(optimal=%v)", del.Count(), len(cluster), improved.Iterations,
		improved.Optimal)

	res := newResult(d, improved.Linearization,
		Fingerprint(cluster, improved.Linearization))
	res.Optimal = improved.Optimal
	res.Iterations = improved.Iterations
	return res, nil
}

// newResult chunks lin and wraps it in a Result.
func newResult[S bitset.Bits[S]](d *clusterlin.DepGraph[S], lin []int,
	fp chainhash.Hash) *Result {

	chunks := clusterlin.ChunkLinearization(d, lin)
	res := &Result{
		Linearization: lin,
		Chunks:        make([]Chunk, len(chunks)),
		Fingerprint:   fp,
	}

	// Chunks are contiguous runs of lin.
	idx := 0
	for i, chunk := range chunks {
		n := chunk.Transactions.Count()
		res.Chunks[i] = Chunk{
			Txs:     slices.Clone(lin[idx : idx+n]),
			FeeRate: chunk.FeeRate,
		}
		idx += n
	}
	return res
}
