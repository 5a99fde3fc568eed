// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package clusterlin

import (
	"github.com/btcsuite/clusterlin/bitset"
	"github.com/btcsuite/clusterlin/feefrac"
)

// AncestorCandidateFinder finds the remaining transaction whose remaining
// ancestor set has the highest feerate.  It is a cheap heuristic that seeds
// the exact search and serves as the fallback when no search budget is
// left.
type AncestorCandidateFinder[S bitset.Bits[S]] struct {
	d    *DepGraph[S]
	todo S

	// ancestorFeeRates holds, for every remaining position, the combined
	// fee fraction of its remaining ancestors.
	ancestorFeeRates []feefrac.FeeFrac
}

// NewAncestorCandidateFinder returns a finder over all transactions of d.
func NewAncestorCandidateFinder[S bitset.Bits[S]](d *DepGraph[S]) *AncestorCandidateFinder[S] {
	f := &AncestorCandidateFinder[S]{
		d:                d,
		todo:             d.Positions(),
		ancestorFeeRates: make([]feefrac.FeeFrac, d.PositionRange()),
	}
	for pos := range f.todo.All() {
		f.ancestorFeeRates[pos] = d.FeeRate(d.Ancestors(pos))
	}
	return f
}

// MarkDone removes the given transactions from consideration.
func (f *AncestorCandidateFinder[S]) MarkDone(selected S) {
	selected = selected.Intersect(f.todo)
	f.todo = f.todo.Difference(selected)
	for pos := range selected.All() {
		feerate := f.d.FeeRateOf(pos)
		toUpdate := f.d.Descendants(pos).Intersect(f.todo)
		for desc := range toUpdate.All() {
			f.ancestorFeeRates[desc] = f.ancestorFeeRates[desc].Sub(feerate)
		}
	}
}

// AllDone reports whether no transactions remain.
func (f *AncestorCandidateFinder[S]) AllDone() bool {
	return f.todo.None()
}

// NumRemaining returns the number of remaining transactions.
func (f *AncestorCandidateFinder[S]) NumRemaining() int {
	return f.todo.Count()
}

// FindCandidateSet returns the remaining ancestor set with the best fee
// fraction in the total order, ties broken by lowest position.  It returns
// the empty SetInfo when nothing remains.
func (f *AncestorCandidateFinder[S]) FindCandidateSet() SetInfo[S] {
	best := -1
	for pos := range f.todo.All() {
		if best < 0 || f.ancestorFeeRates[pos].Greater(f.ancestorFeeRates[best]) {
			best = pos
		}
	}
	if best < 0 {
		return SetInfo[S]{}
	}
	return SetInfo[S]{
		Transactions: f.d.Ancestors(best).Intersect(f.todo),
		FeeRate:      f.ancestorFeeRates[best],
	}
}
