// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package clusterlin

import (
	"fmt"

	"github.com/btcsuite/clusterlin/bitset"
	"github.com/btcsuite/clusterlin/feefrac"
)

// SetInfo is a set of transactions together with their combined fee and
// size.
type SetInfo[S bitset.Bits[S]] struct {
	Transactions S
	FeeRate      feefrac.FeeFrac
}

// NewSetInfo returns the SetInfo for the given positions of d.
func NewSetInfo[S bitset.Bits[S]](d *DepGraph[S], txs S) SetInfo[S] {
	return SetInfo[S]{Transactions: txs, FeeRate: d.FeeRate(txs)}
}

// SingletonInfo returns the SetInfo holding only position pos of d.
func SingletonInfo[S bitset.Bits[S]](d *DepGraph[S], pos int) SetInfo[S] {
	return SetInfo[S]{
		Transactions: bitset.Singleton[S](pos),
		FeeRate:      d.FeeRateOf(pos),
	}
}

// With returns si extended by position pos, which must not already be part
// of it.
func (si SetInfo[S]) With(d *DepGraph[S], pos int) SetInfo[S] {
	return SetInfo[S]{
		Transactions: si.Transactions.With(pos),
		FeeRate:      si.FeeRate.Add(d.FeeRateOf(pos)),
	}
}

// Add returns si extended by all positions of txs.  Positions already in si
// are not counted twice.
func (si SetInfo[S]) Add(d *DepGraph[S], txs S) SetInfo[S] {
	extra := txs.Difference(si.Transactions)
	return SetInfo[S]{
		Transactions: si.Transactions.Union(extra),
		FeeRate:      si.FeeRate.Add(d.FeeRate(extra)),
	}
}

// Merge returns the union of si and o, which must be disjoint.
func (si SetInfo[S]) Merge(o SetInfo[S]) SetInfo[S] {
	return SetInfo[S]{
		Transactions: si.Transactions.Union(o.Transactions),
		FeeRate:      si.FeeRate.Add(o.FeeRate),
	}
}

// String returns the set and its fee fraction for log output.
func (si SetInfo[S]) String() string {
	return fmt.Sprintf("%v@%v", si.Transactions, si.FeeRate)
}
