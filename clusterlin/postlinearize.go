// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package clusterlin

import (
	"github.com/btcsuite/clusterlin/bitset"
	"github.com/btcsuite/clusterlin/feefrac"
)

// postEntry is the per-transaction state of PostLinearize.  Entries are
// indexed by position plus one; index 0 is the sentinel that anchors the
// list of groups.
type postEntry[S bitset.Bits[S]] struct {
	// prevTx links the transactions of a group from last to first.  Zero
	// ends the list.
	prevTx int

	// The fields below are only meaningful for the last transaction of a
	// group, which represents it.
	firstTx   int
	prevGroup int
	group     S
	deps      S
	feerate   feefrac.FeeFrac
}

// PostLinearize improves lin in place.  The result is at least as good as
// the input.  Each group formed by a pass is connected, but chunking the
// result may still merge unrelated groups of equal feerate into one chunk.
//
// It runs two passes of an insertion procedure: one over the reversed
// linearization with negated fees, then one over the forward order.  Each
// pass appends transactions one at a time as a new group at the end of the
// list.  While the new group has a higher feerate than its predecessor it
// either merges into it, when it depends on it, or swaps in front of it.
func PostLinearize[S bitset.Bits[S]](d *DepGraph[S], lin []int) {
	const sentinel = 0

	entries := make([]postEntry[S], d.PositionRange()+1)

	for pass := 0; pass < 2; pass++ {
		rev := pass == 0

		// The sentinel has an empty feerate, which no group beats.
		entries[sentinel].prevGroup = sentinel

		for i := range lin {
			pos := lin[i]
			if rev {
				pos = lin[len(lin)-1-i]
			}
			cur := pos + 1

			e := &entries[cur]
			e.group = bitset.Singleton[S](pos)
			if rev {
				e.deps = d.Descendants(pos)
			} else {
				e.deps = d.Ancestors(pos)
			}
			e.feerate = d.FeeRateOf(pos)
			if rev {
				e.feerate.Fee = -e.feerate.Fee
			}
			e.prevTx = 0
			e.firstTx = cur

			// Link the new group at the end of the list.
			e.prevGroup = entries[sentinel].prevGroup
			entries[sentinel].prevGroup = cur

			// next is the group after prev, which is cur itself
			// until cur swaps in front of something.
			next := sentinel
			prev := e.prevGroup
			for entries[cur].feerate.Higher(entries[prev].feerate) {
				if entries[cur].deps.Overlaps(entries[prev].group) {
					// cur depends on prev: merge prev into
					// cur.
					entries[cur].group = entries[cur].group.
						Union(entries[prev].group)
					entries[cur].deps = entries[cur].deps.
						Union(entries[prev].deps)
					entries[cur].feerate = entries[cur].feerate.
						Add(entries[prev].feerate)

					entries[entries[cur].firstTx].prevTx = prev
					entries[cur].firstTx = entries[prev].firstTx

					prev = entries[prev].prevGroup
					entries[cur].prevGroup = prev
				} else {
					// Swap cur in front of prev.
					prevPrev := entries[prev].prevGroup
					entries[next].prevGroup = prev
					entries[prev].prevGroup = cur
					entries[cur].prevGroup = prevPrev
					next = prev
					prev = prevPrev
				}
			}
		}

		// Write the groups back, walking the list from its end.  The
		// reversed pass fills lin from the front, the forward pass
		// from the back.
		done := 0
		for group := entries[sentinel].prevGroup; group != sentinel; group = entries[group].prevGroup {
			for tx := group; tx != 0; tx = entries[tx].prevTx {
				if rev {
					lin[done] = tx - 1
				} else {
					lin[len(lin)-1-done] = tx - 1
				}
				done++
			}
		}
	}
}
