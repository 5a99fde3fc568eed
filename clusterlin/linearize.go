// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package clusterlin

import (
	"fmt"

	"github.com/btcsuite/clusterlin/bitset"
)

// LinearizeResult is the outcome of Linearize.
type LinearizeResult struct {
	// Linearization lists every position of the graph in a topologically
	// valid order.
	Linearization []int

	// Optimal is true when every chunk was proven optimal by an exhausted
	// search.
	Optimal bool

	// Iterations is the number of search steps spent.
	Iterations uint64
}

// Linearize computes a linearization of d by repeatedly appending the best
// chunk of the remaining transactions.
//
// Each step seeds the search with the better of the best remaining ancestor
// set and the first remaining chunk of old, then lets the exact search
// improve on it with half of the remaining iteration budget.  When a search
// is cut short, the candidate is intersected with the prefixes of old so the
// result is never worse than old.
//
// old may be nil.  Otherwise it must be a valid linearization of d, and the
// returned linearization is at least as good as it.
func Linearize[S bitset.Bits[S]](d *DepGraph[S], budget Budget, old []int) LinearizeResult {
	if len(old) > 0 {
		if err := d.CheckLinearization(old); err != nil {
			panic(fmt.Sprintf("clusterlin: invalid old linearization: %v",
				err))
		}
	}

	n := d.TxCount()
	result := LinearizeResult{
		Linearization: make([]int, 0, n),
		Optimal:       true,
	}
	if n == 0 {
		return result
	}

	anc := NewAncestorCandidateFinder(d)
	oldChunking := NewLinearizationChunking(d, old)

	// Building the sorted search graph costs about n^2/64 steps.  Without
	// budget for that, only the ancestor heuristic is used.
	left := budget.MaxIterations
	var search *SearchCandidateFinder[S]
	startCost := (uint64(n)*uint64(n) + 63) / 64
	if left > startCost {
		left -= startCost
		search = NewSearchCandidateFinder(d)
	}

	for {
		best := anc.FindCandidateSet()
		if oldChunking.NumChunksLeft() > 0 {
			prefix := oldChunking.GetChunk(0)
			if !prefix.FeeRate.Less(best.FeeRate) {
				best = prefix
			}
		}

		stepOptimal := false
		if search != nil {
			// Every step pays a base cost proportional to what
			// remains, then may use half of the rest.
			base := (uint64(anc.NumRemaining()) + 3) / 4
			if left > base {
				left -= base
				stepBudget := Budget{
					MaxIterations: (left + 1) / 2,
					Deadline:      budget.Deadline,
				}
				res := search.FindCandidateSet(stepBudget, best)
				best = res.Best
				left -= res.Iterations
				result.Iterations += res.Iterations
				stepOptimal = res.Optimal()
			}
		}

		if !stepOptimal {
			result.Optimal = false
			if oldChunking.NumChunksLeft() > 0 {
				best = oldChunking.IntersectPrefixes(best)
			}
		}

		result.Linearization = d.AppendTopo(
			result.Linearization, best.Transactions,
		)

		anc.MarkDone(best.Transactions)
		if anc.AllDone() {
			break
		}
		if search != nil {
			search.MarkDone(best.Transactions)
		}
		if oldChunking.NumChunksLeft() > 0 {
			oldChunking.MarkDone(best.Transactions)
		}
	}

	log.Debugf("Linearized %d transactions in %d iterations (optimal=%v)",
		n, result.Iterations, result.Optimal)

	return result
}
