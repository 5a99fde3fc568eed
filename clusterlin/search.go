// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package clusterlin

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/btcsuite/clusterlin/bitset"
	"github.com/btcsuite/clusterlin/feefrac"
)

// deadlineCheckInterval is the number of work items processed between two
// reads of the clock when a Budget carries a deadline.
const deadlineCheckInterval = 64

// Budget limits the work a search may perform.  The search stops at
// whichever limit is reached first.
type Budget struct {
	// MaxIterations caps the number of branch steps.
	MaxIterations uint64

	// Deadline, when non-zero, is a wall-clock cutoff.  It is only
	// consulted every deadlineCheckInterval work items.
	Deadline time.Time
}

// IterationBudget returns a budget of n branch steps and no deadline.
func IterationBudget(n uint64) Budget {
	return Budget{MaxIterations: n}
}

// UnlimitedBudget never runs out.
var UnlimitedBudget = Budget{MaxIterations: math.MaxUint64}

// expired reports whether the deadline has passed.
func (b Budget) expired(now func() time.Time) bool {
	return !b.Deadline.IsZero() && now().After(b.Deadline)
}

// SearchState describes where a search stopped.
type SearchState uint8

const (
	// SearchExploring means candidate sets are still being expanded.
	SearchExploring SearchState = iota

	// SearchBounded means the budget ran out before the search space was
	// exhausted.  The best set found so far is valid but may not be
	// optimal.
	SearchBounded

	// SearchDone means the search space was exhausted and the best set is
	// optimal.
	SearchDone
)

// String returns the state name.
func (s SearchState) String() string {
	switch s {
	case SearchExploring:
		return "exploring"
	case SearchBounded:
		return "bounded"
	case SearchDone:
		return "done"
	default:
		return "unknown"
	}
}

// SearchResult is the outcome of a candidate search.
type SearchResult[S bitset.Bits[S]] struct {
	// Best is the highest feerate topologically closed subset found.
	Best SetInfo[S]

	// Iterations is the number of branch steps performed.
	Iterations uint64

	// State is SearchDone when Best is known to be optimal and
	// SearchBounded otherwise.
	State SearchState
}

// Optimal reports whether the search proved its result optimal.
func (r SearchResult[S]) Optimal() bool {
	return r.State == SearchDone
}

// workItem is a node of the search tree.
type workItem[S bitset.Bits[S]] struct {
	// inc is the set that must be included.  It is topologically closed
	// within the remaining transactions.
	inc SetInfo[S]

	// und holds the undecided transactions.  Anything not in inc or und
	// is excluded.
	und S

	// pot is an upper bound on the feerate of any set reachable from
	// this item: inc plus the undecided transactions that raise its
	// feerate, taken in decreasing feerate order.  It is empty when inc
	// is.
	pot feefrac.FeeFrac
}

// SearchCandidateFinder finds the highest feerate topologically closed
// subset of the remaining transactions of a graph with a branch and bound
// search.
//
// The search runs on a copy of the graph whose positions are ordered by
// decreasing individual feerate, so that iterating a set yields the best
// transactions first.
type SearchCandidateFinder[S bitset.Bits[S]] struct {
	sorted *DepGraph[S]

	// originalToSorted and sortedToOriginal map positions between the
	// caller's graph and the sorted copy.
	originalToSorted []int
	sortedToOriginal []int

	// positions holds the positions of the caller's graph.
	positions S

	// todo holds the remaining transactions in sorted positions.
	todo S

	now func() time.Time
}

// NewSearchCandidateFinder returns a finder over all transactions of d.
func NewSearchCandidateFinder[S bitset.Bits[S]](d *DepGraph[S]) *SearchCandidateFinder[S] {
	order := bitset.ToSlice(d.Positions())
	slices.SortStableFunc(order, func(a, b int) int {
		if c := feefrac.Compare(d.FeeRateOf(b), d.FeeRateOf(a)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	originalToSorted := make([]int, d.PositionRange())
	for sortedPos, origPos := range order {
		originalToSorted[origPos] = sortedPos
	}

	return &SearchCandidateFinder[S]{
		sorted:           NewDepGraphReordered(d, originalToSorted, len(order)),
		originalToSorted: originalToSorted,
		sortedToOriginal: order,
		positions:        d.Positions(),
		todo:             bitset.Fill[S](len(order)),
		now:              time.Now,
	}
}

// toSorted maps a set of caller positions to sorted positions.
func (f *SearchCandidateFinder[S]) toSorted(s S) S {
	return translate(s.Intersect(f.positions), f.originalToSorted)
}

// toOriginal maps a set of sorted positions to caller positions.
func (f *SearchCandidateFinder[S]) toOriginal(s S) S {
	return translate(s, f.sortedToOriginal)
}

// MarkDone removes the given caller positions from consideration.
func (f *SearchCandidateFinder[S]) MarkDone(done S) {
	f.todo = f.todo.Difference(f.toSorted(done))
}

// AllDone reports whether no transactions remain.
func (f *SearchCandidateFinder[S]) AllDone() bool {
	return f.todo.None()
}

// FindCandidateSet searches for the highest feerate topologically closed
// subset of the remaining transactions, within budget.  best, when
// non-empty, must be topologically closed; transactions of it that are
// already done are dropped, and the search only reports sets that beat what
// is left.  When nothing remains the result is empty and SearchDone.
func (f *SearchCandidateFinder[S]) FindCandidateSet(budget Budget,
	best SetInfo[S]) SearchResult[S] {

	if f.todo.None() {
		return SearchResult[S]{State: SearchDone}
	}

	// Work in sorted positions from here on, ignoring any part of best
	// that is already done.
	best = NewSetInfo(f.sorted, f.toSorted(best.Transactions).Intersect(f.todo))

	stack := NewStack[workItem[S]](2*f.todo.Count() + 1)

	// add pushes a work item after tightening it.  Items that cannot
	// lead anywhere new are dropped, and inc is checked against best.
	add := func(inc SetInfo[S], und S) {
		var pot feefrac.FeeFrac
		if !inc.FeeRate.IsEmpty() {
			// Build the potential set from the undecided
			// transactions in decreasing feerate order.
			potSet := inc
			for pos := range und.All() {
				feerate := f.sorted.FeeRateOf(pos)
				if !feerate.Higher(potSet.FeeRate) {
					break
				}
				potSet = potSet.With(f.sorted, pos)
			}

			// Any potential transaction whose remaining ancestors
			// all lie in the potential set belongs to the best set
			// reachable from here, so include it right away.
			for pos := range potSet.Transactions.Difference(inc.Transactions).All() {
				ancestors := f.sorted.Ancestors(pos).Intersect(f.todo)
				if ancestors.IsSubsetOf(potSet.Transactions) {
					inc = inc.Add(f.sorted, ancestors)
				}
			}
			und = und.Difference(inc.Transactions)

			if inc.FeeRate.Greater(best.FeeRate) {
				best = inc
			}

			// Nothing undecided can improve on inc.
			if potSet.FeeRate.Size == inc.FeeRate.Size {
				return
			}
			pot = potSet.FeeRate
		} else if und.None() {
			return
		}

		stack.Push(workItem[S]{inc: inc, und: und, pot: pot})
	}

	// split branches a work item on one undecided transaction.  It
	// returns false when the item was pruned instead.
	split := func(item workItem[S]) bool {
		first := item.und.First()
		if !item.inc.FeeRate.IsEmpty() {
			if !item.pot.Greater(best.FeeRate) {
				return false
			}
		} else if !f.sorted.FeeRateOf(first).Greater(best.FeeRate) {
			// With nothing included, the best single undecided
			// transaction bounds every reachable set.
			return false
		}

		// Pick the split transaction among the undecided ancestors of
		// the best undecided transaction, so that the larger of the two
		// branches has as few undecided transactions as possible.
		candidates := item.und.Intersect(f.sorted.Ancestors(first))
		splitPos := -1
		var bestMax, bestMin int
		for pos := range candidates.All() {
			incCount := item.und.Difference(f.sorted.Ancestors(pos)).Count()
			excCount := item.und.Difference(f.sorted.Descendants(pos)).Count()
			hi, lo := max(incCount, excCount), min(incCount, excCount)
			if splitPos < 0 || hi < bestMax || (hi == bestMax && lo < bestMin) {
				splitPos, bestMax, bestMin = pos, hi, lo
			}
		}

		// Exclude the split transaction and its descendants.
		add(item.inc, item.und.Difference(f.sorted.Descendants(splitPos)))

		// Include it with its remaining ancestors.
		ancestors := f.sorted.Ancestors(splitPos).Intersect(f.todo)
		add(item.inc.Add(f.sorted, ancestors), item.und.Difference(ancestors))

		return true
	}

	// Start with one item per connected component.  A best set within a
	// single component is always at least as good as one spanning
	// several.
	toCover := f.todo
	for toCover.Any() {
		component := f.sorted.FindConnectedComponent(toCover)
		toCover = toCover.Difference(component)
		if best.FeeRate.IsEmpty() {
			best = NewSetInfo(f.sorted, component)
		}
		add(SetInfo[S]{}, component)
	}

	var (
		iterations uint64
		steps      uint64
	)
	state := SearchExploring
	for state == SearchExploring {
		if stack.IsEmpty() {
			state = SearchDone
			break
		}
		if iterations >= budget.MaxIterations {
			state = SearchBounded
			break
		}
		if steps%deadlineCheckInterval == 0 && budget.expired(f.now) {
			state = SearchBounded
			break
		}
		steps++

		item, _ := stack.Pop()
		if split(item) {
			iterations++
		}
	}

	log.Tracef("Candidate search over %d transactions: %v after %d "+
		"iterations, best %v", f.todo.Count(), state, iterations,
		best.FeeRate)

	return SearchResult[S]{
		Best: SetInfo[S]{
			Transactions: f.toOriginal(best.Transactions),
			FeeRate:      best.FeeRate,
		},
		Iterations: iterations,
		State:      state,
	}
}

// FindNextChunk searches for the best next chunk of d given the already
// linearized transactions in done.  hint, when non-nil, is a topologically
// closed subset of the remaining transactions to improve upon; otherwise the
// best remaining ancestor set is used.
func FindNextChunk[S bitset.Bits[S]](d *DepGraph[S], done S, budget Budget,
	hint *SetInfo[S]) SearchResult[S] {

	var best SetInfo[S]
	if hint != nil {
		best = *hint
	} else {
		anc := NewAncestorCandidateFinder(d)
		anc.MarkDone(done)
		best = anc.FindCandidateSet()
	}

	search := NewSearchCandidateFinder(d)
	search.MarkDone(done)
	return search.FindCandidateSet(budget, best)
}
