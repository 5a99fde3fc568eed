// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package clusterlin

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/btcsuite/clusterlin/bitset"
	"github.com/btcsuite/clusterlin/feefrac"
)

var (
	// ErrZeroSize is returned when a cluster contains a transaction with
	// a non-positive size.
	ErrZeroSize = errors.New("transaction size must be positive")

	// ErrIndexOutOfRange is returned when a cluster references a parent
	// outside of the cluster.
	ErrIndexOutOfRange = errors.New("parent index out of range")

	// ErrClusterTooLarge is returned when a cluster has more transactions
	// than the set type can represent.
	ErrClusterTooLarge = errors.New("cluster exceeds set capacity")

	// ErrCyclicGraph is returned when the dependencies of a cluster
	// contain a cycle.
	ErrCyclicGraph = errors.New("cluster dependencies contain a cycle")

	// ErrSizeOverflow is returned when the sizes of a cluster add up to
	// more than a fee fraction can hold.
	ErrSizeOverflow = errors.New("cluster total size overflows")

	// ErrNotPermutation is returned when a linearization does not list
	// every transaction of the graph exactly once.
	ErrNotPermutation = errors.New("linearization is not a permutation " +
		"of the graph")

	// ErrNotTopological is returned when a linearization places a
	// transaction before one of its ancestors.
	ErrNotTopological = errors.New("linearization is not topological")
)

// ClusterEntry describes one transaction of a cluster: its fee and size, and
// the set of its direct parents.
type ClusterEntry[S bitset.Bits[S]] struct {
	// FeeRate holds the fee and size of the transaction.
	FeeRate feefrac.FeeFrac

	// Parents holds the positions of the transactions this one spends
	// from.  Indirect ancestors may be included but are not required.
	Parents S
}

// Cluster is the input form of a dependency graph: entry i describes the
// transaction at position i.
type Cluster[S bitset.Bits[S]] []ClusterEntry[S]

// entry is the per-position state of a DepGraph.
type entry[S bitset.Bits[S]] struct {
	feerate feefrac.FeeFrac

	// ancestors and descendants are transitively closed and both include
	// the position itself.
	ancestors   S
	descendants S
}

// DepGraph is a transitively closed dependency graph over transaction
// positions.  Positions are stable: removing transactions leaves holes
// rather than renumbering the remaining ones.
//
// A DepGraph is not safe for concurrent mutation.  Concurrent read-only use,
// including concurrent searches, is safe.
type DepGraph[S bitset.Bits[S]] struct {
	entries []entry[S]

	// used holds the positions that currently hold a transaction.
	used S
}

// NewDepGraph returns a graph of ntx transactions with no dependencies and
// empty feerates.
func NewDepGraph[S bitset.Bits[S]](ntx int) *DepGraph[S] {
	if ntx > bitset.Capacity[S]() {
		panic(fmt.Sprintf("clusterlin: %d transactions exceed set "+
			"capacity %d", ntx, bitset.Capacity[S]()))
	}

	d := &DepGraph[S]{
		entries: make([]entry[S], ntx),
		used:    bitset.Fill[S](ntx),
	}
	for i := range d.entries {
		single := bitset.Singleton[S](i)
		d.entries[i].ancestors = single
		d.entries[i].descendants = single
	}
	return d
}

// NewDepGraphFromCluster builds a graph from a cluster, computing the full
// ancestor and descendant sets of every transaction.
func NewDepGraphFromCluster[S bitset.Bits[S]](cluster Cluster[S]) (
	*DepGraph[S], error) {

	n := len(cluster)
	if n > bitset.Capacity[S]() {
		return nil, fmt.Errorf("%w: %d transactions, capacity %d",
			ErrClusterTooLarge, n, bitset.Capacity[S]())
	}

	// Sizes of any subset must add up without overflowing int32.
	var totalSize int64

	all := bitset.Fill[S](n)
	d := &DepGraph[S]{
		entries: make([]entry[S], n),
		used:    all,
	}
	for i, ce := range cluster {
		if ce.FeeRate.Size <= 0 {
			return nil, fmt.Errorf("%w: transaction %d has size %d",
				ErrZeroSize, i, ce.FeeRate.Size)
		}
		if !ce.Parents.IsSubsetOf(all) {
			return nil, fmt.Errorf("%w: transaction %d references %v",
				ErrIndexOutOfRange, i, ce.Parents.Difference(all))
		}
		if ce.Parents.Has(i) {
			return nil, fmt.Errorf("%w: transaction %d spends itself",
				ErrCyclicGraph, i)
		}
		totalSize += int64(ce.FeeRate.Size)
		if totalSize > math.MaxInt32 {
			return nil, fmt.Errorf("%w: total size exceeds %d at "+
				"transaction %d", ErrSizeOverflow, math.MaxInt32, i)
		}
		d.entries[i].feerate = ce.FeeRate
		d.entries[i].ancestors = ce.Parents.With(i)
	}

	// Close the ancestor sets.  Each round folds in the ancestors of
	// every known ancestor until nothing changes.
	for i := range d.entries {
		for changed := true; changed; {
			changed = false
			for j := range d.entries[i].ancestors.All() {
				extra := d.entries[j].ancestors.Difference(
					d.entries[i].ancestors,
				)
				if extra.Any() {
					d.entries[i].ancestors = d.entries[i].
						ancestors.Union(extra)
					changed = true
				}
			}
		}
	}

	// Descendant sets are the inverse of the ancestor sets.
	for i := range d.entries {
		for j := range d.entries[i].ancestors.All() {
			d.entries[j].descendants = d.entries[j].descendants.With(i)
		}
	}

	if !d.IsAcyclic() {
		return nil, ErrCyclicGraph
	}

	return d, nil
}

// NewDepGraphReordered returns a copy of d in which the transaction at
// position i is moved to position mapping[i].  posRange is the position range
// of the new graph and must exceed every mapped position.
func NewDepGraphReordered[S bitset.Bits[S]](d *DepGraph[S], mapping []int,
	posRange int) *DepGraph[S] {

	r := &DepGraph[S]{
		entries: make([]entry[S], posRange),
		used:    translate(d.used, mapping),
	}
	for i := range d.used.All() {
		e := &r.entries[mapping[i]]
		e.feerate = d.entries[i].feerate
		e.ancestors = translate(d.entries[i].ancestors, mapping)
		e.descendants = translate(d.entries[i].descendants, mapping)
	}
	return r
}

// translate maps every position of s through mapping.
func translate[S bitset.Bits[S]](s S, mapping []int) S {
	var out S
	for pos := range s.All() {
		out = out.With(mapping[pos])
	}
	return out
}

// TxCount returns the number of transactions in the graph.
func (d *DepGraph[S]) TxCount() int {
	return d.used.Count()
}

// PositionRange returns one more than the highest position ever used.
func (d *DepGraph[S]) PositionRange() int {
	return len(d.entries)
}

// Positions returns the positions holding a transaction.
func (d *DepGraph[S]) Positions() S {
	return d.used
}

// FeeRateOf returns the fee and size of the transaction at position i.
func (d *DepGraph[S]) FeeRateOf(i int) feefrac.FeeFrac {
	return d.entries[i].feerate
}

// SetFeeRate replaces the fee and size of the transaction at position i.
func (d *DepGraph[S]) SetFeeRate(i int, feerate feefrac.FeeFrac) {
	d.mustUse(i)
	d.mustFitSize(int64(feerate.Size) - int64(d.entries[i].feerate.Size))
	d.entries[i].feerate = feerate
}

// Ancestors returns the ancestors of position i, including i itself.
func (d *DepGraph[S]) Ancestors(i int) S {
	return d.entries[i].ancestors
}

// Descendants returns the descendants of position i, including i itself.
func (d *DepGraph[S]) Descendants(i int) S {
	return d.entries[i].descendants
}

// AddTransaction appends a transaction without dependencies and returns its
// position.
func (d *DepGraph[S]) AddTransaction(feerate feefrac.FeeFrac) int {
	pos := len(d.entries)
	if pos >= bitset.Capacity[S]() {
		panic(fmt.Sprintf("clusterlin: graph is at set capacity %d",
			pos))
	}

	d.mustFitSize(int64(feerate.Size))

	single := bitset.Singleton[S](pos)
	d.entries = append(d.entries, entry[S]{
		feerate:     feerate,
		ancestors:   single,
		descendants: single,
	})
	d.used = d.used.With(pos)

	return pos
}

// AddDependency makes parent an ancestor of child.  Dependencies that are
// already implied are ignored.  The caller must ensure the dependency does
// not introduce a cycle; see CanAddDependency.
func (d *DepGraph[S]) AddDependency(parent, child int) {
	d.mustUse(parent)
	d.mustUse(child)

	if d.entries[child].ancestors.Has(parent) {
		return
	}

	// Every ancestor of parent gains the descendants of child.
	childDesc := d.entries[child].descendants
	for anc := range d.entries[parent].ancestors.All() {
		d.entries[anc].descendants = d.entries[anc].descendants.Union(
			childDesc,
		)
	}

	// Every descendant of child gains the ancestors of parent.
	parentAnc := d.entries[parent].ancestors
	for desc := range d.entries[child].descendants.All() {
		d.entries[desc].ancestors = d.entries[desc].ancestors.Union(
			parentAnc,
		)
	}
}

// CanAddDependency reports whether AddDependency(parent, child) would add a
// new relation without creating a cycle.  It returns false when the two are
// the same transaction, when child is already an ancestor of parent (the
// dependency would close a cycle), and when parent is already an ancestor of
// child (the dependency is redundant).
func (d *DepGraph[S]) CanAddDependency(parent, child int) bool {
	d.mustUse(parent)
	d.mustUse(child)

	if parent == child {
		return false
	}
	if d.entries[parent].ancestors.Has(child) {
		return false
	}
	return !d.entries[child].ancestors.Has(parent)
}

// RemoveTransactions removes the given positions from the graph.  Relations
// between the remaining transactions, including those that were implied
// through a removed one, are kept.
func (d *DepGraph[S]) RemoveTransactions(del S) {
	d.used = d.used.Difference(del)
	for i := range d.entries {
		if !d.used.Has(i) {
			d.entries[i] = entry[S]{}
			continue
		}
		e := &d.entries[i]
		e.ancestors = e.ancestors.Intersect(d.used)
		e.descendants = e.descendants.Intersect(d.used)
	}
}

// FeeRate returns the combined fee and size of the given positions.
func (d *DepGraph[S]) FeeRate(elems S) feefrac.FeeFrac {
	var ret feefrac.FeeFrac
	for pos := range elems.All() {
		ret = ret.Add(d.entries[pos].feerate)
	}
	return ret
}

// GetReducedParents returns the minimal set of parents of i whose ancestors
// together with themselves cover all ancestors of i.
func (d *DepGraph[S]) GetReducedParents(i int) S {
	parents := d.entries[i].ancestors.Without(i)
	for parent := range parents.All() {
		if parents.Has(parent) {
			parents = parents.Difference(d.entries[parent].ancestors).
				With(parent)
		}
	}
	return parents
}

// GetReducedChildren returns the minimal set of children of i whose
// descendants together with themselves cover all descendants of i.
func (d *DepGraph[S]) GetReducedChildren(i int) S {
	children := d.entries[i].descendants.Without(i)
	for child := range children.All() {
		if children.Has(child) {
			children = children.Difference(
				d.entries[child].descendants,
			).With(child)
		}
	}
	return children
}

// ToCluster returns the graph as a cluster with only reduced parents, along
// with the graph position of every cluster entry.  Holes are squeezed out.
func (d *DepGraph[S]) ToCluster() (Cluster[S], []int) {
	positions := bitset.ToSlice(d.used)
	dense := make([]int, len(d.entries))
	for idx, pos := range positions {
		dense[pos] = idx
	}

	cluster := make(Cluster[S], len(positions))
	for idx, pos := range positions {
		cluster[idx] = ClusterEntry[S]{
			FeeRate: d.entries[pos].feerate,
			Parents: translate(d.GetReducedParents(pos), dense),
		}
	}
	return cluster, positions
}

// IsAcyclic reports whether the only transaction that is both an ancestor
// and a descendant of any transaction is the transaction itself.
func (d *DepGraph[S]) IsAcyclic() bool {
	for i := range d.used.All() {
		both := d.entries[i].ancestors.Intersect(d.entries[i].descendants)
		if both != bitset.Singleton[S](i) {
			return false
		}
	}
	return true
}

// GetConnectedComponent returns the connected component within todo that
// contains position tx.
func (d *DepGraph[S]) GetConnectedComponent(todo S, tx int) S {
	toAdd := bitset.Singleton[S](tx)
	var ret S
	for toAdd.Any() {
		old := ret
		for add := range toAdd.All() {
			ret = ret.Union(d.entries[add].descendants).
				Union(d.entries[add].ancestors)
		}
		ret = ret.Intersect(todo)
		toAdd = ret.Difference(old)
	}
	return ret
}

// FindConnectedComponent returns a connected component of todo, or the
// empty set if todo is empty.
func (d *DepGraph[S]) FindConnectedComponent(todo S) S {
	if todo.None() {
		return todo
	}
	return d.GetConnectedComponent(todo, todo.First())
}

// IsConnected reports whether subset forms a single connected component.
func (d *DepGraph[S]) IsConnected(subset S) bool {
	return d.FindConnectedComponent(subset) == subset
}

// AppendTopo appends the positions of subset to list in a topological order
// (fewest ancestors first, ties by position) and returns the extended list.
func (d *DepGraph[S]) AppendTopo(list []int, subset S) []int {
	oldLen := len(list)
	for pos := range subset.All() {
		list = append(list, pos)
	}
	slices.SortFunc(list[oldLen:], func(a, b int) int {
		aCount := d.entries[a].ancestors.Count()
		bCount := d.entries[b].ancestors.Count()
		if aCount != bCount {
			return cmp.Compare(aCount, bCount)
		}
		return cmp.Compare(a, b)
	})
	return list
}

// CheckLinearization returns an error unless lin lists every transaction of
// the graph exactly once, with every transaction after all its ancestors.
func (d *DepGraph[S]) CheckLinearization(lin []int) error {
	if len(lin) != d.TxCount() {
		return fmt.Errorf("%w: %d entries for %d transactions",
			ErrNotPermutation, len(lin), d.TxCount())
	}

	var seen S
	for idx, pos := range lin {
		if pos < 0 || pos >= len(d.entries) || !d.used.Has(pos) {
			return fmt.Errorf("%w: unknown position %d at index %d",
				ErrNotPermutation, pos, idx)
		}
		if seen.Has(pos) {
			return fmt.Errorf("%w: position %d repeated at index %d",
				ErrNotPermutation, pos, idx)
		}
		seen = seen.With(pos)

		if missing := d.entries[pos].ancestors.Difference(seen); missing.Any() {
			return fmt.Errorf("%w: position %d at index %d precedes "+
				"ancestors %v", ErrNotTopological, pos, idx, missing)
		}
	}
	return nil
}

// IsTopological reports whether lin is a valid linearization of the graph.
func (d *DepGraph[S]) IsTopological(lin []int) bool {
	return d.CheckLinearization(lin) == nil
}

// Equal reports whether both graphs hold the same transactions at the same
// positions with the same relations.
func (d *DepGraph[S]) Equal(o *DepGraph[S]) bool {
	if d.used != o.used {
		return false
	}
	for i := range d.used.All() {
		if d.entries[i] != o.entries[i] {
			return false
		}
	}
	return true
}

// mustUse panics if position i holds no transaction.
func (d *DepGraph[S]) mustUse(i int) {
	if i < 0 || i >= len(d.entries) || !d.used.Has(i) {
		panic(fmt.Sprintf("clusterlin: position %d holds no transaction",
			i))
	}
}

// mustFitSize panics if growing the total size of the graph by delta would
// exceed the int32 range that fee fractions hold sizes in.
func (d *DepGraph[S]) mustFitSize(delta int64) {
	total := delta
	for pos := range d.used.All() {
		total += int64(d.entries[pos].feerate.Size)
	}
	if total > math.MaxInt32 {
		panic(fmt.Sprintf("clusterlin: total size %d exceeds %d", total,
			int64(math.MaxInt32)))
	}
}
