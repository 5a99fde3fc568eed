// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package privbroadcast tracks transactions that are being broadcast through
// short-lived private connections.  Each transaction is handed to one
// connection at a time, and the ones that have been confirmed by the fewest
// peers, least recently, go first.
package privbroadcast

import (
	"bytes"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/btree"
)

// btreeDegree suits queues of up to a few thousand entries.
const btreeDegree = 32

// NodeID identifies a connection a transaction was pushed to.
type NodeID int64

// Priority orders transactions for broadcast.  Lower values go first.
type Priority struct {
	// NumBroadcasts is the number of peers that confirmed receiving the
	// transaction.
	NumBroadcasts int

	// LastBroadcast is when the latest confirmation arrived.  It is the
	// zero time until the first one.
	LastBroadcast time.Time
}

// Less reports whether p goes before o.
func (p Priority) Less(o Priority) bool {
	if p.NumBroadcasts != o.NumBroadcasts {
		return p.NumBroadcasts < o.NumBroadcasts
	}
	return p.LastBroadcast.Before(o.LastBroadcast)
}

// Entry is a transaction awaiting broadcast.
type Entry struct {
	// TxID is the hash of the transaction.
	TxID chainhash.Hash

	// RawTx holds the serialized transaction.  It is opaque to the queue.
	RawTx []byte

	// Priority is the current broadcast priority.
	Priority Priority
}

// less orders entries by priority, then by txid.
func less(a, b *Entry) bool {
	if a.Priority.Less(b.Priority) {
		return true
	}
	if b.Priority.Less(a.Priority) {
		return false
	}
	return bytes.Compare(a.TxID[:], b.TxID[:]) < 0
}

// Queue is an indexed priority queue of transactions awaiting private
// broadcast.  It is safe for concurrent use.
type Queue struct {
	mtx sync.Mutex

	// byID and byPriority index the same entries.  An entry must be
	// removed from byPriority before its priority changes.
	byID       map[chainhash.Hash]*Entry
	byPriority *btree.BTreeG[*Entry]

	// byNode records which transaction each connection was given.
	byNode map[NodeID]chainhash.Hash

	now func() time.Time
}

// New returns an empty queue.  now supplies broadcast times; nil means
// time.Now.
func New(now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{
		byID:       make(map[chainhash.Hash]*Entry),
		byPriority: btree.NewG(btreeDegree, less),
		byNode:     make(map[NodeID]chainhash.Hash),
		now:        now,
	}
}

// Add queues a transaction with the lowest priority value.  It returns false
// if the transaction is already queued.
func (q *Queue) Add(txid chainhash.Hash, rawTx []byte) bool {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	if _, ok := q.byID[txid]; ok {
		return false
	}

	entry := &Entry{TxID: txid, RawTx: rawTx}
	q.byID[txid] = entry
	q.byPriority.ReplaceOrInsert(entry)

	log.Debugf("Queued transaction %v for private broadcast", txid)

	return true
}

// Remove drops a transaction, typically once it was seen in the mempool or
// a block.  It returns the number of confirmed broadcasts and whether the
// transaction was queued.
func (q *Queue) Remove(txid chainhash.Hash) (int, bool) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	entry, ok := q.byID[txid]
	if !ok {
		return 0, false
	}
	q.byPriority.Delete(entry)
	delete(q.byID, txid)

	log.Debugf("Removed transaction %v from private broadcast after %d "+
		"broadcasts", txid, entry.Priority.NumBroadcasts)

	return entry.Priority.NumBroadcasts, true
}

// Len returns the number of queued transactions.
func (q *Queue) Len() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	return len(q.byID)
}

// Get returns a copy of the entry of a queued transaction.
func (q *Queue) Get(txid chainhash.Hash) (Entry, bool) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	entry, ok := q.byID[txid]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// PeekBest returns a copy of the transaction to broadcast next without
// changing its priority.
func (q *Queue) PeekBest() (Entry, bool) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	entry, ok := q.byPriority.Min()
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// All returns copies of the queued entries in broadcast order.
func (q *Queue) All() []Entry {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	entries := make([]Entry, 0, q.byPriority.Len())
	q.byPriority.Ascend(func(entry *Entry) bool {
		entries = append(entries, *entry)
		return true
	})
	return entries
}

// PushedToNode records that a transaction was sent over a connection.
// A later push to the same connection replaces the record.
func (q *Queue) PushedToNode(node NodeID, txid chainhash.Hash) {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	q.byNode[node] = txid
}

// BroadcastEnd closes the record of a connection.  When the peer confirmed
// reception, the transaction's broadcast count and time are bumped, which
// moves it back in the queue.  It returns false if nothing was pushed to the
// connection.
func (q *Queue) BroadcastEnd(node NodeID, confirmed bool) bool {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	txid, ok := q.byNode[node]
	if !ok {
		return false
	}
	delete(q.byNode, node)

	if !confirmed {
		return true
	}

	// The transaction may have been removed in the meantime.
	entry, ok := q.byID[txid]
	if !ok {
		return true
	}

	q.byPriority.Delete(entry)
	entry.Priority.NumBroadcasts++
	entry.Priority.LastBroadcast = q.now()
	q.byPriority.ReplaceOrInsert(entry)

	log.Tracef("Peer %d confirmed transaction %v (%d broadcasts)", node,
		txid, entry.Priority.NumBroadcasts)

	return true
}

// PendingNodes returns the number of connections with a transaction in
// flight.
func (q *Queue) PendingNodes() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()

	return len(q.byNode)
}
