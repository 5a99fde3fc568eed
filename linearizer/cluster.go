// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package linearizer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/clusterlin/bitset"
	"github.com/btcsuite/clusterlin/clusterlin"
	"github.com/btcsuite/clusterlin/feefrac"
)

var (
	// ErrClusterTooLarge is returned for clusters of more than
	// MaxClusterSize transactions.
	ErrClusterTooLarge = errors.New("cluster too large")

	// ErrInvalidLinearization is returned when a supplied ordering
	// references unknown transactions, repeats one, or is not
	// topological.
	ErrInvalidLinearization = errors.New("invalid linearization")
)

// TxEntry is one transaction of a cluster.
type TxEntry struct {
	// Fee is the fee of the transaction in satoshis, after any
	// prioritisation.
	Fee int64 `json:"fee"`

	// Size is the virtual size of the transaction.  It must be positive.
	Size int32 `json:"size"`

	// Parents lists the indices within the cluster of the transactions
	// this one spends from.
	Parents []int `json:"parents,omitempty"`
}

// Cluster is a list of transactions that reference each other by index.
type Cluster []TxEntry

// buildGraph converts a cluster into a dependency graph.
func buildGraph[S bitset.Bits[S]](cluster Cluster) (*clusterlin.DepGraph[S], error) {
	entries := make(clusterlin.Cluster[S], len(cluster))
	for i, tx := range cluster {
		entries[i].FeeRate = feefrac.New(tx.Fee, tx.Size)
		for _, parent := range tx.Parents {
			if parent < 0 || parent >= len(cluster) {
				return nil, fmt.Errorf("%w: transaction %d spends %d",
					clusterlin.ErrIndexOutOfRange, i, parent)
			}
			entries[i].Parents = entries[i].Parents.With(parent)
		}
	}
	return clusterlin.NewDepGraphFromCluster(entries)
}

// toSet converts cluster indices into a set, rejecting unknown or repeated
// indices.
func toSet[S bitset.Bits[S]](n int, indices []int) (S, error) {
	var s S
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return s, fmt.Errorf("%w: unknown transaction %d",
				ErrInvalidLinearization, idx)
		}
		if s.Has(idx) {
			return s, fmt.Errorf("%w: transaction %d repeated",
				ErrInvalidLinearization, idx)
		}
		s = s.With(idx)
	}
	return s, nil
}

// Fingerprint identifies a cluster together with an ordering of its
// transactions.  Parent lists are normalized, so clusters that differ only
// in how they list parents share a fingerprint.
func Fingerprint(cluster Cluster, lin []int) chainhash.Hash {
	var buf bytes.Buffer
	var scratch [8]byte

	putUint32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:4], v)
		buf.Write(scratch[:4])
	}

	putUint32(uint32(len(cluster)))
	for _, tx := range cluster {
		binary.LittleEndian.PutUint64(scratch[:], uint64(tx.Fee))
		buf.Write(scratch[:])
		putUint32(uint32(tx.Size))

		parents := slices.Clone(tx.Parents)
		slices.Sort(parents)
		parents = slices.Compact(parents)
		putUint32(uint32(len(parents)))
		for _, parent := range parents {
			putUint32(uint32(parent))
		}
	}

	putUint32(uint32(len(lin)))
	for _, idx := range lin {
		putUint32(uint32(idx))
	}

	return chainhash.HashH(buf.Bytes())
}
