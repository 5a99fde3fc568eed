// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package linearizer

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/clusterlin/clusterlin"
	"github.com/btcsuite/clusterlin/feefrac"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// chain returns a cluster in which every transaction spends the previous
// one.
func chain(n int, fee int64, size int32) Cluster {
	cluster := make(Cluster, n)
	for i := range cluster {
		cluster[i] = TxEntry{Fee: fee, Size: size}
		if i > 0 {
			cluster[i].Parents = []int{i - 1}
		}
	}
	return cluster
}

// genCluster draws a random acyclic cluster whose parents always have
// lower indices.
func genCluster(t *rapid.T, maxTx int) Cluster {
	n := rapid.IntRange(1, maxTx).Draw(t, "numTxs")
	cluster := make(Cluster, n)
	for i := range cluster {
		cluster[i] = TxEntry{
			Fee:  rapid.Int64Range(0, 5000).Draw(t, "fee"),
			Size: rapid.Int32Range(1, 400).Draw(t, "size"),
		}
		for j := 0; j < i; j++ {
			if rapid.IntRange(0, 9).Draw(t, "edge") == 0 {
				cluster[i].Parents = append(cluster[i].Parents, j)
			}
		}
	}
	return cluster
}

// TestLinearizeScenarios covers the basic orderings end to end.
func TestLinearizeScenarios(t *testing.T) {
	t.Parallel()

	l := New(nil)

	res, err := l.Linearize(chain(3, 10, 10))
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, res.Linearization)
	require.Equal(t, []Chunk{
		{Txs: []int{0, 1, 2}, FeeRate: feefrac.New(30, 30)},
	}, res.Chunks)
	require.True(t, res.Optimal)
	require.False(t, res.Cached)

	res, err = l.Linearize(Cluster{
		{Fee: 10, Size: 100},
		{Fee: 100, Size: 100},
	})
	require.NoError(t, err)
	require.Equal(t, []int{1, 0}, res.Linearization)
	require.Equal(t, []feefrac.FeeFrac{
		feefrac.New(100, 100), feefrac.New(10, 100),
	}, res.ChunkFeeRates())

	res, err = l.Linearize(Cluster{})
	require.NoError(t, err)
	require.Empty(t, res.Linearization)
	require.Empty(t, res.Chunks)
}

// TestLinearizeSizes checks the dispatch between set sizes.
func TestLinearizeSizes(t *testing.T) {
	t.Parallel()

	l := New(&Config{MaxIterations: 1000})

	for _, n := range []int{1, 64, 65, 300, MaxClusterSize} {
		res, err := l.Linearize(chain(n, 1, 1))
		require.NoError(t, err, "n=%d", n)
		require.Len(t, res.Linearization, n)
		for i, pos := range res.Linearization {
			require.Equal(t, i, pos)
		}
	}

	_, err := l.Linearize(chain(MaxClusterSize+1, 1, 1))
	require.ErrorIs(t, err, ErrClusterTooLarge)
}

// TestLinearizeInvalidClusters checks that malformed clusters are rejected
// with the engine's errors.
func TestLinearizeInvalidClusters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cluster Cluster
		wantErr error
	}{
		{
			name:    "zero size",
			cluster: Cluster{{Fee: 1}},
			wantErr: clusterlin.ErrZeroSize,
		},
		{
			name:    "negative parent",
			cluster: Cluster{{Fee: 1, Size: 1, Parents: []int{-1}}},
			wantErr: clusterlin.ErrIndexOutOfRange,
		},
		{
			name: "parent beyond cluster",
			cluster: Cluster{
				{Fee: 1, Size: 1},
				{Fee: 1, Size: 1, Parents: []int{2}},
			},
			wantErr: clusterlin.ErrIndexOutOfRange,
		},
		{
			name:    "spends itself",
			cluster: Cluster{{Fee: 10, Size: 10, Parents: []int{0}}},
			wantErr: clusterlin.ErrCyclicGraph,
		},
		{
			name: "total size overflows",
			cluster: Cluster{
				{Fee: 1, Size: math.MaxInt32},
				{Fee: 1, Size: math.MaxInt32, Parents: []int{0}},
			},
			wantErr: clusterlin.ErrSizeOverflow,
		},
		{
			name: "total size overflows with many",
			cluster: Cluster{
				{Fee: 1, Size: 1 << 30},
				{Fee: 1, Size: 1 << 30},
				{Fee: 1, Size: 1},
			},
			wantErr: clusterlin.ErrSizeOverflow,
		},
		{
			name: "cycle",
			cluster: Cluster{
				{Fee: 1, Size: 1, Parents: []int{1}},
				{Fee: 1, Size: 1, Parents: []int{0}},
			},
			wantErr: clusterlin.ErrCyclicGraph,
		},
	}

	l := New(nil)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := l.Linearize(test.cluster)
			require.ErrorIs(t, err, test.wantErr)
		})
	}
}

// TestRelinearizeCache checks that an optimal result is remembered and that
// invalid orderings are rejected.
func TestRelinearizeCache(t *testing.T) {
	t.Parallel()

	cluster := Cluster{
		{Fee: 1, Size: 10},
		{Fee: 500, Size: 10, Parents: []int{0}},
		{Fee: 40, Size: 10},
	}

	l := New(nil)
	first, err := l.Linearize(cluster)
	require.NoError(t, err)
	require.True(t, first.Optimal)

	again, err := l.Relinearize(cluster, first.Linearization)
	require.NoError(t, err)
	require.True(t, again.Cached)
	require.True(t, again.Optimal)
	require.Equal(t, uint64(0), again.Iterations)
	require.Equal(t, first.Linearization, again.Linearization)
	require.Equal(t, first.Fingerprint, again.Fingerprint)

	// A worse ordering is improved rather than served from the cache.
	worse, err := l.Relinearize(cluster, []int{2, 0, 1})
	require.NoError(t, err)
	require.False(t, worse.Cached)
	require.Equal(t, first.Linearization, worse.Linearization)

	_, err = l.Relinearize(cluster, []int{1, 0, 2})
	require.ErrorIs(t, err, ErrInvalidLinearization)
	require.ErrorIs(t, err, clusterlin.ErrNotTopological)

	_, err = l.Relinearize(cluster, []int{0, 1})
	require.ErrorIs(t, err, clusterlin.ErrNotPermutation)

	// Without a cache nothing is remembered.
	uncached := New(&Config{MaxIterations: 1000})
	_, err = uncached.Linearize(cluster)
	require.NoError(t, err)
	res, err := uncached.Relinearize(cluster, first.Linearization)
	require.NoError(t, err)
	require.False(t, res.Cached)
}

// TestRelinearizeNeverWorse checks the improvement guarantee under a tight
// budget.
func TestRelinearizeNeverWorse(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cluster := genCluster(t, 40)
		l := New(&Config{
			MaxIterations: rapid.Uint64Range(0, 50).Draw(t, "iters"),
			PostLinearize: rapid.Bool().Draw(t, "post"),
		})

		first, err := l.Linearize(cluster)
		require.NoError(t, err)

		second, err := l.Relinearize(cluster, first.Linearization)
		require.NoError(t, err)

		got := feefrac.CompareChunks(second.ChunkFeeRates(),
			first.ChunkFeeRates())
		require.Contains(t, []feefrac.Ordering{feefrac.Better,
			feefrac.Equal}, got)
	})
}

// TestMerge checks merging of full and partial orderings.
func TestMerge(t *testing.T) {
	t.Parallel()

	cluster := Cluster{
		{Fee: 1, Size: 1},
		{Fee: 9, Size: 1, Parents: []int{0}},
		{Fee: 3, Size: 1},
		{Fee: 8, Size: 1},
	}
	l := New(nil)

	res, err := l.Merge(cluster, []int{2, 3, 0, 1}, []int{0, 1, 3, 2})
	require.NoError(t, err)
	require.Len(t, res.Linearization, 4)
	require.Equal(t, feefrac.New(8, 1), res.Chunks[0].FeeRate)

	res, err = l.Merge(cluster, []int{0, 1}, []int{3})
	require.NoError(t, err)
	require.ElementsMatch(t, []int{0, 1, 3}, res.Linearization)
	require.False(t, res.Optimal)

	_, err = l.Merge(cluster, []int{0, 0}, nil)
	require.ErrorIs(t, err, ErrInvalidLinearization)
	_, err = l.Merge(cluster, nil, []int{9})
	require.ErrorIs(t, err, ErrInvalidLinearization)
}

// TestRemove trims a chain and checks the survivors keep their order.
func TestRemove(t *testing.T) {
	t.Parallel()

	l := New(nil)
	cluster := chain(4, 5, 5)

	res, err := l.Remove(cluster, []int{0, 1, 2, 3}, []int{1})
	require.NoError(t, err)
	require.Equal(t, []int{0, 2, 3}, res.Linearization)
	require.True(t, res.Optimal)

	_, err = l.Remove(cluster, []int{0, 1, 2, 3}, []int{7})
	require.ErrorIs(t, err, ErrInvalidLinearization)
	_, err = l.Remove(cluster, []int{1, 0, 2, 3}, []int{1})
	require.ErrorIs(t, err, ErrInvalidLinearization)
}

// TestFingerprint checks normalization of parent lists.
func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := Cluster{
		{Fee: 1, Size: 1},
		{Fee: 2, Size: 1},
		{Fee: 3, Size: 1, Parents: []int{0, 1}},
	}
	b := Cluster{
		{Fee: 1, Size: 1},
		{Fee: 2, Size: 1},
		{Fee: 3, Size: 1, Parents: []int{1, 0, 1}},
	}

	require.Equal(t, Fingerprint(a, []int{0, 1, 2}),
		Fingerprint(b, []int{0, 1, 2}))
	require.NotEqual(t, Fingerprint(a, []int{0, 1, 2}),
		Fingerprint(a, []int{1, 0, 2}))

	b[2].Fee = 4
	require.NotEqual(t, Fingerprint(a, []int{0, 1, 2}),
		Fingerprint(b, []int{0, 1, 2}))
}

// TestTimeLimit checks that an expired time limit still yields a valid
// result.
func TestTimeLimit(t *testing.T) {
	t.Parallel()

	l := New(&Config{MaxIterations: 1 << 40, TimeLimit: time.Nanosecond})
	start := time.Now()
	l.now = func() time.Time { return start.Add(-time.Hour) }

	cluster := make(Cluster, 40)
	for i := range cluster {
		cluster[i] = TxEntry{Fee: int64(i * 7 % 13), Size: 1}
		if i >= 2 {
			cluster[i].Parents = []int{i / 2}
		}
	}

	res, err := l.Linearize(cluster)
	require.NoError(t, err)
	require.Len(t, res.Linearization, len(cluster))
	require.False(t, res.Optimal)
}

// TestConcurrentUse runs requests from several goroutines against one
// Linearizer.
func TestConcurrentUse(t *testing.T) {
	t.Parallel()

	l := New(nil)
	clusters := []Cluster{
		chain(10, 3, 1),
		{{Fee: 5, Size: 1}, {Fee: 50, Size: 1, Parents: []int{0}}},
		chain(70, 1, 2),
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8*len(clusters))
	for i := 0; i < 8; i++ {
		for _, cluster := range clusters {
			wg.Add(1)
			go func(cluster Cluster) {
				defer wg.Done()
				res, err := l.Linearize(cluster)
				if err == nil {
					_, err = l.Relinearize(cluster, res.Linearization)
				}
				errs <- err
			}(cluster)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}
