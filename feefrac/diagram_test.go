// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package feefrac

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestCompareChunks exercises the diagram comparison on hand built
// diagrams.
func TestCompareChunks(t *testing.T) {
	tests := []struct {
		name string
		a    []FeeFrac
		b    []FeeFrac
		want Ordering
	}{
		{
			name: "both empty",
			want: Equal,
		},
		{
			name: "identical",
			a:    []FeeFrac{New(10, 1), New(5, 1)},
			b:    []FeeFrac{New(10, 1), New(5, 1)},
			want: Equal,
		},
		{
			name: "same diagram different chunking",
			a:    []FeeFrac{New(10, 2), New(3, 3)},
			b:    []FeeFrac{New(5, 1), New(5, 1), New(3, 3)},
			want: Equal,
		},
		{
			name: "crossing diagrams",
			a:    []FeeFrac{New(20, 1), New(0, 1)},
			b:    []FeeFrac{New(11, 1), New(11, 1)},
			want: Incomparable,
		},
		{
			name: "higher first chunk same total",
			a:    []FeeFrac{New(20, 1), New(0, 1)},
			b:    []FeeFrac{New(10, 1), New(10, 1)},
			want: Better,
		},
		{
			name: "strictly better everywhere",
			a:    []FeeFrac{New(20, 1), New(10, 1)},
			b:    []FeeFrac{New(10, 1), New(10, 1)},
			want: Better,
		},
		{
			name: "worse",
			a:    []FeeFrac{New(15, 2)},
			b:    []FeeFrac{New(10, 1), New(6, 1)},
			want: Worse,
		},
		{
			name: "shorter diagram with positive tail loses",
			a:    []FeeFrac{New(10, 1)},
			b:    []FeeFrac{New(10, 1), New(1, 1)},
			want: Worse,
		},
		{
			name: "zero fee tail is neutral",
			a:    []FeeFrac{New(10, 1)},
			b:    []FeeFrac{New(10, 1), New(0, 5)},
			want: Equal,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.want, CompareChunks(test.a, test.b))

			// Swapping the arguments mirrors the result.
			mirrored := test.want
			if mirrored == Better || mirrored == Worse {
				mirrored = -mirrored
			}
			require.Equal(t, mirrored, CompareChunks(test.b, test.a))
		})
	}
}

// genChunks draws a chunk sequence with non-increasing feerates.
func genChunks(t *rapid.T, label string) []FeeFrac {
	chunks := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) FeeFrac {
		return New(
			rapid.Int64Range(0, 1000).Draw(t, "fee"),
			rapid.Int32Range(1, 100).Draw(t, "size"),
		)
	}), 0, 8).Draw(t, label)

	slices.SortStableFunc(chunks, func(a, b FeeFrac) int {
		return -FeeRateCompare(a, b)
	})
	return chunks
}

// TestCompareChunksProperties checks reflexivity and that merging two
// adjacent chunks never improves a diagram.
func TestCompareChunksProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genChunks(t, "a")
		b := genChunks(t, "b")

		require.Equal(t, Equal, CompareChunks(a, a))

		ab := CompareChunks(a, b)
		ba := CompareChunks(b, a)
		switch ab {
		case Better:
			require.Equal(t, Worse, ba)
		case Worse:
			require.Equal(t, Better, ba)
		default:
			require.Equal(t, ab, ba)
		}

		if len(a) >= 2 {
			i := rapid.IntRange(0, len(a)-2).Draw(t, "merge")
			merged := slices.Clone(a[:i])
			merged = append(merged, a[i].Add(a[i+1]))
			merged = append(merged, a[i+2:]...)

			got := CompareChunks(merged, a)
			require.Contains(t, []Ordering{Worse, Equal}, got)
		}
	})
}

// TestDiagramAndFeeAtSize checks cumulative points and partial evaluation.
func TestDiagramAndFeeAtSize(t *testing.T) {
	chunks := []FeeFrac{New(100, 10), New(30, 10), New(7, 7)}

	require.Equal(t, []FeeFrac{
		{}, New(100, 10), New(130, 20), New(137, 27),
	}, Diagram(chunks))

	require.Equal(t, int64(0), FeeAtSize(chunks, 0))
	require.Equal(t, int64(50), FeeAtSize(chunks, 5))
	require.Equal(t, int64(100), FeeAtSize(chunks, 10))
	require.Equal(t, int64(115), FeeAtSize(chunks, 15))
	require.Equal(t, int64(137), FeeAtSize(chunks, 1000))
}

// TestOrderingString covers the log rendering.
func TestOrderingString(t *testing.T) {
	require.Equal(t, "better", Better.String())
	require.Equal(t, "incomparable", Incomparable.String())
	require.Equal(t, "unknown", Ordering(9).String())
}
