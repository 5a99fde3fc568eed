// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package clusterlin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStackBasicOperations verifies LIFO behavior and empty state handling.
func TestStackBasicOperations(t *testing.T) {
	t.Parallel()

	var stack Stack[int]
	require.True(t, stack.IsEmpty())

	_, ok := stack.Pop()
	require.False(t, ok)

	stack.Push(1)
	stack.Push(2)
	stack.Push(3)
	require.False(t, stack.IsEmpty())

	for _, want := range []int{3, 2, 1} {
		val, ok := stack.Pop()
		require.True(t, ok)
		require.Equal(t, want, val)
	}
	require.True(t, stack.IsEmpty())
}

// TestStackReuse verifies that a preallocated stack keeps working after
// being drained.
func TestStackReuse(t *testing.T) {
	t.Parallel()

	stack := NewStack[string](1)
	stack.Push("a")
	stack.Push("b")

	val, ok := stack.Pop()
	require.True(t, ok)
	require.Equal(t, "b", val)
	val, ok = stack.Pop()
	require.True(t, ok)
	require.Equal(t, "a", val)
	require.True(t, stack.IsEmpty())

	stack.Push("c")
	val, ok = stack.Pop()
	require.True(t, ok)
	require.Equal(t, "c", val)
	_, ok = stack.Pop()
	require.False(t, ok)
}
