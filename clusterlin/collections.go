// Copyright (c) 2026 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package clusterlin

// Stack is a LIFO stack with O(1) Push and Pop.  It holds the pending work
// items of the candidate search.  The zero value is ready to use.
type Stack[T any] struct {
	items []T
}

// NewStack returns an empty stack with room for capacity items.
func NewStack[T any](capacity int) *Stack[T] {
	return &Stack[T]{
		items: make([]T, 0, capacity),
	}
}

// Push adds an item to the top of the stack.
func (s *Stack[T]) Push(item T) {
	s.items = append(s.items, item)
}

// Pop removes and returns the item at the top of the stack.
// Returns false if the stack is empty.
func (s *Stack[T]) Pop() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	idx := len(s.items) - 1
	item := s.items[idx]

	// Drop the reference so popped items do not linger in the backing
	// array.
	var zero T
	s.items[idx] = zero
	s.items = s.items[:idx]

	return item, true
}

// IsEmpty returns true if the stack contains no items.
func (s *Stack[T]) IsEmpty() bool {
	return len(s.items) == 0
}
