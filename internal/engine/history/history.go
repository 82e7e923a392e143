// Package history keeps bounded back/forward navigation stacks.
package history

import "errors"

// DefaultCapacity is the per-stack bound used when none is configured.
const DefaultCapacity = 20

// ErrEmpty is returned by Back and Forward when there is nowhere to go.
var ErrEmpty = errors.New("history: stack is empty")

// History holds two bounded stacks of locations. When a stack is full the
// oldest entry is evicted. It is not safe for concurrent use; callers that
// share a History serialize access themselves.
type History[T comparable] struct {
	capacity int
	back     []T
	forward  []T
}

// New returns an empty History. capacity < 1 selects DefaultCapacity.
func New[T comparable](capacity int) *History[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &History[T]{capacity: capacity}
}

// Restore returns a History seeded from persisted stacks, oldest first.
// Stacks longer than capacity keep their newest entries.
func Restore[T comparable](capacity int, back, forward []T) *History[T] {
	h := New[T](capacity)
	for _, loc := range back {
		h.back = h.push(h.back, loc)
	}
	for _, loc := range forward {
		h.forward = h.push(h.forward, loc)
	}
	return h
}

func (h *History[T]) push(stack []T, loc T) []T {
	if n := len(stack); n > 0 && stack[n-1] == loc {
		return stack
	}
	stack = append(stack, loc)
	if len(stack) > h.capacity {
		stack = append(stack[:0], stack[len(stack)-h.capacity:]...)
	}
	return stack
}

// Record is called before a user-initiated jump away from origin. It pushes
// origin onto the back stack and clears the forward stack.
func (h *History[T]) Record(origin T) {
	h.back = h.push(h.back, origin)
	h.forward = h.forward[:0]
}

// Back pops the most recent back entry and pushes current onto forward.
func (h *History[T]) Back(current T) (T, error) {
	var zero T
	n := len(h.back)
	if n == 0 {
		return zero, ErrEmpty
	}
	target := h.back[n-1]
	h.back = h.back[:n-1]
	h.forward = h.push(h.forward, current)
	return target, nil
}

// Forward pops the most recent forward entry and pushes current onto back.
// Unlike Record it leaves the rest of the forward stack intact.
func (h *History[T]) Forward(current T) (T, error) {
	var zero T
	n := len(h.forward)
	if n == 0 {
		return zero, ErrEmpty
	}
	target := h.forward[n-1]
	h.forward = h.forward[:n-1]
	h.back = h.push(h.back, current)
	return target, nil
}

// PeekBack returns the entry Back would pop without changing state.
func (h *History[T]) PeekBack() (T, bool) { return peek(h.back) }

// PeekForward returns the entry Forward would pop without changing state.
func (h *History[T]) PeekForward() (T, bool) { return peek(h.forward) }

func peek[T any](stack []T) (T, bool) {
	var zero T
	if len(stack) == 0 {
		return zero, false
	}
	return stack[len(stack)-1], true
}

func (h *History[T]) CanGoBack() bool    { return len(h.back) > 0 }
func (h *History[T]) CanGoForward() bool { return len(h.forward) > 0 }

// Capacity returns the per-stack bound.
func (h *History[T]) Capacity() int { return h.capacity }

// Stacks returns copies of both stacks, oldest entry first.
func (h *History[T]) Stacks() (back, forward []T) {
	back = append([]T(nil), h.back...)
	forward = append([]T(nil), h.forward...)
	return back, forward
}
