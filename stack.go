package shoal

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// node is a single stack cell. It is exclusively owned by the stack until a
// successful pop transfers ownership to the popping goroutine, which either
// recycles it immediately or hands it to the deferred-reclamation list.
type node[T any] struct {
	value T
	next  unsafe.Pointer // atomic: *node[T]
}

// Stack is an unbounded lock-free LIFO stack with hazard-pointer-based node
// reclamation.
//
// Properties:
//   - Push never fails and needs no hazard slot (it dereferences no removed node)
//   - Pop goes through a per-goroutine Handle that owns a hazard slot
//   - Popped nodes are recycled through a freelist, but only once no hazard
//     slot references them, closing the ABA/use-after-free window of a naive
//     CAS stack
//
// Contention causes CAS retries, never errors. The stack is lock-free, not
// wait-free: a pusher or popper can always be delayed by other threads
// making progress.
type Stack[T any] struct {
	_ cacheLinePad

	// head is the top of the stack (*node[T]), advanced via CAS
	head unsafe.Pointer

	_ cacheLinePad

	// size is an approximate element count for Size/IsEmpty
	size int64

	_ cacheLinePad

	reg  *Registry
	pool *sync.Pool // recycled *node[T]
}

// NewStack creates a stack backed by the process-wide default registry.
func NewStack[T any]() *Stack[T] {
	return NewStackWithRegistry[T](DefaultRegistry())
}

// NewStackWithRegistry creates a stack backed by an explicit registry.
// Several stacks may share one registry; a popping goroutine holds a single
// slot per stack handle.
func NewStackWithRegistry[T any](reg *Registry) *Stack[T] {
	return &Stack[T]{
		reg:  reg,
		pool: &sync.Pool{New: func() any { return new(node[T]) }},
	}
}

// Push adds v to the top of the stack. It always succeeds; contention is
// absorbed by the CAS retry loop. Safe for any number of concurrent callers.
func (s *Stack[T]) Push(v T) {
	n := s.pool.Get().(*node[T])
	n.value = v

	for {
		head := atomic.LoadPointer(&s.head)
		atomic.StorePointer(&n.next, head)
		if atomic.CompareAndSwapPointer(&s.head, head, unsafe.Pointer(n)) {
			atomic.AddInt64(&s.size, 1)
			return
		}
	}
}

// Handle is a per-goroutine pop handle owning one hazard slot for the
// lifetime of the goroutine's participation. A Handle must not be shared
// between goroutines.
type Handle[T any] struct {
	s    *Stack[T]
	slot *Slot
}

// Acquire claims a hazard slot and returns a pop handle for the calling
// goroutine. Returns ErrNoHazardSlots if the registry is exhausted.
// Release the handle when the goroutine stops popping.
func (s *Stack[T]) Acquire() (*Handle[T], error) {
	slot, err := s.reg.Acquire()
	if err != nil {
		return nil, err
	}
	return &Handle[T]{s: s, slot: slot}, nil
}

// Release returns the handle's hazard slot to the registry.
// The handle must not be used afterwards.
func (h *Handle[T]) Release() {
	h.slot.Release()
}

// Pop removes and returns the value at the top of the stack.
// It returns false if the stack is empty — a normal outcome, not an error.
//
// Algorithm:
//  1. Publish the candidate head into this goroutine's hazard slot, then
//     re-read head until both agree. Once they do, the node cannot be
//     recycled under us: any popper that removes it afterwards sees our slot.
//  2. CAS head to head.next; on failure restart the publish loop.
//  3. On success clear the slot, move the value out, then recycle the node
//     immediately if unprotected or retire it otherwise.
//  4. Opportunistically sweep the deferred-reclamation list once.
func (h *Handle[T]) Pop() (T, bool) {
	s := h.s

	for {
		p := atomic.LoadPointer(&s.head)

		// Publish-and-confirm. The double-check defends against the node
		// being recycled between the initial read and the publication.
		for {
			h.slot.protect(p)
			q := atomic.LoadPointer(&s.head)
			if q == p {
				break
			}
			p = q
		}

		if p == nil {
			h.slot.clear()
			var zero T
			return zero, false
		}

		n := (*node[T])(p)
		next := atomic.LoadPointer(&n.next)

		if !atomic.CompareAndSwapPointer(&s.head, p, next) {
			// Lost the race for this node; re-protect whatever is head now.
			continue
		}

		atomic.AddInt64(&s.size, -1)
		h.slot.clear()

		// Ownership of the payload moves to the caller before the node's
		// fate is decided.
		v := n.value

		if s.reg.protected(p) {
			s.reg.retire(p, func() { s.recycle(n) })
		} else {
			s.recycle(n)
		}
		s.reg.sweep()

		return v, true
	}
}

// recycle clears the node and returns it to the freelist. Called only after
// hazard clearance: either no slot referenced the node at pop time, or the
// sweep confirmed all references are gone.
func (s *Stack[T]) recycle(n *node[T]) {
	var zero T
	n.value = zero
	atomic.StorePointer(&n.next, nil)
	s.pool.Put(n)
}

// Size returns an estimate of the current element count.
// This is a snapshot and may be stale immediately.
func (s *Stack[T]) Size() int64 {
	size := atomic.LoadInt64(&s.size)
	if size < 0 {
		return 0
	}
	return size
}

// IsEmpty returns true if the stack appears empty.
// This is a snapshot and may be stale.
func (s *Stack[T]) IsEmpty() bool {
	return s.Size() == 0
}
