package shoal

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// cacheLinePad prevents false sharing between hot fields
type cacheLinePad struct {
	_ [64]byte
}

// DefaultRegistryCapacity is the slot capacity of the process-wide registry
// returned by DefaultRegistry. Every concurrently popping goroutine holds
// one slot, so this bounds the number of simultaneous poppers across all
// stacks sharing the default registry.
const DefaultRegistryCapacity = 128

// hazardSlot is one entry in the registry table.
//
// owner is claimed via CAS (0 = free). ptr holds the address the owning
// goroutine is currently dereferencing (nil = none). An unowned slot never
// holds a protected address: Release clears ptr before owner.
type hazardSlot struct {
	owner uint64         // atomic: nonzero token of the owning goroutine, 0 when free
	ptr   unsafe.Pointer // atomic: protected node address, nil when none
	_     cacheLinePad
}

// retired is one entry on the deferred-reclamation list: a node that was
// logically removed while still observed by at least one hazard slot.
// It leaves the list only when no slot references it, at which point free
// runs and the node returns to its stack's freelist.
type retired struct {
	ptr  unsafe.Pointer
	free func()
	next *retired
}

// Registry is a fixed-size table of hazard-pointer slots shared by every
// stack built on it. It answers "is this address protected by any
// goroutine?" in O(capacity) time and owns the deferred-reclamation list.
//
// All slot fields are accessed only through atomic operations; the registry
// never takes a lock.
type Registry struct {
	slots []hazardSlot

	_ cacheLinePad

	// retiredHead is the deferred-reclamation list (*retired), pushed and
	// detached via CAS
	retiredHead unsafe.Pointer

	_ cacheLinePad

	// nextToken hands out unique nonzero owner tokens
	nextToken uint64
}

// NewRegistry creates a registry with the given slot capacity.
// Capacity must be at least 1.
func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		panic("shoal: registry capacity must be at least 1")
	}
	return &Registry{slots: make([]hazardSlot, capacity)}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(DefaultRegistryCapacity)
})

// DefaultRegistry returns the process-wide registry, creating it on first
// use. Stacks from NewStack share it, so their poppers draw from one pool
// of DefaultRegistryCapacity slots.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// Slot is an acquired hazard slot. It belongs to exactly one goroutine from
// Acquire until Release and must not be shared.
type Slot struct {
	reg *Registry
	hs  *hazardSlot
}

// Acquire claims a free slot for the calling goroutine.
//
// Returns ErrNoHazardSlots if every slot is owned. The caller cannot pop
// safely in that case and must not fall back to unprotected access.
func (r *Registry) Acquire() (*Slot, error) {
	token := atomic.AddUint64(&r.nextToken, 1)

	for i := range r.slots {
		hs := &r.slots[i]
		if atomic.LoadUint64(&hs.owner) != 0 {
			continue
		}
		if atomic.CompareAndSwapUint64(&hs.owner, 0, token) {
			return &Slot{reg: r, hs: hs}, nil
		}
	}

	return nil, ErrNoHazardSlots
}

// Release returns the slot to the registry. The protected address is
// cleared before ownership so the slot is never observed as free while
// still protecting a node.
func (s *Slot) Release() {
	atomic.StorePointer(&s.hs.ptr, nil)
	atomic.StoreUint64(&s.hs.owner, 0)
}

// protect publishes p as the address this goroutine may dereference.
func (s *Slot) protect(p unsafe.Pointer) {
	atomic.StorePointer(&s.hs.ptr, p)
}

// clear withdraws the published address.
func (s *Slot) clear() {
	atomic.StorePointer(&s.hs.ptr, nil)
}

// protected reports whether any slot currently protects p.
// Consulted before any node is physically recycled.
func (r *Registry) protected(p unsafe.Pointer) bool {
	for i := range r.slots {
		if atomic.LoadPointer(&r.slots[i].ptr) == p {
			return true
		}
	}
	return false
}

// retire places p on the deferred-reclamation list. free runs once no slot
// references p anymore, during a later sweep.
func (r *Registry) retire(p unsafe.Pointer, free func()) {
	r.pushRetired(&retired{ptr: p, free: free})
}

// pushRetired links rt onto the deferred list via a CAS retry loop.
func (r *Registry) pushRetired(rt *retired) {
	for {
		head := atomic.LoadPointer(&r.retiredHead)
		rt.next = (*retired)(head)
		if atomic.CompareAndSwapPointer(&r.retiredHead, head, unsafe.Pointer(rt)) {
			return
		}
	}
}

// sweep detaches the entire deferred list and rescans it once: entries no
// longer protected by any slot are freed, the rest are re-queued.
func (r *Registry) sweep() {
	cur := (*retired)(atomic.SwapPointer(&r.retiredHead, nil))

	for cur != nil {
		next := cur.next
		if r.protected(cur.ptr) {
			r.pushRetired(cur)
		} else {
			cur.free()
		}
		cur = next
	}
}

// InUse returns the number of currently owned slots.
// This is a snapshot and may be stale immediately.
func (r *Registry) InUse() int {
	n := 0
	for i := range r.slots {
		if atomic.LoadUint64(&r.slots[i].owner) != 0 {
			n++
		}
	}
	return n
}

// Capacity returns the total number of slots in the registry.
func (r *Registry) Capacity() int {
	return len(r.slots)
}
