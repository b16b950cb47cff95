// Package shoal provides an unbounded lock-free concurrent stack with
// hazard-pointer-based node reclamation, and a self-scaling parallel
// quicksort built on that stack as its shared work queue.
//
// # Key Features
//
//   - Lock-free Treiber stack: CAS-only push and pop, no mutexes
//   - Hazard-pointer registry guaranteeing no node is recycled while any
//     goroutine still dereferences it (the ABA/use-after-free defense)
//   - Deferred-reclamation list with opportunistic sweeping
//   - Parallel quicksort that grows its worker pool on demand and helps
//     drain the work queue while waiting, so it makes progress even with
//     zero extra workers
//   - Per-sorter statistics collected without locks
//
// # Quick Start
//
// Sorting with the one-shot entry points:
//
//	out, err := shoal.SortOrdered([]int{5, 3, 8, 1, 9, 2})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// out == [1 2 3 5 8 9]
//
// With a custom predicate and options:
//
//	out, err := shoal.Sort(items, func(a, b Item) bool {
//	    return a.Rank < b.Rank
//	}, shoal.WithMaxWorkers(4))
//
// Note that Sort consumes its input slice: the caller must not reuse it
// after the call.
//
// # Using the Stack Standalone
//
// The stack is a general-purpose concurrent LIFO. Push needs nothing;
// popping goroutines acquire a Handle, which claims one hazard slot for the
// goroutine's participation lifetime:
//
//	stack := shoal.NewStack[int]()
//	stack.Push(42)
//
//	h, err := stack.Acquire()
//	if err != nil {
//	    // Registry exhausted: too many concurrent poppers.
//	    log.Fatal(err)
//	}
//	defer h.Release()
//
//	if v, ok := h.Pop(); ok {
//	    fmt.Println(v)
//	}
//
// An empty stack is not an error: Pop returns (zero, false). Contention
// causes internal CAS retries, never failures.
//
// # Hazard-Pointer Registry
//
// The registry is a fixed-size table of (owner, protected-address) slots,
// shared by every stack built on it. A popping goroutine publishes the node
// it is about to dereference into its slot; no node is recycled while any
// slot references it. Stacks created with NewStack share the lazily created
// process-wide registry of DefaultRegistryCapacity slots; NewRegistry and
// NewStackWithRegistry give a stack its own table.
//
// Acquire fails with ErrNoHazardSlots when every slot is owned. That
// condition is surfaced rather than worked around: a goroutine without a
// slot cannot pop safely.
//
// # Sorter
//
// A Sorter may serve several Sort calls before Shutdown:
//
//	sorter, err := shoal.NewSorter(func(a, b int) bool { return a < b })
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sorter.Shutdown()
//
//	out, err := sorter.Sort(data)
//
// Each call partitions around a pivot, offloads the lower fragment onto the
// shared stack, recurses locally on the higher fragment, then polls the
// lower result while popping and sorting pending chunks itself. Ties go to
// the higher side; the sort is not stable.
//
// Workers are spawned on demand up to MaxWorkers (default NumCPU-1,
// minimum 1). The cap is a soft target: the below-cap check is not
// synchronized, so brief over-provisioning is possible. WithMaxWorkers(0)
// is valid and runs the whole sort on the calling goroutine.
//
// # Shutdown
//
// Shutdown sets a cooperative flag observed at worker loop boundaries and
// joins every worker. Workers finish the chunk they are sorting. Sort after
// Shutdown returns ErrSorterShutdown. There is no cancellation of an
// in-flight sort.
//
// # Thread Safety
//
// Stack.Push, Sorter.Sort and all snapshot accessors are safe for
// concurrent use. A Handle belongs to one goroutine and must not be shared.
//
// # Performance Characteristics
//
//   - Push: O(1) amortized, lock-free
//   - Pop: O(1) plus an O(registry capacity) protection scan
//   - Sort: O(n log n) expected; no recursion-depth guard against
//     adversarial inputs
package shoal
