package shoal

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Sorter is a self-scaling parallel quicksort. Each sort call partitions its
// input around a pivot, offloads the lower fragment as a chunk on the shared
// lock-free stack, recurses locally on the higher fragment, and helps drain
// the stack while waiting for the lower result. Worker goroutines are spawned
// on demand up to a soft cap and pop chunks until shutdown.
//
// A Sorter may run several Sort calls, sequentially or concurrently; spawned
// workers serve all of them. Shutdown joins every worker and must only be
// called once all Sort calls have returned.
type Sorter[T any] struct {
	less   func(a, b T) bool
	config Config

	// chunks is the shared work queue: every participant both pushes and
	// pops it, so a plain LIFO stack serves all of them.
	chunks *Stack[*chunk[T]]

	// Lifecycle management
	done       uint32 // atomic: 1 once Shutdown has been called
	wg         sync.WaitGroup
	numWorkers int32 // atomic: live worker count

	metrics sorterMetrics
}

// sorterMetrics tracks sorter-wide statistics
type sorterMetrics struct {
	offloaded         uint64 // atomic
	sortedByWorkers   uint64 // atomic
	sortedByProducers uint64 // atomic
	workersSpawned    uint64 // atomic
	workerStartFails  uint64 // atomic
}

// NewSorter creates a sorter ordering elements by the given predicate,
// which must be a total order. It returns an error if the configuration
// is invalid.
//
// Example:
//
//	sorter, err := shoal.NewSorter(func(a, b int) bool { return a < b },
//	    shoal.WithMaxWorkers(4),
//	)
func NewSorter[T any](less func(a, b T) bool, opts ...Option) (*Sorter[T], error) {
	if less == nil {
		return nil, errInvalidConfig("less predicate is nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	reg := cfg.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}

	return &Sorter[T]{
		less:   less,
		config: cfg,
		chunks: NewStackWithRegistry[*chunk[T]](reg),
	}, nil
}

// Sort returns a new slice holding the elements of input in non-descending
// order per the predicate. The input slice is consumed and must not be
// reused by the caller.
//
// Returns ErrSorterShutdown after Shutdown, and ErrNoHazardSlots if the
// calling goroutine cannot claim a hazard slot (it would not be able to pop
// safely). Safe for concurrent use.
func (s *Sorter[T]) Sort(input []T) ([]T, error) {
	if atomic.LoadUint32(&s.done) == 1 {
		return nil, ErrSorterShutdown
	}
	if len(input) <= 1 {
		return input, nil
	}

	h, err := s.chunks.Acquire()
	if err != nil {
		return nil, err
	}
	defer h.Release()

	return s.doSort(h, input), nil
}

// doSort is the recursive partition/offload/recurse/join step.
func (s *Sorter[T]) doSort(h *Handle[*chunk[T]], data []T) []T {
	if len(data) <= 1 {
		return data
	}

	pivot := data[0]

	// Stable one-sided partition: strictly-less elements form the lower
	// fragment; pivot-equal elements stay on the higher side.
	var lower, higher []T
	for _, v := range data[1:] {
		if s.less(v, pivot) {
			lower = append(lower, v)
		} else {
			higher = append(higher, v)
		}
	}

	// Offload the lower fragment for any participant to pick up.
	lc := newChunk(lower)
	s.chunks.Push(lc)
	atomic.AddUint64(&s.metrics.offloaded, 1)

	s.maybeSpawnWorker()

	// The higher fragment is always sorted by the goroutine that produced
	// it, never offloaded.
	sortedHigher := s.doSort(h, higher)

	// Join-by-helping: drain the shared stack while the lower result is
	// pending, so progress never depends on another worker existing. The
	// popped chunk is not necessarily our own.
	var sortedLower []T
	for {
		if res, ok := lc.res.poll(); ok {
			sortedLower = res
			break
		}
		if s.trySortChunk(h) {
			atomic.AddUint64(&s.metrics.sortedByProducers, 1)
		} else {
			runtime.Gosched()
		}
	}

	out := make([]T, 0, len(sortedLower)+1+len(sortedHigher))
	out = append(out, sortedLower...)
	out = append(out, pivot)
	out = append(out, sortedHigher...)
	return out
}

// trySortChunk pops one pending chunk, if any, sorts it and fulfills its
// result channel. Reports whether a chunk was processed.
func (s *Sorter[T]) trySortChunk(h *Handle[*chunk[T]]) bool {
	c, ok := h.Pop()
	if !ok {
		return false
	}
	c.res.fulfill(s.doSort(h, c.data))
	return true
}

// maybeSpawnWorker starts one more worker if the pool looks below the cap.
// The check is deliberately unsynchronized against other spawners; the cap
// is a soft target, not a hard limit.
func (s *Sorter[T]) maybeSpawnWorker() {
	if int(atomic.LoadInt32(&s.numWorkers)) >= s.config.MaxWorkers {
		return
	}
	if atomic.LoadUint32(&s.done) == 1 {
		return
	}

	atomic.AddInt32(&s.numWorkers, 1)
	atomic.AddUint64(&s.metrics.workersSpawned, 1)
	s.wg.Add(1)
	go s.runWorker()
}

// runWorker is the worker loop: pop a chunk and sort it, or yield and retry,
// until the shutdown flag is observed. Absence of work is a poll-and-yield
// condition, never a blocking wait.
func (s *Sorter[T]) runWorker() {
	defer s.wg.Done()
	defer atomic.AddInt32(&s.numWorkers, -1)

	h, err := s.chunks.Acquire()
	if err != nil {
		// No hazard slot: this worker cannot pop safely, so it does not
		// participate. The producing goroutines complete the work through
		// join-by-helping.
		atomic.AddUint64(&s.metrics.workerStartFails, 1)
		return
	}
	defer h.Release()

	for atomic.LoadUint32(&s.done) == 0 {
		if s.trySortChunk(h) {
			atomic.AddUint64(&s.metrics.sortedByWorkers, 1)
		} else {
			runtime.Gosched()
		}
	}
}

// Shutdown sets the shutdown flag and joins every spawned worker. A worker
// mid-chunk finishes it; the flag only stops the next poll iteration.
// Shutdown is idempotent and must not be called while a Sort is in flight.
func (s *Sorter[T]) Shutdown() {
	if !atomic.CompareAndSwapUint32(&s.done, 0, 1) {
		return
	}
	s.wg.Wait()
}

// NumWorkers returns the number of currently live worker goroutines.
// This is a snapshot and may be stale immediately.
func (s *Sorter[T]) NumWorkers() int {
	n := atomic.LoadInt32(&s.numWorkers)
	if n < 0 {
		return 0
	}
	return int(n)
}

// Stats returns a snapshot of sorter statistics.
//
// Note: stats are collected without locks, so values may be slightly
// inconsistent while sorts are in flight.
func (s *Sorter[T]) Stats() Stats {
	return Stats{
		Offloaded:           atomic.LoadUint64(&s.metrics.offloaded),
		SortedByWorkers:     atomic.LoadUint64(&s.metrics.sortedByWorkers),
		SortedByProducers:   atomic.LoadUint64(&s.metrics.sortedByProducers),
		WorkersSpawned:      atomic.LoadUint64(&s.metrics.workersSpawned),
		WorkerStartFailures: atomic.LoadUint64(&s.metrics.workerStartFails),
		MaxWorkers:          s.config.MaxWorkers,
	}
}
