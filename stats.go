package shoal

// Stats contains a snapshot of sorter counters. All values are read without
// locks, so they may be slightly inconsistent while sorts are in flight.
//
// Example:
//
//	stats := sorter.Stats()
//	fmt.Printf("offloaded=%d helped=%d\n", stats.Offloaded, stats.SortedByProducers)
type Stats struct {
	// Offloaded is the total number of chunks pushed onto the shared stack.
	Offloaded uint64

	// SortedByWorkers is the number of chunks popped and sorted by spawned
	// worker goroutines.
	SortedByWorkers uint64

	// SortedByProducers is the number of chunks popped and sorted by a
	// goroutine that was waiting on its own chunk's result. High values
	// relative to SortedByWorkers mean the workers rarely got there first.
	SortedByProducers uint64

	// WorkersSpawned is the total number of worker goroutines started.
	// May transiently exceed MaxWorkers: the cap is a soft target.
	WorkersSpawned uint64

	// WorkerStartFailures counts workers that exited at startup because the
	// hazard-pointer registry had no free slot. Such workers never touch
	// shared nodes; the sort completes without them.
	WorkerStartFailures uint64

	// MaxWorkers is the configured soft cap on worker goroutines.
	MaxWorkers int
}
