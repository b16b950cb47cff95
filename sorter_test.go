package shoal

import (
	"errors"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"testing"
)

func intLess(a, b int) bool { return a < b }

// ============================================================================
// BASIC SORT TESTS
// ============================================================================

func TestSort_ConcreteScenario(t *testing.T) {
	// The result must not depend on how many workers participate.
	for workers := 0; workers <= runtime.NumCPU(); workers++ {
		in := []int{5, 3, 8, 1, 9, 2}
		out, err := Sort(in, intLess, WithMaxWorkers(workers))
		if err != nil {
			t.Fatalf("workers=%d: Sort failed: %v", workers, err)
		}

		want := []int{1, 2, 3, 5, 8, 9}
		if len(out) != len(want) {
			t.Fatalf("workers=%d: expected %d elements, got %d", workers, len(want), len(out))
		}
		for i := range want {
			if out[i] != want[i] {
				t.Errorf("workers=%d: expected %d at position %d, got %d",
					workers, want[i], i, out[i])
			}
		}
	}
}

func TestSort_Empty(t *testing.T) {
	out, err := Sort([]int{}, intLess)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("Expected empty output, got %v", out)
	}
}

func TestSort_Singleton(t *testing.T) {
	out, err := Sort([]int{7}, intLess)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	if len(out) != 1 || out[0] != 7 {
		t.Errorf("Expected [7], got %v", out)
	}
}

func TestSort_AllEqual(t *testing.T) {
	out, err := Sort([]int{4, 4, 4}, intLess)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("Expected 3 elements, got %d", len(out))
	}
	for i, v := range out {
		if v != 4 {
			t.Errorf("Expected 4 at position %d, got %d", i, v)
		}
	}
}

func TestSort_Idempotence(t *testing.T) {
	in := make([]int, 2000)
	for i := range in {
		in[i] = i
	}

	out, err := Sort(in, intLess)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	for i, v := range out {
		if v != i {
			t.Errorf("Expected %d at position %d, got %d", i, i, v)
		}
	}
}

func TestSort_Reversed(t *testing.T) {
	const n = 2000
	in := make([]int, n)
	for i := range in {
		in[i] = n - i
	}

	out, err := Sort(in, intLess)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	for i, v := range out {
		if v != i+1 {
			t.Errorf("Expected %d at position %d, got %d", i+1, i, v)
		}
	}
}

func TestSortOrdered(t *testing.T) {
	out, err := SortOrdered([]string{"pear", "apple", "fig"})
	if err != nil {
		t.Fatalf("SortOrdered failed: %v", err)
	}

	want := []string{"apple", "fig", "pear"}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("Expected %q at position %d, got %q", want[i], i, out[i])
		}
	}
}

func TestSort_CustomPredicate(t *testing.T) {
	type task struct {
		name     string
		priority int
	}

	in := []task{
		{"low", 9},
		{"high", 1},
		{"mid", 5},
	}

	// Descending by priority value means ascending urgency.
	out, err := Sort(in, func(a, b task) bool { return a.priority > b.priority })
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	want := []string{"low", "mid", "high"}
	for i := range want {
		if out[i].name != want[i] {
			t.Errorf("Expected %q at position %d, got %q", want[i], i, out[i].name)
		}
	}
}

// ============================================================================
// PROPERTY TESTS
// ============================================================================

func TestSort_CountConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	in := make([]int, 5000)
	inCounts := make(map[int]int)
	for i := range in {
		in[i] = rng.Intn(100) // plenty of duplicates
		inCounts[in[i]]++
	}

	out, err := Sort(in, intLess)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	outCounts := make(map[int]int)
	for _, v := range out {
		outCounts[v]++
	}

	if len(outCounts) != len(inCounts) {
		t.Fatalf("Expected %d distinct values, got %d", len(inCounts), len(outCounts))
	}
	for v, n := range inCounts {
		if outCounts[v] != n {
			t.Errorf("Value %d: expected multiplicity %d, got %d", v, n, outCounts[v])
		}
	}
}

func TestSort_AgainstOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for _, size := range []int{0, 1, 2, 3, 17, 100, 1000, 10000} {
		in := make([]int, size)
		want := make([]int, size)
		for i := range in {
			in[i] = rng.Intn(1 << 20)
			want[i] = in[i]
		}
		sort.Ints(want)

		out, err := Sort(in, intLess)
		if err != nil {
			t.Fatalf("size=%d: Sort failed: %v", size, err)
		}

		if len(out) != size {
			t.Fatalf("size=%d: expected %d elements, got %d", size, size, len(out))
		}
		for i := range want {
			if out[i] != want[i] {
				t.Fatalf("size=%d: mismatch at position %d: expected %d, got %d",
					size, i, want[i], out[i])
			}
		}
	}
}

func TestSort_OrderCorrectness(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	in := make([]int, 3000)
	for i := range in {
		in[i] = rng.Intn(500)
	}

	out, err := Sort(in, intLess)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	for i := 1; i < len(out); i++ {
		if intLess(out[i], out[i-1]) {
			t.Fatalf("Out of order at position %d: %d before %d", i, out[i-1], out[i])
		}
	}
}

func TestSort_ZeroWorkers(t *testing.T) {
	// With no extra workers, join-by-helping alone must finish the sort.
	rng := rand.New(rand.NewSource(4))

	in := make([]int, 5000)
	for i := range in {
		in[i] = rng.Intn(1 << 16)
	}

	out, err := Sort(in, intLess, WithMaxWorkers(0))
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	for i := 1; i < len(out); i++ {
		if out[i] < out[i-1] {
			t.Fatalf("Out of order at position %d", i)
		}
	}
}

// ============================================================================
// SORTER LIFECYCLE TESTS
// ============================================================================

func TestNewSorter_NilPredicate(t *testing.T) {
	_, err := NewSorter[int](nil)
	if err == nil {
		t.Error("Expected error for nil predicate")
	}
}

func TestSorter_SortAfterShutdown(t *testing.T) {
	s, err := NewSorter(intLess)
	if err != nil {
		t.Fatalf("NewSorter failed: %v", err)
	}

	s.Shutdown()

	_, err = s.Sort([]int{3, 1, 2})
	if !errors.Is(err, ErrSorterShutdown) {
		t.Errorf("Expected ErrSorterShutdown, got %v", err)
	}
}

func TestSorter_ShutdownIdempotent(t *testing.T) {
	s, err := NewSorter(intLess)
	if err != nil {
		t.Fatalf("NewSorter failed: %v", err)
	}

	if _, err := s.Sort([]int{3, 1, 2}); err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	s.Shutdown()
	s.Shutdown() // Must not panic or block

	if s.NumWorkers() != 0 {
		t.Errorf("Expected 0 live workers after shutdown, got %d", s.NumWorkers())
	}
}

func TestSorter_MultipleSorts(t *testing.T) {
	s, err := NewSorter(intLess)
	if err != nil {
		t.Fatalf("NewSorter failed: %v", err)
	}
	defer s.Shutdown()

	for round := 0; round < 5; round++ {
		in := []int{5, 3, 8, 1, 9, 2}
		out, err := s.Sort(in)
		if err != nil {
			t.Fatalf("Round %d: Sort failed: %v", round, err)
		}
		want := []int{1, 2, 3, 5, 8, 9}
		for i := range want {
			if out[i] != want[i] {
				t.Errorf("Round %d: expected %d at position %d, got %d",
					round, want[i], i, out[i])
			}
		}
	}
}

func TestSorter_ConcurrentSorts(t *testing.T) {
	s, err := NewSorter(intLess)
	if err != nil {
		t.Fatalf("NewSorter failed: %v", err)
	}
	defer s.Shutdown()

	const numSorts = 4
	var wg sync.WaitGroup

	for g := 0; g < numSorts; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			in := make([]int, 2000)
			for i := range in {
				in[i] = rng.Intn(1 << 16)
			}

			out, err := s.Sort(in)
			if err != nil {
				t.Errorf("Sort failed: %v", err)
				return
			}
			for i := 1; i < len(out); i++ {
				if out[i] < out[i-1] {
					t.Errorf("Out of order at position %d", i)
					return
				}
			}
		}(int64(g))
	}

	wg.Wait()
}

func TestSorter_ResourceExhaustion(t *testing.T) {
	// Occupy the only hazard slot so the sorting goroutine cannot pop.
	reg := NewRegistry(1)
	blocker, err := reg.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer blocker.Release()

	s, err := NewSorter(intLess, WithRegistry(reg), WithMaxWorkers(0))
	if err != nil {
		t.Fatalf("NewSorter failed: %v", err)
	}
	defer s.Shutdown()

	_, err = s.Sort([]int{3, 1, 2})
	if !errors.Is(err, ErrNoHazardSlots) {
		t.Errorf("Expected ErrNoHazardSlots, got %v", err)
	}
}

// ============================================================================
// STATS TESTS
// ============================================================================

func TestSorter_Stats(t *testing.T) {
	s, err := NewSorter(intLess, WithMaxWorkers(2))
	if err != nil {
		t.Fatalf("NewSorter failed: %v", err)
	}

	in := make([]int, 1000)
	for i := range in {
		in[i] = 1000 - i
	}
	if _, err := s.Sort(in); err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	s.Shutdown()

	stats := s.Stats()

	if stats.MaxWorkers != 2 {
		t.Errorf("Expected MaxWorkers 2, got %d", stats.MaxWorkers)
	}
	if stats.Offloaded == 0 {
		t.Error("Expected offloaded chunks for a 1000-element sort")
	}
	if stats.SortedByWorkers+stats.SortedByProducers != stats.Offloaded {
		t.Errorf("Every offloaded chunk must be sorted exactly once: offloaded=%d workers=%d producers=%d",
			stats.Offloaded, stats.SortedByWorkers, stats.SortedByProducers)
	}
	if stats.WorkerStartFailures != 0 {
		t.Errorf("Expected no worker start failures, got %d", stats.WorkerStartFailures)
	}
}
