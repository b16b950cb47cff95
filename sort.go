package shoal

import "cmp"

// Sort sorts input in parallel using a one-shot sorter: workers are spawned
// on demand and joined before Sort returns. The input slice is consumed and
// must not be reused by the caller.
//
// Example:
//
//	out, err := shoal.Sort([]int{5, 3, 8, 1, 9, 2}, func(a, b int) bool {
//	    return a < b
//	})
func Sort[T any](input []T, less func(a, b T) bool, opts ...Option) ([]T, error) {
	if len(input) <= 1 {
		return input, nil
	}

	s, err := NewSorter[T](less, opts...)
	if err != nil {
		return nil, err
	}
	defer s.Shutdown()

	return s.Sort(input)
}

// SortOrdered sorts a slice of an ordered type by its natural order.
func SortOrdered[T cmp.Ordered](input []T, opts ...Option) ([]T, error) {
	return Sort(input, cmp.Less[T], opts...)
}
