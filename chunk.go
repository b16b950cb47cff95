package shoal

import "sync/atomic"

// oneshot is a single-producer/single-consumer result channel: exactly one
// producer fulfills it exactly once, exactly one consumer reads it.
type oneshot[T any] struct {
	fulfilled uint32 // atomic: 1 once fulfill has been called
	ch        chan T
}

func newOneshot[T any]() *oneshot[T] {
	// Capacity 1 so the producer never blocks on delivery.
	return &oneshot[T]{ch: make(chan T, 1)}
}

// fulfill delivers the value. Calling it twice violates the
// single-producer contract and panics.
func (o *oneshot[T]) fulfill(v T) {
	if !atomic.CompareAndSwapUint32(&o.fulfilled, 0, 1) {
		panic("shoal: result channel fulfilled twice")
	}
	o.ch <- v
}

// poll is a non-blocking readiness check. It consumes the value when ready.
func (o *oneshot[T]) poll() (T, bool) {
	select {
	case v := <-o.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// take blocks the calling goroutine until the value is delivered,
// consuming the channel.
func (o *oneshot[T]) take() T {
	return <-o.ch
}

// chunk is one unit of pending sort work: an owned, not-yet-sorted fragment
// paired with the one-shot channel its sorted result is delivered on.
// The goroutine that created the chunk is the sole consumer of res; the
// goroutine that pops and sorts it is the sole producer.
type chunk[T any] struct {
	data []T
	res  *oneshot[[]T]
}

func newChunk[T any](data []T) *chunk[T] {
	return &chunk[T]{data: data, res: newOneshot[[]T]()}
}
