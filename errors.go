package shoal

import "fmt"

// Common errors returned by the package.
var (
	// ErrNoHazardSlots is returned when a goroutine attempts its first pop
	// while the hazard-pointer registry has no free slot. The goroutine
	// cannot pop safely without one, so the condition is surfaced to the
	// caller instead of silently degrading to unsafe node reuse.
	//
	// Example:
	//
	//	h, err := stack.Acquire()
	//	if errors.Is(err, shoal.ErrNoHazardSlots) {
	//	    // Too many concurrent poppers for the registry capacity.
	//	}
	ErrNoHazardSlots = &Error{msg: "no free hazard slots"}

	// ErrSorterShutdown is returned when calling Sort on a sorter that has
	// been shut down. Once a sorter is shut down it cannot sort again.
	ErrSorterShutdown = &Error{msg: "sorter is shutdown"}
)

// Error represents an error that occurred within the package.
//
// Error implements the error interface and supports error unwrapping
// via errors.Unwrap for compatibility with Go 1.13+ error handling.
type Error struct {
	msg string // Human-readable error message
	err error  // Underlying error (if any)
}

// Error returns a formatted error message.
// If an underlying error exists, it is included in the output.
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("shoal: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("shoal: %s", e.msg)
}

// Unwrap returns the underlying error, allowing use with errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.err
}

// errInvalidConfig creates an error for invalid sorter configuration.
// This is returned during sorter creation when validation fails.
func errInvalidConfig(msg string) error {
	return &Error{msg: "invalid config: " + msg}
}
