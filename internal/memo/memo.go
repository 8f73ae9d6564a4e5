// Package memo provides a write-once cache slot for derived pipeline
// artifacts.
package memo

import (
	"context"
	"errors"
	"sync"
)

// Slot computes its value at most once. The outcome, including an error,
// is kept for the lifetime of the slot.
type Slot[T any] struct {
	mu   sync.Mutex
	done bool
	val  T
	err  error
}

// Get returns the cached value, running compute on first use.
// Concurrent callers block until the single computation has finished.
// On error the zero value is cached alongside the error, except for
// context cancellation and deadline errors, which leave the slot empty so a
// later call can retry.
func (s *Slot[T]) Get(compute func() (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.done {
		val, err := compute()
		if interrupted(err) {
			var zero T
			return zero, err
		}
		if err == nil {
			s.val = val
		}
		s.err = err
		s.done = true
	}
	return s.val, s.err
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Computed reports whether the slot has been filled.
func (s *Slot[T]) Computed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
