package memo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestSlotComputesOnce(t *testing.T) {
	var s Slot[int]
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Get(func() (int, error) {
				calls.Add(1)
				return 42, nil
			})
			if err != nil || v != 42 {
				t.Errorf("Get() = %d, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("compute ran %d times, want 1", calls.Load())
	}
	if !s.Computed() {
		t.Fatal("Computed() = false after Get")
	}
}

func TestSlotCachesError(t *testing.T) {
	var s Slot[[]float64]
	boom := errors.New("boom")

	_, err := s.Get(func() ([]float64, error) { return []float64{1}, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	v, err := s.Get(func() ([]float64, error) { return []float64{2}, nil })
	if !errors.Is(err, boom) || v != nil {
		t.Fatalf("second Get() = %v, %v; want cached error and zero value", v, err)
	}
}

func TestSlotRetriesAfterCancellation(t *testing.T) {
	for _, cause := range []error{context.Canceled, context.DeadlineExceeded} {
		var s Slot[int]

		_, err := s.Get(func() (int, error) { return 0, fmt.Errorf("stage: %w", cause) })
		if !errors.Is(err, cause) {
			t.Fatalf("expected %v, got %v", cause, err)
		}
		if s.Computed() {
			t.Fatalf("%v: slot filled by an interrupted computation", cause)
		}

		v, err := s.Get(func() (int, error) { return 7, nil })
		if err != nil || v != 7 {
			t.Fatalf("retry Get() = %d, %v; want 7, nil", v, err)
		}
	}
}
