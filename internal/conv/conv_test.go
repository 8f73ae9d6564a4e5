package conv

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-btp/internal/testutil"
)

func TestDirect(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected []float64
	}{
		{
			name:     "box",
			a:        []float64{1, 2, 3},
			b:        []float64{1, 1, 1},
			expected: []float64{1, 3, 6, 5, 3},
		},
		{
			name:     "impulse",
			a:        []float64{1, 2, 3, 4, 5},
			b:        []float64{1},
			expected: []float64{1, 2, 3, 4, 5},
		},
		{
			name:     "symmetric",
			a:        []float64{1, 2, 1},
			b:        []float64{1, 2, 1},
			expected: []float64{1, 4, 6, 4, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Direct(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.RequireSliceNearlyEqual(t, result, tt.expected, 1e-12)
		})
	}
}

func TestDirectErrors(t *testing.T) {
	if _, err := Direct(nil, []float64{1}); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := Direct([]float64{1}, nil); !errors.Is(err, ErrEmptyKernel) {
		t.Errorf("expected ErrEmptyKernel, got %v", err)
	}
}

func TestOverlapAddMatchesDirect(t *testing.T) {
	signal := make([]float64, 1500)
	for i := range signal {
		signal[i] = math.Sin(2*math.Pi*float64(i)/97) + 0.1*float64(i%7)
	}
	kernel := make([]float64, 151)
	for i := range kernel {
		x := float64(i-75) / 20
		kernel[i] = math.Exp(-x * x / 2)
	}

	want, err := Direct(signal, kernel)
	if err != nil {
		t.Fatalf("direct convolution failed: %v", err)
	}
	got, err := OverlapAdd(signal, kernel)
	if err != nil {
		t.Fatalf("overlap-add convolution failed: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, got, want, 1e-9)
}

func TestSameCentresKernel(t *testing.T) {
	signal := make([]float64, 11)
	signal[5] = 1
	kernel := []float64{0.25, 0.5, 0.25}

	out, err := Same(signal, kernel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0, 0, 0, 0, 0.25, 0.5, 0.25, 0, 0, 0, 0}
	testutil.RequireSliceNearlyEqual(t, out, want, 1e-12)

	if _, err := Same(signal, []float64{0.5, 0.5}); !errors.Is(err, ErrEvenKernel) {
		t.Errorf("expected ErrEvenKernel, got %v", err)
	}
}

func TestSamePreservesMassAwayFromEdges(t *testing.T) {
	signal := make([]float64, 400)
	signal[150], signal[260] = 2, 3
	kernel := make([]float64, 101)
	var sum float64
	for i := range kernel {
		x := float64(i-50) / 12
		kernel[i] = math.Exp(-x * x / 2)
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	out, err := Same(signal, kernel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if math.Abs(total-5) > 1e-9 {
		t.Fatalf("total = %v, want 5", total)
	}
}
