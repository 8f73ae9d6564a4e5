package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or in any
// element by more than eps.
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if diff := math.Abs(got[i] - want[i]); diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t on the first NaN or Inf in data.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxTensorDiff returns the largest absolute component difference of two
// 3x3 tensors.
func MaxTensorDiff(a, b [3][3]float64) float64 {
	var d float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d = math.Max(d, math.Abs(a[i][j]-b[i][j]))
		}
	}
	return d
}

// RequireTensorNearlyEqual fails t if any component of two 3x3 tensors
// differs by more than eps.
func RequireTensorNearlyEqual(t *testing.T, got, want [3][3]float64, eps float64) {
	t.Helper()
	if d := MaxTensorDiff(got, want); d > eps {
		t.Fatalf("tensor mismatch (max diff %v > eps %v):\n got  %v\n want %v", d, eps, got, want)
	}
}

// RequireSymmetric fails t if m differs from its transpose by more than eps.
func RequireSymmetric(t *testing.T, m [3][3]float64, eps float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if diff := math.Abs(m[i][j] - m[j][i]); diff > eps {
				t.Fatalf("not symmetric at [%d][%d]: %v vs %v", i, j, m[i][j], m[j][i])
			}
		}
	}
}
