package testutil

import (
	"math"
	"testing"
)

func TestMaxTensorDiff(t *testing.T) {
	a := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	b := a
	b[1][2] = -0.25

	if d := MaxTensorDiff(a, b); math.Abs(d-0.25) > 1e-15 {
		t.Fatalf("MaxTensorDiff = %v, want 0.25", d)
	}
	if d := MaxTensorDiff(a, a); d != 0 {
		t.Fatalf("MaxTensorDiff = %v, want 0 for identical tensors", d)
	}
}

func TestRequireSymmetric(t *testing.T) {
	m := [3][3]float64{{1, 2, 3}, {2, 4, 5}, {3, 5, 6}}
	RequireSymmetric(t, m, 0)
	RequireTensorNearlyEqual(t, m, m, 0)
}

func TestRequireHelpersAcceptMatchingData(t *testing.T) {
	e := []float64{-0.1, 0, 0.05}
	RequireFinite(t, e)
	RequireSliceNearlyEqual(t, e, []float64{-0.1, 1e-13, 0.05}, 1e-12)
}
