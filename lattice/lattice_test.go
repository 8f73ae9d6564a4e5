package lattice

import (
	"errors"
	"math"
	"testing"
)

func TestVolumeAndReciprocal(t *testing.T) {
	l := Lattice{{0, 5, 5}, {5, 0, 5}, {5, 5, 0}} // fcc, a = 10
	if v := l.Volume(); math.Abs(v-250) > 1e-9 {
		t.Fatalf("Volume() = %v, want 250", v)
	}

	b, err := l.Reciprocal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			dot := l[i][0]*b[j][0] + l[i][1]*b[j][1] + l[i][2]*b[j][2]
			want := 0.0
			if i == j {
				want = 2 * math.Pi
			}
			if math.Abs(dot-want) > 1e-9 {
				t.Errorf("a%d.b%d = %v, want %v", i, j, dot, want)
			}
		}
	}
}

func TestSingularLattice(t *testing.T) {
	l := Lattice{{1, 0, 0}, {2, 0, 0}, {0, 0, 1}}
	if _, err := l.Inverse(); !errors.Is(err, ErrSingularLattice) {
		t.Fatalf("expected ErrSingularLattice, got %v", err)
	}
}

func TestCoordinateBounds(t *testing.T) {
	l := Orthorhombic(1, 2, 4)
	bounds, err := l.CoordinateBounds(4.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [3]int{4, 2, 1}
	if bounds != want {
		t.Fatalf("CoordinateBounds = %v, want %v", bounds, want)
	}
}

func TestGenerateCubicGroup(t *testing.T) {
	c4 := Rotation{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}}
	c3 := Rotation{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}}
	group, err := Generate(c4, c3, Inversion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(group) != 48 {
		t.Fatalf("cubic group order = %d, want 48", len(group))
	}

	// Closed under multiplication.
	set := map[Rotation]bool{}
	for _, w := range group {
		set[w] = true
	}
	for _, a := range group {
		for _, b := range group {
			if !set[a.Mul(b)] {
				t.Fatalf("product %v*%v not in group", a, b)
			}
		}
	}
}

func TestPointGroupValidation(t *testing.T) {
	s := Structure{Lattice: Orthorhombic(1, 2, 3)}
	if _, err := s.PointGroup(true); !errors.Is(err, ErrEmptyGroup) {
		t.Fatalf("expected ErrEmptyGroup, got %v", err)
	}

	// A 4-fold axis is not a symmetry of an orthorhombic cell.
	s.Rotations = []Rotation{{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}}}
	if _, err := s.PointGroup(true); !errors.Is(err, ErrNotIsometry) {
		t.Fatalf("expected ErrNotIsometry, got %v", err)
	}

	s.Rotations = []Rotation{{{2, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
	if _, err := s.PointGroup(true); !errors.Is(err, ErrNotUnimodular) {
		t.Fatalf("expected ErrNotUnimodular, got %v", err)
	}

	s.Rotations = []Rotation{Identity}
	group, err := s.PointGroup(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(group) != 2 {
		t.Fatalf("identity + time reversal order = %d, want 2", len(group))
	}
}

func TestApplyFracDuality(t *testing.T) {
	w := Rotation{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}}
	n := [3]int{1, -2, 3}
	k := [3]float64{0.1, 0.25, -0.4}

	wn := w.Apply(n)
	wk := w.ApplyFrac(k)
	lhs := wk[0]*float64(n[0]) + wk[1]*float64(n[1]) + wk[2]*float64(n[2])
	rhs := k[0]*float64(wn[0]) + k[1]*float64(wn[1]) + k[2]*float64(wn[2])
	if math.Abs(lhs-rhs) > 1e-12 {
		t.Fatalf("(W^T k).n = %v, k.(W n) = %v", lhs, rhs)
	}
}
