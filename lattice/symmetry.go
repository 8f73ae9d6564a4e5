package lattice

import (
	"fmt"
	"math"
	"sort"
)

// maxGroupOrder bounds the closure search. Crystallographic point groups
// have at most 48 elements.
const maxGroupOrder = 48

// Rotation is an integer matrix acting on direct lattice coordinates
// (column convention: n' = W*n).
type Rotation [3][3]int

// Identity is the identity operation.
var Identity = Rotation{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// Inversion maps n to -n.
var Inversion = Rotation{{-1, 0, 0}, {0, -1, 0}, {0, 0, -1}}

// Apply returns W*n.
func (w Rotation) Apply(n [3]int) [3]int {
	var out [3]int
	for i := 0; i < 3; i++ {
		out[i] = w[i][0]*n[0] + w[i][1]*n[1] + w[i][2]*n[2]
	}
	return out
}

// ApplyFrac applies the transposed rotation to fractional reciprocal
// coordinates, the action dual to Apply: (W^T k) . n = k . (W n).
func (w Rotation) ApplyFrac(k [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = float64(w[0][i])*k[0] + float64(w[1][i])*k[1] + float64(w[2][i])*k[2]
	}
	return out
}

// Mul returns the product w*o.
func (w Rotation) Mul(o Rotation) Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += w[i][k] * o[k][j]
			}
		}
	}
	return out
}

// Det returns the determinant.
func (w Rotation) Det() int {
	return w[0][0]*(w[1][1]*w[2][2]-w[1][2]*w[2][1]) -
		w[0][1]*(w[1][0]*w[2][2]-w[1][2]*w[2][0]) +
		w[0][2]*(w[1][0]*w[2][1]-w[1][1]*w[2][0])
}

// Atom is one site of the atomic basis, in fractional coordinates.
type Atom struct {
	Species  string     `yaml:"species"`
	Position [3]float64 `yaml:"position"`
}

// Structure bundles the cell, the atomic basis and the symmetry operations
// supplied by an external symmetry finder.
type Structure struct {
	Lattice   Lattice    `yaml:"lattice"`
	Atoms     []Atom     `yaml:"atoms"`
	Rotations []Rotation `yaml:"rotations"`
}

// Volume returns the cell volume.
func (s Structure) Volume() float64 {
	return s.Lattice.Volume()
}

// PointGroup validates the structure's rotations against the lattice metric
// and returns their closure under composition. When timeReversal is set the
// inversion is added first, so every orbit is closed under n -> -n.
// The result is sorted and therefore deterministic.
func (s Structure) PointGroup(timeReversal bool) ([]Rotation, error) {
	if len(s.Rotations) == 0 {
		return nil, ErrEmptyGroup
	}
	if _, err := s.Lattice.Inverse(); err != nil {
		return nil, err
	}

	g := s.Lattice.Metric()
	for i, w := range s.Rotations {
		if d := w.Det(); d != 1 && d != -1 {
			return nil, fmt.Errorf("%w: operation %d has det %d", ErrNotUnimodular, i, d)
		}
		if !preservesMetric(w, g) {
			return nil, fmt.Errorf("%w: operation %d", ErrNotIsometry, i)
		}
	}

	gens := append([]Rotation{Identity}, s.Rotations...)
	if timeReversal {
		gens = append(gens, Inversion)
	}
	return Generate(gens...)
}

// Generate returns the closure of the given operations under multiplication,
// sorted lexicographically.
func Generate(gens ...Rotation) ([]Rotation, error) {
	seen := map[Rotation]bool{Identity: true}
	group := []Rotation{Identity}
	for _, w := range gens {
		if !seen[w] {
			seen[w] = true
			group = append(group, w)
		}
	}

	for changed := true; changed; {
		changed = false
		n := len(group)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				p := group[i].Mul(group[j])
				if seen[p] {
					continue
				}
				if len(group) >= maxGroupOrder {
					return nil, ErrGroupTooLarge
				}
				seen[p] = true
				group = append(group, p)
				changed = true
			}
		}
	}

	sort.Slice(group, func(a, b int) bool {
		return lessRotation(group[a], group[b])
	})
	return group, nil
}

func lessRotation(a, b Rotation) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if a[i][j] != b[i][j] {
				return a[i][j] < b[i][j]
			}
		}
	}
	return false
}

// preservesMetric reports whether W^T G W == G within a relative tolerance.
func preservesMetric(w Rotation, g [3][3]float64) bool {
	scale := math.Max(math.Abs(g[0][0]), math.Max(math.Abs(g[1][1]), math.Abs(g[2][2])))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var v float64
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					v += float64(w[a][i]) * g[a][b] * float64(w[b][j])
				}
			}
			if math.Abs(v-g[i][j]) > 1e-6*scale {
				return false
			}
		}
	}
	return true
}
