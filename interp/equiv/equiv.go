// Package equiv builds the star basis of a Fourier band interpolation:
// real-space lattice points grouped into orbits of the crystal point group.
package equiv

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-btp/lattice"
)

// Errors returned by Compute.
var (
	ErrInvalidRatio    = errors.New("equiv: lpratio must be >= 1")
	ErrNoKPoints       = errors.New("equiv: number of k-points must be >= 1")
	ErrNoSymmetry      = errors.New("equiv: structure has no usable symmetry information")
	ErrSearchExhausted = errors.New("equiv: radius search did not reach the requested star count")
)

const (
	maxGrowth    = 24
	growthFactor = 1.5
	// radiusKeyScale quantises squared radii so that stars on the same
	// shell compare equal despite rounding.
	radiusKeyScale = 1e6
)

// Star is one orbit of lattice points under the point group, sorted
// lexicographically.
type Star [][3]int

// Set is the ordered star basis. Set[0] is always the origin.
type Set []Star

// Compute returns every star inside the sphere expected to hold
// lpratio*nkpt stars, ordered by radius. The sphere grows until it holds at
// least that many; the set is not truncated, so shells are always complete.
// A single requested star yields the origin alone. Every returned star is
// closed under the structure's point group extended by inversion (time
// reversal).
func Compute(s lattice.Structure, nkpt, lpratio int) (Set, error) {
	if lpratio < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRatio, lpratio)
	}
	if nkpt < 1 {
		return nil, fmt.Errorf("%w: %d", ErrNoKPoints, nkpt)
	}

	group, err := s.PointGroup(true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSymmetry, err)
	}

	target := lpratio * nkpt
	if target == 1 {
		return Set{{{0, 0, 0}}}, nil
	}
	volume := s.Lattice.Volume()
	radius := math.Cbrt(3 * float64(target) * float64(len(group)) * volume / (4 * math.Pi))

	for attempt := 0; attempt < maxGrowth; attempt++ {
		stars, err := starsWithin(s.Lattice, group, radius)
		if err != nil {
			return nil, err
		}
		if len(stars) >= target {
			return stars, nil
		}
		radius *= growthFactor
	}
	return nil, fmt.Errorf("%w: wanted %d stars", ErrSearchExhausted, target)
}

// starsWithin enumerates every lattice point no further than r from the
// origin and groups them into sorted stars.
func starsWithin(l lattice.Lattice, group []lattice.Rotation, r float64) (Set, error) {
	bounds, err := l.CoordinateBounds(r)
	if err != nil {
		return nil, err
	}

	limit := r * r * (1 + 1e-9)
	var points [][3]int
	for i := -bounds[0]; i <= bounds[0]; i++ {
		for j := -bounds[1]; j <= bounds[1]; j++ {
			for k := -bounds[2]; k <= bounds[2]; k++ {
				n := [3]int{i, j, k}
				if norm2(l, n) <= limit {
					points = append(points, n)
				}
			}
		}
	}

	visited := make(map[[3]int]bool, len(points))
	var stars Set
	for _, p := range points {
		if visited[p] {
			continue
		}
		star := orbit(group, p)
		for _, q := range star {
			visited[q] = true
		}
		stars = append(stars, star)
	}

	keys := make([]int64, len(stars))
	for i, st := range stars {
		keys[i] = radiusKey(l, st[0])
	}
	idx := make([]int, len(stars))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka != kb {
			return ka < kb
		}
		return lessPoint(stars[idx[a]][0], stars[idx[b]][0])
	})

	sorted := make(Set, len(stars))
	for i, j := range idx {
		sorted[i] = stars[j]
	}
	return sorted, nil
}

// orbit returns the distinct images of p under group, sorted.
func orbit(group []lattice.Rotation, p [3]int) Star {
	seen := make(map[[3]int]bool, len(group))
	var star Star
	for _, w := range group {
		q := w.Apply(p)
		if !seen[q] {
			seen[q] = true
			star = append(star, q)
		}
	}
	sort.Slice(star, func(a, b int) bool { return lessPoint(star[a], star[b]) })
	return star
}

func norm2(l lattice.Lattice, n [3]int) float64 {
	v := l.Cartesian(n)
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

func radiusKey(l lattice.Lattice, n [3]int) int64 {
	return int64(math.Round(norm2(l, n) * radiusKeyScale))
}

func lessPoint(a, b [3]int) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Len returns the number of stars.
func (s Set) Len() int { return len(s) }

// NumPoints returns the total number of lattice points over all stars.
func (s Set) NumPoints() int {
	n := 0
	for _, st := range s {
		n += len(st)
	}
	return n
}

// Dims returns the dense mesh implied by the set: 2*max|n_i|+1 per axis.
func (s Set) Dims() [3]int {
	var m [3]int
	for _, st := range s {
		for _, p := range st {
			for i := 0; i < 3; i++ {
				a := p[i]
				if a < 0 {
					a = -a
				}
				if a > m[i] {
					m[i] = a
				}
			}
		}
	}
	return [3]int{2*m[0] + 1, 2*m[1] + 1, 2*m[2] + 1}
}

// Radii returns the Cartesian radius of each star.
func (s Set) Radii(l lattice.Lattice) []float64 {
	out := make([]float64, len(s))
	for i, st := range s {
		out[i] = l.Norm(st[0])
	}
	return out
}
