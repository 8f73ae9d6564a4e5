package lattice

import (
	"errors"
	"math"
)

// Errors returned by lattice functions.
var (
	ErrSingularLattice = errors.New("lattice: lattice vectors are linearly dependent")
	ErrEmptyGroup      = errors.New("lattice: no symmetry operations")
	ErrNotUnimodular   = errors.New("lattice: rotation determinant is not +-1")
	ErrNotIsometry     = errors.New("lattice: rotation does not preserve the metric")
	ErrGroupTooLarge   = errors.New("lattice: symmetry operations do not close into a point group")
)

// Lattice holds the three real-space lattice vectors as rows.
type Lattice [3][3]float64

// Cubic returns a simple cubic lattice with edge a.
func Cubic(a float64) Lattice {
	return Lattice{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
}

// Orthorhombic returns a lattice with orthogonal edges a, b, c.
func Orthorhombic(a, b, c float64) Lattice {
	return Lattice{{a, 0, 0}, {0, b, 0}, {0, 0, c}}
}

// Volume returns the (positive) cell volume.
func (l Lattice) Volume() float64 {
	return math.Abs(det3(l))
}

// Cartesian converts integer lattice coordinates to a Cartesian vector.
func (l Lattice) Cartesian(n [3]int) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		f := float64(n[i])
		for c := 0; c < 3; c++ {
			out[c] += f * l[i][c]
		}
	}
	return out
}

// Norm returns the length of lattice point n.
func (l Lattice) Norm(n [3]int) float64 {
	v := l.Cartesian(n)
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Metric returns the metric tensor G = A*A^T.
func (l Lattice) Metric() [3][3]float64 {
	var g [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for c := 0; c < 3; c++ {
				g[i][j] += l[i][c] * l[j][c]
			}
		}
	}
	return g
}

// Inverse returns A^-1 so that fractional = cartesian * A^-1.
func (l Lattice) Inverse() ([3][3]float64, error) {
	d := det3(l)
	if math.Abs(d) < 1e-12 {
		return [3][3]float64{}, ErrSingularLattice
	}

	var inv [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			// Cofactor transpose.
			a1, a2 := (j+1)%3, (j+2)%3
			b1, b2 := (i+1)%3, (i+2)%3
			inv[i][j] = (l[a1][b1]*l[a2][b2] - l[a1][b2]*l[a2][b1]) / d
		}
	}
	return inv, nil
}

// Reciprocal returns the reciprocal lattice vectors b_i as rows, with
// a_i . b_j = 2*pi*delta_ij.
func (l Lattice) Reciprocal() ([3][3]float64, error) {
	inv, err := l.Inverse()
	if err != nil {
		return inv, err
	}

	var b [3][3]float64
	for i := 0; i < 3; i++ {
		for c := 0; c < 3; c++ {
			b[i][c] = 2 * math.Pi * inv[c][i]
		}
	}
	return b, nil
}

// CoordinateBounds returns, for each direction, the largest |n_i| a lattice
// point within radius r can have.
func (l Lattice) CoordinateBounds(r float64) ([3]int, error) {
	inv, err := l.Inverse()
	if err != nil {
		return [3]int{}, err
	}

	var out [3]int
	for i := 0; i < 3; i++ {
		col := math.Sqrt(inv[0][i]*inv[0][i] + inv[1][i]*inv[1][i] + inv[2][i]*inv[2][i])
		out[i] = int(math.Floor(r*col + 1e-9))
	}
	return out, nil
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}
