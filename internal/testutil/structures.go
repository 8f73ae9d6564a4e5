package testutil

import (
	"math"

	"github.com/cwbudde/algo-btp/lattice"
)

// CubicStructure returns a simple cubic cell of edge a carrying the
// generators of the full cubic point group.
func CubicStructure(a float64) lattice.Structure {
	return lattice.Structure{
		Lattice: lattice.Cubic(a),
		Atoms:   []lattice.Atom{{Species: "X"}},
		Rotations: []lattice.Rotation{
			{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
			{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
			lattice.Inversion,
		},
	}
}

// ChainStructure returns a one-dimensional chain with period a along x,
// padded by vacuum of width pad in y and z. Only x -> -x is a symmetry
// that matters for the chain.
func ChainStructure(a, pad float64) lattice.Structure {
	return lattice.Structure{
		Lattice:   lattice.Orthorhombic(a, pad, pad),
		Atoms:     []lattice.Atom{{Species: "X"}},
		Rotations: []lattice.Rotation{lattice.Identity},
	}
}

// TightBindingSC is the nearest-neighbour tight-binding band of a simple
// cubic lattice at fractional k, with on-site e0 and hopping t.
func TightBindingSC(k [3]float64, e0, t float64) float64 {
	return e0 - 2*t*(math.Cos(2*math.Pi*k[0])+math.Cos(2*math.Pi*k[1])+math.Cos(2*math.Pi*k[2]))
}

// IrreducibleCubicKPoints returns symmetry-inequivalent fractional k-points
// of the simple cubic Brillouin zone on an n x n x n grid (n even).
func IrreducibleCubicKPoints(n int) [][3]float64 {
	var out [][3]float64
	half := n / 2
	for i := 0; i <= half; i++ {
		for j := 0; j <= i; j++ {
			for k := 0; k <= j; k++ {
				out = append(out, [3]float64{
					float64(i) / float64(n),
					float64(j) / float64(n),
					float64(k) / float64(n),
				})
			}
		}
	}
	return out
}
