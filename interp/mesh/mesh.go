// Package mesh reconstructs interpolated bands, group velocities and band
// curvature from star-function coefficients.
//
// Reconstruct evaluates the series on the regular mesh implied by the star
// basis using separable FFTs; Evaluate sums it directly at arbitrary
// k-points. Derivatives are taken analytically with respect to Cartesian k
// (1/bohr), so velocities are dE/dk and curvature is d2E/dk_a dk_b.
package mesh

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-btp/internal/pool"
	"github.com/cwbudde/algo-btp/interp/equiv"
	"github.com/cwbudde/algo-btp/interp/fit"
	"github.com/cwbudde/algo-btp/lattice"
)

// ErrCoefficientCount is returned when a band's coefficient vector does not
// match the star basis.
var ErrCoefficientCount = errors.New("mesh: coefficient count does not match star count")

// number of Fourier channels per band: E, 3 velocity, 6 curvature components.
const numChannels = 10

// curvature channel layout (upper triangle, row-major).
var curvaturePairs = [6][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 1}, {1, 2}, {2, 2}}

// Result holds per-band values on a set of k-points. For a dense mesh the
// points are j/Dims in row-major order and KPoints is nil.
type Result struct {
	Dims       [3]int
	KPoints    [][3]float64
	Energies   [][]float64       // [band][point]
	Velocities [][][3]float64    // [band][point]
	Curvature  [][][3][3]float64 // [band][point]
}

// NumBands returns the number of bands.
func (r *Result) NumBands() int { return len(r.Energies) }

// NumPoints returns the number of k-points per band.
func (r *Result) NumPoints() int {
	if r.KPoints != nil {
		return len(r.KPoints)
	}
	return r.Dims[0] * r.Dims[1] * r.Dims[2]
}

// KPoint returns the fractional coordinate of point i.
func (r *Result) KPoint(i int) [3]float64 {
	if r.KPoints != nil {
		return r.KPoints[i]
	}
	d1, d2 := r.Dims[1], r.Dims[2]
	j0, j1, j2 := i/(d1*d2), (i/d2)%d1, i%d2
	return [3]float64{
		float64(j0) / float64(r.Dims[0]),
		float64(j1) / float64(d1),
		float64(j2) / float64(d2),
	}
}

// Reconstruct evaluates every band on the dense mesh implied by set, one
// band per work unit.
func Reconstruct(ctx context.Context, set equiv.Set, coeffs fit.Coefficients, lat lattice.Lattice, workers int) (*Result, error) {
	if err := checkCoefficients(set, coeffs); err != nil {
		return nil, err
	}

	dims := set.Dims()
	npts := dims[0] * dims[1] * dims[2]
	nb := coeffs.NumBands()
	res := &Result{
		Dims:       dims,
		Energies:   make([][]float64, nb),
		Velocities: make([][][3]float64, nb),
		Curvature:  make([][][3][3]float64, nb),
	}

	terms := expand(set, lat)
	err := pool.Run(ctx, workers, nb, func(_ context.Context, b int) error {
		e, v, c, err := reconstructBand(dims, npts, terms, coeffs[b])
		if err != nil {
			return fmt.Errorf("mesh: band %d: %w", b, err)
		}
		res.Energies[b], res.Velocities[b], res.Curvature[b] = e, v, c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// term is one lattice point of the expansion with its star index.
type term struct {
	star   int
	weight float64 // 1/n_m
	n      [3]int
	cart   [3]float64
}

func expand(set equiv.Set, lat lattice.Lattice) []term {
	terms := make([]term, 0, set.NumPoints())
	for m, st := range set {
		w := 1 / float64(len(st))
		for _, n := range st {
			terms = append(terms, term{star: m, weight: w, n: n, cart: lat.Cartesian(n)})
		}
	}
	return terms
}

func reconstructBand(dims [3]int, npts int, terms []term, c []float64) ([]float64, [][3]float64, [][3][3]float64, error) {
	grids := make([][]complex128, numChannels)
	for ch := range grids {
		grids[ch] = make([]complex128, npts)
	}

	for _, t := range terms {
		a := c[t.star] * t.weight
		if a == 0 {
			continue
		}
		idx := gridIndex(dims, t.n)
		grids[0][idx] += complex(a, 0)
		for al := 0; al < 3; al++ {
			grids[1+al][idx] += complex(0, a*t.cart[al])
		}
		for p, ab := range curvaturePairs {
			grids[4+p][idx] += complex(-a*t.cart[ab[0]]*t.cart[ab[1]], 0)
		}
	}

	tr := newTransform3(dims)
	for _, g := range grids {
		if err := tr.apply(g); err != nil {
			return nil, nil, nil, err
		}
	}

	e := make([]float64, npts)
	v := make([][3]float64, npts)
	cv := make([][3][3]float64, npts)
	for i := 0; i < npts; i++ {
		e[i] = real(grids[0][i])
		for al := 0; al < 3; al++ {
			v[i][al] = real(grids[1+al][i])
		}
		for p, ab := range curvaturePairs {
			x := real(grids[4+p][i])
			cv[i][ab[0]][ab[1]] = x
			cv[i][ab[1]][ab[0]] = x
		}
	}
	return e, v, cv, nil
}

func gridIndex(dims [3]int, n [3]int) int {
	var g [3]int
	for i := 0; i < 3; i++ {
		g[i] = ((n[i] % dims[i]) + dims[i]) % dims[i]
	}
	return (g[0]*dims[1]+g[1])*dims[2] + g[2]
}

// Evaluate sums the expansion directly at arbitrary fractional k-points.
func Evaluate(set equiv.Set, coeffs fit.Coefficients, lat lattice.Lattice, kpoints [][3]float64) (*Result, error) {
	if err := checkCoefficients(set, coeffs); err != nil {
		return nil, err
	}

	nb, nk := coeffs.NumBands(), len(kpoints)
	res := &Result{
		KPoints:    kpoints,
		Energies:   make([][]float64, nb),
		Velocities: make([][][3]float64, nb),
		Curvature:  make([][][3][3]float64, nb),
	}
	for b := range res.Energies {
		res.Energies[b] = make([]float64, nk)
		res.Velocities[b] = make([][3]float64, nk)
		res.Curvature[b] = make([][3][3]float64, nk)
	}

	terms := expand(set, lat)
	for k, kp := range kpoints {
		for _, t := range terms {
			theta := 2 * math.Pi * (kp[0]*float64(t.n[0]) + kp[1]*float64(t.n[1]) + kp[2]*float64(t.n[2]))
			s, cs := math.Sincos(theta)
			for b := 0; b < nb; b++ {
				a := coeffs[b][t.star] * t.weight
				if a == 0 {
					continue
				}
				res.Energies[b][k] += a * cs
				for al := 0; al < 3; al++ {
					res.Velocities[b][k][al] -= a * t.cart[al] * s
					for be := 0; be < 3; be++ {
						res.Curvature[b][k][al][be] -= a * t.cart[al] * t.cart[be] * cs
					}
				}
			}
		}
	}
	return res, nil
}

func checkCoefficients(set equiv.Set, coeffs fit.Coefficients) error {
	for b, c := range coeffs {
		if len(c) != set.Len() {
			return fmt.Errorf("%w: band %d has %d, want %d", ErrCoefficientCount, b, len(c), set.Len())
		}
	}
	return nil
}
