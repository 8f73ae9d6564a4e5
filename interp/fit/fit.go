// Package fit computes star-function Fourier coefficients that interpolate
// band-like quantities sampled at a set of k-points.
//
// The expansion is E(k) = sum_m c_m S_m(k) with star functions
// S_m(k) = (1/n_m) sum_{R in star m} cos(2 pi k.R). With more stars than
// k-points the coefficients are chosen to pass exactly through the samples
// while minimising the roughness functional
//
//	rho(R) = (1 - C1 (R/Rmin)^2)^2 + C2 (R/Rmin)^6
//
// which leads to a small symmetric system of size nk-1 shared by every band.
package fit

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-btp/internal/pool"
	"github.com/cwbudde/algo-btp/interp/equiv"
	"github.com/cwbudde/algo-btp/lattice"
)

const (
	roughnessC1 = 0.75
	roughnessC2 = 0.75

	// maxCondition rejects systems whose solution would lose most digits.
	maxCondition = 1e13
	// residualTol is relative to the largest input magnitude.
	residualTol = 1e-6
)

// Coefficients holds one coefficient per star for every band: [band][star].
type Coefficients [][]float64

// NumBands returns the number of fitted bands.
func (c Coefficients) NumBands() int { return len(c) }

// Fitter holds the factorised interpolation system for one star basis and
// one k-point set. It is safe for concurrent use once created.
type Fitter struct {
	set    equiv.Set
	nk     int
	phase0 [][]float64 // [k][star] star-function values
	rho    []float64
	x      *mat.Dense // (nk-1) x (nstar-1), P scaled by 1/sqrt(rho)
	chol   mat.Cholesky
}

// New builds and factorises the interpolation system.
func New(set equiv.Set, lat lattice.Lattice, kpoints [][3]float64) (*Fitter, error) {
	nk, ns := len(kpoints), set.Len()
	if nk == 0 || ns == 0 {
		return nil, &NumericalFitError{Band: -1, Temperature: -1, Err: fmt.Errorf("%w: %d k-points, %d stars", ErrShape, nk, ns)}
	}
	if ns < nk {
		return nil, &NumericalFitError{Band: -1, Temperature: -1, Err: fmt.Errorf("%w: %d stars, %d k-points", ErrTooFewStars, ns, nk)}
	}

	f := &Fitter{set: set, nk: nk}
	f.phase0 = make([][]float64, nk)
	for k, kp := range kpoints {
		f.phase0[k] = StarValues(set, kp)
	}
	if nk == 1 {
		return f, nil
	}

	f.rho = roughness(set.Radii(lat))

	last := f.phase0[nk-1]
	f.x = mat.NewDense(nk-1, ns-1, nil)
	for k := 0; k < nk-1; k++ {
		for m := 1; m < ns; m++ {
			f.x.Set(k, m-1, (f.phase0[k][m]-last[m])/math.Sqrt(f.rho[m]))
		}
	}

	var h mat.SymDense
	h.SymOuterK(1, f.x)
	if ok := f.chol.Factorize(&h); !ok {
		return nil, &NumericalFitError{Band: -1, Temperature: -1, Err: fmt.Errorf("%w: not positive definite (duplicate or symmetry-equivalent k-points?)", ErrIllConditioned)}
	}
	if c := f.chol.Cond(); c > maxCondition || math.IsNaN(c) {
		return nil, &NumericalFitError{Band: -1, Temperature: -1, Err: fmt.Errorf("%w: condition number %.3g", ErrIllConditioned, c)}
	}
	return f, nil
}

// NumKPoints returns the number of k-points the system was built for.
func (f *Fitter) NumKPoints() int { return f.nk }

// Fit fits every band of values ([k][band]) on up to workers goroutines.
func (f *Fitter) Fit(ctx context.Context, values [][]float64, workers int) (Coefficients, error) {
	return f.fit(ctx, values, -1, workers)
}

// FitLinewidths fits the linewidths of temperature index itemp. Errors carry
// the temperature index.
func (f *Fitter) FitLinewidths(ctx context.Context, values [][]float64, itemp, workers int) (Coefficients, error) {
	return f.fit(ctx, values, itemp, workers)
}

func (f *Fitter) fit(ctx context.Context, values [][]float64, itemp, workers int) (Coefficients, error) {
	if len(values) != f.nk {
		return nil, &NumericalFitError{Band: -1, Temperature: itemp, Err: fmt.Errorf("%w: %d rows for %d k-points", ErrShape, len(values), f.nk)}
	}
	nb := len(values[0])
	for k, row := range values {
		if len(row) != nb {
			return nil, &NumericalFitError{Band: -1, Temperature: itemp, Err: fmt.Errorf("%w: k-point %d has %d bands, want %d", ErrShape, k, len(row), nb)}
		}
	}

	coeffs := make(Coefficients, nb)
	err := pool.Run(ctx, workers, nb, func(_ context.Context, b int) error {
		c, err := f.fitBand(values, b)
		if err != nil {
			return &NumericalFitError{Band: b, Temperature: itemp, Err: err}
		}
		coeffs[b] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return coeffs, nil
}

func (f *Fitter) fitBand(values [][]float64, b int) ([]float64, error) {
	ns := f.set.Len()
	c := make([]float64, ns)
	last := f.nk - 1
	eLast := values[last][b]

	if f.nk > 1 {
		d := mat.NewVecDense(f.nk-1, nil)
		for k := 0; k < f.nk-1; k++ {
			d.SetVec(k, values[k][b]-eLast)
		}

		var lambda mat.VecDense
		if err := f.chol.SolveVecTo(&lambda, d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIllConditioned, err)
		}

		var y mat.VecDense
		y.MulVec(f.x.T(), &lambda)
		for m := 1; m < ns; m++ {
			c[m] = y.AtVec(m-1) / math.Sqrt(f.rho[m])
		}
	}

	c[0] = eLast
	for m := 1; m < ns; m++ {
		c[0] -= c[m] * f.phase0[last][m]
	}

	for m, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: star %d", ErrNonFinite, m)
		}
	}
	return c, f.checkResidual(values, b, c)
}

// checkResidual verifies the interpolation property at the input k-points.
func (f *Fitter) checkResidual(values [][]float64, b int, c []float64) error {
	scale := 1.0
	for k := range values {
		scale = math.Max(scale, math.Abs(values[k][b]))
	}
	for k, row := range f.phase0 {
		var e float64
		for m, s := range row {
			e += c[m] * s
		}
		if diff := math.Abs(e - values[k][b]); diff > residualTol*scale {
			return fmt.Errorf("%w: k-point %d off by %.3g", ErrResidual, k, diff)
		}
	}
	return nil
}

// StarValues returns S_m(k) for every star of set at fractional k.
func StarValues(set equiv.Set, k [3]float64) []float64 {
	out := make([]float64, set.Len())
	for m, st := range set {
		var s float64
		for _, n := range st {
			s += math.Cos(2 * math.Pi * (k[0]*float64(n[0]) + k[1]*float64(n[1]) + k[2]*float64(n[2])))
		}
		out[m] = s / float64(len(st))
	}
	return out
}

// roughness evaluates rho for every star radius. Entry 0 (the origin) is
// never used.
func roughness(radii []float64) []float64 {
	rho := make([]float64, len(radii))
	if len(radii) < 2 {
		return rho
	}
	rmin := radii[1]
	for m := 1; m < len(radii); m++ {
		x2 := (radii[m] / rmin) * (radii[m] / rmin)
		a := 1 - roughnessC1*x2
		rho[m] = a*a + roughnessC2*x2*x2*x2
	}
	return rho
}
