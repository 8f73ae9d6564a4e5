// Package fermi integrates transport-weighted densities of states against
// the Fermi window and derives the Onsager transport coefficients.
//
// All quantities are in Hartree atomic units with temperatures in kelvin.
// The moments are
//
//	L_n(μ,T) = w Σ_E vvdos(E) (E−μ)^n (−∂f/∂E) dE
//
// where w is the spin degeneracy weight (2 by default).
package fermi

import (
	"context"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-btp/internal/pool"
	"github.com/cwbudde/algo-btp/units"
)

// windowCutoff is the |E−μ|/kT beyond which the Fermi window is zero.
const windowCutoff = 40

// Input holds a DOS result and the (μ, T) grid to evaluate on.
type Input struct {
	WMesh []float64
	DOS   []float64
	VVDOS [][3][3]float64
	// CVDOS is optional; without it Lm11 is not computed.
	CVDOS  [][3][3][3]float64
	MuMesh []float64
	TMesh  []float64
}

// Integrals holds the Fermi moments indexed [mu][T].
type Integrals struct {
	MuMesh []float64
	TMesh  []float64
	N      [][]float64
	L0     [][][3][3]float64
	L1     [][][3][3]float64
	L2     [][][3][3]float64
	Lm11   [][][3][3][3]float64
}

// SingularPolicy selects what Coefficients does at a singular point.
type SingularPolicy int

const (
	// Skip records the point as undefined and continues.
	Skip SingularPolicy = iota
	// Abort returns the first SingularTransportError.
	Abort
)

func (p SingularPolicy) String() string {
	switch p {
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("SingularPolicy(%d)", int(p))
	}
}

// Option configures Compute and Coefficients.
type Option func(*config)

type config struct {
	dosWeight float64
	workers   int
	policy    SingularPolicy
	maxCond   float64
}

func defaultConfig() config {
	return config{dosWeight: 2, workers: 1, policy: Skip, maxCond: 1e12}
}

// WithDOSWeight sets the degeneracy weight applied to every moment.
func WithDOSWeight(w float64) Option {
	return func(c *config) { c.dosWeight = w }
}

// WithWorkers sets how many temperatures are integrated concurrently.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithSingularPolicy selects the behaviour at singular (μ, T) points.
func WithSingularPolicy(p SingularPolicy) Option {
	return func(c *config) { c.policy = p }
}

// WithMaxCondition sets the condition number above which σ counts as
// singular.
func WithMaxCondition(c float64) Option {
	return func(cfg *config) {
		if c > 0 {
			cfg.maxCond = c
		}
	}
}

// Window returns −∂f/∂E at energy e for chemical potential mu and thermal
// energy kT > 0.
func Window(e, mu, kT float64) float64 {
	x := (e - mu) / kT
	if math.Abs(x) > windowCutoff {
		return 0
	}
	c := math.Cosh(x / 2)
	return 1 / (4 * kT * c * c)
}

// Occupation returns the Fermi-Dirac occupation at energy e. For kT == 0 it
// is the step function with value 1/2 at e == mu.
func Occupation(e, mu, kT float64) float64 {
	if kT == 0 {
		switch {
		case e < mu:
			return 1
		case e > mu:
			return 0
		default:
			return 0.5
		}
	}
	x := (e - mu) / kT
	if x > 0 {
		ex := math.Exp(-x)
		return ex / (1 + ex)
	}
	return 1 / (1 + math.Exp(x))
}

// Compute evaluates the Fermi integrals at every (μ, T). Temperatures are
// integrated concurrently; T == 0 uses the zero-temperature limit in which
// the window becomes a delta function at μ.
func Compute(ctx context.Context, in Input, opts ...Option) (*Integrals, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	nmu, nt := len(in.MuMesh), len(in.TMesh)
	fi := &Integrals{
		MuMesh: append([]float64(nil), in.MuMesh...),
		TMesh:  append([]float64(nil), in.TMesh...),
		N:      make([][]float64, nmu),
		L0:     make([][][3][3]float64, nmu),
		L1:     make([][][3][3]float64, nmu),
		L2:     make([][][3][3]float64, nmu),
	}
	withCV := in.CVDOS != nil
	if withCV {
		fi.Lm11 = make([][][3][3][3]float64, nmu)
	}
	for i := 0; i < nmu; i++ {
		fi.N[i] = make([]float64, nt)
		fi.L0[i] = make([][3][3]float64, nt)
		fi.L1[i] = make([][3][3]float64, nt)
		fi.L2[i] = make([][3][3]float64, nt)
		if withCV {
			fi.Lm11[i] = make([][3][3][3]float64, nt)
		}
	}

	err := pool.Run(ctx, cfg.workers, nt, func(ctx context.Context, it int) error {
		kT := units.BoltzmannHa * in.TMesh[it]
		for imu, mu := range in.MuMesh {
			if err := ctx.Err(); err != nil {
				return err
			}
			if kT == 0 {
				integrateZero(fi, in, cfg.dosWeight, imu, it, mu)
			} else {
				integrate(fi, in, cfg.dosWeight, imu, it, mu, kT)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fi, nil
}

func integrate(fi *Integrals, in Input, weight float64, imu, it int, mu, kT float64) {
	n := len(in.WMesh)
	de := in.WMesh[1] - in.WMesh[0]

	w := make([]float64, n)
	d := make([]float64, n)
	var nsum float64
	for i, e := range in.WMesh {
		w[i] = Window(e, mu, kT)
		d[i] = e - mu
		nsum += in.DOS[i] * Occupation(e, mu, kT)
	}
	vecmath.ScaleBlock(w, w, weight*de)
	w1 := make([]float64, n)
	w2 := make([]float64, n)
	vecmath.MulBlock(w1, w, d)
	vecmath.MulBlock(w2, w1, d)

	fi.N[imu][it] = -weight * nsum * de

	var l0, l1, l2 [3][3]float64
	var lm [3][3][3]float64
	for i := 0; i < n; i++ {
		if w[i] == 0 {
			continue
		}
		vv := &in.VVDOS[i]
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				l0[a][b] += vv[a][b] * w[i]
				l1[a][b] += vv[a][b] * w1[i]
				l2[a][b] += vv[a][b] * w2[i]
			}
		}
		if in.CVDOS != nil {
			cv := &in.CVDOS[i]
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					for c := 0; c < 3; c++ {
						lm[a][b][c] += cv[a][b][c] * w[i]
					}
				}
			}
		}
	}
	fi.L0[imu][it], fi.L1[imu][it], fi.L2[imu][it] = l0, l1, l2
	if in.CVDOS != nil {
		fi.Lm11[imu][it] = lm
	}
}

// integrateZero evaluates the T → 0 limit: L0 and Lm11 sample the DOS
// channels at μ, the odd and even higher moments vanish, and N counts
// the states below μ.
func integrateZero(fi *Integrals, in Input, weight float64, imu, it int, mu float64) {
	de := in.WMesh[1] - in.WMesh[0]
	var nsum float64
	for i, e := range in.WMesh {
		nsum += in.DOS[i] * Occupation(e, mu, 0)
	}
	fi.N[imu][it] = -weight * nsum * de

	lo, t, ok := bracket(in.WMesh, mu)
	if !ok {
		return
	}
	var l0 [3][3]float64
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			l0[a][b] = weight * lerp(in.VVDOS[lo][a][b], in.VVDOS[lo+1][a][b], t)
		}
	}
	fi.L0[imu][it] = l0
	if in.CVDOS != nil {
		var lm [3][3][3]float64
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				for c := 0; c < 3; c++ {
					lm[a][b][c] = weight * lerp(in.CVDOS[lo][a][b][c], in.CVDOS[lo+1][a][b][c], t)
				}
			}
		}
		fi.Lm11[imu][it] = lm
	}
}

// bracket locates x in a uniform grid, returning the left index and the
// fractional offset towards the next point.
func bracket(grid []float64, x float64) (int, float64, bool) {
	n := len(grid)
	if x < grid[0] || x > grid[n-1] {
		return 0, 0, false
	}
	de := grid[1] - grid[0]
	lo := int((x - grid[0]) / de)
	if lo >= n-1 {
		lo = n - 2
	}
	return lo, (x - grid[lo]) / de, true
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func validate(in Input) error {
	n := len(in.WMesh)
	if n < 2 {
		return fmt.Errorf("%w: %d", ErrTooFewPoints, n)
	}
	if len(in.DOS) != n || len(in.VVDOS) != n {
		return fmt.Errorf("%w: grid %d, dos %d, vvdos %d", ErrShape, n, len(in.DOS), len(in.VVDOS))
	}
	if in.CVDOS != nil && len(in.CVDOS) != n {
		return fmt.Errorf("%w: grid %d, cvdos %d", ErrShape, n, len(in.CVDOS))
	}
	for i, t := range in.TMesh {
		if t < 0 || math.IsNaN(t) {
			return fmt.Errorf("%w: T[%d] = %g", ErrNegativeTemperature, i, t)
		}
	}
	return nil
}
