package fermi

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// charge is the electron charge in atomic units.
const charge = -1.0

// Onsager holds the transport tensors indexed [mu][T]. Points listed in
// Singular have Defined == false and NaN in Seebeck, Kappa and Hall.
type Onsager struct {
	MuMesh  []float64
	TMesh   []float64
	Sigma   [][][3][3]float64
	Seebeck [][][3][3]float64
	Kappa   [][][3][3]float64
	// Hall is nil when the integrals carry no Lm11.
	Hall     [][][3][3][3]float64
	Defined  [][]bool
	Singular []*SingularTransportError
}

// Coefficients derives σ, S, κ and the Hall tensor from the Fermi
// integrals:
//
//	σ = L0/V
//	S = L0⁻¹ L1 / (qT)
//	κ = (L2 − L1 L0⁻¹ L1) / (TV)
//	R_H[i][j][k] = −Σ (σ⁻¹)_ia σ_abk (σ⁻¹)_bj,  σ_abk = Lm11/V
func Coefficients(fi *Integrals, mumesh, tmesh []float64, volume float64, opts ...Option) (*Onsager, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	nmu, nt := len(mumesh), len(tmesh)
	if len(fi.L0) != nmu || len(fi.L1) != nmu || len(fi.L2) != nmu {
		return nil, fmt.Errorf("%w: %d chemical potentials for %d integral rows", ErrShape, nmu, len(fi.L0))
	}
	if fi.Lm11 != nil && len(fi.Lm11) != nmu {
		return nil, fmt.Errorf("%w: Lm11 rows", ErrShape)
	}
	if volume <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrNonPositiveVolume, volume)
	}
	for i, t := range tmesh {
		if !(t > 0) {
			return nil, fmt.Errorf("%w: T[%d] = %g", ErrNonPositiveTemperature, i, t)
		}
	}

	on := &Onsager{
		MuMesh:  append([]float64(nil), mumesh...),
		TMesh:   append([]float64(nil), tmesh...),
		Sigma:   make([][][3][3]float64, nmu),
		Seebeck: make([][][3][3]float64, nmu),
		Kappa:   make([][][3][3]float64, nmu),
		Defined: make([][]bool, nmu),
	}
	withHall := fi.Lm11 != nil
	if withHall {
		on.Hall = make([][][3][3][3]float64, nmu)
	}

	for imu := 0; imu < nmu; imu++ {
		if len(fi.L0[imu]) != nt || len(fi.L1[imu]) != nt || len(fi.L2[imu]) != nt {
			return nil, fmt.Errorf("%w: row %d has %d temperatures, want %d", ErrShape, imu, len(fi.L0[imu]), nt)
		}
		on.Sigma[imu] = make([][3][3]float64, nt)
		on.Seebeck[imu] = make([][3][3]float64, nt)
		on.Kappa[imu] = make([][3][3]float64, nt)
		on.Defined[imu] = make([]bool, nt)
		if withHall {
			on.Hall[imu] = make([][3][3][3]float64, nt)
		}

		for it, t := range tmesh {
			l0 := fi.L0[imu][it]
			on.Sigma[imu][it] = scale(l0, 1/volume)

			inv, cond, ok := invert(l0, cfg.maxCond)
			if !ok {
				serr := &SingularTransportError{Mu: mumesh[imu], T: t, IMu: imu, IT: it, Cond: cond}
				if cfg.policy == Abort {
					return nil, serr
				}
				on.Singular = append(on.Singular, serr)
				on.Seebeck[imu][it] = nanTensor()
				on.Kappa[imu][it] = nanTensor()
				if withHall {
					on.Hall[imu][it] = nanTensor3()
				}
				continue
			}

			l1, l2 := fi.L1[imu][it], fi.L2[imu][it]
			x := mul(inv, l1)
			on.Seebeck[imu][it] = scale(x, 1/(charge*t))
			on.Kappa[imu][it] = scale(sub(l2, mul(l1, x)), 1/(t*volume))
			if withHall {
				on.Hall[imu][it] = hall(scale(inv, volume), fi.Lm11[imu][it], volume)
			}
			on.Defined[imu][it] = true
		}
	}
	return on, nil
}

// invert returns the inverse of m through an LU factorisation, or false if
// the condition number exceeds maxCond.
func invert(m [3][3]float64, maxCond float64) ([3][3]float64, float64, bool) {
	a := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a.Set(i, j, m[i][j])
		}
	}
	var lu mat.LU
	lu.Factorize(a)
	cond := lu.Cond()
	if math.IsInf(cond, 0) || math.IsNaN(cond) || cond > maxCond {
		return [3][3]float64{}, cond, false
	}
	var inv mat.Dense
	if err := lu.SolveTo(&inv, false, eye()); err != nil {
		return [3][3]float64{}, cond, false
	}
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = inv.At(i, j)
		}
	}
	return out, cond, true
}

func hall(sinv [3][3]float64, lm [3][3][3]float64, volume float64) [3][3][3]float64 {
	var r [3][3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				var s float64
				for a := 0; a < 3; a++ {
					for b := 0; b < 3; b++ {
						s += sinv[i][a] * lm[a][b][k] / volume * sinv[b][j]
					}
				}
				r[i][j][k] = -s
			}
		}
	}
	return r
}

func eye() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

func mul(a, b [3][3]float64) [3][3]float64 {
	var c [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				c[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return c
}

func sub(a, b [3][3]float64) [3][3]float64 {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a[i][j] -= b[i][j]
		}
	}
	return a
}

func scale(a [3][3]float64, s float64) [3][3]float64 {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a[i][j] *= s
		}
	}
	return a
}

func nanTensor() (t [3][3]float64) {
	for i := range t {
		for j := range t[i] {
			t[i][j] = math.NaN()
		}
	}
	return t
}

func nanTensor3() (t [3][3][3]float64) {
	for i := range t {
		for j := range t[i] {
			for k := range t[i][j] {
				t[i][j][k] = math.NaN()
			}
		}
	}
	return t
}
