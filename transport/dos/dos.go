// Package dos accumulates the density of states and its transport-weighted
// variants on a uniform energy grid.
//
// Every (band, point) state of a dense mesh is deposited into the nearest
// grid point. Alongside the plain DOS the accumulator builds the
// velocity-velocity channel v⊗v and, when band curvatures are available,
// the curvature channel used for Hall coefficients. The histograms are then
// broadened with a smearing kernel.
package dos

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-btp/internal/conv"
	"github.com/cwbudde/algo-btp/interp/mesh"
	"github.com/cwbudde/algo-btp/transport/smearing"
)

// Input holds the band data of a dense mesh. Arrays are indexed
// [band][point]. Curvature may be nil.
type Input struct {
	Energies   [][]float64
	Velocities [][][3]float64
	Curvature  [][][3][3]float64
	ERange     [2]float64
	NPts       int
}

// InputFromMesh wraps a reconstructed mesh for accumulation over erange.
func InputFromMesh(m *mesh.Result, erange [2]float64, npts int) Input {
	return Input{
		Energies:   m.Energies,
		Velocities: m.Velocities,
		Curvature:  m.Curvature,
		ERange:     erange,
		NPts:       npts,
	}
}

// Result holds DOS channels sampled on WMesh.
type Result struct {
	WMesh []float64
	DOS   []float64
	VVDOS [][3][3]float64
	// CVDOS is nil when the input carried no curvature.
	CVDOS [][3][3][3]float64
}

// Spacing returns the grid spacing of WMesh.
func (r *Result) Spacing() float64 {
	if len(r.WMesh) < 2 {
		return 0
	}
	return r.WMesh[1] - r.WMesh[0]
}

// Integral returns the rectangle-rule integral of the DOS.
func (r *Result) Integral() float64 {
	var s float64
	for _, v := range r.DOS {
		s += v
	}
	return s * r.Spacing()
}

// Option configures Accumulate.
type Option func(*config)

type config struct {
	kernel    smearing.Kernel
	tau       [][]float64
	rawCounts bool
}

// WithSmearing sets the broadening kernel. The default is smearing.Default().
func WithSmearing(k smearing.Kernel) Option {
	return func(c *config) { c.kernel = k }
}

// WithScattering scales the vv and cv channels of each state by its
// relaxation time tau[band][point].
func WithScattering(tau [][]float64) Option {
	return func(c *config) { c.tau = tau }
}

// WithRawCounts deposits weight 1/de per state instead of 1/(nk·de), so the
// DOS integrates to the number of states in range rather than per point.
func WithRawCounts() Option {
	return func(c *config) { c.rawCounts = true }
}

// voigt lists the unique components of a symmetric 3x3 tensor.
var voigt = [6][2]int{{0, 0}, {1, 1}, {2, 2}, {1, 2}, {0, 2}, {0, 1}}

// levi is the Levi-Civita symbol.
var levi = func() (e [3][3][3]float64) {
	e[0][1][2], e[1][2][0], e[2][0][1] = 1, 1, 1
	e[0][2][1], e[2][1][0], e[1][0][2] = -1, -1, -1
	return e
}()

// Accumulate builds the DOS, vvDOS and (if curvature is present) cvDOS.
func Accumulate(in Input, opts ...Option) (*Result, error) {
	cfg := config{kernel: smearing.Default()}
	for _, o := range opts {
		o(&cfg)
	}
	if err := validate(in, cfg.tau); err != nil {
		return nil, err
	}

	nb, nk := len(in.Energies), len(in.Energies[0])
	emin, emax := in.ERange[0], in.ERange[1]
	de := (emax - emin) / float64(in.NPts-1)
	wmesh := make([]float64, in.NPts)
	for i := range wmesh {
		wmesh[i] = emin + float64(i)*de
	}

	withCV := in.Curvature != nil
	hist := make([]float64, in.NPts)
	vvHist := make([][]float64, len(voigt))
	for i := range vvHist {
		vvHist[i] = make([]float64, in.NPts)
	}
	var cvHist [][]float64
	if withCV {
		cvHist = make([][]float64, 27)
		for i := range cvHist {
			cvHist[i] = make([]float64, in.NPts)
		}
	}

	for b := 0; b < nb; b++ {
		for p := 0; p < nk; p++ {
			idx := int(math.Round((in.Energies[b][p] - emin) / de))
			if idx < 0 || idx >= in.NPts {
				continue
			}
			scale := 1.0
			if cfg.tau != nil {
				scale = cfg.tau[b][p]
			}
			hist[idx]++

			v := in.Velocities[b][p]
			for c, ab := range voigt {
				vvHist[c][idx] += scale * v[ab[0]] * v[ab[1]]
			}
			if withCV {
				depositCurvature(cvHist, idx, scale, v, in.Curvature[b][p])
			}
		}
	}

	weight := 1 / de
	if !cfg.rawCounts {
		weight /= float64(nk)
	}

	kernel, err := cfg.kernel.Discretize(de)
	if err != nil {
		return nil, fmt.Errorf("dos: %w", err)
	}
	smooth := func(h []float64) ([]float64, error) {
		vecmath.ScaleBlock(h, h, weight)
		if len(kernel) == 1 {
			return h, nil
		}
		return conv.Same(h, kernel)
	}

	res := &Result{WMesh: wmesh}
	if res.DOS, err = smooth(hist); err != nil {
		return nil, fmt.Errorf("dos: %w", err)
	}

	res.VVDOS = make([][3][3]float64, in.NPts)
	for c, ab := range voigt {
		s, err := smooth(vvHist[c])
		if err != nil {
			return nil, fmt.Errorf("dos: %w", err)
		}
		for i, x := range s {
			res.VVDOS[i][ab[0]][ab[1]] = x
			res.VVDOS[i][ab[1]][ab[0]] = x
		}
	}

	if withCV {
		res.CVDOS = make([][3][3][3]float64, in.NPts)
		for c := range cvHist {
			s, err := smooth(cvHist[c])
			if err != nil {
				return nil, fmt.Errorf("dos: %w", err)
			}
			a, bb, cc := c/9, (c/3)%3, c%3
			for i, x := range s {
				res.CVDOS[i][a][bb][cc] = x
			}
		}
	}
	return res, nil
}

// depositCurvature adds ε_{cuv} v_a v_u M_{vb} into channel a*9+b*3+c.
func depositCurvature(cv [][]float64, idx int, scale float64, v [3]float64, m [3][3]float64) {
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			for c := 0; c < 3; c++ {
				var s float64
				for u := 0; u < 3; u++ {
					for w := 0; w < 3; w++ {
						if e := levi[c][u][w]; e != 0 {
							s += e * v[u] * m[w][b]
						}
					}
				}
				cv[a*9+b*3+c][idx] += scale * v[a] * s
			}
		}
	}
}

func validate(in Input, tau [][]float64) error {
	if len(in.Energies) == 0 || len(in.Energies[0]) == 0 {
		return ErrEmptyMesh
	}
	lo, hi := in.ERange[0], in.ERange[1]
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || hi <= lo {
		return fmt.Errorf("%w: [%g, %g]", ErrInvalidRange, lo, hi)
	}
	if in.NPts < 2 {
		return fmt.Errorf("%w: %d", ErrTooFewPoints, in.NPts)
	}

	nb, nk := len(in.Energies), len(in.Energies[0])
	if len(in.Velocities) != nb {
		return fmt.Errorf("%w: %d velocity bands for %d energy bands", ErrShape, len(in.Velocities), nb)
	}
	if in.Curvature != nil && len(in.Curvature) != nb {
		return fmt.Errorf("%w: %d curvature bands for %d energy bands", ErrShape, len(in.Curvature), nb)
	}
	if tau != nil && len(tau) != nb {
		return fmt.Errorf("%w: %d lifetime bands for %d energy bands", ErrShape, len(tau), nb)
	}
	for b := 0; b < nb; b++ {
		if len(in.Energies[b]) != nk || len(in.Velocities[b]) != nk {
			return fmt.Errorf("%w: band %d", ErrShape, b)
		}
		if in.Curvature != nil && len(in.Curvature[b]) != nk {
			return fmt.Errorf("%w: curvature band %d", ErrShape, b)
		}
		if tau != nil && len(tau[b]) != nk {
			return fmt.Errorf("%w: lifetime band %d", ErrShape, b)
		}
	}
	return nil
}

// TauFromLinewidths converts linewidths Γ[band][point] into relaxation
// times τ = 1/(2|Γ|).
func TauFromLinewidths(lw [][]float64) ([][]float64, error) {
	tau := make([][]float64, len(lw))
	for b, row := range lw {
		tau[b] = make([]float64, len(row))
		for p, g := range row {
			if g == 0 {
				return nil, &ZeroLinewidthError{Band: b, Point: p}
			}
			tau[b][p] = 1 / (2 * math.Abs(g))
		}
	}
	return tau, nil
}
