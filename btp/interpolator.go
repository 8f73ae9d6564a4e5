package btp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-btp/internal/memo"
	"github.com/cwbudde/algo-btp/internal/pool"
	"github.com/cwbudde/algo-btp/interp/equiv"
	"github.com/cwbudde/algo-btp/interp/fit"
	"github.com/cwbudde/algo-btp/interp/mesh"
	"github.com/cwbudde/algo-btp/transport/dos"
	"github.com/cwbudde/algo-btp/transport/smearing"
)

// Stage names used for logging and Timings.
const (
	StageEquivalences          = "equivalences"
	StageCoefficients          = "coefficients"
	StageLinewidthCoefficients = "linewidth_coefficients"
	StageMesh                  = "mesh"
	StageDOS                   = "dos"
	StageTauDOS                = "tau_dos"
)

// Option configures an Interpolator.
type Option func(*Interpolator)

// WithLogger sets the logger that receives stage progress at debug level.
// The default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(ip *Interpolator) {
		if l != nil {
			ip.log = l
		}
	}
}

// Interpolator owns the interpolation stages of one Input. Every stage is
// computed at most once; its value or error is cached for the lifetime of
// the Interpolator.
type Interpolator struct {
	in     *Input
	cfg    Config
	kernel smearing.Kernel
	digest string
	log    logrus.FieldLogger

	equivs   memo.Slot[equiv.Set]
	fitter   memo.Slot[*fit.Fitter]
	coeffs   memo.Slot[fit.Coefficients]
	lwCoeffs memo.Slot[[]fit.Coefficients]
	mesh     memo.Slot[*mesh.Result]
	results  memo.Slot[*Results]

	mu      sync.Mutex
	timings map[string]time.Duration
}

// New validates cfg against in and returns an Interpolator. Invalid knobs
// are reported as *ConfigurationError.
func New(in *Input, cfg Config, opts ...Option) (*Interpolator, error) {
	if in == nil {
		return nil, configErr("Input", fmt.Errorf("nil input"))
	}
	resolved, kernel, err := cfg.resolve(in.Fermi)
	if err != nil {
		return nil, err
	}
	ip := &Interpolator{
		in:      in,
		cfg:     resolved,
		kernel:  kernel,
		log:     discardLogger(),
		timings: make(map[string]time.Duration),
	}
	for _, o := range opts {
		o(ip)
	}
	ip.digest = digestInput(in, resolved)
	return ip, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Input returns the pipeline input.
func (ip *Interpolator) Input() *Input { return ip.in }

// Config returns the configuration with defaults resolved.
func (ip *Interpolator) Config() Config { return ip.cfg }

// Digest returns the hex BLAKE2b-256 digest of the input and configuration.
func (ip *Interpolator) Digest() string { return ip.digest }

// stage runs compute, logging and timing it under name.
func stage[T any](ip *Interpolator, name string, compute func() (T, error)) (T, error) {
	entry := ip.log.WithField("stage", name)
	entry.Debug("stage started")
	start := time.Now()
	v, err := compute()
	elapsed := time.Since(start)

	ip.mu.Lock()
	ip.timings[name] = elapsed
	ip.mu.Unlock()

	if err != nil {
		entry.WithError(err).WithField("elapsed", elapsed).Debug("stage failed")
		return v, err
	}
	entry.WithField("elapsed", elapsed).Debug("stage finished")
	return v, nil
}

// Equivalences returns the star basis for the input structure.
func (ip *Interpolator) Equivalences() (equiv.Set, error) {
	return ip.equivs.Get(func() (equiv.Set, error) {
		return stage(ip, StageEquivalences, func() (equiv.Set, error) {
			set, err := equiv.Compute(ip.in.Structure, ip.in.NumKPoints(), ip.in.LPRatio)
			if err != nil {
				return nil, configErr(equivField(err), err)
			}
			ip.log.WithFields(logrus.Fields{
				"stage": StageEquivalences,
				"stars": set.Len(),
			}).Debug("star basis built")
			return set, nil
		})
	})
}

func equivField(err error) string {
	switch {
	case errors.Is(err, equiv.ErrInvalidRatio):
		return "LPRatio"
	case errors.Is(err, equiv.ErrNoKPoints):
		return "KPoints"
	default:
		return "Structure"
	}
}

func (ip *Interpolator) getFitter() (*fit.Fitter, error) {
	return ip.fitter.Get(func() (*fit.Fitter, error) {
		set, err := ip.Equivalences()
		if err != nil {
			return nil, err
		}
		return fit.New(set, ip.in.Structure.Lattice, ip.in.KPoints)
	})
}

// Coefficients fits the band energies.
func (ip *Interpolator) Coefficients(ctx context.Context) (fit.Coefficients, error) {
	return ip.coeffs.Get(func() (fit.Coefficients, error) {
		f, err := ip.getFitter()
		if err != nil {
			return nil, err
		}
		return stage(ip, StageCoefficients, func() (fit.Coefficients, error) {
			c, err := f.Fit(ctx, ip.in.Eig, ip.in.Workers)
			if err == nil {
				ip.log.WithFields(logrus.Fields{
					"stage": StageCoefficients,
					"bands": c.NumBands(),
				}).Debug("energies fitted")
			}
			return c, err
		})
	})
}

// LinewidthCoefficients fits the linewidths, one coefficient set per
// temperature. It fails with ErrNoLinewidths when the input has none.
func (ip *Interpolator) LinewidthCoefficients(ctx context.Context) ([]fit.Coefficients, error) {
	return ip.lwCoeffs.Get(func() ([]fit.Coefficients, error) {
		if ip.in.NumTemperatures() == 0 {
			return nil, ErrNoLinewidths
		}
		f, err := ip.getFitter()
		if err != nil {
			return nil, err
		}
		return stage(ip, StageLinewidthCoefficients, func() ([]fit.Coefficients, error) {
			out := make([]fit.Coefficients, ip.in.NumTemperatures())
			for it, lw := range ip.in.Linewidths {
				c, err := f.FitLinewidths(ctx, lw, it, ip.in.Workers)
				if err != nil {
					return nil, err
				}
				out[it] = c
			}
			return out, nil
		})
	})
}

// Mesh reconstructs energies, velocities and curvatures on the dense mesh.
func (ip *Interpolator) Mesh(ctx context.Context) (*mesh.Result, error) {
	return ip.mesh.Get(func() (*mesh.Result, error) {
		set, err := ip.Equivalences()
		if err != nil {
			return nil, err
		}
		c, err := ip.Coefficients(ctx)
		if err != nil {
			return nil, err
		}
		return stage(ip, StageMesh, func() (*mesh.Result, error) {
			return mesh.Reconstruct(ctx, set, c, ip.in.Structure.Lattice, ip.in.Workers)
		})
	})
}

// RMesh returns the dense mesh dimensions.
func (ip *Interpolator) RMesh() ([3]int, error) {
	set, err := ip.Equivalences()
	if err != nil {
		return [3]int{}, err
	}
	return set.Dims(), nil
}

// Run computes the DOS on the dense mesh and, when linewidths are present,
// one relaxation-time weighted DOS per temperature.
func (ip *Interpolator) Run(ctx context.Context) (*Results, error) {
	return ip.results.Get(func() (*Results, error) {
		m, err := ip.Mesh(ctx)
		if err != nil {
			return nil, err
		}
		din := dos.InputFromMesh(m, ip.cfg.ERange, ip.cfg.NPts)

		d, err := stage(ip, StageDOS, func() (*dos.Result, error) {
			return dos.Accumulate(din, dos.WithSmearing(ip.kernel))
		})
		if err != nil {
			return nil, err
		}

		var tau []dos.Result
		if ip.in.NumTemperatures() > 0 {
			if tau, err = ip.tauDOS(ctx, din); err != nil {
				return nil, err
			}
		}
		return newResults(ip, d, tau), nil
	})
}

func (ip *Interpolator) tauDOS(ctx context.Context, din dos.Input) ([]dos.Result, error) {
	set, err := ip.Equivalences()
	if err != nil {
		return nil, err
	}
	lc, err := ip.LinewidthCoefficients(ctx)
	if err != nil {
		return nil, err
	}
	return stage(ip, StageTauDOS, func() ([]dos.Result, error) {
		out := make([]dos.Result, len(lc))
		err := pool.Run(ctx, ip.in.Workers, len(lc), func(ctx context.Context, it int) error {
			lw, err := mesh.Reconstruct(ctx, set, lc[it], ip.in.Structure.Lattice, 1)
			if err != nil {
				return fmt.Errorf("temperature %d: %w", it, err)
			}
			tau, err := dos.TauFromLinewidths(lw.Energies)
			if err != nil {
				return fmt.Errorf("temperature %d: %w", it, err)
			}
			r, err := dos.Accumulate(din, dos.WithSmearing(ip.kernel), dos.WithScattering(tau))
			if err != nil {
				return fmt.Errorf("temperature %d: %w", it, err)
			}
			out[it] = *r
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Timings returns the wall time of every stage computed so far.
func (ip *Interpolator) Timings() map[string]time.Duration {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	out := make(map[string]time.Duration, len(ip.timings))
	for k, v := range ip.timings {
		out[k] = v
	}
	return out
}

// String summarises the input and the stages computed so far.
func (ip *Interpolator) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interpolator: %d k-points, bands [%d, %d), lpratio %d, workers %d\n",
		ip.in.NumKPoints(), ip.in.BandStart, ip.in.BandStop, ip.in.LPRatio, ip.in.Workers)
	fmt.Fprintf(&b, "  temperatures: %d, smearing: %s, npts: %d\n",
		ip.in.NumTemperatures(), ip.kernel, ip.cfg.NPts)
	if ip.equivs.Computed() {
		if set, err := ip.Equivalences(); err == nil {
			fmt.Fprintf(&b, "  equivalences: %d stars, rmesh %v\n", set.Len(), set.Dims())
		}
	}
	if ip.coeffs.Computed() {
		if c, err := ip.Coefficients(context.Background()); err == nil && c.NumBands() > 0 {
			fmt.Fprintf(&b, "  coefficients: %d x %d\n", c.NumBands(), len(c[0]))
		}
	}

	t := ip.Timings()
	names := make([]string, 0, len(t))
	for k := range t {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(&b, "  %-24s %v\n", k, t[k])
	}
	return b.String()
}
