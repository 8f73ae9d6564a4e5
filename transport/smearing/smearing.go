// Package smearing provides the broadening kernels used to turn an energy
// histogram into a smooth density of states.
//
// Kernels are described by strings of the form "gaussian:0.02 eV",
// "lorentzian:1e-3 Ha" or "histogram", matching the dos_method notation of
// common Boltzmann transport codes. Widths are stored in Hartree.
package smearing

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-btp/units"
)

// Type identifies a smearing kernel.
type Type int

const (
	// TypeHistogram applies no broadening.
	TypeHistogram Type = iota
	// TypeGaussian broadens with a normal distribution of standard deviation Width.
	TypeGaussian
	// TypeLorentzian broadens with a Cauchy distribution of half width Width.
	TypeLorentzian
)

var typeNames = map[Type]string{
	TypeHistogram:  "histogram",
	TypeGaussian:   "gaussian",
	TypeLorentzian: "lorentzian",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// DefaultSpec is the kernel used when none is configured.
const DefaultSpec = "gaussian:0.02 eV"

// Kernel is a smearing kernel of a given width (Hartree).
type Kernel struct {
	Type  Type
	Width float64
}

// Default returns the kernel described by DefaultSpec.
func Default() Kernel {
	return Kernel{Type: TypeGaussian, Width: 0.02 / units.HartreeEV}
}

// Parse reads a kernel specification such as "gaussian:0.02 eV".
func Parse(spec string) (Kernel, error) {
	name, width, hasWidth := strings.Cut(strings.TrimSpace(spec), ":")
	name = strings.ToLower(strings.TrimSpace(name))

	var t Type
	found := false
	for typ, n := range typeNames {
		if n == name {
			t, found = typ, true
			break
		}
	}
	if !found {
		return Kernel{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}

	k := Kernel{Type: t}
	if t == TypeHistogram {
		return k, nil
	}
	if !hasWidth {
		return Kernel{}, fmt.Errorf("%w: %q needs a width", ErrBadSpec, spec)
	}
	w, err := units.ParseEnergy(width)
	if err != nil {
		return Kernel{}, fmt.Errorf("%w: %w", ErrBadSpec, err)
	}
	k.Width = w
	if err := validateWidth(t, w); err != nil {
		return Kernel{}, err
	}
	return k, nil
}

// String formats the kernel in the notation accepted by Parse.
func (k Kernel) String() string {
	if k.Type == TypeHistogram {
		return k.Type.String()
	}
	return fmt.Sprintf("%s:%g Ha", k.Type, k.Width)
}

// Option configures kernel discretisation.
type Option func(*config)

type config struct {
	cutoff float64
}

func defaultConfig(t Type) config {
	switch t {
	case TypeLorentzian:
		return config{cutoff: 50}
	default:
		return config{cutoff: 6}
	}
}

// WithCutoff truncates the kernel at n widths from its centre.
func WithCutoff(n float64) Option {
	return func(c *config) {
		if n > 0 {
			c.cutoff = n
		}
	}
}

// Discretize samples the kernel on a grid of spacing de. The result has odd
// length, is centred, and sums to one so that convolving a histogram keeps
// its integral.
func (k Kernel) Discretize(de float64, opts ...Option) ([]float64, error) {
	if err := validateSpacing(de); err != nil {
		return nil, err
	}
	if err := validateWidth(k.Type, k.Width); err != nil {
		return nil, err
	}
	if k.Type == TypeHistogram {
		return []float64{1}, nil
	}

	cfg := defaultConfig(k.Type)
	for _, o := range opts {
		o(&cfg)
	}

	half := int(math.Ceil(cfg.cutoff * k.Width / de))
	w := make([]float64, 2*half+1)
	var sum float64
	for j := -half; j <= half; j++ {
		x := float64(j) * de
		var v float64
		switch k.Type {
		case TypeGaussian:
			v = math.Exp(-x * x / (2 * k.Width * k.Width))
		case TypeLorentzian:
			v = k.Width / (math.Pi * (x*x + k.Width*k.Width))
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnknownType, int(k.Type))
		}
		w[j+half] = v
		sum += v
	}
	for i := range w {
		w[i] /= sum
	}
	return w, nil
}
