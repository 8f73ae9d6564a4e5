package btp

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-btp/interp/equiv"
	"github.com/cwbudde/algo-btp/lattice"
)

// Fields carries the raw data extracted from an electronic-structure
// calculation. Eig is indexed [k][band]; Linewidths, when present, are
// indexed [temperature][k][band] and pair with TMesh.
type Fields struct {
	Fermi      float64           `yaml:"fermi"`
	Structure  lattice.Structure `yaml:"structure"`
	NElect     float64           `yaml:"nelect"`
	KPoints    [][3]float64      `yaml:"kpoints"`
	Eig        [][]float64       `yaml:"eig"`
	Volume     float64           `yaml:"volume,omitempty"`
	Linewidths [][][]float64     `yaml:"linewidths,omitempty"`
	TMesh      []float64         `yaml:"tmesh,omitempty"`
	MuMesh     []float64         `yaml:"mumesh,omitempty"`
}

// Input is the validated, immutable pipeline input. The band window has
// already been applied to Eig and Linewidths and the temperature subset to
// Linewidths and TMesh.
type Input struct {
	Fermi      float64
	Structure  lattice.Structure
	NElect     float64
	KPoints    [][3]float64
	Eig        [][]float64
	Volume     float64
	Linewidths [][][]float64
	TMesh      []float64
	MuMesh     []float64
	BandStart  int
	BandStop   int
	LPRatio    int
	Workers    int
}

// NumKPoints returns the number of irreducible k-points.
func (in *Input) NumKPoints() int { return len(in.KPoints) }

// NumBands returns the number of bands inside the window.
func (in *Input) NumBands() int { return in.BandStop - in.BandStart }

// NumTemperatures returns the number of linewidth temperatures.
func (in *Input) NumTemperatures() int { return len(in.Linewidths) }

// DefaultTemperature is used for TMesh when neither linewidths nor an
// explicit mesh are given.
const DefaultTemperature = 300.0

// InputOption configures NewInput and FromProvider.
type InputOption func(*inputConfig)

type inputConfig struct {
	bandStart, bandStop int
	lpratio             int
	workers             int
	temperatures        []int
}

func defaultInputConfig() inputConfig {
	return inputConfig{bandStart: 0, bandStop: -1, lpratio: 1, workers: 1}
}

// WithBandWindow keeps bands [start, stop). The default is every band.
func WithBandWindow(start, stop int) InputOption {
	return func(c *inputConfig) {
		c.bandStart, c.bandStop = start, stop
	}
}

// WithLPRatio sets the ratio of star functions to k-points. Default 1.
func WithLPRatio(r int) InputOption {
	return func(c *inputConfig) { c.lpratio = r }
}

// WithWorkers sets the worker pool size used by every parallel stage.
func WithWorkers(n int) InputOption {
	return func(c *inputConfig) { c.workers = n }
}

// WithTemperatures keeps only the listed temperature indices, in the given
// order, from the linewidths and TMesh (TMesh alone when there are no
// linewidths). The default keeps all of them.
func WithTemperatures(idx ...int) InputOption {
	return func(c *inputConfig) { c.temperatures = append([]int(nil), idx...) }
}

// NewInput validates f and applies the band window and temperature subset.
// Every failure is a *ConfigurationError.
func NewInput(f Fields, opts ...InputOption) (*Input, error) {
	cfg := defaultInputConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.lpratio < 1 {
		return nil, configErr("LPRatio", fmt.Errorf("%w: %d", equiv.ErrInvalidRatio, cfg.lpratio))
	}
	if cfg.workers < 1 {
		return nil, configErr("Workers", fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.workers))
	}
	if _, err := f.Structure.PointGroup(true); err != nil {
		return nil, configErr("Structure.Rotations", fmt.Errorf("%w: %w", equiv.ErrNoSymmetry, err))
	}

	nk := len(f.KPoints)
	if nk == 0 {
		return nil, configErr("KPoints", equiv.ErrNoKPoints)
	}
	if len(f.Eig) != nk {
		return nil, configErr("Eig", fmt.Errorf("%w: %d eigenvalue rows for %d k-points", ErrShape, len(f.Eig), nk))
	}
	nb := len(f.Eig[0])
	if nb == 0 {
		return nil, configErr("Eig", ErrNoEigenvalues)
	}
	for k, row := range f.Eig {
		if len(row) != nb {
			return nil, configErr("Eig", fmt.Errorf("%w: k-point %d has %d bands, want %d", ErrShape, k, len(row), nb))
		}
	}

	start, stop := cfg.bandStart, cfg.bandStop
	if stop < 0 {
		stop = nb
	}
	if start < 0 || start >= stop || stop > nb {
		return nil, configErr("BandWindow", fmt.Errorf("%w: [%d, %d) of %d", ErrBandWindow, start, stop, nb))
	}

	vol := f.Volume
	if vol == 0 {
		vol = f.Structure.Volume()
	}
	if !(vol > 0) || math.IsInf(vol, 0) {
		return nil, configErr("Volume", fmt.Errorf("%w: %g", ErrVolume, vol))
	}

	lw, tmesh, err := selectTemperatures(f, cfg.temperatures, nk, nb)
	if err != nil {
		return nil, err
	}
	for it, t := range tmesh {
		if !(t > 0) || math.IsInf(t, 0) {
			return nil, configErr("TMesh", fmt.Errorf("%w: T[%d] = %g", ErrTemperature, it, t))
		}
	}

	in := &Input{
		Fermi:     f.Fermi,
		Structure: copyStructure(f.Structure),
		NElect:    f.NElect,
		KPoints:   append([][3]float64(nil), f.KPoints...),
		Eig:       window(f.Eig, start, stop),
		Volume:    vol,
		TMesh:     tmesh,
		MuMesh:    append([]float64(nil), f.MuMesh...),
		BandStart: start,
		BandStop:  stop,
		LPRatio:   cfg.lpratio,
		Workers:   cfg.workers,
	}
	for _, l := range lw {
		in.Linewidths = append(in.Linewidths, window(l, start, stop))
	}
	if len(in.MuMesh) == 0 {
		in.MuMesh = []float64{f.Fermi}
	}
	if len(in.TMesh) == 0 {
		in.TMesh = []float64{DefaultTemperature}
	}
	return in, nil
}

// selectTemperatures applies the temperature subset. Without linewidths the
// indices select from TMesh alone.
func selectTemperatures(f Fields, idx []int, nk, nb int) ([][][]float64, []float64, error) {
	if f.Linewidths == nil {
		if idx == nil {
			return nil, append([]float64(nil), f.TMesh...), nil
		}
		tmesh := make([]float64, 0, len(idx))
		for _, it := range idx {
			if it < 0 || it >= len(f.TMesh) {
				return nil, nil, configErr("Temperatures", fmt.Errorf("%w: %d of %d", ErrTemperatureIndex, it, len(f.TMesh)))
			}
			tmesh = append(tmesh, f.TMesh[it])
		}
		return nil, tmesh, nil
	}
	nt := len(f.Linewidths)
	if len(f.TMesh) != nt {
		return nil, nil, configErr("TMesh", fmt.Errorf("%w: %d temperatures for %d linewidth sets", ErrMissingTMesh, len(f.TMesh), nt))
	}
	for it, lw := range f.Linewidths {
		if len(lw) != nk {
			return nil, nil, configErr("Linewidths", fmt.Errorf("%w: temperature %d has %d k-points, want %d", ErrShape, it, len(lw), nk))
		}
		for k, row := range lw {
			if len(row) != nb {
				return nil, nil, configErr("Linewidths", fmt.Errorf("%w: temperature %d, k-point %d has %d bands, want %d", ErrShape, it, k, len(row), nb))
			}
		}
	}

	if idx == nil {
		return f.Linewidths, append([]float64(nil), f.TMesh...), nil
	}
	lw := make([][][]float64, 0, len(idx))
	tmesh := make([]float64, 0, len(idx))
	for _, it := range idx {
		if it < 0 || it >= nt {
			return nil, nil, configErr("Temperatures", fmt.Errorf("%w: %d of %d", ErrTemperatureIndex, it, nt))
		}
		lw = append(lw, f.Linewidths[it])
		tmesh = append(tmesh, f.TMesh[it])
	}
	return lw, tmesh, nil
}

func window(rows [][]float64, start, stop int) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r[start:stop]...)
	}
	return out
}

func copyStructure(s lattice.Structure) lattice.Structure {
	return lattice.Structure{
		Lattice:   s.Lattice,
		Atoms:     append([]lattice.Atom(nil), s.Atoms...),
		Rotations: append([]lattice.Rotation(nil), s.Rotations...),
	}
}
