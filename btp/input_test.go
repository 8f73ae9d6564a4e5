package btp

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-btp/internal/testutil"
	"github.com/cwbudde/algo-btp/interp/equiv"
	"github.com/cwbudde/algo-btp/lattice"
)

func threeBandFields() Fields {
	kp := testutil.IrreducibleCubicKPoints(2)
	f := Fields{
		Fermi:     0.1,
		Structure: testutil.CubicStructure(5),
		NElect:    2,
		KPoints:   kp,
		Eig:       make([][]float64, len(kp)),
		TMesh:     []float64{100, 200, 300},
	}
	for k := range kp {
		f.Eig[k] = []float64{-0.1, 0.1 + 0.01*float64(k), 0.4}
	}
	for it := range f.TMesh {
		lw := make([][]float64, len(kp))
		for k := range lw {
			lw[k] = []float64{1e-3, 2e-3 * float64(it+1), 3e-3}
		}
		f.Linewidths = append(f.Linewidths, lw)
	}
	return f
}

func TestNewInputDefaults(t *testing.T) {
	f := threeBandFields()
	in, err := NewInput(f)
	require.NoError(t, err)

	assert.Equal(t, 3, in.NumBands())
	assert.Equal(t, len(f.KPoints), in.NumKPoints())
	assert.Equal(t, 3, in.NumTemperatures())
	assert.Equal(t, 1, in.LPRatio)
	assert.Equal(t, 1, in.Workers)
	assert.InDelta(t, 125, in.Volume, 1e-12)
	assert.Equal(t, []float64{0.1}, in.MuMesh)
}

func TestNewInputBandWindowAndTemperatures(t *testing.T) {
	f := threeBandFields()
	in, err := NewInput(f, WithBandWindow(1, 2), WithTemperatures(2, 0), WithLPRatio(3), WithWorkers(2))
	require.NoError(t, err)

	assert.Equal(t, 1, in.NumBands())
	for k, row := range in.Eig {
		assert.Equal(t, []float64{f.Eig[k][1]}, row)
	}
	assert.Equal(t, []float64{300, 100}, in.TMesh)
	require.Len(t, in.Linewidths, 2)
	require.Len(t, in.Linewidths[0][0], 1)
	assert.InDelta(t, 6e-3, in.Linewidths[0][0][0], 1e-15)
	assert.InDelta(t, 2e-3, in.Linewidths[1][0][0], 1e-15)

	// The window copies; the caller's slices stay intact.
	in.Eig[0][0] = 42
	assert.NotEqual(t, 42.0, f.Eig[0][1])
}

func TestNewInputWithoutLinewidthsUsesDefaultTemperature(t *testing.T) {
	f := threeBandFields()
	f.Linewidths, f.TMesh = nil, nil
	in, err := NewInput(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{DefaultTemperature}, in.TMesh)
	assert.Zero(t, in.NumTemperatures())
}

func TestNewInputTemperatureSubsetWithoutLinewidths(t *testing.T) {
	f := threeBandFields()
	f.Linewidths = nil
	in, err := NewInput(f, WithTemperatures(1))
	require.NoError(t, err)
	assert.Equal(t, []float64{200}, in.TMesh)
	assert.Zero(t, in.NumTemperatures())
}

func TestNewInputOwnsStructure(t *testing.T) {
	f := threeBandFields()
	in, err := NewInput(f)
	require.NoError(t, err)

	rot := in.Structure.Rotations[0]
	f.Structure.Rotations[0] = lattice.Inversion
	f.Structure.Atoms[0].Species = "Y"
	assert.Equal(t, rot, in.Structure.Rotations[0])
	assert.NotEqual(t, "Y", in.Structure.Atoms[0].Species)
}

func TestNewInputErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Fields)
		opts   []InputOption
		field  string
		want   error
	}{
		{"lpratio", nil, []InputOption{WithLPRatio(0)}, "LPRatio", equiv.ErrInvalidRatio},
		{"workers", nil, []InputOption{WithWorkers(0)}, "Workers", ErrInvalidWorkers},
		{"rotations", func(f *Fields) { f.Structure.Rotations = nil }, nil, "Structure.Rotations", equiv.ErrNoSymmetry},
		{"bad rotation", func(f *Fields) {
			f.Structure.Rotations = []lattice.Rotation{{{2, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
		}, nil, "Structure.Rotations", equiv.ErrNoSymmetry},
		{"kpoints", func(f *Fields) { f.KPoints, f.Eig = nil, nil }, nil, "KPoints", equiv.ErrNoKPoints},
		{"eig rows", func(f *Fields) { f.Eig = f.Eig[1:] }, nil, "Eig", ErrShape},
		{"ragged eig", func(f *Fields) { f.Eig[1] = f.Eig[1][:2] }, nil, "Eig", ErrShape},
		{"window order", nil, []InputOption{WithBandWindow(2, 1)}, "BandWindow", ErrBandWindow},
		{"window past end", nil, []InputOption{WithBandWindow(0, 4)}, "BandWindow", ErrBandWindow},
		{"volume", func(f *Fields) { f.Volume = -1 }, nil, "Volume", ErrVolume},
		{"tmesh", func(f *Fields) { f.TMesh = f.TMesh[:2] }, nil, "TMesh", ErrMissingTMesh},
		{"linewidth shape", func(f *Fields) { f.Linewidths[1] = f.Linewidths[1][1:] }, nil, "Linewidths", ErrShape},
		{"temperature index", nil, []InputOption{WithTemperatures(3)}, "Temperatures", ErrTemperatureIndex},
		{"temperature index without linewidths", func(f *Fields) { f.Linewidths, f.TMesh = nil, nil }, []InputOption{WithTemperatures(0)}, "Temperatures", ErrTemperatureIndex},
		{"negative temperature", func(f *Fields) { f.TMesh[1] = -50 }, nil, "TMesh", ErrTemperature},
		{"zero temperature", func(f *Fields) { f.Linewidths, f.TMesh = nil, []float64{0, 300} }, nil, "TMesh", ErrTemperature},
		{"nan temperature", func(f *Fields) { f.TMesh[0] = math.NaN() }, nil, "TMesh", ErrTemperature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := threeBandFields()
			if tt.mutate != nil {
				tt.mutate(&f)
			}
			_, err := NewInput(f, tt.opts...)
			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

type fakeProvider struct {
	f Fields
}

func (p fakeProvider) FermiEnergy() float64          { return p.f.Fermi }
func (p fakeProvider) Structure() lattice.Structure  { return p.f.Structure }
func (p fakeProvider) NumElectrons() float64         { return p.f.NElect }
func (p fakeProvider) KPoints() [][3]float64         { return p.f.KPoints }
func (p fakeProvider) Eigenvalues() [][]float64      { return p.f.Eig }
func (p fakeProvider) Volume() float64               { return p.f.Volume }
func (p fakeProvider) Linewidths() [][][]float64     { return p.f.Linewidths }
func (p fakeProvider) Temperatures() []float64       { return p.f.TMesh }
func (p fakeProvider) ChemicalPotentials() []float64 { return p.f.MuMesh }

// asPlain hides the optional provider interfaces.
func asPlain(p fakeProvider) Provider {
	return struct{ Provider }{p}
}

func TestFromProvider(t *testing.T) {
	f := threeBandFields()
	f.MuMesh = []float64{0, 0.1, 0.2}
	p := fakeProvider{f: f}

	in, err := FromProvider(p, WithTemperatures(1))
	require.NoError(t, err)
	assert.Equal(t, []float64{200}, in.TMesh)
	assert.Equal(t, 1, in.NumTemperatures())
	assert.Equal(t, f.MuMesh, in.MuMesh)
	assert.Equal(t, f.NElect, in.NElect)

	in, err = FromProvider(asPlain(p))
	require.NoError(t, err)
	assert.Zero(t, in.NumTemperatures())
	assert.Equal(t, []float64{f.Fermi}, in.MuMesh)
}

func TestLoadInput(t *testing.T) {
	f := threeBandFields()
	var buf bytes.Buffer
	require.NoError(t, EncodeFields(&buf, f))

	path := filepath.Join(t.TempDir(), "input.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	in, err := LoadInput(path, WithBandWindow(0, 2))
	require.NoError(t, err)
	assert.Equal(t, f.Structure, in.Structure)
	assert.Equal(t, f.KPoints, in.KPoints)
	assert.Equal(t, 2, in.NumBands())
	assert.Equal(t, f.TMesh, in.TMesh)

	_, err = DecodeFields(bytes.NewBufferString("fermi: 0.1\nunknown: 3\n"))
	assert.Error(t, err)

	_, err = LoadInput(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
