package btp

import "github.com/cwbudde/algo-btp/lattice"

// Provider exposes the result of an electronic-structure calculation.
// Energies are in Hartree, lengths in bohr, and Eigenvalues is indexed
// [k][band].
type Provider interface {
	FermiEnergy() float64
	Structure() lattice.Structure
	NumElectrons() float64
	KPoints() [][3]float64
	Eigenvalues() [][]float64
	Volume() float64
}

// LinewidthProvider is implemented by providers that also carry
// electron-phonon linewidths, indexed [temperature][k][band].
type LinewidthProvider interface {
	Provider
	Linewidths() [][][]float64
	Temperatures() []float64
}

// ChemicalPotentialProvider is implemented by providers that suggest a
// chemical-potential mesh.
type ChemicalPotentialProvider interface {
	ChemicalPotentials() []float64
}

// FromProvider extracts Fields from p and validates them with NewInput.
// WithTemperatures selects a subset of the provider's temperatures.
func FromProvider(p Provider, opts ...InputOption) (*Input, error) {
	f := Fields{
		Fermi:     p.FermiEnergy(),
		Structure: p.Structure(),
		NElect:    p.NumElectrons(),
		KPoints:   p.KPoints(),
		Eig:       p.Eigenvalues(),
		Volume:    p.Volume(),
	}
	if lp, ok := p.(LinewidthProvider); ok {
		f.Linewidths = lp.Linewidths()
		f.TMesh = lp.Temperatures()
	}
	if mp, ok := p.(ChemicalPotentialProvider); ok {
		f.MuMesh = mp.ChemicalPotentials()
	}
	return NewInput(f, opts...)
}
