package fermi

import (
	"errors"
	"fmt"
)

var (
	ErrShape                  = errors.New("fermi: inconsistent array shapes")
	ErrTooFewPoints           = errors.New("fermi: energy grid needs at least two points")
	ErrNegativeTemperature    = errors.New("fermi: temperature must be >= 0")
	ErrNonPositiveTemperature = errors.New("fermi: transport coefficients need T > 0")
	ErrNonPositiveVolume      = errors.New("fermi: cell volume must be > 0")
	ErrSingular               = errors.New("fermi: singular conductivity tensor")
)

// SingularTransportError reports a (μ, T) point at which the conductivity
// tensor could not be inverted.
type SingularTransportError struct {
	Mu, T   float64
	IMu, IT int
	Cond    float64
}

func (e *SingularTransportError) Error() string {
	return fmt.Sprintf("%v at mu=%g Ha, T=%g K (indices %d, %d; cond %g)",
		ErrSingular, e.Mu, e.T, e.IMu, e.IT, e.Cond)
}

func (e *SingularTransportError) Unwrap() error { return ErrSingular }
