package fit

import (
	"errors"
	"fmt"
)

// Errors wrapped by NumericalFitError.
var (
	ErrShape          = errors.New("fit: input shape mismatch")
	ErrTooFewStars    = errors.New("fit: fewer stars than k-points")
	ErrIllConditioned = errors.New("fit: interpolation system is singular or ill-conditioned")
	ErrNonFinite      = errors.New("fit: non-finite coefficient")
	ErrResidual       = errors.New("fit: coefficients do not reproduce the input values")
)

// NumericalFitError reports a failed fit. Band is -1 when the failure is
// shared by every band (the system matrix itself); Temperature is -1 for
// band energies and the temperature index for linewidth fits.
type NumericalFitError struct {
	Band        int
	Temperature int
	Err         error
}

func (e *NumericalFitError) Error() string {
	where := "all bands"
	if e.Band >= 0 {
		where = fmt.Sprintf("band %d", e.Band)
	}
	if e.Temperature >= 0 {
		where += fmt.Sprintf(", temperature index %d", e.Temperature)
	}
	return fmt.Sprintf("fit: %s: %v", where, e.Err)
}

func (e *NumericalFitError) Unwrap() error { return e.Err }
