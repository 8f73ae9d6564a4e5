package dos

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMesh     = errors.New("dos: no states to accumulate")
	ErrInvalidRange  = errors.New("dos: energy range must be finite and increasing")
	ErrTooFewPoints  = errors.New("dos: at least two grid points are required")
	ErrShape         = errors.New("dos: inconsistent array shapes")
	ErrZeroLinewidth = errors.New("dos: zero linewidth has no finite lifetime")
)

// ZeroLinewidthError reports the state whose linewidth vanished.
type ZeroLinewidthError struct {
	Band, Point int
}

func (e *ZeroLinewidthError) Error() string {
	return fmt.Sprintf("%v (band %d, point %d)", ErrZeroLinewidth, e.Band, e.Point)
}

func (e *ZeroLinewidthError) Unwrap() error { return ErrZeroLinewidth }
