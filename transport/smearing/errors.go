package smearing

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownType = errors.New("smearing: unknown kernel type")
	ErrBadSpec     = errors.New("smearing: malformed kernel specification")
)

func validateWidth(t Type, width float64) error {
	if t == TypeHistogram {
		return nil
	}
	if width <= 0 {
		return fmt.Errorf("smearing: %s width must be > 0: %g", t, width)
	}
	return nil
}

func validateSpacing(de float64) error {
	if de <= 0 {
		return fmt.Errorf("smearing: grid spacing must be > 0: %g", de)
	}
	return nil
}
