package btp

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWorkers    = errors.New("btp: worker count must be >= 1")
	ErrBandWindow        = errors.New("btp: band window must satisfy 0 <= start < stop <= bands")
	ErrShape             = errors.New("btp: inconsistent array shapes")
	ErrNoEigenvalues     = errors.New("btp: no eigenvalues")
	ErrVolume            = errors.New("btp: cell volume must be > 0")
	ErrTemperatureIndex  = errors.New("btp: temperature index out of range")
	ErrMissingTMesh      = errors.New("btp: linewidths need a temperature mesh")
	ErrTemperature       = errors.New("btp: temperatures must be finite and > 0")
	ErrInvalidEnergyGrid = errors.New("btp: invalid energy grid")
	ErrNoLinewidths      = errors.New("btp: input carries no linewidths")
)

// ConfigurationError reports an invalid input field or configuration knob.
// It is returned before any computation starts.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("btp: invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErr(field string, err error) error {
	return &ConfigurationError{Field: field, Err: err}
}
