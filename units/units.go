// Package units holds the few physical constants the interpolation and
// transport pipeline needs internally. Everything else is expected to arrive
// already in Hartree atomic units.
package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

const (
	// HartreeEV is one Hartree in electron volts.
	HartreeEV = 27.211386245988
	// RydbergEV is one Rydberg in electron volts.
	RydbergEV = HartreeEV / 2
	// BoltzmannHa is the Boltzmann constant in Ha/K.
	BoltzmannHa = 3.166811563e-6
)

// ErrUnknownUnit is returned by ParseEnergy for an unrecognised suffix.
var ErrUnknownUnit = errors.New("units: unknown energy unit")

// ParseEnergy converts strings such as "0.02 eV", "1e-3Ha" or "0.01 Ry" to
// Hartree. A bare number is taken to be in Hartree already.
func ParseEnergy(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("units: empty energy string")
	}

	num, unit := splitUnit(s)
	v, err := cast.ToFloat64E(num)
	if err != nil {
		return 0, fmt.Errorf("units: parse %q: %w", s, err)
	}

	switch strings.ToLower(unit) {
	case "", "ha", "hartree":
		return v, nil
	case "ev":
		return v / HartreeEV, nil
	case "mev":
		return v / HartreeEV / 1000, nil
	case "ry", "rydberg":
		return v * RydbergEV / HartreeEV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
}

// splitUnit separates the numeric prefix from a trailing unit name.
func splitUnit(s string) (string, string) {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			i--
			continue
		}
		break
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:])
}
