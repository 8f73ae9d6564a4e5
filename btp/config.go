package btp

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-btp/transport/fermi"
	"github.com/cwbudde/algo-btp/transport/smearing"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultHalfWindow = 0.05 // Ha on either side of the Fermi level
	DefaultNPts       = 1000
	DefaultDOSWeight  = 2.0
)

// Config holds the knobs of the DOS and transport stages. Zero values
// select the defaults.
type Config struct {
	// ERange is the energy window of the DOS grid in Ha. The zero value
	// means Fermi ± DefaultHalfWindow.
	ERange         [2]float64           `mapstructure:"erange" yaml:"erange"`
	NPts           int                  `mapstructure:"npts" yaml:"npts"`
	Smearing       string               `mapstructure:"smearing" yaml:"smearing"`
	SingularPolicy fermi.SingularPolicy `mapstructure:"-" yaml:"-"`
	DOSWeight      float64              `mapstructure:"dosweight" yaml:"dosweight"`
}

// DefaultConfig returns a Config with every default filled in except the
// Fermi-relative energy window.
func DefaultConfig() Config {
	return Config{
		NPts:      DefaultNPts,
		Smearing:  smearing.DefaultSpec,
		DOSWeight: DefaultDOSWeight,
	}
}

// ParseSingularPolicy maps "skip" or "abort" to a fermi.SingularPolicy.
func ParseSingularPolicy(s string) (fermi.SingularPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return fermi.Skip, nil
	case "abort":
		return fermi.Abort, nil
	default:
		return 0, configErr("SingularPolicy", fmt.Errorf("unknown policy %q", s))
	}
}

// resolve fills defaults against the Fermi level and validates the knobs.
func (c Config) resolve(fermiLevel float64) (Config, smearing.Kernel, error) {
	if c.ERange == [2]float64{} {
		c.ERange = [2]float64{fermiLevel - DefaultHalfWindow, fermiLevel + DefaultHalfWindow}
	}
	if !(c.ERange[1] > c.ERange[0]) {
		return c, smearing.Kernel{}, configErr("ERange", fmt.Errorf("%w: [%g, %g]", ErrInvalidEnergyGrid, c.ERange[0], c.ERange[1]))
	}
	if c.NPts == 0 {
		c.NPts = DefaultNPts
	}
	if c.NPts < 2 {
		return c, smearing.Kernel{}, configErr("NPts", fmt.Errorf("%w: %d points", ErrInvalidEnergyGrid, c.NPts))
	}
	if c.Smearing == "" {
		c.Smearing = smearing.DefaultSpec
	}
	kernel, err := smearing.Parse(c.Smearing)
	if err != nil {
		return c, smearing.Kernel{}, configErr("Smearing", err)
	}
	if c.DOSWeight == 0 {
		c.DOSWeight = DefaultDOSWeight
	}
	if c.DOSWeight < 0 {
		return c, smearing.Kernel{}, configErr("DOSWeight", fmt.Errorf("must be > 0: %g", c.DOSWeight))
	}
	if c.SingularPolicy != fermi.Skip && c.SingularPolicy != fermi.Abort {
		return c, smearing.Kernel{}, configErr("SingularPolicy", fmt.Errorf("unknown policy %v", c.SingularPolicy))
	}
	return c, kernel, nil
}
