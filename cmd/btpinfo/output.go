package main

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/cwbudde/algo-btp/transport/fermi"
	"github.com/cwbudde/algo-btp/units"
)

// printOnsager writes the trace-averaged transport coefficients per (μ, T).
// Seebeck is converted to µV/K; σ and κ stay in atomic units.
func printOnsager(w io.Writer, on *fermi.Onsager) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "mu [eV]\tT [K]\tsigma [a.u.]\tS [uV/K]\tkappa [a.u.]\tR_H xyz [a.u.]\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tw, "-------\t-----\t------------\t--------\t------------\t--------------\n"); err != nil {
		return err
	}
	for imu, mu := range on.MuMesh {
		for it, t := range on.TMesh {
			if !on.Defined[imu][it] {
				if _, err := fmt.Fprintf(tw, "%.4f\t%g\tsingular\t\t\t\n", mu*units.HartreeEV, t); err != nil {
					return err
				}
				continue
			}
			hall := math.NaN()
			if on.Hall != nil {
				hall = on.Hall[imu][it][0][1][2]
			}
			if _, err := fmt.Fprintf(tw, "%.4f\t%g\t%.6e\t%.3f\t%.6e\t%.6e\n",
				mu*units.HartreeEV,
				t,
				trace(on.Sigma[imu][it]),
				trace(on.Seebeck[imu][it])*units.HartreeEV*1e6,
				trace(on.Kappa[imu][it]),
				hall,
			); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}

func trace(m [3][3]float64) float64 {
	return (m[0][0] + m[1][1] + m[2][2]) / 3
}
