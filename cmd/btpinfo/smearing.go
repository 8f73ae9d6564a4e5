package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-btp/transport/smearing"
	"github.com/cwbudde/algo-btp/units"
)

func newSmearingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smearing [spec ...]",
		Short: "Print the discrete kernels of smearing specifications",
		Long: "Prints the width, kernel length and peak weight of each smearing\n" +
			"specification on a grid of the given spacing. Without arguments the\n" +
			"default kernel is shown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			deSpec, _ := cmd.Flags().GetString("de")
			de, err := units.ParseEnergy(deSpec)
			if err != nil {
				return fmt.Errorf("de: %w", err)
			}
			if len(args) == 0 {
				args = []string{smearing.DefaultSpec}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Spec\tType\tWidth [meV]\tLength\tPeak\n")
			fmt.Fprintf(tw, "----\t----\t-----------\t------\t----\n")
			for _, spec := range args {
				k, err := smearing.Parse(spec)
				if err != nil {
					return err
				}
				w, err := k.Discretize(de)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%.4f\t%d\t%.6f\n",
					spec, k.Type, k.Width*units.HartreeEV*1e3, len(w), w[len(w)/2])
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("de", "1 meV", "grid spacing")
	return cmd
}
