package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-btp/btp"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect record.yaml",
		Short: "Print the transport coefficients stored in a result record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()

			res, err := btp.ReadRecord(fh)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "record %s\n", res.Digest)
			fmt.Fprintf(out, "  fermi %.6f Ha, volume %.4f bohr^3, %d DOS points, %d tau sets\n",
				res.Fermi, res.Volume, len(res.DOS.WMesh), len(res.TauDOS))

			on, err := res.Onsager(cmd.Context())
			if err != nil {
				return err
			}
			return printOnsager(out, on)
		},
	}
}
