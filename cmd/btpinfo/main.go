// Command btpinfo runs the Boltzmann transport pipeline on a YAML input
// file and prints the resulting transport coefficients.
//
// Usage:
//
//	btpinfo run [flags] input.yaml
//	btpinfo inspect record.yaml
//	btpinfo smearing [spec ...]
//
// Examples:
//
//	btpinfo run --lpratio 5 --workers 4 si.yaml
//	btpinfo run --smearing "lorentzian:5 meV" --output si-record.yaml si.yaml
//	btpinfo run --temperatures 0,2 --policy abort si.yaml
//	btpinfo inspect si-record.yaml
//	btpinfo smearing gaussian:0.02eV "lorentzian:1 meV"
//
// Every run flag can also be set in a YAML file passed with --config or
// through a BTP_ prefixed environment variable (BTP_LPRATIO=5).
package main

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "btpinfo",
		Short:         "Interpolate band structures and compute Boltzmann transport coefficients",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(newRunCmd(), newInspectCmd(), newSmearingCmd())
	return root
}

func newLogger(cmd *cobra.Command, level string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)
	return log, nil
}
