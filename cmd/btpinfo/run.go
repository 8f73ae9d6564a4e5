package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-btp/btp"
	"github.com/cwbudde/algo-btp/transport/fermi"
	"github.com/cwbudde/algo-btp/units"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] input.yaml",
		Short: "Run the interpolation and transport pipeline",
		Args:  cobra.ExactArgs(1),
		RunE:  runPipeline,
	}
	f := cmd.Flags()
	f.String("config", "", "YAML file with run settings")
	f.Int("lpratio", 1, "ratio of star functions to k-points")
	f.Int("workers", 1, "worker pool size")
	f.Int("band-start", 0, "first band of the window")
	f.Int("band-stop", -1, "one past the last band of the window (-1 for all)")
	f.String("temperatures", "", "comma-separated temperature indices (default all)")
	f.String("emin", "", "lower end of the DOS window, e.g. \"-0.5 eV\" (default Fermi-0.05 Ha)")
	f.String("emax", "", "upper end of the DOS window (default Fermi+0.05 Ha)")
	f.Int("npts", btp.DefaultNPts, "number of DOS grid points")
	f.String("smearing", "gaussian:0.02 eV", "smearing kernel")
	f.String("policy", "skip", "what to do at singular (mu, T) points: skip or abort")
	f.Float64("dosweight", btp.DefaultDOSWeight, "spin degeneracy weight")
	f.StringP("output", "o", "", "write the YAML result record to this file")
	return cmd
}

// settings reads run flags layered over the config file and BTP_ env vars.
func settings(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("BTP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return nil, err
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func inputOptions(v *viper.Viper) ([]btp.InputOption, error) {
	opts := []btp.InputOption{
		btp.WithLPRatio(v.GetInt("lpratio")),
		btp.WithWorkers(v.GetInt("workers")),
		btp.WithBandWindow(v.GetInt("band-start"), v.GetInt("band-stop")),
	}
	idx, err := indexList(v.Get("temperatures"))
	if err != nil {
		return nil, fmt.Errorf("temperatures: %w", err)
	}
	if idx != nil {
		opts = append(opts, btp.WithTemperatures(idx...))
	}
	return opts, nil
}

// indexList accepts "0,2", a YAML list, or nothing.
func indexList(raw any) ([]int, error) {
	if s, ok := raw.(string); ok {
		fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
		if len(fields) == 0 {
			return nil, nil
		}
		out := make([]int, len(fields))
		for i, f := range fields {
			n, err := cast.ToIntE(f)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	if raw == nil {
		return nil, nil
	}
	return cast.ToIntSliceE(raw)
}

func runConfig(v *viper.Viper) (btp.Config, error) {
	cfg := btp.Config{
		NPts:      v.GetInt("npts"),
		Smearing:  v.GetString("smearing"),
		DOSWeight: v.GetFloat64("dosweight"),
	}
	policy, err := btp.ParseSingularPolicy(v.GetString("policy"))
	if err != nil {
		return cfg, err
	}
	cfg.SingularPolicy = policy

	emin, emax := v.GetString("emin"), v.GetString("emax")
	if (emin == "") != (emax == "") {
		return cfg, fmt.Errorf("--emin and --emax must be given together")
	}
	if emin != "" {
		lo, err := units.ParseEnergy(emin)
		if err != nil {
			return cfg, fmt.Errorf("emin: %w", err)
		}
		hi, err := units.ParseEnergy(emax)
		if err != nil {
			return cfg, fmt.Errorf("emax: %w", err)
		}
		cfg.ERange = [2]float64{lo, hi}
	}
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	v, err := settings(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cmd, v.GetString("log-level"))
	if err != nil {
		return err
	}

	opts, err := inputOptions(v)
	if err != nil {
		return err
	}
	cfg, err := runConfig(v)
	if err != nil {
		return err
	}

	in, err := btp.LoadInput(args[0], opts...)
	if err != nil {
		return err
	}
	ip, err := btp.New(in, cfg, btp.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	log.WithField("input", args[0]).Info("running pipeline")
	res, err := ip.Run(ctx)
	if err != nil {
		return err
	}
	on, err := res.Onsager(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, ip.String())
	if err := printOnsager(out, on); err != nil {
		return err
	}
	if err := printTauOnsager(ctx, out, res); err != nil {
		return err
	}

	if path := v.GetString("output"); path != "" {
		if err := writeRecord(ctx, res, path); err != nil {
			return err
		}
		log.WithField("path", path).Info("record written")
	}
	return nil
}

func writeRecord(ctx context.Context, res *btp.Results, path string) (err error) {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()
	return res.WriteRecord(ctx, fh)
}

type tauOnsagerSource interface {
	TauOnsager(ctx context.Context) ([]*fermi.Onsager, error)
}

// printTauOnsager prints one table per linewidth temperature. Inputs
// without linewidths print nothing.
func printTauOnsager(ctx context.Context, w io.Writer, src tauOnsagerSource) error {
	ton, err := src.TauOnsager(ctx)
	if errors.Is(err, btp.ErrNoLinewidths) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("relaxation-time transport: %w", err)
	}
	for _, o := range ton {
		fmt.Fprintf(w, "\nrelaxation-time weighted, T = %g K\n", o.TMesh[0])
		if err := printOnsager(w, o); err != nil {
			return err
		}
	}
	return nil
}
