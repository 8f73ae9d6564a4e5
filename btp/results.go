package btp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-btp/internal/memo"
	"github.com/cwbudde/algo-btp/transport/dos"
	"github.com/cwbudde/algo-btp/transport/fermi"
)

// Results holds the densities of states of a run and owns the transport
// stages derived from them.
type Results struct {
	Fermi  float64
	Volume float64
	MuMesh []float64
	TMesh  []float64
	DOS    dos.Result
	// TauDOS holds one relaxation-time weighted DOS per temperature of
	// TMesh. It is empty without linewidths.
	TauDOS []dos.Result
	// Digest identifies the input and configuration that produced the
	// results.
	Digest string

	dosWeight float64
	policy    fermi.SingularPolicy
	workers   int
	log       logrus.FieldLogger

	fi    memo.Slot[*fermi.Integrals]
	on    memo.Slot[*fermi.Onsager]
	tauFI memo.Slot[[]*fermi.Integrals]
	tauOn memo.Slot[[]*fermi.Onsager]
}

func newResults(ip *Interpolator, d *dos.Result, tau []dos.Result) *Results {
	return &Results{
		Fermi:     ip.in.Fermi,
		Volume:    ip.in.Volume,
		MuMesh:    ip.in.MuMesh,
		TMesh:     ip.in.TMesh,
		DOS:       *d,
		TauDOS:    tau,
		Digest:    ip.digest,
		dosWeight: ip.cfg.DOSWeight,
		policy:    ip.cfg.SingularPolicy,
		workers:   ip.in.Workers,
		log:       ip.log,
	}
}

func (r *Results) fermiOptions() []fermi.Option {
	return []fermi.Option{
		fermi.WithDOSWeight(r.dosWeight),
		fermi.WithWorkers(r.workers),
		fermi.WithSingularPolicy(r.policy),
	}
}

func fermiInput(d dos.Result, mumesh, tmesh []float64) fermi.Input {
	return fermi.Input{
		WMesh:  d.WMesh,
		DOS:    d.DOS,
		VVDOS:  d.VVDOS,
		CVDOS:  d.CVDOS,
		MuMesh: mumesh,
		TMesh:  tmesh,
	}
}

// FermiIntegrals integrates the DOS over the (μ, T) mesh.
func (r *Results) FermiIntegrals(ctx context.Context) (*fermi.Integrals, error) {
	return r.fi.Get(func() (*fermi.Integrals, error) {
		fi, err := fermi.Compute(ctx, fermiInput(r.DOS, r.MuMesh, r.TMesh), r.fermiOptions()...)
		if err != nil {
			return nil, err
		}
		r.log.WithFields(logrus.Fields{"mu": len(r.MuMesh), "T": len(r.TMesh)}).Debug("fermi integrals computed")
		return fi, nil
	})
}

// Onsager derives the transport tensors from FermiIntegrals.
func (r *Results) Onsager(ctx context.Context) (*fermi.Onsager, error) {
	return r.on.Get(func() (*fermi.Onsager, error) {
		fi, err := r.FermiIntegrals(ctx)
		if err != nil {
			return nil, err
		}
		on, err := fermi.Coefficients(fi, r.MuMesh, r.TMesh, r.Volume, r.fermiOptions()...)
		if err != nil {
			return nil, err
		}
		r.logSingular(on)
		return on, nil
	})
}

// TauFermiIntegrals integrates TauDOS[i] at TMesh[i] for every temperature.
// Each element has a single temperature column.
func (r *Results) TauFermiIntegrals(ctx context.Context) ([]*fermi.Integrals, error) {
	return r.tauFI.Get(func() ([]*fermi.Integrals, error) {
		if len(r.TauDOS) == 0 {
			return nil, ErrNoLinewidths
		}
		if len(r.TauDOS) != len(r.TMesh) {
			return nil, fmt.Errorf("%w: %d tau DOS sets for %d temperatures", ErrShape, len(r.TauDOS), len(r.TMesh))
		}
		out := make([]*fermi.Integrals, len(r.TauDOS))
		for it, d := range r.TauDOS {
			fi, err := fermi.Compute(ctx, fermiInput(d, r.MuMesh, r.TMesh[it:it+1]), r.fermiOptions()...)
			if err != nil {
				return nil, fmt.Errorf("temperature %d: %w", it, err)
			}
			out[it] = fi
		}
		return out, nil
	})
}

// TauOnsager derives transport tensors from TauFermiIntegrals.
func (r *Results) TauOnsager(ctx context.Context) ([]*fermi.Onsager, error) {
	return r.tauOn.Get(func() ([]*fermi.Onsager, error) {
		fis, err := r.TauFermiIntegrals(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]*fermi.Onsager, len(fis))
		for it, fi := range fis {
			on, err := fermi.Coefficients(fi, r.MuMesh, r.TMesh[it:it+1], r.Volume, r.fermiOptions()...)
			if err != nil {
				return nil, err
			}
			r.logSingular(on)
			out[it] = on
		}
		return out, nil
	})
}

func (r *Results) logSingular(on *fermi.Onsager) {
	for _, s := range on.Singular {
		r.log.WithFields(logrus.Fields{"mu": s.Mu, "T": s.T}).Warn("conductivity is singular, point skipped")
	}
}
