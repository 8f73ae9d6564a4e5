// Package btp drives the Boltzmann transport pipeline: band energies and
// optional linewidths sampled on an irreducible k-point set are interpolated
// onto a dense mesh, accumulated into densities of states, and turned into
// Fermi integrals and Onsager transport coefficients.
//
// The pipeline is explicit and memoized. An [Input] is validated once by
// [NewInput] or [FromProvider]. An [Interpolator] owns the interpolation
// stages, each computed on first request and cached together with its
// error. [Interpolator.Run] yields [Results], which in turn own the
// transport stages.
//
//	in, err := btp.NewInput(fields, btp.WithLPRatio(5), btp.WithWorkers(4))
//	ip, err := btp.New(in, btp.DefaultConfig(), btp.WithLogger(log))
//	res, err := ip.Run(ctx)
//	on, err := res.Onsager(ctx)
package btp
