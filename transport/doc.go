// Package transport groups the post-interpolation stages: smearing kernels
// ([smearing]), density-of-states accumulation ([dos]) and Fermi integrals
// with Onsager coefficients ([fermi]).
package transport
