// Package interp groups the band-interpolation stages: equivalence
// generation ([equiv]), coefficient fitting ([fit]) and reconstruction on a
// dense mesh ([mesh]).
package interp
