// Package lattice describes crystal structures for band interpolation:
// the real-space cell, its reciprocal lattice, and the point-group
// operations that act on integer lattice coordinates.
//
// Lattice vectors are stored as rows in bohr. A lattice point with integer
// coordinates n sits at n[0]*a1 + n[1]*a2 + n[2]*a3. Rotations are integer
// matrices acting on those direct coordinates; discovering them from atomic
// positions is left to the caller.
package lattice
