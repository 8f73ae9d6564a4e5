package btp

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"golang.org/x/crypto/blake2b"
)

// digestInput hashes everything that determines a run's output.
func digestInput(in *Input, cfg Config) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only a key longer than 64 bytes makes New256 fail.
		panic(err)
	}
	d := digester{h: h}

	d.floats(in.Fermi, in.NElect, in.Volume)
	for _, row := range in.Structure.Lattice {
		d.floats(row[:]...)
	}
	d.ints(len(in.Structure.Rotations))
	for _, w := range in.Structure.Rotations {
		for _, row := range w {
			d.ints(row[:]...)
		}
	}
	d.ints(len(in.KPoints))
	for _, k := range in.KPoints {
		d.floats(k[:]...)
	}
	for _, row := range in.Eig {
		d.floats(row...)
	}
	d.ints(len(in.Linewidths))
	for _, lw := range in.Linewidths {
		for _, row := range lw {
			d.floats(row...)
		}
	}
	d.ints(len(in.TMesh))
	d.floats(in.TMesh...)
	d.ints(len(in.MuMesh))
	d.floats(in.MuMesh...)
	d.ints(in.BandStart, in.BandStop, in.LPRatio)

	d.floats(cfg.ERange[0], cfg.ERange[1], cfg.DOSWeight)
	d.ints(cfg.NPts, int(cfg.SingularPolicy))
	d.h.Write([]byte(cfg.Smearing))

	return hex.EncodeToString(h.Sum(nil))
}

type digester struct {
	h   hash.Hash
	buf [8]byte
}

func (d *digester) floats(vs ...float64) {
	for _, v := range vs {
		binary.LittleEndian.PutUint64(d.buf[:], math.Float64bits(v))
		d.h.Write(d.buf[:])
	}
}

func (d *digester) ints(vs ...int) {
	for _, v := range vs {
		binary.LittleEndian.PutUint64(d.buf[:], uint64(int64(v)))
		d.h.Write(d.buf[:])
	}
}
