package btp

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-btp/internal/memo"
	"github.com/cwbudde/algo-btp/transport/dos"
	"github.com/cwbudde/algo-btp/transport/fermi"
)

// RecordVersion is the layout version written by WriteRecord.
const RecordVersion = 1

// Record is the persisted form of Results. Tensors are flattened row-major:
// rank 2 into 9 values, rank 3 into 27.
type Record struct {
	Version      int               `yaml:"version"`
	Digest       string            `yaml:"digest"`
	Fermi        float64           `yaml:"fermi"`
	Volume       float64           `yaml:"volume"`
	DOSWeight    float64           `yaml:"dosweight"`
	Policy       string            `yaml:"policy"`
	MuMesh       []float64         `yaml:"mumesh"`
	TMesh        []float64         `yaml:"tmesh"`
	DOS          DOSRecord         `yaml:"dos"`
	TauDOS       []DOSRecord       `yaml:"tau_dos,omitempty"`
	Integrals    *IntegralsRecord  `yaml:"fermi_integrals,omitempty"`
	Onsager      *OnsagerRecord    `yaml:"onsager,omitempty"`
	TauIntegrals []IntegralsRecord `yaml:"tau_fermi_integrals,omitempty"`
	TauOnsager   []OnsagerRecord   `yaml:"tau_onsager,omitempty"`
}

// DOSRecord is the persisted form of dos.Result.
type DOSRecord struct {
	WMesh []float64   `yaml:"wmesh"`
	DOS   []float64   `yaml:"dos"`
	VVDOS [][]float64 `yaml:"vvdos"`
	CVDOS [][]float64 `yaml:"cvdos,omitempty"`
}

// IntegralsRecord is the persisted form of fermi.Integrals.
type IntegralsRecord struct {
	MuMesh []float64     `yaml:"mumesh"`
	TMesh  []float64     `yaml:"tmesh"`
	N      [][]float64   `yaml:"n"`
	L0     [][][]float64 `yaml:"l0"`
	L1     [][][]float64 `yaml:"l1"`
	L2     [][][]float64 `yaml:"l2"`
	Lm11   [][][]float64 `yaml:"lm11,omitempty"`
}

// OnsagerRecord is the persisted form of fermi.Onsager.
type OnsagerRecord struct {
	MuMesh   []float64        `yaml:"mumesh"`
	TMesh    []float64        `yaml:"tmesh"`
	Sigma    [][][]float64    `yaml:"sigma"`
	Seebeck  [][][]float64    `yaml:"seebeck"`
	Kappa    [][][]float64    `yaml:"kappa"`
	Hall     [][][]float64    `yaml:"hall,omitempty"`
	Defined  [][]bool         `yaml:"defined"`
	Singular []SingularRecord `yaml:"singular,omitempty"`
}

// SingularRecord is the persisted form of fermi.SingularTransportError.
type SingularRecord struct {
	Mu   float64 `yaml:"mu"`
	T    float64 `yaml:"t"`
	IMu  int     `yaml:"imu"`
	IT   int     `yaml:"it"`
	Cond float64 `yaml:"cond"`
}

// Record computes every transport stage and returns the persisted form of
// r. The tau variants are included when TauDOS is present.
func (r *Results) Record(ctx context.Context) (*Record, error) {
	fi, err := r.FermiIntegrals(ctx)
	if err != nil {
		return nil, err
	}
	on, err := r.Onsager(ctx)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Version:   RecordVersion,
		Digest:    r.Digest,
		Fermi:     r.Fermi,
		Volume:    r.Volume,
		DOSWeight: r.dosWeight,
		Policy:    r.policy.String(),
		MuMesh:    r.MuMesh,
		TMesh:     r.TMesh,
		DOS:       dosToRecord(r.DOS),
		Integrals: integralsToRecord(fi),
		Onsager:   onsagerToRecord(on),
	}
	if len(r.TauDOS) == 0 {
		return rec, nil
	}

	tfi, err := r.TauFermiIntegrals(ctx)
	if err != nil {
		return nil, err
	}
	ton, err := r.TauOnsager(ctx)
	if err != nil {
		return nil, err
	}
	for i := range r.TauDOS {
		rec.TauDOS = append(rec.TauDOS, dosToRecord(r.TauDOS[i]))
		rec.TauIntegrals = append(rec.TauIntegrals, *integralsToRecord(tfi[i]))
		rec.TauOnsager = append(rec.TauOnsager, *onsagerToRecord(ton[i]))
	}
	return rec, nil
}

// WriteRecord computes every transport stage and writes the YAML record.
func (r *Results) WriteRecord(ctx context.Context, w io.Writer) error {
	rec, err := r.Record(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("btp: encode record: %w", err)
	}
	return enc.Close()
}

// ReadRecord decodes a record written by WriteRecord. The returned Results
// have every stored stage cached, so accessors return the persisted values
// without recomputation.
func ReadRecord(rd io.Reader) (*Results, error) {
	var rec Record
	if err := yaml.NewDecoder(rd).Decode(&rec); err != nil {
		return nil, fmt.Errorf("btp: decode record: %w", err)
	}
	return rec.Results()
}

// Results rebuilds Results from the record.
func (rec *Record) Results() (*Results, error) {
	if rec.Version != RecordVersion {
		return nil, fmt.Errorf("btp: unsupported record version %d", rec.Version)
	}
	policy, err := ParseSingularPolicy(rec.Policy)
	if err != nil {
		return nil, err
	}
	d, err := dosFromRecord(rec.DOS)
	if err != nil {
		return nil, err
	}
	r := &Results{
		Fermi:     rec.Fermi,
		Volume:    rec.Volume,
		MuMesh:    rec.MuMesh,
		TMesh:     rec.TMesh,
		DOS:       d,
		Digest:    rec.Digest,
		dosWeight: rec.DOSWeight,
		policy:    policy,
		workers:   1,
		log:       discardLogger(),
	}
	for _, td := range rec.TauDOS {
		d, err := dosFromRecord(td)
		if err != nil {
			return nil, err
		}
		r.TauDOS = append(r.TauDOS, d)
	}

	if rec.Integrals != nil {
		fi, err := integralsFromRecord(*rec.Integrals)
		if err != nil {
			return nil, err
		}
		seed(&r.fi, fi)
	}
	if rec.Onsager != nil {
		on, err := onsagerFromRecord(*rec.Onsager)
		if err != nil {
			return nil, err
		}
		seed(&r.on, on)
	}
	if len(rec.TauIntegrals) > 0 {
		fis := make([]*fermi.Integrals, len(rec.TauIntegrals))
		for i, ir := range rec.TauIntegrals {
			if fis[i], err = integralsFromRecord(ir); err != nil {
				return nil, err
			}
		}
		seed(&r.tauFI, fis)
	}
	if len(rec.TauOnsager) > 0 {
		ons := make([]*fermi.Onsager, len(rec.TauOnsager))
		for i, or := range rec.TauOnsager {
			if ons[i], err = onsagerFromRecord(or); err != nil {
				return nil, err
			}
		}
		seed(&r.tauOn, ons)
	}
	return r, nil
}

func seed[T any](s *memo.Slot[T], v T) {
	_, _ = s.Get(func() (T, error) { return v, nil })
}

func dosToRecord(d dos.Result) DOSRecord {
	rec := DOSRecord{
		WMesh: d.WMesh,
		DOS:   d.DOS,
		VVDOS: make([][]float64, len(d.VVDOS)),
	}
	for i, t := range d.VVDOS {
		rec.VVDOS[i] = flatten2(t)
	}
	if d.CVDOS != nil {
		rec.CVDOS = make([][]float64, len(d.CVDOS))
		for i, t := range d.CVDOS {
			rec.CVDOS[i] = flatten3(t)
		}
	}
	return rec
}

func dosFromRecord(rec DOSRecord) (dos.Result, error) {
	n := len(rec.WMesh)
	if len(rec.DOS) != n || len(rec.VVDOS) != n || (rec.CVDOS != nil && len(rec.CVDOS) != n) {
		return dos.Result{}, fmt.Errorf("%w: dos record", ErrShape)
	}
	d := dos.Result{
		WMesh: rec.WMesh,
		DOS:   rec.DOS,
		VVDOS: make([][3][3]float64, n),
	}
	var err error
	for i, v := range rec.VVDOS {
		if d.VVDOS[i], err = unflatten2(v); err != nil {
			return dos.Result{}, err
		}
	}
	if rec.CVDOS != nil {
		d.CVDOS = make([][3][3][3]float64, n)
		for i, v := range rec.CVDOS {
			if d.CVDOS[i], err = unflatten3(v); err != nil {
				return dos.Result{}, err
			}
		}
	}
	return d, nil
}

func integralsToRecord(fi *fermi.Integrals) *IntegralsRecord {
	rec := &IntegralsRecord{
		MuMesh: fi.MuMesh,
		TMesh:  fi.TMesh,
		N:      fi.N,
		L0:     grid2(fi.L0),
		L1:     grid2(fi.L1),
		L2:     grid2(fi.L2),
	}
	if fi.Lm11 != nil {
		rec.Lm11 = grid3(fi.Lm11)
	}
	return rec
}

func integralsFromRecord(rec IntegralsRecord) (*fermi.Integrals, error) {
	fi := &fermi.Integrals{MuMesh: rec.MuMesh, TMesh: rec.TMesh, N: rec.N}
	var err error
	if fi.L0, err = ungrid2(rec.L0); err != nil {
		return nil, err
	}
	if fi.L1, err = ungrid2(rec.L1); err != nil {
		return nil, err
	}
	if fi.L2, err = ungrid2(rec.L2); err != nil {
		return nil, err
	}
	if rec.Lm11 != nil {
		if fi.Lm11, err = ungrid3(rec.Lm11); err != nil {
			return nil, err
		}
	}
	return fi, nil
}

func onsagerToRecord(on *fermi.Onsager) *OnsagerRecord {
	rec := &OnsagerRecord{
		MuMesh:  on.MuMesh,
		TMesh:   on.TMesh,
		Sigma:   grid2(on.Sigma),
		Seebeck: grid2(on.Seebeck),
		Kappa:   grid2(on.Kappa),
		Defined: on.Defined,
	}
	if on.Hall != nil {
		rec.Hall = grid3(on.Hall)
	}
	for _, s := range on.Singular {
		rec.Singular = append(rec.Singular, SingularRecord{Mu: s.Mu, T: s.T, IMu: s.IMu, IT: s.IT, Cond: s.Cond})
	}
	return rec
}

func onsagerFromRecord(rec OnsagerRecord) (*fermi.Onsager, error) {
	on := &fermi.Onsager{MuMesh: rec.MuMesh, TMesh: rec.TMesh, Defined: rec.Defined}
	var err error
	if on.Sigma, err = ungrid2(rec.Sigma); err != nil {
		return nil, err
	}
	if on.Seebeck, err = ungrid2(rec.Seebeck); err != nil {
		return nil, err
	}
	if on.Kappa, err = ungrid2(rec.Kappa); err != nil {
		return nil, err
	}
	if rec.Hall != nil {
		if on.Hall, err = ungrid3(rec.Hall); err != nil {
			return nil, err
		}
	}
	for _, s := range rec.Singular {
		on.Singular = append(on.Singular, &fermi.SingularTransportError{Mu: s.Mu, T: s.T, IMu: s.IMu, IT: s.IT, Cond: s.Cond})
	}
	return on, nil
}

func flatten2(t [3][3]float64) []float64 {
	out := make([]float64, 0, 9)
	for i := range t {
		out = append(out, t[i][:]...)
	}
	return out
}

func flatten3(t [3][3][3]float64) []float64 {
	out := make([]float64, 0, 27)
	for i := range t {
		for j := range t[i] {
			out = append(out, t[i][j][:]...)
		}
	}
	return out
}

func unflatten2(v []float64) (t [3][3]float64, err error) {
	if len(v) != 9 {
		return t, fmt.Errorf("%w: rank-2 tensor with %d values", ErrShape, len(v))
	}
	for i := 0; i < 9; i++ {
		t[i/3][i%3] = v[i]
	}
	return t, nil
}

func unflatten3(v []float64) (t [3][3][3]float64, err error) {
	if len(v) != 27 {
		return t, fmt.Errorf("%w: rank-3 tensor with %d values", ErrShape, len(v))
	}
	for i := 0; i < 27; i++ {
		t[i/9][(i/3)%3][i%3] = v[i]
	}
	return t, nil
}

func grid2(g [][][3][3]float64) [][][]float64 {
	out := make([][][]float64, len(g))
	for i, row := range g {
		out[i] = make([][]float64, len(row))
		for j, t := range row {
			out[i][j] = flatten2(t)
		}
	}
	return out
}

func grid3(g [][][3][3][3]float64) [][][]float64 {
	out := make([][][]float64, len(g))
	for i, row := range g {
		out[i] = make([][]float64, len(row))
		for j, t := range row {
			out[i][j] = flatten3(t)
		}
	}
	return out
}

func ungrid2(g [][][]float64) ([][][3][3]float64, error) {
	out := make([][][3][3]float64, len(g))
	for i, row := range g {
		out[i] = make([][3][3]float64, len(row))
		for j, v := range row {
			t, err := unflatten2(v)
			if err != nil {
				return nil, err
			}
			out[i][j] = t
		}
	}
	return out, nil
}

func ungrid3(g [][][]float64) ([][][3][3][3]float64, error) {
	out := make([][][3][3][3]float64, len(g))
	for i, row := range g {
		out[i] = make([][3][3][3]float64, len(row))
		for j, v := range row {
			t, err := unflatten3(v)
			if err != nil {
				return nil, err
			}
			out[i][j] = t
		}
	}
	return out, nil
}
