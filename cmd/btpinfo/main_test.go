package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-btp/btp"
	"github.com/cwbudde/algo-btp/internal/testutil"
	"github.com/cwbudde/algo-btp/transport/fermi"
)

func writeInput(t *testing.T) string {
	t.Helper()
	kp := testutil.IrreducibleCubicKPoints(4)
	f := btp.Fields{
		Fermi:     0,
		Structure: testutil.CubicStructure(6),
		NElect:    1,
		KPoints:   kp,
		Eig:       make([][]float64, len(kp)),
		MuMesh:    []float64{-0.01, 0.01},
		TMesh:     []float64{300},
	}
	f.Linewidths = [][][]float64{make([][]float64, len(kp))}
	for k, p := range kp {
		f.Eig[k] = []float64{testutil.TightBindingSC(p, 0, 0.05)}
		f.Linewidths[0][k] = []float64{0.005}
	}

	var buf bytes.Buffer
	require.NoError(t, btp.EncodeFields(&buf, f))
	path := filepath.Join(t.TempDir(), "input.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunAndInspect(t *testing.T) {
	input := writeInput(t)
	record := filepath.Join(t.TempDir(), "record.yaml")

	out, err := execute(t, "run", "--lpratio", "3", "--workers", "2", "--log-level", "warn",
		"--emin", "-1 eV", "--emax", "1 eV", "--npts", "500", "--output", record, input)
	require.NoError(t, err)
	assert.Contains(t, out, "equivalences")
	assert.Contains(t, out, "sigma [a.u.]")
	assert.Contains(t, out, "relaxation-time weighted, T = 300 K")

	_, err = os.Stat(record)
	require.NoError(t, err)

	out, err = execute(t, "inspect", record)
	require.NoError(t, err)
	assert.Contains(t, out, "record ")
	assert.Contains(t, out, "1 tau sets")
	assert.Contains(t, out, "S [uV/K]")
}

func TestRunSettingsFromConfigAndEnv(t *testing.T) {
	input := writeInput(t)
	cfg := filepath.Join(t.TempDir(), "btp.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("lpratio: 2\nsmearing: \"lorentzian:2 meV\"\ntemperatures: [0]\n"), 0o600))
	t.Setenv("BTP_NPTS", "300")

	out, err := execute(t, "run", "--config", cfg, "--log-level", "error", input)
	require.NoError(t, err)
	assert.Contains(t, out, "lpratio 2")
	assert.Contains(t, out, "lorentzian")
	assert.Contains(t, out, "npts: 300")
}

func TestRunRejectsBadFlags(t *testing.T) {
	input := writeInput(t)

	_, err := execute(t, "run", "--emin", "-1 eV", input)
	assert.Error(t, err)

	_, err = execute(t, "run", "--policy", "retry", input)
	assert.Error(t, err)

	_, err = execute(t, "run", "--temperatures", "5", input)
	var cerr *btp.ConfigurationError
	assert.ErrorAs(t, err, &cerr)

	_, err = execute(t, "run", "--log-level", "loud", input)
	assert.Error(t, err)
}

func TestSmearingCommand(t *testing.T) {
	out, err := execute(t, "smearing", "--de", "0.5 meV", "gaussian:0.02 eV", "histogram")
	require.NoError(t, err)
	assert.Contains(t, out, "gaussian")
	assert.Contains(t, out, "histogram")
	assert.Contains(t, out, "20.0000")

	_, err = execute(t, "smearing", "boxcar:1")
	assert.Error(t, err)
}

func TestIndexList(t *testing.T) {
	got, err := indexList("0, 2,3")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3}, got)

	got, err = indexList([]any{1, "4"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, got)

	got, err = indexList("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = indexList("x")
	assert.Error(t, err)
}

type stubTauSource struct{ err error }

func (s stubTauSource) TauOnsager(context.Context) ([]*fermi.Onsager, error) {
	return nil, s.err
}

func TestPrintTauOnsagerErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTauOnsager(context.Background(), &buf, stubTauSource{err: btp.ErrNoLinewidths}))
	assert.Empty(t, buf.String())

	singular := &fermi.SingularTransportError{Mu: 0, T: 300}
	err := printTauOnsager(context.Background(), &buf, stubTauSource{err: singular})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fermi.ErrSingular))
	assert.Empty(t, buf.String())
}
