package mesh

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-btp/internal/testutil"
	"github.com/cwbudde/algo-btp/interp/equiv"
	"github.com/cwbudde/algo-btp/interp/fit"
	"github.com/cwbudde/algo-btp/lattice"
)

func fittedCubic(t *testing.T) (lattice.Structure, equiv.Set, fit.Coefficients, [][3]float64, [][]float64) {
	t.Helper()
	s := testutil.CubicStructure(6)
	kp := testutil.IrreducibleCubicKPoints(6)
	set, err := equiv.Compute(s, len(kp), 3)
	require.NoError(t, err)

	f, err := fit.New(set, s.Lattice, kp)
	require.NoError(t, err)

	values := make([][]float64, len(kp))
	for k, p := range kp {
		x, y, z := 2*math.Pi*p[0], 2*math.Pi*p[1], 2*math.Pi*p[2]
		values[k] = []float64{
			testutil.TightBindingSC(p, 0, 0.05),
			0.2 + 0.03*(math.Cos(x)*math.Cos(y)+math.Cos(y)*math.Cos(z)+math.Cos(x)*math.Cos(z)),
		}
	}
	coeffs, err := f.Fit(context.Background(), values, 2)
	require.NoError(t, err)
	return s, set, coeffs, kp, values
}

func TestConstantBand(t *testing.T) {
	s := testutil.CubicStructure(1)
	set, err := equiv.Compute(s, 1, 1)
	require.NoError(t, err)

	res, err := Reconstruct(context.Background(), set, fit.Coefficients{{0.42}}, s.Lattice, 1)
	require.NoError(t, err)
	require.Equal(t, [3]int{1, 1, 1}, res.Dims)
	require.Equal(t, 1, res.NumPoints())
	assert.InDelta(t, 0.42, res.Energies[0][0], 1e-15)
	assert.Equal(t, [3]float64{}, res.Velocities[0][0])
}

func TestChainMesh(t *testing.T) {
	set := equiv.Set{{{0, 0, 0}}, {{-1, 0, 0}, {1, 0, 0}}}
	lat := lattice.Orthorhombic(1, 20, 20)

	// E(k) = 1.5 - 0.5 cos(2 pi k) passes through 1.0 at k=0 and 2.0 at k=1/2.
	res, err := Reconstruct(context.Background(), set, fit.Coefficients{{1.5, -0.5}}, lat, 1)
	require.NoError(t, err)
	require.Equal(t, [3]int{3, 1, 1}, res.Dims)
	testutil.RequireSliceNearlyEqual(t, res.Energies[0], []float64{1.0, 1.75, 1.75}, 1e-12)

	// With a = 1, dE/dk_x = 0.5 sin(2 pi k).
	v := 0.5 * math.Sin(2*math.Pi/3)
	assert.InDelta(t, v, res.Velocities[0][1][0], 1e-12)
	assert.InDelta(t, -v, res.Velocities[0][2][0], 1e-12)
}

func TestReconstructMatchesEvaluate(t *testing.T) {
	s, set, coeffs, _, _ := fittedCubic(t)

	res, err := Reconstruct(context.Background(), set, coeffs, s.Lattice, 3)
	require.NoError(t, err)

	kpoints := make([][3]float64, res.NumPoints())
	for i := range kpoints {
		kpoints[i] = res.KPoint(i)
	}
	direct, err := Evaluate(set, coeffs, s.Lattice, kpoints)
	require.NoError(t, err)

	for b := 0; b < coeffs.NumBands(); b++ {
		testutil.RequireFinite(t, res.Energies[b])
		testutil.RequireSliceNearlyEqual(t, res.Energies[b], direct.Energies[b], 1e-10)
		for i := range kpoints {
			for al := 0; al < 3; al++ {
				require.InDelta(t, direct.Velocities[b][i][al], res.Velocities[b][i][al], 1e-9)
			}
			testutil.RequireTensorNearlyEqual(t, res.Curvature[b][i], direct.Curvature[b][i], 1e-8)
			testutil.RequireSymmetric(t, res.Curvature[b][i], 0)
		}
	}
}

func TestEvaluateInterpolatesInputs(t *testing.T) {
	s, set, coeffs, kp, values := fittedCubic(t)

	res, err := Evaluate(set, coeffs, s.Lattice, kp)
	require.NoError(t, err)
	for b := 0; b < coeffs.NumBands(); b++ {
		for k := range kp {
			assert.InDelta(t, values[k][b], res.Energies[b][k], 1e-9)
		}
	}
}

func TestVelocityMatchesFiniteDifference(t *testing.T) {
	s, set, coeffs, _, _ := fittedCubic(t)
	const h = 1e-5

	k0 := [3]float64{0.13, 0.07, 0.21}
	var pts [][3]float64
	pts = append(pts, k0)
	for al := 0; al < 3; al++ {
		// Shift Cartesian k_al by +-h: k_frac_i += h * a_i[al] / (2 pi).
		for _, sign := range []float64{1, -1} {
			p := k0
			for i := 0; i < 3; i++ {
				p[i] += sign * h * s.Lattice[i][al] / (2 * math.Pi)
			}
			pts = append(pts, p)
		}
	}

	res, err := Evaluate(set, coeffs, s.Lattice, pts)
	require.NoError(t, err)
	for b := 0; b < coeffs.NumBands(); b++ {
		for al := 0; al < 3; al++ {
			fd := (res.Energies[b][1+2*al] - res.Energies[b][2+2*al]) / (2 * h)
			assert.InDelta(t, fd, res.Velocities[b][0][al], 1e-6, "band %d axis %d", b, al)

			for be := 0; be < 3; be++ {
				fdc := (res.Velocities[b][1+2*al][be] - res.Velocities[b][2+2*al][be]) / (2 * h)
				assert.InDelta(t, fdc, res.Curvature[b][0][al][be], 1e-5, "band %d [%d][%d]", b, al, be)
			}
		}
	}
}

func TestReconstructCoefficientMismatch(t *testing.T) {
	set := equiv.Set{{{0, 0, 0}}}
	_, err := Reconstruct(context.Background(), set, fit.Coefficients{{1, 2}}, lattice.Cubic(1), 1)
	assert.ErrorIs(t, err, ErrCoefficientCount)
}

func TestDirectAxisMatchesFFTAxis(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8, 9} {
		in := make([]complex128, n)
		for i := range in {
			in[i] = complex(float64(i)-1.5, 0.25*float64(i*i))
		}
		a := append([]complex128(nil), in...)
		b := append([]complex128(nil), in...)

		require.NoError(t, newDirectAxis(n).apply(a))
		require.NoError(t, newAxisTransform(n).apply(b))
		for i := range a {
			require.InDelta(t, real(a[i]), real(b[i]), 1e-9, "n=%d i=%d", n, i)
			require.InDelta(t, imag(a[i]), imag(b[i]), 1e-9, "n=%d i=%d", n, i)
		}
	}
}
