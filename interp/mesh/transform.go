package mesh

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// axisTransform computes out[j] = sum_g in[g] exp(+2*pi*i*j*g/n) in place.
type axisTransform interface {
	apply(line []complex128) error
}

// newAxisTransform prefers an FFT plan and falls back to a direct DFT for
// lengths the FFT library does not accept.
func newAxisTransform(n int) axisTransform {
	if n == 1 {
		return identityAxis{}
	}
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return newDirectAxis(n)
	}
	return &fftAxis{plan: plan, buf: make([]complex128, n)}
}

type identityAxis struct{}

func (identityAxis) apply([]complex128) error { return nil }

// fftAxis evaluates the positive-exponent sum as conj(FFT(conj(x))), which
// only relies on the unnormalised forward transform.
type fftAxis struct {
	plan *algofft.Plan[complex128]
	buf  []complex128
}

func (a *fftAxis) apply(line []complex128) error {
	for i, v := range line {
		line[i] = cmplx.Conj(v)
	}
	if err := a.plan.Forward(a.buf, line); err != nil {
		return fmt.Errorf("mesh: forward FFT failed: %w", err)
	}
	for i, v := range a.buf {
		line[i] = cmplx.Conj(v)
	}
	return nil
}

type directAxis struct {
	twiddle []complex128 // exp(+2*pi*i*m/n)
	buf     []complex128
}

func newDirectAxis(n int) *directAxis {
	tw := make([]complex128, n)
	for m := range tw {
		s, c := math.Sincos(2 * math.Pi * float64(m) / float64(n))
		tw[m] = complex(c, s)
	}
	return &directAxis{twiddle: tw, buf: make([]complex128, n)}
}

func (a *directAxis) apply(line []complex128) error {
	n := len(line)
	for j := 0; j < n; j++ {
		var acc complex128
		for g := 0; g < n; g++ {
			acc += line[g] * a.twiddle[(j*g)%n]
		}
		a.buf[j] = acc
	}
	copy(line, a.buf)
	return nil
}

// transform3 applies axis transforms along all three directions of a
// row-major grid.
type transform3 struct {
	dims [3]int
	axes [3]axisTransform
	line []complex128
}

func newTransform3(dims [3]int) *transform3 {
	t := &transform3{dims: dims}
	maxLen := 0
	for i, n := range dims {
		t.axes[i] = newAxisTransform(n)
		if n > maxLen {
			maxLen = n
		}
	}
	t.line = make([]complex128, maxLen)
	return t
}

func (t *transform3) apply(grid []complex128) error {
	d0, d1, d2 := t.dims[0], t.dims[1], t.dims[2]
	strides := [3]int{d1 * d2, d2, 1}

	for axis := 0; axis < 3; axis++ {
		n := t.dims[axis]
		if n == 1 {
			continue
		}
		stride := strides[axis]
		line := t.line[:n]

		for base := 0; base < d0*d1*d2; base++ {
			// base must be the first element of a line along axis.
			if (base/stride)%n != 0 {
				continue
			}
			for g := 0; g < n; g++ {
				line[g] = grid[base+g*stride]
			}
			if err := t.axes[axis].apply(line); err != nil {
				return err
			}
			for g := 0; g < n; g++ {
				grid[base+g*stride] = line[g]
			}
		}
	}
	return nil
}
