// Package conv provides the linear convolution used to smear energy
// histograms with a broadening kernel.
//
// Short kernels are applied directly with vectorised block operations;
// longer ones go through an FFT-based overlap-add.
package conv

import (
	"errors"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by convolution functions.
var (
	ErrEmptyInput  = errors.New("conv: empty input")
	ErrEmptyKernel = errors.New("conv: empty kernel")
	ErrEvenKernel  = errors.New("conv: centred kernel must have odd length")
)

// directThreshold is the kernel length above which Convolve switches to
// overlap-add.
const directThreshold = 64

// Direct returns the full linear convolution of a and b, of length
// len(a)+len(b)-1.
func Direct(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	dst := make([]float64, len(a)+len(b)-1)
	DirectTo(dst, a, b)
	return dst, nil
}

// DirectTo writes the full convolution of a and b into dst, which must have
// length len(a)+len(b)-1.
func DirectTo(dst, a, b []float64) {
	for i := range dst {
		dst[i] = 0
	}

	m := len(b)
	temp := make([]float64, m)
	for i, x := range a {
		if x == 0 {
			continue
		}
		vecmath.ScaleBlock(temp, b, x)
		vecmath.AddBlockInPlace(dst[i:i+m], temp)
	}
}

// Convolve returns the full linear convolution, choosing direct or FFT
// evaluation from the kernel length.
func Convolve(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}
	if len(b) > len(a) {
		a, b = b, a
	}
	if len(b) <= directThreshold {
		return Direct(a, b)
	}
	return OverlapAdd(a, b)
}

// Same convolves signal with a centred, odd-length kernel and returns a
// result aligned with signal: out[i] = sum_j kernel[j] * signal[i+h-j],
// h = len(kernel)/2. Contributions that would fall outside signal are lost.
func Same(signal, kernel []float64) ([]float64, error) {
	if len(kernel)%2 == 0 {
		return nil, ErrEvenKernel
	}
	full, err := Convolve(signal, kernel)
	if err != nil {
		return nil, err
	}
	h := len(kernel) / 2
	out := make([]float64, len(signal))
	copy(out, full[h:h+len(signal)])
	return out, nil
}

// nextPowerOf2 returns the next power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
