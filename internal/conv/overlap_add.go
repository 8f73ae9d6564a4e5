package conv

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// minBlockSize keeps FFT blocks from degenerating for short kernels.
const minBlockSize = 256

// OverlapAdd returns the full linear convolution of signal and kernel using
// FFT block convolution:
//  1. split signal into blocks,
//  2. multiply each zero-padded block spectrum with the kernel spectrum,
//  3. add the inverse transforms at their block offsets.
func OverlapAdd(signal, kernel []float64) ([]float64, error) {
	if len(signal) == 0 {
		return nil, ErrEmptyInput
	}
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}

	kernelLen := len(kernel)
	blockSize := nextPowerOf2(kernelLen)
	if blockSize < minBlockSize {
		blockSize = minBlockSize
	}
	fftSize := nextPowerOf2(blockSize + kernelLen - 1)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	kernelFFT := make([]complex128, fftSize)
	padded := make([]complex128, fftSize)
	for i, v := range kernel {
		padded[i] = complex(v, 0)
	}
	if err := plan.Forward(kernelFFT, padded); err != nil {
		return nil, fmt.Errorf("conv: failed to compute kernel FFT: %w", err)
	}

	outLen := len(signal) + kernelLen - 1
	out := make([]float64, outLen)
	block := make([]complex128, fftSize)

	for start := 0; start < len(signal); start += blockSize {
		end := min(start+blockSize, len(signal))

		for i := range block {
			block[i] = 0
		}
		for i := start; i < end; i++ {
			block[i-start] = complex(signal[i], 0)
		}

		if err := plan.Forward(block, block); err != nil {
			return nil, fmt.Errorf("conv: forward FFT failed: %w", err)
		}
		for i := range block {
			block[i] *= kernelFFT[i]
		}
		if err := plan.Inverse(block, block); err != nil {
			return nil, fmt.Errorf("conv: inverse FFT failed: %w", err)
		}

		n := end - start + kernelLen - 1
		for i := 0; i < n && start+i < outLen; i++ {
			out[start+i] += real(block[i])
		}
	}
	return out, nil
}
