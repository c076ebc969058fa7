// Package spectrum turns rendered audio into frequency-domain data for
// visualization: magnitude helpers plus a streaming analyzer with
// overlapping windowed FFT frames and display smoothing.
package spectrum

import (
	"github.com/cwbudde/algo-vecmath"
)

// Magnitude returns |X[k]| for every bin.
func Magnitude(in []complex128) []float64 {
	re := make([]float64, len(in))
	im := make([]float64, len(in))
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	out := make([]float64, len(in))
	vecmath.Magnitude(out, re, im)
	return out
}

// Power returns |X[k]|^2 for every bin.
func Power(in []complex128) []float64 {
	re := make([]float64, len(in))
	im := make([]float64, len(in))
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	out := make([]float64, len(in))
	vecmath.Power(out, re, im)
	return out
}
