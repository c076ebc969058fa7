// Package interp provides fractional sample interpolation for delay lines
// and sample-rate matching.
package interp

// Linear interpolates between x0 and x1 at position t in [0, 1].
func Linear(t, x0, x1 float64) float64 {
	return x0 + t*(x1-x0)
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c := (x1 - xm1) * 0.5
	v := x0 - x1
	w := c + v
	a := w + v + (x2-x0)*0.5
	b := w + a
	return ((a*t-b)*t+c)*t + x0
}
