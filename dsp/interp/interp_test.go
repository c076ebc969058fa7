package interp

import (
	"math"
	"testing"
)

// Linear interpolation must hit both endpoints exactly and the midpoint
// of a straight segment.
func TestLinearEndpoints(t *testing.T) {
	if got := Linear(0, 2, 4); got != 2 {
		t.Fatalf("t=0: got %v, want 2", got)
	}
	if got := Linear(1, 2, 4); got != 4 {
		t.Fatalf("t=1: got %v, want 4", got)
	}
	if got := Linear(0.5, 2, 4); got != 3 {
		t.Fatalf("t=0.5: got %v, want 3", got)
	}
}

// Hermite interpolation must pass through x0 at t=0 and x1 at t=1.
func TestHermite4Endpoints(t *testing.T) {
	xm1, x0, x1, x2 := 0.1, 0.5, -0.3, 0.8

	if got := Hermite4(0, xm1, x0, x1, x2); math.Abs(got-x0) > 1e-15 {
		t.Fatalf("t=0: got %v, want %v", got, x0)
	}
	if got := Hermite4(1, xm1, x0, x1, x2); math.Abs(got-x1) > 1e-15 {
		t.Fatalf("t=1: got %v, want %v", got, x1)
	}
}

// On a straight line, cubic interpolation degenerates to the exact
// linear result.
func TestHermite4Linearity(t *testing.T) {
	for _, frac := range []float64{0, 0.25, 0.5, 0.75, 1} {
		got := Hermite4(frac, 1, 2, 3, 4)
		want := 2 + frac
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("t=%v: got %v, want %v", frac, got, want)
		}
	}
}
