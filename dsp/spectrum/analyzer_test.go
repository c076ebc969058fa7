package spectrum

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-routing/internal/testutil"
)

// A steady sine concentrates energy near its frequency and leaves distant
// bins far down.
func TestAnalyzerSinePeak(t *testing.T) {
	a, err := NewAnalyzer(44100, WithSmoothing(0))
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	a.Push(testutil.DeterministicSine(440, 44100, 1, 8192))
	if !a.Ready() {
		t.Fatalf("analyzer not ready after 8192 samples")
	}

	curve := a.CurveDB([]float64{440, 5000})
	if curve[0] < -10 {
		t.Fatalf("440 Hz level %v dB, want near full scale", curve[0])
	}
	if curve[1] > -60 {
		t.Fatalf("5 kHz level %v dB, want far down", curve[1])
	}
	if curve[0]-curve[1] < 50 {
		t.Fatalf("peak-to-skirt separation only %v dB", curve[0]-curve[1])
	}
}

// Until a full frame has accumulated, the curve sits at the display floor.
func TestAnalyzerFloorBeforeReady(t *testing.T) {
	a, _ := NewAnalyzer(44100)

	a.Push(testutil.DeterministicSine(1000, 44100, 1, 1024))
	if a.Ready() {
		t.Fatalf("analyzer ready after half a frame")
	}

	curve := a.CurveDB([]float64{100, 1000, 10000})
	for i, v := range curve {
		if v != FloorDB {
			t.Fatalf("index %d: %v, want floor %v", i, v, FloorDB)
		}
	}
}

// With smoothing enabled the display decays gradually after the signal
// stops instead of snapping to the floor.
func TestAnalyzerSmoothingDecay(t *testing.T) {
	a, _ := NewAnalyzer(44100, WithSmoothing(0.8))

	a.Push(testutil.DeterministicSine(1000, 44100, 1, 8192))
	loud := a.CurveDB([]float64{1000})[0]

	silence := make([]float64, 2048)
	a.Push(silence)
	after := a.CurveDB([]float64{1000})[0]

	if after >= loud {
		t.Fatalf("display did not decay: %v -> %v", loud, after)
	}
	if after <= FloorDB+1 {
		t.Fatalf("smoothed display snapped to floor: %v", after)
	}
}

// Bin accessors expose the spectrum dimensions.
func TestAnalyzerBins(t *testing.T) {
	a, _ := NewAnalyzer(48000, WithFFTSize(1024))

	if a.FFTSize() != 1024 {
		t.Fatalf("FFTSize = %d, want 1024", a.FFTSize())
	}
	if got := a.BinHz(); math.Abs(got-48000.0/1024.0) > 1e-12 {
		t.Fatalf("BinHz = %v", got)
	}

	bins := a.BinsDB()
	if len(bins) != 513 {
		t.Fatalf("BinsDB length %d, want 513", len(bins))
	}
	for i, v := range bins {
		if v != FloorDB {
			t.Fatalf("bin %d = %v before any frame", i, v)
		}
	}

	// The copy must not alias analyzer state.
	bins[0] = 0
	if a.BinsDB()[0] != FloorDB {
		t.Fatalf("BinsDB returned aliased state")
	}
}

// Reset empties the ring and returns the display to the floor.
func TestAnalyzerReset(t *testing.T) {
	a, _ := NewAnalyzer(44100, WithSmoothing(0))

	a.Push(testutil.DeterministicSine(440, 44100, 1, 4096))
	if !a.Ready() {
		t.Fatalf("analyzer not ready")
	}

	a.Reset()
	if a.Ready() {
		t.Fatalf("Reset left analyzer ready")
	}
	if got := a.CurveDB([]float64{440})[0]; got != FloorDB {
		t.Fatalf("after Reset: %v, want floor", got)
	}
}

// Configuration outside the supported ranges is rejected.
func TestAnalyzerValidation(t *testing.T) {
	if _, err := NewAnalyzer(0); err == nil {
		t.Fatalf("NewAnalyzer(0) must fail")
	}
	if _, err := NewAnalyzer(44100, WithFFTSize(1000)); err == nil {
		t.Fatalf("fft size 1000 must fail")
	}
	if _, err := NewAnalyzer(44100, WithFFTSize(16384)); err == nil {
		t.Fatalf("fft size 16384 must fail")
	}
	if _, err := NewAnalyzer(44100, WithOverlap(0.99)); err == nil {
		t.Fatalf("overlap 0.99 must fail")
	}
	if _, err := NewAnalyzer(44100, WithSmoothing(1)); err == nil {
		t.Fatalf("smoothing 1 must fail")
	}
}

// The magnitude helpers agree with the closed forms.
func TestMagnitudeAndPower(t *testing.T) {
	in := []complex128{complex(3, 4), complex(0, 0), complex(-1, 0)}

	mag := Magnitude(in)
	if mag[0] != 5 || mag[1] != 0 || mag[2] != 1 {
		t.Fatalf("Magnitude = %v", mag)
	}

	pow := Power(in)
	if pow[0] != 25 || pow[1] != 0 || pow[2] != 1 {
		t.Fatalf("Power = %v", pow)
	}
}
