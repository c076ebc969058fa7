package osc

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-routing/internal/testutil"
)

// With zero modulation index the voice degenerates to a plain sine at the
// carrier frequency.
func TestFMVoiceZeroIndexIsSine(t *testing.T) {
	const sampleRate = 44100.0

	v, err := NewFMVoice(sampleRate)
	if err != nil {
		t.Fatalf("NewFMVoice: %v", err)
	}
	if err := v.SetModIndex(0); err != nil {
		t.Fatalf("SetModIndex: %v", err)
	}
	if err := v.SetAmplitude(1); err != nil {
		t.Fatalf("SetAmplitude: %v", err)
	}

	out := make([]float64, 1024)
	v.Generate(out)

	for i, got := range out {
		want := math.Sin(2 * math.Pi * 440 * float64(i) / sampleRate)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("index %d: got %v, want %v", i, got, want)
		}
	}
}

// Generating two consecutive blocks must match one block of the combined
// length; both operator phases carry across the boundary.
func TestFMVoicePhaseContinuity(t *testing.T) {
	a, _ := NewFMVoice(48000)
	b, _ := NewFMVoice(48000)

	whole := make([]float64, 2048)
	a.Generate(whole)

	split := make([]float64, 2048)
	b.Generate(split[:700])
	b.Generate(split[700:])

	testutil.RequireSliceEqual(t, split, whole)
}

// Modulation widens the waveform beyond a pure carrier sine without
// exceeding the amplitude bound.
func TestFMVoiceModulationBounded(t *testing.T) {
	v, _ := NewFMVoice(44100)
	if err := v.SetAmplitude(1); err != nil {
		t.Fatalf("SetAmplitude: %v", err)
	}

	out := make([]float64, 8192)
	v.Generate(out)

	testutil.RequireFinite(t, out)
	if peak := testutil.MaxAbs(out); peak > 1 {
		t.Fatalf("peak %v exceeds amplitude", peak)
	}
}

// Reset rewinds both phases so the voice replays the identical block.
func TestFMVoiceResetReplays(t *testing.T) {
	v, _ := NewFMVoice(44100)

	first := make([]float64, 1024)
	v.Generate(first)

	v.Reset()

	second := make([]float64, 1024)
	v.Generate(second)

	testutil.RequireSliceEqual(t, second, first)
}

// Out-of-range parameters are rejected with errors.
func TestFMVoiceValidation(t *testing.T) {
	if _, err := NewFMVoice(math.Inf(1)); err == nil {
		t.Fatalf("NewFMVoice(+Inf) must fail")
	}

	v, _ := NewFMVoice(44100)
	if err := v.SetCarrierFrequency(10); err == nil {
		t.Fatalf("SetCarrierFrequency(10) must fail")
	}
	if err := v.SetModFrequency(0.5); err == nil {
		t.Fatalf("SetModFrequency(0.5) must fail")
	}
	if err := v.SetModFrequency(6000); err == nil {
		t.Fatalf("SetModFrequency(6000) must fail")
	}
	if err := v.SetModIndex(11); err == nil {
		t.Fatalf("SetModIndex(11) must fail")
	}
	if err := v.SetModIndex(-1); err == nil {
		t.Fatalf("SetModIndex(-1) must fail")
	}
	if err := v.SetAmplitude(2); err == nil {
		t.Fatalf("SetAmplitude(2) must fail")
	}
}
