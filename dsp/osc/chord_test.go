package osc

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-routing/internal/testutil"
)

// A chord voice with no oscillators or no held notes renders silence.
func TestChordVoiceSilentWhenEmpty(t *testing.T) {
	c, err := NewChordVoice(44100)
	if err != nil {
		t.Fatalf("NewChordVoice: %v", err)
	}

	buf := make([]float64, 256)
	for i := range buf {
		buf[i] = 1
	}
	c.Generate(buf)
	testutil.RequireAllZero(t, buf)

	if err := c.AddOscillator(WaveSine, 0, 1); err != nil {
		t.Fatalf("AddOscillator: %v", err)
	}
	for i := range buf {
		buf[i] = 1
	}
	c.Generate(buf)
	testutil.RequireAllZero(t, buf)
}

// One sine oscillator holding one note renders the same samples as a
// plain oscillator at that frequency.
func TestChordVoiceSingleNoteMatchesOscillator(t *testing.T) {
	c, _ := NewChordVoice(44100)
	if err := c.AddOscillator(WaveSine, 0, 1); err != nil {
		t.Fatalf("AddOscillator: %v", err)
	}
	if err := c.NoteOn("A4", 440); err != nil {
		t.Fatalf("NoteOn: %v", err)
	}

	o, _ := NewOscillator(44100)
	if err := o.SetAmplitude(1); err != nil {
		t.Fatalf("SetAmplitude: %v", err)
	}

	got := make([]float64, 1024)
	want := make([]float64, 1024)
	c.Generate(got)
	o.Generate(want)

	testutil.RequireSliceEqual(t, got, want)
}

// Stacking identical oscillators changes nothing: the pair-count
// normalization cancels the extra layers exactly.
func TestChordVoiceNormalization(t *testing.T) {
	single, _ := NewChordVoice(44100)
	double, _ := NewChordVoice(44100)

	if err := single.AddOscillator(WaveSawtooth, 0, 1); err != nil {
		t.Fatalf("AddOscillator: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := double.AddOscillator(WaveSawtooth, 0, 1); err != nil {
			t.Fatalf("AddOscillator: %v", err)
		}
	}
	if err := single.NoteOn("E3", 164.81); err != nil {
		t.Fatalf("NoteOn: %v", err)
	}
	if err := double.NoteOn("E3", 164.81); err != nil {
		t.Fatalf("NoteOn: %v", err)
	}

	a := make([]float64, 1024)
	b := make([]float64, 1024)
	single.Generate(a)
	double.Generate(b)

	testutil.RequireSliceEqual(t, b, a)
}

// A +1200 cent detune doubles the rendered frequency.
func TestChordVoiceDetuneOctave(t *testing.T) {
	c, _ := NewChordVoice(44100)
	if err := c.AddOscillator(WaveSine, 1200, 1); err != nil {
		t.Fatalf("AddOscillator: %v", err)
	}
	if err := c.NoteOn("A4", 440); err != nil {
		t.Fatalf("NoteOn: %v", err)
	}

	o, _ := NewOscillator(44100)
	if err := o.SetFrequency(880); err != nil {
		t.Fatalf("SetFrequency: %v", err)
	}
	if err := o.SetAmplitude(1); err != nil {
		t.Fatalf("SetAmplitude: %v", err)
	}

	got := make([]float64, 1024)
	want := make([]float64, 1024)
	c.Generate(got)
	o.Generate(want)

	testutil.RequireSliceEqual(t, got, want)
}

// NoteOn re-tunes a held note in place; NoteOff releases it and ignores
// unknown names.
func TestChordVoiceNoteLifecycle(t *testing.T) {
	c, _ := NewChordVoice(44100)
	if err := c.AddOscillator(WaveSine, 0, 1); err != nil {
		t.Fatalf("AddOscillator: %v", err)
	}

	if err := c.NoteOn("C4", 261.63); err != nil {
		t.Fatalf("NoteOn: %v", err)
	}
	if err := c.NoteOn("E4", 329.63); err != nil {
		t.Fatalf("NoteOn: %v", err)
	}
	if c.NoteCount() != 2 {
		t.Fatalf("NoteCount = %d, want 2", c.NoteCount())
	}

	if err := c.NoteOn("C4", 523.25); err != nil {
		t.Fatalf("NoteOn retune: %v", err)
	}
	if c.NoteCount() != 2 {
		t.Fatalf("retune added a note: %d", c.NoteCount())
	}

	c.NoteOff("E4")
	c.NoteOff("G4")
	if c.NoteCount() != 1 {
		t.Fatalf("NoteCount = %d, want 1", c.NoteCount())
	}
	if c.OscillatorCount() != 1 {
		t.Fatalf("OscillatorCount = %d, want 1", c.OscillatorCount())
	}
}

// Note names map onto equal temperament anchored at A4 = 440 Hz.
func TestNoteFrequency(t *testing.T) {
	a4, err := NoteFrequency("A", 4)
	if err != nil {
		t.Fatalf("NoteFrequency(A4): %v", err)
	}
	if a4 != 440 {
		t.Fatalf("A4 = %v, want 440", a4)
	}

	a5, _ := NoteFrequency("A", 5)
	if math.Abs(a5-880) > 1e-9 {
		t.Fatalf("A5 = %v, want 880", a5)
	}

	c4, _ := NoteFrequency("C", 4)
	if math.Abs(c4-261.6255653) > 1e-4 {
		t.Fatalf("C4 = %v, want 261.6256", c4)
	}

	if _, err := NoteFrequency("H", 4); err == nil {
		t.Fatalf("NoteFrequency(H4) must fail")
	}
}

// Oscillator and note parameters are validated.
func TestChordVoiceValidation(t *testing.T) {
	if _, err := NewChordVoice(-44100); err == nil {
		t.Fatalf("NewChordVoice(-44100) must fail")
	}

	c, _ := NewChordVoice(44100)
	if err := c.AddOscillator(Waveform(7), 0, 1); err == nil {
		t.Fatalf("AddOscillator(bad waveform) must fail")
	}
	if err := c.AddOscillator(WaveSine, math.NaN(), 1); err == nil {
		t.Fatalf("AddOscillator(NaN detune) must fail")
	}
	if err := c.AddOscillator(WaveSine, 0, 1.5); err == nil {
		t.Fatalf("AddOscillator(volume 1.5) must fail")
	}
	if err := c.NoteOn("A4", 0); err == nil {
		t.Fatalf("NoteOn(0 Hz) must fail")
	}
	if err := c.NoteOn("A4", math.Inf(1)); err == nil {
		t.Fatalf("NoteOn(+Inf) must fail")
	}
}
