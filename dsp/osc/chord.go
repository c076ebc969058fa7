package osc

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// noteNames orders the chromatic scale so note names map onto equal
// temperament relative to A4 = 440 Hz.
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteFrequency returns the equal-temperament frequency of a named note,
// e.g. NoteFrequency("A", 4) = 440.
func NoteFrequency(note string, octave int) (float64, error) {
	for i, name := range noteNames {
		if name == note {
			return 440 * math.Exp2(float64(i-9)/12+float64(octave-4)), nil
		}
	}
	return 0, fmt.Errorf("unknown note name: %q", note)
}

// detuneRatio converts a detune in cents to a frequency ratio.
func detuneRatio(cents float64) float64 {
	return math.Exp2(cents / 1200)
}

type chordOscillator struct {
	waveform Waveform
	detune   float64
	volume   float64
}

type chordNote struct {
	name      string
	frequency float64
	phases    []float64
}

// ChordVoice renders a set of held notes through a stack of detunable
// oscillators. Each note/oscillator pair keeps its own phase, and the sum
// is normalized by the pair count so stacking voices does not clip.
type ChordVoice struct {
	sampleRate  float64
	oscillators []chordOscillator
	notes       []chordNote
}

// NewChordVoice creates an empty chord voice. It stays silent until at
// least one oscillator is added and one note is held.
func NewChordVoice(sampleRate float64) (*ChordVoice, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("chord voice sample rate must be positive: %f", sampleRate)
	}
	return &ChordVoice{sampleRate: sampleRate}, nil
}

// AddOscillator appends an oscillator layer with a detune in cents and a
// linear volume.
func (c *ChordVoice) AddOscillator(w Waveform, detuneCents, volume float64) error {
	switch w {
	case WaveSine, WaveSquare, WaveSawtooth, WaveTriangle:
	default:
		return fmt.Errorf("unknown waveform: %d", int(w))
	}
	if math.IsNaN(detuneCents) || math.IsInf(detuneCents, 0) {
		return fmt.Errorf("oscillator detune must be finite: %f", detuneCents)
	}
	if math.IsNaN(volume) || volume < 0 || volume > 1 {
		return fmt.Errorf("oscillator volume must be in [0, 1]: %f", volume)
	}
	c.oscillators = append(c.oscillators, chordOscillator{waveform: w, detune: detuneCents, volume: volume})
	for i := range c.notes {
		c.notes[i].phases = append(c.notes[i].phases, 0)
	}
	return nil
}

// NoteOn starts or retunes a held note. A note already held under the same
// name keeps its oscillator phases.
func (c *ChordVoice) NoteOn(name string, frequency float64) error {
	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return fmt.Errorf("note frequency must be positive: %f", frequency)
	}
	for i := range c.notes {
		if c.notes[i].name == name {
			c.notes[i].frequency = frequency
			return nil
		}
	}
	c.notes = append(c.notes, chordNote{
		name:      name,
		frequency: frequency,
		phases:    make([]float64, len(c.oscillators)),
	})
	return nil
}

// NoteOff releases a held note. Unknown names are ignored.
func (c *ChordVoice) NoteOff(name string) {
	for i := range c.notes {
		if c.notes[i].name == name {
			c.notes = append(c.notes[:i], c.notes[i+1:]...)
			return
		}
	}
}

// NoteCount returns the number of held notes.
func (c *ChordVoice) NoteCount() int { return len(c.notes) }

// OscillatorCount returns the number of oscillator layers.
func (c *ChordVoice) OscillatorCount() int { return len(c.oscillators) }

// Generate fills dst with the normalized sum over all note/oscillator
// pairs, advancing every pair's phase.
func (c *ChordVoice) Generate(dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
	if len(c.notes) == 0 || len(c.oscillators) == 0 {
		return
	}

	for ni := range c.notes {
		note := &c.notes[ni]
		for oi, o := range c.oscillators {
			inc := note.frequency * detuneRatio(o.detune) / c.sampleRate
			p := note.phases[oi]
			for i := range dst {
				dst[i] += o.volume * waveValue(o.waveform, p)
				p = wrapPhase(p + inc)
			}
			note.phases[oi] = p
		}
	}

	vecmath.ScaleBlockInPlace(dst, 1/float64(len(c.notes)*len(c.oscillators)))
}

// Reset rewinds every note/oscillator phase.
func (c *ChordVoice) Reset() {
	for i := range c.notes {
		for j := range c.notes[i].phases {
			c.notes[i].phases[j] = 0
		}
	}
}
