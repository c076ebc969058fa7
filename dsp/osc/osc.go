// Package osc provides block generators: wave oscillators, noise sources,
// a two-operator FM voice, and a polyphonic chord voice. All generators
// keep phase across calls so consecutive blocks join without
// discontinuities.
package osc

import (
	"fmt"
	"math"
)

// Waveform selects the oscillator shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveSawtooth
	WaveTriangle
)

// String returns the stable name used in serialized state.
func (w Waveform) String() string {
	switch w {
	case WaveSine:
		return "sine"
	case WaveSquare:
		return "square"
	case WaveSawtooth:
		return "sawtooth"
	case WaveTriangle:
		return "triangle"
	default:
		return "unknown"
	}
}

// ParseWaveform converts a stable name back into a Waveform.
func ParseWaveform(name string) (Waveform, error) {
	switch name {
	case "sine":
		return WaveSine, nil
	case "square":
		return WaveSquare, nil
	case "sawtooth":
		return WaveSawtooth, nil
	case "triangle":
		return WaveTriangle, nil
	default:
		return 0, fmt.Errorf("unknown waveform: %q", name)
	}
}

const (
	defaultOscFrequency = 440.0
	defaultOscAmplitude = 0.5

	minOscFrequency = 20.0
	maxOscFrequency = 20000.0
)

// waveValue evaluates a waveform at cycle phase p in [0, 1).
func waveValue(w Waveform, p float64) float64 {
	switch w {
	case WaveSine:
		return math.Sin(2 * math.Pi * p)
	case WaveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case WaveSawtooth:
		return 2*p - 1
	case WaveTriangle:
		if p < 0.5 {
			return 4*p - 1
		}
		return 3 - 4*p
	default:
		return 0
	}
}

// wrapPhase folds a cycle phase back into [0, 1).
func wrapPhase(p float64) float64 {
	return p - math.Floor(p)
}

// Oscillator is a single band-agnostic wave generator.
type Oscillator struct {
	sampleRate float64
	frequency  float64
	amplitude  float64
	waveform   Waveform
	phase      float64
}

// NewOscillator creates a 440 Hz sine oscillator at half amplitude.
func NewOscillator(sampleRate float64) (*Oscillator, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("oscillator sample rate must be positive: %f", sampleRate)
	}
	return &Oscillator{
		sampleRate: sampleRate,
		frequency:  defaultOscFrequency,
		amplitude:  defaultOscAmplitude,
		waveform:   WaveSine,
	}, nil
}

// SetFrequency sets the oscillator frequency in Hz within the audible band.
func (o *Oscillator) SetFrequency(hz float64) error {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz < minOscFrequency || hz > maxOscFrequency {
		return fmt.Errorf("oscillator frequency must be in [%v, %v] Hz: %f", minOscFrequency, maxOscFrequency, hz)
	}
	o.frequency = hz
	return nil
}

// SetAmplitude sets the peak amplitude in [0, 1].
func (o *Oscillator) SetAmplitude(a float64) error {
	if math.IsNaN(a) || a < 0 || a > 1 {
		return fmt.Errorf("oscillator amplitude must be in [0, 1]: %f", a)
	}
	o.amplitude = a
	return nil
}

// SetWaveform selects the oscillator shape.
func (o *Oscillator) SetWaveform(w Waveform) error {
	switch w {
	case WaveSine, WaveSquare, WaveSawtooth, WaveTriangle:
		o.waveform = w
		return nil
	default:
		return fmt.Errorf("unknown waveform: %d", int(w))
	}
}

// Frequency returns the oscillator frequency in Hz.
func (o *Oscillator) Frequency() float64 { return o.frequency }

// Amplitude returns the peak amplitude.
func (o *Oscillator) Amplitude() float64 { return o.amplitude }

// Waveform returns the oscillator shape.
func (o *Oscillator) Waveform() Waveform { return o.waveform }

// Generate fills dst with the next block, advancing the phase so the
// following call continues seamlessly.
func (o *Oscillator) Generate(dst []float64) {
	inc := o.frequency / o.sampleRate
	p := o.phase
	for i := range dst {
		dst[i] = o.amplitude * waveValue(o.waveform, p)
		p = wrapPhase(p + inc)
	}
	o.phase = p
}

// Reset rewinds the phase to the start of the cycle.
func (o *Oscillator) Reset() {
	o.phase = 0
}
