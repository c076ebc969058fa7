package osc

import (
	"fmt"
	"math"
)

const (
	defaultFMCarrier  = 440.0
	defaultFMModFreq  = 220.0
	defaultFMModIndex = 2.0

	minFMModFreq  = 1.0
	maxFMModFreq  = 5000.0
	maxFMModIndex = 10.0
)

// FMVoice is a two-operator frequency modulation voice: a sine modulator
// deflects the phase of a sine carrier.
type FMVoice struct {
	sampleRate   float64
	carrierFreq  float64
	modFreq      float64
	modIndex     float64
	amplitude    float64
	carrierPhase float64
	modPhase     float64
}

// NewFMVoice creates a voice with a 440 Hz carrier, 220 Hz modulator and
// modulation index 2.
func NewFMVoice(sampleRate float64) (*FMVoice, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("fm voice sample rate must be positive: %f", sampleRate)
	}
	return &FMVoice{
		sampleRate:  sampleRate,
		carrierFreq: defaultFMCarrier,
		modFreq:     defaultFMModFreq,
		modIndex:    defaultFMModIndex,
		amplitude:   defaultOscAmplitude,
	}, nil
}

// SetCarrierFrequency sets the carrier frequency in Hz within the audible
// band.
func (v *FMVoice) SetCarrierFrequency(hz float64) error {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz < minOscFrequency || hz > maxOscFrequency {
		return fmt.Errorf("fm carrier frequency must be in [%v, %v] Hz: %f", minOscFrequency, maxOscFrequency, hz)
	}
	v.carrierFreq = hz
	return nil
}

// SetModFrequency sets the modulator frequency in Hz.
func (v *FMVoice) SetModFrequency(hz float64) error {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz < minFMModFreq || hz > maxFMModFreq {
		return fmt.Errorf("fm modulator frequency must be in [%v, %v] Hz: %f", minFMModFreq, maxFMModFreq, hz)
	}
	v.modFreq = hz
	return nil
}

// SetModIndex sets the modulation depth in [0, 10].
func (v *FMVoice) SetModIndex(index float64) error {
	if math.IsNaN(index) || index < 0 || index > maxFMModIndex {
		return fmt.Errorf("fm modulation index must be in [0, %v]: %f", maxFMModIndex, index)
	}
	v.modIndex = index
	return nil
}

// SetAmplitude sets the peak amplitude in [0, 1].
func (v *FMVoice) SetAmplitude(a float64) error {
	if math.IsNaN(a) || a < 0 || a > 1 {
		return fmt.Errorf("fm amplitude must be in [0, 1]: %f", a)
	}
	v.amplitude = a
	return nil
}

// CarrierFrequency returns the carrier frequency in Hz.
func (v *FMVoice) CarrierFrequency() float64 { return v.carrierFreq }

// ModFrequency returns the modulator frequency in Hz.
func (v *FMVoice) ModFrequency() float64 { return v.modFreq }

// ModIndex returns the modulation depth.
func (v *FMVoice) ModIndex() float64 { return v.modIndex }

// Amplitude returns the peak amplitude.
func (v *FMVoice) Amplitude() float64 { return v.amplitude }

// Generate fills dst with the next block, keeping both operator phases
// across calls.
func (v *FMVoice) Generate(dst []float64) {
	carrierInc := v.carrierFreq / v.sampleRate
	modInc := v.modFreq / v.sampleRate
	cp, mp := v.carrierPhase, v.modPhase
	for i := range dst {
		mod := math.Sin(2 * math.Pi * mp)
		dst[i] = v.amplitude * math.Sin(2*math.Pi*cp+v.modIndex*mod)
		cp = wrapPhase(cp + carrierInc)
		mp = wrapPhase(mp + modInc)
	}
	v.carrierPhase, v.modPhase = cp, mp
}

// Reset rewinds both operator phases.
func (v *FMVoice) Reset() {
	v.carrierPhase = 0
	v.modPhase = 0
}
