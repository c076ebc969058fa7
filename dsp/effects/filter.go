package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-routing/dsp/filter/biquad"
)

// FilterType selects the biquad response shape.
type FilterType int

const (
	FilterLowpass FilterType = iota
	FilterHighpass
	FilterBandpass
)

// String returns the serialization name of the filter type.
func (t FilterType) String() string {
	switch t {
	case FilterLowpass:
		return "lowpass"
	case FilterHighpass:
		return "highpass"
	case FilterBandpass:
		return "bandpass"
	default:
		return "unknown"
	}
}

// ParseFilterType converts a serialization name back to a FilterType.
func ParseFilterType(s string) (FilterType, error) {
	switch s {
	case "lowpass":
		return FilterLowpass, nil
	case "highpass":
		return FilterHighpass, nil
	case "bandpass":
		return FilterBandpass, nil
	default:
		return FilterLowpass, fmt.Errorf("unknown filter type: %q", s)
	}
}

const (
	defaultFilterCutoff    = 1000.0
	defaultFilterResonance = 0.0
	minFilterCutoff        = 1.0

	// Resonance 0..1 maps linearly onto this Q range.
	filterMinQ = 1 / math.Sqrt2
	filterMaxQ = 10.0

	// Cutoff is clamped safely below Nyquist.
	filterNyquistRatio = 0.49
)

// Filter is a resonant lowpass/highpass/bandpass biquad. Coefficients are
// recomputed on any parameter change; the two-sample filter history is
// kept so parameter sweeps do not click.
type Filter struct {
	sampleRate float64
	cutoff     float64
	resonance  float64
	typ        FilterType

	section *biquad.Section
}

// NewFilter creates a lowpass filter with the routing system's defaults.
func NewFilter(sampleRate float64) (*Filter, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("filter sample rate must be > 0: %f", sampleRate)
	}
	f := &Filter{
		sampleRate: sampleRate,
		cutoff:     defaultFilterCutoff,
		resonance:  defaultFilterResonance,
		typ:        FilterLowpass,
		section:    biquad.NewSection(biquad.Coefficients{}),
	}
	f.updateCoefficients()
	return f, nil
}

// SetSampleRate updates sample rate and redesigns the section.
func (f *Filter) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("filter sample rate must be > 0: %f", sampleRate)
	}
	f.sampleRate = sampleRate
	f.updateCoefficients()
	return nil
}

// SetCutoff sets the cutoff frequency in Hz. Values above the usable range
// are clamped safely below Nyquist.
func (f *Filter) SetCutoff(cutoff float64) error {
	if cutoff < minFilterCutoff || math.IsNaN(cutoff) || math.IsInf(cutoff, 0) {
		return fmt.Errorf("filter cutoff must be >= %f Hz: %f", minFilterCutoff, cutoff)
	}
	f.cutoff = cutoff
	f.updateCoefficients()
	return nil
}

// SetResonance sets resonance in [0, 1].
func (f *Filter) SetResonance(resonance float64) error {
	if resonance < 0 || resonance > 1 || math.IsNaN(resonance) || math.IsInf(resonance, 0) {
		return fmt.Errorf("filter resonance must be in [0, 1]: %f", resonance)
	}
	f.resonance = resonance
	f.updateCoefficients()
	return nil
}

// SetType selects lowpass, highpass, or bandpass response.
func (f *Filter) SetType(typ FilterType) error {
	switch typ {
	case FilterLowpass, FilterHighpass, FilterBandpass:
	default:
		return fmt.Errorf("invalid filter type: %d", typ)
	}
	f.typ = typ
	f.updateCoefficients()
	return nil
}

// Reset clears the filter history.
func (f *Filter) Reset() {
	f.section.Reset()
}

// ProcessSample filters one sample.
func (f *Filter) ProcessSample(input float64) float64 {
	return f.section.ProcessSample(input)
}

// ProcessInPlace filters buf in place.
func (f *Filter) ProcessInPlace(buf []float64) {
	f.section.ProcessBlock(buf)
}

// SampleRate returns sample rate in Hz.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// Cutoff returns the cutoff frequency in Hz.
func (f *Filter) Cutoff() float64 { return f.cutoff }

// Resonance returns resonance in [0, 1].
func (f *Filter) Resonance() float64 { return f.resonance }

// Type returns the filter type.
func (f *Filter) Type() FilterType { return f.typ }

func (f *Filter) updateCoefficients() {
	cutoff := f.cutoff
	maxCutoff := f.sampleRate * filterNyquistRatio
	if cutoff > maxCutoff {
		cutoff = maxCutoff
	}

	q := filterMinQ + f.resonance*(filterMaxQ-filterMinQ)

	var c biquad.Coefficients
	switch f.typ {
	case FilterHighpass:
		c = biquad.Highpass(cutoff, q, f.sampleRate)
	case FilterBandpass:
		c = biquad.Bandpass(cutoff, q, f.sampleRate)
	default:
		c = biquad.Lowpass(cutoff, q, f.sampleRate)
	}

	f.section.SetCoefficients(c)
}
