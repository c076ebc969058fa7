package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-routing/dsp/delay"
)

const (
	defaultDelayTimeSeconds = 0.5
	defaultDelayFeedback    = 0.5
	defaultDelayMix         = 0.5
	minDelayTimeSeconds     = 0.001
	maxDelayTimeSeconds     = 2.0
)

// Delay is a feedback delay with dry/wet mix.
type Delay struct {
	sampleRate   float64
	delaySeconds float64
	feedback     float64
	mix          float64

	delaySamples int
	line         *delay.Line
}

// NewDelay creates a delay with the routing system's defaults.
func NewDelay(sampleRate float64) (*Delay, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("delay sample rate must be > 0: %f", sampleRate)
	}
	d := &Delay{
		sampleRate:   sampleRate,
		delaySeconds: defaultDelayTimeSeconds,
		feedback:     defaultDelayFeedback,
		mix:          defaultDelayMix,
	}
	if err := d.reconfigureLine(); err != nil {
		return nil, err
	}
	return d, nil
}

// SetSampleRate updates sample rate and resizes the line accordingly.
func (d *Delay) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("delay sample rate must be > 0: %f", sampleRate)
	}
	d.sampleRate = sampleRate
	return d.reconfigureLine()
}

// SetTime sets delay time in seconds. The line only grows; shrinking the
// time keeps the allocated history so the write cursor phase is preserved.
func (d *Delay) SetTime(seconds float64) error {
	if seconds < minDelayTimeSeconds || seconds > maxDelayTimeSeconds ||
		math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Errorf("delay time must be in [%f, %f]: %f",
			minDelayTimeSeconds, maxDelayTimeSeconds, seconds)
	}
	d.delaySeconds = seconds
	return d.reconfigureLine()
}

// SetFeedback sets feedback amount in [0, 1].
func (d *Delay) SetFeedback(feedback float64) error {
	if feedback < 0 || feedback > 1 || math.IsNaN(feedback) || math.IsInf(feedback, 0) {
		return fmt.Errorf("delay feedback must be in [0, 1]: %f", feedback)
	}
	d.feedback = feedback
	return nil
}

// SetMix sets wet amount in [0, 1].
func (d *Delay) SetMix(mix float64) error {
	if mix < 0 || mix > 1 || math.IsNaN(mix) || math.IsInf(mix, 0) {
		return fmt.Errorf("delay mix must be in [0, 1]: %f", mix)
	}
	d.mix = mix
	return nil
}

// Reset clears delay state.
func (d *Delay) Reset() {
	d.line.Reset()
}

// ProcessSample processes one sample.
func (d *Delay) ProcessSample(input float64) float64 {
	delayed := d.line.Read(d.delaySamples)
	d.line.Write(input + delayed*d.feedback)
	return input*(1-d.mix) + delayed*d.mix
}

// ProcessInPlace applies the delay to buf in place.
func (d *Delay) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = d.ProcessSample(buf[i])
	}
}

// SampleRate returns sample rate in Hz.
func (d *Delay) SampleRate() float64 { return d.sampleRate }

// Time returns delay time in seconds.
func (d *Delay) Time() float64 { return d.delaySeconds }

// Feedback returns feedback amount in [0, 1].
func (d *Delay) Feedback() float64 { return d.feedback }

// Mix returns wet amount in [0, 1].
func (d *Delay) Mix() float64 { return d.mix }

func (d *Delay) reconfigureLine() error {
	d.delaySamples = int(math.Round(d.delaySeconds * d.sampleRate))
	if d.delaySamples < 1 {
		d.delaySamples = 1
	}

	if d.line == nil {
		line, err := delay.New(d.delaySamples)
		if err != nil {
			return err
		}
		d.line = line
		return nil
	}

	if d.line.Len() < d.delaySamples {
		return d.line.Resize(d.delaySamples)
	}
	return nil
}
