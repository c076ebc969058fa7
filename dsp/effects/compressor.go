package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-routing/dsp/core"
)

const (
	defaultCompressorThresholdDB = -20.0
	defaultCompressorRatio       = 4.0
	defaultCompressorAttack      = 0.01
	defaultCompressorRelease     = 0.1

	minCompressorThresholdDB = -60.0
	maxCompressorThresholdDB = 0.0
	minCompressorRatio       = 1.0
	maxCompressorRatio       = 100.0
	minCompressorTime        = 0.0001
	maxCompressorAttack      = 1.0
	maxCompressorRelease     = 5.0
)

// Compressor is a peak-envelope dynamics compressor. The envelope follows
// the absolute input with separate exponential attack and release time
// constants; gain reduction is computed in the dB domain only while the
// envelope exceeds the threshold, so signals below it pass bit-identical.
type Compressor struct {
	sampleRate  float64
	thresholdDB float64
	ratio       float64
	attack      float64
	release     float64

	envelope     float64
	attackCoeff  float64
	releaseCoeff float64
	thresholdLin float64
}

// NewCompressor creates a compressor with the routing system's defaults.
func NewCompressor(sampleRate float64) (*Compressor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("compressor sample rate must be > 0: %f", sampleRate)
	}
	c := &Compressor{
		sampleRate:  sampleRate,
		thresholdDB: defaultCompressorThresholdDB,
		ratio:       defaultCompressorRatio,
		attack:      defaultCompressorAttack,
		release:     defaultCompressorRelease,
	}
	c.updateCoefficients()
	return c, nil
}

// SetSampleRate updates sample rate and the derived time constants.
func (c *Compressor) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("compressor sample rate must be > 0: %f", sampleRate)
	}
	c.sampleRate = sampleRate
	c.updateCoefficients()
	return nil
}

// SetThreshold sets the compression threshold in dB.
func (c *Compressor) SetThreshold(dB float64) error {
	if dB < minCompressorThresholdDB || dB > maxCompressorThresholdDB ||
		math.IsNaN(dB) || math.IsInf(dB, 0) {
		return fmt.Errorf("compressor threshold must be in [%f, %f] dB: %f",
			minCompressorThresholdDB, maxCompressorThresholdDB, dB)
	}
	c.thresholdDB = dB
	c.updateCoefficients()
	return nil
}

// SetRatio sets the compression ratio (n:1).
func (c *Compressor) SetRatio(ratio float64) error {
	if ratio < minCompressorRatio || ratio > maxCompressorRatio ||
		math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return fmt.Errorf("compressor ratio must be in [%f, %f]: %f",
			minCompressorRatio, maxCompressorRatio, ratio)
	}
	c.ratio = ratio
	return nil
}

// SetAttack sets the attack time in seconds.
func (c *Compressor) SetAttack(seconds float64) error {
	if seconds < minCompressorTime || seconds > maxCompressorAttack ||
		math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Errorf("compressor attack must be in [%f, %f] s: %f",
			minCompressorTime, maxCompressorAttack, seconds)
	}
	c.attack = seconds
	c.updateCoefficients()
	return nil
}

// SetRelease sets the release time in seconds.
func (c *Compressor) SetRelease(seconds float64) error {
	if seconds < minCompressorTime || seconds > maxCompressorRelease ||
		math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Errorf("compressor release must be in [%f, %f] s: %f",
			minCompressorTime, maxCompressorRelease, seconds)
	}
	c.release = seconds
	c.updateCoefficients()
	return nil
}

// Reset clears the envelope follower.
func (c *Compressor) Reset() {
	c.envelope = 0
}

// ProcessSample processes one sample.
func (c *Compressor) ProcessSample(input float64) float64 {
	mag := math.Abs(input)

	coeff := c.releaseCoeff
	if mag > c.envelope {
		coeff = c.attackCoeff
	}
	c.envelope = core.FlushDenormals(coeff*c.envelope + (1-coeff)*mag)

	if c.envelope <= c.thresholdLin {
		return input
	}

	inDB := core.LinearToDB(c.envelope)
	outDB := c.thresholdDB + (inDB-c.thresholdDB)/c.ratio
	return input * core.DBToLinear(outDB-inDB)
}

// ProcessInPlace applies compression to buf in place.
func (c *Compressor) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = c.ProcessSample(buf[i])
	}
}

// SampleRate returns sample rate in Hz.
func (c *Compressor) SampleRate() float64 { return c.sampleRate }

// Threshold returns the threshold in dB.
func (c *Compressor) Threshold() float64 { return c.thresholdDB }

// Ratio returns the compression ratio.
func (c *Compressor) Ratio() float64 { return c.ratio }

// Attack returns the attack time in seconds.
func (c *Compressor) Attack() float64 { return c.attack }

// Release returns the release time in seconds.
func (c *Compressor) Release() float64 { return c.release }

// Envelope returns the current envelope level (linear).
func (c *Compressor) Envelope() float64 { return c.envelope }

func (c *Compressor) updateCoefficients() {
	c.attackCoeff = math.Exp(-1 / (c.sampleRate * c.attack))
	c.releaseCoeff = math.Exp(-1 / (c.sampleRate * c.release))
	c.thresholdLin = core.DBToLinear(c.thresholdDB)
}
