// Package meter measures block levels for display: instantaneous peak and
// RMS plus a ballistic meter with instant attack and exponential release.
package meter

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-routing/dsp/core"
)

// Peak returns the largest absolute sample in the block.
func Peak(block []float64) float64 {
	return vecmath.MaxAbs(block)
}

// RMS returns the root-mean-square level of the block, 0 for an empty one.
func RMS(block []float64) float64 {
	if len(block) == 0 {
		return 0
	}
	return math.Sqrt(vecmath.DotProduct(block, block) / float64(len(block)))
}

// PeakDB returns the block peak in dBFS.
func PeakDB(block []float64) float64 {
	return core.LinearToDB(Peak(block))
}

// RMSDB returns the block RMS level in dBFS.
func RMSDB(block []float64) float64 {
	return core.LinearToDB(RMS(block))
}

const defaultMeterRelease = 0.3

// Meter tracks a display level across blocks: it jumps to any new peak
// immediately and falls back with an exponential release.
type Meter struct {
	sampleRate float64
	release    float64
	level      float64
}

// NewMeter creates a meter with a 300 ms release.
func NewMeter(sampleRate float64) (*Meter, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("meter sample rate must be positive: %f", sampleRate)
	}
	return &Meter{sampleRate: sampleRate, release: defaultMeterRelease}, nil
}

// SetRelease sets the release time constant in seconds, (0, 5].
func (m *Meter) SetRelease(seconds float64) error {
	if math.IsNaN(seconds) || seconds <= 0 || seconds > 5 {
		return fmt.Errorf("meter release must be in (0, 5] s: %f", seconds)
	}
	m.release = seconds
	return nil
}

// Update folds one block into the display level and returns it.
func (m *Meter) Update(block []float64) float64 {
	decay := math.Exp(-float64(len(block)) / (m.sampleRate * m.release))
	decayed := m.level * decay
	if peak := vecmath.MaxAbs(block); peak > decayed {
		m.level = peak
	} else {
		m.level = decayed
	}
	return m.level
}

// Level returns the current display level.
func (m *Meter) Level() float64 { return m.level }

// LevelDB returns the current display level in dBFS.
func (m *Meter) LevelDB() float64 { return core.LinearToDB(m.level) }

// Reset drops the display level to silence.
func (m *Meter) Reset() {
	m.level = 0
}
