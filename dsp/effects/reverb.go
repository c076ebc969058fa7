package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-routing/dsp/delay"
)

const (
	reverbTapCount      = 8
	reverbBufferSeconds = 2.0

	// Seconds between successive taps before room-size scaling.
	reverbTapInterval = 0.02

	defaultReverbRoomSize = 0.7
	defaultReverbDamping  = 0.5
	defaultReverbMix      = 0.3
)

// Reverb is an eight-tap room reverb. Each tap reads progressively further
// back in a two-second ring, attenuated by (1-damping)^tap, and the dry
// input is written back without feedback.
type Reverb struct {
	sampleRate float64
	roomSize   float64
	damping    float64
	mix        float64

	line   *delay.Line
	taps   [reverbTapCount]int
	decays [reverbTapCount]float64
}

// NewReverb creates a reverb with the routing system's defaults.
func NewReverb(sampleRate float64) (*Reverb, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("reverb sample rate must be > 0: %f", sampleRate)
	}

	line, err := delay.New(int(math.Ceil(reverbBufferSeconds * sampleRate)))
	if err != nil {
		return nil, err
	}

	r := &Reverb{
		sampleRate: sampleRate,
		roomSize:   defaultReverbRoomSize,
		damping:    defaultReverbDamping,
		mix:        defaultReverbMix,
		line:       line,
	}
	r.updateTaps()
	r.updateDecays()
	return r, nil
}

// SetSampleRate updates sample rate, resizing the ring and respacing taps.
func (r *Reverb) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("reverb sample rate must be > 0: %f", sampleRate)
	}
	r.sampleRate = sampleRate
	if err := r.line.Resize(int(math.Ceil(reverbBufferSeconds * sampleRate))); err != nil {
		return err
	}
	r.updateTaps()
	return nil
}

// SetRoomSize sets room size in [0, 1] and respaces the taps.
func (r *Reverb) SetRoomSize(roomSize float64) error {
	if roomSize < 0 || roomSize > 1 || math.IsNaN(roomSize) || math.IsInf(roomSize, 0) {
		return fmt.Errorf("reverb room size must be in [0, 1]: %f", roomSize)
	}
	r.roomSize = roomSize
	r.updateTaps()
	return nil
}

// SetDamping sets damping in [0, 1] and recomputes per-tap decay.
func (r *Reverb) SetDamping(damping float64) error {
	if damping < 0 || damping > 1 || math.IsNaN(damping) || math.IsInf(damping, 0) {
		return fmt.Errorf("reverb damping must be in [0, 1]: %f", damping)
	}
	r.damping = damping
	r.updateDecays()
	return nil
}

// SetMix sets wet amount in [0, 1].
func (r *Reverb) SetMix(mix float64) error {
	if mix < 0 || mix > 1 || math.IsNaN(mix) || math.IsInf(mix, 0) {
		return fmt.Errorf("reverb mix must be in [0, 1]: %f", mix)
	}
	r.mix = mix
	return nil
}

// Reset clears the ring.
func (r *Reverb) Reset() {
	r.line.Reset()
}

// ProcessSample processes one sample.
func (r *Reverb) ProcessSample(input float64) float64 {
	sum := 0.0
	for j := 0; j < reverbTapCount; j++ {
		sum += r.line.Read(r.taps[j]) * r.decays[j]
	}

	r.line.Write(input)
	return input*(1-r.mix) + sum*r.mix
}

// ProcessInPlace applies the reverb to buf in place.
func (r *Reverb) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = r.ProcessSample(buf[i])
	}
}

// SampleRate returns sample rate in Hz.
func (r *Reverb) SampleRate() float64 { return r.sampleRate }

// RoomSize returns room size in [0, 1].
func (r *Reverb) RoomSize() float64 { return r.roomSize }

// Damping returns damping in [0, 1].
func (r *Reverb) Damping() float64 { return r.damping }

// Mix returns wet amount in [0, 1].
func (r *Reverb) Mix() float64 { return r.mix }

func (r *Reverb) updateTaps() {
	size := r.line.Len()
	for j := 0; j < reverbTapCount; j++ {
		tap := int(math.Round(r.sampleRate * reverbTapInterval * float64(j+1) * r.roomSize))
		r.taps[j] = tap % size
	}
}

func (r *Reverb) updateDecays() {
	decay := 1.0
	for j := 0; j < reverbTapCount; j++ {
		r.decays[j] = decay
		decay *= 1 - r.damping
	}
}
