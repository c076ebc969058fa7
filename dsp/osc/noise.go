package osc

import (
	"fmt"
	"math"
	"math/rand"
)

// NoiseType selects the noise spectrum.
type NoiseType int

const (
	NoiseWhite NoiseType = iota
	NoisePink
	NoiseBrown
)

// String returns the stable name used in serialized state.
func (n NoiseType) String() string {
	switch n {
	case NoiseWhite:
		return "white"
	case NoisePink:
		return "pink"
	case NoiseBrown:
		return "brown"
	default:
		return "unknown"
	}
}

// ParseNoiseType converts a stable name back into a NoiseType.
func ParseNoiseType(name string) (NoiseType, error) {
	switch name {
	case "white":
		return NoiseWhite, nil
	case "pink":
		return NoisePink, nil
	case "brown":
		return NoiseBrown, nil
	default:
		return 0, fmt.Errorf("unknown noise type: %q", name)
	}
}

// noisePoleWhite..Brown are the one-pole feedback gains shaping white
// noise into the colored variants.
const (
	noisePolePink  = 0.9
	noisePoleBrown = 0.98
)

// NoiseGenerator produces deterministic seeded noise. Pink and brown
// variants run unit-variance white noise through a leaky integrator.
type NoiseGenerator struct {
	typ       NoiseType
	amplitude float64
	seed      int64
	rng       *rand.Rand
	state     float64
}

// NewNoiseGenerator creates a white noise source at half amplitude.
func NewNoiseGenerator(seed int64) *NoiseGenerator {
	return &NoiseGenerator{
		typ:       NoiseWhite,
		amplitude: defaultOscAmplitude,
		seed:      seed,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// SetType selects the noise spectrum.
func (n *NoiseGenerator) SetType(typ NoiseType) error {
	switch typ {
	case NoiseWhite, NoisePink, NoiseBrown:
		n.typ = typ
		return nil
	default:
		return fmt.Errorf("unknown noise type: %d", int(typ))
	}
}

// SetAmplitude sets the output scale in [0, 1].
func (n *NoiseGenerator) SetAmplitude(a float64) error {
	if math.IsNaN(a) || a < 0 || a > 1 {
		return fmt.Errorf("noise amplitude must be in [0, 1]: %f", a)
	}
	n.amplitude = a
	return nil
}

// Type returns the noise spectrum.
func (n *NoiseGenerator) Type() NoiseType { return n.typ }

// Amplitude returns the output scale.
func (n *NoiseGenerator) Amplitude() float64 { return n.amplitude }

// Generate fills dst with the next block of noise.
func (n *NoiseGenerator) Generate(dst []float64) {
	switch n.typ {
	case NoisePink:
		for i := range dst {
			n.state = n.rng.NormFloat64() + noisePolePink*n.state
			dst[i] = n.amplitude * n.state
		}
	case NoiseBrown:
		for i := range dst {
			n.state = n.rng.NormFloat64() + noisePoleBrown*n.state
			dst[i] = n.amplitude * n.state
		}
	default:
		for i := range dst {
			dst[i] = n.amplitude * n.rng.NormFloat64()
		}
	}
}

// Reset restarts the random sequence from the seed and clears the
// integrator, so the generator replays the identical signal.
func (n *NoiseGenerator) Reset() {
	n.rng = rand.New(rand.NewSource(n.seed))
	n.state = 0
}
