// Package sampler plays back recorded PCM clips inside the signal graph,
// matching arbitrary source rates to the engine rate by linear
// interpolation.
package sampler

import (
	"fmt"
	"math"

	goaudio "github.com/go-audio/audio"
)

// Clip is an immutable mono sample at its native source rate. Multi-channel
// material is folded down to mono when the clip is built.
type Clip struct {
	data       []float64
	sampleRate float64
}

// NewClip wraps raw mono samples recorded at the given rate. The slice is
// used directly, not copied.
func NewClip(data []float64, sampleRate float64) (*Clip, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("clip must contain samples")
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("clip sample rate must be positive: %f", sampleRate)
	}
	return &Clip{data: data, sampleRate: sampleRate}, nil
}

// intBufferMaxVal returns the normalization divisor for a PCM bit depth.
func intBufferMaxVal(bitDepth int) float64 {
	switch bitDepth {
	case 8:
		return 128.0
	case 16:
		return 32768.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		return 32768.0 // assume 16-bit when unspecified
	}
}

// NewClipFromIntBuffer converts a decoded integer PCM buffer into a clip,
// normalizing by the source bit depth and averaging channels down to mono.
func NewClipFromIntBuffer(buf *goaudio.IntBuffer) (*Clip, error) {
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("clip buffer must contain samples")
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("clip buffer must carry a sample rate")
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	maxVal := intBufferMaxVal(buf.SourceBitDepth)

	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, fmt.Errorf("clip buffer shorter than one frame")
	}

	data := make([]float64, frames)
	for f := 0; f < frames; f++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[f*channels+ch])
		}
		data[f] = sum / float64(channels) / maxVal
	}
	return &Clip{data: data, sampleRate: float64(buf.Format.SampleRate)}, nil
}

// NewClipFromFloatBuffer converts a decoded float PCM buffer into a clip,
// averaging channels down to mono. Samples are assumed to already sit in
// [-1, 1].
func NewClipFromFloatBuffer(buf *goaudio.FloatBuffer) (*Clip, error) {
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("clip buffer must contain samples")
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("clip buffer must carry a sample rate")
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, fmt.Errorf("clip buffer shorter than one frame")
	}

	data := make([]float64, frames)
	for f := 0; f < frames; f++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += buf.Data[f*channels+ch]
		}
		data[f] = sum / float64(channels)
	}
	return &Clip{data: data, sampleRate: float64(buf.Format.SampleRate)}, nil
}

// Frames returns the clip length in samples.
func (c *Clip) Frames() int { return len(c.data) }

// SampleRate returns the native source rate in Hz.
func (c *Clip) SampleRate() float64 { return c.sampleRate }

// Duration returns the clip length in seconds at its native rate.
func (c *Clip) Duration() float64 {
	return float64(len(c.data)) / c.sampleRate
}
