package sampler

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-routing/dsp/interp"
)

const (
	minPlayerPitch = 0.25
	maxPlayerPitch = 4.0
)

// Player renders a clip at the engine rate. The read position advances by
// clipRate/engineRate (times an optional pitch ratio) per output sample, so
// clips recorded at any rate play at the correct speed.
type Player struct {
	clip       *Clip
	engineRate float64
	pitch      float64
	position   float64
	loop       bool
	playing    bool
}

// NewPlayer creates a stopped player for the clip. Trigger starts playback
// from the beginning.
func NewPlayer(clip *Clip, engineRate float64) (*Player, error) {
	if clip == nil {
		return nil, fmt.Errorf("player clip must not be nil")
	}
	if engineRate <= 0 || math.IsNaN(engineRate) || math.IsInf(engineRate, 0) {
		return nil, fmt.Errorf("player engine rate must be positive: %f", engineRate)
	}
	return &Player{clip: clip, engineRate: engineRate, pitch: 1}, nil
}

// SetLoop selects whether playback wraps at the clip end.
func (p *Player) SetLoop(loop bool) { p.loop = loop }

// SetPitch sets the playback speed multiplier in [0.25, 4].
func (p *Player) SetPitch(ratio float64) error {
	if math.IsNaN(ratio) || ratio < minPlayerPitch || ratio > maxPlayerPitch {
		return fmt.Errorf("player pitch must be in [%v, %v]: %f", minPlayerPitch, maxPlayerPitch, ratio)
	}
	p.pitch = ratio
	return nil
}

// Loop reports whether playback wraps at the clip end.
func (p *Player) Loop() bool { return p.loop }

// Pitch returns the playback speed multiplier.
func (p *Player) Pitch() float64 { return p.pitch }

// Playing reports whether the player is producing sound.
func (p *Player) Playing() bool { return p.playing }

// Trigger restarts playback from the beginning of the clip.
func (p *Player) Trigger() {
	p.position = 0
	p.playing = true
}

// Stop halts playback immediately; the next Trigger starts over.
func (p *Player) Stop() {
	p.playing = false
}

// Generate fills dst with the next block of playback, or silence when the
// player is stopped or the clip has ended.
func (p *Player) Generate(dst []float64) {
	if !p.playing {
		for i := range dst {
			dst[i] = 0
		}
		return
	}

	step := p.pitch * p.clip.sampleRate / p.engineRate
	frames := len(p.clip.data)
	total := float64(frames)

	for i := range dst {
		if p.position >= total {
			if p.loop {
				p.position = math.Mod(p.position, total)
			} else {
				p.playing = false
				for ; i < len(dst); i++ {
					dst[i] = 0
				}
				return
			}
		}

		i0 := int(p.position)
		frac := p.position - float64(i0)
		x0 := p.clip.data[i0]
		// Loops read across the wrap point; one-shots fade into silence.
		x1 := 0.0
		if i0+1 < frames {
			x1 = p.clip.data[i0+1]
		} else if p.loop {
			x1 = p.clip.data[0]
		}
		dst[i] = interp.Linear(frac, x0, x1)

		p.position += step
	}
}

// Reset stops playback and rewinds to the beginning.
func (p *Player) Reset() {
	p.position = 0
	p.playing = false
}
