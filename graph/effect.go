package graph

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-routing/dsp/core"
	"github.com/cwbudde/algo-routing/dsp/effects"
)

// Effect is the per-node processing contract: stateful block processing
// plus the parameter surface used for control and persistence.
type Effect interface {
	// Type returns the registry name the effect was built under.
	Type() string
	// Process transforms one block in place, carrying state across calls.
	Process(block []float64)
	// Configure applies parameters; missing keys keep their current value.
	Configure(p Params) error
	// Params snapshots the current parameters.
	Params() Params
	// Reset clears processing state without touching parameters.
	Reset()
}

// Factory builds one effect instance at the graph sample rate.
type Factory func(sampleRate float64) (Effect, error)

// Registry maps effect type names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for the given effect type.
func (r *Registry) Register(effectType string, factory Factory) error {
	if effectType == "" {
		return errors.New("graph: empty effect type")
	}
	if factory == nil {
		return errors.New("graph: nil effect factory")
	}
	if _, exists := r.factories[effectType]; exists {
		return fmt.Errorf("graph: duplicate effect type: %s", effectType)
	}

	r.factories[effectType] = factory
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(effectType string, factory Factory) {
	if err := r.Register(effectType, factory); err != nil {
		panic("graph registry: " + err.Error())
	}
}

// Lookup returns the factory for the given effect type, or nil.
func (r *Registry) Lookup(effectType string) Factory {
	return r.factories[effectType]
}

// DefaultRegistry returns a Registry with the built-in effects: delay,
// reverb, filter, compressor.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister("delay", func(sampleRate float64) (Effect, error) {
		fx, err := effects.NewDelay(sampleRate)
		if err != nil {
			return nil, err
		}
		return &delayEffect{fx: fx}, nil
	})
	r.MustRegister("reverb", func(sampleRate float64) (Effect, error) {
		fx, err := effects.NewReverb(sampleRate)
		if err != nil {
			return nil, err
		}
		return &reverbEffect{fx: fx}, nil
	})
	r.MustRegister("filter", func(sampleRate float64) (Effect, error) {
		fx, err := effects.NewFilter(sampleRate)
		if err != nil {
			return nil, err
		}
		return &filterEffect{fx: fx}, nil
	})
	r.MustRegister("compressor", func(sampleRate float64) (Effect, error) {
		fx, err := effects.NewCompressor(sampleRate)
		if err != nil {
			return nil, err
		}
		return &compressorEffect{fx: fx}, nil
	})

	return r
}

type delayEffect struct {
	fx *effects.Delay
}

func (e *delayEffect) Type() string { return "delay" }

func (e *delayEffect) Configure(p Params) error {
	if err := e.fx.SetTime(core.Clamp(p.GetNum("time", e.fx.Time()), 0.001, 2)); err != nil {
		return fmt.Errorf("graph: configure delay time: %w", err)
	}
	if err := e.fx.SetFeedback(core.Clamp(p.GetNum("feedback", e.fx.Feedback()), 0, 1)); err != nil {
		return fmt.Errorf("graph: configure delay feedback: %w", err)
	}
	if err := e.fx.SetMix(core.Clamp(p.GetNum("mix", e.fx.Mix()), 0, 1)); err != nil {
		return fmt.Errorf("graph: configure delay mix: %w", err)
	}
	return nil
}

func (e *delayEffect) Params() Params {
	return NumParams(map[string]float64{
		"time":     e.fx.Time(),
		"feedback": e.fx.Feedback(),
		"mix":      e.fx.Mix(),
	})
}

func (e *delayEffect) Process(block []float64) { e.fx.ProcessInPlace(block) }
func (e *delayEffect) Reset()                  { e.fx.Reset() }

type reverbEffect struct {
	fx *effects.Reverb
}

func (e *reverbEffect) Type() string { return "reverb" }

func (e *reverbEffect) Configure(p Params) error {
	if err := e.fx.SetRoomSize(core.Clamp(p.GetNum("roomSize", e.fx.RoomSize()), 0, 1)); err != nil {
		return fmt.Errorf("graph: configure reverb room size: %w", err)
	}
	if err := e.fx.SetDamping(core.Clamp(p.GetNum("damping", e.fx.Damping()), 0, 1)); err != nil {
		return fmt.Errorf("graph: configure reverb damping: %w", err)
	}
	if err := e.fx.SetMix(core.Clamp(p.GetNum("mix", e.fx.Mix()), 0, 1)); err != nil {
		return fmt.Errorf("graph: configure reverb mix: %w", err)
	}
	return nil
}

func (e *reverbEffect) Params() Params {
	return NumParams(map[string]float64{
		"roomSize": e.fx.RoomSize(),
		"damping":  e.fx.Damping(),
		"mix":      e.fx.Mix(),
	})
}

func (e *reverbEffect) Process(block []float64) { e.fx.ProcessInPlace(block) }
func (e *reverbEffect) Reset()                  { e.fx.Reset() }

type filterEffect struct {
	fx *effects.Filter
}

func (e *filterEffect) Type() string { return "filter" }

func (e *filterEffect) Configure(p Params) error {
	typ, err := effects.ParseFilterType(p.GetStr("type", e.fx.Type().String()))
	if err != nil {
		return fmt.Errorf("graph: configure filter type: %w", err)
	}
	if err := e.fx.SetType(typ); err != nil {
		return fmt.Errorf("graph: configure filter type: %w", err)
	}
	if err := e.fx.SetCutoff(core.Clamp(p.GetNum("cutoff", e.fx.Cutoff()), 1, 96000)); err != nil {
		return fmt.Errorf("graph: configure filter cutoff: %w", err)
	}
	if err := e.fx.SetResonance(core.Clamp(p.GetNum("resonance", e.fx.Resonance()), 0, 1)); err != nil {
		return fmt.Errorf("graph: configure filter resonance: %w", err)
	}
	return nil
}

func (e *filterEffect) Params() Params {
	return Params{
		Num: map[string]float64{
			"cutoff":    e.fx.Cutoff(),
			"resonance": e.fx.Resonance(),
		},
		Str: map[string]string{
			"type": e.fx.Type().String(),
		},
	}
}

func (e *filterEffect) Process(block []float64) { e.fx.ProcessInPlace(block) }
func (e *filterEffect) Reset()                  { e.fx.Reset() }

type compressorEffect struct {
	fx *effects.Compressor
}

func (e *compressorEffect) Type() string { return "compressor" }

func (e *compressorEffect) Configure(p Params) error {
	if err := e.fx.SetThreshold(core.Clamp(p.GetNum("thresholdDB", e.fx.Threshold()), -60, 0)); err != nil {
		return fmt.Errorf("graph: configure compressor threshold: %w", err)
	}
	if err := e.fx.SetRatio(core.Clamp(p.GetNum("ratio", e.fx.Ratio()), 1, 100)); err != nil {
		return fmt.Errorf("graph: configure compressor ratio: %w", err)
	}
	if err := e.fx.SetAttack(core.Clamp(p.GetNum("attack", e.fx.Attack()), 0.0001, 1)); err != nil {
		return fmt.Errorf("graph: configure compressor attack: %w", err)
	}
	if err := e.fx.SetRelease(core.Clamp(p.GetNum("release", e.fx.Release()), 0.0001, 5)); err != nil {
		return fmt.Errorf("graph: configure compressor release: %w", err)
	}
	return nil
}

func (e *compressorEffect) Params() Params {
	return NumParams(map[string]float64{
		"thresholdDB": e.fx.Threshold(),
		"ratio":       e.fx.Ratio(),
		"attack":      e.fx.Attack(),
		"release":     e.fx.Release(),
	})
}

func (e *compressorEffect) Process(block []float64) { e.fx.ProcessInPlace(block) }
func (e *compressorEffect) Reset()                  { e.fx.Reset() }
