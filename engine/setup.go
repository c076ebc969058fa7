package engine

import (
	"fmt"

	"github.com/cwbudde/algo-routing/dsp/osc"
	"github.com/cwbudde/algo-routing/graph"
)

// DefaultSetup populates g with a minimal playable chain: a 440 Hz sine
// generator through a delay and a reverb into a master bus, which
// becomes the master node. Start uses it when asked to play an empty
// graph.
func DefaultSetup(g *graph.Graph) error {
	sine, err := osc.NewOscillator(g.SampleRate())
	if err != nil {
		return err
	}

	synth := g.AddGenerator("Synth", sine)
	delay := g.AddProcessor("Delay")
	if err := g.AddEffect(delay.Name(), "delay"); err != nil {
		return err
	}
	reverb := g.AddProcessor("Reverb")
	if err := g.AddEffect(reverb.Name(), "reverb"); err != nil {
		return err
	}
	master := g.AddBus("Master")

	if err := g.Connect(synth.Name(), delay.Name(), 0); err != nil {
		return fmt.Errorf("engine: wire default chain: %w", err)
	}
	if err := g.Connect(delay.Name(), reverb.Name(), 0); err != nil {
		return fmt.Errorf("engine: wire default chain: %w", err)
	}
	if err := g.Connect(reverb.Name(), master.Name(), 0); err != nil {
		return fmt.Errorf("engine: wire default chain: %w", err)
	}
	return g.SetMaster(master.Name())
}
