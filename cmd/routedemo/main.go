// Command routedemo assembles an audio routing graph and plays it
// through the default output device, drawing the master level while it
// runs.
//
// Usage:
//
//	routedemo [flags]
//
// The built-in demo graph routes a lead oscillator, a detuned chord pad
// and a looped percussion clip through a mixer into an echo processor
// and a reverberant master bus. A previously saved graph can be played
// back instead.
//
// Examples:
//
//	routedemo
//	routedemo -freq 220 -wave sawtooth -duration 10s
//	routedemo -echo 0.4 -save session.json
//	routedemo -state session.json
//	routedemo -perc 0 -spectrum
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cwbudde/algo-routing/dsp/osc"
	"github.com/cwbudde/algo-routing/dsp/sampler"
	"github.com/cwbudde/algo-routing/dsp/spectrum"
	"github.com/cwbudde/algo-routing/engine"
	"github.com/cwbudde/algo-routing/graph"
)

func main() {
	rate := flag.Float64("rate", 44100, "sample rate in Hz")
	block := flag.Int("block", 256, "render block size in frames")
	channels := flag.Int("channels", 2, "output channel count")
	duration := flag.Duration("duration", 5*time.Second, "play time, 0 plays until interrupted")
	freq := flag.Float64("freq", 440, "lead oscillator frequency in Hz")
	wave := flag.String("wave", "sine", "lead waveform: sine, square, sawtooth, triangle")
	echo := flag.Float64("echo", 0.25, "echo delay time in seconds")
	perc := flag.Float64("perc", 0.5, "percussion loop level in the mix, 0 disables it")
	showSpectrum := flag.Bool("spectrum", false, "draw an octave-band spectrum next to the level meter")
	statePath := flag.String("state", "", "play a saved graph state (JSON) instead of the demo graph")
	savePath := flag.String("save", "", "write the assembled graph state to a JSON file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: routedemo [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Assembles an audio routing graph and plays it through the default output.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  routedemo -freq 220 -wave sawtooth -duration 10s\n")
		fmt.Fprintf(os.Stderr, "  routedemo -echo 0.4 -save session.json\n")
		fmt.Fprintf(os.Stderr, "  routedemo -state session.json\n")
		fmt.Fprintf(os.Stderr, "  routedemo -perc 0 -spectrum\n")
	}
	flag.Parse()

	waveform, err := osc.ParseWaveform(*wave)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *freq < 40 || *freq > 20000 {
		fmt.Fprintf(os.Stderr, "error: lead frequency must be in [40, 20000] Hz: %g\n", *freq)
		os.Exit(1)
	}
	if *perc < 0 || *perc > 1 || math.IsNaN(*perc) {
		fmt.Fprintf(os.Stderr, "error: percussion level must be in [0, 1]: %g\n", *perc)
		os.Exit(1)
	}

	var g *graph.Graph
	if *statePath != "" {
		g, err = loadGraph(*statePath)
		if err == nil {
			err = rebindGenerators(g, *freq, waveform)
		}
	} else {
		g, err = assembleDemo(*rate, *block, *freq, waveform, *echo, *perc)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *savePath != "" {
		if err := saveGraph(g, *savePath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("saved graph state to %s\n", *savePath)
	}

	var an *spectrum.Analyzer
	if *showSpectrum {
		an, err = spectrum.NewAnalyzer(g.SampleRate(), spectrum.WithFFTSize(512))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	e, err := engine.New(g, engine.WithChannels(*channels))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := e.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("playing %d nodes at %g Hz, block %d, %d channel(s)\n",
		len(g.Nodes()), g.SampleRate(), g.BlockSize(), e.Channels())
	if *duration == 0 {
		fmt.Println("press Ctrl-C to stop")
	}

	run(e, *duration, an)

	fmt.Println()
	if err := e.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	if err := e.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
}

// run redraws the level readout until the deadline passes or the user
// interrupts. A non-nil analyzer adds an octave-band spectrum fed from
// the engine's published waveform.
func run(e *engine.Engine, duration time.Duration, an *spectrum.Analyzer) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	var deadline <-chan time.Time
	if duration > 0 {
		deadline = time.After(duration)
	}
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	wave := make([]float64, e.Graph().BlockSize())
	for {
		select {
		case <-deadline:
			return
		case <-sig:
			return
		case <-tick.C:
			printLevel(e, an, wave)
		}
	}
}

func printLevel(e *engine.Engine, an *spectrum.Analyzer, wave []float64) {
	m := e.Graph().Master()
	if m == nil {
		return
	}
	db := m.MeterLevelDB()
	if an == nil {
		fmt.Printf("\r%s %6.1f dBFS  underruns %d", vuBar(db, 30), db, e.Underruns())
		return
	}
	if n := e.Waveform(wave); n > 0 {
		an.Push(wave[:n])
	}
	fmt.Printf("\r%s |%s| %6.1f dBFS  underruns %d", vuBar(db, 16), bandBar(an), db, e.Underruns())
}

// bandFreqs are the octave centers drawn by the -spectrum readout.
var bandFreqs = []float64{63, 125, 250, 500, 1000, 2000, 4000, 8000}

// bandBar renders one glyph per octave band on a [-60, 0] dBFS scale.
func bandBar(an *spectrum.Analyzer) string {
	const ramp = " .:-=+*#"
	if !an.Ready() {
		return strings.Repeat(" ", len(bandFreqs))
	}
	var b strings.Builder
	for _, db := range an.CurveDB(bandFreqs) {
		norm := (db + 60) / 60
		if math.IsNaN(norm) || norm < 0 {
			norm = 0
		}
		if norm > 1 {
			norm = 1
		}
		b.WriteByte(ramp[int(norm*float64(len(ramp)-1))])
	}
	return b.String()
}

// vuBar renders db on a [-60, 0] dBFS scale as a fixed-width bar.
func vuBar(db float64, width int) string {
	norm := (db + 60) / 60
	if math.IsNaN(norm) || norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	filled := int(norm * float64(width))
	return strings.Repeat("=", filled) + strings.Repeat("-", width-filled)
}

// assembleDemo builds the demo graph: lead, pad and percussion
// generators into a mixer, the mix through an echo into the reverberant
// master bus.
func assembleDemo(rate float64, block int, freq float64, w osc.Waveform, echo, perc float64) (*graph.Graph, error) {
	g := graph.New(graph.WithSampleRate(rate), graph.WithBlockSize(block))

	lead, err := osc.NewOscillator(g.SampleRate())
	if err != nil {
		return nil, err
	}
	if err := lead.SetFrequency(freq); err != nil {
		return nil, err
	}
	if err := lead.SetWaveform(w); err != nil {
		return nil, err
	}
	g.AddGenerator("lead", lead)

	pad, err := newPadChord(g.SampleRate())
	if err != nil {
		return nil, err
	}
	g.AddGenerator("pad", pad)

	slots := 2
	if perc > 0 {
		slots = 3
	}
	mix, err := g.AddMixer("mix", slots)
	if err != nil {
		return nil, err
	}
	if err := mix.SetInputGain(0, 0.8); err != nil {
		return nil, err
	}
	if err := mix.SetInputGain(1, 0.35); err != nil {
		return nil, err
	}

	if perc > 0 {
		loop, err := newPercLoop(g.SampleRate())
		if err != nil {
			return nil, err
		}
		g.AddGenerator("perc", loop)
		if err := mix.SetInputGain(2, perc); err != nil {
			return nil, err
		}
		if err := g.Connect("perc", "mix", 2); err != nil {
			return nil, err
		}
	}

	g.AddProcessor("echo")
	if err := g.AddEffect("echo", "delay"); err != nil {
		return nil, err
	}
	params := graph.NumParams(map[string]float64{"time": echo, "feedback": 0.35, "mix": 0.3})
	if err := g.ConfigureEffect("echo", 0, params); err != nil {
		return nil, err
	}

	master := g.AddBus("main")
	if err := g.AddEffect("main", "reverb"); err != nil {
		return nil, err
	}
	if err := master.SetGain(0.9); err != nil {
		return nil, err
	}

	for _, c := range []struct {
		src, dst string
		slot     int
	}{
		{"lead", "mix", 0},
		{"pad", "mix", 1},
		{"mix", "echo", 0},
		{"echo", "main", 0},
	} {
		if err := g.Connect(c.src, c.dst, c.slot); err != nil {
			return nil, err
		}
	}
	return g, g.SetMaster("main")
}

// newPercLoop renders half a second of decaying noise into a clip and
// returns a looping player for it, giving the demo a tick every beat.
func newPercLoop(rate float64) (*sampler.Player, error) {
	data := make([]float64, int(rate*0.5))
	burst := int(rate * 0.03)
	if burst > len(data) {
		burst = len(data)
	}
	noise := osc.NewNoiseGenerator(1)
	noise.Generate(data[:burst])
	for i := 0; i < burst; i++ {
		data[i] *= math.Exp(-8 * float64(i) / float64(burst))
	}

	clip, err := sampler.NewClip(data, rate)
	if err != nil {
		return nil, err
	}
	player, err := sampler.NewPlayer(clip, rate)
	if err != nil {
		return nil, err
	}
	player.SetLoop(true)
	player.Trigger()
	return player, nil
}

// newPadChord builds an A minor pad from two detuned sawtooth layers.
func newPadChord(rate float64) (*osc.ChordVoice, error) {
	pad, err := osc.NewChordVoice(rate)
	if err != nil {
		return nil, err
	}
	if err := pad.AddOscillator(osc.WaveSawtooth, -7, 0.5); err != nil {
		return nil, err
	}
	if err := pad.AddOscillator(osc.WaveSawtooth, 7, 0.5); err != nil {
		return nil, err
	}

	for _, n := range []struct {
		note   string
		octave int
	}{
		{"A", 3},
		{"C", 4},
		{"E", 4},
	} {
		hz, err := osc.NoteFrequency(n.note, n.octave)
		if err != nil {
			return nil, err
		}
		if err := pad.NoteOn(fmt.Sprintf("%s%d", n.note, n.octave), hz); err != nil {
			return nil, err
		}
	}
	return pad, nil
}

// loadGraph restores a graph from a saved JSON state file.
func loadGraph(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st graph.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return graph.LoadState(st)
}

// rebindGenerators hands every generator node a fresh oscillator.
// Generator bindings are not part of persisted state.
func rebindGenerators(g *graph.Graph, freq float64, w osc.Waveform) error {
	for _, name := range g.Nodes() {
		n, ok := g.Node(name)
		if !ok || n.Kind() != graph.KindGenerator {
			continue
		}
		o, err := osc.NewOscillator(g.SampleRate())
		if err != nil {
			return err
		}
		if err := o.SetFrequency(freq); err != nil {
			return err
		}
		if err := o.SetWaveform(w); err != nil {
			return err
		}
		if err := g.SetGenerator(name, o); err != nil {
			return err
		}
	}
	return nil
}

func saveGraph(g *graph.Graph, path string) error {
	data, err := json.MarshalIndent(g.State(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
