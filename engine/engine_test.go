package engine

import (
	"fmt"
	"testing"

	"github.com/gordonklaus/portaudio"

	"github.com/cwbudde/algo-routing/graph"
)

type constGen struct {
	value float64
}

func (g constGen) Generate(dst []float64) {
	for i := range dst {
		dst[i] = g.value
	}
}

type rampGen struct {
	next float64
}

func (g *rampGen) Generate(dst []float64) {
	for i := range dst {
		dst[i] = g.next / 128
		g.next++
	}
}

// New rejects a nil graph and bad channel counts, and defaults to
// stereo.
func TestNewValidatesArguments(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil graph")
	}

	g := graph.New(graph.WithSampleRate(44100), graph.WithBlockSize(64))
	if _, err := New(g, WithChannels(0)); err == nil {
		t.Fatalf("expected error for zero channels")
	}
	if _, err := New(g, WithChannels(-2)); err == nil {
		t.Fatalf("expected error for negative channels")
	}

	e, err := New(g)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if e.Channels() != 2 {
		t.Fatalf("default channels: got %d want 2", e.Channels())
	}
	if e.Running() {
		t.Fatalf("fresh engine reports running")
	}
	if e.Graph() != g {
		t.Fatalf("Graph returned a different graph")
	}
}

// The mono master block lands identically in every output channel.
func TestRenderBlockDuplicatesAcrossChannels(t *testing.T) {
	g := graph.New(graph.WithSampleRate(44100), graph.WithBlockSize(64))
	g.AddGenerator("tone", constGen{value: 0.5})
	if err := g.SetMaster("tone"); err != nil {
		t.Fatalf("SetMaster failed: %v", err)
	}
	e, err := New(g, WithChannels(2))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	out := [][]float32{make([]float32, 64), make([]float32, 64)}
	e.renderBlock(out)

	for c := range out {
		for i, v := range out[c] {
			if v != 0.5 {
				t.Fatalf("channel %d sample %d: got %g want 0.5", c, i, v)
			}
		}
	}
}

// A callback asking for more frames than the configured block renders
// one block and zero-pads the rest; empty requests are ignored.
func TestRenderBlockPadsOversizedRequest(t *testing.T) {
	g := graph.New(graph.WithSampleRate(44100), graph.WithBlockSize(64))
	g.AddGenerator("tone", constGen{value: 0.5})
	if err := g.SetMaster("tone"); err != nil {
		t.Fatalf("SetMaster failed: %v", err)
	}
	e, err := New(g, WithChannels(1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	out := [][]float32{make([]float32, 96)}
	for i := range out[0] {
		out[0][i] = 1
	}
	e.renderBlock(out)

	for i := 0; i < 64; i++ {
		if out[0][i] != 0.5 {
			t.Fatalf("sample %d: got %g want 0.5", i, out[0][i])
		}
	}
	for i := 64; i < 96; i++ {
		if out[0][i] != 0 {
			t.Fatalf("pad sample %d: got %g want 0", i, out[0][i])
		}
	}

	e.renderBlock(nil)
	e.renderBlock([][]float32{})
	e.renderBlock([][]float32{{}})
}

// A shorter request renders exactly that many samples.
func TestRenderBlockShortRequest(t *testing.T) {
	g := graph.New(graph.WithSampleRate(44100), graph.WithBlockSize(64))
	g.AddGenerator("tone", constGen{value: 0.25})
	if err := g.SetMaster("tone"); err != nil {
		t.Fatalf("SetMaster failed: %v", err)
	}
	e, err := New(g, WithChannels(1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	out := [][]float32{make([]float32, 32)}
	e.renderBlock(out)
	for i, v := range out[0] {
		if v != 0.25 {
			t.Fatalf("sample %d: got %g want 0.25", i, v)
		}
	}

	full := [][]float32{make([]float32, 64)}
	e.renderBlock(full)
	for i, v := range full[0] {
		if v != 0.25 {
			t.Fatalf("full block sample %d: got %g want 0.25", i, v)
		}
	}
}

// Without a master node the output degrades to silence.
func TestRenderBlockSilentWithoutMaster(t *testing.T) {
	g := graph.New(graph.WithSampleRate(44100), graph.WithBlockSize(64))
	g.AddGenerator("tone", constGen{value: 0.5})
	e, err := New(g, WithChannels(2))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	out := [][]float32{make([]float32, 64), make([]float32, 64)}
	for c := range out {
		for i := range out[c] {
			out[c][i] = 1
		}
	}
	e.renderBlock(out)

	for c := range out {
		for i, v := range out[c] {
			if v != 0 {
				t.Fatalf("channel %d sample %d: got %g want 0", c, i, v)
			}
		}
	}
}

// Waveform returns nothing before the first render, then tracks the
// latest rendered block.
func TestWaveformTracksLatestBlock(t *testing.T) {
	g := graph.New(graph.WithSampleRate(44100), graph.WithBlockSize(8))
	g.AddGenerator("ramp", &rampGen{})
	if err := g.SetMaster("ramp"); err != nil {
		t.Fatalf("SetMaster failed: %v", err)
	}
	e, err := New(g, WithChannels(1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	wave := make([]float64, 8)
	if n := e.Waveform(wave); n != 0 {
		t.Fatalf("waveform before render: got %d samples want 0", n)
	}

	out := [][]float32{make([]float32, 8)}
	e.renderBlock(out)
	if n := e.Waveform(wave); n != 8 {
		t.Fatalf("waveform after render: got %d samples want 8", n)
	}
	for i := range wave {
		want := float64(i) / 128
		if wave[i] != want {
			t.Fatalf("sample %d: got %g want %g", i, wave[i], want)
		}
		if out[0][i] != float32(wave[i]) {
			t.Fatalf("sample %d: output %g does not match waveform %g", i, out[0][i], wave[i])
		}
	}

	e.renderBlock(out)
	if n := e.Waveform(wave); n != 8 {
		t.Fatalf("waveform after second render: got %d samples want 8", n)
	}
	for i := range wave {
		want := float64(i+8) / 128
		if wave[i] != want {
			t.Fatalf("stale waveform at sample %d: got %g want %g", i, wave[i], want)
		}
	}
}

// Levels mirrors the master bus meter and reads 0 without a master.
func TestLevelsReadsMasterMeter(t *testing.T) {
	g := graph.New(graph.WithSampleRate(44100), graph.WithBlockSize(64))
	g.AddGenerator("tone", constGen{value: 0.5})
	g.AddBus("Master")
	if err := g.Connect("tone", "Master", 0); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := g.SetMaster("Master"); err != nil {
		t.Fatalf("SetMaster failed: %v", err)
	}
	e, err := New(g, WithChannels(1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if lvl := e.Levels(); lvl != 0 {
		t.Fatalf("level before render: got %g want 0", lvl)
	}

	out := [][]float32{make([]float32, 64)}
	e.renderBlock(out)
	if lvl := e.Levels(); lvl != 0.5 {
		t.Fatalf("level after render: got %g want 0.5", lvl)
	}

	bare := graph.New(graph.WithSampleRate(44100), graph.WithBlockSize(64))
	e2, err := New(bare)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if lvl := e2.Levels(); lvl != 0 {
		t.Fatalf("level without master: got %g want 0", lvl)
	}
}

// Backend underflow reports bump the counter and fire the hook; clean
// callbacks do not.
func TestUnderrunHookFires(t *testing.T) {
	g := graph.New(graph.WithSampleRate(44100), graph.WithBlockSize(64))
	calls := 0
	e, err := New(g, WithChannels(1), WithUnderrunFunc(func() { calls++ }))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	out := [][]float32{make([]float32, 64)}
	e.process(out, portaudio.StreamCallbackTimeInfo{}, portaudio.OutputUnderflow)
	if got := e.Underruns(); got != 1 {
		t.Fatalf("underruns after underflow: got %d want 1", got)
	}
	if calls != 1 {
		t.Fatalf("hook calls: got %d want 1", calls)
	}

	e.process(out, portaudio.StreamCallbackTimeInfo{}, 0)
	if got := e.Underruns(); got != 1 {
		t.Fatalf("underruns after clean callback: got %d want 1", got)
	}
	if calls != 1 {
		t.Fatalf("hook fired on clean callback")
	}
}

func BenchmarkRenderBlock(b *testing.B) {
	sizes := []int{64, 256, 1024}
	for _, n := range sizes {
		g := graph.New(graph.WithSampleRate(44100), graph.WithBlockSize(n))
		if err := DefaultSetup(g); err != nil {
			b.Fatalf("DefaultSetup failed: %v", err)
		}
		e, err := New(g, WithChannels(2))
		if err != nil {
			b.Fatalf("New failed: %v", err)
		}
		out := [][]float32{make([]float32, n), make([]float32, n)}

		b.Run(fmt.Sprintf("block=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(n * 8))

			for range b.N {
				e.renderBlock(out)
			}
		})
	}
}
