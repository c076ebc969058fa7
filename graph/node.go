package graph

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-routing/dsp/core"
	"github.com/cwbudde/algo-routing/dsp/meter"
)

// Kind tags the closed set of node behaviors in a routing graph.
type Kind int

const (
	// KindGenerator pulls audio from a Generator; it has no input slots.
	KindGenerator Kind = iota
	// KindProcessor sums its input slots and runs the effect chain.
	KindProcessor
	// KindMixer sums its input slots with per-slot gain and mute.
	KindMixer
	// KindBus additionally sums source tracks and child buses and meters
	// its output.
	KindBus
)

// String returns the lowercase kind name used in persisted state.
func (k Kind) String() string {
	switch k {
	case KindGenerator:
		return "generator"
	case KindProcessor:
		return "processor"
	case KindMixer:
		return "mixer"
	case KindBus:
		return "bus"
	default:
		return "unknown"
	}
}

// ParseKind converts a persisted kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "generator":
		return KindGenerator, nil
	case "processor":
		return KindProcessor, nil
	case "mixer":
		return KindMixer, nil
	case "bus":
		return KindBus, nil
	default:
		return 0, fmt.Errorf("graph: unknown node kind: %q", s)
	}
}

// Generator is the pull contract for audio sources. Generate fills dst
// with the next len(dst) samples, advancing internal state.
type Generator interface {
	Generate(dst []float64)
}

// wiring is the render-visible structure of a node. Each node keeps two
// copies: a control view guarded by the graph mutex and a live view
// walked by the render thread. Structural edits are written to the
// control view immediately and replayed onto the live view between
// renders.
type wiring struct {
	generator Generator
	inputs    []*Node
	effects   []Effect
	tracks    []*SourceTrack
	children  []*Node
}

// Node is one element of a routing graph. Parameter fields (gain, mute,
// solo, bypass, mixer slot gains) are atomics and may be changed from
// any goroutine while audio runs; structural changes go through the
// owning Graph.
type Node struct {
	name string
	kind Kind

	gainBits atomic.Uint64
	muted    atomic.Bool
	soloed   atomic.Bool
	bypass   atomic.Bool

	// Mixer kind only, one per input slot.
	slotGains []atomic.Uint64
	slotMutes []atomic.Bool

	ctl  wiring
	live wiring

	// Reverse edges, maintained by the control side only. The render
	// walk never reads this map.
	outputs map[*Node]struct{}

	// Bus kind only.
	meter     *meter.Meter
	levelBits atomic.Uint64

	// Render-thread state.
	epoch      uint64
	scratch    []float64
	lastBuffer []float64

	// Visualization snapshot. The render thread publishes with TryLock
	// so it never waits on a reader.
	vizMu  sync.Mutex
	vizBuf []float64
}

func newNode(name string, kind Kind, arity int, sampleRate float64, blockSize int) *Node {
	n := &Node{
		name:       name,
		kind:       kind,
		outputs:    make(map[*Node]struct{}),
		scratch:    make([]float64, blockSize),
		lastBuffer: make([]float64, blockSize),
		vizBuf:     make([]float64, blockSize),
	}
	n.gainBits.Store(math.Float64bits(1.0))
	if arity > 0 {
		n.ctl.inputs = make([]*Node, arity)
		n.live.inputs = make([]*Node, arity)
	}
	if kind == KindMixer {
		n.slotGains = make([]atomic.Uint64, arity)
		n.slotMutes = make([]atomic.Bool, arity)
		for i := range n.slotGains {
			n.slotGains[i].Store(math.Float64bits(1.0))
		}
	}
	if kind == KindBus {
		if m, err := meter.NewMeter(sampleRate); err == nil {
			n.meter = m
		}
	}
	return n
}

// Name returns the node's unique name within its graph.
func (n *Node) Name() string { return n.name }

// Kind returns the node's behavior tag.
func (n *Node) Kind() Kind { return n.kind }

// InputCount returns the fixed number of input slots.
func (n *Node) InputCount() int { return len(n.ctl.inputs) }

// SetGain sets the output gain as a linear factor.
func (n *Node) SetGain(gain float64) error {
	if math.IsNaN(gain) || math.IsInf(gain, 0) || gain < 0 {
		return fmt.Errorf("graph: gain must be finite and non-negative: %f", gain)
	}
	n.gainBits.Store(math.Float64bits(gain))
	return nil
}

// Gain returns the output gain.
func (n *Node) Gain() float64 { return math.Float64frombits(n.gainBits.Load()) }

// SetMuted mutes or unmutes the node. A muted node renders silence.
func (n *Node) SetMuted(muted bool) { n.muted.Store(muted) }

// Muted reports whether the node is muted.
func (n *Node) Muted() bool { return n.muted.Load() }

// SetSoloed marks the node soloed. Solo takes effect when the node is a
// child of a bus: siblings without the flag are skipped from the sum.
func (n *Node) SetSoloed(soloed bool) { n.soloed.Store(soloed) }

// Soloed reports whether the node is soloed.
func (n *Node) Soloed() bool { return n.soloed.Load() }

// SetBypass skips or restores the node's effect chain.
func (n *Node) SetBypass(bypass bool) { n.bypass.Store(bypass) }

// Bypass reports whether the effect chain is bypassed.
func (n *Node) Bypass() bool { return n.bypass.Load() }

// SetInputGain sets the gain applied to one input slot while mixing.
// Only mixer nodes carry per-slot gains.
func (n *Node) SetInputGain(slot int, gain float64) error {
	if n.kind != KindMixer {
		return fmt.Errorf("%w: node %q is %s", ErrKindMismatch, n.name, n.kind)
	}
	if slot < 0 || slot >= len(n.slotGains) {
		return fmt.Errorf("%w: slot %d of %q", ErrSlotRange, slot, n.name)
	}
	if math.IsNaN(gain) || math.IsInf(gain, 0) || gain < 0 {
		return fmt.Errorf("graph: input gain must be finite and non-negative: %f", gain)
	}
	n.slotGains[slot].Store(math.Float64bits(gain))
	return nil
}

// InputGain returns the gain of one mixer input slot.
func (n *Node) InputGain(slot int) (float64, error) {
	if n.kind != KindMixer {
		return 0, fmt.Errorf("%w: node %q is %s", ErrKindMismatch, n.name, n.kind)
	}
	if slot < 0 || slot >= len(n.slotGains) {
		return 0, fmt.Errorf("%w: slot %d of %q", ErrSlotRange, slot, n.name)
	}
	return math.Float64frombits(n.slotGains[slot].Load()), nil
}

// SetInputMuted mutes one input slot of a mixer. A muted slot is left
// out of the sum without rendering its source.
func (n *Node) SetInputMuted(slot int, muted bool) error {
	if n.kind != KindMixer {
		return fmt.Errorf("%w: node %q is %s", ErrKindMismatch, n.name, n.kind)
	}
	if slot < 0 || slot >= len(n.slotMutes) {
		return fmt.Errorf("%w: slot %d of %q", ErrSlotRange, slot, n.name)
	}
	n.slotMutes[slot].Store(muted)
	return nil
}

// InputMuted reports whether one mixer input slot is muted.
func (n *Node) InputMuted(slot int) (bool, error) {
	if n.kind != KindMixer {
		return false, fmt.Errorf("%w: node %q is %s", ErrKindMismatch, n.name, n.kind)
	}
	if slot < 0 || slot >= len(n.slotMutes) {
		return false, fmt.Errorf("%w: slot %d of %q", ErrSlotRange, slot, n.name)
	}
	return n.slotMutes[slot].Load(), nil
}

// LastBuffer copies the most recently rendered block into dst and
// returns the number of samples copied. Safe to call while audio runs;
// the snapshot lags at most one block.
func (n *Node) LastBuffer(dst []float64) int {
	n.vizMu.Lock()
	defer n.vizMu.Unlock()
	return copy(dst, n.vizBuf)
}

// MeterLevel returns the bus level meter reading as a linear peak, or 0
// for nodes without a meter.
func (n *Node) MeterLevel() float64 {
	if n.meter == nil {
		return 0
	}
	return math.Float64frombits(n.levelBits.Load())
}

// MeterLevelDB returns the bus level in dBFS.
func (n *Node) MeterLevelDB() float64 {
	return core.LinearToDB(n.MeterLevel())
}

// render produces one block into dst. The epoch marks the current
// callback; a node pulled twice in the same epoch replays its stored
// block instead of advancing effect state again.
func (n *Node) render(dst []float64, epoch uint64) {
	if len(dst) == 0 {
		return
	}
	if n.epoch == epoch {
		core.CopyInto(dst, n.lastBuffer)
		return
	}
	n.epoch = epoch

	if n.muted.Load() {
		core.Zero(dst)
		n.store(dst)
		return
	}

	n.fill(dst, epoch)

	if !n.bypass.Load() {
		for _, fx := range n.live.effects {
			fx.Process(dst)
		}
	}

	vecmath.ScaleBlockInPlace(dst, n.Gain())

	if n.meter != nil {
		n.levelBits.Store(math.Float64bits(n.meter.Update(dst)))
	}

	n.store(dst)
}

// fill writes the pre-effect input mix into dst.
func (n *Node) fill(dst []float64, epoch uint64) {
	if n.kind == KindGenerator {
		if gen := n.live.generator; gen != nil {
			gen.Generate(dst)
		} else {
			core.Zero(dst)
		}
		return
	}

	core.Zero(dst)
	scratch := core.EnsureLen(n.scratch, len(dst))
	n.scratch = scratch

	if n.kind == KindMixer {
		for i, src := range n.live.inputs {
			if src == nil || n.slotMutes[i].Load() {
				continue
			}
			src.render(scratch, epoch)
			gain := math.Float64frombits(n.slotGains[i].Load())
			for j := range dst {
				dst[j] += scratch[j] * gain
			}
		}
	} else {
		for _, src := range n.live.inputs {
			if src == nil {
				continue
			}
			src.render(scratch, epoch)
			vecmath.AddBlockInPlace(dst, scratch)
		}
	}

	if n.kind == KindBus {
		for _, t := range n.live.tracks {
			if t.Muted() {
				continue
			}
			t.gen.Generate(scratch)
			vecmath.AddBlockInPlace(dst, scratch)
		}
		anySolo := false
		for _, c := range n.live.children {
			if c.Soloed() {
				anySolo = true
				break
			}
		}
		for _, c := range n.live.children {
			if c.Muted() || (anySolo && !c.Soloed()) {
				continue
			}
			c.render(scratch, epoch)
			vecmath.AddBlockInPlace(dst, scratch)
		}
	}
}

// store keeps the rendered block for same-epoch replays and publishes a
// snapshot for visualization readers.
func (n *Node) store(block []float64) {
	n.lastBuffer = core.EnsureLen(n.lastBuffer, len(block))
	copy(n.lastBuffer, block)

	if n.vizMu.TryLock() {
		n.vizBuf = core.EnsureLen(n.vizBuf, len(block))
		copy(n.vizBuf, block)
		n.vizMu.Unlock()
	}
}
