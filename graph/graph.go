// Package graph implements a realtime audio routing graph: named nodes
// (generators, processors, mixers, buses) joined through fixed input
// slots, each carrying an ordered effect chain, rendered block by block
// from a designated master node.
//
// A graph is built and reconfigured from a control goroutine while a
// single render goroutine, typically an audio callback, pulls blocks
// via RenderMaster. Scalar parameters are atomic and may change at any
// time; structural changes are queued while audio runs and applied
// between renders.
package graph

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-routing/dsp/core"
)

const (
	defaultMixerInputs = 2
	busInputSlots      = 2
)

type graphOptions struct {
	proc     []core.ProcessorOption
	registry *Registry
}

// Option configures a Graph.
type Option func(*graphOptions)

// WithSampleRate sets the render sample rate in Hz.
func WithSampleRate(sampleRate float64) Option {
	return func(o *graphOptions) {
		o.proc = append(o.proc, core.WithSampleRate(sampleRate))
	}
}

// WithBlockSize sets the nominal block size in frames. Node buffers are
// pre-sized to it so steady-state rendering does not allocate.
func WithBlockSize(frames int) Option {
	return func(o *graphOptions) {
		o.proc = append(o.proc, core.WithBlockSize(frames))
	}
}

// WithRegistry replaces the default effect registry.
func WithRegistry(r *Registry) Option {
	return func(o *graphOptions) {
		if r != nil {
			o.registry = r
		}
	}
}

// Graph is a routing matrix of named nodes.
type Graph struct {
	mu       sync.Mutex
	nodes    map[string]*Node
	cfg      core.ProcessorConfig
	registry *Registry

	master  atomic.Pointer[Node]
	running atomic.Bool

	pendingMu sync.Mutex
	pending   []func()

	epoch uint64
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	var o graphOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	registry := o.registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Graph{
		nodes:    make(map[string]*Node),
		cfg:      core.ApplyProcessorOptions(o.proc...),
		registry: registry,
	}
}

// SampleRate returns the render sample rate in Hz.
func (g *Graph) SampleRate() float64 { return g.cfg.SampleRate }

// BlockSize returns the nominal block size in frames.
func (g *Graph) BlockSize() int { return g.cfg.BlockSize }

// Registry returns the effect registry used by AddEffect.
func (g *Graph) Registry() *Registry { return g.registry }

// dedupName returns base unchanged when free, otherwise base_1, base_2,
// and so on until an unused name is found.
func (g *Graph) dedupName(base string) string {
	if _, taken := g.nodes[base]; !taken {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if _, taken := g.nodes[candidate]; !taken {
			return candidate
		}
	}
}

func (g *Graph) addNode(base string, kind Kind, arity int) *Node {
	name := g.dedupName(base)
	n := newNode(name, kind, arity, g.cfg.SampleRate, g.cfg.BlockSize)
	g.nodes[name] = n
	return n
}

// addNodeExact registers a node under exactly the given name, used when
// restoring persisted state.
func (g *Graph) addNodeExact(name string, kind Kind, arity int) (*Node, error) {
	if _, exists := g.nodes[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrNodeExists, name)
	}
	n := newNode(name, kind, arity, g.cfg.SampleRate, g.cfg.BlockSize)
	g.nodes[name] = n
	return n, nil
}

// AddGenerator registers a source node pulling audio from gen. A nil
// generator renders silence. The returned node's name may carry a
// numeric suffix when the requested one is taken.
func (g *Graph) AddGenerator(name string, gen Generator) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.addNode(name, KindGenerator, 0)
	n.ctl.generator = gen
	n.live.generator = gen
	return n
}

// AddProcessor registers a single-input node whose effect chain shapes
// whatever feeds it.
func (g *Graph) AddProcessor(name string) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNode(name, KindProcessor, 1)
}

// AddMixer registers a node summing the given number of input slots
// with per-slot gain and mute.
func (g *Graph) AddMixer(name string, inputs int) (*Node, error) {
	if inputs < 1 {
		return nil, fmt.Errorf("graph: mixer needs at least one input: %d", inputs)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNode(name, KindMixer, inputs), nil
}

// AddBus registers a bus: a node that additionally sums source tracks
// and child buses and meters its output.
func (g *Graph) AddBus(name string) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addNode(name, KindBus, busInputSlots)
}

// NewNode registers a node of the given kind with its default arity.
func (g *Graph) NewNode(kind Kind, name string) (*Node, error) {
	switch kind {
	case KindGenerator:
		return g.AddGenerator(name, nil), nil
	case KindProcessor:
		return g.AddProcessor(name), nil
	case KindMixer:
		return g.AddMixer(name, defaultMixerInputs)
	case KindBus:
		return g.AddBus(name), nil
	default:
		return nil, fmt.Errorf("graph: unknown node kind: %d", kind)
	}
}

// SetGenerator attaches gen to an existing generator node, replacing
// any previous source. Used to rebind external collaborators after
// restoring persisted state.
func (g *Graph) SetGenerator(nodeName string, gen Generator) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[nodeName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, nodeName)
	}
	if n.kind != KindGenerator {
		return fmt.Errorf("%w: node %q is %s", ErrKindMismatch, nodeName, n.kind)
	}
	g.mutate(n, func(w *wiring) { w.generator = gen })
	return nil
}

// Node returns the named node.
func (g *Graph) Node(name string) (*Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns all node names in sorted order.
func (g *Graph) Nodes() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove disconnects the named node from all neighbors and erases it.
// A removed master leaves the graph rendering silence.
func (g *Graph) Remove(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}

	dsts := make([]*Node, 0, len(n.outputs))
	for dst := range n.outputs {
		dsts = append(dsts, dst)
	}
	for _, dst := range dsts {
		g.unlink(n, dst)
	}
	for _, src := range n.ctl.inputs {
		if src != nil {
			delete(src.outputs, n)
		}
	}
	for _, c := range n.ctl.children {
		delete(c.outputs, n)
	}
	g.mutate(n, func(w *wiring) {
		for i := range w.inputs {
			w.inputs[i] = nil
		}
		w.children = nil
		w.tracks = nil
		w.generator = nil
	})

	delete(g.nodes, name)
	if g.master.Load() == n {
		g.master.Store(nil)
	}
	return nil
}

// Connect feeds src into the given input slot of dst. An occupied slot
// is vacated first, disconnecting the previous occupant from dst
// entirely. Connections that would close a cycle are rejected.
func (g *Graph) Connect(srcName, dstName string, slot int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	src, ok := g.nodes[srcName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, srcName)
	}
	dst, ok := g.nodes[dstName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, dstName)
	}
	if slot < 0 || slot >= len(dst.ctl.inputs) {
		return fmt.Errorf("%w: slot %d of %q", ErrSlotRange, slot, dstName)
	}
	if g.reaches(dst, src) {
		return fmt.Errorf("%w: %q -> %q", ErrCycle, srcName, dstName)
	}

	if old := dst.ctl.inputs[slot]; old != nil {
		g.unlink(old, dst)
	}
	src.outputs[dst] = struct{}{}
	g.mutate(dst, func(w *wiring) { w.inputs[slot] = src })
	return nil
}

// Disconnect removes every link from src into dst, slot connections and
// bus channel attachment alike.
func (g *Graph) Disconnect(srcName, dstName string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	src, ok := g.nodes[srcName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, srcName)
	}
	dst, ok := g.nodes[dstName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, dstName)
	}
	if _, connected := src.outputs[dst]; !connected {
		return fmt.Errorf("%w: %q -> %q", ErrNotConnected, srcName, dstName)
	}
	g.unlink(src, dst)
	return nil
}

// unlink severs all src -> dst links. Callers hold g.mu.
func (g *Graph) unlink(src, dst *Node) {
	delete(src.outputs, dst)
	g.mutate(dst, func(w *wiring) {
		for i, s := range w.inputs {
			if s == src {
				w.inputs[i] = nil
			}
		}
		for i, c := range w.children {
			if c == src {
				w.children = append(w.children[:i], w.children[i+1:]...)
				break
			}
		}
	})
}

// reaches reports whether target can be reached from start by following
// output edges. Callers hold g.mu.
func (g *Graph) reaches(start, target *Node) bool {
	if start == target {
		return true
	}
	seen := map[*Node]bool{start: true}
	stack := []*Node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for out := range n.outputs {
			if out == target {
				return true
			}
			if !seen[out] {
				seen[out] = true
				stack = append(stack, out)
			}
		}
	}
	return false
}

// SetMaster selects the node whose render becomes the system output.
func (g *Graph) SetMaster(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	g.master.Store(n)
	return nil
}

// ClearMaster unsets the master node; the graph then renders silence.
func (g *Graph) ClearMaster() {
	g.master.Store(nil)
}

// Master returns the current master node, or nil when none is set.
func (g *Graph) Master() *Node {
	return g.master.Load()
}

// RenderMaster applies queued structural changes, then renders one
// block from the master node into dst. Without a master the block is
// silence. Called from the render goroutine.
func (g *Graph) RenderMaster(dst []float64) {
	g.drainPending()
	m := g.master.Load()
	if m == nil || len(dst) == 0 {
		core.Zero(dst)
		return
	}
	g.epoch++
	m.render(dst, g.epoch)
}

// SetRunning tells the graph whether a render goroutine is active.
// While running, structural changes queue up and apply at the start of
// the next RenderMaster; turning running off applies anything still
// queued. The engine toggles this around stream start and stop.
func (g *Graph) SetRunning(running bool) {
	if running {
		g.running.Store(true)
		return
	}
	g.running.Store(false)
	g.drainPending()
}

// Do runs fn between renders while audio is running, or immediately
// otherwise. Use it to mutate external generator state, triggering a
// sampler for instance, without racing the render goroutine.
func (g *Graph) Do(fn func()) {
	if fn == nil {
		return
	}
	g.exec(fn)
}

// exec applies fn immediately when no render goroutine is active and
// reports true, otherwise queues it for the next RenderMaster and
// reports false.
func (g *Graph) exec(fn func()) bool {
	if g.running.Load() {
		g.pendingMu.Lock()
		g.pending = append(g.pending, fn)
		g.pendingMu.Unlock()
		return false
	}
	fn()
	return true
}

// drainPending swaps out the queued commands and runs them in order.
// The swap is constant-time so the render goroutine never waits behind
// control-side work.
func (g *Graph) drainPending() {
	g.pendingMu.Lock()
	cmds := g.pending
	g.pending = nil
	g.pendingMu.Unlock()
	for _, fn := range cmds {
		fn()
	}
}

// mutate applies a structural edit to the node's control view now and
// to its live view between renders. Callers hold g.mu.
func (g *Graph) mutate(n *Node, fn func(*wiring)) {
	fn(&n.ctl)
	g.exec(func() { fn(&n.live) })
}

// AddEffect appends a registry effect to the node's chain.
func (g *Graph) AddEffect(nodeName, effectType string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[nodeName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, nodeName)
	}
	factory := g.registry.Lookup(effectType)
	if factory == nil {
		return fmt.Errorf("%w: %q", ErrUnknownEffect, effectType)
	}
	fx, err := factory(g.cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("graph: build effect %q: %w", effectType, err)
	}
	g.mutate(n, func(w *wiring) { w.effects = append(w.effects, fx) })
	return nil
}

// ConfigureEffect applies parameters to the chain entry at index. While
// audio runs the change lands between renders; validation errors are
// then unreported, with out-of-range values clamped and unknown enum
// values leaving the current setting in place.
func (g *Graph) ConfigureEffect(nodeName string, index int, p Params) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[nodeName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, nodeName)
	}
	if index < 0 || index >= len(n.ctl.effects) {
		return fmt.Errorf("%w: effect %d on %q", ErrEffectRange, index, nodeName)
	}
	fx := n.ctl.effects[index]
	var err error
	if g.exec(func() { err = fx.Configure(p) }) {
		return err
	}
	return nil
}

// RemoveEffect deletes the chain entry at index.
func (g *Graph) RemoveEffect(nodeName string, index int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[nodeName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, nodeName)
	}
	if index < 0 || index >= len(n.ctl.effects) {
		return fmt.Errorf("%w: effect %d on %q", ErrEffectRange, index, nodeName)
	}
	fx := n.ctl.effects[index]
	g.mutate(n, func(w *wiring) {
		for i, e := range w.effects {
			if e == fx {
				w.effects = append(w.effects[:i], w.effects[i+1:]...)
				break
			}
		}
	})
	return nil
}

// Effects lists the node's chain as effect type names, in order.
func (g *Graph) Effects(nodeName string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[nodeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, nodeName)
	}
	types := make([]string, len(n.ctl.effects))
	for i, fx := range n.ctl.effects {
		types[i] = fx.Type()
	}
	return types, nil
}

// EffectParams snapshots the parameters of the chain entry at index.
// Exact while rendering is stopped; a concurrent live reconfiguration
// may be mid-apply otherwise.
func (g *Graph) EffectParams(nodeName string, index int) (Params, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[nodeName]
	if !ok {
		return Params{}, fmt.Errorf("%w: %q", ErrUnknownNode, nodeName)
	}
	if index < 0 || index >= len(n.ctl.effects) {
		return Params{}, fmt.Errorf("%w: effect %d on %q", ErrEffectRange, index, nodeName)
	}
	return n.ctl.effects[index].Params(), nil
}
