package graph

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// SourceTrack feeds an external generator into a bus outside the slot
// mechanism. The mute flag is atomic so a control surface can toggle it
// while audio runs.
type SourceTrack struct {
	name  string
	gen   Generator
	muted atomic.Bool
}

// Name returns the track name, unique within its bus.
func (t *SourceTrack) Name() string { return t.name }

// SetMuted mutes or unmutes the track. A muted track is not pulled, so
// its generator state freezes until unmuted.
func (t *SourceTrack) SetMuted(muted bool) { t.muted.Store(muted) }

// Muted reports whether the track is muted.
func (t *SourceTrack) Muted() bool { return t.muted.Load() }

// AddChannel creates a child bus under the named bus, the per-
// instrument channel strip of a mixer surface. Channel names are
// deduplicated like node names; the child is a full graph node and can
// carry effects, gain, mute and solo of its own.
func (g *Graph) AddChannel(busName, name string) (*Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	bus, ok := g.nodes[busName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, busName)
	}
	if bus.kind != KindBus {
		return nil, fmt.Errorf("%w: node %q is %s", ErrKindMismatch, busName, bus.kind)
	}
	child := g.addNode(name, KindBus, busInputSlots)
	g.attachChild(bus, child)
	return child, nil
}

// attachChild links an existing bus as a child of another. Callers hold
// g.mu and have checked both kinds.
func (g *Graph) attachChild(bus, child *Node) {
	child.outputs[bus] = struct{}{}
	g.mutate(bus, func(w *wiring) { w.children = append(w.children, child) })
}

// attachChildByName links two existing buses as parent and child, used
// when restoring persisted state. Attaching an already attached child
// is a no-op.
func (g *Graph) attachChildByName(busName, childName string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	bus, ok := g.nodes[busName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, busName)
	}
	if bus.kind != KindBus {
		return fmt.Errorf("%w: node %q is %s", ErrKindMismatch, busName, bus.kind)
	}
	child, ok := g.nodes[childName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, childName)
	}
	if child.kind != KindBus {
		return fmt.Errorf("%w: node %q is %s", ErrKindMismatch, childName, child.kind)
	}
	for _, c := range bus.ctl.children {
		if c == child {
			return nil
		}
	}
	if g.reaches(bus, child) {
		return fmt.Errorf("%w: %q -> %q", ErrCycle, childName, busName)
	}
	g.attachChild(bus, child)
	return nil
}

// Children returns the names of the bus's child buses in render order.
func (g *Graph) Children(busName string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	bus, ok := g.nodes[busName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, busName)
	}
	if bus.kind != KindBus {
		return nil, fmt.Errorf("%w: node %q is %s", ErrKindMismatch, busName, bus.kind)
	}
	names := make([]string, len(bus.ctl.children))
	for i, c := range bus.ctl.children {
		names[i] = c.name
	}
	return names, nil
}

// AddSourceTrack attaches gen to the named bus as a source track and
// returns the handle controlling it. Track names are deduplicated
// within the bus.
func (g *Graph) AddSourceTrack(busName, name string, gen Generator) (*SourceTrack, error) {
	if gen == nil {
		return nil, errors.New("graph: nil source track generator")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	bus, ok := g.nodes[busName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, busName)
	}
	if bus.kind != KindBus {
		return nil, fmt.Errorf("%w: node %q is %s", ErrKindMismatch, busName, bus.kind)
	}

	track := &SourceTrack{name: dedupTrackName(bus.ctl.tracks, name), gen: gen}
	g.mutate(bus, func(w *wiring) { w.tracks = append(w.tracks, track) })
	return track, nil
}

// RemoveSourceTrack detaches the named track from the bus.
func (g *Graph) RemoveSourceTrack(busName, trackName string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	bus, ok := g.nodes[busName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNode, busName)
	}
	if bus.kind != KindBus {
		return fmt.Errorf("%w: node %q is %s", ErrKindMismatch, busName, bus.kind)
	}
	var track *SourceTrack
	for _, t := range bus.ctl.tracks {
		if t.name == trackName {
			track = t
			break
		}
	}
	if track == nil {
		return fmt.Errorf("%w: track %q on %q", ErrNotConnected, trackName, busName)
	}
	g.mutate(bus, func(w *wiring) {
		for i, t := range w.tracks {
			if t == track {
				w.tracks = append(w.tracks[:i], w.tracks[i+1:]...)
				break
			}
		}
	})
	return nil
}

// SourceTracks returns the names of the bus's tracks in render order.
func (g *Graph) SourceTracks(busName string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	bus, ok := g.nodes[busName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, busName)
	}
	if bus.kind != KindBus {
		return nil, fmt.Errorf("%w: node %q is %s", ErrKindMismatch, busName, bus.kind)
	}
	names := make([]string, len(bus.ctl.tracks))
	for i, t := range bus.ctl.tracks {
		names[i] = t.name
	}
	return names, nil
}

func dedupTrackName(tracks []*SourceTrack, base string) string {
	taken := func(name string) bool {
		for _, t := range tracks {
			if t.name == name {
				return true
			}
		}
		return false
	}
	if !taken(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
