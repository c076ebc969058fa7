// Package engine drives a routing graph from a PortAudio output stream.
// It owns the realtime callback: each invocation drains the graph's
// pending command queue, renders one block from the master node and
// hands it to the backend as float32 frames, duplicated across the
// configured channel count.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/cwbudde/algo-routing/graph"
)

const defaultChannels = 2

var (
	// ErrRunning is returned by Start when the stream is already open.
	ErrRunning = errors.New("engine: already running")
	// ErrNotRunning is returned by Stop when no stream is open.
	ErrNotRunning = errors.New("engine: not running")
)

type engineOptions struct {
	channels   int
	underrunFn func()
}

// Option configures an Engine.
type Option func(*engineOptions) error

// WithChannels sets the number of output channels. The mono master
// block is duplicated across all of them.
func WithChannels(channels int) Option {
	return func(o *engineOptions) error {
		if channels < 1 {
			return fmt.Errorf("engine: channel count must be positive: %d", channels)
		}
		o.channels = channels
		return nil
	}
}

// WithUnderrunFunc installs a hook invoked whenever the backend reports
// an output underflow. It runs on the audio thread and must not block.
func WithUnderrunFunc(fn func()) Option {
	return func(o *engineOptions) error {
		o.underrunFn = fn
		return nil
	}
}

// Engine connects a Graph to the default audio output device. The
// render path is allocation-free in steady state; visualization readers
// observe it only through snapshot copies.
type Engine struct {
	g          *graph.Graph
	channels   int
	underrunFn func()

	mu          sync.Mutex
	stream      *portaudio.Stream
	initialized bool
	running     bool

	underruns atomic.Uint64

	// Render scratch, one graph block long.
	block []float64

	// Waveform double buffer. The callback writes the half readers are
	// not looking at, then flips the index; a half still held by a
	// reader is skipped rather than waited on.
	waveMu  [2]sync.Mutex
	wave    [2][]float64
	waveLen [2]int
	waveIdx atomic.Int32
}

// New creates an engine for the given graph. The backend is not touched
// until Start.
func New(g *graph.Graph, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, errors.New("engine: nil graph")
	}

	o := engineOptions{channels: defaultChannels}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		g:          g,
		channels:   o.channels,
		underrunFn: o.underrunFn,
		block:      make([]float64, g.BlockSize()),
	}
	e.wave[0] = make([]float64, g.BlockSize())
	e.wave[1] = make([]float64, g.BlockSize())
	return e, nil
}

// Graph returns the graph this engine renders.
func (e *Engine) Graph() *graph.Graph { return e.g }

// Channels returns the number of output channels.
func (e *Engine) Channels() int { return e.channels }

// Running reports whether the output stream is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Underruns returns the number of output underflows the backend has
// reported since the engine was created.
func (e *Engine) Underruns() uint64 { return e.underruns.Load() }

// Start opens the default output stream and begins rendering. With no
// master set it falls back to the alphabetically first node, or on an
// empty graph builds the default chain first.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrRunning
	}

	if e.g.Master() == nil {
		if names := e.g.Nodes(); len(names) == 0 {
			if err := DefaultSetup(e.g); err != nil {
				return fmt.Errorf("engine: default setup: %w", err)
			}
		} else if err := e.g.SetMaster(names[0]); err != nil {
			return fmt.Errorf("engine: select master: %w", err)
		}
	}

	if !e.initialized {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("engine: initialize backend: %w", err)
		}
		e.initialized = true
	}

	stream, err := portaudio.OpenDefaultStream(
		0, e.channels, e.g.SampleRate(), len(e.block), e.process)
	if err != nil {
		return fmt.Errorf("engine: open stream: %w", err)
	}

	e.g.SetRunning(true)
	if err := stream.Start(); err != nil {
		stream.Close()
		e.g.SetRunning(false)
		return fmt.Errorf("engine: start stream: %w", err)
	}

	e.stream = stream
	e.running = true
	return nil
}

// Stop halts the callback and releases the stream. Queued graph
// commands are flushed once the last render has finished.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

func (e *Engine) stopLocked() error {
	if !e.running {
		return ErrNotRunning
	}

	stopErr := e.stream.Stop()
	e.g.SetRunning(false)
	closeErr := e.stream.Close()
	e.stream = nil
	e.running = false

	if stopErr != nil {
		return fmt.Errorf("engine: stop stream: %w", stopErr)
	}
	if closeErr != nil {
		return fmt.Errorf("engine: close stream: %w", closeErr)
	}
	return nil
}

// Close stops the stream if needed and terminates the backend.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		if err := e.stopLocked(); err != nil {
			return err
		}
	}
	if e.initialized {
		e.initialized = false
		if err := portaudio.Terminate(); err != nil {
			return fmt.Errorf("engine: terminate backend: %w", err)
		}
	}
	return nil
}

// Levels returns the master node's meter reading as a linear peak, or 0
// when no master is set or the master carries no meter.
func (e *Engine) Levels() float64 {
	m := e.g.Master()
	if m == nil {
		return 0
	}
	return m.MeterLevel()
}

// Waveform copies the most recently rendered block into dst and returns
// the number of samples copied. The snapshot lags playback by at most
// one block.
func (e *Engine) Waveform(dst []float64) int {
	i := e.waveIdx.Load()
	e.waveMu[i].Lock()
	defer e.waveMu[i].Unlock()
	return copy(dst, e.wave[i][:e.waveLen[i]])
}

// process is the stream callback.
func (e *Engine) process(out [][]float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.OutputUnderflow != 0 {
		e.underruns.Add(1)
		if e.underrunFn != nil {
			e.underrunFn()
		}
	}
	e.renderBlock(out)
}

// renderBlock runs one callback period: render the master chain, then
// convert to float32 and duplicate the mono block into every output
// channel. Frame counts beyond the configured block size are zero
// padded; shorter ones render fewer samples.
func (e *Engine) renderBlock(out [][]float32) {
	if len(out) == 0 || len(out[0]) == 0 {
		return
	}

	frames := len(out[0])
	m := frames
	if m > len(e.block) {
		m = len(e.block)
	}
	block := e.block[:m]
	e.g.RenderMaster(block)

	for c := range out {
		ch := out[c]
		n := m
		if n > len(ch) {
			n = len(ch)
		}
		for j := 0; j < n; j++ {
			ch[j] = float32(block[j])
		}
		for j := n; j < len(ch); j++ {
			ch[j] = 0
		}
	}

	e.publishWave(block)
}

// publishWave stores the block in the inactive half of the waveform
// double buffer and flips readers over to it.
func (e *Engine) publishWave(block []float64) {
	next := 1 - e.waveIdx.Load()
	if !e.waveMu[next].TryLock() {
		return
	}
	n := copy(e.wave[next], block)
	e.waveLen[next] = n
	e.waveMu[next].Unlock()
	e.waveIdx.Store(next)
}
