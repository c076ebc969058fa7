package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-routing/dsp/core"
	"github.com/cwbudde/algo-routing/dsp/window"
)

const (
	defaultFFTSize   = 2048
	defaultOverlap   = 0.75
	defaultSmoothing = 0.8

	// FloorDB is the display floor for empty or silent spectra.
	FloorDB = -130.0

	analyzerEps = 1e-12
)

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*analyzerConfig)

type analyzerConfig struct {
	fftSize   int
	overlap   float64
	smoothing float64
	window    window.Type
}

// WithFFTSize sets the frame length; power of two between 256 and 8192.
func WithFFTSize(n int) AnalyzerOption {
	return func(c *analyzerConfig) { c.fftSize = n }
}

// WithOverlap sets the frame overlap fraction in [0, 0.95].
func WithOverlap(f float64) AnalyzerOption {
	return func(c *analyzerConfig) { c.overlap = f }
}

// WithSmoothing sets the exponential display smoothing in [0, 0.95]; 0
// shows every frame raw.
func WithSmoothing(s float64) AnalyzerOption {
	return func(c *analyzerConfig) { c.smoothing = s }
}

// WithWindow selects the analysis window.
func WithWindow(t window.Type) AnalyzerOption {
	return func(c *analyzerConfig) { c.window = t }
}

// Analyzer accumulates rendered samples into overlapping windowed FFT
// frames and keeps a smoothed dBFS spectrum for display. Frames advance by
// fftSize*(1-overlap) samples; until the first full frame the spectrum
// reads as the display floor.
type Analyzer struct {
	sampleRate float64
	fftSize    int
	hop        int
	smoothing  float64

	win        []float64
	windowGain float64
	plan       *algofft.Plan[complex128]

	input  []complex128
	output []complex128
	ring   []float64
	write  int
	filled int
	toHop  int

	db    []float64
	ready bool
}

// NewAnalyzer creates an analyzer with a 2048-point Blackman-Harris frame,
// 75% overlap and 0.8 smoothing.
func NewAnalyzer(sampleRate float64, opts ...AnalyzerOption) (*Analyzer, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("analyzer sample rate must be positive: %f", sampleRate)
	}

	cfg := analyzerConfig{
		fftSize:   defaultFFTSize,
		overlap:   defaultOverlap,
		smoothing: defaultSmoothing,
		window:    window.TypeBlackmanHarris,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	switch cfg.fftSize {
	case 256, 512, 1024, 2048, 4096, 8192:
	default:
		return nil, fmt.Errorf("analyzer fft size must be a power of two in [256, 8192]: %d", cfg.fftSize)
	}
	if math.IsNaN(cfg.overlap) || cfg.overlap < 0 || cfg.overlap > 0.95 {
		return nil, fmt.Errorf("analyzer overlap must be in [0, 0.95]: %f", cfg.overlap)
	}
	if math.IsNaN(cfg.smoothing) || cfg.smoothing < 0 || cfg.smoothing > 0.95 {
		return nil, fmt.Errorf("analyzer smoothing must be in [0, 0.95]: %f", cfg.smoothing)
	}

	win := window.Generate(cfg.window, cfg.fftSize, window.WithPeriodic())
	plan, err := algofft.NewPlan64(cfg.fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyzer fft plan: %w", err)
	}

	hop := int(math.Round(float64(cfg.fftSize) * (1 - cfg.overlap)))
	if hop < 1 {
		hop = 1
	}

	a := &Analyzer{
		sampleRate: sampleRate,
		fftSize:    cfg.fftSize,
		hop:        hop,
		smoothing:  cfg.smoothing,
		win:        win,
		windowGain: window.CoherentGain(win),
		plan:       plan,
		input:      make([]complex128, cfg.fftSize),
		output:     make([]complex128, cfg.fftSize),
		ring:       make([]float64, cfg.fftSize),
		db:         make([]float64, cfg.fftSize/2+1),
	}
	for i := range a.db {
		a.db[i] = FloorDB
	}
	return a, nil
}

// FFTSize returns the frame length in samples.
func (a *Analyzer) FFTSize() int { return a.fftSize }

// BinHz returns the frequency width of one bin.
func (a *Analyzer) BinHz() float64 { return a.sampleRate / float64(a.fftSize) }

// Ready reports whether at least one full frame has been analyzed.
func (a *Analyzer) Ready() bool { return a.ready }

// Push feeds rendered samples into the analyzer, emitting a new spectrum
// frame whenever a hop completes.
func (a *Analyzer) Push(block []float64) {
	for _, x := range block {
		a.ring[a.write] = x

		a.write++
		if a.write >= a.fftSize {
			a.write = 0
		}

		if a.filled < a.fftSize {
			a.filled++
		}

		a.toHop++
		if a.filled < a.fftSize || a.toHop < a.hop {
			continue
		}

		a.toHop = 0
		a.updateFrame()
	}
}

func (a *Analyzer) updateFrame() {
	read := a.write
	for i := 0; i < a.fftSize; i++ {
		a.input[i] = complex(a.ring[read]*a.win[i], 0)

		read++
		if read >= a.fftSize {
			read = 0
		}
	}

	if err := a.plan.Forward(a.output, a.input); err != nil {
		return
	}

	norm := float64(a.fftSize) * math.Max(a.windowGain, analyzerEps)

	last := len(a.db) - 1
	for k := 0; k <= last; k++ {
		mag := cmplx.Abs(a.output[k]) / norm
		if k > 0 && k < last {
			mag *= 2
		}

		valDB := 20 * math.Log10(math.Max(analyzerEps, mag))
		if valDB < FloorDB {
			valDB = FloorDB
		}

		if !a.ready {
			a.db[k] = valDB
			continue
		}
		a.db[k] = a.smoothing*a.db[k] + (1-a.smoothing)*valDB
	}

	a.ready = true
}

// CurveDB samples the smoothed spectrum at the requested frequencies,
// interpolating linearly between bins. Before the first frame every value
// is the display floor.
func (a *Analyzer) CurveDB(freqs []float64) []float64 {
	out := make([]float64, len(freqs))
	if !a.ready {
		for i := range out {
			out[i] = FloorDB
		}
		return out
	}

	nyquist := a.sampleRate * 0.5
	binHz := a.BinHz()
	lastBin := len(a.db) - 1

	for i, f := range freqs {
		f = core.Clamp(f, 0, nyquist)

		bin := f / binHz
		if bin <= 0 {
			out[i] = a.db[0]
			continue
		}
		if bin >= float64(lastBin) {
			out[i] = a.db[lastBin]
			continue
		}

		base := int(bin)
		frac := bin - float64(base)
		out[i] = a.db[base] + frac*(a.db[base+1]-a.db[base])
	}
	return out
}

// BinsDB returns a copy of the smoothed per-bin spectrum, fftSize/2+1
// values from DC to Nyquist.
func (a *Analyzer) BinsDB() []float64 {
	out := make([]float64, len(a.db))
	copy(out, a.db)
	return out
}

// Reset discards all buffered samples and returns the display to the
// floor.
func (a *Analyzer) Reset() {
	for i := range a.ring {
		a.ring[i] = 0
	}
	for i := range a.db {
		a.db[i] = FloorDB
	}
	a.write = 0
	a.filled = 0
	a.toHop = 0
	a.ready = false
}
