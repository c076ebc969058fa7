// Package effects provides the stateful per-sample effect kernels chained
// onto routing graph nodes.
//
// Effects in this package:
//   - Delay: Feedback delay with dry/wet mix.
//   - Reverb: Eight-tap room reverb with progressive damping.
//   - Filter: Lowpass/highpass/bandpass biquad with resonance control.
//   - Compressor: Peak-envelope dynamics compressor with dB-domain gain law.
//
// All effects are designed for real-time processing with zero-allocation
// hot paths and support both single-sample and buffer-based processing.
// Given identical parameter and state sequences they produce bit-identical
// output.
package effects
