package osc

import (
	"testing"

	"github.com/cwbudde/algo-routing/internal/testutil"
)

// Equal seeds replay the identical sequence; different seeds do not.
func TestNoiseDeterminism(t *testing.T) {
	a := NewNoiseGenerator(42)
	b := NewNoiseGenerator(42)

	bufA := make([]float64, 2048)
	bufB := make([]float64, 2048)
	a.Generate(bufA)
	b.Generate(bufB)
	testutil.RequireSliceEqual(t, bufB, bufA)

	c := NewNoiseGenerator(43)
	bufC := make([]float64, 2048)
	c.Generate(bufC)
	same := true
	for i := range bufC {
		if bufC[i] != bufA[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical noise")
	}
}

// The colored variants integrate white noise, so their sample-to-sample
// variation shrinks relative to total energy: white roughest, brown
// smoothest.
func TestNoiseColoring(t *testing.T) {
	roughness := func(typ NoiseType) float64 {
		g := NewNoiseGenerator(7)
		if err := g.SetType(typ); err != nil {
			t.Fatalf("SetType(%v): %v", typ, err)
		}
		buf := make([]float64, 16384)
		g.Generate(buf)

		var diff, total float64
		for i := 1; i < len(buf); i++ {
			d := buf[i] - buf[i-1]
			diff += d * d
			total += buf[i] * buf[i]
		}
		return diff / total
	}

	white := roughness(NoiseWhite)
	pink := roughness(NoisePink)
	brown := roughness(NoiseBrown)

	if !(white > pink && pink > brown) {
		t.Fatalf("roughness ordering violated: white %v, pink %v, brown %v", white, pink, brown)
	}
}

// Amplitude zero silences the generator without disturbing determinism.
func TestNoiseAmplitudeZero(t *testing.T) {
	g := NewNoiseGenerator(1)
	if err := g.SetAmplitude(0); err != nil {
		t.Fatalf("SetAmplitude: %v", err)
	}

	buf := make([]float64, 512)
	g.Generate(buf)
	testutil.RequireAllZero(t, buf)
}

// Reset restarts the random sequence from the seed.
func TestNoiseResetReplays(t *testing.T) {
	g := NewNoiseGenerator(99)
	if err := g.SetType(NoiseBrown); err != nil {
		t.Fatalf("SetType: %v", err)
	}

	first := make([]float64, 1024)
	g.Generate(first)

	g.Reset()

	second := make([]float64, 1024)
	g.Generate(second)

	testutil.RequireSliceEqual(t, second, first)
}

// Noise type names round-trip through parsing; bad input is rejected.
func TestNoiseTypeNames(t *testing.T) {
	for _, typ := range []NoiseType{NoiseWhite, NoisePink, NoiseBrown} {
		parsed, err := ParseNoiseType(typ.String())
		if err != nil {
			t.Fatalf("ParseNoiseType(%q): %v", typ.String(), err)
		}
		if parsed != typ {
			t.Fatalf("round trip changed type: %v -> %v", typ, parsed)
		}
	}
	if _, err := ParseNoiseType("violet"); err == nil {
		t.Fatalf("ParseNoiseType(violet) must fail")
	}

	g := NewNoiseGenerator(1)
	if err := g.SetType(NoiseType(8)); err == nil {
		t.Fatalf("SetType(8) must fail")
	}
	if err := g.SetAmplitude(-0.1); err == nil {
		t.Fatalf("SetAmplitude(-0.1) must fail")
	}
}
