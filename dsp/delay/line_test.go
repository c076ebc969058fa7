package delay

import (
	"math"
	"testing"
)

// A sample written d steps ago must come back exactly via Read(d).
func TestLineWriteRead(t *testing.T) {
	line, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 8; i++ {
		line.Write(float64(i))
	}

	// Write cursor wrapped to 0; Read(1) is the newest sample.
	for d := 1; d <= 8; d++ {
		want := float64(8 - d)
		if got := line.Read(d); got != want {
			t.Fatalf("Read(%d): got %v, want %v", d, got, want)
		}
	}
}

// Read must wrap modulo capacity after the cursor passes the end.
func TestLineWraparound(t *testing.T) {
	line, _ := New(4)
	for i := 0; i < 10; i++ {
		line.Write(float64(i))
	}
	// Last four writes were 6,7,8,9.
	for d := 1; d <= 4; d++ {
		want := float64(10 - d)
		if got := line.Read(d); got != want {
			t.Fatalf("Read(%d): got %v, want %v", d, got, want)
		}
	}
}

// Fractional reads on a linear ramp are exact for cubic interpolation.
func TestLineReadFractional(t *testing.T) {
	line, _ := New(16)
	for i := 0; i < 16; i++ {
		line.Write(float64(i))
	}

	got := line.ReadFractional(2.5)
	want := 0.5*line.Read(2) + 0.5*line.Read(3)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("ReadFractional(2.5): got %v, want %v", got, want)
	}
}

// Growing the line must keep the newest history readable at the same
// delays, with only the newly exposed positions reading zero.
func TestLineResizePreservesHistory(t *testing.T) {
	line, _ := New(4)
	for i := 1; i <= 4; i++ {
		line.Write(float64(i))
	}

	if err := line.Resize(8); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if line.Len() != 8 {
		t.Fatalf("Len after grow: got %d, want 8", line.Len())
	}

	for d := 1; d <= 4; d++ {
		want := float64(5 - d)
		if got := line.Read(d); got != want {
			t.Fatalf("after grow Read(%d): got %v, want %v", d, got, want)
		}
	}
	for d := 5; d <= 8; d++ {
		if got := line.Read(d); got != 0 {
			t.Fatalf("new position Read(%d): got %v, want 0", d, got)
		}
	}
}

// Shrinking keeps only the newest samples.
func TestLineResizeShrink(t *testing.T) {
	line, _ := New(8)
	for i := 1; i <= 8; i++ {
		line.Write(float64(i))
	}

	if err := line.Resize(3); err != nil {
		t.Fatalf("Resize: %v", err)
	}

	for d := 1; d <= 3; d++ {
		want := float64(9 - d)
		if got := line.Read(d); got != want {
			t.Fatalf("after shrink Read(%d): got %v, want %v", d, got, want)
		}
	}
}

// Reset restores the all-zero initial state.
func TestLineReset(t *testing.T) {
	line, _ := New(4)
	line.Write(1)
	line.Write(2)
	line.Reset()

	for d := 1; d <= 4; d++ {
		if got := line.Read(d); got != 0 {
			t.Fatalf("after reset Read(%d): got %v, want 0", d, got)
		}
	}
}

// Invalid sizes are rejected at construction and resize.
func TestLineInvalidSize(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatalf("New(0) must fail")
	}
	line, _ := New(4)
	if err := line.Resize(-1); err == nil {
		t.Fatalf("Resize(-1) must fail")
	}
}
