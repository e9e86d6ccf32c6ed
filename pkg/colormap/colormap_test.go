package colormap

import (
	"testing"
)

func TestHuslDeterministic(t *testing.T) {
	t.Parallel()

	a := Husl.Colors(5)
	b := Husl.Colors(5)
	if len(a) != 5 || len(b) != 5 {
		t.Fatalf("expected 5 colors, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("color %d differs between calls: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestHuslDistinct(t *testing.T) {
	t.Parallel()

	colors := Husl.Colors(8)
	seen := make(map[[3]uint8]bool)
	for _, c := range colors {
		key := [3]uint8{c.R, c.G, c.B}
		if seen[key] {
			t.Fatalf("duplicate color %v in palette of 8", c)
		}
		seen[key] = true
	}
}

func TestHuslEmpty(t *testing.T) {
	t.Parallel()

	if got := Husl.Colors(0); got != nil {
		t.Fatalf("expected nil for 0 colors, got %v", got)
	}
}

func TestMarkerCycleWraps(t *testing.T) {
	t.Parallel()

	if len(Markers) != 7 {
		t.Fatalf("expected 7 marker shapes, got %d", len(Markers))
	}
	if MarkerAt(0) != MarkerCircle {
		t.Errorf("expected first marker circle, got %s", MarkerAt(0))
	}
	if MarkerAt(7) != MarkerAt(0) {
		t.Errorf("expected marker cycle to wrap at 7")
	}
}

func TestCategoricalWraps(t *testing.T) {
	t.Parallel()

	colors := Categorical.Colors(25)
	if len(colors) != 25 {
		t.Fatalf("expected 25 colors, got %d", len(colors))
	}
	if colors[20] != colors[0] {
		t.Errorf("expected wrap-around at index 20")
	}
}

func TestByName(t *testing.T) {
	t.Parallel()

	if _, err := ByName("husl"); err != nil {
		t.Errorf("husl: %v", err)
	}
	if _, err := ByName(""); err != nil {
		t.Errorf("empty name should default: %v", err)
	}
	if _, err := ByName("categorical"); err != nil {
		t.Errorf("categorical: %v", err)
	}
	if _, err := ByName("nope"); err == nil {
		t.Error("expected error for unknown palette")
	}
}

func TestHex(t *testing.T) {
	t.Parallel()

	if got := Hex(Deep[0]); got != "#4c72b0" {
		t.Fatalf("unexpected hex: %s", got)
	}
}
