package fonts

import (
	"math"
	"testing"

	"github.com/ByLCY/richtext/layout"
)

func TestLoadBuiltin(t *testing.T) {
	for _, src := range []string{"", "builtin:gobold", "embed:gomono.ttf", "builtin:"} {
		data, err := Load(src, "")
		if err != nil || len(data) == 0 {
			t.Fatalf("Load(%q) = %d bytes, err %v", src, len(data), err)
		}
	}
	if _, err := Load("builtin:nope", ""); err == nil {
		t.Fatalf("unknown builtin font should fail")
	}
	if _, err := Load("missing.ttf", t.TempDir()); err == nil {
		t.Fatalf("missing file should fail")
	}
	if names := Builtin(); len(names) != 12 || names[0] != "gobold" {
		t.Fatalf("unexpected builtin names %v", names)
	}
}

func testProviders(t *testing.T) map[string]interface {
	layout.Metrics
	RegisterFont(name, src string) error
} {
	t.Helper()
	return map[string]interface {
		layout.Metrics
		RegisterFont(name, src string) error
	}{
		"faces":  NewFaces(""),
		"shaper": NewShaper(""),
	}
}

func TestMetricsProviders(t *testing.T) {
	for name, m := range testProviders(t) {
		if err := m.RegisterFont("Mono", "builtin:gomono"); err != nil {
			t.Fatalf("%s: register: %v", name, err)
		}
		one := m.MeasureLine("Mono", "a", 10, 0)
		four := m.MeasureLine("Mono", "abcd", 10, 0)
		if one.Width <= 0 || one.Height <= 0 {
			t.Fatalf("%s: empty metrics %+v", name, one)
		}
		if math.Abs(four.Width-4*one.Width) > 0.01 {
			t.Fatalf("%s: monospace widths do not add up: %v vs 4*%v", name, four.Width, one.Width)
		}
		spaced := m.MeasureLine("Mono", "abcd", 10, 1)
		if math.Abs(spaced.Width-four.Width-4) > 0.01 {
			t.Fatalf("%s: letter spacing not applied: %v vs %v", name, spaced.Width, four.Width)
		}
		big := m.MeasureLine("Mono", "abcd", 20, 0)
		if big.Width <= four.Width || big.Height <= four.Height {
			t.Fatalf("%s: larger size must measure larger", name)
		}
		if empty := m.MeasureLine("Mono", "", 10, 0); empty.Width != 0 || empty.Height <= 0 {
			t.Fatalf("%s: empty text should have zero width and a line height, got %+v", name, empty)
		}
		if fb := m.MeasureLine("Unknown", "abcd", 10, 0); fb.Width <= 0 {
			t.Fatalf("%s: unknown font should fall back to the default font", name)
		}
	}
}

func TestFacesDriveLayout(t *testing.T) {
	f := NewFaces("")
	defer f.Close()
	styles := []layout.Style{{Font: "goregular", Size: 12}}
	frags := layout.PlainFragments("the quick brown fox jumps over the lazy dog")
	res := layout.Layout(frags, styles, layout.Size{Width: 80, Height: 200}, f, layout.Options{})
	if len(res.Lines) < 3 {
		t.Fatalf("expected the sentence to wrap, got %d lines", len(res.Lines))
	}
	for i, ln := range res.Lines {
		if ln.Width > 80 {
			t.Fatalf("line %d too wide: %v", i, ln.Width)
		}
	}
}

func TestFacesCacheRoundsAndEvicts(t *testing.T) {
	f := NewFaces("")
	defer f.Close()
	a := f.MeasureLine("goregular", "abcd", 10, 0)
	b := f.MeasureLine("goregular", "abcd", 10.001, 0)
	if a != b || f.Len() != 1 {
		t.Fatalf("sizes within 1/64pt must share a face: %+v %+v len=%d", a, b, f.Len())
	}
	f.MeasureLine("goregular", "abcd", 10.5, 0)
	if f.Len() != 2 {
		t.Fatalf("expected 2 cached faces, got %d", f.Len())
	}
	if n := f.Evict(1); n != 2 || f.Len() != 0 {
		t.Fatalf("faces unused in cycle 1 must go: removed %d, left %d", n, f.Len())
	}

	f.MaxAge = 1
	f.MeasureLine("goregular", "abcd", 12, 0)
	if n := f.Evict(2); n != 0 {
		t.Fatalf("face used one cycle ago must stay, removed %d", n)
	}
	if n := f.Evict(3); n != 1 {
		t.Fatalf("stale face must be removed, removed %d", n)
	}
	if got := f.MeasureLine("goregular", "abcd", 10, 0); got != a {
		t.Fatalf("re-created face measures differently: %+v vs %+v", got, a)
	}
}
