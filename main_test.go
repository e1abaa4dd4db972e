package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	canvasrenderer "github.com/ByLCY/richtext/renderer/canvas"
)

func TestRunDemo(t *testing.T) {
	for _, metrics := range []string{"canvas", "opentype", "harfbuzz"} {
		dir := t.TempDir()
		out := filepath.Join(dir, "out", "demo.pdf")
		debug := filepath.Join(dir, "debug", "layout.json")
		data := map[string]any{"user": map[string]any{"name": "Ada", "note": "printed <today>"}}

		cr := canvasrenderer.NewRenderer("examples")
		opts, err := buildOptions(metrics, "examples", cr)
		if err != nil {
			t.Fatalf("%s: %v", metrics, err)
		}
		if err := run("examples/demo.rtx", out, debug, data, cr, opts); err != nil {
			t.Fatalf("%s: run failed: %v", metrics, err)
		}
		pdf, err := os.ReadFile(out)
		if err != nil || !bytes.HasPrefix(pdf, []byte("%PDF")) {
			t.Fatalf("%s: missing PDF output: %v", metrics, err)
		}
		if info, err := os.Stat(debug); err != nil || info.Size() == 0 {
			t.Fatalf("%s: missing debug output: %v", metrics, err)
		}
	}
	if _, err := buildOptions("nope", "", canvasrenderer.NewRenderer("")); err == nil {
		t.Fatalf("unknown metrics must fail")
	}
}
