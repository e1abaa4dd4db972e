package canvasrenderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/richtext/dsl"
	"github.com/ByLCY/richtext/layout"
	"github.com/ByLCY/richtext/scene"
)

func TestMeasureLineUsesPoints(t *testing.T) {
	r := NewRenderer(".")
	if err := r.RegisterFont("Body", "embed:goregular"); err != nil {
		t.Fatalf("register: %v", err)
	}
	small := r.MeasureLine("Body", "hello", 12, 0)
	big := r.MeasureLine("Body", "hello", 24, 0)
	if small.Width <= 0 || small.Height <= 0 {
		t.Fatalf("invalid metrics %+v", small)
	}
	if diff := math.Abs(big.Width - 2*small.Width); diff > 1e-6 {
		t.Fatalf("width must scale with size: %g vs 2*%g", big.Width, small.Width)
	}
	// 12pt 的行高应与字号同一量级，而不是毫米
	if small.Height < 10 || small.Height > 20 {
		t.Fatalf("line height %g is not in points", small.Height)
	}
	spaced := r.MeasureLine("Body", "hello", 12, 2)
	if diff := math.Abs(spaced.Width - small.Width - 10); diff > 1e-6 {
		t.Fatalf("letter spacing mismatch: %g vs %g", spaced.Width, small.Width)
	}
}

func TestRegisterFontErrors(t *testing.T) {
	r := NewRenderer("")
	if err := r.RegisterFont("F", "fonts/missing.ttf"); err == nil {
		t.Fatalf("relative path without base dir must fail")
	}
	if err := r.RegisterFont("F", "built-in:nope"); err == nil {
		t.Fatalf("unknown injected font must fail")
	}
	injected := NewRendererWithOptions(Options{Fonts: map[string]Resource{"mono": {Path: "/does/not/exist.ttf"}}})
	if err := injected.RegisterFont("F", "built-in:mono"); err == nil {
		t.Fatalf("unreadable injected font must fail")
	}
}

// 当第一行宽度与容器宽度恰好相等且后面紧跟一个显式换行时，不应产生额外的空行。
func TestNoBlankLineWhenEqualWidthThenNewline(t *testing.T) {
	r := NewRenderer(".")
	first := "SAMPLE-A"
	styles := []layout.Style{{Font: "Body", Size: 12, TextColor: layout.Opaque(0, 0, 0)}}
	limit := r.MeasureLine("Body", first, 12, 0).Width
	frags := layout.PlainFragments(first + "\n" + "SAMPLE-B")
	res := layout.Layout(frags, styles, layout.Size{Width: limit, Height: 1000}, r, layout.Options{})
	if got := len(res.Lines); got != 2 {
		t.Fatalf("expected 2 lines without blank, got %d", got)
	}
	if got := strings.TrimSpace(res.LineText(0)); got != first {
		t.Fatalf("first line mismatch: got=%q want=%q", got, first)
	}
	if got := strings.TrimSpace(res.LineText(1)); got != "SAMPLE-B" {
		t.Fatalf("second line mismatch: got=%q", got)
	}
}

const renderScene = `
scene Demo v1 {
  meta {
    title: "Demo"
    author: "test"
  }
  resources {
    font Body { src: "builtin:goregular" }
    image Dot {
      src: "built-in:dot"
      width: 2mm
      height: 2mm
    }
    style body {
      font: Body
      size: 11pt
    }
    style b extends body { bold: true; shadow: #999 }
    style li extends body { image: Dot }
  }
  frame one 80mm 40mm margin 4mm {
    text body overflow minify { "<li/>Hello <b>${name}</b>, the quick brown fox jumps over the lazy dog" }
  }
  frame two 60mm 30mm {
    label body align center valign middle { "second page" }
  }
}
`

func dotPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(1, 1, color.RGBA{R: 0xff, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRendererWithOptions(Options{Images: map[string]Resource{"dot": {Bytes: dotPNG(t)}}})
	doc, err := dsl.ParseString(renderScene)
	if err != nil {
		t.Fatalf("解析场景失败: %v", err)
	}
	res, err := scene.Build(doc, map[string]any{"name": "Ada"}, scene.BuildOptions{Metrics: r})
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	out, err := r.Render(res)
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestRenderMissingImageFails(t *testing.T) {
	r := NewRenderer("")
	doc, err := dsl.ParseString(renderScene)
	if err != nil {
		t.Fatalf("解析场景失败: %v", err)
	}
	res, err := scene.Build(doc, nil, scene.BuildOptions{Metrics: r})
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	if _, err := r.Render(res); err == nil || !strings.Contains(err.Error(), "dot") {
		t.Fatalf("expected a missing image error, got %v", err)
	}
	if _, err := r.Render(&scene.Result{}); err == nil {
		t.Fatalf("empty result must fail")
	}
}

func TestFitImageStretchesToQuad(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	cases := []struct {
		size layout.Size
		w, h int
	}{
		{layout.Size{Width: 8, Height: 2}, 4, 1},
		{layout.Size{Width: 2, Height: 6}, 4, 12},
		{layout.Size{Width: 3, Height: 3}, 4, 4},
		{layout.Size{Width: 100, Height: 0.01}, 4, 1},
	}
	for _, c := range cases {
		got := fitImage(src, c.size).Bounds()
		if got.Dx() != c.w || got.Dy() != c.h {
			t.Fatalf("fitImage(%+v) = %dx%d, want %dx%d", c.size, got.Dx(), got.Dy(), c.w, c.h)
		}
	}
	if fitImage(src, layout.Size{Width: 5, Height: 5}) != image.Image(src) {
		t.Fatalf("an image with the quad's aspect ratio must not be resampled")
	}
}
