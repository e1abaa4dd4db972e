package scene

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/richtext/dsl"
	"github.com/ByLCY/richtext/layout"
)

// mono 是等宽度量：每个字符宽 size/2，行高等于字号，单位 pt。
var mono = layout.MetricsFunc(func(font, text string, size, letterSpacing float64) layout.Size {
	n := float64(len([]rune(text)))
	return layout.Size{Width: n*size/2 + n*letterSpacing, Height: size}
})

// registry 记录注册的字体，同时充当度量。
type registry struct {
	layout.MetricsFunc
	fonts map[string]string
}

func (r *registry) RegisterFont(name, src string) error {
	if src == "bad" {
		return errors.New("bad font")
	}
	r.fonts[name] = src
	return nil
}

const sampleScene = `
scene Card v1 {
  meta {
    title: "Greeting"
    keywords: ["a", "b"]
  }
  resources {
    font Body { src: "builtin:goregular" }
    font Heavy { src: "builtin:gobold" }
    color Accent = #0F62FE
    image Dot {
      src: "dot.png"
      width: 2mm
      height: 2mm
    }
    style body {
      font: Body
      size: 10pt
      color: #333
    }
    style b extends body {
      font: Heavy
      bold: true
      color: Accent
    }
    style li { image: Dot; image-usage: bullet }
  }
  frame card 100mm 60mm margin 5mm {
    text body x 0 y 0 width 40pt height 100pt {
      "aaaa <b>bbbb</b> ${name}"
    }
    label body y 30mm width 62pt height 12pt overflow ellipsis {
      "one two three four"
    }
  }
}
`

func buildScene(t *testing.T, src string, data any, opts BuildOptions) *Result {
	t.Helper()
	doc, err := dsl.ParseString(src)
	if err != nil {
		t.Fatalf("解析场景失败: %v", err)
	}
	if opts.Metrics == nil {
		opts.Metrics = mono
	}
	res, err := Build(doc, data, opts)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}
	return res
}

func lineTexts(r *layout.Result) []string {
	out := make([]string, len(r.Lines))
	for i := range r.Lines {
		out[i] = strings.TrimSpace(r.LineText(i))
	}
	return out
}

func TestBuildScene(t *testing.T) {
	reg := &registry{MetricsFunc: mono, fonts: map[string]string{}}
	res := buildScene(t, sampleScene, map[string]any{"name": "<cc>"}, BuildOptions{Metrics: reg})

	if res.Meta.Title != "Greeting" || len(res.Meta.Keywords) != 2 || res.Meta.Creator != "richtext" {
		t.Fatalf("unexpected meta %+v", res.Meta)
	}
	wantFonts := map[string]string{"Body": "builtin:goregular", "Heavy": "builtin:gobold"}
	if diff := cmp.Diff(wantFonts, reg.fonts); diff != "" {
		t.Fatalf("registered fonts mismatch (-want +got):\n%s", diff)
	}
	if len(res.Frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(res.Frames))
	}
	frame := res.Frames[0]
	if frame.Width != 100 || frame.Height != 60 || frame.Margin != (Margin{5, 5, 5, 5}) {
		t.Fatalf("unexpected frame geometry %+v", frame)
	}
	if len(frame.Boxes) != 2 {
		t.Fatalf("expected 2 boxes, got %d", len(frame.Boxes))
	}

	text := frame.Boxes[0]
	if text.Kind != KindText || text.X != 5 || text.Y != 5 {
		t.Fatalf("unexpected text box %+v", text)
	}
	if text.Source != "aaaa <b>bbbb</b> &lt;cc&gt;" {
		t.Fatalf("data must be escaped, got %q", text.Source)
	}
	if len(text.Styles) != 2 {
		t.Fatalf("expected default and tag styles, got %d", len(text.Styles))
	}
	def, bold := text.Styles[0], text.Styles[1]
	if def.Name != "body" || def.Font != "Body" || def.Size != 10 || def.TextColor != layout.Opaque(0x33, 0x33, 0x33) {
		t.Fatalf("unexpected default style %+v", def)
	}
	if bold.Name != "b" || bold.Font != "Heavy" || !bold.Bold || bold.Size != 10 || bold.TextColor != layout.Opaque(0x0F, 0x62, 0xFE) {
		t.Fatalf("unexpected tag style %+v", bold)
	}
	if diff := cmp.Diff([]string{"aaaa", "bbbb", "<cc>"}, lineTexts(text.Layout)); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}

	label := frame.Boxes[1]
	if label.Kind != KindLabel || label.Label == nil {
		t.Fatalf("unexpected label %+v", label)
	}
	if label.Y != 35 {
		t.Fatalf("label y = %v, want 35", label.Y)
	}
	if diff := cmp.Diff([]string{"one two t..."}, label.LabelLines); diff != "" {
		t.Fatalf("label lines mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFillsBoxToFrame(t *testing.T) {
	res := buildScene(t, `scene S { frame f A5 landscape margin 10mm 20mm { text { "hi" } } }`, nil, BuildOptions{})
	f := res.Frames[0]
	if f.Width != 210 || f.Height != 148 {
		t.Fatalf("landscape A5 = %vx%v", f.Width, f.Height)
	}
	box := f.Boxes[0]
	if box.X != 20 || box.Y != 10 || box.Width != 170 || box.Height != 128 {
		t.Fatalf("unexpected box geometry %+v", box)
	}
	if box.Styles[0].Name != layout.DefaultStyle.Name {
		t.Fatalf("box without style should use the default style, got %+v", box.Styles[0])
	}
}

func TestBuildShowsMarkupErrors(t *testing.T) {
	res := buildScene(t, `scene S { frame f 100mm 100mm { text { "<b>oops" } } }`, nil, BuildOptions{})
	box := res.Frames[0].Boxes[0]
	if box.Error != "Unmatched tag '<b>'" {
		t.Fatalf("error = %q", box.Error)
	}
	if got := strings.Join(lineTexts(box.Layout), " "); got != "Error: Unmatched tag '<b>'" {
		t.Fatalf("displayed text = %q", got)
	}
}

func TestBuildLabelMinify(t *testing.T) {
	res := buildScene(t, `scene S {
  frame f 100mm 100mm {
    label size 20pt minsize 4pt width 33pt height 40pt overflow minify line-height 1x {
      "aaaa bbbb"
    }
  }
}`, nil, BuildOptions{})
	box := res.Frames[0].Boxes[0]
	// 20pt 时 "aaaa" 已有 40pt 宽，放不下
	if box.LabelSize >= 20 || box.LabelSize <= 4 {
		t.Fatalf("label size = %v", box.LabelSize)
	}
	if len(box.LabelLines) == 0 {
		t.Fatalf("minified label has no lines")
	}
}

func TestBuildErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"cycle", `scene S { resources { style a extends b { size: 1 }
style b extends a { size: 2 } } frame f A4 { } }`, "循环"},
		{"missing parent", `scene S { resources { style a extends z { size: 1 } } frame f A4 { } }`, "未定义"},
		{"unknown tag style", `scene S { frame f A4 { text { "<x>a</x>" } } }`, "<x>"},
		{"bad color", `scene S { resources { style a { color: Nope } } frame f A4 { text a { "t" } } }`, "Nope"},
		{"bad overflow", `scene S { frame f A4 { text overflow sideways { "t" } } }`, "sideways"},
		{"unknown command", `scene S { frame f A4 { table { } } }`, "table"},
		{"bad font", `scene S { resources { font F { src: "bad" } } frame f A4 { } }`, "F"},
	}
	for _, c := range cases {
		doc, err := dsl.ParseString(c.src)
		if err != nil {
			t.Fatalf("%s: parse: %v", c.name, err)
		}
		_, err = Build(doc, nil, BuildOptions{Metrics: &registry{MetricsFunc: mono, fonts: map[string]string{}}})
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Fatalf("%s: err = %v, want it to mention %q", c.name, err, c.want)
		}
	}

	doc, err := dsl.ParseString(`scene S { meta { title: "x" } }`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Build(doc, nil, BuildOptions{Metrics: mono}); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("err = %v, want ErrNoFrame", err)
	}
	if _, err := Build(doc, nil, BuildOptions{}); err == nil {
		t.Fatalf("missing metrics must fail")
	}
}

func TestResolveMargin(t *testing.T) {
	lex := func(vals ...string) []*dsl.Lexeme {
		out := make([]*dsl.Lexeme, len(vals))
		for i, v := range vals {
			out[i] = &dsl.Lexeme{Value: v}
		}
		return out
	}
	cases := []struct {
		params []*dsl.Lexeme
		want   Margin
	}{
		{lex("A4"), Margin{}},
		{lex("A4", "margin", "5mm"), Margin{5, 5, 5, 5}},
		{lex("A4", "margin", "1", "2"), Margin{1, 2, 1, 2}},
		{lex("A4", "margin", "1", "2", "3"), Margin{1, 2, 3, 2}},
		{lex("A4", "margin", "1", "2", "3", "4", "landscape"), Margin{1, 2, 3, 4}},
		{lex("A4", "margin", "1cm", "landscape"), Margin{10, 10, 10, 10}},
	}
	for _, c := range cases {
		if got := resolveMargin(c.params); got != c.want {
			t.Fatalf("%v: got %+v, want %+v", c.params, got, c.want)
		}
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]layout.Color{
		"#fff":      layout.Opaque(255, 255, 255),
		"#0F62FE":   layout.Opaque(15, 98, 254),
		"#00000080": {A: 128},
	}
	for in, want := range cases {
		got, err := parseColor(in)
		if err != nil || got != want {
			t.Fatalf("parseColor(%q) = %+v, %v; want %+v", in, got, err, want)
		}
	}
	if _, err := parseColor("#12"); err == nil {
		t.Fatalf("short color must fail")
	}
}

func TestWriteDebugJSON(t *testing.T) {
	res := buildScene(t, sampleScene, map[string]any{"name": "<cc>"}, BuildOptions{})
	path := filepath.Join(t.TempDir(), "debug.json")
	if err := WriteDebugJSON(res, path); err != nil {
		t.Fatalf("写入调试 JSON 失败: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取调试 JSON 失败: %v", err)
	}
	var decoded struct {
		Frames []struct {
			Boxes []struct {
				Kind   string `json:"kind"`
				Layout *struct {
					Lines []json.RawMessage `json:"lines"`
				} `json:"layout"`
			} `json:"boxes"`
		} `json:"frames"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("调试 JSON 无法解析: %v", err)
	}
	if len(decoded.Frames) != 1 || decoded.Frames[0].Boxes[0].Layout == nil || len(decoded.Frames[0].Boxes[0].Layout.Lines) != 3 {
		t.Fatalf("unexpected debug JSON: %s", data)
	}
	if decoded.Frames[0].Boxes[1].Kind != "label" {
		t.Fatalf("second box should be a label")
	}
}

// cycles 记录每次 Evict 收到的周期。
type cycles struct {
	layout.MetricsFunc
	seen []uint64
}

func (c *cycles) Evict(now uint64) int {
	c.seen = append(c.seen, now)
	return 0
}

func TestBuildEvictsPerFrame(t *testing.T) {
	src := `
scene Two {
  frame one A6 { text { "a" } }
  frame two A6 { label { "b" } }
}
`
	m := &cycles{MetricsFunc: mono}
	buildScene(t, src, nil, BuildOptions{Metrics: m})
	if diff := cmp.Diff([]uint64{1, 2}, m.seen); diff != "" {
		t.Fatalf("度量缓存周期不符 (-want +got):\n%s", diff)
	}
}
