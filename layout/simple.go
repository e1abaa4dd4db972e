package layout

import (
	"strings"
)

// CaretClamper keeps a stale caret inside reflowed text. Drivers call
// ClampTextPos and ClampLine before StartSync and ClampCol before the first
// character of each line.
type CaretClamper interface {
	ClampTextPos(length int)
	ClampLine(count int)
	ClampCol(line, max int)
}

// Caret is the caret contract used by the drivers: the sync stream plus the
// clamps.
type Caret interface {
	CaretSyncer
	CaretClamper
}

// maxCol returns the last column a caret may take on a line of n synced
// characters. Only the last line has the end-of-text slot.
func maxCol(n int, last bool) int {
	if last {
		return n
	}
	return n - 1
}

// Extent 描述一次 SimpleText 输出占用的区域（区域坐标）。
type Extent struct {
	Position Vec2 `json:"position"`
	Size     Size `json:"size"`
}

// SimpleText 用于只有一种样式的文本：按 \n 切分逻辑行，再通过 SplitLine 折行，
// 每行输出一个 GlyphRun。
type SimpleText struct {
	Text          string
	Font          string
	Size          float64 // 字号，默认 15
	MinFontSize   float64 // Minify 的最小字号，默认 10
	Spacing       float64 // 行间额外间距
	LetterSpacing float64
	Color         Color
	Box           Size

	HAlign           HAlign
	VAlign           VAlign
	Overflow         Overflow
	WordSplitAllowed bool
	Splittable       func(string) bool
	TrimWhitespaces  bool
}

func (t *SimpleText) fontSize() float64 {
	if t.Size <= 0 {
		return DefaultStyle.Size
	}
	return t.Size
}

func (t *SimpleText) text() string {
	if t.TrimWhitespaces {
		return strings.TrimSpace(t.Text)
	}
	return t.Text
}

func (t *SimpleText) width(m Metrics, s string, size float64) float64 {
	return m.MeasureLine(t.Font, strings.TrimSuffix(s, "\n"), size, t.LetterSpacing).Width
}

func (t *SimpleText) totalHeight(lines int, size, spacing float64) float64 {
	if lines <= 0 {
		return 0
	}
	return size*float64(lines) + spacing*float64(lines-1)
}

// Lines 返回按当前溢出模式处理后的行。除最后一行外，每行保留结尾的 \n。
func (t *SimpleText) Lines(m Metrics) []string {
	return t.lines(m, t.fontSize(), t.Spacing)
}

func (t *SimpleText) lines(m Metrics, size, spacing float64) []string {
	lines := strings.SplitAfter(t.text(), "\n")
	if t.Overflow == OverflowIgnore {
		return lines
	}
	fits := func(line string, start, count int) bool {
		return t.width(m, string([]rune(line)[start:start+count]), size) <= t.Box.Width
	}
	for i := 0; i < len(lines); i++ {
		if t.Overflow == OverflowEllipsis && t.totalHeight(i+2, size, spacing) > t.Box.Height {
			lines[i] = t.clipLine(m, lines[i], size)
			lines = lines[:i+1]
			break
		}
		for t.width(m, lines[i], size) > t.Box.Width {
			var ok bool
			lines, ok = CarryLastWord(lines, i, fits, t.WordSplitAllowed, t.Splittable)
			if !ok {
				if t.Overflow == OverflowEllipsis {
					lines[i] = t.clipLine(m, lines[i], size)
				}
				break
			}
		}
	}
	return lines
}

// clipLine 截断行尾字符直到加上 "..." 后能放下。
func (t *SimpleText) clipLine(m Metrics, line string, size float64) string {
	line = strings.TrimSuffix(line, "\n")
	if t.width(m, line, size) <= t.Box.Width {
		return line
	}
	r := []rune(line)
	for len(r) > 0 && t.width(m, string(r)+ellipsis, size) > t.Box.Width {
		r = r[:len(r)-1]
	}
	return string(r) + ellipsis
}

// FitSize 二分字号（精度 1），返回文本能放进区域的最大字号，Spacing 按比例缩放。
func (t *SimpleText) FitSize(m Metrics) (size, spacing float64) {
	lo := t.MinFontSize
	if lo <= 0 {
		lo = 10
	}
	hi := t.fontSize()
	size, spacing = hi, t.Spacing
	if hi <= lo {
		return size, spacing
	}
	k := t.Spacing / hi
	best := lo
	for hi-lo > 1 {
		e := t.render(m, nil, nil, size, spacing)
		if e.Size.Width <= t.Box.Width && e.Size.Height <= t.Box.Height {
			lo = size
			best = max(best, size)
		} else {
			hi = size
		}
		size = (lo + hi) / 2
		spacing = size * k
	}
	Logger().Debug("layout: simple text minify", "size", best)
	return best, best * k
}

// Measure 返回文本占用的区域，不输出任何内容。
func (t *SimpleText) Measure(m Metrics) Extent {
	return t.render(m, nil, nil, t.fontSize(), t.Spacing)
}

// Render 输出每一行并同步光标；Minify 模式下先调整字号。返回实际占用的区域。
func (t *SimpleText) Render(m Metrics, sink Sink, caret Caret) Extent {
	size, spacing := t.fontSize(), t.Spacing
	if t.Overflow == OverflowMinify {
		size, spacing = t.FitSize(m)
	}
	return t.render(m, sink, caret, size, spacing)
}

func (t *SimpleText) render(m Metrics, sink Sink, caret Caret, size, spacing float64) Extent {
	lines := t.lines(m, size, spacing)
	pos := Vec2{}
	switch total := t.totalHeight(len(lines), size, spacing); t.VAlign {
	case AlignBottom:
		pos.Y = t.Box.Height - total
	case AlignMiddle:
		pos.Y = (t.Box.Height - total) / 2
	}
	if caret != nil {
		total := 0
		for _, line := range lines {
			total += len([]rune(line))
		}
		caret.ClampTextPos(total)
		caret.ClampLine(len(lines))
		caret.StartSync()
	}
	var (
		ext   Extent
		first = true
	)
	for i, line := range lines {
		if i > 0 && caret != nil {
			caret.NextLine()
		}
		w := t.width(m, line, size)
		switch t.HAlign {
		case AlignRight:
			pos.X = t.Box.Width - w
		case AlignCenter:
			pos.X = (t.Box.Width - w) / 2
		default:
			pos.X = 0
		}
		r := []rune(line)
		if caret != nil {
			caret.ClampCol(i, maxCol(len(r), i == len(lines)-1))
			prev := 0.0
			for j := range r {
				next := t.width(m, string(r[:j+1]), size)
				caret.Sync(j, Vec2{X: pos.X + prev, Y: pos.Y}, Vec2{X: next - prev, Y: size})
				prev = next
			}
			if i == len(lines)-1 {
				caret.Sync(len(r), Vec2{X: pos.X + prev, Y: pos.Y}, Vec2{Y: size})
			}
		}
		if sink != nil {
			sink.EmitGlyphRun(GlyphRun{
				Style:         0,
				Font:          t.Font,
				Text:          strings.TrimSuffix(line, "\n"),
				Position:      pos,
				Size:          size,
				LetterSpacing: t.LetterSpacing,
				Color:         t.Color,
			})
		}
		lineExt := Extent{Position: pos, Size: Size{Width: w, Height: size}}
		if first {
			ext, first = lineExt, false
		} else {
			ext = union(ext, lineExt)
		}
		pos.Y += size + spacing
	}
	if caret != nil {
		caret.FinishSync()
	}
	return ext
}

func union(a, b Extent) Extent {
	minX := min(a.Position.X, b.Position.X)
	minY := min(a.Position.Y, b.Position.Y)
	maxX := max(a.Position.X+a.Size.Width, b.Position.X+b.Size.Width)
	maxY := max(a.Position.Y+a.Size.Height, b.Position.Y+b.Size.Height)
	return Extent{Position: Vec2{X: minX, Y: minY}, Size: Size{Width: maxX - minX, Height: maxY - minY}}
}
