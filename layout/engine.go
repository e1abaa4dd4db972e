package layout

import (
	"math"

	"github.com/ByLCY/richtext/markup"
)

const ellipsis = "..."

// Engine 在给定区域内排版带样式的片段。它保存分词结果与最近一次的 Result；
// 输入变化时需调用 Invalidate（或 SetOptions）。Engine 不能在多个 goroutine 间共享。
type Engine struct {
	metrics Metrics
	opts    Options
	styles  []Style

	texts     []string
	runes     [][]rune
	textIndex map[string]int
	words     []Word

	pendingBreak bool
	scale        float64

	cached   *Result
	cacheBox Size
}

// New 将片段切分为单词。styles[0] 为默认样式（片段 style 为 -1 时使用），
// style 为 s 的片段使用 styles[s+1]。
func New(fragments []markup.Fragment, styles []Style, metrics Metrics, opts Options) *Engine {
	if len(styles) == 0 {
		styles = []Style{DefaultStyle}
	}
	e := &Engine{
		metrics:   metrics,
		opts:      opts.withDefaults(),
		styles:    append([]Style(nil), styles...),
		textIndex: map[string]int{},
		scale:     1,
	}
	for _, f := range fragments {
		e.addFragment(f)
	}
	e.finishSegmentation()
	return e
}

// Layout 对给定区域执行一次完整排版。结果完全由参数决定。
func Layout(fragments []markup.Fragment, styles []Style, box Size, metrics Metrics, opts Options) *Result {
	return New(fragments, styles, metrics, opts).Layout(box)
}

// Words 返回尚未定位的分词结果。
func (e *Engine) Words() []Word { return e.words }

// Styles 返回样式表。
func (e *Engine) Styles() []Style { return e.styles }

// SetOptions 替换排版选项并丢弃缓存。
func (e *Engine) SetOptions(opts Options) {
	e.opts = opts.withDefaults()
	e.Invalidate()
}

// Invalidate 丢弃缓存的排版结果。
func (e *Engine) Invalidate() {
	e.cached = nil
}

// Layout 返回 box 对应的排版结果；区域未变化时直接复用缓存。
func (e *Engine) Layout(box Size) *Result {
	if e.cached != nil && e.cacheBox == box {
		return e.cached
	}
	e.scale = 1
	if e.opts.Overflow == OverflowMinify {
		e.fitInside(box)
	}
	res := e.pass(box)
	e.cached, e.cacheBox = res, box
	return res
}

// Measure 返回当前缩放下文本所需的包围盒。
func (e *Engine) Measure(box Size) Size {
	_, lines, _ := e.prepare(box.Width, box.Height)
	return lines.bounds
}

// CharacterCount 返回 Emit 会输出的字符数，项目符号图片计为一个字符。
func (e *Engine) CharacterCount(box Size) int {
	res := e.Layout(box)
	n := 0
	for _, ln := range res.Lines {
		for _, w := range res.Words[ln.First : ln.First+ln.Count] {
			if isBullet(res.Styles, w) {
				n++
			}
			n += w.Length
		}
	}
	return n
}

// fitInside 在 [0, MaxScale] 内二分缩放系数，保留能放进区域的最大值。
func (e *Engine) fitInside(box Size) {
	lo, hi := 0.0, e.opts.MaxScale
	e.scale = hi
	best := lo
	passes := 0
	for hi-lo >= e.opts.MinifyTolerance {
		size := e.Measure(box)
		passes++
		if size.Width <= box.Width && size.Height <= box.Height {
			lo = e.scale
			best = math.Max(best, e.scale)
		} else {
			hi = e.scale
		}
		e.scale = (lo + hi) / 2
	}
	if best == 0 {
		// 没有任何缩放能放下时使用尝试过的最小值
		best = hi
	}
	e.scale = best
	Logger().Debug("layout: minify", "scale", best, "passes", passes)
}

type lineSet struct {
	spans  []LineSpan
	bounds Size
}

func (e *Engine) pass(box Size) *Result {
	fitted, lines, _ := e.prepare(box.Width, box.Height)
	for i := range lines.spans {
		ln := &lines.spans[i]
		switch e.opts.HAlign {
		case AlignRight:
			ln.Offset.X = box.Width - ln.Width
		case AlignCenter:
			ln.Offset.X = math.Round((box.Width - ln.Width) / 2)
		}
		switch e.opts.VAlign {
		case AlignBottom:
			ln.Offset.Y = box.Height - lines.bounds.Height
		case AlignMiddle:
			ln.Offset.Y = math.Round((box.Height - lines.bounds.Height) / 2)
		}
	}
	return &Result{
		Words:   fitted,
		Texts:   append([]string(nil), e.texts...),
		Lines:   lines.spans,
		Styles:  e.styles,
		Bounds:  lines.bounds,
		Scale:   e.scale,
		metrics: e.metrics,
		snap:    e.opts.SnapSizes,
	}
}

// prepare 定位单词并按行分组。
func (e *Engine) prepare(maxWidth, maxHeight float64) ([]Word, lineSet, bool) {
	fitted := e.positionWordsHorizontally(maxWidth)

	var (
		set        lineSet
		total      float64
		lineHeight float64
		count      int
		first      int
		truncated  bool
	)
	closeLine := func(next int) bool {
		if e.opts.Overflow == OverflowEllipsis && len(set.spans) > 0 && total+lineHeight > maxHeight {
			e.clipLastLine(fitted, set.spans, maxWidth)
			return false
		}
		set.spans = append(set.spans, LineSpan{First: first, Count: count, Y: total, Height: lineHeight})
		total += lineHeight
		lineHeight, count, first = 0, 0, next
		return true
	}
	for i, w := range fitted {
		st := e.styles[w.Style]
		if w.LineBreakBefore && count > 0 {
			if !closeLine(i) {
				truncated = true
				break
			}
		}
		lineHeight = math.Max(lineHeight, e.scaled(st.Size+st.SpaceAfter))
		if w.IsFragmentStart {
			lineHeight = math.Max(lineHeight, e.scaled(st.ImageSize.Height+st.SpaceAfter))
		}
		count++
	}
	if !truncated && count > 0 {
		truncated = !closeLine(len(fitted))
	}
	if truncated {
		Logger().Debug("layout: ellipsis", "lines", len(set.spans), "maxHeight", maxHeight)
	}

	var longest float64
	for i := range set.spans {
		ln := &set.spans[i]
		for j := 0; j < ln.Count; j++ {
			w := fitted[ln.First+j]
			textual := e.isTextOrBullet(w)
			if textual {
				longest = math.Max(longest, w.X+w.Width)
			}
			if j == ln.Count-1 && !textual {
				continue
			}
			ln.Width += w.Width
		}
	}
	set.bounds = Size{Width: longest, Height: total}
	return fitted, set, truncated
}

// positionWordsHorizontally 计算单词横坐标，拆分放不下的单词并插入换行。
func (e *Engine) positionWordsHorizontally(maxWidth float64) []Word {
	fitted := make([]Word, len(e.words), len(e.words)+8)
	copy(fitted, e.words)
	wrapping := e.opts.Overflow != OverflowIgnore
	x := 0.0
	for i := 0; i < len(fitted); i++ {
		w := fitted[i]
		w.LineBreakBefore = w.forced
		if w.LineBreakBefore {
			x = 0
		}
		w.Width = e.wordWidth(w)
		longer := x+w.Width > maxWidth
		textual := e.isTextOrBullet(w)
		placed := false

		if wrapping && longer && textual && (e.opts.WordSplitAllowed || e.opts.Splittable(e.wordString(w))) {
			if n := e.fittedChars(w, maxWidth-x); n > 0 && n < w.Length {
				if end := AdjustBreak(e.runes[w.TextRef], w.Start, w.Start+n); end > w.Start {
					n = end - w.Start
				}
				tail := w
				tail.IsFragmentStart = false
				tail.Start = w.Start + n
				tail.Length = w.Length - n
				tail.forced = true
				w.Length = n
				w.Width = e.wordWidth(w)
				w.X = x
				x += w.Width
				fitted = append(fitted, Word{})
				copy(fitted[i+2:], fitted[i+1:])
				fitted[i+1] = tail
				placed = true
			}
		}

		if !placed && wrapping && longer && textual && x > 0 && !fitted[i-1].IsNbsp {
			if e.continuesPrevious(fitted[i-1], w) {
				prev := &fitted[i-1]
				prev.X = 0
				prev.LineBreakBefore = true
				w.X = prev.Width
				x = w.X + w.Width
			} else {
				w.X = 0
				w.LineBreakBefore = true
				x = w.Width
			}
			placed = true
		}
		if !placed {
			w.X = x
			x += w.Width
		}

		if e.opts.Overflow == OverflowEllipsis && w.X == 0 && w.Width > maxWidth {
			e.clipWord(&w, maxWidth)
		}
		fitted[i] = w
	}
	return fitted
}

// continuesPrevious 判断 w 是否与 prev 之间没有空白（一个单词跨越两个片段），此时二者一起换行。
func (e *Engine) continuesPrevious(prev, w Word) bool {
	if w.Start != 0 || w.Length == 0 || prev.X == 0 {
		return false
	}
	if isBlank(e.runes[w.TextRef][0]) {
		return false
	}
	if isBullet(e.styles, prev) {
		return true
	}
	return prev.Length > 0 && !isBlank(e.runes[prev.TextRef][prev.Start+prev.Length-1])
}

// fittedChars 返回 w 在 avail 宽度内能放下的最长前缀（含项目符号）。
func (e *Engine) fittedChars(w Word, avail float64) int {
	st := e.styles[w.Style]
	bullet := 0.0
	if isBullet(e.styles, w) {
		bullet = e.scaled(st.ImageSize.Width)
	}
	return LargestCount(w.Length, func(c int) bool {
		return e.measure(st, string(e.runes[w.TextRef][w.Start:w.Start+c])).Width+bullet <= avail
	})
}

// clipLastLine 从最后一行末尾逐个丢弃单词，直到末词首字符加 "..." 能放下，再截断该词。
func (e *Engine) clipLastLine(fitted []Word, spans []LineSpan, maxWidth float64) {
	ln := &spans[len(spans)-1]
	last := ln.First + ln.Count - 1
	for last > ln.First {
		w := fitted[last]
		st := e.styles[w.Style]
		dots := e.measure(st, ellipsis).Width
		lead := ""
		if w.Length > 0 {
			lead = string(e.runes[w.TextRef][w.Start : w.Start+1])
		}
		lone := w.Length == 0 || (w.Length == 1 && isBlank(e.runes[w.TextRef][w.Start]))
		if w.X+e.measure(st, lead).Width+dots > maxWidth || lone {
			last--
			ln.Count--
			continue
		}
		break
	}
	e.clipWord(&fitted[last], maxWidth)
}

// clipWord 在单词加 "..." 超出 maxWidth 时逐个去掉末尾字符（至少保留一个），然后追加 "..."。
func (e *Engine) clipWord(w *Word, maxWidth float64) {
	st := e.styles[w.Style]
	dots := e.measure(st, ellipsis).Width
	for w.Length > 1 && w.X+w.Width+dots > maxWidth {
		w.Length--
		w.Width = e.wordWidth(*w)
	}
	if w.Length == 1 && isBlank(e.runes[w.TextRef][w.Start]) {
		w.Length = 0
	}
	text := e.wordString(*w) + ellipsis
	w.TextRef = e.intern(text)
	w.Start = 0
	w.Length = len(e.runes[w.TextRef])
	w.Width = e.wordWidth(*w)
}

func (e *Engine) wordString(w Word) string {
	return string(e.runes[w.TextRef][w.Start : w.Start+w.Length])
}

func (e *Engine) wordWidth(w Word) float64 {
	st := e.styles[w.Style]
	width := 0.0
	if w.Length > 0 {
		width = e.measure(st, e.wordString(w)).Width
	}
	if isBullet(e.styles, w) {
		width += e.scaled(st.ImageSize.Width)
	}
	return width
}

func (e *Engine) isTextOrBullet(w Word) bool {
	return (w.Length > 0 && !isBlank(e.runes[w.TextRef][w.Start])) || isBullet(e.styles, w)
}

func (e *Engine) measure(st Style, text string) Size {
	return e.metrics.MeasureLine(st.Font, text, e.scaled(st.Size), st.LetterSpacing)
}

func (e *Engine) scaled(v float64) float64 {
	return scaleValue(v, e.scale, e.opts.SnapSizes)
}

func scaleValue(v, scale float64, snap bool) float64 {
	v *= scale
	if snap {
		v = math.Floor(v)
	}
	return v
}

func isBullet(styles []Style, w Word) bool {
	st := styles[w.Style]
	return w.IsFragmentStart && st.ImageUsage == ImageBullet && st.hasImage()
}

func isOverlay(styles []Style, w Word) bool {
	st := styles[w.Style]
	return st.ImageUsage == ImageOverlay && st.hasImage()
}
