package layout

// EmitOptions 控制 Result.Emit 的输出。
type EmitOptions struct {
	// MaxCharacters 为正数时限制输出的字符数（打字机效果），项目符号计为一个字符。
	MaxCharacters int
	// Caret 非空时接收每个字符的位置；同时实现 CaretClamper 时，输出前会把
	// 光标限制在本次排版的文本范围内。
	Caret CaretSyncer
}

// Emit 按阅读顺序把绘制单元交给 sink。每个单词依次输出项目符号、阴影与正文
// （粗体各绘制两次）；覆盖图片在所在行的单词之后输出。
func (r *Result) Emit(sink Sink, opts EmitOptions) {
	limit := opts.MaxCharacters
	c := 0
	stopped := false
	clamper, _ := opts.Caret.(CaretClamper)
	if clamper != nil {
		total := 0
		for _, ln := range r.Lines {
			total += r.lineChars(ln)
		}
		clamper.ClampTextPos(total)
		clamper.ClampLine(len(r.Lines))
	}
	if opts.Caret != nil {
		opts.Caret.StartSync()
	}
	for li, ln := range r.Lines {
		if li > 0 && opts.Caret != nil {
			opts.Caret.NextLine()
		}
		if clamper != nil {
			clamper.ClampCol(li, maxCol(r.lineChars(ln), li == len(r.Lines)-1))
		}
		words := r.Words[ln.First : ln.First+ln.Count]
		col := 0
		for _, w := range words {
			st := r.Styles[w.Style]
			pos := Vec2{X: w.X, Y: ln.Y}.Add(ln.Offset)
			if isBullet(r.Styles, w) {
				if limit > 0 && c >= limit {
					stopped = true
				}
				if !stopped {
					sz := r.scaledSize(st.ImageSize)
					sink.EmitImageQuad(ImageQuad{
						Style:    w.Style,
						Image:    st.Image,
						Position: pos.Add(Vec2{Y: (ln.Height - sz.Height) / 2}),
						Size:     sz,
					})
					c++
				}
				pos.X += r.scale(st.ImageSize.Width)
			}
			pos.Y += (ln.Height - r.scale(st.Size)) / 2
			if opts.Caret != nil {
				col = r.syncWord(opts.Caret, w, pos, ln.Height, col)
			}
			if stopped {
				continue
			}
			n := w.Length
			if limit > 0 {
				if c >= limit {
					stopped = true
					continue
				}
				n = min(n, limit-c)
			}
			passes := 1
			if st.Bold {
				passes = 2
			}
			if st.CastShadow {
				for k := 0; k < passes; k++ {
					sink.EmitGlyphRun(r.run(w, w.Length, pos.Add(st.ShadowOffset), st.ShadowColor))
				}
			}
			for k := 0; k < passes; k++ {
				sink.EmitGlyphRun(r.run(w, n, pos, st.TextColor))
			}
			c += n
		}
		if !stopped {
			r.emitOverlays(sink, ln, words)
		}
		if li == len(r.Lines)-1 && opts.Caret != nil {
			// 文本末尾：光标可以停在最后一个字符之后
			x := ln.Offset.X
			if len(words) > 0 {
				last := words[len(words)-1]
				x += last.X + last.Width
			}
			opts.Caret.Sync(col, Vec2{X: x, Y: ln.Y + ln.Offset.Y}, Vec2{Y: ln.Height})
		}
	}
	if opts.Caret != nil {
		opts.Caret.FinishSync()
	}
}

// lineChars 返回一行中同步给光标的字符数（项目符号不计）。
func (r *Result) lineChars(ln LineSpan) int {
	n := 0
	for _, w := range r.Words[ln.First : ln.First+ln.Count] {
		n += w.Length
	}
	return n
}

// syncWord 把 w 的每个字符同步给光标，返回下一列。
func (r *Result) syncWord(cs CaretSyncer, w Word, pos Vec2, lineHeight float64, col int) int {
	st := r.Styles[w.Style]
	size := r.scale(st.Size)
	text := []rune(r.Texts[w.TextRef])[w.Start : w.Start+w.Length]
	prev := 0.0
	for i := range text {
		next := r.metrics.MeasureLine(st.Font, string(text[:i+1]), size, st.LetterSpacing).Width
		cs.Sync(col, Vec2{X: pos.X + prev, Y: pos.Y}, Vec2{X: next - prev, Y: lineHeight})
		prev = next
		col++
	}
	return col
}

func (r *Result) emitOverlays(sink Sink, ln LineSpan, words []Word) {
	for j := 0; j < len(words); j++ {
		w := words[j]
		if !isOverlay(r.Styles, w) {
			continue
		}
		k := j + 1
		for k < len(words) && !words[k].IsFragmentStart && words[k].Style == w.Style {
			k++
		}
		k--
		st := r.Styles[w.Style]
		left := w.X
		if left > 0 {
			left += r.scale(st.LetterSpacing)
		}
		right := words[k].X + words[k].Width
		h := r.scale(st.ImageSize.Height)
		sink.EmitImageQuad(ImageQuad{
			Style:    w.Style,
			Image:    st.Image,
			Position: Vec2{X: left, Y: ln.Y + (ln.Height-h)/2}.Add(ln.Offset),
			Size:     Size{Width: right - left, Height: h},
		})
		j = k
	}
}

func (r *Result) run(w Word, n int, pos Vec2, c Color) GlyphRun {
	st := r.Styles[w.Style]
	return GlyphRun{
		Style:         w.Style,
		Font:          st.Font,
		Text:          substring(r.Texts[w.TextRef], w.Start, n),
		Position:      pos,
		Size:          r.scale(st.Size),
		LetterSpacing: st.LetterSpacing,
		Color:         c,
	}
}

func (r *Result) scale(v float64) float64 {
	return scaleValue(v, r.Scale, r.snap)
}

func (r *Result) scaledSize(s Size) Size {
	return Size{Width: r.scale(s.Width), Height: r.scale(s.Height)}
}

// StyleAt 返回 p（对齐后的区域坐标）处单词的样式下标；p 不在任何单词上时返回 false。
func (r *Result) StyleAt(p Vec2) (int, bool) {
	for _, ln := range r.Lines {
		top := ln.Y + ln.Offset.Y
		if p.Y < top || p.Y >= top+ln.Height {
			continue
		}
		for _, w := range r.Words[ln.First : ln.First+ln.Count] {
			left := w.X + ln.Offset.X
			if p.X >= left && p.X < left+w.Width {
				return w.Style, true
			}
		}
		return 0, false
	}
	return 0, false
}

// StyleAt 按 box 排版并返回 p 处的样式。
func (e *Engine) StyleAt(box Size, p Vec2) (int, bool) {
	return e.Layout(box).StyleAt(p)
}
