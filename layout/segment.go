package layout

import "github.com/ByLCY/richtext/markup"

// PlainFragments 把纯文本包装为一个默认样式的片段。
func PlainFragments(text string) []markup.Fragment {
	return []markup.Fragment{{Style: -1, Text: text}}
}

// intern 返回文本在字符串表中的下标，首次出现时加入。
func (e *Engine) intern(text string) int {
	if i, ok := e.textIndex[text]; ok {
		return i
	}
	e.texts = append(e.texts, text)
	e.runes = append(e.runes, []rune(text))
	e.textIndex[text] = len(e.texts) - 1
	return len(e.texts) - 1
}

// styleIndex 把解析器的样式下标（-1 为默认）映射到样式表，0 号为默认样式。越界时回退到默认样式。
func (e *Engine) styleIndex(fragmentStyle int) int {
	i := fragmentStyle + 1
	if i < 0 || i >= len(e.styles) {
		return 0
	}
	return i
}

// addFragment 把片段切分为单词。空白字符单独成词；\n 使其后的单词强制换行。
func (e *Engine) addFragment(f markup.Fragment) {
	ref := e.intern(f.Text)
	w := Word{
		TextRef:         ref,
		Style:           e.styleIndex(f.Style),
		IsFragmentStart: !f.IsNbsp,
		IsNbsp:          f.IsNbsp,
	}
	t := e.runes[ref]
	if len(t) == 0 {
		w.forced = e.pendingBreak
		e.pendingBreak = false
		e.words = append(e.words, w)
		return
	}
	curr := 0
	for curr < len(t) {
		start := curr
		newline := false
		if isBlank(t[curr]) {
			newline = t[curr] == '\n'
			curr++
		} else {
			for curr < len(t) && !isBlank(t[curr]) {
				curr++
			}
		}
		w.Start = start
		w.Length = curr - start
		w.forced = e.pendingBreak
		e.pendingBreak = newline
		e.words = append(e.words, w)
		w.IsFragmentStart = false
	}
}

// finishSegmentation 让结尾的 \n 产生一个空的末行。
func (e *Engine) finishSegmentation() {
	if !e.pendingBreak || len(e.words) == 0 {
		return
	}
	last := e.words[len(e.words)-1]
	e.words = append(e.words, Word{
		TextRef: last.TextRef,
		Style:   last.Style,
		Start:   len(e.runes[last.TextRef]),
		forced:  true,
	})
	e.pendingBreak = false
}
