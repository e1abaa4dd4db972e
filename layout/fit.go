package layout

import (
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/width"
)

// LargestCount returns the largest c in [0, n] for which fits(c) holds,
// assuming fits is monotone (true up to some count, false after). fits(0) is
// never evaluated and is taken to be true.
func LargestCount(n int, fits func(count int) bool) int {
	lo, hi := 0, n
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// AdjustBreak moves a break offset end (runes[start:end] is the head) back to
// the closest grapheme cluster boundary so that combining sequences stay
// whole. It returns start when no boundary lies in (start, end].
func AdjustBreak(runes []rune, start, end int) int {
	if end <= start {
		return start
	}
	if end >= len(runes) {
		return len(runes)
	}
	best := start
	pos := start
	g := uniseg.NewGraphemes(string(runes[start:]))
	for g.Next() {
		pos += len(g.Runes())
		if pos > end {
			break
		}
		best = pos
	}
	return best
}

// DefaultSplittable reports whether text contains characters of scripts that
// are written without spaces (CJK ideographs, kana, hangul, fullwidth forms),
// where a line may break between any two characters.
func DefaultSplittable(text string) bool {
	for _, r := range text {
		if isSplittableRune(r) {
			return true
		}
	}
	return false
}

func isSplittableRune(r rune) bool {
	if r < 0x1100 {
		return false
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return unicode.IsLetter(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	}
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func isBlank(r rune) bool { return r <= ' ' }
