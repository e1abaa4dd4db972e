package layout

import "strings"

// FitsFunc reports whether count runes of line starting at start fit the
// available width.
type FitsFunc func(line string, start, count int) bool

// softBreak may be used instead of a space to mark a break opportunity.
const softBreak = '\u200b'

// SplitLine cuts line into a head that stays on the current line and a tail
// that is carried to the next one. A trailing '\n' always goes with the tail.
//
// The cut is made at the last space or soft break. If the line has none, or
// it is mid-word splittable, the longest fitting prefix is used instead
// (wordSplit or splittable(line) must allow it). ok is false when no
// non-empty head can be produced.
func SplitLine(line string, fits FitsFunc, wordSplit bool, splittable func(string) bool) (head, tail string, ok bool) {
	content, nl := strings.CutSuffix(line, "\n")
	newline := ""
	if nl {
		newline = "\n"
	}
	if splittable == nil {
		splittable = DefaultSplittable
	}
	cjk := splittable(content)
	if !cjk {
		if head, tail, ok = cutLastWord(content); ok {
			return head, tail + newline, true
		}
	}
	if wordSplit || cjk {
		if head, tail, ok = cutWordTail(line, content, fits); ok {
			return head, tail + newline, true
		}
	}
	if cjk {
		if head, tail, ok = cutLastWord(content); ok {
			return head, tail + newline, true
		}
	}
	return "", "", false
}

func cutLastWord(content string) (string, string, bool) {
	r := []rune(content)
	at := -1
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == ' ' || r[i] == softBreak {
			at = i
			break
		}
	}
	if at <= 0 {
		return "", "", false
	}
	if at == len(r)-1 {
		// The carried word is the space itself.
		return string(r[:at]), string(r[at:]), true
	}
	return string(r[:at]), string(r[at+1:]), true
}

func cutWordTail(line, content string, fits FitsFunc) (string, string, bool) {
	r := []rune(content)
	n := LargestCount(len(r), func(c int) bool { return fits(line, 0, c) })
	if n >= len(r) {
		return "", "", false
	}
	if adj := AdjustBreak(r, 0, n); adj > 0 {
		n = adj
	}
	if n <= 0 {
		Logger().Debug("layout: no split point", "line", line)
		return "", "", false
	}
	return string(r[:n]), string(r[n:]), true
}

// CarryLastWord splits lines[i] with SplitLine and moves the tail to the next
// line. A tail ending in '\n' becomes a line of its own; any other tail is
// prepended to the following line, separated by a space. It returns the
// updated slice and false when lines[i] could not be split.
func CarryLastWord(lines []string, i int, fits FitsFunc, wordSplit bool, splittable func(string) bool) ([]string, bool) {
	head, tail, ok := SplitLine(lines[i], fits, wordSplit, splittable)
	if !ok {
		return lines, false
	}
	lines[i] = head
	switch {
	case strings.HasSuffix(tail, "\n"):
		lines = append(lines, "")
		copy(lines[i+2:], lines[i+1:])
		lines[i+1] = tail
	case i+1 >= len(lines):
		lines = append(lines, tail)
	case lines[i+1] == "":
		lines[i+1] = tail
	case strings.HasSuffix(tail, " ") || strings.HasPrefix(lines[i+1], " "):
		lines[i+1] = tail + lines[i+1]
	default:
		lines[i+1] = tail + " " + lines[i+1]
	}
	return lines, true
}
