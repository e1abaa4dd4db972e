package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fitsRunes 让最多 n 个字符放进一行。
func fitsRunes(n int) FitsFunc {
	return func(line string, start, count int) bool { return count <= n }
}

func TestSplitLine(t *testing.T) {
	cases := []struct {
		name      string
		line      string
		fit       int
		wordSplit bool
		head      string
		tail      string
		ok        bool
	}{
		{"last word", "hello big world", 12, false, "hello big", "world", true},
		{"newline goes with tail", "hello world\n", 8, false, "hello", "world\n", true},
		{"trailing space", "ab ", 2, false, "ab", " ", true},
		{"soft break", "ab\u200bcd", 3, false, "ab", "cd", true},
		{"no break", "abcdefgh", 4, false, "", "", false},
		{"word split", "abcdefgh", 3, true, "abc", "defgh", true},
		{"word split newline", "abcdefgh\n", 3, true, "abc", "defgh\n", true},
		{"cjk", "你好世界", 2, false, "你好", "世界", true},
		{"nothing fits", "abc", 0, true, "", "", false},
	}
	for _, c := range cases {
		head, tail, ok := SplitLine(c.line, fitsRunes(c.fit), c.wordSplit, nil)
		if head != c.head || tail != c.tail || ok != c.ok {
			t.Fatalf("%s: SplitLine(%q) = %q, %q, %v，期望 %q, %q, %v", c.name, c.line, head, tail, ok, c.head, c.tail, c.ok)
		}
	}
}

func TestSplitLineKeepsGraphemes(t *testing.T) {
	line := "e\u0301e\u0301e\u0301"
	head, tail, ok := SplitLine(line, fitsRunes(3), true, nil)
	if !ok || head != "e\u0301" || tail != "e\u0301e\u0301" {
		t.Fatalf("拆分不应落在组合字符中间: %q %q %v", head, tail, ok)
	}
}

func TestSplitLineCustomSplittable(t *testing.T) {
	always := func(string) bool { return true }
	head, tail, ok := SplitLine("abcdef", fitsRunes(4), false, always)
	if !ok || head != "abcd" || tail != "ef" {
		t.Fatalf("自定义可拆分判定未生效: %q %q %v", head, tail, ok)
	}
}

func TestCarryLastWord(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		want  []string
	}{
		{"joins next line", []string{"aaa bbb", "ccc"}, []string{"aaa", "bbb ccc"}},
		{"appends last line", []string{"aaa bbb"}, []string{"aaa", "bbb"}},
		{"replaces empty line", []string{"aaa bbb", ""}, []string{"aaa", "bbb"}},
		{"next starts with space", []string{"aaa bbb", " ccc"}, []string{"aaa", "bbb ccc"}},
		{"newline inserts line", []string{"aaa bbb\n", "ccc"}, []string{"aaa", "bbb\n", "ccc"}},
	}
	for _, c := range cases {
		got, ok := CarryLastWord(c.lines, 0, fitsRunes(4), false, nil)
		if !ok {
			t.Fatalf("%s: 应当能够拆分", c.name)
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Fatalf("%s: 结果不符 (-want +got):\n%s", c.name, diff)
		}
	}
	lines := []string{"abcdef", "x"}
	got, ok := CarryLastWord(lines, 0, fitsRunes(2), false, nil)
	if ok {
		t.Fatalf("无法拆分时应返回 false")
	}
	if diff := cmp.Diff([]string{"abcdef", "x"}, got); diff != "" {
		t.Fatalf("无法拆分时不应修改各行 (-want +got):\n%s", diff)
	}
}
