package layout

import "testing"

func TestLargestCount(t *testing.T) {
	cases := []struct {
		n, limit, want int
	}{
		{10, 7, 7},
		{10, 10, 10},
		{10, 0, 0},
		{0, 5, 0},
		{1, 1, 1},
	}
	for _, c := range cases {
		evaluatedZero := false
		got := LargestCount(c.n, func(count int) bool {
			if count == 0 {
				evaluatedZero = true
			}
			return count <= c.limit
		})
		if got != c.want {
			t.Fatalf("LargestCount(%d, <=%d) = %d，期望 %d", c.n, c.limit, got, c.want)
		}
		if evaluatedZero {
			t.Fatalf("LargestCount 不应计算 fits(0)")
		}
	}
}

func TestAdjustBreak(t *testing.T) {
	runes := []rune("ae\u0301b")
	cases := []struct {
		start, end, want int
	}{
		{0, 2, 1},
		{0, 3, 3},
		{0, 1, 1},
		{1, 2, 1},
		{0, 9, 4},
		{2, 2, 2},
	}
	for _, c := range cases {
		if got := AdjustBreak(runes, c.start, c.end); got != c.want {
			t.Fatalf("AdjustBreak(%d, %d) = %d，期望 %d", c.start, c.end, got, c.want)
		}
	}
}

func TestDefaultSplittable(t *testing.T) {
	cases := map[string]bool{
		"你好":     true,
		"カタカナ":   true,
		"한국어":    true,
		"ＡＢＣ":    true,
		"hello":  false,
		"αβγ":    false,
		"":       false,
		"mix 中文": true,
	}
	for text, want := range cases {
		if got := DefaultSplittable(text); got != want {
			t.Fatalf("DefaultSplittable(%q) = %v，期望 %v", text, got, want)
		}
	}
}
