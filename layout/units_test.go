package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		mm := Length{Value: pt, Unit: UnitPT}.ToMM()
		back := Length{Value: mm, Unit: UnitMM}.ToPT()
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt mm=%g back=%g diff=%g", pt, mm, back, diff)
		}
	}
}

func TestParseLength(t *testing.T) {
	cases := []struct {
		in   string
		mm   float64
		unit Unit
	}{
		{"1in", 25.4, UnitIN},
		{"2.54cm", 25.4, UnitCM},
		{" 10 mm ", 10, UnitMM},
		{"12pt", 12 * PtToMm, UnitPT},
		{"96px", 25.4, UnitPX},
		{"7", 7, UnitNone},
		{"", 0, UnitNone},
	}
	for _, c := range cases {
		l, err := ParseLength(c.in)
		if err != nil {
			t.Fatalf("解析 %q 失败: %v", c.in, err)
		}
		if l.Unit != c.unit {
			t.Fatalf("%q 的单位期望 %v，实际 %v", c.in, c.unit, l.Unit)
		}
		if got := l.ToMM(); math.Abs(got-c.mm) > 1e-9 {
			t.Fatalf("%q 转 mm 期望 %g，实际 %g", c.in, c.mm, got)
		}
	}
	if _, err := ParseLength("12em"); err == nil {
		t.Fatalf("未知单位应返回错误")
	}
}

// TestLineHeightSpacing 验证倍数与绝对值两种行高得到的额外行距。
func TestLineHeightSpacing(t *testing.T) {
	factor, err := ParseLineHeight("1.5x")
	if err != nil {
		t.Fatalf("解析 1.5x 失败: %v", err)
	}
	if got := factor.Spacing(12); math.Abs(got-6) > 1e-9 {
		t.Fatalf("1.5x 在 12pt 下的行距期望 6，实际 %g", got)
	}
	abs, err := ParseLineHeight("18pt")
	if err != nil {
		t.Fatalf("解析 18pt 失败: %v", err)
	}
	if abs.Kind != LineHeightAbsolute {
		t.Fatalf("18pt 应为绝对行高")
	}
	if got := abs.Spacing(12); math.Abs(got-6) > 1e-9 {
		t.Fatalf("18pt 在 12pt 下的行距期望 6，实际 %g", got)
	}
	if got := abs.Spacing(24); got != 0 {
		t.Fatalf("行高小于字号时行距应为 0，实际 %g", got)
	}
}
