package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// This file defines the length units accepted by scene files. Text boxes are
// positioned in millimeters, font sizes are in points.

// Unit is the unit a length was written in.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers like factors
	UnitMM
	UnitCM
	UnitIN
	UnitPT
	UnitPX // CSS pixel, 1/96 in
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToMM converts to millimeters. Unit-less values are taken as millimeters.
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	case UnitPX:
		return l.Value * 25.4 / 96
	default:
		return l.Value
	}
}

// ToPT converts to points. Unit-less values are taken as points.
func (l Length) ToPT() float64 {
	switch l.Unit {
	case UnitNone, UnitPT:
		return l.Value
	case UnitPX:
		return l.Value * 0.75
	default:
		return l.ToMM() * MmToPt
	}
}

var unitSuffixes = []struct {
	s string
	u Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}}

// ParseLength parses values such as "12pt", "4.5mm" or "3".
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, nil
	}
	unit := UnitNone
	for _, suf := range unitSuffixes {
		if num, ok := strings.CutSuffix(v, suf.s); ok {
			unit = suf.u
			v = strings.TrimSpace(num)
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Length{}, fmt.Errorf("invalid length %q: %w", value, err)
	}
	return Length{Value: f, Unit: unit}, nil
}

// LineHeightKind distinguishes factor-based vs absolute line-height specification.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec is either a factor of the font size (1.2x) or an absolute
// length (18pt).
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight accepts "1.2x", "1.2" (factor) or a length with a unit.
func ParseLineHeight(value string) (LineHeightSpec, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if f, ok := strings.CutSuffix(v, "x"); ok {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return LineHeightSpec{}, fmt.Errorf("invalid line height %q: %w", value, err)
		}
		return LineHeightSpec{Kind: LineHeightFactor, Factor: n}, nil
	}
	l, err := ParseLength(v)
	if err != nil {
		return LineHeightSpec{}, err
	}
	if l.Unit == UnitNone {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: l.Value}, nil
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}, nil
}

// Spacing returns the extra space between two lines of text set at fontSize
// points, in points. It is never negative.
func (s LineHeightSpec) Spacing(fontSize float64) float64 {
	var lh float64
	switch s.Kind {
	case LineHeightAbsolute:
		lh = s.Len.ToPT()
	default:
		lh = fontSize * s.Factor
	}
	return max(lh-fontSize, 0)
}
