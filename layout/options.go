package layout

import (
	"fmt"
	"strings"
)

// Metrics measures a single line of text. Implementations must be free of
// side effects; the engine calls them many times per pass.
type Metrics interface {
	MeasureLine(font, text string, size, letterSpacing float64) Size
}

// MetricsFunc adapts a function to Metrics.
type MetricsFunc func(font, text string, size, letterSpacing float64) Size

func (f MetricsFunc) MeasureLine(font, text string, size, letterSpacing float64) Size {
	return f(font, text, size, letterSpacing)
}

// HAlign is the horizontal alignment of each line inside the box.
type HAlign int

const (
	AlignLeft HAlign = iota
	AlignCenter
	AlignRight
)

// VAlign is the vertical alignment of the whole block inside the box.
type VAlign int

const (
	AlignTop VAlign = iota
	AlignMiddle
	AlignBottom
)

// Overflow selects what happens to text that does not fit its box.
type Overflow int

const (
	OverflowWrap Overflow = iota
	OverflowMinify
	OverflowEllipsis
	OverflowIgnore
)

func (o Overflow) String() string {
	switch o {
	case OverflowWrap:
		return "wrap"
	case OverflowMinify:
		return "minify"
	case OverflowEllipsis:
		return "ellipsis"
	case OverflowIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("Overflow(%d)", int(o))
	}
}

// ParseOverflow accepts wrap, minify, ellipsis and ignore (case-insensitive).
func ParseOverflow(s string) (Overflow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wrap":
		return OverflowWrap, nil
	case "minify", "shrink":
		return OverflowMinify, nil
	case "ellipsis", "clip":
		return OverflowEllipsis, nil
	case "ignore", "none":
		return OverflowIgnore, nil
	}
	return OverflowWrap, fmt.Errorf("unknown overflow mode %q", s)
}

// ParseHAlign maps left/start, center and right/end.
func ParseHAlign(s string) HAlign {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "center":
		return AlignCenter
	case "right", "end":
		return AlignRight
	default:
		return AlignLeft
	}
}

// ParseVAlign maps top, center/middle and bottom.
func ParseVAlign(s string) VAlign {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "center", "middle":
		return AlignMiddle
	case "bottom":
		return AlignBottom
	default:
		return AlignTop
	}
}

// DefaultMinifyTolerance stops the minify bisection once the scale interval
// is narrower than this. Starting from [0,1] it takes at most five layout
// passes, and the accepted scale is within the tolerance of the largest
// fitting one.
const DefaultMinifyTolerance = 0.1

// Options configures a layout pass.
type Options struct {
	HAlign           HAlign
	VAlign           VAlign
	Overflow         Overflow
	WordSplitAllowed bool

	// MaxScale bounds the scale factor tried by OverflowMinify (default 1).
	MaxScale float64
	// MinifyTolerance is the stopping width of the scale interval
	// (default DefaultMinifyTolerance).
	MinifyTolerance float64

	// Splittable reports whether a word may be split mid-word even when
	// WordSplitAllowed is false. Defaults to DefaultSplittable.
	Splittable func(text string) bool

	// SnapSizes floors every scaled size to whole units.
	SnapSizes bool
}

func (o Options) withDefaults() Options {
	if o.MaxScale <= 0 {
		o.MaxScale = 1
	}
	if o.MinifyTolerance <= 0 {
		o.MinifyTolerance = DefaultMinifyTolerance
	}
	if o.Splittable == nil {
		o.Splittable = DefaultSplittable
	}
	return o
}
