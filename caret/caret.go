// Package caret tracks a text cursor that can be addressed by line and
// column, by linear text offset or by a position in the box. Whichever
// coordinate was set last is resolved into the others during the next
// layout pass.
package caret

import (
	"errors"
	"fmt"
	"math"

	"github.com/ByLCY/richtext/layout"
)

// ErrInvalidState is returned when a setter is called in a state that does
// not allow it.
var ErrInvalidState = errors.New("caret: invalid state")

// State tells which coordinates of the caret are authoritative.
type State int

const (
	None       State = iota // nothing set; the caret is absent
	All                     // every coordinate is resolved for the current layout
	LineCol                 // line and column were set
	TextPos                 // the text offset was set
	WorldPos                // a position in the box was set
	LineWorldX              // a line was set after a position; keep the x
)

func (s State) String() string {
	switch s {
	case None:
		return "none"
	case All:
		return "all"
	case LineCol:
		return "line-col"
	case TextPos:
		return "text-pos"
	case WorldPos:
		return "world-pos"
	case LineWorldX:
		return "line-world-x"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Caret is a single cursor. The zero value is an absent caret that ignores
// sync passes. A Caret is not safe for concurrent use.
type Caret struct {
	state   State
	line    int
	col     int
	textPos int
	world   layout.Vec2
	visible bool

	renderLine    int
	renderTextPos int

	hasNearest  bool
	nearestDist float64
	nearest     struct {
		line, col, textPos int
		pos                layout.Vec2
	}
}

func (c *Caret) State() State { return c.state }

func (c *Caret) Line() int { return c.line }

func (c *Caret) Col() int { return c.col }

func (c *Caret) TextPos() int { return c.textPos }

func (c *Caret) WorldPos() layout.Vec2 { return c.world }

// IsVisible reports whether the caret should be drawn.
func (c *Caret) IsVisible() bool { return c.visible && c.state != None }

func (c *Caret) SetVisible(v bool) { c.visible = v }

func (c *Caret) unchanged(same bool) bool { return same && c.state != None }

// SetLine moves the caret to another line. After a world position it keeps
// the x coordinate; after line/column it keeps the column.
func (c *Caret) SetLine(line int) error {
	if c.unchanged(line == c.line) {
		return nil
	}
	switch c.state {
	case All, WorldPos:
		c.state = LineWorldX
	case LineWorldX, LineCol:
	default:
		return fmt.Errorf("set line in state %v: %w", c.state, ErrInvalidState)
	}
	c.line = line
	return nil
}

// SetCol sets the column on the current line.
func (c *Caret) SetCol(col int) error {
	if c.unchanged(col == c.col) {
		return nil
	}
	switch c.state {
	case All, LineCol, LineWorldX:
		c.state = LineCol
	default:
		return fmt.Errorf("set column in state %v: %w", c.state, ErrInvalidState)
	}
	c.col = col
	return nil
}

// SetTextPos sets the linear text offset; it is allowed in every state.
func (c *Caret) SetTextPos(pos int) error {
	if c.unchanged(pos == c.textPos) {
		return nil
	}
	c.state = TextPos
	c.textPos = pos
	return nil
}

// SetWorldPos sets the caret to the character nearest to p.
func (c *Caret) SetWorldPos(p layout.Vec2) error {
	if c.unchanged(p == c.world) {
		return nil
	}
	c.state = WorldPos
	c.world = p
	return nil
}

// InvalidateKeepTextPos is called after the text changed: the text offset
// survives, line, column and position are resolved again.
func (c *Caret) InvalidateKeepTextPos() {
	if c.state == All {
		c.state = TextPos
	}
}

// ClampTextPos keeps an authoritative text offset inside [0, length].
func (c *Caret) ClampTextPos(length int) {
	if c.state == TextPos {
		c.textPos = clamp(c.textPos, 0, length)
	}
}

// ClampLine keeps an authoritative line inside [0, count-1].
func (c *Caret) ClampLine(count int) {
	if c.state == LineCol || c.state == LineWorldX {
		c.line = clamp(c.line, 0, count-1)
	}
}

// ClampCol keeps an authoritative column inside [0, max] when the caret is
// on line.
func (c *Caret) ClampCol(line, max int) {
	if c.state == LineCol && c.line == line {
		c.col = clamp(c.col, 0, max)
	}
}

// StartSync resets the per-pass counters.
func (c *Caret) StartSync() {
	c.renderLine = 0
	c.renderTextPos = 0
	c.hasNearest = false
	c.nearestDist = 0
}

// NextLine is called at every line boundary of the pass.
func (c *Caret) NextLine() { c.renderLine++ }

// Sync receives the character at column index of the current line. Each
// call advances the text offset by one.
func (c *Caret) Sync(index int, charPos, size layout.Vec2) {
	switch c.state {
	case LineCol:
		if c.line == c.renderLine && c.col == index {
			c.textPos = c.renderTextPos
			c.world = charPos
			c.state = All
		}
	case TextPos:
		if c.textPos == c.renderTextPos {
			c.line = c.renderLine
			c.col = index
			c.world = charPos
			c.state = All
		}
	case WorldPos:
		dx, dy := c.world.X-charPos.X, c.world.Y-charPos.Y
		c.consider(dx*dx+dy*dy, index, charPos)
	case LineWorldX:
		if c.line == c.renderLine {
			c.consider(math.Abs(c.world.X-charPos.X), index, charPos)
		}
	}
	c.renderTextPos++
}

func (c *Caret) consider(d float64, index int, pos layout.Vec2) {
	if c.hasNearest && d >= c.nearestDist {
		return
	}
	c.hasNearest = true
	c.nearestDist = d
	c.nearest.line = c.renderLine
	c.nearest.col = index
	c.nearest.textPos = c.renderTextPos
	c.nearest.pos = pos
}

// FinishSync commits the nearest character for position based states.
func (c *Caret) FinishSync() {
	if (c.state == WorldPos || c.state == LineWorldX) && c.hasNearest {
		c.line = c.nearest.line
		c.col = c.nearest.col
		c.textPos = c.nearest.textPos
		c.world = c.nearest.pos
		c.state = All
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}
