package caret

import "github.com/ByLCY/richtext/layout"

// Multi forwards a sync pass to several carets.
type Multi struct {
	Carets []*Caret
}

var _ layout.Caret = (*Multi)(nil)
var _ layout.Caret = (*Caret)(nil)

// NewMulti returns a Multi over carets.
func NewMulti(carets ...*Caret) *Multi { return &Multi{Carets: carets} }

// IsVisible reports whether any caret is visible.
func (m *Multi) IsVisible() bool {
	for _, c := range m.Carets {
		if c.IsVisible() {
			return true
		}
	}
	return false
}

func (m *Multi) SetVisible(v bool) {
	for _, c := range m.Carets {
		c.SetVisible(v)
	}
}

func (m *Multi) InvalidateKeepTextPos() {
	for _, c := range m.Carets {
		c.InvalidateKeepTextPos()
	}
}

func (m *Multi) StartSync() {
	for _, c := range m.Carets {
		c.StartSync()
	}
}

func (m *Multi) Sync(index int, charPos, size layout.Vec2) {
	for _, c := range m.Carets {
		c.Sync(index, charPos, size)
	}
}

func (m *Multi) NextLine() {
	for _, c := range m.Carets {
		c.NextLine()
	}
}

func (m *Multi) FinishSync() {
	for _, c := range m.Carets {
		c.FinishSync()
	}
}

func (m *Multi) ClampTextPos(length int) {
	for _, c := range m.Carets {
		c.ClampTextPos(length)
	}
}

func (m *Multi) ClampLine(count int) {
	for _, c := range m.Carets {
		c.ClampLine(count)
	}
}

func (m *Multi) ClampCol(line, max int) {
	for _, c := range m.Carets {
		c.ClampCol(line, max)
	}
}
