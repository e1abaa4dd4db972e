// Package dsl parses scene files: a header, then meta, resources and frame
// sections whose blocks hold assignments, commands and text literals.
package dsl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var sceneParser = participle.MustBuild[Document](
	participle.Lexer(sceneLexer),
	participle.Elide(elided...),
)

// Document is the root of a scene file:
//
//	scene Name [version] { sections... }
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'scene' @Ident"`
	Version  string         `parser:"@Ident?"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Frames returns the frame sections in document order.
func (d *Document) Frames() []*FrameSection {
	if d == nil {
		return nil
	}
	var out []*FrameSection
	for _, s := range d.Sections {
		if s != nil && s.Frame != nil {
			out = append(out, s.Frame)
		}
	}
	return out
}

// Section is one of meta, resources or frame.
type Section struct {
	Meta      *MetaSection      `parser:"  @@"`
	Resources *ResourcesSection `parser:"| @@"`
	Frame     *FrameSection     `parser:"| @@"`
}

// Kind names the section type.
func (s *Section) Kind() string {
	switch {
	case s == nil:
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.Frame != nil:
		return "frame"
	}
	return "unknown"
}

type MetaSection struct {
	Block *Block `parser:"'meta' @@"`
}

// ResourcesSection declares fonts, colors, images and styles.
type ResourcesSection struct {
	Block *Block `parser:"'resources' @@"`
}

// FrameSection is a fixed-size surface holding text boxes:
//
//	frame card 120mm 80mm margin 6mm { ... }
type FrameSection struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Name   string         `parser:"'frame' @Ident"`
	Params []*Lexeme      `parser:"@@*"`
	Block  *Block         `parser:"Newline* @@"`
}

// Block is a braced list of statements separated by newlines or ';'.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Text concatenates the text literals of b.
func (b *Block) Text() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	for _, stmt := range b.Statements {
		if stmt.Text != nil {
			sb.WriteString(string(stmt.Text.Value))
		}
	}
	return sb.String()
}

// Assignments returns the key: value statements of b in order.
func (b *Block) Assignments() []*Assignment {
	if b == nil {
		return nil
	}
	var out []*Assignment
	for _, stmt := range b.Statements {
		if stmt.Assignment != nil {
			out = append(out, stmt.Assignment)
		}
	}
	return out
}

type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

// Assignment is `key: value`.
type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Command is a resource declaration or a box: a name, loose arguments and
// an optional block.
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value is the right-hand side of an assignment.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Array  *ArrayValue    `parser:"| @@"`
	Object *InlineObject  `parser:"| @@"`
	Expr   *Expression    `parser:"| @@"`
}

// Text returns the scalar form of v; arrays and objects yield "".
func (v *Value) Text() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Expr != nil:
		return v.Expr.Text()
	}
	return ""
}

// List returns the non-empty items of an array, or the scalar as a single
// item.
func (v *Value) List() []string {
	if v == nil {
		return nil
	}
	if v.Array == nil {
		if s := v.Text(); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(v.Array.Values))
	for _, item := range v.Array.Values {
		if s := item.Text(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ArrayValue is `[ a, b ]`; items may also be separated by ';' or newlines.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// InlineObject is `{ key: value; ... }`.
type InlineObject struct {
	Entries []*Assignment `parser:"'{' Newline* ( @@ Newline* ( (';' | Newline+) Newline* @@ Newline* )* )? Newline* '}'"`
}

// Parse reads a scene from r.
func Parse(r io.Reader) (*Document, error) {
	return sceneParser.Parse("", r)
}

// ParseString parses a scene held in a string.
func ParseString(input string) (*Document, error) {
	return sceneParser.ParseString("", input)
}

// ParseFile parses the scene file at path; positions in errors carry the path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene %s: %w", path, err)
	}
	defer f.Close()
	return sceneParser.Parse(path, f)
}
