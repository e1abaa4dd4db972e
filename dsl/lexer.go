package dsl

import (
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// sceneLexer tokenizes scene files. Strings may be double quoted (with Go
// escapes) or raw backtick strings, which keep markup readable across lines.
var sceneLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Newline", Pattern: `\n+`},
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "LineComment", Pattern: `//[^\n]*`},
	{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
	{Name: "HashComment", Pattern: `#[^\n]*`},
	{Name: "Number", Pattern: `(?:\d+\.\d+|\.\d+|\d+)(?:pt|mm|cm|in|px|%|x)?`},
	{Name: "String", Pattern: "\"(?:\\\\.|[^\"])*\"|`[^`]*`"},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
	{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:$]`},
	{Name: "LBrace", Pattern: `{`},
	{Name: "RBrace", Pattern: `}`},
})

var elided = []string{"Whitespace", "LineComment", "BlockComment", "HashComment"}

// kinds maps token types of sceneLexer back to their rule names.
var kinds = func() map[lexer.TokenType]string {
	out := map[lexer.TokenType]string{}
	for name, tt := range sceneLexer.Symbols() {
		out[tt] = name
	}
	return out
}()

var (
	tokNewline = tokenType("Newline")
	tokLBrace  = tokenType("LBrace")
	tokRBrace  = tokenType("RBrace")
	tokSymbol  = tokenType("Symbol")
	tokString  = tokenType("String")
)

func tokenType(name string) lexer.TokenType {
	tt, ok := sceneLexer.Symbols()[name]
	if !ok {
		panic("dsl: unknown token " + name)
	}
	return tt
}

// Lexeme is one token of a command line or expression. Value holds the
// unquoted text of strings; Raw is the source text.
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// IsIdent reports whether l is a bare identifier.
func (l *Lexeme) IsIdent() bool { return l != nil && l.Type == "Ident" }

func (l *Lexeme) String() string {
	if l == nil {
		return ""
	}
	return l.Raw
}

// Parse makes Lexeme a grammar atom: it takes any token up to the end of a
// command line, a brace or ';'.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if endsCommand(tok) {
		return participle.NextMatch
	}
	next, err := readLexeme(lex)
	if err != nil {
		return err
	}
	*l = next
	return nil
}

// Expression keeps the raw tokens of a value that is none of the literal
// forms, for example `-1pt` or `Accent`.
type Expression struct {
	Parts []*Lexeme
}

// Text joins the values of the parts without separators.
func (e *Expression) Text() string {
	if e == nil {
		return ""
	}
	var out []byte
	for _, p := range e.Parts {
		out = append(out, p.Value...)
	}
	return string(out)
}

// Parse consumes tokens until a newline, ';', ',' or brace at nesting depth
// zero, or an unbalanced ']'.
func (e *Expression) Parse(lex *lexer.PeekingLexer) error {
	var n nesting
	for {
		tok := lex.Peek()
		if tok.EOF() || n.ends(tok) {
			break
		}
		next, err := readLexeme(lex)
		if err != nil {
			return err
		}
		n.track(next.Raw)
		e.Parts = append(e.Parts, &next)
	}
	if len(e.Parts) == 0 {
		return participle.NextMatch
	}
	return nil
}

// nesting tracks open parentheses and brackets inside an expression.
type nesting struct {
	parens, brackets int
}

func (n *nesting) track(raw string) {
	switch raw {
	case "(":
		n.parens++
	case ")":
		n.parens = max(n.parens-1, 0)
	case "[":
		n.brackets++
	case "]":
		n.brackets = max(n.brackets-1, 0)
	}
}

func (n *nesting) ends(tok *lexer.Token) bool {
	top := n.parens == 0 && n.brackets == 0
	switch tok.Type {
	case tokNewline, tokLBrace, tokRBrace:
		return top
	case tokSymbol:
		switch tok.Value {
		case ";", ",":
			return top
		case "]":
			return n.brackets == 0
		}
	}
	return false
}

func endsCommand(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case tokNewline, tokLBrace, tokRBrace:
		return true
	case tokSymbol:
		return tok.Value == ";"
	}
	return false
}

func readLexeme(lex *lexer.PeekingLexer) (Lexeme, error) {
	tok := lex.Next()
	if tok.EOF() {
		return Lexeme{}, participle.NextMatch
	}
	kind, ok := kinds[tok.Type]
	if !ok {
		kind = fmt.Sprintf("#%d", tok.Type)
	}
	value := tok.Value
	if tok.Type == tokString {
		s, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Lexeme{}, participle.Errorf(tok.Pos, "invalid string %s: %v", tok.Value, err)
		}
		value = s
	}
	return Lexeme{Type: kind, Value: value, Raw: tok.Value, Pos: tok.Pos}, nil
}

// StringLiteral unquotes the captured string token.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	v, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(v)
	return nil
}
