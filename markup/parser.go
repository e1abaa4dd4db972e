// Package markup parses the inline tag syntax of rich text:
//
//	plain <b>bold <i>both</i></b> &lt;escaped&gt; non&nbsp;breaking <icon/>
//
// Tag names refer to styles resolved by the caller.
package markup

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

var (
	markupLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Nbsp", Pattern: `&nbsp;|\x{00A0}`},
		{Name: "Tag", Pattern: `<[^>]*>?`},
		{Name: "Close", Pattern: `>`},
		{Name: "Text", Pattern: `[^<>&\x{00A0}]+|&`},
	})

	nbspTokenType  = mustTokenType("Nbsp")
	tagTokenType   = mustTokenType("Tag")
	closeTokenType = mustTokenType("Close")
	textTokenType  = mustTokenType("Text")

	unescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
	escaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

func mustTokenType(name string) lexer.TokenType {
	t, ok := markupLexer.Symbols()[name]
	if !ok {
		panic(fmt.Sprintf("markup lexer has no %s token", name))
	}
	return t
}

// Fragment is a run of text sharing one style. Style indexes Result.Styles;
// -1 is the default style.
type Fragment struct {
	Style  int    `json:"style"`
	Text   string `json:"text"`
	IsNbsp bool   `json:"isNbsp,omitempty"`
}

// Error is a markup syntax error. Offset is the byte offset of the token
// that caused it.
type Error struct {
	Msg    string
	Offset int
}

func (e *Error) Error() string { return e.Msg }

// Result is the outcome of Parse. Fragments are best effort even when Err is
// set.
type Result struct {
	Fragments []Fragment
	Styles    []string
	Err       *Error
}

// Display returns r, or when r carries an error, the parsed "Error: ..." text
// that should be shown in its place.
func (r Result) Display() Result {
	if r.Err == nil {
		return r
	}
	return Parse("Error: " + Escape(r.Err.Msg))
}

// Escape quotes &, < and > so that s is shown literally.
func Escape(s string) string { return escaper.Replace(s) }

// Unescape reverses Escape.
func Unescape(s string) string { return unescaper.Replace(s) }

type parser struct {
	res     Result
	stack   []string
	current int
	text    strings.Builder
}

// Parse scans s left to right. It never panics; on the first syntax error
// parsing stops and the fragments read so far are returned with Err set.
func Parse(s string) Result {
	p := &parser{current: -1}
	p.run(s)
	return p.res
}

func (p *parser) run(s string) {
	lex, err := markupLexer.LexString("", s)
	if err != nil {
		p.fail(err.Error(), 0)
		return
	}
	for {
		tok, err := lex.Next()
		if err != nil {
			p.flush()
			p.fail(err.Error(), tok.Pos.Offset)
			return
		}
		switch tok.Type {
		case lexer.EOF:
			p.flush()
			if len(p.stack) > 0 {
				p.fail(fmt.Sprintf("Unmatched tag '<%s>'", p.stack[len(p.stack)-1]), len(s))
			}
			return
		case textTokenType:
			p.text.WriteString(tok.Value)
		case nbspTokenType:
			p.flush()
			p.res.Fragments = append(p.res.Fragments, Fragment{Style: -1, Text: " ", IsNbsp: true})
		case closeTokenType:
			p.flush()
			p.fail("Unexpected '>'", tok.Pos.Offset)
			return
		case tagTokenType:
			p.flush()
			if !p.tag(tok) {
				return
			}
		}
	}
}

func (p *parser) tag(tok lexer.Token) bool {
	v := tok.Value
	if !strings.HasSuffix(v, ">") {
		p.fail("Unclosed tag", tok.Pos.Offset)
		return false
	}
	name := v[1 : len(v)-1]
	closing := strings.HasPrefix(name, "/")
	if closing {
		name = name[1:]
	}
	selfClosing := !closing && strings.HasSuffix(name, "/")
	if selfClosing {
		name = name[:len(name)-1]
	}
	if strings.Contains(name, "/") {
		p.fail("Unexpected '/'", tok.Pos.Offset)
		return false
	}
	switch {
	case selfClosing:
		p.open(name)
		p.emit("")
		return p.close(name, tok)
	case closing:
		return p.close(name, tok)
	default:
		p.open(name)
		return true
	}
}

func (p *parser) open(name string) {
	p.stack = append(p.stack, name)
	p.current = p.style(name)
}

func (p *parser) close(name string, tok lexer.Token) bool {
	if len(p.stack) == 0 || p.stack[len(p.stack)-1] != name {
		p.fail(fmt.Sprintf("Unexpected closing tag '</%s>'", name), tok.Pos.Offset)
		return false
	}
	p.stack = p.stack[:len(p.stack)-1]
	if len(p.stack) == 0 {
		p.current = -1
	} else {
		p.current = p.style(p.stack[len(p.stack)-1])
	}
	return true
}

// style returns the index of name, registering it on first use.
func (p *parser) style(name string) int {
	for i, s := range p.res.Styles {
		if s == name {
			return i
		}
	}
	p.res.Styles = append(p.res.Styles, name)
	return len(p.res.Styles) - 1
}

func (p *parser) flush() {
	if p.text.Len() == 0 {
		return
	}
	p.emit(p.text.String())
	p.text.Reset()
}

func (p *parser) emit(raw string) {
	p.res.Fragments = append(p.res.Fragments, Fragment{Style: p.current, Text: unescaper.Replace(raw)})
}

func (p *parser) fail(msg string, offset int) {
	p.res.Err = &Error{Msg: msg, Offset: offset}
}
