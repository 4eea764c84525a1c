// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package pattern

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Token types.
//
type Type int

// Tokens
const (
	EOF Type = iota
	Raw
	Ident
	Int
	Comma
	Star
	Range
	Equal
	Error
)

var typeNames = [...]string{"end of input", "character", "role name", "integer", "','", "'*'", "'..'", "'='", "error"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "token(" + strconv.Itoa(int(t)) + ")"
}

// Item is a lexed token.
//
type Item struct {
	Type  Type
	Pos   int
	Value interface{}
}

func (i Item) String() string {
	switch i.Type {
	case Ident:
		return "role name " + strconv.Quote(i.Value.(string))
	case Int:
		return "integer " + strconv.Itoa(i.Value.(int))
	case Raw:
		return "character " + strconv.QuoteRune(i.Value.(rune))
	case Error:
		return i.Value.(string)
	}
	return i.Type.String()
}

type stateFn func(l *lexer) stateFn

// lexer is a state function lexer over a pattern string.
//
type lexer struct {
	input string
	pos   int // next read position
	start int // start of current rune
	cur   rune
	items []Item
	state stateFn
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

const eof = -1

func (l *lexer) next() rune {
	l.start = l.pos
	if l.pos >= len(l.input) {
		l.cur = eof
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += w
	l.cur = r
	return r
}

// backup moves back before the current rune. Can only be called once per call
// to next.
func (l *lexer) backup() {
	l.pos = l.start
}

func (l *lexer) emit(t Type, pos int, v interface{}) {
	l.items = append(l.items, Item{t, pos, v})
}

// Lex returns the next token.
//
func (l *lexer) Lex() Item {
	for len(l.items) == 0 {
		if l.state == nil {
			l.state = lexInit
		}
		l.state = l.state(l)
	}
	i := l.items[0]
	l.items = l.items[1:]
	return i
}

func lexInit(l *lexer) stateFn {
	r := l.next()
	switch {
	case r == eof:
		return lexEOF
	case unicode.IsSpace(r):
	case unicode.IsLetter(r) || r == '_':
		return lexIdent
	case '0' <= r && r <= '9':
		return lexNumber
	case r == ',':
		l.emit(Comma, l.start, ",")
	case r == '*':
		l.emit(Star, l.start, "*")
	case r == '=':
		l.emit(Equal, l.start, "=")
	case r == '.':
		p := l.start
		if l.next() == '.' {
			l.emit(Range, p, "..")
			break
		}
		l.emit(Raw, p, '.')
		return lexEOF
	default:
		l.emit(Raw, l.start, r)
		return lexEOF
	}
	return nil
}

// lexNumber emits an Error item and stops if the value does not fit an int.
func lexNumber(l *lexer) stateFn {
	p := l.start
	r := l.next()
	for '0' <= r && r <= '9' {
		r = l.next()
	}
	l.backup()
	s := l.input[p:l.pos]
	i, err := strconv.Atoi(s)
	if err != nil {
		l.emit(Error, p, "integer "+s+" out of range")
		return lexEOF
	}
	l.emit(Int, p, i)
	return nil
}

func lexIdent(l *lexer) stateFn {
	p := l.start
	r := l.next()
	for unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
		r = l.next()
	}
	l.backup()
	l.emit(Ident, p, l.input[p:l.pos])
	return nil
}

// lexEOF places the lexer in End-Of-File state.
// Once in this state, the lexer will only emit EOF.
//
func lexEOF(l *lexer) stateFn {
	l.emit(EOF, len(l.input), nil)
	return lexEOF
}
