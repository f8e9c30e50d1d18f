package vm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// tokenType enumerates the lexical classes produced by the lexer, in the
// same shape as the teacher's internal/engine/lexer.go.
type tokenType int

const (
	tEOF tokenType = iota
	tIdent
	tNumber
	tString
	tSymbol
	tKeyword
)

type token struct {
	Typ tokenType
	Val string
	Pos int
}

// lexer tokenizes the small statement subset this compiler supports
// (spec.md §4.8): CREATE TABLE, INSERT, SELECT, DELETE, with a WHERE
// clause of AND/OR-combined comparisons. Style grounded on the teacher's
// internal/engine/lexer.go; the keyword set below is this grammar's
// subset of the teacher's much larger dialect.
type lexer struct {
	s   string
	pos int
}

func newLexer(s string) *lexer { return &lexer{s: s} }

func (lx *lexer) peek() rune {
	if lx.pos >= len(lx.s) {
		return 0
	}
	r := []rune(lx.s[lx.pos:])
	return r[0]
}

func (lx *lexer) next() rune {
	if lx.pos >= len(lx.s) {
		return 0
	}
	r := []rune(lx.s[lx.pos:])
	lx.pos += len(string(r[0]))
	return r[0]
}

func (lx *lexer) skipWS() {
	for lx.pos < len(lx.s) {
		ch := lx.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			lx.next()
		case ch == '-' && lx.pos+1 < len(lx.s) && lx.s[lx.pos+1] == '-':
			for lx.pos < len(lx.s) && lx.peek() != '\n' {
				lx.next()
			}
		default:
			return
		}
	}
}

func (lx *lexer) tokenize() ([]token, error) {
	var toks []token
	for {
		lx.skipWS()
		if lx.pos >= len(lx.s) {
			toks = append(toks, token{Typ: tEOF, Pos: lx.pos})
			return toks, nil
		}
		start := lx.pos
		ch := lx.peek()
		switch {
		case ch == '\'':
			toks = append(toks, lx.tokenizeString(start))
		case unicode.IsDigit(ch):
			toks = append(toks, lx.tokenizeNumber(start))
		case unicode.IsLetter(ch) || ch == '_':
			toks = append(toks, lx.tokenizeIdentOrKeyword(start))
		default:
			toks = append(toks, lx.tokenizeSymbol(start))
		}
	}
}

func (lx *lexer) tokenizeString(start int) token {
	lx.next()
	var val strings.Builder
	for lx.pos < len(lx.s) {
		ch := lx.next()
		if ch == '\'' {
			if lx.peek() == '\'' {
				lx.next()
				val.WriteRune('\'')
				continue
			}
			break
		}
		val.WriteRune(ch)
	}
	return token{Typ: tString, Val: val.String(), Pos: start}
}

func (lx *lexer) tokenizeNumber(start int) token {
	var val strings.Builder
	dot := false
	for lx.pos < len(lx.s) {
		ch := lx.peek()
		if unicode.IsDigit(ch) || (!dot && ch == '.') {
			if ch == '.' {
				dot = true
			}
			val.WriteRune(ch)
			lx.next()
		} else {
			break
		}
	}
	return token{Typ: tNumber, Val: val.String(), Pos: start}
}

var upperCaser = cases.Upper(language.Und)

func (lx *lexer) tokenizeIdentOrKeyword(start int) token {
	var val strings.Builder
	for lx.pos < len(lx.s) {
		ch := lx.peek()
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			val.WriteRune(ch)
			lx.next()
		} else {
			break
		}
	}
	up := upperCaser.String(val.String())
	if isKeyword(up) {
		return token{Typ: tKeyword, Val: up, Pos: start}
	}
	return token{Typ: tIdent, Val: val.String(), Pos: start}
}

func (lx *lexer) tokenizeSymbol(start int) token {
	r := lx.peek()
	switch r {
	case '(', ')', ',', '*', ';':
		lx.next()
		return token{Typ: tSymbol, Val: string(r), Pos: start}
	case '=', '<', '>', '!':
		a := lx.next()
		b := lx.peek()
		if (a == '<' && (b == '=' || b == '>')) || (a == '>' && b == '=') || (a == '!' && b == '=') {
			lx.next()
			return token{Typ: tSymbol, Val: string(a) + string(b), Pos: start}
		}
		return token{Typ: tSymbol, Val: string(a), Pos: start}
	case '-':
		lx.next()
		return token{Typ: tSymbol, Val: "-", Pos: start}
	default:
		lx.next()
		return token{Typ: tSymbol, Val: string(r), Pos: start}
	}
}

func isKeyword(up string) bool {
	switch up {
	case "CREATE", "TABLE", "INSERT", "INTO", "VALUES",
		"SELECT", "FROM", "WHERE", "DELETE",
		"AND", "OR", "NULL", "TRUE", "FALSE",
		"INTEGER", "INT", "BIGINT", "FLOAT", "DOUBLE", "REAL", "BOOLEAN", "VARCHAR", "TEXT":
		return true
	default:
		return false
	}
}
