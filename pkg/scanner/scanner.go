// Package scanner implements the lexical analyzer for wisp.
//
// The scanner is a deterministic finite-state lexer over a single
// forward-only cursor (start, current, line). It produces tokens on
// demand: the compiler calls Next repeatedly and never looks more than
// one token ahead of what it has already consumed.
//
// Whitespace (space, tab, carriage return, newline) and "//" line
// comments are skipped between tokens. String literals run from a
// double quote to the next unescaped double quote and may contain
// embedded newlines; an unterminated string yields an Error token.
// Numbers are digits with an optional single fractional part.
// Identifiers are [A-Za-z_][A-Za-z0-9_]*, with the sixteen reserved
// words recognized via token.LookupIdentifier.
package scanner

import (
	"fmt"

	"github.com/kristofer/wisp/pkg/token"
)

// Scanner walks the source bytes once, left to right, never backing up
// except for the fixed one-character lookahead needed to recognize
// two-character operators.
type Scanner struct {
	source  string
	start   int // start of the token currently being scanned
	current int // next byte to consume
	line    int
}

// New creates a Scanner over src. The language does not interpret
// multi-byte characters; src is treated as raw bytes.
func New(src string) *Scanner {
	return &Scanner{source: src, line: 1}
}

// Next returns the next token in the stream, including a synthetic EOF
// token once the source is exhausted. Subsequent calls after EOF keep
// returning EOF.
func (s *Scanner) Next() token.Token {
	s.skipWhitespace()
	s.start = s.current

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LeftParen)
	case ')':
		return s.make(token.RightParen)
	case '{':
		return s.make(token.LeftBrace)
	case '}':
		return s.make(token.RightBrace)
	case ';':
		return s.make(token.Semicolon)
	case ',':
		return s.make(token.Comma)
	case '.':
		return s.make(token.Dot)
	case '-':
		return s.make(token.Minus)
	case '+':
		return s.make(token.Plus)
	case '/':
		return s.make(token.Slash)
	case '*':
		return s.make(token.Star)
	case '!':
		return s.makeTwo('=', token.BangEqual, token.Bang)
	case '=':
		return s.makeTwo('=', token.EqualEqual, token.Equal)
	case '<':
		return s.makeTwo('=', token.LessEqual, token.Less)
	case '>':
		return s.makeTwo('=', token.GreaterEqual, token.Greater)
	case '"':
		return s.string()
	}

	return s.errorToken(fmt.Sprintf("unexpected character '%c'.", c))
}

func (s *Scanner) atEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) advance() byte {
	c := s.source[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

func (s *Scanner) match(expected byte) bool {
	if s.atEnd() || s.source[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		return s.errorToken("unterminated string.")
	}
	s.advance() // closing quote
	return s.make(token.String)
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance() // consume the '.'
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.Number)
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	text := s.source[s.start:s.current]
	return s.make(token.LookupIdentifier(text))
}

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Lexeme: s.source[s.start:s.current], Line: s.line}
}

// makeTwo consumes a following '=' to disambiguate two-character
// operators like "!=" from their one-character prefix.
func (s *Scanner) makeTwo(second byte, twoChar, oneChar token.Kind) token.Token {
	if s.match(second) {
		return s.make(twoChar)
	}
	return s.make(oneChar)
}

func (s *Scanner) errorToken(message string) token.Token {
	return token.Token{Kind: token.Error, Lexeme: message, Line: s.line}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
