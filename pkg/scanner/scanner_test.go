package scanner

import (
	"testing"

	"github.com/kristofer/wisp/pkg/token"
)

func TestNextSkipsWhitespaceAndComments(t *testing.T) {
	s := New("  \t\n// a comment\n  42")
	tok := s.Next()
	if tok.Kind != token.Number || tok.Lexeme != "42" {
		t.Fatalf("got %+v", tok)
	}
	if tok.Line != 3 {
		t.Fatalf("expected line 3, got %d", tok.Line)
	}
}

func TestTwoCharOperators(t *testing.T) {
	cases := []struct {
		src  string
		kind token.Kind
	}{
		{"!", token.Bang},
		{"!=", token.BangEqual},
		{"=", token.Equal},
		{"==", token.EqualEqual},
		{"<", token.Less},
		{"<=", token.LessEqual},
		{">", token.Greater},
		{">=", token.GreaterEqual},
	}
	for _, c := range cases {
		s := New(c.src)
		tok := s.Next()
		if tok.Kind != c.kind {
			t.Errorf("scanning %q: got %v, want %v", c.src, tok.Kind, c.kind)
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	s := New("class fun orchid")
	if tok := s.Next(); tok.Kind != token.Class {
		t.Fatalf("want Class, got %v", tok.Kind)
	}
	if tok := s.Next(); tok.Kind != token.Fun {
		t.Fatalf("want Fun, got %v", tok.Kind)
	}
	if tok := s.Next(); tok.Kind != token.Identifier || tok.Lexeme != "orchid" {
		t.Fatalf("want Identifier orchid, got %+v", tok)
	}
}

func TestStringLiteralAllowsEmbeddedNewline(t *testing.T) {
	s := New("\"line1\nline2\"")
	tok := s.Next()
	if tok.Kind != token.String {
		t.Fatalf("want String, got %v", tok.Kind)
	}
	if tok.Lexeme != "\"line1\nline2\"" {
		t.Fatalf("unexpected lexeme %q", tok.Lexeme)
	}
}

func TestUnterminatedStringIsError(t *testing.T) {
	s := New("\"oops")
	tok := s.Next()
	if tok.Kind != token.Error {
		t.Fatalf("want Error, got %v", tok.Kind)
	}
}

func TestNumberWithSingleFractionalPart(t *testing.T) {
	s := New("3.14.")
	tok := s.Next()
	if tok.Kind != token.Number || tok.Lexeme != "3.14" {
		t.Fatalf("got %+v", tok)
	}
	if dot := s.Next(); dot.Kind != token.Dot {
		t.Fatalf("want trailing Dot, got %v", dot.Kind)
	}
}

func TestUnexpectedCharacterIsError(t *testing.T) {
	s := New("@")
	tok := s.Next()
	if tok.Kind != token.Error {
		t.Fatalf("want Error, got %v", tok.Kind)
	}
}

func TestEOFIsSticky(t *testing.T) {
	s := New("")
	if tok := s.Next(); tok.Kind != token.EOF {
		t.Fatalf("want EOF, got %v", tok.Kind)
	}
	if tok := s.Next(); tok.Kind != token.EOF {
		t.Fatalf("want EOF on second call, got %v", tok.Kind)
	}
}
