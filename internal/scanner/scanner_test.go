package scanner

import (
	"testing"

	"github.com/embr-lang/embr/internal/token"
)

func collect(src string) []token.Token {
	s := New(src)
	var toks []token.Token
	for {
		tok := s.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func types(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestKeywordsAndIdents(t *testing.T) {
	toks := collect(`fn class var for if else while until return import out this super and or true false nil x`)
	want := []token.Type{
		token.Fn, token.Class, token.Var, token.For, token.If, token.Else, token.While, token.Until,
		token.Return, token.Import, token.Out, token.This, token.Super, token.And, token.Or,
		token.True, token.False, token.Nil, token.Ident, token.EOF,
	}
	got := types(toks)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStringHasNoEscapeProcessing(t *testing.T) {
	toks := collect(`"a\nb"`)
	if toks[0].Type != token.String {
		t.Fatalf("expected STRING, got %s", toks[0].Type)
	}
	if toks[0].Literal != `a\nb` {
		t.Errorf("expected literal backslash-n preserved, got %q", toks[0].Literal)
	}
}

func TestNumberLiteral(t *testing.T) {
	toks := collect(`3 3.5 .5`)
	if toks[0].Literal != "3" || toks[0].Type != token.Number {
		t.Errorf("unexpected token 0: %+v", toks[0])
	}
	if toks[1].Literal != "3.5" || toks[1].Type != token.Number {
		t.Errorf("unexpected token 1: %+v", toks[1])
	}
	// a leading dot is not part of the number grammar; '.' scans as DOT
	if toks[2].Type != token.Dot {
		t.Errorf("expected DOT before bare .5, got %s", toks[2].Type)
	}
}

func TestOperatorsAndBitwise(t *testing.T) {
	toks := collect(`== != <= >= << >> & | ^ ~ % @ ;`)
	want := []token.Type{
		token.Equal, token.NotEqual, token.LessEqual, token.GreaterEqual,
		token.LShift, token.RShift, token.Amp, token.Pipe, token.Caret, token.Tilde,
		token.Percent, token.At, token.Semicolon, token.EOF,
	}
	got := types(toks)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLineComment(t *testing.T) {
	toks := collect("var x = 1; // trailing comment\nvar y = 2;")
	if toks[len(toks)-1].Type != token.EOF {
		t.Fatalf("expected scan to complete cleanly")
	}
	for _, tk := range toks {
		if tk.Type == token.Illegal {
			t.Fatalf("unexpected ILLEGAL token from comment handling: %+v", tk)
		}
	}
}
