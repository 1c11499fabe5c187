package scanner_test

import (
	"testing"

	"github.com/kristofer/ember/pkg/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allKinds(src string) []scanner.Kind {
	s := scanner.New(src)
	var kinds []scanner.Kind
	for {
		tok := s.Next()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == scanner.Eof {
			return kinds
		}
	}
}

func TestSingleCharacterTokens(t *testing.T) {
	kinds := allKinds("(){};,.+-*/")
	assert.Equal(t, []scanner.Kind{
		scanner.LeftParen, scanner.RightParen, scanner.LeftBrace, scanner.RightBrace,
		scanner.Semicolon, scanner.Comma, scanner.Dot, scanner.Plus, scanner.Minus,
		scanner.Star, scanner.Slash, scanner.Eof,
	}, kinds)
}

func TestTwoCharacterOperators(t *testing.T) {
	kinds := allKinds("!= == <= >= ! = < >")
	assert.Equal(t, []scanner.Kind{
		scanner.BangEqual, scanner.EqualEqual, scanner.LessEqual, scanner.GreaterEqual,
		scanner.Bang, scanner.Equal, scanner.Less, scanner.Greater, scanner.Eof,
	}, kinds)
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	s := scanner.New("var x class fun notakeyword")
	require.Equal(t, scanner.Var, s.Next().Kind)
	require.Equal(t, scanner.Identifier, s.Next().Kind)
	require.Equal(t, scanner.Class, s.Next().Kind)
	require.Equal(t, scanner.Fun, s.Next().Kind)
	ident := s.Next()
	assert.Equal(t, scanner.Identifier, ident.Kind)
	assert.Equal(t, "notakeyword", ident.Lexeme)
}

func TestNumberLiteral(t *testing.T) {
	s := scanner.New("123 3.14 42.")
	tok := s.Next()
	assert.Equal(t, scanner.Number, tok.Kind)
	assert.Equal(t, "123", tok.Lexeme)

	tok = s.Next()
	assert.Equal(t, scanner.Number, tok.Kind)
	assert.Equal(t, "3.14", tok.Lexeme)

	// a trailing '.' not followed by a digit is scanned as its own Dot
	// token, not as part of the number.
	tok = s.Next()
	assert.Equal(t, scanner.Number, tok.Kind)
	assert.Equal(t, "42", tok.Lexeme)
	tok = s.Next()
	assert.Equal(t, scanner.Dot, tok.Kind)
}

func TestStringLiteral(t *testing.T) {
	s := scanner.New(`"hello world"`)
	tok := s.Next()
	require.Equal(t, scanner.String, tok.Kind)
	assert.Equal(t, `"hello world"`, tok.Lexeme)
}

func TestUnterminatedStringIsError(t *testing.T) {
	s := scanner.New(`"hello`)
	tok := s.Next()
	assert.Equal(t, scanner.Error, tok.Kind)
}

func TestLineCountingAcrossNewlines(t *testing.T) {
	s := scanner.New("var x\n= 1\n;")
	require.Equal(t, 1, s.Next().Line) // var
	require.Equal(t, 1, s.Next().Line) // x
	require.Equal(t, 2, s.Next().Line) // =
	require.Equal(t, 2, s.Next().Line) // 1
	require.Equal(t, 3, s.Next().Line) // ;
}

func TestCommentsAreSkipped(t *testing.T) {
	s := scanner.New("// a comment\nvar x;")
	tok := s.Next()
	assert.Equal(t, scanner.Var, tok.Kind)
}

func TestSwitchCaseDefaultKeywords(t *testing.T) {
	kinds := allKinds("switch case default")
	assert.Equal(t, []scanner.Kind{scanner.Switch, scanner.Case, scanner.Default, scanner.Eof}, kinds)
}

func TestEofIsStickyAfterEnd(t *testing.T) {
	s := scanner.New("")
	first := s.Next()
	second := s.Next()
	assert.Equal(t, scanner.Eof, first.Kind)
	assert.Equal(t, scanner.Eof, second.Kind)
}
