package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripCommentsPreservesLines(t *testing.T) {
	src := "let x := 1 // a trailing comment\nlet y := 2\n"
	out, _, err := StripComments(src)
	require.NoError(t, err)
	require.Equal(t, 3, countLines(out))
	require.NotContains(t, out, "trailing")
}

func TestStripCommentsCollectsDocBlocks(t *testing.T) {
	src := "/** packs a value */\nfunction f() {}\n"
	_, docs, err := StripComments(src)
	require.NoError(t, err)
	require.Contains(t, docs[1], "packs a value")
}

func TestStripCommentsUnterminatedString(t *testing.T) {
	_, _, err := StripComments(`let x := "oops`)
	require.Error(t, err)
}

func TestLexerBasicTokens(t *testing.T) {
	src := `object "Contract" { code { let x := 1 } }`
	l, err := New("t.jul", src)
	require.NoError(t, err)

	var types []Type
	for _, tok := range l.Tokens() {
		types = append(types, tok.Type)
	}
	require.Equal(t, []Type{
		"object", String, LBrace, "code", LBrace, "let", Ident, ColonEq, Number, RBrace, RBrace, EOF,
	}, types)
}

func TestLexerHexAndCalldataRef(t *testing.T) {
	l, err := New("t.jul", `let a := 0x1f let b := &calldata.id`)
	require.NoError(t, err)
	toks := l.Tokens()
	require.Equal(t, HexNumber, toks[3].Type)
	require.Equal(t, Amp, toks[7].Type)
}

func TestLexerHexLiteral(t *testing.T) {
	l, err := New("t.jul", `keccak256(hex"deadbeef")`)
	require.NoError(t, err)
	toks := l.Tokens()
	require.Equal(t, HexLiteral, toks[2].Type)
	require.Equal(t, "deadbeef", toks[2].Lexeme)
}

func countLines(s string) int {
	n := 1
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}
