package patex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	lex := newLexer(src)
	var out []Token
	for {
		tok, err := lex.next()
		require.NoError(t, err)
		if tok.Kind == TokenEOF {
			return out
		}
		out = append(out, tok)
	}
}

func TestLexerBasicTokens(t *testing.T) {
	toks := lexAll(t, "subj -> obj & ! | * + ?")
	kinds := make([]TokenKind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []TokenKind{
		TokenKeyword, TokenArrow, TokenKeyword, TokenAmp, TokenBang,
		TokenPipe, TokenStar, TokenPlus, TokenQuestion,
	}, kinds)
}

func TestLexerQuantifierSuffixes(t *testing.T) {
	toks := lexAll(t, "*? *+ +? ++ ?? ?+")
	kinds := make([]TokenKind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	assert.Equal(t, []TokenKind{
		TokenStarLazy, TokenStarPossessive,
		TokenPlusLazy, TokenPlusPossessive,
		TokenQuestionLazy, TokenQuestionPossessive,
	}, kinds)
}

func TestLexerLiterals(t *testing.T) {
	toks := lexAll(t, `42 -3.5 "hi" /h.*o/ h'0102' 'isA' @name date'2023-12-25'`)
	require.Len(t, toks, 8)
	assert.Equal(t, TokenNumber, toks[0].Kind)
	assert.Equal(t, 42.0, toks[0].Value)
	assert.Equal(t, -3.5, toks[1].Value)
	assert.Equal(t, "hi", toks[2].Text)
	assert.Equal(t, "h.*o", toks[3].Text)
	assert.Equal(t, []byte{1, 2}, toks[4].Bytes)
	assert.Equal(t, "isA", toks[5].Text)
	assert.Equal(t, TokenCaptureName, toks[6].Kind)
	assert.Equal(t, "name", toks[6].Text)
	assert.Equal(t, TokenDateLiteral, toks[7].Kind)
	assert.Equal(t, "2023-12-25", toks[7].Text)
}

func TestLexerEscapedRegex(t *testing.T) {
	toks := lexAll(t, `/abc\/def/`)
	require.Len(t, toks, 1)
	assert.Equal(t, "abc/def", toks[0].Text)
}

func TestLexerErrors(t *testing.T) {
	cases := []struct{ src, want string }{
		{`"open`, "unterminated string"},
		{"/open", "unterminated regex"},
		{"h'zz'", "invalid hex string"},
		{"h'00", "unterminated byte string"},
		{"'open", "unterminated known value"},
		{"frobnicate", "unknown keyword"},
		{"date'2023", "unterminated date"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			lex := newLexer(tc.src)
			var err error
			for err == nil {
				var tok Token
				tok, err = lex.next()
				if err == nil && tok.Kind == TokenEOF {
					t.Fatalf("expected a lex error for %q", tc.src)
				}
			}
			assert.Contains(t, err.Error(), tc.want)
			var lexErr *LexError
			assert.ErrorAs(t, err, &lexErr)
		})
	}
}

func TestLexerBalancedExtraction(t *testing.T) {
	lex := newLexer(`[42, "a ] b", /x\]y/] subj`)
	src, end, err := lex.balancedFrom(0, '[', ']')
	require.NoError(t, err)
	assert.Equal(t, `[42, "a ] b", /x\]y/]`, src)
	assert.Equal(t, ']', rune(src[len(src)-1]))
	lex.seek(end)
	tok, err := lex.next()
	require.NoError(t, err)
	assert.Equal(t, TokenKeyword, tok.Kind)
}
