package patex

import "fmt"

// TokenKind discriminates the lexical classes of the pattern syntax.
type TokenKind int

const (
	TokenEOF TokenKind = iota

	// Keywords and identifiers.  Keywords are case sensitive; the lexer
	// reports any identifier that is not a keyword as a lex error.
	TokenKeyword

	// Literals
	TokenNumber      // 42, 3.14, -7
	TokenString      // "text"
	TokenRegex       // /…/ (body, unescaped delimiters)
	TokenHex         // h'00ff' (decoded bytes)
	TokenHexRegex    // h'/…/' (body)
	TokenQuotedName  // 'name'
	TokenDateLiteral // date'…' (body)
	TokenCaptureName // @name

	// Punctuation
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenColon
	TokenArrow // ->
	TokenAmp
	TokenPipe
	TokenBang
	TokenEllipsis // ...

	// Quantifiers.  The lazy/possessive suffix must be adjacent, so
	// the lexer folds it into a single token.
	TokenStar
	TokenStarLazy
	TokenStarPossessive
	TokenPlus
	TokenPlusLazy
	TokenPlusPossessive
	TokenQuestion
	TokenQuestionLazy
	TokenQuestionPossessive

	// Comparisons
	TokenGT
	TokenGE
	TokenLT
	TokenLE
)

// Token is a lexeme with its source span.  Text carries the decoded
// payload for literal tokens and the raw keyword otherwise; Bytes is
// set for hex literals and Value for numbers.
type Token struct {
	Kind  TokenKind
	Span  Range
	Text  string
	Bytes []byte
	Value float64
}

func (t Token) String() string {
	switch t.Kind {
	case TokenEOF:
		return "end of input"
	case TokenKeyword:
		return fmt.Sprintf("`%s`", t.Text)
	case TokenNumber:
		return fmt.Sprintf("number `%s`", t.Text)
	case TokenString:
		return fmt.Sprintf("string %q", t.Text)
	case TokenRegex:
		return fmt.Sprintf("regex /%s/", t.Text)
	case TokenCaptureName:
		return fmt.Sprintf("capture `@%s`", t.Text)
	case TokenQuotedName:
		return fmt.Sprintf("known value '%s'", t.Text)
	case TokenDateLiteral:
		return fmt.Sprintf("date'%s'", t.Text)
	default:
		return fmt.Sprintf("`%s`", t.Text)
	}
}

// keywords is the closed, case-sensitive keyword set.
var keywords = map[string]struct{}{
	"bool": {}, "true": {}, "false": {}, "null": {},
	"number": {}, "text": {}, "bstr": {}, "date": {}, "known": {},
	"tagged": {}, "cbor": {}, "leaf": {},
	"assert": {}, "assertpred": {}, "assertobj": {}, "node": {},
	"subj": {}, "pred": {}, "obj": {}, "wrapped": {}, "unwrap": {},
	"digest": {}, "obscured": {}, "elided": {}, "encrypted": {},
	"compressed": {}, "search": {}, "NaN": {}, "Infinity": {},
}
