package patex

import (
	"encoding/hex"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/clarete/patex/envelope/knownvalues"
)

// parsePattern builds the pattern AST for a patex source string.
//
// Precedence, tightest first: postfix quantifiers, prefix !, infix &,
// infix ->, infix |.  The parser owns disambiguation of `{`: after a
// closable primary it is a repeat quantifier, where a primary is
// expected it opens a map fragment for the CBOR sub-matcher.
func parsePattern(src string) (Pattern, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	pattern, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != TokenEOF {
		return nil, p.unexpected("end of input")
	}
	return pattern, nil
}

type parser struct {
	lex *lexer
	tok Token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) unexpected(expected string) error {
	return &ParseError{Span: p.tok.Span, Expected: expected, Found: p.tok.String()}
}

func (p *parser) expect(kind TokenKind, what string) error {
	if p.tok.Kind != kind {
		return p.unexpected(what)
	}
	return p.advance()
}

func (p *parser) parseOr() (Pattern, error) {
	first, err := p.parseTraverse()
	if err != nil {
		return nil, err
	}
	subs := []Pattern{first}
	for p.tok.Kind == TokenPipe {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseTraverse()
		if err != nil {
			return nil, err
		}
		subs = append(subs, next)
	}
	if len(subs) == 1 {
		return subs[0], nil
	}
	return Or(subs...), nil
}

func (p *parser) parseTraverse() (Pattern, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	subs := []Pattern{first}
	for p.tok.Kind == TokenArrow {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		subs = append(subs, next)
	}
	if len(subs) == 1 {
		return subs[0], nil
	}
	return Traverse(subs...), nil
}

func (p *parser) parseAnd() (Pattern, error) {
	first, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	subs := []Pattern{first}
	for p.tok.Kind == TokenAmp {
		if err := p.advance(); err != nil {
			return nil, err
		}
		next, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		subs = append(subs, next)
	}
	if len(subs) == 1 {
		return subs[0], nil
	}
	return And(subs...), nil
}

func (p *parser) parseNot() (Pattern, error) {
	if p.tok.Kind == TokenBang {
		if err := p.advance(); err != nil {
			return nil, err
		}
		sub, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Not(sub), nil
	}
	return p.parseRepeat()
}

func (p *parser) parseRepeat() (Pattern, error) {
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	quant, ok, err := p.parseQuantifier()
	if err != nil {
		return nil, err
	}
	if !ok {
		return primary, nil
	}
	return Repeat(primary, quant), nil
}

// parseQuantifier recognizes the postfix *, +, ?, and {n,m} forms with
// their folded lazy/possessive variants.
func (p *parser) parseQuantifier() (Quantifier, bool, error) {
	var q Quantifier
	switch p.tok.Kind {
	case TokenStar:
		q = NewQuantifier(0, -1, Greedy)
	case TokenStarLazy:
		q = NewQuantifier(0, -1, Lazy)
	case TokenStarPossessive:
		q = NewQuantifier(0, -1, Possessive)
	case TokenPlus:
		q = NewQuantifier(1, -1, Greedy)
	case TokenPlusLazy:
		q = NewQuantifier(1, -1, Lazy)
	case TokenPlusPossessive:
		q = NewQuantifier(1, -1, Possessive)
	case TokenQuestion:
		q = NewQuantifier(0, 1, Greedy)
	case TokenQuestionLazy:
		q = NewQuantifier(0, 1, Lazy)
	case TokenQuestionPossessive:
		q = NewQuantifier(0, 1, Possessive)
	case TokenLBrace:
		interval, err := p.parseBraceInterval()
		if err != nil {
			return Quantifier{}, false, err
		}
		reluctance, err := p.parseReluctanceSuffix()
		if err != nil {
			return Quantifier{}, false, err
		}
		return Quantifier{Interval: interval, Reluctance: reluctance}, true, nil
	default:
		return Quantifier{}, false, nil
	}
	if err := p.advance(); err != nil {
		return Quantifier{}, false, err
	}
	return q, true, nil
}

// parseBraceInterval consumes `{ N (, N?)? }` starting at the current
// LBrace token.
func (p *parser) parseBraceInterval() (Interval, error) {
	braceSpan := p.tok.Span
	if err := p.advance(); err != nil {
		return Interval{}, err
	}
	if p.tok.Kind != TokenNumber || p.tok.Value != math.Trunc(p.tok.Value) || p.tok.Value < 0 {
		return Interval{}, &ParseError{Span: braceSpan, Expected: "integer repeat count", Found: p.tok.String()}
	}
	min := int(p.tok.Value)
	if err := p.advance(); err != nil {
		return Interval{}, err
	}
	max := min
	if p.tok.Kind == TokenComma {
		if err := p.advance(); err != nil {
			return Interval{}, err
		}
		if p.tok.Kind == TokenRBrace {
			max = -1
		} else if p.tok.Kind == TokenNumber && p.tok.Value == math.Trunc(p.tok.Value) {
			max = int(p.tok.Value)
			if err := p.advance(); err != nil {
				return Interval{}, err
			}
		} else {
			return Interval{}, p.unexpected("integer repeat count or `}`")
		}
	}
	if err := p.expect(TokenRBrace, "`}`"); err != nil {
		return Interval{}, err
	}
	if max >= 0 && max < min {
		return Interval{}, &CompileError{Message: "invalid quantifier range {" + itoa(min) + "," + itoa(max) + "}"}
	}
	return Interval{Min: min, Max: max}, nil
}

// parseReluctanceSuffix reads an adjacent ? or + after a brace range.
func (p *parser) parseReluctanceSuffix() (Reluctance, error) {
	switch p.tok.Kind {
	case TokenQuestion:
		if err := p.advance(); err != nil {
			return Greedy, err
		}
		return Lazy, nil
	case TokenPlus:
		if err := p.advance(); err != nil {
			return Greedy, err
		}
		return Possessive, nil
	}
	return Greedy, nil
}

func itoa(v int) string { return strconv.Itoa(v) }

func (p *parser) parsePrimary() (Pattern, error) {
	switch p.tok.Kind {
	case TokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen, "`)`"); err != nil {
			return nil, err
		}
		return inner, nil

	case TokenCaptureName:
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(TokenLParen, "`(`"); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRParen, "`)`"); err != nil {
			return nil, err
		}
		return Capture(name, inner), nil

	case TokenStar:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Any(), nil

	case TokenLBracket:
		return p.parseFragment('[', ']', ArrayFragment)

	case TokenLBrace:
		return p.parseFragment('{', '}', MapFragment)

	case TokenString:
		pat := Text(p.tok.Text)
		return pat, p.advance()

	case TokenRegex:
		re, err := regexp.Compile(p.tok.Text)
		if err != nil {
			return nil, &LexError{Offset: p.tok.Span.Start, Message: "invalid regex /" + p.tok.Text + "/"}
		}
		return TextRegex(re), p.advance()

	case TokenNumber:
		pat := Number(p.tok.Value)
		return pat, p.advance()

	case TokenHex:
		pat := Bytes(p.tok.Bytes)
		return pat, p.advance()

	case TokenHexRegex:
		re, err := regexp.Compile(p.tok.Text)
		if err != nil {
			return nil, &LexError{Offset: p.tok.Span.Start, Message: "invalid regex /" + p.tok.Text + "/"}
		}
		return BytesRegex(re), p.advance()

	case TokenQuotedName:
		value, ok := knownvalues.Value(p.tok.Text)
		if !ok {
			return nil, &CompileError{Message: "unknown known value name '" + p.tok.Text + "'"}
		}
		return Known(value), p.advance()

	case TokenDateLiteral:
		pat, err := dateFromLiteral(p.tok.Text)
		if err != nil {
			return nil, &SubMatcherError{Span: p.tok.Span, Err: err}
		}
		return pat, p.advance()

	case TokenKeyword:
		return p.parseKeywordPrimary()
	}
	return nil, p.unexpected("a pattern")
}

func (p *parser) parseKeywordPrimary() (Pattern, error) {
	word := p.tok.Text
	span := p.tok.Span
	simple := func(pat Pattern) (Pattern, error) { return pat, p.advance() }

	switch word {
	case "bool":
		return simple(BoolAny())
	case "true":
		return simple(Bool(true))
	case "false":
		return simple(Bool(false))
	case "null":
		return simple(Null())
	case "leaf":
		return simple(LeafCase())
	case "NaN":
		return simple(NumberNaN())
	case "Infinity":
		return simple(Number(math.Inf(1)))
	case "bstr":
		return simple(BytesAny())
	case "date":
		return simple(DateAny())
	case "assert":
		return simple(Assertion())
	case "wrapped":
		return simple(Wrapped())
	case "obscured":
		return simple(Obscured())
	case "elided":
		return simple(Elided())
	case "encrypted":
		return simple(Encrypted())
	case "compressed":
		return simple(Compressed())

	case "number":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokenLParen {
			return NumberAny(), nil
		}
		return p.parseNumberForms()

	case "text":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokenLParen {
			return TextAny(), nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		var pat Pattern
		switch p.tok.Kind {
		case TokenString:
			pat = Text(p.tok.Text)
		case TokenRegex:
			re, err := regexp.Compile(p.tok.Text)
			if err != nil {
				return nil, &LexError{Offset: p.tok.Span.Start, Message: "invalid regex /" + p.tok.Text + "/"}
			}
			pat = TextRegex(re)
		default:
			return nil, p.unexpected("a string or regex literal")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return pat, p.expect(TokenRParen, "`)`")

	case "known":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokenLParen {
			return KnownAny(), nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokenRegex {
			return nil, p.unexpected("a regex literal")
		}
		re, err := regexp.Compile(p.tok.Text)
		if err != nil {
			return nil, &LexError{Offset: p.tok.Span.Start, Message: "invalid regex /" + p.tok.Text + "/"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return KnownRegex(re), p.expect(TokenRParen, "`)`")

	case "subj":
		return p.parseOptionalSubPattern(Subject)
	case "pred":
		return p.parseOptionalSubPattern(Predicate)
	case "obj":
		return p.parseOptionalSubPattern(Object)
	case "unwrap":
		return p.parseOptionalSubPattern(Unwrap)

	case "assertpred":
		return p.parseRequiredSubPattern(AssertionWithPredicate)
	case "assertobj":
		return p.parseRequiredSubPattern(AssertionWithObject)
	case "search":
		return p.parseRequiredSubPattern(Search)

	case "node":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokenLParen {
			return Node(), nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokenLBrace {
			return nil, p.unexpected("`{`")
		}
		interval, err := p.parseBraceInterval()
		if err != nil {
			return nil, err
		}
		return NodeWithAssertions(interval), p.expect(TokenRParen, "`)`")

	case "digest":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokenLParen {
			return nil, p.unexpected("`(`")
		}
		src, end, err := p.lex.balancedFrom(p.tok.Span.Start, '(', ')')
		if err != nil {
			return nil, err
		}
		body := strings.TrimSpace(src[1 : len(src)-1])
		prefix, decErr := hex.DecodeString(body)
		if decErr != nil || body == "" {
			return nil, &ParseError{Span: NewRange(span.Start, end), Expected: "hex digest prefix", Found: "`" + body + "`"}
		}
		p.lex.seek(end)
		return DigestPrefix(prefix), p.advance()

	case "tagged":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokenLParen {
			return TaggedAny(), nil
		}
		src, end, err := p.lex.balancedFrom(p.tok.Span.Start, '(', ')')
		if err != nil {
			return nil, err
		}
		pat, subErr := TaggedFragment("tagged" + src)
		if subErr != nil {
			return nil, &SubMatcherError{Span: NewRange(span.Start, end), Err: subErr}
		}
		p.lex.seek(end)
		return pat, p.advance()

	case "cbor":
		return p.parseCborForms(span)
	}

	return nil, p.unexpected("a pattern")
}

func (p *parser) parseOptionalSubPattern(build func(Pattern) Pattern) (Pattern, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind != TokenLParen {
		return build(nil), nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	inner, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	return build(inner), p.expect(TokenRParen, "`)`")
}

func (p *parser) parseRequiredSubPattern(build func(Pattern) Pattern) (Pattern, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(TokenLParen, "`(`"); err != nil {
		return nil, err
	}
	inner, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	return build(inner), p.expect(TokenRParen, "`)`")
}

func (p *parser) parseNumberForms() (Pattern, error) {
	// Current token is the opening paren.
	if err := p.advance(); err != nil {
		return nil, err
	}
	var pat Pattern
	switch p.tok.Kind {
	case TokenKeyword:
		switch p.tok.Text {
		case "NaN":
			pat = NumberNaN()
		case "Infinity":
			pat = Number(math.Inf(1))
		default:
			return nil, p.unexpected("a number")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	case TokenGE, TokenGT, TokenLE, TokenLT:
		kind := p.tok.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokenNumber {
			return nil, p.unexpected("a number")
		}
		v := p.tok.Value
		switch kind {
		case TokenGE:
			pat = NumberGreaterOrEqual(v)
		case TokenGT:
			pat = NumberGreaterThan(v)
		case TokenLE:
			pat = NumberLessOrEqual(v)
		case TokenLT:
			pat = NumberLessThan(v)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	case TokenNumber:
		lo := p.tok.Value
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == TokenEllipsis {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind != TokenNumber {
				return nil, p.unexpected("a number")
			}
			hi := p.tok.Value
			if err := p.advance(); err != nil {
				return nil, err
			}
			pat = NumberRange(lo, hi)
		} else {
			pat = Number(lo)
		}
	default:
		return nil, p.unexpected("a number")
	}
	return pat, p.expect(TokenRParen, "`)`")
}

// parseCborForms handles cbor, cbor(/pat/), cbor("diag") and
// cbor(ur:...).
func (p *parser) parseCborForms(span Range) (Pattern, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind != TokenLParen {
		return CborAny(), nil
	}
	src, end, err := p.lex.balancedFrom(p.tok.Span.Start, '(', ')')
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(src[1 : len(src)-1])
	var pat Pattern
	var subErr error
	switch {
	case strings.HasPrefix(body, "/") && strings.HasSuffix(body, "/") && len(body) >= 2:
		pat, subErr = CborPattern(body[1 : len(body)-1])
	case strings.HasPrefix(body, "\"") && strings.HasSuffix(body, "\"") && len(body) >= 2:
		pat, subErr = CborValue(unquote(body))
	case strings.HasPrefix(body, "ur:"):
		pat, subErr = CborUR(body)
	default:
		// A bare diagnostic value: cbor(42), cbor([1, 2, 3]).
		pat, subErr = CborValue(body)
	}
	if subErr != nil {
		return nil, &SubMatcherError{Span: NewRange(span.Start, end), Err: subErr}
	}
	p.lex.seek(end)
	return pat, p.advance()
}

func unquote(s string) string {
	s = s[1 : len(s)-1]
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// parseFragment hands a balanced bracket or brace fragment, including
// its delimiters, to the CBOR sub-matcher.
func (p *parser) parseFragment(open, close rune, build func(string) (Pattern, error)) (Pattern, error) {
	start := p.tok.Span.Start
	src, end, err := p.lex.balancedFrom(start, open, close)
	if err != nil {
		return nil, err
	}
	pat, subErr := build(src)
	if subErr != nil {
		return nil, &SubMatcherError{Span: NewRange(start, end), Err: subErr}
	}
	p.lex.seek(end)
	return pat, p.advance()
}
