package dcborpat

import (
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clarete/patex/dcbor"
	"github.com/clarete/patex/envelope/knownvalues"
)

// Parse reads a dCBOR pattern from its textual form.
func Parse(src string) (Pattern, error) {
	p := &parser{input: []rune(src)}
	p.skipSpacing()
	pattern, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpacing()
	if p.cursor < len(p.input) {
		return nil, p.errorf("extra data at offset %d", p.cursor)
	}
	return pattern, nil
}

type parser struct {
	input  []rune
	cursor int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func (p *parser) peek() rune {
	if p.cursor >= len(p.input) {
		return 0
	}
	return p.input[p.cursor]
}

func (p *parser) peekAt(offset int) rune {
	if p.cursor+offset >= len(p.input) {
		return 0
	}
	return p.input[p.cursor+offset]
}

func (p *parser) skipSpacing() {
	for p.cursor < len(p.input) {
		switch p.input[p.cursor] {
		case ' ', '\t', '\n', '\r':
			p.cursor++
		default:
			return
		}
	}
}

func (p *parser) expect(r rune) error {
	p.skipSpacing()
	if p.peek() != r {
		return p.errorf("unexpected token at offset %d: expected %q", p.cursor, r)
	}
	p.cursor++
	return nil
}

// hasWord reports whether the given keyword starts at the cursor and
// is not a prefix of a longer identifier.
func (p *parser) hasWord(word string) bool {
	if !strings.HasPrefix(string(p.input[p.cursor:]), word) {
		return false
	}
	next := p.peekAt(len(word))
	return !isIdentRune(next)
}

func (p *parser) eatWord(word string) bool {
	if p.hasWord(word) {
		p.cursor += len(word)
		return true
	}
	return false
}

func isIdentRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

func (p *parser) parseOr() (Pattern, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	subs := []Pattern{first}
	for {
		p.skipSpacing()
		if p.peek() != '|' {
			break
		}
		p.cursor++
		next, err := p.parseAnd()
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

func (p *parser) parseAnd() (Pattern, error) {
	first, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	subs := []Pattern{first}
	for {
		p.skipSpacing()
		if p.peek() != '&' {
			break
		}
		p.cursor++
		next, err := p.parsePrimary()
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

func (p *parser) parsePrimary() (Pattern, error) {
	p.skipSpacing()
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	case c == '(':
		p.cursor++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return p.maybeQuantified(inner)
	case c == '@':
		return p.parseCapture()
	case c == '*':
		p.cursor++
		return Any(), nil
	case c == '[':
		return p.parseArray()
	case c == '{':
		return p.parseMap()
	case c == '"':
		s, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		return TextExact(s), nil
	case c == '/':
		re, err := p.parseRegex()
		if err != nil {
			return nil, err
		}
		return TextRegex(re), nil
	case c == '\'':
		return p.parseKnownLiteral()
	case c == '-' || c >= '0' && c <= '9':
		item, err := p.parseNumberItem()
		if err != nil {
			return nil, err
		}
		return ItemExact(item), nil
	}
	return p.parseKeyword()
}

func (p *parser) parseKeyword() (Pattern, error) {
	switch {
	case p.eatWord("bool"):
		return BoolAny(), nil
	case p.eatWord("true"):
		return BoolValue(true), nil
	case p.eatWord("false"):
		return BoolValue(false), nil
	case p.eatWord("null"):
		return NullP(), nil
	case p.eatWord("NaN"):
		return NumberNaN(), nil
	case p.eatWord("Infinity"):
		return NumberExact(inf(1)), nil
	case p.eatWord("number"):
		return p.parseNumberForms()
	case p.eatWord("text"):
		return p.parseTextForms()
	case p.eatWord("bstr"):
		return BytesAny(), nil
	case p.hasWord("h") && p.peekAt(1) == '\'':
		return p.parseHexForms()
	case p.eatWord("date"):
		return p.parseDateForms()
	case p.eatWord("known"):
		return p.parseKnownForms()
	case p.eatWord("tagged"):
		return p.parseTaggedForms()
	case p.eatWord("search"):
		if err := p.expect('('); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return Search(inner), nil
	}
	return nil, p.errorf("unexpected token at offset %d", p.cursor)
}

func inf(sign int) float64 { return math.Inf(sign) }

// tagNames is the read-only registry of tag names resolvable at parse
// time.
var tagNames = map[string]uint64{
	"date":        dcbor.TagDate,
	"known-value": dcbor.TagKnownValue,
}

func (p *parser) parseCapture() (Pattern, error) {
	p.cursor++ // '@'
	start := p.cursor
	for isIdentRune(p.peek()) {
		p.cursor++
	}
	name := string(p.input[start:p.cursor])
	if name == "" {
		return nil, p.errorf("invalid capture name at offset %d", start)
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}
	inner, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return Capture(name, inner), nil
}

// maybeQuantified wraps a parenthesized group with a repeat when a
// quantifier follows.
func (p *parser) maybeQuantified(inner Pattern) (Pattern, error) {
	min, max, ok, err := p.parseQuantifier()
	if err != nil {
		return nil, err
	}
	if !ok {
		return inner, nil
	}
	reluctance := p.parseReluctance()
	return Repeat(inner, min, max, reluctance), nil
}

// parseQuantifier recognizes *, +, ? and {n}, {n,}, {n,m}.
func (p *parser) parseQuantifier() (min, max int, ok bool, err error) {
	switch p.peek() {
	case '*':
		p.cursor++
		return 0, -1, true, nil
	case '+':
		p.cursor++
		return 1, -1, true, nil
	case '?':
		p.cursor++
		return 0, 1, true, nil
	case '{':
		if !isDigit(p.peekAt(1)) && p.peekAt(1) != ' ' {
			return 0, 0, false, nil
		}
		min, max, err = p.parseInterval()
		if err != nil {
			return 0, 0, false, err
		}
		return min, max, true, nil
	}
	return 0, 0, false, nil
}

func (p *parser) parseReluctance() Reluctance {
	switch p.peek() {
	case '?':
		p.cursor++
		return Lazy
	case '+':
		p.cursor++
		return Possessive
	}
	return Greedy
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// parseInterval reads a brace range {n}, {n,} or {n,m}.
func (p *parser) parseInterval() (int, int, error) {
	if err := p.expect('{'); err != nil {
		return 0, 0, err
	}
	p.skipSpacing()
	start := p.cursor
	for isDigit(p.peek()) {
		p.cursor++
	}
	if start == p.cursor {
		return 0, 0, p.errorf("invalid range at offset %d", p.cursor)
	}
	min, _ := strconv.Atoi(string(p.input[start:p.cursor]))
	p.skipSpacing()
	max := min
	if p.peek() == ',' {
		p.cursor++
		p.skipSpacing()
		if p.peek() == '}' {
			max = -1
		} else {
			start = p.cursor
			for isDigit(p.peek()) {
				p.cursor++
			}
			if start == p.cursor {
				return 0, 0, p.errorf("invalid range at offset %d", p.cursor)
			}
			max, _ = strconv.Atoi(string(p.input[start:p.cursor]))
			p.skipSpacing()
		}
	}
	if err := p.expect('}'); err != nil {
		return 0, 0, err
	}
	if max >= 0 && max < min {
		return 0, 0, p.errorf("invalid range: %d > %d", min, max)
	}
	return min, max, nil
}

func (p *parser) parseStringLiteral() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		if p.cursor >= len(p.input) {
			return "", p.errorf("unterminated string literal")
		}
		c := p.input[p.cursor]
		p.cursor++
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			if p.cursor >= len(p.input) {
				return "", p.errorf("unterminated string literal")
			}
			e := p.input[p.cursor]
			p.cursor++
			switch e {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			default:
				b.WriteRune(e)
			}
		default:
			b.WriteRune(c)
		}
	}
}

func (p *parser) parseRegex() (*regexp.Regexp, error) {
	if err := p.expect('/'); err != nil {
		return nil, err
	}
	start := p.cursor
	escape := false
	for p.cursor < len(p.input) {
		c := p.input[p.cursor]
		p.cursor++
		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c == '/' {
			raw := strings.ReplaceAll(string(p.input[start:p.cursor-1]), `\/`, "/")
			re, err := regexp.Compile(raw)
			if err != nil {
				return nil, p.errorf("invalid regex /%s/: %v", raw, err)
			}
			return re, nil
		}
	}
	return nil, p.errorf("unterminated regex at offset %d", start)
}

// parseNumberItem reads a bare numeric literal as a dCBOR item,
// keeping integers integral.
func (p *parser) parseNumberItem() (dcbor.Item, error) {
	start := p.cursor
	v, err := p.parseNumberLiteral()
	if err != nil {
		return nil, err
	}
	text := string(p.input[start:p.cursor])
	if !strings.ContainsAny(text, ".eE") && !strings.Contains(text, "Infinity") {
		return dcbor.Int(int64(v)), nil
	}
	return dcbor.Float(v), nil
}

func (p *parser) parseNumberLiteral() (float64, error) {
	start := p.cursor
	if p.peek() == '-' {
		p.cursor++
		if p.eatWord("Infinity") {
			return inf(-1), nil
		}
	}
	for isDigit(p.peek()) {
		p.cursor++
	}
	if p.peek() == '.' && isDigit(p.peekAt(1)) {
		p.cursor++
		for isDigit(p.peek()) {
			p.cursor++
		}
	}
	if p.peek() == 'e' || p.peek() == 'E' {
		p.cursor++
		if p.peek() == '-' || p.peek() == '+' {
			p.cursor++
		}
		for isDigit(p.peek()) {
			p.cursor++
		}
	}
	text := string(p.input[start:p.cursor])
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, p.errorf("invalid number %q", text)
	}
	return v, nil
}

func (p *parser) parseNumberForms() (Pattern, error) {
	p.skipSpacing()
	if p.peek() != '(' {
		return NumberAny(), nil
	}
	p.cursor++
	p.skipSpacing()
	var pat Pattern
	switch {
	case p.eatWord("NaN"):
		pat = NumberNaN()
	case p.eatWord("Infinity"):
		pat = NumberExact(inf(1))
	case strings.HasPrefix(string(p.input[p.cursor:]), ">="):
		p.cursor += 2
		v, err := p.parseNumberArg()
		if err != nil {
			return nil, err
		}
		pat = NumberGreaterOrEqual(v)
	case strings.HasPrefix(string(p.input[p.cursor:]), "<="):
		p.cursor += 2
		v, err := p.parseNumberArg()
		if err != nil {
			return nil, err
		}
		pat = NumberLessOrEqual(v)
	case p.peek() == '>':
		p.cursor++
		v, err := p.parseNumberArg()
		if err != nil {
			return nil, err
		}
		pat = NumberGreaterThan(v)
	case p.peek() == '<':
		p.cursor++
		v, err := p.parseNumberArg()
		if err != nil {
			return nil, err
		}
		pat = NumberLessThan(v)
	default:
		v, err := p.parseNumberArg()
		if err != nil {
			return nil, err
		}
		p.skipSpacing()
		if strings.HasPrefix(string(p.input[p.cursor:]), "...") {
			p.cursor += 3
			hi, err := p.parseNumberArg()
			if err != nil {
				return nil, err
			}
			pat = NumberRange(v, hi)
		} else {
			pat = NumberExact(v)
		}
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return pat, nil
}

func (p *parser) parseNumberArg() (float64, error) {
	p.skipSpacing()
	if p.eatWord("-Infinity") {
		return inf(-1), nil
	}
	if p.eatWord("Infinity") {
		return inf(1), nil
	}
	return p.parseNumberLiteral()
}

func (p *parser) parseTextForms() (Pattern, error) {
	p.skipSpacing()
	if p.peek() != '(' {
		return TextAny(), nil
	}
	p.cursor++
	p.skipSpacing()
	var pat Pattern
	switch p.peek() {
	case '"':
		s, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		pat = TextExact(s)
	case '/':
		re, err := p.parseRegex()
		if err != nil {
			return nil, err
		}
		pat = TextRegex(re)
	default:
		return nil, p.errorf("unexpected token in text(...) at offset %d", p.cursor)
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return pat, nil
}

func (p *parser) parseHexForms() (Pattern, error) {
	p.cursor += 2 // h'
	if p.peek() == '/' {
		re, err := p.parseRegex()
		if err != nil {
			return nil, err
		}
		if err := p.expect('\''); err != nil {
			return nil, err
		}
		return BytesRegex(re), nil
	}
	start := p.cursor
	for p.cursor < len(p.input) && p.input[p.cursor] != '\'' {
		p.cursor++
	}
	if p.cursor >= len(p.input) {
		return nil, p.errorf("unterminated byte string at offset %d", start)
	}
	raw := string(p.input[start:p.cursor])
	p.cursor++
	data, err := hex.DecodeString(raw)
	if err != nil {
		return nil, p.errorf("invalid hex string %q", raw)
	}
	return BytesExact(data), nil
}

// parseDateForms reads the single-quoted payload after the date
// keyword: date'iso', date'lo...hi', date'lo...', date'...hi' and
// date'/re/'.
func (p *parser) parseDateForms() (Pattern, error) {
	if p.peek() != '\'' {
		return DateAny(), nil
	}
	p.cursor++
	start := p.cursor
	for p.cursor < len(p.input) && p.input[p.cursor] != '\'' {
		p.cursor++
	}
	if p.cursor >= len(p.input) {
		return nil, p.errorf("unterminated date literal at offset %d", start)
	}
	body := string(p.input[start:p.cursor])
	p.cursor++
	if strings.HasPrefix(body, "/") && strings.HasSuffix(body, "/") && len(body) >= 2 {
		re, err := regexp.Compile(body[1 : len(body)-1])
		if err != nil {
			return nil, p.errorf("invalid regex in date literal: %v", err)
		}
		return DateRegex(re), nil
	}
	switch {
	case strings.HasPrefix(body, "..."):
		hi, err := parseISODate(body[3:])
		if err != nil {
			return nil, err
		}
		return DateLatest(hi), nil
	case strings.HasSuffix(body, "..."):
		lo, err := parseISODate(body[:len(body)-3])
		if err != nil {
			return nil, err
		}
		return DateEarliest(lo), nil
	case strings.Contains(body, "..."):
		parts := strings.SplitN(body, "...", 2)
		lo, err := parseISODate(parts[0])
		if err != nil {
			return nil, err
		}
		hi, err := parseISODate(parts[1])
		if err != nil {
			return nil, err
		}
		return DateRange(lo, hi), nil
	default:
		t, err := parseISODate(body)
		if err != nil {
			return nil, err
		}
		return DateExact(t), nil
	}
}

func parseISODate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func (p *parser) parseKnownForms() (Pattern, error) {
	p.skipSpacing()
	if p.peek() != '(' {
		return KnownAny(), nil
	}
	p.cursor++
	p.skipSpacing()
	re, err := p.parseRegex()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return KnownRegex(re), nil
}

func (p *parser) parseKnownLiteral() (Pattern, error) {
	p.cursor++ // opening quote
	start := p.cursor
	for p.cursor < len(p.input) && p.input[p.cursor] != '\'' {
		p.cursor++
	}
	if p.cursor >= len(p.input) {
		return nil, p.errorf("unterminated known value literal at offset %d", start)
	}
	name := string(p.input[start:p.cursor])
	p.cursor++
	value, ok := knownvalues.Value(name)
	if !ok {
		return nil, p.errorf("unknown known value name %q", name)
	}
	return KnownValue(value), nil
}

func (p *parser) parseTaggedForms() (Pattern, error) {
	p.skipSpacing()
	if p.peek() != '(' {
		return TaggedAny(), nil
	}
	p.cursor++
	p.skipSpacing()
	var sel func(content Pattern) Pattern
	switch {
	case p.peek() == '/':
		re, err := p.parseRegex()
		if err != nil {
			return nil, err
		}
		sel = func(content Pattern) Pattern { return TaggedRegex(re, content) }
	case isDigit(p.peek()):
		start := p.cursor
		for isDigit(p.peek()) {
			p.cursor++
		}
		tag, err := strconv.ParseUint(string(p.input[start:p.cursor]), 10, 64)
		if err != nil {
			return nil, p.errorf("invalid tag number at offset %d", start)
		}
		sel = func(content Pattern) Pattern { return TaggedValue(tag, content) }
	case isIdentRune(p.peek()):
		start := p.cursor
		for isIdentRune(p.peek()) || p.peek() == '-' {
			p.cursor++
		}
		name := string(p.input[start:p.cursor])
		tag, ok := tagNames[name]
		if !ok {
			return nil, p.errorf("unknown tag name %q", name)
		}
		sel = func(content Pattern) Pattern { return TaggedValue(tag, content) }
	default:
		return nil, p.errorf("unexpected token in tagged(...) at offset %d", p.cursor)
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}
	content, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return sel(content), nil
}

func (p *parser) parseArray() (Pattern, error) {
	p.cursor++ // '['
	p.skipSpacing()
	if p.peek() == '*' && nextNonSpace(p.input, p.cursor+1) == ']' {
		p.cursor++
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return ArrayAny(), nil
	}
	if p.peek() == '{' && isDigit(p.peekAt(1)) {
		min, max, err := p.parseInterval()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return ArrayWithInterval(min, max), nil
	}
	var elems []Pattern
	for {
		elem, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		p.skipSpacing()
		switch p.peek() {
		case ',':
			p.cursor++
		case ']':
			p.cursor++
			return ArrayWithElems(elems), nil
		default:
			return nil, p.errorf("expected ',' or ']' at offset %d", p.cursor)
		}
	}
}

func (p *parser) parseMap() (Pattern, error) {
	p.cursor++ // '{'
	p.skipSpacing()
	if p.peek() == '*' && nextNonSpace(p.input, p.cursor+1) == '}' {
		p.cursor++
		if err := p.expect('}'); err != nil {
			return nil, err
		}
		return MapAny(), nil
	}
	if p.peek() == '{' && isDigit(p.peekAt(1)) {
		min, max, err := p.parseInterval()
		if err != nil {
			return nil, err
		}
		if err := p.expect('}'); err != nil {
			return nil, err
		}
		return MapWithInterval(min, max), nil
	}
	var entries []MapEntryPattern
	for {
		key, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		value, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntryPattern{Key: key, Value: value})
		p.skipSpacing()
		switch p.peek() {
		case ',':
			p.cursor++
		case '}':
			p.cursor++
			return MapWithEntries(entries), nil
		default:
			return nil, p.errorf("expected ',' or '}' at offset %d", p.cursor)
		}
	}
}

func nextNonSpace(input []rune, from int) rune {
	for i := from; i < len(input); i++ {
		switch input[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return input[i]
		}
	}
	return 0
}
