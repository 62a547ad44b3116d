package dcbor

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseDiagnostic parses a single CBOR value written in diagnostic
// notation: numbers, "text", h'hex', [arrays], {maps}, tag(content),
// true, false, null, NaN and Infinity.
func ParseDiagnostic(src string) (Item, error) {
	p := &diagParser{input: []rune(src)}
	p.skipSpacing()
	item, err := p.parseItem()
	if err != nil {
		return nil, err
	}
	p.skipSpacing()
	if p.cursor < len(p.input) {
		return nil, p.errorf("extra data at offset %d", p.cursor)
	}
	return item, nil
}

type diagParser struct {
	input  []rune
	cursor int
}

func (p *diagParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("diagnostic notation: "+format, args...)
}

func (p *diagParser) peek() rune {
	if p.cursor >= len(p.input) {
		return 0
	}
	return p.input[p.cursor]
}

func (p *diagParser) skipSpacing() {
	for p.cursor < len(p.input) {
		switch p.input[p.cursor] {
		case ' ', '\t', '\n', '\r':
			p.cursor++
		default:
			return
		}
	}
}

func (p *diagParser) expect(r rune) error {
	if p.peek() != r {
		return p.errorf("expected %q at offset %d", r, p.cursor)
	}
	p.cursor++
	return nil
}

func (p *diagParser) parseItem() (Item, error) {
	p.skipSpacing()
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	case c == '[':
		return p.parseArray()
	case c == '{':
		return p.parseMap()
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return nil, err
		}
		return Text{Value: s}, nil
	case c == 'h':
		return p.parseHex()
	case c == '-' || c >= '0' && c <= '9':
		return p.parseNumberOrTag()
	default:
		return p.parseWord()
	}
}

func (p *diagParser) parseArray() (Item, error) {
	if err := p.expect('['); err != nil {
		return nil, err
	}
	var items []Item
	p.skipSpacing()
	if p.peek() == ']' {
		p.cursor++
		return Array{Items: items}, nil
	}
	for {
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		p.skipSpacing()
		switch p.peek() {
		case ',':
			p.cursor++
		case ']':
			p.cursor++
			return Array{Items: items}, nil
		default:
			return nil, p.errorf("expected ',' or ']' at offset %d", p.cursor)
		}
	}
}

func (p *diagParser) parseMap() (Item, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	var entries []MapEntry
	p.skipSpacing()
	if p.peek() == '}' {
		p.cursor++
		return Map{Entries: entries}, nil
	}
	for {
		key, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		p.skipSpacing()
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		value, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: key, Value: value})
		p.skipSpacing()
		switch p.peek() {
		case ',':
			p.cursor++
		case '}':
			p.cursor++
			sortEntries(entries)
			return Map{Entries: entries}, nil
		default:
			return nil, p.errorf("expected ',' or '}' at offset %d", p.cursor)
		}
	}
}

func (p *diagParser) parseString() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		if p.cursor >= len(p.input) {
			return "", p.errorf("unterminated string")
		}
		c := p.input[p.cursor]
		p.cursor++
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			if p.cursor >= len(p.input) {
				return "", p.errorf("unterminated string")
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
			case '"', '\\', '/':
				b.WriteRune(e)
			default:
				b.WriteRune('\\')
				b.WriteRune(e)
			}
		default:
			b.WriteRune(c)
		}
	}
}

func (p *diagParser) parseHex() (Item, error) {
	if !strings.HasPrefix(string(p.input[p.cursor:]), "h'") {
		return p.parseWord()
	}
	p.cursor += 2
	start := p.cursor
	for p.cursor < len(p.input) && p.input[p.cursor] != '\'' {
		p.cursor++
	}
	if p.cursor >= len(p.input) {
		return nil, p.errorf("unterminated byte string")
	}
	raw := string(p.input[start:p.cursor])
	p.cursor++
	data, err := hex.DecodeString(raw)
	if err != nil {
		return nil, p.errorf("invalid hex string %q", raw)
	}
	return Bytes{Value: data}, nil
}

func (p *diagParser) parseNumberOrTag() (Item, error) {
	start := p.cursor
	if p.peek() == '-' {
		p.cursor++
	}
	for p.cursor < len(p.input) && p.input[p.cursor] >= '0' && p.input[p.cursor] <= '9' {
		p.cursor++
	}
	isFloat := false
	if p.peek() == '.' {
		isFloat = true
		p.cursor++
		for p.cursor < len(p.input) && p.input[p.cursor] >= '0' && p.input[p.cursor] <= '9' {
			p.cursor++
		}
	}
	if p.peek() == 'e' || p.peek() == 'E' {
		isFloat = true
		p.cursor++
		if p.peek() == '-' || p.peek() == '+' {
			p.cursor++
		}
		for p.cursor < len(p.input) && p.input[p.cursor] >= '0' && p.input[p.cursor] <= '9' {
			p.cursor++
		}
	}
	text := string(p.input[start:p.cursor])

	// A bare unsigned integer followed by '(' is a tagged value.
	if !isFloat && p.peek() == '(' && text != "" && text[0] != '-' {
		tag, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid tag number %q", text)
		}
		p.cursor++
		content, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		p.skipSpacing()
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return Tagged{Tag: tag, Item: content}, nil
	}

	if text == "-" && strings.HasPrefix(string(p.input[p.cursor:]), "Infinity") {
		p.cursor += len("Infinity")
		return Float(math.Inf(-1)), nil
	}
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", text)
		}
		return Float(f), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, p.errorf("invalid number %q", text)
	}
	return Int(i), nil
}

func (p *diagParser) parseWord() (Item, error) {
	start := p.cursor
	for p.cursor < len(p.input) {
		c := p.input[p.cursor]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			p.cursor++
		} else {
			break
		}
	}
	switch word := string(p.input[start:p.cursor]); word {
	case "true":
		return Bool{Value: true}, nil
	case "false":
		return Bool{Value: false}, nil
	case "null":
		return Null{}, nil
	case "NaN":
		return Float(math.NaN()), nil
	case "Infinity":
		return Float(math.Inf(1)), nil
	default:
		return nil, p.errorf("unexpected token %q at offset %d", word, start)
	}
}
