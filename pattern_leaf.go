package patex

import (
	"regexp"

	"github.com/clarete/patex/dcbor"
	"github.com/clarete/patex/dcborpat"
	"github.com/clarete/patex/envelope"
	"github.com/clarete/patex/envelope/knownvalues"
)

// LeafPattern matches envelope leaves by delegating to the CBOR
// sub-matcher.  The text field carries the canonical patex rendering;
// sub is the compiled sub-matcher pattern that decides the match.
type LeafPattern struct {
	text string
	sub  dcborpat.Pattern
}

func newLeaf(text string, sub dcborpat.Pattern) *LeafPattern {
	return &LeafPattern{text: text, sub: sub}
}

func (p *LeafPattern) String() string { return p.text }

func (p *LeafPattern) compile(c *compiler) error {
	c.emitMatch(p)
	return nil
}

func (p *LeafPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	return liftMatch(p.sub, env)
}

// subMatcherCaptures exposes the capture names registered inside the
// delegated fragment for compile-time collision checks.
func (p *LeafPattern) subMatcherCaptures() []string {
	return dcborpat.CaptureNames(p.sub)
}

// Leaf pattern constructors, mirroring the surface atoms.

func BoolAny() Pattern        { return newLeaf("bool", dcborpat.BoolAny()) }
func Bool(v bool) Pattern {
	if v {
		return newLeaf("true", dcborpat.BoolValue(true))
	}
	return newLeaf("false", dcborpat.BoolValue(false))
}

func Null() Pattern { return newLeaf("null", dcborpat.NullP()) }

func NumberAny() Pattern { return newLeaf("number", dcborpat.NumberAny()) }

func Number(v float64) Pattern {
	sub := dcborpat.NumberExact(v)
	return newLeaf(sub.String(), sub)
}

func NumberRange(lo, hi float64) Pattern {
	return wrapNumber(dcborpat.NumberRange(lo, hi))
}
func NumberGreaterThan(v float64) Pattern {
	return wrapNumber(dcborpat.NumberGreaterThan(v))
}
func NumberGreaterOrEqual(v float64) Pattern {
	return wrapNumber(dcborpat.NumberGreaterOrEqual(v))
}
func NumberLessThan(v float64) Pattern {
	return wrapNumber(dcborpat.NumberLessThan(v))
}
func NumberLessOrEqual(v float64) Pattern {
	return wrapNumber(dcborpat.NumberLessOrEqual(v))
}
func NumberNaN() Pattern { return wrapNumber(dcborpat.NumberNaN()) }

func wrapNumber(sub dcborpat.Pattern) Pattern {
	return newLeaf(sub.String(), sub)
}

func TextAny() Pattern { return newLeaf("text", dcborpat.TextAny()) }

func Text(s string) Pattern {
	sub := dcborpat.TextExact(s)
	return newLeaf(sub.String(), sub)
}

func TextRegex(re *regexp.Regexp) Pattern {
	return newLeaf("text(/"+re.String()+"/)", dcborpat.TextRegex(re))
}

func BytesAny() Pattern { return newLeaf("bstr", dcborpat.BytesAny()) }

func Bytes(b []byte) Pattern {
	sub := dcborpat.BytesExact(b)
	return newLeaf(sub.String(), sub)
}

func BytesRegex(re *regexp.Regexp) Pattern {
	sub := dcborpat.BytesRegex(re)
	return newLeaf(sub.String(), sub)
}

func DateAny() Pattern { return newLeaf("date", dcborpat.DateAny()) }

// dateFromLiteral builds a date pattern from the body of a date'…'
// literal.
func dateFromLiteral(body string) (Pattern, error) {
	sub, err := dcborpat.Parse("date'" + body + "'")
	if err != nil {
		return nil, err
	}
	return newLeaf(sub.String(), sub), nil
}

func KnownAny() Pattern { return newLeaf("known", dcborpat.KnownAny()) }

func Known(value uint64) Pattern {
	return newLeaf("'"+knownvalues.Name(value)+"'", dcborpat.KnownValue(value))
}

func KnownRegex(re *regexp.Regexp) Pattern {
	return newLeaf("known(/"+re.String()+"/)", dcborpat.KnownRegex(re))
}

// ArrayFragment delegates a bracketed fragment, including the
// brackets, to the sub-matcher's parser.
func ArrayFragment(src string) (Pattern, error) {
	sub, err := dcborpat.Parse(src)
	if err != nil {
		return nil, err
	}
	return newLeaf(sub.String(), sub), nil
}

// MapFragment delegates a braced fragment, including the braces, to
// the sub-matcher's parser.
func MapFragment(src string) (Pattern, error) {
	sub, err := dcborpat.Parse(src)
	if err != nil {
		return nil, err
	}
	return newLeaf(sub.String(), sub), nil
}

// TaggedFragment delegates the whole tagged(...) form to the
// sub-matcher's parser.
func TaggedFragment(src string) (Pattern, error) {
	sub, err := dcborpat.Parse(src)
	if err != nil {
		return nil, err
	}
	return newLeaf(sub.String(), sub), nil
}

func TaggedAny() Pattern { return newLeaf("tagged", dcborpat.TaggedAny()) }

// CborAny matches any leaf value.
func CborAny() Pattern { return newLeaf("cbor", dcborpat.Any()) }

// CborPattern embeds a full sub-matcher pattern: cbor(/…/).
func CborPattern(src string) (Pattern, error) {
	sub, err := dcborpat.Parse(src)
	if err != nil {
		return nil, err
	}
	return newLeaf("cbor(/"+src+"/)", sub), nil
}

// CborValue matches one exact value given in diagnostic notation:
// cbor("…").
func CborValue(diag string) (Pattern, error) {
	item, err := dcbor.ParseDiagnostic(diag)
	if err != nil {
		return nil, err
	}
	return newLeaf("cbor(\""+diag+"\")", dcborpat.ItemExact(item)), nil
}

// urDecoder resolves ur: literals into items.  URs are an external
// concern; without a registered decoder they are a parse error.
var urDecoder func(ur string) (dcbor.Item, error)

// RegisterURDecoder installs the decoder used for cbor(ur:…) forms.
func RegisterURDecoder(fn func(ur string) (dcbor.Item, error)) {
	urDecoder = fn
}

// CborUR matches the exact value carried by a UR string.
func CborUR(ur string) (Pattern, error) {
	if urDecoder == nil {
		return nil, &CompileError{Message: "no UR decoder registered for " + ur}
	}
	item, err := urDecoder(ur)
	if err != nil {
		return nil, err
	}
	return newLeaf("cbor("+ur+")", dcborpat.ItemExact(item)), nil
}
