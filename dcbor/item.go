package dcbor

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Tag numbers with meaning to the envelope layer.
const (
	TagDate       uint64 = 1
	TagKnownValue uint64 = 40000
)

// Item is a deterministic-CBOR value.  The set of variants is closed:
// Bool, Number, Text, Bytes, Null, Array, Map and Tagged implement it.
type Item interface {
	// Kind returns the coarse variant of the item.
	Kind() Kind

	// Diagnostic renders the item in CBOR diagnostic notation.
	Diagnostic() string
}

type Kind int

const (
	KindBool Kind = iota
	KindNumber
	KindText
	KindBytes
	KindNull
	KindArray
	KindMap
	KindTagged
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindNull:
		return "null"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindTagged:
		return "tagged"
	}
	return "unknown"
}

type Bool struct{ Value bool }

func (Bool) Kind() Kind { return KindBool }

func (b Bool) Diagnostic() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// Number holds either an integer or a floating point value.  dCBOR
// collapses the two on the wire; we keep the distinction only to render
// and encode integers without a fractional part.
type Number struct {
	Int     int64
	Float   float64
	IsFloat bool
}

func Int(v int64) Number     { return Number{Int: v} }
func Float(v float64) Number { return Number{Float: v, IsFloat: true} }

func (Number) Kind() Kind { return KindNumber }

// AsFloat returns the numeric value as a float64 regardless of variant.
func (n Number) AsFloat() float64 {
	if n.IsFloat {
		return n.Float
	}
	return float64(n.Int)
}

func (n Number) Diagnostic() string {
	if !n.IsFloat {
		return fmt.Sprintf("%d", n.Int)
	}
	switch {
	case math.IsNaN(n.Float):
		return "NaN"
	case math.IsInf(n.Float, 1):
		return "Infinity"
	case math.IsInf(n.Float, -1):
		return "-Infinity"
	}
	// Integral floats encode as integers in dCBOR; render them the
	// same way so the notation round-trips.
	if n.Float == math.Trunc(n.Float) && math.Abs(n.Float) < 1e15 {
		return fmt.Sprintf("%d", int64(n.Float))
	}
	return fmt.Sprintf("%g", n.Float)
}

type Text struct{ Value string }

func (Text) Kind() Kind { return KindText }

func (t Text) Diagnostic() string { return quoteText(t.Value) }

type Bytes struct{ Value []byte }

func (Bytes) Kind() Kind { return KindBytes }

func (b Bytes) Diagnostic() string { return fmt.Sprintf("h'%x'", b.Value) }

type Null struct{}

func (Null) Kind() Kind { return KindNull }

func (Null) Diagnostic() string { return "null" }

type Array struct{ Items []Item }

func (Array) Kind() Kind { return KindArray }

func (a Array) Diagnostic() string {
	parts := make([]string, len(a.Items))
	for i, item := range a.Items {
		parts[i] = item.Diagnostic()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

type MapEntry struct {
	Key   Item
	Value Item
}

// Map holds its entries sorted by the deterministic encoding of their
// keys when built by ParseDiagnostic or Decode; encoding sorts keys per
// the same rules, and Diagnostic renders in sorted order so equal maps
// render equally.
type Map struct{ Entries []MapEntry }

func (Map) Kind() Kind { return KindMap }

func (m Map) Diagnostic() string {
	parts := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		parts[i] = e.Key.Diagnostic() + ": " + e.Value.Diagnostic()
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ", ") + "}"
}

type Tagged struct {
	Tag  uint64
	Item Item
}

func (Tagged) Kind() Kind { return KindTagged }

func (t Tagged) Diagnostic() string {
	return fmt.Sprintf("%d(%s)", t.Tag, t.Item.Diagnostic())
}

// Date wraps a time as a tag-1 epoch-seconds item.
func Date(t time.Time) Item {
	return Tagged{Tag: TagDate, Item: Int(t.Unix())}
}

// AsDate reports whether the item is a tag-1 date and returns its time.
func AsDate(item Item) (time.Time, bool) {
	tagged, ok := item.(Tagged)
	if !ok || tagged.Tag != TagDate {
		return time.Time{}, false
	}
	num, ok := tagged.Item.(Number)
	if !ok {
		return time.Time{}, false
	}
	secs := num.AsFloat()
	return time.Unix(int64(secs), 0).UTC(), true
}

func quoteText(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
