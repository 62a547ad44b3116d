// Package dcborpat is a pattern matcher for dCBOR items.  It is the
// sub-language the envelope matcher delegates to for everything below
// a leaf: scalar value patterns, array and map structure patterns,
// tagged values, searches and named captures.
package dcborpat

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/clarete/patex/dcbor"
	"github.com/clarete/patex/envelope/knownvalues"
)

// Path is a descent through a dCBOR item tree, from the matched root
// down to the item a pattern selected.
type Path []dcbor.Item

// Pattern is a compiled dCBOR pattern.  The variant set is closed.
type Pattern interface {
	fmt.Stringer

	// paths returns the matching descents starting at item, plus any
	// captures recorded underneath.
	paths(item dcbor.Item) ([]Path, map[string][]Path)
}

// Match runs the pattern against an item.
func Match(p Pattern, item dcbor.Item) ([]Path, map[string][]Path) {
	return p.paths(item)
}

// Matches reports whether the pattern matches the item at all.
func Matches(p Pattern, item dcbor.Item) bool {
	paths, _ := p.paths(item)
	return len(paths) > 0
}

// CaptureNames returns every capture name reachable in the pattern, in
// first-appearance order.
func CaptureNames(p Pattern) []string {
	var names []string
	seen := map[string]struct{}{}
	var visit func(Pattern)
	visit = func(p Pattern) {
		switch pat := p.(type) {
		case *CapturePattern:
			if _, ok := seen[pat.Name]; !ok {
				seen[pat.Name] = struct{}{}
				names = append(names, pat.Name)
			}
			visit(pat.Sub)
		case *OrPattern:
			for _, sub := range pat.Subs {
				visit(sub)
			}
		case *AndPattern:
			for _, sub := range pat.Subs {
				visit(sub)
			}
		case *SearchPattern:
			visit(pat.Sub)
		case *RepeatPattern:
			visit(pat.Sub)
		case *ArrayPattern:
			for _, sub := range pat.Elems {
				visit(sub)
			}
		case *MapPattern:
			for _, entry := range pat.Entries {
				visit(entry.Key)
				visit(entry.Value)
			}
		case *TaggedPattern:
			if pat.Content != nil {
				visit(pat.Content)
			}
		}
	}
	visit(p)
	return names
}

func single(item dcbor.Item) ([]Path, map[string][]Path) {
	return []Path{{item}}, nil
}

func nomatch() ([]Path, map[string][]Path) { return nil, nil }

// mergeCaptures appends src's capture paths into dst, allocating dst
// when needed.
func mergeCaptures(dst map[string][]Path, src map[string][]Path) map[string][]Path {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = map[string][]Path{}
	}
	for name, paths := range src {
		dst[name] = append(dst[name], paths...)
	}
	return dst
}

// prefixCaptures re-roots capture paths under the given prefix: each
// capture path is appended after a copy of the whole prefix.
func prefixCaptures(prefix Path, captures map[string][]Path) map[string][]Path {
	if len(captures) == 0 {
		return nil
	}
	out := map[string][]Path{}
	for name, paths := range captures {
		for _, p := range paths {
			joined := append(append(Path{}, prefix...), p...)
			out[name] = append(out[name], joined)
		}
	}
	return out
}

// AnyPattern matches every item.
type AnyPattern struct{}

func Any() Pattern { return &AnyPattern{} }

func (*AnyPattern) String() string { return "*" }

func (*AnyPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	return single(item)
}

// ItemPattern matches one exact item by deterministic encoding.
type ItemPattern struct{ Value dcbor.Item }

func ItemExact(value dcbor.Item) Pattern { return &ItemPattern{Value: value} }

func (p *ItemPattern) String() string { return p.Value.Diagnostic() }

func (p *ItemPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	if !dcbor.Equal(item, p.Value) {
		return nomatch()
	}
	return single(item)
}

// BoolPattern matches booleans, optionally a specific one.
type BoolPattern struct {
	HasValue bool
	Value    bool
}

func BoolAny() Pattern        { return &BoolPattern{} }
func BoolValue(v bool) Pattern { return &BoolPattern{HasValue: true, Value: v} }

func (p *BoolPattern) String() string {
	if !p.HasValue {
		return "bool"
	}
	if p.Value {
		return "true"
	}
	return "false"
}

func (p *BoolPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	b, ok := item.(dcbor.Bool)
	if !ok {
		return nomatch()
	}
	if p.HasValue && b.Value != p.Value {
		return nomatch()
	}
	return single(item)
}

// NullPattern matches the null item.
type NullPattern struct{}

func NullP() Pattern { return &NullPattern{} }

func (*NullPattern) String() string { return "null" }

func (*NullPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	if _, ok := item.(dcbor.Null); !ok {
		return nomatch()
	}
	return single(item)
}

type numberOp int

const (
	numberAny numberOp = iota
	numberExact
	numberRange
	numberGT
	numberGE
	numberLT
	numberLE
	numberNaN
)

// NumberPattern matches numeric items by value, range or comparison.
type NumberPattern struct {
	op   numberOp
	a, b float64
}

func NumberAny() Pattern              { return &NumberPattern{op: numberAny} }
func NumberExact(v float64) Pattern   { return &NumberPattern{op: numberExact, a: v} }
func NumberRange(lo, hi float64) Pattern {
	return &NumberPattern{op: numberRange, a: lo, b: hi}
}
func NumberGreaterThan(v float64) Pattern { return &NumberPattern{op: numberGT, a: v} }
func NumberGreaterOrEqual(v float64) Pattern {
	return &NumberPattern{op: numberGE, a: v}
}
func NumberLessThan(v float64) Pattern    { return &NumberPattern{op: numberLT, a: v} }
func NumberLessOrEqual(v float64) Pattern { return &NumberPattern{op: numberLE, a: v} }
func NumberNaN() Pattern                  { return &NumberPattern{op: numberNaN} }

func formatNumber(v float64) string {
	if math.IsInf(v, 1) {
		return "Infinity"
	}
	if math.IsInf(v, -1) {
		return "-Infinity"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

func (p *NumberPattern) String() string {
	switch p.op {
	case numberAny:
		return "number"
	case numberExact:
		return fmt.Sprintf("number(%s)", formatNumber(p.a))
	case numberRange:
		return fmt.Sprintf("number(%s...%s)", formatNumber(p.a), formatNumber(p.b))
	case numberGT:
		return fmt.Sprintf("number(>%s)", formatNumber(p.a))
	case numberGE:
		return fmt.Sprintf("number(>=%s)", formatNumber(p.a))
	case numberLT:
		return fmt.Sprintf("number(<%s)", formatNumber(p.a))
	case numberLE:
		return fmt.Sprintf("number(<=%s)", formatNumber(p.a))
	case numberNaN:
		return "number(NaN)"
	}
	return "number"
}

func (p *NumberPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	num, ok := item.(dcbor.Number)
	if !ok {
		return nomatch()
	}
	v := num.AsFloat()
	matched := false
	switch p.op {
	case numberAny:
		matched = true
	case numberExact:
		matched = v == p.a
	case numberRange:
		matched = v >= p.a && v <= p.b
	case numberGT:
		matched = v > p.a
	case numberGE:
		matched = v >= p.a
	case numberLT:
		matched = v < p.a
	case numberLE:
		matched = v <= p.a
	case numberNaN:
		matched = math.IsNaN(v)
	}
	if !matched {
		return nomatch()
	}
	return single(item)
}

type textKind int

const (
	textAny textKind = iota
	textExact
	textRegex
)

// TextPattern matches text items exactly or by regular expression.
type TextPattern struct {
	kind  textKind
	value string
	re    *regexp.Regexp
}

func TextAny() Pattern            { return &TextPattern{kind: textAny} }
func TextExact(s string) Pattern  { return &TextPattern{kind: textExact, value: s} }
func TextRegex(re *regexp.Regexp) Pattern {
	return &TextPattern{kind: textRegex, re: re}
}

func (p *TextPattern) String() string {
	switch p.kind {
	case textExact:
		return fmt.Sprintf("%q", p.value)
	case textRegex:
		return "/" + p.re.String() + "/"
	}
	return "text"
}

func (p *TextPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	t, ok := item.(dcbor.Text)
	if !ok {
		return nomatch()
	}
	switch p.kind {
	case textExact:
		if t.Value != p.value {
			return nomatch()
		}
	case textRegex:
		if !p.re.MatchString(t.Value) {
			return nomatch()
		}
	}
	return single(item)
}

type bytesKind int

const (
	bytesAny bytesKind = iota
	bytesExact
	bytesRegex
)

// BytesPattern matches byte strings exactly or by binary regex.
type BytesPattern struct {
	kind  bytesKind
	value []byte
	re    *regexp.Regexp
}

func BytesAny() Pattern           { return &BytesPattern{kind: bytesAny} }
func BytesExact(b []byte) Pattern { return &BytesPattern{kind: bytesExact, value: b} }
func BytesRegex(re *regexp.Regexp) Pattern {
	return &BytesPattern{kind: bytesRegex, re: re}
}

func (p *BytesPattern) String() string {
	switch p.kind {
	case bytesExact:
		return fmt.Sprintf("h'%x'", p.value)
	case bytesRegex:
		return "h'/" + p.re.String() + "/'"
	}
	return "bstr"
}

func (p *BytesPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	b, ok := item.(dcbor.Bytes)
	if !ok {
		return nomatch()
	}
	switch p.kind {
	case bytesExact:
		if !bytesEqual(b.Value, p.value) {
			return nomatch()
		}
	case bytesRegex:
		if !p.re.Match(b.Value) {
			return nomatch()
		}
	}
	return single(item)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type dateKind int

const (
	dateAny dateKind = iota
	dateExact
	dateRange
	dateEarliest
	dateLatest
	dateRegex
)

// DatePattern matches tag-1 dates by value, range, bound or by regex
// over the ISO-8601 rendering.
type DatePattern struct {
	kind dateKind
	a, b time.Time
	re   *regexp.Regexp
}

func DateAny() Pattern { return &DatePattern{kind: dateAny} }
func DateExact(t time.Time) Pattern {
	return &DatePattern{kind: dateExact, a: t}
}
func DateRange(lo, hi time.Time) Pattern {
	return &DatePattern{kind: dateRange, a: lo, b: hi}
}
func DateEarliest(t time.Time) Pattern {
	return &DatePattern{kind: dateEarliest, a: t}
}
func DateLatest(t time.Time) Pattern {
	return &DatePattern{kind: dateLatest, b: t}
}
func DateRegex(re *regexp.Regexp) Pattern {
	return &DatePattern{kind: dateRegex, re: re}
}

func isoDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

func (p *DatePattern) String() string {
	switch p.kind {
	case dateExact:
		return "date'" + isoDate(p.a) + "'"
	case dateRange:
		return "date'" + isoDate(p.a) + "..." + isoDate(p.b) + "'"
	case dateEarliest:
		return "date'" + isoDate(p.a) + "...'"
	case dateLatest:
		return "date'..." + isoDate(p.b) + "'"
	case dateRegex:
		return "date'/" + p.re.String() + "/'"
	}
	return "date"
}

func (p *DatePattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	t, ok := dcbor.AsDate(item)
	if !ok {
		return nomatch()
	}
	matched := false
	switch p.kind {
	case dateAny:
		matched = true
	case dateExact:
		matched = t.Equal(p.a)
	case dateRange:
		matched = !t.Before(p.a) && !t.After(p.b)
	case dateEarliest:
		matched = !t.Before(p.a)
	case dateLatest:
		matched = !t.After(p.b)
	case dateRegex:
		matched = p.re.MatchString(isoDate(t))
	}
	if !matched {
		return nomatch()
	}
	return single(item)
}

type knownKind int

const (
	knownAny knownKind = iota
	knownValue
	knownRegex
)

// KnownPattern matches tag-40000 known values by value, name or regex
// over the name.
type KnownPattern struct {
	kind  knownKind
	value uint64
	re    *regexp.Regexp
}

func KnownAny() Pattern { return &KnownPattern{kind: knownAny} }
func KnownValue(v uint64) Pattern {
	return &KnownPattern{kind: knownValue, value: v}
}
func KnownRegex(re *regexp.Regexp) Pattern {
	return &KnownPattern{kind: knownRegex, re: re}
}

func (p *KnownPattern) String() string {
	switch p.kind {
	case knownValue:
		return "'" + knownvalues.Name(p.value) + "'"
	case knownRegex:
		return "known(/" + p.re.String() + "/)"
	}
	return "known"
}

func (p *KnownPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	tagged, ok := item.(dcbor.Tagged)
	if !ok || tagged.Tag != dcbor.TagKnownValue {
		return nomatch()
	}
	num, ok := tagged.Item.(dcbor.Number)
	if !ok || num.IsFloat || num.Int < 0 {
		return nomatch()
	}
	v := uint64(num.Int)
	switch p.kind {
	case knownValue:
		if v != p.value {
			return nomatch()
		}
	case knownRegex:
		if !p.re.MatchString(knownvalues.Name(v)) {
			return nomatch()
		}
	}
	return single(item)
}

type taggedSel int

const (
	taggedAnyTag taggedSel = iota
	taggedByValue
	taggedByRegex
)

// TaggedPattern matches tagged items by tag number or a regex over the
// tag's decimal rendering, with an optional content pattern.
type TaggedPattern struct {
	sel     taggedSel
	tag     uint64
	re      *regexp.Regexp
	Content Pattern
}

func TaggedAny() Pattern { return &TaggedPattern{sel: taggedAnyTag} }
func TaggedValue(tag uint64, content Pattern) Pattern {
	return &TaggedPattern{sel: taggedByValue, tag: tag, Content: content}
}
func TaggedRegex(re *regexp.Regexp, content Pattern) Pattern {
	return &TaggedPattern{sel: taggedByRegex, re: re, Content: content}
}

func (p *TaggedPattern) String() string {
	switch p.sel {
	case taggedByValue:
		return fmt.Sprintf("tagged(%d, %s)", p.tag, p.Content)
	case taggedByRegex:
		return fmt.Sprintf("tagged(/%s/, %s)", p.re, p.Content)
	}
	return "tagged"
}

func (p *TaggedPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	tagged, ok := item.(dcbor.Tagged)
	if !ok {
		return nomatch()
	}
	switch p.sel {
	case taggedByValue:
		if tagged.Tag != p.tag {
			return nomatch()
		}
	case taggedByRegex:
		if !p.re.MatchString(fmt.Sprintf("%d", tagged.Tag)) {
			return nomatch()
		}
	}
	if p.Content == nil {
		return single(item)
	}
	subPaths, subCaps := p.Content.paths(tagged.Item)
	if len(subPaths) == 0 {
		return nomatch()
	}
	return []Path{{item}}, prefixCaptures(Path{item}, subCaps)
}

type arrayKind int

const (
	arrayAnyKind arrayKind = iota
	arrayInterval
	arrayElems
)

// ArrayPattern matches arrays by length interval or by an anchored
// sequence of element patterns, where elements may be quantified
// groups.
type ArrayPattern struct {
	kind     arrayKind
	min, max int // max < 0 means unbounded
	Elems    []Pattern
}

func ArrayAny() Pattern { return &ArrayPattern{kind: arrayAnyKind} }
func ArrayWithInterval(min, max int) Pattern {
	return &ArrayPattern{kind: arrayInterval, min: min, max: max}
}
func ArrayWithElems(elems []Pattern) Pattern {
	return &ArrayPattern{kind: arrayElems, Elems: elems}
}

func (p *ArrayPattern) String() string {
	switch p.kind {
	case arrayInterval:
		return "[" + intervalNotation(p.min, p.max) + "]"
	case arrayElems:
		parts := make([]string, len(p.Elems))
		for i, e := range p.Elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "[*]"
}

func (p *ArrayPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	arr, ok := item.(dcbor.Array)
	if !ok {
		return nomatch()
	}
	switch p.kind {
	case arrayAnyKind:
		return single(item)
	case arrayInterval:
		n := len(arr.Items)
		if n < p.min || (p.max >= 0 && n > p.max) {
			return nomatch()
		}
		return single(item)
	case arrayElems:
		ok, caps := matchSequence(p.Elems, arr.Items)
		if !ok {
			return nomatch()
		}
		return []Path{{item}}, prefixCaptures(Path{item}, caps)
	}
	return nomatch()
}

// MapEntryPattern pairs a key pattern with a value pattern.
type MapEntryPattern struct {
	Key   Pattern
	Value Pattern
}

type mapKind int

const (
	mapAnyKind mapKind = iota
	mapInterval
	mapEntries
)

// MapPattern matches maps by size interval or by entry patterns; each
// entry pattern must be satisfied by at least one key/value pair.
type MapPattern struct {
	kind     mapKind
	min, max int
	Entries  []MapEntryPattern
}

func MapAny() Pattern { return &MapPattern{kind: mapAnyKind} }
func MapWithInterval(min, max int) Pattern {
	return &MapPattern{kind: mapInterval, min: min, max: max}
}
func MapWithEntries(entries []MapEntryPattern) Pattern {
	return &MapPattern{kind: mapEntries, Entries: entries}
}

func (p *MapPattern) String() string {
	switch p.kind {
	case mapInterval:
		return "{" + intervalNotation(p.min, p.max) + "}"
	case mapEntries:
		parts := make([]string, len(p.Entries))
		for i, e := range p.Entries {
			parts[i] = e.Key.String() + ": " + e.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "{*}"
}

func (p *MapPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	m, ok := item.(dcbor.Map)
	if !ok {
		return nomatch()
	}
	switch p.kind {
	case mapAnyKind:
		return single(item)
	case mapInterval:
		n := len(m.Entries)
		if n < p.min || (p.max >= 0 && n > p.max) {
			return nomatch()
		}
		return single(item)
	case mapEntries:
		var caps map[string][]Path
		for _, entry := range p.Entries {
			found := false
			for _, kv := range m.Entries {
				keyPaths, keyCaps := entry.Key.paths(kv.Key)
				if len(keyPaths) == 0 {
					continue
				}
				valPaths, valCaps := entry.Value.paths(kv.Value)
				if len(valPaths) == 0 {
					continue
				}
				found = true
				caps = mergeCaptures(caps, keyCaps)
				caps = mergeCaptures(caps, valCaps)
				break
			}
			if !found {
				return nomatch()
			}
		}
		return []Path{{item}}, prefixCaptures(Path{item}, caps)
	}
	return nomatch()
}

func intervalNotation(min, max int) string {
	switch {
	case max < 0:
		return fmt.Sprintf("{%d,}", min)
	case min == max:
		return fmt.Sprintf("{%d}", min)
	default:
		return fmt.Sprintf("{%d,%d}", min, max)
	}
}

// Reluctance selects the preference order of quantified matches.
type Reluctance int

const (
	Greedy Reluctance = iota
	Lazy
	Possessive
)

// RepeatPattern quantifies a pattern over consecutive array elements.
// It only occurs inside ArrayPattern element lists.
type RepeatPattern struct {
	Sub        Pattern
	Min, Max   int // Max < 0 means unbounded
	Reluctance Reluctance
}

func Repeat(sub Pattern, min, max int, r Reluctance) Pattern {
	return &RepeatPattern{Sub: sub, Min: min, Max: max, Reluctance: r}
}

func (p *RepeatPattern) String() string {
	suffix := ""
	switch p.Reluctance {
	case Lazy:
		suffix = "?"
	case Possessive:
		suffix = "+"
	}
	var quant string
	switch {
	case p.Min == 0 && p.Max < 0:
		quant = "*"
	case p.Min == 1 && p.Max < 0:
		quant = "+"
	case p.Min == 0 && p.Max == 1:
		quant = "?"
	default:
		quant = intervalNotation(p.Min, p.Max)
	}
	return "(" + p.Sub.String() + ")" + quant + suffix
}

// Standalone, a repeat behaves as its body when one repetition is
// allowed, and as a trivial match when zero is.
func (p *RepeatPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	if p.Max != 0 {
		if paths, caps := p.Sub.paths(item); len(paths) > 0 {
			return paths, caps
		}
	}
	if p.Min == 0 {
		return single(item)
	}
	return nomatch()
}

// OrPattern matches when any alternative matches.
type OrPattern struct{ Subs []Pattern }

func Or(subs ...Pattern) Pattern { return &OrPattern{Subs: subs} }

func (p *OrPattern) String() string {
	parts := make([]string, len(p.Subs))
	for i, s := range p.Subs {
		parts[i] = s.String()
	}
	return strings.Join(parts, " | ")
}

func (p *OrPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	var out []Path
	var caps map[string][]Path
	for _, sub := range p.Subs {
		paths, subCaps := sub.paths(item)
		out = append(out, paths...)
		caps = mergeCaptures(caps, subCaps)
	}
	if len(out) == 0 {
		return nomatch()
	}
	return out, caps
}

// AndPattern matches when every branch matches the same item.
type AndPattern struct{ Subs []Pattern }

func And(subs ...Pattern) Pattern { return &AndPattern{Subs: subs} }

func (p *AndPattern) String() string {
	parts := make([]string, len(p.Subs))
	for i, s := range p.Subs {
		parts[i] = s.String()
	}
	return strings.Join(parts, " & ")
}

func (p *AndPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	var caps map[string][]Path
	for _, sub := range p.Subs {
		paths, subCaps := sub.paths(item)
		if len(paths) == 0 {
			return nomatch()
		}
		caps = mergeCaptures(caps, subCaps)
	}
	return []Path{{item}}, caps
}

// SearchPattern walks the item tree (array elements, map values and
// tagged content other than dates and known values) and matches at
// every position its body accepts.
type SearchPattern struct{ Sub Pattern }

func Search(sub Pattern) Pattern { return &SearchPattern{Sub: sub} }

func (p *SearchPattern) String() string {
	return "search(" + p.Sub.String() + ")"
}

func (p *SearchPattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	var out []Path
	var caps map[string][]Path
	var walk func(prefix Path, item dcbor.Item)
	walk = func(prefix Path, item dcbor.Item) {
		here := append(append(Path{}, prefix...), item)
		subPaths, subCaps := p.Sub.paths(item)
		for _, sp := range subPaths {
			full := append(append(Path{}, here...), sp[1:]...)
			out = append(out, full)
		}
		caps = mergeCaptures(caps, prefixCaptures(prefix, subCaps))
		switch it := item.(type) {
		case dcbor.Array:
			for _, sub := range it.Items {
				walk(here, sub)
			}
		case dcbor.Map:
			for _, entry := range it.Entries {
				walk(here, entry.Value)
			}
		case dcbor.Tagged:
			if it.Tag != dcbor.TagDate && it.Tag != dcbor.TagKnownValue {
				walk(here, it.Item)
			}
		}
	}
	walk(Path{}, item)
	if len(out) == 0 {
		return nomatch()
	}
	return out, caps
}

// CapturePattern records the paths its body matches under a name.
type CapturePattern struct {
	Name string
	Sub  Pattern
}

func Capture(name string, sub Pattern) Pattern {
	return &CapturePattern{Name: name, Sub: sub}
}

func (p *CapturePattern) String() string {
	return "@" + p.Name + "(" + p.Sub.String() + ")"
}

func (p *CapturePattern) paths(item dcbor.Item) ([]Path, map[string][]Path) {
	paths, caps := p.Sub.paths(item)
	if len(paths) == 0 {
		return nomatch()
	}
	caps = mergeCaptures(caps, map[string][]Path{p.Name: append([]Path{}, paths...)})
	return paths, caps
}

// matchSequence matches element patterns against array items, anchored
// at both ends.  Quantified groups consume zero or more consecutive
// elements according to their reluctance.
func matchSequence(elems []Pattern, items []dcbor.Item) (bool, map[string][]Path) {
	if len(elems) == 0 {
		return len(items) == 0, nil
	}
	head, rest := elems[0], elems[1:]
	repeat, isRepeat := head.(*RepeatPattern)
	if !isRepeat {
		if len(items) == 0 {
			return false, nil
		}
		paths, caps := head.paths(items[0])
		if len(paths) == 0 {
			return false, nil
		}
		ok, restCaps := matchSequence(rest, items[1:])
		if !ok {
			return false, nil
		}
		return true, mergeCaptures(caps, restCaps)
	}

	// Find the longest feasible run of the repeated pattern.
	limit := len(items)
	if repeat.Max >= 0 && repeat.Max < limit {
		limit = repeat.Max
	}
	run := 0
	runCaps := make([]map[string][]Path, 1, limit+1)
	for run < limit {
		paths, caps := repeat.Sub.paths(items[run])
		if len(paths) == 0 {
			break
		}
		run++
		merged := mergeCaptures(nil, runCaps[run-1])
		runCaps = append(runCaps, mergeCaptures(merged, caps))
	}
	if run < repeat.Min {
		return false, nil
	}

	counts := make([]int, 0, run-repeat.Min+1)
	switch repeat.Reluctance {
	case Lazy:
		for k := repeat.Min; k <= run; k++ {
			counts = append(counts, k)
		}
	case Possessive:
		counts = append(counts, run)
	default: // Greedy
		for k := run; k >= repeat.Min; k-- {
			counts = append(counts, k)
		}
	}
	for _, k := range counts {
		ok, restCaps := matchSequence(rest, items[k:])
		if !ok {
			continue
		}
		return true, mergeCaptures(mergeCaptures(nil, runCaps[k]), restCaps)
	}
	return false, nil
}
