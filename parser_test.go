package patex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCanonicalRendering(t *testing.T) {
	cases := []struct{ src, want string }{
		{"*", "*"},
		{"bool", "bool"},
		{"true", "true"},
		{"false", "false"},
		{"null", "null"},
		{"leaf", "leaf"},
		{"number", "number"},
		{"number(42)", "number(42)"},
		{"number ( 42 )", "number(42)"},
		{"number(1...3)", "number(1...3)"},
		{"number(>5)", "number(>5)"},
		{"number(>=5)", "number(>=5)"},
		{"number(<5)", "number(<5)"},
		{"number(<=5)", "number(<=5)"},
		{"number(NaN)", "number(NaN)"},
		{"42", "number(42)"},
		{"text", "text"},
		{`text("hello")`, `"hello"`},
		{`"hello"`, `"hello"`},
		{"text(/h.*o/)", "text(/h.*o/)"},
		{"bstr", "bstr"},
		{"h'0102'", "h'0102'"},
		{"h'/abc/'", "h'/abc/'"},
		{"date", "date"},
		{"date'2023-12-25'", "date'2023-12-25'"},
		{"date'2023-12-24...2023-12-26'", "date'2023-12-24...2023-12-26'"},
		{"known", "known"},
		{"'isA'", "'isA'"},
		{"'4'", "'note'"},
		{"known(/da.*/)", "known(/da.*/)"},
		{"[*]", "[*]"},
		{"[{2,4}]", "[{2,4}]"},
		{"[42, (*)*]", "[42, (*)*]"},
		{"{*}", "{*}"},
		{"tagged", "tagged"},
		{"tagged(100, number)", "tagged(100, number)"},
		{"cbor", "cbor"},
		{"assert", "assert"},
		{`assertpred("name")`, `assertpred("name")`},
		{"assertobj(number)", "assertobj(number)"},
		{"subj", "subj"},
		{"subj(number)", "subj(number)"},
		{"pred", "pred"},
		{"obj", "obj"},
		{"obj(text)", "obj(text)"},
		{"node", "node"},
		{"node({1,3})", "node({1,3})"},
		{"node({2})", "node({2})"},
		{"wrapped", "wrapped"},
		{"unwrap", "unwrap"},
		{"unwrap(node)", "unwrap(node)"},
		{"digest(a1b2c3)", "digest(a1b2c3)"},
		{"obscured", "obscured"},
		{"elided", "elided"},
		{"encrypted", "encrypted"},
		{"compressed", "compressed"},
		{"!bool", "!bool"},
		{"bool & number", "bool & number"},
		{"subj -> obj", "subj -> obj"},
		{"true | 42", "true | number(42)"},
		{"search(number)", "search(number)"},
		{"@num(42)", "@num(number(42))"},
		{"(wrapped -> unwrap)*", "(wrapped -> unwrap)*"},
		{"(unwrap)*?", "(unwrap)*?"},
		{"(unwrap)*+", "(unwrap)*+"},
		{"(unwrap){2,4}", "(unwrap){2,4}"},
		{"(unwrap){2}", "(unwrap){2}"},
		{"(unwrap){2,}", "(unwrap){2,}"},
		{"(unwrap){1,3}?", "(unwrap){1,3}?"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			m, err := Parse(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, m.String())
		})
	}
}

func TestParsePrecedence(t *testing.T) {
	// & binds tighter than ->, which binds tighter than |.
	m, err := Parse("bool & number -> text | null")
	require.NoError(t, err)
	or, ok := m.Pattern().(*OrPattern)
	require.True(t, ok)
	require.Len(t, or.Subs, 2)
	trav, ok := or.Subs[0].(*TraversePattern)
	require.True(t, ok)
	require.Len(t, trav.Subs, 2)
	_, ok = trav.Subs[0].(*AndPattern)
	assert.True(t, ok)
}

func TestParseBraceDisambiguation(t *testing.T) {
	// After a closable primary, { opens a quantifier...
	m, err := Parse("(assert){1,2}")
	require.NoError(t, err)
	repeat, ok := m.Pattern().(*RepeatPattern)
	require.True(t, ok)
	assert.Equal(t, Interval{Min: 1, Max: 2}, repeat.Q.Interval)

	// ...where a primary is expected it opens a map fragment.
	m, err = Parse("{*}")
	require.NoError(t, err)
	_, ok = m.Pattern().(*LeafPattern)
	assert.True(t, ok)
}

func TestParseErrors(t *testing.T) {
	cases := []struct{ src, want string }{
		{"", "unexpected token"},
		{"bool |", "unexpected token"},
		{"(bool", "unexpected token"},
		{"subj(", "unexpected token"},
		{"text(/[/)", "invalid regex"},
		{"date'nope'", "invalid date"},
		{"'frob'", "unknown known value name"},
		{"(bool){3,1}", "invalid quantifier range"},
		{"node({3,1})", "invalid quantifier range"},
		{"@x(number) -> cbor(/@x(number)/)", "duplicate capture name"},
		{"digest(xyz)", "hex digest prefix"},
		{"[1, 2", "unterminated"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseCaptureNameRegistration(t *testing.T) {
	m, err := Parse("@who(obj(text)) -> @what(obj(number))")
	require.NoError(t, err)
	assert.Equal(t, []string{"who", "what"}, m.Program().CaptureNames())

	// The same name may recur at the envelope level (both or-branches
	// feed one capture list).
	m, err = Parse("@num(42) | @num(number(>40))")
	require.NoError(t, err)
	assert.Equal(t, []string{"num"}, m.Program().CaptureNames())

	// Sub-matcher captures surface too.
	m, err = Parse("cbor(/@n(number)/)")
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, m.Program().CaptureNames())
}
