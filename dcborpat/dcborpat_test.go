package dcborpat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarete/patex/dcbor"
)

func mustItem(t *testing.T, diag string) dcbor.Item {
	t.Helper()
	item, err := dcbor.ParseDiagnostic(diag)
	require.NoError(t, err)
	return item
}

func mustParse(t *testing.T, src string) Pattern {
	t.Helper()
	p, err := Parse(src)
	require.NoError(t, err)
	return p
}

func TestParseRendering(t *testing.T) {
	cases := []struct{ src, want string }{
		{"*", "*"},
		{"bool", "bool"},
		{"true", "true"},
		{"null", "null"},
		{"number", "number"},
		{"number(42)", "number(42)"},
		{"number(1...3)", "number(1...3)"},
		{"number(>=5)", "number(>=5)"},
		{"text", "text"},
		{`"hi"`, `"hi"`},
		{"/h.*o/", "/h.*o/"},
		{"bstr", "bstr"},
		{"h'0102'", "h'0102'"},
		{"[*]", "[*]"},
		{"[{2,4}]", "[{2,4}]"},
		{"[42, (*)*]", "[42, (*)*]"},
		{"{*}", "{*}"},
		{`{"k": number}`, `{"k": number}`},
		{"tagged(1, number)", "tagged(1, number)"},
		{"@n(number)", "@n(number)"},
		{"search(number)", "search(number)"},
		{"number | text", "number | text"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			p := mustParse(t, tc.src)
			assert.Equal(t, tc.want, p.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "(", "[1,", `"open`, "/open", "{3", "@(x)", "nope"} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			assert.Error(t, err)
		})
	}
}

func TestScalarMatching(t *testing.T) {
	t.Run("number comparisons", func(t *testing.T) {
		assert.True(t, Matches(mustParse(t, "number(>=10)"), mustItem(t, "42")))
		assert.False(t, Matches(mustParse(t, "number(>=10)"), mustItem(t, "5")))
		assert.True(t, Matches(mustParse(t, "number(1...3)"), mustItem(t, "2")))
		assert.False(t, Matches(mustParse(t, "number(1...3)"), mustItem(t, "4")))
		assert.True(t, Matches(mustParse(t, "NaN"), mustItem(t, "NaN")))
	})

	t.Run("text", func(t *testing.T) {
		assert.True(t, Matches(mustParse(t, `"hello"`), mustItem(t, `"hello"`)))
		assert.False(t, Matches(mustParse(t, `"hello"`), mustItem(t, `"world"`)))
		assert.True(t, Matches(mustParse(t, "/h.*o/"), mustItem(t, `"hello"`)))
		assert.False(t, Matches(mustParse(t, "text"), mustItem(t, "42")))
	})

	t.Run("bytes", func(t *testing.T) {
		assert.True(t, Matches(mustParse(t, "h'0102'"), mustItem(t, "h'0102'")))
		assert.False(t, Matches(mustParse(t, "h'0102'"), mustItem(t, "h'0103'")))
		assert.True(t, Matches(mustParse(t, "bstr"), mustItem(t, "h'00'")))
	})

	t.Run("bool and null", func(t *testing.T) {
		assert.True(t, Matches(mustParse(t, "true"), mustItem(t, "true")))
		assert.False(t, Matches(mustParse(t, "true"), mustItem(t, "false")))
		assert.True(t, Matches(mustParse(t, "bool"), mustItem(t, "false")))
		assert.True(t, Matches(mustParse(t, "null"), mustItem(t, "null")))
	})

	t.Run("dates", func(t *testing.T) {
		christmas := "1(1703462400)" // 2023-12-25T00:00:00Z
		assert.True(t, Matches(mustParse(t, "date"), mustItem(t, christmas)))
		assert.True(t, Matches(mustParse(t, "date'2023-12-25'"), mustItem(t, christmas)))
		assert.True(t, Matches(mustParse(t, "date'2023-12-24...2023-12-26'"), mustItem(t, christmas)))
		assert.True(t, Matches(mustParse(t, "date'2023-12-24...'"), mustItem(t, christmas)))
		assert.False(t, Matches(mustParse(t, "date'...2023-12-24'"), mustItem(t, christmas)))
		assert.True(t, Matches(mustParse(t, "date'/2023-.*/'"), mustItem(t, christmas)))
	})

	t.Run("invalid date", func(t *testing.T) {
		_, err := Parse("date'not-a-date'")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid date")
	})
}

func TestArraySequences(t *testing.T) {
	arr := mustItem(t, "[42, 1, 2]")

	assert.True(t, Matches(mustParse(t, "[*]"), arr))
	assert.True(t, Matches(mustParse(t, "[{3}]"), arr))
	assert.False(t, Matches(mustParse(t, "[{4,}]"), arr))

	// Anchored element sequences with quantified groups.
	assert.True(t, Matches(mustParse(t, "[42, (*)*]"), arr))
	assert.False(t, Matches(mustParse(t, "[42, (*)*]"), mustItem(t, "[1, 42]")))
	assert.True(t, Matches(mustParse(t, "[(number)*]"), arr))
	assert.False(t, Matches(mustParse(t, "[(number)*]"), mustItem(t, `[1, "x"]`)))
	assert.True(t, Matches(mustParse(t, "[(number){3}]"), arr))
	assert.False(t, Matches(mustParse(t, "[(number){4,}]"), arr))
	assert.True(t, Matches(mustParse(t, "[42, (number)+]"), arr))
	assert.False(t, Matches(mustParse(t, "[42, (number)+]"), mustItem(t, "[42]")))
	assert.True(t, Matches(mustParse(t, "[42, (number)?]"), mustItem(t, "[42]")))
}

func TestMapMatching(t *testing.T) {
	m := mustItem(t, `{"name": "Alice", "age": 30}`)

	assert.True(t, Matches(mustParse(t, "{*}"), m))
	assert.True(t, Matches(mustParse(t, "{{2}}"), m))
	assert.False(t, Matches(mustParse(t, "{{3,}}"), m))
	assert.True(t, Matches(mustParse(t, `{"name": text}`), m))
	assert.True(t, Matches(mustParse(t, `{"age": number(>=18)}`), m))
	assert.False(t, Matches(mustParse(t, `{"age": number(>=40)}`), m))
	assert.False(t, Matches(mustParse(t, `{"missing": *}`), m))
}

func TestTaggedMatching(t *testing.T) {
	item := mustItem(t, "100(42)")
	assert.True(t, Matches(mustParse(t, "tagged"), item))
	assert.True(t, Matches(mustParse(t, "tagged(100, number)"), item))
	assert.False(t, Matches(mustParse(t, "tagged(100, text)"), item))
	assert.False(t, Matches(mustParse(t, "tagged(101, number)"), item))
	assert.True(t, Matches(mustParse(t, "tagged(date, number)"), mustItem(t, "1(0)")))
}

func TestSearchPaths(t *testing.T) {
	item := mustItem(t, `{"numbers": [1, 2], "nested": {"value": 42}}`)
	paths, _ := Match(mustParse(t, "search(number)"), item)
	require.Len(t, paths, 3)
	for _, p := range paths {
		assert.Equal(t, item, p[0])
		_, isNum := p[len(p)-1].(dcbor.Number)
		assert.True(t, isNum)
	}
}

func TestCaptures(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		paths, caps := Match(mustParse(t, "@n(number)"), mustItem(t, "42"))
		require.Len(t, paths, 1)
		require.Len(t, caps["n"], 1)
		assert.Equal(t, Path{mustItem(t, "42")}, caps["n"][0])
	})

	t.Run("inside array", func(t *testing.T) {
		arr := mustItem(t, "[42, 7]")
		_, caps := Match(mustParse(t, "[@x(42), (*)*]"), arr)
		require.Len(t, caps["x"], 1)
		// Capture paths are rooted at the array.
		assert.Len(t, caps["x"][0], 2)
	})

	t.Run("names", func(t *testing.T) {
		p := mustParse(t, "[@a(42), (@b(number))*]")
		assert.Equal(t, []string{"a", "b"}, CaptureNames(p))
	})
}

func TestOrAnd(t *testing.T) {
	assert.True(t, Matches(mustParse(t, "number | text"), mustItem(t, `"x"`)))
	assert.True(t, Matches(mustParse(t, "number | text"), mustItem(t, "1")))
	assert.False(t, Matches(mustParse(t, "number | text"), mustItem(t, "true")))
	assert.True(t, Matches(mustParse(t, "number & number(>=10)"), mustItem(t, "42")))
	assert.False(t, Matches(mustParse(t, "number & number(>=10)"), mustItem(t, "5")))
}

func TestItemExact(t *testing.T) {
	p := ItemExact(mustItem(t, "[1, 2, 3]"))
	assert.True(t, Matches(p, mustItem(t, "[1, 2, 3]")))
	assert.False(t, Matches(p, mustItem(t, "[1, 2]")))
}

func TestKnownValues(t *testing.T) {
	isA := dcbor.Tagged{Tag: dcbor.TagKnownValue, Item: dcbor.Int(1)}
	assert.True(t, Matches(mustParse(t, "known"), isA))
	assert.True(t, Matches(mustParse(t, "'isA'"), isA))
	assert.False(t, Matches(mustParse(t, "'note'"), isA))
	assert.True(t, Matches(mustParse(t, "known(/is.*/)"), isA))
}
