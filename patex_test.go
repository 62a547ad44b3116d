package patex

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarete/patex/dcbor"
	"github.com/clarete/patex/envelope"
)

func mustItem(t *testing.T, diag string) dcbor.Item {
	t.Helper()
	item, err := dcbor.ParseDiagnostic(diag)
	require.NoError(t, err)
	return item
}

func mustParse(t *testing.T, src string) *Matcher {
	t.Helper()
	m, err := Parse(src)
	require.NoError(t, err)
	return m
}

func mustPaths(t *testing.T, src string, env *envelope.Envelope) []Path {
	t.Helper()
	paths, err := mustParse(t, src).Paths(env)
	require.NoError(t, err)
	return paths
}

// aliceEnvelope is the node used throughout: subject "root" with two
// "name" assertions.
func aliceEnvelope() *envelope.Envelope {
	return envelope.New("root").
		AddAssertion("name", "Alice").
		AddAssertion("name", "Bob")
}

func tails(paths []Path) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.tail().Summary()
	}
	return out
}

func TestLeafScenarios(t *testing.T) {
	t.Run("bool on true leaf", func(t *testing.T) {
		env := envelope.New(true)
		paths := mustPaths(t, "bool", env)
		require.Len(t, paths, 1)
		assert.Equal(t, Path{env}, paths[0])
	})

	t.Run("number comparison", func(t *testing.T) {
		paths := mustPaths(t, "number(>= 10)", envelope.New(42))
		require.Len(t, paths, 1)
		assert.Len(t, paths[0], 1)

		paths = mustPaths(t, "number(>= 10)", envelope.New(5))
		assert.Empty(t, paths)
	})

	t.Run("text forms", func(t *testing.T) {
		env := envelope.New("hello")
		assert.True(t, mustParse(t, `"hello"`).Matches(env))
		assert.True(t, mustParse(t, "text(/h.*o/)").Matches(env))
		assert.False(t, mustParse(t, `"world"`).Matches(env))
		assert.False(t, mustParse(t, "text").Matches(envelope.New(42)))
	})

	t.Run("leaf patterns fail on structure", func(t *testing.T) {
		assert.False(t, mustParse(t, "text").Matches(aliceEnvelope()))
	})

	t.Run("known value", func(t *testing.T) {
		env := envelope.NewKnownValue(1)
		assert.True(t, mustParse(t, "known").Matches(env))
		assert.True(t, mustParse(t, "'isA'").Matches(env))
		assert.False(t, mustParse(t, "'note'").Matches(env))
		assert.True(t, mustParse(t, "leaf").Matches(env))
	})

	t.Run("array fragment", func(t *testing.T) {
		arr := envelope.New(mustItem(t, "[42, 1, 2]"))
		assert.True(t, mustParse(t, "[42, (*)*]").Matches(arr))
		assert.False(t, mustParse(t, "[42, (*)*]").Matches(envelope.New(mustItem(t, "[1, 42]"))))
		assert.True(t, mustParse(t, "[{3}]").Matches(arr))
	})

	t.Run("map fragment", func(t *testing.T) {
		m := envelope.New(mustItem(t, `{"name": "Alice"}`))
		assert.True(t, mustParse(t, `{"name": text}`).Matches(m))
		assert.False(t, mustParse(t, `{"age": number}`).Matches(m))
	})
}

func TestAnySubsumption(t *testing.T) {
	for _, env := range []*envelope.Envelope{
		envelope.New(true),
		envelope.New(42),
		aliceEnvelope(),
		envelope.New(1).Wrap(),
		envelope.New("x").Elide(),
	} {
		paths := mustPaths(t, "*", env)
		require.Len(t, paths, 1)
		assert.Equal(t, Path{env}, paths[0])
	}
}

func TestNegationDuality(t *testing.T) {
	env := envelope.New("x")

	// !p yields [[e]] exactly when p yields nothing.
	assert.Equal(t, []Path{{env}}, mustPaths(t, "!number", env))
	assert.Empty(t, mustPaths(t, "!text", env))

	// Captures inside a negation never escape.
	_, caps, err := mustParse(t, "!(@x(number))").PathsWithCaptures(env)
	require.NoError(t, err)
	assert.Empty(t, caps["x"])
}

func TestSearchScenarios(t *testing.T) {
	env := aliceEnvelope()

	t.Run("single hit", func(t *testing.T) {
		paths := mustPaths(t, `search("Alice")`, env)
		require.Len(t, paths, 1)
		// root -> assertion -> object.
		assert.Len(t, paths[0], 3)
		assert.Equal(t, `LEAF "Alice"`, paths[0].tail().Summary())
		assert.Equal(t, env, paths[0][0])
	})

	t.Run("completeness and pre-order", func(t *testing.T) {
		paths := mustPaths(t, "search(text)", env)
		assert.Equal(t, []string{
			`LEAF "root"`,
			`LEAF "name"`,
			`LEAF "Alice"`,
			`LEAF "name"`,
			`LEAF "Bob"`,
		}, tails(paths))
	})

	t.Run("structural body", func(t *testing.T) {
		paths := mustPaths(t, "search(assertobj(number))", envelope.New("x").AddAssertion("age", 30))
		require.Len(t, paths, 1)
		assert.Equal(t, envelope.KindAssertion, paths[0].tail().Kind())
	})
}

func TestTraversalScenarios(t *testing.T) {
	env := aliceEnvelope()

	paths := mustPaths(t, `assertpred("name") -> obj`, env)
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.Len(t, p, 3)
	}
	assert.Equal(t, []string{`LEAF "Alice"`, `LEAF "Bob"`}, tails(paths))

	// Every step of a traversal extends the previous path by one
	// sub-part; no intermediate envelopes are skipped.
	for _, p := range paths {
		assert.Equal(t, env, p[0])
		assert.Equal(t, envelope.KindAssertion, p[1].Kind())
	}
}

func TestCaptureScenarios(t *testing.T) {
	env := aliceEnvelope()

	t.Run("capture tails", func(t *testing.T) {
		paths, caps, err := mustParse(t, "@who(obj(text))").PathsWithCaptures(env)
		require.NoError(t, err)
		require.Len(t, paths, 2)
		require.Len(t, caps["who"], 2)
		// Single-element tails pinned by the capture.
		for _, c := range caps["who"] {
			assert.Len(t, c, 1)
		}
		assert.Equal(t, `LEAF "Alice"`, caps["who"][0].tail().Summary())
		assert.Equal(t, `LEAF "Bob"`, caps["who"][1].tail().Summary())
	})

	t.Run("capture of non-extending body", func(t *testing.T) {
		env := envelope.New(42)
		paths, caps, err := mustParse(t, "@num(42)").PathsWithCaptures(env)
		require.NoError(t, err)
		require.Len(t, paths, 1)
		require.Len(t, caps["num"], 1)
		assert.Equal(t, Path{env}, caps["num"][0])
	})

	t.Run("nested captures", func(t *testing.T) {
		_, caps, err := mustParse(t, "@outer(@inner(42))").PathsWithCaptures(envelope.New(42))
		require.NoError(t, err)
		assert.Len(t, caps["outer"], 1)
		assert.Len(t, caps["inner"], 1)
	})

	t.Run("no match no captures", func(t *testing.T) {
		paths, caps, err := mustParse(t, "@n(2)").PathsWithCaptures(envelope.New(1))
		require.NoError(t, err)
		assert.Empty(t, paths)
		assert.Empty(t, caps["n"])
	})

	t.Run("capture locality", func(t *testing.T) {
		paths, caps, err := mustParse(t, "@who(obj(text))").PathsWithCaptures(env)
		require.NoError(t, err)
		for _, c := range caps["who"] {
			found := false
			for _, p := range paths {
				if strings.Contains(pathKey(p), pathKey(c)) {
					found = true
				}
			}
			assert.True(t, found, "capture must be a contiguous sub-path of a result")
		}
	})
}

func TestCborSubMatcherLifting(t *testing.T) {
	t.Run("scalar", func(t *testing.T) {
		env := envelope.New(42)
		paths, caps, err := mustParse(t, "cbor(/@n(number)/)").PathsWithCaptures(env)
		require.NoError(t, err)
		require.Len(t, paths, 1)
		assert.Equal(t, Path{env}, paths[0])
		require.Len(t, caps["n"], 1)
		assert.Equal(t, Path{env}, caps["n"][0])
	})

	t.Run("nested search lifts interior values", func(t *testing.T) {
		env := envelope.New(mustItem(t, `{"scores": [95, 87]}`))
		paths := mustPaths(t, "cbor(/search(number)/)", env)
		require.Len(t, paths, 2)
		for _, p := range paths {
			// envelope, lifted array leaf, lifted number leaf.
			require.Len(t, p, 3)
			assert.Equal(t, env, p[0])
			assert.Equal(t, envelope.KindLeaf, p[1].Kind())
		}
		assert.Equal(t, "LEAF 95", paths[0].tail().Summary())
		assert.Equal(t, "LEAF 87", paths[1].tail().Summary())
	})

	t.Run("exact value", func(t *testing.T) {
		assert.True(t, mustParse(t, `cbor("[1, 2, 3]")`).Matches(envelope.New(mustItem(t, "[1, 2, 3]"))))
		assert.False(t, mustParse(t, `cbor("[1, 2, 3]")`).Matches(envelope.New(mustItem(t, "[1, 2]"))))
	})
}

func TestStructureScenarios(t *testing.T) {
	env := aliceEnvelope()

	t.Run("subject", func(t *testing.T) {
		paths := mustPaths(t, "subj", env)
		require.Len(t, paths, 1)
		assert.Len(t, paths[0], 2)
		assert.Equal(t, `LEAF "root"`, paths[0].tail().Summary())

		// On a non-Node the envelope is its own subject.
		leaf := envelope.New(42)
		paths = mustPaths(t, "subj", leaf)
		require.Len(t, paths, 1)
		assert.Equal(t, Path{leaf}, paths[0])
	})

	t.Run("pred and obj", func(t *testing.T) {
		assert.Len(t, mustPaths(t, "pred", env), 2)
		assert.Len(t, mustPaths(t, "obj", env), 2)
		assert.Len(t, mustPaths(t, `obj("Bob")`, env), 1)
	})

	t.Run("assert family", func(t *testing.T) {
		assert.Len(t, mustPaths(t, "assert", env), 2)
		assert.Len(t, mustPaths(t, `assertpred("name")`, env), 2)
		assert.Len(t, mustPaths(t, `assertobj("Alice")`, env), 1)
		assert.Empty(t, mustPaths(t, `assertpred("age")`, env))
	})

	t.Run("node intervals", func(t *testing.T) {
		assert.True(t, mustParse(t, "node").Matches(env))
		assert.True(t, mustParse(t, "node({1,3})").Matches(env))
		assert.True(t, mustParse(t, "node({2})").Matches(env))
		assert.False(t, mustParse(t, "node({3,})").Matches(env))
		assert.False(t, mustParse(t, "node").Matches(envelope.New(1)))
	})

	t.Run("wrapped and unwrap", func(t *testing.T) {
		inner := envelope.New(42)
		wrapped := inner.Wrap()
		assert.True(t, mustParse(t, "wrapped").Matches(wrapped))
		assert.False(t, mustParse(t, "wrapped").Matches(inner))

		paths := mustPaths(t, "unwrap", wrapped)
		require.Len(t, paths, 1)
		assert.Equal(t, Path{wrapped, inner}, paths[0])

		assert.True(t, mustParse(t, "unwrap(number)").Matches(wrapped))
		assert.False(t, mustParse(t, "unwrap(text)").Matches(wrapped))
	})

	t.Run("digest prefix", func(t *testing.T) {
		prefix := env.Digest().Hex()[:8]
		assert.True(t, mustParse(t, "digest("+prefix+")").Matches(env))
		assert.False(t, mustParse(t, "digest("+prefix+")").Matches(envelope.New(1)))
		full := env.Digest().Hex()
		assert.True(t, mustParse(t, "digest("+full+")").Matches(env))
	})

	t.Run("obscured", func(t *testing.T) {
		elided := env.Elide()
		assert.True(t, mustParse(t, "obscured").Matches(elided))
		assert.True(t, mustParse(t, "elided").Matches(elided))
		assert.False(t, mustParse(t, "encrypted").Matches(elided))
		assert.True(t, mustParse(t, "encrypted").Matches(envelope.NewEncrypted(env.Digest())))
		assert.True(t, mustParse(t, "compressed").Matches(envelope.NewCompressed(env.Digest())))
		assert.False(t, mustParse(t, "obscured").Matches(env))
	})
}

func TestMetaScenarios(t *testing.T) {
	t.Run("or explores in writing order", func(t *testing.T) {
		env := envelope.New(42)
		paths := mustPaths(t, "true | 42", env)
		require.Len(t, paths, 1)
		assert.Equal(t, Path{env}, paths[0])
	})

	t.Run("and intersects on the same input", func(t *testing.T) {
		env := envelope.New(42)
		paths := mustPaths(t, "number & number(>=10)", env)
		require.Len(t, paths, 1)
		assert.Empty(t, mustPaths(t, "number & text", env))
	})

	t.Run("and captures survive", func(t *testing.T) {
		_, caps, err := mustParse(t, "@a(number) & number(>=10)").PathsWithCaptures(envelope.New(42))
		require.NoError(t, err)
		assert.Len(t, caps["a"], 1)
	})
}

func wrapTimes(env *envelope.Envelope, n int) *envelope.Envelope {
	for i := 0; i < n; i++ {
		env = env.Wrap()
	}
	return env
}

func TestRepeatScenarios(t *testing.T) {
	leaf := envelope.New(42)
	w3 := wrapTimes(leaf, 3)

	t.Run("exact count", func(t *testing.T) {
		paths := mustPaths(t, "(unwrap){2}", w3)
		require.Len(t, paths, 1)
		assert.Len(t, paths[0], 3)
	})

	t.Run("bounds", func(t *testing.T) {
		paths := mustPaths(t, "(unwrap){1,2}", w3)
		require.Len(t, paths, 2)
		for _, p := range paths {
			// One or two unwrap extensions.
			assert.GreaterOrEqual(t, len(p), 2)
			assert.LessOrEqual(t, len(p), 3)
		}
		assert.Empty(t, mustPaths(t, "(unwrap){4,}", w3))
	})

	t.Run("greedy prefers longest", func(t *testing.T) {
		paths := mustPaths(t, "(unwrap)*", w3)
		require.Len(t, paths, 4)
		assert.Len(t, paths[0], 4)
		assert.Len(t, paths[3], 1)
	})

	t.Run("lazy prefers shortest", func(t *testing.T) {
		paths := mustPaths(t, "(unwrap)*?", w3)
		require.Len(t, paths, 4)
		assert.Len(t, paths[0], 1)
		assert.Len(t, paths[3], 4)
	})

	t.Run("possessive keeps only the longest", func(t *testing.T) {
		paths := mustPaths(t, "(unwrap)*+", w3)
		require.Len(t, paths, 1)
		assert.Len(t, paths[0], 4)
	})

	t.Run("repeat then continue", func(t *testing.T) {
		paths := mustPaths(t, "(unwrap)* -> number", w3)
		require.Len(t, paths, 1)
		assert.Len(t, paths[0], 4)
		assert.Equal(t, "LEAF 42", paths[0].tail().Summary())
	})

	t.Run("non-progressing body terminates", func(t *testing.T) {
		paths := mustPaths(t, "(wrapped)* -> unwrap -> number", leaf.Wrap())
		require.Len(t, paths, 1)
		assert.Len(t, paths[0], 2)
	})
}

func TestDeterminism(t *testing.T) {
	env := aliceEnvelope()
	m := mustParse(t, `search(text) | assertpred("name") -> obj`)

	first, firstCaps, err := m.PathsWithCaptures(env)
	require.NoError(t, err)
	second, secondCaps, err := m.PathsWithCaptures(env)
	require.NoError(t, err)

	assert.Equal(t,
		FormatPathsWithCaptures(first, firstCaps),
		FormatPathsWithCaptures(second, secondCaps))

	// Structural equality too, not just the rendering.
	byDigest := cmp.Comparer(func(a, b *envelope.Envelope) bool {
		return a.Digest() == b.Digest()
	})
	assert.Empty(t, cmp.Diff(first, second, byDigest))
	assert.Empty(t, cmp.Diff(firstCaps, secondCaps, byDigest))
}

func TestResourceExhausted(t *testing.T) {
	m := mustParse(t, "search(text)").WithOptions(MatchOptions{MaxSteps: 2})
	_, err := m.Paths(aliceEnvelope())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource exhausted")

	var exhausted *ResourceExhausted
	assert.ErrorAs(t, err, &exhausted)
}

func TestEmptyResultIsNotAnError(t *testing.T) {
	paths, err := mustParse(t, "number").Paths(envelope.New("text"))
	require.NoError(t, err)
	assert.Empty(t, paths)
}
