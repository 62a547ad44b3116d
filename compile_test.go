package patex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func disassemble(t *testing.T, src string) string {
	t.Helper()
	m, err := Parse(src)
	require.NoError(t, err)
	return m.Program().Disassemble()
}

func TestCompileAtom(t *testing.T) {
	asm := disassemble(t, "bool")
	assert.Equal(t, "000 match_predicate bool\n001 accept\n", asm)
}

func TestCompileOr(t *testing.T) {
	asm := disassemble(t, "bool | number")
	lines := strings.Split(strings.TrimSpace(asm), "\n")
	// split, bool, jump, number, accept.
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "split")
	assert.Contains(t, lines[1], "bool")
	assert.Contains(t, lines[2], "jump")
	assert.Contains(t, lines[3], "number")
	assert.Contains(t, lines[4], "accept")
}

func TestCompileTraversal(t *testing.T) {
	asm := disassemble(t, "subj -> obj")
	lines := strings.Split(strings.TrimSpace(asm), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "subj")
	assert.Contains(t, lines[1], "obj")
}

func TestCompileRepeatShapes(t *testing.T) {
	// Unbounded loop: split, body, jump back.
	asm := disassemble(t, "(unwrap)*")
	assert.Contains(t, asm, "split")
	assert.Contains(t, asm, "jump")

	// Possessive adds a cut after the loop.
	asm = disassemble(t, "(unwrap)*+")
	assert.Contains(t, asm, "cut")

	// Bounded repeats unroll without jumps.
	asm = disassemble(t, "(unwrap){2}")
	assert.NotContains(t, asm, "split")
	assert.Equal(t, 2, strings.Count(asm, "unwrap"))
}

func TestCompileCaptureSlots(t *testing.T) {
	asm := disassemble(t, "@who(obj)")
	assert.Contains(t, asm, "save 0 start")
	assert.Contains(t, asm, "save 0 end")
	assert.Contains(t, asm, "capture_commit 0 who")
}

func TestCompileDuplicateCaptureAcrossScopes(t *testing.T) {
	_, err := Parse("@x(number) -> cbor(/@x(number)/)")
	require.Error(t, err)
	var compileErr *CompileError
	assert.ErrorAs(t, err, &compileErr)
	assert.Contains(t, err.Error(), "duplicate capture name")
}

func TestCompileProgramIsShareable(t *testing.T) {
	m := mustParse(t, "search(number)")
	env := aliceEnvelope()

	a, err := m.Paths(env)
	require.NoError(t, err)
	b, err := m.WithOptions(MatchOptions{MaxSteps: 1 << 16}).Paths(env)
	require.NoError(t, err)
	assert.Equal(t, FormatPaths(a), FormatPaths(b))
}
