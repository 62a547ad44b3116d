package patex

import (
	"fmt"

	"github.com/clarete/patex/envelope"
)

// Path is an ordered walk through an envelope: the first element is
// the root the matcher was given, and each following element is an
// immediate sub-part of its predecessor.  Paths are values and are
// cloned freely.
type Path []*envelope.Envelope

func (p Path) clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// tail returns the last envelope on the path.
func (p Path) tail() *envelope.Envelope { return p[len(p)-1] }

// Pattern is a node of the pattern algebra.  The variant set is
// closed: leaf patterns delegate to the CBOR sub-matcher, structure
// patterns walk envelope cases, and meta patterns combine other
// patterns.
type Pattern interface {
	fmt.Stringer

	// compile lowers the pattern onto the compiler's instruction
	// tape.
	compile(c *compiler) error
}

// atomic is the contract of patterns the VM can evaluate in a single
// MatchPredicate step: given the envelope at the tail of the current
// path, produce zero or more extension paths (each starting at that
// envelope) plus captures keyed by name.
type atomic interface {
	Pattern
	match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error)
}

// isComplex reports whether the textual rendering needs grouping
// parentheses when nested inside an infix operator.
func isComplex(p Pattern) bool {
	switch p.(type) {
	case *OrPattern, *AndPattern, *TraversePattern:
		return true
	}
	return false
}

func renderSub(p Pattern) string {
	if isComplex(p) {
		return "(" + p.String() + ")"
	}
	return p.String()
}
