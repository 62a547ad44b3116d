package envelope

import (
	"fmt"
	"sort"
	"strings"
)

// Flat renders the envelope on a single line, close to the diagnostic
// notation of its leaves.
func (e *Envelope) Flat() string {
	switch e.kind {
	case KindLeaf:
		return e.leaf.Diagnostic()
	case KindKnownValue:
		return "'" + e.KnownValueName() + "'"
	case KindAssertion:
		return e.predicate.Flat() + ": " + e.object.Flat()
	case KindNode:
		parts := make([]string, len(e.assertions))
		for i, a := range e.assertions {
			parts[i] = a.Flat()
		}
		sort.Strings(parts)
		return e.subject.Flat() + " [ " + strings.Join(parts, ", ") + " ]"
	case KindWrapped:
		return "{ " + e.content.Flat() + " }"
	case KindElided:
		return "ELIDED"
	case KindEncrypted:
		return "ENCRYPTED"
	case KindCompressed:
		return "COMPRESSED"
	}
	return "?"
}

// Summary renders the case keyword followed by the flat content, the
// form used for each path element in match output.
func (e *Envelope) Summary() string {
	switch e.kind {
	case KindLeaf:
		return "LEAF " + e.leaf.Diagnostic()
	case KindKnownValue:
		return "KNOWN_VALUE '" + e.KnownValueName() + "'"
	case KindAssertion:
		return "ASSERTION " + e.Flat()
	case KindNode:
		return "NODE " + e.Flat()
	case KindWrapped:
		return "WRAPPED " + e.Flat()
	case KindElided:
		return "ELIDED"
	case KindEncrypted:
		return "ENCRYPTED"
	case KindCompressed:
		return "COMPRESSED"
	}
	return "?"
}

func (e *Envelope) String() string {
	return fmt.Sprintf("%s %s", e.digest.ShortHex(), e.Summary())
}
