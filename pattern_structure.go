package patex

import (
	"encoding/hex"
	"strings"

	"github.com/clarete/patex/envelope"
)

// runSub executes a pre-compiled sub-program against a child envelope
// and converts its results into extensions of base.  Every result path
// starts at the child; base is the path prefix leading to it.
func runSub(run *runContext, prog *Program, base Path, child *envelope.Envelope) ([]Path, map[string][]Path, error) {
	results, err := prog.run(run, child)
	if err != nil {
		return nil, nil, err
	}
	var out []Path
	var captures map[string][]Path
	for _, r := range results {
		path := make(Path, 0, len(base)+len(r.path))
		path = append(path, base...)
		path = append(path, r.path...)
		out = append(out, path)
		captures = mergeNamed(captures, r.captures)
	}
	return out, captures, nil
}

// LeafCasePattern matches Leaf and KnownValue envelopes without
// extending the path.
type LeafCasePattern struct{}

func LeafCase() Pattern { return &LeafCasePattern{} }

func (*LeafCasePattern) String() string { return "leaf" }

func (p *LeafCasePattern) compile(c *compiler) error {
	c.emitMatch(p)
	return nil
}

func (p *LeafCasePattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	switch env.Kind() {
	case envelope.KindLeaf, envelope.KindKnownValue:
		return []Path{{env}}, nil, nil
	}
	return nil, nil, nil
}

// SubjectPattern extends by the subject of a Node; on a non-Node the
// envelope is its own subject and the path does not grow.  An optional
// sub-pattern must match the subject.
type SubjectPattern struct {
	Sub  Pattern
	prog *Program
}

func Subject(sub Pattern) Pattern { return &SubjectPattern{Sub: sub} }

func (p *SubjectPattern) String() string {
	if p.Sub == nil {
		return "subj"
	}
	return "subj(" + p.Sub.String() + ")"
}

func (p *SubjectPattern) compile(c *compiler) error {
	if p.Sub != nil {
		prog, err := c.subProgram(p.Sub)
		if err != nil {
			return err
		}
		p.prog = prog
	}
	c.emitMatch(p)
	return nil
}

func (p *SubjectPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	if env.Kind() != envelope.KindNode {
		if p.prog == nil {
			return []Path{{env}}, nil, nil
		}
		return runSub(run, p.prog, nil, env)
	}
	subject := env.Subject()
	if p.prog == nil {
		return []Path{{env, subject}}, nil, nil
	}
	return runSub(run, p.prog, Path{env}, subject)
}

// PredicatePattern extends to each predicate: directly on an
// Assertion, or across all assertions of a Node.
type PredicatePattern struct {
	Sub  Pattern
	prog *Program
}

func Predicate(sub Pattern) Pattern { return &PredicatePattern{Sub: sub} }

func (p *PredicatePattern) String() string {
	if p.Sub == nil {
		return "pred"
	}
	return "pred(" + p.Sub.String() + ")"
}

func (p *PredicatePattern) compile(c *compiler) error {
	if p.Sub != nil {
		prog, err := c.subProgram(p.Sub)
		if err != nil {
			return err
		}
		p.prog = prog
	}
	c.emitMatch(p)
	return nil
}

func (p *PredicatePattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	return matchAssertionPart(run, p.prog, env, func(a *envelope.Envelope) *envelope.Envelope {
		pr, _ := a.Predicate()
		return pr
	})
}

// ObjectPattern extends to each object: directly on an Assertion, or
// across all assertions of a Node.
type ObjectPattern struct {
	Sub  Pattern
	prog *Program
}

func Object(sub Pattern) Pattern { return &ObjectPattern{Sub: sub} }

func (p *ObjectPattern) String() string {
	if p.Sub == nil {
		return "obj"
	}
	return "obj(" + p.Sub.String() + ")"
}

func (p *ObjectPattern) compile(c *compiler) error {
	if p.Sub != nil {
		prog, err := c.subProgram(p.Sub)
		if err != nil {
			return err
		}
		p.prog = prog
	}
	c.emitMatch(p)
	return nil
}

func (p *ObjectPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	return matchAssertionPart(run, p.prog, env, func(a *envelope.Envelope) *envelope.Envelope {
		obj, _ := a.Object()
		return obj
	})
}

func matchAssertionPart(run *runContext, prog *Program, env *envelope.Envelope, part func(*envelope.Envelope) *envelope.Envelope) ([]Path, map[string][]Path, error) {
	var out []Path
	var captures map[string][]Path
	step := func(child *envelope.Envelope) error {
		if child == nil {
			return nil
		}
		if prog == nil {
			out = append(out, Path{env, child})
			return nil
		}
		paths, caps, err := runSub(run, prog, Path{env}, child)
		if err != nil {
			return err
		}
		out = append(out, paths...)
		captures = mergeNamed(captures, caps)
		return nil
	}
	switch env.Kind() {
	case envelope.KindAssertion:
		if err := step(part(env)); err != nil {
			return nil, nil, err
		}
	case envelope.KindNode:
		for _, a := range env.Assertions() {
			if err := step(part(a)); err != nil {
				return nil, nil, err
			}
		}
	}
	return out, captures, nil
}

// AssertionPattern extends to each assertion of a Node, optionally
// filtered by a predicate or object pattern; the extension is always
// the assertion envelope itself.
type AssertionPattern struct {
	// part selects what the filter applies to.
	part assertionPart
	Sub  Pattern
	prog *Program
}

type assertionPart int

const (
	assertionAnyPart assertionPart = iota
	assertionPredPart
	assertionObjPart
)

func Assertion() Pattern { return &AssertionPattern{part: assertionAnyPart} }

func AssertionWithPredicate(sub Pattern) Pattern {
	return &AssertionPattern{part: assertionPredPart, Sub: sub}
}

func AssertionWithObject(sub Pattern) Pattern {
	return &AssertionPattern{part: assertionObjPart, Sub: sub}
}

func (p *AssertionPattern) String() string {
	switch p.part {
	case assertionPredPart:
		return "assertpred(" + p.Sub.String() + ")"
	case assertionObjPart:
		return "assertobj(" + p.Sub.String() + ")"
	}
	return "assert"
}

func (p *AssertionPattern) compile(c *compiler) error {
	if p.Sub != nil {
		prog, err := c.subProgram(p.Sub)
		if err != nil {
			return err
		}
		p.prog = prog
	}
	c.emitMatch(p)
	return nil
}

func (p *AssertionPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	assertions := env.Assertions()
	if env.Kind() == envelope.KindAssertion {
		assertions = []*envelope.Envelope{env}
	}
	var out []Path
	var captures map[string][]Path
	for _, a := range assertions {
		if p.part != assertionAnyPart {
			var target *envelope.Envelope
			if p.part == assertionPredPart {
				target, _ = a.Predicate()
			} else {
				target, _ = a.Object()
			}
			results, err := p.prog.run(run, target)
			if err != nil {
				return nil, nil, err
			}
			if len(results) == 0 {
				continue
			}
			for _, r := range results {
				captures = mergeNamed(captures, r.captures)
			}
		}
		if a == env {
			out = append(out, Path{env})
		} else {
			out = append(out, Path{env, a})
		}
	}
	return out, captures, nil
}

// NodePattern matches Node envelopes, optionally constraining the
// assertion count, without extending the path.
type NodePattern struct {
	Interval *Interval
}

func Node() Pattern { return &NodePattern{} }

func NodeWithAssertions(interval Interval) Pattern {
	return &NodePattern{Interval: &interval}
}

func (p *NodePattern) String() string {
	if p.Interval == nil {
		return "node"
	}
	return "node(" + p.Interval.RangeNotation() + ")"
}

func (p *NodePattern) compile(c *compiler) error {
	if p.Interval != nil && !p.Interval.Unbounded() && p.Interval.Max < p.Interval.Min {
		return &CompileError{Message: "invalid quantifier range " + p.Interval.RangeNotation()}
	}
	c.emitMatch(p)
	return nil
}

func (p *NodePattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	if env.Kind() != envelope.KindNode {
		return nil, nil, nil
	}
	if p.Interval != nil && !p.Interval.Contains(len(env.Assertions())) {
		return nil, nil, nil
	}
	return []Path{{env}}, nil, nil
}

// WrappedPattern matches Wrapped envelopes without descending.
type WrappedPattern struct{}

func Wrapped() Pattern { return &WrappedPattern{} }

func (*WrappedPattern) String() string { return "wrapped" }

func (p *WrappedPattern) compile(c *compiler) error {
	c.emitMatch(p)
	return nil
}

func (p *WrappedPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	if env.Kind() != envelope.KindWrapped {
		return nil, nil, nil
	}
	return []Path{{env}}, nil, nil
}

// UnwrapPattern extends by the content of a Wrapped envelope; an
// optional sub-pattern must match the content.
type UnwrapPattern struct {
	Sub  Pattern
	prog *Program
}

func Unwrap(sub Pattern) Pattern { return &UnwrapPattern{Sub: sub} }

func (p *UnwrapPattern) String() string {
	if p.Sub == nil {
		return "unwrap"
	}
	return "unwrap(" + p.Sub.String() + ")"
}

func (p *UnwrapPattern) compile(c *compiler) error {
	if p.Sub != nil {
		prog, err := c.subProgram(p.Sub)
		if err != nil {
			return err
		}
		p.prog = prog
	}
	c.emitMatch(p)
	return nil
}

func (p *UnwrapPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	content, ok := env.Unwrap()
	if !ok {
		return nil, nil, nil
	}
	if p.prog == nil {
		return []Path{{env, content}}, nil, nil
	}
	return runSub(run, p.prog, Path{env}, content)
}

// DigestPattern matches envelopes whose digest begins with the given
// hex prefix; a full 64-digit prefix is an exact match.
type DigestPattern struct {
	Prefix []byte
}

func DigestPrefix(prefix []byte) Pattern { return &DigestPattern{Prefix: prefix} }

func (p *DigestPattern) String() string {
	return "digest(" + hex.EncodeToString(p.Prefix) + ")"
}

func (p *DigestPattern) compile(c *compiler) error {
	c.emitMatch(p)
	return nil
}

func (p *DigestPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	digest := env.Digest()
	hexDigest := digest.Hex()
	if !strings.HasPrefix(hexDigest, hex.EncodeToString(p.Prefix)) {
		return nil, nil, nil
	}
	return []Path{{env}}, nil, nil
}

// ObscuredPattern matches elided, encrypted or compressed envelopes.
type ObscuredPattern struct {
	Which envelope.Kind // KindElided, KindEncrypted, KindCompressed; -1 for any
}

const obscuredAny envelope.Kind = -1

func Obscured() Pattern   { return &ObscuredPattern{Which: obscuredAny} }
func Elided() Pattern     { return &ObscuredPattern{Which: envelope.KindElided} }
func Encrypted() Pattern  { return &ObscuredPattern{Which: envelope.KindEncrypted} }
func Compressed() Pattern { return &ObscuredPattern{Which: envelope.KindCompressed} }

func (p *ObscuredPattern) String() string {
	switch p.Which {
	case envelope.KindElided:
		return "elided"
	case envelope.KindEncrypted:
		return "encrypted"
	case envelope.KindCompressed:
		return "compressed"
	}
	return "obscured"
}

func (p *ObscuredPattern) compile(c *compiler) error {
	c.emitMatch(p)
	return nil
}

func (p *ObscuredPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	if !env.IsObscured() {
		return nil, nil, nil
	}
	if p.Which != obscuredAny && env.Kind() != p.Which {
		return nil, nil, nil
	}
	return []Path{{env}}, nil, nil
}
