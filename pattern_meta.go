package patex

import (
	"strings"

	"github.com/clarete/patex/envelope"
)

// AnyPattern matches every envelope without extending the path.
type AnyPattern struct{}

func Any() Pattern { return &AnyPattern{} }

func (*AnyPattern) String() string { return "*" }

func (p *AnyPattern) compile(c *compiler) error {
	c.emitMatch(p)
	return nil
}

func (p *AnyPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	return []Path{{env}}, nil, nil
}

// NotPattern succeeds with the unchanged path exactly when its body
// yields no paths.  Captures inside a negation never escape.
type NotPattern struct {
	Sub  Pattern
	prog *Program
}

func Not(sub Pattern) Pattern { return &NotPattern{Sub: sub} }

func (p *NotPattern) String() string { return "!" + renderSub(p.Sub) }

func (p *NotPattern) compile(c *compiler) error {
	prog, err := c.subProgram(p.Sub)
	if err != nil {
		return err
	}
	p.prog = prog
	c.emitMatch(p)
	return nil
}

func (p *NotPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	results, err := p.prog.run(run, env)
	if err != nil {
		return nil, nil, err
	}
	if len(results) > 0 {
		return nil, nil, nil
	}
	return []Path{{env}}, nil, nil
}

// AndPattern verifies every branch against the same envelope and emits
// the union of their paths, deduplicated on the terminal envelope.
type AndPattern struct {
	Subs  []Pattern
	progs []*Program
}

func And(subs ...Pattern) Pattern { return &AndPattern{Subs: subs} }

func (p *AndPattern) String() string {
	parts := make([]string, len(p.Subs))
	for i, sub := range p.Subs {
		parts[i] = renderSub(sub)
	}
	return strings.Join(parts, " & ")
}

func (p *AndPattern) compile(c *compiler) error {
	p.progs = p.progs[:0]
	for _, sub := range p.Subs {
		prog, err := c.subProgram(sub)
		if err != nil {
			return err
		}
		p.progs = append(p.progs, prog)
	}
	c.emitMatch(p)
	return nil
}

func (p *AndPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	var out []Path
	var captures map[string][]Path
	seen := map[string]struct{}{}
	for _, prog := range p.progs {
		results, err := prog.run(run, env)
		if err != nil {
			return nil, nil, err
		}
		if len(results) == 0 {
			return nil, nil, nil
		}
		for _, r := range results {
			captures = mergeNamed(captures, r.captures)
			// Paths are unioned with deduplication on the terminal
			// envelope identity.
			tail := r.path.tail().Digest()
			key := string(tail[:])
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, r.path)
		}
	}
	return out, captures, nil
}

// OrPattern matches when any alternative matches; alternatives are
// explored in writing order.
type OrPattern struct{ Subs []Pattern }

func Or(subs ...Pattern) Pattern { return &OrPattern{Subs: subs} }

func (p *OrPattern) String() string {
	parts := make([]string, len(p.Subs))
	for i, sub := range p.Subs {
		parts[i] = sub.String()
	}
	return strings.Join(parts, " | ")
}

func (p *OrPattern) compile(c *compiler) error {
	// a | b | c compiles to a chain of splits whose preferred side is
	// always the next alternative in writing order.
	var jumps []int
	last := len(p.Subs) - 1
	for i, sub := range p.Subs {
		if i == last {
			if err := sub.compile(c); err != nil {
				return err
			}
			break
		}
		split := c.emitSplit()
		c.patchSplitA(split, c.pc())
		if err := sub.compile(c); err != nil {
			return err
		}
		jumps = append(jumps, c.emitJump())
		c.patchSplitB(split, c.pc())
	}
	end := c.pc()
	for _, j := range jumps {
		c.patchJump(j, end)
	}
	return nil
}

// TraversePattern chains patterns so each successive one extends the
// path left by the previous.
type TraversePattern struct{ Subs []Pattern }

func Traverse(subs ...Pattern) Pattern { return &TraversePattern{Subs: subs} }

func (p *TraversePattern) String() string {
	parts := make([]string, len(p.Subs))
	for i, sub := range p.Subs {
		if _, ok := sub.(*OrPattern); ok {
			parts[i] = "(" + sub.String() + ")"
		} else {
			parts[i] = sub.String()
		}
	}
	return strings.Join(parts, " -> ")
}

func (p *TraversePattern) compile(c *compiler) error {
	for _, sub := range p.Subs {
		if err := sub.compile(c); err != nil {
			return err
		}
	}
	return nil
}

// RepeatPattern applies its body between Min and Max times, with the
// reluctance deciding which count the VM prefers.
type RepeatPattern struct {
	Sub Pattern
	Q   Quantifier
}

func Repeat(sub Pattern, q Quantifier) Pattern {
	return &RepeatPattern{Sub: sub, Q: q}
}

func (p *RepeatPattern) String() string {
	return "(" + p.Sub.String() + ")" + p.Q.String()
}

func (p *RepeatPattern) compile(c *compiler) error {
	q := p.Q
	if !q.Interval.Unbounded() && q.Interval.Max < q.Interval.Min {
		return &CompileError{Message: "invalid quantifier range " + q.Interval.RangeNotation()}
	}

	// Mandatory prefix.
	for i := 0; i < q.Interval.Min; i++ {
		if err := p.Sub.compile(c); err != nil {
			return err
		}
	}

	lazy := q.Reluctance == Lazy
	cutID := -1
	if q.Reluctance == Possessive {
		cutID = c.nextCutID()
	}

	if q.Interval.Unbounded() {
		// Thompson loop: L: split body/end; body; jump L.
		loop := c.emitSplit()
		if cutID >= 0 {
			c.markSplitCut(loop, cutID)
		}
		body := c.pc()
		if err := p.Sub.compile(c); err != nil {
			return err
		}
		c.patchJump(c.emitJump(), loop)
		end := c.pc()
		if lazy {
			c.patchSplitA(loop, end)
			c.patchSplitB(loop, body)
		} else {
			c.patchSplitA(loop, body)
			c.patchSplitB(loop, end)
		}
	} else {
		// Bounded optional suffix: a split per extra repetition.
		var splits []int
		for i := q.Interval.Min; i < q.Interval.Max; i++ {
			split := c.emitSplit()
			if cutID >= 0 {
				c.markSplitCut(split, cutID)
			}
			splits = append(splits, split)
			body := c.pc()
			if lazy {
				c.patchSplitB(split, body)
			} else {
				c.patchSplitA(split, body)
			}
			if err := p.Sub.compile(c); err != nil {
				return err
			}
		}
		end := c.pc()
		for _, split := range splits {
			if lazy {
				c.patchSplitA(split, end)
			} else {
				c.patchSplitB(split, end)
			}
		}
	}

	if cutID >= 0 {
		c.emitCut(cutID)
	}
	return nil
}

// CapturePattern records the sub-path its body matches under a name.
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

func (p *CapturePattern) compile(c *compiler) error {
	slot, ok := c.slots[p.Name]
	if !ok {
		return &invariantError{Message: "unregistered capture name " + p.Name}
	}
	c.emitSave(slot, saveStart)
	if err := p.Sub.compile(c); err != nil {
		return err
	}
	c.emitSave(slot, saveEnd)
	c.emitCommit(slot, p.Name)
	return nil
}

// SearchPattern walks the whole envelope tree in depth-first pre-order
// and matches its body at every position.
type SearchPattern struct {
	Sub  Pattern
	prog *Program
}

func Search(sub Pattern) Pattern { return &SearchPattern{Sub: sub} }

func (p *SearchPattern) String() string {
	return "search(" + p.Sub.String() + ")"
}

func (p *SearchPattern) compile(c *compiler) error {
	prog, err := c.subProgram(p.Sub)
	if err != nil {
		return err
	}
	p.prog = prog
	c.emitMatch(p)
	return nil
}

func (p *SearchPattern) match(run *runContext, env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	var out []Path
	var captures map[string][]Path
	seen := map[string]struct{}{}
	var walkErr error
	env.Walk(func(pos *envelope.Envelope, walkPath []*envelope.Envelope) bool {
		if walkErr != nil {
			return false
		}
		results, err := p.prog.run(run, pos)
		if err != nil {
			walkErr = err
			return false
		}
		for _, r := range results {
			full := make(Path, 0, len(walkPath)+len(r.path)-1)
			full = append(full, walkPath...)
			full = append(full, r.path[1:]...)
			key := pathKey(full)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, full)
			captures = mergeNamed(captures, r.captures)
		}
		return true
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}
	return out, captures, nil
}

// pathKey renders a digest sequence usable as a dedup key.
func pathKey(p Path) string {
	var b strings.Builder
	for _, e := range p {
		d := e.Digest()
		b.Write(d[:])
	}
	return b.String()
}

func mergeNamed(dst, src map[string][]Path) map[string][]Path {
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
