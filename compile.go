package patex

// Compile lowers a pattern into a program.  Capture names are
// collected from the whole tree first, so a name used both at the
// envelope level and inside an embedded CBOR fragment fails here
// rather than at match time.
func Compile(p Pattern) (*Program, error) {
	names, err := collectCaptures(p)
	if err != nil {
		return nil, err
	}
	return compileProgram(p, names)
}

func compileProgram(p Pattern, names []string) (*Program, error) {
	c := newCompiler(names)
	if err := p.compile(c); err != nil {
		return nil, err
	}
	c.code = append(c.code, IAccept{})
	return &Program{code: c.code, names: c.names, slots: c.slots}, nil
}

type compiler struct {
	code  []Instruction
	names []string
	slots map[string]int
	cuts  int
}

func newCompiler(names []string) *compiler {
	slots := make(map[string]int, len(names))
	for i, name := range names {
		slots[name] = i
	}
	return &compiler{names: names, slots: slots}
}

func (c *compiler) pc() int { return len(c.code) }

func (c *compiler) emitMatch(p atomic) {
	c.code = append(c.code, IMatchPredicate{Pat: p, Extend: true})
}

// emitSplit writes a split with unresolved branches and returns its
// index for patching.
func (c *compiler) emitSplit() int {
	c.code = append(c.code, ISplit{A: -1, B: -1, CutID: -1})
	return len(c.code) - 1
}

func (c *compiler) patchSplitA(idx, to int) {
	split := c.code[idx].(ISplit)
	split.A = to
	c.code[idx] = split
}

func (c *compiler) patchSplitB(idx, to int) {
	split := c.code[idx].(ISplit)
	split.B = to
	c.code[idx] = split
}

func (c *compiler) markSplitCut(idx, cutID int) {
	split := c.code[idx].(ISplit)
	split.CutID = cutID
	c.code[idx] = split
}

// emitJump writes a jump with an unresolved target and returns its
// index for patching.
func (c *compiler) emitJump() int {
	c.code = append(c.code, IJump{To: -1})
	return len(c.code) - 1
}

func (c *compiler) patchJump(idx, to int) {
	c.code[idx] = IJump{To: to}
}

func (c *compiler) emitSave(slot int, side saveSide) {
	c.code = append(c.code, ISave{Slot: slot, Side: side})
}

func (c *compiler) emitCommit(slot int, name string) {
	c.code = append(c.code, ICaptureCommit{Slot: slot, CaptureName: name})
}

func (c *compiler) nextCutID() int {
	id := c.cuts
	c.cuts++
	return id
}

func (c *compiler) emitCut(id int) {
	c.code = append(c.code, ICut{ID: id})
}

// subProgram compiles a nested pattern into its own program.  The
// nested program registers only the capture names reachable from its
// own tree; results flow back to the outer program by name.
func (c *compiler) subProgram(p Pattern) (*Program, error) {
	var names []string
	seen := map[string]struct{}{}
	walkPatterns(p, func(sub Pattern) {
		if capture, ok := sub.(*CapturePattern); ok {
			if _, dup := seen[capture.Name]; !dup {
				seen[capture.Name] = struct{}{}
				names = append(names, capture.Name)
			}
		}
	})
	return compileProgram(p, names)
}

// collectCaptures gathers capture names across the envelope level and
// every embedded CBOR fragment, rejecting names that appear in both
// scopes.
func collectCaptures(p Pattern) ([]string, error) {
	var names []string
	envScope := map[string]struct{}{}
	cborScope := map[string]struct{}{}
	add := func(name string) {
		if _, ok := envScope[name]; ok {
			return
		}
		if _, ok := cborScope[name]; ok {
			return
		}
		names = append(names, name)
	}
	var collision string
	walkPatterns(p, func(sub Pattern) {
		switch pat := sub.(type) {
		case *CapturePattern:
			if _, ok := cborScope[pat.Name]; ok {
				collision = pat.Name
				return
			}
			add(pat.Name)
			envScope[pat.Name] = struct{}{}
		case *LeafPattern:
			for _, name := range pat.subMatcherCaptures() {
				if _, ok := envScope[name]; ok {
					collision = name
					return
				}
				add(name)
				cborScope[name] = struct{}{}
			}
		}
	})
	if collision != "" {
		return nil, &CompileError{Message: "duplicate capture name @" + collision}
	}
	return names, nil
}

// walkPatterns visits every pattern in the tree in pre-order,
// descending into meta bodies and structure sub-patterns.
func walkPatterns(p Pattern, visit func(Pattern)) {
	if p == nil {
		return
	}
	visit(p)
	switch pat := p.(type) {
	case *NotPattern:
		walkPatterns(pat.Sub, visit)
	case *AndPattern:
		for _, sub := range pat.Subs {
			walkPatterns(sub, visit)
		}
	case *OrPattern:
		for _, sub := range pat.Subs {
			walkPatterns(sub, visit)
		}
	case *TraversePattern:
		for _, sub := range pat.Subs {
			walkPatterns(sub, visit)
		}
	case *RepeatPattern:
		walkPatterns(pat.Sub, visit)
	case *CapturePattern:
		walkPatterns(pat.Sub, visit)
	case *SearchPattern:
		walkPatterns(pat.Sub, visit)
	case *SubjectPattern:
		walkPatterns(pat.Sub, visit)
	case *PredicatePattern:
		walkPatterns(pat.Sub, visit)
	case *ObjectPattern:
		walkPatterns(pat.Sub, visit)
	case *AssertionPattern:
		walkPatterns(pat.Sub, visit)
	case *UnwrapPattern:
		walkPatterns(pat.Sub, visit)
	}
}
