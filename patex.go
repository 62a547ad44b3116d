package patex

import "github.com/clarete/patex/envelope"

// Matcher couples a parsed pattern with its compiled program.  It is
// immutable and safe to share across calls; each match run owns its
// own per-call state.
type Matcher struct {
	pattern Pattern
	program *Program
	opts    MatchOptions
}

// Parse parses a patex source string and compiles it.
func Parse(src string) (*Matcher, error) {
	pattern, err := parsePattern(src)
	if err != nil {
		return nil, err
	}
	return NewMatcher(pattern)
}

// NewMatcher compiles a programmatically built pattern.
func NewMatcher(pattern Pattern) (*Matcher, error) {
	program, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Matcher{pattern: pattern, program: program, opts: defaultOptions()}, nil
}

// WithOptions returns a matcher sharing the same program with
// different resource bounds.
func (m *Matcher) WithOptions(opts MatchOptions) *Matcher {
	return &Matcher{pattern: m.pattern, program: m.program, opts: opts}
}

// Pattern returns the parsed pattern.
func (m *Matcher) Pattern() Pattern { return m.pattern }

// Program returns the compiled program.
func (m *Matcher) Program() *Program { return m.program }

// String renders the pattern in canonical patex notation.
func (m *Matcher) String() string { return m.pattern.String() }

// Matches reports whether the pattern matches the envelope at all.
func (m *Matcher) Matches(env *envelope.Envelope) bool {
	paths, err := m.Paths(env)
	return err == nil && len(paths) > 0
}

// Paths returns every path the pattern identifies in the envelope.
// An empty list is a valid outcome meaning no matches.
func (m *Matcher) Paths(env *envelope.Envelope) ([]Path, error) {
	paths, _, err := m.PathsWithCaptures(env)
	return paths, err
}

// PathsWithCaptures returns every matching path together with the
// captured sub-paths keyed by capture name.
func (m *Matcher) PathsWithCaptures(env *envelope.Envelope) ([]Path, map[string][]Path, error) {
	run := newRunContext(m.opts)
	results, err := m.program.run(run, env)
	if err != nil {
		return nil, nil, err
	}
	var paths []Path
	captures := map[string][]Path{}
	for _, r := range results {
		paths = append(paths, r.path)
		for name, caps := range r.captures {
			captures[name] = append(captures[name], caps...)
		}
	}
	return paths, captures, nil
}
