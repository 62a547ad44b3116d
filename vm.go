package patex

import (
	"fmt"
	"sort"

	"github.com/clarete/patex/envelope"
)

// Default resource bounds.  Exceeding either turns the match into a
// ResourceExhausted error.
const (
	DefaultMaxSteps   = 1 << 20
	DefaultMaxThreads = 1 << 14
)

// MatchOptions bounds a match run.
type MatchOptions struct {
	MaxSteps   int
	MaxThreads int
}

func defaultOptions() MatchOptions {
	return MatchOptions{MaxSteps: DefaultMaxSteps, MaxThreads: DefaultMaxThreads}
}

// runContext carries the step budget shared between a program and the
// nested programs its atomic patterns execute.
type runContext struct {
	steps      int
	maxSteps   int
	maxThreads int
}

func newRunContext(opts MatchOptions) *runContext {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.MaxThreads <= 0 {
		opts.MaxThreads = DefaultMaxThreads
	}
	return &runContext{maxSteps: opts.MaxSteps, maxThreads: opts.MaxThreads}
}

// matchResult is one accepted thread: a path plus its captures keyed
// by name.
type matchResult struct {
	path     Path
	captures map[string][]Path
}

// thread is a VM execution state.  Paths and capture lists are cloned
// on fork; the program is shared.
type thread struct {
	pc       int
	path     Path
	captures [][]Path
	starts   [][]int
	ends     [][]int
	marks    []int
	visited  map[visitKey]struct{}
}

// visitKey guards epsilon loops: a thread reaching the same split with
// the same path state is going nowhere and is dropped.
type visitKey struct {
	pc      int
	pathLen int
	tail    envelope.Digest
}

func (t *thread) clone() *thread {
	out := &thread{
		pc:       t.pc,
		path:     t.path.clone(),
		captures: make([][]Path, len(t.captures)),
		starts:   make([][]int, len(t.starts)),
		ends:     make([][]int, len(t.ends)),
		marks:    append([]int{}, t.marks...),
		visited:  make(map[visitKey]struct{}, len(t.visited)),
	}
	for i := range t.captures {
		out.captures[i] = append([]Path{}, t.captures[i]...)
	}
	for i := range t.starts {
		out.starts[i] = append([]int{}, t.starts[i]...)
	}
	for i := range t.ends {
		out.ends[i] = append([]int{}, t.ends[i]...)
	}
	for k := range t.visited {
		out.visited[k] = struct{}{}
	}
	return out
}

func (t *thread) hasMark(id int) bool {
	for _, m := range t.marks {
		if m == id {
			return true
		}
	}
	return false
}

// run executes the program against root.  Threads are scheduled from a
// LIFO stack so the preferred branch of every split is fully explored
// before its alternative, which realizes the greedy/lazy orderings.
func (p *Program) run(run *runContext, root *envelope.Envelope) ([]matchResult, error) {
	nslots := len(p.names)
	start := &thread{
		pc:       0,
		path:     Path{root},
		captures: make([][]Path, nslots),
		starts:   make([][]int, nslots),
		ends:     make([][]int, nslots),
		visited:  map[visitKey]struct{}{},
	}

	var out []matchResult
	seen := map[string]struct{}{}
	stack := []*thread{start}

	for len(stack) > 0 {
		th := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

	dispatch:
		for {
			run.steps++
			if run.steps > run.maxSteps {
				return nil, &ResourceExhausted{PC: th.pc, PathLen: len(th.path), Steps: run.steps}
			}
			if len(stack) > run.maxThreads {
				return nil, &ResourceExhausted{PC: th.pc, PathLen: len(th.path), Steps: run.steps}
			}

			switch instr := p.code[th.pc].(type) {
			case IMatchPredicate:
				env := th.path.tail()
				paths, captures, err := instr.Pat.match(run, env)
				if err != nil {
					return nil, err
				}
				if len(paths) == 0 {
					break dispatch
				}
				th.pc++
				distributed := distributeCaptures(captures, len(paths))
				// Push alternatives in reverse so the stack pops them
				// in writing order.
				for i := len(paths) - 1; i >= 1; i-- {
					fork := th.clone()
					fork.applyMatch(p, paths[i], distributed[i], instr.Extend)
					stack = append(stack, fork)
				}
				th.applyMatch(p, paths[0], distributed[0], instr.Extend)

			case ISplit:
				key := visitKey{pc: th.pc, pathLen: len(th.path), tail: th.path.tail().Digest()}
				if _, looped := th.visited[key]; looped {
					break dispatch
				}
				th.visited[key] = struct{}{}
				fork := th.clone()
				fork.pc = instr.B
				if instr.CutID >= 0 {
					fork.marks = append(fork.marks, instr.CutID)
				}
				stack = append(stack, fork)
				th.pc = instr.A

			case IJump:
				th.pc = instr.To

			case ISave:
				if instr.Side == saveStart {
					th.starts[instr.Slot] = append(th.starts[instr.Slot], len(th.path))
				} else {
					th.ends[instr.Slot] = append(th.ends[instr.Slot], len(th.path))
				}
				th.pc++

			case ICaptureCommit:
				slot := instr.Slot
				if len(th.starts[slot]) == 0 || len(th.ends[slot]) == 0 {
					return nil, &invariantError{Message: "capture commit without boundaries"}
				}
				start := th.starts[slot][len(th.starts[slot])-1]
				th.starts[slot] = th.starts[slot][:len(th.starts[slot])-1]
				end := th.ends[slot][len(th.ends[slot])-1]
				th.ends[slot] = th.ends[slot][:len(th.ends[slot])-1]
				var seg Path
				if end > start {
					seg = th.path[start:end].clone()
				} else {
					// The body matched without extending; the capture
					// pins the envelope at the path tail.
					seg = Path{th.path[end-1]}
				}
				th.captures[slot] = append(append([]Path{}, th.captures[slot]...), seg)
				th.pc++

			case ICut:
				kept := stack[:0]
				for _, queued := range stack {
					if !queued.hasMark(instr.ID) {
						kept = append(kept, queued)
					}
				}
				stack = kept
				th.pc++

			case IAccept:
				result := matchResult{path: th.path, captures: map[string][]Path{}}
				for slot, paths := range th.captures {
					if len(paths) > 0 {
						result.captures[p.names[slot]] = paths
					}
				}
				key := resultKey(result)
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					out = append(out, result)
				}
				break dispatch

			default:
				return nil, &invariantError{Message: fmt.Sprintf("unknown instruction %T", instr)}
			}
		}
	}
	return out, nil
}

// applyMatch folds one extension path and its captures into the
// thread.
func (t *thread) applyMatch(p *Program, ext Path, captures map[string][]Path, extend bool) {
	if extend {
		t.path = append(t.path.clone(), ext[1:]...)
	} else {
		t.path = ext.clone()
	}
	for name, paths := range captures {
		slot, ok := p.slots[name]
		if !ok {
			continue
		}
		t.captures[slot] = append(append([]Path{}, t.captures[slot]...), paths...)
	}
}

// distributeCaptures assigns atomic captures to successor paths: one
// to one when the counts line up, everything to the first successor
// otherwise.
func distributeCaptures(captures map[string][]Path, n int) []map[string][]Path {
	out := make([]map[string][]Path, n)
	for name, paths := range captures {
		if len(paths) == n {
			for i, path := range paths {
				if out[i] == nil {
					out[i] = map[string][]Path{}
				}
				out[i][name] = append(out[i][name], path)
			}
			continue
		}
		if out[0] == nil {
			out[0] = map[string][]Path{}
		}
		out[0][name] = append(out[0][name], paths...)
	}
	return out
}

// resultKey fingerprints a result for deduplication: the digest
// sequence of the path plus each capture's digest sequences.
func resultKey(r matchResult) string {
	key := pathKey(r.path)
	names := make([]string, 0, len(r.captures))
	for name := range r.captures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key += "|" + name + ":"
		for _, p := range r.captures[name] {
			key += pathKey(p) + ";"
		}
	}
	return key
}
