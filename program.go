package patex

import "fmt"

// Instruction is a single VM operation.
type Instruction interface {
	// Name returns the name of the instruction.
	Name() string
}

// IMatchPredicate invokes an atomic pattern on the thread's current
// path tail and spawns one successor thread per extension path.  When
// Extend is false the returned path replaces the thread path instead
// of extending it.
type IMatchPredicate struct {
	Pat    atomic
	Extend bool
}

func (IMatchPredicate) Name() string { return "match_predicate" }

// ISplit forks the thread.  A is the preferred branch and is explored
// first; B is pushed as the alternative.  CutID links the alternative
// to a later ICut when the split belongs to a possessive group.
type ISplit struct {
	A, B  int
	CutID int
}

func (ISplit) Name() string { return "split" }

// IJump transfers control unconditionally.
type IJump struct{ To int }

func (IJump) Name() string { return "jump" }

type saveSide int

const (
	saveStart saveSide = iota
	saveEnd
)

// ISave records the current path length as a capture boundary.
type ISave struct {
	Slot int
	Side saveSide
}

func (ISave) Name() string { return "save" }

// ICaptureCommit finalizes the sub-path between the latest start and
// end boundaries of a slot.
type ICaptureCommit struct {
	Slot        int
	CaptureName string
}

func (ICaptureCommit) Name() string { return "capture_commit" }

// ICut drops every queued alternative spawned by splits carrying the
// same cut ID (possessive semantics).
type ICut struct{ ID int }

func (ICut) Name() string { return "cut" }

// IAccept reports the thread's path and committed captures as a match.
type IAccept struct{}

func (IAccept) Name() string { return "accept" }

// Program is an immutable instruction tape plus its capture name
// table; slot i holds captures for names[i].
type Program struct {
	code  []Instruction
	names []string
	slots map[string]int
}

// CaptureNames returns the capture names registered in the program.
func (p *Program) CaptureNames() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Disassemble renders the program one instruction per line, which is
// handy in tests and when debugging compilations.
func (p *Program) Disassemble() string {
	out := ""
	for i, instr := range p.code {
		line := fmt.Sprintf("%03d %s", i, instr.Name())
		switch in := instr.(type) {
		case IMatchPredicate:
			line += " " + in.Pat.String()
		case ISplit:
			line += fmt.Sprintf(" %d %d", in.A, in.B)
		case IJump:
			line += fmt.Sprintf(" %d", in.To)
		case ISave:
			side := "start"
			if in.Side == saveEnd {
				side = "end"
			}
			line += fmt.Sprintf(" %d %s", in.Slot, side)
		case ICaptureCommit:
			line += fmt.Sprintf(" %d %s", in.Slot, in.CaptureName)
		case ICut:
			line += fmt.Sprintf(" %d", in.ID)
		}
		out += line + "\n"
	}
	return out
}
