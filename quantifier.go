package patex

import "fmt"

// Reluctance selects which branch of a quantifier's split the VM
// prefers, and whether alternatives survive a successful match.
type Reluctance int

const (
	// Greedy grabs as many repetitions as possible, backtracking when
	// the rest of the pattern cannot match.
	Greedy Reluctance = iota

	// Lazy starts with as few repetitions as possible, adding more
	// only when the rest of the pattern cannot match.
	Lazy

	// Possessive grabs as many repetitions as possible and never
	// backtracks into them.
	Possessive
)

// Suffix returns the quantifier suffix notation for the reluctance.
func (r Reluctance) Suffix() string {
	switch r {
	case Lazy:
		return "?"
	case Possessive:
		return "+"
	}
	return ""
}

// Interval is an inclusive repetition range; a negative Max means
// unbounded above.
type Interval struct {
	Min int
	Max int
}

// Unbounded reports whether the interval has no upper bound.
func (i Interval) Unbounded() bool { return i.Max < 0 }

// Contains reports whether count falls inside the interval.
func (i Interval) Contains(count int) bool {
	return count >= i.Min && (i.Max < 0 || count <= i.Max)
}

// RangeNotation renders the interval in brace notation.
func (i Interval) RangeNotation() string {
	switch {
	case i.Max < 0:
		return fmt.Sprintf("{%d,}", i.Min)
	case i.Min == i.Max:
		return fmt.Sprintf("{%d}", i.Min)
	default:
		return fmt.Sprintf("{%d,%d}", i.Min, i.Max)
	}
}

// ShorthandNotation renders the interval using *, + and ? where they
// apply.
func (i Interval) ShorthandNotation() string {
	switch {
	case i.Min == 0 && i.Max < 0:
		return "*"
	case i.Min == 1 && i.Max < 0:
		return "+"
	case i.Min == 0 && i.Max == 1:
		return "?"
	}
	return i.RangeNotation()
}

// Quantifier is an interval paired with a reluctance.
type Quantifier struct {
	Interval   Interval
	Reluctance Reluctance
}

func NewQuantifier(min, max int, r Reluctance) Quantifier {
	return Quantifier{Interval: Interval{Min: min, Max: max}, Reluctance: r}
}

func (q Quantifier) String() string {
	return q.Interval.ShorthandNotation() + q.Reluctance.Suffix()
}
