// Package patex implements a pattern language for Gordian Envelopes.
//
// A pattern is written in a compact, regex-inspired syntax, compiled
// into a small instruction program, and executed by a backtracking
// virtual machine against an envelope tree.  Matching returns every
// path from the root to a matching sub-envelope, along with named
// sub-paths pinned by @name(...) capture operators.
//
//	pat, err := patex.Parse(`search("Alice")`)
//	paths, err := pat.Paths(env)
//
// Leaf-level matching is delegated to the dcborpat sub-matcher, which
// handles everything below an envelope leaf: scalar values, arrays,
// maps and tagged values.
package patex
