package patex

import (
	"sort"
	"strings"
)

// PathElementFormat selects how each path element renders.
type PathElementFormat int

const (
	// FormatSummary renders the digest prefix and one-line summary of
	// each element, indented four spaces per level.
	FormatSummary PathElementFormat = iota

	// FormatLastOnly renders only the terminal envelope of each path.
	FormatLastOnly

	// FormatDigests renders the 8-hex-digit digest prefixes of each
	// element on a single line.
	FormatDigests
)

// FormatPathsOpts customizes path rendering.
type FormatPathsOpts struct {
	ElementFormat PathElementFormat
	Indent        bool
}

// DefaultFormatPathsOpts is the rendering used by tests and tools:
// summaries, indented.
func DefaultFormatPathsOpts() FormatPathsOpts {
	return FormatPathsOpts{ElementFormat: FormatSummary, Indent: true}
}

// FormatPath renders one path with default options.
func FormatPath(path Path) string {
	return FormatPathOpt(path, DefaultFormatPathsOpts())
}

// FormatPathOpt renders one path.
func FormatPathOpt(path Path, opts FormatPathsOpts) string {
	switch opts.ElementFormat {
	case FormatLastOnly:
		if len(path) == 0 {
			return ""
		}
		return path.tail().String()
	case FormatDigests:
		parts := make([]string, len(path))
		for i, e := range path {
			parts[i] = e.Digest().ShortHex()
		}
		return strings.Join(parts, " ")
	default:
		var lines []string
		for i, e := range path {
			indent := ""
			if opts.Indent {
				indent = strings.Repeat(" ", i*4)
			}
			lines = append(lines, indent+e.String())
		}
		return strings.Join(lines, "\n")
	}
}

// FormatPaths renders each path in sequence, one per line group.
func FormatPaths(paths []Path) string {
	return FormatPathsOpt(paths, DefaultFormatPathsOpts())
}

// FormatPathsOpt renders each path with the given options.
func FormatPathsOpt(paths []Path, opts FormatPathsOpts) string {
	parts := make([]string, len(paths))
	for i, p := range paths {
		parts[i] = FormatPathOpt(p, opts)
	}
	return strings.Join(parts, "\n")
}

// FormatPathsWithCaptures renders capture blocks first, sorted by
// name, then the top-level paths.
func FormatPathsWithCaptures(paths []Path, captures map[string][]Path) string {
	var b strings.Builder
	names := make([]string, 0, len(captures))
	for name := range captures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString("@" + name + "\n")
		for _, p := range captures[name] {
			for _, line := range strings.Split(FormatPath(p), "\n") {
				b.WriteString("    " + line + "\n")
			}
		}
	}
	b.WriteString(FormatPaths(paths))
	return strings.TrimRight(b.String(), "\n")
}
