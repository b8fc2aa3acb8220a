package deptree

import (
	"strings"
)

// LineKind classifies one line of dependency-tree output.
type LineKind int

const (
	// LineSkipped is any line that does not name a local path dependency.
	LineSkipped LineKind = iota
	// LineLocal is a dependency resolved from an absolute filesystem path.
	LineLocal
)

func (k LineKind) String() string {
	switch k {
	case LineLocal:
		return "local"
	case LineSkipped:
		return "skipped"
	}

	return "unknown"
}

// Skip reasons.
const (
	ReasonEmpty        = "empty line"
	ReasonNoDescriptor = "no origin descriptor"
	ReasonNotLocal     = "origin is not a local path"
	ReasonEmptyOrigin  = "empty origin descriptor"
)

// LineResult is the outcome of parsing a single line.
type LineResult struct {
	// Path is set for [LineLocal] results.
	Path string
	// Reason is set for [LineSkipped] results.
	Reason string
	Kind   LineKind
}

// ParseLine parses one line of "cargo tree --prefix=none" output, which has
// the form "name version (origin) [(*)]". The text after the first
// parenthesis up to the next one is the origin descriptor. Only descriptors
// that are absolute paths produce a [LineLocal] result; registry and git
// dependencies are immutable with respect to the local build.
//
// ParseLine never fails. Lines with an unexpected shape are reported as
// [LineSkipped] so a change in the tool's output format leads to
// under-watching rather than a broken build.
func ParseLine(line string) LineResult {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return LineResult{Kind: LineSkipped, Reason: ReasonEmpty}
	}

	start := strings.IndexAny(line, "()")
	if start < 0 {
		return LineResult{Kind: LineSkipped, Reason: ReasonNoDescriptor}
	}

	origin := line[start+1:]
	if end := strings.IndexAny(origin, "()"); end >= 0 {
		origin = origin[:end]
	}

	switch {
	case origin == "":
		return LineResult{Kind: LineSkipped, Reason: ReasonEmptyOrigin}
	case !strings.HasPrefix(origin, "/"):
		return LineResult{Kind: LineSkipped, Reason: ReasonNotLocal}
	}

	return LineResult{Kind: LineLocal, Path: origin}
}

// Edge is a local path dependency declared (transitively) by Manifest.
type Edge struct {
	Manifest string
	Path     string
}

// Parse returns an [Edge] for every local dependency line in output, in
// output order. Duplicates are kept; [WatchSet] removes them.
func Parse(manifest, output string) []Edge {
	var edges []Edge
	for line := range strings.Lines(output) {
		res := ParseLine(line)
		if res.Kind != LineLocal {
			continue
		}

		edges = append(edges, Edge{Manifest: manifest, Path: res.Path})
	}

	return edges
}
