package report

import "sort"

// dedupeKey identifies an exact duplicate finding.
type dedupeKey struct {
	path   string
	line   int
	column int
	rule   RuleKind
}

// Collect deduplicates exact duplicates (same path, line, column, rule) and
// sorts the remainder ascending by (path, line, column). Violations from
// concurrent workers may arrive in any order; this is the single point that
// imposes the final deterministic ordering. Pure, no I/O.
func Collect(violations []Violation) Report {
	seen := make(map[dedupeKey]bool, len(violations))
	unique := make([]Violation, 0, len(violations))

	for _, v := range violations {
		key := dedupeKey{path: v.Path, line: v.Line, column: v.Column, rule: v.Rule}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, v)
	}

	sort.Slice(unique, func(i, j int) bool {
		a, b := unique[i], unique[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		// Multiple rules can fire on the same node; keep their relative
		// order stable so repeated runs render byte-identical output.
		return a.Rule < b.Rule
	})

	return Report{Violations: unique}
}
