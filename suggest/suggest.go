// Package suggest proposes corrections for misspelled kind and field names.
package suggest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// String suggests a candidate that closely matches want. Matching ignores
// case and treats '-' and '_' as equal, so "Share-Type" matches
// "share_type".
//
//	The maximum difference depends on the input string. Users of the package
//	should not rely on this heuristic as it may change.
//
// Ties are broken by lexicographic order of the candidates. If no close
// match is found, an empty string is returned.
func String(want string, candidates []string) string {
	norm := normalize(want)

	// Maximum characters that can differ
	maxDist := len(norm) / 4
	if maxDist == 0 {
		maxDist = 1
	}

	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	var str string
	dist := maxDist + 1

	for _, cand := range sorted {
		c := normalize(cand)
		if norm == c {
			return cand
		}
		d := levenshtein.Distance(norm, c, nil)
		if d < dist {
			str = cand
			dist = d
		}
	}

	if dist > maxDist {
		return ""
	}

	return str
}

// Hint returns a human readable hint such as ` (did you mean "project"?)` or an
// empty string if nothing matches.
func Hint(want string, candidates []string) string {
	s := String(want, candidates)
	if s == "" || s == want {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", s)
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
