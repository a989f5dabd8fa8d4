package verses

import "strings"

const rootPrefix = "rt:"

// ParseRootQuery splits a root query such as "rt:ktb OR rt:qwl" into the roots it
// names. The "rt:" prefix is optional.
func ParseRootQuery(q string) []string {
	var roots []string
	for _, part := range strings.Split(q, " OR ") {
		part = strings.TrimSpace(part)
		part = strings.TrimSpace(strings.TrimPrefix(part, rootPrefix))
		if part != "" {
			roots = append(roots, part)
		}
	}
	return roots
}

// SplitRoots splits a verse's comma-separated roots annotation.
func SplitRoots(s string) []string {
	var roots []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roots = append(roots, r)
		}
	}
	return roots
}
