// utils/locations.go
package utils

import "strings"

// NormalizeLocationToken upper-cases and trims a location token so that "on", " ON " and
// "On" all refer to Ontario. Health region ids are numeric and pass through unchanged.
func NormalizeLocationToken(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

// NormalizeLocationTokens applies NormalizeLocationToken to every token and drops blanks.
func NormalizeLocationTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if n := NormalizeLocationToken(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// SplitList expands query values that may be repeated (?stat=a&stat=b) or
// pipe-separated (?stat=a|b) into a single flat list. Empty items are dropped.
func SplitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, "|") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
