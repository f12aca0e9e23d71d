package project

import "strings"

// Normalize collapses a list of values into a single comma-joined string:
// elements are trimmed, stray enclosing bracket characters are stripped, and
// empty elements are dropped. Applying it to its own output is a no-op.
func Normalize(values []string) string {
	return normalizeJoined(strings.Join(values, ","))
}

// NormalizeString normalizes a single string that may be a bracketed or
// comma-joined list, e.g. `["a","b"]` or "a, b,".
func NormalizeString(s string) string {
	return normalizeJoined(s)
}

func normalizeJoined(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, "[]")
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, ",")
}
