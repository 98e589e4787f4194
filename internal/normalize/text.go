package normalize

import "strings"

func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

func Location(loc string) string {
	loc = CleanText(loc)
	if loc == "" {
		return ""
	}

	loc = strings.TrimPrefix(loc, "Location:")
	loc = strings.TrimPrefix(loc, "LOCATIONS:")
	loc = strings.TrimSpace(loc)

	parts := strings.Split(loc, ",")
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		p = CleanText(p)
		if p == "" {
			continue
		}
		k := strings.ToLower(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}

// RemoteType folds free-form remote/workplace labels into the four values
// the jobs table stores: remote, hybrid, onsite, unknown.
func RemoteType(s string) string {
	m := strings.ToLower(CleanText(s))
	switch {
	case strings.Contains(m, "remote"):
		return "remote"
	case strings.Contains(m, "hybrid"):
		return "hybrid"
	case strings.Contains(m, "on-site") || strings.Contains(m, "onsite") || strings.Contains(m, "on site"):
		return "onsite"
	default:
		return "unknown"
	}
}
