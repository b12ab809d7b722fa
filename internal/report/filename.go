package report

import "strings"

// BuildFilename derives the artifact name for a report from its kind,
// scope label (truck or driver name, or "All") and period or date
// range. The result is flat and filesystem-safe, so the artifact store
// can use it as the only addressing scheme.
func BuildFilename(kind, scopeLabel, period string) string {
	return safeLabel(kind) + "_" + safeLabel(scopeLabel) + "_" + safeLabel(period) + ".pdf"
}

// safeLabel keeps letters, digits, dots, dashes and underscores;
// spaces become underscores and anything else a dash.
func safeLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "All"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "All"
	}
	return out
}
