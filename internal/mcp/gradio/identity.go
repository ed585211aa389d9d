package gradio

import (
	"log/slog"
	"strings"
)

// disableSentinel is the literal value that disables a single entry (the
// overall "none" disable is handled one layer up, in the selection package).
const disableSentinel = "none"

// ParseSpaceList splits a comma-separated list of "owner/name" space
// identifiers. Each entry must contain exactly one "/" with non-empty sides;
// the literal "none" is filtered out silently (it is meaningful only as a
// whole-header sentinel). Invalid entries are logged and skipped — a
// malformed entry never fails the whole request (§4.4.1).
func ParseSpaceList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == disableSentinel {
			continue
		}
		if !isValidSpaceID(part) {
			slog.Warn("gradio: skipping invalid space identifier", "value", part)
			continue
		}
		out = append(out, part)
	}
	return out
}

// isValidSpaceID reports whether s is a well-formed "owner/name" identifier:
// exactly one '/' separator with non-empty sides.
func isValidSpaceID(s string) bool {
	i := strings.IndexByte(s, '/')
	if i <= 0 || i == len(s)-1 {
		return false
	}
	return strings.IndexByte(s[i+1:], '/') < 0
}
