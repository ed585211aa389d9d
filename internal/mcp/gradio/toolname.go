package gradio

import (
	"fmt"
	"regexp"
	"strings"
)

// maxToolNameLen is the outward tool name length cap enforced by MCP
// clients in practice (§4.4.4, P9).
const maxToolNameLen = 49

var nonAlnum = regexp.MustCompile(`[^a-z0-9_]+`)

// ToolName synthesizes the outward MCP tool name for one Gradio space tool.
// spaceIndex is the space's 1-based position among the spaces selected for
// this call; private determines the "gr" (public) vs "grp" (private) prefix;
// toolIndex is the tool's 0-based position within its space's tool list, used
// only as a truncation-collision disambiguator — untruncated names never
// carry it (§4.4.4, P9 "no collision").
func ToolName(spaceIndex int, private bool, rawName string, toolIndex int) string {
	prefix := "gr"
	if private {
		prefix = "grp"
	}

	sanitized := sanitizeToolName(rawName)
	base := fmt.Sprintf("%s%d_%s", prefix, spaceIndex, sanitized)
	if len(base) <= maxToolNameLen {
		return base
	}
	return truncateMiddle(prefix, spaceIndex, sanitized, toolIndex)
}

// IsGradioToolName reports whether name looks like a synthesized Gradio
// proxy tool name ("gr<n>_..." or "grp<n>_..."), used by the stateless
// transport's skip-gradio optimisation to decide whether a tools/call
// target needs discovery at all (§4.1.2).
func IsGradioToolName(name string) bool {
	rest, ok := strings.CutPrefix(name, "grp")
	if !ok {
		rest, ok = strings.CutPrefix(name, "gr")
	}
	if !ok || rest == "" {
		return false
	}
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	return i > 0 && i < len(rest) && rest[i] == '_'
}

// sanitizeToolName lowercases rawName and collapses every run of characters
// outside [a-z0-9_] into a single underscore.
func sanitizeToolName(rawName string) string {
	lower := strings.ToLower(rawName)
	cleaned := nonAlnum.ReplaceAllString(lower, "_")
	return strings.Trim(cleaned, "_")
}

// truncateMiddle shortens an overlong synthesized name to maxToolNameLen by
// keeping the "<prefix><index>_" head, a trailing "_<toolIndex>" collision
// disambiguator, and as much of the sanitized tool name's start as fits in
// between — two long tool names sharing a space and a long common prefix
// would otherwise truncate to the same outward name (§4.4.4, P9).
func truncateMiddle(prefix string, spaceIndex int, sanitized string, toolIndex int) string {
	head := fmt.Sprintf("%s%d_", prefix, spaceIndex)
	tail := fmt.Sprintf("_%d", toolIndex)

	remaining := maxToolNameLen - len(head)
	if remaining <= 0 {
		return head[:maxToolNameLen]
	}
	if len(sanitized) <= remaining {
		return head + sanitized
	}

	budget := remaining - len(tail)
	if budget <= 0 {
		return (head + sanitized[:remaining])[:maxToolNameLen]
	}
	return head + sanitized[:budget] + tail
}
