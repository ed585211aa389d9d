// Package selection implements the tool-selection strategy (§4.3): the
// precedence chain bouquet > mix > user settings > fallback, the orthogonal
// Gradio-endpoint overlay, and the SEARCH_ENABLES_FETCH conditional
// expansion.
//
// The [Selector.Select] method is deliberately a pure function of its
// inputs — no I/O, no locking — so that server-factory construction (which
// must be cheap on the stateless hot path) can call it inline. This mirrors
// the teacher's tier.Selector.Select: an ordered list of priority checks
// over a small, explicit piece of state.
package selection

import (
	"strings"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
)

// gradioDisableSentinel is the literal header value that disables all
// Gradio endpoints, including those configured in user settings (§4.3).
const gradioDisableSentinel = "none"

// Input bundles everything the selector needs to reach a decision. All
// fields are read-only snapshots taken by the caller (the server factory)
// before Select runs.
type Input struct {
	// BouquetHeader is the raw "x-mcp-bouquet" header value, or "".
	BouquetHeader string
	// MixHeader is the raw "x-mcp-mix" header value, or "".
	MixHeader string
	// GradioHeader is the raw "x-mcp-gradio" header value, or "".
	GradioHeader string
	// IncludeReadmeRequested mirrors the caller-supplied include_readme
	// intent, forwarded verbatim into the result's behavioral flag.
	IncludeReadmeRequested bool
	// NoImageContent mirrors the "x-mcp-no-image-content" header.
	NoImageContent bool
	// Settings is the caller's persisted settings, or nil if unavailable.
	Settings *mcp.UserSettings
	// SettingsIsExternal distinguishes an external settings-API lookup from
	// a local one, purely for [mcp.SelectionResult.Mode] bookkeeping.
	SettingsIsExternal bool
	// SearchEnablesFetch mirrors the SEARCH_ENABLES_FETCH configuration
	// flag (§4.3 "Conditional expansion").
	SearchEnablesFetch bool
}

// Selector applies the tool-selection precedence rules. The zero value is
// ready to use.
type Selector struct{}

// NewSelector returns a ready-to-use Selector.
func NewSelector() *Selector { return &Selector{} }

// Select evaluates the precedence chain and returns the enabled tool set
// plus the Gradio endpoint overlay, per §4.3.
func (s *Selector) Select(in Input) mcp.SelectionResult {
	result := s.selectToolSet(in)
	result.GradioSpaceIDs = s.gradioOverlay(in, result)
	result.IncludeReadme = in.IncludeReadmeRequested
	result.NoImageContent = in.NoImageContent

	if in.SearchEnablesFetch {
		result.EnabledToolIDs = expandSearchFetch(result.EnabledToolIDs)
	}

	return result
}

// selectToolSet applies precedence rules 1–4, ignoring the Gradio overlay.
func (s *Selector) selectToolSet(in Input) mcp.SelectionResult {
	// Priority 1: bouquet override — exclusive of user settings entirely.
	if in.BouquetHeader != "" {
		if b, ok := Lookup(in.BouquetHeader); ok {
			return mcp.SelectionResult{
				Mode:           mcp.ModeBouquetOverride,
				EnabledToolIDs: append([]string(nil), b.BuiltInTools...),
				Reason:         "bouquet override: " + in.BouquetHeader,
			}
		}
		// Unknown bouquet name: fall through silently to the next rule.
	}

	// Priority 2: mix — additive union with user settings, user tools first.
	if in.MixHeader != "" && in.Settings != nil {
		if b, ok := Lookup(in.MixHeader); ok {
			return mcp.SelectionResult{
				Mode:           mcp.ModeMix,
				EnabledToolIDs: dedupPreserveOrder(in.Settings.BuiltInTools, b.BuiltInTools),
				Reason:         "mix: " + in.MixHeader,
				BaseSettings:   in.Settings,
				MixedBouquet:   in.MixHeader,
			}
		}
	}

	// Priority 3: user settings, however sourced.
	if in.Settings != nil {
		mode := mcp.ModeInternalAPI
		if in.SettingsIsExternal {
			mode = mcp.ModeExternalAPI
		}
		return mcp.SelectionResult{
			Mode:           mode,
			EnabledToolIDs: append([]string(nil), in.Settings.BuiltInTools...),
			Reason:         "user settings",
			BaseSettings:   in.Settings,
		}
	}

	// Priority 4: fallback — every known built-in tool.
	return mcp.SelectionResult{
		Mode:           mcp.ModeFallback,
		EnabledToolIDs: AllBuiltInTools(),
		Reason:         "fallback: no bouquet, mix, or settings",
	}
}

// gradioOverlay computes the final list of Gradio space ids to register,
// applying the rules in §4.3 "Gradio endpoint overlay":
//
//   - "none" disables everything, including settings-provided endpoints.
//   - an explicit list is always included.
//   - settings-provided endpoints are skipped when a non-"all" bouquet is
//     active without an explicit gradio header (to keep bouquet override
//     truly exclusive); bouquet=all still includes them.
func (s *Selector) gradioOverlay(in Input, result mcp.SelectionResult) []string {
	explicit, disableAll := parseGradioHeader(in.GradioHeader)
	if disableAll {
		return nil
	}

	if len(explicit) > 0 {
		return explicit
	}

	if in.Settings == nil {
		return nil
	}

	if result.Mode == mcp.ModeBouquetOverride && in.BouquetHeader != "all" {
		return nil
	}

	return append([]string(nil), in.Settings.GradioSpaces...)
}

// parseGradioHeader splits the comma-separated "x-mcp-gradio" header value.
// A literal "none" (case-sensitive, matching the Hub convention) disables
// all Gradio endpoints.
func parseGradioHeader(header string) (explicit []string, disableAll bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, false
	}
	if header == gradioDisableSentinel {
		return nil, true
	}
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == gradioDisableSentinel {
			continue
		}
		explicit = append(explicit, part)
	}
	return explicit, false
}

// expandSearchFetch adds "hf_doc_fetch" when "hf_doc_search" is enabled and
// fetch isn't already present (§4.3 "Conditional expansion").
func expandSearchFetch(ids []string) []string {
	hasSearch, hasFetch := false, false
	for _, id := range ids {
		switch id {
		case "hf_doc_search":
			hasSearch = true
		case "hf_doc_fetch":
			hasFetch = true
		}
	}
	if hasSearch && !hasFetch {
		return append(append([]string(nil), ids...), "hf_doc_fetch")
	}
	return ids
}

// dedupPreserveOrder concatenates the given slices and removes duplicates,
// keeping the first occurrence (§P5: user tools first).
func dedupPreserveOrder(slices ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, sl := range slices {
		for _, v := range sl {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
