package selection

import "sync"

// Bouquet is a named preset enumerating a closed set of built-in tools.
type Bouquet struct {
	Name         string
	BuiltInTools []string
	// GradioSpaces are the space ids implicitly associated with this preset.
	// None of the built-in presets carries any; operator-configured
	// bouquets may.
	GradioSpaces []string
}

// allBuiltInTools is the closed catalogue of built-in tool ids this gateway
// knows about (§4.2 step 5).
var allBuiltInTools = []string{
	"hf_whoami",
	"space_search",
	"model_search",
	"model_detail",
	"paper_search",
	"hf_doc_search",
	"hf_doc_fetch",
	"hub_inspect",
	"jobs_list",
	"jobs_logs",
	"use_space",
	"dynamic_space",
}

// DefaultBouquets is the closed set of named presets known to the selector
// (§4.3). Unknown bouquet/mix names fall through silently — callers look
// them up with [Lookup].
var DefaultBouquets = map[string]Bouquet{
	"search": {
		Name:         "search",
		BuiltInTools: []string{"space_search", "model_search", "paper_search"},
	},
	"docs": {
		Name:         "docs",
		BuiltInTools: []string{"hf_doc_search", "hf_doc_fetch"},
	},
	"spaces": {
		Name:         "spaces",
		BuiltInTools: []string{"space_search", "use_space", "dynamic_space"},
	},
	"hf_api": {
		Name:         "hf_api",
		BuiltInTools: []string{"hf_whoami", "model_detail", "hub_inspect"},
	},
	"jobs": {
		Name:         "jobs",
		BuiltInTools: []string{"jobs_list", "jobs_logs"},
	},
	"all": {
		Name:         "all",
		BuiltInTools: append([]string(nil), allBuiltInTools...),
	},
}

// AllBuiltInTools returns every known built-in tool id. Used by the fallback
// precedence rule (§4.3 step 4).
func AllBuiltInTools() []string {
	return append([]string(nil), allBuiltInTools...)
}

// customBouquets holds operator-configured presets (§6 "Configuration
// surface", BouquetConfig), merged on top of [DefaultBouquets] by name.
// Guarded by customMu so the hot-reload watcher can replace the set without racing
// concurrent [Lookup] calls on the request path.
var (
	customMu       sync.RWMutex
	customBouquets map[string]Bouquet
)

// SetCustomBouquets replaces the operator-configured preset overlay. Passing
// an empty slice clears it back to the closed built-in set. Safe to call
// concurrently with [Lookup] (e.g. from a config watcher's onChange
// callback).
func SetCustomBouquets(bouquets []Bouquet) {
	m := make(map[string]Bouquet, len(bouquets))
	for _, b := range bouquets {
		m[b.Name] = b
	}
	customMu.Lock()
	customBouquets = m
	customMu.Unlock()
}

// Lookup returns the named bouquet and whether it is known. Operator-defined
// bouquets (via [SetCustomBouquets]) take precedence over the built-in set by
// name; otherwise matching is case-sensitive and exact, matching the Hub's
// preset naming convention.
func Lookup(name string) (Bouquet, bool) {
	customMu.RLock()
	b, ok := customBouquets[name]
	customMu.RUnlock()
	if ok {
		return b, true
	}
	b, ok = DefaultBouquets[name]
	return b, ok
}
