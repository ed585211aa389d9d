package builtin_test

import (
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/gatewaymcp/internal/mcp/builtin"
	"github.com/MrWong99/gatewaymcp/internal/mcp/selection"
)

// TestRegistry_SelectedIDsOnlyIncludesEnabled verifies that SelectedIDs
// returns exactly the enabled subset of the closed built-in catalogue.
func TestRegistry_SelectedIDsOnlyIncludesEnabled(t *testing.T) {
	t.Parallel()
	reg := builtin.NewRegistry()

	got := reg.SelectedIDs(map[string]bool{"space_search": true, "model_search": true, "jobs_list": false})

	want := map[string]bool{"space_search": true, "model_search": true}
	if len(got) != len(want) {
		t.Fatalf("SelectedIDs = %v, want exactly %v", got, want)
	}
	for _, id := range got {
		if !want[id] {
			t.Fatalf("SelectedIDs returned unexpected id %q", id)
		}
	}
}

// TestRegistry_SelectedIDsCoversEveryKnownBuiltIn verifies that, with every
// id enabled, SelectedIDs returns the whole closed built-in catalogue.
func TestRegistry_SelectedIDsCoversEveryKnownBuiltIn(t *testing.T) {
	t.Parallel()
	reg := builtin.NewRegistry()

	all := selection.AllBuiltInTools()
	enabled := make(map[string]bool, len(all))
	for _, id := range all {
		enabled[id] = true
	}

	got := reg.SelectedIDs(enabled)
	if len(got) != len(all) {
		t.Fatalf("SelectedIDs with everything enabled = %v, want all %v", got, all)
	}
}

// TestRegistry_RegisterEnabledDoesNotPanic exercises the full registration
// path against a real server instance for the smallest and largest
// selections, including the hub_inspect README-include flag.
func TestRegistry_RegisterEnabledDoesNotPanic(t *testing.T) {
	t.Parallel()
	reg := builtin.NewRegistry()

	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "test-gateway", Version: "0.0.0"}, nil)
	reg.RegisterEnabled(server, map[string]bool{}, false)

	server2 := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "test-gateway", Version: "0.0.0"}, nil)
	all := selection.AllBuiltInTools()
	enabled := make(map[string]bool, len(all))
	for _, id := range all {
		enabled[id] = true
	}
	reg.RegisterEnabled(server2, enabled, true)
}
