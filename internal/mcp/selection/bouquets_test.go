package selection_test

import (
	"testing"

	"github.com/MrWong99/gatewaymcp/internal/mcp/selection"
)

func TestLookup_BuiltInPreset(t *testing.T) {
	b, ok := selection.Lookup("search")
	if !ok {
		t.Fatal("expected \"search\" to be a known bouquet")
	}
	if b.Name != "search" {
		t.Errorf("Name = %q, want \"search\"", b.Name)
	}
}

func TestLookup_UnknownName(t *testing.T) {
	_, ok := selection.Lookup("not-a-real-bouquet")
	if ok {
		t.Error("expected unknown bouquet name to report ok=false")
	}
}

func TestSetCustomBouquets_OverridesBuiltIn(t *testing.T) {
	t.Cleanup(func() { selection.SetCustomBouquets(nil) })

	selection.SetCustomBouquets([]selection.Bouquet{
		{Name: "search", BuiltInTools: []string{"space_search"}},
	})

	b, ok := selection.Lookup("search")
	if !ok {
		t.Fatal("expected overridden \"search\" bouquet to resolve")
	}
	if len(b.BuiltInTools) != 1 || b.BuiltInTools[0] != "space_search" {
		t.Errorf("BuiltInTools = %v, want [space_search]", b.BuiltInTools)
	}
}

func TestSetCustomBouquets_AddsNewName(t *testing.T) {
	t.Cleanup(func() { selection.SetCustomBouquets(nil) })

	selection.SetCustomBouquets([]selection.Bouquet{
		{Name: "research", BuiltInTools: []string{"hf_doc_search", "hf_doc_fetch"}, GradioSpaces: []string{"acme/summarizer"}},
	})

	b, ok := selection.Lookup("research")
	if !ok {
		t.Fatal("expected custom \"research\" bouquet to resolve")
	}
	if len(b.GradioSpaces) != 1 || b.GradioSpaces[0] != "acme/summarizer" {
		t.Errorf("GradioSpaces = %v, want [acme/summarizer]", b.GradioSpaces)
	}
}

func TestSetCustomBouquets_EmptyClearsOverlay(t *testing.T) {
	selection.SetCustomBouquets([]selection.Bouquet{
		{Name: "search", BuiltInTools: []string{"space_search"}},
	})
	selection.SetCustomBouquets(nil)

	b, ok := selection.Lookup("search")
	if !ok {
		t.Fatal("expected built-in \"search\" bouquet to resolve after clearing overlay")
	}
	if len(b.BuiltInTools) != 3 {
		t.Errorf("BuiltInTools = %v, want the 3 built-in search tools", b.BuiltInTools)
	}
}
