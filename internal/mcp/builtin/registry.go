// Package builtin hosts the gateway's own built-in tools: search, detail,
// docs, jobs, and space-inspection helpers. Their business logic is out of
// scope (spec.md §1 excludes tool business logic from the hard core); each
// handler here returns a minimal, honest stub result rather than querying a
// real Hub API, so the surface these tools occupy in tool-selection and
// server construction is exercised without pretending to implement Hub
// search/jobs semantics.
package builtin

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/gatewaymcp/internal/mcp/selection"
)

// StubOutput is the uniform output shape every built-in stub returns.
type StubOutput struct {
	Note string `json:"note"`
}

// genericInput is the input shape for every built-in except hub_inspect,
// which gets a dedicated struct so the "README include" behavioral flag
// (§4.2) can toggle a field's presence in the generated schema.
type genericInput struct {
	Query string `json:"query,omitempty"`
}

// hubInspectInput is hub_inspect's input when the README-include flag is
// off: no include_readme field exists in the generated schema at all.
type hubInspectInput struct {
	Space string `json:"space"`
}

// hubInspectInputWithReadme adds include_readme once the behavioral flag is
// set in the caller's enabled tool set.
type hubInspectInputWithReadme struct {
	Space         string `json:"space"`
	IncludeReadme bool   `json:"include_readme,omitempty"`
}

var descriptions = map[string]string{
	"hf_whoami":     "Report the identity associated with the caller's current token, if any.",
	"space_search":  "Search hosted Spaces by name, tag, or author.",
	"model_search":  "Search hosted models by name, tag, or author.",
	"model_detail":  "Fetch detail metadata for a single named model.",
	"paper_search":  "Search indexed papers by title or keyword.",
	"hf_doc_search": "Search platform documentation for a query string.",
	"hf_doc_fetch":  "Fetch the full text of a documentation page by its path.",
	"hub_inspect":   "Inspect a space's Hub-reported metadata.",
	"jobs_list":     "List jobs owned by the caller.",
	"jobs_logs":     "Fetch logs for a single job by id.",
	"use_space":     "Mark a space as actively in use for the remainder of the session.",
	"dynamic_space": "Resolve and register a Gradio space's tools on demand, outside the gradio header/settings overlay.",
}

// Registry holds the closed built-in tool catalogue. Descriptions are
// precomputed once at process start (§9 "Dynamic per-request server
// construction"); [Registry.RegisterEnabled] wires only enable/disable per
// request.
type Registry struct{}

// NewRegistry returns the built-in tool registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// SelectedIDs returns the subset of known built-in ids present (and true)
// in enabled, in the registry's catalogue order. Exposed separately from
// [Registry.RegisterEnabled] so the selection logic is testable without an
// MCP server round-trip.
func (r *Registry) SelectedIDs(enabled map[string]bool) []string {
	var ids []string
	for _, id := range selection.AllBuiltInTools() {
		if enabled[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

// RegisterEnabled registers exactly the tools named in enabled on server.
// includeReadme controls whether hub_inspect's schema exposes the
// `include_readme` field; it is never itself a tool id.
func (r *Registry) RegisterEnabled(server *mcpsdk.Server, enabled map[string]bool, includeReadme bool) {
	for _, id := range r.SelectedIDs(enabled) {
		if id == "hub_inspect" {
			registerHubInspect(server, includeReadme)
			continue
		}
		mcpsdk.AddTool(server, &mcpsdk.Tool{Name: id, Description: descriptions[id]}, genericStubHandler(id))
	}
}

func registerHubInspect(server *mcpsdk.Server, includeReadme bool) {
	tool := &mcpsdk.Tool{Name: "hub_inspect", Description: descriptions["hub_inspect"]}
	if includeReadme {
		mcpsdk.AddTool(server, tool, func(ctx context.Context, req *mcpsdk.CallToolRequest, input hubInspectInputWithReadme) (*mcpsdk.CallToolResult, StubOutput, error) {
			return nil, StubOutput{Note: "hub_inspect: business logic not implemented by this gateway"}, nil
		})
		return
	}
	mcpsdk.AddTool(server, tool, func(ctx context.Context, req *mcpsdk.CallToolRequest, input hubInspectInput) (*mcpsdk.CallToolResult, StubOutput, error) {
		return nil, StubOutput{Note: "hub_inspect: business logic not implemented by this gateway"}, nil
	})
}

func genericStubHandler(id string) mcpsdk.ToolHandlerFor[genericInput, StubOutput] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input genericInput) (*mcpsdk.CallToolResult, StubOutput, error) {
		return nil, StubOutput{Note: fmt.Sprintf("%s: business logic not implemented by this gateway", id)}, nil
	}
}
