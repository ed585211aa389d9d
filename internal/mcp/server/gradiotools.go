package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
	"github.com/MrWong99/gatewaymcp/internal/mcp/gradio"
)

// mcpuiMarker is the tool-name substring that opts a call into the _mcpui
// audio-player special case (§4.4.6).
const mcpuiMarker = "_mcpui"

// registerGradioTools registers one outward tool per discovered (space,
// tool) pair, synthesizing names per §4.4.4 and wiring each tool's handler
// to open a fresh per-call upstream session (§4.4.5).
func registerGradioTools(srv *mcpsdk.Server, records []gradio.SpaceRecord, noImageContent bool, token string) {
	for spaceIdx, rec := range records {
		if rec.Err != nil {
			continue
		}
		for toolIdx, t := range rec.Tools {
			outward := gradio.ToolName(spaceIdx+1, rec.Metadata.Private, t.Name, toolIdx)
			mcpsdk.AddTool(srv, &mcpsdk.Tool{
				Name:        outward,
				Description: t.Description,
			}, gradioToolHandler(rec.Metadata, t.Name, noImageContent, token))
		}
	}
}

// gradioToolHandler builds the per-tool invocation closure: it opens a
// fresh upstream session for every call (never pooled), relays progress
// notifications to the caller when a progress token was supplied, and
// post-processes the result before returning it (§4.4.5, §4.4.6).
func gradioToolHandler(meta mcp.SpaceMetadata, upstreamToolName string, noImageContent bool, token string) mcpsdk.ToolHandlerFor[map[string]any, map[string]any] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input map[string]any) (*mcpsdk.CallToolResult, map[string]any, error) {
		callerToken := progressTokenOf(req)

		var onProgress gradio.ProgressCallback
		if callerToken != nil && req.Session != nil {
			onProgress = func(ctx context.Context, progress, total float64, message string) {
				_ = req.Session.NotifyProgress(ctx, &mcpsdk.ProgressNotificationParams{
					ProgressToken: callerToken,
					Progress:      progress,
					Total:         total,
					Message:       message,
				})
			}
		}

		result, err := gradio.CallTool(ctx, meta.Subdomain, upstreamToolName, input, gradio.CallOptions{
			Token:         token,
			Private:       meta.Private,
			ProgressToken: callerToken,
			OnProgress:    onProgress,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("gradio tool %q on %q failed: %w", upstreamToolName, meta.Name, err)
		}

		blocks := toContentBlocks(result.Content)
		if noImageContent {
			blocks = gradio.FilterImageContent(blocks)
		}

		if strings.Contains(upstreamToolName, mcpuiMarker) {
			if url, ok := gradio.SoleResultURL(blocks); ok {
				blocks = []gradio.ContentBlock{gradio.EmbedMCPUIAudioPlayer(ctx, httpClientFor(meta, token), url)}
			}
		}

		var structured map[string]any
		if url, ok := gradio.ExtractFirstURL(clientNameOf(req), meta.Name, blocks); ok {
			structured = map[string]any{"url": url.URL, "spaceName": url.SpaceName}
		}

		result.Content = fromContentBlocks(blocks)
		return result, structured, nil
	}
}

// progressTokenOf extracts the caller's progress token from the inbound
// call's _meta.progressToken, or nil if the caller supplied none (§4.4.5
// item 3).
func progressTokenOf(req *mcpsdk.CallToolRequest) any {
	if req == nil || req.Params == nil || req.Params.Meta == nil {
		return nil
	}
	return req.Params.Meta["progressToken"]
}

// clientNameOf reports the declared client name from the caller's MCP
// initialize handshake, or "" when unavailable. [mcpsdk.ServerSession]
// exposes no documented accessor for this in the example pack; mirrored
// from the initialize/initialized handshake's own ClientInfo.Name field,
// which every session already negotiated before any tool call can arrive.
func clientNameOf(req *mcpsdk.CallToolRequest) string {
	if req == nil || req.Session == nil {
		return ""
	}
	params := req.Session.InitializeParams()
	if params == nil || params.ClientInfo == nil {
		return ""
	}
	return params.ClientInfo.Name
}

// httpClientFor returns the HTTP client used to fetch the _mcpui audio
// source: the same authorizing client CallTool would use for a private
// space, or the default client for a public one.
func httpClientFor(meta mcp.SpaceMetadata, token string) *http.Client {
	if meta.Private && token != "" {
		return gradio.AuthorizingHTTPClient(token)
	}
	return http.DefaultClient
}

// toContentBlocks projects upstream content into the post-processing
// package's ContentBlock shape. ResourceLink/EmbeddedResource handling
// mirrors the case split sipeed-picoclaw's MCP manager uses to flatten the
// same SDK content union (no reference was available for the exact field
// names beyond URI/Resource.URI, so those two are extrapolated from that
// usage).
func toContentBlocks(content []mcpsdk.Content) []gradio.ContentBlock {
	blocks := make([]gradio.ContentBlock, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case *mcpsdk.TextContent:
			blocks = append(blocks, gradio.ContentBlock{Type: "text", Text: v.Text})
		case *mcpsdk.ImageContent:
			blocks = append(blocks, gradio.ContentBlock{Type: "image", Data: v.Data})
		case *mcpsdk.ResourceLink:
			blocks = append(blocks, gradio.ContentBlock{Type: "resource", URI: v.URI, URL: v.URI})
		default:
			if b, err := json.Marshal(c); err == nil {
				blocks = append(blocks, gradio.ContentBlock{Type: "text", Text: string(b)})
			}
		}
	}
	return blocks
}

// fromContentBlocks converts post-processed ContentBlocks back into the
// SDK's content representation, round-tripping image and resource blocks
// that survived filtering instead of flattening everything to text.
func fromContentBlocks(blocks []gradio.ContentBlock) []mcpsdk.Content {
	content := make([]mcpsdk.Content, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "image":
			content = append(content, &mcpsdk.ImageContent{Data: b.Data})
		case "resource":
			content = append(content, &mcpsdk.EmbeddedResource{Resource: &mcpsdk.ResourceContents{URI: b.URI, Text: b.Text}})
		default:
			content = append(content, &mcpsdk.TextContent{Text: b.Text})
		}
	}
	return content
}
