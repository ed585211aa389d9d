package gradio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

// ContentBlock mirrors the subset of an MCP content block this package
// inspects and rewrites. Fields beyond these are passed through untouched
// by callers that hold the original block value.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	URI  string `json:"uri,omitempty"`
	Data string `json:"data,omitempty"`
	URL  string `json:"url,omitempty"`
}

// clientOpenAIMCP identifies the client name that requests URL-only
// responses via structuredContent instead of embedded image blocks
// (§4.4.6).
const clientOpenAIMCP = "openai-mcp"

// FilterImageContent implements P10: a caller that asked for NoImageContent
// never receives "image" blocks. If every block in the result was an image,
// the whole result is replaced with a single explanatory text block so the
// caller never receives an empty content list.
func FilterImageContent(blocks []ContentBlock) []ContentBlock {
	out := make([]ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == "image" {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 && len(blocks) > 0 {
		return []ContentBlock{{Type: "text", Text: "The tool returned image content, which this client has opted out of receiving."}}
	}
	return out
}

// textURLPattern matches a bare or "Image URL: "-prefixed http(s) URL
// occupying a text block, per §4.4.6 step 2.
var textURLPattern = regexp.MustCompile(`^(?:Image URL:\s*)?(https?://\S+)`)

// StructuredURLResult is the shape §4.4.6 step 2 assigns to a tool result's
// structuredContent once a URL has been found for an openai-mcp caller.
type StructuredURLResult struct {
	URL       string `json:"url"`
	SpaceName string `json:"spaceName"`
}

// blockURL reports the literal URL a content block carries, whether an
// explicit url field or a text block matching [textURLPattern].
func blockURL(b ContentBlock) (string, bool) {
	if b.URL != "" {
		return b.URL, true
	}
	if b.Type == "text" {
		if m := textURLPattern.FindStringSubmatch(b.Text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ExtractFirstURL scans every block in order for the first URL — an
// explicit url field or a matching text block — and reports it alongside
// spaceName as the structuredContent §4.4.6 step 2 assigns for the
// "openai-mcp" client identity. Any other clientName always reports ok=false.
func ExtractFirstURL(clientName, spaceName string, blocks []ContentBlock) (StructuredURLResult, bool) {
	if clientName != clientOpenAIMCP {
		return StructuredURLResult{}, false
	}
	for _, b := range blocks {
		if url, ok := blockURL(b); ok {
			return StructuredURLResult{URL: url, SpaceName: spaceName}, true
		}
	}
	return StructuredURLResult{}, false
}

// SoleResultURL reports the URL carried by blocks when it is the single
// result block and that block is itself a URL string, for §4.4.6's _mcpui
// special case — unlike [ExtractFirstURL] this is not gated on clientName.
func SoleResultURL(blocks []ContentBlock) (string, bool) {
	if len(blocks) != 1 {
		return "", false
	}
	return blockURL(blocks[0])
}

// mcpUIAudioPlayerTemplate wraps a fetched audio URL in the ui:// resource
// convention the _mcpui client renders as an embedded audio player
// (§4.4.6).
const mcpUIAudioPlayerTemplate = `<div data-mcpui="audio-player"><audio controls src=%q></audio></div>`

// EmbedMCPUIAudioPlayer fetches audioURL and, on success, returns a
// ContentBlock carrying an embedded ui:// audio player resource. On fetch
// failure it falls back to a plain text block referencing the URL rather
// than failing the whole tool call.
func EmbedMCPUIAudioPlayer(ctx context.Context, client *http.Client, audioURL string) ContentBlock {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return fallbackAudioReference(audioURL)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fallbackAudioReference(audioURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fallbackAudioReference(audioURL)
	}
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10)); err != nil {
		return fallbackAudioReference(audioURL)
	}

	return ContentBlock{
		Type: "resource",
		URI:  "ui://mcpui/audio-player",
		Text: fmt.Sprintf(mcpUIAudioPlayerTemplate, audioURL),
	}
}

func fallbackAudioReference(audioURL string) ContentBlock {
	return ContentBlock{Type: "text", Text: fmt.Sprintf("Audio result available at %s", audioURL)}
}
