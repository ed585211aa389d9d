package gradio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
)

// schemaToolRaw is the shape of one tool entry in the array form of a Gradio
// MCP schema response; [parseSchemaTools] converts the object form into the
// same shape (§4.4 "Schema phase").
type schemaToolRaw struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// fetchSchema resolves one space's tool schema from its Gradio subdomain,
// filtering out internal "<lambda" tool names that Gradio sometimes emits
// for unnamed event handlers.
func (s *Store) fetchSchema(ctx context.Context, cfg Config, token string, meta mcp.SpaceMetadata) (mcp.SpaceSchema, error) {
	if cached, ok := s.Schema.Get(meta.Name); ok {
		return cached, nil
	}

	stale, etag, hadStale := s.Schema.GetForRevalidation(meta.Name)

	ctx, cancel := context.WithTimeout(ctx, cfg.SchemaTimeout)
	defer cancel()

	format := cfg.SpaceBaseURLFormat
	if format == "" {
		format = "https://%s.hf.space"
	}
	url := fmt.Sprintf(format+"/gradio_api/mcp/schema", meta.Subdomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return mcp.SpaceSchema{}, fmt.Errorf("gradio: build schema request for %q: %w", meta.Name, err)
	}
	if meta.Private && token != "" {
		req.Header.Set("X-HF-Authorization", "Bearer "+token)
	}
	if hadStale && etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return mcp.SpaceSchema{}, fmt.Errorf("gradio: schema request for %q failed: %w", meta.Name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if !hadStale {
			return mcp.SpaceSchema{}, fmt.Errorf("gradio: 304 for %q schema with no cached entry to revalidate", meta.Name)
		}
		s.Schema.TouchRevalidated(meta.Name)
		stale.FetchedAt = time.Now()
		return stale, nil

	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return mcp.SpaceSchema{}, fmt.Errorf("gradio: read schema body for %q: %w", meta.Name, err)
		}
		raw, err := parseSchemaTools(body)
		if err != nil {
			return mcp.SpaceSchema{}, fmt.Errorf("gradio: parse schema for %q: %w", meta.Name, err)
		}

		tools := make([]mcp.ToolDescriptor, 0, len(raw))
		for _, t := range raw {
			if strings.HasPrefix(t.Name, "<lambda") {
				continue
			}
			tools = append(tools, mcp.ToolDescriptor{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}

		schema := mcp.SpaceSchema{
			Name:      meta.Name,
			Tools:     tools,
			FetchedAt: time.Now(),
		}
		s.Schema.Set(meta.Name, schema, resp.Header.Get("ETag"), meta.Private)
		return schema, nil

	default:
		return mcp.SpaceSchema{}, fmt.Errorf("gradio: schema request for %q returned status %d", meta.Name, resp.StatusCode)
	}
}

// parseSchemaTools accepts either a bare JSON array of tools (§4.4.3 "array
// form": `[{name, description?, inputSchema}, ...]`) or the object form
// (`{name: inputSchema, ...}`, with description embedded on the schema
// value itself), since observed Gradio versions emit both shapes.
func parseSchemaTools(body []byte) ([]schemaToolRaw, error) {
	var asArray []schemaToolRaw
	if err := json.Unmarshal(body, &asArray); err == nil {
		return asArray, nil
	}

	var asObject map[string]map[string]any
	if err := json.Unmarshal(body, &asObject); err != nil {
		return nil, fmt.Errorf("neither array nor object schema form matched: %w", err)
	}

	tools := make([]schemaToolRaw, 0, len(asObject))
	for name, inputSchema := range asObject {
		desc, _ := inputSchema["description"].(string)
		tools = append(tools, schemaToolRaw{
			Name:        name,
			Description: desc,
			InputSchema: inputSchema,
		})
	}
	return tools, nil
}
