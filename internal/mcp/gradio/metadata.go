package gradio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
)

// hubMetadataResponse mirrors the JSON body returned by
// GET https://<hub>/api/spaces/{owner}/{name} (§6).
type hubMetadataResponse struct {
	Subdomain string `json:"subdomain"`
	Private   bool   `json:"private"`
	SDK       string `json:"sdk"`
	Emoji     string `json:"emoji"`
	Runtime   *struct {
		Stage    string `json:"stage"`
		Hardware string `json:"hardware"`
	} `json:"runtime"`
}

// fetchMetadata resolves one space's metadata, consulting the cache first
// and issuing a conditional revalidation when a stale entry carries an
// ETag. It implements the per-space body of §4.4.3 step 1.
func (s *Store) fetchMetadata(ctx context.Context, cfg Config, token, spaceName string) (mcp.SpaceMetadata, error) {
	if cached, ok := s.Metadata.Get(spaceName); ok {
		return cached, nil
	}

	stale, etag, hadStale := s.Metadata.GetForRevalidation(spaceName)

	ctx, cancel := context.WithTimeout(ctx, cfg.SpaceInfoTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/spaces/%s", cfg.HubBaseURL, spaceName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return mcp.SpaceMetadata{}, fmt.Errorf("gradio: build metadata request for %q: %w", spaceName, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if hadStale && etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return mcp.SpaceMetadata{}, fmt.Errorf("gradio: metadata request for %q failed: %w", spaceName, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if !hadStale {
			return mcp.SpaceMetadata{}, fmt.Errorf("gradio: 304 for %q with no cached entry to revalidate", spaceName)
		}
		s.Metadata.TouchRevalidated(spaceName)
		stale.FetchedAt = time.Now()
		return stale, nil

	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return mcp.SpaceMetadata{}, fmt.Errorf("gradio: read metadata body for %q: %w", spaceName, err)
		}
		var parsed hubMetadataResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return mcp.SpaceMetadata{}, fmt.Errorf("gradio: parse metadata for %q: %w", spaceName, err)
		}

		meta := mcp.SpaceMetadata{
			Name:      spaceName,
			Subdomain: parsed.Subdomain,
			Private:   parsed.Private,
			SDK:       parsed.SDK,
			Emoji:     parsed.Emoji,
			ETag:      resp.Header.Get("ETag"),
			FetchedAt: time.Now(),
		}
		if parsed.Runtime != nil {
			meta.Runtime = &mcp.RuntimeInfo{Stage: parsed.Runtime.Stage, Hardware: parsed.Runtime.Hardware}
		}

		s.Metadata.Set(spaceName, meta, meta.ETag, meta.Private)
		return meta, nil

	default:
		return mcp.SpaceMetadata{}, fmt.Errorf("gradio: metadata request for %q returned status %d", spaceName, resp.StatusCode)
	}
}
