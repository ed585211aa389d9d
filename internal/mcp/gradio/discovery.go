package gradio

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
)

// SpaceRecord is one fully-resolved Gradio space: its metadata plus the
// tools its schema exposes. Tools is nil when schema fetching was skipped or
// failed for this space alone (§4.4 "per-space failure isolation", P7).
type SpaceRecord struct {
	Metadata mcp.SpaceMetadata
	Tools    []mcp.ToolDescriptor
	Err      error
}

// DiscoverOptions tunes one discovery call.
type DiscoverOptions struct {
	// SkipSchemas bypasses the schema phase entirely, returning metadata
	// only. Used by callers that just need subdomain/privacy information.
	SkipSchemas bool
}

// Discover resolves metadata (and, unless skipped, tool schemas) for every
// named space, isolating per-space failures so one broken space never fails
// the whole call (§4.4, P7). The metadata phase runs in batches of
// cfg.BatchSize; the schema phase runs fully in parallel across the spaces
// that passed the metadata phase.
func (s *Store) Discover(ctx context.Context, spaceNames []string, token string, opts DiscoverOptions) []SpaceRecord {
	cfg := s.Config()

	metas := s.fetchMetadataBatched(ctx, cfg, token, spaceNames)

	records := make([]SpaceRecord, 0, len(metas))
	var schemaTargets []int
	for i, m := range metas {
		if m.err != nil {
			records = append(records, SpaceRecord{Metadata: mcp.SpaceMetadata{Name: m.name}, Err: m.err})
			continue
		}
		if m.meta.SDK != "gradio" || m.meta.Subdomain == "" {
			continue
		}
		records = append(records, SpaceRecord{Metadata: m.meta})
		schemaTargets = append(schemaTargets, len(records)-1)
	}

	if opts.SkipSchemas || len(schemaTargets) == 0 {
		return records
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range schemaTargets {
		idx := idx
		meta := records[idx].Metadata
		g.Go(func() error {
			tools, err := s.fetchSchemaDeduped(gctx, cfg, token, meta)
			if err != nil {
				slog.Warn("gradio: schema fetch failed, space excluded", "space", meta.Name, "error", err)
				records[idx].Err = err
				return nil
			}
			records[idx].Tools = tools
			return nil
		})
	}
	_ = g.Wait() // errors are recorded per-record above; never aborts the whole call

	return records
}

type metaResult struct {
	name string
	meta mcp.SpaceMetadata
	err  error
}

// fetchMetadataBatched runs the metadata phase in batches of cfg.BatchSize
// to bound outbound concurrency against the Hub.
func (s *Store) fetchMetadataBatched(ctx context.Context, cfg Config, token string, spaceNames []string) []metaResult {
	results := make([]metaResult, len(spaceNames))
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(spaceNames)
	}
	if batchSize == 0 {
		return results
	}

	for start := 0; start < len(spaceNames); start += batchSize {
		end := min(start+batchSize, len(spaceNames))
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			name := spaceNames[i]
			g.Go(func() error {
				meta, err := s.fetchMetadataDeduped(gctx, cfg, token, name)
				results[i] = metaResult{name: name, meta: meta, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

// fetchMetadataDeduped wraps fetchMetadata in a singleflight group keyed by
// space name, collapsing concurrent cache-miss fetches for the same space.
func (s *Store) fetchMetadataDeduped(ctx context.Context, cfg Config, token, spaceName string) (mcp.SpaceMetadata, error) {
	v, err, _ := s.metadataGroup.Do(spaceName, func() (any, error) {
		return s.fetchMetadata(ctx, cfg, token, spaceName)
	})
	if err != nil {
		return mcp.SpaceMetadata{}, err
	}
	return v.(mcp.SpaceMetadata), nil
}

// fetchSchemaDeduped wraps fetchSchema in a singleflight group keyed by
// space name.
func (s *Store) fetchSchemaDeduped(ctx context.Context, cfg Config, token string, meta mcp.SpaceMetadata) ([]mcp.ToolDescriptor, error) {
	v, err, _ := s.schemaGroup.Do(meta.Name, func() (any, error) {
		return s.fetchSchema(ctx, cfg, token, meta)
	})
	if err != nil {
		return nil, err
	}
	return v.(mcp.SpaceSchema).Tools, nil
}
