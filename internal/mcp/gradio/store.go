package gradio

import (
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
)

// Store owns the two process-wide caches (§3 "Ownership": caches are
// process-wide singletons shared read-write across all requests) plus the
// HTTP client used for outbound Hub and Gradio calls.
//
// Store is safe for concurrent use; it holds no lock across an outbound
// call.
type Store struct {
	Metadata *Cache[mcp.SpaceMetadata]
	Schema   *Cache[mcp.SpaceSchema]

	cfgMu  sync.RWMutex
	cfg    Config
	client *http.Client

	metadataGroup singleflight.Group
	schemaGroup   singleflight.Group
}

// NewStore creates a [Store] with fresh, empty caches sized from cfg.
func NewStore(cfg Config, client *http.Client) *Store {
	if client == nil {
		client = http.DefaultClient
	}
	return &Store{
		Metadata: NewCache[mcp.SpaceMetadata](cfg.MetadataTTL),
		Schema:   NewCache[mcp.SpaceSchema](cfg.SchemaTTL),
		cfg:      cfg,
		client:   client,
	}
}

// Config returns a copy of the store's discovery configuration. Discovery
// functions take their own copy at entry (§5 "Locking discipline") so that
// reconfiguring the store mid-flight never requires a lock for the rest of
// the call.
func (s *Store) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// SetConfig atomically replaces the store's configuration for subsequent
// discovery calls. Existing in-flight calls keep using their own snapshot.
func (s *Store) SetConfig(cfg Config) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg = cfg
}

// ClearAll empties both caches. Exposed for the management surface and for
// tests.
func (s *Store) ClearAll() {
	s.Metadata.Clear()
	s.Schema.Clear()
}
