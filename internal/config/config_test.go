package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/gatewaymcp/internal/config"
)

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
  hub_auth_endpoint: https://huggingface.co/api/whoami-v2

transport:
  mode: stateless-json
  analytics_enabled: true
  ping_failure_threshold: 3

gradio:
  batch_size: 5
  metadata_ttl: 10m

selection:
  search_enables_fetch: true

bouquets:
  - name: research
    built_in_tools: [space_search, hf_doc_search, hf_doc_fetch]
    gradio_spaces: [acme/summarizer]
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":9090")
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogDebug)
	}
	if cfg.Transport.Mode != config.TransportStateless {
		t.Errorf("transport.mode: got %q, want %q", cfg.Transport.Mode, config.TransportStateless)
	}
	if !cfg.Transport.AnalyticsEnabled {
		t.Error("transport.analytics_enabled: got false, want true")
	}
	if cfg.Transport.PingFailureThreshold != 3 {
		t.Errorf("transport.ping_failure_threshold: got %d, want 3", cfg.Transport.PingFailureThreshold)
	}
	if cfg.Gradio.BatchSize != 5 {
		t.Errorf("gradio.batch_size: got %d, want 5", cfg.Gradio.BatchSize)
	}
	if cfg.Gradio.MetadataTTL != 10*time.Minute {
		t.Errorf("gradio.metadata_ttl: got %v, want 10m", cfg.Gradio.MetadataTTL)
	}
	if !cfg.Selection.SearchEnablesFetch {
		t.Error("selection.search_enables_fetch: got false, want true")
	}
	if len(cfg.Bouquets) != 1 || cfg.Bouquets[0].Name != "research" {
		t.Fatalf("bouquets: got %+v, want one entry named research", cfg.Bouquets)
	}
}

// TestLoadFromReader_EmptyAppliesDefaults verifies an empty config succeeds
// and every documented §6 default is filled in.
func TestLoadFromReader_EmptyAppliesDefaults(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error for empty config: %v", err)
	}
	if cfg.Server.ListenAddr == "" {
		t.Error("server.listen_addr default not applied")
	}
	if cfg.Transport.Mode != config.TransportStateful {
		t.Errorf("transport.mode default: got %q, want %q", cfg.Transport.Mode, config.TransportStateful)
	}
	if cfg.Transport.HeartbeatInterval != 30*time.Second {
		t.Errorf("transport.heartbeat_interval default: got %v, want 30s", cfg.Transport.HeartbeatInterval)
	}
	if cfg.Transport.StaleTimeout != 10*time.Minute {
		t.Errorf("transport.stale_timeout default for stateful: got %v, want 10m", cfg.Transport.StaleTimeout)
	}
	if cfg.Gradio.HubBaseURL != "https://huggingface.co" {
		t.Errorf("gradio.hub_base_url default: got %q", cfg.Gradio.HubBaseURL)
	}
	if cfg.Gradio.BatchSize != 10 {
		t.Errorf("gradio.batch_size default: got %d, want 10", cfg.Gradio.BatchSize)
	}
}

// TestLoadFromReader_StatelessDefaultStaleTimeout verifies the §6 mode-
// dependent stale timeout default (5m stateless, 10m stateful/SSE).
func TestLoadFromReader_StatelessDefaultStaleTimeout(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader("transport:\n  mode: stateless-json\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transport.StaleTimeout != 5*time.Minute {
		t.Errorf("stale_timeout: got %v, want 5m", cfg.Transport.StaleTimeout)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log_level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_InvalidTransportMode(t *testing.T) {
	yaml := `
transport:
  mode: websocket
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid transport.mode, got nil")
	}
	if !strings.Contains(err.Error(), "transport.mode") {
		t.Errorf("error should mention transport.mode, got: %v", err)
	}
}

// TestValidate_InvalidBatchSize uses a negative value: zero is
// indistinguishable from "unset" and gets defaulted to 10 before
// validation runs, so only a negative value reliably surfaces the check.
func TestValidate_InvalidBatchSize(t *testing.T) {
	yaml := `
gradio:
  batch_size: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative batch_size, got nil")
	}
}

func TestValidate_MissingBouquetName(t *testing.T) {
	yaml := `
bouquets:
  - built_in_tools: [space_search]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing bouquet name, got nil")
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("error should mention name, got: %v", err)
	}
}

func TestValidate_DuplicateBouquetName(t *testing.T) {
	yaml := `
bouquets:
  - name: research
    built_in_tools: [space_search]
  - name: research
    built_in_tools: [model_search]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate bouquet name, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
}
