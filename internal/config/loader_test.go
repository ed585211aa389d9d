package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/gatewaymcp/internal/config"
)

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load("/nonexistent/path/to/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  bogus_field: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadFromReader_MalformedYAML(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("server: [this is not"))
	if err == nil {
		t.Fatal("expected error for malformed yaml, got nil")
	}
}

func TestLoadFromReader_StdioDefaultStaleTimeout(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("transport:\n  mode: stdio\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transport.StaleTimeout != 10*time.Minute {
		t.Errorf("stale_timeout: got %v, want 10m", cfg.Transport.StaleTimeout)
	}
}

func TestValidate_NegativePingFailureThreshold(t *testing.T) {
	t.Parallel()
	yaml := `
transport:
  ping_failure_threshold: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative ping_failure_threshold, got nil")
	}
	if !strings.Contains(err.Error(), "ping_failure_threshold") {
		t.Errorf("error should mention ping_failure_threshold, got: %v", err)
	}
}

func TestValidate_MultipleErrorsJoined(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
transport:
  mode: websocket
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
	if !strings.Contains(errStr, "transport.mode") {
		t.Errorf("error should mention transport.mode, got: %v", err)
	}
}

func TestLoadFromReader_GradioSpaceBaseURLFormatDefault(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gradio.SpaceBaseURLFormat != "https://%s.hf.space" {
		t.Errorf("gradio.space_base_url_format default: got %q", cfg.Gradio.SpaceBaseURLFormat)
	}
}
