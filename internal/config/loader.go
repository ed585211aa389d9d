package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, applies defaults, and
// returns a validated [Config]. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in the §6 "Configuration surface" defaults for any
// zero-valued field, mirroring [gradio.DefaultConfig] and
// [transport.StatefulConfig.withDefaults] so a config file only needs to
// name the fields it overrides. The one difference is StaleTimeout: outside
// stateless mode it defaults to 10m here, while withDefaults falls back to 5m.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "dev"
	}

	if cfg.Transport.Mode == "" {
		cfg.Transport.Mode = TransportStateful
	}
	if cfg.Transport.Path == "" {
		cfg.Transport.Path = "/mcp"
	}
	if cfg.Transport.HeartbeatInterval == 0 {
		cfg.Transport.HeartbeatInterval = 30 * time.Second
	}
	if cfg.Transport.StaleCheckInterval == 0 {
		cfg.Transport.StaleCheckInterval = 90 * time.Second
	}
	if cfg.Transport.StaleTimeout == 0 {
		if cfg.Transport.Mode == TransportStateless {
			cfg.Transport.StaleTimeout = 5 * time.Minute
		} else {
			cfg.Transport.StaleTimeout = 10 * time.Minute
		}
	}
	if cfg.Transport.PingInterval == 0 {
		cfg.Transport.PingInterval = 30 * time.Second
	}
	if cfg.Transport.PingFailureThreshold == 0 {
		cfg.Transport.PingFailureThreshold = 1
	}

	if cfg.Gradio.HubBaseURL == "" {
		cfg.Gradio.HubBaseURL = "https://huggingface.co"
	}
	if cfg.Gradio.SpaceBaseURLFormat == "" {
		cfg.Gradio.SpaceBaseURLFormat = "https://%s.hf.space"
	}
	if cfg.Gradio.MetadataTTL == 0 {
		cfg.Gradio.MetadataTTL = 5 * time.Minute
	}
	if cfg.Gradio.SchemaTTL == 0 {
		cfg.Gradio.SchemaTTL = 5 * time.Minute
	}
	if cfg.Gradio.BatchSize == 0 {
		cfg.Gradio.BatchSize = 10
	}
	if cfg.Gradio.SpaceInfoTimeout == 0 {
		cfg.Gradio.SpaceInfoTimeout = 5 * time.Second
	}
	if cfg.Gradio.SchemaTimeout == 0 {
		cfg.Gradio.SchemaTimeout = 7500 * time.Millisecond
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing every validation failure found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if !cfg.Transport.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("transport.mode %q is invalid; valid values: stateful-http, stateless-json, stdio", cfg.Transport.Mode))
	}
	if cfg.Transport.PingFailureThreshold < 0 {
		errs = append(errs, fmt.Errorf("transport.ping_failure_threshold %d must be >= 0", cfg.Transport.PingFailureThreshold))
	}
	if cfg.Gradio.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("gradio.batch_size %d must be > 0", cfg.Gradio.BatchSize))
	}

	seen := make(map[string]int, len(cfg.Bouquets))
	for i, b := range cfg.Bouquets {
		prefix := fmt.Sprintf("bouquets[%d]", i)
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[b.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of bouquets[%d]", prefix, b.Name, prev))
		}
		seen[b.Name] = i
	}

	return errors.Join(errs...)
}
