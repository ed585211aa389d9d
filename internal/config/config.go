// Package config provides the configuration schema, loader, and hot-reload
// watcher for the gatewaymcp server.
package config

import "time"

// Config is the root configuration structure for the gateway.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Gradio    GradioConfig    `yaml:"gradio"`
	Selection SelectionConfig `yaml:"selection"`
	Bouquets  []BouquetConfig `yaml:"bouquets"`
}

// LogLevel controls log/slog verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError, "":
		return true
	default:
		return false
	}
}

// ServerConfig holds network, identity, and logging settings for the
// gateway process (§6 "Exit codes and CLI" names the listen surface; the
// rest is ambient).
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP transports listen on, e.g.
	// ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn", "error".
	LogLevel LogLevel `yaml:"log_level"`

	// Version is reported as the MCP server's Implementation.Version and in
	// OpenTelemetry resource attributes.
	Version string `yaml:"version"`

	// HubAuthEndpoint is the Hub "whoami"-style endpoint the auth gate
	// (§4.1.3) validates bearer tokens against.
	HubAuthEndpoint string `yaml:"hub_auth_endpoint"`
}

// TransportKind selects which inbound transport the process serves.
type TransportKind string

const (
	TransportStateful  TransportKind = "stateful-http"
	TransportStateless TransportKind = "stateless-json"
	TransportStdio     TransportKind = "stdio"
)

// IsValid reports whether t is a recognised transport kind.
func (t TransportKind) IsValid() bool {
	switch t {
	case TransportStateful, TransportStateless, TransportStdio, "":
		return true
	default:
		return false
	}
}

// TransportConfig holds the §4.1.1/§4.1.2 timing knobs and mode selection.
type TransportConfig struct {
	// Mode selects which transport this process serves. Default: "stateful-http".
	Mode TransportKind `yaml:"mode"`

	// Path is the HTTP mount point for the MCP endpoint. Default: "/mcp".
	Path string `yaml:"path"`

	// HeartbeatInterval, StaleCheckInterval, StaleTimeout, PingInterval, and
	// PingFailureThreshold are the stateful-transport §4.1.1 knobs.
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	StaleCheckInterval   time.Duration `yaml:"stale_check_interval"`
	StaleTimeout         time.Duration `yaml:"stale_timeout"`
	PingEnabled          bool          `yaml:"ping_enabled"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	PingFailureThreshold int           `yaml:"ping_failure_threshold"`

	// AnalyticsEnabled and RejectGETWithoutStream and TempLogBudget are the
	// stateless-transport §4.1.2 knobs.
	AnalyticsEnabled       bool  `yaml:"analytics_enabled"`
	RejectGETWithoutStream bool  `yaml:"reject_get_without_stream"`
	TempLogBudget          int32 `yaml:"temp_log_budget"`
}

// GradioConfig mirrors gradio.Config's fields for YAML loading (§6
// "Configuration surface").
type GradioConfig struct {
	HubBaseURL         string        `yaml:"hub_base_url"`
	SpaceBaseURLFormat string        `yaml:"space_base_url_format"`
	MetadataTTL        time.Duration `yaml:"metadata_ttl"`
	SchemaTTL          time.Duration `yaml:"schema_ttl"`
	BatchSize          int           `yaml:"batch_size"`
	SpaceInfoTimeout   time.Duration `yaml:"space_info_timeout"`
	SchemaTimeout      time.Duration `yaml:"schema_timeout"`
	StrictCompliance   bool          `yaml:"strict_compliance"`
}

// SelectionConfig holds the §4.3 "Conditional expansion" switch.
type SelectionConfig struct {
	SearchEnablesFetch bool `yaml:"search_enables_fetch"`
}

// BouquetConfig is a user-configurable preset overlay. Entries here are
// merged on top of [selection.DefaultBouquets] by name at load time (§4.3
// "Known presets are a closed set" — operators may still extend it without a
// code change, which the hot-reload watcher picks up).
type BouquetConfig struct {
	Name         string   `yaml:"name"`
	BuiltInTools []string `yaml:"built_in_tools"`
	GradioSpaces []string `yaml:"gradio_spaces"`
}
