package gradio

import "time"

// Config holds the discovery and proxy timings described in spec.md §6.
// Discovery functions copy Config by value at entry so that runtime
// reconfiguration never requires holding a lock across an outbound call.
type Config struct {
	// HubBaseURL is the Hub root, e.g. "https://huggingface.co".
	HubBaseURL string

	// SpaceBaseURLFormat is an fmt.Sprintf pattern with one %s verb for the
	// subdomain, producing a running space's base URL. Overridable for
	// tests; production traffic uses the default.
	SpaceBaseURLFormat string

	MetadataTTL time.Duration
	SchemaTTL   time.Duration

	// BatchSize bounds outbound parallelism during the metadata phase.
	BatchSize int

	SpaceInfoTimeout time.Duration
	SchemaTimeout    time.Duration

	// StrictCompliance is carried over from the config file. Discovery and
	// tool registration do not read it, so tool definitions are handled the
	// same way whether it is true or false.
	StrictCompliance bool
}

// DefaultConfig returns the documented defaults (§6 "Configuration surface").
func DefaultConfig() Config {
	return Config{
		HubBaseURL:         "https://huggingface.co",
		SpaceBaseURLFormat: "https://%s.hf.space",
		MetadataTTL:        5 * time.Minute,
		SchemaTTL:          5 * time.Minute,
		BatchSize:          10,
		SpaceInfoTimeout:   5 * time.Second,
		SchemaTimeout:      7500 * time.Millisecond,
		StrictCompliance:   false,
	}
}
