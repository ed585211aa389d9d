// Package observe provides application-wide observability primitives for
// the gateway: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all gateway metrics.
const meterName = "github.com/MrWong99/gatewaymcp"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// GradioDiscoveryDuration tracks how long a space metadata or schema
	// fetch takes, cache miss or hit alike (§5 "Discovery and caching").
	GradioDiscoveryDuration metric.Float64Histogram

	// GradioCallDuration tracks the latency of a proxied upstream call to a
	// Gradio Space's predict/queue API (§5 "Per-call session").
	GradioCallDuration metric.Float64Histogram

	// ToolExecutionDuration tracks MCP tools/call latency, built-in and
	// Gradio-proxied alike.
	ToolExecutionDuration metric.Float64Histogram

	// --- Counters ---

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// DiscoveryCacheHits counts cache hits/misses during discovery. Use with
	// attributes: attribute.String("layer", "metadata"|"schema"),
	//   attribute.String("result", "hit"|"miss"|"stale")
	DiscoveryCacheHits metric.Int64Counter

	// --- Error counters ---

	// GradioErrors counts upstream Gradio Space errors. Use with attributes:
	//   attribute.String("space", ...), attribute.String("kind", ...)
	GradioErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live MCP transport sessions
	// (stateful-HTTP and stdio; the stateless transport reports 0 or its
	// analytics-mode session count).
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) covering
// everything from a cache-hit discovery lookup to a slow upstream Space call.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.GradioDiscoveryDuration, err = m.Float64Histogram("gatewaymcp.gradio.discovery.duration",
		metric.WithDescription("Latency of Gradio Space metadata/schema discovery."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GradioCallDuration, err = m.Float64Histogram("gatewaymcp.gradio.call.duration",
		metric.WithDescription("Latency of a proxied call to an upstream Gradio Space."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolExecutionDuration, err = m.Float64Histogram("gatewaymcp.tool_execution.duration",
		metric.WithDescription("Latency of MCP tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ToolCalls, err = m.Int64Counter("gatewaymcp.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.DiscoveryCacheHits, err = m.Int64Counter("gatewaymcp.gradio.discovery.cache",
		metric.WithDescription("Total discovery cache lookups by layer and result."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.GradioErrors, err = m.Int64Counter("gatewaymcp.gradio.errors",
		metric.WithDescription("Total upstream Gradio Space errors by space and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("gatewaymcp.active_sessions",
		metric.WithDescription("Number of live MCP transport sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("gatewaymcp.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordToolCall is a convenience method that records a tool call counter
// increment with the standard attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordDiscoveryCacheResult is a convenience method that records a
// discovery cache lookup outcome for the given cache layer.
func (m *Metrics) RecordDiscoveryCacheResult(ctx context.Context, layer, result string) {
	m.DiscoveryCacheHits.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("layer", layer),
			attribute.String("result", result),
		),
	)
}

// RecordGradioError is a convenience method that records an upstream Gradio
// Space error counter increment.
func (m *Metrics) RecordGradioError(ctx context.Context, space, kind string) {
	m.GradioErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("space", space),
			attribute.String("kind", kind),
		),
	)
}
