package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
)

// ActiveConnectionStateless is the sentinel [Transport.ActiveConnectionCount]
// returns for transports that hold no sessions at all (§4.1
// "getActiveConnectionCount()").
const ActiveConnectionStateless = -1

// Configuration is the snapshot a transport returns from
// [Transport.Configuration] for the management surface (§4.1
// "getConfiguration()").
type Configuration struct {
	Transport              string
	HeartbeatInterval       time.Duration
	StaleCheckInterval      time.Duration
	StaleTimeout            time.Duration
	PingEnabled             bool
	PingInterval            time.Duration
	PingFailureThreshold    int
	AnalyticsSessionsEnabled bool
}

// Transport is the shared contract every inbound MCP transport implements
// (§4.1 "Three transports share a base contract").
type Transport interface {
	// Initialize prepares the transport to accept traffic: starts any
	// background goroutines (heartbeat, stale sweep, ping).
	Initialize(ctx context.Context) error

	// Cleanup closes every tracked session and stops all timers.
	Cleanup(ctx context.Context)

	// Shutdown marks the transport draining: new connections are rejected
	// with a protocol-level "server shutting down" error, but in-flight
	// requests are allowed to finish.
	Shutdown()

	// ActiveConnectionCount returns a non-negative session count, or
	// [ActiveConnectionStateless] for transports that track none.
	ActiveConnectionCount() int

	// Sessions returns a snapshot of every tracked session's metadata.
	Sessions() []mcp.SessionMetadata

	// Metrics returns the transport's process-wide counters.
	Metrics() Snapshot

	// Configuration returns the transport's effective timing configuration.
	Configuration() Configuration

	// ServeHTTP is nil for the stdio transport; HTTP transports implement
	// http.Handler directly instead of exposing it through this interface,
	// since net/http dispatches by type assertion at mount time.
}

// draining is embedded by both HTTP transports to implement the shared
// shutdown-rejection behavior (§4.1).
type draining struct {
	flag boolFlag
}

func (d *draining) markShutdown() { d.flag.set(true) }
func (d *draining) isDraining() bool { return d.flag.get() }

// rejectIfDraining writes the shared "server shutting down" protocol error
// and returns true if the transport is draining.
func rejectIfDraining(w http.ResponseWriter, d *draining) bool {
	if !d.isDraining() {
		return false
	}
	writeProtocolError(w, mcp.NewProtocolError(mcp.CodeServerShuttingDown, "server shutting down", nil))
	return true
}
