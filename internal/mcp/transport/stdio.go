package transport

import (
	"context"
	"log/slog"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
	"github.com/MrWong99/gatewaymcp/internal/mcp/server"
)

// StdioTransport serves a single logical connection over the process's
// standard input/output (§4.1, "stdio"). Unlike the HTTP transports it
// tracks at most one session and reports [ActiveConnectionStateless] style
// semantics are not applicable — getActiveConnectionCount reports 0 or 1.
type StdioTransport struct {
	Factory *server.Factory
	Headers server.Headers

	metrics *Metrics

	mu       sync.Mutex
	session  *mcpsdk.ServerSession
	identity *mcp.Identity
}

// NewStdioTransport wires a factory and the fixed headers a stdio caller
// carries (there is no per-request header channel on stdio; callers that
// need bouquet/mix selection pass it via CLI flags upstream of this type).
func NewStdioTransport(factory *server.Factory, headers server.Headers) *StdioTransport {
	return &StdioTransport{Factory: factory, Headers: headers, metrics: NewMetrics()}
}

// Initialize builds the scoped server and connects it over stdio. It blocks
// until the client disconnects or ctx is cancelled, matching the teacher's
// single-session stdio pattern (mcpserver.Server in SSE/stdio mode).
func (t *StdioTransport) Initialize(ctx context.Context) error {
	result, err := t.Factory.Build(ctx, t.Headers, server.BuildOptions{})
	if err != nil {
		return err
	}
	t.identity = result.Identity
	t.metrics.RecordConnection(result.Identity.Authenticated, clientKey(result.Identity))

	session, err := result.Server.Connect(ctx, &mcpsdk.StdioTransport{}, nil)
	if err != nil {
		t.metrics.RecordServerError()
		return err
	}

	t.mu.Lock()
	t.session = session
	t.mu.Unlock()

	err = session.Wait()
	t.metrics.RecordDisconnection(clientKey(result.Identity))
	if err != nil {
		slog.Warn("stdio transport: session ended with error", "error", err)
	}
	return err
}

// Cleanup closes the single tracked session, if any.
func (t *StdioTransport) Cleanup(ctx context.Context) {
	t.mu.Lock()
	s := t.session
	t.session = nil
	t.mu.Unlock()
	if s != nil {
		_ = s.Close()
	}
}

// Shutdown has no draining behavior on stdio: there is only ever one
// session, and Cleanup already tears it down.
func (t *StdioTransport) Shutdown() {}

// ActiveConnectionCount reports 1 while connected, 0 otherwise.
func (t *StdioTransport) ActiveConnectionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session != nil {
		return 1
	}
	return 0
}

// Sessions reports the single tracked session's metadata, or an empty slice.
func (t *StdioTransport) Sessions() []mcp.SessionMetadata {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil || t.identity == nil {
		return nil
	}
	return []mcp.SessionMetadata{{
		ID:              "stdio",
		IsAuthenticated: t.identity.Authenticated,
		State:           mcp.SessionConnected,
	}}
}

func (t *StdioTransport) Metrics() Snapshot { return t.metrics.Snapshot() }

func (t *StdioTransport) Configuration() Configuration {
	return Configuration{Transport: "stdio"}
}
