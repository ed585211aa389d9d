package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
	"github.com/MrWong99/gatewaymcp/internal/mcp/gradio"
	"github.com/MrWong99/gatewaymcp/internal/mcp/server"
)

// stubMethods are the JSON-RPC methods that require the full tool surface
// (§4.1.2 "Stub responder fast-path"). Anything else is answered by a bare
// protocol-bookkeeping server with no tools registered.
//
// §4.1.2 additionally calls out "resources/* for specific clients": since a
// stateless request carries no session memory of which client connected,
// there is no reliable signal to gate that on per-request, so resources/list
// and resources/read are always routed through the full-surface path here
// rather than guessing at a client identity from headers.
var stubMethods = map[string]bool{
	"initialize":      true,
	"tools/list":      true,
	"tools/call":      true,
	"prompts/list":    true,
	"prompts/get":     true,
	"resources/list":  true,
	"resources/read":  true,
}

// StatelessConfig carries the §4.1.2 knobs for the stateless JSON transport.
type StatelessConfig struct {
	// AnalyticsEnabled turns on the in-memory session table keyed by a
	// server-issued session id; it never affects routing, only
	// observability (§4.1.2 "Optional analytics mode").
	AnalyticsEnabled bool
	// RejectGETWithoutStream makes GET /mcp return 405 instead of serving a
	// welcome page, when true.
	RejectGETWithoutStream bool
	// TempLogBudget seeds the capped "temporary logging" counter: it
	// decrements with each diagnostic entry emitted on session-resume
	// failure and stops logging at zero. Zero disables it entirely.
	TempLogBudget int32
}

// StatelessTransport implements the stateless JSON-RPC transport (§4.1.2):
// a fresh scoped server and transport adapter per POST, the stub-responder
// fast path, and the skip-gradio optimisation. Grounded on the teacher's
// "construct cheaply, tear down immediately" style in
// internal/mcp/mcphost/host.go's per-call session helper, generalized from
// one upstream call to one whole inbound request.
type StatelessTransport struct {
	draining

	Factory *server.Factory
	Config  StatelessConfig
	Path    string

	metrics    *Metrics
	analytics  *sessionTable
	tempLogBudget int32
}

// NewStatelessTransport builds a transport ready to mount at path (default
// "/mcp").
func NewStatelessTransport(factory *server.Factory, cfg StatelessConfig, path string) *StatelessTransport {
	if path == "" {
		path = "/mcp"
	}
	t := &StatelessTransport{
		Factory:       factory,
		Config:        cfg,
		Path:          path,
		metrics:       NewMetrics(),
		tempLogBudget: cfg.TempLogBudget,
	}
	if cfg.AnalyticsEnabled {
		t.analytics = newSessionTable()
	}
	return t
}

// Initialize is a no-op: the stateless transport has no background
// goroutines, only the per-request construction path.
func (t *StatelessTransport) Initialize(ctx context.Context) error { return nil }

// Cleanup drops every analytics-mode session entry, if any.
func (t *StatelessTransport) Cleanup(ctx context.Context) {
	if t.analytics == nil {
		return
	}
	for _, id := range t.analytics.ids() {
		t.analytics.delete(id)
	}
}

// Shutdown marks the transport draining (§4.1).
func (t *StatelessTransport) Shutdown() { t.markShutdown() }

// ActiveConnectionCount always reports the stateless sentinel: the
// transport holds no live sessions between requests (§4.1
// "getActiveConnectionCount()"). Analytics-mode entries are bookkeeping,
// not live connections.
func (t *StatelessTransport) ActiveConnectionCount() int { return ActiveConnectionStateless }

// Sessions returns the analytics-mode table's snapshot, or nil when
// analytics is disabled.
func (t *StatelessTransport) Sessions() []mcp.SessionMetadata {
	if t.analytics == nil {
		return nil
	}
	return t.analytics.snapshot()
}

func (t *StatelessTransport) Metrics() Snapshot { return t.metrics.Snapshot() }

func (t *StatelessTransport) Configuration() Configuration {
	return Configuration{
		Transport:                "stateless-json",
		AnalyticsSessionsEnabled: t.Config.AnalyticsEnabled,
	}
}

// rpcEnvelope is the minimal shape the stub fast-path and skip-gradio
// optimisation need to peek at, without fully decoding params.
type rpcEnvelope struct {
	ID     any    `json:"id"`
	Method string `json:"method"`
	Params struct {
		Name string `json:"name"`
	} `json:"params"`
}

// ServeHTTP implements the §4.1.2 request lifecycle: POST dispatches a
// fresh server+transport pair per call, GET serves a welcome page (or 405),
// DELETE removes an analytics-mode session.
func (t *StatelessTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if rejectIfDraining(w, &t.draining) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		t.serveGet(w, r)
	case http.MethodDelete:
		t.serveDelete(w, r)
	case http.MethodPost:
		t.servePost(w, r)
	default:
		writeProtocolError(w, mcp.NewProtocolError(mcp.CodeMethodNotAllowed, "method not allowed", nil))
	}
}

func (t *StatelessTransport) serveGet(w http.ResponseWriter, r *http.Request) {
	if t.Config.RejectGETWithoutStream {
		writeProtocolError(w, mcp.NewProtocolError(mcp.CodeMethodNotAllowed, "GET not supported on this endpoint", nil))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<html><body><h1>gatewaymcp</h1><p>MCP endpoint: POST JSON-RPC to this path.</p></body></html>"))
}

func (t *StatelessTransport) serveDelete(w http.ResponseWriter, r *http.Request) {
	if t.analytics == nil {
		// §4.1.2 "DELETE /mcp in analytics mode removes a session and is
		// rejected elsewhere."
		writeProtocolError(w, mcp.NewProtocolError(mcp.CodeMethodNotAllowed, "session deletion requires analytics mode", nil))
		return
	}
	id := r.Header.Get("Mcp-Session-Id")
	if id == "" {
		writeProtocolError(w, mcp.NewProtocolError(mcp.CodeInvalidParams, "missing session id", nil))
		return
	}
	if _, ok := t.analytics.get(id); !ok {
		writeProtocolError(w, mcp.NewProtocolError(mcp.CodeSessionNotFound, "unknown session id", nil))
		return
	}
	t.analytics.delete(id)
	t.metrics.RecordSessionDeleted()
	w.WriteHeader(http.StatusNoContent)
}

func (t *StatelessTransport) servePost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeProtocolError(w, mcp.NewProtocolError(mcp.CodeInternalError, "failed to read request body", nil))
		return
	}
	r.Body.Close()

	var env rpcEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		writeProtocolError(w, mcp.NewProtocolError(mcp.CodeInvalidParams, "malformed JSON-RPC request", nil))
		return
	}
	// Restore the body so the SDK handler can decode it itself.
	r.Body = io.NopCloser(bytes.NewReader(body))

	hdr := headersFromRequest(r)
	sessionID := r.Header.Get("Mcp-Session-Id")
	if env.Method != "initialize" && sessionID == "" && t.analytics != nil {
		writeProtocolError(w, mcp.NewProtocolError(mcp.CodeInvalidParams, "missing session id", env.ID))
		return
	}

	needsFullSurface := stubMethods[env.Method]
	skipGradio := t.shouldSkipGradio(env)

	var srv *mcpsdk.Server
	var identity *mcp.Identity
	if needsFullSurface {
		result, err := t.Factory.Build(r.Context(), hdr, server.BuildOptions{SkipGradio: skipGradio})
		if err != nil {
			t.handleBuildError(w, err, env.ID)
			return
		}
		srv, identity = result.Server, result.Identity
	} else {
		srv = mcpsdk.NewServer(&mcpsdk.Implementation{Name: "gatewaymcp", Version: t.Factory.Version}, nil)
		identity = &mcp.Identity{Authenticated: false}
	}

	issuedSessionID := sessionID
	if env.Method == "initialize" && t.analytics != nil {
		if issuedSessionID == "" {
			issuedSessionID = generateSessionID()
		}
		t.analytics.create(issuedSessionID, nil, identity.Authenticated, clientIP(r))
		t.metrics.RecordSessionCreated()
		w.Header().Set("Mcp-Session-Id", issuedSessionID)
	} else if t.analytics != nil && sessionID != "" {
		if _, ok := t.analytics.get(sessionID); ok {
			t.analytics.touch(sessionID)
		} else {
			t.recordTempLog("stateless transport: session resume failed, no matching analytics entry", sessionID)
			t.metrics.RecordSessionResumeFailed()
		}
	}

	handler := mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return srv }, &mcpsdk.StreamableHTTPOptions{Stateless: true})
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	handler.ServeHTTP(rec, r)

	t.metrics.RecordRequest(env.Method, clientKey(identity), clientIP(r), time.Since(start).Milliseconds(), rec.status)
}

// shouldSkipGradio implements §4.1.2's "skip-gradio optimisation": always
// skip for initialize, and for tools/call unless the target looks like a
// synthesized Gradio proxy tool name.
func (t *StatelessTransport) shouldSkipGradio(env rpcEnvelope) bool {
	switch env.Method {
	case "initialize":
		return true
	case "tools/call":
		return !gradio.IsGradioToolName(env.Params.Name)
	default:
		return false
	}
}

func (t *StatelessTransport) handleBuildError(w http.ResponseWriter, err error, requestID any) {
	if perr, ok := err.(*mcp.ProtocolError); ok {
		perr.RequestID = requestID
		writeProtocolError(w, perr)
		return
	}
	slog.Error("stateless transport: server factory failed", "error", err)
	t.metrics.RecordServerError()
	writeProtocolError(w, mcp.NewProtocolError(mcp.CodeInternalError, "internal error", requestID))
}

// recordTempLog emits a diagnostic log entry only while the capped budget
// has headroom, decrementing on every call (§4.1.2 "capped temporary
// logging mode").
func (t *StatelessTransport) recordTempLog(msg, sessionID string) {
	for {
		cur := atomic.LoadInt32(&t.tempLogBudget)
		if cur <= 0 {
			return
		}
		if atomic.CompareAndSwapInt32(&t.tempLogBudget, cur, cur-1) {
			slog.Info(msg, "session", sessionID, "remaining_budget", cur-1)
			return
		}
	}
}

// generateSessionID mints an analytics-mode session id. Grounded on the
// teacher's use of google/uuid for every generated identifier in
// internal/config/registry.go.
func generateSessionID() string {
	return uuid.NewString()
}
