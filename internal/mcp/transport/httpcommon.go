package transport

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
	"github.com/MrWong99/gatewaymcp/internal/mcp/server"
)

// boolFlag is a tiny atomic bool, used for the shutdown-draining flag both
// HTTP transports share.
type boolFlag struct{ v atomic.Bool }

func (f *boolFlag) set(b bool) { f.v.Store(b) }
func (f *boolFlag) get() bool  { return f.v.Load() }

// jsonrpcError is the wire shape for a protocol-level error response.
type jsonrpcError struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeProtocolError writes a [mcp.ProtocolError] as a JSON-RPC error
// envelope with the matching HTTP status (§4.1 "Protocol error mapping").
// The auth gate's "invalid token" and "authentication required" rejections
// are sent with 401.
func writeProtocolError(w http.ResponseWriter, perr *mcp.ProtocolError) {
	resp := jsonrpcError{JSONRPC: "2.0", ID: perr.RequestID}
	resp.Error.Code = string(perr.Code)
	resp.Error.Message = perr.Message
	w.Header().Set("Content-Type", "application/json")
	status := perr.HTTPStatus()
	if perr.Code == mcp.CodeInvalidParams && (perr.Message == "invalid token" || perr.Message == "authentication required") {
		status = http.StatusUnauthorized
	}
	if perr.Code == mcp.CodeInvalidParams && perr.Message == "invalid token" {
		w.Header().Set("WWW-Authenticate", `Bearer`)
		w.Header().Set("OAuth-Protected-Resource", "true")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// headersFromRequest extracts the §6 "Recognised request headers" into a
// [server.Headers], promoting same-named query parameters (sans the
// x-mcp- prefix) ahead of processing.
func headersFromRequest(r *http.Request) server.Headers {
	get := func(header, query string) string {
		if v := r.Header.Get(header); v != "" {
			return v
		}
		return r.URL.Query().Get(query)
	}

	hdr := server.Headers{
		Authorization:  r.Header.Get("Authorization"),
		Bouquet:        get("x-mcp-bouquet", "bouquet"),
		Mix:            get("x-mcp-mix", "mix"),
		Gradio:         get("x-mcp-gradio", "gradio"),
		NoImageContent: strings.EqualFold(get("x-mcp-no-image-content", "no-image-content"), "true"),
		ForceAuth:      strings.EqualFold(get("x-mcp-force-auth", "force-auth"), "true"),
	}
	if v := get("x-mcp-job-timeout", "job-timeout"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			hdr.JobTimeoutSecs = secs
		}
	}
	return hdr
}

// clientIP returns the caller's address stripped of port, preferring
// X-Forwarded-For's first hop when present.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientKey returns the identity string [transport.Metrics] buckets a
// request under: the authenticated subject, or "" for anonymous callers.
func clientKey(identity *mcp.Identity) string {
	if identity != nil && identity.Authenticated {
		return identity.Subject
	}
	return ""
}
