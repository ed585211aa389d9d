package gradio

import (
	"context"
	"fmt"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// authHeaderTransport injects a bearer-style authorization header on every
// outbound request, for forwarding a caller's token to a private space's
// upstream MCP endpoint.
type authHeaderTransport struct {
	header string
	value  string
	base   http.RoundTripper
}

func (t *authHeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(t.header, t.value)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// authorizingHTTPClient returns an *http.Client that forwards token via the
// X-HF-Authorization header Gradio expects for private-space access
// (§4.4.5).
func authorizingHTTPClient(token string) *http.Client {
	return &http.Client{
		Transport: &authHeaderTransport{header: "X-HF-Authorization", value: "Bearer " + token},
	}
}

// AuthorizingHTTPClient exposes [authorizingHTTPClient] for callers outside
// this package that need to fetch a private space's own assets (not the MCP
// endpoint itself) with the same forwarded credential — e.g. the _mcpui
// audio-player fetch in §4.4.6.
func AuthorizingHTTPClient(token string) *http.Client {
	return authorizingHTTPClient(token)
}

// sseEndpoint builds the upstream Gradio MCP SSE endpoint for a subdomain
// (§4.4.5 "Per-call upstream session").
func sseEndpoint(subdomain string) string {
	return fmt.Sprintf("https://%s.hf.space/gradio_api/mcp/sse", subdomain)
}

// ProgressCallback receives one upstream progress notification, already
// unpacked from the SDK's params struct.
type ProgressCallback func(ctx context.Context, progress, total float64, message string)

// CallOptions carries everything CallTool needs beyond the tool name and
// arguments: the caller's auth token, forwarded via X-HF-Authorization when
// Private is set, and the progress-relay pair (§4.4.5 item 3: "if the
// caller supplied a progress token, install a progress relay that forwards
// upstream progress notifications to the caller unchanged"). ProgressToken
// is re-sent upstream verbatim so the space associates its notifications
// with this call; OnProgress is nil when the caller supplied no token, in
// which case no relay is installed.
type CallOptions struct {
	Token   string
	Private bool

	ProgressToken any
	OnProgress    ProgressCallback
}

// upstreamClientImplementation identifies this gateway to the Gradio spaces
// it proxies to, distinct from the Implementation callers see (§4.4.5).
var upstreamClientImplementation = &mcpsdk.Implementation{Name: "gatewaymcp-gradio-proxy", Version: "1.0.0"}

// CallTool opens a fresh per-call session to the Gradio space at subdomain,
// issues one tools/call, and tears the session down unconditionally —
// including when ctx is canceled mid-call (§4.4.5, P8). Each call gets its
// own upstream session; sessions are never pooled or reused across calls,
// since a Gradio space's per-session state must not leak between distinct
// callers.
func CallTool(ctx context.Context, subdomain, toolName string, args map[string]any, opts CallOptions) (*mcpsdk.CallToolResult, error) {
	var clientOpts *mcpsdk.ClientOptions
	if opts.OnProgress != nil {
		// ProgressNotificationClientRequest's exact shape has no reference in
		// the example pack; mirrored from the SDK's other Session+Params
		// notification handlers (e.g. LoggingMessageHandler) for consistency.
		clientOpts = &mcpsdk.ClientOptions{
			ProgressNotificationHandler: func(ctx context.Context, req *mcpsdk.ProgressNotificationClientRequest) {
				opts.OnProgress(ctx, req.Params.Progress, req.Params.Total, req.Params.Message)
			},
		}
	}
	client := mcpsdk.NewClient(upstreamClientImplementation, clientOpts)

	transport := &mcpsdk.StreamableClientTransport{Endpoint: sseEndpoint(subdomain)}
	if opts.Private && opts.Token != "" {
		transport.HTTPClient = authorizingHTTPClient(opts.Token)
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("gradio: connect to space at %q failed: %w", subdomain, err)
	}
	defer session.Close()

	params := &mcpsdk.CallToolParams{
		Name:      toolName,
		Arguments: args,
	}
	if opts.ProgressToken != nil {
		params.Meta = mcpsdk.Meta{"progressToken": opts.ProgressToken}
	}

	result, err := session.CallTool(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("gradio: call to tool %q on %q failed: %w", toolName, subdomain, err)
	}
	return result, nil
}
