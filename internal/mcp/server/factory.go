// Package server implements the per-request server factory (§4.2): header
// extraction, the auth gate, the tool-selection call, built-in tool
// registration, and Gradio-proxied tool registration, producing a scoped
// *mcpsdk.Server ready to hand to a transport.
package server

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/gatewaymcp/internal/mcp"
	"github.com/MrWong99/gatewaymcp/internal/mcp/authclient"
	"github.com/MrWong99/gatewaymcp/internal/mcp/builtin"
	"github.com/MrWong99/gatewaymcp/internal/mcp/gradio"
	"github.com/MrWong99/gatewaymcp/internal/mcp/selection"
)

// implementationName is the process-wide MCP server identity (§4.2 step 4).
const implementationName = "gatewaymcp"

// Headers is the subset of inbound request headers the factory inspects
// (§4.2 step 1, §6 "Recognised request headers"). Transports populate this
// from HTTP headers or stdio-side equivalents; query parameters with the
// same name (minus the x-mcp- prefix) are promoted to headers upstream of
// the factory.
type Headers struct {
	Authorization  string
	Bouquet        string
	Mix            string
	Gradio         string
	NoImageContent bool
	IncludeReadme  bool
	JobTimeoutSecs int
	ForceAuth      bool
}

// SettingsLookup resolves a caller's persisted tool settings, e.g. from a
// local store or an external settings API. A nil return with a nil error
// means "no settings available" (falls through to the fallback rule).
type SettingsLookup interface {
	Lookup(ctx context.Context, identity *mcp.Identity) (settings *mcp.UserSettings, external bool, err error)
}

// Factory assembles a scoped MCP server per request or logical connection.
type Factory struct {
	Validator      authclient.Validator
	Settings       SettingsLookup
	Builtins       *builtin.Registry
	GradioStore    *gradio.Store
	SearchEnablesFetch bool
	Version        string
}

// NewFactory wires the collaborators the factory needs. builtins and store
// are precomputed once at process start and shared across every call.
func NewFactory(validator authclient.Validator, settings SettingsLookup, builtins *builtin.Registry, store *gradio.Store, searchEnablesFetch bool, version string) *Factory {
	return &Factory{
		Validator:          validator,
		Settings:           settings,
		Builtins:           builtins,
		GradioStore:        store,
		SearchEnablesFetch: searchEnablesFetch,
		Version:            version,
	}
}

// Result is what the factory hands back to the calling transport (§4.2
// step 8).
type Result struct {
	Server   *mcpsdk.Server
	Identity *mcp.Identity
}

// BuildOptions carries transport-specific hooks into one [Factory.Build]
// call. The zero value is fine for transports that don't need them.
type BuildOptions struct {
	// SkipGradio bypasses Gradio discovery entirely (the stateless
	// transport's skip-gradio optimisation, §4.1.2).
	SkipGradio bool
	// OnInitialized, when set, is wired as the constructed server's
	// InitializedHandler — the stateful transport uses this to capture the
	// *mcpsdk.ServerSession handle for its session table (§4.1.1). identity
	// is the same value [Factory.Build] already resolved via the auth gate,
	// threaded through so the session table never has to re-derive it.
	OnInitialized func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.InitializedParams, identity *mcp.Identity)
}

// Build runs the full server-factory pipeline for one request.
func (f *Factory) Build(ctx context.Context, hdr Headers, opts BuildOptions) (*Result, error) {
	identity, err := f.authenticate(ctx, hdr)
	if err != nil {
		return nil, err
	}

	settings, external, err := f.lookupSettings(ctx, identity)
	if err != nil {
		slog.Warn("server: settings lookup failed, continuing without settings", "error", err)
	}

	sel := selection.NewSelector().Select(selection.Input{
		BouquetHeader:          hdr.Bouquet,
		MixHeader:              hdr.Mix,
		GradioHeader:           hdr.Gradio,
		IncludeReadmeRequested: hdr.IncludeReadme,
		NoImageContent:         hdr.NoImageContent,
		Settings:               settings,
		SettingsIsExternal:     external,
		SearchEnablesFetch:     f.SearchEnablesFetch,
	})

	var initHandler func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.InitializedParams)
	if opts.OnInitialized != nil {
		initHandler = func(ctx context.Context, ss *mcpsdk.ServerSession, params *mcpsdk.InitializedParams) {
			opts.OnInitialized(ctx, ss, params, identity)
		}
	}

	srv := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    implementationName,
		Version: f.Version,
	}, &mcpsdk.ServerOptions{
		Instructions:       instructionsFor(identity),
		InitializedHandler: initHandler,
	})

	enabled := make(map[string]bool, len(sel.EnabledToolIDs))
	for _, id := range sel.EnabledToolIDs {
		enabled[id] = true
	}
	f.Builtins.RegisterEnabled(srv, enabled, sel.IncludeReadme)

	if !opts.SkipGradio && len(sel.GradioSpaceIDs) > 0 {
		token := bearerToken(hdr.Authorization)
		records := f.GradioStore.Discover(ctx, sel.GradioSpaceIDs, token, gradio.DiscoverOptions{})
		registerGradioTools(srv, records, sel.NoImageContent, token)
	}

	return &Result{Server: srv, Identity: identity}, nil
}

// authenticate implements the auth gate (§4.1.3). It never returns an error
// for anonymous-but-permitted callers; it only errors when force-auth
// requires rejection or the token is proven invalid.
func (f *Factory) authenticate(ctx context.Context, hdr Headers) (*mcp.Identity, error) {
	token := bearerToken(hdr.Authorization)
	if token == "" {
		if hdr.ForceAuth {
			return nil, mcp.NewProtocolError(mcp.CodeInvalidParams, "authentication required", nil)
		}
		return &mcp.Identity{Authenticated: false}, nil
	}

	if f.Validator == nil {
		return &mcp.Identity{Authenticated: false}, nil
	}

	id, err := f.Validator.Validate(ctx, token)
	switch {
	case err == nil:
		return &mcp.Identity{Subject: id.Subject, Authenticated: true}, nil
	case err == authclient.ErrUnauthorized:
		return nil, mcp.NewProtocolError(mcp.CodeInvalidParams, "invalid token", nil)
	default:
		// Network/validator failure: continue unauthenticated rather than
		// conflating it with an auth failure (§4.1.3).
		slog.Warn("server: token validation failed, continuing unauthenticated", "error", err)
		return &mcp.Identity{Authenticated: false}, nil
	}
}

func (f *Factory) lookupSettings(ctx context.Context, identity *mcp.Identity) (*mcp.UserSettings, bool, error) {
	if f.Settings == nil {
		return nil, false, nil
	}
	return f.Settings.Lookup(ctx, identity)
}

func instructionsFor(identity *mcp.Identity) string {
	if identity != nil && identity.Authenticated {
		return fmt.Sprintf("Gateway MCP server. Authenticated as %s.", identity.Subject)
	}
	return "Gateway MCP server. Unauthenticated session: private spaces and personal settings are unavailable."
}

func bearerToken(authorizationHeader string) string {
	const prefix = "Bearer "
	if len(authorizationHeader) > len(prefix) && authorizationHeader[:len(prefix)] == prefix {
		return authorizationHeader[len(prefix):]
	}
	return ""
}
