// Command gatewaymcp is the main entry point for the MCP gateway server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/gatewaymcp/internal/config"
	"github.com/MrWong99/gatewaymcp/internal/health"
	"github.com/MrWong99/gatewaymcp/internal/mcp/authclient"
	"github.com/MrWong99/gatewaymcp/internal/mcp/builtin"
	"github.com/MrWong99/gatewaymcp/internal/mcp/gradio"
	"github.com/MrWong99/gatewaymcp/internal/mcp/selection"
	"github.com/MrWong99/gatewaymcp/internal/mcp/server"
	"github.com/MrWong99/gatewaymcp/internal/mcp/transport"
	"github.com/MrWong99/gatewaymcp/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watch := flag.Bool("watch-config", false, "poll the config file for changes and hot-reload bouquets/discovery timeouts")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "gatewaymcp: config file %q not found — pass -config with the path to a YAML configuration file\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "gatewaymcp: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("gatewaymcp starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"transport_mode", cfg.Transport.Mode,
	)

	selection.SetCustomBouquets(toSelectionBouquets(cfg.Bouquets))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "gatewaymcp",
		ServiceVersion: cfg.Server.Version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry providers", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown error", "err", err)
		}
	}()

	factory := buildFactory(cfg)

	var watcher *config.Watcher
	if *watch {
		watcher, err = config.NewWatcher(*configPath, func(old, newCfg *config.Config) {
			onConfigReload(old, newCfg)
		})
		if err != nil {
			slog.Error("failed to start config watcher", "err", err)
			return 1
		}
		defer watcher.Stop()
	}

	printStartupSummary(cfg)

	tr, mux := buildTransport(factory, cfg)
	if mux != nil {
		httpSrv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}

		if err := tr.Initialize(ctx); err != nil {
			slog.Error("failed to initialise transport", "err", err)
			return 1
		}

		serveErrs := make(chan error, 1)
		go func() {
			slog.Info("listening", "addr", cfg.Server.ListenAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErrs <- err
				return
			}
			serveErrs <- nil
		}()

		slog.Info("server ready — press Ctrl+C to shut down")

		select {
		case <-ctx.Done():
		case err := <-serveErrs:
			if err != nil {
				slog.Error("http server error", "err", err)
			}
		}

		tr.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		slog.Info("shutdown signal received, stopping…")
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "err", err)
		}
		tr.Cleanup(shutdownCtx)
		slog.Info("goodbye")
		return 0
	}

	// stdio transport: no HTTP listener, no management surface. Initialize
	// blocks for the lifetime of the single connection.
	stdioErr := make(chan error, 1)
	go func() { stdioErr <- tr.Initialize(ctx) }()

	select {
	case <-ctx.Done():
	case err := <-stdioErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("stdio transport error", "err", err)
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	tr.Cleanup(shutdownCtx)
	slog.Info("goodbye")
	return 0
}

// buildFactory wires the collaborators a [server.Factory] needs: the auth
// validator, the precomputed built-in tool registry, and the Gradio
// discovery store.
func buildFactory(cfg *config.Config) *server.Factory {
	var validator authclient.Validator
	if cfg.Server.HubAuthEndpoint != "" {
		validator = authclient.NewHTTPValidator(cfg.Server.HubAuthEndpoint)
	}

	builtins := builtin.NewRegistry()
	store := gradio.NewStore(toGradioConfig(cfg.Gradio), nil)

	return server.NewFactory(validator, nil, builtins, store, cfg.Selection.SearchEnablesFetch, cfg.Server.Version)
}

// buildTransport constructs the configured transport and, for the two HTTP
// transports, an *http.ServeMux carrying the MCP endpoint plus the
// management surface (§4 "A /metrics Prometheus endpoint and
// /healthz/readyz handlers"). mux is nil for the stdio transport.
func buildTransport(factory *server.Factory, cfg *config.Config) (transport.Transport, *http.ServeMux) {
	switch cfg.Transport.Mode {
	case config.TransportStateless:
		t := transport.NewStatelessTransport(factory, transport.StatelessConfig{
			AnalyticsEnabled:       cfg.Transport.AnalyticsEnabled,
			RejectGETWithoutStream: cfg.Transport.RejectGETWithoutStream,
			TempLogBudget:          cfg.Transport.TempLogBudget,
		}, cfg.Transport.Path)
		return t, mountManagementSurface(t, cfg)
	case config.TransportStdio:
		return transport.NewStdioTransport(factory, server.Headers{}), nil
	default:
		t := transport.NewStatefulTransport(factory, transport.StatefulConfig{
			HeartbeatInterval:    cfg.Transport.HeartbeatInterval,
			StaleCheckInterval:   cfg.Transport.StaleCheckInterval,
			StaleTimeout:         cfg.Transport.StaleTimeout,
			PingEnabled:          cfg.Transport.PingEnabled,
			PingInterval:         cfg.Transport.PingInterval,
			PingFailureThreshold: cfg.Transport.PingFailureThreshold,
		}, cfg.Transport.Path)
		return t, mountManagementSurface(t, cfg)
	}
}

// mountManagementSurface registers the MCP endpoint, /metrics, /healthz, and
// /readyz on a fresh mux. h must implement http.Handler (both HTTP
// transports do).
func mountManagementSurface(h http.Handler, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(cfg.Transport.Path, h)
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(readinessCheckers(cfg)...).Register(mux)
	return mux
}

// readinessCheckers builds the /readyz checker set for this gateway: when a
// Hub auth endpoint is configured, readiness requires it to answer, since a
// gateway that force-authenticates callers against an unreachable validator
// cannot usefully serve requests.
func readinessCheckers(cfg *config.Config) []health.Checker {
	if cfg.Server.HubAuthEndpoint == "" {
		return nil
	}
	return []health.Checker{{
		Name:  "hub-auth",
		Check: hubAuthReachable(cfg.Server.HubAuthEndpoint),
	}}
}

// hubAuthReachable probes the Hub auth endpoint with a lightweight GET,
// treating any HTTP response (including a 4xx from an endpoint that expects
// a token) as evidence the endpoint is up; only a transport-level failure
// fails the check.
func hubAuthReachable(endpoint string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return nil
	}
}

// onConfigReload applies the subset of a reloaded config that is safe to
// hot-swap without restarting a transport (§4 "Config hot-reload"): bouquet
// presets and the log level. Discovery timeouts are reported but not
// propagated live — the Gradio store was constructed with a value copy of
// the old config and restarting it would drop its warm cache.
func onConfigReload(old, newCfg *config.Config) {
	diff := config.Diff(old, newCfg)
	if diff.BouquetsChanged {
		selection.SetCustomBouquets(toSelectionBouquets(newCfg.Bouquets))
		slog.Info("config reload: bouquets updated", "changes", len(diff.BouquetChanges))
	}
	if diff.LogLevelChanged {
		slog.SetDefault(newLogger(diff.NewLogLevel))
		slog.Info("config reload: log level changed", "level", diff.NewLogLevel)
	}
	if diff.GradioTimeoutsChanged {
		slog.Warn("config reload: gradio discovery timeouts changed but require a process restart to take effect")
	}
}

func toSelectionBouquets(bouquets []config.BouquetConfig) []selection.Bouquet {
	out := make([]selection.Bouquet, len(bouquets))
	for i, b := range bouquets {
		out[i] = selection.Bouquet{
			Name:         b.Name,
			BuiltInTools: b.BuiltInTools,
			GradioSpaces: b.GradioSpaces,
		}
	}
	return out
}

func toGradioConfig(g config.GradioConfig) gradio.Config {
	return gradio.Config{
		HubBaseURL:         g.HubBaseURL,
		SpaceBaseURLFormat: g.SpaceBaseURLFormat,
		MetadataTTL:        g.MetadataTTL,
		SchemaTTL:          g.SchemaTTL,
		BatchSize:          g.BatchSize,
		SpaceInfoTimeout:   g.SpaceInfoTimeout,
		SchemaTimeout:      g.SchemaTimeout,
		StrictCompliance:   g.StrictCompliance,
	}
}

// ── Startup summary ──────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       gatewaymcp — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printField("Transport", string(cfg.Transport.Mode))
	printField("Listen addr", cfg.Server.ListenAddr)
	printField("Hub base URL", cfg.Gradio.HubBaseURL)
	fmt.Printf("║  Bouquets configured : %-15d ║\n", len(cfg.Bouquets))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printField(label, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s  : %-19s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
