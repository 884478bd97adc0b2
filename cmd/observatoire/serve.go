package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/observatoire/observatoire/internal/api"
	"github.com/observatoire/observatoire/internal/auth"
	"github.com/observatoire/observatoire/internal/config"
	"github.com/observatoire/observatoire/internal/domain"
	"github.com/observatoire/observatoire/internal/healthcheck"
	"github.com/observatoire/observatoire/internal/notify"
	"github.com/observatoire/observatoire/internal/ratelimit"
	"github.com/observatoire/observatoire/internal/refresh"
	"github.com/observatoire/observatoire/internal/scraper"
	"github.com/observatoire/observatoire/internal/telemetry"
	"github.com/observatoire/observatoire/internal/ws"
)

func serveCmd(a *app) *cobra.Command {
	var uiDir string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket stream and gRPC health service",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.serve(uiDir)
		},
	}
	c.Flags().StringVar(&uiDir, "ui-dir", "", "serve the front-end static files from this directory; leave empty to disable")
	return c
}

func (a *app) serve(uiDir string) error {
	cfg := a.cfg

	slog.Info("observatoire starting",
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"backend", cfg.Store.Backend,
		"auth_mode", cfg.Auth.Mode,
		"cooldown", cfg.RateLimit.Cooldown,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	be, err := openBackend(ctx, cfg.Store, true)
	if err != nil {
		return err
	}
	defer be.close()

	client, err := scraper.New(cfg.PageSpeed, cfg.Carbon)
	if err != nil {
		return err
	}
	if !client.Configured() {
		slog.Warn("PageSpeed API key not set, refreshes will be refused", "env", cfg.PageSpeed.KeyEnv)
	}

	// Rate-limit table with background eviction.
	limiter := ratelimit.New(cfg.RateLimit.Cooldown)
	go limiter.Run(ctx)

	tokens := auth.NewIssuer(cfg.Auth.Mode, cfg.Auth.Secret())
	identify := auth.ClientIP(cfg.Server.TrustProxy)
	metrics := telemetry.New()

	orch := refresh.New(limiter, client, be)
	handler := api.New(be, orch, tokens, identify, metrics)

	hub := ws.New(handler, cfg.WebSocket.Tick)
	go hub.Run(ctx)

	notifier := notify.New(cfg.Notify.Webhooks)
	orch.OnRefreshed(func(subject string, audit domain.AuditResult) {
		slog.Info("agency refreshed", "url", subject, "date", audit.Date)
		hub.Notify()
		notifier.Refreshed(subject, audit)
	})

	metrics.GaugeFunc("observatoire_ws_clients", "Connected leaderboard websocket clients.",
		func() float64 { return float64(hub.Count()) })
	metrics.GaugeFunc("observatoire_ratelimit_entries", "Live rate-limit entries.",
		func() float64 { return float64(limiter.Count()) })

	// Hot reload: cooldown and token secret follow the file.
	go func() {
		err := config.Watch(ctx, a.configPath, func(updated *config.Config) {
			limiter.SetCooldown(updated.RateLimit.Cooldown)
			tokens.Configure(updated.Auth.Mode, updated.Auth.Secret())
			slog.Info("config hot-reloaded",
				"cooldown", updated.RateLimit.Cooldown,
				"auth_mode", updated.Auth.Mode,
			)
		})
		if err != nil {
			slog.Warn("config watcher stopped", "err", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.Server.GRPCPort != 0 {
		checker := healthcheck.New(be, healthcheck.DefaultInterval)
		grpcSrv = grpc.NewServer()
		checker.Register(grpcSrv)
		go checker.Run(ctx)

		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("listen on gRPC port %d: %w", cfg.Server.GRPCPort, err)
		}
		go func() {
			slog.Info("gRPC health listening", "port", cfg.Server.GRPCPort)
			if err := grpcSrv.Serve(lis); err != nil {
				slog.Error("gRPC server stopped", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           newRouter(handler, hub, metrics, tokens, identify, uiDir),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("observatoire shutting down")
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	err = httpSrv.Shutdown(shutdownCtx)
	notifier.Wait()
	return err
}

// newRouter mounts the REST API, the websocket stream, /metrics and the
// optional static front-end on one router.
func newRouter(handler http.Handler, hub http.Handler, metrics http.Handler, tokens *auth.Issuer, identify auth.IdentityFunc, uiDir string) http.Handler {
	r := chi.NewRouter()
	// Handle, not Mount: the API router matches on the full /api/v1 path.
	r.Handle("/api/*", handler)
	r.With(tokens.Require(auth.ScopeRead, identify)).Get("/ws/leaderboard", hub.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", metrics)

	if uiDir != "" {
		r.Get("/*", spaHandler(uiDir))
		slog.Info("serving UI static files", "dir", uiDir)
	}
	return r
}

// spaHandler serves files from dir and falls back to index.html for any
// path that does not exist, so client-side routes resolve.
func spaHandler(dir string) http.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		files.ServeHTTP(w, r)
	}
}
