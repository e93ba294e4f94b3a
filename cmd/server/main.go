package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aqualyx/geoanalyze/internal/alerts"
	"github.com/aqualyx/geoanalyze/internal/api"
	"github.com/aqualyx/geoanalyze/internal/auth"
	"github.com/aqualyx/geoanalyze/internal/compute"
	"github.com/aqualyx/geoanalyze/internal/config"
	"github.com/aqualyx/geoanalyze/internal/metrics"
	"github.com/aqualyx/geoanalyze/internal/rpc"
	"github.com/aqualyx/geoanalyze/internal/store"
	"github.com/aqualyx/geoanalyze/internal/ws"
	"github.com/aqualyx/geoanalyze/pkg/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file with API keys and webhook URLs")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// A missing .env is normal in containers where the environment is injected.
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read env file", "path", *envFile, "err", err)
	}

	slog.Info("geoanalyze-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"batch_ttl", cfg.Server.Batches.TTL,
		"alert_rules", len(cfg.Server.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine := compute.NewEngine(cfg.Analysis.Params())

	// Batch store with background TTL eviction.
	st := store.New(cfg.Server.Batches.TTL)
	go st.Run(ctx)

	alertEngine := alerts.New(cfg.Server.Alerts)
	recorder := &metrics.Recorder{}

	hub := ws.New(st, alertEngine, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	handler := api.New(api.Deps{
		Store:          st,
		Engine:         engine,
		Alerts:         alertEngine,
		Metrics:        recorder,
		Schema:         cfg.Analysis.Schema(),
		MaxUploadBytes: cfg.Server.Batches.MaxUploadBytes,
		OnBatch:        func(*types.Batch) { hub.Notify() },
	})

	// Analysis settings hot-reload; server settings need a restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			engine.SetParams(next.Analysis.Params())
			handler.SetSchema(next.Analysis.Schema())
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
	}()

	// gRPC health endpoint with optional API key authentication.
	header := cfg.Server.Auth.EffectiveHeader()
	rpcSrv := rpc.New(cfg.Server.Auth.Mode, header, cfg.Server.Auth.Key())

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		slog.Error("failed to listen on gRPC port",
			"port", cfg.Server.GRPCPort, "err", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("gRPC health listening", "port", cfg.Server.GRPCPort)
		if err := rpcSrv.GRPC.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	// Combined HTTP server: REST API, metrics and WebSocket hub on HTTPPort.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", handler)
	httpMux.Handle("/metrics", handler)
	httpMux.Handle("/ws/stream", hub)

	protect := auth.Middleware(cfg.Server.Auth.Mode, header, cfg.Server.Auth.Key(),
		"/api/v1/health", "/metrics")

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           protect(httpMux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("geoanalyze-server shutting down")
	rpcSrv.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
