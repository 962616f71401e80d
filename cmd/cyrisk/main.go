// Package main implements the entry point for the cyrisk graph gateway.
// The gateway serves GraphQL queries and mutations over a predicate-bound
// entity graph, backed by either an in-memory store or a NATS query service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/champtc/opencti-sub001/config"
	"github.com/champtc/opencti-sub001/engine"
	"github.com/champtc/opencti-sub001/gateway/graphql"
	"github.com/champtc/opencti-sub001/metric"
	"github.com/champtc/opencti-sub001/natsclient"
	"github.com/champtc/opencti-sub001/storage"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "cyrisk"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting cyrisk gateway",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()
	return serve(ctx, cfg, cliCfg, logger)
}

func serve(ctx context.Context, cfg *config.Config, cliCfg *CLIConfig, logger *slog.Logger) error {
	thresholds, err := cfg.Thresholds()
	if err != nil {
		return fmt.Errorf("scoring thresholds: %w", err)
	}

	var metricsServer *metric.Server
	registry := metric.NewRegistry()
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path, registry)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		slog.Info("Metrics exposition started",
			"address", cfg.Metrics.Listen,
			"path", cfg.Metrics.Path)
	}

	store, natsClient, err := openStore(ctx, cfg, registry.Metrics, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if natsClient != nil {
		defer natsClient.Close()
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMetrics(registry.Metrics),
		engine.WithThresholds(thresholds),
	}
	if cfg.Platform.Namespace != "" {
		opts = append(opts, engine.WithNamespace(cfg.Platform.Namespace))
	}
	eng := engine.New(store, opts...)

	resolver := graphql.NewResolver(eng, nil, logger)
	gateway, err := graphql.NewServer(graphql.Config{
		BindAddress: cfg.Gateway.Listen,
		Timeout:     cfg.Gateway.RequestTimeout,
		EnableCORS:  true,
	}, resolver, logger)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return runWithSignalHandling(ctx, gateway, metricsServer, cliCfg.ShutdownTimeout)
}

// openStore builds the statement store named by the configuration. In nats
// mode the returned client is connected before the store is handed out.
func openStore(ctx context.Context, cfg *config.Config, metrics *metric.Metrics, logger *slog.Logger) (storage.Store, *natsclient.Client, error) {
	switch cfg.Store.Mode {
	case config.StoreModeMemory:
		slog.Info("Using in-memory statement store")
		return storage.NewMemStore(logger), nil, nil

	case config.StoreModeNATS:
		client := natsclient.NewClient(cfg.Store.NATS.URL,
			natsclient.WithName(appName),
			natsclient.WithMaxReconnects(cfg.Store.NATS.MaxReconnects),
			natsclient.WithReconnectWait(cfg.Store.NATS.ReconnectWait),
			natsclient.WithTimeout(cfg.Store.NATS.RequestTimeout),
			natsclient.WithLogger(logger),
		)

		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Connect(connCtx); err != nil {
			return nil, nil, fmt.Errorf("connect to NATS: %w", err)
		}
		metrics.RecordNATSStatus(true)

		slog.Info("Using NATS statement store",
			"url", cfg.Store.NATS.URL,
			"subject", cfg.Store.NATS.Subject)
		return storage.NewNATSStore(client, cfg.Store.NATS.Subject, logger), client, nil

	default:
		return nil, nil, fmt.Errorf("unknown store mode %q", cfg.Store.Mode)
	}
}

// runWithSignalHandling serves until SIGINT or SIGTERM, then shuts down the
// gateway and metrics listener within the shutdown timeout.
func runWithSignalHandling(ctx context.Context, gateway *graphql.Server, metricsServer *metric.Server, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- gateway.Start()
	}()

	slog.Info("cyrisk gateway started")

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("gateway listener: %w", err)
		}
		return nil
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := gateway.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("Metrics server shutdown failed", "error", err)
		}
	}

	slog.Info("cyrisk gateway shutdown complete")
	return nil
}
