// Package main implements the entry point for the datamall service.
// Datamall aggregates per-user streams and events across pluggable
// backend stores and exposes the high-frequency series surface over HTTP.
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

	"github.com/c360/datamall/access"
	"github.com/c360/datamall/config"
	"github.com/c360/datamall/eventtypes"
	"github.com/c360/datamall/gateway/serieshttp"
	"github.com/c360/datamall/health"
	"github.com/c360/datamall/mall"
	"github.com/c360/datamall/metric"
	"github.com/c360/datamall/natsclient"
	"github.com/c360/datamall/pkg/retry"
	"github.com/c360/datamall/series/duckdb"
	"github.com/c360/datamall/series/metacache"
	"github.com/c360/datamall/store/memstore"
	"github.com/c360/datamall/store/sqlite"
	"github.com/c360/datamall/transform"
)

const (
	version   = "0.1.0"
	buildTime = "dev"
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

	if cliCfg.ShowVersion {
		fmt.Printf("datamall %s (built %s)\n", version, buildTime)
		return nil
	}

	if err := validateFlags(cliCfg); err != nil {
		return err
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// CLI flags override the file for logging only.
	logLevel := cfg.Logging.Level
	if cliCfg.LogLevel != "" {
		logLevel = cliCfg.LogLevel
	}
	logFormat := cfg.Logging.Format
	if cliCfg.LogFormat != "" {
		logFormat = cliCfg.LogFormat
	}
	logger := setupLogger(logLevel, logFormat)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("Configuration valid", "path", cliCfg.ConfigPath)
		return nil
	}

	logger.Info("Starting datamall",
		"version", version,
		"config", cliCfg.ConfigPath,
		"stores", len(cfg.Stores)+1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	if cfg.Metrics.Port > 0 {
		metricsServer := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				logger.Warn("Metrics server shutdown failed", "error", err)
			}
		}()
		logger.Info("Metrics server started", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
	}

	var natsClient *natsclient.Client
	if cfg.NATS.URL != "" {
		natsClient, err = retry.DoWithResult(ctx, retry.Startup(), func() (*natsclient.Client, error) {
			return natsclient.Connect(cfg.NATS.URL,
				natsclient.WithName(cfg.NATS.Name),
				natsclient.WithLogger(logger),
				natsclient.WithMetrics(metrics),
			)
		})
		if err != nil {
			return fmt.Errorf("connect NATS: %w", err)
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			if err := natsClient.Close(closeCtx); err != nil {
				logger.Warn("NATS shutdown failed", "error", err)
			}
		}()
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	}

	localStore, err := sqlite.Open(sqlite.DefaultConfig(cfg.Local.SQLitePath), logger)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer func() {
		if err := localStore.Close(); err != nil {
			logger.Warn("Local store shutdown failed", "error", err)
		}
	}()

	tr := transform.New(
		transform.WithIntegrity(cfg.Integrity.WriteDigests),
		transform.WithReadVerification(cfg.Integrity.VerifyOnRead),
	)

	mallOpts := []mall.Option{
		mall.WithLogger(logger),
		mall.WithMetrics(metrics),
		mall.WithTransformer(tr),
	}
	if natsClient != nil {
		mallOpts = append(mallOpts, mall.WithChangeNotifier(natsClient))
	}
	m := mall.New(mallOpts...)

	if err := m.AddStore(localStore); err != nil {
		return fmt.Errorf("register local store: %w", err)
	}
	for _, sc := range cfg.Stores {
		// Validate has already restricted Type to "memory".
		if err := m.AddStore(memstore.New(sc.ID, sc.Name)); err != nil {
			return fmt.Errorf("register store %q: %w", sc.ID, err)
		}
	}
	if err := m.Init(); err != nil {
		return fmt.Errorf("initialize mall: %w", err)
	}
	logger.Info("Mall initialized", "stores", m.StoreIDs())

	backend, err := duckdb.New(duckdb.Config{
		DSN:          cfg.Series.DuckDBPath,
		MaxOpenConns: cfg.Series.MaxOpenConns,
	}, logger)
	if err != nil {
		return fmt.Errorf("open series backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("Series backend shutdown failed", "error", err)
		}
	}()

	typeRepo := eventtypes.NewRepository(nil, eventtypes.WithLogger(logger))
	if cfg.Types.SourceURL != "" {
		if err := typeRepo.TryUpdate(ctx, cfg.Types.SourceURL); err != nil {
			logger.Warn("Type catalog update failed, keeping built-in catalog",
				"url", cfg.Types.SourceURL, "error", err)
		}
	}

	resolver := access.NewStaticResolver()
	for _, tok := range cfg.Auth.Tokens {
		a := &access.Access{ID: tok.AccessID, Personal: tok.Personal}
		for _, p := range tok.Permissions {
			a.Permissions = append(a.Permissions, access.Permission{
				StreamID: p.StreamID,
				Level:    access.ParseLevel(p.Level),
			})
		}
		resolver.Add(tok.Token, a)
	}

	meta, err := metacache.New(ctx, metacache.Config{
		TTL:             time.Duration(cfg.Cache.TTL),
		CleanupInterval: time.Duration(cfg.Cache.CleanupInterval),
		MaxEntries:      cfg.Cache.MaxEntries,
		Resolver:        resolver,
		Events:          m.Events(),
		Types:           typeRepo,
		Backend:         backend,
		Logger:          logger,
		Metrics:         metrics,
		Registry:        registry,
	})
	if err != nil {
		return fmt.Errorf("create series metadata cache: %w", err)
	}
	if natsClient != nil {
		if err := meta.Bind(natsClient); err != nil {
			return fmt.Errorf("bind change notifications: %w", err)
		}
	}

	monitor := health.NewMonitor(health.WithLogger(logger))
	monitor.Register("local-store", localStore.Ping)
	monitor.Register("series-backend", backend.Ping)
	if natsClient != nil {
		monitor.Register("change-bus", func(ctx context.Context) error {
			if !natsClient.IsConnected() {
				return fmt.Errorf("nats connection down")
			}
			return nil
		})
	}

	httpCfg := serieshttp.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     time.Duration(cfg.HTTP.ReadTimeout),
		WriteTimeout:    time.Duration(cfg.HTTP.WriteTimeout),
		ShutdownTimeout: time.Duration(cfg.HTTP.ShutdownTimeout),
		MaxBodyBytes:    cfg.HTTP.MaxBodyBytes,
	}
	server, err := serieshttp.NewServer(httpCfg, meta, backend,
		serieshttp.WithLogger(logger),
		serieshttp.WithMetrics(metrics),
		serieshttp.WithHealth(monitor.Handler()),
	)
	if err != nil {
		return fmt.Errorf("create series server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Series HTTP server starting", "addr", cfg.HTTP.Addr)
		serverErr <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("series server: %w", err)
		}
		return nil
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
	defer stopCancel()
	if err := server.Stop(stopCtx); err != nil {
		logger.Error("Series server shutdown failed", "error", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
