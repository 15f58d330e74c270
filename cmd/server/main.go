package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/relicforge/relic-server-go/internal/catalog"
	"github.com/relicforge/relic-server-go/internal/config"
	"github.com/relicforge/relic-server-go/internal/events"
	"github.com/relicforge/relic-server-go/internal/logging"
	"github.com/relicforge/relic-server-go/internal/metrics"
	"github.com/relicforge/relic-server-go/internal/server"
	"github.com/relicforge/relic-server-go/internal/session"
	"github.com/relicforge/relic-server-go/internal/store"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting relic server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	defs, err := catalog.Default()
	if err != nil {
		logger.Fatal("failed to load bundled catalog", zap.Error(err))
	}
	extra, err := catalog.LoadPaths(cfg.Catalog.Paths)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	defs = append(defs, extra...)

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to open document store", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(registry)

	bus := events.NewEventBus()
	collector.Attach(bus)
	hub := server.NewHub(logger)
	hub.Attach(bus)
	go hub.Run(ctx)

	sess, err := session.Open(ctx, session.Options{
		Store:                  st,
		Bus:                    bus,
		Logger:                 logger,
		Catalog:                defs,
		StrictAdapterDetection: cfg.Engine.StrictAdapterDetection,
		SheetType:              cfg.Engine.SheetType,
	})
	if err != nil {
		logger.Fatal("failed to open session", zap.Error(err))
	}
	collector.SetActive(len(sess.AllEffects()))

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.New(sess, hub, registry, version, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(serveErr))
			sigChan <- syscall.SIGTERM
		}
	}()

	logger.Info("relic server initialized",
		zap.String("version", version),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Int("effects", len(sess.Catalog())),
		zap.Int("characters", len(sess.Characters())),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	cancel()

	if err := sess.Save(shutdownCtx); err != nil {
		logger.Error("final save failed", zap.Error(err))
	}
	if err := sess.Close(); err != nil {
		logger.Warn("failed to close document store", zap.Error(err))
	}

	logger.Info("relic server stopped")
}
