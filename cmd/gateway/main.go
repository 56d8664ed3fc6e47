package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prof-ramos/astro-gateway/internal/astro"
	"github.com/prof-ramos/astro-gateway/internal/gateway"
	"github.com/prof-ramos/astro-gateway/internal/platform/cache"
	"github.com/prof-ramos/astro-gateway/internal/platform/config"
	"github.com/prof-ramos/astro-gateway/internal/platform/observability"
	"github.com/prof-ramos/astro-gateway/internal/platform/ratelimit"
	"github.com/prof-ramos/astro-gateway/internal/platform/worker"
)

const serviceName = "astro-gateway"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	configPath := os.Getenv("GATEWAY_CONFIG")
	cfg := config.MustLoad(configPath)

	// Setup observability (foundational - must be first)
	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	metrics := observability.NewCollector(cfg.Observability.Metrics.Strategy, serviceName, logger)

	tracer, err := observability.NewTracerProvider(ctx, serviceName, cfg.Observability.Tracing.Endpoint, cfg.Observability.Tracing.Enabled)
	if err != nil {
		log.Fatalf("Failed to create tracer: %v", err)
	}
	defer tracer.Shutdown(ctx)

	logger.Info("observability setup complete")

	// Cache manager: Redis when configured and reachable, in-memory
	// otherwise, pass-through when disabled. Never fatal.
	cacheManager := cache.NewManager(cache.Config{
		Enabled:       cfg.Cache.Enabled,
		RedisAddress:  cfg.Cache.RedisAddress,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		MaxEntries:    cfg.Cache.MaxEntries,
		DefaultTTL:    cfg.Cache.DefaultTTL,
		CategoryTTL: map[string]time.Duration{
			gateway.CategorySubject:  cfg.Cache.TTLSubjects,
			gateway.CategoryChart:    cfg.Cache.TTLCharts,
			gateway.CategoryTransits: cfg.Cache.TTLTransits,
		},
	}, logger)
	defer cacheManager.Close()

	// Rate limiter
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		Window:            cfg.RateLimit.Window,
		Retention:         cfg.RateLimit.Retention,
	}, logger)
	defer limiter.Close()

	// Bounded worker pool for the CPU-heavy computations
	pool := worker.NewPool(ctx, cfg.Workers.PoolSize, 0)
	defer pool.Close()

	// Computation backend and dispatcher
	dispatcher := gateway.NewDispatcher(gateway.DispatcherConfig{
		Backend: astro.NewEngine(),
		Cache:   cacheManager,
		Pool:    pool,
		Metrics: metrics,
		Tracer:  tracer,
		Logger:  logger,
	})

	compressionMin := 0
	if cfg.Compression.Enabled {
		compressionMin = cfg.Compression.MinimumSize
	}

	server := gateway.NewServer(gateway.ServerConfig{
		Dispatcher:         dispatcher,
		Limiter:            limiter,
		Metrics:            metrics,
		Logger:             logger,
		MetricsPath:        cfg.Observability.Metrics.Path,
		CompressionMinSize: compressionMin,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("gateway listening", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("gateway stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("gateway stopped")
}
