// Package main is the entrypoint for the partsync API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wbrandsma/partsync/internal/api"
	"github.com/wbrandsma/partsync/internal/api/handler"
	mw "github.com/wbrandsma/partsync/internal/api/middleware"
	"github.com/wbrandsma/partsync/internal/assist"
	"github.com/wbrandsma/partsync/internal/cache"
	"github.com/wbrandsma/partsync/internal/config"
	"github.com/wbrandsma/partsync/internal/store"
	syncpkg "github.com/wbrandsma/partsync/internal/sync"
	"github.com/wbrandsma/partsync/internal/zuper"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"category", cfg.Sync.Category,
		"sync_interval", cfg.Sync.Interval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store, scoped to the configured category and region
	pgStore := store.NewPostgresStore(pool, cfg.Sync.Category, cfg.Sync.Bounds)

	// 6. Create upstream client and sync manager
	zuperClient := zuper.NewHTTPClient(
		cfg.Zuper.BaseURL,
		cfg.Zuper.APIKey,
		cfg.Zuper.OrgUID,
		cfg.Zuper.Timeout,
		cfg.Zuper.PageSize,
		cfg.Zuper.RequestsPerMinute,
		zuper.DefaultPolicy(cfg.Zuper.MaxRetries, cfg.Zuper.RetryBaseDelay, cfg.Zuper.RetryMaxDelay),
	)
	normalizer := syncpkg.NewNormalizer(cfg.Sync.Category, cfg.Sync.Bounds)
	manager := syncpkg.NewManager(pgStore, zuperClient, redisCache, normalizer, cfg.Sync.Category, logger)

	if cfg.Sync.Interval > 0 {
		go runScheduler(ctx, manager, cfg.Sync.Interval)
		slog.Info("background sync scheduler started", "interval", cfg.Sync.Interval)
	}

	// 7. Create the optional assist service
	var provider assist.Provider
	if cfg.Assist.AnthropicAPIKey != "" {
		provider = assist.NewAnthropicProvider(cfg.Assist)
		slog.Info("assist provider initialized", "provider", provider.Name(), "model", provider.Model())
	} else {
		slog.Info("assist disabled: no API key configured")
	}
	assistSvc := assist.NewService(provider, pgStore, redisCache, cfg.Assist.Timeout)

	// 8. Build router with dependencies
	router := api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, 60),

		HealthHandler:       handler.NewHealthHandler(pgStore, redisCache),
		ListJobsHandler:     handler.NewListJobsHandler(pgStore),
		GetJobHandler:       handler.NewGetJobHandler(pgStore),
		LookupJobsHandler:   handler.NewLookupJobsHandler(pgStore),
		StatsHandler:        handler.NewStatsHandler(pgStore, redisCache),
		SummarizeJobHandler: handler.NewSummarizeJobHandler(assistSvc),
		TriggerSyncHandler:  handler.NewTriggerSyncHandler(manager),
		ListSyncRunsHandler: handler.NewListSyncRunsHandler(pgStore),
		CreateKeyHandler:    handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:     handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler:    handler.NewRevokeKeyHandler(pgStore),
	})

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// runScheduler triggers a sync on a fixed interval until ctx is canceled.
// A run rejected because another is in flight is logged and retried on the
// next tick rather than treated as fatal.
func runScheduler(ctx context.Context, manager *syncpkg.Manager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run, err := manager.Run(ctx)
			switch {
			case errors.Is(err, syncpkg.ErrSyncInProgress):
				slog.Warn("scheduled sync skipped: run already in progress")
			case err != nil:
				slog.Error("scheduled sync failed", "error", err)
			default:
				slog.Info("scheduled sync completed",
					"run_id", run.ID,
					"fetched", run.JobsFetched,
					"created", run.JobsCreated,
					"updated", run.JobsUpdated,
					"skipped", run.JobsSkipped)
			}
		}
	}
}
