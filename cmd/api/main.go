package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/brightsprout/storefront-api/internal/di"
	"github.com/brightsprout/storefront-api/internal/handlers"
	"github.com/brightsprout/storefront-api/internal/languages"
	"github.com/brightsprout/storefront-api/internal/platform/config"
	"github.com/brightsprout/storefront-api/internal/platform/metrics"
	"github.com/brightsprout/storefront-api/internal/platform/observability"
	"github.com/brightsprout/storefront-api/internal/services"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.WithEnvFile(".env"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	metricSet := metrics.New()

	container, err := di.NewContainer(cfg, logger, metricSet)
	if err != nil {
		logger.Fatal("failed to assemble dependencies", zap.Error(err))
	}

	if cfg.Catalog.Watch {
		go func() {
			if err := container.Catalog.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("catalog watcher stopped", zap.Error(err))
			}
		}()
	}
	if container.Languages != nil {
		go runLanguageSweeper(ctx, container.Languages, cfg.Languages.SweepInterval)
	} else {
		logger.Info("language availability lookups disabled: no upstream base URL configured")
	}
	go runSessionSweeper(ctx, logger, container.Services.Sessions, metricSet, cfg.Sessions)

	storefrontHandlers := handlers.NewStorefrontHandlers(
		handlers.WithStorefrontService(container.Services.Storefront),
		handlers.WithStorefrontMetrics(metricSet),
	)
	bookHandlers := handlers.NewBookHandlers(
		handlers.WithBookLanguageProvider(languageProvider(container.Languages)),
	)
	sessionHandlers := handlers.NewSessionHandlers(
		handlers.WithSessionService(container.Services.Sessions),
		handlers.WithSessionCreateLimit(cfg.RateLimits.SessionCreatesPerMinute, time.Now),
	)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthSystemService(container.Services.System),
		handlers.WithHealthVersion(version),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
			metricSet.Middleware(),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMetricsHandler(metricSet.Handler()),
		handlers.WithStorefrontRoutes(storefrontHandlers.Routes),
		handlers.WithBookRoutes(bookHandlers.Routes),
		handlers.WithSessionRoutes(sessionHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("storefront api listening",
			zap.String("addr", server.Addr),
			zap.String("version", version),
			zap.Bool("catalog_watch", cfg.Catalog.Watch),
			zap.Bool("languages_enabled", container.Languages != nil),
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown incomplete", zap.Error(err))
	}
	logger.Info("storefront api stopped")
}

// languageProvider turns a possibly-nil cache into a handler dependency.
// The book handlers treat a nil provider as "no availability data".
func languageProvider(cache *languages.Cache) handlers.LanguageProvider {
	if cache == nil {
		return nil
	}
	return cache
}

func runLanguageSweeper(ctx context.Context, cache *languages.Cache, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cache.Sweep(ctx, now, 0)
		}
	}
}

func runSessionSweeper(ctx context.Context, logger *zap.Logger, sessions services.FilterSessionService, metricSet *metrics.Metrics, cfg config.SessionConfig) {
	if cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := sessions.CleanupExpired(ctx, now, cfg.SweepBatchSize)
			if err != nil {
				logger.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("expired filter sessions removed", zap.Int("count", removed))
			}
			metricSet.SetActiveSessions(sessions.Count())
		}
	}
}
