package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/brightsprout/storefront-api/internal/languages"
	"github.com/brightsprout/storefront-api/internal/platform/config"
	"github.com/brightsprout/storefront-api/internal/platform/metrics"
	"github.com/brightsprout/storefront-api/internal/repositories"
	"github.com/brightsprout/storefront-api/internal/repositories/file"
	"github.com/brightsprout/storefront-api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled in NewContainer.
type Services struct {
	Storefront services.StorefrontService
	Sessions   services.FilterSessionService
	System     services.SystemService
}

// Container wires repositories, services, and supporting infrastructure
// for runtime use.
type Container struct {
	Config    config.Config
	Catalog   *file.CatalogRepository
	Languages *languages.Cache
	Services  Services
}

// NewContainer constructs the runtime dependencies from configuration.
// The language cache is nil when no upstream base URL is configured.
func NewContainer(cfg config.Config, logger *zap.Logger, metricSet *metrics.Metrics) (*Container, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	catalog, err := file.NewCatalogRepository(cfg.Catalog.Path,
		file.WithLogger(logger.Named("catalog")),
	)
	if err != nil {
		return nil, fmt.Errorf("load product catalog: %w", err)
	}

	var languageCache *languages.Cache
	if cfg.Languages.BaseURL != "" {
		client := languages.NewClient(cfg.Languages.BaseURL,
			languages.WithHTTPClient(&http.Client{Timeout: cfg.Languages.RequestTimeout}),
		)
		cacheOpts := []languages.CacheOption{languages.WithTTL(cfg.Languages.CacheTTL)}
		if metricSet != nil {
			cacheOpts = append(cacheOpts, languages.WithObserver(metricSet.LanguageCacheHit, metricSet.LanguageCacheMiss))
		}
		languageCache = languages.NewCache(client, cacheOpts...)
		// A fresh catalog may change the slugs we report languages for.
		catalog.OnReload(languageCache.InvalidateAll)
	}

	storefront, err := services.NewStorefrontService(services.StorefrontServiceDeps{
		Products: catalog,
		Clock:    time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise storefront service: %w", err)
	}

	sessions, err := services.NewFilterSessionService(services.FilterSessionServiceDeps{
		Clock:          time.Now,
		Logger:         logger.Named("sessions"),
		TTL:            cfg.Sessions.TTL,
		DebounceWindow: cfg.Sessions.DebounceWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	healthRepo, err := repositories.NewHealthRepository(dependencyChecks(catalog, cfg.Languages))
	if err != nil {
		return nil, fmt.Errorf("initialise health repository: %w", err)
	}
	system, err := services.NewSystemService(services.SystemServiceDeps{Health: healthRepo})
	if err != nil {
		return nil, fmt.Errorf("initialise system service: %w", err)
	}

	return &Container{
		Config:    cfg,
		Catalog:   catalog,
		Languages: languageCache,
		Services: Services{
			Storefront: storefront,
			Sessions:   sessions,
			System:     system,
		},
	}, nil
}

func dependencyChecks(catalog *file.CatalogRepository, langCfg config.LanguagesConfig) []repositories.DependencyCheck {
	checks := []repositories.DependencyCheck{
		{
			Name: "catalog",
			Check: func(ctx context.Context) error {
				_, err := catalog.ListProducts(ctx)
				return err
			},
		},
	}
	if langCfg.BaseURL != "" {
		probeClient := &http.Client{Timeout: langCfg.RequestTimeout}
		checks = append(checks, repositories.DependencyCheck{
			Name:    "languages",
			Timeout: langCfg.RequestTimeout,
			Check: func(ctx context.Context) error {
				req, err := http.NewRequestWithContext(ctx, http.MethodHead, langCfg.BaseURL, nil)
				if err != nil {
					return err
				}
				resp, err := probeClient.Do(req)
				if err != nil {
					return err
				}
				_ = resp.Body.Close()
				if resp.StatusCode >= http.StatusInternalServerError {
					return fmt.Errorf("languages upstream returned %d", resp.StatusCode)
				}
				return nil
			},
		})
	}
	return checks
}
