package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ryanzhouuu/Vintdex/config"
	httpDelivery "github.com/ryanzhouuu/Vintdex/internal/delivery/http"
	"github.com/ryanzhouuu/Vintdex/internal/domain"
	"github.com/ryanzhouuu/Vintdex/internal/infrastructure/cache"
	"github.com/ryanzhouuu/Vintdex/internal/infrastructure/ebay"
	"github.com/ryanzhouuu/Vintdex/internal/infrastructure/extractor"
	"github.com/ryanzhouuu/Vintdex/internal/infrastructure/storage"
	"github.com/ryanzhouuu/Vintdex/internal/usecase"
	"github.com/ryanzhouuu/Vintdex/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Msg("starting vintdex backend")

	// Discovery cache: in-process map by default, redis when configured.
	var listingCache domain.CacheRepository
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		listingCache = redisCache
	default:
		listingCache = cache.NewMemoryCache()
	}

	ebayClient := ebay.NewClient(cfg.Ebay.BaseURL, cfg.Ebay.RateLimit, cfg.Ebay.Burst, log)

	extractorClient := extractor.NewClient(extractor.Config{
		BaseURL:    cfg.Extractor.BaseURL,
		Model:      cfg.Extractor.Model,
		Dimensions: cfg.Extractor.Dimensions,
		Timeout:    cfg.Extractor.Timeout,
	}, log)
	imageFetcher := extractor.NewHTTPFetcher(cfg.Extractor.Timeout)

	// Persistence is optional: without a DSN results are returned but
	// not recorded.
	var store domain.ValuationStore
	if cfg.Storage.PostgresDSN != "" {
		pgStore, err := storage.NewPostgresStore(cfg.Storage.PostgresDSN, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure postgres schema")
		}
		store = pgStore
		log.Info().Msg("postgres persistence enabled")
	} else {
		log.Info().Msg("postgres DSN not set, valuations will not be persisted")
	}

	trackingService := usecase.NewTrackingService(
		ebayClient,
		extractorClient,
		imageFetcher,
		store,
		listingCache,
		usecase.TrackingConfig{
			AcceptanceThreshold: cfg.Pipeline.AcceptanceThreshold,
			ConfidenceBuckets: usecase.ConfidenceBuckets{
				High: cfg.Pipeline.ConfidenceHigh,
				Mid:  cfg.Pipeline.ConfidenceMid,
				Low:  cfg.Pipeline.ConfidenceLow,
			},
			ResultCount:        cfg.Pipeline.ResultCount,
			CategoryID:         cfg.Pipeline.CategoryID,
			ScoringConcurrency: cfg.Pipeline.ScoringConcurrency,
			PhaseTimeout:       cfg.Pipeline.Timeout,
			CacheTTL:           cfg.Cache.TTL,
		},
		log,
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(trackingService, extractorClient.Ready, log)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, log)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("server listening")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
