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

	"github.com/rs/zerolog/log"

	"github.com/drnexus/medicaldashboard/backend/internal/adapters/cache"
	"github.com/drnexus/medicaldashboard/backend/internal/adapters/database"
	"github.com/drnexus/medicaldashboard/backend/internal/adapters/dataset"
	"github.com/drnexus/medicaldashboard/backend/internal/adapters/events"
	"github.com/drnexus/medicaldashboard/backend/internal/adapters/preferences"
	searchadapter "github.com/drnexus/medicaldashboard/backend/internal/adapters/search"
	"github.com/drnexus/medicaldashboard/backend/internal/api/handlers"
	"github.com/drnexus/medicaldashboard/backend/internal/api/middleware"
	"github.com/drnexus/medicaldashboard/backend/internal/api/routes"
	"github.com/drnexus/medicaldashboard/backend/internal/application/services"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/repositories"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/clients/postgres"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/clients/redis"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/clients/typesense"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
	"github.com/drnexus/medicaldashboard/backend/internal/search"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
	"github.com/drnexus/medicaldashboard/backend/pkg/config"
	"github.com/drnexus/medicaldashboard/backend/pkg/retry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)

	// Set up context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Redis backs the response cache, event bus and preferences. Without it
	// everything runs in process.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis, retry.OptionalConfig())
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-memory cache, event bus and preferences")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
		prefsRepo     repositories.PreferencesRepository
	)
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient.Client())
		prefsRepo = preferences.NewRedisRepository(redisClient.Client())
	} else {
		cacheProvider = cache.NewMemoryAdapter()
		eventBus = events.NewMemoryEventBus()
		prefsRepo = preferences.NewMemoryRepository()
	}

	// Postgres is required only for the postgres dataset source
	var snapshots *database.SnapshotAdapter
	if cfg.Database.Enabled {
		retryCfg := retry.OptionalConfig()
		if cfg.Dataset.Source == config.DatasetSourcePostgres {
			retryCfg = retry.DefaultConfig()
		}
		pgClient, err := postgres.NewClient(ctx, &cfg.Database, retryCfg)
		if err != nil {
			log.Warn().Err(err).Msg("PostgreSQL unavailable")
		} else {
			defer pgClient.Close()
			snapshots = database.NewSnapshotAdapter(pgClient, cfg.Dataset.Snapshot, metrics)
			if err := snapshots.EnsureSchema(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to ensure snapshot schema")
			}
		}
	}

	var snapshotSource providers.DatasetSource
	if snapshots != nil {
		snapshotSource = snapshots
	}
	source, err := dataset.SourceFor(cfg.Dataset, snapshotSource)
	if err != nil {
		log.Warn().Err(err).Msg("Configured dataset source unavailable, serving the bundled dataset")
		source = dataset.NewBundledSource()
	}

	// Store, search and services
	st := store.New()
	engine := search.NewEngine()
	datasetService := services.NewDatasetService(source, st, engine, eventBus, metrics)

	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense, retry.OptionalConfig())
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, search export disabled")
		} else if err := tsClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema, search export disabled")
		} else {
			datasetService.WithExporter(searchadapter.NewTypesenseExporter(tsClient))
		}
	}

	timelineService := services.NewTimelineService(st, eventBus, metrics, cfg.Timeline)
	dashboardService := services.NewDashboardService(st)
	searchService := services.NewSearchService(engine, prefsRepo, metrics, cfg.Search.ResultLimit)
	preferencesService := services.NewPreferencesService(prefsRepo)

	if _, err := datasetService.Load(ctx); err != nil {
		log.Error().Err(err).Str("source", source.Name()).Msg("Initial dataset load failed, serving the bundled dataset")
		ds, err := dataset.NewBundledSource().Load(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Bundled dataset is unreadable")
		}
		if _, err := st.Load(ds); err != nil {
			log.Fatal().Err(err).Msg("Bundled dataset was rejected")
		}
	}

	go timelineService.Run(ctx)

	// Handlers and router
	var cacheMiddleware *middleware.CacheMiddleware
	if cfg.Cache.Enabled {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, st.Version, metrics, cfg.Cache.TTLSeconds)
	}

	router := routes.NewRouter(
		handlers.NewDashboardHandler(dashboardService),
		handlers.NewTimelineHandler(timelineService, dashboardService),
		handlers.NewSearchHandler(searchService),
		handlers.NewPreferencesHandler(preferencesService),
		handlers.NewAdminHandler(datasetService),
		handlers.NewSSEHandler(eventBus, timelineService),
		cacheMiddleware,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No write timeout: timeline streams stay open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", serverAddr).
			Str("dataset_source", source.Name()).
			Bool("redis", redisClient != nil).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
