package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/zatekoja/hbnb/internal/adapters/backends"
	"github.com/zatekoja/hbnb/internal/adapters/cache"
	"github.com/zatekoja/hbnb/internal/adapters/events"
	"github.com/zatekoja/hbnb/internal/api/routes"
	"github.com/zatekoja/hbnb/internal/application/services"
	"github.com/zatekoja/hbnb/internal/domain/providers"
	"github.com/zatekoja/hbnb/internal/infrastructure/clients/redis"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
	"github.com/zatekoja/hbnb/pkg/config"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.GetLogger().Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := observability.GetLogger()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return err
	}

	backend, err := backends.Open(ctx, cfg, metrics)
	if err != nil {
		return err
	}

	var closers []namedCloser
	closers = append(closers, namedCloser{"storage", backend.Close})

	entityService := services.NewEntityService(backend)

	// Redis is optional: the API works without events or the stats cache
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	var invalidation *services.CacheInvalidationService
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, continuing without cache and events")
		} else {
			closers = append(closers, namedCloser{"redis", redisClient.Close})

			eventBus = events.NewRedisEventBus(redisClient)
			closers = append(closers, namedCloser{"event bus", eventBus.Close})
			entityService.SetEventBus(eventBus)

			cacheProvider = cache.NewRedisAdapter(redisClient)
			invalidation = services.NewCacheInvalidationService(cacheProvider, eventBus)
			if err := invalidation.Start(); err != nil {
				logger.Warn().Err(err).Msg("cache invalidation disabled")
				invalidation = nil
			}
			logger.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("redis initialized")
		}
	}

	statsService := services.NewStatsService(entityService, cacheProvider, metrics)
	if err := statsService.Warm(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to warm stats cache")
	}
	router := routes.NewRouter(entityService, entityService, statsService, cfg.CORS.AllowedOrigins, metrics)
	if eventBus != nil {
		router.EnableEventStream(eventBus)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if eventBus != nil {
		// Ends open event streams so Shutdown does not wait on them
		server.RegisterOnShutdown(func() {
			if err := eventBus.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close event bus")
			}
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("storage", backend.Name()).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	serveErr := g.Wait()

	if invalidation != nil {
		invalidation.Stop()
	}

	var result *multierror.Error
	if serveErr != nil {
		result = multierror.Append(result, serveErr)
	}
	if err := closeAll(closers); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
