package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/conduit-lang/autocrud/internal/cli/config"
	"github.com/conduit-lang/autocrud/internal/orm/crud"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/store"
	"github.com/conduit-lang/autocrud/internal/web/actions"
	"github.com/conduit-lang/autocrud/internal/web/auth"
	"github.com/conduit-lang/autocrud/internal/web/cache"
	"github.com/conduit-lang/autocrud/internal/web/middleware"
	"github.com/conduit-lang/autocrud/internal/web/ratelimit"
	"github.com/conduit-lang/autocrud/internal/web/router"
)

// App is the HTTP application assembled from a configuration and a
// registry: store, response cache, middleware and one viewset per
// resource.
type App struct {
	Router   *router.Router
	Store    store.Store
	ViewSets []*actions.ViewSet
	Auth     *auth.AuthService

	closers []func() error
}

// NewApp opens the configured store and cache backend and mounts every
// resource of registry. Resources are released by Close.
func NewApp(ctx context.Context, cfg *config.Config, registry *schema.Registry, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Router: router.NewRouter()}

	st, err := app.openStore(ctx, cfg.Database, registry, logger)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.Store = st

	responseCache, err := app.openCache(ctx, cfg.Cache, logger)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	app.Router.Use(
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Recovery(logger),
	)

	if cfg.Auth.JWTSecret != "" {
		service, err := auth.NewAuthService(cfg.Auth.JWTSecret, time.Hour)
		if err != nil {
			app.Close(ctx)
			return nil, err
		}
		app.Auth = service
		app.Router.Use(middleware.AuthWithConfig(middleware.AuthConfig{
			Service:    service,
			WritesOnly: cfg.Auth.ProtectWrites,
		}))
	}

	limiter, err := app.openLimiter(ctx, cfg.RateLimit, logger)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	if limiter != nil {
		app.Router.Use(middleware.RateLimit(limiter, logger))
	}

	viewsets, err := actions.Mount(app.Router, registry, actions.MountConfig{
		Store:         st,
		Logger:        logger,
		ResponseCache: responseCache,
	})
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.ViewSets = viewsets

	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg config.DatabaseConfig, registry *schema.Registry, logger *zap.Logger) (store.Store, error) {
	if cfg.Driver == "memory" {
		logger.Info("using in-memory store")
		return store.NewMemory(), nil
	}

	sqlStore, err := crud.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, sqlStore.Close)

	if cfg.AutoMigrate {
		if err := sqlStore.AutoMigrate(ctx, registry); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	logger.Info("connected to database",
		zap.String("driver", cfg.Driver),
		zap.Bool("auto_migrate", cfg.AutoMigrate),
	)
	return sqlStore, nil
}

func (a *App) openCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (*cache.ResponseCache, error) {
	var backend cache.Cache
	switch cfg.Driver {
	case "memory":
		backend = cache.NewMemoryCache()
	case "redis":
		redisConfig := cache.DefaultRedisConfig()
		redisConfig.Addr = cfg.RedisAddr
		redisCache, err := cache.NewRedisCache(ctx, redisConfig)
		if err != nil {
			return nil, err
		}
		backend = redisCache
	default:
		return nil, nil
	}
	a.closers = append(a.closers, backend.Close)

	logger.Info("response cache enabled",
		zap.String("driver", cfg.Driver),
		zap.Duration("ttl", cfg.TTL),
	)
	return cache.NewResponseCache(backend, cfg.TTL, logger), nil
}

func (a *App) openLimiter(ctx context.Context, cfg config.RateLimitConfig, logger *zap.Logger) (ratelimit.Limiter, error) {
	limits := ratelimit.Config{Limit: cfg.Requests, Window: cfg.Window}

	var limiter ratelimit.Limiter
	switch cfg.Driver {
	case "memory":
		tb, err := ratelimit.NewTokenBucket(limits)
		if err != nil {
			return nil, err
		}
		limiter = tb
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		rl, err := ratelimit.NewRedisLimiter(client, limits, "autocrud:ratelimit:")
		if err != nil {
			client.Close()
			return nil, err
		}
		limiter = rl
	default:
		return nil, nil
	}
	a.closers = append(a.closers, limiter.Close)

	logger.Info("rate limiting enabled",
		zap.String("driver", cfg.Driver),
		zap.Int("requests", cfg.Requests),
		zap.Duration("window", cfg.Window),
	)
	return limiter, nil
}

// ServeHTTP implements http.Handler
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Router.ServeHTTP(w, r)
}

// Close releases the store and cache backend in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
