package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/backend"
	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/config"
	"github.com/noah-isme/storefront/internal/lock"
	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/repo"
	"github.com/noah-isme/storefront/internal/resilience"
)

func openRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if cfg.Obs.TracingEnabled {
		if err := redisotel.InstrumentTracing(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "storefront"

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := repo.Migrate(cfg.DatabaseURL); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func newBackendClient(cfg *config.Config, logger zerolog.Logger) *backend.Client {
	breaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("backend").
		WithLogger(logger)
	return &backend.Client{
		BaseURL: cfg.BackendURL,
		APIKey:  cfg.BackendAPIKey,
		HTTP: resilience.HTTPClient{
			Client:      backend.NewHTTPClient(cfg.BackendTimeout),
			Breaker:     breaker,
			BaseBackoff: 200 * time.Millisecond,
			MaxAttempts: cfg.BackendMaxAttempts,
			Jitter:      0.2,
			Timeout:     cfg.BackendTimeout,
		},
	}
}

func newMenuSource(cfg *config.Config, client *backend.Client) menu.Source {
	if cfg.MenuFile != "" {
		return menu.FileSource{Path: cfg.MenuFile}
	}
	return menu.HTTPSource{Client: client}
}

func newPersister(cfg *config.Config, rdb *redis.Client, pool *pgxpool.Pool) (cart.Persister, error) {
	switch cfg.CartStore {
	case config.CartStoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("cart store %q requires redis", cfg.CartStore)
		}
		return cart.RedisPersister{R: rdb, TTL: cfg.CartRedisTTL}, nil
	case config.CartStorePostgres:
		if pool == nil {
			return nil, fmt.Errorf("cart store %q requires a database", cfg.CartStore)
		}
		return repo.CartSnapshots{Q: pool}, nil
	default:
		return cart.FilePersister{Dir: cfg.CartStoreDir}, nil
	}
}

func newLocker(rdb *redis.Client) checkout.Locker {
	if rdb == nil {
		return &lock.Local{}
	}
	return lock.Locker{R: rdb, Prefix: "storefront:lock:"}
}

// purgeSnapshots removes stale Postgres carts until ctx is done.
func purgeSnapshots(ctx context.Context, snapshots repo.CartSnapshots, maxAge time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := snapshots.Purge(ctx, maxAge)
			if err != nil {
				logger.Error().Err(err).Msg("purge cart snapshots")
				continue
			}
			if n > 0 {
				logger.Info().Int64("removed", n).Msg("purged stale cart snapshots")
			}
		}
	}
}
