// Package app assembles the storefront service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/auth"
	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/config"
	"github.com/noah-isme/storefront/internal/events"
	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/order"
	"github.com/noah-isme/storefront/internal/profile"
	"github.com/noah-isme/storefront/internal/repo"
	"github.com/noah-isme/storefront/internal/resilience"
)

// App holds the wired service and the resources it owns.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Handler  http.Handler
	Redis    *redis.Client
	DB       *pgxpool.Pool
	Sessions *cart.Sessions
	Menu     *menu.Service
	Checkout *checkout.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New connects the configured backing services and builds the HTTP handler.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
		if err := resilience.RegisterMetrics(nil); err != nil {
			return nil, fmt.Errorf("app: register backend metrics: %w", err)
		}
	}

	a := &App{Config: cfg, Logger: logger}
	var err error
	a.Redis, err = openRedis(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.CartStore == config.CartStorePostgres {
		a.DB, err = openPostgres(ctx, cfg)
		if err != nil {
			a.closeClients()
			return nil, err
		}
	}

	persister, err := newPersister(cfg, a.Redis, a.DB)
	if err != nil {
		a.closeClients()
		return nil, err
	}

	validate := validator.New()
	client := newBackendClient(cfg, logger)

	a.Menu = &menu.Service{
		Source:  newMenuSource(cfg, client),
		StoreID: cfg.StoreID,
		Cache:   menu.NewCache(a.Redis, cfg.MenuCacheTTL),
		Logger:  logger,
	}

	bus := &events.Bus{Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}}}
	if a.Redis != nil {
		bus.Store = &events.RedisStream{R: a.Redis, MaxLen: 10000}
	}

	a.Sessions = &cart.Sessions{
		Prefix:    cfg.CartStorageKey,
		Persister: persister,
		Logger:    logger,
		MaxOpen:   cfg.CartMaxSessions,
		OnOpen: func(_ context.Context, sessionID string, store *cart.Store) {
			store.Subscribe(events.CartObserver(bus, sessionID, logger))
		},
	}

	profiles := &profile.Service{Source: &profile.HTTPSource{Client: client}, Validate: validate}

	a.Checkout = &checkout.Service{
		Menu:     a.Menu,
		Builder:  &order.Builder{},
		Orders:   &order.RPCSubmitter{Client: client},
		Profiles: profiles,
		Locker:   newLocker(a.Redis),
		LockTTL:  cfg.CheckoutLockTTL,
		Events:   bus,
		Logger:   logger,
	}

	var verifier *auth.Verifier
	if cfg.AuthEnabled() {
		verifier = auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, 5*time.Second).WithRole(cfg.JWTRole)
	} else {
		logger.Warn().Msg("JWT_SECRET not set, checkout and profile endpoints will reject every request")
	}

	a.Handler, err = a.routes(routeDeps{
		auth:     auth.Middleware{Verifier: verifier},
		menu:     &menu.Handler{Service: a.Menu},
		cart:     &cart.Handler{Sessions: a.Sessions, Menu: a.Menu, Validate: validate, Currency: cfg.CurrencyCode},
		checkout: &checkout.Handler{Svc: a.Checkout, Sessions: a.Sessions, Currency: cfg.CurrencyCode},
		profile:  &profile.Handler{Service: profiles},
	})
	if err != nil {
		a.closeClients()
		return nil, err
	}

	if a.DB != nil && cfg.CartRedisTTL > 0 {
		jobCtx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			purgeSnapshots(jobCtx, repo.CartSnapshots{Q: a.DB}, cfg.CartRedisTTL, logger)
		}()
	}

	return a, nil
}

// Close stops background jobs and releases connections.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	a.closeClients()
}

func (a *App) closeClients() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("close redis")
		}
	}
}
