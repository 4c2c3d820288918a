package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/storefront/internal/auth"
	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/health"
	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/profile"
	"github.com/noah-isme/storefront/internal/ratelimit"
	"github.com/noah-isme/storefront/internal/security"
	"github.com/noah-isme/storefront/internal/tenant"
)

type routeDeps struct {
	auth     auth.Middleware
	menu     *menu.Handler
	cart     *cart.Handler
	checkout *checkout.Handler
	profile  *profile.Handler
}

func (a *App) routes(d routeDeps) (http.Handler, error) {
	cfg := a.Config

	store, err := ratelimit.NewStore(a.Redis, "storefront:rl")
	if err != nil {
		return nil, fmt.Errorf("rate limit store: %w", err)
	}
	apiLimiter, err := ratelimit.New(store, cfg.APIRate)
	if err != nil {
		return nil, fmt.Errorf("API_RATE_LIMIT: %w", err)
	}
	checkoutLimiter, err := ratelimit.New(store, cfg.CheckoutRate)
	if err != nil {
		return nil, fmt.Errorf("CHECKOUT_RATE_LIMIT: %w", err)
	}
	onLimitErr := func(err error) { a.Logger.Warn().Err(err).Msg("rate limiter unavailable") }
	apiLimit := ratelimit.Handler{Limiter: apiLimiter, Scope: "api", Key: ratelimit.ByCaller, OnError: onLimitErr}
	checkoutLimit := ratelimit.Handler{Limiter: checkoutLimiter, Scope: "checkout", Key: ratelimit.ByCaller, OnError: onLimitErr}

	idem := common.Idem{R: a.Redis, TTL: cfg.IdempotencyTTL}
	stores := tenant.NewResolver(tenant.Header, cfg.StoreID)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Obs.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.Obs.MetricsEnabled {
		buckets := obs.ParseBucketsCSV(cfg.Obs.MetricsBucketsMS)
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, buckets, nil)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: a.Logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.CORS(allowedOrigins(cfg.CORSAllowedOrigins)))
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.Obs.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.Obs.PprofUser, cfg.Obs.PprofPass))
	}

	healthHandler := health.Handler{Probes: a.probes()}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(d.auth.Authenticate)
		v.Use(apiLimit.Middleware)
		v.Use(stores.Middleware)

		v.Get("/stores", d.menu.Stores)
		v.Get("/menu", d.menu.Menu)
		v.Get("/store", d.menu.Store)

		v.Route("/cart", func(c chi.Router) {
			c.Post("/session", d.cart.CreateSession)
			c.Get("/", d.cart.Get)
			c.Delete("/", d.cart.Clear)
			c.Post("/items", d.cart.AddItem)
			c.Post("/items/{lineId}/increment", d.cart.Increment)
			c.Post("/items/{lineId}/decrement", d.cart.Decrement)
			c.Delete("/items/{lineId}", d.cart.RemoveItem)
		})

		v.Get("/checkout/quote", d.checkout.Quote)
		v.With(d.auth.RequireAuth, checkoutLimit.Middleware, idem.Middleware).Post("/checkout", d.checkout.Checkout)

		v.Route("/me/profile", func(p chi.Router) {
			p.Use(d.auth.RequireAuth)
			p.Get("/", d.profile.Get)
			p.Patch("/", d.profile.Update)
		})
	})

	return r, nil
}

func (a *App) probes() []health.Probe {
	probes := []health.Probe{{
		Name:    "menu",
		Timeout: 2 * time.Second,
		Check: func(ctx context.Context) error {
			_, err := a.Menu.Stores(ctx)
			return err
		},
	}}
	if a.Redis != nil {
		probes = append(probes, health.Probe{
			Name:    "redis",
			Timeout: 300 * time.Millisecond,
			Check:   func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() },
		})
	}
	if a.DB != nil {
		probes = append(probes, health.Probe{
			Name:    "db",
			Timeout: 500 * time.Millisecond,
			Check:   a.DB.Ping,
		})
	}
	return probes
}

func allowedOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}
