package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noah-isme/storefront/internal/app"
	"github.com/noah-isme/storefront/internal/config"
	"github.com/noah-isme/storefront/internal/health"
	"github.com/noah-isme/storefront/internal/obs"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("version", version).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Obs.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:    "storefront",
			ServiceVersion: version,
			Endpoint:       cfg.Obs.OTLPEndpoint,
			Exporter:       cfg.Obs.TracingExporter,
			SamplingRatio:  cfg.Obs.TracingSampling,
			Environment:    cfg.AppEnv,
			StoreID:        cfg.StoreID,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			cfg.Obs.TracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise application")
	}
	defer application.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           application.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("store_id", cfg.StoreID).Str("cart_store", cfg.CartStore).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
	}

	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}
