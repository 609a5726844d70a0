package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SaugatGautam100/plexify/internal/app"
	"github.com/SaugatGautam100/plexify/internal/clock"
	"github.com/SaugatGautam100/plexify/internal/config"
	"github.com/SaugatGautam100/plexify/internal/notify"
	"github.com/SaugatGautam100/plexify/internal/obs"
	"github.com/SaugatGautam100/plexify/internal/storage/postgres"
	transporthttp "github.com/SaugatGautam100/plexify/internal/transport/http"
	"github.com/SaugatGautam100/plexify/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := obs.NewLogger(os.Stdout, "info")
	if wd, err := os.Getwd(); err == nil {
		config.LoadEnvFile(logger, wd)
	}

	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}
	logger = obs.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		return err
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		return err
	}

	var notifier app.Notifier = notify.Nop{}
	if cfg.RedisURL != "" {
		publisher, err := notify.NewRedisPublisher(startupCtx, cfg.RedisURL, logger)
		if err != nil {
			logger.Warn("redis unavailable, notifications disabled", "error", err)
		} else {
			defer publisher.Close()
			notifier = publisher
		}
	} else {
		logger.Warn("REDIS_URL not set, notifications disabled")
	}

	clk := clock.NewSystem()
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	orderSvc := app.NewOrderService(orderRepo, productRepo, clk,
		app.WithPricingPolicy(cfg.Pricing),
		app.WithNotifier(notifier),
		app.WithLogger(logger),
	)
	catalogSvc := app.NewCatalogService(productRepo, clk)

	handler := transporthttp.NewRouter(transporthttp.Deps{
		Orders:      orderSvc,
		Catalog:     catalogSvc,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		DB:          pool,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("api listening", "addr", server.Addr)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
