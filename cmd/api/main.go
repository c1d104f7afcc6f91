package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/treadline/treadline-backend/api/routes"
	"github.com/treadline/treadline-backend/internal/address"
	"github.com/treadline/treadline-backend/internal/cartstore"
	"github.com/treadline/treadline-backend/internal/checkout"
	"github.com/treadline/treadline-backend/internal/orders"
	"github.com/treadline/treadline-backend/internal/payment"
	"github.com/treadline/treadline-backend/pkg/config"
	"github.com/treadline/treadline-backend/pkg/db"
	"github.com/treadline/treadline-backend/pkg/logger"
	"github.com/treadline/treadline-backend/pkg/metrics"
	"github.com/treadline/treadline-backend/pkg/migrate"
	"github.com/treadline/treadline-backend/pkg/redis"
	"github.com/treadline/treadline-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	// Without working Square credentials the storefront still runs: every
	// payment operation fails closed through the disabled backend.
	var backend payment.Backend
	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Warn(logg.WithField(context.Background(), "reason", err.Error()), "square client unavailable, running without payments")
		backend = payment.NewDisabledBackend(logg)
	} else {
		backend, err = payment.NewLiveBackend(squareClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create payment backend", err)
			os.Exit(1)
		}
	}

	cartStore, err := cartstore.NewStore(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}

	sessionRepo, err := checkout.NewRepo(redisClient, cfg.Checkout.SessionTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create session repo", err)
		os.Exit(1)
	}

	intentManager, err := payment.NewManager(backend, redisClient, checkoutMetrics, logg, cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "failed to create intent manager", err)
		os.Exit(1)
	}

	finalizer, err := orders.NewFinalizer(orders.NewRepository(dbClient.DB()), cartStore, checkoutMetrics, logg, cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "failed to create order finalizer", err)
		os.Exit(1)
	}

	var addressAPI address.DefaultAddressFetcher
	if cfg.Account.BaseURL != "" {
		client, err := address.NewClient(cfg.Account)
		if err != nil {
			logg.Error(context.Background(), "failed to create account address client", err)
			os.Exit(1)
		}
		addressAPI = client
	}

	checkoutService, err := checkout.NewService(
		sessionRepo,
		cartStore,
		intentManager,
		backend,
		finalizer,
		addressAPI,
		checkoutMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"payments": backend.Available(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DBPinger:        dbClient,
			RedisPinger:     redisClient,
			CartStore:       cartStore,
			Checkout:        checkoutService,
			AddressAPI:      addressAPI,
			MetricsGatherer: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
