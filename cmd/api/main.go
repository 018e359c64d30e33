package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acctbay/storefront-backend/api/routes"
	"github.com/acctbay/storefront-backend/internal/auth"
	"github.com/acctbay/storefront-backend/internal/cart"
	"github.com/acctbay/storefront-backend/internal/checkout"
	"github.com/acctbay/storefront-backend/internal/orders"
	"github.com/acctbay/storefront-backend/internal/products"
	"github.com/acctbay/storefront-backend/internal/reviews"
	"github.com/acctbay/storefront-backend/internal/settings"
	"github.com/acctbay/storefront-backend/internal/stats"
	"github.com/acctbay/storefront-backend/internal/users"
	"github.com/acctbay/storefront-backend/pkg/auth/session"
	"github.com/acctbay/storefront-backend/pkg/config"
	"github.com/acctbay/storefront-backend/pkg/db"
	"github.com/acctbay/storefront-backend/pkg/logger"
	"github.com/acctbay/storefront-backend/pkg/mail"
	"github.com/acctbay/storefront-backend/pkg/metrics"
	"github.com/acctbay/storefront-backend/pkg/migrate"
	"github.com/acctbay/storefront-backend/pkg/redis"
	"github.com/acctbay/storefront-backend/pkg/sellauth"
)

const shutdownGrace = 15 * time.Second

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
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefrontMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	mailClient, err := mail.NewClient(cfg.Mail, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail client", err)
		os.Exit(1)
	}

	gateway, err := sellauth.NewClient(context.Background(), cfg.SellAuth, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout gateway", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	reviewsRepo := reviews.NewRepository(dbClient.DB())
	settingsRepo := settings.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserStore:      usersRepo,
		CodeStore:      redisClient,
		SessionManager: sessionManager,
		Mailer:         mailClient,
		JWTConfig:      cfg.JWT,
		OTPConfig:      cfg.OTP,
		Logger:         logg,
		Metrics:        storefrontMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(products.ServiceParams{Repo: productsRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{Repo: cartRepo, Products: productsRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	unsubscribe := authService.Subscribe(func(t auth.Transition) {
		cartService.OnSessionTransition(context.Background(), t)
	})
	defer unsubscribe()

	ordersService, err := orders.NewService(orders.ServiceParams{Repo: ordersRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Cart:     cartService,
		Products: productsRepo,
		Gateway:  gateway,
		Orders:   ordersRepo,
		Config:   cfg.SellAuth,
		Logger:   logg,
		Metrics:  storefrontMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	reviewsService, err := reviews.NewService(reviews.ServiceParams{
		Repo:      reviewsRepo,
		Products:  productsRepo,
		Purchases: ordersRepo,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reviews service", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(settings.ServiceParams{
		Repo:   settingsRepo,
		Cache:  redisClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	statsService, err := stats.NewService(stats.ServiceParams{
		Products:  productsRepo,
		Customers: usersRepo,
		Reviews:   reviewsRepo,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stats service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Auth:           authService,
		Products:       productsService,
		Cart:           cartService,
		Checkout:       checkoutService,
		Orders:         ordersService,
		Reviews:        reviewsService,
		Settings:       settingsService,
		Stats:          statsService,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server stopped")
	}
}
