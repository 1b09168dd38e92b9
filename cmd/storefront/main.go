package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/bookstore-storefront/api/controllers"
	"github.com/angelmondragon/bookstore-storefront/api/routes"
	"github.com/angelmondragon/bookstore-storefront/internal/attempts"
	"github.com/angelmondragon/bookstore-storefront/internal/cart"
	"github.com/angelmondragon/bookstore-storefront/internal/checkout"
	"github.com/angelmondragon/bookstore-storefront/internal/cron"
	"github.com/angelmondragon/bookstore-storefront/internal/orderresult"
	"github.com/angelmondragon/bookstore-storefront/internal/payments"
	"github.com/angelmondragon/bookstore-storefront/internal/storefront"
	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	"github.com/angelmondragon/bookstore-storefront/pkg/commerce"
	"github.com/angelmondragon/bookstore-storefront/pkg/config"
	"github.com/angelmondragon/bookstore-storefront/pkg/db"
	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
	"github.com/angelmondragon/bookstore-storefront/pkg/metrics"
	"github.com/angelmondragon/bookstore-storefront/pkg/migrate"
	"github.com/angelmondragon/bookstore-storefront/pkg/redis"
)

const (
	serviceName     = "storefront"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "storefront stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeAutoRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	}

	commerceClient, err := commerce.NewClient(cfg.Commerce.BaseURL,
		commerce.WithHTTPClient(&http.Client{Timeout: cfg.Commerce.Timeout}),
		commerce.WithBreaker(cfg.Commerce.BreakerMaxFailures, cfg.Commerce.BreakerOpenTimeout),
		commerce.WithBreakerStateHook(func(from, to string) {
			checkoutMetrics.BreakerTransition(from, to)
			logg.Warn(logg.WithFields(context.Background(), map[string]any{"from": from, "to": to}), "commerce.breaker_transition")
		}),
	)
	if err != nil {
		return err
	}

	intents, err := payments.NewIntentClient(commerceClient, payments.WithDefaultCurrency(cfg.Checkout.DefaultCurrency))
	if err != nil {
		return err
	}

	ledger, err := attempts.NewService(attempts.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	orchestratorOpts := []checkout.Option{
		checkout.WithLedger(ledger),
		checkout.WithMetrics(checkoutMetrics),
		checkout.WithLogger(logg),
		checkout.WithPaymentWindow(cfg.Checkout.PaymentWindow),
		checkout.WithGateway(payments.GatewayIdentity{
			KeyID:        cfg.Gateway.KeyID,
			MerchantName: cfg.Gateway.MerchantName,
		}),
	}
	if cfg.FeatureFlags.DistributedCheckoutGuard {
		guard, err := checkout.NewRedisGuard(redisClient, cfg.Checkout.GuardTTL)
		if err != nil {
			return err
		}
		orchestratorOpts = append(orchestratorOpts, checkout.WithGuard(guard))
	}
	orchestrator, err := checkout.NewOrchestrator(commerceClient, intents, orchestratorOpts...)
	if err != nil {
		return err
	}

	sessions, err := storefront.NewRegistry(commerceClient,
		storefront.WithIdleTTL(cfg.Checkout.SessionIdleTTL),
		storefront.WithStoreOptions(cart.WithMetrics(checkoutMetrics), cart.WithLogger(logg)),
		storefront.WithGauge(checkoutMetrics),
		storefront.WithLogger(logg),
	)
	if err != nil {
		return err
	}

	housekeeping, err := newHousekeeping(cfg, logg, sessions, orchestrator)
	if err != nil {
		return err
	}

	readiness := []controllers.ReadinessCheck{
		{Name: "database", Check: dbClient.Ping},
		{Name: "commerce", Check: commerceClient.Ready},
	}
	if redisClient != nil {
		readiness = append(readiness, controllers.ReadinessCheck{Name: "redis", Check: redisClient.Ping})
	}

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		Credentials: auth.NewParser(cfg.Auth),
		Sessions:    sessions,
		Checkout:    orchestrator,
		Presenter:   orderresult.NewHandler(orderresult.DefaultRoutes()),
		History:     ledger,
		Redis:       redisClient,
		Gatherer:    prometheus.DefaultGatherer,
		Readiness:   readiness,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":               cfg.App.Env,
		"addr":              server.Addr,
		"distributed_guard": cfg.FeatureFlags.DistributedCheckoutGuard,
	})
	logg.Info(ctx, "starting storefront server")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := housekeeping.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "shutting down storefront server")
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func newHousekeeping(cfg *config.Config, logg *logger.Logger, sessions *storefront.Registry, orchestrator *checkout.Orchestrator) (*cron.Service, error) {
	eviction, err := cron.NewSessionEvictionJob(sessions, logg)
	if err != nil {
		return nil, err
	}
	prune, err := cron.NewAttemptPruneJob(orchestrator, cfg.Checkout.AttemptRetention, logg)
	if err != nil {
		return nil, err
	}
	expiry, err := cron.NewPaymentExpiryJob(orchestrator, cfg.Checkout.PaymentWindow, logg)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(eviction, expiry, prune),
		Interval: cfg.Checkout.HousekeepingInterval,
	})
}
