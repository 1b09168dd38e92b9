package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/bookstore-storefront/api/controllers"
	"github.com/angelmondragon/bookstore-storefront/api/middleware"
	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	"github.com/angelmondragon/bookstore-storefront/pkg/config"
	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
	"github.com/angelmondragon/bookstore-storefront/pkg/redis"
)

// CredentialParser turns a bearer token into a session credential.
type CredentialParser interface {
	Parse(token string) (auth.Credential, error)
}

// Dependencies are the services the HTTP surface drives. Redis, History and
// Gatherer are optional.
type Dependencies struct {
	Credentials CredentialParser
	Sessions    controllers.CartSessions
	Checkout    controllers.CheckoutService
	Presenter   controllers.ResultPresenter
	History     controllers.AttemptHistory
	Redis       *redis.Client
	Gatherer    prometheus.Gatherer
	Readiness   []controllers.ReadinessCheck
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	checkoutLimit := func(next http.Handler) http.Handler { return next }
	if deps.Redis != nil {
		policy := middleware.NewRateLimitPolicy(
			"checkout",
			cfg.RateLimit.CheckoutWindow,
			cfg.RateLimit.CheckoutIPLimit,
			cfg.RateLimit.CheckoutSessionLimit,
		)
		checkoutLimit = middleware.RateLimit(policy, deps.Redis, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness...))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(deps.Credentials, logg))
		r.Use(middleware.SessionExpiry())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Sessions, logg))
			r.Delete("/", controllers.CartClear(deps.Sessions, logg))
			r.Put("/items/{bookID}", controllers.CartSetQuantity(deps.Sessions, logg))
			r.Delete("/items/{bookID}", controllers.CartRemoveItem(deps.Sessions, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.With(checkoutLimit).Post("/", controllers.CheckoutStart(deps.Checkout, deps.Sessions, deps.Presenter, logg))
			r.Get("/history", controllers.CheckoutHistory(deps.History, logg))
			r.Get("/{attemptID}", controllers.CheckoutFetch(deps.Checkout, deps.Presenter, logg))
			r.Post("/{attemptID}/outcome", controllers.CheckoutOutcome(deps.Checkout, deps.Presenter, logg))
			r.With(checkoutLimit).Post("/{attemptID}/retry", controllers.CheckoutRetry(deps.Checkout, deps.Presenter, logg))
			r.Post("/{attemptID}/cancel", controllers.CheckoutCancel(deps.Checkout, deps.Presenter, logg))
		})
	})

	return r
}
