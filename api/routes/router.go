package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/treadline/treadline-backend/api/controllers"
	"github.com/treadline/treadline-backend/api/middleware"
	"github.com/treadline/treadline-backend/internal/address"
	"github.com/treadline/treadline-backend/pkg/config"
	"github.com/treadline/treadline-backend/pkg/logger"
)

// Deps collects everything the router wires into handlers.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DBPinger        controllers.Pinger
	RedisPinger     controllers.Pinger
	CartStore       controllers.CartStore
	Checkout        controllers.CheckoutService
	AddressAPI      address.DefaultAddressFetcher
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config
	logg := deps.Logger

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))

		r.Route("/cart/{cartId}", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.CartStore, logg))
			r.Put("/", controllers.CartUpsert(deps.CartStore, logg))
			r.Delete("/", controllers.CartClear(deps.CartStore, logg))
		})

		r.Route("/checkout/sessions", func(r chi.Router) {
			r.Post("/", controllers.CheckoutEnter(deps.Checkout, logg))
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", controllers.CheckoutState(deps.Checkout, logg))
				r.Put("/address", controllers.CheckoutUpdateAddress(deps.Checkout, logg))
				r.Post("/advance", controllers.CheckoutAdvance(deps.Checkout, logg))
				r.Post("/retreat", controllers.CheckoutRetreat(deps.Checkout, logg))
				r.Post("/payment/retry", controllers.CheckoutRetryPayment(deps.Checkout, logg))
				r.Post("/confirm", controllers.CheckoutConfirm(deps.Checkout, logg))
			})
		})

		r.With(middleware.RequireAuth(logg)).
			Get("/account/default-address", controllers.AccountDefaultAddress(deps.AddressAPI, logg))
	})

	return r
}
