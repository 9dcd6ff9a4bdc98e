package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adoniasgoesw/filazero/api/controllers"
	catalogcontrollers "github.com/adoniasgoesw/filazero/api/controllers/catalog"
	ordercontrollers "github.com/adoniasgoesw/filazero/api/controllers/orders"
	"github.com/adoniasgoesw/filazero/api/middleware"
	"github.com/adoniasgoesw/filazero/internal/catalog"
	"github.com/adoniasgoesw/filazero/internal/orders"
	"github.com/adoniasgoesw/filazero/pkg/config"
	"github.com/adoniasgoesw/filazero/pkg/logger"
	"github.com/adoniasgoesw/filazero/pkg/metrics"
	"github.com/adoniasgoesw/filazero/pkg/redis"
)

// NewRouter wires the order backend's REST surface. redisClient may be nil, in which case
// idempotency replay is off and readiness skips redis. A nil metricsHandler serves the default
// prometheus registry; a nil httpMetrics leaves requests unmeasured.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	catalogRepo *catalog.Repository,
	metricsHandler http.Handler,
	httpMetrics *metrics.HTTPMetrics,
) http.Handler {
	r := chi.NewRouter()
	if httpMetrics != nil {
		r.Use(middleware.Metrics(httpMetrics))
	}
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.TerminalID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var (
		redisPinger      controllers.Pinger
		idempotencyStore redis.IdempotencyStore
	)
	if redisClient != nil {
		redisPinger = redisClient
		idempotencyStore = redisClient
	}

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, cfg.Commit.IdempotencyTTL, logg))

		r.Route("/slots/{slotId}/order", func(r chi.Router) {
			r.Post("/", ordercontrollers.Ensure(ordersSvc, logg))
			r.Get("/", ordercontrollers.Get(ordersSvc, logg))
			r.Delete("/", ordercontrollers.Delete(ordersSvc, logg))
			r.Post("/finalize", ordercontrollers.Finalize(ordersSvc, logg))
			r.Put("/items", ordercontrollers.ReplaceItems(ordersSvc, logg))
			r.Put("/discount", ordercontrollers.SetDiscount(ordersSvc, logg))
			r.Put("/surcharge", ordercontrollers.SetSurcharge(ordersSvc, logg))
			r.Put("/client", ordercontrollers.SetClient(ordersSvc, logg))
			r.Post("/payments", ordercontrollers.RecordPayment(ordersSvc, logg))
		})

		r.Route("/orders/{orderId}/payments", func(r chi.Router) {
			r.Get("/", ordercontrollers.ListPayments(ordersSvc, logg))
			r.Delete("/methods/{methodId}", ordercontrollers.DeletePaymentMethod(ordersSvc, logg))
		})

		r.Patch("/payments/{paymentId}", ordercontrollers.UpdatePayment(ordersSvc, logg))
		r.Post("/payment-methods/composite", catalogcontrollers.CreateCompositeMethod(catalogRepo, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products/{productId}", catalogcontrollers.Product(catalogRepo, logg))
			r.Get("/products/{productId}/complements", catalogcontrollers.Complements(catalogRepo, logg))
			r.Get("/payment-methods", catalogcontrollers.PaymentMethods(catalogRepo, logg))
		})
	})

	return r
}
