package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AlazarG19/Test-Bulk-Buddy/api/controllers"
	"github.com/AlazarG19/Test-Bulk-Buddy/api/middleware"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/catalog"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/orders"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/pools"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/config"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/db"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/redis"
)

// redisStore is the slice of the redis client the HTTP layer needs.
type redisStore interface {
	redis.Pinger
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services are the domain operations exposed over HTTP.
type Services struct {
	Catalog catalog.Service
	Pools   pools.Service
	Orders  orders.Service
}

// NewRouter wires middleware, probes, metrics and the v1 API. dbP may be nil
// when the order journal is disabled.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	deps := map[string]controllers.Pinger{}
	if redisClient != nil {
		deps["redis"] = redisClient
	}
	if dbP != nil {
		deps["db"] = dbP
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	writePolicy := middleware.RateLimitPolicy{
		Name:   "writes",
		Limit:  cfg.HTTP.WriteRateLimit,
		Window: cfg.HTTP.WriteWindow,
	}

	r.Route("/api/v1", func(r chi.Router) {
		var idempotencyStore redis.IdempotencyStore
		if redisClient != nil {
			idempotencyStore = redisClient
			r.Use(middleware.WriteRateLimit(writePolicy, redisClient, logg))
		}
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/products", controllers.ListProducts(svc.Catalog, logg))

		r.Get("/pools", controllers.ListOpenPools(svc.Pools, logg))
		r.Post("/pools", controllers.CreatePool(svc.Pools, logg))

		r.Post("/orders", controllers.CreateOrder(svc.Orders, logg))
		r.Get("/orders", controllers.GetOrdersForCustomer(svc.Orders, logg))
		r.Get("/orders/{orderRef}/items", controllers.ResolveOrderItems(svc.Orders, logg))
	})

	return r
}
