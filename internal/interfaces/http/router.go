package http

import (
	"net/http"
	"time"

	"github.com/cassiomorais/checkout/internal/infrastructure/config"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/interfaces/http/handlers"
	customMW "github.com/cassiomorais/checkout/internal/interfaces/http/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Transactions   *handlers.TransactionHandler
	Products       *handlers.ProductHandler
	Health         *handlers.HealthHandler
	Idempotency    customMW.IdempotencyStore
	IdempotencyTTL time.Duration
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	Server         config.ServerConfig
	JWTSecret      string
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Server.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Idempotency-Replayed"},
		AllowCredentials: deps.Server.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	r.Get("/health", deps.Health.Health)
	r.Get("/health/live", deps.Health.Liveness)
	r.Get("/health/ready", deps.Health.Readiness)

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// The gateway call is the slow part of finish; keep the budget above
		// the gateway timeout plus polling.
		r.Use(chimw.Timeout(90 * time.Second))
		if deps.Server.RateLimit > 0 {
			r.Use(customMW.RateLimit(deps.Server.RateLimit))
		}

		r.With(customMW.Idempotency(deps.Idempotency, deps.IdempotencyTTL)).
			Post("/transactions", deps.Transactions.Start)
		r.Post("/transactions/{id}/finish", deps.Transactions.Finish)
		r.Get("/transactions/{id}", deps.Transactions.Get)
		r.Get("/transactions", deps.Transactions.List)
		r.Get("/acceptance-terms", deps.Transactions.AcceptanceTerms)

		r.Get("/products", deps.Products.List)
		r.Get("/products/{id}", deps.Products.Get)

		r.Route("/admin", func(r chi.Router) {
			r.Use(customMW.RequireRole(deps.JWTSecret, customMW.RoleAdmin))
			r.Post("/products", deps.Products.Create)
			r.Post("/products/{id}/stock", deps.Products.AddStock)
		})
	})

	return r
}
