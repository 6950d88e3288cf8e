package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kuromall/api/internal/platform/auth"
	"github.com/kuromall/api/internal/platform/metrics"
	"github.com/kuromall/api/internal/platform/observability"
	"github.com/kuromall/api/internal/services"
)

// RouterDeps bundles everything needed to assemble the HTTP surface.
type RouterDeps struct {
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	Orders        services.OrderService
	Payments      services.PaymentService
	Health        Pinger
	JWTSecret     string
	WebhookSecret string
}

// NewRouter assembles the chi router with middleware, public endpoints,
// and the authenticated API surface.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(observability.RequestLogger(deps.Logger))
	r.Use(observability.Recoverer(deps.Logger))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	health := NewHealthHandlers(deps.Health)
	r.Get("/healthz", health.Healthz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	orders := NewOrderHandlers(deps.Orders, deps.Metrics)
	payments := NewPaymentHandlers(deps.Payments, deps.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(deps.JWTSecret))
			r.Route("/orders", orders.Routes)
			r.Route("/payments", payments.Routes)
		})

		r.With(auth.WebhookSecret(deps.WebhookSecret)).
			Post("/webhooks/payments", payments.Webhook)
	})

	return r
}
