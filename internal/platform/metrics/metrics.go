package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors exposed by the API process.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ordersCreated   prometheus.Counter
	paymentsSettled *prometheus.CounterVec
	stockConflicts  prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Count of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Count of successfully placed orders.",
		}),
		paymentsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_settled_total",
			Help: "Count of payment settlements by outcome.",
		}, []string{"outcome"}),
		stockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stock_decrement_conflicts_total",
			Help: "Count of stock decrements rejected by the compare-and-swap guard.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.ordersCreated,
		m.paymentsSettled,
		m.stockConflicts,
	)
	return m
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records per-request counters and latency. Route templates
// come from the chi route context so SKU and order ids do not explode
// label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				pattern = p
			}
		}

		m.httpRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
		m.httpDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}

// OrderCreated records one placed order.
func (m *Metrics) OrderCreated() {
	m.ordersCreated.Inc()
}

// PaymentSettled records one settlement outcome ("success", "failed",
// "refunded", "refund_failed").
func (m *Metrics) PaymentSettled(outcome string) {
	m.paymentsSettled.WithLabelValues(outcome).Inc()
}

// StockConflict records one rejected compare-and-swap decrement.
func (m *Metrics) StockConflict() {
	m.stockConflicts.Inc()
}
