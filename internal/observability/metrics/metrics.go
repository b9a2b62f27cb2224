package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorhub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vendorhub_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	orderCreateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vendorhub_order_create_duration_seconds",
		Help:    "Duration of order creation attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	ordersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorhub_orders_created_total",
		Help: "Count of order creation attempts by result",
	}, []string{"result"})

	stockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vendorhub_stock_rejections_total",
		Help: "Count of order lines rejected for insufficient stock",
	})

	orderNumberConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vendorhub_order_number_conflicts_total",
		Help: "Count of order number collisions that triggered a transaction retry",
	})

	lowStockProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vendorhub_low_stock_products",
		Help: "Number of active products at or below the low-stock threshold",
	})

	authFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vendorhub_auth_failures_total",
		Help: "Count of failed authentication attempts by kind",
	}, []string{"kind"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveOrderCreate records the duration of an order creation attempt with a result label.
func ObserveOrderCreate(result string, duration time.Duration) {
	ordersCreated.WithLabelValues(result).Inc()
	orderCreateDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// IncStockRejection increments the insufficient-stock rejection counter.
func IncStockRejection() {
	stockRejections.Inc()
}

// IncOrderNumberConflict increments the order number collision counter.
func IncOrderNumberConflict() {
	orderNumberConflicts.Inc()
}

// SetLowStockProducts sets the low-stock gauge from the latest sweep.
func SetLowStockProducts(n int) {
	lowStockProducts.Set(float64(n))
}

// IncAuthFailure increments the auth failure counter for the given kind.
func IncAuthFailure(kind string) {
	authFailures.WithLabelValues(kind).Inc()
}
