package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the mediaplan service.
type Metrics struct {
	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Plan metrics
	PlanOperations       *prometheus.CounterVec
	PlanOperationLatency *prometheus.HistogramVec
	RowsCalculated       *prometheus.CounterVec

	// Benchmark metrics
	BenchmarkResolutions *prometheus.CounterVec
	CurrencyConversions  *prometheus.CounterVec
	ConvertedRows        prometheus.Counter

	// App store metrics
	AppLookups       *prometheus.CounterVec
	AppLookupLatency *prometheus.HistogramVec
	CacheRequests    *prometheus.CounterVec
	RedisLatency     *prometheus.HistogramVec

	// Protection metrics
	RateLimitHits *prometheus.CounterVec
	AuthFailures  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// uses the Prometheus default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	m := &Metrics{
		// HTTP metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "route"},
		),

		// Plan metrics
		PlanOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plan_operations_total",
				Help:      "Plan operations by outcome",
			},
			[]string{"operation", "status"},
		),
		PlanOperationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "plan_operation_duration_seconds",
				Help:      "Plan operation latency in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"operation"},
		),
		RowsCalculated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_calculated_total",
				Help:      "Plan rows recalculated by campaign goal",
			},
			[]string{"mode"},
		),

		// Benchmark metrics
		BenchmarkResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "benchmark_resolutions_total",
				Help:      "Benchmark resolutions by matched channel and GEO tier",
			},
			[]string{"channel", "geo_tier"},
		),
		CurrencyConversions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "currency_conversions_total",
				Help:      "Plan currency changes",
			},
			[]string{"from", "to"},
		),
		ConvertedRows: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "currency_converted_rows_total",
				Help:      "Rows rescaled by currency changes",
			},
		),

		// App store metrics
		AppLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "app_lookups_total",
				Help:      "App store lookups by store and result",
			},
			[]string{"store", "result"},
		),
		AppLookupLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "app_lookup_duration_seconds",
				Help:      "App store lookup latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"store"},
		),
		CacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "app_cache_requests_total",
				Help:      "App metadata cache lookups",
			},
			[]string{"backend", "result"},
		),
		RedisLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "redis_latency_seconds",
				Help:      "Redis operation latency",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
			[]string{"operation"},
		),

		// Protection metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"route"},
		),
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Rejected API key checks",
			},
			[]string{"reason"},
		),

		gatherer: gatherer,
	}

	return m
}

// Handler returns the Prometheus metrics HTTP handler for the registry the
// metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

// RecordPlanOperation records a plan operation and its outcome.
func (m *Metrics) RecordPlanOperation(op string, latency time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PlanOperations.WithLabelValues(op, status).Inc()
	m.PlanOperationLatency.WithLabelValues(op).Observe(latency.Seconds())
}

// RecordRowsCalculated records recalculated rows.
func (m *Metrics) RecordRowsCalculated(mode string, rows int) {
	m.RowsCalculated.WithLabelValues(mode).Add(float64(rows))
}

// RecordBenchmarkResolution records a benchmark resolution.
func (m *Metrics) RecordBenchmarkResolution(channelKey, tier string) {
	m.BenchmarkResolutions.WithLabelValues(channelKey, tier).Inc()
}

// RecordCurrencyConversion records a currency change over rows.
func (m *Metrics) RecordCurrencyConversion(from, to string, rows int) {
	m.CurrencyConversions.WithLabelValues(from, to).Inc()
	m.ConvertedRows.Add(float64(rows))
}

// RecordAppLookup records an app store lookup.
func (m *Metrics) RecordAppLookup(store, result string, latency time.Duration) {
	m.AppLookups.WithLabelValues(store, result).Inc()
	m.AppLookupLatency.WithLabelValues(store).Observe(latency.Seconds())
}

// RecordCacheLookup records an app metadata cache hit or miss.
func (m *Metrics) RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(backend, result).Inc()
}

// RecordRedisOp records a Redis round trip.
func (m *Metrics) RecordRedisOp(op string, latency time.Duration) {
	m.RedisLatency.WithLabelValues(op).Observe(latency.Seconds())
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(route string) {
	m.RateLimitHits.WithLabelValues(route).Inc()
}

// RecordAuthFailure records a rejected API key.
func (m *Metrics) RecordAuthFailure(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}
