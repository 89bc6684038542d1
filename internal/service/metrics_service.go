package service

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService exposes Prometheus instrumentation for the API.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	cacheOps      *prometheus.CounterVec
	verifications *prometheus.CounterVec
	pendingGauge  prometheus.Gauge
}

// NewMetricsService builds the metric set on a private registry so tests can
// construct isolated instances.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	s := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "popcorn_http_requests_total",
			Help: "HTTP requests processed, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "popcorn_http_request_duration_seconds",
			Help:    "HTTP request latency distribution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "popcorn_cache_operations_total",
			Help: "Cache operations, by operation and result.",
		}, []string{"operation", "result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "popcorn_contribution_verifications_total",
			Help: "Verification outcomes, by resulting status.",
		}, []string{"status"}),
		pendingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "popcorn_contributions_pending",
			Help: "Contributions currently awaiting review.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.httpRequests,
		s.httpDuration,
		s.cacheOps,
		s.verifications,
		s.pendingGauge,
	)
	return s
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	s.httpRequests.WithLabelValues(method, route, status).Inc()
	s.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCacheOperation counts a cache hit, miss or error.
func (s *MetricsService) RecordCacheOperation(operation, result string) {
	s.cacheOps.WithLabelValues(operation, result).Inc()
}

// RecordVerification counts a resolved contribution by final status.
func (s *MetricsService) RecordVerification(status string) {
	s.verifications.WithLabelValues(status).Inc()
}

// SetPendingContributions updates the pending backlog gauge.
func (s *MetricsService) SetPendingContributions(count float64) {
	s.pendingGauge.Set(count)
}

// Handler returns the scrape endpoint handler.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
