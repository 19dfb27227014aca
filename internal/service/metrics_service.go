package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edu-analytics/student-portal-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	predictionTotal *prometheus.CounterVec
	rosterCacheHits prometheus.Counter
	rosterCacheMiss prometheus.Counter
}

// NewMetricsService registers the portal's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	predictionTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_predictions_total",
		Help: "Total number of stored risk predictions",
	}, []string{"outcome"})

	rosterCacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roster_cache_hits_total",
		Help: "Roster views served from cache",
	})

	rosterCacheMiss := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roster_cache_misses_total",
		Help: "Roster views that required a table scan",
	})

	registry.MustRegister(
		requestDuration,
		requestTotal,
		predictionTotal,
		rosterCacheHits,
		rosterCacheMiss,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		predictionTotal: predictionTotal,
		rosterCacheHits: rosterCacheHits,
		rosterCacheMiss: rosterCacheMiss,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	m.requestDuration.With(labels).Observe(duration.Seconds())
	m.requestTotal.With(labels).Inc()
}

// ObservePrediction counts a stored risk prediction by outcome.
func (m *MetricsService) ObservePrediction(outcome models.RiskStatus) {
	m.predictionTotal.WithLabelValues(string(outcome)).Inc()
}

// ObserveRosterCache counts roster cache hits and misses.
func (m *MetricsService) ObserveRosterCache(hit bool) {
	if hit {
		m.rosterCacheHits.Inc()
		return
	}
	m.rosterCacheMiss.Inc()
}
