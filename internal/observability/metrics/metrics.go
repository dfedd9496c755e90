package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics instruments the HTTP surface plus a few domain counters.
type HTTPMetrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	searchQueries prometheus.Counter
	staleDiscards prometheus.Counter
	changePings   prometheus.Counter
	wizardCommits *prometheus.CounterVec
}

func New() *HTTPMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &HTTPMetrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commune_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "commune_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		searchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commune_search_queries_total",
			Help: "Search queries dispatched after debounce.",
		}),
		staleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commune_search_stale_discards_total",
			Help: "Search responses discarded because a newer query superseded them.",
		}),
		changePings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commune_notification_pings_total",
			Help: "Notification change pings published.",
		}),
		wizardCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commune_onboarding_commits_total",
			Help: "Onboarding step commits by step and outcome.",
		}, []string{"step", "outcome"}),
	}

	registry.MustRegister(m.requests, m.duration, m.searchQueries, m.staleDiscards, m.changePings, m.wizardCommits)
	return m
}

// GinMiddleware records request counts and latency per route.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the /metrics endpoint.
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

func (m *HTTPMetrics) RecordSearchQuery() {
	if m == nil {
		return
	}
	m.searchQueries.Inc()
}

func (m *HTTPMetrics) RecordStaleDiscard() {
	if m == nil {
		return
	}
	m.staleDiscards.Inc()
}

func (m *HTTPMetrics) RecordChangePing() {
	if m == nil {
		return
	}
	m.changePings.Inc()
}

func (m *HTTPMetrics) RecordWizardCommit(step string, outcome string) {
	if m == nil {
		return
	}
	m.wizardCommits.WithLabelValues(step, outcome).Inc()
}
